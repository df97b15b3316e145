package command

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
	"github.com/yndnr/meshbbs-go/internal/server/config"
)

// mailRow is one line of `mail list`.
type mailRow struct {
	ID         int64     `json:"id" yaml:"id"`
	Sender     string    `json:"sender" yaml:"sender"`
	SenderName string    `json:"sender_short_name" yaml:"sender_short_name" table:"wide"`
	Recipient  string    `json:"recipient" yaml:"recipient"`
	Date       time.Time `json:"date" yaml:"date"`
	Subject    string    `json:"subject" yaml:"subject"`
	Content    string    `json:"content" yaml:"content" table:"wide"`
	UniqueID   string    `json:"unique_id" yaml:"unique_id"`
}

func newMailRows(mail []*domain.Mail) []mailRow {
	rows := make([]mailRow, 0, len(mail))
	for _, m := range mail {
		rows = append(rows, mailRow{
			ID:         m.ID,
			Sender:     string(m.Sender),
			SenderName: m.SenderShortName,
			Recipient:  string(m.Recipient),
			Date:       m.Date,
			Subject:    m.Subject,
			Content:    m.Content,
			UniqueID:   m.UniqueID,
		})
	}
	return rows
}

// MailCommand returns the mail subcommand group.
func MailCommand() *cli.Command {
	return &cli.Command{
		Name:    "mail",
		Aliases: []string{"m"},
		Usage:   "Inspect and remove mail",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List mail",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "recipient",
						Usage: "Only list this node's mailbox (e.g. !a1b2c3d4)",
					},
				},
				Action: mailList,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a mail by unique id",
				ArgsUsage: "UNIQUE_ID",
				Action:    mailDelete,
			},
		},
	}
}

func mailList(c *cli.Context) error {
	return withRepository(c, func(repo service.Repository, _ *config.ServerConfig) error {
		var (
			mail []*domain.Mail
			err  error
		)
		if recipient := c.String("recipient"); recipient != "" {
			mail, err = repo.ListMail(c.Context, domain.NodeID(recipient))
		} else {
			mail, err = repo.AllMail(c.Context)
		}
		if err != nil {
			return fmt.Errorf("list mail: %w", err)
		}
		return printResult(c, newMailRows(mail))
	})
}

// mailDelete removes the mail from its recipient's mailbox. The recipient is
// looked up first because mail deletes are always scoped to one mailbox.
func mailDelete(c *cli.Context) error {
	uid := c.Args().First()
	if uid == "" {
		return errMissingArg("UNIQUE_ID")
	}

	return withRepository(c, func(repo service.Repository, _ *config.ServerConfig) error {
		recipient, err := repo.MailRecipient(c.Context, uid)
		if errors.Is(err, domain.ErrMailNotFound) {
			return domain.ErrMailNotFound.WithDetails(uid)
		}
		if err != nil {
			return fmt.Errorf("find mail: %w", err)
		}

		n, err := repo.DeleteMailByUniqueID(c.Context, uid, recipient)
		if err != nil {
			return fmt.Errorf("delete mail: %w", err)
		}
		printf(c, "Deleted %d mail(s) with unique id %s from %s", n, uid, recipient)
		return nil
	})
}
