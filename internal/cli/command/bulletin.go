package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
	"github.com/yndnr/meshbbs-go/internal/server/config"
)

// bulletinRow is one line of `bulletin list`.
type bulletinRow struct {
	ID       int64     `json:"id" yaml:"id"`
	Board    string    `json:"board" yaml:"board"`
	Sender   string    `json:"sender" yaml:"sender"`
	Date     time.Time `json:"date" yaml:"date"`
	Subject  string    `json:"subject" yaml:"subject"`
	Content  string    `json:"content" yaml:"content" table:"wide"`
	UniqueID string    `json:"unique_id" yaml:"unique_id"`
}

func newBulletinRows(bulletins []*domain.Bulletin) []bulletinRow {
	rows := make([]bulletinRow, 0, len(bulletins))
	for _, b := range bulletins {
		rows = append(rows, bulletinRow{
			ID:       b.ID,
			Board:    b.Board,
			Sender:   b.SenderShortName,
			Date:     b.Date,
			Subject:  b.Subject,
			Content:  b.Content,
			UniqueID: b.UniqueID,
		})
	}
	return rows
}

// BulletinCommand returns the bulletin subcommand group.
func BulletinCommand() *cli.Command {
	return &cli.Command{
		Name:    "bulletin",
		Aliases: []string{"b"},
		Usage:   "Inspect and remove bulletins",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List bulletins",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "board",
						Usage: "Only list this board (case-insensitive)",
					},
				},
				Action: bulletinList,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a bulletin by unique id",
				ArgsUsage: "UNIQUE_ID",
				Action:    bulletinDelete,
			},
		},
	}
}

func bulletinList(c *cli.Context) error {
	return withRepository(c, func(repo service.Repository, _ *config.ServerConfig) error {
		ctx := c.Context
		var (
			bulletins []*domain.Bulletin
			err       error
		)
		if board := c.String("board"); board != "" {
			bulletins, err = repo.ListBulletins(ctx, board)
		} else {
			bulletins, err = repo.AllBulletins(ctx)
		}
		if err != nil {
			return fmt.Errorf("list bulletins: %w", err)
		}
		return printResult(c, newBulletinRows(bulletins))
	})
}

func bulletinDelete(c *cli.Context) error {
	uid := c.Args().First()
	if uid == "" {
		return errMissingArg("UNIQUE_ID")
	}

	return withRepository(c, func(repo service.Repository, _ *config.ServerConfig) error {
		n, err := repo.DeleteBulletinByUniqueID(c.Context, uid)
		if err != nil {
			return fmt.Errorf("delete bulletin: %w", err)
		}
		if n == 0 {
			return domain.ErrBulletinNotFound.WithDetails(uid)
		}
		printf(c, "Deleted %d bulletin(s) with unique id %s", n, uid)
		return nil
	})
}
