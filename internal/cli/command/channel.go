package command

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshbbs-go/internal/cli/output"
	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
	"github.com/yndnr/meshbbs-go/internal/server/config"
)

// ChannelCommand returns the channel subcommand group.
func ChannelCommand() *cli.Command {
	return &cli.Command{
		Name:    "channel",
		Aliases: []string{"ch"},
		Usage:   "Manage the channel directory",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List channels",
				Action:  channelList,
			},
			{
				Name:      "add",
				Usage:     "Add a channel",
				ArgsUsage: "NAME URL",
				Action:    channelAdd,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a channel by id",
				ArgsUsage: "ID",
				Action:    channelDelete,
			},
		},
	}
}

func channelList(c *cli.Context) error {
	return withRepository(c, func(repo service.Repository, _ *config.ServerConfig) error {
		channels, err := repo.ListChannels(c.Context)
		if err != nil {
			return fmt.Errorf("list channels: %w", err)
		}
		if channels == nil {
			channels = []*domain.Channel{}
		}
		return printResult(c, channels)
	})
}

func channelAdd(c *cli.Context) error {
	if c.NArg() < 2 {
		return errMissingArg("NAME and URL")
	}
	ch := &domain.Channel{Name: c.Args().Get(0), URL: c.Args().Get(1)}
	if err := ch.Validate(); err != nil {
		return err
	}

	return withRepository(c, func(repo service.Repository, _ *config.ServerConfig) error {
		id, err := repo.CreateChannel(c.Context, ch)
		if err != nil {
			return fmt.Errorf("add channel: %w", err)
		}
		ch.ID = id
		if ParseGlobalFlags(c).Output != output.FormatTable {
			return printResult(c, ch)
		}
		printf(c, "Added channel %d: %s", id, ch.Name)
		return nil
	})
}

func channelDelete(c *cli.Context) error {
	arg := c.Args().First()
	if arg == "" {
		return errMissingArg("ID")
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return domain.ErrInvalidArgument.WithDetails("channel id must be a number")
	}

	return withRepository(c, func(repo service.Repository, _ *config.ServerConfig) error {
		if err := repo.DeleteChannel(c.Context, id); err != nil {
			return fmt.Errorf("delete channel %d: %w", id, err)
		}
		printf(c, "Deleted channel %d", id)
		return nil
	})
}
