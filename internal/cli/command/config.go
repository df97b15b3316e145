package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshbbs-go/internal/cli/output"
	"github.com/yndnr/meshbbs-go/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:    "config",
		Aliases: []string{"cfg"},
		Usage:   "Server configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration with secrets masked",
				Action: configShow,
			},
			{
				Name:   "validate",
				Usage:  "Load and verify the configuration",
				Action: configValidate,
			},
		},
	}
}

// configShow prints the merged file and environment configuration. The table
// format cannot show nested sections, so it prints YAML instead.
func configShow(c *cli.Context) error {
	cfg, err := config.Load(ParseGlobalFlags(c).Config)
	if err != nil {
		return err
	}

	sanitized := config.Sanitize(cfg)
	if ParseGlobalFlags(c).Output == output.FormatTable {
		return (&output.YAMLFormatter{}).Format(c.App.Writer, sanitized)
	}
	return printResult(c, sanitized)
}

func configValidate(c *cli.Context) error {
	path := ParseGlobalFlags(c).Config
	if _, err := config.Load(path); err != nil {
		return err
	}
	if path == "" {
		path = "(defaults and environment)"
	}
	printf(c, "Configuration OK: %s", path)
	return nil
}
