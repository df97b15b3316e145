package command

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshbbs-go/internal/cli/connection"
	"github.com/yndnr/meshbbs-go/internal/cli/output"
	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
	"github.com/yndnr/meshbbs-go/internal/infra/buildinfo"
	"github.com/yndnr/meshbbs-go/internal/server/config"
	"github.com/yndnr/meshbbs-go/internal/server/meshserver"
)

// DefaultServer is the admin HTTP address a node listens on by default.
const DefaultServer = "127.0.0.1:5080"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:                 "meshbbs-cli",
		Usage:                "MeshBBS database and node administration",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			BulletinCommand(),
			MailCommand(),
			ChannelCommand(),
			ExportCommand(),
			ImportCommand(),
			ConfigCommand(),
			StatusCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Server configuration file (selects the database)",
			EnvVars: []string{"MESHBBS_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Admin HTTP address of a running node",
			EnvVars: []string{"MESHBBS_SERVER"},
			Value:   DefaultServer,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show all columns without truncation",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config string
	Server string
	Output output.Format
	Wide   bool
}

// ParseGlobalFlags extracts global flags from context. The output format was
// validated by the app's Before hook.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	format, _ := output.ParseFormat(c.String("output"))
	return &GlobalFlags{
		Config: c.String("config"),
		Server: c.String("server"),
		Output: format,
		Wide:   c.Bool("wide"),
	}
}

// printResult writes data to the app's writer in the selected format.
func printResult(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	return output.NewFormatter(flags.Output, flags.Wide).Format(c.App.Writer, data)
}

// printf writes a plain confirmation line. Machine-readable formats stay quiet.
func printf(c *cli.Context, format string, args ...any) {
	if ParseGlobalFlags(c).Output != output.FormatTable {
		return
	}
	fmt.Fprintf(c.App.Writer, format+"\n", args...)
}

// withRepository opens the configured database, runs fn and closes it.
//
// Writes made here go straight to the local database and are not replicated.
// A badger database is locked by a running server; stop it first.
func withRepository(c *cli.Context, fn func(repo service.Repository, cfg *config.ServerConfig) error) error {
	cfg, err := config.Load(ParseGlobalFlags(c).Config)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo, err := meshserver.OpenRepository(&cfg.Storage, logger, nil)
	if err != nil {
		return err
	}

	if err := fn(repo, cfg); err != nil {
		_ = repo.Close()
		return err
	}
	return repo.Close()
}

func errMissingArg(name string) error {
	return domain.ErrInvalidArgument.WithDetails("missing " + name)
}

// adminClient returns an HTTP client for the node named by --server.
func adminClient(c *cli.Context) *connection.HTTPClient {
	return connection.NewHTTPClient(ParseGlobalFlags(c).Server, 0)
}
