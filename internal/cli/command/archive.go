package command

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshbbs-go/internal/core/service"
	"github.com/yndnr/meshbbs-go/internal/server/config"
	"github.com/yndnr/meshbbs-go/internal/storage/archive"
)

// ExportCommand returns the export command.
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write every bulletin, mail and channel to a zstd archive",
		ArgsUsage: "FILE (- for stdout)",
		Action:    exportArchive,
	}
}

// ImportCommand returns the import command.
func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Load an archive written by export",
		ArgsUsage: "FILE (- for stdin)",
		Action:    importArchive,
	}
}

func exportArchive(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errMissingArg("FILE")
	}

	return withRepository(c, func(repo service.Repository, cfg *config.ServerConfig) error {
		if path == "-" {
			_, err := archive.Export(c.Context, repo, c.App.Writer, cfg.Node.Name)
			return err
		}

		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("create archive: %w", err)
		}
		counts, err := archive.Export(c.Context, repo, f, cfg.Node.Name)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
			return err
		}
		return printResult(c, counts)
	})
}

func importArchive(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errMissingArg("FILE")
	}

	var r io.Reader = c.App.Reader
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer f.Close()
		r = f
	}
	if r == nil {
		r = os.Stdin
	}

	return withRepository(c, func(repo service.Repository, _ *config.ServerConfig) error {
		counts, err := archive.Import(c.Context, repo, r)
		if err != nil {
			return fmt.Errorf("import %s (%d bulletins, %d mail, %d channels loaded): %w",
				path, counts.Bulletins, counts.Mail, counts.Channels, err)
		}
		return printResult(c, counts)
	})
}
