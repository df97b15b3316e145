package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshbbs-go/internal/server/meshserver"
)

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show the status of a running node",
		Action: status,
	}
}

// statusView is the node status plus the version reported by /health.
type statusView struct {
	meshserver.Status `yaml:",inline"`
	Version           string `json:"version" yaml:"version"`
}

func status(c *cli.Context) error {
	client := adminClient(c)

	var health struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := client.GetJSON(c.Context, "/health", &health); err != nil {
		return err
	}

	view := statusView{Version: health.Version}
	if err := client.GetJSON(c.Context, "/admin/v1/status", &view.Status); err != nil {
		return err
	}
	return printResult(c, view)
}
