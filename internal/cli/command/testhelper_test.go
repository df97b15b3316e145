package command

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
	"github.com/yndnr/meshbbs-go/internal/server/config"
	"github.com/yndnr/meshbbs-go/internal/server/meshserver"
)

// writeConfig writes a server config pointing at a fresh sqlite database and
// returns its path.
func writeConfig(t *testing.T, extra ...string) string {
	t.Helper()

	dir := t.TempDir()
	body := "storage:\n  engine: sqlite\n  path: " + filepath.Join(dir, "bbs.db") + "\n"
	body += strings.Join(extra, "\n")

	path := filepath.Join(dir, "meshbbs.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// run executes the CLI with args and returns everything it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	app := App()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run(append([]string{"meshbbs-cli"}, args...))
	return out.String(), err
}

// openRepo opens the database named by the config at path.
func openRepo(t *testing.T, path string) service.Repository {
	t.Helper()

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	repo, err := meshserver.OpenRepository(&cfg.Storage, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	return repo
}

var seedDate = time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)

// seed fills the database with two bulletins, two mails and one channel.
func seed(t *testing.T, path string) {
	t.Helper()

	repo := openRepo(t, path)
	defer repo.Close()

	ctx := context.Background()
	bulletins := []*domain.Bulletin{
		{Board: "General", SenderShortName: "ALFA", Date: seedDate, Subject: "Hello", Content: "First post", UniqueID: "b-1"},
		{Board: "Urgent", SenderShortName: "BRVO", Date: seedDate, Subject: "Flood", Content: "River is rising", UniqueID: "b-2"},
	}
	for _, b := range bulletins {
		if _, err := repo.CreateBulletin(ctx, b); err != nil {
			t.Fatalf("seed bulletin: %v", err)
		}
	}

	mail := []*domain.Mail{
		{Sender: "!aaaa0001", SenderShortName: "ALFA", Recipient: "!bbbb0002", Date: seedDate, Subject: "Hi", Content: "Are you there?", UniqueID: "m-1"},
		{Sender: "!bbbb0002", SenderShortName: "BRVO", Recipient: "!aaaa0001", Date: seedDate, Subject: "Re: Hi", Content: "Yes", UniqueID: "m-2"},
	}
	for _, m := range mail {
		if _, err := repo.CreateMail(ctx, m); err != nil {
			t.Fatalf("seed mail: %v", err)
		}
	}

	if _, err := repo.CreateChannel(ctx, &domain.Channel{Name: "LongFast", URL: "https://meshtastic.org/e/#abc"}); err != nil {
		t.Fatalf("seed channel: %v", err)
	}
}
