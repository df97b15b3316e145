package command

import (
	"context"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

func TestMailList(t *testing.T) {
	path := writeConfig(t)
	seed(t, path)

	out, err := run(t, "--config", path, "mail", "list")
	if err != nil {
		t.Fatalf("mail list: %v", err)
	}
	for _, want := range []string{"RECIPIENT", "!bbbb0002", "m-1", "m-2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Are you there?") {
		t.Error("narrow output should not include mail content")
	}
}

func TestMailList_RecipientYAML(t *testing.T) {
	path := writeConfig(t)
	seed(t, path)

	out, err := run(t, "--config", path, "-o", "yaml", "mail", "list", "--recipient", "!aaaa0001")
	if err != nil {
		t.Fatalf("mail list: %v", err)
	}

	var rows []mailRow
	if err := yaml.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].UniqueID != "m-2" || rows[0].Sender != "!bbbb0002" || rows[0].SenderName != "BRVO" {
		t.Errorf("row = %+v", rows[0])
	}
}

func TestMailDelete(t *testing.T) {
	path := writeConfig(t)
	seed(t, path)

	out, err := run(t, "--config", path, "mail", "delete", "m-1")
	if err != nil {
		t.Fatalf("mail delete: %v", err)
	}
	if !strings.Contains(out, "from !bbbb0002") {
		t.Errorf("output = %q", out)
	}

	repo := openRepo(t, path)
	defer repo.Close()
	left, err := repo.ListMail(context.Background(), "!bbbb0002")
	if err != nil {
		t.Fatalf("ListMail: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("mailbox should be empty, got %d", len(left))
	}
	other, err := repo.ListMail(context.Background(), "!aaaa0001")
	if err != nil {
		t.Fatalf("ListMail: %v", err)
	}
	if len(other) != 1 {
		t.Errorf("other mailbox should be untouched, got %d", len(other))
	}
}

func TestMailDelete_NotFound(t *testing.T) {
	path := writeConfig(t)
	seed(t, path)

	_, err := run(t, "--config", path, "mail", "delete", "nope")
	if !domain.IsDomainError(err, domain.ErrMailNotFound.Code) {
		t.Errorf("err = %v, want %s", err, domain.ErrMailNotFound.Code)
	}
}
