package command

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

func TestChannelLifecycle(t *testing.T) {
	path := writeConfig(t)

	out, err := run(t, "--config", path, "channel", "list")
	if err != nil {
		t.Fatalf("channel list: %v", err)
	}
	if strings.TrimSpace(out) != "ID  NAME  URL" {
		t.Errorf("empty list = %q, want headers only", out)
	}

	out, err = run(t, "--config", path, "-o", "json", "channel", "add", "Hikers", "https://meshtastic.org/e/#xyz")
	if err != nil {
		t.Fatalf("channel add: %v", err)
	}
	var added domain.Channel
	if err := json.Unmarshal([]byte(out), &added); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if added.ID == 0 || added.Name != "Hikers" {
		t.Errorf("added = %+v", added)
	}

	out, err = run(t, "--config", path, "channel", "list")
	if err != nil {
		t.Fatalf("channel list: %v", err)
	}
	if !strings.Contains(out, "Hikers") {
		t.Errorf("list should show the new channel:\n%s", out)
	}

	if _, err := run(t, "--config", path, "channel", "delete", "999"); !domain.IsDomainError(err, domain.ErrChannelNotFound.Code) {
		t.Errorf("delete unknown: err = %v", err)
	}

	out, err = run(t, "--config", path, "channel", "delete", "1")
	if err != nil {
		t.Fatalf("channel delete: %v", err)
	}
	if !strings.Contains(out, "Deleted channel 1") {
		t.Errorf("output = %q", out)
	}
}

func TestChannelAdd_Validation(t *testing.T) {
	path := writeConfig(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing url", []string{"channel", "add", "Hikers"}},
		{"blank name", []string{"channel", "add", " ", "https://example.org"}},
		{"bad id", []string{"channel", "delete", "one"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"--config", path}, tt.args...)...)
			if !domain.IsDomainError(err, domain.ErrInvalidArgument.Code) {
				t.Errorf("err = %v, want %s", err, domain.ErrInvalidArgument.Code)
			}
		})
	}
}
