// Package storagetest provides a conformance suite shared by every
// service.Repository implementation.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
)

// Factory opens a fresh, empty repository. The suite closes it.
type Factory func(t *testing.T) service.Repository

// RunRepositorySuite runs the conformance tests against repositories
// produced by newRepo.
func RunRepositorySuite(t *testing.T, newRepo Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, repo service.Repository)
	}{
		{"BulletinRoundTrip", testBulletinRoundTrip},
		{"BulletinBoardMatchIgnoresCase", testBulletinBoardCase},
		{"BulletinDeleteByUniqueID", testBulletinDelete},
		{"DuplicateUniqueIDsAreKept", testDuplicateUniqueIDs},
		{"MailScopedToRecipient", testMailScoped},
		{"MailDeleteScopedToRecipient", testMailDeleteScoped},
		{"MailLookups", testMailLookups},
		{"Channels", testChannels},
		{"IDsIncrease", testIDsIncrease},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepo(t)
			defer repo.Close()
			tt.fn(t, repo)
		})
	}
}

// Date returns the fixed timestamp used by suite rows.
func Date() time.Time {
	return time.Date(2024, 3, 9, 14, 5, 0, 0, time.Local)
}

// Bulletin builds a valid bulletin for tests.
func Bulletin(board, subject, uid string) *domain.Bulletin {
	return &domain.Bulletin{
		Board:           board,
		SenderShortName: "TST",
		Date:            Date(),
		Subject:         subject,
		Content:         "content of " + subject,
		UniqueID:        uid,
	}
}

// Mail builds a valid mail for tests.
func Mail(sender, recipient domain.NodeID, subject, uid string) *domain.Mail {
	return &domain.Mail{
		Sender:          sender,
		SenderShortName: "SND",
		Recipient:       recipient,
		Date:            Date(),
		Subject:         subject,
		Content:         "secret body of " + subject,
		UniqueID:        uid,
	}
}

func mustCreateBulletin(t *testing.T, repo service.Repository, b *domain.Bulletin) int64 {
	t.Helper()
	id, err := repo.CreateBulletin(context.Background(), b)
	if err != nil {
		t.Fatalf("CreateBulletin() error = %v", err)
	}
	return id
}

func mustCreateMail(t *testing.T, repo service.Repository, m *domain.Mail) int64 {
	t.Helper()
	id, err := repo.CreateMail(context.Background(), m)
	if err != nil {
		t.Fatalf("CreateMail() error = %v", err)
	}
	return id
}

func testBulletinRoundTrip(t *testing.T, repo service.Repository) {
	ctx := context.Background()
	want := Bulletin("General", "Hello mesh", "uid-1")
	id := mustCreateBulletin(t, repo, want)

	got, err := repo.GetBulletin(ctx, id)
	if err != nil {
		t.Fatalf("GetBulletin() error = %v", err)
	}
	if got.ID != id || got.Board != want.Board || got.Subject != want.Subject ||
		got.Content != want.Content || got.SenderShortName != want.SenderShortName ||
		got.UniqueID != want.UniqueID {
		t.Errorf("GetBulletin() = %+v, want %+v", got, want)
	}
	if domain.FormatDate(got.Date.Local()) != domain.FormatDate(want.Date) {
		t.Errorf("Date = %v, want %v", got.Date, want.Date)
	}

	if _, err := repo.GetBulletin(ctx, id+1000); !errors.Is(err, domain.ErrBulletinNotFound) {
		t.Errorf("GetBulletin(missing) error = %v, want ErrBulletinNotFound", err)
	}
}

func testBulletinBoardCase(t *testing.T, repo service.Repository) {
	ctx := context.Background()
	mustCreateBulletin(t, repo, Bulletin("General", "a", "u1"))
	mustCreateBulletin(t, repo, Bulletin("general", "b", "u2"))
	mustCreateBulletin(t, repo, Bulletin("News", "c", "u3"))

	list, err := repo.ListBulletins(ctx, "GENERAL")
	if err != nil {
		t.Fatalf("ListBulletins() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListBulletins() returned %d rows, want 2", len(list))
	}
	if list[0].Subject != "a" || list[1].Subject != "b" {
		t.Errorf("ListBulletins() order = %q, %q", list[0].Subject, list[1].Subject)
	}

	all, err := repo.AllBulletins(ctx)
	if err != nil || len(all) != 3 {
		t.Errorf("AllBulletins() = %d rows, %v", len(all), err)
	}
}

func testBulletinDelete(t *testing.T, repo service.Repository) {
	ctx := context.Background()
	mustCreateBulletin(t, repo, Bulletin("General", "a", "keep"))
	mustCreateBulletin(t, repo, Bulletin("General", "b", "drop"))

	n, err := repo.DeleteBulletinByUniqueID(ctx, "drop")
	if err != nil || n != 1 {
		t.Fatalf("DeleteBulletinByUniqueID() = %d, %v", n, err)
	}
	n, err = repo.DeleteBulletinByUniqueID(ctx, "drop")
	if err != nil || n != 0 {
		t.Fatalf("second DeleteBulletinByUniqueID() = %d, %v", n, err)
	}
	list, _ := repo.ListBulletins(ctx, "General")
	if len(list) != 1 || list[0].UniqueID != "keep" {
		t.Errorf("remaining = %+v", list)
	}
}

func testDuplicateUniqueIDs(t *testing.T, repo service.Repository) {
	ctx := context.Background()
	mustCreateBulletin(t, repo, Bulletin("General", "first", "same"))
	mustCreateBulletin(t, repo, Bulletin("General", "second", "same"))

	list, _ := repo.ListBulletins(ctx, "General")
	if len(list) != 2 {
		t.Fatalf("stored %d rows, want 2 (no uniqueness on unique_id)", len(list))
	}
	n, err := repo.DeleteBulletinByUniqueID(ctx, "same")
	if err != nil || n != 2 {
		t.Errorf("DeleteBulletinByUniqueID() = %d, %v; want both rows", n, err)
	}
}

func testMailScoped(t *testing.T, repo service.Repository) {
	ctx := context.Background()
	id := mustCreateMail(t, repo, Mail("!a", "!b", "hi", "m1"))
	mustCreateMail(t, repo, Mail("!a", "!c", "other", "m2"))

	got, err := repo.GetMail(ctx, id, "!b")
	if err != nil {
		t.Fatalf("GetMail() error = %v", err)
	}
	if got.Content != "secret body of hi" || got.Sender != "!a" || got.UniqueID != "m1" {
		t.Errorf("GetMail() = %+v", got)
	}
	if _, err := repo.GetMail(ctx, id, "!c"); !errors.Is(err, domain.ErrMailNotFound) {
		t.Errorf("GetMail(wrong recipient) error = %v, want ErrMailNotFound", err)
	}

	inbox, err := repo.ListMail(ctx, "!b")
	if err != nil || len(inbox) != 1 {
		t.Fatalf("ListMail() = %d, %v", len(inbox), err)
	}
	if inbox[0].ID != id {
		t.Errorf("ListMail()[0].ID = %d, want %d", inbox[0].ID, id)
	}
	empty, err := repo.ListMail(ctx, "!z")
	if err != nil || len(empty) != 0 {
		t.Errorf("ListMail(empty) = %d, %v", len(empty), err)
	}
}

func testMailDeleteScoped(t *testing.T, repo service.Repository) {
	ctx := context.Background()
	mustCreateMail(t, repo, Mail("!a", "!b", "hi", "m1"))

	n, err := repo.DeleteMailByUniqueID(ctx, "m1", "!c")
	if err != nil || n != 0 {
		t.Fatalf("DeleteMailByUniqueID(wrong recipient) = %d, %v", n, err)
	}
	n, err = repo.DeleteMailByUniqueID(ctx, "m1", "!b")
	if err != nil || n != 1 {
		t.Fatalf("DeleteMailByUniqueID() = %d, %v", n, err)
	}
	all, _ := repo.AllMail(ctx)
	if len(all) != 0 {
		t.Errorf("AllMail() = %d rows after delete", len(all))
	}
}

func testMailLookups(t *testing.T, repo service.Repository) {
	ctx := context.Background()
	id := mustCreateMail(t, repo, Mail("!a", "!b", "hi", "m1"))

	sender, err := repo.MailSender(ctx, id)
	if err != nil || sender != "!a" {
		t.Errorf("MailSender() = %q, %v", sender, err)
	}
	if _, err := repo.MailSender(ctx, id+1000); !errors.Is(err, domain.ErrMailNotFound) {
		t.Errorf("MailSender(missing) error = %v", err)
	}

	recipient, err := repo.MailRecipient(ctx, "m1")
	if err != nil || recipient != "!b" {
		t.Errorf("MailRecipient() = %q, %v", recipient, err)
	}
	if _, err := repo.MailRecipient(ctx, "nope"); !errors.Is(err, domain.ErrMailNotFound) {
		t.Errorf("MailRecipient(missing) error = %v", err)
	}
}

func testChannels(t *testing.T, repo service.Repository) {
	ctx := context.Background()
	id1, err := repo.CreateChannel(ctx, &domain.Channel{Name: "LongFast", URL: "https://meshtastic.org/e/#one"})
	if err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	if _, err := repo.CreateChannel(ctx, &domain.Channel{Name: "Local", URL: "https://meshtastic.org/e/#two"}); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}

	list, err := repo.ListChannels(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListChannels() = %d, %v", len(list), err)
	}
	if list[0].Name != "LongFast" || list[1].Name != "Local" {
		t.Errorf("ListChannels() order = %q, %q", list[0].Name, list[1].Name)
	}

	if err := repo.DeleteChannel(ctx, id1); err != nil {
		t.Fatalf("DeleteChannel() error = %v", err)
	}
	if err := repo.DeleteChannel(ctx, id1); !errors.Is(err, domain.ErrChannelNotFound) {
		t.Errorf("DeleteChannel(missing) error = %v, want ErrChannelNotFound", err)
	}
	list, _ = repo.ListChannels(ctx)
	if len(list) != 1 || list[0].Name != "Local" {
		t.Errorf("ListChannels() after delete = %+v", list)
	}
}

func testIDsIncrease(t *testing.T, repo service.Repository) {
	a := mustCreateBulletin(t, repo, Bulletin("General", "a", "u1"))
	b := mustCreateBulletin(t, repo, Bulletin("General", "b", "u2"))
	if a <= 0 || b <= a {
		t.Errorf("ids = %d, %d; want positive and increasing", a, b)
	}
}
