package archive

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/storage/memory"
	"github.com/yndnr/meshbbs-go/internal/storage/storagetest"
)

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := memory.New()
	_, _ = src.CreateBulletin(ctx, storagetest.Bulletin("General", "one", "b1"))
	_, _ = src.CreateBulletin(ctx, storagetest.Bulletin("Urgent", "two", "b2"))
	_, _ = src.CreateMail(ctx, storagetest.Mail("!a", "!b", "hi", "m1"))
	_, _ = src.CreateChannel(ctx, &domain.Channel{Name: "LongFast", URL: "https://example.org/#k"})

	var buf bytes.Buffer
	counts, err := Export(ctx, src, &buf, "!self")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if counts != (Counts{Bulletins: 2, Mail: 1, Channels: 1}) {
		t.Errorf("Export() counts = %+v", counts)
	}

	dst := memory.New()
	counts, err = Import(ctx, dst, &buf)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if counts != (Counts{Bulletins: 2, Mail: 1, Channels: 1}) {
		t.Errorf("Import() counts = %+v", counts)
	}

	urgent, _ := dst.ListBulletins(ctx, "urgent")
	if len(urgent) != 1 || urgent[0].UniqueID != "b2" {
		t.Errorf("imported urgent board = %+v", urgent)
	}
	recipient, err := dst.MailRecipient(ctx, "m1")
	if err != nil || recipient != "!b" {
		t.Errorf("imported mail recipient = %q, %v", recipient, err)
	}
}

func TestImport_RejectsForeignData(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	zw, _ := zstd.NewWriter(&buf)
	_, _ = zw.Write([]byte(`{"kind":"bulletin","bulletin":{"board":"General"}}` + "\n"))
	_ = zw.Close()

	if _, err := Import(ctx, memory.New(), &buf); !errors.Is(err, ErrBadArchive) {
		t.Errorf("Import() without header error = %v, want ErrBadArchive", err)
	}

	buf.Reset()
	zw, _ = zstd.NewWriter(&buf)
	_ = zw.Close()
	if _, err := Import(ctx, memory.New(), &buf); !errors.Is(err, ErrBadArchive) {
		t.Errorf("Import(empty) error = %v, want ErrBadArchive", err)
	}
}
