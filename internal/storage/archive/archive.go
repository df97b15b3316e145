// Package archive exports and imports a whole BBS database as zstd-compressed
// JSON lines. The first line is a header; every following line holds one row.
// Row ids are not preserved on import, unique_ids are.
package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
)

// Version is the archive format version.
const Version = 1

// ErrBadArchive is returned for archives this version cannot read.
var ErrBadArchive = errors.New("archive: unrecognized archive")

// Header is the first line of an archive.
type Header struct {
	Version    int       `json:"version"`
	Node       string    `json:"node,omitempty"`
	ExportedAt time.Time `json:"exported_at"`
}

// Record is one archived row.
type Record struct {
	Kind     string           `json:"kind"`
	Header   *Header          `json:"header,omitempty"`
	Bulletin *domain.Bulletin `json:"bulletin,omitempty"`
	Mail     *domain.Mail     `json:"mail,omitempty"`
	Channel  *domain.Channel  `json:"channel,omitempty"`
}

// Record kinds.
const (
	KindHeader   = "header"
	KindBulletin = "bulletin"
	KindMail     = "mail"
	KindChannel  = "channel"
)

// Counts reports how many rows of each kind were processed.
type Counts struct {
	Bulletins int `json:"bulletins" yaml:"bulletins"`
	Mail      int `json:"mail" yaml:"mail"`
	Channels  int `json:"channels" yaml:"channels"`
}

// Export writes every row in repo to w.
func Export(ctx context.Context, repo service.Repository, w io.Writer, node string) (Counts, error) {
	var counts Counts

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return counts, fmt.Errorf("archive: zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)

	write := func(rec Record) error {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("archive: encode %s: %w", rec.Kind, err)
		}
		return nil
	}

	if err := write(Record{Kind: KindHeader, Header: &Header{Version: Version, Node: node, ExportedAt: time.Now().UTC()}}); err != nil {
		_ = zw.Close()
		return counts, err
	}

	bulletins, err := repo.AllBulletins(ctx)
	if err != nil {
		_ = zw.Close()
		return counts, err
	}
	for _, b := range bulletins {
		if err := write(Record{Kind: KindBulletin, Bulletin: b}); err != nil {
			_ = zw.Close()
			return counts, err
		}
		counts.Bulletins++
	}

	mail, err := repo.AllMail(ctx)
	if err != nil {
		_ = zw.Close()
		return counts, err
	}
	for _, m := range mail {
		if err := write(Record{Kind: KindMail, Mail: m}); err != nil {
			_ = zw.Close()
			return counts, err
		}
		counts.Mail++
	}

	channels, err := repo.ListChannels(ctx)
	if err != nil {
		_ = zw.Close()
		return counts, err
	}
	for _, c := range channels {
		if err := write(Record{Kind: KindChannel, Channel: c}); err != nil {
			_ = zw.Close()
			return counts, err
		}
		counts.Channels++
	}

	if err := zw.Close(); err != nil {
		return counts, fmt.Errorf("archive: close: %w", err)
	}
	return counts, nil
}

// Import reads an archive from r and inserts every row into repo.
// Imported rows are not replicated.
func Import(ctx context.Context, repo service.Repository, r io.Reader) (Counts, error) {
	var counts Counts

	zr, err := zstd.NewReader(r)
	if err != nil {
		return counts, fmt.Errorf("archive: zstd reader: %w", err)
	}
	defer zr.Close()

	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	first := true
	for sc.Scan() {
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return counts, fmt.Errorf("archive: decode line: %w", err)
		}

		if first {
			if rec.Kind != KindHeader || rec.Header == nil || rec.Header.Version != Version {
				return counts, ErrBadArchive
			}
			first = false
			continue
		}

		switch {
		case rec.Kind == KindBulletin && rec.Bulletin != nil:
			if _, err := repo.CreateBulletin(ctx, rec.Bulletin); err != nil {
				return counts, fmt.Errorf("archive: bulletin %s: %w", rec.Bulletin.UniqueID, err)
			}
			counts.Bulletins++
		case rec.Kind == KindMail && rec.Mail != nil:
			if _, err := repo.CreateMail(ctx, rec.Mail); err != nil {
				return counts, fmt.Errorf("archive: mail %s: %w", rec.Mail.UniqueID, err)
			}
			counts.Mail++
		case rec.Kind == KindChannel && rec.Channel != nil:
			if _, err := repo.CreateChannel(ctx, rec.Channel); err != nil {
				return counts, fmt.Errorf("archive: channel %s: %w", rec.Channel.Name, err)
			}
			counts.Channels++
		default:
			return counts, fmt.Errorf("%w: unexpected record kind %q", ErrBadArchive, rec.Kind)
		}
	}
	if err := sc.Err(); err != nil {
		return counts, fmt.Errorf("archive: read: %w", err)
	}
	if first {
		return counts, ErrBadArchive
	}
	return counts, nil
}
