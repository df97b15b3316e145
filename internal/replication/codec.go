package replication

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
)

// Tag is the first field of a sync line.
type Tag string

// Sync line tags.
const (
	TagBulletin       Tag = "BULLETIN"
	TagMail           Tag = "MAIL"
	TagDeleteBulletin Tag = "DELETE_BULLETIN"
	TagDeleteMail     Tag = "DELETE_MAIL"
	TagChannel        Tag = "CHANNEL"
)

// Delimiter separates fields on the wire. It cannot be escaped.
const Delimiter = "|"

// fieldCounts includes the tag itself.
var fieldCounts = map[Tag]int{
	TagBulletin:       6,
	TagMail:           7,
	TagDeleteBulletin: 2,
	TagDeleteMail:     2,
	TagChannel:        3,
}

// ErrDelimiterInField is returned when a value contains the delimiter and
// therefore cannot be encoded.
var ErrDelimiterInField = errors.New("replication: field contains delimiter")

// Line is a decoded sync line. Exactly the fields for Tag are set.
type Line struct {
	Tag      Tag
	Bulletin *domain.Bulletin
	Mail     *domain.Mail
	Channel  *domain.Channel
	UniqueID string
}

// TagOf returns the tag a text starts with, if it is a sync tag.
func TagOf(text string) (Tag, bool) {
	i := strings.Index(text, Delimiter)
	if i <= 0 {
		return "", false
	}
	tag := Tag(text[:i])
	_, ok := fieldCounts[tag]
	return tag, ok
}

// hasAllFields reports whether a tagged text carries at least as many
// fields as its tag needs. The last field may still be incomplete.
func hasAllFields(text string) bool {
	tag, ok := TagOf(text)
	if !ok {
		return false
	}
	return strings.Count(text, Delimiter)+1 >= fieldCounts[tag]
}

func join(tag Tag, fields ...string) (string, error) {
	for _, f := range fields {
		if strings.Contains(f, Delimiter) {
			return "", fmt.Errorf("%w: %s", ErrDelimiterInField, tag)
		}
	}
	return string(tag) + Delimiter + strings.Join(fields, Delimiter), nil
}

// Encode renders a line.
func Encode(l Line) (string, error) {
	switch l.Tag {
	case TagBulletin:
		b := l.Bulletin
		if b == nil {
			return "", fmt.Errorf("replication: %s without bulletin", l.Tag)
		}
		return join(l.Tag, b.Board, b.SenderShortName, b.Subject, b.Content, b.UniqueID)
	case TagMail:
		m := l.Mail
		if m == nil {
			return "", fmt.Errorf("replication: %s without mail", l.Tag)
		}
		return join(l.Tag, string(m.Sender), m.SenderShortName, string(m.Recipient), m.Subject, m.Content, m.UniqueID)
	case TagDeleteBulletin, TagDeleteMail:
		if l.UniqueID == "" {
			return "", fmt.Errorf("replication: %s without unique_id", l.Tag)
		}
		return join(l.Tag, l.UniqueID)
	case TagChannel:
		c := l.Channel
		if c == nil {
			return "", fmt.Errorf("replication: %s without channel", l.Tag)
		}
		return join(l.Tag, c.Name, c.URL)
	default:
		return "", fmt.Errorf("replication: unknown tag %q", l.Tag)
	}
}

// LineFromEvent converts a service event into a line.
func LineFromEvent(ev service.Event) (Line, error) {
	switch ev.Kind {
	case service.EventBulletinCreated:
		return Line{Tag: TagBulletin, Bulletin: ev.Bulletin}, nil
	case service.EventMailCreated:
		return Line{Tag: TagMail, Mail: ev.Mail}, nil
	case service.EventBulletinDeleted:
		return Line{Tag: TagDeleteBulletin, UniqueID: ev.UniqueID}, nil
	case service.EventMailDeleted:
		return Line{Tag: TagDeleteMail, UniqueID: ev.UniqueID}, nil
	case service.EventChannelCreated:
		return Line{Tag: TagChannel, Channel: ev.Channel}, nil
	default:
		return Line{}, fmt.Errorf("replication: no line for event %s", ev.Kind)
	}
}

// Decode parses a complete sync line. Unknown tags and wrong field counts
// are rejected with domain.ErrMalformedSync.
func Decode(text string) (Line, error) {
	tag, ok := TagOf(text)
	if !ok {
		return Line{}, domain.ErrMalformedSync.WithDetails("unknown tag")
	}
	parts := strings.Split(text, Delimiter)
	if want := fieldCounts[tag]; len(parts) != want {
		return Line{}, domain.ErrMalformedSync.WithDetails(
			fmt.Sprintf("%s: %d fields, want %d", tag, len(parts), want))
	}
	f := parts[1:]

	switch tag {
	case TagBulletin:
		return Line{Tag: tag, Bulletin: &domain.Bulletin{
			Board:           f[0],
			SenderShortName: f[1],
			Subject:         f[2],
			Content:         f[3],
			UniqueID:        f[4],
		}}, nil
	case TagMail:
		return Line{Tag: tag, Mail: &domain.Mail{
			Sender:          domain.NodeID(f[0]),
			SenderShortName: f[1],
			Recipient:       domain.NodeID(f[2]),
			Subject:         f[3],
			Content:         f[4],
			UniqueID:        f[5],
		}}, nil
	case TagDeleteBulletin, TagDeleteMail:
		if f[0] == "" {
			return Line{}, domain.ErrMalformedSync.WithDetails(string(tag) + ": empty unique_id")
		}
		return Line{Tag: tag, UniqueID: f[0]}, nil
	default: // TagChannel
		return Line{Tag: tag, Channel: &domain.Channel{Name: f[0], URL: f[1]}}, nil
	}
}
