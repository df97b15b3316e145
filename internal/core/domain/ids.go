package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// DateLayout is the minute-resolution timestamp format stored with posts.
const DateLayout = "2006-01-02 15:04"

// NewUniqueID generates the cross-node identity for a new bulletin or mail.
// Format: lowercase ULID, 26 characters.
func NewUniqueID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInvalidArgument.WithCause(err)
	}
	return strings.ToLower(id.String()), nil
}

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a DateLayout timestamp in the local time zone.
// Unparseable values yield the zero time.
func ParseDate(s string) time.Time {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}
