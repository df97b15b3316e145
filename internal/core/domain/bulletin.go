package domain

import (
	"strings"
	"time"
)

// Boards every node offers by default, in menu order.
var DefaultBoards = []string{"General", "Info", "News", "Urgent"}

// DefaultUrgentBoard is the board restricted to allow-listed nodes and
// announced to the whole mesh when posted to.
const DefaultUrgentBoard = "Urgent"

// Bulletin is a post on a named board.
type Bulletin struct {
	// ID is the store-local row id. It is never shared between nodes.
	ID int64 `json:"id"`

	// Board is matched case-insensitively.
	Board string `json:"board"`

	SenderShortName string    `json:"sender_short_name"`
	Date            time.Time `json:"date"`
	Subject         string    `json:"subject"`
	Content         string    `json:"content"`

	// UniqueID is the cross-node identity of the bulletin.
	UniqueID string `json:"unique_id"`
}

// Validate checks the fields a store needs before insertion.
func (b *Bulletin) Validate() error {
	if strings.TrimSpace(b.Board) == "" {
		return ErrInvalidArgument.WithDetails("board is required")
	}
	if strings.TrimSpace(b.Subject) == "" {
		return ErrInvalidArgument.WithDetails("subject is required")
	}
	if b.UniqueID == "" {
		return ErrInvalidArgument.WithDetails("unique_id is required")
	}
	return nil
}

// Clone returns a copy of the bulletin.
func (b *Bulletin) Clone() *Bulletin {
	c := *b
	return &c
}

// SameBoard reports whether two board names refer to the same board.
func SameBoard(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
