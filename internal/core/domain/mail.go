package domain

import (
	"strings"
	"time"
)

// Mail is a private message addressed to a single node.
type Mail struct {
	// ID is the store-local row id.
	ID int64 `json:"id"`

	Sender          NodeID    `json:"sender"`
	SenderShortName string    `json:"sender_short_name"`
	Recipient       NodeID    `json:"recipient"`
	Date            time.Time `json:"date"`
	Subject         string    `json:"subject"`
	Content         string    `json:"content"`
	UniqueID        string    `json:"unique_id"`
}

// Validate checks the fields a store needs before insertion.
func (m *Mail) Validate() error {
	if m.Sender == "" {
		return ErrInvalidArgument.WithDetails("sender is required")
	}
	if m.Recipient == "" {
		return ErrInvalidArgument.WithDetails("recipient is required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return ErrInvalidArgument.WithDetails("subject is required")
	}
	if m.UniqueID == "" {
		return ErrInvalidArgument.WithDetails("unique_id is required")
	}
	return nil
}

// Clone returns a copy of the mail.
func (m *Mail) Clone() *Mail {
	c := *m
	return &c
}

// OwnedBy reports whether the mail is addressed to id.
func (m *Mail) OwnedBy(id NodeID) bool {
	return m.Recipient == id
}
