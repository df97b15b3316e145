package bbs

import (
	"fmt"
	"time"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/session"
)

// Turn collects the effects of handling one inbound message. Notices to
// other nodes are sent by the services themselves.
type Turn struct {
	// From is the sender and Sender what the directory knows about it.
	From   domain.NodeID
	Sender domain.NodeInfo
	Now    time.Time

	replies []string

	next    *session.State
	reset   bool
	changed bool
}

func newTurn(from domain.NodeID, sender domain.NodeInfo, now time.Time) *Turn {
	return &Turn{From: from, Sender: sender, Now: now}
}

// Reply queues text for the sender.
func (t *Turn) Reply(text string) {
	t.replies = append(t.replies, text)
}

// Replyf queues formatted text for the sender.
func (t *Turn) Replyf(format string, args ...any) {
	t.Reply(fmt.Sprintf(format, args...))
}

// Set replaces the sender's session with st.
func (t *Turn) Set(st session.State) {
	c := st.Clone()
	t.next = &c
	t.reset = false
	t.changed = true
}

// Reset ends the sender's dialogue.
func (t *Turn) Reset() {
	t.next = nil
	t.reset = true
	t.changed = true
}

// Replies returns the text queued for the sender.
func (t *Turn) Replies() []string {
	return t.replies
}

// Next returns the session the turn leaves behind. ok is false when the
// dialogue was reset; unchanged reports that the handler kept the session
// as it was.
func (t *Turn) Next() (st session.State, ok, unchanged bool) {
	if !t.changed {
		return session.State{}, false, true
	}
	if t.reset || t.next == nil {
		return session.State{}, false, false
	}
	return *t.next, true, false
}

// senderShortName is the name stamped on mail and bulletins.
func (t *Turn) senderShortName() string {
	if t.Sender.ShortName != "" {
		return t.Sender.ShortName
	}
	return string(t.From)
}
