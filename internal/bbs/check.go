package bbs

import (
	"context"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/session"
)

// pick resolves a 1-based listing number. It replies and returns false on
// bad input.
func pick(t *Turn, input string, n int, what string) (int, bool) {
	i, ok := index(input)
	if !ok {
		t.Replyf("Invalid input. Please enter a valid %s number.", what)
		return 0, false
	}
	if i < 1 || i > n {
		t.Replyf("Invalid %s number. Please try again.", what)
		return 0, false
	}
	return i - 1, true
}

// leave ends a follow-up selection on the exit marker.
func leave(t *Turn, input string) bool {
	if choice(input) != ExitMarker {
		return false
	}
	t.Reply(exitReply)
	t.Reset()
	return true
}

// checkMail follows the CM listing.
type checkMail struct{ r *Router }

func (h checkMail) Enter(ctx context.Context, t *Turn) {
	h.r.quickCheckMail(ctx, t)
}

func (h checkMail) Step(ctx context.Context, t *Turn, st session.State, input string) {
	if leave(t, input) {
		return
	}
	i, ok := pick(t, input, len(st.Listing), "message")
	if !ok {
		return
	}
	h.r.showMail(ctx, t, st.Listing[i], true)
}

// checkBulletin follows the CB listing.
type checkBulletin struct{ r *Router }

func (h checkBulletin) Enter(ctx context.Context, t *Turn) {
	h.r.enter(ctx, t, session.TagBulletin)
}

func (h checkBulletin) Step(ctx context.Context, t *Turn, st session.State, input string) {
	if leave(t, input) {
		return
	}
	i, ok := pick(t, input, len(st.Listing), "bulletin")
	if !ok {
		return
	}
	b, err := h.r.bulletins.Get(ctx, st.Listing[i])
	if err != nil {
		h.r.logger.Info("listed bulletin gone", "node", t.From, "bulletin_id", st.Listing[i], "error", err)
		t.Reply("Bulletin not found.")
		t.Reset()
		return
	}
	t.Replyf("Date: %s\nFrom: %s\nSubject: %s\n\n%s",
		domain.FormatDate(b.Date), b.SenderShortName, b.Subject, b.Content)
	t.Reset()
}

// checkChannel follows the CHL listing.
type checkChannel struct{ r *Router }

func (h checkChannel) Enter(ctx context.Context, t *Turn) {
	h.r.quickListChannels(ctx, t)
}

func (h checkChannel) Step(_ context.Context, t *Turn, st session.State, input string) {
	if leave(t, input) {
		return
	}
	i, ok := pick(t, input, len(st.Channels), "channel")
	if !ok {
		return
	}
	c := st.Channels[i]
	t.Replyf("Channel Name: %s\nChannel URL: %s", c.Name, c.URL)
	t.Reset()
}
