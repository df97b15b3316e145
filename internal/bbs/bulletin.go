package bbs

import (
	"context"
	"fmt"
	"strings"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
	"github.com/yndnr/meshbbs-go/internal/session"
)

// Bulletin dialogue steps. Step 5 is unused.
const (
	bulletinStepBoard   = 1
	bulletinStepAction  = 2
	bulletinStepSelect  = 3
	bulletinStepSubject = 4
	bulletinStepBody    = 6
)

const noPermission = "You don't have permission to post to this board."

type bulletinDialogue struct{ r *Router }

func (h bulletinDialogue) Enter(_ context.Context, t *Turn) {
	var b strings.Builder
	b.WriteString("📰Bulletin Menu📰\nWhich board would you like to enter?\n")
	for i, board := range h.r.cfg.Boards {
		if i > 0 {
			b.WriteString("  ")
		}
		rs := []rune(board)
		if len(rs) == 0 {
			continue
		}
		b.WriteString("[" + string(rs[0]) + "]" + string(rs[1:]))
	}
	b.WriteString("  E[X]IT")
	t.Reply(b.String())
	t.Set(session.At(session.TagBulletin, bulletinStepBoard))
}

// actions shows the board's item count and moves to the action step.
func (h bulletinDialogue) actions(ctx context.Context, t *Turn, board string) {
	list, err := h.r.bulletins.List(ctx, board)
	if err != nil {
		h.r.logger.Error("cannot list bulletins", "board", board, "error", err)
	}
	t.Replyf("%s has %d messages.\n[R]ead  [P]ost  E[X]IT", board, len(list))
	next := session.At(session.TagBulletin, bulletinStepAction)
	next.Board = board
	t.Set(next)
}

func (h bulletinDialogue) Step(ctx context.Context, t *Turn, st session.State, input string) {
	switch st.Step {
	case bulletinStepBoard:
		if choice(input) == ExitMarker {
			h.r.enter(ctx, t, session.TagBBSMenu)
			return
		}
		board, ok := h.r.board(input)
		if !ok {
			h.Enter(ctx, t)
			return
		}
		h.actions(ctx, t, board)
	case bulletinStepAction:
		h.action(ctx, t, st, input)
	case bulletinStepSelect:
		n, ok := index(input)
		if !ok {
			t.Reply("Invalid input. Please enter a valid bulletin number.")
			return
		}
		b, err := h.r.bulletins.Get(ctx, int64(n))
		if err != nil || !domain.SameBoard(b.Board, st.Board) {
			if err != nil {
				h.r.logger.Info("bulletin lookup failed", "node", t.From, "bulletin_id", n, "error", err)
			}
			t.Reply("Bulletin not found.")
			h.actions(ctx, t, st.Board)
			return
		}
		t.Replyf("From: %s\nDate: %s\nSubject: %s\n- - - - - - -\n%s",
			b.SenderShortName, domain.FormatDate(b.Date), b.Subject, b.Content)
		h.actions(ctx, t, st.Board)
	case bulletinStepSubject:
		if strings.TrimSpace(input) == "" {
			t.Reply(emptySubject)
			return
		}
		t.Reply("Send the contents of your bulletin. Send a message with END when finished.")
		next := st.WithStep(bulletinStepBody)
		next.Subject = input
		t.Set(next)
	case bulletinStepBody:
		if !isEnd(input) {
			st.Content += input + "\n"
			t.Set(st)
			return
		}
		h.post(ctx, t, st)
	default:
		h.r.logger.Warn("unknown bulletin step, resetting", "node", t.From, "step", st.Step)
		h.r.enter(ctx, t, session.TagMainMenu)
	}
}

func (h bulletinDialogue) action(ctx context.Context, t *Turn, st session.State, input string) {
	switch choice(input) {
	case "R":
		list, err := h.r.bulletins.List(ctx, st.Board)
		if err != nil {
			h.r.logger.Error("cannot list bulletins", "board", st.Board, "error", err)
		}
		if len(list) == 0 {
			t.Replyf("No bulletins in %s.", st.Board)
			h.actions(ctx, t, st.Board)
			return
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Select a bulletin number to view from %s:", st.Board)
		for _, item := range list {
			fmt.Fprintf(&b, "\n[%d] %s", item.ID, item.Subject)
		}
		t.Reply(b.String())
		next := session.At(session.TagBulletin, bulletinStepSelect)
		next.Board = st.Board
		t.Set(next)
	case "P":
		if !h.r.canPost(t.From, st.Board) {
			t.Reply(noPermission)
			h.actions(ctx, t, st.Board)
			return
		}
		t.Reply("What is the subject of your bulletin? Keep it short.")
		next := session.At(session.TagBulletin, bulletinStepSubject)
		next.Board = st.Board
		t.Set(next)
	case ExitMarker:
		h.Enter(ctx, t)
	default:
		h.actions(ctx, t, st.Board)
	}
}

func (h bulletinDialogue) post(ctx context.Context, t *Turn, st session.State) {
	_, err := h.r.bulletins.Post(ctx, &service.PostBulletinRequest{
		Board:           st.Board,
		SenderShortName: t.senderShortName(),
		Subject:         st.Subject,
		Content:         st.Content,
		Origin:          service.OriginLocal,
	})
	if err != nil {
		h.r.logger.Error("cannot post bulletin", "node", t.From, "board", st.Board, "error", err)
		t.Reply("Error posting bulletin. Please try again later.")
		h.actions(ctx, t, st.Board)
		return
	}
	t.Replyf("Your bulletin '%s' has been posted to %s.\n(╯°□°)╯📄📌[%s]", st.Subject, st.Board, st.Board)
	h.actions(ctx, t, st.Board)
}
