package bbs

import (
	"context"
	"fmt"
	"strings"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
	"github.com/yndnr/meshbbs-go/internal/session"
)

// Channel directory steps.
const (
	channelStepMenu   = 1
	channelStepSelect = 2
	channelStepName   = 3
	channelStepURL    = 4
)

const noChannels = "No channels available in the directory."

type channelDialogue struct{ r *Router }

func (h channelDialogue) Enter(_ context.Context, t *Turn) {
	t.Reply("📚CHANNEL DIRECTORY📚\nWhat would you like to do?\n[V]iew  [P]ost  E[X]IT")
	t.Set(session.At(session.TagChannel, channelStepMenu))
}

func (h channelDialogue) Step(ctx context.Context, t *Turn, st session.State, input string) {
	switch st.Step {
	case channelStepMenu:
		h.menu(ctx, t, input)
	case channelStepSelect:
		i, ok := index(input)
		if !ok || i >= len(st.Channels) {
			t.Reply("Invalid channel number. Please try again.")
			h.Enter(ctx, t)
			return
		}
		c := st.Channels[i]
		t.Replyf("Channel Name: %s\nChannel URL:\n%s", c.Name, c.URL)
		h.Enter(ctx, t)
	case channelStepName:
		t.Reply("Send a message with your channel URL or PSK:")
		next := session.At(session.TagChannel, channelStepURL)
		next.ChannelName = input
		t.Set(next)
	case channelStepURL:
		if _, err := h.r.channels.Add(ctx, st.ChannelName, input, service.OriginLocal); err != nil {
			h.r.logger.Warn("channel not added", "node", t.From, "error", err)
			t.Reply("The channel could not be added. Please try again.")
			h.Enter(ctx, t)
			return
		}
		t.Replyf("Your channel '%s' has been added to the directory.", st.ChannelName)
		h.Enter(ctx, t)
	default:
		h.r.logger.Warn("unknown channel step, resetting", "node", t.From, "step", st.Step)
		h.r.enter(ctx, t, session.TagMainMenu)
	}
}

func (h channelDialogue) menu(ctx context.Context, t *Turn, input string) {
	switch choice(input) {
	case "V":
		list, ok := h.r.listChannels(ctx, t)
		if !ok {
			h.Enter(ctx, t)
			return
		}
		var b strings.Builder
		b.WriteString("Select a channel number to view:")
		for i, c := range list {
			fmt.Fprintf(&b, "\n[%d] %s", i, c.Name)
		}
		t.Reply(b.String())
		next := session.At(session.TagChannel, channelStepSelect)
		next.Channels = list
		t.Set(next)
	case "P":
		t.Reply("Name your channel for the directory:")
		t.Set(session.At(session.TagChannel, channelStepName))
	case ExitMarker:
		h.r.enter(ctx, t, session.TagMainMenu)
	default:
		h.Enter(ctx, t)
	}
}

// listChannels snapshots the directory for a numbered listing. It replies
// and returns false when there is nothing to list.
func (r *Router) listChannels(ctx context.Context, t *Turn) ([]domain.Channel, bool) {
	rows, err := r.channels.List(ctx)
	if err != nil {
		r.logger.Error("cannot list channels", "error", err)
	}
	if len(rows) == 0 {
		t.Reply(noChannels)
		return nil, false
	}
	list := make([]domain.Channel, len(rows))
	for i, c := range rows {
		list[i] = *c
	}
	return list, true
}
