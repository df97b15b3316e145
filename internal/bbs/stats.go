package bbs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/session"
)

// Stats dialogue steps.
const (
	statsStepMenu   = 1
	statsStepWindow = 2
)

// statsWindow is a node-count period. A zero Span means all time.
type statsWindow struct {
	Label string
	Span  time.Duration
}

var statsWindows = []statsWindow{
	{"All time", 0},
	{"Last 24 hours", 24 * time.Hour},
	{"Last 8 hours", 8 * time.Hour},
	{"Last hour", time.Hour},
}

const windowPrompt = "Which period?\n[0] All time [1] Last 24 hours [2] Last 8 hours [3] Last hour"

type statsDialogue struct{ r *Router }

func (h statsDialogue) Enter(_ context.Context, t *Turn) {
	t.Reply("📊Stats Menu📊\nWhat stats would you like to view?\n[N]odes  [H]ardware  [R]oles  E[X]IT")
	t.Set(session.At(session.TagStats, statsStepMenu))
}

func (h statsDialogue) Step(ctx context.Context, t *Turn, st session.State, input string) {
	switch st.Step {
	case statsStepMenu:
		switch choice(input) {
		case "N":
			t.Reply(windowPrompt)
			t.Set(session.At(session.TagStats, statsStepWindow))
		case "H":
			t.Reply(tally("Hardware Models:", h.r.dir.Nodes(), func(n domain.NodeInfo) string { return n.HwModel }))
			h.Enter(ctx, t)
		case "R":
			t.Reply(tally("Roles:", h.r.dir.Nodes(), func(n domain.NodeInfo) string { return n.Role }))
			h.Enter(ctx, t)
		case ExitMarker:
			h.r.enter(ctx, t, session.TagMainMenu)
		default:
			h.Enter(ctx, t)
		}
	case statsStepWindow:
		i, ok := index(input)
		if !ok || i >= len(statsWindows) {
			t.Reply(windowPrompt)
			return
		}
		w := statsWindows[i]
		t.Replyf("Total nodes seen:\n- %s: %d", w.Label, countHeard(h.r.dir.Nodes(), w.Span, t.Now))
		h.Enter(ctx, t)
	default:
		h.r.logger.Warn("unknown stats step, resetting", "node", t.From, "step", st.Step)
		h.r.enter(ctx, t, session.TagMainMenu)
	}
}

// countHeard counts nodes heard within span of now. A zero span counts
// every known node.
func countHeard(nodes []domain.NodeInfo, span time.Duration, now time.Time) int {
	if span == 0 {
		return len(nodes)
	}
	since := now.Add(-span)
	n := 0
	for _, node := range nodes {
		if node.HeardSince(since) {
			n++
		}
	}
	return n
}

// tally renders "key: count" lines sorted by key. Empty keys count as
// "Unknown".
func tally(title string, nodes []domain.NodeInfo, key func(domain.NodeInfo) string) string {
	counts := make(map[string]int)
	for _, n := range nodes {
		k := key(n)
		if k == "" {
			k = "Unknown"
		}
		counts[k]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(title)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %d", k, counts[k])
	}
	return b.String()
}
