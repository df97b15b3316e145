package transport

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"empty", "", 200, nil},
		{"short", "hello", 200, []string{"hello"}},
		{"exact", "abcd", 4, []string{"abcd"}},
		{"one over", "abcde", 4, []string{"abcd", "e"}},
		{"two full", "abcdefgh", 4, []string{"abcd", "efgh"}},
		{"runes not bytes", "📬📬📬", 2, []string{"📬📬", "📬"}},
		{"no limit", "abc", 0, []string{"abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("Split() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplit_ConcatenationAndSize(t *testing.T) {
	text := strings.Repeat("0123456789", 45) + "✉️"
	chunks := Split(text, DefaultPayloadLimit)

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if strings.Join(chunks, "") != text {
		t.Error("chunks do not concatenate to the original text")
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > DefaultPayloadLimit {
			t.Errorf("chunk %d has %d runes", i, n)
		}
	}
}

type sentText struct {
	text string
	to   domain.NodeID
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sentText
	failOn map[int]bool
	calls  int
}

func (s *fakeSender) SendText(_ context.Context, text string, to domain.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failOn[s.calls] {
		return errors.New("radio busy")
	}
	s.sent = append(s.sent, sentText{text: text, to: to})
	return nil
}

type countingPacer struct {
	waits int
	err   error
}

func (p *countingPacer) Wait(context.Context) error {
	p.waits++
	return p.err
}

func TestChunker_Send(t *testing.T) {
	sender := &fakeSender{}
	pacer := &countingPacer{}
	c := NewChunker(sender, WithPacer(pacer), WithPayloadLimit(4))

	n := c.Send(context.Background(), "abcdefghij", "!b")
	if n != 3 {
		t.Errorf("Send() = %d, want 3", n)
	}
	if pacer.waits != 3 {
		t.Errorf("pacer waits = %d, want one per chunk", pacer.waits)
	}
	want := []string{"abcd", "efgh", "ij"}
	for i, s := range sender.sent {
		if s.text != want[i] || s.to != "!b" {
			t.Errorf("sent[%d] = %+v", i, s)
		}
	}
}

// orderPacer records how many chunks had been sent at each wait.
type orderPacer struct {
	sender *fakeSender
	sentAt []int
}

func (p *orderPacer) Wait(context.Context) error {
	p.sender.mu.Lock()
	defer p.sender.mu.Unlock()
	p.sentAt = append(p.sentAt, len(p.sender.sent))
	return nil
}

func TestChunker_SendsDefaultSizedChunks(t *testing.T) {
	if DefaultChunkDelay != 2*time.Second {
		t.Errorf("DefaultChunkDelay = %v, want 2s", DefaultChunkDelay)
	}
	sender := &fakeSender{}
	pacer := &orderPacer{sender: sender}
	c := NewChunker(sender, WithPacer(pacer))

	text := strings.Repeat("x", 450)
	if n := c.Send(context.Background(), text, "!b"); n != 3 {
		t.Fatalf("Send() = %d, want 3", n)
	}

	wantSizes := []int{200, 200, 50}
	if len(sender.sent) != len(wantSizes) {
		t.Fatalf("sent %d chunks, want %d", len(sender.sent), len(wantSizes))
	}
	var joined strings.Builder
	for i, s := range sender.sent {
		if n := utf8.RuneCountInString(s.text); n != wantSizes[i] {
			t.Errorf("chunk %d has %d runes, want %d", i, n, wantSizes[i])
		}
		joined.WriteString(s.text)
	}
	if joined.String() != text {
		t.Error("chunks do not concatenate to the original text")
	}

	// one wait before every chunk, including the first
	if want := []int{0, 1, 2}; !slices.Equal(pacer.sentAt, want) {
		t.Errorf("waits happened after %v chunks, want %v", pacer.sentAt, want)
	}
}

func TestChunker_ContinuesAfterFailure(t *testing.T) {
	sender := &fakeSender{failOn: map[int]bool{2: true}}
	c := NewChunker(sender, WithPacer(&countingPacer{}), WithPayloadLimit(2))

	n := c.Send(context.Background(), "aabbcc", "!b")
	if n != 3 {
		t.Errorf("Send() = %d, want 3", n)
	}
	if len(sender.sent) != 2 || sender.sent[0].text != "aa" || sender.sent[1].text != "cc" {
		t.Errorf("sent = %+v, want aa and cc", sender.sent)
	}
}

func TestChunker_StopsWhenPacerFails(t *testing.T) {
	sender := &fakeSender{}
	c := NewChunker(sender, WithPacer(&countingPacer{err: context.Canceled}), WithPayloadLimit(2))

	if n := c.Send(context.Background(), "aabb", "!b"); n != 0 {
		t.Errorf("Send() = %d, want 0", n)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent %d chunks after pacer failure", len(sender.sent))
	}
}

func TestRatePacer_SpacesSends(t *testing.T) {
	p := NewRatePacer(30 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 55*time.Millisecond {
		t.Errorf("three waits took %v, want at least two delays", elapsed)
	}
}

func TestRatePacer_Disabled(t *testing.T) {
	p := NewRatePacer(0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 100; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatal(err)
		}
	}
}

func TestNodeTable(t *testing.T) {
	table := NewNodeTable("!self")
	table.Upsert(domain.NodeInfo{ID: "!self", ShortName: "ME"})
	table.Upsert(domain.NodeInfo{ID: "!b2", ShortName: "bob"})
	table.Upsert(domain.NodeInfo{ID: "!a1", ShortName: "BOB"})
	table.Upsert(domain.NodeInfo{ID: "!c3", ShortName: "carl"})

	matches := table.NodesByShortName("Bob")
	if len(matches) != 2 || matches[0].ID != "!a1" || matches[1].ID != "!b2" {
		t.Errorf("NodesByShortName() = %+v", matches)
	}
	if got := table.NodesByShortName("dave"); len(got) != 0 {
		t.Errorf("NodesByShortName(unknown) = %+v", got)
	}
	if nodes := table.Nodes(); len(nodes) != 3 {
		t.Errorf("Nodes() returned %d, want 3 (self excluded)", len(nodes))
	}
	if _, ok := table.Node("!c3"); !ok {
		t.Error("Node(!c3) not found")
	}

	table.SetSelf("!c3")
	if table.Self() != "!c3" {
		t.Errorf("Self() = %q", table.Self())
	}
}

func TestInbound_Direct(t *testing.T) {
	m := Inbound{From: "!a", To: "!self"}
	if !m.Direct("!self") {
		t.Error("direct message not detected")
	}
	m.To = domain.Broadcast
	if m.Direct("!self") {
		t.Error("broadcast treated as direct")
	}
}
