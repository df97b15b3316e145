package replication

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
	"github.com/yndnr/meshbbs-go/internal/storage/memory"
	"github.com/yndnr/meshbbs-go/internal/transport"
	"github.com/yndnr/meshbbs-go/internal/transport/loopback"
)

type sendCall struct {
	text string
	to   domain.NodeID
}

type recordingOutbound struct {
	mu    sync.Mutex
	calls []sendCall
}

func (o *recordingOutbound) Send(_ context.Context, text string, to domain.NodeID) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, sendCall{text, to})
	return 1
}

type recordingApplier struct {
	lines []Line
}

func (a *recordingApplier) Apply(_ context.Context, _ domain.NodeID, l Line) error {
	a.lines = append(a.lines, l)
	return nil
}

func TestEngine_PublishSendsToEveryPeerInOrder(t *testing.T) {
	out := &recordingOutbound{}
	e := NewEngine(NewPeerSet("!p2", "!p1"), out)

	e.Publish(context.Background(), service.Event{Kind: service.EventBulletinDeleted, UniqueID: "u9"})

	if len(out.calls) != 2 {
		t.Fatalf("sent %d lines, want 2", len(out.calls))
	}
	if out.calls[0].to != "!p2" || out.calls[1].to != "!p1" {
		t.Errorf("peer order = %v, %v", out.calls[0].to, out.calls[1].to)
	}
	if out.calls[0].text != "DELETE_BULLETIN|u9" {
		t.Errorf("line = %q", out.calls[0].text)
	}
}

func TestEngine_PublishSkipsUnencodable(t *testing.T) {
	out := &recordingOutbound{}
	e := NewEngine(NewPeerSet("!p"), out)

	e.Publish(context.Background(), service.Event{Kind: service.EventBulletinCreated, Bulletin: &domain.Bulletin{
		Board: "General", Subject: "pipe | inside", UniqueID: "u",
	}})
	if len(out.calls) != 0 {
		t.Errorf("sent %d lines for unencodable bulletin", len(out.calls))
	}
}

func TestEngine_ReceiveIgnoresNonPeersAndChat(t *testing.T) {
	app := &recordingApplier{}
	e := NewEngine(NewPeerSet("!p"), &recordingOutbound{})
	e.Attach(app)
	ctx := context.Background()

	if e.Receive(ctx, "!stranger", "DELETE_MAIL|u") {
		t.Error("sync line from non-peer accepted")
	}
	if e.Receive(ctx, "!p", "hello there") {
		t.Error("chat from peer treated as sync")
	}
	if len(app.lines) != 0 {
		t.Errorf("applied %d lines", len(app.lines))
	}
}

func TestEngine_ReceiveMalformedIsDropped(t *testing.T) {
	app := &recordingApplier{}
	e := NewEngine(NewPeerSet("!p"), &recordingOutbound{})
	e.Attach(app)

	if !e.Receive(context.Background(), "!p", "BULLETIN|only|three") {
		t.Error("tagged line not consumed")
	}
	if len(app.lines) != 0 {
		t.Errorf("malformed line applied: %+v", app.lines)
	}
}

func TestEngine_Reassembly(t *testing.T) {
	app := &recordingApplier{}
	e := NewEngine(NewPeerSet("!p"), &recordingOutbound{}, WithPayloadLimit(10))
	e.Attach(app)
	ctx := context.Background()

	line := "BULLETIN|General|AB|Subject|a long body|u1"
	chunks := transport.Split(line, 10)
	for i, c := range chunks {
		if !e.Receive(ctx, "!p", c) {
			t.Fatalf("chunk %d not consumed", i)
		}
		if i < len(chunks)-1 && len(app.lines) != 0 {
			t.Fatalf("applied before last chunk")
		}
	}
	if len(app.lines) != 1 || app.lines[0].Bulletin.Content != "a long body" {
		t.Fatalf("applied = %+v", app.lines)
	}
	if e.Pending() != 0 {
		t.Errorf("Pending() = %d", e.Pending())
	}
}

func TestEngine_NewTaggedLineFinalizesPrevious(t *testing.T) {
	app := &recordingApplier{}
	e := NewEngine(NewPeerSet("!p"), &recordingOutbound{}, WithPayloadLimit(10))
	e.Attach(app)
	ctx := context.Background()

	// both lines are at least one payload long, so each waits for more
	e.Receive(ctx, "!p", "DELETE_MAIL|x")
	e.Receive(ctx, "!p", "DELETE_BULLETIN|y")
	if len(app.lines) != 1 || app.lines[0].Tag != TagDeleteMail {
		t.Fatalf("first line not applied: %+v", app.lines)
	}
	if e.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", e.Pending())
	}

	e.Receive(ctx, "!p", "z")
	if len(app.lines) != 2 || app.lines[1].UniqueID != "yz" {
		t.Fatalf("applied = %+v", app.lines)
	}
}

func TestEngine_ChunkStartingWithTagWordContinuesLine(t *testing.T) {
	app := &recordingApplier{}
	e := NewEngine(NewPeerSet("!p"), &recordingOutbound{}, WithPayloadLimit(10))
	e.Attach(app)
	ctx := context.Background()

	// 30 runes before the content's trailing "MAIL", so the last chunk
	// is "MAIL|u2" and looks like the start of a mail line.
	line := "BULLETIN|General|AB|subj|yyyyyMAIL|u2"
	chunks := transport.Split(line, 10)
	if last := chunks[len(chunks)-1]; last != "MAIL|u2" {
		t.Fatalf("last chunk = %q", last)
	}
	for _, c := range chunks {
		e.Receive(ctx, "!p", c)
	}

	if len(app.lines) != 1 {
		t.Fatalf("applied %d lines, want 1: %+v", len(app.lines), app.lines)
	}
	b := app.lines[0].Bulletin
	if app.lines[0].Tag != TagBulletin || b.Content != "yyyyyMAIL" || b.UniqueID != "u2" {
		t.Errorf("bulletin = %+v", b)
	}
	if e.Pending() != 0 {
		t.Errorf("Pending() = %d", e.Pending())
	}
}

func TestEngine_SweepAppliesExpiredLines(t *testing.T) {
	app := &recordingApplier{}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e := NewEngine(NewPeerSet("!p"), &recordingOutbound{},
		WithPayloadLimit(10),
		WithReassemblyTimeout(time.Minute),
		WithClock(func() time.Time { return now }))
	e.Attach(app)
	ctx := context.Background()

	e.Receive(ctx, "!p", "CHANNEL|ab")
	e.Receive(ctx, "!p", "cdefgh|url") // full payload, still open

	e.Sweep(ctx)
	if len(app.lines) != 0 {
		t.Fatal("swept before timeout")
	}

	now = now.Add(2 * time.Minute)
	e.Sweep(ctx)
	if len(app.lines) != 1 || app.lines[0].Channel.Name != "abcdefgh" {
		t.Fatalf("applied = %+v", app.lines)
	}
	if e.Pending() != 0 {
		t.Errorf("Pending() = %d after sweep", e.Pending())
	}
}

// node is one BBS wired for replication over a loopback mesh.
type node struct {
	repo      *memory.Store
	bulletins *service.BulletinService
	mail      *service.MailService
	engine    *Engine
	radio     *loopback.Node
}

type noWait struct{}

func (noWait) Wait(context.Context) error { return nil }

func newNode(hub *loopback.Hub, id domain.NodeID, peers ...domain.NodeID) *node {
	radio := hub.Join(domain.NodeInfo{ID: id, ShortName: strings.ToUpper(string(id[1:]))})
	chunker := transport.NewChunker(radio, transport.WithPacer(noWait{}))
	engine := NewEngine(NewPeerSet(peers...), chunker)
	repo := memory.New()

	opts := []service.Option{service.WithPublisher(engine), service.WithAnnouncer(chunker)}
	n := &node{
		repo:      repo,
		bulletins: service.NewBulletinService(repo, opts...),
		mail:      service.NewMailService(repo, opts...),
		engine:    engine,
		radio:     radio,
	}
	engine.Attach(&ServiceApplier{
		Bulletins: n.bulletins,
		Mail:      n.mail,
		Channels:  service.NewChannelService(repo, opts...),
	})
	return n
}

// pump feeds every queued inbound message to the engine.
func (n *node) pump(ctx context.Context) int {
	consumed := 0
	for {
		select {
		case msg := <-n.radio.Inbound():
			if n.engine.Receive(ctx, msg.From, msg.Text) {
				consumed++
			}
		default:
			return consumed
		}
	}
}

func TestEngine_TwoNodeReplication(t *testing.T) {
	hub := loopback.NewHub()
	a := newNode(hub, "!aaaa", "!bbbb")
	b := newNode(hub, "!bbbb", "!aaaa")
	ctx := context.Background()

	long := strings.Repeat("x", 450)
	posted, err := a.bulletins.Post(ctx, &service.PostBulletinRequest{
		Board: "General", SenderShortName: "AAAA", Subject: "hello", Content: long, Origin: service.OriginLocal,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := b.pump(ctx); got != 3 {
		t.Errorf("b consumed %d chunks, want 3", got)
	}

	list, _ := b.repo.ListBulletins(ctx, "general")
	if len(list) != 1 || list[0].UniqueID != posted.UniqueID || list[0].Content != long {
		t.Fatalf("b bulletins = %+v", list)
	}
	if got := a.pump(ctx); got != 0 {
		t.Errorf("b republished %d lines to a", got)
	}

	if _, err := a.bulletins.Delete(ctx, posted.UniqueID, service.OriginLocal); err != nil {
		t.Fatal(err)
	}
	b.pump(ctx)
	list, _ = b.repo.ListBulletins(ctx, "general")
	if len(list) != 0 {
		t.Errorf("delete not replicated: %+v", list)
	}
}

func TestEngine_RemoteMailDeleteUsesLocalRecipient(t *testing.T) {
	hub := loopback.NewHub()
	a := newNode(hub, "!aaaa", "!bbbb")
	b := newNode(hub, "!bbbb", "!aaaa")
	ctx := context.Background()

	m, err := a.mail.Send(ctx, &service.SendMailRequest{
		Sender: "!cccc", SenderShortName: "CCCC", Recipient: "!dddd", Subject: "s", Content: "c", Origin: service.OriginLocal,
	})
	if err != nil {
		t.Fatal(err)
	}
	b.pump(ctx)
	if n, _ := b.mail.Count(ctx, "!dddd"); n != 1 {
		t.Fatalf("b mailbox = %d", n)
	}

	if _, err := a.mail.Delete(ctx, m.UniqueID, "!dddd", service.OriginLocal); err != nil {
		t.Fatal(err)
	}
	b.pump(ctx)
	if n, _ := b.mail.Count(ctx, "!dddd"); n != 0 {
		t.Errorf("b mailbox after remote delete = %d", n)
	}
}

// newApplyingEngine returns an engine that applies peer lines from !p into
// repo through the services.
func newApplyingEngine(repo *memory.Store) (*Engine, *service.MailService) {
	e := NewEngine(NewPeerSet("!p"), &recordingOutbound{})
	pub := service.WithPublisher(e)
	mail := service.NewMailService(repo, pub)
	e.Attach(&ServiceApplier{
		Bulletins: service.NewBulletinService(repo, pub),
		Mail:      mail,
		Channels:  service.NewChannelService(repo, pub),
	})
	return e, mail
}

func TestEngine_MailLineRoundTrip(t *testing.T) {
	repo := memory.New()
	e, mail := newApplyingEngine(repo)
	ctx := context.Background()

	if !e.Receive(ctx, "!p", "MAIL|!s|ALC|!bob|Hi|Let's meet at noon|uid-9") {
		t.Fatal("mail line not consumed")
	}

	list, err := mail.List(ctx, "!bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("mailbox has %d messages, want 1", len(list))
	}
	m := list[0]
	want := domain.Mail{
		Sender: "!s", SenderShortName: "ALC", Recipient: "!bob",
		Subject: "Hi", Content: "Let's meet at noon", UniqueID: "uid-9",
	}
	if m.Sender != want.Sender || m.SenderShortName != want.SenderShortName ||
		m.Recipient != want.Recipient || m.Subject != want.Subject ||
		m.Content != want.Content || m.UniqueID != want.UniqueID {
		t.Errorf("stored mail = %+v, want %+v", m, want)
	}

	read, err := mail.Read(ctx, m.ID, "!bob")
	if err != nil || read.UniqueID != "uid-9" {
		t.Errorf("Read() = %+v, %v", read, err)
	}
	if _, err := mail.Read(ctx, m.ID, "!eve"); err == nil {
		t.Error("mail readable by another node")
	}

	// replicated rows are not sent on again
	if out := e.out.(*recordingOutbound); len(out.calls) != 0 {
		t.Errorf("republished %d lines", len(out.calls))
	}
}

func TestEngine_DuplicateBulletinLineDuplicates(t *testing.T) {
	repo := memory.New()
	e, _ := newApplyingEngine(repo)
	ctx := context.Background()

	line := "BULLETIN|General|AB|subj|body|uid-1"
	e.Receive(ctx, "!p", line)
	e.Receive(ctx, "!p", line)

	list, err := repo.ListBulletins(ctx, "general")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("rows = %d, want 2", len(list))
	}
	if list[0].ID == list[1].ID {
		t.Errorf("rows share id %d", list[0].ID)
	}
	for _, b := range list {
		if b.UniqueID != "uid-1" {
			t.Errorf("row %d unique_id = %q", b.ID, b.UniqueID)
		}
	}
}
