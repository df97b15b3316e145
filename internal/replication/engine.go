package replication

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
	"github.com/yndnr/meshbbs-go/internal/telemetry/metric"
	"github.com/yndnr/meshbbs-go/internal/transport"
)

// DefaultReassemblyTimeout bounds how long a partial line waits for its
// next chunk.
const DefaultReassemblyTimeout = 30 * time.Second

// Outbound sends text of any length to one node. transport.Chunker
// implements it.
type Outbound interface {
	Send(ctx context.Context, text string, to domain.NodeID) int
}

// Applier stores a line received from a peer.
type Applier interface {
	Apply(ctx context.Context, from domain.NodeID, l Line) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records sync line outcomes.
func WithMetrics(m *metric.Registry) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithPayloadLimit sets the chunk size used to detect the last chunk of a
// line. It must match the sending side's chunker.
func WithPayloadLimit(n int) Option {
	return func(e *Engine) { e.limit = n }
}

// WithReassemblyTimeout sets how long a partial line may wait.
func WithReassemblyTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

type pendingLine struct {
	text    strings.Builder
	started time.Time
}

// Engine publishes local changes to peers and applies peer changes locally.
// It implements service.Publisher.
type Engine struct {
	peers   *PeerSet
	out     Outbound
	applier Applier

	limit   int
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics *metric.Registry

	mu      sync.Mutex
	pending map[domain.NodeID]*pendingLine
}

var _ service.Publisher = (*Engine)(nil)

// NewEngine creates an engine sending through out. Attach an Applier before
// calling Receive.
func NewEngine(peers *PeerSet, out Outbound, opts ...Option) *Engine {
	e := &Engine{
		peers:   peers,
		out:     out,
		limit:   transport.DefaultPayloadLimit,
		timeout: DefaultReassemblyTimeout,
		now:     time.Now,
		logger:  slog.Default(),
		pending: make(map[domain.NodeID]*pendingLine),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Attach sets the applier for received lines.
func (e *Engine) Attach(a Applier) {
	e.applier = a
}

// Peers returns the trusted peer set.
func (e *Engine) Peers() *PeerSet {
	return e.peers
}

// IsPeer reports whether id is a trusted peer.
func (e *Engine) IsPeer(id domain.NodeID) bool {
	return e.peers.Contains(id)
}

// Publish sends a local change to every peer in configured order.
func (e *Engine) Publish(ctx context.Context, ev service.Event) {
	l, err := LineFromEvent(ev)
	if err != nil {
		e.logger.Error("cannot publish event", "kind", ev.Kind.String(), "error", err)
		return
	}
	text, err := Encode(l)
	if err != nil {
		e.logger.Warn("change kept locally, not replicated", "tag", string(l.Tag), "error", err)
		e.metrics.Sync(metric.SyncDropped, string(l.Tag))
		return
	}

	for _, peer := range e.peers.List() {
		n := e.out.Send(ctx, text, peer)
		e.logger.Info("sync line sent", "tag", string(l.Tag), "peer", peer, "chunks", n)
		e.metrics.Sync(metric.SyncSent, string(l.Tag))
	}
}

// Receive consumes text from a node. It returns false when the text is not
// sync traffic (the sender is not a peer, or the text is neither a tagged
// line nor the continuation of one).
func (e *Engine) Receive(ctx context.Context, from domain.NodeID, text string) bool {
	if !e.peers.Contains(from) {
		return false
	}

	var complete []string

	e.mu.Lock()
	p, open := e.pending[from]
	if open && e.now().Sub(p.started) > e.timeout {
		complete = append(complete, p.text.String())
		delete(e.pending, from)
		p, open = nil, false
	}

	_, tagged := TagOf(text)
	// A chunk can begin with a field that happens to spell a tag. It only
	// starts a new line once the pending one has all of its fields.
	if tagged && open && !hasAllFields(p.text.String()) {
		tagged = false
	}
	switch {
	case tagged:
		if open {
			complete = append(complete, p.text.String())
		}
		p = &pendingLine{started: e.now()}
		p.text.WriteString(text)
		e.pending[from] = p
	case open:
		p.text.WriteString(text)
	default:
		e.mu.Unlock()
		e.applyAll(ctx, from, complete)
		return false
	}

	if utf8.RuneCountInString(text) < e.limit {
		complete = append(complete, p.text.String())
		delete(e.pending, from)
	}
	e.mu.Unlock()

	e.applyAll(ctx, from, complete)
	return true
}

// Sweep applies partial lines whose timeout has passed. The server calls
// it periodically.
func (e *Engine) Sweep(ctx context.Context) {
	type expired struct {
		from domain.NodeID
		text string
	}
	var list []expired

	e.mu.Lock()
	now := e.now()
	for from, p := range e.pending {
		if now.Sub(p.started) > e.timeout {
			list = append(list, expired{from, p.text.String()})
			delete(e.pending, from)
		}
	}
	e.mu.Unlock()

	for _, x := range list {
		e.logger.Warn("sync line timed out, applying what arrived", "peer", x.from)
		e.apply(ctx, x.from, x.text)
	}
}

// Pending returns the number of partial lines waiting for more chunks.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func (e *Engine) applyAll(ctx context.Context, from domain.NodeID, lines []string) {
	for _, text := range lines {
		e.apply(ctx, from, text)
	}
}

func (e *Engine) apply(ctx context.Context, from domain.NodeID, text string) {
	tag, _ := TagOf(text)

	l, err := Decode(text)
	if err != nil {
		e.logger.Warn("dropping sync line", "peer", from, "tag", string(tag), "error", err)
		e.metrics.Sync(metric.SyncDropped, string(tag))
		return
	}
	if e.applier == nil {
		e.logger.Error("sync line received before applier attached", "peer", from, "tag", string(tag))
		e.metrics.Sync(metric.SyncDropped, string(tag))
		return
	}
	if err := e.applier.Apply(ctx, from, l); err != nil {
		e.logger.Error("sync line not applied", "peer", from, "tag", string(tag), "error", err)
		e.metrics.Sync(metric.SyncDropped, string(tag))
		return
	}
	e.logger.Info("sync line applied", "peer", from, "tag", string(tag))
	e.metrics.Sync(metric.SyncApplied, string(tag))
}

// ServiceApplier applies lines through the domain services with peer origin.
type ServiceApplier struct {
	Bulletins *service.BulletinService
	Mail      *service.MailService
	Channels  *service.ChannelService
}

var _ Applier = (*ServiceApplier)(nil)

// Apply stores the change carried by l.
func (a *ServiceApplier) Apply(ctx context.Context, from domain.NodeID, l Line) error {
	switch l.Tag {
	case TagBulletin:
		b := l.Bulletin
		_, err := a.Bulletins.Post(ctx, &service.PostBulletinRequest{
			Board:           b.Board,
			SenderShortName: b.SenderShortName,
			Subject:         b.Subject,
			Content:         b.Content,
			UniqueID:        b.UniqueID,
			Origin:          service.OriginPeer,
		})
		return err
	case TagMail:
		m := l.Mail
		_, err := a.Mail.Send(ctx, &service.SendMailRequest{
			Sender:          m.Sender,
			SenderShortName: m.SenderShortName,
			Recipient:       m.Recipient,
			Subject:         m.Subject,
			Content:         m.Content,
			UniqueID:        m.UniqueID,
			Origin:          service.OriginPeer,
		})
		return err
	case TagDeleteBulletin:
		_, err := a.Bulletins.Delete(ctx, l.UniqueID, service.OriginPeer)
		return err
	case TagDeleteMail:
		_, err := a.Mail.ApplyRemoteDelete(ctx, l.UniqueID)
		return err
	case TagChannel:
		_, err := a.Channels.Add(ctx, l.Channel.Name, l.Channel.URL, service.OriginPeer)
		return err
	default:
		return errors.New("replication: unknown tag " + string(l.Tag))
	}
}
