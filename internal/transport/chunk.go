package transport

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/telemetry/metric"
)

// Defaults for radio payloads.
const (
	DefaultPayloadLimit = 200
	DefaultChunkDelay   = 2 * time.Second
)

// Split cuts text into pieces of at most limit runes. Empty text yields no
// pieces; a non-positive limit yields the text unchanged.
func Split(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	start, n := 0, 0
	for i := range text {
		if n == limit {
			chunks = append(chunks, text[start:i])
			start, n = i, 0
		}
		n++
	}
	return append(chunks, text[start:])
}

// Pacer spaces out radio sends.
type Pacer interface {
	// Wait blocks until the next send may start.
	Wait(ctx context.Context) error
}

// RatePacer allows one send per delay.
type RatePacer struct {
	limiter *rate.Limiter
}

// NewRatePacer creates a pacer allowing one send every delay. A
// non-positive delay disables pacing.
func NewRatePacer(delay time.Duration) *RatePacer {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &RatePacer{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next send may start.
func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// SetDelay changes the spacing between sends.
func (p *RatePacer) SetDelay(delay time.Duration) {
	if delay <= 0 {
		p.limiter.SetLimit(rate.Inf)
		return
	}
	p.limiter.SetLimit(rate.Every(delay))
}

// Chunker sends text of any length as a paced series of payloads.
type Chunker struct {
	sender  Sender
	pacer   Pacer
	limit   int
	logger  *slog.Logger
	metrics *metric.Registry
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithPayloadLimit sets the maximum runes per payload.
func WithPayloadLimit(n int) ChunkerOption {
	return func(c *Chunker) { c.limit = n }
}

// WithPacer replaces the default pacer.
func WithPacer(p Pacer) ChunkerOption {
	return func(c *Chunker) { c.pacer = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ChunkerOption {
	return func(c *Chunker) { c.logger = l }
}

// WithMetrics records chunk results.
func WithMetrics(m *metric.Registry) ChunkerOption {
	return func(c *Chunker) { c.metrics = m }
}

// NewChunker creates a Chunker over sender.
func NewChunker(sender Sender, opts ...ChunkerOption) *Chunker {
	c := &Chunker{
		sender: sender,
		limit:  DefaultPayloadLimit,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pacer == nil {
		c.pacer = NewRatePacer(DefaultChunkDelay)
	}
	return c
}

// Limit returns the payload limit in runes.
func (c *Chunker) Limit() int {
	return c.limit
}

// Send splits text and sends the pieces in order, waiting on the pacer
// before each one. A failed piece is logged and the rest are still sent.
// It returns the number of pieces attempted and stops early only when ctx
// is done.
func (c *Chunker) Send(ctx context.Context, text string, to domain.NodeID) int {
	chunks := Split(text, c.limit)
	for i, chunk := range chunks {
		if err := c.pacer.Wait(ctx); err != nil {
			c.logger.Warn("send aborted", "to", to, "sent", i, "total", len(chunks), "error", err)
			return i
		}
		err := c.sender.SendText(ctx, chunk, to)
		c.metrics.Chunk(err)
		if err != nil {
			c.logger.Error("chunk send failed",
				"to", to,
				"chunk", i+1,
				"total", len(chunks),
				"error", err)
			continue
		}
		c.logger.Debug("chunk sent", "to", to, "chunk", i+1, "total", len(chunks))
	}
	return len(chunks)
}

// Announce implements service.Announcer.
func (c *Chunker) Announce(ctx context.Context, to domain.NodeID, text string) error {
	c.Send(ctx, text, to)
	return nil
}
