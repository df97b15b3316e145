// Package wsgateway is a transport.Transport that talks to a radio bridge
// daemon over a websocket.
//
// The bridge owns the serial or TCP link to the radio. It sends JSON frames
// of type "hello" (our own node id), "node" (directory updates) and "text"
// (received messages); the gateway sends "send_text" frames. Every inbound
// frame is validated against an embedded JSON schema and invalid frames are
// dropped. The gateway reconnects after a fixed delay when the link drops.
package wsgateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/transport"
)

// Defaults.
const (
	DefaultReconnectDelay   = 5 * time.Second
	DefaultHandshakeTimeout = 5 * time.Second
	writeTimeout            = 5 * time.Second
	inboxSize               = 256
)

var (
	ErrNotConnected = errors.New("wsgateway: not connected")
	ErrClosed       = errors.New("wsgateway: closed")
)

// Config configures a Gateway.
type Config struct {
	// URL is the bridge endpoint, e.g. ws://127.0.0.1:4403/mesh.
	URL string

	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration

	// TLS is used for wss:// URLs. Nil selects the system defaults.
	TLS *tls.Config

	Logger *slog.Logger
}

// Gateway is a websocket client for the radio bridge.
type Gateway struct {
	*transport.NodeTable

	cfg    Config
	logger *slog.Logger
	schema *jsonschema.Schema
	inbox  chan transport.Inbound

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	ready     chan struct{}
	readyOnce sync.Once

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

var _ transport.Transport = (*Gateway)(nil)

// New creates a Gateway. Call Start to connect.
func New(cfg Config) (*Gateway, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("wsgateway: url is required")
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	schema, err := compileFrameSchema()
	if err != nil {
		return nil, fmt.Errorf("wsgateway: compile frame schema: %w", err)
	}

	return &Gateway{
		NodeTable: transport.NewNodeTable(""),
		cfg:       cfg,
		logger:    cfg.Logger.With("component", "wsgateway"),
		schema:    schema,
		inbox:     make(chan transport.Inbound, inboxSize),
		ready:     make(chan struct{}),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Start runs the connect loop in the background.
func (g *Gateway) Start() {
	go g.run()
}

// Ready is closed once the bridge has told us our node id.
func (g *Gateway) Ready() <-chan struct{} {
	return g.ready
}

// Inbound returns received text messages.
func (g *Gateway) Inbound() <-chan transport.Inbound {
	return g.inbox
}

// SendText sends one payload through the bridge.
func (g *Gateway) SendText(ctx context.Context, text string, to domain.NodeID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	conn := g.conn
	g.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(Frame{Type: FrameSendText, To: string(to), Text: text}); err != nil {
		return fmt.Errorf("wsgateway: send: %w", err)
	}
	return nil
}

// Close stops the connect loop and closes Inbound.
func (g *Gateway) Close() error {
	g.closeOnce.Do(func() {
		close(g.stopCh)
		g.mu.Lock()
		if g.conn != nil {
			_ = g.conn.Close()
		}
		g.mu.Unlock()
	})
	<-g.doneCh
	return nil
}

func (g *Gateway) stopped() bool {
	select {
	case <-g.stopCh:
		return true
	default:
		return false
	}
}

func (g *Gateway) run() {
	defer close(g.doneCh)
	defer close(g.inbox)

	for {
		err := g.connectAndRead()
		if g.stopped() {
			return
		}
		g.logger.Warn("bridge connection lost", "url", g.cfg.URL, "error", err, "retry_in", g.cfg.ReconnectDelay)

		select {
		case <-g.stopCh:
			return
		case <-time.After(g.cfg.ReconnectDelay):
		}
	}
}

func (g *Gateway) connectAndRead() error {
	d := websocket.Dialer{
		HandshakeTimeout: g.cfg.HandshakeTimeout,
		TLSClientConfig:  g.cfg.TLS,
	}
	conn, resp, err := d.Dial(g.cfg.URL, http.Header{})
	if err != nil {
		return err
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	g.mu.Lock()
	if g.stopped() {
		g.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	g.conn = conn
	g.mu.Unlock()

	g.logger.Info("bridge connected", "url", g.cfg.URL)

	defer func() {
		g.mu.Lock()
		g.conn = nil
		g.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		frame, err := decodeFrame(g.schema, raw)
		if err != nil {
			g.logger.Warn("dropping bridge frame", "error", err)
			continue
		}
		g.handle(frame)
	}
}

func (g *Gateway) handle(f *Frame) {
	switch f.Type {
	case FrameHello:
		self := domain.NodeID(f.NodeID)
		g.SetSelf(self)
		g.Upsert(domain.NodeInfo{
			ID:           self,
			ShortName:    f.ShortName,
			LongName:     f.LongName,
			LastHeard:    time.Now(),
			BatteryLevel: domain.BatteryUnknown,
		})
		g.readyOnce.Do(func() { close(g.ready) })
		g.logger.Info("bridge hello", "node_id", self)

	case FrameNode:
		g.Upsert(f.Node.Info())

	case FrameText:
		msg := transport.Inbound{
			From:       domain.NodeID(f.From),
			To:         domain.NodeID(f.To),
			Text:       f.Text,
			ReceivedAt: time.Now(),
		}
		if f.RxTime > 0 {
			msg.ReceivedAt = time.Unix(f.RxTime, 0)
		}
		select {
		case g.inbox <- msg:
		case <-g.stopCh:
		}
	}
}
