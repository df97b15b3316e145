// Package loopback is an in-process mesh. Every node joined to a Hub can
// send direct or broadcast text to the others; nothing leaves the process.
package loopback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/transport"
)

// ErrClosed is returned by SendText on a closed node.
var ErrClosed = errors.New("loopback: node closed")

// inboxSize bounds each node's undelivered messages.
const inboxSize = 256

// Message is a record of one payload sent through the hub.
type Message struct {
	From domain.NodeID
	To   domain.NodeID
	Text string
}

// Hub connects loopback nodes.
type Hub struct {
	mu    sync.Mutex
	nodes map[domain.NodeID]*Node
	order []domain.NodeID
	log   []Message
	now   func() time.Time
}

// NewHub creates an empty mesh.
func NewHub() *Hub {
	return &Hub{
		nodes: make(map[domain.NodeID]*Node),
		now:   time.Now,
	}
}

// Join adds a node and announces it to every member's directory.
func (h *Hub) Join(info domain.NodeInfo) *Node {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := &Node{
		NodeTable: transport.NewNodeTable(info.ID),
		hub:       h,
		inbox:     make(chan transport.Inbound, inboxSize),
	}
	for _, id := range h.order {
		other := h.nodes[id]
		other.Upsert(info)
		n.Upsert(other.info)
	}
	n.info = info
	n.Upsert(info)
	h.nodes[info.ID] = n
	h.order = append(h.order, info.ID)
	return n
}

// Update replaces a member's node info in every directory.
func (h *Hub) Update(info domain.NodeInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, n := range h.nodes {
		n.Upsert(info)
	}
	if n, ok := h.nodes[info.ID]; ok {
		n.info = info
	}
}

// Log returns every payload sent so far.
func (h *Hub) Log() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(h.log))
	copy(out, h.log)
	return out
}

func (h *Hub) deliver(from, to domain.NodeID, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.log = append(h.log, Message{From: from, To: to, Text: text})
	msg := transport.Inbound{From: from, To: to, Text: text, ReceivedAt: h.now()}

	if to == domain.Broadcast {
		for _, id := range h.order {
			if id != from {
				h.nodes[id].push(msg)
			}
		}
		return nil
	}
	if n, ok := h.nodes[to]; ok {
		n.push(msg)
	}
	return nil
}

// Node is one member of a Hub. It implements transport.Transport.
type Node struct {
	*transport.NodeTable

	hub  *Hub
	info domain.NodeInfo

	mu     sync.Mutex
	inbox  chan transport.Inbound
	closed bool
}

var _ transport.Transport = (*Node)(nil)

// SendText delivers text to another member, or to all of them for
// domain.Broadcast. Unknown recipients are silently dropped like radio
// packets nobody hears.
func (n *Node) SendText(ctx context.Context, text string, to domain.NodeID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	closed := n.closed
	n.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return n.hub.deliver(n.Self(), to, text)
}

// Inject queues a message as if it had been received from the radio.
func (n *Node) Inject(msg transport.Inbound) {
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}
	n.push(msg)
}

func (n *Node) push(msg transport.Inbound) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.inbox <- msg:
	default:
		// full inbox drops the packet, as a busy radio would
	}
}

// Inbound returns received messages.
func (n *Node) Inbound() <-chan transport.Inbound {
	return n.inbox
}

// Close stops delivery to this node.
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.closed {
		n.closed = true
		close(n.inbox)
	}
	return nil
}
