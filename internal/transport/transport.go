package transport

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/pkg/cmap"
)

// Inbound is one text message received from the mesh.
type Inbound struct {
	From domain.NodeID
	// To is this node's id for direct messages and domain.Broadcast (or a
	// channel address) for group traffic.
	To         domain.NodeID
	Text       string
	ReceivedAt time.Time
}

// Direct reports whether the message was addressed to self.
func (m Inbound) Direct(self domain.NodeID) bool {
	return m.To == self
}

// Sender sends one radio payload. Callers keep payloads within the radio
// limit; use a Chunker for arbitrary text.
type Sender interface {
	SendText(ctx context.Context, text string, to domain.NodeID) error
}

// Directory answers questions about known nodes.
type Directory interface {
	// Self returns this node's id.
	Self() domain.NodeID

	// Node returns a single node.
	Node(id domain.NodeID) (domain.NodeInfo, bool)

	// NodesByShortName matches case-insensitively, in id order.
	NodesByShortName(name string) []domain.NodeInfo

	// Nodes returns every known node except self, in id order.
	Nodes() []domain.NodeInfo
}

// Transport is a connected radio.
type Transport interface {
	Sender
	Directory

	// Inbound delivers received text messages. It is closed by Close.
	Inbound() <-chan Inbound

	Close() error
}

// NodeTable is a concurrent Directory fed by a transport.
type NodeTable struct {
	mu    sync.RWMutex
	self  domain.NodeID
	nodes *cmap.Map[domain.NodeID, domain.NodeInfo]
}

var _ Directory = (*NodeTable)(nil)

// NewNodeTable creates an empty table for the node self.
func NewNodeTable(self domain.NodeID) *NodeTable {
	return &NodeTable{
		self:  self,
		nodes: cmap.New[domain.NodeID, domain.NodeInfo](),
	}
}

// SetSelf changes this node's id; transports learn it after connecting.
func (t *NodeTable) SetSelf(id domain.NodeID) {
	t.mu.Lock()
	t.self = id
	t.mu.Unlock()
}

// Upsert adds or replaces a node.
func (t *NodeTable) Upsert(n domain.NodeInfo) {
	t.nodes.Set(n.ID, n)
}

// Self returns this node's id.
func (t *NodeTable) Self() domain.NodeID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.self
}

// Node returns a single node.
func (t *NodeTable) Node(id domain.NodeID) (domain.NodeInfo, bool) {
	return t.nodes.Get(id)
}

// NodesByShortName returns nodes whose short name matches name.
func (t *NodeTable) NodesByShortName(name string) []domain.NodeInfo {
	var out []domain.NodeInfo
	t.nodes.Range(func(_ domain.NodeID, n domain.NodeInfo) bool {
		if n.MatchesShortName(name) {
			out = append(out, n)
		}
		return true
	})
	sortNodes(out)
	return out
}

// Nodes returns every node except self.
func (t *NodeTable) Nodes() []domain.NodeInfo {
	self := t.Self()
	out := make([]domain.NodeInfo, 0, t.nodes.Count())
	t.nodes.Range(func(id domain.NodeID, n domain.NodeInfo) bool {
		if id != self {
			out = append(out, n)
		}
		return true
	})
	sortNodes(out)
	return out
}

func sortNodes(list []domain.NodeInfo) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}
