package replication

import (
	"slices"
	"strings"
	"sync/atomic"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

// PeerSet is the list of trusted peer nodes. It can be replaced while in use.
type PeerSet struct {
	peers atomic.Pointer[[]domain.NodeID]
}

// NewPeerSet creates a set from ids, in the given order.
func NewPeerSet(ids ...domain.NodeID) *PeerSet {
	p := &PeerSet{}
	p.Replace(ids)
	return p
}

// Replace swaps in a new list. Blank and duplicate ids are dropped.
func (p *PeerSet) Replace(ids []domain.NodeID) {
	list := make([]domain.NodeID, 0, len(ids))
	for _, id := range ids {
		id = domain.NodeID(strings.TrimSpace(string(id)))
		if id == "" || slices.Contains(list, id) {
			continue
		}
		list = append(list, id)
	}
	p.peers.Store(&list)
}

// List returns the peers in configured order.
func (p *PeerSet) List() []domain.NodeID {
	return slices.Clone(*p.peers.Load())
}

// Contains reports whether id is a trusted peer.
func (p *PeerSet) Contains(id domain.NodeID) bool {
	return slices.Contains(*p.peers.Load(), id)
}

// Len returns the number of peers.
func (p *PeerSet) Len() int {
	return len(*p.peers.Load())
}
