package bbs

import (
	"strings"
	"sync/atomic"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

// AllowList holds the nodes allowed to post to the urgent board. An empty
// list allows everyone.
type AllowList struct {
	ids atomic.Pointer[map[domain.NodeID]struct{}]
}

// NewAllowList creates a list holding ids.
func NewAllowList(ids ...domain.NodeID) *AllowList {
	a := &AllowList{}
	a.Replace(ids)
	return a
}

// Replace swaps in a new list.
func (a *AllowList) Replace(ids []domain.NodeID) {
	m := make(map[domain.NodeID]struct{}, len(ids))
	for _, id := range ids {
		if id = domain.NodeID(strings.TrimSpace(string(id))); id != "" {
			m[id] = struct{}{}
		}
	}
	a.ids.Store(&m)
}

// Permits reports whether id may post.
func (a *AllowList) Permits(id domain.NodeID) bool {
	m := *a.ids.Load()
	if len(m) == 0 {
		return true
	}
	_, ok := m[id]
	return ok
}

// Len returns the number of listed nodes.
func (a *AllowList) Len() int {
	return len(*a.ids.Load())
}
