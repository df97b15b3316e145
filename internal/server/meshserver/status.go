package meshserver

import (
	"time"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

// Status is a point-in-time summary of a running node.
type Status struct {
	Name        string          `json:"name" yaml:"name"`
	Self        domain.NodeID   `json:"self" yaml:"self"`
	Running     bool            `json:"running" yaml:"running"`
	Uptime      string          `json:"uptime" yaml:"uptime"`
	Workers     int             `json:"workers" yaml:"workers"`
	Handled     int64           `json:"handled" yaml:"handled"`
	Sessions    int             `json:"sessions" yaml:"sessions"`
	Peers       []domain.NodeID `json:"peers" yaml:"peers"`
	PendingSync int             `json:"pending_sync" yaml:"pending_sync"`
	KnownNodes  int             `json:"known_nodes" yaml:"known_nodes"`
	AllowList   int             `json:"allowed_nodes" yaml:"allowed_nodes"`
}

// Status reports the current state of the node.
func (s *Server) Status() Status {
	st := Status{
		Name:        s.cfg.Node.Name,
		Self:        s.radio.Self(),
		Running:     s.running.Load(),
		Workers:     len(s.lanes),
		Handled:     s.handled.Load(),
		Sessions:    s.sessions.Len(),
		Peers:       s.engine.Peers().List(),
		PendingSync: s.engine.Pending(),
		KnownNodes:  len(s.radio.Nodes()),
		AllowList:   s.router.AllowList().Len(),
	}
	if st.Running {
		st.Uptime = s.now().Sub(s.started).Truncate(time.Second).String()
	}
	return st
}
