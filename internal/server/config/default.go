// Package config defines the server configuration structure.
package config

import (
	"slices"
	"time"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

// Default configuration values.
const (
	DefaultNodeName = "Mesh BBS"
	DefaultWorkers  = 1

	DefaultReassemblyTimeout = 30 * time.Second

	TransportWebsocket = "websocket"
	TransportLoopback  = "loopback"

	DefaultTransportURL      = "ws://127.0.0.1:4403/bridge"
	DefaultPayloadLimit      = 200
	DefaultChunkDelay        = 2 * time.Second
	DefaultReconnectDelay    = 5 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultStorageEngine     = "sqlite"
	DefaultStoragePath       = "/var/lib/meshbbs/bulletins.db"
	DefaultBadgerGCInterval  = 10 * time.Minute
	DefaultBadgerGCThreshold = 0.5

	DefaultHTTPAddr = "127.0.0.1:5080"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Node: NodeSection{
			Name: DefaultNodeName,
		},
		BBS: BBSSection{
			Boards:      slices.Clone(domain.DefaultBoards),
			UrgentBoard: domain.DefaultUrgentBoard,
			Menus: MenusSection{
				Main:      []string{"Q", "B", "U", "X"},
				BBS:       []string{"M", "B", "C", "J", "X"},
				Utilities: []string{"S", "F", "W", "X"},
			},
			Workers: DefaultWorkers,
		},
		Sync: SyncSection{
			ReassemblyTimeout: DefaultReassemblyTimeout,
		},
		Transport: TransportSection{
			Kind:             TransportWebsocket,
			URL:              DefaultTransportURL,
			PayloadLimit:     DefaultPayloadLimit,
			ChunkDelay:       DefaultChunkDelay,
			ReconnectDelay:   DefaultReconnectDelay,
			HandshakeTimeout: DefaultHandshakeTimeout,
		},
		Storage: StorageSection{
			Engine: DefaultStorageEngine,
			Path:   DefaultStoragePath,
			Badger: BadgerSection{
				GCInterval:  DefaultBadgerGCInterval,
				GCThreshold: DefaultBadgerGCThreshold,
				SyncWrites:  true,
			},
		},
		HTTP: HTTPSection{
			Addr: DefaultHTTPAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// PeerIDs returns the configured peers as node ids.
func (c *ServerConfig) PeerIDs() []domain.NodeID {
	return nodeIDs(c.Sync.Peers)
}

// AllowedIDs returns the urgent board allow-list as node ids.
func (c *ServerConfig) AllowedIDs() []domain.NodeID {
	return nodeIDs(c.BBS.AllowedNodes)
}

func nodeIDs(list []string) []domain.NodeID {
	ids := make([]domain.NodeID, 0, len(list))
	for _, s := range list {
		ids = append(ids, domain.NodeID(s))
	}
	return ids
}
