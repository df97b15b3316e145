// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for meshbbs-server.
type ServerConfig struct {
	Node      NodeSection      `koanf:"node" json:"node" yaml:"node"`
	BBS       BBSSection       `koanf:"bbs" json:"bbs" yaml:"bbs"`
	Sync      SyncSection      `koanf:"sync" json:"sync" yaml:"sync"`
	Transport TransportSection `koanf:"transport" json:"transport" yaml:"transport"`
	Storage   StorageSection   `koanf:"storage" json:"storage" yaml:"storage"`
	HTTP      HTTPSection      `koanf:"http" json:"http" yaml:"http"`
	Log       LogSection       `koanf:"log" json:"log" yaml:"log"`
}

// NodeSection describes this BBS.
type NodeSection struct {
	// Name is shown in the main menu header.
	Name string `koanf:"name" json:"name" yaml:"name"`
}

// BBSSection configures the dialogues.
type BBSSection struct {
	Boards      []string `koanf:"boards" json:"boards" yaml:"boards"`
	UrgentBoard string   `koanf:"urgent_board" json:"urgent_board" yaml:"urgent_board"`

	// AllowedNodes may post to the urgent board. Empty allows everyone.
	AllowedNodes []string `koanf:"allowed_nodes" json:"allowed_nodes" yaml:"allowed_nodes"`

	Menus        MenusSection `koanf:"menus" json:"menus" yaml:"menus"`
	FortunesFile string       `koanf:"fortunes_file" json:"fortunes_file" yaml:"fortunes_file"`

	// Workers is the number of dispatch lanes. One lane handles one
	// message at a time.
	Workers int `koanf:"workers" json:"workers" yaml:"workers"`
}

// MenusSection lists the letters of each top-level menu.
type MenusSection struct {
	Main      []string `koanf:"main" json:"main" yaml:"main"`
	BBS       []string `koanf:"bbs" json:"bbs" yaml:"bbs"`
	Utilities []string `koanf:"utilities" json:"utilities" yaml:"utilities"`
}

// SyncSection configures replication.
type SyncSection struct {
	// Peers are the trusted BBS nodes, in send order.
	Peers             []string      `koanf:"peers" json:"peers" yaml:"peers"`
	ReplicateChannels bool          `koanf:"replicate_channels" json:"replicate_channels" yaml:"replicate_channels"`
	ReassemblyTimeout time.Duration `koanf:"reassembly_timeout" json:"reassembly_timeout" yaml:"reassembly_timeout"`
}

// TransportSection configures the radio link.
type TransportSection struct {
	// Kind is "websocket" for a radio bridge or "loopback" for an isolated
	// in-process mesh.
	Kind             string        `koanf:"kind" json:"kind" yaml:"kind"`
	URL              string        `koanf:"url" json:"url" yaml:"url"`
	PayloadLimit     int           `koanf:"payload_limit" json:"payload_limit" yaml:"payload_limit"`
	ChunkDelay       time.Duration `koanf:"chunk_delay" json:"chunk_delay" yaml:"chunk_delay"`
	ReconnectDelay   time.Duration `koanf:"reconnect_delay" json:"reconnect_delay" yaml:"reconnect_delay"`
	HandshakeTimeout time.Duration `koanf:"handshake_timeout" json:"handshake_timeout" yaml:"handshake_timeout"`

	// TLS applies to wss:// bridge URLs.
	TLS TLSSection `koanf:"tls" json:"tls" yaml:"tls"`
}

// TLSSection names PEM files for a wss:// bridge. CAFile adds a private CA to
// the system roots; CertFile and KeyFile enable a client certificate.
type TLSSection struct {
	CAFile   string `koanf:"ca_file" json:"ca_file" yaml:"ca_file"`
	CertFile string `koanf:"cert_file" json:"cert_file" yaml:"cert_file"`
	KeyFile  string `koanf:"key_file" json:"key_file" yaml:"key_file"`
}

// StorageSection configures the domain store.
type StorageSection struct {
	// Engine is "sqlite", "badger" or "memory".
	Engine string `koanf:"engine" json:"engine" yaml:"engine"`
	Path   string `koanf:"path" json:"path" yaml:"path"`

	// MailKey seals mail bodies at rest when set.
	MailKey string `koanf:"mail_key" json:"mail_key" yaml:"mail_key"`

	Badger BadgerSection `koanf:"badger" json:"badger" yaml:"badger"`
}

// BadgerSection tunes the badger engine.
type BadgerSection struct {
	GCInterval  time.Duration `koanf:"gc_interval" json:"gc_interval" yaml:"gc_interval"`
	GCThreshold float64       `koanf:"gc_threshold" json:"gc_threshold" yaml:"gc_threshold"`
	SyncWrites  bool          `koanf:"sync_writes" json:"sync_writes" yaml:"sync_writes"`
}

// HTTPSection configures the admin endpoint. An empty Addr disables it.
type HTTPSection struct {
	Addr string `koanf:"addr" json:"addr" yaml:"addr"`

	// AdminAllowList restricts /admin/v1/* to these IPs or CIDRs.
	AdminAllowList []string `koanf:"admin_allow_list" json:"admin_allow_list" yaml:"admin_allow_list"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
}
