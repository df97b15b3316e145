package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyBBS(&cfg.BBS),
		verifySync(&cfg.Sync),
		verifyTransport(&cfg.Transport),
		verifyStorage(&cfg.Storage),
		verifyLog(&cfg.Log),
	)
}

func verifyBBS(cfg *BBSSection) error {
	if len(cfg.Boards) == 0 {
		return errors.New("bbs.boards must list at least one board")
	}
	for _, b := range cfg.Boards {
		if strings.TrimSpace(b) == "" {
			return errors.New("bbs.boards must not contain blank names")
		}
	}
	if cfg.UrgentBoard == "" {
		return errors.New("bbs.urgent_board is required")
	}
	if cfg.Workers < 1 {
		return errors.New("bbs.workers must be at least 1")
	}
	return nil
}

func verifySync(cfg *SyncSection) error {
	for _, p := range cfg.Peers {
		if !strings.HasPrefix(p, "!") {
			return fmt.Errorf("sync.peers: %q is not a node id (want !xxxxxxxx)", p)
		}
	}
	if cfg.ReassemblyTimeout <= 0 {
		return errors.New("sync.reassembly_timeout must be positive")
	}
	return nil
}

func verifyTransport(cfg *TransportSection) error {
	switch cfg.Kind {
	case TransportWebsocket:
		if cfg.URL == "" {
			return errors.New("transport.url is required for the websocket transport")
		}
	case TransportLoopback:
	default:
		return fmt.Errorf("transport.kind %q is not websocket or loopback", cfg.Kind)
	}
	if cfg.PayloadLimit < 1 {
		return errors.New("transport.payload_limit must be at least 1")
	}
	if cfg.ChunkDelay < 0 {
		return errors.New("transport.chunk_delay must not be negative")
	}
	if (cfg.TLS.CertFile == "") != (cfg.TLS.KeyFile == "") {
		return errors.New("transport.tls.cert_file and transport.tls.key_file must be set together")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch strings.ToLower(cfg.Engine) {
	case "sqlite", "badger":
		if cfg.Path == "" {
			return fmt.Errorf("storage.path is required for the %s engine", cfg.Engine)
		}
	case "memory":
	default:
		return fmt.Errorf("storage.engine %q is not sqlite, badger or memory", cfg.Engine)
	}
	if cfg.MailKey != "" && len(cfg.MailKey) < 16 {
		return domain.ErrInvalidArgument.WithDetails("storage.mail_key must be at least 16 bytes")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q is not json or text", cfg.Format)
	}
	return nil
}
