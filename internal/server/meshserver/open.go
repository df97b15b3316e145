package meshserver

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
	"github.com/yndnr/meshbbs-go/internal/infra/tlsroots"
	"github.com/yndnr/meshbbs-go/internal/server/config"
	"github.com/yndnr/meshbbs-go/internal/storage"
	"github.com/yndnr/meshbbs-go/internal/transport"
	"github.com/yndnr/meshbbs-go/internal/transport/loopback"
	"github.com/yndnr/meshbbs-go/internal/transport/wsgateway"
)

// LoopbackSelf is the node id of a node on the loopback transport.
const LoopbackSelf domain.NodeID = "!10000001"

// OpenTransport connects the configured transport.
//
// The loopback kind creates an isolated in-process mesh with this node as
// its only member; it is useful for trying the server without a radio.
func OpenTransport(cfg *config.TransportSection, name string, logger *slog.Logger) (transport.Transport, error) {
	switch cfg.Kind {
	case config.TransportWebsocket:
		tlsCfg, err := tlsroots.ClientConfig(tlsroots.Files{
			CAFile:   cfg.TLS.CAFile,
			CertFile: cfg.TLS.CertFile,
			KeyFile:  cfg.TLS.KeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("meshserver: bridge tls: %w", err)
		}
		g, err := wsgateway.New(wsgateway.Config{
			URL:              cfg.URL,
			ReconnectDelay:   cfg.ReconnectDelay,
			HandshakeTimeout: cfg.HandshakeTimeout,
			TLS:              tlsCfg,
			Logger:           logger,
		})
		if err != nil {
			return nil, err
		}
		g.Start()
		return g, nil
	case config.TransportLoopback:
		return loopback.NewHub().Join(domain.NodeInfo{
			ID:           LoopbackSelf,
			ShortName:    "BBS",
			LongName:     name,
			BatteryLevel: -1,
		}), nil
	default:
		return nil, fmt.Errorf("meshserver: unknown transport kind %q", cfg.Kind)
	}
}

// OpenRepository opens the configured storage engine. reg may be nil.
func OpenRepository(cfg *config.StorageSection, logger *slog.Logger, reg prometheus.Registerer) (service.Repository, error) {
	badgerOpts := storage.DefaultBadgerOptions(cfg.Path)
	badgerOpts.GCInterval = cfg.Badger.GCInterval
	badgerOpts.GCDiscardRatio = cfg.Badger.GCThreshold
	badgerOpts.SyncWrites = cfg.Badger.SyncWrites

	return storage.Open(storage.Config{
		Engine:     cfg.Engine,
		Path:       cfg.Path,
		MailKey:    cfg.MailKey,
		Badger:     badgerOpts,
		Logger:     logger,
		Registerer: reg,
	})
}
