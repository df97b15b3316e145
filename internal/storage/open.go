package storage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/meshbbs-go/internal/core/service"
	"github.com/yndnr/meshbbs-go/internal/storage/memory"
	"github.com/yndnr/meshbbs-go/internal/storage/sealed"
	"github.com/yndnr/meshbbs-go/internal/storage/sqlstore"
)

// Engine names accepted by Open.
const (
	EngineSQLite = "sqlite"
	EngineBadger = "badger"
	EngineMemory = "memory"
)

// Config selects and configures a storage engine.
type Config struct {
	// Engine is one of EngineSQLite, EngineBadger or EngineMemory.
	Engine string

	// Path is the sqlite file or the badger directory.
	Path string

	// MailKey enables sealing of mail content when non-empty.
	MailKey string

	// Badger tunes the badger engine. Dir and Logger are taken from Path
	// and Logger.
	Badger BadgerOptions

	Logger *slog.Logger

	// Registerer receives engine metrics when set.
	Registerer prometheus.Registerer
}

// Open opens the configured engine.
func Open(cfg Config) (service.Repository, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		repo service.Repository
		err  error
	)
	switch strings.ToLower(cfg.Engine) {
	case "", EngineSQLite:
		repo, err = sqlstore.Open(cfg.Path, logger)
	case EngineBadger:
		opts := cfg.Badger
		opts.Dir, opts.Logger = cfg.Path, logger
		var db *Badger
		if db, err = OpenBadger(opts); err == nil {
			if cfg.Registerer != nil {
				cfg.Registerer.MustRegister(db.Collector())
			}
			repo = NewKVRepository(db)
		}
	case EngineMemory:
		repo = memory.New()
	default:
		return nil, fmt.Errorf("storage: unknown engine %q", cfg.Engine)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", cfg.Engine, err)
	}

	if cfg.MailKey != "" {
		s, err := sealed.New(repo, []byte(cfg.MailKey))
		if err != nil {
			_ = repo.Close()
			return nil, err
		}
		logger.Info("mail sealing enabled")
		repo = s
	}
	return repo, nil
}
