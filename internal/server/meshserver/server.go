package meshserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/yndnr/meshbbs-go/internal/bbs"
	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
	"github.com/yndnr/meshbbs-go/internal/replication"
	"github.com/yndnr/meshbbs-go/internal/server/config"
	"github.com/yndnr/meshbbs-go/internal/session"
	"github.com/yndnr/meshbbs-go/internal/telemetry/metric"
	"github.com/yndnr/meshbbs-go/internal/transport"
)

// laneBuffer is the queue depth of each worker lane.
const laneBuffer = 64

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("meshserver: already started")

// Deps are the resources a Server runs on. The Server takes ownership of
// Transport and Repository and closes them in Stop.
type Deps struct {
	Transport  transport.Transport
	Repository service.Repository

	// Metrics may be nil.
	Metrics *metric.Registry
	Logger  *slog.Logger

	// Pacer overrides the pacer built from transport.chunk_delay.
	Pacer transport.Pacer

	// Clock overrides time.Now for services and dialogues.
	Clock func() time.Time
}

// Server is one running BBS node.
type Server struct {
	cfg    *config.ServerConfig
	logger *slog.Logger
	now    func() time.Time

	radio    transport.Transport
	repo     service.Repository
	sessions *session.MemoryStore
	chunker  *transport.Chunker
	engine   *replication.Engine
	router   *bbs.Router

	lanes   []chan transport.Inbound
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
	started time.Time
	handled atomic.Int64
}

// New wires a Server from cfg. Nothing runs until Start.
func New(cfg *config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Transport == nil || deps.Repository == nil {
		return nil, errors.New("meshserver: transport and repository are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	pacer := deps.Pacer
	if pacer == nil {
		pacer = transport.NewRatePacer(cfg.Transport.ChunkDelay)
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger.With("component", "meshserver"),
		now:      now,
		radio:    deps.Transport,
		repo:     deps.Repository,
		sessions: session.NewMemoryStore(),
	}

	s.chunker = transport.NewChunker(deps.Transport,
		transport.WithPayloadLimit(cfg.Transport.PayloadLimit),
		transport.WithPacer(pacer),
		transport.WithLogger(logger.With("component", "chunker")),
		transport.WithMetrics(deps.Metrics),
	)

	s.engine = replication.NewEngine(replication.NewPeerSet(cfg.PeerIDs()...), s.chunker,
		replication.WithLogger(logger.With("component", "replication")),
		replication.WithMetrics(deps.Metrics),
		replication.WithPayloadLimit(cfg.Transport.PayloadLimit),
		replication.WithReassemblyTimeout(cfg.Sync.ReassemblyTimeout),
		replication.WithClock(now),
	)

	opts := []service.Option{
		service.WithPublisher(s.engine),
		service.WithAnnouncer(s.chunker),
		service.WithClock(now),
		service.WithLogger(logger.With("component", "service")),
		service.WithUrgentBoard(cfg.BBS.UrgentBoard),
		service.WithChannelReplication(cfg.Sync.ReplicateChannels),
	}
	bulletins := service.NewBulletinService(deps.Repository, opts...)
	mail := service.NewMailService(deps.Repository, opts...)
	channels := service.NewChannelService(deps.Repository, opts...)

	s.engine.Attach(&replication.ServiceApplier{
		Bulletins: bulletins,
		Mail:      mail,
		Channels:  channels,
	})

	var fortunes []string
	if path := cfg.BBS.FortunesFile; path != "" {
		lines, err := bbs.LoadFortunes(path)
		if err != nil {
			s.logger.Warn("fortunes unavailable", "path", path, "error", err)
		}
		fortunes = lines
	}

	s.router = bbs.NewRouter(bbs.Config{
		Name:   cfg.Node.Name,
		Boards: cfg.BBS.Boards,
		Menus: bbs.Menus{
			Main:      cfg.BBS.Menus.Main,
			BBS:       cfg.BBS.Menus.BBS,
			Utilities: cfg.BBS.Menus.Utilities,
		},
		Fortunes: fortunes,
	}, bbs.Deps{
		Directory: deps.Transport,
		Sessions:  s.sessions,
		Bulletins: bulletins,
		Mail:      mail,
		Channels:  channels,
		Out:       s.chunker,
		Sync:      s.engine,
	},
		bbs.WithLogger(logger.With("component", "router")),
		bbs.WithMetrics(deps.Metrics),
		bbs.WithClock(now),
		bbs.WithAllowList(bbs.NewAllowList(cfg.AllowedIDs()...)),
	)

	workers := cfg.BBS.Workers
	if workers < 1 {
		workers = 1
	}
	s.lanes = make([]chan transport.Inbound, workers)
	for i := range s.lanes {
		s.lanes[i] = make(chan transport.Inbound, laneBuffer)
	}
	return s, nil
}

// Start begins reading from the transport.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.started = s.now()

	var lanes sync.WaitGroup
	for i, lane := range s.lanes {
		lanes.Add(1)
		go func() {
			defer lanes.Done()
			s.work(ctx, i, lane)
		}()
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.dispatch(ctx)
		for _, lane := range s.lanes {
			close(lane)
		}
		lanes.Wait()
	}()
	go func() {
		defer s.wg.Done()
		s.sweep(ctx)
	}()

	s.logger.Info("mesh server started",
		"node", s.cfg.Node.Name,
		"self", s.radio.Self(),
		"workers", len(s.lanes),
		"peers", s.engine.Peers().Len(),
	)
	return nil
}

// Lane returns the worker lane for a sender.
func Lane(from domain.NodeID, lanes int) int {
	if lanes <= 1 {
		return 0
	}
	return int(murmur3.Sum32([]byte(from)) % uint32(lanes))
}

func (s *Server) dispatch(ctx context.Context) {
	inbound := s.radio.Inbound()
	for {
		select {
		case <-ctx.Done():
			return
		case in, ok := <-inbound:
			if !ok {
				s.logger.Info("transport inbound closed")
				return
			}
			select {
			case s.lanes[Lane(in.From, len(s.lanes))] <- in:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Server) work(ctx context.Context, id int, lane <-chan transport.Inbound) {
	for in := range lane {
		if ctx.Err() != nil {
			continue
		}
		s.handle(ctx, id, in)
	}
}

func (s *Server) handle(ctx context.Context, lane int, in transport.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while handling message",
				"lane", lane,
				"from", in.From,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	s.router.Handle(ctx, in)
	s.handled.Add(1)
}

func (s *Server) sweep(ctx context.Context) {
	interval := s.cfg.Sync.ReassemblyTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.engine.Sweep(ctx)
		}
	}
}

// Reload applies the settings that can change at runtime: the peer set and
// the urgent board allow-list.
func (s *Server) Reload(cfg *config.ServerConfig) {
	s.engine.Peers().Replace(cfg.PeerIDs())
	s.router.AllowList().Replace(cfg.AllowedIDs())
	s.logger.Info("configuration reloaded",
		"peers", s.engine.Peers().Len(),
		"allowed_nodes", s.router.AllowList().Len(),
	)
}

// Stop stops the workers and closes the transport and repository.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.cancel()
	closeErr := s.radio.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("meshserver: stop: %w", ctx.Err())
	}

	if err := s.repo.Close(); err != nil {
		return fmt.Errorf("meshserver: close repository: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("meshserver: close transport: %w", closeErr)
	}
	s.logger.Info("mesh server stopped", "handled", s.handled.Load())
	return nil
}

// Router returns the command router.
func (s *Server) Router() *bbs.Router {
	return s.router
}

// Engine returns the replication engine.
func (s *Server) Engine() *replication.Engine {
	return s.engine
}
