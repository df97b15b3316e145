package bbs

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
	"github.com/yndnr/meshbbs-go/internal/session"
	"github.com/yndnr/meshbbs-go/internal/telemetry/metric"
	"github.com/yndnr/meshbbs-go/internal/transport"
)

// Handler runs one dialogue.
type Handler interface {
	// Enter opens the dialogue, normally by sending its menu.
	Enter(ctx context.Context, t *Turn)

	// Step advances the dialogue by one normalized input.
	Step(ctx context.Context, t *Turn, st session.State, input string)
}

// Replicator consumes sync traffic. replication.Engine implements it.
type Replicator interface {
	IsPeer(id domain.NodeID) bool
	Receive(ctx context.Context, from domain.NodeID, text string) bool
}

// Outbound sends text of any length. transport.Chunker implements it.
type Outbound interface {
	Send(ctx context.Context, text string, to domain.NodeID) int
}

// Config holds the user-facing settings of a board.
type Config struct {
	// Name is shown in the main menu header.
	Name string

	// Boards are offered by the bulletin dialogue, in order.
	Boards []string

	Menus Menus

	// Fortunes are the lines the fortune utility picks from.
	Fortunes []string
}

// Deps are the collaborators a Router needs.
type Deps struct {
	Directory transport.Directory
	Sessions  session.Store
	Bulletins *service.BulletinService
	Mail      *service.MailService
	Channels  *service.ChannelService
	Out       Outbound

	// Sync may be nil on a node without peers.
	Sync Replicator
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithMetrics records routing and turn metrics.
func WithMetrics(m *metric.Registry) Option {
	return func(r *Router) { r.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithAllowList sets the nodes allowed to post to the urgent board.
func WithAllowList(a *AllowList) Option {
	return func(r *Router) { r.allow = a }
}

// Router classifies inbound messages and runs dialogue turns.
type Router struct {
	cfg Config

	dir       transport.Directory
	sessions  session.Store
	bulletins *service.BulletinService
	mail      *service.MailService
	channels  *service.ChannelService
	out       Outbound
	sync      Replicator

	allow    *AllowList
	locks    *session.KeyedMutex[domain.NodeID]
	handlers map[session.Tag]Handler

	now     func() time.Time
	logger  *slog.Logger
	metrics *metric.Registry
}

// NewRouter creates a Router with the standard dialogues registered.
func NewRouter(cfg Config, deps Deps, opts ...Option) *Router {
	if len(cfg.Boards) == 0 {
		cfg.Boards = domain.DefaultBoards
	}
	if len(cfg.Menus.Main) == 0 && len(cfg.Menus.BBS) == 0 && len(cfg.Menus.Utilities) == 0 {
		cfg.Menus = DefaultMenus()
	}
	if cfg.Name == "" {
		cfg.Name = "Mesh BBS"
	}

	r := &Router{
		cfg:       cfg,
		dir:       deps.Directory,
		sessions:  deps.Sessions,
		bulletins: deps.Bulletins,
		mail:      deps.Mail,
		channels:  deps.Channels,
		out:       deps.Out,
		sync:      deps.Sync,
		allow:     NewAllowList(),
		locks:     session.NewKeyedMutex[domain.NodeID](),
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.handlers = map[session.Tag]Handler{
		session.TagMainMenu:      mainMenu{r},
		session.TagBBSMenu:       bbsMenu{r},
		session.TagUtilitiesMenu: utilitiesMenu{r},
		session.TagMail:          mailDialogue{r},
		session.TagBulletin:      bulletinDialogue{r},
		session.TagChannel:       channelDialogue{r},
		session.TagStats:         statsDialogue{r},
		session.TagCheckMail:     checkMail{r},
		session.TagCheckBulletin: checkBulletin{r},
		session.TagCheckChannel:  checkChannel{r},
	}
	return r
}

// AllowList returns the urgent board allow-list, for hot reload.
func (r *Router) AllowList() *AllowList {
	return r.allow
}

// Handle processes one inbound message and sends the replies.
func (r *Router) Handle(ctx context.Context, in transport.Inbound) {
	start := r.now()

	if r.sync != nil && r.sync.IsPeer(in.From) {
		if r.sync.Receive(ctx, in.From, in.Text) {
			r.metrics.Inbound(metric.RouteSync)
			return
		}
		r.logger.Debug("ignoring non-sync message from peer", "peer", in.From)
		r.metrics.Inbound(metric.RouteIgnored)
		return
	}
	if !in.Direct(r.dir.Self()) {
		r.logger.Debug("ignoring group message", "from", in.From, "to", in.To)
		r.metrics.Inbound(metric.RouteIgnored)
		return
	}

	unlock := r.locks.Lock(in.From)
	defer unlock()

	t, route := r.process(ctx, in.From, in.Text)
	r.metrics.Inbound(route)

	for _, reply := range t.replies {
		r.out.Send(ctx, reply, in.From)
	}

	r.metrics.SetActiveSessions(r.sessions.Len())
	r.metrics.ObserveTurn(r.now().Sub(start))
}

// process runs one turn for a direct message and commits the session
// change without sending anything. The caller holds the sender's lock.
func (r *Router) process(ctx context.Context, from domain.NodeID, text string) (*Turn, string) {
	sender, ok := r.dir.Node(from)
	if !ok {
		sender = domain.NodeInfo{ID: from, BatteryLevel: domain.BatteryUnknown}
	}
	t := newTurn(from, sender, r.now())
	input := Normalize(text)

	route := metric.RouteMenu
	if cmd, ok := parseQuick(input); ok {
		route = metric.RouteQuick
		r.quick(ctx, t, cmd)
	} else if st, ok := r.sessions.Get(from); ok {
		h, known := r.handlers[st.Command]
		if known {
			route = metric.RouteDialogue
			h.Step(ctx, t, st, input)
		} else {
			r.logger.Warn("session with unknown command, resetting", "node", from, "command", string(st.Command))
			r.enter(ctx, t, session.TagMainMenu)
		}
	} else {
		r.enter(ctx, t, session.TagMainMenu)
	}

	r.commit(from, t)
	r.logger.Debug("turn done",
		"node", from,
		"route", route,
		"replies", len(t.replies))
	return t, route
}

func (r *Router) commit(from domain.NodeID, t *Turn) {
	st, ok, unchanged := t.Next()
	switch {
	case unchanged:
	case ok:
		r.sessions.Set(from, st)
	default:
		r.sessions.Clear(from)
	}
}

func (r *Router) enter(ctx context.Context, t *Turn, tag session.Tag) {
	r.handlers[tag].Enter(ctx, t)
}

func (r *Router) fortune() string {
	if len(r.cfg.Fortunes) == 0 {
		return "No fortunes available."
	}
	return "🔮 " + strings.TrimSpace(r.cfg.Fortunes[rand.IntN(len(r.cfg.Fortunes))]) + " 🔮"
}

// board returns the configured board matching input by index or initial
// letter.
func (r *Router) board(input string) (string, bool) {
	if i, ok := index(input); ok {
		if i < len(r.cfg.Boards) {
			return r.cfg.Boards[i], true
		}
		return "", false
	}
	for _, b := range r.cfg.Boards {
		if strings.EqualFold(b, input) {
			return b, true
		}
	}
	if len([]rune(input)) != 1 {
		return "", false
	}
	for _, b := range r.cfg.Boards {
		if b != "" && strings.EqualFold(string([]rune(b)[0]), input) {
			return b, true
		}
	}
	return "", false
}

// canPost applies the urgent board allow-list.
func (r *Router) canPost(from domain.NodeID, board string) bool {
	if !r.bulletins.IsUrgent(board) {
		return true
	}
	ok := r.allow.Permits(from)
	if !ok {
		r.logger.Info("urgent post refused", "node", from, "board", board)
	}
	return ok
}
