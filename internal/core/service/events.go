package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

// Origin tells a service where a write came from.
type Origin int

const (
	// OriginLocal is a write made by a user of this node.
	OriginLocal Origin = iota
	// OriginPeer is a write received from a trusted peer.
	OriginPeer
)

func (o Origin) String() string {
	if o == OriginPeer {
		return "peer"
	}
	return "local"
}

// EventKind identifies a replicated change.
type EventKind int

const (
	EventBulletinCreated EventKind = iota + 1
	EventMailCreated
	EventBulletinDeleted
	EventMailDeleted
	EventChannelCreated
)

func (k EventKind) String() string {
	switch k {
	case EventBulletinCreated:
		return "bulletin_created"
	case EventMailCreated:
		return "mail_created"
	case EventBulletinDeleted:
		return "bulletin_deleted"
	case EventMailDeleted:
		return "mail_deleted"
	case EventChannelCreated:
		return "channel_created"
	default:
		return "unknown"
	}
}

// Event is a local change that peers should learn about. Exactly one of the
// payload fields is set, matching Kind; deletes carry only UniqueID.
type Event struct {
	Kind     EventKind
	Bulletin *domain.Bulletin
	Mail     *domain.Mail
	Channel  *domain.Channel
	UniqueID string
}

// Publisher forwards local changes to peers. Publishing is best effort:
// implementations log failures instead of returning them.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Announcer sends a plain text notification over the radio.
type Announcer interface {
	Announce(ctx context.Context, to domain.NodeID, text string) error
}

// Option configures a service.
type Option func(*options)

type options struct {
	publisher         Publisher
	announcer         Announcer
	now               func() time.Time
	logger            *slog.Logger
	urgentBoard       string
	replicateChannels bool
}

// WithPublisher sets the replication sink.
func WithPublisher(p Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithAnnouncer sets the notification sink.
func WithAnnouncer(a Announcer) Option {
	return func(o *options) { o.announcer = a }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithUrgentBoard names the board whose posts are announced to everyone.
func WithUrgentBoard(board string) Option {
	return func(o *options) { o.urgentBoard = board }
}

// WithChannelReplication enables publishing of new channel directory entries.
func WithChannelReplication(enabled bool) Option {
	return func(o *options) { o.replicateChannels = enabled }
}

func buildOptions(opts []Option) options {
	o := options{
		now:         time.Now,
		logger:      slog.Default(),
		urgentBoard: domain.DefaultUrgentBoard,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o *options) publish(ctx context.Context, ev Event) {
	if o.publisher != nil {
		o.publisher.Publish(ctx, ev)
	}
}

func (o *options) announce(ctx context.Context, to domain.NodeID, text string) {
	if o.announcer == nil {
		return
	}
	if err := o.announcer.Announce(ctx, to, text); err != nil {
		o.logger.Warn("notification failed", "to", to, "error", err)
	}
}

func (o *options) stamp() time.Time {
	return o.now().Truncate(time.Minute)
}

// storageErr keeps domain errors as they are and wraps everything else.
func storageErr(err error) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.ErrStorageError.WithCause(err)
}
