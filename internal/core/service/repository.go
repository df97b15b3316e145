package service

import (
	"context"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

// BulletinRepository defines the storage interface for bulletins.
type BulletinRepository interface {
	// CreateBulletin stores b and returns its local row id.
	CreateBulletin(ctx context.Context, b *domain.Bulletin) (int64, error)

	// ListBulletins returns the bulletins on board (case-insensitive) in id order.
	ListBulletins(ctx context.Context, board string) ([]*domain.Bulletin, error)

	// GetBulletin returns domain.ErrBulletinNotFound when id does not exist.
	GetBulletin(ctx context.Context, id int64) (*domain.Bulletin, error)

	// DeleteBulletinByUniqueID returns the number of rows removed.
	DeleteBulletinByUniqueID(ctx context.Context, uniqueID string) (int, error)

	// AllBulletins returns every bulletin in id order.
	AllBulletins(ctx context.Context) ([]*domain.Bulletin, error)
}

// MailRepository defines the storage interface for mail. Reads and deletes
// that take a recipient match only rows addressed to that recipient.
type MailRepository interface {
	// CreateMail stores m and returns its local row id.
	CreateMail(ctx context.Context, m *domain.Mail) (int64, error)

	// ListMail returns the recipient's mailbox in id order.
	ListMail(ctx context.Context, recipient domain.NodeID) ([]*domain.Mail, error)

	// GetMail returns domain.ErrMailNotFound when id does not exist or is
	// addressed to someone else.
	GetMail(ctx context.Context, id int64, recipient domain.NodeID) (*domain.Mail, error)

	// MailSender returns the sender of mail id.
	MailSender(ctx context.Context, id int64) (domain.NodeID, error)

	// MailRecipient returns the recipient of the mail with uniqueID.
	MailRecipient(ctx context.Context, uniqueID string) (domain.NodeID, error)

	// DeleteMailByUniqueID returns the number of rows removed.
	DeleteMailByUniqueID(ctx context.Context, uniqueID string, recipient domain.NodeID) (int, error)

	// AllMail returns every mail in id order.
	AllMail(ctx context.Context) ([]*domain.Mail, error)
}

// ChannelRepository defines the storage interface for the channel directory.
type ChannelRepository interface {
	CreateChannel(ctx context.Context, c *domain.Channel) (int64, error)
	ListChannels(ctx context.Context) ([]*domain.Channel, error)
	DeleteChannel(ctx context.Context, id int64) error
}

// Repository is a complete BBS store.
type Repository interface {
	BulletinRepository
	MailRepository
	ChannelRepository
	Close() error
}
