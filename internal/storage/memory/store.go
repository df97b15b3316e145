package memory

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
	"github.com/yndnr/meshbbs-go/pkg/cmap"
)

// Store keeps bulletins, mail and channels in memory.
type Store struct {
	bulletins *cmap.Map[int64, *domain.Bulletin]
	mail      *cmap.Map[int64, *domain.Mail]
	channels  *cmap.Map[int64, *domain.Channel]

	bulletinSeq atomic.Int64
	mailSeq     atomic.Int64
	channelSeq  atomic.Int64
}

var _ service.Repository = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		bulletins: cmap.New[int64, *domain.Bulletin](),
		mail:      cmap.New[int64, *domain.Mail](),
		channels:  cmap.New[int64, *domain.Channel](),
	}
}

// CreateBulletin stores a copy of b and returns its id.
func (s *Store) CreateBulletin(_ context.Context, b *domain.Bulletin) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	c := b.Clone()
	c.ID = s.bulletinSeq.Add(1)
	s.bulletins.Set(c.ID, c)
	return c.ID, nil
}

// ListBulletins returns the bulletins on board in id order.
func (s *Store) ListBulletins(_ context.Context, board string) ([]*domain.Bulletin, error) {
	var out []*domain.Bulletin
	s.bulletins.Range(func(_ int64, b *domain.Bulletin) bool {
		if domain.SameBoard(b.Board, board) {
			out = append(out, b.Clone())
		}
		return true
	})
	sortBulletins(out)
	return out, nil
}

// GetBulletin returns a bulletin by id.
func (s *Store) GetBulletin(_ context.Context, id int64) (*domain.Bulletin, error) {
	b, ok := s.bulletins.Get(id)
	if !ok {
		return nil, domain.ErrBulletinNotFound
	}
	return b.Clone(), nil
}

// DeleteBulletinByUniqueID removes every bulletin carrying uid.
func (s *Store) DeleteBulletinByUniqueID(_ context.Context, uid string) (int, error) {
	return s.bulletins.DeleteIf(func(_ int64, b *domain.Bulletin) bool {
		return b.UniqueID == uid
	}), nil
}

// AllBulletins returns every bulletin in id order.
func (s *Store) AllBulletins(_ context.Context) ([]*domain.Bulletin, error) {
	out := make([]*domain.Bulletin, 0, s.bulletins.Count())
	for _, b := range s.bulletins.Values() {
		out = append(out, b.Clone())
	}
	sortBulletins(out)
	return out, nil
}

// CreateMail stores a copy of m and returns its id.
func (s *Store) CreateMail(_ context.Context, m *domain.Mail) (int64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	c := m.Clone()
	c.ID = s.mailSeq.Add(1)
	s.mail.Set(c.ID, c)
	return c.ID, nil
}

// ListMail returns the recipient's mail in id order.
func (s *Store) ListMail(_ context.Context, recipient domain.NodeID) ([]*domain.Mail, error) {
	var out []*domain.Mail
	s.mail.Range(func(_ int64, m *domain.Mail) bool {
		if m.OwnedBy(recipient) {
			out = append(out, m.Clone())
		}
		return true
	})
	sortMail(out)
	return out, nil
}

// GetMail returns mail id if it is addressed to recipient.
func (s *Store) GetMail(_ context.Context, id int64, recipient domain.NodeID) (*domain.Mail, error) {
	m, ok := s.mail.Get(id)
	if !ok || !m.OwnedBy(recipient) {
		return nil, domain.ErrMailNotFound
	}
	return m.Clone(), nil
}

// MailSender returns the sender of mail id.
func (s *Store) MailSender(_ context.Context, id int64) (domain.NodeID, error) {
	m, ok := s.mail.Get(id)
	if !ok {
		return "", domain.ErrMailNotFound
	}
	return m.Sender, nil
}

// MailRecipient returns the recipient of the lowest-id mail carrying uid.
func (s *Store) MailRecipient(_ context.Context, uid string) (domain.NodeID, error) {
	var (
		found domain.NodeID
		minID int64
	)
	s.mail.Range(func(id int64, m *domain.Mail) bool {
		if m.UniqueID == uid && (minID == 0 || id < minID) {
			found, minID = m.Recipient, id
		}
		return true
	})
	if minID == 0 {
		return "", domain.ErrMailNotFound
	}
	return found, nil
}

// DeleteMailByUniqueID removes the recipient's mail carrying uid.
func (s *Store) DeleteMailByUniqueID(_ context.Context, uid string, recipient domain.NodeID) (int, error) {
	return s.mail.DeleteIf(func(_ int64, m *domain.Mail) bool {
		return m.UniqueID == uid && m.OwnedBy(recipient)
	}), nil
}

// AllMail returns every mail in id order.
func (s *Store) AllMail(_ context.Context) ([]*domain.Mail, error) {
	out := make([]*domain.Mail, 0, s.mail.Count())
	for _, m := range s.mail.Values() {
		out = append(out, m.Clone())
	}
	sortMail(out)
	return out, nil
}

// CreateChannel stores a copy of c and returns its id.
func (s *Store) CreateChannel(_ context.Context, c *domain.Channel) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	cc := *c
	cc.ID = s.channelSeq.Add(1)
	s.channels.Set(cc.ID, &cc)
	return cc.ID, nil
}

// ListChannels returns the directory in id order.
func (s *Store) ListChannels(_ context.Context) ([]*domain.Channel, error) {
	out := make([]*domain.Channel, 0, s.channels.Count())
	for _, c := range s.channels.Values() {
		cc := *c
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteChannel removes a directory entry.
func (s *Store) DeleteChannel(_ context.Context, id int64) error {
	if _, ok := s.channels.Pop(id); !ok {
		return domain.ErrChannelNotFound
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func sortBulletins(list []*domain.Bulletin) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}

func sortMail(list []*domain.Mail) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}
