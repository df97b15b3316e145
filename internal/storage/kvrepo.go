package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
)

// Key prefixes. Keys are prefix + big-endian id, so a prefix scan is id order.
var (
	prefixBulletin = []byte("bulletin/")
	prefixMail     = []byte("mail/")
	prefixChannel  = []byte("channel/")
)

// KVRepository stores rows as JSON values in a KV.
type KVRepository struct {
	kv KV
}

var _ service.Repository = (*KVRepository)(nil)

// NewKVRepository wraps kv. Closing the repository closes kv.
func NewKVRepository(kv KV) *KVRepository {
	return &KVRepository{kv: kv}
}

func rowKey(prefix []byte, id int64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], uint64(id))
	return key
}

func (r *KVRepository) put(ctx context.Context, prefix []byte, seq string, v interface{ setID(int64) }) (int64, error) {
	id, err := r.kv.NextID(seq)
	if err != nil {
		return 0, err
	}
	v.setID(id)
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", seq, err)
	}
	if err := r.kv.Put(ctx, rowKey(prefix, id), data); err != nil {
		return 0, err
	}
	return id, nil
}

type bulletinRow struct{ *domain.Bulletin }

func (b bulletinRow) setID(id int64) { b.ID = id }

type mailRow struct{ *domain.Mail }

func (m mailRow) setID(id int64) { m.ID = id }

type channelRow struct{ *domain.Channel }

func (c channelRow) setID(id int64) { c.ID = id }

func scanAll[T any](ctx context.Context, kv KV, prefix []byte, keep func(*T) bool) ([]*T, error) {
	var (
		out     []*T
		decodeE error
	)
	err := kv.Scan(ctx, prefix, func(_, value []byte) bool {
		v := new(T)
		if err := json.Unmarshal(value, v); err != nil {
			decodeE = err
			return false
		}
		if keep == nil || keep(v) {
			out = append(out, v)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if decodeE != nil {
		return nil, fmt.Errorf("decode row: %w", decodeE)
	}
	return out, nil
}

func getRow[T any](ctx context.Context, kv KV, prefix []byte, id int64) (*T, error) {
	data, err := kv.Get(ctx, rowKey(prefix, id))
	if err != nil {
		return nil, err
	}
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return v, nil
}

func deleteRows[T any](ctx context.Context, kv KV, prefix []byte, match func(*T) bool) (int, error) {
	return kv.DeleteIf(ctx, prefix, func(_, value []byte) bool {
		v := new(T)
		if err := json.Unmarshal(value, v); err != nil {
			return false
		}
		return match(v)
	})
}

// CreateBulletin stores b and returns its id.
func (r *KVRepository) CreateBulletin(ctx context.Context, b *domain.Bulletin) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	return r.put(ctx, prefixBulletin, "bulletin", bulletinRow{b.Clone()})
}

// ListBulletins returns the bulletins on board in id order.
func (r *KVRepository) ListBulletins(ctx context.Context, board string) ([]*domain.Bulletin, error) {
	return scanAll(ctx, r.kv, prefixBulletin, func(b *domain.Bulletin) bool {
		return domain.SameBoard(b.Board, board)
	})
}

// GetBulletin returns a bulletin by id.
func (r *KVRepository) GetBulletin(ctx context.Context, id int64) (*domain.Bulletin, error) {
	b, err := getRow[domain.Bulletin](ctx, r.kv, prefixBulletin, id)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, domain.ErrBulletinNotFound
	}
	return b, err
}

// DeleteBulletinByUniqueID removes every bulletin carrying uid.
func (r *KVRepository) DeleteBulletinByUniqueID(ctx context.Context, uid string) (int, error) {
	return deleteRows(ctx, r.kv, prefixBulletin, func(b *domain.Bulletin) bool {
		return b.UniqueID == uid
	})
}

// AllBulletins returns every bulletin in id order.
func (r *KVRepository) AllBulletins(ctx context.Context) ([]*domain.Bulletin, error) {
	return scanAll[domain.Bulletin](ctx, r.kv, prefixBulletin, nil)
}

// CreateMail stores m and returns its id.
func (r *KVRepository) CreateMail(ctx context.Context, m *domain.Mail) (int64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	return r.put(ctx, prefixMail, "mail", mailRow{m.Clone()})
}

// ListMail returns the recipient's mail in id order.
func (r *KVRepository) ListMail(ctx context.Context, recipient domain.NodeID) ([]*domain.Mail, error) {
	return scanAll(ctx, r.kv, prefixMail, func(m *domain.Mail) bool {
		return m.OwnedBy(recipient)
	})
}

// GetMail returns mail id if it is addressed to recipient.
func (r *KVRepository) GetMail(ctx context.Context, id int64, recipient domain.NodeID) (*domain.Mail, error) {
	m, err := getRow[domain.Mail](ctx, r.kv, prefixMail, id)
	if errors.Is(err, ErrKeyNotFound) || (err == nil && !m.OwnedBy(recipient)) {
		return nil, domain.ErrMailNotFound
	}
	return m, err
}

// MailSender returns the sender of mail id.
func (r *KVRepository) MailSender(ctx context.Context, id int64) (domain.NodeID, error) {
	m, err := getRow[domain.Mail](ctx, r.kv, prefixMail, id)
	if errors.Is(err, ErrKeyNotFound) {
		return "", domain.ErrMailNotFound
	}
	if err != nil {
		return "", err
	}
	return m.Sender, nil
}

// MailRecipient returns the recipient of the lowest-id mail carrying uid.
func (r *KVRepository) MailRecipient(ctx context.Context, uid string) (domain.NodeID, error) {
	var (
		found   domain.NodeID
		decodeE error
	)
	err := r.kv.Scan(ctx, prefixMail, func(_, value []byte) bool {
		var m domain.Mail
		if err := json.Unmarshal(value, &m); err != nil {
			decodeE = err
			return false
		}
		if m.UniqueID == uid {
			found = m.Recipient
			return false
		}
		return true
	})
	if err != nil {
		return "", err
	}
	if decodeE != nil {
		return "", fmt.Errorf("decode row: %w", decodeE)
	}
	if found == "" {
		return "", domain.ErrMailNotFound
	}
	return found, nil
}

// DeleteMailByUniqueID removes the recipient's mail carrying uid.
func (r *KVRepository) DeleteMailByUniqueID(ctx context.Context, uid string, recipient domain.NodeID) (int, error) {
	return deleteRows(ctx, r.kv, prefixMail, func(m *domain.Mail) bool {
		return m.UniqueID == uid && m.OwnedBy(recipient)
	})
}

// AllMail returns every mail in id order.
func (r *KVRepository) AllMail(ctx context.Context) ([]*domain.Mail, error) {
	return scanAll[domain.Mail](ctx, r.kv, prefixMail, nil)
}

// CreateChannel stores c and returns its id.
func (r *KVRepository) CreateChannel(ctx context.Context, c *domain.Channel) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	cc := *c
	return r.put(ctx, prefixChannel, "channel", channelRow{&cc})
}

// ListChannels returns the directory in id order.
func (r *KVRepository) ListChannels(ctx context.Context) ([]*domain.Channel, error) {
	return scanAll[domain.Channel](ctx, r.kv, prefixChannel, nil)
}

// DeleteChannel removes a directory entry.
func (r *KVRepository) DeleteChannel(ctx context.Context, id int64) error {
	key := rowKey(prefixChannel, id)
	if _, err := r.kv.Get(ctx, key); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return domain.ErrChannelNotFound
		}
		return err
	}
	return r.kv.Delete(ctx, key)
}

// Close closes the underlying engine.
func (r *KVRepository) Close() error {
	return r.kv.Close()
}
