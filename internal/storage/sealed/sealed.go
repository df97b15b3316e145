// Package sealed encrypts mail content at rest.
//
// Repository wraps another service.Repository and seals Mail.Content with
// XChaCha20-Poly1305 before it reaches the store. The key is derived from the
// configured passphrase with HKDF-SHA256. Sealed values are stored as
// "sealed:v1:" followed by base64(nonce || ciphertext) and bound to the mail's
// unique_id. Rows written before sealing was enabled are returned unchanged.
package sealed

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
)

const (
	prefix = "sealed:v1:"

	// MinKeyLength is the shortest accepted passphrase.
	MinKeyLength = 16

	hkdfSalt = "meshbbs/mail-at-rest"
	hkdfInfo = "mail.content v1"
)

var (
	ErrKeyTooShort  = errors.New("sealed: mail key too short (minimum 16 bytes)")
	ErrOpenFailed   = errors.New("sealed: cannot open mail content - wrong key or corrupted data")
	ErrMalformedRow = errors.New("sealed: malformed sealed value")
)

// Repository seals mail content on write and opens it on read.
type Repository struct {
	service.Repository
	aead cipher.AEAD
}

var _ service.Repository = (*Repository)(nil)

// New wraps inner with mail sealing under a key derived from passphrase.
func New(inner service.Repository, passphrase []byte) (*Repository, error) {
	aead, err := newAEAD(passphrase)
	if err != nil {
		return nil, err
	}
	return &Repository{Repository: inner, aead: aead}, nil
}

func newAEAD(passphrase []byte) (cipher.AEAD, error) {
	if len(passphrase) < MinKeyLength {
		return nil, ErrKeyTooShort
	}
	key := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, passphrase, []byte(hkdfSalt), []byte(hkdfInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("sealed: derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("sealed: new cipher: %w", err)
	}
	return aead, nil
}

// IsSealed reports whether a stored value is sealed.
func IsSealed(v string) bool {
	return strings.HasPrefix(v, prefix)
}

func (r *Repository) seal(plaintext, uid string) (string, error) {
	nonce := make([]byte, r.aead.NonceSize(), r.aead.NonceSize()+len(plaintext)+r.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("sealed: nonce: %w", err)
	}
	out := r.aead.Seal(nonce, nonce, []byte(plaintext), []byte(uid))
	return prefix + base64.StdEncoding.EncodeToString(out), nil
}

func (r *Repository) open(stored, uid string) (string, error) {
	if !IsSealed(stored) {
		return stored, nil
	}
	raw, err := base64.StdEncoding.DecodeString(stored[len(prefix):])
	if err != nil || len(raw) < r.aead.NonceSize() {
		return "", ErrMalformedRow
	}
	nonce, ct := raw[:r.aead.NonceSize()], raw[r.aead.NonceSize():]
	pt, err := r.aead.Open(nil, nonce, ct, []byte(uid))
	if err != nil {
		return "", ErrOpenFailed
	}
	return string(pt), nil
}

func (r *Repository) openMail(m *domain.Mail) error {
	content, err := r.open(m.Content, m.UniqueID)
	if err != nil {
		return fmt.Errorf("mail %d: %w", m.ID, err)
	}
	m.Content = content
	return nil
}

func (r *Repository) openAll(list []*domain.Mail, err error) ([]*domain.Mail, error) {
	if err != nil {
		return nil, err
	}
	for _, m := range list {
		if err := r.openMail(m); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// CreateMail seals the content and stores the mail.
func (r *Repository) CreateMail(ctx context.Context, m *domain.Mail) (int64, error) {
	c := m.Clone()
	sealed, err := r.seal(c.Content, c.UniqueID)
	if err != nil {
		return 0, err
	}
	c.Content = sealed
	return r.Repository.CreateMail(ctx, c)
}

// ListMail returns the recipient's mail with content opened.
func (r *Repository) ListMail(ctx context.Context, recipient domain.NodeID) ([]*domain.Mail, error) {
	return r.openAll(r.Repository.ListMail(ctx, recipient))
}

// GetMail returns one mail with content opened.
func (r *Repository) GetMail(ctx context.Context, id int64, recipient domain.NodeID) (*domain.Mail, error) {
	m, err := r.Repository.GetMail(ctx, id, recipient)
	if err != nil {
		return nil, err
	}
	if err := r.openMail(m); err != nil {
		return nil, err
	}
	return m, nil
}

// AllMail returns every mail with content opened.
func (r *Repository) AllMail(ctx context.Context) ([]*domain.Mail, error) {
	return r.openAll(r.Repository.AllMail(ctx))
}
