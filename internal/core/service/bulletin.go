package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

// BulletinService handles bulletin board operations.
type BulletinService struct {
	repo BulletinRepository
	opts options
}

// NewBulletinService creates a new BulletinService.
func NewBulletinService(repo BulletinRepository, opts ...Option) *BulletinService {
	return &BulletinService{
		repo: repo,
		opts: buildOptions(opts),
	}
}

// PostBulletinRequest contains parameters for posting a bulletin.
type PostBulletinRequest struct {
	Board           string
	SenderShortName string
	Subject         string
	Content         string

	// UniqueID is required for peer writes and generated for local ones.
	UniqueID string
	Origin   Origin
}

// Post stores a bulletin. Local posts are published to peers; posts to the
// urgent board are announced to the whole mesh whatever their origin.
func (s *BulletinService) Post(ctx context.Context, req *PostBulletinRequest) (*domain.Bulletin, error) {
	b := &domain.Bulletin{
		Board:           strings.TrimSpace(req.Board),
		SenderShortName: req.SenderShortName,
		Date:            s.opts.stamp(),
		Subject:         req.Subject,
		Content:         req.Content,
		UniqueID:        req.UniqueID,
	}
	if b.UniqueID == "" && req.Origin == OriginLocal {
		id, err := domain.NewUniqueID()
		if err != nil {
			return nil, err
		}
		b.UniqueID = id
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	id, err := s.repo.CreateBulletin(ctx, b)
	if err != nil {
		return nil, storageErr(err)
	}
	b.ID = id

	s.opts.logger.Info("bulletin stored",
		"board", b.Board,
		"unique_id", b.UniqueID,
		"origin", req.Origin.String())

	if req.Origin == OriginLocal {
		s.opts.publish(ctx, Event{Kind: EventBulletinCreated, Bulletin: b.Clone()})
	}
	if s.IsUrgent(b.Board) {
		s.opts.announce(ctx, domain.Broadcast, UrgentNotice(b.SenderShortName, b.Subject))
	}
	return b, nil
}

// List returns the bulletins on board in id order.
func (s *BulletinService) List(ctx context.Context, board string) ([]*domain.Bulletin, error) {
	list, err := s.repo.ListBulletins(ctx, board)
	if err != nil {
		return nil, storageErr(err)
	}
	return list, nil
}

// Get returns a single bulletin by local id.
func (s *BulletinService) Get(ctx context.Context, id int64) (*domain.Bulletin, error) {
	b, err := s.repo.GetBulletin(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	return b, nil
}

// All returns every bulletin on every board.
func (s *BulletinService) All(ctx context.Context) ([]*domain.Bulletin, error) {
	list, err := s.repo.AllBulletins(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return list, nil
}

// Delete removes the bulletin with uniqueID. Local deletes are published
// even when nothing matched locally, so peers still converge.
func (s *BulletinService) Delete(ctx context.Context, uniqueID string, origin Origin) (int, error) {
	if uniqueID == "" {
		return 0, domain.ErrInvalidArgument.WithDetails("unique_id is required")
	}
	n, err := s.repo.DeleteBulletinByUniqueID(ctx, uniqueID)
	if err != nil {
		return 0, storageErr(err)
	}
	if origin == OriginLocal {
		s.opts.publish(ctx, Event{Kind: EventBulletinDeleted, UniqueID: uniqueID})
	}
	return n, nil
}

// IsUrgent reports whether board is the restricted urgent board.
func (s *BulletinService) IsUrgent(board string) bool {
	return domain.SameBoard(board, s.opts.urgentBoard)
}

// UrgentNotice is the broadcast text for a new urgent bulletin.
func UrgentNotice(senderShortName, subject string) string {
	return fmt.Sprintf("💥NEW URGENT BULLETIN💥\nFrom: %s\nTitle: %s", senderShortName, subject)
}
