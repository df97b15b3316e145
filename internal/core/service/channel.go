package service

import (
	"context"
	"strings"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

// ChannelService manages the channel directory.
type ChannelService struct {
	repo ChannelRepository
	opts options
}

// NewChannelService creates a new ChannelService.
func NewChannelService(repo ChannelRepository, opts ...Option) *ChannelService {
	return &ChannelService{
		repo: repo,
		opts: buildOptions(opts),
	}
}

// Add stores a directory entry. Local entries are published only when
// channel replication is enabled.
func (s *ChannelService) Add(ctx context.Context, name, url string, origin Origin) (*domain.Channel, error) {
	c := &domain.Channel{
		Name: strings.TrimSpace(name),
		URL:  strings.TrimSpace(url),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	id, err := s.repo.CreateChannel(ctx, c)
	if err != nil {
		return nil, storageErr(err)
	}
	c.ID = id

	s.opts.logger.Info("channel stored", "name", c.Name, "origin", origin.String())

	if origin == OriginLocal && s.opts.replicateChannels {
		cc := *c
		s.opts.publish(ctx, Event{Kind: EventChannelCreated, Channel: &cc})
	}
	return c, nil
}

// List returns the directory in id order.
func (s *ChannelService) List(ctx context.Context) ([]*domain.Channel, error) {
	list, err := s.repo.ListChannels(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return list, nil
}

// Delete removes a directory entry by local id. Deletes are never replicated.
func (s *ChannelService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteChannel(ctx, id); err != nil {
		return storageErr(err)
	}
	return nil
}
