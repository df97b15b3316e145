package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

// MailService handles private mail between nodes.
type MailService struct {
	repo MailRepository
	opts options
}

// NewMailService creates a new MailService.
func NewMailService(repo MailRepository, opts ...Option) *MailService {
	return &MailService{
		repo: repo,
		opts: buildOptions(opts),
	}
}

// SendMailRequest contains parameters for sending mail.
type SendMailRequest struct {
	Sender          domain.NodeID
	SenderShortName string
	Recipient       domain.NodeID
	Subject         string
	Content         string

	// UniqueID is required for peer writes and generated for local ones.
	UniqueID string
	Origin   Origin
}

// Send stores a mail. Local mail is published to peers and the recipient
// gets a notification; mail from peers is only stored.
func (s *MailService) Send(ctx context.Context, req *SendMailRequest) (*domain.Mail, error) {
	m := &domain.Mail{
		Sender:          req.Sender,
		SenderShortName: req.SenderShortName,
		Recipient:       req.Recipient,
		Date:            s.opts.stamp(),
		Subject:         req.Subject,
		Content:         req.Content,
		UniqueID:        req.UniqueID,
	}
	if m.UniqueID == "" && req.Origin == OriginLocal {
		id, err := domain.NewUniqueID()
		if err != nil {
			return nil, err
		}
		m.UniqueID = id
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	id, err := s.repo.CreateMail(ctx, m)
	if err != nil {
		return nil, storageErr(err)
	}
	m.ID = id

	s.opts.logger.Info("mail stored",
		"sender", m.Sender,
		"recipient", m.Recipient,
		"unique_id", m.UniqueID,
		"origin", req.Origin.String())

	if req.Origin == OriginLocal {
		s.opts.publish(ctx, Event{Kind: EventMailCreated, Mail: m.Clone()})
		s.opts.announce(ctx, m.Recipient, NewMailNotice(m.SenderShortName))
	}
	return m, nil
}

// List returns the recipient's mailbox.
func (s *MailService) List(ctx context.Context, recipient domain.NodeID) ([]*domain.Mail, error) {
	list, err := s.repo.ListMail(ctx, recipient)
	if err != nil {
		return nil, storageErr(err)
	}
	return list, nil
}

// Count returns the size of the recipient's mailbox.
func (s *MailService) Count(ctx context.Context, recipient domain.NodeID) (int, error) {
	list, err := s.List(ctx, recipient)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// Read returns mail id if it is addressed to recipient.
func (s *MailService) Read(ctx context.Context, id int64, recipient domain.NodeID) (*domain.Mail, error) {
	m, err := s.repo.GetMail(ctx, id, recipient)
	if err != nil {
		return nil, storageErr(err)
	}
	return m, nil
}

// SenderOf returns the node that sent mail id.
func (s *MailService) SenderOf(ctx context.Context, id int64) (domain.NodeID, error) {
	sender, err := s.repo.MailSender(ctx, id)
	if err != nil {
		return "", storageErr(err)
	}
	return sender, nil
}

// All returns every stored mail.
func (s *MailService) All(ctx context.Context) ([]*domain.Mail, error) {
	list, err := s.repo.AllMail(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return list, nil
}

// Delete removes the recipient's mail with uniqueID. Local deletes are
// published to peers.
func (s *MailService) Delete(ctx context.Context, uniqueID string, recipient domain.NodeID, origin Origin) (int, error) {
	if uniqueID == "" {
		return 0, domain.ErrInvalidArgument.WithDetails("unique_id is required")
	}
	n, err := s.repo.DeleteMailByUniqueID(ctx, uniqueID, recipient)
	if err != nil {
		return 0, storageErr(err)
	}
	if origin == OriginLocal {
		s.opts.publish(ctx, Event{Kind: EventMailDeleted, UniqueID: uniqueID})
	}
	return n, nil
}

// ApplyRemoteDelete handles a delete received from a peer. The local row's
// recipient scopes the delete; an unknown uniqueID removes nothing.
func (s *MailService) ApplyRemoteDelete(ctx context.Context, uniqueID string) (int, error) {
	recipient, err := s.repo.MailRecipient(ctx, uniqueID)
	if errors.Is(err, domain.ErrMailNotFound) {
		s.opts.logger.Info("remote mail delete matched nothing", "unique_id", uniqueID)
		return 0, nil
	}
	if err != nil {
		return 0, storageErr(err)
	}
	return s.Delete(ctx, uniqueID, recipient, OriginPeer)
}

// NewMailNotice is the direct message sent to a mail recipient.
func NewMailNotice(senderShortName string) string {
	return fmt.Sprintf("You have a new mail message from %s. Check your mailbox by responding to this message with CM.", senderShortName)
}
