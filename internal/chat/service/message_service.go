package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gochat/internal/chat"
	"gochat/internal/chat/guard"
	"gochat/internal/chat/models"
	"gochat/internal/chat/repository"
	"gochat/internal/common"
)

const forwardPrefix = "Forwarded: "

// SendInput addresses either an existing conversation or, with RecipientID
// only, the direct conversation with that user.
type SendInput struct {
	ConversationID string              `json:"conversationId,omitempty"`
	RecipientID    string              `json:"recipientId,omitempty"`
	SenderID       string              `json:"-"`
	Text           string              `json:"text"`
	Attachments    []models.Attachment `json:"attachments,omitempty"`
}

type ForwardInput struct {
	MessageIDs            []string `json:"messageIds"`
	TargetConversationIDs []string `json:"targetConversationIds"`
	ActorID               string   `json:"-"`
}

type ForwardFailure struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	Error          string `json:"error"`
}

// ForwardResult lists what was created, in creation order, and the pairs that failed.
type ForwardResult struct {
	Messages []models.MessageView `json:"messages"`
	Failures []ForwardFailure     `json:"failures,omitempty"`
}

// MessageService applies every message mutation. Each one is authorized
// before it touches the store, and each committed change is published to the
// conversation's room with the full projection.
type MessageService interface {
	Send(ctx context.Context, in SendInput) (*models.MessageView, error)
	Edit(ctx context.Context, messageID, actorID, text string) (*models.MessageView, error)
	Delete(ctx context.Context, messageID, actorID string) error
	React(ctx context.Context, messageID, actorID, emoji string) (*models.MessageView, error)
	Pin(ctx context.Context, messageID, actorID string) (*models.MessageView, error)
	UpdateStatus(ctx context.Context, messageID, actorID string, status models.MessageStatus) (*models.MessageView, error)
	Forward(ctx context.Context, in ForwardInput) (*ForwardResult, error)
}

type messageService struct {
	messages  repository.MessageRepository
	convs     ConversationService
	guard     *guard.Guard
	projector *Projector
	publisher chat.Publisher
	log       zerolog.Logger
	now       func() time.Time
}

func NewMessageService(
	messages repository.MessageRepository,
	convs ConversationService,
	g *guard.Guard,
	projector *Projector,
	publisher chat.Publisher,
	log zerolog.Logger,
) MessageService {
	return &messageService{
		messages:  messages,
		convs:     convs,
		guard:     g,
		projector: projector,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *messageService) Send(ctx context.Context, in SendInput) (*models.MessageView, error) {
	if in.SenderID == "" {
		return nil, common.ValidationError("sender id is required")
	}
	if strings.TrimSpace(in.Text) == "" && len(in.Attachments) == 0 {
		return nil, common.ValidationError("message text or attachments are required")
	}
	if err := validateAttachments(in.Attachments); err != nil {
		return nil, err
	}

	conv, err := s.ensureConversation(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireParticipant(conv, in.SenderID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:             models.NewID(),
		ConversationID: conv.ID,
		SenderID:       in.SenderID,
		Text:           in.Text,
		Timestamp:      s.now(),
		Status:         models.StatusSent,
		Attachments:    append([]models.Attachment(nil), in.Attachments...),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.convs.RefreshPreview(ctx, conv.ID, msg.PreviewText(), msg.Timestamp); err != nil {
		return nil, err
	}

	view, err := s.projector.Message(ctx, msg)
	if err != nil {
		return nil, err
	}
	mutations.WithLabelValues("send").Inc()
	s.publisher.Publish(conv.ID, chat.EventMessageNew, view)
	return view, nil
}

func (s *messageService) ensureConversation(ctx context.Context, in SendInput) (*models.Conversation, error) {
	if in.ConversationID != "" {
		return s.convs.Get(ctx, in.ConversationID)
	}
	if in.RecipientID == "" {
		return nil, common.ValidationError("conversation id or recipient id is required")
	}
	conv, _, err := s.convs.FindOrCreateDirect(ctx, in.SenderID, in.RecipientID)
	return conv, err
}

func validateAttachments(attachments []models.Attachment) error {
	for i, a := range attachments {
		if !a.Kind.IsValid() {
			return common.ValidationError("attachment %d has unknown type %q", i, a.Kind)
		}
		if strings.TrimSpace(a.URL) == "" {
			return common.ValidationError("attachment %d has no url", i)
		}
	}
	return nil
}

func (s *messageService) Edit(ctx context.Context, messageID, actorID, text string) (*models.MessageView, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireSender(msg, actorID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" && len(msg.Attachments) == 0 {
		return nil, common.ValidationError("message text cannot be empty")
	}

	now := s.now()
	msg.Text = text
	msg.Edited = true
	msg.EditedAt = &now
	return s.commitUpdate(ctx, msg, "edit")
}

func (s *messageService) Delete(ctx context.Context, messageID, actorID string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if err := s.guard.RequireSender(msg, actorID); err != nil {
		return err
	}
	if err := s.messages.Delete(ctx, msg.ID); err != nil {
		return err
	}

	mutations.WithLabelValues("delete").Inc()
	s.publisher.Publish(msg.ConversationID, chat.EventMessageDeleted, chat.DeletedPayload{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
	})
	return nil
}

func (s *messageService) React(ctx context.Context, messageID, actorID, emoji string) (*models.MessageView, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, common.ValidationError("emoji is required")
	}
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	var conv *models.Conversation
	if s.guard.ReactNeedsConversation() {
		if conv, err = s.convs.Get(ctx, msg.ConversationID); err != nil {
			return nil, err
		}
	}
	if err := s.guard.CheckReact(conv, actorID); err != nil {
		return nil, err
	}

	msg.ToggleReaction(actorID, emoji)
	return s.commitUpdate(ctx, msg, "react")
}

func (s *messageService) Pin(ctx context.Context, messageID, actorID string) (*models.MessageView, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	conv, err := s.convs.Get(ctx, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireParticipant(conv, actorID); err != nil {
		return nil, err
	}

	msg.TogglePin(actorID, s.now())
	return s.commitUpdate(ctx, msg, "pin")
}

func (s *messageService) UpdateStatus(ctx context.Context, messageID, actorID string, status models.MessageStatus) (*models.MessageView, error) {
	if !status.IsValid() {
		return nil, common.ValidationError("unknown status %q", status)
	}
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	conv, err := s.convs.Get(ctx, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireRecipient(conv, msg, actorID); err != nil {
		return nil, err
	}

	if !msg.Status.Advances(status) {
		return s.projector.Message(ctx, msg)
	}
	msg.Status = status
	return s.commitUpdate(ctx, msg, "status")
}

func (s *messageService) commitUpdate(ctx context.Context, msg *models.Message, op string) (*models.MessageView, error) {
	if err := s.messages.Update(ctx, msg); err != nil {
		return nil, err
	}
	view, err := s.projector.Message(ctx, msg)
	if err != nil {
		return nil, err
	}
	mutations.WithLabelValues(op).Inc()
	s.publisher.Publish(msg.ConversationID, chat.EventMessageUpdated, view)
	return view, nil
}

func (s *messageService) Forward(ctx context.Context, in ForwardInput) (*ForwardResult, error) {
	messageIDs := distinct(in.MessageIDs, "")
	targetIDs := distinct(in.TargetConversationIDs, "")
	if len(messageIDs) == 0 {
		return nil, common.ValidationError("at least one message id is required")
	}
	if len(targetIDs) == 0 {
		return nil, common.ValidationError("at least one target conversation is required")
	}

	sources, err := s.loadSources(ctx, messageIDs)
	if err != nil {
		return nil, err
	}

	// Authorize everything before the first write.
	convs := make(map[string]*models.Conversation)
	for _, id := range targetIDs {
		if err := s.requireMember(ctx, convs, id, in.ActorID); err != nil {
			return nil, err
		}
	}
	for _, src := range sources {
		if err := s.requireMember(ctx, convs, src.ConversationID, in.ActorID); err != nil {
			return nil, err
		}
	}

	result := &ForwardResult{Messages: []models.MessageView{}}
	var firstErr error
	for _, targetID := range targetIDs {
		created := make([]*models.Message, 0, len(sources))
		for _, src := range sources {
			msg := &models.Message{
				ID:                models.NewID(),
				ConversationID:    targetID,
				SenderID:          in.ActorID,
				Text:              forwardPrefix + src.Text,
				Timestamp:         s.now(),
				Status:            models.StatusSent,
				Attachments:       append([]models.Attachment(nil), src.Attachments...),
				Forwarded:         true,
				OriginalMessageID: src.ID,
			}
			if err := s.messages.Create(ctx, msg); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				forwardFailures.Inc()
				result.Failures = append(result.Failures, ForwardFailure{
					MessageID:      src.ID,
					ConversationID: targetID,
					Error:          err.Error(),
				})
				s.log.Warn().Err(err).
					Str("message_id", src.ID).
					Str("conversation_id", targetID).
					Msg("forward failed")
				continue
			}
			created = append(created, msg)
		}
		if len(created) == 0 {
			continue
		}

		last := created[len(created)-1]
		if err := s.convs.RefreshPreview(ctx, targetID, last.PreviewText(), last.Timestamp); err != nil {
			s.log.Warn().Err(err).Str("conversation_id", targetID).Msg("refresh preview after forward")
		}

		views, err := s.projector.Messages(ctx, created, nil)
		if err != nil {
			return nil, err
		}
		result.Messages = append(result.Messages, views...)
		mutations.WithLabelValues("forward").Add(float64(len(created)))
		s.publisher.Publish(targetID, chat.EventMessageNew, views)
	}

	if len(result.Messages) == 0 {
		return nil, firstErr
	}
	return result, nil
}

// loadSources returns the messages in the requested order.
func (s *messageService) loadSources(ctx context.Context, ids []string) ([]*models.Message, error) {
	found, err := s.messages.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Message, len(found))
	for _, m := range found {
		byID[m.ID] = m
	}
	out := make([]*models.Message, 0, len(ids))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			return nil, common.NotFoundError("message %s", id)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *messageService) requireMember(ctx context.Context, cache map[string]*models.Conversation, conversationID, actorID string) error {
	conv, ok := cache[conversationID]
	if !ok {
		var err error
		conv, err = s.convs.Get(ctx, conversationID)
		if err != nil {
			return err
		}
		cache[conversationID] = conv
	}
	return s.guard.RequireParticipant(conv, actorID)
}

// IsClientError reports whether err belongs to the caller rather than the server.
func IsClientError(err error) bool {
	return errors.Is(err, common.ErrValidation) ||
		errors.Is(err, common.ErrForbidden) ||
		errors.Is(err, common.ErrNotFound) ||
		errors.Is(err, common.ErrConflict) ||
		errors.Is(err, common.ErrUnauthenticated)
}
