package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"convo_server/apperrors"
	"convo_server/models"

	"github.com/google/uuid"
)

// ConversationService appends to and reads the per-pair message log. The
// cache sorted set is the read path; DynamoDB records are a best-effort
// durable mirror written after the cache append and the fanout publish, in
// that causal order.
type ConversationService struct {
	Store   ConversationStore
	Friends *FriendService
	Users   *UserService
	Cache   Cache
	Notify  Publisher
	Now     func() time.Time

	seq int64
}

// SendMessageRequest carries one outbound message.
type SendMessageRequest struct {
	ConversationKey string `json:"conversationKey"`
	Text            string `json:"text"`
	ContentURL      string `json:"contentUrl,omitempty"`
	ContentType     string `json:"contentType,omitempty"`
	ContentFileName string `json:"contentFileName,omitempty"`
}

// conversationEvent is the denormalized payload for the recipient's personal
// conversations channel.
type conversationEvent struct {
	ConversationKey string               `json:"conversationKey"`
	Message         models.Message       `json:"message"`
	Sender          models.PublicProfile `json:"sender"`
}

// SendMessage appends a message to the conversation. The caller must be one
// of the two participants in the key and currently a friend of the other one;
// friendship is re-checked against the durable ledger on every send.
func (s *ConversationService) SendMessage(ctx context.Context, sender *models.User, req SendMessageRequest) (*models.Message, error) {
	partnerID, err := s.partnerOf(sender, req.ConversationKey)
	if err != nil {
		return nil, err
	}
	if req.Text == "" && req.ContentURL == "" {
		return nil, apperrors.Validation("message text or content is required")
	}

	friends, err := s.Friends.AreFriends(ctx, sender.ID, partnerID)
	if err != nil {
		return nil, err
	}
	if !friends {
		return nil, apperrors.Unauthorized("you can only message your friends")
	}

	now := s.now()
	message := &models.Message{
		ConversationID:  req.ConversationKey,
		MessageID:       uuid.NewString(),
		SenderID:        sender.ID,
		Text:            req.Text,
		TimeStamp:       now.UnixMilli(),
		Seq:             atomic.AddInt64(&s.seq, 1),
		ContentURL:      req.ContentURL,
		ContentType:     req.ContentType,
		ContentFileName: req.ContentFileName,
	}

	encoded, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	// The cache append is the primary write: it is what readers see.
	cacheKey := models.CacheKeyMessages(req.ConversationKey)
	if err := s.Cache.ZAdd(ctx, cacheKey, message.Score(), string(encoded)); err != nil {
		return nil, apperrors.Upstream("failed to append message", err)
	}

	s.publishMessage(ctx, req.ConversationKey, partnerID, sender, message)
	s.persistMessage(ctx, message, sender.ID, partnerID)

	return message, nil
}

// GetMessages returns the conversation in chronological order, oldest first.
func (s *ConversationService) GetMessages(ctx context.Context, user *models.User, conversationKey string) ([]models.Message, error) {
	if _, err := s.partnerOf(user, conversationKey); err != nil {
		return nil, err
	}

	members, err := s.Cache.ZRange(ctx, models.CacheKeyMessages(conversationKey))
	if err != nil {
		return nil, apperrors.Upstream("failed to read messages", err)
	}

	messages := make([]models.Message, 0, len(members))
	for _, member := range members {
		var message models.Message
		if err := json.Unmarshal([]byte(member), &message); err != nil {
			log.Printf("Skipping undecodable message in %s: %v", conversationKey, err)
			continue
		}
		messages = append(messages, message)
	}
	return messages, nil
}

// GetPartnerDetails resolves the other participant's public profile.
func (s *ConversationService) GetPartnerDetails(ctx context.Context, partnerID string) (models.PublicProfile, error) {
	if partnerID == "" {
		return models.PublicProfile{}, apperrors.Validation("conversationPartnerId is required")
	}
	partner, err := s.Users.GetByID(ctx, partnerID)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			return models.PublicProfile{}, apperrors.NotFound("conversation partner not found")
		}
		return models.PublicProfile{}, err
	}
	return partner.PublicProfile(), nil
}

// partnerOf validates the key and the caller's membership in it, returning
// the other participant's id.
func (s *ConversationService) partnerOf(user *models.User, conversationKey string) (string, error) {
	first, second, ok := models.ParseConversationKey(conversationKey)
	if !ok {
		return "", apperrors.Validation("conversationKey is not valid")
	}
	switch user.ID {
	case first:
		return second, nil
	case second:
		return first, nil
	default:
		return "", apperrors.Unauthorized("you are not part of this conversation")
	}
}

func (s *ConversationService) publishMessage(ctx context.Context, conversationKey, partnerID string, sender *models.User, message *models.Message) {
	conversationChannel := models.ChannelName(models.CacheKeyMessages(conversationKey))
	if err := s.Notify.Publish(ctx, conversationChannel, models.EventIncomingMessage, message); err != nil {
		log.Printf("Failed to publish %s to %s: %v", models.EventIncomingMessage, conversationChannel, err)
	}

	event := conversationEvent{
		ConversationKey: conversationKey,
		Message:         *message,
		Sender:          sender.PublicProfile(),
	}
	partnerChannel := models.ChannelConversations(partnerID)
	if err := s.Notify.Publish(ctx, partnerChannel, models.EventNewConversationMessage, event); err != nil {
		log.Printf("Failed to publish %s to %s: %v", models.EventNewConversationMessage, partnerChannel, err)
	}
}

// persistMessage mirrors the message into the durable store and ensures the
// conversation record exists. Failures are logged, not surfaced: the cache
// already carries the message and the stores reconcile on the next repair.
func (s *ConversationService) persistMessage(ctx context.Context, message *models.Message, senderID, partnerID string) {
	if err := s.Store.PutMessage(ctx, message); err != nil {
		log.Printf("Failed to persist message %s: %v", message.MessageID, err)
	}

	conversation := &models.Conversation{
		ConversationID: message.ConversationID,
		Participants:   []string{senderID, partnerID},
		CreatedAt:      s.now().UTC().Format(time.RFC3339),
	}
	if err := s.Store.EnsureConversation(ctx, conversation); err != nil && !errors.Is(err, ErrConditionFailed) {
		log.Printf("Failed to ensure conversation %s: %v", message.ConversationID, err)
	}
}

func (s *ConversationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
