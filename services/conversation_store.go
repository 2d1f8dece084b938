package services

import (
	"context"

	"convo_server/models"
)

// ConversationStore is the durable backstop for the message log. The cache
// sorted set is the read path; these records exist so history survives a
// cache loss.
type ConversationStore interface {
	PutMessage(ctx context.Context, message *models.Message) error
	// EnsureConversation creates the conversation record if absent; returns
	// ErrConditionFailed when it already exists.
	EnsureConversation(ctx context.Context, conversation *models.Conversation) error
}

// DynamoConversationStore implements ConversationStore on the Messages and
// Conversations tables.
type DynamoConversationStore struct {
	Dynamo *DynamoService
}

func (s *DynamoConversationStore) PutMessage(ctx context.Context, message *models.Message) error {
	return s.Dynamo.PutItem(ctx, models.MessagesTable, message)
}

func (s *DynamoConversationStore) EnsureConversation(ctx context.Context, conversation *models.Conversation) error {
	return s.Dynamo.PutItemIfAbsent(ctx, models.ConversationsTable, conversation, "conversationId")
}
