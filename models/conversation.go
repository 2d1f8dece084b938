package models

import (
	"sort"
	"strings"
)

// Conversation is the durable record for a two-party conversation, created on
// first send. The message log itself lives in MessagesTable and the cache.
type Conversation struct {
	ConversationID string   `dynamodbav:"conversationId" json:"conversationId"`
	Participants   []string `dynamodbav:"participants,stringset" json:"participants"`
	CreatedAt      string   `dynamodbav:"createdAt" json:"createdAt"`
}

// ConversationsTable is the DynamoDB table name for conversation records
const ConversationsTable = "Conversations"

const conversationKeySeparator = "--"

// ConversationKey builds the canonical key for a pair of users: the two ids
// sorted and joined, so key(a,b) == key(b,a).
func ConversationKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, conversationKeySeparator)
}

// ParseConversationKey splits a conversation key back into its two
// participant ids. ok is false when the key is not a two-party key.
func ParseConversationKey(key string) (string, string, bool) {
	parts := strings.Split(key, conversationKeySeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
