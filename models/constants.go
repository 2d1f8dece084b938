package models

import "strings"

// Event names published through the fanout notifier
const (
	EventFriendRequest          = "friend_request"
	EventNewFriend              = "new_friend"
	EventFriendDecline          = "friend_decline"
	EventIncomingMessage        = "incoming_message"
	EventNewConversationMessage = "new_conversation_message"
)

// Cache key builders. Every caller goes through these so the id and email
// namespaces for user snapshots stay distinct and enumerable.
func CacheKeyUserByID(id string) string {
	return "user:id:" + id
}

func CacheKeyUserByEmail(email string) string {
	return "user:email:" + email
}

func CacheKeyFriends(id string) string {
	return "user:" + id + ":friends"
}

func CacheKeyIncomingRequests(id string) string {
	return "user:" + id + ":incoming_friend_requests"
}

func CacheKeyMessages(conversationKey string) string {
	return "chat:" + conversationKey + ":messages"
}

// ChannelName derives a pub/sub channel name from a cache key. Colons are not
// allowed in transport channel names, so they become double underscores.
func ChannelName(key string) string {
	return strings.ReplaceAll(key, ":", "__")
}

// ChannelConversations is the per-user channel announcing new messages across
// all of a user's conversations, carrying denormalized sender fields.
func ChannelConversations(userID string) string {
	return ChannelName("user:" + userID + ":conversations")
}
