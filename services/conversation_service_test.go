package services

import (
	"context"
	"testing"
	"time"

	"convo_server/apperrors"
	"convo_server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type conversationFixture struct {
	conversations *ConversationService
	store         *fakeConversationStore
	cache         *fakeCache
	notify        *fakePublisher
	alice         *models.User
	bob           *models.User
	cara          *models.User
	now           time.Time
}

func newConversationFixture(t *testing.T) *conversationFixture {
	t.Helper()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	userStore := newFakeUserStore()
	cache := newFakeCache()
	notify := &fakePublisher{}
	users := &UserService{Store: userStore, Cache: cache, Tokens: newTestTokenService(&now)}
	friends := &FriendService{Store: userStore, Users: users, Cache: cache, Notify: notify}
	store := newFakeConversationStore()

	f := &conversationFixture{store: store, cache: cache, notify: notify, now: now}
	f.conversations = &ConversationService{
		Store:   store,
		Friends: friends,
		Users:   users,
		Cache:   cache,
		Notify:  notify,
		Now:     func() time.Time { return f.now },
	}

	f.alice = &models.User{ID: "id-alice", FirstName: "Alice", UserName: "alice", Email: "alice@example.com", Friends: []string{"id-bob"}}
	f.bob = &models.User{ID: "id-bob", FirstName: "Bob", UserName: "bob", Email: "bob@example.com", Friends: []string{"id-alice"}}
	f.cara = &models.User{ID: "id-cara", FirstName: "Cara", UserName: "cara", Email: "cara@example.com"}
	userStore.add(f.alice)
	userStore.add(f.bob)
	userStore.add(f.cara)
	return f
}

func (f *conversationFixture) key() string {
	return models.ConversationKey(f.alice.ID, f.bob.ID)
}

func (f *conversationFixture) send(t *testing.T, sender *models.User, text string) *models.Message {
	t.Helper()
	message, err := f.conversations.SendMessage(context.Background(), sender, SendMessageRequest{
		ConversationKey: f.key(),
		Text:            text,
	})
	require.NoError(t, err)
	return message
}

func TestSendMessageAppendsAndFansOut(t *testing.T) {
	f := newConversationFixture(t)
	ctx := context.Background()

	message := f.send(t, f.alice, "hello bob")
	assert.NotEmpty(t, message.MessageID)
	assert.Equal(t, f.alice.ID, message.SenderID)
	assert.Equal(t, f.now.UnixMilli(), message.TimeStamp)

	got, err := f.conversations.GetMessages(ctx, f.bob, f.key())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hello bob", got[0].Text)

	events := f.notify.published()
	require.Len(t, events, 2)
	assert.Equal(t, models.EventIncomingMessage, events[0].Event)
	assert.Equal(t, models.ChannelName(models.CacheKeyMessages(f.key())), events[0].Channel)
	assert.Equal(t, models.EventNewConversationMessage, events[1].Event)
	assert.Equal(t, models.ChannelConversations(f.bob.ID), events[1].Channel)
	event, ok := events[1].Payload.(conversationEvent)
	require.True(t, ok)
	assert.Equal(t, f.key(), event.ConversationKey)
	assert.Equal(t, f.alice.ID, event.Sender.ID)

	// Durable backstop: message row plus the conversation record, created once.
	require.Len(t, f.store.messages, 1)
	assert.Equal(t, message.MessageID, f.store.messages[0].MessageID)
	require.Len(t, f.store.conversations, 1)
	conversation := f.store.conversations[f.key()]
	require.NotNil(t, conversation)
	assert.ElementsMatch(t, []string{f.alice.ID, f.bob.ID}, conversation.Participants)
}

func TestMessagesComeBackChronological(t *testing.T) {
	f := newConversationFixture(t)
	ctx := context.Background()

	f.send(t, f.alice, "first")
	f.now = f.now.Add(time.Second)
	f.send(t, f.bob, "second")
	f.now = f.now.Add(time.Second)
	f.send(t, f.alice, "third")

	got, err := f.conversations.GetMessages(ctx, f.alice, f.key())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "second", got[1].Text)
	assert.Equal(t, "third", got[2].Text)

	assert.Len(t, f.store.conversations, 1, "repeat sends reuse the existing conversation record")
}

func TestSameMillisecondMessagesBothSurvive(t *testing.T) {
	f := newConversationFixture(t)
	ctx := context.Background()

	first := f.send(t, f.alice, "snap")
	second := f.send(t, f.alice, "crackle")
	assert.Equal(t, first.TimeStamp, second.TimeStamp, "the clock did not move between sends")

	got, err := f.conversations.GetMessages(ctx, f.bob, f.key())
	require.NoError(t, err)
	require.Len(t, got, 2, "identical timestamps must not collapse into one entry")
	assert.Less(t, first.Score(), second.Score())
	assert.Equal(t, "snap", got[0].Text)
	assert.Equal(t, "crackle", got[1].Text)
}

func TestSendMessageValidation(t *testing.T) {
	f := newConversationFixture(t)
	ctx := context.Background()

	_, err := f.conversations.SendMessage(ctx, f.alice, SendMessageRequest{ConversationKey: "no-separator"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = f.conversations.SendMessage(ctx, f.alice, SendMessageRequest{ConversationKey: f.key()})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation), "empty message")
}

func TestSendMessageRequiresMembership(t *testing.T) {
	f := newConversationFixture(t)

	_, err := f.conversations.SendMessage(context.Background(), f.cara, SendMessageRequest{
		ConversationKey: f.key(),
		Text:            "let me in",
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))
}

func TestSendMessageRequiresFriendship(t *testing.T) {
	f := newConversationFixture(t)

	key := models.ConversationKey(f.alice.ID, f.cara.ID)
	_, err := f.conversations.SendMessage(context.Background(), f.alice, SendMessageRequest{
		ConversationKey: key,
		Text:            "hi stranger",
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))
	assert.Empty(t, f.store.messages, "nothing may be written for a refused send")
}

func TestGetMessagesRequiresMembership(t *testing.T) {
	f := newConversationFixture(t)
	f.send(t, f.alice, "private")

	_, err := f.conversations.GetMessages(context.Background(), f.cara, f.key())
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))
}

func TestGetMessagesEmptyConversation(t *testing.T) {
	f := newConversationFixture(t)

	got, err := f.conversations.GetMessages(context.Background(), f.alice, f.key())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestGetPartnerDetails(t *testing.T) {
	f := newConversationFixture(t)
	ctx := context.Background()

	profile, err := f.conversations.GetPartnerDetails(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, f.bob.ID, profile.ID)
	assert.Equal(t, "bob", profile.UserName)

	_, err = f.conversations.GetPartnerDetails(ctx, "")
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = f.conversations.GetPartnerDetails(ctx, "id-nobody")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}
