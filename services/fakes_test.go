package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"convo_server/models"
)

// In-memory collaborators honoring the same conditional-update and miss
// semantics as the DynamoDB and Redis implementations.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Friends = append([]string(nil), u.Friends...)
	c.IncomingFriendRequests = append([]string(nil), u.IncomingFriendRequests...)
	c.SentFriendRequests = append([]string(nil), u.SentFriendRequests...)
	return &c
}

func (s *fakeUserStore) add(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = cloneUser(u)
}

func (s *fakeUserStore) snapshot(id string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return cloneUser(u)
	}
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, ErrItemNotFound
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrItemNotFound
}

func (s *fakeUserStore) FindByUserName(_ context.Context, userName string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.UserName == userName {
			return cloneUser(u), nil
		}
	}
	return nil, ErrItemNotFound
}

// Create refuses on id, email or userName collisions, mirroring the
// transactional marker writes of the durable store.
func (s *fakeUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return ErrConditionFailed
	}
	for _, existing := range s.users {
		if existing.Email == user.Email || existing.UserName == user.UserName {
			return ErrConditionFailed
		}
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *fakeUserStore) SetRefreshToken(_ context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrConditionFailed
	}
	u.RefreshToken = token
	return nil
}

func (s *fakeUserStore) RevokeRefreshToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrConditionFailed
	}
	u.RefreshToken = ""
	return nil
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func withoutID(ids []string, id string) []string {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

func (s *fakeUserStore) AddIncomingRequest(_ context.Context, recipientID, senderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[recipientID]
	if !ok {
		return ErrConditionFailed
	}
	if containsID(u.IncomingFriendRequests, senderID) || containsID(u.Friends, senderID) {
		return ErrConditionFailed
	}
	u.IncomingFriendRequests = append(u.IncomingFriendRequests, senderID)
	return nil
}

func (s *fakeUserStore) AddSentRequest(_ context.Context, senderID, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[senderID]
	if !ok {
		return ErrConditionFailed
	}
	if !containsID(u.SentFriendRequests, recipientID) {
		u.SentFriendRequests = append(u.SentFriendRequests, recipientID)
	}
	return nil
}

func (s *fakeUserStore) AcceptIncomingRequest(_ context.Context, recipientID, senderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[recipientID]
	if !ok {
		return ErrConditionFailed
	}
	if !containsID(u.IncomingFriendRequests, senderID) || containsID(u.Friends, senderID) {
		return ErrConditionFailed
	}
	u.IncomingFriendRequests = withoutID(u.IncomingFriendRequests, senderID)
	u.Friends = append(u.Friends, senderID)
	return nil
}

func (s *fakeUserStore) ConfirmAcceptedRequest(_ context.Context, senderID, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[senderID]
	if !ok {
		return ErrConditionFailed
	}
	if !containsID(u.Friends, recipientID) {
		u.Friends = append(u.Friends, recipientID)
	}
	u.SentFriendRequests = withoutID(u.SentFriendRequests, recipientID)
	return nil
}

func (s *fakeUserStore) RemoveIncomingRequest(_ context.Context, recipientID, senderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[recipientID]
	if !ok {
		return ErrConditionFailed
	}
	if !containsID(u.IncomingFriendRequests, senderID) {
		return ErrConditionFailed
	}
	u.IncomingFriendRequests = withoutID(u.IncomingFriendRequests, senderID)
	return nil
}

func (s *fakeUserStore) RemoveSentRequest(_ context.Context, senderID, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[senderID]
	if !ok {
		return ErrConditionFailed
	}
	u.SentFriendRequests = withoutID(u.SentFriendRequests, recipientID)
	return nil
}

type zmember struct {
	score  float64
	member string
}

type fakeCache struct {
	mu    sync.Mutex
	kv    map[string]string
	sets  map[string]map[string]struct{}
	zsets map[string][]zmember
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		kv:    make(map[string]string),
		sets:  make(map[string]map[string]struct{}),
		zsets: make(map[string][]zmember),
	}
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value, ok := c.kv[key]; ok {
		return value, nil
	}
	return "", ErrCacheMiss
}

func (c *fakeCache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kv[key] = value
	return nil
}

func (c *fakeCache) SetMulti(_ context.Context, entries map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, value := range entries {
		c.kv[key] = value
	}
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.kv, key)
		delete(c.sets, key)
		delete(c.zsets, key)
	}
	return nil
}

func (c *fakeCache) SAdd(_ context.Context, key string, members ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.sets[key]
	if !ok {
		set = make(map[string]struct{})
		c.sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return nil
}

func (c *fakeCache) SRem(_ context.Context, key string, members ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, member := range members {
		delete(c.sets[key], member)
	}
	return nil
}

func (c *fakeCache) SIsMember(_ context.Context, key, member string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sets[key][member]
	return ok, nil
}

func (c *fakeCache) SMembers(_ context.Context, key string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	members := make([]string, 0, len(c.sets[key]))
	for member := range c.sets[key] {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}

func (c *fakeCache) ZAdd(_ context.Context, key string, score float64, member string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.zsets[key]
	for i, entry := range entries {
		if entry.member == member {
			entries[i].score = score
			c.zsets[key] = entries
			return nil
		}
	}
	c.zsets[key] = append(entries, zmember{score: score, member: member})
	return nil
}

func (c *fakeCache) ZRange(_ context.Context, key string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := append([]zmember(nil), c.zsets[key]...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score < entries[j].score
		}
		return strings.Compare(entries[i].member, entries[j].member) < 0
	})
	members := make([]string, len(entries))
	for i, entry := range entries {
		members[i] = entry.member
	}
	return members, nil
}

type publishedEvent struct {
	Channel string
	Event   string
	Payload interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(_ context.Context, channel, event string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Channel: channel, Event: event, Payload: payload})
	return nil
}

func (p *fakePublisher) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

type fakeConversationStore struct {
	mu            sync.Mutex
	messages      []models.Message
	conversations map[string]*models.Conversation
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{conversations: make(map[string]*models.Conversation)}
}

func (s *fakeConversationStore) PutMessage(_ context.Context, message *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *message)
	return nil
}

func (s *fakeConversationStore) EnsureConversation(_ context.Context, conversation *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conversation.ConversationID]; ok {
		return ErrConditionFailed
	}
	clone := *conversation
	clone.Participants = append([]string(nil), conversation.Participants...)
	s.conversations[conversation.ConversationID] = &clone
	return nil
}
