package services

import (
	"context"
	"errors"
	"log"

	"convo_server/apperrors"
	"convo_server/models"
)

// FriendService drives the friend-request state machine. Every transition is
// guarded by a conditional update at the durable store, so two concurrent
// requests for the same pair cannot both apply; the loser gets the clean
// domain error for the state it actually found.
type FriendService struct {
	Store  UserStore
	Users  *UserService
	Cache  Cache
	Notify Publisher
}

// SendFriendRequest moves (sender, recipient) from NoRelation to
// RequestPending. The recipient is addressed by email.
func (s *FriendService) SendFriendRequest(ctx context.Context, sender *models.User, friendEmail string) error {
	if friendEmail == "" {
		return apperrors.Validation("email is required")
	}

	recipient, err := s.Users.GetByEmail(ctx, friendEmail)
	if err != nil {
		return err
	}

	if recipient.ID == sender.ID {
		return apperrors.Validation("you cannot send a friend request to yourself")
	}
	if sender.HasFriend(recipient.ID) {
		return apperrors.Conflict("you are already friends")
	}
	if recipient.HasIncomingRequest(sender.ID) {
		return apperrors.Conflict("friend request already sent")
	}

	// A pending request in the other direction lives on the sender's own
	// record, out of reach of the conditional write below, so it is checked
	// against the durable record here.
	current, err := s.authoritative(ctx, sender.ID)
	if err != nil {
		return err
	}
	if current.HasFriend(recipient.ID) {
		return apperrors.Conflict("you are already friends")
	}
	if current.HasIncomingRequest(recipient.ID) {
		return apperrors.Conflict("this user already sent you a friend request")
	}

	// The conditional write is the actual race guard; the checks above only
	// produce friendlier messages for the common cases.
	if err := s.Store.AddIncomingRequest(ctx, recipient.ID, sender.ID); err != nil {
		switch {
		case errors.Is(err, ErrConditionFailed):
			return apperrors.Conflict("friend request already sent or you are already friends")
		case errors.Is(err, ErrItemNotFound):
			return apperrors.NotFound("user not found")
		default:
			return apperrors.Upstream("failed to record friend request", err)
		}
	}
	if err := s.Store.AddSentRequest(ctx, sender.ID, recipient.ID); err != nil {
		log.Printf("Failed to record sent request %s -> %s: %v", sender.ID, recipient.ID, err)
	}

	s.refreshMirrors(ctx, recipient.ID, sender.ID)

	channel := models.ChannelName(models.CacheKeyIncomingRequests(recipient.ID))
	if err := s.Notify.Publish(ctx, channel, models.EventFriendRequest, sender.PublicProfile()); err != nil {
		log.Printf("Failed to publish %s to %s: %v", models.EventFriendRequest, channel, err)
	}

	log.Printf("Friend request sent: %s -> %s", sender.ID, recipient.ID)
	return nil
}

// AcceptFriendRequest moves RequestPending(sender -> user) to Friends. The
// symmetric write is two independent updates; the conditional first leg keeps
// the transition race-safe, the second leg mirrors it onto the sender.
func (s *FriendService) AcceptFriendRequest(ctx context.Context, user *models.User, senderID string) error {
	if senderID == "" {
		return apperrors.Validation("senderId is required")
	}
	if user.HasFriend(senderID) {
		return apperrors.Conflict("you are already friends")
	}

	if err := s.Store.AcceptIncomingRequest(ctx, user.ID, senderID); err != nil {
		switch {
		case errors.Is(err, ErrConditionFailed):
			return apperrors.InvalidState("no pending friend request from this user")
		case errors.Is(err, ErrItemNotFound):
			return apperrors.NotFound("user not found")
		default:
			return apperrors.Upstream("failed to accept friend request", err)
		}
	}
	if err := s.Store.ConfirmAcceptedRequest(ctx, senderID, user.ID); err != nil {
		// The recipient-side write already landed; the next read-repair pass
		// surfaces the asymmetry, it is not rolled back here.
		log.Printf("Failed to mirror accepted request onto %s: %v", senderID, err)
	}

	s.refreshMirrors(ctx, user.ID, senderID)

	sender, err := s.Users.GetByID(ctx, senderID)
	if err != nil {
		log.Printf("Failed to load sender %s for notification: %v", senderID, err)
	} else {
		s.publishFriendEvent(ctx, user.ID, sender.PublicProfile())
		s.publishFriendEvent(ctx, senderID, user.PublicProfile())
	}

	log.Printf("Friend request accepted: %s <-> %s", user.ID, senderID)
	return nil
}

// DeclineFriendRequest moves RequestPending(sender -> user) back to
// NoRelation.
func (s *FriendService) DeclineFriendRequest(ctx context.Context, user *models.User, senderID string) error {
	if senderID == "" {
		return apperrors.Validation("senderId is required")
	}

	if err := s.Store.RemoveIncomingRequest(ctx, user.ID, senderID); err != nil {
		switch {
		case errors.Is(err, ErrConditionFailed):
			return apperrors.InvalidState("no pending friend request from this user")
		case errors.Is(err, ErrItemNotFound):
			return apperrors.NotFound("user not found")
		default:
			return apperrors.Upstream("failed to decline friend request", err)
		}
	}
	if err := s.Store.RemoveSentRequest(ctx, senderID, user.ID); err != nil {
		log.Printf("Failed to clear sent request on %s: %v", senderID, err)
	}

	s.refreshMirrors(ctx, user.ID, senderID)

	// Published to the decliner's own channel so their other connected
	// sessions drop the pending entry.
	channel := models.ChannelName(models.CacheKeyIncomingRequests(user.ID))
	payload := map[string]string{"senderId": senderID}
	if err := s.Notify.Publish(ctx, channel, models.EventFriendDecline, payload); err != nil {
		log.Printf("Failed to publish %s to %s: %v", models.EventFriendDecline, channel, err)
	}

	log.Printf("Friend request declined: %s -x- %s", senderID, user.ID)
	return nil
}

// ListIncomingRequests resolves the pending requesters to public profiles.
// No pending requests is an empty list, not an error.
func (s *FriendService) ListIncomingRequests(ctx context.Context, userID string) ([]models.PublicProfile, error) {
	current, err := s.authoritative(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolveProfiles(ctx, current.IncomingFriendRequests), nil
}

// ListFriends resolves the friend set to public profiles.
func (s *FriendService) ListFriends(ctx context.Context, userID string) ([]models.PublicProfile, error) {
	current, err := s.authoritative(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolveProfiles(ctx, current.Friends), nil
}

// AreFriends answers from the durable store, never the cache. Message sends
// re-check friendship through this on every call.
func (s *FriendService) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	current, err := s.authoritative(ctx, userID)
	if err != nil {
		return false, err
	}
	return current.HasFriend(otherID), nil
}

// authoritative reads the identity straight from the durable store.
func (s *FriendService) authoritative(ctx context.Context, userID string) (*models.User, error) {
	current, err := s.Store.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Upstream("failed to load user", err)
	}
	return current, nil
}

func (s *FriendService) resolveProfiles(ctx context.Context, ids []string) []models.PublicProfile {
	profiles := make([]models.PublicProfile, 0, len(ids))
	for _, id := range ids {
		user, err := s.Users.GetByID(ctx, id)
		if err != nil {
			log.Printf("Skipping unresolvable user %s: %v", id, err)
			continue
		}
		profiles = append(profiles, user.PublicProfile())
	}
	return profiles
}

// refreshMirrors rewrites both parties' cache mirrors from the durable store
// after a ledger mutation. Failures are logged; the next read repairs them.
func (s *FriendService) refreshMirrors(ctx context.Context, ids ...string) {
	for _, id := range ids {
		if err := s.Users.RepairCache(ctx, id); err != nil {
			log.Printf("Cache refresh failed for %s: %v", id, err)
		}
	}
}

func (s *FriendService) publishFriendEvent(ctx context.Context, userID string, profile models.PublicProfile) {
	channel := models.ChannelName(models.CacheKeyFriends(userID))
	if err := s.Notify.Publish(ctx, channel, models.EventNewFriend, profile); err != nil {
		log.Printf("Failed to publish %s to %s: %v", models.EventNewFriend, channel, err)
	}
}
