package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"convo_server/apperrors"
	"convo_server/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var avatarSeeds = []string{
	"Princess", "Charlie", "Ginger", "Boots", "Luna", "Kitty", "Cuddles",
	"Cookie", "Bandit", "Mittens", "Sophie", "Angel", "Shadow", "Trouble",
	"Chester", "Snuggles", "Casper", "Baby", "Pepper", "Loki",
}

func defaultAvatarURL() string {
	seed := avatarSeeds[rand.Intn(len(avatarSeeds))]
	return "https://api.dicebear.com/9.x/shapes/svg?seed=" + seed
}

// UserService owns the identity lifecycle: signup, sign-in, credential
// rotation and revocation, and the cache-aside mirror of identity records.
//
// Read policy: cache first, durable fallback, unconditional write-back. Write
// policy: every durable mutation refreshes both cache namespaces. The durable
// store stays authoritative; the cache is only an accelerator.
type UserService struct {
	Store  UserStore
	Cache  Cache
	Tokens *TokenService
}

// SignUpRequest carries the fields required to create an identity.
type SignUpRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	UserName  string `json:"userName"`
	Password  string `json:"password"`
	Bio       string `json:"bio,omitempty"`
}

// SignUp creates a new identity. Email and userName are globally unique;
// a duplicate of either fails with Conflict.
func (s *UserService) SignUp(ctx context.Context, req SignUpRequest) (*models.User, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.UserName = strings.TrimSpace(req.UserName)

	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.UserName == "" || req.Password == "" {
		return nil, apperrors.Validation("firstName, lastName, email, userName and password are required")
	}
	if !strings.Contains(req.Email, "@") {
		return nil, apperrors.Validation("email is not valid")
	}
	if len(req.Password) < 8 {
		return nil, apperrors.Validation("password must be at least 8 characters")
	}

	// The lookups only produce the friendlier message for the common case;
	// the transactional Create below is the actual uniqueness guard.
	if _, err := s.Store.FindByEmail(ctx, req.Email); err == nil {
		return nil, apperrors.Conflict("a user with this email already exists")
	} else if !errors.Is(err, ErrItemNotFound) {
		return nil, apperrors.Upstream("failed to check email uniqueness", err)
	}
	if _, err := s.Store.FindByUserName(ctx, req.UserName); err == nil {
		return nil, apperrors.Conflict("a user with this userName already exists")
	} else if !errors.Is(err, ErrItemNotFound) {
		return nil, apperrors.Upstream("failed to check userName uniqueness", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	user := &models.User{
		ID:           uuid.NewString(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		UserName:     req.UserName,
		PasswordHash: string(hash),
		Bio:          req.Bio,
		AvatarURL:    defaultAvatarURL(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Create(ctx, user); err != nil {
		if errors.Is(err, ErrConditionFailed) {
			return nil, apperrors.Conflict("a user with this email or userName already exists")
		}
		return nil, apperrors.Upstream("failed to create user", err)
	}

	s.cacheUser(ctx, user)
	log.Printf("User created: %s (%s)", user.UserName, user.ID)
	return user, nil
}

// SignIn verifies the password and issues a fresh credential pair. The
// refresh credential is persisted on the identity record so it can be revoked.
func (s *UserService) SignIn(ctx context.Context, email, password string) (*models.User, string, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, "", "", apperrors.Validation("email and password are required")
	}

	// Password and credential material never enter the cache snapshot, so
	// sign-in always reads the durable record.
	user, err := s.Store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, "", "", apperrors.Unauthenticated("invalid email or password")
		}
		return nil, "", "", apperrors.Upstream("failed to load user", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", "", apperrors.Unauthenticated("invalid email or password")
	}

	accessToken, err := s.Tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to issue access token: %w", err)
	}
	refreshToken, err := s.Tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to issue refresh token: %w", err)
	}

	if err := s.Store.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return nil, "", "", apperrors.Upstream("failed to persist refresh token", err)
	}
	user.RefreshToken = refreshToken
	s.cacheUser(ctx, user)

	log.Printf("User signed in: %s", user.ID)
	return user, accessToken, refreshToken, nil
}

// RefreshAccess mints a new access credential from a refresh credential.
// A refresh token is only honored when its signature and expiry check out AND
// it exactly matches the credential persisted on the identity record, so a
// logged-out token is dead even while cryptographically valid.
func (s *UserService) RefreshAccess(ctx context.Context, refreshToken string) (*models.User, string, error) {
	userID, err := s.Tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, "", apperrors.Unauthenticated("invalid refresh token")
	}

	// The cached snapshot never carries the refresh credential, so the
	// revocation check has to read the durable record.
	user, err := s.Store.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, "", apperrors.Unauthenticated("invalid refresh token")
		}
		return nil, "", apperrors.Upstream("failed to load user", err)
	}

	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		return nil, "", apperrors.Unauthenticated("refresh token has been revoked")
	}

	accessToken, err := s.Tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue access token: %w", err)
	}
	return user, accessToken, nil
}

// Logout revokes the persisted refresh credential. An unparseable token is
// not an error: there is simply nothing left to revoke server-side.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	userID, err := s.Tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	if err := s.Store.RevokeRefreshToken(ctx, userID); err != nil {
		if errors.Is(err, ErrItemNotFound) || errors.Is(err, ErrConditionFailed) {
			return nil
		}
		return apperrors.Upstream("failed to revoke refresh token", err)
	}
	if err := s.RepairCache(ctx, userID); err != nil {
		log.Printf("Cache refresh after logout failed for %s: %v", userID, err)
	}
	log.Printf("User logged out: %s", userID)
	return nil
}

// GetByID loads an identity cache-first with durable fallback and read-repair.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	if cached, err := s.Cache.Get(ctx, models.CacheKeyUserByID(id)); err == nil {
		if user, err := decodeUser(cached); err == nil {
			return user, nil
		}
		log.Printf("Discarding undecodable cache entry for user %s", id)
	}

	user, err := s.Store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Upstream("failed to load user", err)
	}

	s.cacheUser(ctx, user)
	return user, nil
}

// GetByEmail is the sign-in path lookup: same cache-aside policy as GetByID,
// against the email namespace.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if cached, err := s.Cache.Get(ctx, models.CacheKeyUserByEmail(email)); err == nil {
		if user, err := decodeUser(cached); err == nil {
			return user, nil
		}
		log.Printf("Discarding undecodable cache entry for email %s", email)
	}

	user, err := s.Store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Upstream("failed to load user", err)
	}

	s.cacheUser(ctx, user)
	return user, nil
}

// RepairCache reconciles the cache mirror of one identity from the durable
// store: snapshots under both namespaces plus the friend and incoming-request
// sets are rewritten wholesale. The durable value always wins.
func (s *UserService) RepairCache(ctx context.Context, id string) error {
	user, err := s.Store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return apperrors.NotFound("user not found")
		}
		return apperrors.Upstream("failed to load user", err)
	}

	encoded, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if err := s.Cache.SetMulti(ctx, map[string]string{
		models.CacheKeyUserByID(user.ID):       string(encoded),
		models.CacheKeyUserByEmail(user.Email): string(encoded),
	}); err != nil {
		return err
	}

	friendsKey := models.CacheKeyFriends(user.ID)
	incomingKey := models.CacheKeyIncomingRequests(user.ID)
	if err := s.Cache.Delete(ctx, friendsKey, incomingKey); err != nil {
		return err
	}
	if len(user.Friends) > 0 {
		if err := s.Cache.SAdd(ctx, friendsKey, user.Friends...); err != nil {
			return err
		}
	}
	if len(user.IncomingFriendRequests) > 0 {
		if err := s.Cache.SAdd(ctx, incomingKey, user.IncomingFriendRequests...); err != nil {
			return err
		}
	}
	return nil
}

// cacheUser writes the snapshot under both key namespaces in one pipeline.
// Failures are logged, never surfaced: the next read falls back to the
// durable store and repairs the entry.
func (s *UserService) cacheUser(ctx context.Context, user *models.User) {
	encoded, err := json.Marshal(user)
	if err != nil {
		log.Printf("Failed to encode user %s for cache: %v", user.ID, err)
		return
	}
	err = s.Cache.SetMulti(ctx, map[string]string{
		models.CacheKeyUserByID(user.ID):       string(encoded),
		models.CacheKeyUserByEmail(user.Email): string(encoded),
	})
	if err != nil {
		log.Printf("Failed to cache user %s: %v", user.ID, err)
	}
}

func decodeUser(encoded string) (*models.User, error) {
	var user models.User
	if err := json.Unmarshal([]byte(encoded), &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, errors.New("cached user missing id")
	}
	return &user, nil
}
