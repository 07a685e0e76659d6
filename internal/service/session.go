package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"stocktrack-api/internal/model"
	"stocktrack-api/internal/repository"
	"stocktrack-api/pkg/uid"

	"github.com/redis/go-redis/v9"
)

const (
	// TokenPrefix is the prefix for all session tokens
	TokenPrefix = "stk_"

	// SessionRedisKeyPrefix is the Redis key prefix for sessions
	SessionRedisKeyPrefix = "stocktrack:session:"
)

// ErrInvalidCredentials indicates a failed login attempt.
var ErrInvalidCredentials = errors.New("invalid email or login key")

// SessionService handles login, session token generation and validation.
// Tokens are opaque random strings stored in Redis with a TTL; the
// stored payload carries the user's role for route gating.
type SessionService struct {
	redis    *redis.Client
	store    repository.Store
	loginKey string
	tokenTTL time.Duration
}

// NewSessionService creates a new session service.
func NewSessionService(redisClient *redis.Client, store repository.Store, loginKey string, tokenTTL time.Duration) *SessionService {
	if tokenTTL == 0 {
		tokenTTL = 12 * time.Hour
	}
	return &SessionService{
		redis:    redisClient,
		store:    store,
		loginKey: loginKey,
		tokenTTL: tokenTTL,
	}
}

// Login validates credentials and issues a session token. Account
// provisioning lives outside this service; the users table is only the
// role source, and the shared login key is the credential.
func (s *SessionService) Login(ctx context.Context, email, loginKey string) (string, *model.User, error) {
	if s.loginKey == "" || subtle.ConstantTimeCompare([]byte(loginKey), []byte(s.loginKey)) != 1 {
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	token, err := s.generateToken(ctx, user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *SessionService) generateToken(ctx context.Context, user *model.User) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	token := TokenPrefix + hex.EncodeToString(tokenBytes)

	data := model.SessionData{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: time.Now(),
	}
	data.ExpiresAt = data.CreatedAt.Add(s.tokenTTL)

	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to serialize session data: %w", err)
	}

	key := SessionRedisKeyPrefix + token
	if err := s.redis.Set(ctx, key, jsonData, s.tokenTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	log.Printf("[SessionService] Session issued for %s (role=%s), expires=%v",
		data.Email, data.Role, data.ExpiresAt)
	return token, nil
}

// ValidateToken checks if a token is valid and returns its session data.
func (s *SessionService) ValidateToken(ctx context.Context, token string) (*model.SessionData, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token")
	}

	if len(token) < len(TokenPrefix) || token[:len(TokenPrefix)] != TokenPrefix {
		return nil, fmt.Errorf("invalid token format")
	}

	key := SessionRedisKeyPrefix + token
	jsonData, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("session not found or expired")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var data model.SessionData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to parse session data: %w", err)
	}

	if time.Now().After(data.ExpiresAt) {
		s.redis.Del(ctx, key)
		return nil, fmt.Errorf("session expired")
	}

	return &data, nil
}

// RevokeToken deletes a session from Redis.
func (s *SessionService) RevokeToken(ctx context.Context, token string) error {
	key := SessionRedisKeyPrefix + token
	return s.redis.Del(ctx, key).Err()
}

// EnsureSeedAdmin creates the configured admin account when the users
// table does not have it yet. Safe to call on every startup.
func EnsureSeedAdmin(ctx context.Context, store repository.Store, email string) error {
	if email == "" {
		return nil
	}

	_, err := store.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	admin := &model.User{
		ID:        uid.New(),
		Name:      "Administrator",
		Email:     email,
		Role:      model.RoleAdmin,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	log.Printf("[SessionService] Seeded admin account %s", email)
	return nil
}
