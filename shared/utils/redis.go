package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/nandak93/go-people-ops-system/shared/models"
)

var (
	RedisClient *redis.Client
	ctx         = context.Background()
)

// InitRedis initializes the Redis client
func InitRedis() error {
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost"
	}

	redisPort := os.Getenv("REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}

	addr := fmt.Sprintf("%s:%s", redisHost, redisPort)

	RedisClient = redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     "",
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return nil
}

// CloseRedis closes the Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}

// CacheSet stores a value in Redis with expiration
func CacheSet(key string, value string, expiration time.Duration) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return RedisClient.Set(ctx, key, value, expiration).Err()
}

// CacheGet retrieves a value from Redis
func CacheGet(key string) (string, error) {
	if RedisClient == nil {
		return "", fmt.Errorf("Redis client not initialized")
	}
	val, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("key not found")
	}
	return val, err
}

// CacheDelete removes a key from Redis
func CacheDelete(key string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return RedisClient.Del(ctx, key).Err()
}

// Token session management. Sessions are keyed by a SHA256 hash of
// the access token so the token itself never lands in Redis.

func tokenSessionKey(accessToken string) string {
	hash := sha256.Sum256([]byte(accessToken))
	return "token:session:" + hex.EncodeToString(hash[:])
}

// CreateTokenSession stores a new login session for the token.
func CreateTokenSession(accessToken string, profile models.SessionProfile, ttl time.Duration) (*models.TokenSession, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	now := time.Now()
	session := &models.TokenSession{
		Profile:    profile,
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  now.Add(ttl),
		SessionID:  uuid.New().String(),
	}

	sessionData, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := RedisClient.Set(ctx, tokenSessionKey(accessToken), sessionData, ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session in Redis: %w", err)
	}

	return session, nil
}

// GetTokenSession looks up the session for a token; expired sessions
// are removed on read.
func GetTokenSession(accessToken string) (*models.TokenSession, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	key := tokenSessionKey(accessToken)
	sessionData, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from Redis: %w", err)
	}

	var session models.TokenSession
	if err := json.Unmarshal([]byte(sessionData), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if session.IsExpired() {
		RedisClient.Del(ctx, key)
		return nil, fmt.Errorf("session expired")
	}

	return &session, nil
}

// TouchTokenSession refreshes the last-used timestamp, keeping the
// remaining TTL intact.
func TouchTokenSession(accessToken string) error {
	session, err := GetTokenSession(accessToken)
	if err != nil {
		return err
	}

	session.UpdateLastUsed()

	sessionData, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal updated session: %w", err)
	}

	remainingTTL := time.Until(session.ExpiresAt)
	if remainingTTL <= 0 {
		return fmt.Errorf("session expired")
	}

	return RedisClient.Set(ctx, tokenSessionKey(accessToken), sessionData, remainingTTL).Err()
}

// RevokeTokenSession removes the session for a token.
func RevokeTokenSession(accessToken string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if err := RedisClient.Del(ctx, tokenSessionKey(accessToken)).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// RevokeAllUserSessions removes every session belonging to one user.
func RevokeAllUserSessions(userID uuid.UUID) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	keys, err := RedisClient.Keys(ctx, "token:session:*").Result()
	if err != nil {
		return fmt.Errorf("failed to scan session keys: %w", err)
	}

	for _, key := range keys {
		sessionData, err := RedisClient.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		var session models.TokenSession
		if json.Unmarshal([]byte(sessionData), &session) == nil {
			if session.Profile.UserID == userID {
				RedisClient.Del(ctx, key)
			}
		}
	}

	return nil
}

// Organization brand cache. The public brand lookup by slug sits on
// every tenant login page, so results are cached briefly.

const brandCacheTTL = 5 * time.Minute

// OrganizationBrand is the public branding payload for a tenant.
type OrganizationBrand struct {
	Name    string  `json:"name"`
	LogoURL *string `json:"logo_url,omitempty"`
}

func brandCacheKey(slug string) string {
	return "org:brand:" + slug
}

// CacheBrand stores a brand lookup result for a canonical slug.
func CacheBrand(slug string, brand OrganizationBrand) error {
	data, err := json.Marshal(brand)
	if err != nil {
		return fmt.Errorf("failed to marshal brand: %w", err)
	}
	return CacheSet(brandCacheKey(slug), string(data), brandCacheTTL)
}

// GetCachedBrand retrieves a cached brand lookup result.
func GetCachedBrand(slug string) (*OrganizationBrand, error) {
	data, err := CacheGet(brandCacheKey(slug))
	if err != nil {
		return nil, err
	}
	var brand OrganizationBrand
	if err := json.Unmarshal([]byte(data), &brand); err != nil {
		return nil, fmt.Errorf("failed to unmarshal brand: %w", err)
	}
	return &brand, nil
}

// InvalidateBrand drops the cached brand for a slug, used after
// organization updates and deletes.
func InvalidateBrand(slug string) {
	_ = CacheDelete(brandCacheKey(slug))
}
