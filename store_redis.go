package session

import (
	"context"
	"strconv"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

const (
	redisFieldAccessToken  = "access_token"
	redisFieldRefreshToken = "refresh_token"
	redisFieldIDToken      = "id_token"
	redisFieldExpiresAt    = "expires_at"
)

// RedisTokenStore keeps the credential set in a single redis hash so the four
// fields are written and removed together. Useful when several portal
// replicas must share one logical session.
type RedisTokenStore struct {
	client *redis.Client
	key    string
}

// Verify interface compliance
var _ TokenStore = (*RedisTokenStore)(nil)

// NewRedisTokenStore creates a store using key as the hash name, e.g.
// "session:credentials:<client-id>".
func NewRedisTokenStore(client *redis.Client, key string) *RedisTokenStore {
	return &RedisTokenStore{client: client, key: key}
}

// Save atomically replaces the stored credential set
func (s *RedisTokenStore) Save(ctx context.Context, creds *CredentialSet) error {
	if creds == nil {
		return s.Clear(ctx)
	}

	fields := map[string]any{
		redisFieldAccessToken:  creds.AccessToken,
		redisFieldRefreshToken: creds.RefreshToken,
		redisFieldIDToken:      creds.IDToken,
		redisFieldExpiresAt:    strconv.FormatInt(creds.ExpiresAt.UnixMilli(), 10),
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key)
	pipe.HSet(ctx, s.key, fields)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to persist credentials").
			WithCode(errors.CodeInternal)
	}

	return nil
}

// Load returns the stored credential set, treating a missing hash or any
// missing field as no session
func (s *RedisTokenStore) Load(ctx context.Context) (*CredentialSet, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to load credentials").
			WithCode(errors.CodeInternal)
	}

	if len(fields) == 0 {
		return nil, nil
	}

	millis, err := strconv.ParseInt(fields[redisFieldExpiresAt], 10, 64)
	if err != nil {
		// corrupt expiry resolves to no session, same as a partial read
		return nil, nil
	}

	creds := &CredentialSet{
		AccessToken:  fields[redisFieldAccessToken],
		RefreshToken: fields[redisFieldRefreshToken],
		IDToken:      fields[redisFieldIDToken],
		ExpiresAt:    time.UnixMilli(millis),
	}

	if !creds.Complete() {
		return nil, nil
	}

	return creds, nil
}

// Clear removes the stored credential set
func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to clear credentials").
			WithCode(errors.CodeInternal)
	}
	return nil
}
