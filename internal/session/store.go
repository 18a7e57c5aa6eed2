// Package session keeps per-browser state: the external API credentials and page state such as
// the admin workspace drafts. State lives in a Redis hash per browser session.
package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 24 * time.Hour

// Fields of the session hash.
const (
	FieldUpstream = "upstream"
	FieldAdmin    = "admin"
	FieldFlash    = "flash"
)

type Config struct {
	Redis  redis.UniversalClient
	Prefix string
	TTL    time.Duration
}

type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewStore(c Config) *Store {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &Store{
		redis:  c.Redis,
		prefix: c.Prefix,
		ttl:    ttl,
	}
}

// NewID returns a fresh, time-ordered browser session ID.
func (s *Store) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate session ID: %w", err)
	}
	return id.String(), nil
}

// Get decodes field of session id into v. It reports false when the field is not set.
func (s *Store) Get(ctx context.Context, id, field string, v any) (bool, error) {
	b, err := s.redis.HGet(ctx, s.key(id), field).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("session: get %s: %w", field, err)
	}

	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("session: decode %s: %w", field, err)
	}
	return true, nil
}

// Set stores v as field of session id and extends the session lifetime.
func (s *Store) Set(ctx context.Context, id, field string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", field, err)
	}

	key := s.key(id)
	_, err = s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, field, b)
		p.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: set %s: %w", field, err)
	}
	return nil
}

// Touch extends the lifetime of session id. It is a no-op for a session with no fields.
func (s *Store) Touch(ctx context.Context, id string) error {
	if err := s.redis.Expire(ctx, s.key(id), s.ttl).Err(); err != nil {
		return fmt.Errorf("session: touch: %w", err)
	}
	return nil
}

// Take reads field into v and removes it, for one-shot values such as flash messages.
func (s *Store) Take(ctx context.Context, id, field string, v any) (bool, error) {
	ok, err := s.Get(ctx, id, field, v)
	if err != nil || !ok {
		return ok, err
	}
	return true, s.Del(ctx, id, field)
}

func (s *Store) Del(ctx context.Context, id string, fields ...string) error {
	if err := s.redis.HDel(ctx, s.key(id), fields...).Err(); err != nil {
		return fmt.Errorf("session: del %v: %w", fields, err)
	}
	return nil
}

// Destroy drops every field of the session.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("session: destroy: %w", err)
	}
	return nil
}

func (s *Store) key(id string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, id)
}
