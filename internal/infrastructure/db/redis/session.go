package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ibtissamelhani/induspress/internal/core/ports"
)

// SessionStorage keeps the persisted session under two keys written in one
// MULTI/EXEC block.
type SessionStorage struct {
	client *redis.Client
	ns     string
}

func NewSessionStorage(client *redis.Client, namespace string) *SessionStorage {
	return &SessionStorage{client: client, ns: namespace}
}

func (s *SessionStorage) tokenKey() string { return key(s.ns, "session", ports.KeyToken) }
func (s *SessionStorage) userKey() string  { return key(s.ns, "session", ports.KeyUser) }

func (s *SessionStorage) Load(ctx context.Context) (string, []byte, bool, error) {
	vals, err := s.client.MGet(ctx, s.tokenKey(), s.userKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", nil, false, fmt.Errorf("redis session load: %w", err)
	}
	token, _ := vals[0].(string)
	user, _ := vals[1].(string)
	if token == "" || user == "" {
		return "", nil, false, nil
	}
	return token, []byte(user), true, nil
}

func (s *SessionStorage) Save(ctx context.Context, token string, identity []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(), token, 0)
		pipe.Set(ctx, s.userKey(), identity, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis session save: %w", err)
	}
	return nil
}

func (s *SessionStorage) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.tokenKey(), s.userKey()).Err(); err != nil {
		return fmt.Errorf("redis session clear: %w", err)
	}
	return nil
}

var _ ports.SessionStorage = (*SessionStorage)(nil)
