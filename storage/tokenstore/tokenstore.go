package tokenstore

import (
	"context"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

const keyPrefix = "token_version:"

// New returns a redis store when an address is configured, a memory store otherwise.
// The memory store forgets every revocation when the process restarts,
// core.Config.Check requires redis.address outside of DEV|TEST for that reason.
// The returned func releases the store's resources.
func New(ctx context.Context, conf *core.Config) (user.TokenStore, func(), error) {
	if conf.Redis.Address == "" {
		return NewMemoryStore(), func() {}, nil
	}
	client, err := NewRedisClient(ctx, conf.Redis)
	if err != nil {
		return nil, nil, err
	}
	return NewRedisStore(client, conf.AppName), func() { _ = client.Close() }, nil
}

type redisStore struct {
	client *redis.Client
	prefix string
}

var _ user.TokenStore = (*redisStore)(nil) // interface compliance check

// NewRedisStore keeps the token versions in redis, so that every API instance sees a logout.
func NewRedisStore(client *redis.Client, appName string) user.TokenStore {
	return &redisStore{
		client: client,
		prefix: core.CleanString(appName, true /* lower */) + ":" + keyPrefix,
	}
}

// NewRedisClient connects to the configured redis server.
func NewRedisClient(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Address,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func (s *redisStore) key(userID int64) string {
	return s.prefix + strconv.FormatInt(userID, 10)
}

func (s *redisStore) Version(ctx context.Context, userID int64) (int64, error) {
	v, err := s.client.Get(ctx, s.key(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "getting token version")
	}
	return v, nil
}

func (s *redisStore) Revoke(ctx context.Context, userID int64) (int64, error) {
	v, err := s.client.Incr(ctx, s.key(userID)).Result()
	if err != nil {
		return 0, errors.Wrap(err, "incrementing token version")
	}
	return v, nil
}

type memoryStore struct {
	mu       sync.RWMutex
	versions map[int64]int64
}

var _ user.TokenStore = (*memoryStore)(nil) // interface compliance check

// NewMemoryStore keeps the token versions in the process, for DEV and tests.
// Versions restart at 0 with the process: tokens revoked before a restart are accepted again.
func NewMemoryStore() user.TokenStore {
	return &memoryStore{versions: make(map[int64]int64)}
}

func (s *memoryStore) Version(_ context.Context, userID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[userID], nil
}

func (s *memoryStore) Revoke(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[userID]++
	return s.versions[userID], nil
}
