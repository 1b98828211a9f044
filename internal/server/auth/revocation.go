package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList remembers revoked token ids until the tokens expire.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, expires time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const revokedKeyPrefix = "famtree:revoked:"

// RedisRevocationList stores revoked ids as keys with a TTL matching the
// token's remaining lifetime.
type RedisRevocationList struct {
	rdb redis.UniversalClient
}

func NewRedisRevocationList(rdb redis.UniversalClient) *RedisRevocationList {
	return &RedisRevocationList{rdb: rdb}
}

func (l *RedisRevocationList) Revoke(ctx context.Context, jti string, expires time.Time) error {
	ttl := time.Until(expires)
	if ttl <= 0 {
		ttl = time.Minute
	}
	return l.rdb.SetNX(ctx, revokedKeyPrefix+jti, "1", ttl).Err()
}

func (l *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.rdb.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryRevocationList is the single-process fallback.
type MemoryRevocationList struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{revoked: map[string]time.Time{}, now: time.Now}
}

func (l *MemoryRevocationList) Revoke(_ context.Context, jti string, expires time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[jti] = expires
	l.purgeLocked()
	return nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	exp, ok := l.revoked[jti]
	return ok && l.now().Before(exp), nil
}

func (l *MemoryRevocationList) purgeLocked() {
	now := l.now()
	for k, exp := range l.revoked {
		if !now.Before(exp) {
			delete(l.revoked, k)
		}
	}
}
