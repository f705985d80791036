package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lease never removes a lock taken over by another request.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	ErrLockUnavailable = errors.New("lock_unavailable")
	ErrInvalidLease    = errors.New("invalid_lease")
)

// Lease is a held lock. Release is idempotent.
type Lease struct {
	Key   string
	Token string

	locker *Locker
}

type Locker struct {
	client  *redis.Client
	release *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client:  client,
		release: redis.NewScript(releaseScript),
	}
}

// Acquire takes key for ttl. A nil lease with a nil error means another
// holder has it.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if l == nil || l.client == nil {
		return nil, ErrLockUnavailable
	}
	key = strings.TrimSpace(key)
	if key == "" || ttl <= 0 {
		return nil, ErrInvalidLease
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &Lease{Key: key, Token: token, locker: l}, nil
}

func (lease *Lease) Release(ctx context.Context) error {
	if lease == nil || lease.locker == nil || lease.Token == "" {
		return nil
	}
	l := lease.locker
	lease.locker = nil
	return l.release.Run(ctx, l.client, []string{lease.Key}, lease.Token).Err()
}
