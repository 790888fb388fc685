package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Lock is a cross-process "run once" lock built on SET NX with TTL
// ⭐ SSOT: 스케줄 잡 중복 실행 방지는 여기서만
type Lock struct {
	client *Client
	prefix string
	owner  string
}

// NewLock creates a lock helper; owner identifies this process in the stored value
func NewLock(client *Client, prefix string) *Lock {
	host, _ := os.Hostname()
	return &Lock{
		client: client,
		prefix: prefix,
		owner:  fmt.Sprintf("%s:%d", host, os.Getpid()),
	}
}

// WithOwner overrides the stored owner value
func (l *Lock) WithOwner(owner string) *Lock {
	l.owner = owner
	return l
}

func (l *Lock) key(name string) string {
	return fmt.Sprintf("%s:lock:%s", l.prefix, name)
}

// Acquire returns true when this call took the lock.
// Redis 비활성화 시 항상 true (단일 프로세스 가정)
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if !l.client.Enabled() {
		return true, nil
	}

	ok, err := l.client.Redis().SetNX(ctx, l.key(name), l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// ErrLockNotHeld is returned by Release when the key expired or belongs to another owner
var ErrLockNotHeld = errors.New("lock not held by this owner")

// releaseScript deletes the key only while it still holds our owner value
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Release drops the lock so a failed run can be retried.
// TTL 만료 후 다른 프로세스가 잡은 락은 건드리지 않음
func (l *Lock) Release(ctx context.Context, name string) error {
	if !l.client.Enabled() {
		return nil
	}

	n, err := l.client.Redis().Eval(ctx, releaseScript, []string{l.key(name)}, l.owner).Int64()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("release lock %s: %w", name, ErrLockNotHeld)
	}
	return nil
}

// JobLockName builds the per-day lock name of a scheduled job
func JobLockName(job, dateKey string) string {
	return fmt.Sprintf("job:%s:%s", job, dateKey)
}
