package batch

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	id "healthnet/pkg/domain"
)

// Leaser grants short-lived exclusive leases on workers so that two batch
// runners never attempt the same worker at once. ok is false when the lease
// is held elsewhere; release must be called once the attempt is over.
type Leaser interface {
	Acquire(ctx context.Context, workerID id.WorkerID, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

const leaseKeyPrefix = "healthnet:verify:lease:"

// releaseScript deletes the lease only while it still carries our token, so
// an expired lease re-acquired by another runner is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLeaser implements Leaser with SET NX PX.
type RedisLeaser struct {
	client *redis.Client
}

func NewRedisLeaser(client *redis.Client) *RedisLeaser {
	return &RedisLeaser{client: client}
}

func (l *RedisLeaser) Acquire(ctx context.Context, workerID id.WorkerID, ttl time.Duration) (func(context.Context) error, bool, error) {
	key := leaseKeyPrefix + strconv.FormatInt(int64(workerID), 10)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lease: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}

// MemoryLeaser implements Leaser for a single process.
type MemoryLeaser struct {
	mu     sync.Mutex
	leases map[id.WorkerID]time.Time
	now    func() time.Time
}

func NewMemoryLeaser() *MemoryLeaser {
	return &MemoryLeaser{
		leases: make(map[id.WorkerID]time.Time),
		now:    time.Now,
	}
}

func (l *MemoryLeaser) Acquire(_ context.Context, workerID id.WorkerID, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expires, held := l.leases[workerID]; held && now.Before(expires) {
		return nil, false, nil
	}
	expires := now.Add(ttl)
	l.leases[workerID] = expires

	release := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.leases[workerID].Equal(expires) {
			delete(l.leases, workerID)
		}
		return nil
	}
	return release, true, nil
}
