package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/openradius/openradius/internal/tenant"
)

// MaxCacheTTL bounds how long a revoked permission may keep granting access.
const MaxCacheTTL = 5 * time.Minute

const (
	cacheKeyPrefix = "openradius:authz"
	// InvalidationChannel carries "<tenant>" or "<tenant>/<user>" payloads.
	InvalidationChannel = "openradius:authz.invalidate"
)

// PermissionCache keeps the effective permission set of a user per workspace.
//
// Writers read the Generation before loading from the store and pass it to
// SetIfGeneration. Every invalidation of the workspace changes the generation,
// so a load that started before a revoke is never written back.
type PermissionCache interface {
	Get(ctx context.Context, tid tenant.ID, userID int64) ([]string, bool, error)
	Generation(ctx context.Context, tid tenant.ID) (string, error)
	SetIfGeneration(ctx context.Context, tid tenant.ID, userID int64, gen string, perms []string) (bool, error)
	Invalidate(ctx context.Context, tid tenant.ID, userID int64) error
	InvalidateTenant(ctx context.Context, tid tenant.ID) error
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 || ttl > MaxCacheTTL {
		return fmt.Errorf("%w: %s not in (0, %s]", ErrInvalidCacheTTL, ttl, MaxCacheTTL)
	}
	return nil
}

type cachedSet struct {
	Permissions []string  `json:"permissions"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// RedisCache shares permission sets between replicas. Entries are keyed by a
// per-workspace version so a workspace can be flushed with a single INCR. A
// second per-workspace counter, the epoch, moves on every single-user
// invalidation; version and epoch together form the generation.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache instantiates the cache helper.
func NewRedisCache(client *redis.Client, ttl time.Duration) (*RedisCache, error) {
	if client == nil {
		return nil, errors.New("rbac: redis client required")
	}
	if err := validateTTL(ttl); err != nil {
		return nil, err
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func versionKey(tid tenant.ID) string {
	return cacheKeyPrefix + ":version:" + tid.String()
}

// Version returns the current workspace cache version. A missing version is 0.
func (c *RedisCache) Version(ctx context.Context, tid tenant.ID) (int64, error) {
	ver, err := c.client.Get(ctx, versionKey(tid)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func epochKey(tid tenant.ID) string {
	return cacheKeyPrefix + ":epoch:" + tid.String()
}

func entryKey(tid tenant.ID, ver string, userID int64) string {
	return fmt.Sprintf("%s:perms:%s:%s:%d", cacheKeyPrefix, tid, ver, userID)
}

func (c *RedisCache) buildKey(ctx context.Context, tid tenant.ID, userID int64) (string, error) {
	ver, err := c.Version(ctx, tid)
	if err != nil {
		return "", err
	}
	return entryKey(tid, strconv.FormatInt(ver, 10), userID), nil
}

// Generation implements PermissionCache. It renders as "<version>:<epoch>".
func (c *RedisCache) Generation(ctx context.Context, tid tenant.ID) (string, error) {
	vals, err := c.client.MGet(ctx, versionKey(tid), epochKey(tid)).Result()
	if err != nil {
		return "", fmt.Errorf("rbac: cache generation: %w", err)
	}
	return counterValue(vals[0]) + ":" + counterValue(vals[1]), nil
}

func counterValue(v any) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return "0"
}

// setIfGeneration writes the entry only while version and epoch still match.
//
//	KEYS: version, epoch, entry  ARGV: generation, payload, ttl ms
var setIfGeneration = redis.NewScript(`
local ver = redis.call("GET", KEYS[1]) or "0"
local epoch = redis.call("GET", KEYS[2]) or "0"
if ver .. ":" .. epoch ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[3], ARGV[2], "PX", ARGV[3])
return 1
`)

// Get implements PermissionCache.
func (c *RedisCache) Get(ctx context.Context, tid tenant.ID, userID int64) ([]string, bool, error) {
	key, err := c.buildKey(ctx, tid, userID)
	if err != nil {
		return nil, false, fmt.Errorf("rbac: cache get: %w", err)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("rbac: cache get: %w", err)
	}
	var entry cachedSet
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, false, fmt.Errorf("rbac: cache decode: %w", err)
	}
	return entry.Permissions, true, nil
}

// SetIfGeneration implements PermissionCache. It reports false without error
// when the workspace was invalidated after gen was read.
func (c *RedisCache) SetIfGeneration(ctx context.Context, tid tenant.ID, userID int64, gen string, perms []string) (bool, error) {
	ver, _, ok := strings.Cut(gen, ":")
	if !ok {
		return false, fmt.Errorf("rbac: cache set: malformed generation %q", gen)
	}
	raw, err := json.Marshal(cachedSet{Permissions: perms, LoadedAt: time.Now().UTC()})
	if err != nil {
		return false, fmt.Errorf("rbac: cache encode: %w", err)
	}
	keys := []string{versionKey(tid), epochKey(tid), entryKey(tid, ver, userID)}
	stored, err := setIfGeneration.Run(ctx, c.client, keys, gen, raw, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("rbac: cache set: %w", err)
	}
	return stored == 1, nil
}

// Set stores perms under the current generation.
func (c *RedisCache) Set(ctx context.Context, tid tenant.ID, userID int64, perms []string) error {
	gen, err := c.Generation(ctx, tid)
	if err != nil {
		return err
	}
	_, err = c.SetIfGeneration(ctx, tid, userID, gen, perms)
	return err
}

// Invalidate drops the cached set of one user and notifies listeners. The
// epoch moves first so a load racing with the revoke cannot write back.
func (c *RedisCache) Invalidate(ctx context.Context, tid tenant.ID, userID int64) error {
	if err := c.client.Incr(ctx, epochKey(tid)).Err(); err != nil {
		return fmt.Errorf("rbac: cache invalidate: %w", err)
	}
	key, err := c.buildKey(ctx, tid, userID)
	if err != nil {
		return fmt.Errorf("rbac: cache invalidate: %w", err)
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("rbac: cache invalidate: %w", err)
	}
	return c.client.Publish(ctx, InvalidationChannel, invalidationPayload(tid, userID)).Err()
}

// InvalidateTenant bumps the workspace version and notifies listeners.
func (c *RedisCache) InvalidateTenant(ctx context.Context, tid tenant.ID) error {
	if err := c.client.Incr(ctx, versionKey(tid)).Err(); err != nil {
		return fmt.Errorf("rbac: cache bump: %w", err)
	}
	return c.client.Publish(ctx, InvalidationChannel, tid.String()).Err()
}

func invalidationPayload(tid tenant.ID, userID int64) string {
	return tid.String() + "/" + strconv.FormatInt(userID, 10)
}

func parseInvalidation(payload string) (tenant.ID, int64, bool) {
	rawTenant, rawUser, hasUser := strings.Cut(payload, "/")
	tid, err := tenant.ParseID(rawTenant)
	if err != nil {
		return "", 0, false
	}
	if !hasUser {
		return tid, 0, true
	}
	userID, err := strconv.ParseInt(rawUser, 10, 64)
	if err != nil || userID <= 0 {
		return "", 0, false
	}
	return tid, userID, true
}

type memoryKey struct {
	tenant tenant.ID
	userID int64
}

// MemoryCache keeps permission sets in process. Each replica holds its own
// copy; ListenForInvalidation keeps replicas in step when Redis is around.
type MemoryCache struct {
	entries *expirable.LRU[memoryKey, []string]

	mu     sync.Mutex
	epochs map[tenant.ID]uint64
}

// NewMemoryCache constructs a MemoryCache holding at most size users.
func NewMemoryCache(size int, ttl time.Duration) (*MemoryCache, error) {
	if err := validateTTL(ttl); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 4096
	}
	return &MemoryCache{
		entries: expirable.NewLRU[memoryKey, []string](size, nil, ttl),
		epochs:  make(map[tenant.ID]uint64),
	}, nil
}

// Get implements PermissionCache.
func (c *MemoryCache) Get(_ context.Context, tid tenant.ID, userID int64) ([]string, bool, error) {
	perms, ok := c.entries.Get(memoryKey{tenant: tid, userID: userID})
	return perms, ok, nil
}

// Generation implements PermissionCache.
func (c *MemoryCache) Generation(_ context.Context, tid tenant.ID) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strconv.FormatUint(c.epochs[tid], 10), nil
}

// SetIfGeneration implements PermissionCache.
func (c *MemoryCache) SetIfGeneration(_ context.Context, tid tenant.ID, userID int64, gen string, perms []string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strconv.FormatUint(c.epochs[tid], 10) != gen {
		return false, nil
	}
	c.entries.Add(memoryKey{tenant: tid, userID: userID}, perms)
	return true, nil
}

// Set stores perms under the current generation.
func (c *MemoryCache) Set(ctx context.Context, tid tenant.ID, userID int64, perms []string) error {
	gen, _ := c.Generation(ctx, tid)
	_, err := c.SetIfGeneration(ctx, tid, userID, gen, perms)
	return err
}

// Invalidate implements PermissionCache.
func (c *MemoryCache) Invalidate(_ context.Context, tid tenant.ID, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epochs[tid]++
	c.entries.Remove(memoryKey{tenant: tid, userID: userID})
	return nil
}

// InvalidateTenant implements PermissionCache.
func (c *MemoryCache) InvalidateTenant(_ context.Context, tid tenant.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epochs[tid]++
	for _, key := range c.entries.Keys() {
		if key.tenant == tid {
			c.entries.Remove(key)
		}
	}
	return nil
}

// Len returns the number of cached users.
func (c *MemoryCache) Len() int {
	return c.entries.Len()
}

// ListenForInvalidation subscribes to invalidation notifications published by
// RedisCache until ctx is done.
func (c *MemoryCache) ListenForInvalidation(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return nil
	}
	pubsub := client.Subscribe(ctx, InvalidationChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("rbac: subscribe: %w", err)
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				tid, userID, ok := parseInvalidation(msg.Payload)
				if !ok {
					continue
				}
				if userID == 0 {
					_ = c.InvalidateTenant(ctx, tid)
					continue
				}
				_ = c.Invalidate(ctx, tid, userID)
			}
		}
	}()
	return nil
}

var (
	_ PermissionCache = (*RedisCache)(nil)
	_ PermissionCache = (*MemoryCache)(nil)
)
