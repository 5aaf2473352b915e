package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// entryTTL caps the lifetime of every session and room entry. Entries are
// refreshed on each write, so the TTL only fires for sessions whose
// disconnect was never observed (abrupt network loss, crashed relay). It is
// a leak guard, not an eviction policy.
const entryTTL = 24 * time.Hour

const (
	sessionKeyPrefix = "voxhall:session:"
	roomKeyPrefix    = "voxhall:room:"
)

// boundedAdd inserts a member into a room set only while the set holds fewer
// than max members. Running it as a script keeps the size check and the
// insert atomic on the shared backend, so concurrent joiners cannot exceed
// room capacity.
var boundedAdd = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 1 then
  redis.call('EXPIRE', KEYS[1], ARGV[3])
  return 1
end
if redis.call('SCARD', KEYS[1]) >= tonumber(ARGV[2]) then
  return 0
end
redis.call('SADD', KEYS[1], ARGV[1])
redis.call('EXPIRE', KEYS[1], ARGV[3])
return 1
`)

// RedisBackend stores sessions and room membership in Redis so that several
// relay processes can share one presence view. Sessions are JSON strings,
// rooms are sets; both carry a 24h TTL refreshed on every write.
type RedisBackend struct {
	client *redis.Client
}

// RedisOptions holds the connection parameters for the shared backend.
type RedisOptions struct {
	Addr     string
	DB       int
	Password string
}

// NewRedisBackend connects to Redis with the given options. The caller is
// expected to Ping the backend at startup and treat a failure as fatal.
func NewRedisBackend(opts RedisOptions) *RedisBackend {
	return &RedisBackend{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			DB:       opts.DB,
			Password: opts.Password,
		}),
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func roomKey(room string) string {
	return roomKeyPrefix + room
}

// GetSession returns the stored session for id, if any.
func (r *RedisBackend) GetSession(ctx context.Context, id string) (Session, bool, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("redis get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Session{}, false, fmt.Errorf("redis decode session %s: %w", id, err)
	}
	return s, true, nil
}

// PutSession stores the session as JSON and refreshes its TTL.
func (r *RedisBackend) PutSession(ctx context.Context, s Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("redis encode session %s: %w", s.ID, err)
	}
	if err := r.client.Set(ctx, sessionKey(s.ID), raw, entryTTL).Err(); err != nil {
		return fmt.Errorf("redis put session: %w", err)
	}
	return nil
}

// DeleteSession removes the session if present.
func (r *RedisBackend) DeleteSession(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// RoomMembers returns the session ids currently in the room.
func (r *RedisBackend) RoomMembers(ctx context.Context, room string) ([]string, error) {
	ids, err := r.client.SMembers(ctx, roomKey(room)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis room members: %w", err)
	}
	return ids, nil
}

// AddMember adds id to the room set and refreshes the room's TTL.
func (r *RedisBackend) AddMember(ctx context.Context, room, id string) error {
	key := roomKey(room)
	if err := r.client.SAdd(ctx, key, id).Err(); err != nil {
		return fmt.Errorf("redis add member: %w", err)
	}
	if err := r.client.Expire(ctx, key, entryTTL).Err(); err != nil {
		return fmt.Errorf("redis refresh room ttl: %w", err)
	}
	return nil
}

// AddMemberBounded runs the bounded-insert script against the room set.
func (r *RedisBackend) AddMemberBounded(ctx context.Context, room, id string, max int) (bool, error) {
	ttlSeconds := int(entryTTL / time.Second)
	res, err := boundedAdd.Run(ctx, r.client, []string{roomKey(room)}, id, max, ttlSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("redis bounded add: %w", err)
	}
	return res == 1, nil
}

// RemoveMember removes id from the room set.
func (r *RedisBackend) RemoveMember(ctx context.Context, room, id string) error {
	if err := r.client.SRem(ctx, roomKey(room), id).Err(); err != nil {
		return fmt.Errorf("redis remove member: %w", err)
	}
	return nil
}

// DeleteRoom removes the room set entirely.
func (r *RedisBackend) DeleteRoom(ctx context.Context, room string) error {
	if err := r.client.Del(ctx, roomKey(room)).Err(); err != nil {
		return fmt.Errorf("redis delete room: %w", err)
	}
	return nil
}

// Ping verifies connectivity to the Redis server.
func (r *RedisBackend) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close shuts down the underlying Redis client.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
