package cache

import (
	"context"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Member is one live connection in a document room.
type Member struct {
	ConnID string `json:"connId"`
	Name   string `json:"name,omitempty"`
}

// PresenceCache shares who is connected to which document, and their cursor
// positions, across server instances.
type PresenceCache interface {
	// Heartbeat registers the connection in the room (or refreshes its TTL).
	Heartbeat(ctx context.Context, docID, connID, name string, ttl time.Duration) error
	// Remove drops the connection from the room immediately.
	Remove(ctx context.Context, docID, connID string) error
	// AliveMembers sweeps expired entries and returns the live ones.
	AliveMembers(ctx context.Context, docID string) ([]Member, error)
	SetCursor(ctx context.Context, docID, connID string, jsonData []byte, ttl time.Duration) error
	Cursor(ctx context.Context, docID, connID string) ([]byte, error)
}

type redisPresence struct {
	rdb redis.UniversalClient
}

func NewRedisPresence(rdb redis.UniversalClient) PresenceCache {
	return &redisPresence{rdb: rdb}
}

func (p *redisPresence) Heartbeat(ctx context.Context, docID, connID, name string, ttl time.Duration) error {
	tx := p.rdb.TxPipeline()
	// score is expireAt (unix seconds); entries past it count as gone
	expireAt := time.Now().Add(ttl).Unix()
	tx.ZAdd(ctx, roomKey(docID), redis.Z{Score: float64(expireAt), Member: connID})
	tx.HSet(ctx, namesKey(docID), connID, name)
	_, err := tx.Exec(ctx)
	return err
}

func (p *redisPresence) Remove(ctx context.Context, docID, connID string) error {
	tx := p.rdb.TxPipeline()
	tx.ZRem(ctx, roomKey(docID), connID)
	tx.HDel(ctx, namesKey(docID), connID)
	tx.Del(ctx, cursorKey(docID, connID))
	_, err := tx.Exec(ctx)
	return err
}

// sweepScript removes members whose expireAt score has passed, together with
// their name entries.
var sweepScript = redis.NewScript(`
local expired = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
if #expired > 0 then
	redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
	redis.call("HDEL", KEYS[2], unpack(expired))
end
return #expired
`)

func (p *redisPresence) AliveMembers(ctx context.Context, docID string) ([]Member, error) {
	now := time.Now().Unix()
	if _, err := sweepScript.Run(ctx, p.rdb, []string{roomKey(docID), namesKey(docID)}, now).Int(); err != nil && err != redis.Nil {
		return nil, err
	}

	ids, err := p.rdb.ZRangeByScore(ctx, roomKey(docID), &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now, 10),
		Max: "+inf",
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	names, err := p.rdb.HMGet(ctx, namesKey(docID), ids...).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	members := make([]Member, 0, len(ids))
	for i, id := range ids {
		name := ""
		if i < len(names) && names[i] != nil {
			name, _ = names[i].(string)
		}
		members = append(members, Member{ConnID: id, Name: name})
	}
	return members, nil
}

func (p *redisPresence) SetCursor(ctx context.Context, docID, connID string, jsonData []byte, ttl time.Duration) error {
	return p.rdb.Set(ctx, cursorKey(docID, connID), jsonData, ttl).Err()
}

func (p *redisPresence) Cursor(ctx context.Context, docID, connID string) ([]byte, error) {
	return p.rdb.Get(ctx, cursorKey(docID, connID)).Bytes()
}
