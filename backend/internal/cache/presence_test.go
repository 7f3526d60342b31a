package cache

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

func testClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379", DB: 9})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("skip: redis not available: %v", err)
	}
	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})
	return rdb
}

func TestHeartbeatAndAliveMembers(t *testing.T) {
	rdb := testClient(t)
	p := NewRedisPresence(rdb)
	ctx := context.Background()

	if err := p.Heartbeat(ctx, "doc1", "c1", "Alice", time.Minute); err != nil {
		t.Fatalf("Heartbeat error: %v", err)
	}
	if err := p.Heartbeat(ctx, "doc1", "c2", "Bob", time.Minute); err != nil {
		t.Fatalf("Heartbeat error: %v", err)
	}

	members, err := p.AliveMembers(ctx, "doc1")
	if err != nil {
		t.Fatalf("AliveMembers error: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("AliveMembers returned %d members, want 2", len(members))
	}
	names := map[string]string{}
	for _, m := range members {
		names[m.ConnID] = m.Name
	}
	if names["c1"] != "Alice" || names["c2"] != "Bob" {
		t.Fatalf("members = %v, want Alice and Bob", names)
	}
}

func TestExpiredMembersAreSwept(t *testing.T) {
	rdb := testClient(t)
	p := NewRedisPresence(rdb)
	ctx := context.Background()

	// negative ttl: expired the moment it lands
	if err := p.Heartbeat(ctx, "doc1", "c1", "Ghost", -time.Second); err != nil {
		t.Fatalf("Heartbeat error: %v", err)
	}
	members, err := p.AliveMembers(ctx, "doc1")
	if err != nil {
		t.Fatalf("AliveMembers error: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("AliveMembers returned %d members, want 0", len(members))
	}
}

func TestRemoveDropsMemberAndCursor(t *testing.T) {
	rdb := testClient(t)
	p := NewRedisPresence(rdb)
	ctx := context.Background()

	if err := p.Heartbeat(ctx, "doc1", "c1", "Alice", time.Minute); err != nil {
		t.Fatalf("Heartbeat error: %v", err)
	}
	if err := p.SetCursor(ctx, "doc1", "c1", []byte(`{"index":3}`), time.Minute); err != nil {
		t.Fatalf("SetCursor error: %v", err)
	}
	if cur, err := p.Cursor(ctx, "doc1", "c1"); err != nil || string(cur) != `{"index":3}` {
		t.Fatalf("Cursor = (%q, %v), want the stored blob", cur, err)
	}

	if err := p.Remove(ctx, "doc1", "c1"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	members, err := p.AliveMembers(ctx, "doc1")
	if err != nil {
		t.Fatalf("AliveMembers error: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("AliveMembers returned %d members after Remove, want 0", len(members))
	}
	if _, err := p.Cursor(ctx, "doc1", "c1"); err == nil {
		t.Fatal("Cursor still present after Remove")
	}
}
