package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCacheWithClient(client)
}

func TestListKeyFormat(t *testing.T) {
	companyID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	branchID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	on := time.Date(2025, time.March, 15, 10, 30, 0, 0, time.UTC)

	key := ListKey(companyID, branchID, "web", on)
	want := "list:11111111-1111-1111-1111-111111111111:22222222-2222-2222-2222-222222222222:web:2025-03-15"
	if key != want {
		t.Errorf("Key format mismatch, got %s", key)
	}

	// Missing channel collapses to a dash so keys stay parseable
	key = ListKey(companyID, branchID, "", on)
	want = "list:11111111-1111-1111-1111-111111111111:22222222-2222-2222-2222-222222222222:-:2025-03-15"
	if key != want {
		t.Errorf("Key format mismatch for empty channel, got %s", key)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	type entry struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := c.Set(ctx, "k1", entry{Name: "march list", Count: 3}, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var got entry
	if err := c.Get(ctx, "k1", &got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "march list" || got.Count != 3 {
		t.Errorf("Round trip mismatch: %+v", got)
	}
}

func TestGetMiss(t *testing.T) {
	c := newTestCache(t)

	var dest string
	err := c.Get(context.Background(), "absent", &dest)
	if err != ErrMiss {
		t.Errorf("Expected ErrMiss for absent key, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k2", "v", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Delete(ctx, "k2"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	exists, err := c.Exists(ctx, "k2")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Key should not exist after delete")
	}
}
