package devotp

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Put(ctx, "h-1", "123456", time.Now().UTC().Add(5*time.Minute))

	code, ok := store.Get(ctx, "h-1")
	if !ok {
		t.Fatal("Get should return code after Put")
	}
	if code != "123456" {
		t.Errorf("code = %q, want %q", code, "123456")
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()
	code, ok := store.Get(context.Background(), "nonexistent")
	if ok || code != "" {
		t.Errorf("Get missing = (%q, %v), want empty, false", code, ok)
	}
}

func TestMemoryStore_GetExpiredRemovesEntry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Put(ctx, "h-1", "123456", time.Now().UTC().Add(-time.Minute))

	if _, ok := store.Get(ctx, "h-1"); ok {
		t.Error("Get should return false for expired code")
	}
	if store.Len() != 0 {
		t.Errorf("expired entry should be removed on Get, Len = %d", store.Len())
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Put(ctx, "h-1", "123456", time.Now().UTC().Add(time.Minute))
	store.Delete(ctx, "h-1")
	if _, ok := store.Get(ctx, "h-1"); ok {
		t.Error("Get after Delete should return false")
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.nowF = func() time.Time { return base }

	store.Put(ctx, "old", "111111", base.Add(-time.Second))
	store.Put(ctx, "edge", "222222", base)
	store.Put(ctx, "fresh", "333333", base.Add(time.Minute))

	if n := store.Sweep(); n != 2 {
		t.Errorf("Sweep removed %d, want 2", n)
	}
	if _, ok := store.Get(ctx, "fresh"); !ok {
		t.Error("fresh code should survive Sweep")
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := fmt.Sprintf("h-%d", i)
			store.Put(ctx, h, "000000", time.Now().UTC().Add(time.Minute))
			store.Get(ctx, h)
			store.Sweep()
		}(i)
	}
	wg.Wait()
	if store.Len() != 50 {
		t.Errorf("Len = %d, want 50", store.Len())
	}
}
