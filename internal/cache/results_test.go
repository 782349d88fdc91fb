package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/basel-ax/watermark-builder/internal/cache"
)

func TestKey(t *testing.T) {
	if got := cache.Key("abc", 7); got != "watermark:result:abc:7" {
		t.Errorf("Key = %q", got)
	}
	if cache.Key("abc", 7) == cache.Key("abc", 8) {
		t.Error("different submissions share a key")
	}
}

func TestResultCache(t *testing.T) {
	addr := os.Getenv("WATERMARK_TEST_REDIS")
	if addr == "" {
		t.Skip("WATERMARK_TEST_REDIS not set")
	}
	client := cache.NewClient(addr, "", 0)
	c := cache.NewResultCache(client, time.Minute)
	defer c.Close()
	ctx := context.Background()
	session := uuid.NewString()

	if err := c.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}
	if data, err := c.Get(ctx, session, 1); err != nil || data != nil {
		t.Fatalf("Get on miss = %q, %v", data, err)
	}
	if err := c.Put(ctx, session, 1, []byte("png")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if data, err := c.Get(ctx, session, 1); err != nil || string(data) != "png" {
		t.Errorf("Get = %q, %v", data, err)
	}
}
