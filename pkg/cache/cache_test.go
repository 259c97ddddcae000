package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	// Delete does nothing (no error)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "program:text", []byte("payload"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "program:text")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hit || string(data) != "payload" {
		t.Errorf("Get = %q, %t, want payload hit", data, hit)
	}

	if err := c.Delete(ctx, "program:text"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "program:text"); hit {
		t.Error("Get after Delete should miss")
	}

	// Deleting a missing key is fine.
	if err := c.Delete(ctx, "ghost"); err != nil {
		t.Errorf("Delete missing key: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	// A negative ttl is already expired and stores nothing.
	if err := c.Set(ctx, "gone", []byte("value"), -time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "gone"); hit {
		t.Error("negative ttl entry should miss")
	}

	// A short positive ttl expires once the deadline passes.
	if err := c.Set(ctx, "brief", []byte("value"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(25 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "brief"); hit {
		t.Error("expired entry should miss")
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	// ProgramKey
	if got := k.ProgramKey("newsgroups"); got != "program:newsgroups" {
		t.Errorf("ProgramKey unexpected: %s", got)
	}

	// RenderKey should include options in hash
	rk1 := k.RenderKey("hash123", RenderKeyOpts{Format: "svg"})
	rk2 := k.RenderKey("hash123", RenderKeyOpts{Format: "dot"})
	if rk1 == rk2 {
		t.Error("Different RenderKeyOpts should produce different keys")
	}

	// QueryKey
	qk1 := k.QueryKey("hash123", QueryKeyOpts{Kind: "ancestors", Index: 3})
	qk2 := k.QueryKey("hash123", QueryKeyOpts{Kind: "descendants", Index: 3})
	if qk1 == qk2 {
		t.Error("Different QueryKeyOpts should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "tenant:123:")

	// All keys should be prefixed
	if got := scoped.ProgramKey("text"); got != "tenant:123:program:text" {
		t.Errorf("ProgramKey unexpected: %s", got)
	}
	rk := scoped.RenderKey("hash", RenderKeyOpts{Format: "svg"})
	if rk[:11] != "tenant:123:" {
		t.Errorf("RenderKey missing prefix: %s", rk)
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	t.Run("non-retryable fails fast", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			return errors.New("permanent")
		})
		if err == nil || calls != 1 {
			t.Errorf("err = %v, calls = %d, want 1 call with error", err, calls)
		}
	})

	t.Run("success on first try", func(t *testing.T) {
		if err := RetryWithBackoff(ctx, func() error { return nil }); err != nil {
			t.Errorf("RetryWithBackoff: %v", err)
		}
	})
}
