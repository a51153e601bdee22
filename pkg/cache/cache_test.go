package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestFileCacheRoundTrip(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "missing"); err != nil || ok {
		t.Errorf("Get(missing) = ok=%v err=%v, want miss", ok, err)
	}
	if err := c.Set(ctx, "k", []byte("payload"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(data) != "payload" {
		t.Errorf("Get(k) = %q ok=%v err=%v", data, ok, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("x"), time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expired entry should miss")
	}
}

func TestNullCache(t *testing.T) {
	c := NewNullCache()
	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("x"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("null cache should never hit")
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	if got := k.SnapshotKey("abc"); got != "snapshot:abc" {
		t.Errorf("SnapshotKey = %q", got)
	}
	a := k.ScanKey("s1", "p1", []string{"visibility"})
	b := k.ScanKey("s1", "p1", []string{"visibility"})
	if a != b {
		t.Errorf("ScanKey not deterministic: %q vs %q", a, b)
	}
	if c := k.ScanKey("s1", "p1", []string{"visibility", "imlate"}); c == a {
		t.Error("ScanKey ignores check list")
	}
	if !strings.HasPrefix(a, "scan:") {
		t.Errorf("ScanKey = %q, want scan: prefix", a)
	}
}

func TestScopedKeyer(t *testing.T) {
	k := NewScopedKeyer(NewDefaultKeyer(), "tenant:1:")
	if got := k.SnapshotKey("abc"); got != "tenant:1:snapshot:abc" {
		t.Errorf("SnapshotKey = %q", got)
	}
	if got := k.ScanKey("s", "p", nil); !strings.HasPrefix(got, "tenant:1:scan:") {
		t.Errorf("ScanKey = %q", got)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	k := NewScopedKeyer(nil, "p:")
	if got := k.SnapshotKey("abc"); got != "p:snapshot:abc" {
		t.Errorf("SnapshotKey = %q", got)
	}
}

func TestHashStable(t *testing.T) {
	if Hash([]byte("x")) != Hash([]byte("x")) {
		t.Error("Hash not deterministic")
	}
	if len(Hash([]byte("x"))) != 64 {
		t.Errorf("Hash length = %d, want 64", len(Hash([]byte("x"))))
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("success path: err=%v calls=%d", err, calls)
	}

	calls = 0
	permanent := ErrCacheMiss
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return permanent
	})
	if err != permanent || calls != 1 {
		t.Errorf("permanent error: err=%v calls=%d, want 1 call", err, calls)
	}
}
