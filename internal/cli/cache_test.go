package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestCacheDirXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)

	got, err := cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, appName); got != want {
		t.Errorf("cacheDir() = %q, want %q", got, want)
	}
}

func TestNewCacheDisabled(t *testing.T) {
	ctx := context.Background()
	c := newCache(ctx, CacheConfig{}, true)
	defer c.Close()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("disabled cache must not store values")
	}
}

func TestNewCacheFileBacked(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	ctx := context.Background()
	c := newCache(ctx, CacheConfig{}, false)
	defer c.Close()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	data, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(data) != "v" {
		t.Errorf("Get = (%q, %v, %v), want cached value", data, ok, err)
	}
}
