package s3

import (
	"context"
	"errors"
	"io"
	"testing"

	"nwbview/internal/blob/core"
)

func TestParseURI(t *testing.T) {
	bucket, key, err := ParseURI("s3://frames/session1/0.jpg")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if bucket != "frames" || key != "session1/0.jpg" {
		t.Fatalf("got %s %s", bucket, key)
	}
	for _, bad := range []string{"http://x/y", "s3://bucket", "s3:///key", "::"} {
		if _, _, err := ParseURI(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestMockGet(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests("frames", map[string][]byte{"frames/a/0.jpg": []byte("data")})
	if store.Driver() != core.DriverS3 {
		t.Fatalf("driver = %s", store.Driver())
	}
	info, rc, err := store.Get(ctx, "a/0.jpg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "data" || info.Key != "a/0.jpg" || info.ETag != "etag" {
		t.Fatalf("unexpected get %q %+v", b, info)
	}
	if info.Size != 4 {
		t.Fatalf("size = %d", info.Size)
	}
}

func TestMockNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests("frames", nil)
	if _, _, err := store.Get(ctx, "missing.jpg"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	other := store.WithBucket("other")
	if other.bucket != "other" || other.client != store.client {
		t.Fatalf("bucket = %s", other.bucket)
	}
}

func TestRequireBucket(t *testing.T) {
	store := NewMockForTests("", nil)
	if _, _, err := store.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected bucket error")
	}
}
