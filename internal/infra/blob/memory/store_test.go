package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"spreadsim/internal/blob/core"
)

func TestStoreMissingArtifact(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
	if _, err := store.URL(ctx, "missing", core.URLOptions{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from url, got %v", err)
	}
	if ok, err := store.Delete(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected delete false, got %v %v", ok, err)
	}
}

func TestStoreLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()
	meta := map[string]string{"run": "r1"}
	info, err := store.Put(ctx, "runs/r1/series.csv", strings.NewReader("tick\n0\n"), core.PutOptions{ContentType: "text/csv", Metadata: meta})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["run"] = "mutated"
	if info.ETag == "" || info.Size != 7 || info.URL != "mem:///runs/r1/series.csv" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "runs/r1/series.csv", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	got, rc, err := store.Get(ctx, "runs/r1/series.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "tick\n0\n" || got.Metadata["run"] != "r1" {
		t.Fatalf("unexpected artifact %+v %q", got, body)
	}
	got.Metadata["run"] = "changed"
	head, _ := store.Head(ctx, "runs/r1/series.csv")
	if head.Metadata["run"] != "r1" {
		t.Fatalf("metadata aliased: %+v", head.Metadata)
	}

	if _, err := store.Put(ctx, "runs/r2/series.csv", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put r2: %v", err)
	}
	list, err := store.List(ctx, "runs/")
	if err != nil || len(list) != 2 || list[0].Key != "runs/r1/series.csv" {
		t.Fatalf("unexpected list %+v (%v)", list, err)
	}
	if ok, err := store.Delete(ctx, "runs/r1/series.csv"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if list, _ := store.List(ctx, ""); len(list) != 1 {
		t.Fatalf("expected one artifact after delete, got %d", len(list))
	}
}

func TestStoreRejectsEmptyKeyAndCancelledContext(t *testing.T) {
	store := New()
	if _, err := store.Put(context.Background(), " ", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Put(ctx, "k", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
}
