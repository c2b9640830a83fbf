package snapshot

import (
	"context"
	"errors"
	"testing"
)

type demoState struct {
	Items []string `json:"items"`
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	in := demoState{Items: []string{"a", "b"}}
	if err := SaveState(ctx, s, "demo", 3, in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out demoState
	if err := LoadState(ctx, s, "demo", 3, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Items) != 2 || out.Items[0] != "a" {
		t.Errorf("unexpected state after reload: %+v", out)
	}
}

func TestLoadState_Missing(t *testing.T) {
	s := NewMemoryStore()
	var out demoState
	err := LoadState(context.Background(), s, "missing", 1, &out)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadState_VersionBumpDiscards(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := SaveState(ctx, s, "demo", 4, demoState{Items: []string{"old"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out demoState
	err := LoadState(ctx, s, "demo", 5, &out)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for stale version, got %v", err)
	}
	if len(out.Items) != 0 {
		t.Errorf("stale snapshot must not populate state, got %+v", out)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	if err := s.Save(ctx, "links", []byte(`{"version":5,"data":{}}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := s.Load(ctx, "links")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"version":5,"data":{}}` {
		t.Errorf("unexpected data: %s", data)
	}

	// Overwrite keeps the latest value.
	if err := s.Save(ctx, "links", []byte(`{"version":5,"data":{"x":1}}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err = s.Load(ctx, "links")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"version":5,"data":{"x":1}}` {
		t.Errorf("unexpected data after overwrite: %s", data)
	}
}

func TestFileStore_MissingName(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_SanitizesName(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	if err := s.Save(ctx, "../escape", []byte("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := s.Load(ctx, "../escape")
	if err != nil || string(data) != "x" {
		t.Errorf("sanitized name should round-trip, got %s err %v", data, err)
	}
}
