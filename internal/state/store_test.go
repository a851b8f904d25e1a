package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"newsdigest/constants"
	"newsdigest/internal/common"
	"newsdigest/internal/discover"
)

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)

	st := New("20250907_120000")
	st.URLs = []discover.Article{{URL: "https://example.com/a", Title: "A", ScrapedAt: "2025-09-07T12:00:00Z"}}
	st.MarkCompleted(constants.StageDiscover)
	if err := store.Save(st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(st, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_LoadMissingIsStateNotFound(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	_, err := store.Load()
	if !errors.Is(err, common.ErrStateNotFound) {
		t.Fatalf("err = %v, want ErrStateNotFound", err)
	}
}

func TestStore_LoadRejectsCorruptState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, constants.StateFile)
	if err := os.WriteFile(path, []byte(`{"run_id": "", "status": "bogus"}`), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store := NewStore(dir, nil)
	if _, err := store.Load(); err == nil {
		t.Fatal("expected schema validation error for corrupt state")
	}
}

func TestMarkCompleted_MonotonicAndIdempotent(t *testing.T) {
	st := New("r1")
	st.MarkCompleted(constants.StageDiscover)
	st.MarkCompleted(constants.StageDiscover)
	st.MarkCompleted(constants.StageRender)

	want := []string{"discover", "render"}
	if diff := cmp.Diff(want, st.StepsCompleted); diff != "" {
		t.Errorf("StepsCompleted mismatch (-want +got):\n%s", diff)
	}
	if st.Status != constants.StatusPDFsGenerated {
		t.Errorf("Status = %q, want %q", st.Status, constants.StatusPDFsGenerated)
	}
}
