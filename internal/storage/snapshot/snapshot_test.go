package snapshot

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "state.snapshot"))

	want := []byte("checkpoint payload")
	if err := f.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Load = %q, want %q", got, want)
	}
}

func TestSaveReplacesPrevious(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "state.snapshot"))

	if err := f.Save([]byte("first")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := f.Save([]byte("second")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Load = %q, want %q", got, "second")
	}
}

func TestLoadMissingReturnsNil(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "absent.snapshot"))

	got, err := f.Load()
	if err != nil {
		t.Fatalf("Load of missing snapshot: %v", err)
	}
	if got != nil {
		t.Errorf("Load = %q, want nil", got)
	}
}
