// Package snapshot persists opaque state checkpoints to a single file,
// written atomically so a crash mid-write never corrupts the previous
// checkpoint.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileSnapshotter stores checkpoints at a fixed path.  It satisfies the
// aggregator's Snapshotter.
type FileSnapshotter struct {
	path string
}

func New(path string) *FileSnapshotter {
	return &FileSnapshotter{path: path}
}

// Save writes the checkpoint via a temp file and rename.
func (f *FileSnapshotter) Save(data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("creating snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Load returns the last saved checkpoint, or (nil, nil) when none exists.
func (f *FileSnapshotter) Load() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return data, nil
}
