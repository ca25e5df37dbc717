package result

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckpointSaveLoadRoundTrips(t *testing.T) {
	ckpt := NewCheckpoint([]string{"a.bin", "b.bin", "c.bin"})
	ckpt.Completed = append(ckpt.Completed, Report{Source: "a.bin", Bound: 6})
	ckpt.Remaining = ckpt.Remaining[1:]

	path := filepath.Join(t.TempDir(), "batch.ckpt")
	if err := SaveCheckpoint(path, ckpt); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	loaded, err := LoadCheckpoint(path)
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	if loaded.BatchID != ckpt.BatchID {
		t.Fatalf("batch id mismatch: %v != %v", loaded.BatchID, ckpt.BatchID)
	}
	if len(loaded.Completed) != 1 || loaded.Completed[0].Source != "a.bin" {
		t.Fatalf("unexpected completed list: %+v", loaded.Completed)
	}
	if len(loaded.Remaining) != 2 {
		t.Fatalf("unexpected remaining list: %v", loaded.Remaining)
	}
}

func TestLoadCheckpointMissingFileErrors(t *testing.T) {
	if _, err := LoadCheckpoint(filepath.Join(os.TempDir(), "does-not-exist.ckpt")); err == nil {
		t.Fatalf("expected an error for a missing checkpoint file")
	}
}
