package result

import (
	"encoding/gob"
	"os"

	"github.com/google/uuid"
)

// Checkpoint holds the state of an in-progress batch run: every report
// completed so far and the id shared across the whole batch, so a
// resumed run appends to the same identity instead of minting a new one.
type Checkpoint struct {
	BatchID   uuid.UUID
	Completed []Report
	Remaining []string // source paths not yet analyzed
}

// NewCheckpoint starts a fresh batch over the given source paths.
func NewCheckpoint(sources []string) *Checkpoint {
	return &Checkpoint{BatchID: uuid.New(), Remaining: append([]string(nil), sources...)}
}

func init() {
	gob.Register(Report{})
}

// SaveCheckpoint writes batch state to a file.
func SaveCheckpoint(path string, ckpt *Checkpoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(ckpt)
}

// LoadCheckpoint loads batch state from a file.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var ckpt Checkpoint
	if err := gob.NewDecoder(f).Decode(&ckpt); err != nil {
		return nil, err
	}
	return &ckpt, nil
}
