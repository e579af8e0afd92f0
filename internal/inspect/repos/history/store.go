package history

import (
	"errors"
	"time"

	"github.com/haukened/rr-inspect/internal/inspect/domain"
)

// ErrEmpty is returned by Store.Latest when nothing was saved yet.
var ErrEmpty = errors.New("no snapshots stored")

// Entry is one stored run.
type Entry struct {
	TakenAt  time.Time
	Snapshot domain.TrafficSnapshot
}

// Store persists end-of-run snapshots keyed by the time they were taken.
// Saving twice with the same timestamp overwrites the earlier entry.
type Store interface {
	Save(takenAt time.Time, s domain.TrafficSnapshot) error
	// List returns every entry, oldest first.
	List() ([]Entry, error)
	Latest() (Entry, error)
	Close() error
}
