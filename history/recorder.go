// ABOUTME: Recorder persists each session to the index and archive once it reaches a terminal state.
// ABOUTME: It is a controller subscriber, so it only ever sees snapshots and never calls back in.
package history

import (
	"log"
	"sync"

	"github.com/2389-research/tickertape/engine"
)

// Recorder writes finished sessions. Either store may be nil.
type Recorder struct {
	index   *SqliteIndex
	archive *JsonlArchive
	logf    func(format string, args ...any)

	mu       sync.Mutex
	recorded map[string]bool
}

// NewRecorder returns a recorder writing to index and archive.
func NewRecorder(index *SqliteIndex, archive *JsonlArchive) *Recorder {
	return &Recorder{
		index:    index,
		archive:  archive,
		logf:     log.Printf,
		recorded: make(map[string]bool),
	}
}

// Attach subscribes r to c and returns the unsubscribe function.
func (r *Recorder) Attach(c *engine.Controller) func() {
	return c.Subscribe(r.Observe)
}

// Observe persists snap if it is the first terminal snapshot seen for its
// session. Write failures are logged, not returned.
func (r *Recorder) Observe(snap engine.Snapshot) {
	if !snap.Session.Status.Terminal() {
		return
	}
	r.mu.Lock()
	if r.recorded[snap.Session.ID] {
		r.mu.Unlock()
		return
	}
	r.recorded[snap.Session.ID] = true
	r.mu.Unlock()

	if r.archive != nil {
		if err := r.archive.Append(snap.Session.ID, snap.Trace); err != nil {
			r.logf("history archive failed session=%s err=%v", snap.Session.ID, err)
		}
	}
	if r.index != nil {
		if err := r.index.Upsert(RecordFromSnapshot(snap)); err != nil {
			r.logf("history index failed session=%s err=%v", snap.Session.ID, err)
		}
	}
}
