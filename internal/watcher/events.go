package watcher

import (
	"time"

	"github.com/alucardeht/coffeeidx/internal/index"
)

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Gone reports events after which the path no longer holds the file.
func (e EventType) Gone() bool {
	return e == EventDelete || e == EventRename
}

// FileEvent is a change to one project-relative slash path.
type FileEvent struct {
	Path      string
	Type      EventType
	Timestamp time.Time
}

// merge folds a newer event for the same path into an older one. The file's
// final state wins, except that a write right after a create is still a create.
func merge(older, newer FileEvent) FileEvent {
	if older.Type == EventCreate && newer.Type == EventModify {
		newer.Type = EventCreate
	}
	return newer
}

// Job turns an event into the index job that brings the index up to date.
func (e FileEvent) Job(priority index.JobPriority) index.IndexJob {
	kind := index.JobUpdate
	if e.Type.Gone() {
		kind = index.JobRemove
	}
	return index.IndexJob{Path: e.Path, Kind: kind, Priority: priority}
}

// PriorityFor ranks a flushed batch: a single edit is what the user is looking
// at, a large batch is a checkout or a build and can wait.
func PriorityFor(batch []FileEvent) index.JobPriority {
	switch n := len(batch); {
	case n > 10:
		return index.PriorityLow
	case n >= 3:
		return index.PriorityNormal
	default:
		return index.PriorityHigh
	}
}
