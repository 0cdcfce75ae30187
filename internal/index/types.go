package index

import "time"

// Key names one of the nine lookup tables of the index.
type Key string

const (
	ClassKey       Key = "CLASS_KEY"
	FieldKey       Key = "FIELD_KEY"
	MethodKey      Key = "METHOD_KEY"
	ClassFieldKey  Key = "CLASS_FIELD_KEY"
	ClassMethodKey Key = "CLASS_METHOD_KEY"
	MethodParamKey Key = "METHOD_PARAM_KEY"
	RootMethodKey  Key = "ROOT_METHOD_KEY"
	RootClassKey   Key = "ROOT_CLASS_KEY"
	RootFieldKey   Key = "ROOT_FIELD_KEY"
)

// AllKeys lists every key in a stable order.
var AllKeys = []Key{
	ClassKey, FieldKey, MethodKey,
	ClassFieldKey, ClassMethodKey, MethodParamKey,
	RootMethodKey, RootClassKey, RootFieldKey,
}

func (k Key) Valid() bool {
	for _, known := range AllKeys {
		if k == known {
			return true
		}
	}
	return false
}

// Entry is one encoded definition filed under a key. The file is implied by
// the Replace call that writes it.
type Entry struct {
	Key   Key
	Value string
}

// Result is an entry read back from the index with its owning file.
type Result struct {
	Key   Key    `json:"key"`
	File  string `json:"file"`
	Value string `json:"value"`
}

type FileStatus string

const (
	StatusIndexed FileStatus = "indexed"
	StatusFailed  FileStatus = "failed"
	StatusSkipped FileStatus = "skipped"
)

type IndexedFile struct {
	ID           int64      `json:"id"`
	Path         string     `json:"path"`
	ContentHash  string     `json:"content_hash"`
	Status       FileStatus `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Entries      int        `json:"entries"`
	IndexedAt    time.Time  `json:"indexed_at"`
}

type Stats struct {
	IndexID       string       `json:"index_id"`
	SchemaVersion int          `json:"schema_version"`
	TotalFiles    int          `json:"total_files"`
	IndexedFiles  int          `json:"indexed_files"`
	FailedFiles   int          `json:"failed_files"`
	SkippedFiles  int          `json:"skipped_files"`
	TotalEntries  int          `json:"total_entries"`
	EntriesByKey  map[Key]int  `json:"entries_by_key"`
	LastIndexedAt time.Time    `json:"last_indexed_at"`
	Worker        *WorkerStats `json:"worker,omitempty"`
}

type JobKind int

const (
	JobUpdate JobKind = iota
	JobRemove
)

func (k JobKind) String() string {
	if k == JobRemove {
		return "remove"
	}
	return "update"
}

type IndexJob struct {
	Path     string
	Kind     JobKind
	Priority JobPriority

	// Source, when set, is indexed instead of reading Path from disk.
	Source *string
}

type JobPriority int

const (
	PriorityLow JobPriority = iota
	PriorityNormal
	PriorityHigh
)
