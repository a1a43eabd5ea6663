// Package metrics provides scan session metrics collection.
//
// The Collector accumulates counters across one or more sessions driven by
// the same process. It is a leaf package with no internal dependencies.
package metrics

import (
	"maps"
	"sync"
)

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Session lifecycle
	SessionsStarted   int64 `json:"sessions_started"`
	SessionsCompleted int64 `json:"sessions_completed"`
	SessionsFailed    int64 `json:"sessions_failed"`
	SessionsCancelled int64 `json:"sessions_cancelled"`

	// Fragments
	FragmentsReceived  int64 `json:"fragments_received"`
	FragmentsAccepted  int64 `json:"fragments_accepted"`
	FragmentsDuplicate int64 `json:"fragments_duplicate"`
	FragmentsIgnored   int64 `json:"fragments_ignored"`
	FrameDecodeErrors  int64 `json:"frame_decode_errors"`

	// Merge
	MergesAttempted int64 `json:"merges_attempted"`
	MergesFailed    int64 `json:"merges_failed"`

	// Failure reasons and import statuses
	FailedByReason  map[string]int64 `json:"failed_by_reason,omitempty"`
	ImportsByStatus map[string]int64 `json:"imports_by_status,omitempty"`

	// Sinks
	JournalWriteSuccess   int64 `json:"journal_write_success"`
	JournalWriteFailure   int64 `json:"journal_write_failure"`
	AdapterPublishSuccess int64 `json:"adapter_publish_success"`
	AdapterPublishFailure int64 `json:"adapter_publish_failure"`

	// Dimensions (informational, set at construction)
	Origin         string `json:"origin,omitempty"`
	StorageBackend string `json:"storage_backend,omitempty"`
	Adapter        string `json:"adapter,omitempty"`
}

// Collector accumulates metrics.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	sessionsStarted   int64
	sessionsCompleted int64
	sessionsFailed    int64
	sessionsCancelled int64

	fragmentsReceived  int64
	fragmentsAccepted  int64
	fragmentsDuplicate int64
	fragmentsIgnored   int64
	frameDecodeErrors  int64

	mergesAttempted int64
	mergesFailed    int64

	failedByReason  map[string]int64
	importsByStatus map[string]int64

	journalWriteSuccess   int64
	journalWriteFailure   int64
	adapterPublishSuccess int64
	adapterPublishFailure int64

	origin         string
	storageBackend string
	adapter        string
}

// NewCollector creates a Collector with dimension labels. Empty labels are
// omitted from snapshots.
func NewCollector(origin, storageBackend, adapter string) *Collector {
	return &Collector{
		failedByReason:  make(map[string]int64),
		importsByStatus: make(map[string]int64),
		origin:          origin,
		storageBackend:  storageBackend,
		adapter:         adapter,
	}
}

func (c *Collector) inc(field *int64) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// --- Session lifecycle ---

// IncSessionStarted records a session receiving its first fragment.
func (c *Collector) IncSessionStarted() {
	if c == nil {
		return
	}
	c.inc(&c.sessionsStarted)
}

// IncSessionCompleted records a session completing with a payload.
func (c *Collector) IncSessionCompleted() {
	if c == nil {
		return
	}
	c.inc(&c.sessionsCompleted)
}

// IncSessionFailed records a failed session by reason. User cancellation is
// counted separately.
func (c *Collector) IncSessionFailed(reason string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if reason == "user_cancelled" {
		c.sessionsCancelled++
	} else {
		c.sessionsFailed++
	}
	if c.failedByReason == nil {
		c.failedByReason = make(map[string]int64)
	}
	c.failedByReason[reason]++
	c.mu.Unlock()
}

// --- Fragments ---

// IncFragmentReceived records a submitted fragment.
func (c *Collector) IncFragmentReceived() {
	if c == nil {
		return
	}
	c.inc(&c.fragmentsReceived)
}

// IncFragmentAccepted records a fragment that added a new part.
func (c *Collector) IncFragmentAccepted() {
	if c == nil {
		return
	}
	c.inc(&c.fragmentsAccepted)
}

// IncFragmentDuplicate records a repeated fragment.
func (c *Collector) IncFragmentDuplicate() {
	if c == nil {
		return
	}
	c.inc(&c.fragmentsDuplicate)
}

// IncFragmentIgnored records a fragment dropped as noise.
func (c *Collector) IncFragmentIgnored() {
	if c == nil {
		return
	}
	c.inc(&c.fragmentsIgnored)
}

// IncFrameDecodeError records a capture frame that could not be decoded.
func (c *Collector) IncFrameDecodeError() {
	if c == nil {
		return
	}
	c.inc(&c.frameDecodeErrors)
}

// --- Merge ---

// IncMergeAttempted records a merge attempt.
func (c *Collector) IncMergeAttempted() {
	if c == nil {
		return
	}
	c.inc(&c.mergesAttempted)
}

// IncMergeFailed records a failed merge.
func (c *Collector) IncMergeFailed() {
	if c == nil {
		return
	}
	c.inc(&c.mergesFailed)
}

// --- Import ---

// IncImport records an import result by status.
func (c *Collector) IncImport(status string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if c.importsByStatus == nil {
		c.importsByStatus = make(map[string]int64)
	}
	c.importsByStatus[status]++
	c.mu.Unlock()
}

// --- Sinks ---

// IncJournalWriteSuccess records a successful journal append.
func (c *Collector) IncJournalWriteSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.journalWriteSuccess)
}

// IncJournalWriteFailure records a failed journal append.
func (c *Collector) IncJournalWriteFailure() {
	if c == nil {
		return
	}
	c.inc(&c.journalWriteFailure)
}

// IncAdapterPublishSuccess records a delivered completion event.
func (c *Collector) IncAdapterPublishSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.adapterPublishSuccess)
}

// IncAdapterPublishFailure records an undelivered completion event.
func (c *Collector) IncAdapterPublishFailure() {
	if c == nil {
		return
	}
	c.inc(&c.adapterPublishFailure)
}

// Snapshot returns an immutable copy of the current metrics.
// Maps are deep-copied. Nil receiver returns a zero-value Snapshot.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		SessionsStarted:       c.sessionsStarted,
		SessionsCompleted:     c.sessionsCompleted,
		SessionsFailed:        c.sessionsFailed,
		SessionsCancelled:     c.sessionsCancelled,
		FragmentsReceived:     c.fragmentsReceived,
		FragmentsAccepted:     c.fragmentsAccepted,
		FragmentsDuplicate:    c.fragmentsDuplicate,
		FragmentsIgnored:      c.fragmentsIgnored,
		FrameDecodeErrors:     c.frameDecodeErrors,
		MergesAttempted:       c.mergesAttempted,
		MergesFailed:          c.mergesFailed,
		FailedByReason:        maps.Clone(c.failedByReason),
		ImportsByStatus:       maps.Clone(c.importsByStatus),
		JournalWriteSuccess:   c.journalWriteSuccess,
		JournalWriteFailure:   c.journalWriteFailure,
		AdapterPublishSuccess: c.adapterPublishSuccess,
		AdapterPublishFailure: c.adapterPublishFailure,
		Origin:                c.origin,
		StorageBackend:        c.storageBackend,
		Adapter:               c.adapter,
	}
}
