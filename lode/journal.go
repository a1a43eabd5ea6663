// Package lode persists scan records to a Lode dataset.
//
// Records are written as JSONL with Hive partitions origin/day/outcome. The
// filesystem and S3 stores come from Lode; the memory store is used in tests.
package lode

import (
	"context"
	"fmt"
	"sync"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/scanport/metrics"
)

// Recorder appends scan records.
type Recorder interface {
	// Append writes one record.
	Append(ctx context.Context, rec *ScanRecord) error
	// Close releases resources.
	Close() error
}

// Journal is a Lode-backed Recorder.
type Journal struct {
	dataset lode.Dataset
	name    string
}

// Verify Journal implements Recorder.
var _ Recorder = (*Journal)(nil)

// newDataset builds the dataset used by both the write and read paths.
func newDataset(name string, factory lode.StoreFactory) (lode.Dataset, error) {
	if name == "" {
		name = DefaultDataset
	}
	return lode.NewDataset(
		lode.DatasetID(name),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// NewJournal creates a journal with filesystem storage rooted at root.
func NewJournal(dataset, root string) (*Journal, error) {
	return NewJournalWithFactory(dataset, lode.NewFSFactory(root))
}

// NewJournalWithFactory creates a journal with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewJournalWithFactory(dataset string, factory lode.StoreFactory) (*Journal, error) {
	ds, err := newDataset(dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, dataset)
	}
	return &Journal{dataset: ds, name: string(ds.ID())}, nil
}

// NewS3Journal creates a journal backed by S3.
// Uses the AWS SDK default credential chain (env vars, shared config, IAM role).
func NewS3Journal(ctx context.Context, dataset string, s3cfg S3Config) (*Journal, error) {
	factory, err := newS3Factory(ctx, s3cfg)
	if err != nil {
		return nil, WrapInitError(err, dataset)
	}
	return NewJournalWithFactory(dataset, factory)
}

// Append writes one record as its own snapshot.
func (j *Journal) Append(ctx context.Context, rec *ScanRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	m, err := toRecordMap(rec)
	if err != nil {
		return fmt.Errorf("failed to encode scan record: %w", err)
	}
	if _, err := j.dataset.Write(ctx, []any{m}, lode.Metadata{}); err != nil {
		return WrapWriteError(err, j.recordPath(rec))
	}
	return nil
}

// Close releases journal resources.
func (j *Journal) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}

func (j *Journal) recordPath(rec *ScanRecord) string {
	return fmt.Sprintf("%s/origin=%s/day=%s/outcome=%s", j.name, rec.Origin, rec.Day, rec.Outcome)
}

// InstrumentedRecorder counts journal writes on a metrics collector.
type InstrumentedRecorder struct {
	inner     Recorder
	collector *metrics.Collector
}

// NewInstrumentedRecorder wraps inner. A nil collector disables counting.
func NewInstrumentedRecorder(inner Recorder, collector *metrics.Collector) *InstrumentedRecorder {
	return &InstrumentedRecorder{inner: inner, collector: collector}
}

// Append delegates to the inner recorder and records the result.
func (r *InstrumentedRecorder) Append(ctx context.Context, rec *ScanRecord) error {
	err := r.inner.Append(ctx, rec)
	if err != nil {
		r.collector.IncJournalWriteFailure()
		return err
	}
	r.collector.IncJournalWriteSuccess()
	return nil
}

// Close delegates to the inner recorder.
func (r *InstrumentedRecorder) Close() error {
	return r.inner.Close()
}

// StubRecorder keeps records in memory for testing.
type StubRecorder struct {
	mu      sync.Mutex
	Records []*ScanRecord
	// Err, when set, is returned by Append.
	Err error
}

// NewStubRecorder creates an empty StubRecorder.
func NewStubRecorder() *StubRecorder {
	return &StubRecorder{}
}

// Append records rec unless Err is set.
func (s *StubRecorder) Append(_ context.Context, rec *ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Records = append(s.Records, rec)
	return nil
}

// Close is a no-op.
func (s *StubRecorder) Close() error {
	return nil
}
