// Package runtime drives one scan session from a fragment source through
// import, publication and journaling.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/justapithecus/scanport/adapter"
	"github.com/justapithecus/scanport/importer"
	"github.com/justapithecus/scanport/lode"
	"github.com/justapithecus/scanport/log"
	"github.com/justapithecus/scanport/metrics"
	"github.com/justapithecus/scanport/session"
	"github.com/justapithecus/scanport/types"
)

// sinkTimeout bounds import, publish and journal calls after the scan ends.
const sinkTimeout = 30 * time.Second

// Exit codes reported by the scan command.
const (
	ExitCodeImported       = 0 // imported or already exists
	ExitCodeScanFailed     = 1 // terminal failed outcome
	ExitCodeImportRejected = 2 // invalid_format or import error
	ExitCodeInvalidInput   = 3 // invalid arguments, config or input stream
)

// RunConfig configures a single scan.
type RunConfig struct {
	// Meta is the session identity and lineage. Nil gets a fresh UUID,
	// optical origin and attempt 1.
	Meta *types.ScanMeta
	// Source yields fragments (required).
	Source FragmentSource
	// Importer receives the completed payload. Nil skips import.
	Importer importer.Importer
	// Adapter publishes the completion event. Nil skips publication.
	Adapter adapter.Adapter
	// Journal records the finished session. Nil skips journaling.
	Journal lode.Recorder
	// Collector receives counters. Nil is allowed.
	Collector *metrics.Collector
	// Logger receives runtime events. Nil uses a stderr logger with
	// session context.
	Logger *log.Logger
	// OnOutcome observes every outcome in submission order.
	OnOutcome func(types.ScanOutcome)
}

// RunResult represents the result of a scan.
type RunResult struct {
	// Meta is the session identity and lineage.
	Meta types.ScanMeta
	// Outcome is the terminal outcome.
	Outcome types.ScanOutcome
	// Import is the import result, nil unless the scan completed and an
	// importer was configured.
	Import *types.ImportResult
	// ImportErr is set when the importer returned an error.
	ImportErr error
	// Duration is the total scan duration.
	Duration time.Duration
	// Fragments is the number of fragments submitted.
	Fragments int
	// Metrics is the collector snapshot after all sinks ran.
	Metrics metrics.Snapshot
}

// SessionID returns the session identifier.
func (r *RunResult) SessionID() string {
	return r.Meta.SessionID
}

// ExitCode maps the result to a process exit code.
func (r *RunResult) ExitCode() int {
	switch {
	case r.Outcome.Kind != types.OutcomeComplete:
		return ExitCodeScanFailed
	case r.ImportErr != nil:
		return ExitCodeImportRejected
	case r.Import != nil && r.Import.Status == types.ImportInvalidFormat:
		return ExitCodeImportRejected
	default:
		return ExitCodeImported
	}
}

// sourceItem is one result from the source pump.
type sourceItem struct {
	fragment types.Fragment
	err      error
}

// pump reads the source on its own goroutine so a blocked read cannot
// delay cancellation.
func pump(ctx context.Context, src FragmentSource) <-chan sourceItem {
	ch := make(chan sourceItem)
	go func() {
		defer close(ch)
		for {
			f, err := src.Next(ctx)
			select {
			case ch <- sourceItem{fragment: f, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

// Run drives one session until its first terminal outcome or the end of the
// source, then imports the payload, publishes the completion event and
// appends the journal record.
//
// The returned error is non-nil for invalid configuration (with a nil
// result) and for a broken source (with the cancelled result).
func Run(ctx context.Context, cfg *RunConfig) (*RunResult, error) {
	if cfg == nil || cfg.Source == nil {
		return nil, errors.New("run config requires a fragment source")
	}
	meta := types.ScanMeta{SessionID: uuid.NewString(), Origin: types.OriginOptical, Attempt: 1}
	if cfg.Meta != nil {
		meta = *cfg.Meta
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scan metadata: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewLogger(nil)
	}
	logger = logger.WithSession(&meta)

	start := time.Now()
	sess := session.New(session.Config{Meta: &meta, Logger: logger, Collector: cfg.Collector})

	logger.Info("scan started", nil)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	items := pump(runCtx, cfg.Source)

	var (
		outcome   types.ScanOutcome
		fragments int
		sourceErr error
	)
	notify := func(o types.ScanOutcome) {
		if cfg.OnOutcome != nil {
			cfg.OnOutcome(o)
		}
	}
	cancelScan := func() {
		outcome = sess.Cancel()
		notify(outcome)
	}

loop:
	for {
		select {
		case <-ctx.Done():
			logger.Warn("scan interrupted", map[string]any{"error": ctx.Err().Error()})
			cancelScan()
			break loop
		case item, ok := <-items:
			if !ok {
				cancelScan()
				break loop
			}
			if item.err != nil {
				switch {
				case ctx.Err() != nil:
					logger.Warn("scan interrupted", map[string]any{"error": ctx.Err().Error()})
				case errors.Is(item.err, io.EOF):
					logger.Info("source ended before completion", map[string]any{"fragments": fragments})
				case errors.Is(item.err, ErrCancelRequested):
					logger.Info("capture requested cancel", nil)
				default:
					logger.Error("fragment source failed", map[string]any{"error": item.err.Error()})
					sourceErr = item.err
				}
				cancelScan()
				break loop
			}

			fragments++
			outcome = sess.Submit(item.fragment)
			notify(outcome)
			if outcome.Kind.IsTerminal() {
				break loop
			}
		}
	}
	stop()

	result := &RunResult{
		Meta:      meta,
		Outcome:   outcome,
		Fragments: fragments,
	}

	// Sinks run even when ctx is cancelled.
	sinkCtx := context.WithoutCancel(ctx)

	if outcome.Kind == types.OutcomeComplete && cfg.Importer != nil {
		importCtx, cancel := context.WithTimeout(sinkCtx, sinkTimeout)
		result.Import, result.ImportErr = cfg.Importer.Import(importCtx, outcome.Payload)
		cancel()
		switch {
		case result.ImportErr != nil:
			logger.Error("import failed", map[string]any{"error": result.ImportErr.Error()})
			cfg.Collector.IncImport("error")
		default:
			logger.Info("payload imported", map[string]any{
				"status":    string(result.Import.Status),
				"wallet_id": result.Import.WalletID,
				"detail":    result.Import.Detail,
			})
			cfg.Collector.IncImport(string(result.Import.Status))
		}
	}

	result.Duration = time.Since(start)
	finishedAt := time.Now()

	if cfg.Adapter != nil {
		event := adapter.NewScanCompletedEvent(&meta, outcome, result.Import, finishedAt, result.Duration)
		publishCtx, cancel := context.WithTimeout(sinkCtx, sinkTimeout)
		err := cfg.Adapter.Publish(publishCtx, event)
		cancel()
		if err != nil {
			cfg.Collector.IncAdapterPublishFailure()
			logger.Warn("adapter publish failed", map[string]any{"error": err.Error()})
		} else {
			cfg.Collector.IncAdapterPublishSuccess()
		}
	}

	if cfg.Journal != nil {
		rec := lode.NewScanRecord(&meta, outcome, result.Import, finishedAt, result.Duration)
		rec.FragmentsReceived = fragments
		snap := cfg.Collector.Snapshot()
		rec.Metrics = &snap

		journal := lode.NewInstrumentedRecorder(cfg.Journal, cfg.Collector)
		journalCtx, cancel := context.WithTimeout(sinkCtx, sinkTimeout)
		err := journal.Append(journalCtx, rec)
		cancel()
		if err != nil {
			logger.Warn("journal append failed", map[string]any{"error": err.Error()})
		}
	}

	result.Metrics = cfg.Collector.Snapshot()

	logger.Info("scan finished", map[string]any{
		"outcome":     string(outcome.Kind),
		"fragments":   fragments,
		"duration_ms": result.Duration.Milliseconds(),
		"exit_code":   result.ExitCode(),
	})

	if sourceErr != nil {
		return result, fmt.Errorf("fragment source: %w", sourceErr)
	}
	return result, nil
}
