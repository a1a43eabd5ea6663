package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	scanconfig "github.com/justapithecus/scanport/cli/config"
	"github.com/justapithecus/scanport/cli/render"
	"github.com/justapithecus/scanport/lode"
	"github.com/justapithecus/scanport/runtime"
)

// listWarningThreshold is the number of records above which we suggest --limit.
const listWarningThreshold = 100

func isStderrTTY() bool {
	return isatty.IsTerminal(os.Stderr.Fd())
}

// journalChoice holds resolved journal storage settings.
type journalChoice struct {
	dataset   string
	backend   string // "fs" or "s3"
	path      string // fs: directory, s3: bucket/prefix
	region    string
	endpoint  string
	pathStyle bool
}

func resolveJournal(c *cli.Context, cfg *scanconfig.Config) journalChoice {
	jc := configVal(cfg, func(c *scanconfig.Config) scanconfig.JournalConfig { return c.Journal })
	return journalChoice{
		dataset:   resolveString(c, "journal-dataset", jc.Dataset),
		backend:   resolveString(c, "journal-backend", jc.Backend),
		path:      resolveString(c, "journal-path", jc.Path),
		region:    resolveString(c, "journal-s3-region", jc.Region),
		endpoint:  resolveString(c, "journal-s3-endpoint", jc.Endpoint),
		pathStyle: resolveBool(c, "journal-s3-path-style", jc.S3PathStyle),
	}
}

func (j journalChoice) s3Config() lode.S3Config {
	bucket, prefix := lode.ParseS3Path(j.path)
	return lode.S3Config{
		Bucket:       bucket,
		Prefix:       prefix,
		Region:       j.region,
		Endpoint:     j.endpoint,
		UsePathStyle: j.pathStyle,
	}
}

func validateJournal(j journalChoice) error {
	switch j.backend {
	case "fs", "s3":
	default:
		return fmt.Errorf("invalid --journal-backend %q (must be fs or s3)", j.backend)
	}
	if j.path == "" {
		return errors.New("--journal-path is required (fs: directory, s3: bucket/prefix)")
	}
	if j.backend == "s3" {
		s3cfg := j.s3Config()
		if err := s3cfg.Validate(); err != nil {
			return fmt.Errorf("invalid --journal-path for s3: %w", err)
		}
	}
	return nil
}

// buildJournal opens the journal for writing. It returns nil when no journal
// path is configured.
func buildJournal(ctx context.Context, j journalChoice) (lode.Recorder, error) {
	if j.path == "" {
		return nil, nil
	}
	if err := validateJournal(j); err != nil {
		return nil, err
	}
	var (
		journal *lode.Journal
		err     error
	)
	if j.backend == "s3" {
		journal, err = lode.NewS3Journal(ctx, j.dataset, j.s3Config())
	} else {
		journal, err = lode.NewJournal(j.dataset, j.path)
	}
	if err != nil {
		return nil, err
	}
	return journal, nil
}

func listJournal(ctx context.Context, j journalChoice, filter lode.Filter) ([]*lode.ScanRecord, error) {
	if j.backend == "s3" {
		ds, err := lode.NewReadDatasetS3(ctx, j.dataset, j.s3Config())
		if err != nil {
			return nil, err
		}
		return lode.ListRecords(ctx, ds, filter)
	}
	ds, err := lode.NewReadDatasetFS(j.dataset, j.path)
	if err != nil {
		return nil, err
	}
	return lode.ListRecords(ctx, ds, filter)
}

// JournalRows renders scan records as a table.
type JournalRows []*lode.ScanRecord

// Columns implements render.Tabular.
func (JournalRows) Columns() []string {
	return []string{"ts", "session_id", "origin", "outcome", "scheme", "parts", "payload", "import", "duration_ms"}
}

// Rows implements render.Tabular.
func (r JournalRows) Rows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, rec := range r {
		result := rec.FailureReason
		if rec.Outcome == "complete" {
			result = rec.PayloadKind
		}
		rows = append(rows, []string{
			rec.Ts,
			rec.SessionID,
			rec.Origin,
			rec.Outcome,
			rec.Scheme,
			strconv.Itoa(rec.PartsScanned),
			result,
			rec.ImportStatus,
			strconv.FormatInt(rec.DurationMs, 10),
		})
	}
	return rows
}

// JournalCommand returns the journal command.
func JournalCommand() *cli.Command {
	return &cli.Command{
		Name:  "journal",
		Usage: "List recorded scan sessions, newest first",
		Flags: append(append(OutputFlags(), journalFlags()...),
			&cli.StringFlag{
				Name:  "origin",
				Usage: "Filter by origin: optical or proximity",
			},
			&cli.StringFlag{
				Name:  "day",
				Usage: "Filter by day (YYYY-MM-DD)",
			},
			&cli.StringFlag{
				Name:  "outcome",
				Usage: "Filter by outcome: complete or failed",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of records to return (0 = no limit)",
			},
		),
		Action: journalAction,
	}
}

func journalAction(c *cli.Context) error {
	r, err := render.FromContext(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}

	j := resolveJournal(c, cfg)
	if err := validateJournal(j); err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}

	filter := lode.Filter{
		Origin:  c.String("origin"),
		Day:     c.String("day"),
		Outcome: c.String("outcome"),
		Limit:   c.Int("limit"),
	}
	records, err := listJournal(c.Context, j, filter)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	// TTY only to avoid noise in pipelines.
	if len(records) > listWarningThreshold && filter.Limit == 0 && isStderrTTY() {
		fmt.Fprintf(os.Stderr, "Warning: returning %d records. Consider using --limit to reduce output.\n\n", len(records))
	}

	return r.Render(JournalRows(records))
}
