package cmd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/scanport/adapter"
	"github.com/justapithecus/scanport/adapter/redis"
	"github.com/justapithecus/scanport/adapter/webhook"
	scanconfig "github.com/justapithecus/scanport/cli/config"
	"github.com/justapithecus/scanport/cli/render"
	"github.com/justapithecus/scanport/cli/tui"
	"github.com/justapithecus/scanport/importer"
	"github.com/justapithecus/scanport/iox"
	"github.com/justapithecus/scanport/log"
	"github.com/justapithecus/scanport/metrics"
	"github.com/justapithecus/scanport/runtime"
	"github.com/justapithecus/scanport/types"
)

// ScanCommand returns the scan command.
// This is the only command that drives a session.
func ScanCommand() *cli.Command {
	flags := []cli.Flag{
		// Input
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "Fragment input file (default: stdin)",
		},
		&cli.StringFlag{
			Name:  "input-format",
			Usage: "Input format: lines, frames or ndef",
			Value: string(runtime.InputLines),
		},
		&cli.StringFlag{
			Name:  "origin",
			Usage: "Fragment origin: optical or proximity (default: proximity for ndef, optical otherwise)",
		},
		// Session lineage
		&cli.StringFlag{
			Name:  "session-id",
			Usage: "Session ID (default: random UUID)",
		},
		&cli.StringFlag{
			Name:  "parent-session-id",
			Usage: "Parent session ID (required for retries)",
		},
		&cli.IntFlag{
			Name:  "attempt",
			Usage: "Attempt number (starts at 1)",
			Value: 1,
		},
		// Import
		&cli.StringSliceFlag{
			Name:  "known-wallet",
			Usage: "Wallet ID already imported (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "no-import",
			Usage: "Skip the import step",
		},
		// Output
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Show a live progress view on stderr",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "Suppress result output",
		},
		&cli.BoolFlag{
			Name:  "show-payload",
			Usage: "Include the decoded payload in the result (hex for binary kinds)",
		},
		LogLevelFlag,
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "Write logs to this file instead of stderr",
		},
		// Adapter
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Completion event adapter: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Adapter endpoint (webhook: http(s) URL, redis: redis:// URL)",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis channel (default: " + redis.DefaultChannel + ")",
		},
		&cli.StringSliceFlag{
			Name:  "adapter-header",
			Usage: "Webhook header as key=value (repeatable)",
		},
		&cli.DurationFlag{
			Name:  "adapter-timeout",
			Usage: "Per-request adapter timeout",
			Value: 10 * time.Second,
		},
		&cli.IntFlag{
			Name:  "adapter-retries",
			Usage: "Adapter retry attempts",
			Value: 3,
		},
	}
	flags = append(flags, OutputFlags()...)
	flags = append(flags, journalFlags()...)

	return &cli.Command{
		Name:   "scan",
		Usage:  "Reassemble a multi-part payload from scanned fragments",
		Flags:  flags,
		Action: scanAction,
	}
}

// inputChoice holds resolved fragment input settings.
type inputChoice struct {
	path   string
	format runtime.InputFormat
	origin types.Origin
}

func resolveInput(c *cli.Context, cfg *scanconfig.Config) (inputChoice, error) {
	ic := configVal(cfg, func(c *scanconfig.Config) scanconfig.InputConfig { return c.Input })

	format, err := runtime.ParseInputFormat(resolveString(c, "input-format", ic.Format))
	if err != nil {
		return inputChoice{}, fmt.Errorf("invalid --input-format: %w", err)
	}

	originStr := resolveString(c, "origin", ic.Origin)
	origin := types.OriginOptical
	if format == runtime.InputNDEF {
		origin = types.OriginProximity
	}
	if originStr != "" {
		origin, err = types.ParseOrigin(originStr)
		if err != nil {
			return inputChoice{}, fmt.Errorf("invalid --origin: %w", err)
		}
	}
	return inputChoice{path: c.String("input"), format: format, origin: origin}, nil
}

func buildScanMeta(c *cli.Context, origin types.Origin) (*types.ScanMeta, error) {
	meta := &types.ScanMeta{
		SessionID: c.String("session-id"),
		Origin:    origin,
		Attempt:   c.Int("attempt"),
	}
	if meta.SessionID == "" {
		meta.SessionID = uuid.NewString()
	}
	if parent := c.String("parent-session-id"); parent != "" {
		meta.ParentSessionID = &parent
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session lineage: %w", err)
	}
	return meta, nil
}

// adapterChoice holds resolved adapter settings.
type adapterChoice struct {
	adapterType string
	url         string
	channel     string
	headers     map[string]string
	timeout     time.Duration
	retries     int
}

// parseAdapterConfigWithPrecedence resolves adapter settings for
// adapterType with flags winning over config. Config headers are merged
// under flag headers.
func parseAdapterConfigWithPrecedence(c *cli.Context, cfg *scanconfig.Config, adapterType string) (*adapterChoice, error) {
	ac := configVal(cfg, func(c *scanconfig.Config) scanconfig.AdapterConfig { return c.Adapter })

	choice := &adapterChoice{
		adapterType: adapterType,
		url:         resolveString(c, "adapter-url", ac.URL),
		channel:     resolveString(c, "adapter-channel", ac.Channel),
		timeout:     resolveDuration(c, "adapter-timeout", ac.Timeout.Duration),
		retries:     c.Int("adapter-retries"),
	}
	if !c.IsSet("adapter-retries") && ac.Retries != nil {
		choice.retries = *ac.Retries
	}

	switch adapterType {
	case "webhook", "redis":
	default:
		return nil, fmt.Errorf("unknown --adapter %q (must be webhook or redis)", adapterType)
	}
	if choice.url == "" {
		return nil, fmt.Errorf("--adapter-url is required for the %s adapter", adapterType)
	}
	if choice.retries < 0 {
		return nil, fmt.Errorf("--adapter-retries must be >= 0, got %d", choice.retries)
	}

	if len(ac.Headers) > 0 || len(c.StringSlice("adapter-header")) > 0 {
		choice.headers = make(map[string]string, len(ac.Headers))
		for k, v := range ac.Headers {
			choice.headers[k] = v
		}
		for _, h := range c.StringSlice("adapter-header") {
			k, v, ok := strings.Cut(h, "=")
			if !ok || strings.TrimSpace(k) == "" {
				return nil, fmt.Errorf("invalid --adapter-header %q (expected key=value)", h)
			}
			choice.headers[strings.TrimSpace(k)] = v
		}
	}
	return choice, nil
}

func buildAdapter(ac *adapterChoice) (adapter.Adapter, error) {
	switch ac.adapterType {
	case "webhook":
		a, err := webhook.New(webhook.Config{
			URL:     ac.url,
			Headers: ac.headers,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case "redis":
		a, err := redis.New(redis.Config{
			URL:     ac.url,
			Channel: ac.channel,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown adapter type %q", ac.adapterType)
	}
}

func buildLogger(c *cli.Context, cfg *scanconfig.Config, useTUI bool) (*log.Logger, func(), error) {
	level, err := log.ParseLevel(resolveString(c, "log-level", configVal(cfg, func(c *scanconfig.Config) string { return c.Log.Level })))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid --log-level: %w", err)
	}

	if path := c.String("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open --log-file: %w", err)
		}
		return log.NewLogger(nil).WithOutput(f).WithLevel(level), iox.CloseFunc(f), nil
	}
	if useTUI {
		// The progress view owns the terminal.
		return log.Nop(), func() {}, nil
	}
	return log.NewLogger(nil).WithLevel(level), func() {}, nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open --input: %w", err)
	}
	return f, nil
}

func invalid(err error) error {
	return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
}

func scanAction(c *cli.Context) error {
	r, err := render.FromContext(c)
	if err != nil {
		return invalid(err)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return invalid(err)
	}

	input, err := resolveInput(c, cfg)
	if err != nil {
		return invalid(err)
	}
	meta, err := buildScanMeta(c, input.origin)
	if err != nil {
		return invalid(err)
	}

	useTUI := c.Bool("tui")
	logger, closeLog, err := buildLogger(c, cfg, useTUI)
	if err != nil {
		return invalid(err)
	}
	defer closeLog()
	defer iox.DiscardErr(logger.Sync)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	journalCfg := resolveJournal(c, cfg)
	journal, err := buildJournal(ctx, journalCfg)
	if err != nil {
		return invalid(fmt.Errorf("failed to open journal: %w", err))
	}
	if journal != nil {
		defer iox.DiscardClose(journal)
	}

	var pub adapter.Adapter
	adapterType := resolveString(c, "adapter", configVal(cfg, func(c *scanconfig.Config) string { return c.Adapter.Type }))
	if adapterType != "" {
		ac, err := parseAdapterConfigWithPrecedence(c, cfg, adapterType)
		if err != nil {
			return invalid(err)
		}
		pub, err = buildAdapter(ac)
		if err != nil {
			return invalid(fmt.Errorf("failed to create adapter: %w", err))
		}
		defer iox.DiscardClose(pub)
	}

	in, err := openInput(input.path)
	if err != nil {
		return invalid(err)
	}
	defer iox.DiscardClose(in)

	backend := ""
	if journal != nil {
		backend = journalCfg.backend
	}
	collector := metrics.NewCollector(string(input.origin), backend, adapterType)

	source, err := runtime.NewSource(input.format, in, input.origin, collector)
	if err != nil {
		return invalid(err)
	}

	rc := &runtime.RunConfig{
		Meta:      meta,
		Source:    source,
		Adapter:   pub,
		Collector: collector,
		Logger:    logger,
		Journal:   journal,
	}
	if !c.Bool("no-import") {
		rc.Importer = importer.NewRegistry(c.StringSlice("known-wallet")...)
	}

	var result *runtime.RunResult
	scan := func(ctx context.Context, notify func(types.ScanOutcome)) error {
		rc.OnOutcome = notify
		var err error
		result, err = runtime.Run(ctx, rc)
		return err
	}

	if useTUI {
		err = tui.RunScan(ctx, os.Stderr, scan)
	} else {
		err = scan(ctx, nil)
	}
	if result == nil {
		if err == nil {
			err = errors.New("scan produced no result")
		}
		return invalid(err)
	}

	if !c.Bool("quiet") {
		if rerr := r.Render(NewScanView(result, c.Bool("show-payload"))); rerr != nil {
			return fmt.Errorf("failed to render result: %w", rerr)
		}
	}

	if err != nil {
		return invalid(err)
	}
	return cli.Exit("", result.ExitCode())
}

// ScanView is the rendered result of a scan.
type ScanView struct {
	SessionID       string            `json:"session_id"`
	ParentSessionID string            `json:"parent_session_id,omitempty"`
	Attempt         int               `json:"attempt"`
	Origin          string            `json:"origin"`
	Outcome         string            `json:"outcome"`
	FailureReason   string            `json:"failure_reason,omitempty"`
	FailureMessage  string            `json:"failure_message,omitempty"`
	Scheme          string            `json:"scheme,omitempty"`
	Dialect         string            `json:"dialect,omitempty"`
	PartsScanned    int               `json:"parts_scanned"`
	TotalParts      int               `json:"total_parts"`
	Fragments       int               `json:"fragments"`
	PayloadKind     string            `json:"payload_kind,omitempty"`
	URType          string            `json:"ur_type,omitempty"`
	PayloadBytes    int               `json:"payload_bytes,omitempty"`
	Payload         string            `json:"payload,omitempty"`
	ImportStatus    string            `json:"import_status,omitempty"`
	WalletID        string            `json:"wallet_id,omitempty"`
	ImportDetail    string            `json:"import_detail,omitempty"`
	ImportError     string            `json:"import_error,omitempty"`
	DurationMs      int64             `json:"duration_ms"`
	ExitCode        int               `json:"exit_code"`
	Metrics         *metrics.Snapshot `json:"metrics,omitempty"`
}

// NewScanView flattens a run result for rendering.
func NewScanView(res *runtime.RunResult, showPayload bool) *ScanView {
	o := res.Outcome
	v := &ScanView{
		SessionID:    res.Meta.SessionID,
		Attempt:      res.Meta.Attempt,
		Origin:       string(res.Meta.Origin),
		Outcome:      string(o.Kind),
		Scheme:       string(o.Progress.Scheme),
		PartsScanned: o.Progress.PartsScanned,
		TotalParts:   o.Progress.TotalParts,
		Fragments:    res.Fragments,
		DurationMs:   res.Duration.Milliseconds(),
		ExitCode:     res.ExitCode(),
	}
	if res.Meta.ParentSessionID != nil {
		v.ParentSessionID = *res.Meta.ParentSessionID
	}
	if o.Failure != nil {
		v.FailureReason = string(o.Failure.Reason)
		v.FailureMessage = o.Failure.Message
	}
	if p := o.Payload; p != nil {
		v.PayloadKind = string(p.Kind)
		v.URType = p.URType
		v.PayloadBytes = p.Size()
		v.Dialect = string(p.Dialect)
		if v.Scheme == "" {
			v.Scheme = string(p.Scheme)
		}
		if showPayload {
			if p.Kind.IsBinary() {
				v.Payload = hex.EncodeToString(p.Data)
			} else {
				v.Payload = p.Text()
			}
		}
	}
	if imp := res.Import; imp != nil {
		v.ImportStatus = string(imp.Status)
		v.WalletID = imp.WalletID
		v.ImportDetail = imp.Detail
	}
	if res.ImportErr != nil {
		v.ImportError = res.ImportErr.Error()
	}
	snap := res.Metrics
	v.Metrics = &snap
	return v
}
