package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/scanport/classify"
	"github.com/justapithecus/scanport/cli/render"
	"github.com/justapithecus/scanport/runtime"
	"github.com/justapithecus/scanport/types"
)

// ClassifyCommand returns the classify command.
func ClassifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Classify fragments without starting a session",
		ArgsUsage: "FRAGMENT...",
		Flags: append(OutputFlags(),
			&cli.BoolFlag{
				Name:  "hex",
				Usage: "Arguments are hex-encoded binary fragments",
			},
			&cli.StringFlag{
				Name:  "origin",
				Usage: "Fragment origin: optical or proximity",
				Value: string(types.OriginOptical),
			},
			&cli.StringFlag{
				Name:  "lock",
				Usage: "Classify against a locked scheme, e.g. sequential_text/bbqr",
			},
		),
		Action: classifyAction,
	}
}

// ClassifyResult is one classified fragment.
type ClassifyResult struct {
	Fragment    string `json:"fragment"`
	Scheme      string `json:"scheme,omitempty"`
	Dialect     string `json:"dialect,omitempty"`
	Index       int    `json:"index,omitempty"`
	Total       int    `json:"total,omitempty"`
	Hint        string `json:"hint,omitempty"`
	URType      string `json:"ur_type,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ClassifyResults renders classification results as a table.
type ClassifyResults []ClassifyResult

// Columns implements render.Tabular.
func (ClassifyResults) Columns() []string {
	return []string{"fragment", "scheme", "dialect", "part", "hint", "reason"}
}

// Rows implements render.Tabular.
func (r ClassifyResults) Rows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, c := range r {
		part := ""
		switch {
		case c.Index > 0:
			part = fmt.Sprintf("%d/%d", c.Index, c.Total)
		case c.Total > 0:
			part = "?/" + strconv.Itoa(c.Total)
		}
		hint := c.Hint
		if c.URType != "" {
			hint = c.URType
		}
		rows = append(rows, []string{c.Fragment, c.Scheme, c.Dialect, part, hint, c.Reason})
	}
	return rows
}

// parseLock parses "scheme" or "scheme/dialect".
func parseLock(s string) (*types.SchemeLock, error) {
	if s == "" {
		return nil, nil
	}
	scheme, dialect, _ := strings.Cut(s, "/")
	lock := &types.SchemeLock{Scheme: types.SchemeKind(scheme), Dialect: types.Dialect(dialect)}
	switch lock.Scheme {
	case types.SchemeSingle:
		lock.Dialect = types.DialectSingle
	case types.SchemeFountainCoded:
		lock.Dialect = types.DialectUR
	case types.SchemeSequentialText:
		switch lock.Dialect {
		case types.DialectPlain, types.DialectBBQr:
		case "":
			return nil, errors.New("sequential_text lock needs a dialect: plain or bbqr")
		default:
			return nil, fmt.Errorf("unknown sequential dialect %q", dialect)
		}
	default:
		return nil, fmt.Errorf("unknown scheme %q", scheme)
	}
	return lock, nil
}

func classifyOne(f types.Fragment, label string, lock *types.SchemeLock) ClassifyResult {
	res := ClassifyResult{Fragment: label}
	cf, err := classify.Classify(f, lock)
	if err != nil {
		res.Error = err.Error()
		if ce, ok := classify.AsError(err); ok {
			res.Reason = string(ce.Reason())
		}
		return res
	}
	res.Scheme = string(cf.Scheme)
	res.Dialect = string(cf.Dialect)
	res.Index = cf.Index
	res.Total = cf.Total
	res.Hint = string(cf.Hint)
	res.URType = cf.URType
	res.Fingerprint = cf.Fingerprint
	return res
}

func classifyAction(c *cli.Context) error {
	r, err := render.FromContext(c)
	if err != nil {
		return invalid(err)
	}
	if c.NArg() == 0 {
		return invalid(errors.New("classify requires at least one fragment"))
	}
	origin, err := types.ParseOrigin(c.String("origin"))
	if err != nil {
		return invalid(fmt.Errorf("invalid --origin: %w", err))
	}
	lock, err := parseLock(c.String("lock"))
	if err != nil {
		return invalid(fmt.Errorf("invalid --lock: %w", err))
	}

	results := make(ClassifyResults, 0, c.NArg())
	failed := false
	for _, arg := range c.Args().Slice() {
		f := types.NewTextFragment(origin, arg)
		if c.Bool("hex") {
			data, err := hex.DecodeString(arg)
			if err != nil {
				return invalid(fmt.Errorf("invalid hex fragment %q: %w", arg, err))
			}
			f = types.NewDataFragment(origin, data)
		}
		res := classifyOne(f, arg, lock)
		if res.Error != "" {
			failed = true
		}
		results = append(results, res)
	}

	if err := r.Render(results); err != nil {
		return err
	}
	if failed {
		return cli.Exit("", runtime.ExitCodeScanFailed)
	}
	return nil
}
