package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/urfave/cli/v2"

	scanconfig "github.com/justapithecus/scanport/cli/config"
	"github.com/justapithecus/scanport/cli/render"
	"github.com/justapithecus/scanport/codec/bbqr"
	"github.com/justapithecus/scanport/codec/ur"
	"github.com/justapithecus/scanport/ipc"
	"github.com/justapithecus/scanport/ndef"
	"github.com/justapithecus/scanport/payload"
	"github.com/justapithecus/scanport/types"
)

// Split defaults.
const (
	defaultURMaxFragmentLen = 200
	defaultURMinFragmentLen = 10
	defaultPlainPartChars   = 300
	maxPlainParts           = 99999
)

// SplitCommand returns the split command.
func SplitCommand() *cli.Command {
	return &cli.Command{
		Name:      "split",
		Usage:     "Encode a payload into multi-part frames",
		ArgsUsage: "[FILE]",
		Flags: append(OutputFlags(),
			&cli.StringFlag{
				Name:  "scheme",
				Usage: "Frame scheme: bbqr, ur or plain",
				Value: "bbqr",
			},
			&cli.StringFlag{
				Name:  "emit",
				Usage: "Raw output: lines, frames (capture IPC) or ndef",
				Value: "lines",
			},
			&cli.StringFlag{
				Name:  "origin",
				Usage: "Origin stamped on emitted frames",
				Value: string(types.OriginOptical),
			},
			&cli.StringFlag{
				Name:  "bbqr-encoding",
				Usage: "BBQr encoding: Z (zlib), 2 (base32) or H (hex)",
			},
			&cli.StringFlag{
				Name:  "bbqr-file-type",
				Usage: "BBQr file type: P, T, J, U or C (default: detected)",
			},
			&cli.IntFlag{
				Name:  "part-chars",
				Usage: "Data characters per bbqr or plain frame",
			},
			&cli.IntFlag{
				Name:  "min-parts",
				Usage: "Minimum bbqr frame count",
			},
			&cli.StringFlag{
				Name:  "ur-type",
				Usage: "UR type (default: crypto-psbt for PSBTs, bytes otherwise)",
			},
			&cli.IntFlag{
				Name:  "ur-max-fragment-length",
				Usage: "Maximum UR fragment length in bytes",
				Value: defaultURMaxFragmentLen,
			},
			&cli.IntFlag{
				Name:  "ur-min-fragment-length",
				Usage: "Minimum UR fragment length in bytes",
				Value: defaultURMinFragmentLen,
			},
			&cli.IntFlag{
				Name:  "ur-extra",
				Usage: "Fountain parts to emit beyond the pure fragments",
			},
		),
		Action: splitAction,
	}
}

// SplitResult is the structured form of split output.
type SplitResult struct {
	Scheme      string   `json:"scheme"`
	Dialect     string   `json:"dialect"`
	PayloadKind string   `json:"payload_kind"`
	Parts       int      `json:"parts"`
	Frames      []string `json:"frames"`
}

// Columns implements render.Tabular.
func (s *SplitResult) Columns() []string {
	return []string{"part", "frame"}
}

// Rows implements render.Tabular.
func (s *SplitResult) Rows() [][]string {
	rows := make([][]string, 0, len(s.Frames))
	for i, f := range s.Frames {
		rows = append(rows, []string{fmt.Sprintf("%d/%d", i+1, len(s.Frames)), f})
	}
	return rows
}

// splitOptions holds resolved split settings.
type splitOptions struct {
	scheme    string
	bbqrEnc   bbqr.Encoding
	bbqrType  string
	partChars int
	minParts  int
	urType    string
	urMaxFrag int
	urMinFrag int
	urExtra   int
}

func resolveSplit(c *cli.Context, cfg *scanconfig.Config) (splitOptions, error) {
	bc := configVal(cfg, func(c *scanconfig.Config) scanconfig.BBQrConfig { return c.BBQr })
	uc := configVal(cfg, func(c *scanconfig.Config) scanconfig.URConfig { return c.UR })

	enc, err := bbqr.ParseEncoding(resolveString(c, "bbqr-encoding", bc.Encoding))
	if err != nil {
		return splitOptions{}, fmt.Errorf("invalid --bbqr-encoding: %w", err)
	}
	opts := splitOptions{
		scheme:    strings.ToLower(c.String("scheme")),
		bbqrEnc:   enc,
		bbqrType:  resolveString(c, "bbqr-file-type", bc.FileType),
		partChars: resolveInt(c, "part-chars", bc.PartChars),
		minParts:  resolveInt(c, "min-parts", bc.MinParts),
		urType:    c.String("ur-type"),
		urMaxFrag: resolveInt(c, "ur-max-fragment-length", uc.MaxFragmentLength),
		urMinFrag: resolveInt(c, "ur-min-fragment-length", uc.MinFragmentLength),
		urExtra:   c.Int("ur-extra"),
	}
	if opts.urExtra < 0 {
		return splitOptions{}, fmt.Errorf("--ur-extra must be >= 0, got %d", opts.urExtra)
	}
	return opts, nil
}

// splitPayload encodes data with the chosen scheme.
func splitPayload(data []byte, opts splitOptions) (*SplitResult, error) {
	kind, _ := payload.Detect(data)
	res := &SplitResult{Scheme: opts.scheme, PayloadKind: string(kind)}

	var err error
	switch opts.scheme {
	case "bbqr":
		res.Dialect = string(types.DialectBBQr)
		res.Scheme = string(types.SchemeSequentialText)
		res.Frames, err = splitBBQr(data, kind, opts)
	case "ur":
		res.Dialect = string(types.DialectUR)
		res.Scheme = string(types.SchemeFountainCoded)
		res.Frames, err = splitUR(data, kind, opts)
	case "plain":
		res.Dialect = string(types.DialectPlain)
		res.Scheme = string(types.SchemeSequentialText)
		res.Frames, err = splitPlain(data, opts.partChars)
	default:
		return nil, fmt.Errorf("unknown --scheme %q (must be bbqr, ur or plain)", opts.scheme)
	}
	if err != nil {
		return nil, err
	}
	res.Parts = len(res.Frames)
	return res, nil
}

func bbqrFileType(kind types.PayloadKind, override string) (bbqr.FileType, error) {
	if override != "" {
		return bbqr.ParseFileType(override)
	}
	switch kind {
	case types.PayloadPSBT:
		return bbqr.FileTypePSBT, nil
	case types.PayloadTransaction:
		return bbqr.FileTypeTransaction, nil
	case types.PayloadHardwareExport:
		return bbqr.FileTypeJSON, nil
	case types.PayloadBinary:
		return 0, errors.New("binary payload needs --bbqr-file-type")
	default:
		return bbqr.FileTypeUnicode, nil
	}
}

func splitBBQr(data []byte, kind types.PayloadKind, opts splitOptions) ([]string, error) {
	ft, err := bbqrFileType(kind, opts.bbqrType)
	if err != nil {
		return nil, err
	}
	if kind == types.PayloadPSBT {
		// Base64 PSBTs travel as raw bytes.
		_, data = payload.Detect(data)
	}
	return bbqr.Split(data, ft, bbqr.SplitOptions{
		Encoding:  opts.bbqrEnc,
		PartChars: opts.partChars,
		MinParts:  opts.minParts,
	})
}

func splitUR(data []byte, kind types.PayloadKind, opts splitOptions) ([]string, error) {
	urType := opts.urType
	if urType == "" {
		urType = "bytes"
		if kind == types.PayloadPSBT {
			urType = "crypto-psbt"
			_, data = payload.Detect(data)
		}
	}
	message, err := ur.WrapBytes(data)
	if err != nil {
		return nil, err
	}
	enc, err := ur.NewMultipartEncoder(urType, message, opts.urMaxFrag, opts.urMinFrag)
	if err != nil {
		return nil, err
	}

	n := enc.SeqLen() + opts.urExtra
	if enc.SeqLen() == 1 {
		n = 1
	}
	frames := make([]string, 0, n)
	for range n {
		part, err := enc.NextPart()
		if err != nil {
			return nil, err
		}
		frames = append(frames, part)
	}
	return frames, nil
}

// splitPlain cuts UTF-8 text into "i/n:chunk" frames without splitting runes.
func splitPlain(data []byte, partChars int) ([]string, error) {
	if len(data) == 0 {
		return nil, errors.New("plain: empty payload")
	}
	if !utf8.Valid(data) {
		return nil, errors.New("plain frames carry text only; use bbqr or ur for binary payloads")
	}
	if partChars <= 0 {
		partChars = defaultPlainPartChars
	}

	runes := []rune(string(data))
	total := (len(runes) + partChars - 1) / partChars
	if total > maxPlainParts {
		return nil, fmt.Errorf("plain: payload needs %d parts, limit is %d", total, maxPlainParts)
	}
	frames := make([]string, 0, total)
	for i := range total {
		end := min((i+1)*partChars, len(runes))
		frames = append(frames, fmt.Sprintf("%d/%d:%s", i+1, total, string(runes[i*partChars:end])))
	}
	return frames, nil
}

// emitFrames writes frames in a raw format scan can read back.
func emitFrames(w io.Writer, frames []string, emit string, origin types.Origin) error {
	switch emit {
	case "lines":
		bw := bufio.NewWriter(w)
		for _, f := range frames {
			if strings.ContainsAny(f, "\r\n") {
				return errors.New("frame contains a line break; use --emit frames or ndef")
			}
			fmt.Fprintln(bw, f)
		}
		return bw.Flush()
	case "frames":
		enc := ipc.NewFrameEncoder(w)
		for _, f := range frames {
			if err := enc.WriteFragment(types.NewTextFragment(origin, f)); err != nil {
				return err
			}
		}
		return nil
	case "ndef":
		msg := &ndef.Message{}
		for _, f := range frames {
			msg.Records = append(msg.Records, ndef.NewTextRecord("en", f))
		}
		_, err := w.Write(msg.Encode())
		return err
	default:
		return fmt.Errorf("unknown --emit %q (must be lines, frames or ndef)", emit)
	}
}

func readSplitInput(c *cli.Context) ([]byte, error) {
	path := c.Args().First()
	if path == "" || path == "-" {
		return io.ReadAll(io.LimitReader(os.Stdin, bbqr.MaxDecodedSize+1))
	}
	return os.ReadFile(path)
}

func splitAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return invalid(err)
	}
	opts, err := resolveSplit(c, cfg)
	if err != nil {
		return invalid(err)
	}
	origin, err := types.ParseOrigin(c.String("origin"))
	if err != nil {
		return invalid(fmt.Errorf("invalid --origin: %w", err))
	}

	data, err := readSplitInput(c)
	if err != nil {
		return invalid(fmt.Errorf("cannot read payload: %w", err))
	}
	if len(data) > bbqr.MaxDecodedSize {
		return invalid(fmt.Errorf("payload exceeds %d bytes", bbqr.MaxDecodedSize))
	}

	res, err := splitPayload(data, opts)
	if err != nil {
		return invalid(err)
	}

	// An explicit --format renders the structured result instead of raw frames.
	if c.IsSet("format") {
		r, err := render.FromContext(c)
		if err != nil {
			return invalid(err)
		}
		return r.Render(res)
	}
	return emitFrames(c.App.Writer, res.Frames, c.String("emit"), origin)
}
