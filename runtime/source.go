package runtime

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/justapithecus/scanport/ipc"
	"github.com/justapithecus/scanport/metrics"
	"github.com/justapithecus/scanport/ndef"
	"github.com/justapithecus/scanport/types"
)

// ErrCancelRequested is returned by a FragmentSource when the capture side
// asks to cancel the scan.
var ErrCancelRequested = errors.New("capture requested cancel")

// FragmentSource yields fragments in capture order.
type FragmentSource interface {
	// Next returns the next fragment. io.EOF ends the stream.
	Next(ctx context.Context) (types.Fragment, error)
}

// InputFormat selects how a source decodes its reader.
type InputFormat string

const (
	// InputLines reads one text fragment per line.
	InputLines InputFormat = "lines"
	// InputFrames reads length-prefixed msgpack capture frames.
	InputFrames InputFormat = "frames"
	// InputNDEF reads one raw NDEF message.
	InputNDEF InputFormat = "ndef"
)

// ParseInputFormat parses an input format name. Empty selects InputLines.
func ParseInputFormat(s string) (InputFormat, error) {
	switch InputFormat(strings.ToLower(s)) {
	case "", InputLines:
		return InputLines, nil
	case InputFrames:
		return InputFrames, nil
	case InputNDEF:
		return InputNDEF, nil
	default:
		return "", fmt.Errorf("unknown input format %q (want lines, frames or ndef)", s)
	}
}

// NewSource builds a FragmentSource for format. origin applies to line input;
// frames carry their own origin and NDEF input is always proximity.
func NewSource(format InputFormat, r io.Reader, origin types.Origin, collector *metrics.Collector) (FragmentSource, error) {
	switch format {
	case InputLines, "":
		return NewLineSource(r, origin), nil
	case InputFrames:
		return NewFrameSource(r, collector), nil
	case InputNDEF:
		return NewNDEFSource(r), nil
	default:
		return nil, fmt.Errorf("unknown input format %q", format)
	}
}

// maxLineSize bounds a single line fragment.
const maxLineSize = ipc.MaxPayloadSize

// LineSource yields one text fragment per non-blank line.
type LineSource struct {
	scanner *bufio.Scanner
	origin  types.Origin
}

// NewLineSource creates a line source.
func NewLineSource(r io.Reader, origin types.Origin) *LineSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &LineSource{scanner: sc, origin: origin}
}

// Next returns the next non-blank line.
func (s *LineSource) Next(ctx context.Context) (types.Fragment, error) {
	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return types.Fragment{}, err
		}
		line := strings.TrimRight(s.scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		return types.NewTextFragment(s.origin, line), nil
	}
	if err := s.scanner.Err(); err != nil {
		return types.Fragment{}, fmt.Errorf("read line: %w", err)
	}
	return types.Fragment{}, io.EOF
}

// FrameSource yields fragments from capture frames. Undecodable frames are
// counted and skipped; partial or oversized frames end the stream.
type FrameSource struct {
	decoder   *ipc.FrameDecoder
	collector *metrics.Collector
}

// NewFrameSource creates a frame source.
func NewFrameSource(r io.Reader, collector *metrics.Collector) *FrameSource {
	return &FrameSource{decoder: ipc.NewFrameDecoder(r), collector: collector}
}

// Next returns the fragment of the next fragment frame.
func (s *FrameSource) Next(ctx context.Context) (types.Fragment, error) {
	for {
		if err := ctx.Err(); err != nil {
			return types.Fragment{}, err
		}

		payload, err := s.decoder.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return types.Fragment{}, io.EOF
			}
			return types.Fragment{}, fmt.Errorf("frame error: %w", err)
		}

		decoded, err := ipc.DecodeFrame(payload)
		if err != nil {
			s.collector.IncFrameDecodeError()
			continue
		}

		switch frame := decoded.(type) {
		case *ipc.CancelFrame:
			return types.Fragment{}, ErrCancelRequested
		case *ipc.FragmentFrame:
			f, err := frame.Fragment()
			if err != nil {
				s.collector.IncFrameDecodeError()
				continue
			}
			return f, nil
		}
	}
}

// NDEFSource yields the records of one NDEF message read from r.
type NDEFSource struct {
	r         io.Reader
	fragments []types.Fragment
	loaded    bool
}

// NewNDEFSource creates an NDEF source. The reader is consumed on first Next.
func NewNDEFSource(r io.Reader) *NDEFSource {
	return &NDEFSource{r: r}
}

// Next returns the next record fragment.
func (s *NDEFSource) Next(ctx context.Context) (types.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return types.Fragment{}, err
	}
	if !s.loaded {
		s.loaded = true
		data, err := io.ReadAll(io.LimitReader(s.r, ipc.MaxFrameSize+1))
		if err != nil {
			return types.Fragment{}, fmt.Errorf("read ndef message: %w", err)
		}
		if len(data) > ipc.MaxFrameSize {
			return types.Fragment{}, fmt.Errorf("ndef message exceeds %d bytes", ipc.MaxFrameSize)
		}
		msg, err := ndef.Parse(data)
		if err != nil {
			return types.Fragment{}, err
		}
		s.fragments = msg.Fragments()
	}
	if len(s.fragments) == 0 {
		return types.Fragment{}, io.EOF
	}
	f := s.fragments[0]
	s.fragments = s.fragments[1:]
	return f, nil
}
