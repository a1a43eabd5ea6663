// Package ipc implements the capture frame protocol: 4-byte big-endian
// length-prefixed msgpack frames streamed by a capture process.
package ipc

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/scanport/types"
)

// Frame size constants.
const (
	// MaxFrameSize is the maximum frame size (1 MiB), including length prefix.
	MaxFrameSize = 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// Frame type discriminants.
const (
	FragmentType = "fragment"
	CancelType   = "cancel"
)

// FragmentFrame carries one captured fragment. Exactly one of Text and Data
// is set.
type FragmentFrame struct {
	Type   string  `msgpack:"type"`
	Origin string  `msgpack:"origin,omitempty"`
	Text   *string `msgpack:"text,omitempty"`
	Data   []byte  `msgpack:"data,omitempty"`
	Seq    int64   `msgpack:"seq"`
}

// Fragment converts the frame to a scan fragment.
func (f *FragmentFrame) Fragment() (types.Fragment, error) {
	origin, err := types.ParseOrigin(f.Origin)
	if err != nil {
		return types.Fragment{}, err
	}
	switch {
	case f.Text != nil && f.Data != nil:
		return types.Fragment{}, fmt.Errorf("fragment frame %d carries both text and data", f.Seq)
	case f.Data != nil:
		return types.NewDataFragment(origin, f.Data), nil
	case f.Text != nil:
		return types.NewTextFragment(origin, *f.Text), nil
	default:
		// Empty payloads still reach the session, which reports them.
		return types.NewTextFragment(origin, ""), nil
	}
}

// CancelFrame asks the runtime to cancel the scan.
type CancelFrame struct {
	Type string `msgpack:"type"`
}

// FrameErrorKind classifies frame decoding errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
	// FrameErrorUnknownType indicates an unrecognized type discriminant.
	FrameErrorUnknownType
)

// FrameError represents a frame decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if this error is fatal (terminate the stream).
// Partial and oversized frames leave the stream unsynchronized.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError returns true if the error is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// FrameDecoder decodes length-prefixed msgpack frames from a stream.
type FrameDecoder struct {
	reader *bufio.Reader
}

// NewFrameDecoder creates a new frame decoder.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{reader: bufio.NewReader(r)}
}

// ReadFrame reads a single frame from the stream.
// Returns the raw payload bytes (msgpack-encoded).
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame (fatal)
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit (fatal)
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	_, err := io.ReadFull(d.reader, lengthBuf[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	_, err = io.ReadFull(d.reader, payload)
	if err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}

	return payload, nil
}

// frameTypeProbe is used to peek at the type field without full decode.
type frameTypeProbe struct {
	Type string `msgpack:"type"`
}

// DecodeFrame decodes a payload into a *FragmentFrame or *CancelFrame.
func DecodeFrame(payload []byte) (any, error) {
	var probe frameTypeProbe
	if err := msgpack.Unmarshal(payload, &probe); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode frame type",
			Err:  err,
		}
	}

	switch probe.Type {
	case FragmentType:
		return DecodeFragment(payload)
	case CancelType:
		return &CancelFrame{Type: CancelType}, nil
	default:
		return nil, &FrameError{
			Kind: FrameErrorUnknownType,
			Msg:  fmt.Sprintf("unknown frame type %q", probe.Type),
		}
	}
}

// DecodeFragment decodes a payload as a FragmentFrame.
func DecodeFragment(payload []byte) (*FragmentFrame, error) {
	var frame FragmentFrame
	if err := msgpack.Unmarshal(payload, &frame); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode fragment frame",
			Err:  err,
		}
	}
	return &frame, nil
}

// FrameEncoder writes length-prefixed msgpack frames.
type FrameEncoder struct {
	w   io.Writer
	seq int64
}

// NewFrameEncoder creates a new frame encoder.
func NewFrameEncoder(w io.Writer) *FrameEncoder {
	return &FrameEncoder{w: w}
}

// WriteFragment encodes f as a fragment frame with the next sequence number.
func (e *FrameEncoder) WriteFragment(f types.Fragment) error {
	e.seq++
	frame := &FragmentFrame{
		Type:   FragmentType,
		Origin: string(f.Origin),
		Seq:    e.seq,
	}
	if f.IsBinary() {
		frame.Data = f.Data()
		if frame.Data == nil {
			frame.Data = []byte{}
		}
	} else {
		text := f.Text()
		frame.Text = &text
	}
	return e.write(frame)
}

// WriteCancel writes a cancel frame.
func (e *FrameEncoder) WriteCancel() error {
	return e.write(&CancelFrame{Type: CancelType})
}

func (e *FrameEncoder) write(v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	if _, err := e.w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}
