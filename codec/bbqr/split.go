package bbqr

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/klauspost/compress/flate"
)

// DefaultPartChars is the default number of data characters per frame.
const DefaultPartChars = 400

// SplitOptions configures Split.
type SplitOptions struct {
	// Encoding selects the data encoding. Zlib falls back to base32 when
	// compression does not shrink the payload.
	Encoding Encoding
	// PartChars caps the data characters per frame (header excluded).
	PartChars int
	// MinParts forces at least this many frames.
	MinParts int
}

// ErrTooLarge is returned when a payload needs more than MaxParts frames.
var ErrTooLarge = errors.New("payload too large for bbqr")

// Split encodes data into BBQr frames.
func Split(data []byte, ft FileType, opts SplitOptions) ([]string, error) {
	if len(data) == 0 {
		return nil, errors.New("bbqr: empty payload")
	}
	if !ft.Valid() {
		return nil, fmt.Errorf("bbqr: invalid file type %q", byte(ft))
	}
	enc := opts.Encoding
	if enc == 0 {
		enc = EncodingZlib
	}
	if !enc.Valid() {
		return nil, fmt.Errorf("bbqr: invalid encoding %q", byte(enc))
	}

	encoded, enc, err := encode(data, enc)
	if err != nil {
		return nil, err
	}

	// Every part but the last must end on a whole symbol group.
	align := 8
	if enc == EncodingHex {
		align = 2
	}

	per := opts.PartChars
	if per <= 0 {
		per = DefaultPartChars
	}
	if opts.MinParts > 1 {
		if want := (len(encoded) + opts.MinParts - 1) / opts.MinParts; want < per {
			per = want
		}
	}
	per -= per % align
	if per < align {
		per = align
	}

	total := (len(encoded) + per - 1) / per
	if total > MaxParts {
		return nil, fmt.Errorf("%w: %d parts", ErrTooLarge, total)
	}

	frames := make([]string, 0, total)
	for i := 0; i < total; i++ {
		end := min((i+1)*per, len(encoded))
		h := Header{Encoding: enc, FileType: ft, Total: total, Index: i}
		frames = append(frames, h.String()+encoded[i*per:end])
	}
	return frames, nil
}

func encode(data []byte, enc Encoding) (string, Encoding, error) {
	switch enc {
	case EncodingHex:
		return strings.ToUpper(hex.EncodeToString(data)), enc, nil
	case EncodingBase32:
		return b32.EncodeToString(data), enc, nil
	default:
		var buf bytes.Buffer
		w, err := flate.NewWriterWindow(&buf, windowSize)
		if err != nil {
			return "", 0, fmt.Errorf("bbqr: deflate: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return "", 0, fmt.Errorf("bbqr: deflate: %w", err)
		}
		if err := w.Close(); err != nil {
			return "", 0, fmt.Errorf("bbqr: deflate: %w", err)
		}
		if buf.Len() >= len(data) {
			return b32.EncodeToString(data), EncodingBase32, nil
		}
		return b32.EncodeToString(buf.Bytes()), EncodingZlib, nil
	}
}
