// Package types defines core domain types for the scanport orchestrator.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"fmt"
	"unicode/utf8"
)

// Origin tags where a fragment was captured. It only affects feedback
// rendering, never merge logic.
type Origin string

const (
	// OriginOptical is a camera frame decoded by a QR reader.
	OriginOptical Origin = "optical"
	// OriginProximity is an NFC message.
	OriginProximity Origin = "proximity"
)

// ParseOrigin parses an origin name. An empty string selects OriginOptical.
func ParseOrigin(s string) (Origin, error) {
	switch s {
	case "", string(OriginOptical), "qr", "camera":
		return OriginOptical, nil
	case string(OriginProximity), "nfc":
		return OriginProximity, nil
	default:
		return "", fmt.Errorf("invalid origin %q (must be optical or proximity)", s)
	}
}

// Fragment is one unit of scanned input: one QR frame's text or one NFC
// message. The payload is either text or bytes, never both.
type Fragment struct {
	// Origin is the capture source.
	Origin Origin

	text   string
	data   []byte
	binary bool
}

// NewTextFragment creates a text fragment.
func NewTextFragment(origin Origin, text string) Fragment {
	return Fragment{Origin: origin, text: text}
}

// NewDataFragment creates a binary fragment. The slice is not copied.
func NewDataFragment(origin Origin, data []byte) Fragment {
	return Fragment{Origin: origin, data: data, binary: true}
}

// IsBinary reports whether the payload is an opaque byte buffer.
func (f Fragment) IsBinary() bool {
	return f.binary
}

// Text returns the text payload. Empty for binary fragments.
func (f Fragment) Text() string {
	return f.text
}

// Data returns the binary payload. Nil for text fragments.
func (f Fragment) Data() []byte {
	return f.data
}

// Len returns the payload length in bytes.
func (f Fragment) Len() int {
	if f.binary {
		return len(f.data)
	}
	return len(f.text)
}

// IsEmpty reports whether the payload carries no bytes.
func (f Fragment) IsEmpty() bool {
	return f.Len() == 0
}

// AsText returns the payload as a string. Binary payloads are converted only
// when they are valid UTF-8.
func (f Fragment) AsText() (string, bool) {
	if !f.binary {
		return f.text, true
	}
	if !utf8.Valid(f.data) {
		return "", false
	}
	return string(f.data), true
}

// Bytes returns the payload as bytes regardless of representation.
func (f Fragment) Bytes() []byte {
	if f.binary {
		return f.data
	}
	return []byte(f.text)
}
