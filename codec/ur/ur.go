// Package ur implements Uniform Resources: the "ur:" text framing, minimal
// bytewords, and the rateless fountain code that spreads a CBOR message over
// an animated sequence of QR frames.
package ur

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Scheme is the URI scheme prefix.
const Scheme = "ur:"

var (
	// ErrNotUR is returned when the text does not start with "ur:".
	ErrNotUR = errors.New("not a uniform resource")
	// ErrInvalidUR is returned for a malformed uniform resource.
	ErrInvalidUR = errors.New("invalid uniform resource")
)

// UR is one parsed uniform resource frame.
type UR struct {
	// Type is the registered type, e.g. "crypto-psbt".
	Type string
	// SeqNum and SeqLen come from the "seq-len" path component. Both are zero
	// for a single-part UR.
	SeqNum int
	SeqLen int
	// CBOR is the decoded message for a single-part UR.
	CBOR []byte
	// Part is the decoded fountain part for a multi-part UR.
	Part *Part
}

// IsMultiPart reports whether the frame carries a fountain part.
func (u *UR) IsMultiPart() bool {
	return u.Part != nil
}

// HasPrefix reports whether s starts with the UR scheme, ignoring case.
func HasPrefix(s string) bool {
	return len(s) >= len(Scheme) && strings.EqualFold(s[:len(Scheme)], Scheme)
}

// Parse parses a UR string. Parsing is case-insensitive.
func Parse(s string) (*UR, error) {
	s = strings.TrimSpace(s)
	if !HasPrefix(s) {
		return nil, ErrNotUR
	}
	s = strings.ToLower(s)

	comps := strings.Split(s[len(Scheme):], "/")
	if len(comps) < 2 || len(comps) > 3 {
		return nil, fmt.Errorf("%w: expected 2 or 3 path components, got %d", ErrInvalidUR, len(comps))
	}

	urType := comps[0]
	if !validType(urType) {
		return nil, fmt.Errorf("%w: type %q", ErrInvalidUR, urType)
	}

	body, err := DecodeMinimal(comps[len(comps)-1])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUR, err)
	}

	if len(comps) == 2 {
		return &UR{Type: urType, CBOR: body}, nil
	}

	seqNum, seqLen, err := parseSequence(comps[1])
	if err != nil {
		return nil, err
	}
	part, err := DecodePart(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUR, err)
	}
	if int(part.SeqNum) != seqNum || part.SeqLen != seqLen {
		return nil, fmt.Errorf("%w: header %d-%d does not match part %d-%d",
			ErrInvalidUR, seqNum, seqLen, part.SeqNum, part.SeqLen)
	}

	return &UR{Type: urType, SeqNum: seqNum, SeqLen: seqLen, Part: part}, nil
}

func parseSequence(s string) (int, int, error) {
	num, length, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: sequence %q", ErrInvalidUR, s)
	}
	n, err := strconv.ParseUint(num, 10, 32)
	if err != nil || n == 0 {
		return 0, 0, fmt.Errorf("%w: sequence number %q", ErrInvalidUR, num)
	}
	l, err := strconv.ParseUint(length, 10, 32)
	if err != nil || l == 0 {
		return 0, 0, fmt.Errorf("%w: sequence length %q", ErrInvalidUR, length)
	}
	return int(n), int(l), nil
}

func validType(t string) bool {
	if t == "" {
		return false
	}
	for i := 0; i < len(t); i++ {
		c := t[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return false
		}
	}
	return true
}

// Encode renders a single-part UR.
func Encode(urType string, message []byte) string {
	return Scheme + urType + "/" + EncodeMinimal(message)
}

// EncodePart renders one multi-part UR frame.
func EncodePart(urType string, p *Part) (string, error) {
	body, err := p.Encode()
	if err != nil {
		return "", fmt.Errorf("ur: encode part: %w", err)
	}
	return fmt.Sprintf("%s%s/%d-%d/%s", Scheme, urType, p.SeqNum, p.SeqLen, EncodeMinimal(body)), nil
}

// MultipartEncoder renders an unbounded stream of UR frames for one message.
type MultipartEncoder struct {
	urType  string
	message []byte
	enc     *Encoder
}

// NewMultipartEncoder creates an encoder for a CBOR message.
func NewMultipartEncoder(urType string, message []byte, maxFragmentLen, minFragmentLen int) (*MultipartEncoder, error) {
	if !validType(urType) {
		return nil, fmt.Errorf("ur: invalid type %q", urType)
	}
	enc, err := NewEncoder(message, maxFragmentLen, minFragmentLen)
	if err != nil {
		return nil, err
	}
	return &MultipartEncoder{urType: urType, message: message, enc: enc}, nil
}

// SeqLen returns the fragment count.
func (m *MultipartEncoder) SeqLen() int {
	return m.enc.SeqLen()
}

// NextPart returns the next frame. A message that fits in one fragment is
// always rendered as a single-part UR.
func (m *MultipartEncoder) NextPart() (string, error) {
	if m.enc.IsSinglePart() {
		return Encode(m.urType, m.message), nil
	}
	return EncodePart(m.urType, m.enc.NextPart())
}

// WrapBytes encodes data as a CBOR byte string, the message form of the
// "bytes" and "crypto-psbt" types.
func WrapBytes(data []byte) ([]byte, error) {
	return cbor.Marshal(data)
}

// seed is the crypto-seed message: a map with the BIP39 entropy under key 1.
// The optional birthdate (key 2) is ignored.
type seed struct {
	Payload []byte `cbor:"1,keyasint"`
}

// WrapSeed encodes entropy as a crypto-seed message.
func WrapSeed(entropy []byte) ([]byte, error) {
	return cbor.Marshal(seed{Payload: entropy})
}

// UnwrapSeed decodes a crypto-seed message and returns its entropy.
func UnwrapSeed(message []byte) ([]byte, error) {
	var s seed
	if err := cbor.Unmarshal(message, &s); err != nil {
		return nil, fmt.Errorf("%w: expected crypto-seed map: %w", ErrInvalidUR, err)
	}
	if len(s.Payload) == 0 {
		return nil, fmt.Errorf("%w: crypto-seed without entropy", ErrInvalidUR)
	}
	return s.Payload, nil
}

// UnwrapBytes decodes a CBOR byte string message.
func UnwrapBytes(message []byte) ([]byte, error) {
	var out []byte
	if err := cbor.Unmarshal(message, &out); err != nil {
		return nil, fmt.Errorf("%w: expected cbor byte string: %w", ErrInvalidUR, err)
	}
	return out, nil
}
