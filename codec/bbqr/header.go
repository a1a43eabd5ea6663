// Package bbqr implements the BBQr animated QR framing: an 8-character header
// followed by a slice of a hex, base32 or compressed-base32 encoded file.
package bbqr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Prefix starts every BBQr frame.
const Prefix = "B$"

// HeaderLen is the fixed header length in characters.
const HeaderLen = 8

// MaxParts is the largest part count two base36 digits can carry.
const MaxParts = 36*36 - 1

// Encoding is the data encoding named by the third header character.
type Encoding byte

// Encodings defined by BBQr.
const (
	EncodingHex    Encoding = 'H'
	EncodingBase32 Encoding = '2'
	EncodingZlib   Encoding = 'Z'
)

// Valid reports whether e is a known encoding.
func (e Encoding) Valid() bool {
	return e == EncodingHex || e == EncodingBase32 || e == EncodingZlib
}

// String returns the header character.
func (e Encoding) String() string {
	return string(rune(e))
}

// FileType is the content type named by the fourth header character.
type FileType byte

// File types defined by BBQr.
const (
	FileTypePSBT        FileType = 'P'
	FileTypeTransaction FileType = 'T'
	FileTypeJSON        FileType = 'J'
	FileTypeUnicode     FileType = 'U'
	FileTypeCBOR        FileType = 'C'
)

// Valid reports whether t is a known file type.
func (t FileType) Valid() bool {
	switch t {
	case FileTypePSBT, FileTypeTransaction, FileTypeJSON, FileTypeUnicode, FileTypeCBOR:
		return true
	default:
		return false
	}
}

// String returns the header character.
func (t FileType) String() string {
	return string(rune(t))
}

// ParseFileType parses a file type from its header letter or a long name.
func ParseFileType(s string) (FileType, error) {
	switch strings.ToLower(s) {
	case "p", "psbt":
		return FileTypePSBT, nil
	case "t", "tx", "transaction":
		return FileTypeTransaction, nil
	case "j", "json":
		return FileTypeJSON, nil
	case "u", "text", "unicode":
		return FileTypeUnicode, nil
	case "c", "cbor":
		return FileTypeCBOR, nil
	default:
		return 0, fmt.Errorf("unknown bbqr file type %q", s)
	}
}

// ParseEncoding parses an encoding from its header letter or a long name.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "h", "hex":
		return EncodingHex, nil
	case "2", "base32":
		return EncodingBase32, nil
	case "z", "zlib", "":
		return EncodingZlib, nil
	default:
		return 0, fmt.Errorf("unknown bbqr encoding %q", s)
	}
}

// ErrInvalidHeader is returned when a frame does not carry a BBQr header.
var ErrInvalidHeader = errors.New("invalid bbqr header")

// Header is the parsed frame header. Index is 0-based.
type Header struct {
	Encoding Encoding
	FileType FileType
	Total    int
	Index    int
}

// String renders the 8-character header.
func (h Header) String() string {
	return Prefix + h.Encoding.String() + h.FileType.String() + base36(h.Total) + base36(h.Index)
}

// SameStream reports whether two headers describe the same encoded file.
func (h Header) SameStream(other Header) bool {
	return h.Encoding == other.Encoding && h.FileType == other.FileType && h.Total == other.Total
}

// Parse splits a frame into its header and data. The index is not checked
// against the total; callers decide how out-of-range frames are handled.
func Parse(frame string) (Header, string, error) {
	if len(frame) < HeaderLen || !strings.HasPrefix(frame, Prefix) {
		return Header{}, "", ErrInvalidHeader
	}

	h := Header{
		Encoding: Encoding(frame[2]),
		FileType: FileType(frame[3]),
	}
	if !h.Encoding.Valid() {
		return Header{}, "", fmt.Errorf("%w: encoding %q", ErrInvalidHeader, frame[2])
	}
	if !h.FileType.Valid() {
		return Header{}, "", fmt.Errorf("%w: file type %q", ErrInvalidHeader, frame[3])
	}

	total, err := parseBase36(frame[4:6])
	if err != nil {
		return Header{}, "", fmt.Errorf("%w: total: %w", ErrInvalidHeader, err)
	}
	if total == 0 {
		return Header{}, "", fmt.Errorf("%w: zero total", ErrInvalidHeader)
	}
	index, err := parseBase36(frame[6:8])
	if err != nil {
		return Header{}, "", fmt.Errorf("%w: index: %w", ErrInvalidHeader, err)
	}

	h.Total = total
	h.Index = index
	return h, frame[HeaderLen:], nil
}

func parseBase36(s string) (int, error) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return 0, fmt.Errorf("invalid base36 digit %q", c)
		}
	}
	n, err := strconv.ParseUint(s, 36, 16)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func base36(n int) string {
	s := strings.ToUpper(strconv.FormatInt(int64(n), 36))
	if len(s) < 2 {
		s = "0" + s
	}
	return s
}
