package bbqr

import (
	"bytes"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/justapithecus/scanport/iox"
)

// MaxDecodedSize bounds inflated output.
const MaxDecodedSize = 16 << 20

// zlib frames use a 10-bit window and no zlib wrapper.
const windowSize = 1 << 10

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

var (
	// ErrUnsupportedFileType is returned for file types this decoder cannot interpret.
	ErrUnsupportedFileType = errors.New("unsupported bbqr file type")
	// ErrCorrupt is returned when joined data does not decode.
	ErrCorrupt = errors.New("corrupt bbqr data")
)

// Decode decodes the concatenated data of all parts.
func Decode(enc Encoding, data string) ([]byte, error) {
	switch enc {
	case EncodingHex:
		out, err := hex.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("%w: hex: %w", ErrCorrupt, err)
		}
		return out, nil
	case EncodingBase32:
		out, err := b32.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: base32: %w", ErrCorrupt, err)
		}
		return out, nil
	case EncodingZlib:
		raw, err := b32.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: base32: %w", ErrCorrupt, err)
		}
		return inflate(raw)
	default:
		return nil, fmt.Errorf("%w: encoding %q", ErrCorrupt, byte(enc))
	}
}

func inflate(raw []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(raw))
	defer iox.DiscardClose(r)

	out, err := io.ReadAll(io.LimitReader(r, MaxDecodedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: inflate: %w", ErrCorrupt, err)
	}
	if len(out) > MaxDecodedSize {
		return nil, fmt.Errorf("%w: inflated payload exceeds %d bytes", ErrCorrupt, MaxDecodedSize)
	}
	return out, nil
}

// Join concatenates part data in index order and decodes it. parts[i] must be
// the data of the part with 0-based index i.
func Join(h Header, parts []string) ([]byte, error) {
	if len(parts) != h.Total {
		return nil, fmt.Errorf("%w: have %d of %d parts", ErrCorrupt, len(parts), h.Total)
	}
	if h.FileType == FileTypeCBOR {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, h.FileType)
	}
	return Decode(h.Encoding, strings.Join(parts, ""))
}
