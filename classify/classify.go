// Package classify detects the multi-part scheme of a single scanned fragment
// and extracts its index, total and chunk. Classification is pure: it never
// depends on anything but the fragment and the session's locked scheme.
package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/justapithecus/scanport/codec/bbqr"
	"github.com/justapithecus/scanport/codec/ur"
	"github.com/justapithecus/scanport/payload"
	"github.com/justapithecus/scanport/types"
)

// ClassifiedFragment is a fragment annotated with its scheme.
type ClassifiedFragment struct {
	Scheme  types.SchemeKind `json:"scheme"`
	Dialect types.Dialect    `json:"dialect"`
	// Index is the 1-based part index (sequential only).
	Index int `json:"index,omitempty"`
	// Total is the declared part count. Single payloads declare 1.
	Total int `json:"total"`
	// Fingerprint identifies a fountain fragment for duplicate detection.
	Fingerprint string `json:"fingerprint,omitempty"`
	// Chunk is the sequential data slice.
	Chunk string `json:"chunk,omitempty"`
	// Hint is the payload kind recognized for single payloads.
	Hint types.PayloadKind `json:"hint,omitempty"`
	// URType is the UR type for UR frames.
	URType string `json:"ur_type,omitempty"`

	// BBQr is the parsed header for bbqr frames.
	BBQr *bbqr.Header `json:"-"`
	// UR is the parsed frame for UR fragments.
	UR *ur.UR `json:"-"`
	// Raw is the fragment as submitted.
	Raw types.Fragment `json:"-"`
}

// Lock returns the scheme lock this fragment establishes.
func (c *ClassifiedFragment) Lock() types.SchemeLock {
	return types.SchemeLock{Scheme: c.Scheme, Dialect: c.Dialect}
}

var plainHeaders = []*regexp.Regexp{
	regexp.MustCompile(`(?s)^(\d{1,5})/(\d{1,5}):(.*)$`),
	regexp.MustCompile(`(?is)^(\d{1,5})of(\d{1,5}):(.*)$`),
	regexp.MustCompile(`(?is)^p(\d{1,5})of(\d{1,5}) (.*)$`),
}

// Classify classifies one fragment. With a prior lock the fragment must parse
// as the locked scheme and dialect.
func Classify(f types.Fragment, prior *types.SchemeLock) (*ClassifiedFragment, error) {
	if f.IsEmpty() {
		return nil, ErrEmpty
	}

	if prior == nil {
		return detect(f)
	}

	if c, ok := parseAs(f, *prior); ok {
		return c, nil
	}

	if other, err := detect(f); err == nil {
		return nil, &Error{
			Kind: ErrorSchemeMismatch,
			Msg: fmt.Sprintf("session locked to %s/%s, fragment is %s/%s",
				prior.Scheme, prior.Dialect, other.Scheme, other.Dialect),
		}
	}
	return nil, &Error{
		Kind: ErrorUnrecognizedFormat,
		Msg:  fmt.Sprintf("fragment does not parse as %s/%s", prior.Scheme, prior.Dialect),
	}
}

// detect tries single, then sequential, then fountain.
func detect(f types.Fragment) (*ClassifiedFragment, error) {
	if c, ok := parseSingle(f); ok {
		return c, nil
	}
	if c, ok := parseBBQr(f); ok {
		return c, nil
	}
	if c, ok := parsePlain(f); ok {
		return c, nil
	}
	if c, ok := parseFountain(f); ok {
		return c, nil
	}
	return nil, ErrUnrecognizedFormat
}

func parseAs(f types.Fragment, lock types.SchemeLock) (*ClassifiedFragment, bool) {
	switch lock.Scheme {
	case types.SchemeSingle:
		return parseSingle(f)
	case types.SchemeSequentialText:
		if lock.Dialect == types.DialectBBQr {
			return parseBBQr(f)
		}
		return parsePlain(f)
	case types.SchemeFountainCoded:
		return parseFountain(f)
	default:
		return nil, false
	}
}

func parseSingle(f types.Fragment) (*ClassifiedFragment, bool) {
	if text, ok := f.AsText(); ok && ur.HasPrefix(strings.TrimSpace(text)) {
		u, err := ur.Parse(text)
		if err != nil || u.IsMultiPart() {
			return nil, false
		}
		return &ClassifiedFragment{
			Scheme:  types.SchemeSingle,
			Dialect: types.DialectUR,
			Total:   1,
			URType:  u.Type,
			UR:      u,
			Raw:     f,
		}, true
	}

	kind, ok := payload.Recognize(f.Bytes())
	if !ok && f.IsBinary() {
		// A bare binary frame of BIP39 entropy length is a compact SeedQR.
		_, ok = payload.CompactSeedQR(f.Data())
		kind = types.PayloadMnemonic
	}
	if !ok {
		return nil, false
	}
	return &ClassifiedFragment{
		Scheme:  types.SchemeSingle,
		Dialect: types.DialectSingle,
		Total:   1,
		Hint:    kind,
		Raw:     f,
	}, true
}

func parseBBQr(f types.Fragment) (*ClassifiedFragment, bool) {
	text, ok := f.AsText()
	if !ok {
		return nil, false
	}
	h, data, err := bbqr.Parse(strings.TrimSpace(text))
	if err != nil {
		return nil, false
	}
	return &ClassifiedFragment{
		Scheme:  types.SchemeSequentialText,
		Dialect: types.DialectBBQr,
		Index:   h.Index + 1,
		Total:   h.Total,
		Chunk:   data,
		BBQr:    &h,
		Raw:     f,
	}, true
}

func parsePlain(f types.Fragment) (*ClassifiedFragment, bool) {
	text, ok := f.AsText()
	if !ok {
		return nil, false
	}
	for _, re := range plainHeaders {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		index, _ := strconv.Atoi(m[1])
		total, _ := strconv.Atoi(m[2])
		if total == 0 {
			return nil, false
		}
		return &ClassifiedFragment{
			Scheme:  types.SchemeSequentialText,
			Dialect: types.DialectPlain,
			Index:   index,
			Total:   total,
			Chunk:   m[3],
			Raw:     f,
		}, true
	}
	return nil, false
}

func parseFountain(f types.Fragment) (*ClassifiedFragment, bool) {
	text, ok := f.AsText()
	if !ok || !ur.HasPrefix(strings.TrimSpace(text)) {
		return nil, false
	}
	u, err := ur.Parse(text)
	if err != nil || !u.IsMultiPart() {
		return nil, false
	}
	return &ClassifiedFragment{
		Scheme:      types.SchemeFountainCoded,
		Dialect:     types.DialectUR,
		Total:       u.SeqLen,
		Fingerprint: Fingerprint(text),
		URType:      u.Type,
		UR:          u,
		Raw:         f,
	}, true
}

// Fingerprint returns the duplicate-detection key of a fountain fragment:
// SHA-256 of the trimmed, lowercased text.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(text))))
	return hex.EncodeToString(sum[:])
}
