package classify

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/justapithecus/scanport/codec/ur"
	"github.com/justapithecus/scanport/types"
)

const testXpub = "xpub661MyMwAqRbcFtXgS5sYJABqqG9YLmC4Q1Rdap9gSE8NqtwybGhePY2gZ29ESFjqJoCu1Rupje8YtGqsefD265TMg7usUDFdp6W1EGMcet8"

func text(s string) types.Fragment {
	return types.NewTextFragment(types.OriginOptical, s)
}

func urParts(t *testing.T, n int) []string {
	t.Helper()
	message, err := ur.WrapBytes(bytes.Repeat([]byte("fountain"), 40))
	if err != nil {
		t.Fatalf("WrapBytes() error = %v", err)
	}
	enc, err := ur.NewMultipartEncoder("bytes", message, 60, 10)
	if err != nil {
		t.Fatalf("NewMultipartEncoder() error = %v", err)
	}
	parts := make([]string, n)
	for i := range parts {
		if parts[i], err = enc.NextPart(); err != nil {
			t.Fatalf("NextPart() error = %v", err)
		}
	}
	return parts
}

func TestClassify_Empty(t *testing.T) {
	for _, f := range []types.Fragment{
		text(""),
		types.NewDataFragment(types.OriginProximity, nil),
	} {
		_, err := Classify(f, nil)
		if !errors.Is(err, ErrEmpty) {
			t.Errorf("Classify(empty) error = %v, want ErrEmpty", err)
		}
		ce, ok := AsError(err)
		if !ok || ce.Reason() != types.FailureEmpty {
			t.Errorf("Reason() = %v, want empty", ce)
		}
	}
}

func TestClassify_Sequential(t *testing.T) {
	tests := []struct {
		in      string
		dialect types.Dialect
		index   int
		total   int
		chunk   string
	}{
		{"2/3:def", types.DialectPlain, 2, 3, "def"},
		{"1of2:abc", types.DialectPlain, 1, 2, "abc"},
		{"p1of4 wpkh(", types.DialectPlain, 1, 4, "wpkh("},
		{"3/3:", types.DialectPlain, 3, 3, ""},
		{"B$HP0201DEAD", types.DialectBBQr, 2, 2, "DEAD"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := Classify(text(tt.in), nil)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if c.Scheme != types.SchemeSequentialText {
				t.Errorf("Scheme = %q, want sequential_text", c.Scheme)
			}
			if c.Dialect != tt.dialect {
				t.Errorf("Dialect = %q, want %q", c.Dialect, tt.dialect)
			}
			if c.Index != tt.index || c.Total != tt.total {
				t.Errorf("Index, Total = %d, %d, want %d, %d", c.Index, c.Total, tt.index, tt.total)
			}
			if c.Chunk != tt.chunk {
				t.Errorf("Chunk = %q, want %q", c.Chunk, tt.chunk)
			}
		})
	}
}

func TestClassify_Single(t *testing.T) {
	wrapped, _ := ur.WrapBytes([]byte("hello"))

	tests := []struct {
		name    string
		frag    types.Fragment
		dialect types.Dialect
		hint    types.PayloadKind
	}{
		{"xpub", text(testXpub), types.DialectSingle, types.PayloadExtendedPublicKey},
		{"psbt bytes", types.NewDataFragment(types.OriginProximity, []byte("psbt\xff\x01\x00")), types.DialectSingle, types.PayloadPSBT},
		{"json export", text(`{"xfp":"73C5DA0A"}`), types.DialectSingle, types.PayloadHardwareExport},
		{"descriptor", text("wpkh(key)#abcdefgh"), types.DialectSingle, types.PayloadDescriptor},
		{"single ur", text(strings.ToUpper(ur.Encode("bytes", wrapped))), types.DialectUR, ""},
		{"seedqr digits", text("192402220235174306311124037817700641198012901210"), types.DialectSingle, types.PayloadMnemonic},
		{"compact seedqr", types.NewDataFragment(types.OriginOptical, bytes.Repeat([]byte{0x5b}, 16)), types.DialectSingle, types.PayloadMnemonic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Classify(tt.frag, nil)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if c.Scheme != types.SchemeSingle || c.Dialect != tt.dialect {
				t.Errorf("Scheme/Dialect = %s/%s, want single/%s", c.Scheme, c.Dialect, tt.dialect)
			}
			if c.Hint != tt.hint {
				t.Errorf("Hint = %q, want %q", c.Hint, tt.hint)
			}
			if c.Total != 1 {
				t.Errorf("Total = %d, want 1", c.Total)
			}
		})
	}
}

func TestClassify_Fountain(t *testing.T) {
	parts := urParts(t, 2)

	c, err := Classify(text(parts[0]), nil)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if c.Scheme != types.SchemeFountainCoded || c.Dialect != types.DialectUR {
		t.Errorf("Scheme/Dialect = %s/%s, want fountain_coded/ur", c.Scheme, c.Dialect)
	}
	if c.URType != "bytes" || c.UR == nil || !c.UR.IsMultiPart() {
		t.Errorf("UR = %+v, type %q", c.UR, c.URType)
	}
	if c.Total != c.UR.SeqLen {
		t.Errorf("Total = %d, want %d", c.Total, c.UR.SeqLen)
	}

	upper, err := Classify(text(strings.ToUpper(parts[0])), nil)
	if err != nil {
		t.Fatalf("Classify(upper) error = %v", err)
	}
	if upper.Fingerprint != c.Fingerprint {
		t.Error("fingerprint differs by case")
	}

	other, _ := Classify(text(parts[1]), nil)
	if other.Fingerprint == c.Fingerprint {
		t.Error("distinct parts share a fingerprint")
	}
}

func TestClassify_Unrecognized(t *testing.T) {
	for _, f := range []types.Fragment{
		text("hello world"),
		text("abcdefghijklmnop"),
		text("0/0:abc"),
		text("ur:bytes/notbytewords"),
		types.NewDataFragment(types.OriginProximity, []byte{0x00, 0xff, 0x10}),
	} {
		_, err := Classify(f, nil)
		if !errors.Is(err, ErrUnrecognizedFormat) {
			t.Errorf("Classify(%q) error = %v, want ErrUnrecognizedFormat", f.Bytes(), err)
		}
	}
}

func TestClassify_WithLock(t *testing.T) {
	plain := &types.SchemeLock{Scheme: types.SchemeSequentialText, Dialect: types.DialectPlain}
	bbqrLock := &types.SchemeLock{Scheme: types.SchemeSequentialText, Dialect: types.DialectBBQr}
	fountain := &types.SchemeLock{Scheme: types.SchemeFountainCoded, Dialect: types.DialectUR}
	parts := urParts(t, 1)

	tests := []struct {
		name    string
		in      string
		lock    *types.SchemeLock
		wantErr error
	}{
		{"plain matches", "1/3:abc", plain, nil},
		{"bbqr matches", "B$HP0201DEAD", bbqrLock, nil},
		{"fountain matches", parts[0], fountain, nil},
		{"bbqr under plain", "B$HP0201DEAD", plain, ErrSchemeMismatch},
		{"plain under bbqr", "1/3:abc", bbqrLock, ErrSchemeMismatch},
		{"plain under fountain", "1/3:abc", fountain, ErrSchemeMismatch},
		{"xpub under plain", testXpub, plain, ErrSchemeMismatch},
		{"noise under plain", "hello", plain, ErrUnrecognizedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Classify(text(tt.in), tt.lock)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Classify() error = %v", err)
				}
				if c.Lock() != *tt.lock {
					t.Errorf("Lock() = %+v, want %+v", c.Lock(), *tt.lock)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Classify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestError_IsFatal(t *testing.T) {
	if !ErrSchemeMismatch.IsFatal() {
		t.Error("scheme mismatch should be fatal")
	}
	if ErrUnrecognizedFormat.IsFatal() || ErrEmpty.IsFatal() {
		t.Error("empty and unrecognized should not be fatal")
	}
	if ErrSchemeMismatch.Reason() != types.FailureSchemeMismatch {
		t.Errorf("Reason() = %q, want scheme_mismatch", ErrSchemeMismatch.Reason())
	}
}
