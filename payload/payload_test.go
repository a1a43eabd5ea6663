package payload

import (
	"bytes"
	"testing"

	"github.com/justapithecus/scanport/types"
)

const testXpub = "xpub661MyMwAqRbcFtXgS5sYJABqqG9YLmC4Q1Rdap9gSE8NqtwybGhePY2gZ29ESFjqJoCu1Rupje8YtGqsefD265TMg7usUDFdp6W1EGMcet8"

var testPSBT = []byte{'p', 's', 'b', 't', 0xff, 0x01, 0x00, 0x0a}

func TestPSBT(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		ok   bool
	}{
		{"binary", testPSBT, true},
		{"base64", []byte("cHNidP8BAAo="), true},
		{"hex", []byte("70736274ff01000a"), true},
		{"hex uppercase", []byte("70736274FF01000A"), true},
		{"bad base64", []byte("cHNidP8!!!"), false},
		{"text", []byte("hello"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PSBT(tt.in)
			if ok != tt.ok {
				t.Fatalf("PSBT() ok = %v, want %v", ok, tt.ok)
			}
			if ok && !bytes.Equal(got, testPSBT) {
				t.Errorf("PSBT() = %x, want %x", got, testPSBT)
			}
		})
	}
}

func TestIsExtendedKey(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{testXpub, true},
		{"[73c5da0a/84h/0h/0h]" + testXpub, true},
		{"  " + testXpub + "\n", true},
		{testXpub[:110], false},
		{"qpub" + testXpub[4:], false},
		{testXpub[:110] + "0", false},
		{"[73c5da0a" + testXpub, false},
	}

	for _, tt := range tests {
		if got := IsExtendedKey(tt.in); got != tt.want {
			t.Errorf("IsExtendedKey(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsDescriptor(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"wpkh([73c5da0a/84h/0h/0h]" + testXpub + "/0/*)", true},
		{"wsh(sortedmulti(2,a,b))#abcdefgh", true},
		{"tr(key)", true},
		{"wsh(multi(2,a,b)", false},
		{"wpkh(key)#abc", false},
		{"foo(key)", false},
		{"wpkh(key))(", false},
	}

	for _, tt := range tests {
		if got := IsDescriptor(tt.in); got != tt.want {
			t.Errorf("IsDescriptor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRecognize(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want types.PayloadKind
		ok   bool
	}{
		{"psbt", testPSBT, types.PayloadPSBT, true},
		{"json object", []byte(`{"xfp":"73C5DA0A","bip84":{}}`), types.PayloadHardwareExport, true},
		{"json array", []byte(`[1,2]`), "", false},
		{"xpub", []byte(testXpub), types.PayloadExtendedPublicKey, true},
		{"descriptor", []byte("pkh(key)"), types.PayloadDescriptor, true},
		{"seedqr digits", []byte(testSeedQR), types.PayloadMnemonic, true},
		{"plain chunk", []byte("1/3:abc"), "", false},
		{"binary", []byte{0x00, 0xff, 0xfe}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Recognize(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Recognize() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want types.PayloadKind
	}{
		{"psbt base64", []byte("cHNidP8BAAo="), types.PayloadPSBT},
		{"json array", []byte(` [{"a":1}] `), types.PayloadHardwareExport},
		{"xpub", []byte(testXpub), types.PayloadExtendedPublicKey},
		{"descriptor", []byte("wpkh(key)\n"), types.PayloadDescriptor},
		{"seedqr digits", []byte(testSeedQR + "\n"), types.PayloadMnemonic},
		{"text", []byte("abcdefghi"), types.PayloadText},
		{"invalid json is text", []byte("{not json"), types.PayloadText},
		{"binary", []byte{0x00, 0xff, 0xfe}, types.PayloadBinary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Detect(tt.in)
			if got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}

	_, data := Detect([]byte("cHNidP8BAAo="))
	if !bytes.Equal(data, testPSBT) {
		t.Errorf("Detect() normalized PSBT = %x, want %x", data, testPSBT)
	}
}
