// Package payload recognizes wallet-import payload formats in decoded bytes.
package payload

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/justapithecus/scanport/types"
)

// PSBTMagic is the binary PSBT header.
var PSBTMagic = []byte{'p', 's', 'b', 't', 0xff}

const (
	psbtBase64Prefix = "cHNidP8"
	psbtHexPrefix    = "70736274ff"
)

var extendedKeyPrefixes = []string{
	"xpub", "ypub", "zpub", "tpub", "upub", "vpub", "Ypub", "Zpub", "Upub", "Vpub",
}

var descriptorFuncs = []string{
	"wpkh(", "pkh(", "sh(", "wsh(", "tr(", "multi(", "sortedmulti(", "combo(", "addr(", "raw(",
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ExtendedKeyLen is the base58 length of a serialized extended key.
const ExtendedKeyLen = 111

// PSBT returns the binary PSBT when data is a PSBT in binary, base64 or hex form.
func PSBT(data []byte) ([]byte, bool) {
	if bytes.HasPrefix(data, PSBTMagic) {
		return data, true
	}
	s := strings.TrimSpace(string(data))
	switch {
	case strings.HasPrefix(s, psbtBase64Prefix):
		out, err := base64.StdEncoding.DecodeString(s)
		if err != nil || !bytes.HasPrefix(out, PSBTMagic) {
			return nil, false
		}
		return out, true
	case len(s) >= len(psbtHexPrefix) && strings.EqualFold(s[:len(psbtHexPrefix)], psbtHexPrefix):
		out, err := hex.DecodeString(s)
		if err != nil {
			return nil, false
		}
		return out, true
	}
	return nil, false
}

// IsJSON reports whether data is a JSON object or array document.
func IsJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return false
	}
	return json.Valid(trimmed)
}

// IsJSONObject reports whether data is a JSON object document.
func IsJSONObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}

// IsExtendedKey reports whether s is a base58 extended public key, optionally
// preceded by a [fingerprint/path] key origin.
func IsExtendedKey(s string) bool {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return false
		}
		s = s[end+1:]
	}
	if len(s) != ExtendedKeyLen {
		return false
	}
	prefixed := false
	for _, p := range extendedKeyPrefixes {
		if strings.HasPrefix(s, p) {
			prefixed = true
			break
		}
	}
	if !prefixed {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(base58Alphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}

// IsDescriptor reports whether s looks like an output descriptor: a known
// script function with balanced parentheses and an optional #checksum.
func IsDescriptor(s string) bool {
	s = strings.TrimSpace(s)
	if body, sum, ok := strings.Cut(s, "#"); ok {
		if len(sum) != 8 {
			return false
		}
		s = body
	}

	known := false
	for _, f := range descriptorFuncs {
		if strings.HasPrefix(s, f) {
			known = true
			break
		}
	}
	if !known || !strings.HasSuffix(s, ")") {
		return false
	}

	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		case '\n', '\r':
			return false
		}
	}
	return depth == 0
}

// Recognize reports whether data is a self-contained wallet export. Only
// formats that can stand alone in one fragment are recognized.
func Recognize(data []byte) (types.PayloadKind, bool) {
	if _, ok := PSBT(data); ok {
		return types.PayloadPSBT, true
	}
	if IsJSONObject(data) {
		return types.PayloadHardwareExport, true
	}
	if !utf8.Valid(data) {
		return "", false
	}
	s := string(data)
	if IsExtendedKey(s) {
		return types.PayloadExtendedPublicKey, true
	}
	if IsDescriptor(s) {
		return types.PayloadDescriptor, true
	}
	if _, ok := SeedQR(s); ok {
		return types.PayloadMnemonic, true
	}
	return "", false
}

// Detect tags merged bytes. Detection order is PSBT, JSON, extended key,
// descriptor, SeedQR digits, UTF-8 text, then opaque binary. PSBTs are
// normalized to binary, SeedQR digits to mnemonic words and text kinds are
// trimmed.
func Detect(data []byte) (types.PayloadKind, []byte) {
	if psbt, ok := PSBT(data); ok {
		return types.PayloadPSBT, psbt
	}
	if IsJSON(data) {
		return types.PayloadHardwareExport, bytes.TrimSpace(data)
	}
	if utf8.Valid(data) {
		s := string(data)
		switch {
		case IsExtendedKey(s):
			return types.PayloadExtendedPublicKey, []byte(strings.TrimSpace(s))
		case IsDescriptor(s):
			return types.PayloadDescriptor, []byte(strings.TrimSpace(s))
		}
		if mnemonic, ok := SeedQR(s); ok {
			return types.PayloadMnemonic, []byte(mnemonic)
		}
		return types.PayloadText, data
	}
	return types.PayloadBinary, data
}
