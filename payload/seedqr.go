package payload

import (
	"strconv"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// SeedQR word counts: 12, 15, 18, 21 or 24 words.
const (
	minSeedWords = 12
	maxSeedWords = 24
)

// SeedQR decodes a standard SeedQR: each word is its zero-padded four digit
// BIP39 index. It returns the space-separated mnemonic when the word count is
// valid and the checksum verifies.
func SeedQR(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s)%4 != 0 {
		return "", false
	}
	count := len(s) / 4
	if count < minSeedWords || count > maxSeedWords || count%3 != 0 {
		return "", false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", false
		}
	}

	list := bip39.GetWordList()
	words := make([]string, 0, count)
	for i := 0; i < len(s); i += 4 {
		n, err := strconv.Atoi(s[i : i+4])
		if err != nil || n >= len(list) {
			return "", false
		}
		words = append(words, list[n])
	}
	mnemonic := strings.Join(words, " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return "", false
	}
	return mnemonic, true
}

// CompactSeedQR decodes a compact SeedQR, which carries the raw BIP39
// entropy (16 to 32 bytes, a multiple of 4).
func CompactSeedQR(entropy []byte) (string, bool) {
	if len(entropy) < 16 || len(entropy) > 32 || len(entropy)%4 != 0 {
		return "", false
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", false
	}
	return mnemonic, true
}
