package reassembly

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/justapithecus/scanport/codec/bbqr"
	"github.com/justapithecus/scanport/codec/ur"
	"github.com/justapithecus/scanport/payload"
	"github.com/justapithecus/scanport/types"
)

// UR types that carry a signing-device account or key export.
var hardwareURTypes = map[string]bool{
	"crypto-account":     true,
	"crypto-output":      true,
	"crypto-hdkey":       true,
	"account-descriptor": true,
	"output-descriptor":  true,
	"hdkey":              true,
}

// decodeUR interprets a reassembled UR message by type.
func decodeUR(urType string, message []byte) (*types.DecodedPayload, error) {
	switch {
	case urType == "crypto-psbt" || urType == "psbt":
		data, err := ur.UnwrapBytes(message)
		if err != nil {
			return nil, corrupt("psbt message", err)
		}
		if !bytes.HasPrefix(data, payload.PSBTMagic) {
			return nil, corrupt("psbt message missing magic", nil)
		}
		return &types.DecodedPayload{Kind: types.PayloadPSBT, Data: data, URType: urType}, nil
	case urType == "bytes":
		data, err := ur.UnwrapBytes(message)
		if err != nil {
			return nil, corrupt("bytes message", err)
		}
		kind, norm := payload.Detect(data)
		return &types.DecodedPayload{Kind: kind, Data: norm, URType: urType}, nil
	case urType == "crypto-seed" || urType == "seed":
		entropy, err := ur.UnwrapSeed(message)
		if err != nil {
			return nil, corrupt("seed message", err)
		}
		mnemonic, ok := payload.CompactSeedQR(entropy)
		if !ok {
			return nil, corrupt(fmt.Sprintf("seed entropy of %d bytes", len(entropy)), nil)
		}
		return &types.DecodedPayload{Kind: types.PayloadMnemonic, Data: []byte(mnemonic), URType: urType}, nil
	case hardwareURTypes[urType]:
		return &types.DecodedPayload{Kind: types.PayloadHardwareExport, Data: message, URType: urType}, nil
	default:
		return nil, corrupt("unsupported ur type "+urType, nil)
	}
}

// decodeBBQr interprets joined BBQr data by file type.
func decodeBBQr(h bbqr.Header, parts []string) (*types.DecodedPayload, error) {
	data, err := bbqr.Join(h, parts)
	if err != nil {
		return nil, corrupt("bbqr join", err)
	}

	switch h.FileType {
	case bbqr.FileTypePSBT:
		if !bytes.HasPrefix(data, payload.PSBTMagic) {
			return nil, corrupt("bbqr psbt missing magic", nil)
		}
		return &types.DecodedPayload{Kind: types.PayloadPSBT, Data: data}, nil
	case bbqr.FileTypeTransaction:
		return &types.DecodedPayload{Kind: types.PayloadTransaction, Data: data}, nil
	case bbqr.FileTypeJSON:
		if !payload.IsJSON(data) {
			return nil, corrupt("bbqr json is not a json document", nil)
		}
		return &types.DecodedPayload{Kind: types.PayloadHardwareExport, Data: bytes.TrimSpace(data)}, nil
	default:
		if !utf8.Valid(data) {
			return nil, corrupt("bbqr text is not utf-8", nil)
		}
		kind, norm := payload.Detect(data)
		return &types.DecodedPayload{Kind: kind, Data: norm}, nil
	}
}

// decodePlain interprets concatenated plain sequential chunks.
func decodePlain(joined string) *types.DecodedPayload {
	kind, norm := payload.Detect([]byte(joined))
	return &types.DecodedPayload{Kind: kind, Data: norm}
}
