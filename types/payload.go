package types

// PayloadKind tags a fully decoded payload.
type PayloadKind string

// Payload kinds handed to the import step.
const (
	PayloadHardwareExport    PayloadKind = "hardware_export"
	PayloadDescriptor        PayloadKind = "descriptor"
	PayloadExtendedPublicKey PayloadKind = "extended_public_key"
	PayloadPSBT              PayloadKind = "psbt"
	PayloadMnemonic          PayloadKind = "mnemonic"
	PayloadTransaction       PayloadKind = "transaction"
	PayloadText              PayloadKind = "text"
	PayloadBinary            PayloadKind = "binary"
)

// IsWalletImport returns true if the kind can describe a wallet to import.
func (k PayloadKind) IsWalletImport() bool {
	switch k {
	case PayloadHardwareExport, PayloadDescriptor, PayloadExtendedPublicKey, PayloadPSBT, PayloadMnemonic:
		return true
	default:
		return false
	}
}

// IsBinary returns true if the payload is carried as bytes rather than text.
func (k PayloadKind) IsBinary() bool {
	switch k {
	case PayloadPSBT, PayloadTransaction, PayloadBinary:
		return true
	default:
		return false
	}
}

// DecodedPayload is the merged and decoded result of a scan.
type DecodedPayload struct {
	// Kind tags the payload.
	Kind PayloadKind `json:"kind"`
	// Data is the decoded payload bytes. For text kinds it holds the UTF-8 text.
	Data []byte `json:"-"`
	// URType is the UR type when the payload arrived as UR (e.g. "crypto-psbt").
	URType string `json:"ur_type,omitempty"`
	// Scheme is the scheme the payload was reassembled with.
	Scheme SchemeKind `json:"scheme"`
	// Dialect is the header grammar the payload was reassembled with.
	Dialect Dialect `json:"dialect"`
}

// Text returns the payload as text.
func (p *DecodedPayload) Text() string {
	return string(p.Data)
}

// Size returns the payload size in bytes.
func (p *DecodedPayload) Size() int {
	return len(p.Data)
}
