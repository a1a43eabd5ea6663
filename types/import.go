package types

// ImportStatus is the tagged outcome of the wallet import collaborator.
type ImportStatus string

const (
	// ImportImported means a new wallet was created.
	ImportImported ImportStatus = "imported"
	// ImportAlreadyExists means the wallet was imported before.
	ImportAlreadyExists ImportStatus = "already_exists"
	// ImportInvalidFormat means the payload could not be interpreted.
	ImportInvalidFormat ImportStatus = "invalid_format"
)

// ImportResult is returned by the import collaborator.
type ImportResult struct {
	Status   ImportStatus `json:"status"`
	WalletID string       `json:"wallet_id,omitempty"`
	Detail   string       `json:"detail,omitempty"`
}

// Imported builds an imported result.
func Imported(walletID string) *ImportResult {
	return &ImportResult{Status: ImportImported, WalletID: walletID}
}

// AlreadyExists builds an already-exists result.
func AlreadyExists(walletID string) *ImportResult {
	return &ImportResult{Status: ImportAlreadyExists, WalletID: walletID}
}

// InvalidFormat builds an invalid-format result.
func InvalidFormat(detail string) *ImportResult {
	return &ImportResult{Status: ImportInvalidFormat, Detail: detail}
}
