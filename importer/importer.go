// Package importer defines the wallet import collaborator and an in-memory
// reference registry.
package importer

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/justapithecus/scanport/payload"
	"github.com/justapithecus/scanport/types"
)

// Importer interprets a decoded payload and imports the wallet it describes.
type Importer interface {
	Import(ctx context.Context, p *types.DecodedPayload) (*types.ImportResult, error)
}

// WalletIDLen is the length of a wallet id in hex characters.
const WalletIDLen = 16

// WalletID derives the wallet id from payload bytes.
func WalletID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:WalletIDLen]
}

// Wallet is one imported wallet.
type Wallet struct {
	ID         string            `json:"wallet_id"`
	Kind       types.PayloadKind `json:"kind"`
	URType     string            `json:"ur_type,omitempty"`
	ImportedAt time.Time         `json:"imported_at"`
}

// Registry is an in-memory Importer keyed by wallet id.
type Registry struct {
	mu      sync.Mutex
	wallets map[string]Wallet
	now     func() time.Time
}

// NewRegistry creates a registry seeded with known wallet ids.
func NewRegistry(known ...string) *Registry {
	r := &Registry{wallets: make(map[string]Wallet), now: time.Now}
	for _, id := range known {
		r.wallets[id] = Wallet{ID: id}
	}
	return r
}

// Import implements Importer.
func (r *Registry) Import(ctx context.Context, p *types.DecodedPayload) (*types.ImportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("import: nil payload")
	}
	if detail, ok := validate(p); !ok {
		return types.InvalidFormat(detail), nil
	}

	id := WalletID(p.Data)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.wallets[id]; ok {
		return types.AlreadyExists(id), nil
	}
	r.wallets[id] = Wallet{ID: id, Kind: p.Kind, URType: p.URType, ImportedAt: r.now().UTC()}
	return types.Imported(id), nil
}

func validate(p *types.DecodedPayload) (string, bool) {
	if len(p.Data) == 0 {
		return "empty payload", false
	}
	switch p.Kind {
	case types.PayloadHardwareExport:
		// UR exports carry CBOR; everything else must be a JSON object.
		if p.URType == "" && !payload.IsJSONObject(p.Data) {
			return "hardware export is not a JSON object", false
		}
		return "", true
	case types.PayloadDescriptor, types.PayloadExtendedPublicKey, types.PayloadPSBT, types.PayloadMnemonic:
		return "", true
	default:
		return fmt.Sprintf("%s payload does not describe a wallet", p.Kind), false
	}
}

// Wallets returns imported wallets sorted by id.
func (r *Registry) Wallets() []Wallet {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Wallet, 0, len(r.wallets))
	for _, w := range r.wallets {
		out = append(out, w)
	}
	slices.SortFunc(out, func(a, b Wallet) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
