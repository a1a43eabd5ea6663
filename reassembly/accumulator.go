// Package reassembly accumulates classified fragments for one session and
// merges them into a decoded payload once enough distinct parts are held.
package reassembly

import (
	"fmt"
	"strings"

	"github.com/justapithecus/scanport/classify"
	"github.com/justapithecus/scanport/codec/bbqr"
	"github.com/justapithecus/scanport/codec/ur"
	"github.com/justapithecus/scanport/payload"
	"github.com/justapithecus/scanport/types"
)

// AddKind is the outcome of recording one fragment.
type AddKind string

const (
	// AddAlreadyComplete means the accumulator merged successfully before.
	AddAlreadyComplete AddKind = "already_complete"
	// AddDuplicate means the fragment was seen before. State is unchanged.
	AddDuplicate AddKind = "duplicate"
	// AddAccepted means a new part was recorded and more are needed.
	AddAccepted AddKind = "accepted"
	// AddMergeReady means Merge should be called now.
	AddMergeReady AddKind = "merge_ready"
)

// AddResult reports the state after Add.
type AddResult struct {
	Kind         AddKind
	PartsScanned int
	PartsLeft    int
	TotalParts   int
}

// Accumulator holds reassembly state for one session. It is not safe for
// concurrent use; the owning session serializes access.
type Accumulator struct {
	lock      *types.SchemeLock
	total     int
	partsLeft int
	pending   bool
	complete  bool
	payload   *types.DecodedPayload

	// sequential
	chunks map[int]string
	header *bbqr.Header

	// fountain
	seen     map[string]struct{}
	decoder  *ur.Decoder
	urType   string
	heldLeft int

	// single
	single *classify.ClassifiedFragment
}

// New creates an empty accumulator.
func New() *Accumulator {
	return &Accumulator{
		chunks:  make(map[int]string),
		seen:    make(map[string]struct{}),
		decoder: ur.NewDecoder(),
	}
}

// Lock returns the locked scheme, nil before the first accepted fragment.
func (a *Accumulator) Lock() *types.SchemeLock {
	if a.lock == nil {
		return nil
	}
	l := *a.lock
	return &l
}

// Scheme returns the locked scheme kind, empty before the first fragment.
func (a *Accumulator) Scheme() types.SchemeKind {
	if a.lock == nil {
		return ""
	}
	return a.lock.Scheme
}

// TotalParts returns the declared (or refined) total.
func (a *Accumulator) TotalParts() int {
	return a.total
}

// PartsLeft returns the number of parts still required.
func (a *Accumulator) PartsLeft() int {
	return a.partsLeft
}

// PartsScanned returns the number of distinct parts recorded.
func (a *Accumulator) PartsScanned() int {
	switch a.Scheme() {
	case types.SchemeSingle:
		if a.single != nil {
			return 1
		}
	case types.SchemeSequentialText:
		return len(a.chunks)
	case types.SchemeFountainCoded:
		return len(a.seen)
	}
	return 0
}

// IsComplete reports whether a merge succeeded.
func (a *Accumulator) IsComplete() bool {
	return a.complete
}

// Payload returns the merged payload once complete.
func (a *Accumulator) Payload() *types.DecodedPayload {
	return a.payload
}

// EstimatedPercentComplete returns the fountain decoder's estimate, or the
// scanned fraction for other schemes.
func (a *Accumulator) EstimatedPercentComplete() float64 {
	if a.complete {
		return 1
	}
	if a.Scheme() == types.SchemeFountainCoded {
		return a.decoder.EstimatedPercentComplete()
	}
	return a.Progress().Fraction()
}

// Progress returns the current progress snapshot.
func (a *Accumulator) Progress() types.Progress {
	return types.Progress{
		PartsScanned: a.PartsScanned(),
		PartsLeft:    a.partsLeft,
		TotalParts:   a.total,
		Scheme:       a.Scheme(),
	}
}

func (a *Accumulator) result(kind AddKind) AddResult {
	return AddResult{
		Kind:         kind,
		PartsScanned: a.PartsScanned(),
		PartsLeft:    a.partsLeft,
		TotalParts:   a.total,
	}
}

// Add records a classified fragment. The first fragment locks the scheme.
func (a *Accumulator) Add(c *classify.ClassifiedFragment) (AddResult, error) {
	if a.complete {
		return a.result(AddAlreadyComplete), nil
	}
	if a.pending {
		return a.result(AddMergeReady), nil
	}

	if a.lock != nil && c.Lock() != *a.lock {
		return a.result(AddDuplicate), &AccumulatorError{
			Kind: AccumulatorInconsistentStream,
			Msg: fmt.Sprintf("fragment %s/%s does not match locked %s/%s",
				c.Scheme, c.Dialect, a.lock.Scheme, a.lock.Dialect),
		}
	}

	switch c.Scheme {
	case types.SchemeSingle:
		return a.addSingle(c)
	case types.SchemeSequentialText:
		return a.addSequential(c)
	case types.SchemeFountainCoded:
		return a.addFountain(c)
	default:
		return a.result(AddDuplicate), fmt.Errorf("unknown scheme %q", c.Scheme)
	}
}

func (a *Accumulator) establish(c *classify.ClassifiedFragment) {
	if a.lock != nil {
		return
	}
	l := c.Lock()
	a.lock = &l
	a.total = c.Total
	a.partsLeft = c.Total
}

func (a *Accumulator) addSingle(c *classify.ClassifiedFragment) (AddResult, error) {
	a.establish(c)
	a.single = c
	a.partsLeft = 0
	a.pending = true
	return a.result(AddMergeReady), nil
}

func (a *Accumulator) addSequential(c *classify.ClassifiedFragment) (AddResult, error) {
	if a.lock != nil && c.Total != a.total {
		return a.result(AddDuplicate), &AccumulatorError{
			Kind: AccumulatorInconsistentTotal,
			Msg:  fmt.Sprintf("fragment declares %d parts, stream declared %d", c.Total, a.total),
		}
	}
	if c.Index < 1 || c.Index > c.Total {
		return a.result(AddDuplicate), &AccumulatorError{
			Kind: AccumulatorIndexOutOfRange,
			Msg:  fmt.Sprintf("index %d outside [1, %d]", c.Index, c.Total),
		}
	}
	if c.BBQr != nil {
		if a.header != nil && !a.header.SameStream(*c.BBQr) {
			return a.result(AddDuplicate), &AccumulatorError{
				Kind: AccumulatorInconsistentStream,
				Msg: fmt.Sprintf("bbqr encoding/type %s%s differs from stream %s%s",
					c.BBQr.Encoding, c.BBQr.FileType, a.header.Encoding, a.header.FileType),
			}
		}
	}

	a.establish(c)
	if c.BBQr != nil && a.header == nil {
		h := *c.BBQr
		a.header = &h
	}

	if _, ok := a.chunks[c.Index]; ok {
		return a.result(AddDuplicate), nil
	}
	a.chunks[c.Index] = c.Chunk
	a.partsLeft = a.total - len(a.chunks)

	if a.partsLeft == 0 {
		a.pending = true
		return a.result(AddMergeReady), nil
	}
	return a.result(AddAccepted), nil
}

func (a *Accumulator) addFountain(c *classify.ClassifiedFragment) (AddResult, error) {
	if c.UR == nil || c.UR.Part == nil {
		return a.result(AddDuplicate), &AccumulatorError{
			Kind: AccumulatorInconsistentStream,
			Msg:  "fountain fragment without a part",
		}
	}
	if a.lock != nil && c.URType != a.urType {
		return a.result(AddDuplicate), &AccumulatorError{
			Kind: AccumulatorInconsistentStream,
			Msg:  fmt.Sprintf("ur type %q differs from stream type %q", c.URType, a.urType),
		}
	}
	if _, ok := a.seen[c.Fingerprint]; ok {
		return a.result(AddDuplicate), nil
	}

	if err := a.decoder.Receive(c.UR.Part); err != nil {
		return a.result(AddDuplicate), &AccumulatorError{
			Kind: AccumulatorInconsistentStream,
			Msg:  "fountain part rejected",
			Err:  err,
		}
	}

	a.establish(c)
	a.urType = c.URType
	a.seen[c.Fingerprint] = struct{}{}

	if a.decoder.IsComplete() {
		a.heldLeft = a.partsLeft
		a.total = len(a.seen)
		a.partsLeft = 0
		a.pending = true
		return a.result(AddMergeReady), nil
	}

	// Distinct parts can exceed the fragment count before the decoder solves
	// every fragment. Refine the total so at least one part stays outstanding.
	left := a.total - len(a.seen)
	if left < 1 {
		a.total = len(a.seen) + 1
		left = 1
	}
	a.partsLeft = min(a.partsLeft, left)
	return a.result(AddAccepted), nil
}

// Merge merges and decodes the recorded parts. It must be called once after
// Add returns AddMergeReady.
//
// A fountain merge whose message fails its checksum returns a recoverable
// *MergeError: the decoder state is discarded and partsLeft goes back to the
// value reported before the merge-ready part, so the caller can keep
// collecting. This is the only case in which PartsLeft rises, and it never
// rises above a value already reported in an accepted result. Every other
// merge failure is final.
func (a *Accumulator) Merge() (*types.DecodedPayload, error) {
	if a.complete {
		return nil, ErrAlreadyMerged
	}
	if !a.pending {
		return nil, ErrMergeNotReady
	}
	a.pending = false

	p, err := a.merge()
	if err != nil {
		if me, ok := AsMergeError(err); ok && me.Recoverable {
			a.decoder = ur.NewDecoder()
			a.partsLeft = max(a.heldLeft, 1)
			a.total = len(a.seen) + a.partsLeft
		}
		return nil, err
	}
	if a.Scheme() == types.SchemeFountainCoded {
		a.total = len(a.seen)
	}

	p.Scheme = a.lock.Scheme
	p.Dialect = a.lock.Dialect
	a.payload = p
	a.complete = true
	a.partsLeft = 0
	return p, nil
}

func (a *Accumulator) merge() (*types.DecodedPayload, error) {
	switch a.lock.Scheme {
	case types.SchemeSingle:
		if a.single.UR != nil {
			return decodeUR(a.single.URType, a.single.UR.CBOR)
		}
		if a.single.Raw.IsBinary() && a.single.Hint == types.PayloadMnemonic {
			mnemonic, ok := payload.CompactSeedQR(a.single.Raw.Data())
			if !ok {
				return nil, corrupt("compact seedqr", nil)
			}
			return &types.DecodedPayload{Kind: types.PayloadMnemonic, Data: []byte(mnemonic)}, nil
		}
		return decodePlain(string(a.single.Raw.Bytes())), nil

	case types.SchemeSequentialText:
		ordered := make([]string, a.total)
		for i := 1; i <= a.total; i++ {
			chunk, ok := a.chunks[i]
			if !ok {
				return nil, corrupt(fmt.Sprintf("missing part %d", i), nil)
			}
			ordered[i-1] = chunk
		}
		if a.header != nil {
			return decodeBBQr(*a.header, ordered)
		}
		return decodePlain(strings.Join(ordered, "")), nil

	case types.SchemeFountainCoded:
		message, err := a.decoder.Result()
		if err != nil {
			me := corrupt("fountain message", err)
			me.Recoverable = true
			return nil, me
		}
		return decodeUR(a.urType, message)
	}
	return nil, corrupt("no scheme locked", nil)
}
