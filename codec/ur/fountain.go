package ur

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"slices"

	"github.com/fxamacker/cbor/v2"
)

// Limits applied to decoded parts so a hostile frame cannot force large
// allocations.
const (
	MaxSeqLen     = 10000
	MaxMessageLen = 16 << 20
)

var (
	// ErrInvalidPart is returned for a structurally invalid part.
	ErrInvalidPart = errors.New("invalid fountain part")
	// ErrInconsistentPart is returned for a part from a different message.
	ErrInconsistentPart = errors.New("part does not belong to this message")
	// ErrMessageChecksum is returned when a reassembled message fails its CRC-32.
	ErrMessageChecksum = errors.New("fountain message checksum mismatch")
)

// Part is one fountain-coded part: a single fragment or an XOR of several.
type Part struct {
	_          struct{} `cbor:",toarray"`
	SeqNum     uint32
	SeqLen     int
	MessageLen int
	Checksum   uint32
	Data       []byte
}

// DecodePart decodes the CBOR body of a multi-part UR.
func DecodePart(body []byte) (*Part, error) {
	var p Part
	if err := cbor.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPart, err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encode encodes the part as a CBOR array.
func (p *Part) Encode() ([]byte, error) {
	return cbor.Marshal(p)
}

func (p *Part) validate() error {
	switch {
	case p.SeqNum == 0:
		return fmt.Errorf("%w: zero sequence number", ErrInvalidPart)
	case p.SeqLen < 1 || p.SeqLen > MaxSeqLen:
		return fmt.Errorf("%w: sequence length %d", ErrInvalidPart, p.SeqLen)
	case p.MessageLen < 1 || p.MessageLen > MaxMessageLen:
		return fmt.Errorf("%w: message length %d", ErrInvalidPart, p.MessageLen)
	case len(p.Data) == 0:
		return fmt.Errorf("%w: empty fragment", ErrInvalidPart)
	case len(p.Data)*p.SeqLen < p.MessageLen:
		return fmt.Errorf("%w: %d fragments of %d bytes cannot hold %d bytes",
			ErrInvalidPart, p.SeqLen, len(p.Data), p.MessageLen)
	}
	return nil
}

// Indexes returns the 0-based fragment indexes mixed into the part.
func (p *Part) Indexes() []int {
	return chooseFragments(p.SeqNum, p.SeqLen, p.Checksum)
}

// chooseFragments selects the fragments mixed into part seqNum.
func chooseFragments(seqNum uint32, seqLen int, checksum uint32) []int {
	if int(seqNum) <= seqLen {
		return []int{int(seqNum) - 1}
	}

	seed := make([]byte, 0, 8)
	seed = binary.BigEndian.AppendUint32(seed, seqNum)
	seed = binary.BigEndian.AppendUint32(seed, checksum)
	x := newXoshiro(seed)

	degree := x.chooseDegree(seqLen)
	chosen := x.choose(seqLen, degree)
	slices.Sort(chosen)
	return chosen
}

// fragmentLength finds the smallest fragment length not above maxLen that
// splits the message into equal fragments of at least minLen bytes.
func fragmentLength(messageLen, minLen, maxLen int) int {
	maxCount := max(messageLen/minLen, 1)
	var length int
	for count := 1; count <= maxCount; count++ {
		length = (messageLen + count - 1) / count
		if length <= maxLen {
			break
		}
	}
	return length
}

func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// Encoder produces an unbounded stream of parts for one message.
type Encoder struct {
	messageLen int
	checksum   uint32
	fragments  [][]byte
	seqNum     uint32
}

// NewEncoder splits message into fragments of at most maxFragmentLen bytes.
func NewEncoder(message []byte, maxFragmentLen, minFragmentLen int) (*Encoder, error) {
	if len(message) == 0 {
		return nil, errors.New("ur: empty message")
	}
	if minFragmentLen < 1 || maxFragmentLen < minFragmentLen {
		return nil, fmt.Errorf("ur: invalid fragment bounds [%d, %d]", minFragmentLen, maxFragmentLen)
	}

	length := fragmentLength(len(message), minFragmentLen, maxFragmentLen)
	count := (len(message) + length - 1) / length
	if count > MaxSeqLen {
		return nil, fmt.Errorf("ur: message needs %d fragments, limit %d", count, MaxSeqLen)
	}

	padded := make([]byte, count*length)
	copy(padded, message)

	frags := make([][]byte, count)
	for i := range frags {
		frags[i] = padded[i*length : (i+1)*length]
	}

	return &Encoder{
		messageLen: len(message),
		checksum:   crc32.ChecksumIEEE(message),
		fragments:  frags,
	}, nil
}

// SeqLen returns the fragment count.
func (e *Encoder) SeqLen() int {
	return len(e.fragments)
}

// IsSinglePart reports whether the message fits in one fragment.
func (e *Encoder) IsSinglePart() bool {
	return len(e.fragments) == 1
}

// NextPart returns the next part. The first SeqLen parts are the plain
// fragments; later parts are mixed.
func (e *Encoder) NextPart() *Part {
	e.seqNum++
	data := make([]byte, len(e.fragments[0]))
	for _, i := range chooseFragments(e.seqNum, len(e.fragments), e.checksum) {
		xorInto(data, e.fragments[i])
	}
	return &Part{
		SeqNum:     e.seqNum,
		SeqLen:     len(e.fragments),
		MessageLen: e.messageLen,
		Checksum:   e.checksum,
		Data:       data,
	}
}

type decodedPart struct {
	indexes []int
	data    []byte
}

func (d decodedPart) key() string {
	return fmt.Sprint(d.indexes)
}

func (d decodedPart) isSimple() bool {
	return len(d.indexes) == 1
}

// reduce removes b from d when b's indexes are a subset of d's.
func (d decodedPart) reduce(b decodedPart) decodedPart {
	rest, ok := subtract(d.indexes, b.indexes)
	if !ok {
		return d
	}
	data := slices.Clone(d.data)
	xorInto(data, b.data)
	return decodedPart{indexes: rest, data: data}
}

// subtract returns set without sub if sub is a subset of set. Both slices
// are sorted.
func subtract(set, sub []int) ([]int, bool) {
	if len(sub) > len(set) {
		return nil, false
	}
	j := 0
	for _, v := range set {
		if j < len(sub) && sub[j] < v {
			return nil, false
		}
		if j < len(sub) && sub[j] == v {
			j++
		}
	}
	if j != len(sub) {
		return nil, false
	}

	rest := make([]int, 0, len(set)-len(sub))
	j = 0
	for _, v := range set {
		if j < len(sub) && sub[j] == v {
			j++
			continue
		}
		rest = append(rest, v)
	}
	return rest, true
}

// Decoder reassembles a message from parts received in any order.
type Decoder struct {
	seqLen      int
	messageLen  int
	checksum    uint32
	fragmentLen int
	started     bool

	simple    map[int]decodedPart
	mixed     map[string]decodedPart
	queue     []decodedPart
	processed int

	result []byte
	err    error
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{
		simple: make(map[int]decodedPart),
		mixed:  make(map[string]decodedPart),
	}
}

// Receive adds a part. It returns ErrInconsistentPart for a part whose
// parameters differ from earlier parts. Parts received after completion are
// ignored.
func (d *Decoder) Receive(p *Part) error {
	if d.IsComplete() {
		return nil
	}
	if err := p.validate(); err != nil {
		return err
	}
	if !d.started {
		d.seqLen = p.SeqLen
		d.messageLen = p.MessageLen
		d.checksum = p.Checksum
		d.fragmentLen = len(p.Data)
		d.started = true
	} else if p.SeqLen != d.seqLen || p.MessageLen != d.messageLen ||
		p.Checksum != d.checksum || len(p.Data) != d.fragmentLen {
		return ErrInconsistentPart
	}

	d.queue = append(d.queue, decodedPart{indexes: p.Indexes(), data: slices.Clone(p.Data)})
	for !d.IsComplete() && len(d.queue) > 0 {
		next := d.queue[0]
		d.queue = d.queue[1:]
		if next.isSimple() {
			d.processSimple(next)
		} else {
			d.processMixed(next)
		}
	}
	d.processed++
	return nil
}

func (d *Decoder) processSimple(p decodedPart) {
	index := p.indexes[0]
	if _, ok := d.simple[index]; ok {
		return
	}
	d.simple[index] = p

	if len(d.simple) == d.seqLen {
		message := make([]byte, 0, d.seqLen*d.fragmentLen)
		for i := 0; i < d.seqLen; i++ {
			message = append(message, d.simple[i].data...)
		}
		message = message[:d.messageLen]
		if crc32.ChecksumIEEE(message) != d.checksum {
			d.err = ErrMessageChecksum
			return
		}
		d.result = message
		return
	}
	d.reduceMixedBy(p)
}

func (d *Decoder) processMixed(p decodedPart) {
	if _, ok := d.mixed[p.key()]; ok {
		return
	}

	reduced := decodedPart{indexes: make([]int, 0, len(p.indexes)), data: slices.Clone(p.data)}
	for _, i := range p.indexes {
		if s, ok := d.simple[i]; ok {
			xorInto(reduced.data, s.data)
			continue
		}
		reduced.indexes = append(reduced.indexes, i)
	}
	for _, m := range d.mixed {
		reduced = reduced.reduce(m)
	}

	switch {
	case len(reduced.indexes) == 0:
		return
	case reduced.isSimple():
		d.queue = append(d.queue, reduced)
	default:
		d.reduceMixedBy(reduced)
		d.mixed[reduced.key()] = reduced
	}
}

func (d *Decoder) reduceMixedBy(p decodedPart) {
	next := make(map[string]decodedPart, len(d.mixed))
	for _, m := range d.mixed {
		r := m.reduce(p)
		switch {
		case len(r.indexes) == 0:
		case r.isSimple():
			d.queue = append(d.queue, r)
		default:
			next[r.key()] = r
		}
	}
	d.mixed = next
}

// IsComplete reports whether every fragment has been solved, whether or not
// the message verified.
func (d *Decoder) IsComplete() bool {
	return d.result != nil || d.err != nil
}

// Result returns the reassembled message once complete.
func (d *Decoder) Result() ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.result == nil {
		return nil, errors.New("ur: message incomplete")
	}
	return d.result, nil
}

// SeqLen returns the fragment count of the message, zero before the first part.
func (d *Decoder) SeqLen() int {
	return d.seqLen
}

// SolvedFragments returns the number of fragments recovered so far.
func (d *Decoder) SolvedFragments() int {
	return len(d.simple)
}

// ProcessedParts returns the number of parts received.
func (d *Decoder) ProcessedParts() int {
	return d.processed
}

// EstimatedPercentComplete estimates progress from the processed part count.
// Fountain decoding typically needs about 1.75 parts per fragment.
func (d *Decoder) EstimatedPercentComplete() float64 {
	if d.IsComplete() {
		return 1
	}
	if d.seqLen == 0 {
		return 0
	}
	return min(0.99, float64(d.processed)/(float64(d.seqLen)*1.75))
}
