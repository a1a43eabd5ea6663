package ur

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"
)

func testMessage(n int) []byte {
	x := newXoshiro([]byte("Wolf"))
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(x.nextInt(0, 255))
	}
	return out
}

func TestBytewords_ReferenceVector(t *testing.T) {
	data := []byte{0, 1, 2, 128, 255}

	got := EncodeMinimal(data)
	if got != "aeadaolazmjendeoti" {
		t.Errorf("EncodeMinimal() = %q, want %q", got, "aeadaolazmjendeoti")
	}

	back, err := DecodeMinimal(got)
	if err != nil {
		t.Fatalf("DecodeMinimal() error = %v", err)
	}
	if !bytes.Equal(back, data) {
		t.Errorf("DecodeMinimal() = %x, want %x", back, data)
	}
}

func TestBytewords_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"odd length", "aeadaolazmjendeot", ErrBytewords},
		{"too short", "aead", ErrBytewords},
		{"unknown word", "qqadaolazmjendeoti", ErrBytewords},
		{"bad checksum", "aeadaolazmjendeoae", ErrChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMinimal(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeMinimal(%q) error = %v, want %v", tt.in, err, tt.want)
			}
		})
	}
}

func TestWord(t *testing.T) {
	if Word(0) != "able" || Word(255) != "zoom" {
		t.Errorf("Word(0), Word(255) = %q, %q, want able, zoom", Word(0), Word(255))
	}
}

func TestFragmentLength(t *testing.T) {
	tests := []struct {
		messageLen, minLen, maxLen, want int
	}{
		{12345, 10, 1955, 1764},
		{12345, 10, 30000, 12345},
		{100, 10, 30, 25},
	}

	for _, tt := range tests {
		if got := fragmentLength(tt.messageLen, tt.minLen, tt.maxLen); got != tt.want {
			t.Errorf("fragmentLength(%d, %d, %d) = %d, want %d",
				tt.messageLen, tt.minLen, tt.maxLen, got, tt.want)
		}
	}
}

func TestChooseFragments_SimpleParts(t *testing.T) {
	for seq := uint32(1); seq <= 5; seq++ {
		got := chooseFragments(seq, 5, 0xdeadbeef)
		if len(got) != 1 || got[0] != int(seq)-1 {
			t.Errorf("chooseFragments(%d) = %v, want [%d]", seq, got, seq-1)
		}
	}
	for seq := uint32(6); seq <= 40; seq++ {
		got := chooseFragments(seq, 5, 0xdeadbeef)
		if len(got) < 1 || len(got) > 5 {
			t.Errorf("chooseFragments(%d) = %v, degree out of range", seq, got)
		}
	}
}

func TestChooseFragments_ReferenceVector(t *testing.T) {
	message := testMessage(1024)
	enc, err := NewEncoder(message, 100, 10)
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	if enc.SeqLen() != 11 {
		t.Fatalf("SeqLen() = %d, want 11", enc.SeqLen())
	}

	want := [][]int{
		{0}, {1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}, {9}, {10},
		{9},
		{2, 5, 6, 8, 9, 10},
		{8},
		{1, 5},
		{1},
		{0, 2, 4, 5, 8, 10},
		{5},
		{2},
		{2},
		{0, 1, 3, 4, 5, 7, 9, 10},
		{0, 1, 2, 3, 5, 6, 8, 9, 10},
		{0, 2, 4, 5, 7, 8, 9, 10},
		{3, 5},
		{4},
	}
	for i, w := range want {
		p := enc.NextPart()
		if got := p.Indexes(); !slices.Equal(got, w) {
			t.Errorf("part %d indexes = %v, want %v", p.SeqNum, got, w)
		}
		if p.SeqNum != uint32(i+1) {
			t.Fatalf("SeqNum = %d, want %d", p.SeqNum, i+1)
		}
	}
}

func TestSubtract(t *testing.T) {
	tests := []struct {
		set, sub []int
		want     []int
		ok       bool
	}{
		{[]int{1, 3, 5}, []int{3}, []int{1, 5}, true},
		{[]int{1, 3, 5}, []int{1, 3, 5}, []int{}, true},
		{[]int{1, 3, 5}, []int{}, []int{1, 3, 5}, true},
		{[]int{1, 3, 5}, []int{2}, nil, false},
		{[]int{1, 3, 5}, []int{5, 7}, nil, false},
		{[]int{3}, []int{1, 3}, nil, false},
	}
	for _, tt := range tests {
		got, ok := subtract(tt.set, tt.sub)
		if ok != tt.ok || (ok && !slices.Equal(got, tt.want)) {
			t.Errorf("subtract(%v, %v) = %v, %v, want %v, %v", tt.set, tt.sub, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDecoder_HostilePartsAtMaxSeqLen(t *testing.T) {
	dec := NewDecoder()
	data := []byte{1}
	start := time.Now()
	for seq := uint32(MaxSeqLen + 1); seq <= MaxSeqLen+200; seq++ {
		p := &Part{SeqNum: seq, SeqLen: MaxSeqLen, MessageLen: MaxSeqLen, Checksum: 0xdeadbeef, Data: data}
		if err := dec.Receive(p); err != nil {
			t.Fatalf("Receive(%d) error = %v", seq, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("200 mixed parts at MaxSeqLen took %v", elapsed)
	}
	if dec.IsComplete() {
		t.Error("IsComplete() = true without any simple part")
	}
}

func TestDecoder_RecoversMissingFragments(t *testing.T) {
	message := testMessage(1000)
	enc, err := NewEncoder(message, 100, 10)
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	if enc.SeqLen() != 10 {
		t.Fatalf("SeqLen() = %d, want 10", enc.SeqLen())
	}

	dec := NewDecoder()
	for i := 0; i < 500 && !dec.IsComplete(); i++ {
		p := enc.NextPart()
		// Drop half of the plain fragments so recovery depends on mixed parts.
		if p.SeqNum <= 10 && p.SeqNum%2 == 0 {
			continue
		}
		if err := dec.Receive(p); err != nil {
			t.Fatalf("Receive(%d) error = %v", p.SeqNum, err)
		}
	}

	got, err := dec.Result()
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if !bytes.Equal(got, message) {
		t.Error("Result() does not match message")
	}
	if dec.EstimatedPercentComplete() != 1 {
		t.Errorf("EstimatedPercentComplete() = %v, want 1", dec.EstimatedPercentComplete())
	}
}

func TestDecoder_OrderIndependent(t *testing.T) {
	message := testMessage(256)
	enc, err := NewEncoder(message, 30, 10)
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}

	parts := make([]*Part, 0, 3*enc.SeqLen())
	for i := 0; i < 3*enc.SeqLen(); i++ {
		parts = append(parts, enc.NextPart())
	}

	dec := NewDecoder()
	for i := len(parts) - 1; i >= 0 && !dec.IsComplete(); i-- {
		if err := dec.Receive(parts[i]); err != nil {
			t.Fatalf("Receive() error = %v", err)
		}
	}

	got, err := dec.Result()
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if !bytes.Equal(got, message) {
		t.Error("Result() does not match message")
	}
}

func TestDecoder_InconsistentPart(t *testing.T) {
	a, _ := NewEncoder(testMessage(200), 50, 10)
	b, _ := NewEncoder(bytes.Repeat([]byte{7}, 200), 50, 10)

	dec := NewDecoder()
	if err := dec.Receive(a.NextPart()); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if err := dec.Receive(b.NextPart()); !errors.Is(err, ErrInconsistentPart) {
		t.Errorf("Receive(other message) error = %v, want ErrInconsistentPart", err)
	}
}

func TestDecoder_ChecksumMismatch(t *testing.T) {
	enc, _ := NewEncoder(testMessage(40), 20, 10)
	p1 := enc.NextPart()
	p2 := enc.NextPart()
	p2.Data[0] ^= 0xff

	dec := NewDecoder()
	_ = dec.Receive(p1)
	_ = dec.Receive(p2)

	if !dec.IsComplete() {
		t.Fatal("IsComplete() = false after all fragments")
	}
	if _, err := dec.Result(); !errors.Is(err, ErrMessageChecksum) {
		t.Errorf("Result() error = %v, want ErrMessageChecksum", err)
	}
}

func TestDecoder_Progress(t *testing.T) {
	enc, _ := NewEncoder(testMessage(1000), 100, 10)
	dec := NewDecoder()
	if dec.EstimatedPercentComplete() != 0 {
		t.Errorf("initial EstimatedPercentComplete() = %v, want 0", dec.EstimatedPercentComplete())
	}
	_ = dec.Receive(enc.NextPart())
	got := dec.EstimatedPercentComplete()
	if got <= 0 || got >= 1 {
		t.Errorf("EstimatedPercentComplete() = %v, want in (0, 1)", got)
	}
	if dec.SolvedFragments() != 1 || dec.ProcessedParts() != 1 {
		t.Errorf("SolvedFragments, ProcessedParts = %d, %d, want 1, 1", dec.SolvedFragments(), dec.ProcessedParts())
	}
}

func TestMultipartEncoder_RoundTrip(t *testing.T) {
	payload := testMessage(600)
	message, err := WrapBytes(payload)
	if err != nil {
		t.Fatalf("WrapBytes() error = %v", err)
	}

	me, err := NewMultipartEncoder("bytes", message, 120, 10)
	if err != nil {
		t.Fatalf("NewMultipartEncoder() error = %v", err)
	}

	dec := NewDecoder()
	for i := 0; i < 200 && !dec.IsComplete(); i++ {
		text, err := me.NextPart()
		if err != nil {
			t.Fatalf("NextPart() error = %v", err)
		}
		u, err := Parse(strings.ToUpper(text))
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", text, err)
		}
		if u.Type != "bytes" || !u.IsMultiPart() {
			t.Fatalf("Parse() = type %q multipart %v", u.Type, u.IsMultiPart())
		}
		if err := dec.Receive(u.Part); err != nil {
			t.Fatalf("Receive() error = %v", err)
		}
	}

	got, err := dec.Result()
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	unwrapped, err := UnwrapBytes(got)
	if err != nil {
		t.Fatalf("UnwrapBytes() error = %v", err)
	}
	if !bytes.Equal(unwrapped, payload) {
		t.Error("round trip payload mismatch")
	}
}

func TestMultipartEncoder_SinglePart(t *testing.T) {
	message, _ := WrapBytes([]byte("hi"))
	me, err := NewMultipartEncoder("bytes", message, 100, 10)
	if err != nil {
		t.Fatalf("NewMultipartEncoder() error = %v", err)
	}
	text, _ := me.NextPart()

	u, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if u.IsMultiPart() {
		t.Error("single fragment message rendered as multi-part")
	}
	data, err := UnwrapBytes(u.CBOR)
	if err != nil || string(data) != "hi" {
		t.Errorf("UnwrapBytes() = (%q, %v), want hi", data, err)
	}
}

func TestParse_Errors(t *testing.T) {
	valid := Encode("bytes", []byte{0x41, 0x00})

	tests := []struct {
		name string
		in   string
		want error
	}{
		{"not ur", "bytes/aeadaolazmjendeoti", ErrNotUR},
		{"too many components", "ur:bytes/1-2/3/aeadaolazmjendeoti", ErrInvalidUR},
		{"bad type", "ur:by_tes/aeadaolazmjendeoti", ErrInvalidUR},
		{"bad body", "ur:bytes/zzzz", ErrInvalidUR},
		{"bad sequence", strings.Replace(valid, "ur:bytes/", "ur:bytes/x-y/", 1), ErrInvalidUR},
		{"zero sequence", strings.Replace(valid, "ur:bytes/", "ur:bytes/0-2/", 1), ErrInvalidUR},
		{"body not a part", strings.Replace(valid, "ur:bytes/", "ur:bytes/1-2/", 1), ErrInvalidUR},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse(%q) error = %v, want %v", tt.in, err, tt.want)
			}
		})
	}
}

func TestParse_SequenceMismatch(t *testing.T) {
	enc, _ := NewEncoder(testMessage(100), 20, 10)
	text, err := EncodePart("bytes", enc.NextPart())
	if err != nil {
		t.Fatalf("EncodePart() error = %v", err)
	}
	tampered := strings.Replace(text, "/1-5/", "/2-5/", 1)
	if _, err := Parse(tampered); !errors.Is(err, ErrInvalidUR) {
		t.Errorf("Parse(tampered) error = %v, want ErrInvalidUR", err)
	}
}
