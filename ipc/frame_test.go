package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/scanport/types"
)

// encodeFrame encodes a payload with length prefix.
func encodeFrame(payload []byte) []byte {
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf
}

func TestFrameEncoder_RoundTrip(t *testing.T) {
	fragments := []types.Fragment{
		types.NewTextFragment(types.OriginOptical, "1/2:abc"),
		types.NewDataFragment(types.OriginProximity, []byte{0x70, 0x73, 0x62, 0x74, 0xff}),
		types.NewTextFragment(types.OriginOptical, "2/2:def"),
	}

	var buf bytes.Buffer
	enc := NewFrameEncoder(&buf)
	for _, f := range fragments {
		if err := enc.WriteFragment(f); err != nil {
			t.Fatalf("WriteFragment() error = %v", err)
		}
	}
	if err := enc.WriteCancel(); err != nil {
		t.Fatalf("WriteCancel() error = %v", err)
	}

	decoder := NewFrameDecoder(&buf)
	for i, want := range fragments {
		payload, err := decoder.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() error = %v", err)
		}
		frame, err := DecodeFrame(payload)
		if err != nil {
			t.Fatalf("DecodeFrame() error = %v", err)
		}
		ff, ok := frame.(*FragmentFrame)
		if !ok {
			t.Fatalf("frame %d is %T, want *FragmentFrame", i, frame)
		}
		if ff.Seq != int64(i+1) {
			t.Errorf("Seq = %d, want %d", ff.Seq, i+1)
		}
		got, err := ff.Fragment()
		if err != nil {
			t.Fatalf("Fragment() error = %v", err)
		}
		if got.Origin != want.Origin {
			t.Errorf("Origin = %q, want %q", got.Origin, want.Origin)
		}
		if got.IsBinary() != want.IsBinary() {
			t.Errorf("IsBinary() = %v, want %v", got.IsBinary(), want.IsBinary())
		}
		if !bytes.Equal(got.Bytes(), want.Bytes()) {
			t.Errorf("Bytes() = %q, want %q", got.Bytes(), want.Bytes())
		}
	}

	payload, err := decoder.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	frame, err := DecodeFrame(payload)
	if err != nil {
		t.Fatalf("DecodeFrame() error = %v", err)
	}
	if _, ok := frame.(*CancelFrame); !ok {
		t.Errorf("frame is %T, want *CancelFrame", frame)
	}

	if _, err := decoder.ReadFrame(); err != io.EOF {
		t.Errorf("ReadFrame() error = %v, want io.EOF", err)
	}
}

func TestFragmentFrame_Fragment(t *testing.T) {
	text := "ur:bytes/1-3/abc"

	tests := []struct {
		name    string
		frame   FragmentFrame
		wantErr bool
		binary  bool
	}{
		{"text default origin", FragmentFrame{Type: FragmentType, Text: &text}, false, false},
		{"nfc alias", FragmentFrame{Type: FragmentType, Origin: "nfc", Data: []byte{1}}, false, true},
		{"both payloads", FragmentFrame{Type: FragmentType, Text: &text, Data: []byte{1}}, true, false},
		{"unknown origin", FragmentFrame{Type: FragmentType, Origin: "bluetooth", Text: &text}, true, false},
		{"no payload", FragmentFrame{Type: FragmentType}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := tt.frame.Fragment()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Fragment() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if f.IsBinary() != tt.binary {
				t.Errorf("IsBinary() = %v, want %v", f.IsBinary(), tt.binary)
			}
		})
	}
}

func TestDecodeFrame_UnknownType(t *testing.T) {
	payload, err := msgpack.Marshal(map[string]any{"type": "event"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = DecodeFrame(payload)
	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
	if frameErr.Kind != FrameErrorUnknownType {
		t.Errorf("Kind = %v, want FrameErrorUnknownType", frameErr.Kind)
	}
	if frameErr.IsFatal() {
		t.Error("unknown frame types should not be fatal")
	}
}

// TestFrameDecoder_PartialFrame validates fatal error for truncated frames.
func TestFrameDecoder_PartialFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFrameEncoder(&buf).WriteFragment(types.NewTextFragment(types.OriginOptical, "p1of3 abcdef")); err != nil {
		t.Fatal(err)
	}
	frame := buf.Bytes()
	truncated := frame[:LengthPrefixSize+len(frame[LengthPrefixSize:])/2]

	decoder := NewFrameDecoder(bytes.NewReader(truncated))
	_, err := decoder.ReadFrame()
	if err == nil {
		t.Fatal("expected error for truncated frame")
	}
	if !IsFatalFrameError(err) {
		t.Errorf("expected fatal frame error, got: %v", err)
	}

	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
	if frameErr.Kind != FrameErrorPartial {
		t.Errorf("Kind = %v, want FrameErrorPartial", frameErr.Kind)
	}
}

// TestFrameDecoder_OversizedFrame validates fatal error for frames exceeding max size.
func TestFrameDecoder_OversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(MaxPayloadSize+1))

	decoder := NewFrameDecoder(&buf)
	_, err := decoder.ReadFrame()
	if err == nil {
		t.Fatal("expected error for oversized frame")
	}

	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
	if frameErr.Kind != FrameErrorTooLarge {
		t.Errorf("Kind = %v, want FrameErrorTooLarge", frameErr.Kind)
	}
	if !frameErr.IsFatal() {
		t.Error("FrameErrorTooLarge.IsFatal() should return true")
	}
}

func TestFrameEncoder_OversizedFragment(t *testing.T) {
	var buf bytes.Buffer
	big := make([]byte, MaxPayloadSize)
	err := NewFrameEncoder(&buf).WriteFragment(types.NewDataFragment(types.OriginOptical, big))

	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %v", err)
	}
	if frameErr.Kind != FrameErrorTooLarge {
		t.Errorf("Kind = %v, want FrameErrorTooLarge", frameErr.Kind)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes, want 0", buf.Len())
	}
}

func TestFrameDecoder_EmptyStream(t *testing.T) {
	decoder := NewFrameDecoder(bytes.NewReader(nil))
	_, err := decoder.ReadFrame()

	if err != io.EOF {
		t.Errorf("expected io.EOF, got: %v", err)
	}
}

// TestFrameDecoder_TruncatedLengthPrefix validates fatal error when length prefix is incomplete.
func TestFrameDecoder_TruncatedLengthPrefix(t *testing.T) {
	decoder := NewFrameDecoder(bytes.NewReader([]byte{0x00, 0x00}))
	_, err := decoder.ReadFrame()

	if !IsFatalFrameError(err) {
		t.Errorf("expected fatal frame error, got: %v", err)
	}
}

// TestFrameDecoder_MalformedMsgpack validates decode error for invalid msgpack.
// Decode errors are non-fatal (the frame was read correctly, just couldn't decode).
func TestFrameDecoder_MalformedMsgpack(t *testing.T) {
	frame := encodeFrame([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF})

	decoder := NewFrameDecoder(bytes.NewReader(frame))
	payload, err := decoder.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	_, err = DecodeFrame(payload)
	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
	if frameErr.Kind != FrameErrorDecode {
		t.Errorf("Kind = %v, want FrameErrorDecode", frameErr.Kind)
	}
	if IsFatalFrameError(err) {
		t.Error("decode errors should not be fatal")
	}
}

func TestFrameError_ErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *FrameError
		contains string
	}{
		{
			name:     "partial without underlying error",
			err:      &FrameError{Kind: FrameErrorPartial, Msg: "truncated"},
			contains: "truncated",
		},
		{
			name: "partial with underlying error",
			err: &FrameError{
				Kind: FrameErrorPartial,
				Msg:  "read failed",
				Err:  io.ErrUnexpectedEOF,
			},
			contains: "unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			if !bytes.Contains([]byte(msg), []byte(tt.contains)) {
				t.Errorf("error message %q does not contain %q", msg, tt.contains)
			}
		})
	}
}

func TestIsFatalFrameError_NonFrameError(t *testing.T) {
	if IsFatalFrameError(errors.New("regular error")) {
		t.Error("regular errors should not be fatal frame errors")
	}
	if IsFatalFrameError(nil) {
		t.Error("nil should not be a fatal frame error")
	}
	if IsFatalFrameError(io.EOF) {
		t.Error("io.EOF should not be a fatal frame error")
	}
}
