// Package ndef parses NFC Data Exchange Format messages read from a tag into
// records, and converts them to scan fragments.
package ndef

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/justapithecus/scanport/types"
)

// Type4Header precedes the NDEF message when a Type 4 tag file is read raw.
var Type4Header = []byte{0xE2, 0x43, 0x00, 0x01, 0x00, 0x00, 0x04, 0x00, 0x03}

// TNF is the 3-bit type name format of a record.
type TNF byte

// Type name formats.
const (
	TNFEmpty       TNF = 0
	TNFWellKnown   TNF = 1
	TNFMime        TNF = 2
	TNFAbsoluteURI TNF = 3
	TNFExternal    TNF = 4
	TNFUnknown     TNF = 5
	TNFUnchanged   TNF = 6
	TNFReserved    TNF = 7
)

const (
	flagMB  = 0x80
	flagME  = 0x40
	flagCF  = 0x20
	flagSR  = 0x10
	flagIL  = 0x08
	tnfMask = 0x07
)

// TextEncoding is the character encoding of a text record.
type TextEncoding string

// Text record encodings.
const (
	TextUTF8  TextEncoding = "utf-8"
	TextUTF16 TextEncoding = "utf-16"
)

// Text is the decoded content of a well-known text record.
type Text struct {
	Encoding TextEncoding
	Language string
	Text     string
}

// Record is one NDEF record.
type Record struct {
	MessageBegin bool
	MessageEnd   bool
	Chunked      bool
	TNF          TNF
	Type         []byte
	ID           []byte
	Payload      []byte
	// Text is set for well-known "T" records.
	Text *Text
}

// IsText reports whether the record is a well-known text record.
func (r *Record) IsText() bool {
	return r.Text != nil
}

// Message is a parsed NDEF message.
type Message struct {
	Records []Record
}

// ErrorKind classifies parse errors.
type ErrorKind int

const (
	// ErrorTruncated indicates input ending inside a record.
	ErrorTruncated ErrorKind = iota
	// ErrorInvalidText indicates a malformed text record payload.
	ErrorInvalidText
	// ErrorEmpty indicates no records.
	ErrorEmpty
)

// ParseError reports where parsing failed.
type ParseError struct {
	Kind   ErrorKind
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ndef: %s at offset %d", e.Msg, e.Offset)
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

func (r *reader) take(n int, what string) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, &ParseError{
			Kind:   ErrorTruncated,
			Offset: r.off,
			Msg:    fmt.Sprintf("need %d bytes for %s, have %d", n, what, r.remaining()),
		}
	}
	out := r.data[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *reader) byte(what string) (byte, error) {
	b, err := r.take(1, what)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Parse parses a raw NDEF message, with or without the Type 4 file header.
func Parse(data []byte) (*Message, error) {
	r := &reader{data: data}

	limit := len(data)
	if bytes.HasPrefix(data, Type4Header) {
		r.off = len(Type4Header)
		n, err := r.byte("message length")
		if err != nil {
			return nil, err
		}
		length := int(n)
		if n == 0xFF {
			b, err := r.take(2, "extended message length")
			if err != nil {
				return nil, err
			}
			length = int(binary.BigEndian.Uint16(b))
		}
		if length > r.remaining() {
			return nil, &ParseError{
				Kind:   ErrorTruncated,
				Offset: r.off,
				Msg:    fmt.Sprintf("message length %d exceeds %d available bytes", length, r.remaining()),
			}
		}
		limit = r.off + length
	}

	msg := &Message{}
	for r.off < limit {
		rec, err := parseRecord(r)
		if err != nil {
			return nil, err
		}
		msg.Records = append(msg.Records, rec)
		if rec.MessageEnd {
			break
		}
	}
	if len(msg.Records) == 0 {
		return nil, &ParseError{Kind: ErrorEmpty, Offset: r.off, Msg: "no records"}
	}
	return msg, nil
}

func parseRecord(r *reader) (Record, error) {
	header, err := r.byte("record header")
	if err != nil {
		return Record{}, err
	}
	typeLen, err := r.byte("type length")
	if err != nil {
		return Record{}, err
	}

	var payloadLen int
	if header&flagSR != 0 {
		n, err := r.byte("payload length")
		if err != nil {
			return Record{}, err
		}
		payloadLen = int(n)
	} else {
		b, err := r.take(4, "payload length")
		if err != nil {
			return Record{}, err
		}
		payloadLen = int(binary.BigEndian.Uint32(b))
	}

	idLen := 0
	if header&flagIL != 0 {
		n, err := r.byte("id length")
		if err != nil {
			return Record{}, err
		}
		idLen = int(n)
	}

	rec := Record{
		MessageBegin: header&flagMB != 0,
		MessageEnd:   header&flagME != 0,
		Chunked:      header&flagCF != 0,
		TNF:          TNF(header & tnfMask),
	}
	if rec.Type, err = r.take(int(typeLen), "type"); err != nil {
		return Record{}, err
	}
	if rec.ID, err = r.take(idLen, "id"); err != nil {
		return Record{}, err
	}
	start := r.off
	if rec.Payload, err = r.take(payloadLen, "payload"); err != nil {
		return Record{}, err
	}

	if rec.TNF == TNFWellKnown && bytes.Equal(rec.Type, []byte("T")) {
		text, err := parseText(rec.Payload, start)
		if err != nil {
			return Record{}, err
		}
		rec.Text = text
	}
	return rec, nil
}

func parseText(p []byte, offset int) (*Text, error) {
	if len(p) < 1 {
		return nil, &ParseError{Kind: ErrorInvalidText, Offset: offset, Msg: "text record without status byte"}
	}
	status := p[0]
	langLen := int(status & 0x3F)
	if 1+langLen > len(p) {
		return nil, &ParseError{
			Kind:   ErrorInvalidText,
			Offset: offset,
			Msg:    fmt.Sprintf("language code length %d exceeds payload", langLen),
		}
	}
	body := p[1+langLen:]

	t := &Text{Encoding: TextUTF8, Language: string(p[1 : 1+langLen])}
	if status&0x80 != 0 {
		t.Encoding = TextUTF16
		t.Text = decodeUTF16(body)
		return t, nil
	}
	if !utf8.Valid(body) {
		return nil, &ParseError{Kind: ErrorInvalidText, Offset: offset, Msg: "text record is not valid utf-8"}
	}
	t.Text = string(body)
	return t, nil
}

// decodeUTF16 decodes big-endian UTF-16, honoring a byte order mark.
func decodeUTF16(b []byte) string {
	order := binary.ByteOrder(binary.BigEndian)
	if len(b) >= 2 {
		switch {
		case b[0] == 0xFF && b[1] == 0xFE:
			order = binary.LittleEndian
			b = b[2:]
		case b[0] == 0xFE && b[1] == 0xFF:
			b = b[2:]
		}
	}
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, order.Uint16(b[i:]))
	}
	return string(utf16.Decode(units))
}

// Fragments converts records to proximity fragments: text records become
// text fragments, all other non-empty records become data fragments.
func (m *Message) Fragments() []types.Fragment {
	out := make([]types.Fragment, 0, len(m.Records))
	for _, rec := range m.Records {
		switch {
		case rec.Text != nil:
			out = append(out, types.NewTextFragment(types.OriginProximity, rec.Text.Text))
		case rec.TNF == TNFEmpty:
		default:
			out = append(out, types.NewDataFragment(types.OriginProximity, rec.Payload))
		}
	}
	return out
}

// NewTextRecord builds a UTF-8 well-known text record.
func NewTextRecord(language, text string) Record {
	payload := make([]byte, 0, 1+len(language)+len(text))
	payload = append(payload, byte(len(language)&0x3F))
	payload = append(payload, language...)
	payload = append(payload, text...)
	return Record{
		TNF:     TNFWellKnown,
		Type:    []byte("T"),
		Payload: payload,
		Text:    &Text{Encoding: TextUTF8, Language: language, Text: text},
	}
}

// NewMimeRecord builds a MIME media record.
func NewMimeRecord(mimeType string, payload []byte) Record {
	return Record{TNF: TNFMime, Type: []byte(mimeType), Payload: payload}
}

// Encode serializes the message. Begin and end flags are set from record
// positions; short records are used where the payload fits.
func (m *Message) Encode() []byte {
	var buf bytes.Buffer
	for i, rec := range m.Records {
		header := byte(rec.TNF) & tnfMask
		if i == 0 {
			header |= flagMB
		}
		if i == len(m.Records)-1 {
			header |= flagME
		}
		short := len(rec.Payload) <= 0xFF
		if short {
			header |= flagSR
		}
		if len(rec.ID) > 0 {
			header |= flagIL
		}

		buf.WriteByte(header)
		buf.WriteByte(byte(len(rec.Type)))
		if short {
			buf.WriteByte(byte(len(rec.Payload)))
		} else {
			_ = binary.Write(&buf, binary.BigEndian, uint32(len(rec.Payload)))
		}
		if len(rec.ID) > 0 {
			buf.WriteByte(byte(len(rec.ID)))
		}
		buf.Write(rec.Type)
		buf.Write(rec.ID)
		buf.Write(rec.Payload)
	}
	return buf.Bytes()
}

// WrapType4 prefixes an encoded message with the Type 4 file header.
func WrapType4(message []byte) []byte {
	out := append([]byte(nil), Type4Header...)
	if len(message) < 0xFF {
		out = append(out, byte(len(message)))
	} else {
		out = append(out, 0xFF)
		out = binary.BigEndian.AppendUint16(out, uint16(len(message)))
	}
	return append(out, message...)
}
