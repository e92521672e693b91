package hexdata

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Message framing. Every device message starts with a fixed prefix,
// a total length, a direction pattern and a two byte message type. An
// optional increment byte follows the type; it is present whenever the
// byte after the type is not already a field name (field names start
// at 0xa1).
const (
	prefixByte0 = 0xff
	prefixByte1 = 0x09

	headerBaseLen = 9
	firstFieldKey = 0xa1
)

var (
	patternSend    = [3]byte{0x03, 0x00, 0x0f}
	patternReceive = [3]byte{0x03, 0x01, 0x0f}
)

// Header is the decoded message frame header.
type Header struct {
	// Length is the total message length in bytes, prefix included.
	Length int
	// Pattern distinguishes sent commands from received reports.
	Pattern [3]byte
	// MsgType selects the field layout for the carrying model.
	MsgType [2]byte
	// Increment is a rolling counter on messages that carry one.
	Increment    byte
	HasIncrement bool
}

// Size returns the header length in bytes, 9 or 10 depending on the
// increment byte.
func (h Header) Size() int {
	if h.HasIncrement {
		return headerBaseLen + 1
	}
	return headerBaseLen
}

// MsgTypeHex returns the message type as lower case hex, the form the
// catalog keys layouts by.
func (h Header) MsgTypeHex() string {
	return hex.EncodeToString(h.MsgType[:])
}

// IsCommand reports whether the pattern marks a sent command frame.
func (h Header) IsCommand() bool {
	return h.Pattern == patternSend
}

// ParseHeader decodes the frame header from the start of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < headerBaseLen {
		return Header{}, fmt.Errorf("message too short for header: %d bytes", len(data))
	}
	if data[0] != prefixByte0 || data[1] != prefixByte1 {
		return Header{}, fmt.Errorf("invalid message prefix %02x%02x", data[0], data[1])
	}
	h := Header{
		Length:  int(binary.LittleEndian.Uint16(data[2:4])),
		Pattern: [3]byte{data[4], data[5], data[6]},
		MsgType: [2]byte{data[7], data[8]},
	}
	if h.Length > len(data) {
		return Header{}, fmt.Errorf("message truncated: header says %d bytes, got %d", h.Length, len(data))
	}
	if len(data) > headerBaseLen && data[headerBaseLen] != firstFieldKey {
		h.Increment = data[headerBaseLen]
		h.HasIncrement = true
	}
	if h.Length < h.Size() {
		return Header{}, fmt.Errorf("message length %d shorter than %d byte header", h.Length, h.Size())
	}
	return h, nil
}

// Encode serializes the header. Length must already hold the total
// message length.
func (h Header) Encode() []byte {
	buf := make([]byte, 0, h.Size())
	buf = append(buf, prefixByte0, prefixByte1)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(h.Length))
	buf = append(buf, h.Pattern[:]...)
	buf = append(buf, h.MsgType[:]...)
	if h.HasIncrement {
		buf = append(buf, h.Increment)
	}
	return buf
}

// NewCommandHeader builds a header for an outgoing command frame. The
// length is filled in once the fields are known.
func NewCommandHeader(msgType [2]byte, increment byte) Header {
	return Header{
		Pattern:      patternSend,
		MsgType:      msgType,
		Increment:    increment,
		HasIncrement: true,
	}
}
