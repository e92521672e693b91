package hexdata

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"math/bits"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/thomluther/anker-solix-api/internal/catalog"
)

// Result is one decoded message. When no layout is known for the
// model and message type the result is degraded: the frame and raw
// fields are still available but no named values are extracted.
type Result struct {
	Model    string
	Header   Header
	Topic    string
	Degraded bool
	Fields   map[string]Value
	Raw      []Field
	// Trailer holds any bytes after the last parseable field. They
	// are preserved so re-encoding reproduces the input exactly.
	Trailer []byte
}

// Encode reassembles the exact wire bytes of the decoded message.
func (r *Result) Encode() []byte {
	buf := make([]byte, 0, r.Header.Length)
	buf = append(buf, r.Header.Encode()...)
	for _, f := range r.Raw {
		buf = append(buf, f.Encode()...)
	}
	return append(buf, r.Trailer...)
}

// Decoder turns raw device messages into named values using the
// catalog layouts.
type Decoder struct {
	reg    *catalog.Registry
	logger *zap.Logger
}

// NewDecoder returns a decoder over the given catalog. A nil logger
// disables logging.
func NewDecoder(reg *catalog.Registry, logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{reg: reg, logger: logger}
}

// ParsePayload accepts a message in hex or base64 text form and
// returns the raw bytes. Hex may contain spaces or colons between
// bytes. All forms of the same message decode identically.
func ParsePayload(s string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ':', '\n', '\t':
			return -1
		}
		return r
	}, s)
	if raw, err := hex.DecodeString(cleaned); err == nil && len(raw) > 0 {
		return raw, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("payload is neither hex nor base64: %w", err)
	}
	return raw, nil
}

// Decode parses a message for the given model. Malformed frames fail;
// an unknown message type does not, it yields a degraded result with
// the frame and raw fields only.
func (d *Decoder) Decode(model string, data []byte) (*Result, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	res := &Result{Model: model, Header: header}

	body := data[:header.Length]
	idx := header.Size()
	for idx+2 <= len(body) {
		f, n, err := parseField(body[idx:])
		if err != nil {
			// Keep what parsed; the rest rides along unchanged.
			break
		}
		res.Raw = append(res.Raw, f)
		idx += n
	}
	res.Trailer = append([]byte(nil), body[idx:]...)

	spec, ok := d.reg.Message(model, header.MsgTypeHex())
	if !ok {
		res.Degraded = true
		d.logger.Debug("no layout for message",
			zap.String("model", model),
			zap.String("msg_type", header.MsgTypeHex()),
			zap.Int("fields", len(res.Raw)))
		return res, nil
	}

	res.Topic = spec.Topic
	res.Fields = make(map[string]Value)
	for _, f := range res.Raw {
		fs, ok := spec.Fields[f.KeyHex()]
		if !ok {
			continue
		}
		convertField(f, fs, res.Fields)
	}
	return res, nil
}

// convertField extracts the named values of one field into out. Bin
// and strb fields can yield several named values.
func convertField(f Field, spec catalog.FieldSpec, out map[string]Value) {
	typ := catalog.FieldUI
	if f.HasType {
		typ = f.Type
	} else if spec.Type != 0 {
		typ = spec.Type
	}

	switch typ {
	case catalog.FieldStr:
		out[spec.Name] = StringValue(strings.TrimRight(string(f.Value), "\x00"))
	case catalog.FieldUI:
		out[spec.Name] = scaled(intLE(f.Value), spec)
	case catalog.FieldSile:
		out[spec.Name] = scaled(sileValue(f.Value), spec)
	case catalog.FieldVar:
		if spec.Values > 0 {
			vals := make([]int64, 0, spec.Values)
			for i := 0; i < spec.Values && i < len(f.Value); i++ {
				vals = append(vals, int64(f.Value[i]))
			}
			out[spec.Name] = IntsValue(vals)
			return
		}
		out[spec.Name] = scaled(varValue(f.Value), spec)
	case catalog.FieldSfle:
		if len(f.Value) == 4 {
			bitsVal := binary.LittleEndian.Uint32(f.Value)
			out[spec.Name] = FloatValue(float64(math.Float32frombits(bitsVal)))
			return
		}
		out[spec.Name] = BytesValue(f.Value)
	case catalog.FieldBin:
		convertBin(f, spec, out)
	case catalog.FieldStrb:
		convertStrb(f, spec, out)
	default:
		out[spec.Name] = BytesValue(f.Value)
	}
}

// convertBin extracts named flags and embedded byte values from a bit
// mask field. Without a layout the raw bytes are kept under the field
// name.
func convertBin(f Field, spec catalog.FieldSpec, out map[string]Value) {
	if len(spec.Bits) == 0 && len(spec.ByteFields) == 0 {
		out[spec.Name] = BytesValue(f.Value)
		return
	}
	for off, flags := range spec.Bits {
		if off >= len(f.Value) {
			continue
		}
		b := f.Value[off]
		for _, flag := range flags {
			shift := bits.TrailingZeros8(flag.Mask)
			out[flag.Name] = IntValue(int64((b & flag.Mask) >> shift))
		}
	}
	for off, sub := range spec.ByteFields {
		if off >= len(f.Value) {
			continue
		}
		out[sub.Name] = IntValue(int64(f.Value[off]))
	}
}

// convertStrb walks the sub field layout of a structured bytes field.
// A sub field length of zero means its first byte holds the value
// length.
func convertStrb(f Field, spec catalog.FieldSpec, out map[string]Value) {
	subs := append([]catalog.SubfieldSpec(nil), spec.Subfields...)
	sort.Slice(subs, func(i, j int) bool { return subs[i].Offset < subs[j].Offset })

	values := make(map[string]Value, len(subs))
	for _, sub := range subs {
		off := sub.Offset
		if off >= len(f.Value) {
			continue
		}
		length := sub.Length
		if length == 0 {
			// Length prefixed value: first byte holds the count.
			length = int(f.Value[off])
			off++
			if length == 0 {
				continue
			}
		}
		end := off + length
		if end > len(f.Value) {
			end = len(f.Value)
		}
		chunk := f.Value[off:end]
		switch sub.Type {
		case catalog.FieldStr:
			values[sub.Name] = StringValue(strings.TrimRight(string(chunk), "\x00"))
		default:
			values[sub.Name] = IntValue(intLE(chunk))
		}
	}
	if spec.Name != "" {
		out[spec.Name] = MapValue(values)
	}
	for k, v := range values {
		out[k] = v
	}
}

// scaled applies the divisor or multiplier a field spec declares.
func scaled(raw int64, spec catalog.FieldSpec) Value {
	if spec.Divisor > 1 {
		return DecimalValue(Decimal{Raw: raw, Divisor: spec.Divisor})
	}
	if spec.Multiplier > 1 {
		return IntValue(raw * spec.Multiplier)
	}
	return IntValue(raw)
}

// intLE reads value bytes as an unsigned little endian integer.
func intLE(b []byte) int64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return int64(v)
}

// sileValue reads a signed 16 bit little endian value.
func sileValue(b []byte) int64 {
	if len(b) == 2 {
		return int64(int16(binary.LittleEndian.Uint16(b)))
	}
	return intLE(b)
}

// varValue reads the default 4 byte variable integer as signed.
func varValue(b []byte) int64 {
	if len(b) == 4 {
		return int64(int32(binary.LittleEndian.Uint32(b)))
	}
	return intLE(b)
}
