package hexdata

import (
	"fmt"

	"github.com/thomluther/anker-solix-api/internal/catalog"
)

// Field is one raw TLV entry of a message body: a one byte name, a one
// byte length, and for multi byte fields a type byte before the value.
// Single byte fields carry the value directly with no type byte.
type Field struct {
	Key     byte
	Type    catalog.FieldType
	HasType bool
	Value   []byte
}

// wireLen returns the length byte value: type byte plus value bytes.
func (f Field) wireLen() int {
	if f.HasType {
		return len(f.Value) + 1
	}
	return len(f.Value)
}

// Size returns the bytes the field occupies on the wire including the
// name and length bytes.
func (f Field) Size() int {
	return f.wireLen() + 2
}

// KeyHex returns the field name byte as lower case hex, the form the
// catalog keys field specs by.
func (f Field) KeyHex() string {
	return fmt.Sprintf("%02x", f.Key)
}

// Encode serializes the field.
func (f Field) Encode() []byte {
	buf := make([]byte, 0, f.Size())
	buf = append(buf, f.Key, byte(f.wireLen()))
	if f.HasType {
		buf = append(buf, byte(f.Type))
	}
	buf = append(buf, f.Value...)
	return buf
}

// NewField builds a typed multi byte field.
func NewField(key byte, typ catalog.FieldType, value []byte) Field {
	return Field{Key: key, Type: typ, HasType: true, Value: value}
}

// NewByteField builds a single byte field without a type byte.
func NewByteField(key, value byte) Field {
	return Field{Key: key, Value: []byte{value}}
}

// parseField decodes one field from the start of data. It returns the
// field and the bytes consumed.
func parseField(data []byte) (Field, int, error) {
	if len(data) < 2 {
		return Field{}, 0, fmt.Errorf("field truncated: %d bytes left", len(data))
	}
	key := data[0]
	length := int(data[1])
	if len(data) < length+2 {
		return Field{}, 0, fmt.Errorf("field %02x truncated: length %d, %d bytes left", key, length, len(data)-2)
	}
	f := Field{Key: key}
	body := data[2 : length+2]
	if length > 1 {
		f.Type = catalog.FieldType(body[0])
		f.HasType = true
		f.Value = append([]byte(nil), body[1:]...)
	} else {
		f.Value = append([]byte(nil), body...)
	}
	return f, length + 2, nil
}
