package catalog

import (
	"fmt"
	"sync"
)

// FieldType identifies the wire encoding of a hex message field. The
// value is the type byte carried on the wire for fields longer than one
// byte.
type FieldType byte

const (
	FieldStr     FieldType = 0x00 // ASCII string
	FieldUI      FieldType = 0x01 // unsigned integer, one byte
	FieldSile    FieldType = 0x02 // signed 16 bit little endian
	FieldVar     FieldType = 0x03 // 4 byte variable integer
	FieldBin     FieldType = 0x04 // binary blob with optional bit masks
	FieldSfle    FieldType = 0x05 // 32 bit float little endian
	FieldStrb    FieldType = 0x06 // structured bytes with sub fields
	FieldUnknown FieldType = 0xff
)

func (t FieldType) String() string {
	switch t {
	case FieldStr:
		return "str"
	case FieldUI:
		return "ui"
	case FieldSile:
		return "sile"
	case FieldVar:
		return "var"
	case FieldBin:
		return "bin"
	case FieldSfle:
		return "sfle"
	case FieldStrb:
		return "strb"
	default:
		return fmt.Sprintf("unknown(%#02x)", byte(t))
	}
}

// BitSpec names a single flag inside a bin field byte.
type BitSpec struct {
	Name string
	Mask byte
}

// SubfieldSpec describes one sub value inside a strb field. Length 0
// means the first byte at Offset holds the byte count of the value.
type SubfieldSpec struct {
	Offset int
	Name   string
	Length int
	Type   FieldType
}

// FieldSpec gives a message field its name and value interpretation.
type FieldSpec struct {
	Name string
	Type FieldType

	// Divisor scales raw integer readings into fixed point decimals,
	// e.g. 10 reports tenths. Zero or one leaves the value unscaled.
	Divisor int64
	// Multiplier scales raw integer readings up, e.g. a timeout
	// reported in 30 minute steps. Zero or one leaves it unscaled.
	Multiplier int64

	// Values splits a var field into that many per byte integers
	// instead of one little endian value (used for version tuples).
	Values int

	// Bits maps a byte offset inside a bin field to named flags.
	Bits map[int][]BitSpec
	// ByteFields maps a byte offset inside a bin field to a typed
	// sub value rather than flag masks.
	ByteFields map[int]SubfieldSpec

	// Subfields lays out a strb field.
	Subfields []SubfieldSpec
}

// MessageSpec describes one device message type: which cache topic its
// values belong to and the layout of its fields keyed by the field name
// byte in lower case hex.
type MessageSpec struct {
	Topic  string
	Fields map[string]FieldSpec
}

// Message topics. Param info carries live readings, state info carries
// settings and slower status.
const (
	TopicParamInfo = "param_info"
	TopicStateInfo = "state_info"
)

// ValueDomain restricts the values a command parameter accepts. A zero
// domain accepts anything that fits the field encoding.
type ValueDomain struct {
	Enum     []int64
	Min, Max int64
	Ranged   bool
}

// Allows reports whether v is inside the domain.
func (d ValueDomain) Allows(v int64) bool {
	if len(d.Enum) > 0 {
		for _, e := range d.Enum {
			if e == v {
				return true
			}
		}
		return false
	}
	if d.Ranged {
		return v >= d.Min && v <= d.Max
	}
	return true
}

// AutoKind marks a command field the composer fills in itself.
type AutoKind int

const (
	AutoNone      AutoKind = iota
	AutoPattern            // fixed request pattern byte
	AutoTimestamp          // current unix time
)

// CommandFieldSpec is one field of a command layout, in wire order.
type CommandFieldSpec struct {
	Key     byte
	Name    string
	Type    FieldType
	Auto    AutoKind
	Length  int // required byte length for str fields
	Default int64
	HasDef  bool
	Domain  ValueDomain
	Aliases map[string]int64
}

// StateBinding names the device state field that reflects a command
// taking effect, so callers can watch for confirmation.
type StateBinding struct {
	MsgType string
	Field   string
}

// CommandSpec is the full layout of one settable command.
type CommandSpec struct {
	Name      string
	MsgType   [2]byte
	Increment byte
	Topic     string
	Fields    []CommandFieldSpec
	Binding   StateBinding
}

// Registry holds message layouts keyed by (model, message type) and
// command layouts keyed by name. It carries data only; all encode and
// decode logic lives with the codec.
type Registry struct {
	mu       sync.RWMutex
	messages map[string]map[string]MessageSpec
	commands map[string]CommandSpec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		messages: make(map[string]map[string]MessageSpec),
		commands: make(map[string]CommandSpec),
	}
}

// Default returns a registry loaded with the built in message and
// command catalogs.
func Default() *Registry {
	r := NewRegistry()
	registerMessages(r)
	registerCommands(r)
	return r
}

// RegisterMessage adds or replaces the layout for one message type of a
// device model. MsgType is the two byte message type in lower case hex.
func (r *Registry) RegisterMessage(model, msgType string, spec MessageSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byType, ok := r.messages[model]
	if !ok {
		byType = make(map[string]MessageSpec)
		r.messages[model] = byType
	}
	byType[msgType] = spec
}

// Message looks up the layout for a model and message type.
func (r *Registry) Message(model, msgType string) (MessageSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byType, ok := r.messages[model]
	if !ok {
		return MessageSpec{}, false
	}
	spec, ok := byType[msgType]
	return spec, ok
}

// Models returns all models with registered message layouts.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	models := make([]string, 0, len(r.messages))
	for m := range r.messages {
		models = append(models, m)
	}
	return models
}

// RegisterCommand adds or replaces a command layout.
func (r *Registry) RegisterCommand(spec CommandSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[spec.Name] = spec
}

// Command looks up a command layout by name.
func (r *Registry) Command(name string) (CommandSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.commands[name]
	return spec, ok
}

// Commands returns all registered command names.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for n := range r.commands {
		names = append(names, n)
	}
	return names
}
