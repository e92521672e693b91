package hexdata

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/thomluther/anker-solix-api/internal/api"
	"github.com/thomluther/anker-solix-api/internal/catalog"
)

// The request pattern byte every command opens with.
const requestPattern = 0x22

// Command is a composed, ready to publish command message.
type Command struct {
	Name    string
	Topic   string
	Bytes   []byte
	MsgType [2]byte
	// Binding names the state field that reflects the command taking
	// effect, for callers that wait for confirmation.
	Binding catalog.StateBinding
}

// Composer builds command messages from the catalog layouts. Every
// parameter is validated against its declared domain before a single
// byte is produced.
type Composer struct {
	reg *catalog.Registry
	now func() time.Time
}

// NewComposer returns a composer over the given catalog.
func NewComposer(reg *catalog.Registry) *Composer {
	return &Composer{reg: reg, now: time.Now}
}

// Compose builds the command named by name from params. Params are
// keyed by the parameter names of the command layout. String aliases
// such as "high" or "off" resolve through the layout's alias table.
// Unknown commands, unknown parameters and out of domain values all
// fail with an invalid parameter error; nothing is composed partially.
func (c *Composer) Compose(name string, params map[string]any) (*Command, error) {
	spec, ok := c.reg.Command(name)
	if !ok {
		return nil, api.NewInvalidParameterError("command", name)
	}

	// Auto-filled fields (pattern, timestamp) are not settable; a caller
	// naming one would otherwise see its value silently replaced.
	known := make(map[string]bool, len(spec.Fields))
	for _, fs := range spec.Fields {
		if fs.Auto == catalog.AutoNone {
			known[fs.Name] = true
		}
	}
	for p := range params {
		if !known[p] {
			return nil, api.NewInvalidParameterError(p, params[p])
		}
	}

	fields := make([]Field, 0, len(spec.Fields))
	for _, fs := range spec.Fields {
		f, err := c.composeField(fs, params)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}

	header := NewCommandHeader(spec.MsgType, spec.Increment)
	total := header.Size()
	for _, f := range fields {
		total += f.Size()
	}
	header.Length = total

	buf := make([]byte, 0, total)
	buf = append(buf, header.Encode()...)
	for _, f := range fields {
		buf = append(buf, f.Encode()...)
	}

	return &Command{
		Name:    spec.Name,
		Topic:   spec.Topic,
		Bytes:   buf,
		MsgType: spec.MsgType,
		Binding: spec.Binding,
	}, nil
}

func (c *Composer) composeField(fs catalog.CommandFieldSpec, params map[string]any) (Field, error) {
	switch fs.Auto {
	case catalog.AutoPattern:
		return NewByteField(fs.Key, requestPattern), nil
	case catalog.AutoTimestamp:
		ts := make([]byte, 4)
		binary.LittleEndian.PutUint32(ts, uint32(c.now().Unix()))
		return NewField(fs.Key, catalog.FieldVar, ts), nil
	}

	raw, supplied := params[fs.Name]
	if !supplied {
		if !fs.HasDef {
			return Field{}, api.NewInvalidParameterError(fs.Name, nil)
		}
		raw = fs.Default
	}

	switch fs.Type {
	case catalog.FieldStr:
		s, ok := raw.(string)
		if !ok || (fs.Length > 0 && len(s) != fs.Length) {
			return Field{}, api.NewInvalidParameterError(fs.Name, raw)
		}
		return NewField(fs.Key, catalog.FieldStr, []byte(s)), nil
	case catalog.FieldBin:
		b, err := binParam(raw)
		if err != nil {
			return Field{}, api.NewInvalidParameterError(fs.Name, raw)
		}
		return NewField(fs.Key, catalog.FieldBin, b), nil
	}

	v, err := intParam(raw, fs.Aliases)
	if err != nil {
		return Field{}, api.NewInvalidParameterError(fs.Name, raw)
	}
	if !fs.Domain.Allows(v) {
		return Field{}, api.NewInvalidParameterError(fs.Name, raw)
	}

	switch fs.Type {
	case catalog.FieldUI:
		if v < 0 || v > 0xff {
			return Field{}, api.NewInvalidParameterError(fs.Name, raw)
		}
		return NewField(fs.Key, catalog.FieldUI, []byte{byte(v)}), nil
	case catalog.FieldSile:
		if v < -0x8000 || v > 0x7fff {
			return Field{}, api.NewInvalidParameterError(fs.Name, raw)
		}
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(int16(v)))
		return NewField(fs.Key, catalog.FieldSile, buf), nil
	case catalog.FieldVar:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(int32(v)))
		return NewField(fs.Key, catalog.FieldVar, buf), nil
	default:
		return Field{}, api.NewInvalidParameterError(fs.Name, raw)
	}
}

// intParam coerces a parameter to its integer value, resolving string
// aliases and numeric strings.
func intParam(raw any, aliases map[string]int64) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case float64:
		n := int64(v)
		if float64(n) != v {
			return 0, fmt.Errorf("not an integer: %v", v)
		}
		return n, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		if n, ok := aliases[strings.ToLower(v)]; ok {
			return n, nil
		}
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported parameter type %T", raw)
	}
}

// binParam accepts raw bytes or a hex string for free form fields.
func binParam(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case []byte:
		return v, nil
	case string:
		return hex.DecodeString(v)
	default:
		return nil, fmt.Errorf("unsupported parameter type %T", raw)
	}
}
