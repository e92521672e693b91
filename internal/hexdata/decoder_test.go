package hexdata

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/thomluther/anker-solix-api/internal/catalog"
)

// sampleParamMsg builds a solarbank 2 param message: serial, soc, a
// tenth scaled pv power reading and a timestamp.
func sampleParamMsg() []byte {
	var buf []byte
	fields := [][]byte{
		{0xa2, 0x07, 0x00, 'A', 'B', 'C', 'D', 'E', 'F'},
		{0xa3, 0x01, 0x5a},
		{0xab, 0x03, 0x02, 0xeb, 0x00},
		{0xfe, 0x05, 0x03, 0x78, 0x56, 0x34, 0x12},
	}
	body := 0
	for _, f := range fields {
		body += len(f)
	}
	header := []byte{0xff, 0x09, byte(10 + body), 0x00, 0x03, 0x01, 0x0f, 0x04, 0x05, 0x05}
	buf = append(buf, header...)
	for _, f := range fields {
		buf = append(buf, f...)
	}
	return buf
}

func TestDecodeKnownMessage(t *testing.T) {
	d := NewDecoder(catalog.Default(), nil)
	msg := sampleParamMsg()

	res, err := d.Decode("A17C1", msg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Degraded {
		t.Fatal("known message decoded as degraded")
	}
	if res.Topic != catalog.TopicParamInfo {
		t.Errorf("topic = %q, want %q", res.Topic, catalog.TopicParamInfo)
	}

	if got := res.Fields["device_sn"]; got.Str != "ABCDEF" {
		t.Errorf("device_sn = %q", got.Str)
	}
	if got := res.Fields["battery_soc"]; got.Int != 90 {
		t.Errorf("battery_soc = %d", got.Int)
	}
	pv := res.Fields["photovoltaic_power"]
	if pv.Kind != KindDecimal {
		t.Fatalf("photovoltaic_power kind = %v", pv.Kind)
	}
	if pv.Dec.Raw != 235 || pv.Dec.Divisor != 10 {
		t.Errorf("photovoltaic_power = %+v", pv.Dec)
	}
	if got := pv.Dec.String(); got != "23.5" {
		t.Errorf("photovoltaic_power string = %q", got)
	}
	if got := res.Fields["msg_timestamp"]; got.Int != 0x12345678 {
		t.Errorf("msg_timestamp = %#x", got.Int)
	}
}

func TestDecodeEncodeStable(t *testing.T) {
	d := NewDecoder(catalog.Default(), nil)
	msg := sampleParamMsg()

	// Repeated decode and encode passes must reproduce the wire bytes
	// exactly, with no drift in the scaled readings.
	current := msg
	for i := 0; i < 1000; i++ {
		res, err := d.Decode("A17C1", current)
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if got := res.Fields["photovoltaic_power"].Dec; got.Raw != 235 {
			t.Fatalf("iteration %d: raw drifted to %d", i, got.Raw)
		}
		current = res.Encode()
	}
	if !bytes.Equal(current, msg) {
		t.Errorf("bytes drifted:\n got %x\nwant %x", current, msg)
	}
}

func TestDecodeUnknownTypeDegrades(t *testing.T) {
	d := NewDecoder(catalog.Default(), nil)
	msg := sampleParamMsg()
	msg[7], msg[8] = 0x09, 0x99

	res, err := d.Decode("A17C1", msg)
	if err != nil {
		t.Fatalf("unknown message type must not error: %v", err)
	}
	if !res.Degraded {
		t.Fatal("expected degraded result")
	}
	if len(res.Fields) != 0 {
		t.Errorf("degraded result has named fields: %v", res.Fields)
	}
	if len(res.Raw) != 4 {
		t.Errorf("raw fields = %d, want 4", len(res.Raw))
	}
	if !bytes.Equal(res.Encode(), msg) {
		t.Error("degraded result does not re-encode to input")
	}
}

func TestDecodeUnknownModelDegrades(t *testing.T) {
	d := NewDecoder(catalog.Default(), nil)
	res, err := d.Decode("X9999", sampleParamMsg())
	if err != nil {
		t.Fatalf("unknown model must not error: %v", err)
	}
	if !res.Degraded {
		t.Fatal("expected degraded result")
	}
}

func TestDecodeMalformed(t *testing.T) {
	d := NewDecoder(catalog.Default(), nil)
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad prefix", []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}},
		{"truncated", []byte{0xff, 0x09, 0x20, 0x00, 0x03, 0x01, 0x0f, 0x04, 0x05}},
		// Declared length smaller than the header itself must error out,
		// not slice past the frame.
		{"length shorter than header", []byte{0xff, 0x09, 0x05, 0x00, 0x03, 0x01, 0x0f, 0x04, 0x05}},
		{"length inside increment header", []byte{0xff, 0x09, 0x09, 0x00, 0x03, 0x01, 0x0f, 0x04, 0x05, 0x07, 0xa2, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.Decode("A17C1", tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParsePayloadForms(t *testing.T) {
	msg := sampleParamMsg()
	forms := map[string]string{
		"hex":        hex.EncodeToString(msg),
		"spaced hex": spacedHex(msg),
		"base64":     base64.StdEncoding.EncodeToString(msg),
	}
	for name, form := range forms {
		t.Run(name, func(t *testing.T) {
			got, err := ParsePayload(form)
			if err != nil {
				t.Fatalf("ParsePayload: %v", err)
			}
			if !bytes.Equal(got, msg) {
				t.Errorf("payload bytes differ from original")
			}
		})
	}

	if _, err := ParsePayload("not-a-payload!"); err == nil {
		t.Error("expected error for junk input")
	}
}

func spacedHex(b []byte) string {
	s := hex.EncodeToString(b)
	var out []byte
	for i := 0; i < len(s); i += 2 {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, s[i], s[i+1])
	}
	return string(out)
}

func TestDecimalString(t *testing.T) {
	tests := []struct {
		name string
		dec  Decimal
		want string
	}{
		{"tenths", Decimal{Raw: 235, Divisor: 10}, "23.5"},
		{"hundredths", Decimal{Raw: 1201, Divisor: 100}, "12.01"},
		{"ten thousandths", Decimal{Raw: 12345, Divisor: 10000}, "1.2345"},
		{"leading zeros", Decimal{Raw: 1002, Divisor: 10000}, "0.1002"},
		{"negative", Decimal{Raw: -235, Divisor: 10}, "-23.5"},
		{"unscaled", Decimal{Raw: 42, Divisor: 1}, "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dec.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeBinAndStrbFields(t *testing.T) {
	reg := catalog.NewRegistry()
	reg.RegisterMessage("TEST1", "0405", catalog.MessageSpec{
		Topic: catalog.TopicStateInfo,
		Fields: map[string]catalog.FieldSpec{
			"b3": {
				Name: "parallel_1",
				Subfields: []catalog.SubfieldSpec{
					{Offset: 0, Name: "parallel_1_sn", Length: 0, Type: catalog.FieldStr},
				},
			},
			"fb": {
				Name: "grid_flags",
				Bits: map[int][]catalog.BitSpec{
					0: {{Name: "grid_export_disabled", Mask: 0x01}},
				},
			},
		},
	})
	d := NewDecoder(reg, nil)

	// strb: length prefixed serial; bin: flag byte with bit 0 set.
	fields := [][]byte{
		{0xb3, 0x05, 0x06, 0x03, 'S', 'N', '1'},
		{0xfb, 0x02, 0x04, 0x01},
	}
	var msg []byte
	body := 0
	for _, f := range fields {
		body += len(f)
	}
	msg = append(msg, 0xff, 0x09, byte(10+body), 0x00, 0x03, 0x01, 0x0f, 0x04, 0x05, 0x09)
	for _, f := range fields {
		msg = append(msg, f...)
	}

	res, err := d.Decode("TEST1", msg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := res.Fields["parallel_1_sn"]; got.Str != "SN1" {
		t.Errorf("parallel_1_sn = %q", got.Str)
	}
	if got := res.Fields["grid_export_disabled"]; got.Int != 1 {
		t.Errorf("grid_export_disabled = %d", got.Int)
	}
	if !bytes.Equal(res.Encode(), msg) {
		t.Error("re-encode differs from input")
	}
}
