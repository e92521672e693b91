package hexdata

import (
	"bytes"
	"testing"
	"time"

	"github.com/thomluther/anker-solix-api/internal/api"
	"github.com/thomluther/anker-solix-api/internal/catalog"
)

func testComposer() *Composer {
	c := NewComposer(catalog.Default())
	c.now = func() time.Time { return time.Unix(0x12345678, 0) }
	return c
}

func TestComposeDisplayMode(t *testing.T) {
	c := testComposer()

	cmd, err := c.Compose("display_mode_select", map[string]any{"set_display_mode": "high"})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if cmd.Topic != "req" {
		t.Errorf("topic = %q", cmd.Topic)
	}
	if cmd.Binding.Field != "display_mode" {
		t.Errorf("binding field = %q, want display_mode", cmd.Binding.Field)
	}

	want := []byte{
		0xff, 0x09, 0x18, 0x00, // prefix, total length 24
		0x03, 0x00, 0x0f, // send pattern
		0x04, 0x57, 0x01, // message type, increment
		0xa1, 0x01, 0x22, // request pattern
		0xa2, 0x02, 0x01, 0x03, // display mode high
		0xfe, 0x05, 0x03, 0x78, 0x56, 0x34, 0x12, // timestamp
	}
	if !bytes.Equal(cmd.Bytes, want) {
		t.Errorf("bytes:\n got %x\nwant %x", cmd.Bytes, want)
	}
}

func TestComposeAliasesAndNumbers(t *testing.T) {
	c := testComposer()

	byAlias, err := c.Compose("display_mode_select", map[string]any{"set_display_mode": "high"})
	if err != nil {
		t.Fatalf("alias: %v", err)
	}
	byNumber, err := c.Compose("display_mode_select", map[string]any{"set_display_mode": 3})
	if err != nil {
		t.Fatalf("number: %v", err)
	}
	if !bytes.Equal(byAlias.Bytes, byNumber.Bytes) {
		t.Error("alias and numeric value composed differently")
	}
}

func TestComposeDefaults(t *testing.T) {
	c := testComposer()

	// Realtime trigger defaults to enabled with a 300 second timeout.
	cmd, err := c.Compose("realtime_trigger", nil)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	res, err := NewDecoder(catalog.Default(), nil).Decode("A17C1", cmd.Bytes)
	if err != nil {
		t.Fatalf("decode composed command: %v", err)
	}
	byKey := make(map[byte]Field)
	for _, f := range res.Raw {
		byKey[f.Key] = f
	}
	if got := byKey[0xa2].Value; len(got) != 1 || got[0] != 1 {
		t.Errorf("set_realtime_data bytes = %x, want 01", got)
	}
	if got := intLE(byKey[0xa3].Value); got != 300 {
		t.Errorf("set_timeout = %d, want 300", got)
	}
}

func TestComposeRoundTrip(t *testing.T) {
	c := testComposer()

	cmd, err := c.Compose("sb_power_cutoff", map[string]any{
		"output_cutoff_data":  10,
		"lowpower_input_data": 5,
		"input_cutoff_data":   10,
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	res, err := NewDecoder(catalog.Default(), nil).Decode("A17C0", cmd.Bytes)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !res.Header.IsCommand() {
		t.Error("composed frame not marked as command")
	}
	if got := res.Encode(); !bytes.Equal(got, cmd.Bytes) {
		t.Errorf("round trip:\n got %x\nwant %x", got, cmd.Bytes)
	}
}

func TestComposeValidation(t *testing.T) {
	c := testComposer()

	tests := []struct {
		name    string
		command string
		params  map[string]any
	}{
		{"unknown command", "warp_drive", nil},
		{"unknown parameter", "display_mode_select", map[string]any{"set_brightness": 1}},
		{"auto timestamp not settable", "display_mode_select", map[string]any{
			"set_display_mode": 3,
			"msg_timestamp":    5,
		}},
		{"auto pattern not settable", "display_mode_select", map[string]any{
			"set_display_mode": 3,
			"pattern_22":       0x23,
		}},
		{"per-command auto field not settable", "sb_status_check", map[string]any{
			"device_sn":             "0123456789ABCDEF",
			"charging_status":       1,
			"output_preset":         100,
			"status_timeout_sec":    60,
			"next_status_timestamp": 0,
			"local_timestamp":       5,
		}},
		{"missing required", "temp_unit_control", nil},
		{"out of enum", "display_mode_select", map[string]any{"set_display_mode": 5}},
		{"unknown alias", "display_mode_select", map[string]any{"set_display_mode": "max"}},
		{"below range", "realtime_trigger", map[string]any{"set_timeout": 10}},
		{"above range", "realtime_trigger", map[string]any{"set_timeout": 601}},
		{"bad cutoff", "sb_power_cutoff", map[string]any{
			"output_cutoff_data":  7,
			"lowpower_input_data": 5,
			"input_cutoff_data":   10,
		}},
		{"serial wrong length", "sb_status_check", map[string]any{
			"device_sn":             "SHORT",
			"charging_status":       1,
			"output_preset":         100,
			"status_timeout_sec":    60,
			"next_status_timestamp": 0,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Compose(tt.command, tt.params)
			if err == nil {
				t.Fatal("expected error")
			}
			if !api.IsInvalidParameterError(err) {
				t.Errorf("error type = %T (%v), want invalid parameter", err, err)
			}
		})
	}
}

func TestComposeTimeoutBounds(t *testing.T) {
	c := testComposer()
	for _, v := range []int{30, 300, 600} {
		if _, err := c.Compose("realtime_trigger", map[string]any{"set_timeout": v}); err != nil {
			t.Errorf("timeout %d rejected: %v", v, err)
		}
	}
}
