package hexdata

import (
	"bytes"
	"testing"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    Header
		wantErr bool
	}{
		{
			name: "receive frame with increment",
			data: []byte{0xff, 0x09, 0x0c, 0x00, 0x03, 0x01, 0x0f, 0x04, 0x05, 0x07, 0xa2, 0x00},
			want: Header{
				Length:       12,
				Pattern:      [3]byte{0x03, 0x01, 0x0f},
				MsgType:      [2]byte{0x04, 0x05},
				Increment:    0x07,
				HasIncrement: true,
			},
		},
		{
			name: "frame without increment",
			data: []byte{0xff, 0x09, 0x0c, 0x00, 0x03, 0x01, 0x0f, 0x04, 0x08, 0xa1, 0x01, 0x22},
			want: Header{
				Length:  12,
				Pattern: [3]byte{0x03, 0x01, 0x0f},
				MsgType: [2]byte{0x04, 0x08},
			},
		},
		{
			name:    "bad prefix",
			data:    []byte{0xfe, 0x09, 0x0a, 0x00, 0x03, 0x01, 0x0f, 0x04, 0x05, 0x07},
			wantErr: true,
		},
		{
			name:    "too short",
			data:    []byte{0xff, 0x09, 0x0a},
			wantErr: true,
		},
		{
			name:    "length beyond data",
			data:    []byte{0xff, 0x09, 0xff, 0x00, 0x03, 0x01, 0x0f, 0x04, 0x05, 0x07},
			wantErr: true,
		},
		{
			name:    "length shorter than header",
			data:    []byte{0xff, 0x09, 0x05, 0x00, 0x03, 0x01, 0x0f, 0x04, 0x05},
			wantErr: true,
		},
		{
			name:    "length excludes increment byte",
			data:    []byte{0xff, 0x09, 0x09, 0x00, 0x03, 0x01, 0x0f, 0x04, 0x05, 0x07, 0xa2, 0x00},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHeader(tt.data)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHeaderEncodeRoundTrip(t *testing.T) {
	h := NewCommandHeader([2]byte{0x04, 0x57}, 0x01)
	h.Length = 24

	encoded := h.Encode()
	if len(encoded) != h.Size() {
		t.Fatalf("encoded %d bytes, want %d", len(encoded), h.Size())
	}
	if !bytes.Equal(encoded[:2], []byte{0xff, 0x09}) {
		t.Errorf("prefix = %x", encoded[:2])
	}
	if !h.IsCommand() {
		t.Error("command header not marked as command")
	}

	// Reparse needs the full message length available.
	full := append(encoded, make([]byte, h.Length-len(encoded))...)
	got, err := ParseHeader(full)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if got != h {
		t.Errorf("round trip: got %+v, want %+v", got, h)
	}
}

func TestFieldEncodeParse(t *testing.T) {
	f := NewField(0xa2, 0x01, []byte{0x03})
	encoded := f.Encode()
	want := []byte{0xa2, 0x02, 0x01, 0x03}
	if !bytes.Equal(encoded, want) {
		t.Fatalf("encoded = %x, want %x", encoded, want)
	}

	parsed, n, err := parseField(encoded)
	if err != nil {
		t.Fatalf("parseField: %v", err)
	}
	if n != len(encoded) {
		t.Errorf("consumed %d bytes, want %d", n, len(encoded))
	}
	if parsed.Key != 0xa2 || !parsed.HasType || !bytes.Equal(parsed.Value, []byte{0x03}) {
		t.Errorf("parsed = %+v", parsed)
	}

	single := NewByteField(0xa3, 0x5a)
	if got := single.Encode(); !bytes.Equal(got, []byte{0xa3, 0x01, 0x5a}) {
		t.Errorf("single byte field = %x", got)
	}
}
