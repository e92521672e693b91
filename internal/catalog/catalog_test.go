package catalog

import "testing"

func TestDefaultRegistryLookups(t *testing.T) {
	r := Default()

	tests := []struct {
		model   string
		msgType string
		topic   string
	}{
		{"A17C0", "0405", TopicParamInfo},
		{"A17C0", "0407", TopicStateInfo},
		{"A17C1", "0405", TopicParamInfo},
		{"A17C1", "040a", TopicParamInfo},
		{"A17C5", "0420", TopicStateInfo},
		{"A1761", "0405", TopicParamInfo},
		{"A1761", "0412", TopicStateInfo},
	}
	for _, tt := range tests {
		spec, ok := r.Message(tt.model, tt.msgType)
		if !ok {
			t.Errorf("no layout for %s/%s", tt.model, tt.msgType)
			continue
		}
		if spec.Topic != tt.topic {
			t.Errorf("%s/%s topic = %q, want %q", tt.model, tt.msgType, spec.Topic, tt.topic)
		}
		if len(spec.Fields) == 0 {
			t.Errorf("%s/%s has no fields", tt.model, tt.msgType)
		}
	}

	// The two 0830 firmware layouts order their string fields differently.
	charger, ok := r.Message("A1728", "0830")
	if !ok {
		t.Fatal("no layout for A1728/0830")
	}
	if charger.Fields["a1"].Name != "sw_version" || charger.Fields["a2"].Name != "sw_esp" {
		t.Errorf("A1728/0830 fields = a1:%q a2:%q", charger.Fields["a1"].Name, charger.Fields["a2"].Name)
	}
	station, ok := r.Message("A1761", "0830")
	if !ok {
		t.Fatal("no layout for A1761/0830")
	}
	if station.Fields["a2"].Name != "sw_version" {
		t.Errorf("A1761/0830 a2 = %q", station.Fields["a2"].Name)
	}

	if _, ok := r.Message("A17C0", "9999"); ok {
		t.Error("lookup of unregistered message type succeeded")
	}
	if _, ok := r.Message("X0000", "0405"); ok {
		t.Error("lookup of unregistered model succeeded")
	}
}

func TestCommandLayouts(t *testing.T) {
	r := Default()

	for _, name := range r.Commands() {
		spec, ok := r.Command(name)
		if !ok {
			t.Fatalf("Command(%q) not found after listing", name)
		}
		if spec.Topic != cmdTopic {
			t.Errorf("%s topic = %q", name, spec.Topic)
		}
		if len(spec.Fields) < 3 {
			t.Errorf("%s has %d fields, want at least pattern, payload and timestamp", name, len(spec.Fields))
		}
		if first := spec.Fields[0]; first.Key != 0xa1 || first.Auto != AutoPattern {
			t.Errorf("%s does not open with the pattern field", name)
		}
		if last := spec.Fields[len(spec.Fields)-1]; last.Key != 0xfe || last.Auto != AutoTimestamp {
			t.Errorf("%s does not close with the timestamp field", name)
		}
	}

	dm, ok := r.Command("display_mode_select")
	if !ok {
		t.Fatal("display_mode_select not registered")
	}
	if dm.Binding.Field != "display_mode" {
		t.Errorf("display_mode_select binding = %q", dm.Binding.Field)
	}
	if got := dm.Fields[1].Aliases["high"]; got != 3 {
		t.Errorf("alias high = %d, want 3", got)
	}
}

func TestValueDomain(t *testing.T) {
	tests := []struct {
		name   string
		domain ValueDomain
		value  int64
		want   bool
	}{
		{"enum hit", ValueDomain{Enum: []int64{0, 1}}, 1, true},
		{"enum miss", ValueDomain{Enum: []int64{0, 1}}, 2, false},
		{"range low edge", ValueDomain{Min: 30, Max: 600, Ranged: true}, 30, true},
		{"range high edge", ValueDomain{Min: 30, Max: 600, Ranged: true}, 600, true},
		{"range below", ValueDomain{Min: 30, Max: 600, Ranged: true}, 29, false},
		{"range above", ValueDomain{Min: 30, Max: 600, Ranged: true}, 601, false},
		{"unconstrained", ValueDomain{}, 424242, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.domain.Allows(tt.value); got != tt.want {
				t.Errorf("Allows(%d) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestRegisterOverrides(t *testing.T) {
	r := NewRegistry()
	r.RegisterMessage("M1", "0405", MessageSpec{Topic: TopicParamInfo})
	r.RegisterMessage("M1", "0405", MessageSpec{Topic: TopicStateInfo})

	spec, ok := r.Message("M1", "0405")
	if !ok {
		t.Fatal("message not found")
	}
	if spec.Topic != TopicStateInfo {
		t.Errorf("override not applied, topic = %q", spec.Topic)
	}
}
