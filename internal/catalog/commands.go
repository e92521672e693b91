package catalog

// Command layouts. Every command shares the request pattern byte in a1
// and the message timestamp in fe; both are filled by the composer.
// Command names follow the per model control identifiers, parameter
// names follow the field names the devices expect.

const cmdTopic = "req"

func cmdCommon() []CommandFieldSpec {
	return []CommandFieldSpec{
		{Key: 0xa1, Name: "pattern_22", Auto: AutoPattern},
		{Key: 0xfe, Name: "msg_timestamp", Type: FieldVar, Auto: AutoTimestamp},
	}
}

// withCommon splices the shared fields around the command specific
// ones: the pattern byte leads, the timestamp trails.
func withCommon(fields ...CommandFieldSpec) []CommandFieldSpec {
	common := cmdCommon()
	out := make([]CommandFieldSpec, 0, len(fields)+2)
	out = append(out, common[0])
	out = append(out, fields...)
	out = append(out, common[1])
	return out
}

var switchDomain = ValueDomain{Enum: []int64{0, 1}}

var onOffAliases = map[string]int64{"off": 0, "on": 1}

func registerCommands(r *Registry) {
	r.RegisterCommand(CommandSpec{
		Name:      "realtime_trigger",
		MsgType:   [2]byte{0x04, 0x41},
		Increment: 0x01,
		Topic:     cmdTopic,
		Fields: withCommon(
			CommandFieldSpec{
				Key: 0xa2, Name: "set_realtime_data", Type: FieldUI,
				Domain: switchDomain, Default: 1, HasDef: true,
				Aliases: onOffAliases,
			},
			CommandFieldSpec{
				Key: 0xa3, Name: "set_timeout", Type: FieldVar,
				Domain: ValueDomain{Min: 30, Max: 600, Ranged: true},
				Default: 300, HasDef: true,
			},
		),
	})

	r.RegisterCommand(CommandSpec{
		Name:      "temp_unit_control",
		MsgType:   [2]byte{0x04, 0x42},
		Increment: 0x01,
		Topic:     cmdTopic,
		Fields: withCommon(
			CommandFieldSpec{
				Key: 0xa2, Name: "set_temp_unit_fahrenheit", Type: FieldUI,
				Domain:  switchDomain,
				Aliases: map[string]int64{"celsius": 0, "fahrenheit": 1},
			},
		),
		Binding: StateBinding{MsgType: "0412", Field: "temp_unit_fahrenheit"},
	})

	r.RegisterCommand(CommandSpec{
		Name:      "device_max_load",
		MsgType:   [2]byte{0x04, 0x43},
		Increment: 0x01,
		Topic:     cmdTopic,
		Fields: withCommon(
			CommandFieldSpec{
				Key: 0xa2, Name: "set_device_max_load", Type: FieldSile,
				Domain: ValueDomain{Min: 100, Max: 1600, Ranged: true},
			},
		),
		Binding: StateBinding{MsgType: "0412", Field: "max_load"},
	})

	r.RegisterCommand(CommandSpec{
		Name:      "device_timeout_min",
		MsgType:   [2]byte{0x04, 0x44},
		Increment: 0x01,
		Topic:     cmdTopic,
		Fields: withCommon(
			CommandFieldSpec{
				Key: 0xa2, Name: "set_device_timeout_min", Type: FieldSile,
				Domain: ValueDomain{Min: 0, Max: 1440, Ranged: true},
			},
		),
		Binding: StateBinding{MsgType: "0412", Field: "device_timeout_minutes"},
	})

	r.RegisterCommand(CommandSpec{
		Name:      "ac_charge_limit",
		MsgType:   [2]byte{0x04, 0x46},
		Increment: 0x01,
		Topic:     cmdTopic,
		Fields: withCommon(
			CommandFieldSpec{
				Key: 0xe5, Name: "set_ac_charge_limit", Type: FieldUI,
			},
		),
	})

	r.RegisterCommand(CommandSpec{
		Name:      "ac_output_control",
		MsgType:   [2]byte{0x04, 0x50},
		Increment: 0x01,
		Topic:     cmdTopic,
		Fields: withCommon(
			CommandFieldSpec{
				Key: 0xa2, Name: "set_ac_output_switch", Type: FieldUI,
				Domain: switchDomain, Aliases: onOffAliases,
			},
		),
		Binding: StateBinding{MsgType: "0412", Field: "switch_ac_output_power"},
	})

	r.RegisterCommand(CommandSpec{
		Name:      "backup_charge_control",
		MsgType:   [2]byte{0x04, 0x51},
		Increment: 0x01,
		Topic:     cmdTopic,
		Fields: withCommon(
			CommandFieldSpec{
				Key: 0xa2, Name: "set_ac_fast_charge_switch", Type: FieldUI,
				Domain: switchDomain, Aliases: onOffAliases,
			},
		),
		Binding: StateBinding{MsgType: "0412", Field: "switch_ac_fast_charge"},
	})

	r.RegisterCommand(CommandSpec{
		Name:      "ac_output_mode_select",
		MsgType:   [2]byte{0x04, 0x52},
		Increment: 0x01,
		Topic:     cmdTopic,
		Fields: withCommon(
			CommandFieldSpec{
				Key: 0xa2, Name: "set_ac_output_mode", Type: FieldUI,
				Domain:  ValueDomain{Enum: []int64{1, 2}},
				Aliases: map[string]int64{"normal": 1, "smart": 2},
			},
		),
		Binding: StateBinding{MsgType: "0412", Field: "ac_output_mode"},
	})

	r.RegisterCommand(CommandSpec{
		Name:      "dc_output_control",
		MsgType:   [2]byte{0x04, 0x53},
		Increment: 0x01,
		Topic:     cmdTopic,
		Fields: withCommon(
			CommandFieldSpec{
				Key: 0xa2, Name: "set_dc_output_switch", Type: FieldUI,
				Domain: switchDomain, Aliases: onOffAliases,
			},
		),
		Binding: StateBinding{MsgType: "0412", Field: "switch_12v_dc_output_power"},
	})

	r.RegisterCommand(CommandSpec{
		Name:      "dc_output_mode_select",
		MsgType:   [2]byte{0x04, 0x54},
		Increment: 0x01,
		Topic:     cmdTopic,
		Fields: withCommon(
			CommandFieldSpec{
				Key: 0xa2, Name: "set_12v_dc_output_mode", Type: FieldUI,
				Domain:  ValueDomain{Enum: []int64{1, 2}},
				Aliases: map[string]int64{"normal": 1, "smart": 2},
			},
		),
		Binding: StateBinding{MsgType: "0412", Field: "dc_output_mode"},
	})

	r.RegisterCommand(CommandSpec{
		Name:      "light_mode_select",
		MsgType:   [2]byte{0x04, 0x55},
		Increment: 0x01,
		Topic:     cmdTopic,
		Fields: withCommon(
			CommandFieldSpec{
				Key: 0xa2, Name: "set_light_mode", Type: FieldUI,
				Domain: ValueDomain{Enum: []int64{0, 1, 2, 3, 4}},
				Aliases: map[string]int64{
					"off": 0, "low": 1, "medium": 2, "high": 3, "blinking": 4,
				},
			},
		),
		Binding: StateBinding{MsgType: "0412", Field: "light_mode"},
	})

	r.RegisterCommand(CommandSpec{
		Name:      "display_control",
		MsgType:   [2]byte{0x04, 0x56},
		Increment: 0x01,
		Topic:     cmdTopic,
		Fields: withCommon(
			CommandFieldSpec{
				Key: 0xa2, Name: "set_display_switch", Type: FieldUI,
				Domain: switchDomain, Aliases: onOffAliases,
			},
		),
		Binding: StateBinding{MsgType: "0412", Field: "switch_display"},
	})

	r.RegisterCommand(CommandSpec{
		Name:      "display_mode_select",
		MsgType:   [2]byte{0x04, 0x57},
		Increment: 0x01,
		Topic:     cmdTopic,
		Fields: withCommon(
			CommandFieldSpec{
				Key: 0xa2, Name: "set_display_mode", Type: FieldUI,
				Domain: ValueDomain{Enum: []int64{0, 1, 2, 3}},
				Aliases: map[string]int64{
					"off": 0, "low": 1, "medium": 2, "high": 3,
				},
			},
		),
		Binding: StateBinding{MsgType: "0412", Field: "display_mode"},
	})

	r.RegisterCommand(CommandSpec{
		Name:      "port_memory_switch",
		MsgType:   [2]byte{0x04, 0x58},
		Increment: 0x01,
		Topic:     cmdTopic,
		Fields: withCommon(
			CommandFieldSpec{
				Key: 0xa2, Name: "set_port_memory_switch", Type: FieldUI,
				Domain: switchDomain, Aliases: onOffAliases,
			},
		),
		Binding: StateBinding{MsgType: "0412", Field: "switch_port_memory"},
	})

	r.RegisterCommand(CommandSpec{
		Name:      "sb_status_check",
		MsgType:   [2]byte{0x04, 0x60},
		Increment: 0x01,
		Topic:     cmdTopic,
		Fields: withCommon(
			CommandFieldSpec{Key: 0xa2, Name: "device_sn", Type: FieldStr, Length: 16},
			CommandFieldSpec{Key: 0xa3, Name: "charging_status", Type: FieldUI},
			CommandFieldSpec{Key: 0xa4, Name: "output_preset", Type: FieldVar},
			CommandFieldSpec{Key: 0xa5, Name: "status_timeout_sec", Type: FieldVar},
			CommandFieldSpec{Key: 0xa6, Name: "local_timestamp", Type: FieldVar, Auto: AutoTimestamp},
			CommandFieldSpec{Key: 0xa7, Name: "next_status_timestamp", Type: FieldVar},
		),
	})

	r.RegisterCommand(CommandSpec{
		Name:      "sb_power_cutoff",
		MsgType:   [2]byte{0x04, 0x61},
		Increment: 0x01,
		Topic:     cmdTopic,
		Fields: withCommon(
			CommandFieldSpec{
				Key: 0xa2, Name: "output_cutoff_data", Type: FieldUI,
				Domain: ValueDomain{Enum: []int64{5, 10}},
			},
			CommandFieldSpec{
				Key: 0xa3, Name: "lowpower_input_data", Type: FieldUI,
				Domain: ValueDomain{Enum: []int64{4, 5}},
			},
			CommandFieldSpec{
				Key: 0xa4, Name: "input_cutoff_data", Type: FieldUI,
				Domain: ValueDomain{Enum: []int64{5, 10}},
			},
		),
		Binding: StateBinding{MsgType: "0405", Field: "output_cutoff_data"},
	})

	r.RegisterCommand(CommandSpec{
		Name:      "sb_inverter_type",
		MsgType:   [2]byte{0x04, 0x62},
		Increment: 0x01,
		Topic:     cmdTopic,
		Fields: withCommon(
			CommandFieldSpec{
				Key: 0xa2, Name: "output_cutoff_data", Type: FieldUI,
				Domain: ValueDomain{Enum: []int64{5, 10}},
			},
			CommandFieldSpec{
				Key: 0xa3, Name: "lowpower_input_data", Type: FieldUI,
				Domain: ValueDomain{Enum: []int64{4, 5}},
			},
			CommandFieldSpec{
				Key: 0xa4, Name: "input_cutoff_data", Type: FieldUI,
				Domain: ValueDomain{Enum: []int64{5, 10}},
			},
			CommandFieldSpec{Key: 0xa5, Name: "inverter_brand", Type: FieldBin},
			CommandFieldSpec{Key: 0xa6, Name: "inverter_model", Type: FieldBin},
			CommandFieldSpec{
				Key: 0xa7, Name: "set_min_load", Type: FieldSile,
				Domain: ValueDomain{Min: 0, Max: 1600, Ranged: true},
			},
			CommandFieldSpec{
				Key: 0xa8, Name: "set_max_load", Type: FieldSile,
				Domain: ValueDomain{Min: 0, Max: 1600, Ranged: true},
			},
		),
		Binding: StateBinding{MsgType: "0405", Field: "inverter_model"},
	})
}
