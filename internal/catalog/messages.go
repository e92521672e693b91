package catalog

import "fmt"

// Message layouts per device model. Families share layouts where the
// firmware emits the same structure, so reusable maps are built once
// and registered for every model that carries them.

// networkState is the wifi status message shared by all solarbanks.
func networkState() MessageSpec {
	return MessageSpec{
		Topic: TopicStateInfo,
		Fields: map[string]FieldSpec{
			"a2": {Name: "device_sn"},
			"a3": {Name: "wifi_name"},
			"a4": {Name: "wifi_signal"},
		},
	}
}

func solarbank1Param() MessageSpec {
	return MessageSpec{
		Topic: TopicParamInfo,
		Fields: map[string]FieldSpec{
			"a2": {Name: "device_sn"},
			"a3": {Name: "battery_soc"},
			"a6": {Name: "sw_version", Values: 1},
			"a7": {Name: "sw_controller", Values: 1},
			"ab": {Name: "photovoltaic_power"},
			"ac": {Name: "output_power"},
			"ae": {
				Name: "settings",
				Bits: map[int][]BitSpec{
					12: {{Name: "allow_export_switch", Mask: 0x04}},
					15: {{Name: "priority_discharge_switch", Mask: 0x01}},
				},
				ByteFields: map[int]SubfieldSpec{
					14: {Name: "charge_priority_limit", Type: FieldUI},
				},
			},
			"b0": {Name: "charging_power"},
			"b1": {Name: "pv_yield", Divisor: 10000},
			"b2": {Name: "charged_energy", Divisor: 10000},
			"b3": {Name: "output_energy", Divisor: 10000},
			"b4": {Name: "output_cutoff_data"},
			"b5": {Name: "lowpower_input_data"},
			"b6": {Name: "input_cutoff_data"},
			"b7": {Name: "inverter_brand"},
			"b8": {Name: "inverter_model"},
			"b9": {Name: "min_load"},
			"fe": {Name: "msg_timestamp"},
		},
	}
}

func solarbank1State() MessageSpec {
	return MessageSpec{
		Topic: TopicStateInfo,
		Fields: map[string]FieldSpec{
			"a2": {Name: "device_sn"},
			"a3": {Name: "local_timestamp"},
			"a4": {Name: "utc_timestamp"},
			"a8": {Name: "charging_status"},
			"a9": {Name: "home_load_preset"},
			"aa": {Name: "photovoltaic_power"},
			"ab": {Name: "charging_power"},
			"ac": {Name: "output_power"},
			"b0": {Name: "battery_soc"},
			"b1": {Name: "pv_yield", Divisor: 10000},
			"b2": {Name: "charged_energy", Divisor: 10000},
			"b3": {Name: "output_energy", Divisor: 10000},
			"b4": {Name: "discharged_energy", Divisor: 10000},
			"b5": {Name: "bypass_energy", Divisor: 10000},
			"b6": {Name: "temperature"},
			"b7": {Name: "pv_1_voltage", Divisor: 100},
			"b8": {Name: "pv_2_voltage", Divisor: 100},
			"b9": {Name: "battery_voltage", Divisor: 100},
		},
	}
}

func solarbank2Param() MessageSpec {
	return MessageSpec{
		Topic: TopicParamInfo,
		Fields: map[string]FieldSpec{
			"a2": {Name: "device_sn"},
			"a3": {Name: "battery_soc"},
			"a6": {Name: "sw_version", Values: 4},
			"a7": {Name: "sw_controller", Values: 4},
			"a8": {Name: "sw_expansion", Values: 4},
			"aa": {Name: "temperature"},
			"ab": {Name: "photovoltaic_power", Divisor: 10},
			"ad": {Name: "battery_soc_total"},
			"b1": {Name: "pv_yield", Divisor: 10000},
			"b2": {Name: "charged_energy", Divisor: 100000},
			"b3": {Name: "home_consumption", Divisor: 10000},
			"b4": {Name: "output_cutoff_data"},
			"b5": {Name: "lowpower_input_data"},
			"b6": {Name: "input_cutoff_data"},
			"b8": {Name: "usage_mode"},
			"c2": {Name: "max_load"},
			"c7": {Name: "home_load_preset"},
			"ca": {Name: "pv_1_power", Divisor: 10},
			"cb": {Name: "pv_2_power", Divisor: 10},
			"cc": {Name: "pv_3_power", Divisor: 10},
			"cd": {Name: "pv_4_power", Divisor: 10},
			"fb": {
				Name: "grid_flags",
				Bits: map[int][]BitSpec{
					0: {{Name: "grid_export_disabled", Mask: 0x01}},
				},
			},
			"fe": {Name: "msg_timestamp"},
		},
	}
}

func solarbank2State() MessageSpec {
	return MessageSpec{
		Topic: TopicStateInfo,
		Fields: map[string]FieldSpec{
			"a2": {Name: "device_sn"},
			"a3": {Name: "local_timestamp"},
			"a4": {Name: "utc_timestamp"},
			"a8": {Name: "charging_status"},
			"b0": {Name: "battery_soc"},
			"b6": {Name: "temperature"},
			"b8": {Name: "home_load_preset"},
			"ce": {Name: "pv_1_power"},
			"cf": {Name: "pv_2_power"},
			"d0": {Name: "pv_3_power"},
			"d1": {Name: "pv_4_power"},
		},
	}
}

// expansionSubfields lays out one expansion pack record inside the
// expansion data message. Records for all slots share the structure.
func expansionSubfields(slot int) []SubfieldSpec {
	prefix := fmt.Sprintf("exp_%d_", slot)
	return []SubfieldSpec{
		{Offset: 0, Name: prefix + "controller_sn", Length: 17, Type: FieldStr},
		{Offset: 18, Name: prefix + "position", Length: 1, Type: FieldUI},
		{Offset: 19, Name: prefix + "temperature", Length: 1, Type: FieldUI},
		{Offset: 21, Name: prefix + "soc", Length: 1, Type: FieldUI},
		{Offset: 22, Name: prefix + "soc_limit", Length: 1, Type: FieldUI},
		{Offset: 27, Name: prefix + "sn", Length: 17, Type: FieldStr},
	}
}

func expansionData() MessageSpec {
	fields := map[string]FieldSpec{
		"a2": {Name: "expansion_packs"},
		"a3": {Name: "lowest_soc"},
	}
	// Slots 1 to 5 arrive in fields a4 to a8.
	for slot := 1; slot <= 5; slot++ {
		key := fmt.Sprintf("a%x", 3+slot)
		fields[key] = FieldSpec{
			Name:      fmt.Sprintf("expansion_%d", slot),
			Subfields: expansionSubfields(slot),
		}
	}
	return MessageSpec{Topic: TopicParamInfo, Fields: fields}
}

func solarbank3Param() MessageSpec {
	return MessageSpec{
		Topic: TopicParamInfo,
		Fields: map[string]FieldSpec{
			"a2": {Name: "device_sn"},
			"a3": {Name: "battery_soc"},
			"a5": {Name: "temperature"},
			"a6": {Name: "battery_soc_total"},
			"a7": {Name: "sw_version", Values: 4},
			"a8": {Name: "sw_controller", Values: 4},
			"a9": {Name: "sw_expansion", Values: 4},
			"ab": {Name: "photovoltaic_power"},
			"ac": {Name: "battery_power_signed"},
			"ad": {Name: "output_power"},
			"ae": {Name: "ac_output_power_signed"},
			"b5": {Name: "output_cutoff_data"},
			"b8": {Name: "usage_mode"},
			"b9": {Name: "home_load_preset"},
			"ba": {
				Name: "mode_flags",
				Bits: map[int][]BitSpec{
					0: {
						{Name: "light_mode", Mask: 0x40},
						{Name: "light_off", Mask: 0x20},
						{Name: "ac_socket_enabled", Mask: 0x08},
						{Name: "temp_unit_fahrenheit", Mask: 0x01},
					},
				},
			},
			"bb": {Name: "heating_power"},
			"bc": {Name: "grid_to_battery_power"},
			"bd": {Name: "max_load"},
			"be": {Name: "max_load_legal"},
			"bf": {Name: "timestamp_backup_start"},
			"c0": {Name: "timestamp_backup_end"},
			"c4": {Name: "grid_power_signed"},
			"c5": {Name: "home_demand"},
			"c6": {Name: "pv_1_power"},
			"c7": {Name: "pv_2_power"},
			"c8": {Name: "pv_3_power"},
			"c9": {Name: "pv_4_power"},
			"d4": {Name: "device_timeout_minutes", Multiplier: 30},
			"d5": {Name: "pv_limit"},
			"d6": {Name: "ac_input_limit"},
			"fb": {
				Name: "grid_flags",
				Bits: map[int][]BitSpec{
					0: {{Name: "grid_export_disabled", Mask: 0x01}},
				},
			},
			"fe": {Name: "msg_timestamp"},
		},
	}
}

func solarbank3State() MessageSpec {
	return MessageSpec{
		Topic: TopicStateInfo,
		Fields: map[string]FieldSpec{
			"a2": {Name: "device_sn"},
			"a3": {Name: "local_timestamp"},
			"a4": {Name: "utc_timestamp"},
			"a7": {Name: "battery_soc"},
			"a8": {Name: "charging_status"},
			"a9": {Name: "usage_mode"},
			"aa": {Name: "home_load_preset"},
			"ab": {Name: "photovoltaic_power"},
			"b2": {Name: "home_consumption"},
			"be": {Name: "grid_import_energy"},
			"cc": {Name: "temperature"},
			"dc": {Name: "max_load"},
			"e6": {Name: "pv_limit"},
			"e7": {Name: "ac_input_limit"},
		},
	}
}

// parallelSystem is the multisystem message, listing the serials of up
// to four coupled units. The serial fields carry their own length byte.
func parallelSystem() MessageSpec {
	fields := map[string]FieldSpec{
		"a2": {Name: "device_sn"},
		"a3": {Name: "local_timestamp"},
		"a4": {Name: "utc_timestamp"},
		"a7": {Name: "battery_soc_total"},
		"a8": {Name: "parallel_devices"},
		"a9": {Name: "expansion_packs"},
		"ab": {Name: "grid_power_signed"},
		"ac": {Name: "ac_output_power_signed_total"},
		"ae": {Name: "output_power_signed_total"},
		"af": {Name: "home_demand_total"},
		"b1": {Name: "battery_power_signed_total"},
	}
	for i := 1; i <= 4; i++ {
		key := fmt.Sprintf("b%x", 2+i)
		fields[key] = FieldSpec{
			Name: fmt.Sprintf("parallel_%d", i),
			Subfields: []SubfieldSpec{
				{Offset: 0, Name: fmt.Sprintf("parallel_%d_sn", i), Length: 0, Type: FieldStr},
			},
		}
	}
	return MessageSpec{Topic: TopicStateInfo, Fields: fields}
}

func portableStationParam() MessageSpec {
	return MessageSpec{
		Topic: TopicParamInfo,
		Fields: map[string]FieldSpec{
			"a5": {Name: "grid_to_battery_power"},
			"a6": {Name: "ac_output_power"},
			"a7": {Name: "usbc_1_power"},
			"a8": {Name: "usbc_2_power"},
			"a9": {Name: "usba_1_power"},
			"aa": {Name: "usba_2_power"},
			"ae": {Name: "dc_input_power"},
			"b0": {Name: "ac_output_power_total"},
			"b3": {Name: "sw_version", Values: 1},
			"b9": {Name: "sw_expansion", Values: 1},
			"ba": {Name: "sw_controller", Values: 1},
			"bd": {Name: "temperature"},
			"be": {Name: "exp_1_temperature"},
			"c1": {Name: "battery_soc"},
			"c2": {Name: "exp_1_soc"},
			"d0": {Name: "device_sn"},
			"d1": {Name: "max_load"},
			"d2": {Name: "device_timeout_minutes"},
			"fd": {Name: "exp_1_type"},
			"fe": {Name: "msg_timestamp"},
		},
	}
}

// portableStationState carries the settings toggles the set commands
// act on, so command confirmations can be read back from it.
func portableStationState() MessageSpec {
	return MessageSpec{
		Topic: TopicStateInfo,
		Fields: map[string]FieldSpec{
			"a2": {Name: "device_sn"},
			"a3": {Name: "local_timestamp"},
			"a4": {Name: "utc_timestamp"},
			"a5": {Name: "switch_ac_output_power"},
			"a6": {Name: "switch_12v_dc_output_power"},
			"a7": {Name: "switch_display"},
			"a8": {Name: "display_mode"},
			"a9": {Name: "light_mode"},
			"aa": {Name: "temp_unit_fahrenheit"},
			"ab": {Name: "ac_output_mode"},
			"ac": {Name: "dc_output_mode"},
			"ad": {Name: "switch_port_memory"},
			"ae": {Name: "max_load"},
			"af": {Name: "device_timeout_minutes"},
			"b0": {Name: "switch_ac_fast_charge"},
			"fe": {Name: "msg_timestamp"},
		},
	}
}

func portableStationFirmware() MessageSpec {
	return MessageSpec{
		Topic: TopicParamInfo,
		Fields: map[string]FieldSpec{
			"a1": {Name: "sw_esp", Type: FieldStr},
			"a2": {Name: "sw_version", Type: FieldStr},
		},
	}
}

func chargerFirmware() MessageSpec {
	return MessageSpec{
		Topic: TopicParamInfo,
		Fields: map[string]FieldSpec{
			"a1": {Name: "sw_version", Type: FieldStr},
			"a2": {Name: "sw_esp", Type: FieldStr},
		},
	}
}

func registerMessages(r *Registry) {
	// Solarbank 1 E1600
	r.RegisterMessage("A17C0", "0405", solarbank1Param())
	r.RegisterMessage("A17C0", "0407", networkState())
	r.RegisterMessage("A17C0", "0408", solarbank1State())

	// Solarbank 2 E1600 Pro
	r.RegisterMessage("A17C1", "0405", solarbank2Param())
	r.RegisterMessage("A17C1", "0407", networkState())
	r.RegisterMessage("A17C1", "0408", solarbank2State())
	r.RegisterMessage("A17C1", "040a", expansionData())

	// Solarbank 2 E1600 AC shares the solarbank 3 layouts.
	r.RegisterMessage("A17C2", "0405", solarbank3Param())
	r.RegisterMessage("A17C2", "0407", networkState())
	r.RegisterMessage("A17C2", "0408", solarbank3State())
	r.RegisterMessage("A17C2", "040a", expansionData())

	// Solarbank 3 E2700 Pro
	r.RegisterMessage("A17C5", "0405", solarbank3Param())
	r.RegisterMessage("A17C5", "0407", networkState())
	r.RegisterMessage("A17C5", "0408", solarbank3State())
	r.RegisterMessage("A17C5", "040a", expansionData())
	r.RegisterMessage("A17C5", "0420", parallelSystem())

	// Portable power station C1000X with B1000 expansion
	r.RegisterMessage("A1761", "0405", portableStationParam())
	r.RegisterMessage("A1761", "0412", portableStationState())
	r.RegisterMessage("A1761", "0830", portableStationFirmware())

	// Power charger C300 DC
	r.RegisterMessage("A1728", "0830", chargerFirmware())
}
