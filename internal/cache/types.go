package cache

import "strings"

// DeviceType classifies devices by their product family, dispatched by
// device model rather than subclassing.
type DeviceType string

const (
	TypeAccount      DeviceType = "account"
	TypeSystem       DeviceType = "system"
	TypeVirtual      DeviceType = "virtual"
	TypeSolarbank    DeviceType = "solarbank"
	TypeInverter     DeviceType = "inverter"
	TypeSmartMeter   DeviceType = "smartmeter"
	TypeSmartPlug    DeviceType = "smartplug"
	TypePPS          DeviceType = "pps"
	TypePowerPanel   DeviceType = "powerpanel"
	TypePowerCooler  DeviceType = "powercooler"
	TypeHES          DeviceType = "hes"
	TypeSolarbankPPS DeviceType = "solarbank_pps"
	TypeCharger      DeviceType = "charger"
	TypeEVCharger    DeviceType = "ev_charger"
	TypeVehicle      DeviceType = "vehicle"
)

// VirtualSitePrefix marks synthesized site ids for standalone devices
const VirtualSitePrefix = "virtual-"

// VirtualSiteID returns the synthesized site id wrapping a standalone device
func VirtualSiteID(deviceSN string) string {
	return VirtualSitePrefix + deviceSN
}

// IsVirtualSiteID reports whether a site id names a virtual site
func IsVirtualSiteID(siteID string) bool {
	return strings.HasPrefix(siteID, VirtualSitePrefix)
}

// SiteAdmin reports whether the member type from a site response grants
// admin rights. Member types 0 and 1 are owner and admin.
func SiteAdmin(msType int64) bool {
	return msType == 0 || msType == 1
}

// Well-known device attribute keys with service-side type quirks.
// boolAttrKeys arrive as "0"/"1" strings or numbers and are coerced to
// booleans, stringAttrKeys are forced to text even when numeric.
var (
	boolAttrKeys = map[string]bool{
		"wifi_online":   true,
		"auto_upgrade":  true,
		"is_ota_update": true,
		"is_subdevice":  true,
		"is_admin":      true,
	}
	stringAttrKeys = map[string]bool{
		"device_sn":    true,
		"device_pn":    true,
		"product_code": true,
		"site_id":      true,
		"main_sn":      true,
		"alias_name":   true,
		"device_name":  true,
		"sw_version":   true,
	}
)

// NormalizeDeviceAttrs applies the documented key coercions to a raw
// attribute map decoded from a service response. Unknown keys pass through
// unchanged.
func NormalizeDeviceAttrs(raw Attrs) Attrs {
	out := make(Attrs, len(raw))
	for k, v := range raw {
		switch {
		case boolAttrKeys[k]:
			out[k] = Bool(v.AsBool())
		case stringAttrKeys[k]:
			out[k] = String(v.String())
		default:
			out[k] = v
		}
	}
	return out
}
