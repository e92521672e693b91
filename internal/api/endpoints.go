package api

// Regional API servers. The service runs separate installations per region;
// the account's country code selects which one a session talks to.
var apiServers = map[string]string{
	"eu":  "https://ankerpower-api-eu.anker.com",
	"com": "https://ankerpower-api.anker.com",
}

// Country codes served by each regional installation.
var apiCountries = map[string][]string{
	"eu": {
		"AT", "BE", "BG", "CY", "CZ", "DE", "DK", "EE", "ES", "FI", "FR",
		"GR", "HR", "HU", "IE", "IT", "LT", "LU", "LV", "MT", "NL", "PL",
		"PT", "RO", "SE", "SI", "SK",
	},
	"com": {
		"US", "CA", "GB", "AU", "NZ", "JP", "CN", "ZA", "MX", "BR", "AR",
		"CH", "NO", "IS",
	},
}

// Authentication endpoints
const (
	loginPath       = "passport/login"
	keyExchangePath = "openapi/oauth/key/exchange"
)

// Endpoints maps documented endpoint names to their request paths.
// Callers may also pass raw paths directly for undocumented endpoints.
var Endpoints = map[string]string{
	"homepage":                 "power_service/v1/site/get_site_homepage",
	"site_list":                "power_service/v1/site/get_site_list",
	"site_detail":              "power_service/v1/site/get_site_detail",
	"scene_info":               "power_service/v1/site/get_scen_info",
	"user_devices":             "power_service/v1/site/list_user_devices",
	"bind_devices":             "power_service/v1/app/get_relate_and_bind_devices",
	"device_info":              "power_service/v1/app/device/get_device_info",
	"energy_analysis":          "power_service/v1/site/energy_analysis",
	"get_auto_upgrade":         "power_service/v1/app/get_auto_upgrade",
	"set_auto_upgrade":         "power_service/v1/app/set_auto_upgrade",
	"wifi_list":                "power_service/v1/site/get_wifi_info_list",
	"get_ota_batch":            "power_service/v1/app/compatible/get_ota_batch_info",
	"get_mqtt_info":            "app/devicemanage/get_user_mqtt_info",
	"solar_info":               "power_service/v1/app/compatible/get_compatible_solar_info",
	"get_cutoff":               "power_service/v1/app/compatible/get_power_cutoff",
	"get_device_fittings":      "power_service/v1/app/get_relate_device_fittings",
	"get_user_vehicles":        "charging_energy_service/get_user_vehicles",
	"get_vehicle_details":      "charging_energy_service/get_vehicle_details",
	"get_device_pv_status":     "charging_pv_svc/getDevicePvStatus",
	"get_device_pv_price":      "charging_pv_svc/selectDevicePvPrice",
	"get_device_pv_statistics": "charging_pv_svc/statistics",
	"get_product_categories":   "passport/api/v1/product_categories",
	"get_currency_list":        "power_service/v1/currency/get_list",
	"get_message_unread":       "power_service/v1/get_message_unread",
}

// EndpointPath resolves a documented endpoint name to its path. Unknown
// names are returned unchanged so raw paths keep working.
func EndpointPath(name string) string {
	if path, ok := Endpoints[name]; ok {
		return path
	}
	return name
}

// ServerForCountry returns the regional API server for a two-letter country
// code, or an empty string when the country is not served.
func ServerForCountry(country string) string {
	for region, countries := range apiCountries {
		for _, c := range countries {
			if c == country {
				return apiServers[region]
			}
		}
	}
	return ""
}

// ServerForRegion returns the API server for a region key ("eu" or "com").
func ServerForRegion(region string) string {
	return apiServers[region]
}
