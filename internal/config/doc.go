// Package config loads and saves the persisted client configuration:
// the cloud account credentials, request throttling knobs and the
// broker certificate cache location. The file lives in the platform
// configuration directory as YAML and is written atomically.
package config
