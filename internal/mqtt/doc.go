// Package mqtt bridges the account broker session to the hex message
// codec. It authenticates with the per account certificates from the
// cloud, keeps a subscription set that survives reconnects, unwraps
// the JSON and base64 envelope around every message, and feeds the
// decoded values to a handler and optionally into the device cache.
//
// Commands composed from the catalog are published to the device
// command topics wrapped in the same envelope the app uses.
package mqtt
