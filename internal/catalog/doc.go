// Package catalog holds the data driven descriptions of the hex device
// messages and commands: which fields a (model, message type) pair
// carries, how each field's bytes convert to values, and the ordered
// layouts and value domains of the settable commands.
//
// The catalog is pure data. Encoding and decoding against these
// descriptions lives in the hexdata package, so new device models are
// added here without touching codec logic. Layouts shared across a
// device family are built once and registered for every model.
package catalog
