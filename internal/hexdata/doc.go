// Package hexdata implements the binary message codec the devices
// speak over MQTT. Messages are framed with a fixed prefix, a total
// length, a direction pattern and a message type, followed by TLV
// fields whose meaning the catalog package describes per device model.
//
// Decoding is total over well framed input: a message type without a
// catalog layout yields a degraded result carrying the frame and raw
// fields, never an error. Scaled readings keep their raw integer and
// divisor as a Decimal so repeated decode and encode passes reproduce
// the wire bytes exactly.
//
// The Composer builds outgoing command messages from catalog layouts,
// validating every parameter against its declared domain before any
// bytes are produced.
package hexdata
