// Package protocol owns the broker-side message contract shared by the
// bridge actors.
//
// Ownership boundary:
// - broker message shape and delivery-quality hints
// - bus frame primitives (subpackage frame)
package protocol
