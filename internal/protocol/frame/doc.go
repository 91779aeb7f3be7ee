// Package frame owns the wire contract with the radio module firmware.
//
// Ownership boundary:
// - 6-byte address/frequency header layout
// - band floor to channel offset arithmetic
// - encode/decode between structured fields and raw frame bytes
//
// The package is pure and stateless; it performs no I/O and is safe to
// call from any number of callers without coordination.
package frame
