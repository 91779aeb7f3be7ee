// Package session owns the link between one node identity and one serial
// transport.
//
// Ownership boundary:
// - frame send path (encode, single write, settle delay)
// - transport lifecycle after construction (close, use-after-close)
// - settle timing defaults
//
// The session does not own the wire layout (package frame) or opening the
// device (package transport).
package session
