// Package protocol owns the message contract on top of the blob codec.
//
// Ownership boundary:
// - message framing via frame
// - root table validation on decode
// - semantic decoding against schema entries
package protocol
