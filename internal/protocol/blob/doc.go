// Package blob implements the binary attribute container underneath
// blobmsg: a 4-byte big-endian header word (extended flag, 7-bit id,
// 24-bit length) followed by a payload padded to 4 bytes.
//
// Ownership boundary:
// - header codec and alignment arithmetic
// - growable build buffer with nesting cookies
// - bounded iteration and id-indexed parsing
package blob
