// Package blobmsg layers named, typed fields over blob attributes.
//
// Every attribute carries a sub-header between the blob header and the
// payload: a one-byte name length, the name, a NUL, and zero padding up to
// the next 4-byte boundary. Tables hold named children, arrays anonymous
// ones. Parse extracts fields by name against a Policy table and treats a
// field with the wrong tag as absent rather than failing the message.
package blobmsg
