// Package convert moves blobmsg data to and from schema-free node trees.
// The text writer produces the indented dump used by blobctl demo; JSON and
// YAML output keep table member order.
package convert
