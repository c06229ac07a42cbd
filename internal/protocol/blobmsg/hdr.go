package blobmsg

import "github.com/danmuck/blobmsg/internal/protocol/blob"

// HdrLen is the padded size of the sub-header carrying a name of nameLen
// bytes: the length byte, the name, and a NUL terminator.
func HdrLen(nameLen int) int {
	return blob.Pad(1 + nameLen + 1)
}

// Split separates the named sub-header of a from its payload. The name must
// fit inside the attribute and be NUL-terminated; anything else is
// blob.ErrMalformedHeader.
func Split(a blob.Attr) (name string, data []byte, err error) {
	d := a.Data()
	if len(d) < 1 {
		return "", nil, blob.ErrMalformedHeader
	}
	n := int(d[0])
	hl := HdrLen(n)
	if hl > len(d) || d[1+n] != 0 {
		return "", nil, blob.ErrMalformedHeader
	}
	return string(d[1 : 1+n]), d[hl:], nil
}

// Name returns the attribute name, or "" when the sub-header is malformed.
func Name(a blob.Attr) string {
	name, _, err := Split(a)
	if err != nil {
		return ""
	}
	return name
}

// Data returns the payload following the named sub-header.
func Data(a blob.Attr) []byte {
	_, data, err := Split(a)
	if err != nil {
		return nil
	}
	return data
}

// DataOffset is the payload position relative to the start of a, or -1
// when the sub-header is malformed.
func DataOffset(a blob.Attr) int {
	_, data, err := Split(a)
	if err != nil {
		return -1
	}
	return a.RawLen() - len(data)
}

func DataLen(a blob.Attr) int {
	return len(Data(a))
}

// TypeOf returns the tag of a.
func TypeOf(a blob.Attr) Type {
	return Type(a.ID())
}

func putName(p []byte, name string) {
	p[0] = byte(len(name))
	copy(p[1:], name)
}
