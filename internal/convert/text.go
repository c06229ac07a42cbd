package convert

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/danmuck/blobmsg/internal/protocol/blobmsg"
)

// WriteText renders n in the indented dump format: a table is a block of
// "name : value" lines between braces, an array a block of bare values, and
// each nesting level is one tab deeper.
func WriteText(w io.Writer, n Node) error {
	bw := bufio.NewWriter(w)
	writeTextValue(bw, n, 0, 0)
	return bw.Flush()
}

func writeIndent(w *bufio.Writer, indent int) {
	for range indent {
		w.WriteByte('\t')
	}
}

func writeTextValue(w *bufio.Writer, n Node, indent, next int) {
	switch n.Type {
	case blobmsg.TypeArray, blobmsg.TypeTable:
		if indent == 0 && next > 0 {
			w.WriteByte('\n')
		}
		writeTextBlock(w, n, next)
		return
	}
	writeIndent(w, indent)
	w.WriteString(scalarText(n))
	w.WriteByte('\n')
}

func writeTextBlock(w *bufio.Writer, n Node, indent int) {
	writeIndent(w, indent)
	w.WriteString("{\n")
	for _, c := range n.Children {
		if n.Type == blobmsg.TypeTable {
			writeIndent(w, indent+1)
			w.WriteString(c.Name)
			w.WriteString(" : ")
			writeTextValue(w, c, 0, indent+1)
			continue
		}
		writeTextValue(w, c, indent+1, indent+1)
	}
	writeIndent(w, indent)
	w.WriteString("}\n")
}

func scalarText(n Node) string {
	switch n.Type {
	case blobmsg.TypeString:
		return n.Str
	case blobmsg.TypeUnspec:
		return "null"
	}
	return strconv.FormatInt(n.Int, 10)
}

// Text is WriteText into a string.
func Text(n Node) string {
	var sb strings.Builder
	_ = WriteText(&sb, n)
	return sb.String()
}
