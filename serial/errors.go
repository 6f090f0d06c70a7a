// Package serial implements the Serializer: recursive shrink/expand
// transforms between wire JSON and typed values, driven by a Port tree
// and the Structure Registry. Mirrors
// rekuest_next/structures/serialization/actor.py's aexpand_arg/ashrink_return,
// with the path-tree error formatting ported from the same module's
// to_port_error/to_shrink_port_error helpers.
package serial

import (
	"strings"

	"github.com/arkitektio/rekuest-next/port"
)

// Direction distinguishes an expand failure from a shrink failure so
// callers (and the Actor's event classifier) can tell which half of the
// round-trip failed.
type Direction string

const (
	DirectionExpand Direction = "expand"
	DirectionShrink Direction = "shrink"
)

// Error reports a Serializer failure at a specific Port in the tree. Path
// is the JSON-Pointer-style key sequence from the root Port down to the
// failing one; Depth is its nesting level. Error() renders the same
// indented path-tree format as the original's `_format_path_tree`.
type Error struct {
	Direction Direction
	Path      []string
	Depth     int
	PortKey   string
	PortKind  port.Kind
	Reason    string
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Direction == DirectionShrink {
		b.WriteString("error shrinking value with nested path:\n")
	} else {
		b.WriteString("error expanding value with nested path:\n")
	}
	b.WriteString(formatPathTree(e.Path))
	b.WriteString("\nport: ")
	b.WriteString(e.PortKey)
	b.WriteString(" (")
	b.WriteString(string(e.PortKind))
	b.WriteString(")\ndepth: ")
	if e.Depth < 0 {
		b.WriteString("unknown")
	} else {
		b.WriteString(itoa(e.Depth))
	}
	b.WriteString("\nreason: ")
	b.WriteString(e.Reason)
	return b.String()
}

// formatPathTree renders path as an indented tree, one segment per line,
// exactly as _format_path_tree does for the original's error messages.
func formatPathTree(path []string) string {
	if len(path) == 0 {
		return "- <root>"
	}
	var lines []string
	for depth, part := range path {
		lines = append(lines, strings.Repeat("  ", depth)+"- "+part)
	}
	return strings.Join(lines, "\n")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func newExpandError(p *port.Port, path []string, depth int, reason string) *Error {
	return &Error{Direction: DirectionExpand, Path: path, Depth: depth, PortKey: p.Key, PortKind: p.Kind, Reason: reason}
}

func newShrinkError(p *port.Port, path []string, depth int, reason string) *Error {
	return &Error{Direction: DirectionShrink, Path: path, Depth: depth, PortKey: p.Key, PortKind: p.Kind, Reason: reason}
}

func appendPath(path []string, seg string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}
