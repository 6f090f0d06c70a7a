package statesync

import (
	"strings"

	"github.com/arkitektio/rekuest-next/port"
)

// resolvePortForPath traverses schema (the state's root MODEL port) to find
// the Port describing the value at an RFC 6901 JSON Pointer path, e.g.
// "/agent/position". List indices ("0", "-") step into the list child's
// item port rather than being looked up by key. Ported from
// agents/utils.py's resolve_port_for_path.
func resolvePortForPath(schema *port.Port, path string) *port.Port {
	if path == "" || path == "/" {
		return nil
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	scope := schema.Children
	var found *port.Port

	for _, part := range parts {
		if isListIndex(part) {
			if found != nil && len(found.Children) > 0 {
				found = found.Children[0]
				if len(found.Children) > 0 {
					scope = found.Children
				}
			}
			continue
		}

		var match *port.Port
		for _, p := range scope {
			if p.Key == part {
				match = p
				break
			}
		}
		if match == nil {
			return nil
		}
		found = match
		if len(found.Children) > 0 {
			scope = found.Children
		}
	}

	return found
}

func isListIndex(part string) bool {
	if part == "-" {
		return true
	}
	if part == "" {
		return false
	}
	for _, r := range part {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
