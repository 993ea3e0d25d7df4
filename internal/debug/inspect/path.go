package inspect

import (
	"fmt"
	"strconv"
	"strings"
)

// pathSegment is one dotted component of a variable path, with optional
// index suffixes: "players[2].name" parses into {players [2]} {name}.
type pathSegment struct {
	name    string
	indices []int
}

func parsePath(path string) ([]pathSegment, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty variable path")
	}

	parts := strings.Split(path, ".")
	segs := make([]pathSegment, 0, len(parts))
	for _, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

func parseSegment(part string) (pathSegment, error) {
	open := strings.IndexByte(part, '[')
	if open < 0 {
		if part == "" {
			return pathSegment{}, fmt.Errorf("empty path segment")
		}
		return pathSegment{name: part}, nil
	}

	seg := pathSegment{name: part[:open]}
	if seg.name == "" {
		return pathSegment{}, fmt.Errorf("missing name before index in %q", part)
	}

	rest := part[open:]
	for rest != "" {
		if rest[0] != '[' {
			return pathSegment{}, fmt.Errorf("malformed index suffix in %q", part)
		}
		closeIdx := strings.IndexByte(rest, ']')
		if closeIdx < 0 {
			return pathSegment{}, fmt.Errorf("unterminated index in %q", part)
		}
		idx, err := strconv.Atoi(rest[1:closeIdx])
		if err != nil || idx < 0 {
			return pathSegment{}, fmt.Errorf("invalid index %q in %q", rest[1:closeIdx], part)
		}
		seg.indices = append(seg.indices, idx)
		rest = rest[closeIdx+1:]
	}
	return seg, nil
}
