package extract

import (
	"fmt"
	"strconv"
	"strings"
)

// Step is one hop of a Path: an object key or an array index.
type Step struct {
	key     string
	index   int
	isIndex bool
}

func Key(name string) Step {
	return Step{key: name}
}

func Index(i int) Step {
	return Step{index: i, isIndex: true}
}

func (s Step) IsIndex() bool {
	return s.isIndex
}

func (s Step) String() string {
	if s.isIndex {
		return "[" + strconv.Itoa(s.index) + "]"
	}
	return s.key
}

// -----------------------------------------------------------------------------

// Path is an ordered list of steps from a document root to a payload.
type Path []Step

func (p Path) String() string {
	var sb strings.Builder
	for i, s := range p {
		if i > 0 && !s.isIndex {
			sb.WriteByte('.')
		}
		sb.WriteString(s.String())
	}
	return sb.String()
}

// Append returns a new path with steps added; p is left untouched.
func (p Path) Append(steps ...Step) Path {
	out := make(Path, 0, len(p)+len(steps))
	out = append(out, p...)
	return append(out, steps...)
}

// -----------------------------------------------------------------------------

// ParsePath reads the dotted form used throughout the code base, e.g.
// "quoteSummary.result[0].earnings".
func ParsePath(expr string) (Path, error) {
	if expr == "" {
		return Path{}, nil
	}

	var path Path
	for _, segment := range strings.Split(expr, ".") {
		name := segment
		var indexes []int

		if open := strings.IndexByte(segment, '['); open >= 0 {
			name = segment[:open]
			rest := segment[open:]
			for rest != "" {
				if rest[0] != '[' {
					return nil, fmt.Errorf("extract: unexpected %q in %q", rest, expr)
				}
				closing := strings.IndexByte(rest, ']')
				if closing < 0 {
					return nil, fmt.Errorf("extract: unclosed index in %q", expr)
				}
				i, err := strconv.Atoi(rest[1:closing])
				if err != nil || i < 0 {
					return nil, fmt.Errorf("extract: bad index %q in %q", rest[1:closing], expr)
				}
				indexes = append(indexes, i)
				rest = rest[closing+1:]
			}
		}

		if name == "" && len(indexes) == 0 {
			return nil, fmt.Errorf("extract: empty segment in %q", expr)
		}
		if name != "" {
			path = append(path, Key(name))
		}
		for _, i := range indexes {
			path = append(path, Index(i))
		}
	}
	return path, nil
}

// MustParsePath is ParsePath for package-level path literals.
func MustParsePath(expr string) Path {
	p, err := ParsePath(expr)
	if err != nil {
		panic(err)
	}
	return p
}
