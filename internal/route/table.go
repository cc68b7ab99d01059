package route

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrBadPattern is returned by Add for malformed patterns.
var ErrBadPattern = errors.New("bad route pattern")

// CatchAllParam is the parameter key for an unnamed trailing "*".
const CatchAllParam = "*"

// Params holds decoded path parameters by name.
type Params map[string]string

// Get returns the parameter value, or "" when absent.
func (p Params) Get(name string) string { return p[name] }

type segKind uint8

const (
	segStatic segKind = iota
	segParam
	segCatchAll
)

type segment struct {
	kind  segKind
	value string // static text or parameter name
}

type entry[H any] struct {
	pattern  string
	segments []segment
	handler  H
}

// Match is the result of a table lookup.
type Match[H any] struct {
	// Pattern is the matched pattern, or "" for the fallback.
	Pattern string
	// Path is the canonical form of the requested path.
	Path    string
	Handler H
	Params  Params
}

// Table is an ordered, first-match route table with a fallback handler.
// It is not safe to Add while other goroutines call Match.
type Table[H any] struct {
	entries  []entry[H]
	notFound H
}

// New returns an empty table whose fallback is notFound.
func New[H any](notFound H) *Table[H] {
	return &Table[H]{notFound: notFound}
}

// Add appends pattern with handler h.
func (t *Table[H]) Add(pattern string, h H) error {
	segs, err := parsePattern(pattern)
	if err != nil {
		return err
	}
	t.entries = append(t.entries, entry[H]{pattern: pattern, segments: segs, handler: h})
	return nil
}

// MustAdd is Add that panics on a malformed pattern. Meant for static tables.
func (t *Table[H]) MustAdd(pattern string, h H) *Table[H] {
	if err := t.Add(pattern, h); err != nil {
		panic(err)
	}
	return t
}

// Patterns returns the registered patterns in match order.
func (t *Table[H]) Patterns() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.pattern
	}
	return out
}

// NotFound returns the fallback handler.
func (t *Table[H]) NotFound() H { return t.notFound }

// Match resolves path. ok is false when the fallback was selected.
func (t *Table[H]) Match(path string) (m Match[H], ok bool) {
	canon, err := Canonicalize(path)
	if err != nil {
		return Match[H]{Path: path, Handler: t.notFound}, false
	}
	parts := splitPath(canon)
	for _, e := range t.entries {
		if params, hit := e.match(parts); hit {
			return Match[H]{Pattern: e.pattern, Path: canon, Handler: e.handler, Params: params}, true
		}
	}
	return Match[H]{Path: canon, Handler: t.notFound}, false
}

func (e *entry[H]) match(parts []string) (Params, bool) {
	var params Params
	for i, s := range e.segments {
		if s.kind == segCatchAll {
			rest := make([]string, 0, len(parts)-i)
			for _, raw := range parts[i:] {
				v, err := url.PathUnescape(raw)
				if err != nil {
					return nil, false
				}
				rest = append(rest, v)
			}
			if params == nil {
				params = Params{}
			}
			params[s.value] = strings.Join(rest, "/")
			return params, true
		}
		if i >= len(parts) {
			return nil, false
		}
		switch s.kind {
		case segStatic:
			if parts[i] != s.value {
				return nil, false
			}
		case segParam:
			v, ok := decodeSegment(parts[i])
			if !ok || v == "" {
				return nil, false
			}
			if params == nil {
				params = Params{}
			}
			params[s.value] = v
		}
	}
	if len(parts) != len(e.segments) {
		return nil, false
	}
	return params, true
}

func parsePattern(pattern string) ([]segment, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("%w %q: must start with /", ErrBadPattern, pattern)
	}
	raw := splitPath(pattern)
	segs := make([]segment, 0, len(raw))
	seen := map[string]bool{}
	for i, r := range raw {
		switch {
		case r == "":
			return nil, fmt.Errorf("%w %q: empty segment", ErrBadPattern, pattern)
		case strings.HasPrefix(r, ":"):
			name := r[1:]
			if name == "" {
				return nil, fmt.Errorf("%w %q: empty parameter name", ErrBadPattern, pattern)
			}
			if seen[name] {
				return nil, fmt.Errorf("%w %q: duplicate parameter %q", ErrBadPattern, pattern, name)
			}
			seen[name] = true
			segs = append(segs, segment{kind: segParam, value: name})
		case strings.HasPrefix(r, "*"):
			if i != len(raw)-1 {
				return nil, fmt.Errorf("%w %q: * must be the last segment", ErrBadPattern, pattern)
			}
			name := r[1:]
			if name == "" {
				name = CatchAllParam
			}
			if seen[name] {
				return nil, fmt.Errorf("%w %q: duplicate parameter %q", ErrBadPattern, pattern, name)
			}
			segs = append(segs, segment{kind: segCatchAll, value: name})
		default:
			segs = append(segs, segment{kind: segStatic, value: r})
		}
	}
	return segs, nil
}
