package authz

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RouteEntry binds an HTTP method and route pattern to the permission it requires.
// An empty Permission means the route only requires an authenticated principal.
type RouteEntry struct {
	Method     string `validate:"required,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS"`
	Pattern    string `validate:"required"`
	Permission string
}

// Route declares an entry requiring the given permission.
func Route(method, pattern, permission string) RouteEntry {
	return RouteEntry{Method: method, Pattern: pattern, Permission: permission}
}

// AuthenticatedRoute declares an entry that only requires authentication.
func AuthenticatedRoute(method, pattern string) RouteEntry {
	return RouteEntry{Method: method, Pattern: pattern}
}

// AuthenticatedOnly reports whether the entry skips the permission check.
func (e RouteEntry) AuthenticatedOnly() bool {
	return e.Permission == ""
}

func (e RouteEntry) String() string {
	perm := e.Permission
	if perm == "" {
		perm = "<authenticated>"
	}
	return e.Method + " " + e.Pattern + " -> " + perm
}

// segment is one compiled pattern segment. Wildcard segments match exactly one
// arbitrary path segment.
type segment struct {
	literal  string
	wildcard bool
}

func (s segment) matches(value string) bool {
	return s.wildcard || s.literal == value
}

type compiledEntry struct {
	entry    RouteEntry
	index    int
	segments []segment
}

// Match is the result of a successful table lookup.
type Match struct {
	Entry RouteEntry
	// Index is the entry position in the table as declared.
	Index int
}

// Table is an immutable, ordered route permission table. Lookups walk the
// entries for a method in declaration order and return the first full match,
// so specific patterns must be declared before the patterns that generalize
// them. NewTable refuses tables that break this rule.
//
// A Table is safe for concurrent use.
type Table struct {
	byMethod map[string][]compiledEntry
	size     int
}

var routeValidator = validator.New(validator.WithRequiredStructEnabled())

// NewTable validates and compiles entries. Entries are copied; later changes to
// the input slice do not affect the table.
func NewTable(entries []RouteEntry) (*Table, error) {
	t := &Table{byMethod: make(map[string][]compiledEntry), size: len(entries)}
	for i, e := range entries {
		e.Method = strings.ToUpper(strings.TrimSpace(e.Method))
		e.Pattern = strings.TrimSpace(e.Pattern)
		e.Permission = strings.TrimSpace(e.Permission)
		if err := routeValidator.Struct(e); err != nil {
			return nil, fmt.Errorf("%w: entry %d (%s %s): %v", ErrInvalidRouteTable, i, e.Method, e.Pattern, err)
		}
		compiled := compiledEntry{entry: e, index: i, segments: compilePattern(e.Pattern)}
		for _, prior := range t.byMethod[e.Method] {
			if shadows(prior.segments, compiled.segments) {
				return nil, fmt.Errorf("%w: entry %d (%s) is unreachable behind entry %d (%s)",
					ErrInvalidRouteTable, i, e, prior.index, prior.entry)
			}
		}
		t.byMethod[e.Method] = append(t.byMethod[e.Method], compiled)
	}
	return t, nil
}

// MustTable is NewTable for tables declared in code; it panics on an invalid table.
func MustTable(entries []RouteEntry) *Table {
	t, err := NewTable(entries)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of entries in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.size
}

// Entries returns the table entries in declaration order.
func (t *Table) Entries() []RouteEntry {
	if t == nil {
		return nil
	}
	out := make([]RouteEntry, t.size)
	for _, list := range t.byMethod {
		for _, c := range list {
			out[c.index] = c.entry
		}
	}
	return out
}

// Match returns the first entry whose method and segments match the request.
// The method comparison ignores case; literal segments compare exactly.
func (t *Table) Match(method, path string) (Match, bool) {
	if t == nil {
		return Match{}, false
	}
	candidates := t.byMethod[strings.ToUpper(method)]
	if len(candidates) == 0 {
		return Match{}, false
	}
	parts := splitPath(path)
	for _, c := range candidates {
		if matchSegments(c.segments, parts) {
			return Match{Entry: c.entry, Index: c.index}, true
		}
	}
	return Match{}, false
}

func matchSegments(pattern []segment, parts []string) bool {
	if len(pattern) != len(parts) {
		return false
	}
	for i, seg := range pattern {
		if !seg.matches(parts[i]) {
			return false
		}
	}
	return true
}

// shadows reports whether every path matched by later is already matched by earlier.
func shadows(earlier, later []segment) bool {
	if len(earlier) != len(later) {
		return false
	}
	for i, seg := range earlier {
		if seg.wildcard {
			continue
		}
		if later[i].wildcard || later[i].literal != seg.literal {
			return false
		}
	}
	return true
}

func compilePattern(pattern string) []segment {
	parts := splitPath(pattern)
	segs := make([]segment, len(parts))
	for i, p := range parts {
		if isWildcard(p) {
			segs[i] = segment{wildcard: true}
			continue
		}
		segs[i] = segment{literal: p}
	}
	return segs
}

// isWildcard treats "*" and any "{name}" placeholder as a single-segment wildcard.
func isWildcard(seg string) bool {
	if seg == "*" {
		return true
	}
	return len(seg) >= 2 && seg[0] == '{' && seg[len(seg)-1] == '}'
}

// splitPath drops empty segments, so "/api//users/" and "api/users" compare
// equal. path is a request path without query; "?" and "#" are ordinary bytes.
func splitPath(path string) []string {
	raw := strings.Split(path, "/")
	parts := raw[:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// NormalizePath renders a request path the way the matcher sees it.
func NormalizePath(path string) string {
	return strings.Join(splitPath(path), "/")
}

// KnownMethod reports whether method is one the table accepts.
func KnownMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
