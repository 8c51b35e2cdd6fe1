// Package cli holds operational commands of the openradius binary.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/openradius/openradius/internal/authz"
)

// RoutesOptions defines available flags for the routes command.
type RoutesOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// RoutesSummary describes the JSON response for routes.
type RoutesSummary struct {
	OK      bool         `json:"ok"`
	Error   string       `json:"error,omitempty"`
	Entries []RouteEntry `json:"entries"`
}

// RouteEntry is one table row as printed by the routes command.
type RouteEntry struct {
	Method     string `json:"method"`
	Pattern    string `json:"pattern"`
	Permission string `json:"permission,omitempty"`
}

// RoutesCommand validates the route table and prints it in evaluation order.
// It exits with 10 when the table would be refused at startup.
func RoutesCommand(entries []authz.RouteEntry, opts RoutesOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	summary := RoutesSummary{OK: true, Entries: make([]RouteEntry, 0, len(entries))}
	for _, e := range entries {
		summary.Entries = append(summary.Entries, RouteEntry{Method: e.Method, Pattern: e.Pattern, Permission: e.Permission})
	}
	if _, err := authz.NewTable(entries); err != nil {
		summary.OK = false
		summary.Error = err.Error()
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "routes: encode json: %v\n", err)
			return 1
		}
	} else {
		renderRoutesHuman(opts.Stdout, summary)
	}
	if !summary.OK {
		return 10
	}
	return 0
}

func renderRoutesHuman(out io.Writer, summary RoutesSummary) {
	for i, e := range summary.Entries {
		perm := e.Permission
		if perm == "" {
			perm = "(authenticated)"
		}
		_, _ = fmt.Fprintf(out, "%3d  %-7s %-45s %s\n", i, e.Method, e.Pattern, perm)
	}
	if summary.OK {
		_, _ = fmt.Fprintf(out, "%d route(s), table is valid.\n", len(summary.Entries))
		return
	}
	_, _ = fmt.Fprintf(out, "table is invalid: %s\n", summary.Error)
}

// ExplainOptions defines available flags for the explain command.
type ExplainOptions struct {
	Method     string
	Path       string
	Unmapped   authz.UnmappedPolicy
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// Explanation reports which entry governs a request.
type Explanation struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	Matched    bool   `json:"matched"`
	Index      int    `json:"index"`
	Pattern    string `json:"pattern,omitempty"`
	Permission string `json:"permission,omitempty"`
	Outcome    string `json:"outcome"`
}

// ExplainCommand prints the entry a request resolves to and what it requires.
func ExplainCommand(table *authz.Table, opts ExplainOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if !authz.KnownMethod(method) || strings.TrimSpace(opts.Path) == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "explain: usage: explain METHOD PATH")
		return 1
	}
	path := opts.Path
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	exp := Explanation{Method: method, Path: authz.NormalizePath(path), Index: -1}
	if m, ok := table.Match(method, path); ok {
		exp.Matched = true
		exp.Index = m.Index
		exp.Pattern = m.Entry.Pattern
		exp.Permission = m.Entry.Permission
		exp.Outcome = "requires permission " + m.Entry.Permission
		if m.Entry.AuthenticatedOnly() {
			exp.Outcome = "requires authentication only"
		}
	} else if opts.Unmapped == authz.UnmappedDeny {
		exp.Outcome = "unmapped, denied"
	} else {
		exp.Outcome = "unmapped, requires authentication only"
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(exp); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "explain: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	if exp.Matched {
		_, _ = fmt.Fprintf(opts.Stdout, "%s %s matches entry %d (%s): %s\n", exp.Method, exp.Path, exp.Index, exp.Pattern, exp.Outcome)
	} else {
		_, _ = fmt.Fprintf(opts.Stdout, "%s %s: %s\n", exp.Method, exp.Path, exp.Outcome)
	}
	return 0
}
