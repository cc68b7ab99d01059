// Package route is a small ordered route table.
//
// Patterns are "/"-separated. A segment is either static text, a named
// parameter ":name", or, in last position only, a catch-all "*" or "*name".
// Match walks the entries in the order they were added and returns the first
// one that fits; when none does it returns the table's NotFound handler.
//
// Paths are canonicalized before matching: duplicate slashes collapse, the
// trailing slash is dropped, "." and ".." are resolved, and backslashes, NUL
// bytes or broken percent escapes make the path unmatchable.
package route
