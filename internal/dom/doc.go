// Package dom is an in-memory page model over golang.org/x/net/html.
//
// A Document owns a parsed node tree and records the events raised on it,
// which is what page scripts would observe. Element implements
// matcher.Element and writes state back into the tree (value, checked and
// selected attributes, text content) so Render shows the filled page.
//
// Open declarative shadow roots (<template shadowrootmode="open">) are
// flattened into Elements. Closed roots and inert templates are skipped.
//
// A Document is not safe for concurrent mutation; the owning frame agent
// serializes access.
package dom
