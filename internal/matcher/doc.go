// Package matcher locates form controls for semantic profile fields and
// fills them.
//
// The matcher never touches a document directly. Callers hand it a flat list
// of Element values (main document, accessible iframes and shadow roots
// already merged) and it reads attributes, assigns values and raises the
// events page scripts listen for.
package matcher
