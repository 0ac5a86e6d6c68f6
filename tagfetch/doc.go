// Package tagfetch retrieves track metadata from a remote endpoint and
// extracts tag fields from the streamed JSON response. The extractor is
// a table-driven state machine over object-structure events; it keeps
// one state per nesting depth and commits a field only when both its
// key path and its exact depth match, so namesake keys at other levels
// are ignored.
package tagfetch
