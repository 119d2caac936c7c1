// Package ingestsvc implements the ingest coordinator: it accepts field
// writes from the game server, merges write-time attributes into the target
// fragment, and runs the body -> compress -> mark-ready pipeline for each
// write as one asynchronous task.
//
// Overlapping writes to the same fragment are deliberately not serialized:
// whichever task finishes last wins for the fields it touched. The receive
// timestamp is assigned only after compression (or its raw-bytes fallback)
// completes, so readers never observe a half-written record.
package ingestsvc
