// Package poller drives trading cycles on a fixed interval.
//
// The Poller:
//   - Runs a cycle immediately on start, then once per interval
//   - Never overlaps cycles; a slow cycle delays the next tick
//   - Optionally stops itself after a bounded number of cycles
package poller
