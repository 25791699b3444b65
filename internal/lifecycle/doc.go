// Package lifecycle submits entry orders and their bracket exits.
//
// A cycle walks Idle -> Sizing -> Entering -> Exiting -> Idle for at most one
// instrument at a time. Sizing happens in the strategy; this package owns the
// Entering and Exiting steps and the post-fill bracket placement triggered by
// reconciliation. Nothing here is persisted between cycles except the Entry
// record, which guarantees brackets are placed at most once per entry order.
package lifecycle
