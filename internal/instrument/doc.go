// Package instrument tracks the venue's order constraints for each traded pair.
//
// The registry loads trading pairs at startup and periodically reconciles them
// against the venue REST API. Lookup is safe for concurrent use by the engine's
// per-instrument workers.
package instrument
