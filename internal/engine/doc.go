// Package engine runs one polling cycle across all configured instruments.
//
// A cycle reads quotes, holdings and the account balance once into a
// model.CycleContext, then processes each instrument on a bounded worker pool:
// append history, read history, evaluate, enter, reconcile. Every failure is
// contained to its instrument; a cycle never aborts because one instrument did.
package engine
