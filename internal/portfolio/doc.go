// Package portfolio values the account and gates new entries.
//
// Sizer turns the cycle snapshot into a target buy quantity under a fixed
// allocation fraction. Guard reports whether an instrument is already held.
// Both read only from a model.CycleContext and never call the venue.
package portfolio
