package model

import "errors"

// Error taxonomy shared by collaborators. All of these are recovered at the
// per-instrument cycle boundary; none is fatal to the process.
var (
	// ErrVenueUnavailable covers network, auth and rate-limit failures talking to the venue.
	ErrVenueUnavailable = errors.New("venue unavailable")

	// ErrOrderRejected means the venue refused an order.
	ErrOrderRejected = errors.New("order rejected")

	// ErrStorageUnavailable covers persistence failures.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInsufficientData means there is not enough history for a signal.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidQuote means a quote has a zero, negative or missing price.
	ErrInvalidQuote = errors.New("invalid quote")
)
