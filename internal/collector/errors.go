package collector

import "errors"

var (
	// ErrInitializationFailed means the collector could not be constructed.
	ErrInitializationFailed = errors.New("collector initialization failed")

	// ErrClockUnavailable means the arrival could not be timestamped and was dropped.
	ErrClockUnavailable = errors.New("clock unavailable")

	// ErrTeardownFailed means Finalize could not release every resource.
	ErrTeardownFailed = errors.New("collector teardown failed")

	// ErrFinalized is returned by OnMessage after Finalize.
	ErrFinalized = errors.New("collector finalized")
)
