package manager

import "errors"

var (
	// ErrUnknownTopic is returned for arrivals on a topic that has no endpoint.
	ErrUnknownTopic = errors.New("unknown topic")

	// ErrDuplicateTopic is returned when an endpoint is registered twice.
	ErrDuplicateTopic = errors.New("duplicate topic")

	// ErrStopped is returned by every operation after Stop.
	ErrStopped = errors.New("manager stopped")
)
