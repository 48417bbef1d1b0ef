package model

// Sink receives model snapshots from collectors.
//
// Publish must not retain s beyond the call unless it copies it; Snapshot is a
// plain value so this holds by construction. Close releases the publish handle.
type Sink interface {
	Publish(s Snapshot) error
	Close() error
}

// Notifier defines the interface for sending alert notifications.
type Notifier interface {
	Send(subject, body string) error
}
