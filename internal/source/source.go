// Package source provides filesystem change notifiers that feed the tail engine.
package source

// Kind classifies a change notification.
type Kind int

const (
	// Other covers notifications the engine does not act on (chmod, access).
	Other Kind = iota
	// Created reports a new path.
	Created
	// Modified reports appended or rewritten content.
	Modified
	// Removed reports a path that no longer exists (deleted or renamed away).
	Removed
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return "other"
	}
}

// Notification is a single change report covering one or more paths.
type Notification struct {
	Kind  Kind
	Paths []string
}

// Source defines the interface for change notifiers.
type Source interface {
	// Watch starts observing root. It is called once, before any receive.
	Watch(root string, recursive bool) error
	// Notifications returns a channel that emits change notifications.
	Notifications() <-chan Notification
	// Errors returns a channel that emits errors reported by the notifier.
	Errors() <-chan error
	// Close releases the notifier and closes both channels.
	Close() error
}
