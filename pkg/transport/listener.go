package transport

import "errors"

// Listener lifecycle errors.
var (
	// ErrAlreadyStarted indicates Start was called on a running listener.
	ErrAlreadyStarted = errors.New("listener already started")

	// ErrMissingAddress indicates no listen address was configured.
	ErrMissingAddress = errors.New("listen address is required")

	// ErrMissingTopic indicates no broker topic was configured.
	ErrMissingTopic = errors.New("broker topic is required")
)

// Listener is the common lifecycle contract of the notification transport
// bindings. Implementations fire the notification callback exactly once
// per logical notification, with the complete message body.
type Listener interface {
	// Start begins receiving notifications.
	Start() error

	// Stop stops receiving. Idempotent; after Stop returns, no further
	// notification events are raised.
	Stop() error

	// IsStarted reports whether the listener is currently running.
	IsStarted() bool

	// OnNotification sets the callback invoked with each complete raw
	// body. Set before Start.
	OnNotification(fn func(body []byte))

	// OnError sets the callback invoked on listener-level faults during
	// normal operation. Faults after a deliberate Stop are discarded.
	OnError(fn func(err error))
}
