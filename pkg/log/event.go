package log

import (
	"time"
)

// Event represents a pipeline event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection or broker session
	// (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (IP:port), when known.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Topic is the broker topic the event relates to, when any.
	Topic string `cbor:"7,keyasint,omitempty"`

	// SubscriptionID is the subscription a notification matched, when any.
	SubscriptionID string `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Message     *MessageEvent     `cbor:"9,keyasint,omitempty"`  // complete notification body
	StateChange *StateChangeEvent `cbor:"10,keyasint,omitempty"` // listener/connection state
	Error       *ErrorEventData   `cbor:"11,keyasint,omitempty"` // errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which pipeline layer captured the event.
type Layer uint8

const (
	// LayerTransport is the listener layer (raw connections and chunks).
	LayerTransport Layer = 0
	// LayerWire is the message reassembly layer.
	LayerWire Layer = 1
	// LayerDispatch is the subscription dispatch layer.
	LayerDispatch Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerDispatch:
		return "DISPATCH"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a complete notification message.
	CategoryMessage Category = 0
	// CategoryState indicates a lifecycle state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MaxLogBodySize is the maximum body size included in log events (4 KB).
// Larger bodies are truncated to avoid excessive memory usage.
const MaxLogBodySize = 4096

// MessageEvent captures a complete notification body.
type MessageEvent struct {
	// Size is the full body size in bytes.
	Size int `cbor:"1,keyasint"`

	// Body is the raw body (may be truncated for large messages).
	Body []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Body was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// NewMessageEvent builds a MessageEvent, truncating oversized bodies.
func NewMessageEvent(body []byte) *MessageEvent {
	ev := &MessageEvent{Size: len(body), Body: body}
	if len(body) > MaxLogBodySize {
		ev.Body = body[:MaxLogBodySize]
		ev.Truncated = true
	}
	return ev
}

// StateChangeEvent captures listener and connection lifecycle changes.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityListener indicates a listener state change.
	StateEntityListener StateEntity = 0
	// StateEntityConnection indicates a connection state change.
	StateEntityConnection StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityListener:
		return "LISTENER"
	case StateEntityConnection:
		return "CONNECTION"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
