// Package transport provides the listeners that receive change
// notifications pushed by the context broker.
//
// Two interchangeable bindings implement the same Listener contract:
//
//   - HTTPListener binds a raw TCP socket and emulates the HTTP callback
//     endpoint brokers POST notifications to. Each accepted connection is
//     handled on its own goroutine: bytes are fed into a fresh
//     wire.MessageReader until the message is complete, a fixed
//     acknowledgement is written back, and the connection is closed. There
//     is no connection reuse or pipelining.
//
//   - NATSListener subscribes to one broker topic and forwards each
//     message payload as a complete body.
//
// Both fire the notification event exactly once per logical notification,
// with the complete message body. Start and Stop transitions are explicit;
// Stop is idempotent and no event fires after it returns. In-flight
// connections finish best-effort after Stop, their events suppressed.
//
// # Known Limitation
//
// No idle timeout is applied to a stalled peer that never completes a
// message; such a connection holds its goroutine until the peer goes away.
package transport
