package transport

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fabianspitzer/fiwarenet-go/pkg/log"
	"github.com/fabianspitzer/fiwarenet-go/pkg/wire"
)

// ackResponse is the fixed acknowledgement written back after a complete
// notification. No headers, no body.
const ackResponse = "HTTP/1.1 200 OK\r\n\r\n"

// readBufferSize is the per-connection read buffer size.
const readBufferSize = 4096

// HTTPListenerConfig configures an HTTPListener.
type HTTPListenerConfig struct {
	// Address to listen on (e.g. ":1028" or "127.0.0.1:1028").
	Address string

	// Logger for pipeline logging (optional).
	Logger log.Logger
}

// HTTPListener emulates the HTTP callback endpoint the broker pushes
// notifications to. Each accepted connection carries exactly one
// notification and is handled on its own goroutine.
type HTTPListener struct {
	config   HTTPListenerConfig
	listener net.Listener
	running  atomic.Bool

	// mu serializes lifecycle transitions and event emission, so that no
	// notification event fires after Stop returns.
	mu             sync.Mutex
	onNotification func([]byte)
	onError        func(error)
}

// NewHTTPListener creates a listener for the given config.
func NewHTTPListener(config HTTPListenerConfig) (*HTTPListener, error) {
	if config.Address == "" {
		return nil, ErrMissingAddress
	}
	if config.Logger == nil {
		config.Logger = log.NoopLogger{}
	}
	return &HTTPListener{config: config}, nil
}

// OnNotification sets the notification callback. Set before Start.
func (l *HTTPListener) OnNotification(fn func(body []byte)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onNotification = fn
}

// OnError sets the fault callback. Set before Start.
func (l *HTTPListener) OnError(fn func(err error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onError = fn
}

// IsStarted reports whether the listener is accepting connections.
func (l *HTTPListener) IsStarted() bool { return l.running.Load() }

// Addr returns the bound listen address, or nil before Start. Useful when
// the configured address carries port 0.
func (l *HTTPListener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener == nil {
		return nil
	}
	return l.listener.Addr()
}

// Start binds the listening socket and begins accepting connections.
func (l *HTTPListener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running.Load() {
		return ErrAlreadyStarted
	}

	listener, err := net.Listen("tcp", l.config.Address)
	if err != nil {
		return err
	}
	l.listener = listener
	l.running.Store(true)

	l.logState(log.StateEntityListener, "STOPPED", "STARTED", "")
	go l.acceptLoop()
	return nil
}

// Stop stops accepting connections. Idempotent. In-flight connections
// complete best-effort; their notification events are suppressed. Must not
// be called from inside the notification callback.
func (l *HTTPListener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running.Load() {
		return nil
	}
	l.running.Store(false)

	// Close errors after a deliberate stop are discarded.
	_ = l.listener.Close()
	l.logState(log.StateEntityListener, "STARTED", "STOPPED", "")
	return nil
}

// acceptLoop accepts incoming connections until the socket closes. An
// accept fault during normal operation is fatal to the listener; after a
// deliberate Stop it is swallowed.
func (l *HTTPListener) acceptLoop() {
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			l.mu.Lock()
			wasRunning := l.running.Load()
			l.running.Store(false)
			if wasRunning {
				// Fatal fault: release the socket, Stop will see the
				// listener as already stopped.
				_ = l.listener.Close()
			}
			onErr := l.onError
			l.mu.Unlock()

			if wasRunning {
				l.logError("", err, "accept")
				if onErr != nil {
					onErr(err)
				}
			}
			return
		}
		go l.handleConnection(conn)
	}
}

// handleConnection reads one notification off a connection, acknowledges
// it, and raises the event. Parse failures end this connection only.
func (l *HTTPListener) handleConnection(conn net.Conn) {
	defer conn.Close()

	connID := uuid.New().String()
	remote := conn.RemoteAddr().String()
	l.logConnState(connID, remote, "", "CONNECTED")
	defer l.logConnState(connID, remote, "CONNECTED", "CLOSED")

	reader := wire.NewMessageReader()
	buf := make([]byte, readBufferSize)
	for !reader.BodyComplete() {
		n, err := conn.Read(buf)
		if n > 0 {
			if rerr := reader.Read(buf[:n]); rerr != nil {
				l.logError(connID, rerr, "parsing notification")
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				l.logError(connID, err, "reading connection")
			}
			if !reader.BodyComplete() {
				return // peer went away mid-message
			}
		}
	}

	_, _ = conn.Write([]byte(ackResponse))

	body := append([]byte(nil), reader.Body()...)
	l.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		RemoteAddr:   remote,
		Message:      log.NewMessageEvent(body),
	})
	l.emit(body)
}

// emit raises the notification event unless the listener has been stopped
// in the meantime. Holding mu guarantees Stop cannot return while an
// emission is in progress.
func (l *HTTPListener) emit(body []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running.Load() || l.onNotification == nil {
		return
	}
	l.onNotification(body)
}

func (l *HTTPListener) logState(entity log.StateEntity, oldState, newState, reason string) {
	l.config.Logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerTransport,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (l *HTTPListener) logConnState(connID, remote, oldState, newState string) {
	l.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		RemoteAddr:   remote,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: oldState,
			NewState: newState,
		},
	})
}

func (l *HTTPListener) logError(connID string, err error, context string) {
	l.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: context,
		},
	})
}

// Compile-time interface satisfaction check.
var _ Listener = (*HTTPListener)(nil)
