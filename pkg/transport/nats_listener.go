package transport

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/fabianspitzer/fiwarenet-go/pkg/log"
)

// NATSListenerConfig configures a NATSListener.
type NATSListenerConfig struct {
	// URL of the broker (e.g. nats.DefaultURL). Ignored when Conn is set.
	URL string

	// Topic is the exact subject notifications arrive on.
	Topic string

	// Conn is an optional pre-established connection. The listener does
	// not close a connection it does not own.
	Conn *nats.Conn

	// Name identifies this client to the broker (optional).
	Name string

	// Logger for pipeline logging (optional).
	Logger log.Logger
}

// NATSListener receives notifications from a publish/subscribe broker
// topic and forwards each payload through the common notification event.
// Message delivery concurrency is the broker runtime's; the topic filter
// and forwarding are stateless per message.
type NATSListener struct {
	config    NATSListenerConfig
	sessionID string

	conn     *nats.Conn
	ownsConn bool
	sub      *nats.Subscription
	running  atomic.Bool

	// mu serializes lifecycle transitions and event emission, so that no
	// notification event fires after Stop returns.
	mu             sync.Mutex
	onNotification func([]byte)
	onError        func(error)
}

// NewNATSListener creates a listener for the given config.
func NewNATSListener(config NATSListenerConfig) (*NATSListener, error) {
	if config.Topic == "" {
		return nil, ErrMissingTopic
	}
	if config.URL == "" && config.Conn == nil {
		return nil, ErrMissingAddress
	}
	if config.Logger == nil {
		config.Logger = log.NoopLogger{}
	}
	return &NATSListener{
		config:    config,
		sessionID: uuid.New().String(),
	}, nil
}

// OnNotification sets the notification callback. Set before Start.
func (l *NATSListener) OnNotification(fn func(body []byte)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onNotification = fn
}

// OnError sets the fault callback. Set before Start.
func (l *NATSListener) OnError(fn func(err error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onError = fn
}

// IsStarted reports whether the listener is subscribed.
func (l *NATSListener) IsStarted() bool { return l.running.Load() }

// Start connects (unless a connection was injected) and subscribes to the
// configured topic.
func (l *NATSListener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running.Load() {
		return ErrAlreadyStarted
	}

	conn := l.config.Conn
	if conn == nil {
		var err error
		conn, err = nats.Connect(l.config.URL,
			nats.Name(l.config.Name),
			nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
				l.fault(err)
			}),
		)
		if err != nil {
			return err
		}
		l.ownsConn = true
	}
	l.conn = conn

	sub, err := conn.Subscribe(l.config.Topic, l.handleMessage)
	if err != nil {
		if l.ownsConn {
			conn.Close()
			l.conn = nil
			l.ownsConn = false
		}
		return err
	}
	l.sub = sub
	l.running.Store(true)

	l.logState("STOPPED", "STARTED")
	return nil
}

// Stop unsubscribes and closes the connection if this listener owns it.
// Idempotent; faults after a deliberate stop are discarded. Must not be
// called from inside the notification callback.
func (l *NATSListener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running.Load() {
		return nil
	}
	l.running.Store(false)

	if l.sub != nil {
		_ = l.sub.Unsubscribe()
		l.sub = nil
	}
	if l.ownsConn && l.conn != nil {
		l.conn.Close()
	}
	l.conn = nil
	l.ownsConn = false

	l.logState("STARTED", "STOPPED")
	return nil
}

// handleMessage forwards one broker message as a complete notification
// body. Subjects other than the configured topic are dropped; the broker
// already routes by subject, the check guards against wildcard
// subscriptions arriving through an injected connection.
func (l *NATSListener) handleMessage(msg *nats.Msg) {
	if msg.Subject != l.config.Topic {
		return
	}

	l.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: l.sessionID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		Topic:        msg.Subject,
		Message:      log.NewMessageEvent(msg.Data),
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running.Load() || l.onNotification == nil {
		return
	}
	l.onNotification(msg.Data)
}

// fault surfaces an asynchronous broker error unless the listener has been
// deliberately stopped.
func (l *NATSListener) fault(err error) {
	if err == nil || !l.running.Load() {
		return
	}
	l.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: l.sessionID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryError,
		Topic:        l.config.Topic,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: "broker subscription",
		},
	})

	l.mu.Lock()
	onErr := l.onError
	l.mu.Unlock()
	if onErr != nil {
		onErr(err)
	}
}

func (l *NATSListener) logState(oldState, newState string) {
	l.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: l.sessionID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		Topic:        l.config.Topic,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityListener,
			OldState: oldState,
			NewState: newState,
		},
	})
}

// Compile-time interface satisfaction check.
var _ Listener = (*NATSListener)(nil)
