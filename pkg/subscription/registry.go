package subscription

import (
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fabianspitzer/fiwarenet-go/pkg/contract"
	"github.com/fabianspitzer/fiwarenet-go/pkg/encoding"
	"github.com/fabianspitzer/fiwarenet-go/pkg/log"
	"github.com/fabianspitzer/fiwarenet-go/pkg/wire"
)

// Registration errors.
var (
	ErrMissingID       = errors.New("subscription id is required")
	ErrMissingCallback = errors.New("subscription callback is required")
	ErrDuplicateID     = errors.New("subscription id already registered")
)

// Mode selects what the broker pushes for a subscription.
type Mode uint8

const (
	// DeliverFull expects complete entity payloads.
	DeliverFull Mode = iota

	// DeliverDiff expects only changed attribute name/value pairs.
	DeliverDiff
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case DeliverFull:
		return "FULL"
	case DeliverDiff:
		return "DIFF"
	default:
		return "UNKNOWN"
	}
}

// Event is delivered to a registration's callback. EntityID is always
// set; at least one of Entity and Changes is present.
type Event struct {
	// EntityID identifies the changed entity.
	EntityID string

	// Entity is the typed instance: freshly decoded for full-entity
	// notifications, the last-known tracked instance for diffs. Nil for
	// a diff on an untracked entity.
	Entity any

	// Changes maps changed wire attribute names to their decoded values.
	// Nil for full-entity notifications.
	Changes map[string]any
}

// Config describes one registration.
type Config struct {
	// ID is the broker subscription id the registration answers to.
	// NewID mints one when the broker lets the client choose.
	ID string

	// Target is an instance (or pointer to one) of the record type
	// notifications decode into. Contract resolution happens at
	// registration time, so unsuitable types fail here, not on the
	// dispatch path.
	Target any

	// Mode selects full-entity or attribute-diff delivery.
	Mode Mode

	// Known pre-seeds the tracked instances for diff mode, keyed by
	// entity id. Ignored for full-entity registrations.
	Known map[string]any

	// Callback receives each dispatched event, synchronously on the
	// goroutine that decoded the notification.
	Callback func(Event)
}

// registration is one live subscription.
type registration struct {
	id       string
	mode     Mode
	contract *contract.Contract
	callback func(Event)
	known    map[string]any
}

// Registry correlates notifications to registrations by subscription id.
// Safe for concurrent use; dispatch is an O(1) id lookup.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]*registration

	resolver *contract.Resolver
	codec    *encoding.Codec
	logger   log.Logger
}

// RegistryConfig configures a Registry. All fields are optional.
type RegistryConfig struct {
	// Resolver used for contract resolution; defaults to the package
	// default resolver.
	Resolver *contract.Resolver

	// Codec used to decode wire fields and values; defaults to
	// encoding.Percent.
	Codec *encoding.Codec

	// Logger for pipeline logging.
	Logger log.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Codec == nil {
		cfg.Codec = encoding.Percent
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NoopLogger{}
	}
	return &Registry{
		subs:     make(map[string]*registration),
		resolver: cfg.Resolver,
		codec:    cfg.Codec,
		logger:   cfg.Logger,
	}
}

// NewID mints a unique subscription id.
func NewID() string { return uuid.New().String() }

// Register adds a subscription. The target type's contract is resolved
// eagerly; resolution failures propagate.
func (r *Registry) Register(cfg Config) error {
	if cfg.ID == "" {
		return ErrMissingID
	}
	if cfg.Callback == nil {
		return ErrMissingCallback
	}

	c, err := r.resolve(cfg.Target)
	if err != nil {
		return err
	}

	known := make(map[string]any, len(cfg.Known))
	if cfg.Mode == DeliverDiff {
		for id, instance := range cfg.Known {
			known[id] = instance
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.subs[cfg.ID]; exists {
		return ErrDuplicateID
	}
	r.subs[cfg.ID] = &registration{
		id:       cfg.ID,
		mode:     cfg.Mode,
		contract: c,
		callback: cfg.Callback,
		known:    known,
	}
	return nil
}

// Unregister removes a subscription. Removing an unknown id is a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, id)
}

// Count returns the number of registrations.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Track records the last-known instance for an entity id on a diff-mode
// registration, so later diffs carry it. Unknown registration ids are
// ignored.
func (r *Registry) Track(subscriptionID, entityID string, instance any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg, ok := r.subs[subscriptionID]; ok && reg.mode == DeliverDiff {
		reg.known[entityID] = instance
	}
}

// Dispatch decodes one complete notification body and raises the matching
// registration's event. Unmatched subscription ids produce no event and
// no error. The returned error is a serialization error for undecodable
// payloads; callers own the connection that produced the body and log it
// there.
func (r *Registry) Dispatch(body []byte) error {
	n, err := wire.ParseNotification(body)
	if err != nil {
		return err
	}

	r.mu.RLock()
	reg := r.subs[n.SubscriptionID]
	r.mu.RUnlock()
	if reg == nil {
		return nil
	}

	if n.IsDiff() {
		return r.dispatchDiff(reg, n)
	}
	return r.dispatchFull(reg, n)
}

// dispatchFull decodes each entity into a fresh typed instance.
func (r *Registry) dispatchFull(reg *registration, n *wire.Notification) error {
	for i := range n.Data {
		dst := reflect.New(reg.contract.Target())
		if err := reg.contract.Decode(&n.Data[i], dst.Interface(), r.codec); err != nil {
			return err
		}
		instance := dst.Interface()

		ev := Event{
			EntityID: reg.contract.EntityID(instance),
			Entity:   instance,
		}
		r.logDispatch(reg)
		reg.callback(ev)
	}
	return nil
}

// dispatchDiff raises one event carrying the decoded changes, plus the
// tracked instance when one is known for the entity.
func (r *Registry) dispatchDiff(reg *registration, n *wire.Notification) error {
	changes := make(map[string]any, len(n.Changes))
	for name, raw := range n.Changes {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return &contract.SerializationError{
				Reason: "decoding change value for attribute " + name,
				Err:    err,
			}
		}
		changes[r.codec.DecodeFieldStrict(name)] = v
	}

	entityID := r.codec.DecodeFieldStrict(n.EntityID)

	r.mu.RLock()
	instance := reg.known[entityID]
	r.mu.RUnlock()

	ev := Event{
		EntityID: entityID,
		Entity:   instance,
		Changes:  changes,
	}
	r.logDispatch(reg)
	reg.callback(ev)
	return nil
}

// resolve picks the configured resolver or the package default.
func (r *Registry) resolve(target any) (*contract.Contract, error) {
	if r.resolver != nil {
		return r.resolver.ResolveValue(target)
	}
	return contract.ResolveValue(target)
}

func (r *Registry) logDispatch(reg *registration) {
	r.logger.Log(log.Event{
		Timestamp:      time.Now(),
		Direction:      log.DirectionIn,
		Layer:          log.LayerDispatch,
		Category:       log.CategoryMessage,
		SubscriptionID: reg.id,
	})
}
