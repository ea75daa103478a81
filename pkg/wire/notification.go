package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrBadPayload indicates a notification body that cannot be decoded.
var ErrBadPayload = errors.New("malformed notification payload")

// Metadata annotates a single attribute value on the wire.
type Metadata struct {
	Type  string          `json:"type,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Attribute is a named, typed value in the broker's normalized entity form.
type Attribute struct {
	Type     string              `json:"type,omitempty"`
	Value    json.RawMessage     `json:"value"`
	Metadata map[string]Metadata `json:"metadata,omitempty"`
}

// Entity is one entity in normalized form: "id" and "type" at the top
// level, every other key an attribute.
type Entity struct {
	ID         string
	Type       string
	Attributes map[string]Attribute
}

// UnmarshalJSON decodes the normalized entity form.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.Attributes = make(map[string]Attribute, len(raw))
	for key, val := range raw {
		switch key {
		case "id":
			if err := json.Unmarshal(val, &e.ID); err != nil {
				return fmt.Errorf("entity id: %w", err)
			}
		case "type":
			if err := json.Unmarshal(val, &e.Type); err != nil {
				return fmt.Errorf("entity type: %w", err)
			}
		default:
			var attr Attribute
			if err := json.Unmarshal(val, &attr); err != nil {
				return fmt.Errorf("attribute %q: %w", key, err)
			}
			e.Attributes[key] = attr
		}
	}
	return nil
}

// MarshalJSON encodes back into normalized form.
func (e Entity) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Attributes)+2)
	out["id"] = e.ID
	out["type"] = e.Type
	for name, attr := range e.Attributes {
		out[name] = attr
	}
	return json.Marshal(out)
}

// Notification is a decoded notification body. Exactly one of the two
// delivery forms is populated:
//   - full-entity: Data holds one or more complete entities
//   - attribute-diff: EntityID names the entity and Changes holds the
//     changed attribute values
type Notification struct {
	SubscriptionID string                     `json:"subscriptionId"`
	Data           []Entity                   `json:"data,omitempty"`
	EntityID       string                     `json:"entityId,omitempty"`
	Changes        map[string]json.RawMessage `json:"changes,omitempty"`
}

// IsDiff reports whether this is an attribute-diff notification.
func (n *Notification) IsDiff() bool {
	return len(n.Data) == 0 && n.EntityID != ""
}

// ParseNotification decodes a complete message body. The body must carry a
// subscription id and either entity data or an entity-id/changes pair.
func ParseNotification(body []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if n.SubscriptionID == "" {
		return nil, fmt.Errorf("%w: missing subscription id", ErrBadPayload)
	}
	if len(n.Data) == 0 && (n.EntityID == "" || len(n.Changes) == 0) {
		return nil, fmt.Errorf("%w: neither entity data nor changes present", ErrBadPayload)
	}
	return &n, nil
}
