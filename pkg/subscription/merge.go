package subscription

import (
	"encoding/json"
	"reflect"

	"github.com/fabianspitzer/fiwarenet-go/pkg/contract"
)

// Merge applies a set of attribute-diff changes to a typed instance.
// dst must be a pointer to a struct with a resolvable contract. Each
// change key is matched against the wire attribute names of the
// contract first, then against the plain field names. Keys matching
// neither are ignored; broker schemas drift independently of client
// builds, so unknown attributes are expected steady state. Values that
// cannot be converted to the field's type are skipped as well.
func Merge(dst any, changes map[string]any) error {
	c, err := contract.ResolveValue(dst)
	if err != nil {
		return err
	}

	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return &contract.SerializationError{
			Reason: "merge target must be a non-nil pointer",
		}
	}
	v = v.Elem()

	for key, value := range changes {
		desc, ok := attributeFor(c, key)
		if !ok {
			continue
		}
		assign(v.FieldByIndex(desc.Index), value)
	}
	return nil
}

// attributeFor matches a change key to an attribute descriptor, by wire
// name first and by native field name second.
func attributeFor(c *contract.Contract, key string) (contract.AttributeDescriptor, bool) {
	if desc, ok := c.Attribute(key); ok {
		return desc, true
	}
	for _, desc := range c.Attributes() {
		if desc.FieldName == key {
			return desc, true
		}
	}
	return contract.AttributeDescriptor{}, false
}

// assign converts a decoded JSON value into the field's native type via
// a marshal round trip. Conversion failures leave the field untouched.
func assign(fv reflect.Value, value any) {
	if !fv.CanSet() {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	target := reflect.New(fv.Type())
	if err := json.Unmarshal(raw, target.Interface()); err != nil {
		return
	}
	fv.Set(target.Elem())
}
