package contract

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fabianspitzer/fiwarenet-go/pkg/encoding"
	"github.com/fabianspitzer/fiwarenet-go/pkg/wire"
)

var metadataBagType = reflect.TypeOf(map[string]wire.Metadata(nil))

// Decode populates a typed instance from a wire entity. dst must be a
// non-nil pointer to the contract's target type. Attribute names arriving
// from the broker are strict-decoded before matching; string values are
// strict-decoded unless the descriptor says otherwise. Attributes the
// contract does not declare are ignored. A nil codec selects
// encoding.Percent.
func (c *Contract) Decode(e *wire.Entity, dst any, enc *encoding.Codec) error {
	if enc == nil {
		enc = encoding.Percent
	}
	v, err := c.instance(dst, true)
	if err != nil {
		return err
	}

	attrs := make(map[string]wire.Attribute, len(e.Attributes))
	for name, attr := range e.Attributes {
		attrs[enc.DecodeFieldStrict(name)] = attr
	}

	if c.dynamic {
		d := v.Addr().Interface().(*DynamicEntity)
		d.ID = enc.DecodeFieldStrict(e.ID)
		d.Type = enc.DecodeFieldStrict(e.Type)
		d.Attributes = attrs
		return nil
	}

	v.FieldByIndex(c.id.index).SetString(enc.DecodeFieldStrict(e.ID))
	v.FieldByIndex(c.typ.index).SetString(enc.DecodeFieldStrict(e.Type))

	for _, d := range c.attrs {
		attr, ok := attrs[d.Name]
		if !ok {
			continue
		}
		if err := decodeValue(d, attr, v.FieldByIndex(d.Index), enc); err != nil {
			return &SerializationError{
				Reason: fmt.Sprintf("decoding attribute %q into %s.%s", d.Name, c.target, d.FieldName),
				Err:    err,
			}
		}
	}

	for attrName, md := range c.meta {
		attr, ok := attrs[attrName]
		if !ok || len(attr.Metadata) == 0 {
			continue
		}
		bag := make(map[string]wire.Metadata, len(attr.Metadata))
		for name, m := range attr.Metadata {
			bag[enc.DecodeFieldStrict(name)] = m
		}
		fv := v.FieldByIndex(md.Index)
		if fv.Type() == metadataBagType {
			fv.Set(reflect.ValueOf(bag))
		}
	}
	return nil
}

// Encode builds a wire entity from a typed instance, honoring read-only
// (skipped), raw passthrough, and the field/value encoder. Nil pointer
// fields and empty raw containers are omitted. A nil codec selects
// encoding.Percent.
func (c *Contract) Encode(src any, enc *encoding.Codec) (*wire.Entity, error) {
	if enc == nil {
		enc = encoding.Percent
	}
	v, err := c.instance(src, false)
	if err != nil {
		return nil, err
	}

	e := &wire.Entity{Attributes: make(map[string]wire.Attribute)}

	if c.dynamic {
		d := v.Interface().(DynamicEntity)
		e.ID = enc.EncodeField(d.ID)
		e.Type = enc.EncodeField(d.Type)
		for name, attr := range d.Attributes {
			e.Attributes[enc.EncodeField(name)] = attr
		}
		return e, nil
	}

	e.ID = enc.EncodeField(v.FieldByIndex(c.id.index).String())
	e.Type = enc.EncodeField(v.FieldByIndex(c.typ.index).String())

	for _, d := range c.attrs {
		if d.ReadOnly {
			continue
		}
		attr, ok, err := encodeValue(d, v.FieldByIndex(d.Index), enc)
		if err != nil {
			return nil, &SerializationError{
				Reason: fmt.Sprintf("encoding %s.%s as attribute %q", c.target, d.FieldName, d.Name),
				Err:    err,
			}
		}
		if !ok {
			continue
		}
		if md, hasMeta := c.meta[d.Name]; hasMeta {
			if bag, ok := v.FieldByIndex(md.Index).Interface().(map[string]wire.Metadata); ok && len(bag) > 0 {
				attr.Metadata = make(map[string]wire.Metadata, len(bag))
				for name, m := range bag {
					attr.Metadata[enc.EncodeField(name)] = m
				}
			}
		}
		e.Attributes[enc.EncodeField(d.Name)] = attr
	}
	return e, nil
}

// instance validates that v matches the contract's target and returns the
// addressable (for decode) or readable struct value.
func (c *Contract) instance(v any, needPointer bool) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if needPointer {
		if rv.Kind() != reflect.Pointer || rv.IsNil() {
			return reflect.Value{}, &SerializationError{
				Reason: fmt.Sprintf("decode target must be a non-nil *%s", c.target),
			}
		}
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, &SerializationError{Reason: "nil entity instance"}
		}
		rv = rv.Elem()
	}
	if rv.Type() != c.target {
		return reflect.Value{}, &SerializationError{
			Reason: fmt.Sprintf("instance type %s does not match contract target %s", rv.Type(), c.target),
		}
	}
	return rv, nil
}

// decodeValue sets one field from a wire attribute.
func decodeValue(d AttributeDescriptor, attr wire.Attribute, fv reflect.Value, enc *encoding.Codec) error {
	if d.Raw {
		raw := json.RawMessage(append([]byte(nil), attr.Value...))
		if fv.Kind() == reflect.Pointer {
			p := reflect.New(rawMessageType)
			p.Elem().Set(reflect.ValueOf(raw))
			fv.Set(p)
		} else {
			fv.Set(reflect.ValueOf(raw))
		}
		return nil
	}

	base := fv.Type()
	isPtr := base.Kind() == reflect.Pointer
	if isPtr {
		base = base.Elem()
	}

	// Text values coming off the wire are escaped; decode them before
	// assignment. Raw and unrestricted attributes skip this.
	if base.Kind() == reflect.String && !d.SkipEncode {
		var s string
		if err := json.Unmarshal(attr.Value, &s); err != nil {
			return err
		}
		sv := reflect.New(base).Elem()
		sv.SetString(enc.DecodeValueStrict(s))
		if isPtr {
			p := reflect.New(base)
			p.Elem().Set(sv)
			fv.Set(p)
		} else {
			fv.Set(sv)
		}
		return nil
	}

	return json.Unmarshal(attr.Value, fv.Addr().Interface())
}

// encodeValue builds one wire attribute from a field. The second return is
// false when the attribute should be omitted (nil pointer, empty raw).
func encodeValue(d AttributeDescriptor, fv reflect.Value, enc *encoding.Codec) (wire.Attribute, bool, error) {
	if d.Raw {
		var raw json.RawMessage
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				return wire.Attribute{}, false, nil
			}
			raw = *fv.Interface().(*json.RawMessage)
		} else {
			raw = fv.Interface().(json.RawMessage)
		}
		if len(raw) == 0 {
			return wire.Attribute{}, false, nil
		}
		return wire.Attribute{Type: d.Type, Value: append(json.RawMessage(nil), raw...)}, true, nil
	}

	rv := fv
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return wire.Attribute{}, false, nil
		}
		rv = rv.Elem()
	}

	var (
		data []byte
		err  error
	)
	if rv.Kind() == reflect.String && !d.SkipEncode {
		data, err = json.Marshal(enc.EncodeValue(rv.String()))
	} else {
		data, err = json.Marshal(rv.Interface())
	}
	if err != nil {
		return wire.Attribute{}, false, err
	}
	return wire.Attribute{Type: d.Type, Value: data}, true, nil
}
