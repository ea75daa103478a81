package contract

import (
	"reflect"
)

// AttributeDescriptor maps one native struct field onto a wire attribute.
// Descriptors are derived once at contract-build time and never mutated.
type AttributeDescriptor struct {
	// FieldName is the native Go field name.
	FieldName string

	// Index is the reflect field index path.
	Index []int

	// Name is the wire attribute name.
	Name string

	// Type is the wire attribute type tag. Empty for raw passthrough
	// attributes, which carry their type inline.
	Type string

	// GoType is the native value shape.
	GoType reflect.Type

	// ReadOnly attributes are never written outbound.
	ReadOnly bool

	// Raw marks a raw passthrough container (json.RawMessage): the wire
	// value is copied verbatim, no type derivation or decoding.
	Raw bool

	// SkipEncode bypasses the field/value encoder. Forced true for
	// TextUnrestricted attributes.
	SkipEncode bool
}

// MetadataDescriptor maps a native field holding a metadata bag to the wire
// attribute it annotates.
type MetadataDescriptor struct {
	// FieldName is the native Go field name.
	FieldName string

	// Index is the reflect field index path.
	Index []int

	// Attribute is the wire name of the annotated attribute.
	Attribute string
}

// fieldRef locates the id or type field within the target struct.
type fieldRef struct {
	name  string
	index []int
}

// Contract is the resolved, immutable mapping between a native struct type
// and its wire representation. Safe for concurrent reads.
type Contract struct {
	target  reflect.Type
	id      fieldRef
	typ     fieldRef
	attrs   []AttributeDescriptor
	meta    map[string]MetadataDescriptor
	dynamic bool
}

// Target returns the native struct type this contract describes.
func (c *Contract) Target() reflect.Type { return c.target }

// Dynamic reports whether this is the synthetic untyped-entity contract.
func (c *Contract) Dynamic() bool { return c.dynamic }

// IDField returns the name of the native field carrying the entity id.
func (c *Contract) IDField() string { return c.id.name }

// TypeField returns the name of the native field carrying the entity type.
func (c *Contract) TypeField() string { return c.typ.name }

// Attributes returns the attribute descriptors in field declaration order.
// Callers must not modify the returned slice.
func (c *Contract) Attributes() []AttributeDescriptor { return c.attrs }

// Attribute looks up a descriptor by wire attribute name.
func (c *Contract) Attribute(wireName string) (AttributeDescriptor, bool) {
	for _, d := range c.attrs {
		if d.Name == wireName {
			return d, true
		}
	}
	return AttributeDescriptor{}, false
}

// Metadata returns the metadata descriptors keyed by the wire attribute
// name they annotate. Callers must not modify the returned map.
func (c *Contract) Metadata() map[string]MetadataDescriptor { return c.meta }

// EntityID returns the entity id of a typed instance. The instance must be
// of the contract's target type or a pointer to it; anything else returns
// the empty string.
func (c *Contract) EntityID(instance any) string {
	v := reflect.ValueOf(instance)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if v.Type() != c.target {
		return ""
	}
	return v.FieldByIndex(c.id.index).String()
}
