package contract

import (
	"reflect"
	"time"
)

// Well-known wire attribute type tags.
const (
	// TypeText is an encoded text value.
	TypeText = "Text"

	// TypeTextUnrestricted is free text the broker accepts verbatim.
	// Attributes with this wire type always bypass the value encoder.
	TypeTextUnrestricted = "TextUnrestricted"

	// TypeNumber is any numeric value.
	TypeNumber = "Number"

	// TypeBoolean is a boolean value.
	TypeBoolean = "Boolean"

	// TypeDateTime is an ISO 8601 timestamp.
	TypeDateTime = "DateTime"

	// TypeStructured is a nested object or list.
	TypeStructured = "StructuredValue"
)

// TypeMapper derives a wire attribute type tag from a native value shape.
// The resolver consults it for every attribute without an explicit
// attrtype directive.
type TypeMapper interface {
	// FindBestMatch returns the wire type for t, or false when no mapping
	// exists. A false return fails that field's resolution with a type
	// mapping error.
	FindBestMatch(t reflect.Type) (string, bool)
}

// DefaultTypeMapper maps common Go shapes onto the broker's standard type
// tags.
var DefaultTypeMapper TypeMapper = defaultTypeMapper{}

type defaultTypeMapper struct{}

var timeType = reflect.TypeOf(time.Time{})

func (defaultTypeMapper) FindBestMatch(t reflect.Type) (string, bool) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return TypeDateTime, true
	}

	switch t.Kind() {
	case reflect.Bool:
		return TypeBoolean, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return TypeNumber, true
	case reflect.String:
		return TypeText, true
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		return TypeStructured, true
	default:
		return "", false
	}
}
