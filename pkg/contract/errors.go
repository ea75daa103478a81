package contract

import (
	"errors"
	"fmt"
	"reflect"
)

// Error taxonomy. Every resolution or codec failure unwraps to exactly one
// of these sentinels.
var (
	// ErrContract indicates a structural violation in the candidate type:
	// missing or duplicate id/type designation, empty required names,
	// conflicting directives.
	ErrContract = errors.New("contract error")

	// ErrType indicates no wire type mapping exists for a native shape.
	ErrType = errors.New("type mapping error")

	// ErrSerialization indicates an unsuitable candidate type or a payload
	// that cannot be decoded. Fatal only to the single operation; never
	// cached.
	ErrSerialization = errors.New("serialization error")
)

// ContractError reports a structural violation while building a contract.
type ContractError struct {
	Target reflect.Type
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("contract error: %s field %s: %s", e.Target, e.Field, e.Reason)
	}
	return fmt.Sprintf("contract error: %s: %s", e.Target, e.Reason)
}

// Unwrap returns ErrContract.
func (e *ContractError) Unwrap() error { return ErrContract }

// TypeError reports a field whose native shape has no wire type mapping.
type TypeError struct {
	Target reflect.Type
	Field  string
	GoType reflect.Type
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("type mapping error: %s field %s: no wire type for %s", e.Target, e.Field, e.GoType)
}

// Unwrap returns ErrType.
func (e *TypeError) Unwrap() error { return ErrType }

// SerializationError reports an unsuitable candidate type or an undecodable
// payload.
type SerializationError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("serialization error: %s: %v", e.Reason, e.Err)
	}
	return "serialization error: " + e.Reason
}

// Unwrap returns ErrSerialization.
func (e *SerializationError) Unwrap() error { return ErrSerialization }
