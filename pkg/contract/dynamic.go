package contract

import (
	"reflect"

	"github.com/fabianspitzer/fiwarenet-go/pkg/wire"
)

// DynamicEntity gives fully-untyped access to an entity: id, type, and the
// raw wire attributes, with no contract-declared attribute set.
type DynamicEntity struct {
	ID         string
	Type       string
	Attributes map[string]wire.Attribute
}

var (
	dynamicType = reflect.TypeOf(DynamicEntity{})

	// dynamicContract is the one synthetic contract shared by every
	// DynamicEntity resolution. It exposes only the id and type slots.
	dynamicContract = &Contract{
		target:  dynamicType,
		id:      fieldRef{name: "ID", index: []int{0}},
		typ:     fieldRef{name: "Type", index: []int{1}},
		meta:    map[string]MetadataDescriptor{},
		dynamic: true,
	}
)
