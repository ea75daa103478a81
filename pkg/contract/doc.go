// Package contract maps application record types onto the broker's wire
// attribute model.
//
// A Contract is resolved once per Go struct type by reflection and then
// cached for the process lifetime. It records which field carries the
// entity id, which carries the entity type, and one attribute descriptor
// per remaining field (native name, wire name, wire type tag, flags).
//
// # Field Tags
//
// Fields are annotated with a "fiware" struct tag holding comma-separated
// directives:
//
//	type Room struct {
//	    ID       string  `fiware:"id"`
//	    Type     string  `fiware:"type"`
//	    Temp     float64 `fiware:"name:temperature"`
//	    Serial   string  `fiware:"readonly,attrtype:Text"`
//	    Comment  string  `fiware:"attrtype:TextUnrestricted"`
//	    Internal string  `fiware:"-"`
//	    TempMeta map[string]wire.Metadata `fiware:"metadata:temperature"`
//	}
//
// Directives:
//   - "-"            ignore the field entirely
//   - id             field carries the entity id
//   - type           field carries the entity type
//   - name:<n>       explicit wire attribute name
//   - attrtype:<t>   explicit wire attribute type tag
//   - readonly       never written outbound
//   - noencode       bypass the field/value encoder for this attribute
//   - metadata:<n>   field holds the metadata bag for attribute <n>
//
// Untagged fields named "id" or "type" (any case) fill the id/type slots by
// convention. Exactly one field must end up in each slot; duplicates or a
// missing slot fail resolution with a contract error.
//
// # Dynamic Entities
//
// DynamicEntity is an escape hatch for fully-untyped access: it always
// resolves to a fixed synthetic contract exposing only id and type, without
// touching the cache.
package contract
