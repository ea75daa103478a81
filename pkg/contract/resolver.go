package contract

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// TagKey is the struct tag inspected by the resolver.
const TagKey = "fiware"

// Resolver builds and caches contracts. The zero value is not usable; use
// NewResolver. All methods are safe for concurrent use; under contention a
// contract may be built more than once, but the cache only ever exposes
// complete, validated contracts.
type Resolver struct {
	mu     sync.RWMutex
	cache  map[reflect.Type]*Contract
	mapper TypeMapper
}

// NewResolver creates a resolver. A nil mapper selects DefaultTypeMapper.
func NewResolver(mapper TypeMapper) *Resolver {
	if mapper == nil {
		mapper = DefaultTypeMapper
	}
	return &Resolver{
		cache:  make(map[reflect.Type]*Contract),
		mapper: mapper,
	}
}

var defaultResolver = NewResolver(nil)

// Resolve resolves a contract using the package-level default resolver.
func Resolve(t reflect.Type) (*Contract, error) { return defaultResolver.Resolve(t) }

// ResolveValue resolves the contract for a value's type using the
// package-level default resolver.
func ResolveValue(v any) (*Contract, error) { return defaultResolver.ResolveValue(v) }

// ClearCache clears the package-level default resolver's cache.
func ClearCache() { defaultResolver.ClearCache() }

// ResolveValue resolves the contract for a value's type.
func (r *Resolver) ResolveValue(v any) (*Contract, error) {
	if v == nil {
		return nil, &SerializationError{Reason: "cannot resolve contract for nil value"}
	}
	return r.Resolve(reflect.TypeOf(v))
}

// Resolve returns the contract for t, building and caching it on first
// resolution. Pointer types resolve to their element's contract.
// DynamicEntity bypasses the cache and returns the fixed synthetic
// contract.
func (r *Resolver) Resolve(t reflect.Type) (*Contract, error) {
	if t == nil {
		return nil, &SerializationError{Reason: "cannot resolve contract for nil type"}
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == dynamicType {
		return dynamicContract, nil
	}
	if t.Kind() != reflect.Struct {
		return nil, &SerializationError{
			Reason: fmt.Sprintf("cannot build contract for %s; entities must be struct types", t),
		}
	}

	r.mu.RLock()
	c, ok := r.cache[t]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	c, err := r.build(t)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache[t]; ok {
		// Another goroutine won the race; its contract is equivalent.
		return cached, nil
	}
	r.cache[t] = c
	return c, nil
}

// ClearCache discards all cached contracts.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[reflect.Type]*Contract)
}

var rawMessageType = reflect.TypeOf(json.RawMessage(nil))

// build performs the full per-field analysis for t.
func (r *Resolver) build(t reflect.Type) (*Contract, error) {
	c := &Contract{target: t, meta: make(map[string]MetadataDescriptor)}
	names := make(map[string]string) // wire name -> field, duplicate detection
	var pendingMeta []MetadataDescriptor

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue // unexported, unreadable
		}

		dir, err := parseTag(field.Tag.Get(TagKey))
		if err != nil {
			return nil, &ContractError{Target: t, Field: field.Name, Reason: err.Error()}
		}
		if dir.ignore {
			continue
		}

		if dir.metadataFor != "" {
			if dir.id || dir.typ || dir.name != "" || dir.attrType != "" {
				return nil, &ContractError{Target: t, Field: field.Name,
					Reason: "metadata directive conflicts with attribute directives"}
			}
			pendingMeta = append(pendingMeta, MetadataDescriptor{
				FieldName: field.Name,
				Index:     field.Index,
				Attribute: dir.metadataFor,
			})
			continue
		}

		if dir.id && dir.typ {
			return nil, &ContractError{Target: t, Field: field.Name,
				Reason: "field claims both id and type"}
		}
		if dir.id {
			if err := c.claimID(field); err != nil {
				return nil, err
			}
			continue
		}
		if dir.typ {
			if err := c.claimType(field); err != nil {
				return nil, err
			}
			continue
		}

		// Structural convention: fields literally named id or type fill
		// the corresponding slot when no explicit wire name is given.
		if dir.name == "" {
			if strings.EqualFold(field.Name, "id") {
				if err := c.claimID(field); err != nil {
					return nil, err
				}
				continue
			}
			if strings.EqualFold(field.Name, "type") {
				if err := c.claimType(field); err != nil {
					return nil, err
				}
				continue
			}
		}

		d, err := r.buildAttribute(t, field, dir)
		if err != nil {
			return nil, err
		}
		if prev, dup := names[d.Name]; dup {
			return nil, &ContractError{Target: t, Field: field.Name,
				Reason: fmt.Sprintf("wire attribute %q already mapped by field %s", d.Name, prev)}
		}
		names[d.Name] = field.Name
		c.attrs = append(c.attrs, d)
	}

	if c.id.name == "" {
		return nil, &ContractError{Target: t, Reason: "no field designates the entity id"}
	}
	if c.typ.name == "" {
		return nil, &ContractError{Target: t, Reason: "no field designates the entity type"}
	}

	// Metadata referencing an attribute this contract does not expose is
	// configuration drift, not an error: prune it silently.
	for _, md := range pendingMeta {
		if _, ok := names[md.Attribute]; !ok {
			continue
		}
		if prev, dup := c.meta[md.Attribute]; dup {
			return nil, &ContractError{Target: t, Field: md.FieldName,
				Reason: fmt.Sprintf("attribute %q already has metadata field %s", md.Attribute, prev.FieldName)}
		}
		c.meta[md.Attribute] = md
	}

	return c, nil
}

// buildAttribute derives the descriptor for a regular attribute field.
func (r *Resolver) buildAttribute(t reflect.Type, field reflect.StructField, dir tagDirectives) (AttributeDescriptor, error) {
	d := AttributeDescriptor{
		FieldName:  field.Name,
		Index:      field.Index,
		Name:       field.Name,
		GoType:     field.Type,
		ReadOnly:   dir.readOnly,
		SkipEncode: dir.noEncode,
	}
	if dir.name != "" {
		d.Name = dir.name
	}

	ft := field.Type
	for ft.Kind() == reflect.Pointer {
		ft = ft.Elem()
	}
	d.Raw = ft == rawMessageType

	switch {
	case dir.attrType != "":
		d.Type = dir.attrType
	case d.Raw:
		// Raw containers carry their wire type inline.
	default:
		wt, ok := r.mapper.FindBestMatch(field.Type)
		if !ok {
			return AttributeDescriptor{}, &TypeError{Target: t, Field: field.Name, GoType: field.Type}
		}
		d.Type = wt
	}

	// Unrestricted text is transmitted verbatim, whatever the tag said.
	if d.Type == TypeTextUnrestricted {
		d.SkipEncode = true
	}
	return d, nil
}

// claimID fills the contract's id slot.
func (c *Contract) claimID(field reflect.StructField) error {
	if c.id.name != "" {
		return &ContractError{Target: c.target, Field: field.Name,
			Reason: "entity id already designated by field " + c.id.name}
	}
	if field.Type.Kind() != reflect.String {
		return &ContractError{Target: c.target, Field: field.Name,
			Reason: "entity id field must be a string"}
	}
	c.id = fieldRef{name: field.Name, index: field.Index}
	return nil
}

// claimType fills the contract's type slot.
func (c *Contract) claimType(field reflect.StructField) error {
	if c.typ.name != "" {
		return &ContractError{Target: c.target, Field: field.Name,
			Reason: "entity type already designated by field " + c.typ.name}
	}
	if field.Type.Kind() != reflect.String {
		return &ContractError{Target: c.target, Field: field.Name,
			Reason: "entity type field must be a string"}
	}
	c.typ = fieldRef{name: field.Name, index: field.Index}
	return nil
}

// tagDirectives is the parsed form of one fiware struct tag.
type tagDirectives struct {
	ignore      bool
	id          bool
	typ         bool
	readOnly    bool
	noEncode    bool
	name        string
	attrType    string
	metadataFor string
}

// parseTag parses a comma-separated directive list. Key-value directives
// use a colon; bare words are boolean flags. An ignore directive
// short-circuits everything else.
func parseTag(tag string) (tagDirectives, error) {
	var dir tagDirectives
	if tag == "" {
		return dir, nil
	}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "-" {
			return tagDirectives{ignore: true}, nil
		}

		key, value := part, ""
		if sep := strings.IndexByte(part, ':'); sep >= 0 {
			key = part[:sep]
			value = strings.TrimSpace(part[sep+1:])
		}

		switch key {
		case "id":
			dir.id = true
		case "type":
			dir.typ = true
		case "readonly":
			dir.readOnly = true
		case "noencode":
			dir.noEncode = true
		case "name":
			if value == "" {
				return dir, fmt.Errorf("empty attribute name")
			}
			dir.name = value
		case "attrtype":
			if value == "" {
				return dir, fmt.Errorf("empty attribute type")
			}
			dir.attrType = value
		case "metadata":
			if value == "" {
				return dir, fmt.Errorf("empty metadata attribute reference")
			}
			dir.metadataFor = value
		case "":
			// Tolerate trailing commas.
		default:
			return dir, fmt.Errorf("unknown directive %q", key)
		}
	}
	return dir, nil
}
