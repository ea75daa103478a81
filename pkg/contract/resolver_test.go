package contract

import (
	"encoding/json"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabianspitzer/fiwarenet-go/pkg/wire"
)

type room struct {
	ID          string  `fiware:"id"`
	Type        string  `fiware:"type"`
	Temperature float64 `fiware:"name:temperature"`
	Pressure    int
	Serial      string                   `fiware:"readonly"`
	Comment     string                   `fiware:"attrtype:TextUnrestricted"`
	Raw         json.RawMessage          `fiware:"name:extra"`
	TempMeta    map[string]wire.Metadata `fiware:"metadata:temperature"`
	Dangling    map[string]wire.Metadata `fiware:"metadata:nonexistent"`
	Hidden      string                   `fiware:"-"`
	internal    string
}

func TestResolveBasic(t *testing.T) {
	r := NewResolver(nil)
	c, err := r.Resolve(reflect.TypeOf(room{}))
	require.NoError(t, err)

	assert.Equal(t, "ID", c.IDField())
	assert.Equal(t, "Type", c.TypeField())
	assert.False(t, c.Dynamic())

	// Ignored and unexported fields produce no descriptors; the id/type
	// slots are not attributes.
	require.Len(t, c.Attributes(), 5)

	temp, ok := c.Attribute("temperature")
	require.True(t, ok)
	assert.Equal(t, "Temperature", temp.FieldName)
	assert.Equal(t, TypeNumber, temp.Type)
	assert.False(t, temp.ReadOnly)

	// Untagged fields use their field name and a derived wire type.
	pressure, ok := c.Attribute("Pressure")
	require.True(t, ok)
	assert.Equal(t, TypeNumber, pressure.Type)

	serial, ok := c.Attribute("Serial")
	require.True(t, ok)
	assert.True(t, serial.ReadOnly)
	assert.Equal(t, TypeText, serial.Type)

	// Unrestricted text always skips encoding.
	comment, ok := c.Attribute("Comment")
	require.True(t, ok)
	assert.True(t, comment.SkipEncode)

	// Raw passthrough containers carry no derived wire type.
	raw, ok := c.Attribute("extra")
	require.True(t, ok)
	assert.True(t, raw.Raw)
	assert.Empty(t, raw.Type)

	_, ok = c.Attribute("Hidden")
	assert.False(t, ok)
}

func TestResolveMetadataPruning(t *testing.T) {
	r := NewResolver(nil)
	c, err := r.Resolve(reflect.TypeOf(room{}))
	require.NoError(t, err)

	// The bag for "temperature" survives; the dangling reference to a
	// nonexistent attribute is pruned, not an error.
	require.Contains(t, c.Metadata(), "temperature")
	assert.Equal(t, "TempMeta", c.Metadata()["temperature"].FieldName)
	assert.NotContains(t, c.Metadata(), "nonexistent")
}

func TestResolveCacheHit(t *testing.T) {
	r := NewResolver(nil)
	first, err := r.Resolve(reflect.TypeOf(room{}))
	require.NoError(t, err)

	// Second resolution is a cache hit: the identical contract value, not
	// a re-analysis.
	second, err := r.Resolve(reflect.TypeOf(&room{}))
	require.NoError(t, err)
	assert.Same(t, first, second)

	r.ClearCache()
	third, err := r.Resolve(reflect.TypeOf(room{}))
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, first.Attributes(), third.Attributes())
}

func TestResolveConcurrent(t *testing.T) {
	r := NewResolver(nil)

	var wg sync.WaitGroup
	results := make([]*Contract, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := r.Resolve(reflect.TypeOf(room{}))
			assert.NoError(t, err)
			results[i] = c
		}(i)
	}
	wg.Wait()

	for _, c := range results[1:] {
		assert.Same(t, results[0], c)
	}
}

func TestResolveStructuralConvention(t *testing.T) {
	type sensor struct {
		Id    string // convention: fills the id slot
		TYPE  string // convention: fills the type slot
		Value float64
	}

	c, err := NewResolver(nil).Resolve(reflect.TypeOf(sensor{}))
	require.NoError(t, err)
	assert.Equal(t, "Id", c.IDField())
	assert.Equal(t, "TYPE", c.TypeField())
	require.Len(t, c.Attributes(), 1)
}

func TestResolveContractErrors(t *testing.T) {
	type duplicateID struct {
		A string `fiware:"id"`
		B string `fiware:"id"`
		T string `fiware:"type"`
	}
	type noID struct {
		T     string `fiware:"type"`
		Value int
	}
	type noType struct {
		ID string
	}
	type bothSlots struct {
		A string `fiware:"id,type"`
	}
	type nonStringID struct {
		ID   int
		Type string
	}
	type duplicateName struct {
		ID   string
		Type string
		A    int `fiware:"name:x"`
		B    int `fiware:"name:x"`
	}
	type emptyName struct {
		ID   string
		Type string
		A    int `fiware:"name:"`
	}

	tests := []struct {
		name   string
		target any
	}{
		{name: "duplicate id designation", target: duplicateID{}},
		{name: "no id designation", target: noID{}},
		{name: "no type designation", target: noType{}},
		{name: "id and type on one field", target: bothSlots{}},
		{name: "non-string id", target: nonStringID{}},
		{name: "duplicate wire name", target: duplicateName{}},
		{name: "empty wire name", target: emptyName{}},
	}

	r := NewResolver(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(reflect.TypeOf(tt.target))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrContract)
		})
	}
}

func TestResolveTypeError(t *testing.T) {
	type badShape struct {
		ID   string
		Type string
		Ch   chan int
	}

	_, err := NewResolver(nil).Resolve(reflect.TypeOf(badShape{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrType)

	var te *TypeError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "Ch", te.Field)
}

func TestResolveUnsuitableTypes(t *testing.T) {
	r := NewResolver(nil)
	for _, target := range []any{42, "text", []string{"a"}, map[string]int{}, 3.14} {
		_, err := r.Resolve(reflect.TypeOf(target))
		assert.ErrorIs(t, err, ErrSerialization, "target %T", target)
	}

	_, err := r.ResolveValue(nil)
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestResolveDynamicBypassesCache(t *testing.T) {
	r := NewResolver(nil)
	c1, err := r.Resolve(reflect.TypeOf(DynamicEntity{}))
	require.NoError(t, err)
	assert.True(t, c1.Dynamic())
	assert.Empty(t, c1.Attributes())

	// Clearing the cache cannot touch the synthetic contract.
	r.ClearCache()
	c2, err := r.Resolve(reflect.TypeOf(&DynamicEntity{}))
	require.NoError(t, err)
	assert.Same(t, c1, c2)
}

func TestResolveCustomMapper(t *testing.T) {
	c, err := NewResolver(mapperFunc(func(reflect.Type) (string, bool) {
		return "Custom", true
	})).Resolve(reflect.TypeOf(struct {
		ID    string
		Type  string
		Value int
	}{}))
	require.NoError(t, err)

	d, ok := c.Attribute("Value")
	require.True(t, ok)
	assert.Equal(t, "Custom", d.Type)
}

type mapperFunc func(reflect.Type) (string, bool)

func (f mapperFunc) FindBestMatch(t reflect.Type) (string, bool) { return f(t) }

func TestParseTagErrors(t *testing.T) {
	type unknownDirective struct {
		ID   string
		Type string
		A    int `fiware:"bogus"`
	}
	type metadataConflict struct {
		ID   string
		Type string
		A    map[string]wire.Metadata `fiware:"metadata:x,name:y"`
	}

	r := NewResolver(nil)
	_, err := r.Resolve(reflect.TypeOf(unknownDirective{}))
	assert.ErrorIs(t, err, ErrContract)

	_, err = r.Resolve(reflect.TypeOf(metadataConflict{}))
	assert.ErrorIs(t, err, ErrContract)
}
