package contract

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabianspitzer/fiwarenet-go/pkg/encoding"
	"github.com/fabianspitzer/fiwarenet-go/pkg/wire"
)

type car struct {
	ID      string                   `fiware:"id"`
	Type    string                   `fiware:"type"`
	Speed   float64                  `fiware:"name:speed"`
	Plate   string                   `fiware:"name:plate"`
	Note    string                   `fiware:"name:note,attrtype:TextUnrestricted"`
	Serial  string                   `fiware:"name:serial,readonly"`
	Extra   json.RawMessage
	Mileage *int                     `fiware:"name:mileage"`
	PlateMD map[string]wire.Metadata `fiware:"metadata:plate"`
}

func resolveCar(t *testing.T) *Contract {
	t.Helper()
	c, err := NewResolver(nil).Resolve(reflect.TypeOf(car{}))
	require.NoError(t, err)
	return c
}

func TestDecodeEntity(t *testing.T) {
	c := resolveCar(t)

	e := &wire.Entity{
		ID:   "Car%201", // encoded "Car 1"
		Type: "Car",
		Attributes: map[string]wire.Attribute{
			"speed": {Type: "Number", Value: json.RawMessage("104.5")},
			"plate": {
				Type:  "Text",
				Value: json.RawMessage(`"B%3BW-123"`), // encoded "B;W-123"
				Metadata: map[string]wire.Metadata{
					"issuer": {Type: "Text", Value: json.RawMessage(`"dmv"`)},
				},
			},
			"note":    {Type: TypeTextUnrestricted, Value: json.RawMessage(`"raw %3B text"`)},
			"Extra":   {Type: "StructuredValue", Value: json.RawMessage(`{"a":1}`)},
			"mileage": {Type: "Number", Value: json.RawMessage("42000")},
			"unknown": {Type: "Text", Value: json.RawMessage(`"ignored"`)},
		},
	}

	var got car
	require.NoError(t, c.Decode(e, &got, nil))

	assert.Equal(t, "Car 1", got.ID)
	assert.Equal(t, "Car", got.Type)
	assert.Equal(t, 104.5, got.Speed)
	assert.Equal(t, "B;W-123", got.Plate)
	// Unrestricted text bypasses value decoding.
	assert.Equal(t, "raw %3B text", got.Note)
	assert.JSONEq(t, `{"a":1}`, string(got.Extra))
	require.NotNil(t, got.Mileage)
	assert.Equal(t, 42000, *got.Mileage)
	require.Contains(t, got.PlateMD, "issuer")
	assert.JSONEq(t, `"dmv"`, string(got.PlateMD["issuer"].Value))
}

func TestDecodeErrors(t *testing.T) {
	c := resolveCar(t)
	e := &wire.Entity{ID: "Car1", Type: "Car", Attributes: map[string]wire.Attribute{
		"speed": {Type: "Number", Value: json.RawMessage(`"not a number"`)},
	}}

	var got car
	err := c.Decode(e, &got, nil)
	assert.ErrorIs(t, err, ErrSerialization)

	// Decode target must be a pointer of the right type.
	assert.ErrorIs(t, c.Decode(e, car{}, nil), ErrSerialization)
	var wrong struct{ X int }
	assert.ErrorIs(t, c.Decode(e, &wrong, nil), ErrSerialization)
}

func TestEncodeEntity(t *testing.T) {
	c := resolveCar(t)
	miles := 42000
	src := &car{
		ID:      "Car 1",
		Type:    "Car",
		Speed:   88,
		Plate:   "B;W-123",
		Note:    "keep (this) verbatim",
		Serial:  "SN-1",
		Extra:   json.RawMessage(`{"a":1}`),
		Mileage: &miles,
		PlateMD: map[string]wire.Metadata{
			"issuer": {Type: "Text", Value: json.RawMessage(`"dmv"`)},
		},
	}

	e, err := c.Encode(src, nil)
	require.NoError(t, err)

	assert.Equal(t, "Car%201", e.ID)
	assert.Equal(t, "Car", e.Type)
	assert.JSONEq(t, "88", string(e.Attributes["speed"].Value))
	// Value denylist members are escaped, unrestricted text is not.
	assert.JSONEq(t, `"B%3BW-123"`, string(e.Attributes["plate"].Value))
	assert.JSONEq(t, `"keep (this) verbatim"`, string(e.Attributes["note"].Value))
	// Read-only attributes never go outbound.
	assert.NotContains(t, e.Attributes, "serial")
	assert.JSONEq(t, `{"a":1}`, string(e.Attributes["Extra"].Value))
	assert.JSONEq(t, "42000", string(e.Attributes["mileage"].Value))
	require.Contains(t, e.Attributes["plate"].Metadata, "issuer")
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := resolveCar(t)
	src := &car{
		ID:    "urn:car:7",
		Type:  "Car",
		Speed: 61.5,
		Plate: `say "hi"`,
	}

	e, err := c.Encode(src, nil)
	require.NoError(t, err)

	var got car
	require.NoError(t, c.Decode(e, &got, nil))
	assert.Equal(t, src.ID, got.ID)
	assert.Equal(t, src.Speed, got.Speed)
	assert.Equal(t, src.Plate, got.Plate)
}

func TestEncodeOmitsNilAndEmpty(t *testing.T) {
	c := resolveCar(t)
	e, err := c.Encode(&car{ID: "c", Type: "Car"}, nil)
	require.NoError(t, err)

	assert.NotContains(t, e.Attributes, "mileage")
	assert.NotContains(t, e.Attributes, "Extra")
}

func TestDynamicDecodeEncode(t *testing.T) {
	c, err := Resolve(reflect.TypeOf(DynamicEntity{}))
	require.NoError(t, err)

	e := &wire.Entity{ID: "e%201", Type: "T", Attributes: map[string]wire.Attribute{
		"x": {Type: "Number", Value: json.RawMessage("1")},
	}}

	var d DynamicEntity
	require.NoError(t, c.Decode(e, &d, nil))
	assert.Equal(t, "e 1", d.ID)
	assert.Equal(t, "T", d.Type)
	require.Contains(t, d.Attributes, "x")

	back, err := c.Encode(&d, nil)
	require.NoError(t, err)
	assert.Equal(t, "e%201", back.ID)
	assert.Contains(t, back.Attributes, "x")
}

func TestDecodeWithTildeCodec(t *testing.T) {
	c := resolveCar(t)
	e := &wire.Entity{ID: "Car~3B1", Type: "Car", Attributes: map[string]wire.Attribute{}}

	var got car
	require.NoError(t, c.Decode(e, &got, encoding.Tilde))
	assert.Equal(t, "Car;1", got.ID)
}
