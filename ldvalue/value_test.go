package ldvalue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScalarAccessors(t *testing.T) {
	assert.True(t, Null().IsNull())
	assert.Equal(t, BoolType, Bool(true).Type())
	assert.True(t, Bool(true).BoolValue())
	assert.Equal(t, 3, Int(3).IntValue())
	assert.Equal(t, 3.5, Float64(3.5).Float64Value())
	assert.Equal(t, "x", String("x").StringValue())
}

func TestCount(t *testing.T) {
	assert.Equal(t, 0, Null().Count())
	assert.Equal(t, 0, Int(1).Count())
	assert.Equal(t, 2, Array(Int(1), Int(2)).Count())
	assert.Equal(t, 1, Object(ObjectEntry{Key: "a", Value: Int(1)}).Count())
}

func TestEqualArraysAreOrderSensitive(t *testing.T) {
	a := Array(Int(1), Int(2))
	b := Array(Int(2), Int(1))
	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(Array(Int(1), Int(2))))
}

func TestEqualObjectsAreOrderInsensitiveUnlessDuplicateKeys(t *testing.T) {
	a := Object(ObjectEntry{Key: "a", Value: Int(1)}, ObjectEntry{Key: "b", Value: Int(2)})
	b := Object(ObjectEntry{Key: "b", Value: Int(2)}, ObjectEntry{Key: "a", Value: Int(1)})
	assert.True(t, a.Equal(b))

	dup := Object(ObjectEntry{Key: "a", Value: Int(1)}, ObjectEntry{Key: "a", Value: Int(2)})
	assert.False(t, dup.Equal(dup))
}

func TestNumberSerializationDropsTrailingZero(t *testing.T) {
	assert.Equal(t, "3", Int(3).String())
	assert.Equal(t, "3.5", Float64(3.5).String())
}

func TestIndentedStringUsesTabsAndSpaceAfterColon(t *testing.T) {
	v := Object(ObjectEntry{Key: "a", Value: Int(1)})
	assert.Equal(t, "{\n\t\"a\": 1\n}", v.IndentedString())
}

func TestParseRoundTrip(t *testing.T) {
	for _, s := range []string{"null", "true", "false", "3", "3.5", `"hi"`, "[1,2,3]", `{"a":1,"b":[1,2]}`} {
		v, err := Parse([]byte(s))
		assert.NoError(t, err)
		v2, err := Parse([]byte(v.String()))
		assert.NoError(t, err)
		assert.True(t, v.Equal(v2), "round trip mismatch for %s", s)
	}
}

func TestParsePreservesDuplicateKeysButNeverEqual(t *testing.T) {
	v, err := Parse([]byte(`{"a":1,"a":2}`))
	assert.NoError(t, err)
	assert.Equal(t, 2, v.Count())
	assert.False(t, v.Equal(v))
}

func TestCloneIsDeep(t *testing.T) {
	orig := Array(Object(ObjectEntry{Key: "a", Value: Int(1)}))
	clone := orig.Clone()
	assert.True(t, orig.Equal(clone))
}
