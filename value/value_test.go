package value

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// TestEqualIsTypeExact tests that equality never coerces between kinds.
func TestEqualIsTypeExact(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"bool vs number", Bool(true), Number(1), false},
		{"false vs zero", Bool(false), Number(0), false},
		{"null vs false", Null(), Bool(false), false},
		{"string vs number", String("1"), Number(1), false},
		{"same numbers", Number(1), Number(1.0), true},
		{"same nulls", Null(), Null(), true},
		{"arrays", Array(Number(1), String("a")), Array(Number(1), String("a")), true},
		{"array order", Array(Number(1), Number(2)), Array(Number(2), Number(1)), false},
		{
			"objects ignore member order",
			Object(Member{"a", Number(1)}, Member{"b", Bool(true)}),
			Object(Member{"b", Bool(true)}, Member{"a", Number(1)}),
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
		})
	}
}

// TestCompare tests same-kind ordering and rejection of mixed kinds.
func TestCompare(t *testing.T) {
	c, ok := Compare(Bool(false), Bool(true))
	require.True(t, ok)
	assert.Equal(t, -1, c)

	c, ok = Compare(Number(3), Number(2))
	require.True(t, ok)
	assert.Equal(t, 1, c)

	c, ok = Compare(String("abc"), String("abc"))
	require.True(t, ok)
	assert.Equal(t, 0, c)

	_, ok = Compare(Bool(true), Number(1))
	assert.False(t, ok)

	_, ok = Compare(Array(), Array())
	assert.False(t, ok)
}

// TestToNumber tests numeric aliasing used by closed ranges.
func TestToNumber(t *testing.T) {
	assert.Equal(t, 0.0, Null().ToNumber())
	assert.Equal(t, 0.0, Bool(false).ToNumber())
	assert.Equal(t, 1.0, Bool(true).ToNumber())
	assert.Equal(t, 4.5, Number(4.5).ToNumber())
	assert.Equal(t, 12.0, String(" 12 ").ToNumber())
	assert.Equal(t, 0.0, String("abc").ToNumber())
	assert.Equal(t, 0.0, Array(Number(1)).ToNumber())
}

// TestFromJSONKeepsMemberOrder tests that decoded objects keep source order.
func TestFromJSONKeepsMemberOrder(t *testing.T) {
	v, err := FromJSON([]byte(`{"z":1,"a":[true,null,"x"],"m":{"k":2.5}}`))
	require.NoError(t, err)
	require.Equal(t, KindObject, v.Kind())

	keys := make([]string, 0, v.Len())
	for _, m := range v.Members() {
		keys = append(keys, m.Key)
	}
	assert.Equal(t, []string{"z", "a", "m"}, keys)
	assert.Equal(t, `{"z":1,"a":[true,null,"x"],"m":{"k":2.5}}`, v.String())

	_, err = FromJSON([]byte(`{"a":1} 2`))
	assert.Error(t, err)
}

// TestDecodeStream tests both concatenated values and a top-level array.
func TestDecodeStream(t *testing.T) {
	docs, err := DecodeStream(strings.NewReader(`{"a":1}
{"a":2}`))
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = DecodeStream(strings.NewReader(`[{"a":1},{"a":2},{"a":3}]`))
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

// TestFromAny tests conversion of generic decoded data.
func TestFromAny(t *testing.T) {
	v, err := FromAny(map[string]any{"b": 1, "a": []any{true, nil}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[true,null],"b":1}`, v.String())

	_, err = FromAny(struct{}{})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

// TestMsgpackRoundTrip tests the custom MessagePack codec on a nested document.
func TestMsgpackRoundTrip(t *testing.T) {
	in, err := FromJSON([]byte(`{"seq":-6,"value":null,"tags":["a","b"],"geo":{"lat":1.5,"ok":true}}`))
	require.NoError(t, err)

	data, err := msgpack.Marshal(in)
	require.NoError(t, err)

	var out Value
	require.NoError(t, msgpack.Unmarshal(data, &out))
	assert.True(t, in.Equal(out))
	assert.Equal(t, in.String(), out.String())
}

// TestTruthy tests predicate truthiness of literals.
func TestTruthy(t *testing.T) {
	assert.False(t, Null().Truthy())
	assert.False(t, Number(0).Truthy())
	assert.False(t, String("").Truthy())
	assert.True(t, String("x").Truthy())
	assert.True(t, Array().Truthy())
}

// TestOrder tests the cross-kind total order.
func TestOrder(t *testing.T) {
	sorted := []Value{
		Null(),
		Bool(false),
		Bool(true),
		Number(-1),
		Number(2),
		String(""),
		String("a"),
		Array(),
		Array(Number(1)),
		Array(Number(1), Number(0)),
		Object(Member{"a", Number(1)}),
	}
	for i := range sorted {
		assert.Zero(t, Order(sorted[i], sorted[i]))
		for j := i + 1; j < len(sorted); j++ {
			assert.Negative(t, Order(sorted[i], sorted[j]), "%s < %s", sorted[i], sorted[j])
			assert.Positive(t, Order(sorted[j], sorted[i]))
		}
	}
}
