package object_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ink-lang/ink/internal/object"
)

func TestNumberString(t *testing.T) {
	require.Equal(t, "3", object.NewNumber(3, true).String())
	require.Equal(t, "3.5", object.NewNumber(3.5, false).String())
}

func TestNumberEquality(t *testing.T) {
	a := object.NewNumber(2, true)
	b := object.NewNumber(2, false)
	require.True(t, object.Equal(a, b), "numbers compare equal across IsInt")
}

func TestEqualCrossKindIsAlwaysFalse(t *testing.T) {
	n := object.NewNumber(0, true)
	s := object.NewString([]byte("0"))
	require.False(t, object.Equal(n, s))
}

func TestStringEqualByContent(t *testing.T) {
	a := object.NewString([]byte("hello"))
	b := object.NewString([]byte("hello"))
	c := object.NewString([]byte("world"))
	require.True(t, object.StringEqual(a, b))
	require.False(t, object.StringEqual(a, c))
}

func TestArithmeticIsIntPropagation(t *testing.T) {
	sum, err := object.Add(object.NewNumber(2, true), object.NewNumber(3, true))
	require.NoError(t, err)
	require.True(t, sum.(*object.Number).IsInt)

	mixed, err := object.Add(object.NewNumber(2, true), object.NewNumber(3.5, false))
	require.NoError(t, err)
	require.False(t, mixed.(*object.Number).IsInt)
}

func TestDivIntegralOnlyWhenExact(t *testing.T) {
	exact, err := object.Div(object.NewNumber(6, true), object.NewNumber(3, true))
	require.NoError(t, err)
	require.True(t, exact.(*object.Number).IsInt)
	require.Equal(t, float64(2), exact.(*object.Number).Value)

	inexact, err := object.Div(object.NewNumber(7, true), object.NewNumber(2, true))
	require.NoError(t, err)
	require.False(t, inexact.(*object.Number).IsInt)
}

func TestDivByZero(t *testing.T) {
	_, err := object.Div(object.NewNumber(1, true), object.NewNumber(0, true))
	require.Error(t, err)
}

func TestAddConcatenatesStrings(t *testing.T) {
	v, err := object.Add(object.NewString([]byte("foo")), object.NewString([]byte("bar")))
	require.NoError(t, err)
	require.Equal(t, "foobar", string(v.(*object.String).Bytes))
}

func TestIsFalseyOnlyExplicitFalse(t *testing.T) {
	require.True(t, object.IsFalsey(object.NewBool(false)))
	require.False(t, object.IsFalsey(object.NewBool(true)))
	require.False(t, object.IsFalsey(object.NewNumber(0, true)))
	require.False(t, object.IsFalsey(object.NewString(nil)))
}

func TestTableInsertLookupOverwrite(t *testing.T) {
	tbl := object.NewTable()
	key := object.NewString([]byte("score"))

	res := tbl.Insert(key, object.NewNumber(1, true))
	require.Equal(t, object.InsertOK, res)

	v, ok := tbl.Lookup(key)
	require.True(t, ok)
	require.Equal(t, float64(1), v.(*object.Number).Value)

	res = tbl.Insert(object.NewString([]byte("score")), object.NewNumber(2, true))
	require.Equal(t, object.InsertOverwrite, res)

	v, ok = tbl.Lookup(key)
	require.True(t, ok)
	require.Equal(t, float64(2), v.(*object.Number).Value)
}

func TestTableLookupMissing(t *testing.T) {
	tbl := object.NewTable()
	_, ok := tbl.Lookup(object.NewString([]byte("nope")))
	require.False(t, ok)
}

func TestTableGrowsPastLoadFactor(t *testing.T) {
	tbl := object.NewTable()
	for i := 0; i < 100; i++ {
		key := object.NewString([]byte{byte(i)})
		tbl.Insert(key, object.NewNumber(float64(i), true))
	}
	for i := 0; i < 100; i++ {
		key := object.NewString([]byte{byte(i)})
		v, ok := tbl.Lookup(key)
		require.True(t, ok, "key %d should survive growth", i)
		require.Equal(t, float64(i), v.(*object.Number).Value)
	}
	require.Len(t, tbl.Entries(), 100)
}
