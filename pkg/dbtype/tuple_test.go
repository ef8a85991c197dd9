package dbtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intIntSchema() Schema {
	return NewSchema(
		FieldDesc{Type: IntType, Name: "a"},
		FieldDesc{Type: IntType, Name: "b"},
	)
}

func TestTupleEncodeDecodeRoundtrip(t *testing.T) {
	desc := intIntSchema()
	tup := NewTuple(desc)
	tup.SetField(0, IntField{Value: 7})
	tup.SetField(1, IntField{Value: -3})

	buf := tup.Encode()
	require.Len(t, buf, desc.ByteSize())

	back, err := Decode(desc, buf)
	require.NoError(t, err)
	assert.Equal(t, IntField{Value: 7}, back.Field(0))
	assert.Equal(t, IntField{Value: -3}, back.Field(1))
}

func TestStringFieldEncodeDecodePadsToFixedWidth(t *testing.T) {
	desc := NewSchema(FieldDesc{Type: StringType, Name: "s"})
	tup := NewTuple(desc)
	tup.SetField(0, StringField{Value: "hello"})

	buf := tup.Encode()
	require.Len(t, buf, StringMaxLen+4)

	back, err := Decode(desc, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", back.Field(0).String())
}

func TestSchemaEqualIgnoresNames(t *testing.T) {
	a := NewSchema(FieldDesc{Type: IntType, Name: "x"})
	b := NewSchema(FieldDesc{Type: IntType, Name: "y"})
	c := NewSchema(FieldDesc{Type: StringType, Name: "x"})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestMergePreservesFieldCount(t *testing.T) {
	left := intIntSchema()
	right := NewSchema(FieldDesc{Type: StringType, Name: "s"})
	merged := Merge(left, right)
	assert.Equal(t, left.NumFields()+right.NumFields(), merged.NumFields())
}

func TestMergeTuplesConcatenatesFields(t *testing.T) {
	left := NewTuple(NewSchema(FieldDesc{Type: IntType, Name: "a"}))
	left.SetField(0, IntField{Value: 1})
	right := NewTuple(NewSchema(FieldDesc{Type: IntType, Name: "b"}))
	right.SetField(0, IntField{Value: 2})

	merged := MergeTuples(left, right)
	require.Equal(t, 2, merged.Schema().NumFields())
	assert.Equal(t, IntField{Value: 1}, merged.Field(0))
	assert.Equal(t, IntField{Value: 2}, merged.Field(1))
	_, hasRID := merged.RecordID()
	assert.False(t, hasRID)
}

func TestFieldIndexResolvesAliasSuffix(t *testing.T) {
	desc := NewSchema(FieldDesc{Type: IntType, Name: "t.a"})
	idx, err := desc.FieldIndex("a")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	_, err = desc.FieldIndex("missing")
	assert.Error(t, err)
}
