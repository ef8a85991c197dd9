package dbtype

import (
	"strings"

	"simpledb/pkg/dberrors"
	"simpledb/pkg/storage/page"
)

// RecordID locates a tuple on disk: a page identity plus a slot index
// within that page's slot array. Equality is structural.
type RecordID struct {
	PID  page.ID
	Slot int
}

// Tuple is a vector of fields conforming to a schema, plus an optional
// record identity. A tuple read from disk always carries one; tuples
// produced by operators above storage may carry none (HasRecordID
// reports false).
type Tuple struct {
	desc     Schema
	fields   []Field
	rid      RecordID
	hasRID   bool
}

// NewTuple allocates an empty tuple (all fields nil) conforming to desc.
func NewTuple(desc Schema) *Tuple {
	return &Tuple{desc: desc, fields: make([]Field, desc.NumFields())}
}

// Schema returns the tuple's descriptor.
func (t *Tuple) Schema() Schema { return t.desc }

// Field returns the field at index i.
func (t *Tuple) Field(i int) Field { return t.fields[i] }

// SetField mutates the field at index i. Allowed at any time; schema
// itself becomes immutable only once a record identity is assigned, not
// the field values.
func (t *Tuple) SetField(i int, f Field) { t.fields[i] = f }

// RecordID returns the tuple's record identity and whether it has one.
func (t *Tuple) RecordID() (RecordID, bool) { return t.rid, t.hasRID }

// SetRecordID assigns a record identity, the operation a page performs
// when it reads a stored tuple back into memory.
func (t *Tuple) SetRecordID(rid RecordID) {
	t.rid = rid
	t.hasRID = true
}

// ClearRecordID removes the record identity, e.g. for a tuple synthesized
// by an operator above storage (a join output, an aggregate row).
func (t *Tuple) ClearRecordID() {
	t.rid = RecordID{}
	t.hasRID = false
}

// String joins field values with tabs in field order. Debug/log output
// only — never used for on-disk layout. Uses field count, not byte size,
// per the corrected toString semantics.
func (t *Tuple) String() string {
	parts := make([]string, len(t.fields))
	for i, f := range t.fields {
		if f == nil {
			parts[i] = "<nil>"
			continue
		}
		parts[i] = f.String()
	}
	return strings.Join(parts, "\t")
}

// Encode serializes the tuple's fields, in schema order, into its fixed
// tupleSize byte representation.
func (t *Tuple) Encode() []byte {
	buf := make([]byte, 0, t.desc.ByteSize())
	for i, f := range t.fields {
		if f == nil {
			buf = append(buf, make([]byte, t.desc.FieldType(i).Width())...)
			continue
		}
		buf = f.Encode(buf)
	}
	return buf
}

// Decode populates a new tuple of schema desc from its fixed-width byte
// encoding.
func Decode(desc Schema, buf []byte) (*Tuple, error) {
	if len(buf) < desc.ByteSize() {
		return nil, dberrors.DBException("tuple buffer too short: have %d want %d", len(buf), desc.ByteSize())
	}
	t := NewTuple(desc)
	off := 0
	for i := 0; i < desc.NumFields(); i++ {
		w := desc.FieldType(i).Width()
		switch desc.FieldType(i) {
		case IntType:
			t.fields[i] = DecodeInt(buf[off : off+w])
		case StringType:
			t.fields[i] = DecodeString(buf[off : off+w])
		}
		off += w
	}
	return t, nil
}

// MergeTuples concatenates two tuples' fields into one tuple of the
// merged schema. The result carries no record identity.
func MergeTuples(left, right *Tuple) *Tuple {
	desc := Merge(left.desc, right.desc)
	out := NewTuple(desc)
	i := 0
	for j := 0; j < len(left.fields); j++ {
		out.fields[i] = left.fields[j]
		i++
	}
	for j := 0; j < len(right.fields); j++ {
		out.fields[i] = right.fields[j]
		i++
	}
	return out
}
