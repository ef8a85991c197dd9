package dbtype

import (
	"fmt"
	"strings"

	"simpledb/pkg/dberrors"
)

// FieldDesc is one (type, optional name) pair in a schema.
type FieldDesc struct {
	Type Type
	Name string // informational only; never compared by Schema.Equal
}

// Schema (tuple descriptor) is an ordered, non-empty sequence of field
// descriptors. All tuples of a table share exactly one schema.
type Schema struct {
	fields []FieldDesc
}

// NewSchema builds a schema from field descriptors. Panics if empty —
// field count >= 1 is an invariant, not a recoverable error, since it can
// only be violated by a programming mistake in the caller.
func NewSchema(fields ...FieldDesc) Schema {
	if len(fields) == 0 {
		panic("dbtype: schema must have at least one field")
	}
	cp := make([]FieldDesc, len(fields))
	copy(cp, fields)
	return Schema{fields: cp}
}

// NumFields returns the field count.
func (s Schema) NumFields() int { return len(s.fields) }

// FieldType returns the type of the field at index i.
func (s Schema) FieldType(i int) Type { return s.fields[i].Type }

// FieldName returns the (possibly empty) name of the field at index i.
func (s Schema) FieldName(i int) string { return s.fields[i].Name }

// FieldIndex finds the index of the field with the given name (exact
// match, then suffix match on "alias.name" forms), or NoSuchElement.
func (s Schema) FieldIndex(name string) (int, error) {
	for i, f := range s.fields {
		if f.Name == name {
			return i, nil
		}
	}
	for i, f := range s.fields {
		if strings.HasSuffix(f.Name, "."+name) {
			return i, nil
		}
	}
	return -1, dberrors.NoSuchElement("no field named %q", name)
}

// ByteSize is the sum of the per-type fixed widths: the size of one
// encoded tuple of this schema.
func (s Schema) ByteSize() int {
	total := 0
	for _, f := range s.fields {
		total += f.Type.Width()
	}
	return total
}

// Equal compares type sequences only; field names are informational.
func (s Schema) Equal(other Schema) bool {
	if len(s.fields) != len(other.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i].Type != other.fields[i].Type {
			return false
		}
	}
	return true
}

// Merge concatenates two schemas into a joined schema, preserving field
// order and renaming collisions is left to the caller (names are
// informational and may legitimately repeat, e.g. after a self-join).
func Merge(left, right Schema) Schema {
	fields := make([]FieldDesc, 0, len(left.fields)+len(right.fields))
	fields = append(fields, left.fields...)
	fields = append(fields, right.fields...)
	return Schema{fields: fields}
}

// WithAlias returns a copy of s with every field renamed to
// "alias.fieldName", the transform SeqScan applies to its child schema.
func (s Schema) WithAlias(alias string) Schema {
	fields := make([]FieldDesc, len(s.fields))
	for i, f := range s.fields {
		fields[i] = FieldDesc{Type: f.Type, Name: alias + "." + f.Name}
	}
	return Schema{fields: fields}
}

func (s Schema) String() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = fmt.Sprintf("%s(%s)", f.Name, f.Type)
	}
	return strings.Join(parts, ", ")
}
