package records

import "slices"

// Record is an immutable ordered mapping from field name to Value. ID and
// Index identify the record across every pipeline stage.
type Record struct {
	ID    string
	Index int

	keys []string
	vals map[string]Value
}

// Field is one name/value pair used to build a Record.
type Field struct {
	Name  string
	Value Value
}

// NewRecord builds a record from ordered fields. Later duplicates win but keep
// the first position.
func NewRecord(id string, index int, fields ...Field) Record {
	r := Record{ID: id, Index: index, vals: make(map[string]Value, len(fields))}
	for _, f := range fields {
		if _, ok := r.vals[f.Name]; !ok {
			r.keys = append(r.keys, f.Name)
		}
		r.vals[f.Name] = f.Value
	}
	return r
}

// Get returns the value for name, or Missing.
func (r Record) Get(name string) Value {
	return r.vals[name]
}

// Has reports whether name holds a non-missing value.
func (r Record) Has(name string) bool {
	return !r.vals[name].IsMissing()
}

// Keys returns the field names in insertion order.
func (r Record) Keys() []string { return slices.Clone(r.keys) }

// With returns a copy of r with name set to v.
func (r Record) With(name string, v Value) Record {
	out := Record{ID: r.ID, Index: r.Index, keys: slices.Clone(r.keys), vals: make(map[string]Value, len(r.vals)+1)}
	for k, val := range r.vals {
		out.vals[k] = val
	}
	if _, ok := out.vals[name]; !ok {
		out.keys = append(out.keys, name)
	}
	out.vals[name] = v
	return out
}

// TemplateData returns the native field map with missing values stripped.
func (r Record) TemplateData() map[string]any {
	out := make(map[string]any, len(r.vals))
	for _, k := range r.keys {
		v := r.vals[k]
		if v.IsMissing() {
			continue
		}
		out[k] = v.Interface()
	}
	return out
}

// RecordSet is an ordered collection of records.
type RecordSet []Record

// Clone returns a shallow copy of the slice; records are immutable.
func (rs RecordSet) Clone() RecordSet { return slices.Clone(rs) }

// IDs lists the record identities in order.
func (rs RecordSet) IDs() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

// Select keeps the records whose mask entry is true.
func (rs RecordSet) Select(m Mask) RecordSet {
	out := make(RecordSet, 0, len(rs))
	for i, r := range rs {
		if i < len(m) && m[i] {
			out = append(out, r)
		}
	}
	return out
}

// Mask is a boolean selection aligned with a RecordSet.
type Mask []bool

// All returns a mask selecting n records.
func All(n int) Mask {
	m := make(Mask, n)
	for i := range m {
		m[i] = true
	}
	return m
}

// And combines m with o element-wise into m.
func (m Mask) And(o Mask) Mask {
	for i := range m {
		m[i] = m[i] && i < len(o) && o[i]
	}
	return m
}

// Count returns the number of selected entries.
func (m Mask) Count() int {
	n := 0
	for _, b := range m {
		if b {
			n++
		}
	}
	return n
}
