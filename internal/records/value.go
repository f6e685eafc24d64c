// Package records holds the typed record model the list pipeline runs on and
// the loaders that build it from YAML, JSON, CSV, markdown and SQLite sources.
package records

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind tags the dynamic type held by a Value.
type Kind int

const (
	KindMissing Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindDate
	KindList
	KindAny
)

var kindNames = [...]string{"missing", "string", "int", "float", "bool", "date", "list", "any"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// DateLayout is the canonical textual form of a date value.
const DateLayout = "2006-01-02"

// Value is a tagged field value. The zero Value is missing.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	t    time.Time
	list []string
	any  any
}

func Missing() Value                 { return Value{} }
func String(s string) Value          { return Value{kind: KindString, s: s} }
func Int(i int64) Value              { return Value{kind: KindInt, i: i} }
func Float(f float64) Value          { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value              { return Value{kind: KindBool, b: b} }
func Date(t time.Time) Value         { return Value{kind: KindDate, t: t} }
func List(items ...string) Value     { return Value{kind: KindList, list: append([]string(nil), items...)} }
func Opaque(v any) Value             { return Value{kind: KindAny, any: v} }
func (v Value) Kind() Kind           { return v.kind }
func (v Value) IsMissing() bool      { return v.kind == KindMissing }
func (v Value) Is(k Kind) bool       { return v.kind == k }
func (v Value) StringValue() string  { return v.s }
func (v Value) IntValue() int64      { return v.i }
func (v Value) FloatValue() float64  { return v.f }
func (v Value) BoolValue() bool      { return v.b }
func (v Value) DateValue() time.Time { return v.t }

// ListValue returns a copy of the list items.
func (v Value) ListValue() []string { return append([]string(nil), v.list...) }

// FromAny converts a decoded YAML/JSON/SQL scalar or structure into a Value.
// Sequences of scalars become lists; anything structured stays opaque.
func FromAny(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Missing()
	case Value:
		return x
	case string:
		return String(x)
	case []byte:
		return String(string(x))
	case int:
		return Int(int64(x))
	case int64:
		return Int(x)
	case int32:
		return Int(int64(x))
	case uint64:
		return Int(int64(x))
	case float64:
		return Float(x)
	case float32:
		return Float(float64(x))
	case bool:
		return Bool(x)
	case time.Time:
		return Date(x)
	case []string:
		return List(x...)
	case []any:
		items := make([]string, 0, len(x))
		for _, e := range x {
			ev := FromAny(e)
			switch ev.kind {
			case KindList, KindAny:
				return Opaque(x)
			case KindMissing:
				items = append(items, "")
			default:
				items = append(items, ev.Text())
			}
		}
		return List(items...)
	default:
		return Opaque(x)
	}
}

// Text renders the value in its canonical textual form. Missing renders "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindDate:
		return v.t.Format(DateLayout)
	case KindList:
		return strings.Join(v.list, ", ")
	case KindAny:
		return fmt.Sprint(v.any)
	default:
		return ""
	}
}

// Interface returns the native Go value handed to templates.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindDate:
		return v.t
	case KindList:
		return v.ListValue()
	case KindAny:
		return v.any
	default:
		return nil
	}
}

// Equal compares two values by kind and content. Lists compare element-wise;
// opaque values compare by their printed form.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindMissing:
		return true
	case KindDate:
		return v.t.Equal(o.t)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	default:
		return v.Text() == o.Text()
	}
}

func (v Value) String() string {
	if v.kind == KindMissing {
		return "<missing>"
	}
	return v.Text()
}
