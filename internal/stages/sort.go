package stages

import (
	"cmp"
	"slices"
	"strings"

	"git.home.luguber.info/inful/lamd/internal/records"
)

// Order sorts by one or more columns. Records missing a key sort after those
// that have it in either direction; ties keep input order.
type Order struct {
	By Columns `yaml:"by"`

	Descending bool `yaml:"-"`
}

func (o Order) Name() string {
	if o.Descending {
		return "descending"
	}
	return "ascending"
}

func (o Order) Sort(rs records.RecordSet) records.RecordSet {
	out := rs.Clone()
	slices.SortStableFunc(out, func(a, b records.Record) int {
		for _, col := range o.By {
			av, bv := a.Get(col), b.Get(col)
			switch {
			case av.IsMissing() && bv.IsMissing():
				continue
			case av.IsMissing():
				return 1
			case bv.IsMissing():
				return -1
			}
			c := compareValues(av, bv)
			if o.Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(a.Index, b.Index)
	})
	return out
}

// compareValues orders two present values. Numbers compare numerically,
// dates chronologically and everything else by text.
func compareValues(a, b records.Value) int {
	if af, aok := numeric(a); aok {
		if bf, bok := numeric(b); bok {
			return cmp.Compare(af, bf)
		}
	}
	if a.Is(records.KindDate) && b.Is(records.KindDate) {
		return a.DateValue().Compare(b.DateValue())
	}
	if a.Is(records.KindBool) && b.Is(records.KindBool) {
		return cmp.Compare(boolRank(a.BoolValue()), boolRank(b.BoolValue()))
	}
	return strings.Compare(a.Text(), b.Text())
}

func numeric(v records.Value) (float64, bool) {
	switch v.Kind() {
	case records.KindInt:
		return float64(v.IntValue()), true
	case records.KindFloat:
		return v.FloatValue(), true
	}
	return 0, false
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
