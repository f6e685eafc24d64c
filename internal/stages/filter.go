package stages

import (
	"time"

	"git.home.luguber.info/inful/lamd/internal/records"
)

func maskEach(rs records.RecordSet, keep func(records.Record) bool) records.Mask {
	m := make(records.Mask, len(rs))
	for i, r := range rs {
		m[i] = keep(r)
	}
	return m
}

// dateOf returns the date held by column, or false when it is missing or
// not interpretable as a date.
func dateOf(r records.Record, column string) (time.Time, bool) {
	t, ok, err := asDate(r.Get(column))
	if err != nil {
		return time.Time{}, false
	}
	return t, ok
}

// Recent keeps records whose year is at or after the run's since-year.
type Recent struct {
	Column string `yaml:"column"`
}

func (Recent) Name() string { return "recent" }

func (f Recent) Mask(rs records.RecordSet, rc RunContext) (records.Mask, error) {
	return maskEach(rs, func(r records.Record) bool {
		y, ok := yearOfValue(r.Get(f.Column))
		return ok && y >= rc.SinceYear
	}), nil
}

// Current keeps records whose start/end interval contains now, or whose
// explicit flag column is true.
type Current struct {
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
	Current string `yaml:"current"`
}

func (Current) Name() string { return "current" }

func (f Current) Mask(rs records.RecordSet, rc RunContext) (records.Mask, error) {
	return maskEach(rs, func(r records.Record) bool {
		if f.Current != "" && truthy(r.Get(f.Current)) {
			return true
		}
		start, ok := dateOf(r, f.Start)
		if !ok || start.After(rc.Now) {
			return false
		}
		if !r.Has(f.End) {
			return true
		}
		end, ok := dateOf(r, f.End)
		return ok && !end.Before(rc.Now)
	}), nil
}

// Former keeps records whose end date is strictly before now.
type Former struct {
	End string `yaml:"end"`
}

func (Former) Name() string { return "former" }

func (f Former) Mask(rs records.RecordSet, rc RunContext) (records.Mask, error) {
	return maskEach(rs, func(r records.Record) bool {
		end, ok := dateOf(r, f.End)
		return ok && end.Before(rc.Now)
	}), nil
}

// OnBool keeps records whose column is true, or false when Invert is set.
// Missing counts as false before inversion.
type OnBool struct {
	Column string `yaml:"column"`
	Invert bool   `yaml:"invert"`
}

func (OnBool) Name() string { return "onbool" }

func (f OnBool) Mask(rs records.RecordSet, _ RunContext) (records.Mask, error) {
	return maskEach(rs, func(r records.Record) bool {
		return truthy(r.Get(f.Column)) != f.Invert
	}), nil
}

// Equals keeps records whose column equals a literal.
type Equals struct {
	Column string `yaml:"column"`
	Value  any    `yaml:"value"`
}

func (Equals) Name() string { return "equals" }

func (f Equals) Mask(rs records.RecordSet, _ RunContext) (records.Mask, error) {
	want := records.FromAny(f.Value).Text()
	return maskEach(rs, func(r records.Record) bool {
		v := r.Get(f.Column)
		return !v.IsMissing() && v.Text() == want
	}), nil
}

// Contains keeps records whose column holds the literal, either as the whole
// scalar or as one element of a list.
type Contains struct {
	Column string `yaml:"column"`
	Value  any    `yaml:"value"`
}

func (Contains) Name() string { return "contains" }

func (f Contains) Mask(rs records.RecordSet, _ RunContext) (records.Mask, error) {
	want := records.FromAny(f.Value).Text()
	return maskEach(rs, func(r records.Record) bool {
		v := r.Get(f.Column)
		switch v.Kind() {
		case records.KindMissing:
			return false
		case records.KindList:
			for _, item := range v.ListValue() {
				if item == want {
					return true
				}
			}
			return false
		default:
			return v.Text() == want
		}
	}), nil
}
