package stages

import (
	"fmt"
	"time"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
	"git.home.luguber.info/inful/lamd/internal/records"
)

// convertColumns rewrites each named column of every record with conv.
// Missing values are left alone.
func convertColumns(stage string, rs records.RecordSet, cols []string, conv func(records.Value) (records.Value, error)) (records.RecordSet, error) {
	out := make(records.RecordSet, len(rs))
	for i, r := range rs {
		for _, col := range cols {
			v := r.Get(col)
			if v.IsMissing() {
				continue
			}
			nv, err := conv(v)
			if err != nil {
				return nil, lerrors.TypeCoercion(stage, r.ID, col, v.Text(), err)
			}
			r = r.With(col, nv)
		}
		out[i] = r
	}
	return out, nil
}

// ConvertDatetime parses the named columns into dates.
type ConvertDatetime struct {
	Columns Columns `yaml:"columns"`
}

func (ConvertDatetime) Name() string { return "convert_datetime" }

func (c ConvertDatetime) Apply(rs records.RecordSet) (records.RecordSet, error) {
	return convertColumns(c.Name(), rs, c.Columns, func(v records.Value) (records.Value, error) {
		t, _, err := asDate(v)
		if err != nil {
			return v, err
		}
		return records.Date(t), nil
	})
}

// ConvertInt parses the named columns into integers.
type ConvertInt struct {
	Columns Columns `yaml:"columns"`
}

func (ConvertInt) Name() string { return "convert_int" }

func (c ConvertInt) Apply(rs records.RecordSet) (records.RecordSet, error) {
	return convertColumns(c.Name(), rs, c.Columns, func(v records.Value) (records.Value, error) {
		i, _, err := asInt(v)
		if err != nil {
			return v, err
		}
		return records.Int(i), nil
	})
}

// ConvertString renders scalar columns as strings. Lists and structured
// values pass through.
type ConvertString struct {
	Columns Columns `yaml:"columns"`
}

func (ConvertString) Name() string { return "convert_string" }

func (c ConvertString) Apply(rs records.RecordSet) (records.RecordSet, error) {
	return convertColumns(c.Name(), rs, c.Columns, func(v records.Value) (records.Value, error) {
		switch v.Kind() {
		case records.KindList, records.KindAny:
			return v, nil
		}
		return records.String(v.Text()), nil
	})
}

// ConvertYearISO turns a year column into a full date on Month/Day.
type ConvertYearISO struct {
	Column string `yaml:"column"`
	Month  int    `yaml:"month"`
	Day    int    `yaml:"day"`
}

func (ConvertYearISO) Name() string { return "convert_year_iso" }

// Validate rejects a month or day that time.Date would roll into another date.
// February 29 is accepted; Apply rejects it for non-leap years.
func (c ConvertYearISO) Validate() error {
	if c.Month < 1 || c.Month > 12 {
		return fmt.Errorf("month %d out of range 1-12", c.Month)
	}
	// 2000 is a leap year, so this is the longest the month can be.
	if last := time.Date(2000, time.Month(c.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day(); c.Day < 1 || c.Day > last {
		return fmt.Errorf("day %d out of range 1-%d for %s", c.Day, last, time.Month(c.Month))
	}
	return nil
}

func (c ConvertYearISO) Apply(rs records.RecordSet) (records.RecordSet, error) {
	return convertColumns(c.Name(), rs, []string{c.Column}, func(v records.Value) (records.Value, error) {
		if v.Is(records.KindDate) {
			return v, nil
		}
		if y, _, err := asInt(v); err == nil && validYear(int(y)) {
			d := time.Date(int(y), time.Month(c.Month), c.Day, 0, 0, 0, 0, time.UTC)
			if d.Month() != time.Month(c.Month) || d.Day() != c.Day {
				return v, fmt.Errorf("%d has no %s %d", y, time.Month(c.Month), c.Day)
			}
			return records.Date(d), nil
		}
		t, _, err := asDate(v)
		if err != nil {
			return v, err
		}
		return records.Date(t), nil
	})
}
