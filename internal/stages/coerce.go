package stages

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/lamd/internal/records"
)

var dateLayouts = []string{
	records.DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"02/01/2006",
	"2 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2006",
	"2006-01",
}

// parseDate accepts the date forms found in CV data. Bare years map to 1 January.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if y, err := strconv.Atoi(s); err == nil && validYear(y) {
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func validYear(y int) bool { return y >= 1000 && y <= 9999 }

// asDate converts a value to a date. ok is false for missing values.
func asDate(v records.Value) (t time.Time, ok bool, err error) {
	switch v.Kind() {
	case records.KindMissing:
		return time.Time{}, false, nil
	case records.KindDate:
		return v.DateValue(), true, nil
	case records.KindString:
		t, err := parseDate(v.StringValue())
		return t, err == nil, err
	case records.KindInt:
		y := int(v.IntValue())
		if !validYear(y) {
			return time.Time{}, false, fmt.Errorf("%d is not a year", y)
		}
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), true, nil
	default:
		return time.Time{}, false, fmt.Errorf("cannot interpret %s value as a date", v.Kind())
	}
}

// asInt converts a value to an integer.
func asInt(v records.Value) (int64, bool, error) {
	switch v.Kind() {
	case records.KindMissing:
		return 0, false, nil
	case records.KindInt:
		return v.IntValue(), true, nil
	case records.KindFloat:
		f := v.FloatValue()
		if f != math.Trunc(f) {
			return 0, false, fmt.Errorf("%v is not integral", f)
		}
		return int64(f), true, nil
	case records.KindString:
		s := strings.TrimSpace(v.StringValue())
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) {
			return 0, false, fmt.Errorf("%q is not an integer", s)
		}
		return int64(f), true, nil
	default:
		return 0, false, fmt.Errorf("cannot interpret %s value as an integer", v.Kind())
	}
}

// asFloat converts a numeric value.
func asFloat(v records.Value) (float64, bool, error) {
	switch v.Kind() {
	case records.KindMissing:
		return 0, false, nil
	case records.KindInt:
		return float64(v.IntValue()), true, nil
	case records.KindFloat:
		return v.FloatValue(), true, nil
	case records.KindString:
		s := strings.ReplaceAll(strings.TrimSpace(v.StringValue()), ",", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, fmt.Errorf("%q is not a number", v.StringValue())
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("cannot interpret %s value as a number", v.Kind())
	}
}

// yearOfValue extracts a calendar year from ints, dates and date-like strings.
func yearOfValue(v records.Value) (int, bool) {
	switch v.Kind() {
	case records.KindInt:
		return int(v.IntValue()), true
	case records.KindFloat:
		return int(v.FloatValue()), true
	case records.KindDate:
		return v.DateValue().Year(), true
	case records.KindString:
		if y, err := strconv.Atoi(strings.TrimSpace(v.StringValue())); err == nil {
			return y, true
		}
		if t, err := parseDate(v.StringValue()); err == nil {
			return t.Year(), true
		}
	}
	return 0, false
}

// truthy reads a boolean-like value. Missing and unrecognised values are false.
func truthy(v records.Value) bool {
	switch v.Kind() {
	case records.KindBool:
		return v.BoolValue()
	case records.KindInt:
		return v.IntValue() != 0
	case records.KindFloat:
		return v.FloatValue() != 0
	case records.KindString:
		switch strings.ToLower(strings.TrimSpace(v.StringValue())) {
		case "true", "yes", "y", "1", "on":
			return true
		}
	}
	return false
}
