package stages

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
	"git.home.luguber.info/inful/lamd/internal/records"
)

// DateField derives a value from a date column. Overwrite selects the
// unconditional add* variants; the augment* variants only fill gaps.
type DateField struct {
	NewColumn string `yaml:"newcolumn"`
	Source    string `yaml:"source"`

	Op        string `yaml:"-"`
	Overwrite bool   `yaml:"-"`
}

func (d DateField) Name() string { return d.Op }

func (d DateField) Apply(rs records.RecordSet) (records.RecordSet, error) {
	out := make(records.RecordSet, len(rs))
	for i, r := range rs {
		out[i] = r
		if !d.Overwrite && r.Has(d.NewColumn) {
			continue
		}
		t, ok, err := asDate(r.Get(d.Source))
		if err != nil {
			return nil, lerrors.TypeCoercion(d.Op, r.ID, d.Source, r.Get(d.Source).Text(), err)
		}
		if !ok || d.NewColumn == "" {
			continue
		}
		if d.isMonth() {
			out[i] = r.With(d.NewColumn, records.String(t.Month().String()))
		} else {
			out[i] = r.With(d.NewColumn, records.Int(int64(t.Year())))
		}
	}
	return out, nil
}

func (d DateField) isMonth() bool {
	return d.Op == "addmonth" || d.Op == "augmentmonth"
}

// AugmentCurrency writes a grouped, fixed-precision rendering of a numeric
// column, e.g. 1234567 -> "1,234,567".
type AugmentCurrency struct {
	NewColumn string `yaml:"newcolumn"`
	Source    string `yaml:"source"`
	SF        int    `yaml:"sf"`
}

func (AugmentCurrency) Name() string { return "augmentcurrency" }

var currencyPrinter = message.NewPrinter(language.English)

func (c AugmentCurrency) Apply(rs records.RecordSet) (records.RecordSet, error) {
	out := make(records.RecordSet, len(rs))
	for i, r := range rs {
		out[i] = r
		f, ok, err := asFloat(r.Get(c.Source))
		if err != nil {
			return nil, lerrors.TypeCoercion(c.Name(), r.ID, c.Source, r.Get(c.Source).Text(), err)
		}
		if !ok {
			continue
		}
		s := currencyPrinter.Sprintf("%v", number.Decimal(f, number.Scale(c.SF)))
		out[i] = r.With(c.NewColumn, records.String(s))
	}
	return out, nil
}

// AddSupervisor fills a missing column with a fixed name.
type AddSupervisor struct {
	Column     string `yaml:"column"`
	Supervisor string `yaml:"supervisor"`
}

func (AddSupervisor) Name() string { return "addsupervisor" }

func (a AddSupervisor) Apply(rs records.RecordSet) (records.RecordSet, error) {
	out := make(records.RecordSet, len(rs))
	for i, r := range rs {
		out[i] = r
		if a.Supervisor == "" || r.Has(a.Column) {
			continue
		}
		out[i] = r.With(a.Column, records.String(a.Supervisor))
	}
	return out, nil
}
