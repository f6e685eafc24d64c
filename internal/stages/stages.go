// Package stages implements the closed catalogue of list pipeline stages:
// preprocessors convert field types, augmentors derive fields, a sorter orders
// records and filters select them. Stages are decoded from YAML descriptors
// into typed values when a list configuration is loaded.
package stages

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
	"git.home.luguber.info/inful/lamd/internal/records"
)

// RunContext carries the per-run state stages depend on.
type RunContext struct {
	// SinceYear is the inclusive lower bound used by the recent filter.
	SinceYear int
	// Now is the reference date for current/former filters.
	Now time.Time
}

// DefaultLookback is how many years before now the recent filter reaches
// when no since-year is given.
const DefaultLookback = 5

// NewRunContext truncates now to its calendar date in UTC and defaults
// sinceYear to now's year minus DefaultLookback when zero.
func NewRunContext(now time.Time, sinceYear int) RunContext {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if sinceYear == 0 {
		sinceYear = day.Year() - DefaultLookback
	}
	return RunContext{SinceYear: sinceYear, Now: day}
}

// Preprocessor converts field types in place of the originals.
type Preprocessor interface {
	Name() string
	Apply(records.RecordSet) (records.RecordSet, error)
}

// Augmentor derives new fields from existing ones.
type Augmentor interface {
	Name() string
	Apply(records.RecordSet) (records.RecordSet, error)
}

// Sorter reorders records. It never drops or re-indexes them.
type Sorter interface {
	Name() string
	Sort(records.RecordSet) records.RecordSet
}

// Filter computes a selection mask.
type Filter interface {
	Name() string
	Mask(records.RecordSet, RunContext) (records.Mask, error)
}

// Descriptor is a stage reference as written in list configuration: either a
// bare name or a mapping with name and args.
type Descriptor struct {
	Name string    `yaml:"name"`
	Args yaml.Node `yaml:"args"`
}

// UnmarshalYAML accepts `recent` as well as `{name: recent, args: {...}}`.
func (d *Descriptor) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		d.Name = n.Value
		d.Args = yaml.Node{}
		return nil
	}
	type plain Descriptor
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	if p.Name == "" {
		return fmt.Errorf("line %d: stage descriptor without name", n.Line)
	}
	*d = Descriptor(p)
	return nil
}

// Descriptors is a list of descriptors that also accepts a single entry.
type Descriptors []Descriptor

func (ds *Descriptors) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.SequenceNode {
		out := make([]Descriptor, 0, len(n.Content))
		for _, c := range n.Content {
			var d Descriptor
			if err := c.Decode(&d); err != nil {
				return err
			}
			out = append(out, d)
		}
		*ds = out
		return nil
	}
	var d Descriptor
	if err := n.Decode(&d); err != nil {
		return err
	}
	*ds = Descriptors{d}
	return nil
}

// decodeArgs decodes a descriptor's args into out, rejecting unknown keys.
func decodeArgs(stage string, args *yaml.Node, out any) error {
	if args == nil || args.Kind == 0 {
		return nil
	}
	raw, err := yaml.Marshal(args)
	if err != nil {
		return lerrors.StageArgs(stage, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return lerrors.StageArgs(stage, err)
	}
	if v, ok := out.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return lerrors.StageArgs(stage, err)
		}
	}
	return nil
}

// Columns is a column list that may be written as a single string.
type Columns []string

func (c *Columns) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*c = Columns{n.Value}
		return nil
	}
	var list []string
	if err := n.Decode(&list); err != nil {
		return err
	}
	*c = list
	return nil
}

type (
	preprocessorFactory func(*yaml.Node) (Preprocessor, error)
	augmentorFactory    func(*yaml.Node) (Augmentor, error)
	sorterFactory       func(*yaml.Node) (Sorter, error)
	filterFactory       func(*yaml.Node) (Filter, error)
)

func preprocessor[T Preprocessor](name string, def T) preprocessorFactory {
	return func(a *yaml.Node) (Preprocessor, error) {
		v := def
		if err := decodeArgs(name, a, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func augmentor[T Augmentor](name string, def T) augmentorFactory {
	return func(a *yaml.Node) (Augmentor, error) {
		v := def
		if err := decodeArgs(name, a, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func sorter[T Sorter](name string, def T) sorterFactory {
	return func(a *yaml.Node) (Sorter, error) {
		v := def
		if err := decodeArgs(name, a, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func filter[T Filter](name string, def T) filterFactory {
	return func(a *yaml.Node) (Filter, error) {
		v := def
		if err := decodeArgs(name, a, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

var preprocessors = map[string]preprocessorFactory{
	"convert_datetime": preprocessor("convert_datetime", ConvertDatetime{}),
	"convert_int":      preprocessor("convert_int", ConvertInt{}),
	"convert_string":   preprocessor("convert_string", ConvertString{}),
	"convert_year_iso": preprocessor("convert_year_iso", ConvertYearISO{Column: "year", Month: 1, Day: 1}),
}

var augmentors = map[string]augmentorFactory{
	"addmonth":        augmentor("addmonth", DateField{Op: "addmonth", NewColumn: "month", Source: "date", Overwrite: true}),
	"addyear":         augmentor("addyear", DateField{Op: "addyear", NewColumn: "year", Source: "date", Overwrite: true}),
	"augmentmonth":    augmentor("augmentmonth", DateField{Op: "augmentmonth", NewColumn: "month", Source: "date"}),
	"augmentyear":     augmentor("augmentyear", DateField{Op: "augmentyear", NewColumn: "year", Source: "date"}),
	"augmentcurrency": augmentor("augmentcurrency", AugmentCurrency{NewColumn: "amountstr", Source: "amount"}),
	"addsupervisor":   augmentor("addsupervisor", AddSupervisor{Column: "supervisor"}),
}

var sorters = map[string]sorterFactory{
	"ascending":  sorter("ascending", Order{}),
	"descending": sorter("descending", Order{Descending: true}),
}

var filters = map[string]filterFactory{
	"recent":         filter("recent", Recent{Column: "year"}),
	"current":        filter("current", Current{Start: "start", End: "end"}),
	"former":         filter("former", Former{End: "end"}),
	"onbool":         filter("onbool", OnBool{Column: "current"}),
	"equals":         filter("equals", Equals{}),
	"columnis":       filter("columnis", Equals{}),
	"contains":       filter("contains", Contains{}),
	"columncontains": filter("columncontains", Contains{}),
}

// DecodePreprocessor resolves a descriptor against the preprocessor catalogue.
func DecodePreprocessor(d Descriptor) (Preprocessor, error) {
	f, ok := preprocessors[d.Name]
	if !ok {
		return nil, lerrors.UnknownStage("preprocessor", d.Name)
	}
	return f(&d.Args)
}

// DecodeAugmentor resolves a descriptor against the augmentor catalogue.
func DecodeAugmentor(d Descriptor) (Augmentor, error) {
	f, ok := augmentors[d.Name]
	if !ok {
		return nil, lerrors.UnknownStage("augmentor", d.Name)
	}
	return f(&d.Args)
}

// DecodeSorter resolves a descriptor against the sorter catalogue.
func DecodeSorter(d Descriptor) (Sorter, error) {
	f, ok := sorters[d.Name]
	if !ok {
		return nil, lerrors.UnknownStage("sorter", d.Name)
	}
	return f(&d.Args)
}

// DecodeFilter resolves a descriptor against the filter catalogue.
func DecodeFilter(d Descriptor) (Filter, error) {
	f, ok := filters[d.Name]
	if !ok {
		return nil, lerrors.UnknownStage("filter", d.Name)
	}
	return f(&d.Args)
}
