package listgen

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
	"git.home.luguber.info/inful/lamd/internal/stages"
)

// DefaultListsFile is the user list configuration read from the working directory.
const DefaultListsFile = "cvlists.yml"

//go:embed defaults.yml
var defaultsYAML []byte

// entry is one list type as written in YAML. Pointer fields distinguish an
// absent key (inherit) from an explicit empty value (clear).
type entry struct {
	Base          string              `yaml:"base"`
	Template      *string             `yaml:"listtemplate"`
	Preprocessors *stages.Descriptors `yaml:"preprocessor"`
	Augmentors    *stages.Descriptors `yaml:"augmentor"`
	Sorter        *stages.Descriptors `yaml:"sorter"`
	Filters       *stages.Descriptors `yaml:"filter"`
	AddFilters    *stages.Descriptors `yaml:"addfilter"`
}

type document struct {
	Lists map[string]entry `yaml:"lists"`
}

// Catalogue holds the known list types.
type Catalogue struct {
	entries map[string]entry
}

// DefaultCatalogue returns the built-in list types.
func DefaultCatalogue() (*Catalogue, error) {
	c := &Catalogue{entries: map[string]entry{}}
	if err := c.merge(defaultsYAML, "defaults.yml"); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadCatalogue reads path over the built-in list types. A missing file is
// not an error when optional is true.
func LoadCatalogue(path string, optional bool) (*Catalogue, error) {
	c, err := DefaultCatalogue()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return c, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if optional {
				return c, nil
			}
			return nil, lerrors.ConfigNotFound(path)
		}
		return nil, lerrors.ConfigInvalid(path, err)
	}
	if err := c.merge(content, path); err != nil {
		return nil, err
	}
	return c, nil
}

// Merge adds list types from YAML content, replacing same-named entries.
func (c *Catalogue) Merge(content []byte, source string) error {
	return c.merge(content, source)
}

func (c *Catalogue) merge(content []byte, source string) error {
	var doc document
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return lerrors.ConfigInvalid(source, err)
	}
	for name, e := range doc.Lists {
		c.entries[name] = e
	}
	return nil
}

// Names lists the known list types.
func (c *Catalogue) Names() []string {
	out := make([]string, 0, len(c.entries))
	for n := range c.entries {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Resolve builds the configuration for name, following base chains. Every
// stage is decoded here so unknown names fail before any record is touched.
func (c *Catalogue) Resolve(name string) (ListConfig, error) {
	cfg, err := c.resolve(name, map[string]bool{})
	if err != nil {
		return ListConfig{}, err
	}
	if cfg.Template == "" {
		return ListConfig{}, lerrors.ConfigRequired("listtemplate").WithContext("list_type", name)
	}
	return cfg, nil
}

func (c *Catalogue) resolve(name string, visiting map[string]bool) (ListConfig, error) {
	e, ok := c.entries[name]
	if !ok {
		return ListConfig{}, lerrors.ValidationFailed("listtype", fmt.Sprintf("unknown list type %q", name))
	}
	if visiting[name] {
		return ListConfig{}, lerrors.ValidationFailed("base", fmt.Sprintf("inheritance cycle through %q", name))
	}
	visiting[name] = true

	base := ListConfig{}
	if e.Base != "" {
		var err error
		if base, err = c.resolve(e.Base, visiting); err != nil {
			return ListConfig{}, err
		}
	}

	overrides, err := e.overrides()
	if err != nil {
		return ListConfig{}, err
	}
	return Derive(base, append(overrides, WithName(name))...), nil
}

func (e entry) overrides() ([]Override, error) {
	var out []Override
	if e.Template != nil {
		out = append(out, WithTemplate(*e.Template))
	}
	if e.Preprocessors != nil {
		ps, err := decodeAll(*e.Preprocessors, stages.DecodePreprocessor)
		if err != nil {
			return nil, err
		}
		out = append(out, WithPreprocessors(ps...))
	}
	if e.Augmentors != nil {
		as, err := decodeAll(*e.Augmentors, stages.DecodeAugmentor)
		if err != nil {
			return nil, err
		}
		out = append(out, WithAugmentors(as...))
	}
	if e.Sorter != nil {
		var s stages.Sorter
		switch len(*e.Sorter) {
		case 0:
		case 1:
			var err error
			if s, err = stages.DecodeSorter((*e.Sorter)[0]); err != nil {
				return nil, err
			}
		default:
			return nil, lerrors.ValidationFailed("sorter", "only one sorter may be configured")
		}
		out = append(out, WithSorter(s))
	}
	if e.Filters != nil {
		filters, err := decodeAll(*e.Filters, stages.DecodeFilter)
		if err != nil {
			return nil, err
		}
		out = append(out, WithFilters(filters...))
	}
	if e.AddFilters != nil {
		filters, err := decodeAll(*e.AddFilters, stages.DecodeFilter)
		if err != nil {
			return nil, err
		}
		out = append(out, AddFilters(filters...))
	}
	return out, nil
}

func decodeAll[T any](ds stages.Descriptors, decode func(stages.Descriptor) (T, error)) ([]T, error) {
	out := make([]T, 0, len(ds))
	for _, d := range ds {
		v, err := decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
