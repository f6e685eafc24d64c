// Package listgen turns tabular records into markdown lists. A ListConfig
// names the stages to run and the per-record template; configurations are
// read from cvlists.yml on top of a built-in catalogue and may inherit from
// one another.
package listgen

import (
	"slices"

	"git.home.luguber.info/inful/lamd/internal/stages"
)

// ListConfig is the immutable description of one list type.
type ListConfig struct {
	Name          string
	Preprocessors []stages.Preprocessor
	Augmentors    []stages.Augmentor
	Sorter        stages.Sorter
	Filters       []stages.Filter
	Template      string
}

// Override adjusts a derived configuration.
type Override func(*ListConfig)

// Derive copies base and applies overrides. The result shares no slices with
// base, so neither can observe later changes to the other.
func Derive(base ListConfig, overrides ...Override) ListConfig {
	out := ListConfig{
		Name:          base.Name,
		Preprocessors: slices.Clone(base.Preprocessors),
		Augmentors:    slices.Clone(base.Augmentors),
		Sorter:        base.Sorter,
		Filters:       slices.Clone(base.Filters),
		Template:      base.Template,
	}
	for _, o := range overrides {
		o(&out)
	}
	return out
}

func WithName(name string) Override {
	return func(c *ListConfig) { c.Name = name }
}

func WithTemplate(name string) Override {
	return func(c *ListConfig) { c.Template = name }
}

func WithPreprocessors(ps ...stages.Preprocessor) Override {
	return func(c *ListConfig) { c.Preprocessors = slices.Clone(ps) }
}

func WithAugmentors(as ...stages.Augmentor) Override {
	return func(c *ListConfig) { c.Augmentors = slices.Clone(as) }
}

// WithSorter replaces the sorter; nil disables sorting.
func WithSorter(s stages.Sorter) Override {
	return func(c *ListConfig) { c.Sorter = s }
}

// WithFilters replaces the filter list.
func WithFilters(fs ...stages.Filter) Override {
	return func(c *ListConfig) { c.Filters = slices.Clone(fs) }
}

// AddFilters appends to the inherited filter list.
func AddFilters(fs ...stages.Filter) Override {
	return func(c *ListConfig) { c.Filters = append(slices.Clone(c.Filters), fs...) }
}
