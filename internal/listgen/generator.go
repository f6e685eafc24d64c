package listgen

import (
	"log/slog"
	"strings"
	"time"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
	"git.home.luguber.info/inful/lamd/internal/logfields"
	"git.home.luguber.info/inful/lamd/internal/records"
	"git.home.luguber.info/inful/lamd/internal/stages"
)

// Renderer renders one record through a named template.
type Renderer interface {
	Render(name string, data map[string]any) (string, error)
}

// Generator runs list configurations over record sets.
type Generator struct {
	renderer Renderer
}

// NewGenerator returns a generator rendering through r.
func NewGenerator(r Renderer) *Generator {
	return &Generator{renderer: r}
}

// Select runs preprocessors, augmentors, the sorter and the AND-combined
// filters, returning the surviving records in output order.
func (g *Generator) Select(cfg ListConfig, rs records.RecordSet, rc stages.RunContext) (records.RecordSet, error) {
	var err error
	for _, p := range cfg.Preprocessors {
		if rs, err = p.Apply(rs); err != nil {
			return nil, err
		}
		slog.Debug("Applied preprocessor", logfields.ListType(cfg.Name), logfields.Stage(p.Name()))
	}
	for _, a := range cfg.Augmentors {
		if rs, err = a.Apply(rs); err != nil {
			return nil, err
		}
		slog.Debug("Applied augmentor", logfields.ListType(cfg.Name), logfields.Stage(a.Name()))
	}
	if cfg.Sorter != nil {
		rs = cfg.Sorter.Sort(rs)
	}

	keep := records.All(len(rs))
	for _, f := range cfg.Filters {
		m, err := f.Mask(rs, rc)
		if err != nil {
			return nil, err
		}
		keep = keep.And(m)
		slog.Debug("Applied filter", logfields.ListType(cfg.Name), logfields.Stage(f.Name()), logfields.Records(m.Count()))
	}
	return rs.Select(keep), nil
}

// Run selects records and renders each through cfg.Template. Every fragment
// ends in a single newline followed by a blank line.
func (g *Generator) Run(cfg ListConfig, rs records.RecordSet, rc stages.RunContext) (string, error) {
	if cfg.Template == "" {
		return "", lerrors.ConfigRequired("listtemplate")
	}
	start := time.Now()

	selected, err := g.Select(cfg, rs, rc)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, r := range selected {
		frag, err := g.renderer.Render(cfg.Template, r.TemplateData())
		if err != nil {
			return "", lerrors.TemplateFailed(cfg.Template, err).WithContext("record", r.ID)
		}
		frag = strings.TrimRight(frag, "\r\n")
		if strings.TrimSpace(frag) == "" {
			continue
		}
		b.WriteString(frag)
		b.WriteString("\n\n")
	}

	slog.Debug("Generated list",
		logfields.ListType(cfg.Name),
		logfields.Template(cfg.Template),
		logfields.Records(len(selected)),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	return b.String(), nil
}
