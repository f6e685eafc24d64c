package commands

import (
	"fmt"
	"maps"
	"strings"

	"git.home.luguber.info/inful/lamd/internal/config"
	"git.home.luguber.info/inful/lamd/internal/deps"
	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
	"git.home.luguber.info/inful/lamd/internal/fields"
)

// Field names supplying dependency defaults.
const (
	fieldDiagramsDir = "diagramsdir"
	fieldSnippetsDir = "snippetsdir"
	fieldBibDir      = "bibdir"
	fieldPosts       = "posts"
	fieldPostsDir    = "postsdir"
)

// DefaultSnippetsPath is searched for includes when neither -S nor the
// snippetsdir field is set.
const DefaultSnippetsPath = ".."

// DepsCmd implements 'lamd deps'.
type DepsCmd struct {
	Kind         string   `arg:"" enum:"all,inputs,diagrams,slidediagrams,texdiagrams,docxdiagrams,bibinputs,snippets,batch" help:"Dependency kind (all, inputs, diagrams, slidediagrams, texdiagrams, docxdiagrams, bibinputs, snippets, batch)"`
	File         string   `arg:"" help:"Root markdown document" type:"path"`
	DiagramsDir  string   `name:"diagrams-dir" short:"d" help:"Directory diagram references resolve into (default: diagramsdir field, else .)"`
	SnippetsPath []string `name:"snippets-path" short:"S" help:"Include search path (repeatable; default: snippetsdir field, else ..)"`
	BibPaths     []string `name:"bib" short:"b" help:"Bibliography file or directory (repeatable; default: bibdir field)"`
	Absolute     bool     `help:"Print absolute paths"`
	IgnoreCode   bool     `name:"ignore-code" help:"Skip references inside code blocks and spans"`
}

func (d *DepsCmd) options() deps.Options {
	return deps.Options{
		DiagramsDir: d.DiagramsDir,
		SearchPaths: d.SnippetsPath,
		BibPaths:    d.BibPaths,
		Absolute:    d.Absolute,
		IgnoreCode:  d.IgnoreCode,
		Defaults:    d.defaults,
	}
}

// defaults fills unset directories from the root's frontmatter and the
// project config. For 'all' it also requires postsdir in the project config
// when the document is published as a post.
func (d *DepsCmd) defaults(header map[string]any, opts *deps.Options) error {
	// postsdir must come from the project config, not the document.
	header = maps.Clone(header)
	delete(header, fieldPostsDir)

	names := []string{fieldDiagramsDir, fieldSnippetsDir, fieldBibDir, fieldPosts, fieldPostsDir}
	resolved, err := fields.NewResolver(nil).ResolveHeader(names, header, nil)
	if err != nil {
		return err
	}
	vals := make(map[string]string, len(resolved))
	for n, v := range resolved {
		if v.Found && v.Raw != nil {
			vals[n] = fields.Format(n, v)
		}
	}

	if d.Kind == "all" {
		if on, _ := config.ParseBool(vals[fieldPosts]); on && vals[fieldPostsDir] == "" {
			return lerrors.ConfigRequired(fieldPostsDir).WithContext("hint", "add 'postsdir: ../_posts' to _lamd.yml")
		}
	}

	if opts.DiagramsDir == "" {
		opts.DiagramsDir = vals[fieldDiagramsDir]
	}
	if len(opts.SearchPaths) == 0 {
		if s := vals[fieldSnippetsDir]; s != "" {
			opts.SearchPaths = []string{s}
		} else {
			opts.SearchPaths = []string{DefaultSnippetsPath}
		}
	}
	if len(opts.BibPaths) == 0 && vals[fieldBibDir] != "" {
		opts.BibPaths = []string{vals[fieldBibDir]}
	}
	return nil
}

// Run prints the dependencies as one space-separated line, or one labelled
// line per category in batch mode.
func (d *DepsCmd) Run(g *Global, _ *CLI) error {
	opts := d.options()

	if d.Kind == "batch" {
		cats, err := deps.Batch(d.File, opts)
		if err != nil {
			return err
		}
		for _, c := range cats {
			line := strings.TrimRight(c.Label+": "+strings.Join(c.Paths, " "), " ")
			if _, err := fmt.Fprintln(g.out(), line); err != nil {
				return err
			}
		}
		return nil
	}

	var kinds deps.KindSet
	switch d.Kind {
	case "all":
		kinds = deps.AllKinds
	case "inputs":
		kinds = deps.Inputs
	case "diagrams":
		kinds = deps.Diagrams
	case "slidediagrams":
		kinds, opts.Extensions = deps.Diagrams, []string{"svg"}
	case "texdiagrams":
		kinds, opts.Extensions = deps.Diagrams, []string{"pdf"}
	case "docxdiagrams":
		kinds, opts.Extensions = deps.Diagrams, []string{"emf"}
	case "bibinputs":
		kinds = deps.BibInputs
	case "snippets":
		kinds = deps.Snippets
	default:
		return lerrors.ValidationFailed("kind", fmt.Sprintf("unknown dependency kind %q", d.Kind))
	}

	set, err := deps.Extract(d.File, kinds, opts)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(g.out(), strings.Join(set.Paths(), " "))
	return err
}
