// Package deps discovers the files a document transitively depends on:
// included sources, diagrams and bibliography files.
package deps

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/lamd/internal/bib"
	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
	"git.home.luguber.info/inful/lamd/internal/frontmatter"
	"git.home.luguber.info/inful/lamd/internal/logfields"
	"git.home.luguber.info/inful/lamd/internal/markdown"
	"git.home.luguber.info/inful/lamd/internal/refscan"
	"git.home.luguber.info/inful/lamd/internal/util/sets"
)

// Kind is a dependency category.
type Kind int

const (
	KindInput Kind = iota
	KindDiagram
	KindBibInput
	KindSnippet
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindDiagram:
		return "diagram"
	case KindBibInput:
		return "bibinput"
	case KindSnippet:
		return "snippet"
	}
	return "unknown"
}

// KindSet selects the categories Extract reports.
type KindSet uint8

const (
	Inputs KindSet = 1 << iota
	Diagrams
	BibInputs
	Snippets

	AllKinds = Inputs | Diagrams | BibInputs
)

// Has reports whether k is selected.
func (s KindSet) Has(k Kind) bool {
	switch k {
	case KindInput:
		return s&Inputs != 0
	case KindDiagram:
		return s&Diagrams != 0
	case KindBibInput:
		return s&BibInputs != 0
	case KindSnippet:
		return s&Snippets != 0
	}
	return false
}

// Node is one dependency.
type Node struct {
	Path string
	Kind Kind
	Ext  string
}

// Set is an ordered, duplicate-free list of dependencies.
type Set []Node

// Paths returns the node paths in order.
func (s Set) Paths() []string {
	out := make([]string, len(s))
	for i, n := range s {
		out[i] = n.Path
	}
	return out
}

// Options control reference resolution.
type Options struct {
	// Extensions restricts the diagram extensions Extract reports.
	Extensions []string
	// SearchPaths are consulted, in order, after the including file's directory.
	SearchPaths []string
	// DiagramsDir is where relative diagram references resolve. Defaults to ".".
	DiagramsDir string
	// SnippetsDir is substituted for \snippetsDir. Defaults to the first search path.
	SnippetsDir string
	// BibPaths are .bib files or directories holding them.
	BibPaths []string
	// Absolute presents every path as an absolute path.
	Absolute bool
	// IgnoreCode skips references inside fenced blocks and code spans.
	IgnoreCode bool
	// Rules overrides refscan.DefaultRules.
	Rules []refscan.Rule
	// Defaults, when set, is called with the root's frontmatter before the
	// traversal starts and may fill options the caller left unset.
	Defaults func(header map[string]any, opts *Options) error
}

func (o Options) diagramsDir() string {
	if o.DiagramsDir == "" {
		return "."
	}
	return o.DiagramsDir
}

func (o Options) snippetsDir() string {
	if o.SnippetsDir != "" {
		return o.SnippetsDir
	}
	if len(o.SearchPaths) > 0 {
		return o.SearchPaths[0]
	}
	return "."
}

// Extract returns the dependencies of root in the selected categories.
func Extract(root string, kinds KindSet, opts Options) (Set, error) {
	g, err := Scan(root, opts)
	if err != nil {
		return nil, err
	}
	var out Set
	seen := sets.New[string]()
	add := func(nodes Set) {
		for _, n := range nodes {
			if seen.Add(n.Path) {
				out = append(out, n)
			}
		}
	}
	if kinds.Has(KindInput) {
		add(g.Inputs())
	}
	if kinds.Has(KindDiagram) {
		add(g.Diagrams(opts.Extensions...))
	}
	if kinds.Has(KindBibInput) {
		nodes, err := g.BibInputs()
		if err != nil {
			return nil, err
		}
		add(nodes)
	}
	if kinds.Has(KindSnippet) {
		add(g.Snippets())
	}
	return out, nil
}

// Category is one labelled line of batch output.
type Category struct {
	Label string
	Paths []string
}

// Batch returns the standard categories from a single traversal of root.
func Batch(root string, opts Options) ([]Category, error) {
	g, err := Scan(root, opts)
	if err != nil {
		return nil, err
	}
	bibs, err := g.BibInputs()
	if err != nil {
		return nil, err
	}
	return []Category{
		{Label: "inputs", Paths: g.Inputs().Paths()},
		{Label: "diagrams", Paths: g.Diagrams().Paths()},
		{Label: "slidediagrams", Paths: g.Diagrams("svg").Paths()},
		{Label: "texdiagrams", Paths: g.Diagrams("pdf").Paths()},
		{Label: "docxdiagrams", Paths: g.Diagrams("emf").Paths()},
		{Label: "bibinputs", Paths: bibs.Paths()},
	}, nil
}

type include struct {
	path    string
	found   bool
	snippet bool
}

type diagram struct {
	path string
	rule refscan.Rule
}

// Graph holds every reference reachable from a root document.
type Graph struct {
	Root string
	// Header holds the root document's frontmatter fields.
	Header map[string]any
	// Skipped holds the malformed references that were ignored.
	Skipped []error

	opts      Options
	includes  []include
	diagrams  []diagram
	citations *sets.Ordered[string]
}

// Scan reads root and every document it transitively includes, once each.
func Scan(root string, opts Options) (*Graph, error) {
	content, err := os.ReadFile(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, lerrors.DocumentNotFound(root)
		}
		return nil, lerrors.DocumentUnreadable(root, err)
	}
	header, body := map[string]any{}, content
	if doc, err := frontmatter.Parse(content); err != nil {
		slog.Warn("Ignoring malformed frontmatter", logfields.File(root), logfields.Error(err))
	} else {
		header, body = doc.Fields, doc.Body
	}
	if opts.Defaults != nil {
		if err := opts.Defaults(header, &opts); err != nil {
			return nil, err
		}
	}

	rules := opts.Rules
	if rules == nil {
		rules = refscan.DefaultRules
	}
	g := &Graph{
		Root:      root,
		Header:    header,
		opts:      opts,
		citations: sets.NewOrdered[string](),
	}
	s := refscan.New(rules, map[string]string{
		"diagramsDir": opts.diagramsDir(),
		"snippetsDir": opts.snippetsDir(),
	})

	visited := sets.New(absKey(root))
	if err := g.scan(s, root, body, visited); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) walk(s *refscan.Scanner, path string, visited sets.Set[string]) error {
	body, err := readBody(path)
	if err != nil {
		slog.Warn("Skipping unreadable include", logfields.File(path), logfields.Error(err))
		return nil
	}
	return g.scan(s, path, body, visited)
}

func (g *Graph) scan(s *refscan.Scanner, path string, body []byte, visited sets.Set[string]) error {
	if g.opts.IgnoreCode {
		body = markdown.MaskCode(body)
	}

	refs, skipped := s.Scan(path, body)
	for _, err := range skipped {
		slog.Warn("Skipping malformed reference", logfields.File(path), logfields.Error(err))
	}
	g.Skipped = append(g.Skipped, skipped...)

	for _, ref := range refs {
		switch ref.Rule.Kind {
		case refscan.KindInclude:
			inc := g.resolveInclude(filepath.Dir(path), ref)
			if !visited.Add(absKey(inc.path)) {
				continue
			}
			g.includes = append(g.includes, inc)
			if inc.found {
				if err := g.walk(s, inc.path, visited); err != nil {
					return err
				}
			}
		case refscan.KindDiagram:
			p := ref.Path
			if !usesMacro(ref.Raw) && !filepath.IsAbs(p) {
				p = filepath.Join(g.opts.diagramsDir(), p)
			}
			g.diagrams = append(g.diagrams, diagram{path: filepath.Clean(p), rule: ref.Rule})
		case refscan.KindCitation:
			for _, k := range ref.Keys {
				g.citations.Add(k)
			}
		}
	}
	return nil
}

// resolveInclude tries the including directory, then each search path.
// References written with a directory macro are taken as expanded.
func (g *Graph) resolveInclude(dir string, ref refscan.Reference) include {
	p := ref.Path
	if usesMacro(ref.Raw) || filepath.IsAbs(p) {
		return include{
			path:    filepath.Clean(p),
			found:   isFile(p),
			snippet: strings.Contains(ref.Raw, `\snippetsDir`),
		}
	}
	if c := filepath.Join(dir, p); isFile(c) {
		return include{path: c, found: true}
	}
	for _, sp := range g.opts.SearchPaths {
		if c := filepath.Join(sp, p); isFile(c) {
			return include{path: c, found: true, snippet: true}
		}
	}
	return include{path: filepath.Clean(p)}
}

// Inputs returns every included document, resolved or not.
func (g *Graph) Inputs() Set {
	out := make(Set, 0, len(g.includes))
	for _, inc := range g.includes {
		out = append(out, Node{Path: g.present(inc.path), Kind: KindInput, Ext: extOf(inc.path)})
	}
	return out
}

// Snippets returns the includes that came from the snippet search paths.
func (g *Graph) Snippets() Set {
	var out Set
	for _, inc := range g.includes {
		if inc.snippet {
			out = append(out, Node{Path: g.present(inc.path), Kind: KindSnippet, Ext: extOf(inc.path)})
		}
	}
	return out
}

// Diagrams returns the diagram files, restricted to exts when given.
func (g *Graph) Diagrams(exts ...string) Set {
	allow := sets.New[string]()
	for _, e := range exts {
		allow.Add(strings.TrimPrefix(strings.ToLower(e), "."))
	}
	var out Set
	seen := sets.New[string]()
	for _, d := range g.diagrams {
		for _, ext := range diagramExts(d, exts) {
			if len(allow) > 0 && !allow.Has(ext) {
				continue
			}
			p := d.path
			if extOf(p) == "" {
				p += "." + ext
			}
			if seen.Add(absKey(p)) {
				out = append(out, Node{Path: g.present(p), Kind: KindDiagram, Ext: ext})
			}
		}
	}
	return out
}

var (
	genericExts = []string{"svg", "png", "pdf", "emf", "gif", "jpg"}
	rasterExts  = []string{"png", "jpg", "jpeg", "gif"}
)

// diagramExts lists the extensions a diagram reference produces.
func diagramExts(d diagram, filter []string) []string {
	if e := extOf(d.path); e != "" {
		return []string{e}
	}
	switch d.rule.Family {
	case refscan.FamilySVG:
		return []string{"svg"}
	case refscan.FamilyPDF:
		return []string{"pdf"}
	case refscan.FamilyRaster:
		if d.rule.Ext != "" {
			return []string{d.rule.Ext}
		}
		return []string{firstExisting(d.path, rasterExts)}
	}
	if len(filter) > 0 {
		out := make([]string, len(filter))
		for i, e := range filter {
			out[i] = strings.TrimPrefix(strings.ToLower(e), ".")
		}
		return out
	}
	return []string{firstExisting(d.path, genericExts)}
}

func firstExisting(base string, exts []string) string {
	for _, e := range exts {
		if isFile(base + "." + e) {
			return e
		}
	}
	return exts[0]
}

// BibInputs returns the bibliography files defining the cited keys.
func (g *Graph) BibInputs() (Set, error) {
	keys := g.citations.Items()
	if len(keys) == 0 {
		return nil, nil
	}
	ix, err := bib.NewIndex(g.opts.BibPaths)
	if err != nil {
		return nil, lerrors.FileSystemError("index bibliography", err)
	}
	var out Set
	seen := sets.New[string]()
	for _, k := range keys {
		p, ok := ix.Resolve(k)
		if !ok {
			slog.Debug("Citation key not found in bibliography", logfields.Field(k), logfields.Path(p))
		}
		if seen.Add(absKey(p)) {
			out = append(out, Node{Path: g.present(p), Kind: KindBibInput, Ext: "bib"})
		}
	}
	return out, nil
}

// Citations returns the distinct cited keys in first-use order.
func (g *Graph) Citations() []string { return g.citations.Items() }

func (g *Graph) present(p string) string {
	if !g.opts.Absolute {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func readBody(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	_, body, _, err := frontmatter.Split(content)
	if err != nil {
		return content, nil
	}
	return body, nil
}

func usesMacro(raw string) bool {
	return strings.Contains(raw, `\diagramsDir`) || strings.Contains(raw, `\snippetsDir`)
}

func absKey(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func extOf(p string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(p)), ".")
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
