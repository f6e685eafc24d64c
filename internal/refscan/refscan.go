// Package refscan finds macro references in document bodies: includes,
// diagram inclusions and citations. Each reference kind is described by a
// Rule; the Scanner applies every rule in one left-to-right pass.
package refscan

import (
	"bytes"
	"strings"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
)

// Kind is the category of a reference.
type Kind int

const (
	KindInclude Kind = iota
	KindDiagram
	KindCitation
)

func (k Kind) String() string {
	switch k {
	case KindInclude:
		return "include"
	case KindDiagram:
		return "diagram"
	case KindCitation:
		return "citation"
	}
	return "unknown"
}

// Family groups diagram macros by the file types they can produce.
type Family int

const (
	FamilyNone Family = iota
	FamilyGeneric
	FamilySVG
	FamilyPDF
	FamilyRaster
)

// Rule describes one macro.
type Rule struct {
	Macro  string
	Kind   Kind
	Family Family
	// Ext is the extension a raster macro implies, e.g. "png" for \includepng.
	Ext string
}

// DefaultRules is the reference grammar used by lamd documents.
var DefaultRules = []Rule{
	{Macro: "include", Kind: KindInclude},
	{Macro: "includediagram", Kind: KindDiagram, Family: FamilyGeneric},
	{Macro: "includediagramclass", Kind: KindDiagram, Family: FamilyGeneric},
	{Macro: "includesvg", Kind: KindDiagram, Family: FamilySVG},
	{Macro: "includesvgclass", Kind: KindDiagram, Family: FamilySVG},
	{Macro: "includepdf", Kind: KindDiagram, Family: FamilyPDF},
	{Macro: "includeimg", Kind: KindDiagram, Family: FamilyRaster},
	{Macro: "includepng", Kind: KindDiagram, Family: FamilyRaster, Ext: "png"},
	{Macro: "includejpg", Kind: KindDiagram, Family: FamilyRaster, Ext: "jpg"},
	{Macro: "includegif", Kind: KindDiagram, Family: FamilyRaster, Ext: "gif"},
	{Macro: "figure", Kind: KindDiagram, Family: FamilyGeneric},
	{Macro: "cite", Kind: KindCitation},
	{Macro: "citep", Kind: KindCitation},
	{Macro: "citet", Kind: KindCitation},
}

// Reference is one match in a body.
type Reference struct {
	Rule Rule
	// Path is the first argument with directory macros expanded. Empty for citations.
	Path string
	// Raw is the argument as written.
	Raw string
	// Keys holds citation keys.
	Keys []string
	Line int
}

// Scanner applies rules to document bodies.
type Scanner struct {
	rules map[string]Rule
	vars  map[string]string
}

// New returns a scanner for rules. vars maps directory macro names such as
// "diagramsDir" to the values substituted into path arguments.
func New(rules []Rule, vars map[string]string) *Scanner {
	s := &Scanner{rules: make(map[string]Rule, len(rules)), vars: map[string]string{}}
	for _, r := range rules {
		s.rules[r.Macro] = r
	}
	for k, v := range vars {
		s.vars[k] = v
	}
	return s
}

// Scan returns the references in body in source order. Malformed references
// are skipped and reported in the second return value.
func (s *Scanner) Scan(path string, body []byte) ([]Reference, []error) {
	var (
		refs    []Reference
		skipped []error
	)
	i := 0
	for {
		j := bytes.IndexByte(body[i:], '\\')
		if j < 0 {
			return refs, skipped
		}
		start := i + j
		nameEnd := start + 1
		for nameEnd < len(body) && isLetter(body[nameEnd]) {
			nameEnd++
		}
		rule, ok := s.rules[string(body[start+1:nameEnd])]
		if !ok || nameEnd >= len(body) || body[nameEnd] != '{' {
			i = nameEnd
			continue
		}

		line := 1 + bytes.Count(body[:start], []byte{'\n'})
		arg, end, ok := braceArg(body, nameEnd)
		if !ok {
			skipped = append(skipped, lerrors.MalformedReference(path, line, snippet(body[start:])))
			i = nameEnd + 1
			continue
		}
		i = end

		ref, ok := s.build(rule, arg, line)
		if !ok {
			skipped = append(skipped, lerrors.MalformedReference(path, line, snippet(body[start:end])))
			continue
		}
		refs = append(refs, ref)
	}
}

func (s *Scanner) build(rule Rule, arg string, line int) (Reference, bool) {
	ref := Reference{Rule: rule, Raw: arg, Line: line}
	if rule.Kind == KindCitation {
		for _, k := range strings.Split(arg, ",") {
			if k = strings.TrimSpace(k); k != "" {
				ref.Keys = append(ref.Keys, k)
			}
		}
		return ref, len(ref.Keys) > 0
	}
	p := strings.TrimSpace(s.expand(arg))
	if p == "" || strings.ContainsAny(p, "{}\n") {
		return ref, false
	}
	ref.Path = p
	return ref, true
}

// expand substitutes \name for each known variable.
func (s *Scanner) expand(arg string) string {
	if !strings.Contains(arg, `\`) {
		return arg
	}
	var b strings.Builder
	for i := 0; i < len(arg); {
		if arg[i] != '\\' {
			b.WriteByte(arg[i])
			i++
			continue
		}
		j := i + 1
		for j < len(arg) && isLetter(arg[j]) {
			j++
		}
		if j == i+1 {
			b.WriteByte('\\')
			i++
			continue
		}
		if v, ok := s.vars[arg[i+1:j]]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(arg[i:j])
		}
		i = j
	}
	return b.String()
}

// braceArg reads the balanced group opening at body[open]. It returns the
// inner text and the offset just past the closing brace.
func braceArg(body []byte, open int) (string, int, bool) {
	depth := 0
	for k := open; k < len(body); k++ {
		switch body[k] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return string(body[open+1 : k]), k + 1, true
			}
		case '\n':
			if k+1 < len(body) && body[k+1] == '\n' {
				return "", 0, false
			}
		}
	}
	return "", 0, false
}

func snippet(b []byte) string {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	if len(b) > 60 {
		b = b[:60]
	}
	return string(b)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
