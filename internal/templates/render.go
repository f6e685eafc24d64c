// Package templates renders per-record list templates. Templates are looked
// up by name in the configured directories first and then in the built-in
// catalogue.
package templates

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"text/template/parse"
	"time"

	"git.home.luguber.info/inful/lamd/internal/records"
	"git.home.luguber.info/inful/lamd/internal/util/sets"
)

//go:embed builtin/*.md
var builtinFS embed.FS

// Extensions tried, in order, when resolving a template name to a file.
var Extensions = []string{".md", ".tmpl", ".gotmpl", ""}

// ErrTemplateNotFound reports a name that no directory or built-in provides.
var ErrTemplateNotFound = errors.New("template not found")

// Renderer resolves and caches parsed templates.
type Renderer struct {
	dirs []string

	mu    sync.Mutex
	cache map[string]*compiled
}

type compiled struct {
	tpl *template.Template
	// fields are the top-level keys the template reads; lists are the ones
	// it ranges over.
	fields, lists []string
}

// NewRenderer returns a renderer searching dirs in order.
func NewRenderer(dirs ...string) *Renderer {
	return &Renderer{dirs: dirs, cache: map[string]*compiled{}}
}

// Render executes the named template against data. Keys the template reads
// but data lacks render as empty text.
func (r *Renderer) Render(name string, data map[string]any) (string, error) {
	c, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := c.tpl.Execute(&buf, withEmpty(data, c.fields, c.lists)); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

func (r *Renderer) lookup(name string) (*compiled, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.cache[name]; ok {
		return c, nil
	}
	body, err := r.source(name)
	if err != nil {
		return nil, err
	}
	tpl, err := Parse(name, body)
	if err != nil {
		return nil, err
	}
	fields, lists := FieldNames(tpl)
	c := &compiled{tpl: tpl, fields: fields, lists: lists}
	r.cache[name] = c
	return c, nil
}

// withEmpty returns data with every missing field set to "" and every
// missing list set to an empty list. data itself is not modified.
func withEmpty(data map[string]any, fields, lists []string) map[string]any {
	out := make(map[string]any, len(data)+len(fields))
	for k, v := range data {
		out[k] = v
	}
	fill := func(names []string, empty func() any) {
		for _, n := range names {
			if v, ok := out[n]; !ok || v == nil {
				out[n] = empty()
			}
		}
	}
	fill(lists, func() any { return []any{} })
	fill(fields, func() any { return "" })
	return out
}

type fieldCollector struct {
	fields, lists sets.Set[string]
}

// FieldNames returns the single-segment field names (.title, $.title) read
// anywhere in tpl and its associated templates, and the subset used as the
// pipeline of a range.
func FieldNames(tpl *template.Template) (fields, lists []string) {
	c := fieldCollector{fields: sets.New[string](), lists: sets.New[string]()}
	for _, t := range tpl.Templates() {
		if t.Tree != nil {
			c.walk(t.Tree.Root, c.fields)
		}
	}
	for n := range c.lists {
		c.fields.Delete(n)
	}
	return sets.Sorted(c.fields), sets.Sorted(c.lists)
}

func (c fieldCollector) walk(n parse.Node, into sets.Set[string]) {
	switch x := n.(type) {
	case *parse.ListNode:
		if x == nil {
			return
		}
		for _, node := range x.Nodes {
			c.walk(node, c.fields)
		}
	case *parse.ActionNode:
		c.walk(x.Pipe, into)
	case *parse.IfNode:
		c.branch(&x.BranchNode, c.fields)
	case *parse.RangeNode:
		c.branch(&x.BranchNode, c.lists)
	case *parse.WithNode:
		c.branch(&x.BranchNode, c.fields)
	case *parse.TemplateNode:
		c.walk(x.Pipe, into)
	case *parse.PipeNode:
		if x == nil {
			return
		}
		for _, cmd := range x.Cmds {
			c.walk(cmd, into)
		}
	case *parse.CommandNode:
		// Only a bare field is the value itself; function arguments are not.
		if len(x.Args) == 1 {
			c.walk(x.Args[0], into)
			return
		}
		for _, a := range x.Args {
			c.walk(a, c.fields)
		}
	case *parse.ChainNode:
		c.walk(x.Node, into)
	case *parse.FieldNode:
		if len(x.Ident) == 1 {
			into.Add(x.Ident[0])
		}
	case *parse.VariableNode:
		if len(x.Ident) == 2 && x.Ident[0] == "$" {
			into.Add(x.Ident[1])
		}
	}
}

func (c fieldCollector) branch(b *parse.BranchNode, pipe sets.Set[string]) {
	c.walk(b.Pipe, pipe)
	c.walk(b.List, c.fields)
	c.walk(b.ElseList, c.fields)
}

// Parse compiles a template body with the list helper functions.
func Parse(name, body string) (*template.Template, error) {
	tpl, err := template.New(name).Funcs(Funcs()).Option("missingkey=zero").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return tpl, nil
}

// Builtins lists the names of the embedded templates.
func Builtins() []string {
	entries, _ := builtinFS.ReadDir("builtin")
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".md"))
	}
	return out
}

// Funcs returns the helper functions available to list templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"formatDate": formatDate,
		"year":       year,
		"month":      month,
		"join":       join,
		"default":    defaultValue,
		"authors":    authors,
		"lower":      strings.ToLower,
		"upper":      strings.ToUpper,
		"trim":       strings.TrimSpace,
	}
}

func asTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		for _, layout := range []string{records.DateLayout, time.RFC3339} {
			if t, err := time.Parse(layout, x); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// formatDate renders a date as "2 January 2006", or with an explicit layout.
func formatDate(v any, layout ...string) string {
	t, ok := asTime(v)
	if !ok {
		return fmt.Sprint(v)
	}
	l := "2 January 2006"
	if len(layout) > 0 && layout[0] != "" {
		l = layout[0]
	}
	return t.Format(l)
}

func year(v any) string {
	if t, ok := asTime(v); ok {
		return fmt.Sprint(t.Year())
	}
	return fmt.Sprint(v)
}

func month(v any) string {
	if t, ok := asTime(v); ok {
		return t.Month().String()
	}
	return fmt.Sprint(v)
}

func join(sep string, v any) string {
	switch x := v.(type) {
	case []string:
		return strings.Join(x, sep)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, sep)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func defaultValue(def, v any) any {
	if v == nil {
		return def
	}
	if s, ok := v.(string); ok && s == "" {
		return def
	}
	return v
}

// authors renders a CSL-style author list: maps with given/family names,
// or plain strings.
func authors(v any) string {
	list, ok := v.([]any)
	if !ok {
		if s, ok := v.([]string); ok {
			return joinNames(s)
		}
		return fmt.Sprint(v)
	}
	names := make([]string, 0, len(list))
	for _, a := range list {
		switch x := a.(type) {
		case map[string]any:
			given, _ := x["given"].(string)
			family, _ := x["family"].(string)
			names = append(names, strings.TrimSpace(initials(given)+" "+family))
		default:
			names = append(names, fmt.Sprint(x))
		}
	}
	return joinNames(names)
}

func initials(given string) string {
	var b strings.Builder
	for _, part := range strings.Fields(given) {
		r := []rune(part)
		b.WriteString(string(r[0]) + ". ")
	}
	return strings.TrimSpace(b.String())
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}
