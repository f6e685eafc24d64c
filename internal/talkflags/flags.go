// Package talkflags derives pandoc command-line options for a document from
// its fields: output filename prefixes, post metadata and per-format options.
package talkflags

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
	"git.home.luguber.info/inful/lamd/internal/fields"
	"git.home.luguber.info/inful/lamd/internal/records"
)

// Output selects which option string to produce.
type Output string

const (
	OutputPrefix Output = "prefix"
	OutputPost   Output = "post"
	OutputDocx   Output = "docx"
	OutputPptx   Output = "pptx"
	OutputReveal Output = "reveal"
	OutputPP     Output = "pp"
	OutputCV     Output = "cv"
)

// Outputs lists every accepted output in CLI order.
var Outputs = []Output{OutputPP, OutputPost, OutputDocx, OutputPptx, OutputPrefix, OutputReveal, OutputCV}

// Defaults used when the corresponding field is absent.
const (
	DefaultLayout     = "talk"
	DefaultRevealURL  = "https://unpkg.com/reveal.js@3.9.2"
	DefaultTalkTheme  = "black"
	DefaultTalkCSS    = "https://inverseprobability.com/assets/css/talks.css"
	testLayoutPrefix  = "XXXX-XX-XX-"
	editURLTemplate   = "https://github.com/%s/%s/edit/%s/%s/%s.md"
	ppIncludePath     = "--include-path ./.."
	revealSlideLevel2 = "--slide-level 2"
)

// numbered fields become --metadata NAME=N when present.
var numbered = []string{"week", "topic", "session", "practical", "background"}

// postLinks are boolean fields that add a link to a generated artefact.
var postLinks = []struct{ field, suffix string }{
	{"docx", ".docx"},
	{"pptx", ".pptx"},
	{"reveal", ".slides.html"},
	{"ipynb", ".ipynb"},
	{"slidesipynb", ".slides.ipynb"},
	{"notespdf", ".notes.pdf"},
	{"pdf", ".pdf"},
}

var fieldNames = append([]string{
	"date", "layout", "revealjs_url", "talktheme", "talkcss",
	"dotx", "potx", "assignment", "ghub",
}, append(append([]string{}, numbered...), linkFields()...)...)

func linkFields() []string {
	out := make([]string, len(postLinks))
	for i, l := range postLinks {
		out[i] = l.field
	}
	return out
}

// Talk holds the resolved fields of one document.
type Talk struct {
	Base   string
	values map[string]records.Value
	nums   map[string]int
}

// Load resolves the fields of BASE.md.
func Load(r *fields.Resolver, base string, configPaths []string) (*Talk, error) {
	vals, err := r.ResolveMany(fieldNames, base+".md", configPaths)
	if err != nil {
		return nil, err
	}
	t := &Talk{Base: base, values: map[string]records.Value{}, nums: map[string]int{}}
	for name, v := range vals {
		if rv := records.FromAny(v.Raw); v.Found && !rv.IsMissing() {
			t.values[name] = rv
		}
	}
	for _, name := range numbered {
		v, ok := t.values[name]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v.Text()))
		if err != nil {
			return nil, lerrors.TypeCoercion("flags", base, name, v.Text(), err)
		}
		t.nums[name] = n
	}
	return t, nil
}

func (t *Talk) text(name, def string) string {
	if v, ok := t.values[name]; ok {
		return v.Text()
	}
	return def
}

func (t *Talk) flag(name string) bool {
	v, ok := t.values[name]
	if !ok {
		return false
	}
	switch v.Kind() {
	case records.KindBool:
		return v.BoolValue()
	case records.KindInt:
		return v.IntValue() != 0
	case records.KindFloat:
		return v.FloatValue() != 0
	case records.KindString:
		switch strings.ToLower(strings.TrimSpace(v.StringValue())) {
		case "", "false", "no", "n", "off", "0":
			return false
		}
		return true
	default:
		return true
	}
}

// Layout returns the document layout, "talk" when unset.
func (t *Talk) Layout() string { return t.text("layout", DefaultLayout) }

// Date returns the document date as YYYY-MM-DD, or "" when absent.
func (t *Talk) Date() string {
	v, ok := t.values["date"]
	if !ok {
		return ""
	}
	if v.Is(records.KindDate) {
		return v.DateValue().Format(time.DateOnly)
	}
	s := strings.TrimSpace(v.Text())
	if len(s) >= len(time.DateOnly) {
		if d, err := time.Parse(time.DateOnly, s[:len(time.DateOnly)]); err == nil {
			return d.Format(time.DateOnly)
		}
	}
	return s
}

// Prefix returns the filename prefix implied by the layout.
func (t *Talk) Prefix() string {
	var parts []string
	add := func(names ...string) {
		for _, n := range names {
			if v := t.nums[n]; v > 0 {
				parts = append(parts, fmt.Sprintf("%02d", v))
			}
		}
	}
	switch t.Layout() {
	case "lecture":
		add("week", "session")
	case "topic":
		add("topic")
	case "background":
		add("week", "session", "background")
	case "practical":
		add("week", "session", "practical")
	case "test":
		return testLayoutPrefix
	case "talk", "casestudy", "cv":
		if d := t.Date(); d != "" {
			return d + "-"
		}
		return ""
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "-") + "-"
}

// Out is the output file stem: prefix plus base name.
func (t *Talk) Out() string { return t.Prefix() + t.Base }

// Post returns the metadata options for a site post.
func (t *Talk) Post() (string, error) {
	var args []string
	if d := t.Date(); d != "" {
		args = append(args, "--metadata date="+d)
	}
	out := t.Out()
	for _, l := range postLinks {
		if t.flag(l.field) {
			args = append(args, fmt.Sprintf("--metadata %s=%s%s", l.field, out, l.suffix))
		}
	}
	for _, n := range numbered {
		if v, ok := t.nums[n]; ok && n != "background" {
			args = append(args, fmt.Sprintf("--metadata %s=%d", n, v))
		}
	}
	args = append(args, "--metadata layout="+t.Layout())

	if g, ok := t.values["ghub"]; ok {
		url, err := t.editURL(g)
		if err != nil {
			return "", err
		}
		args = append(args, "--metadata edit_url="+url)
	}
	return strings.Join(args, " "), nil
}

func (t *Talk) editURL(v records.Value) (string, error) {
	raw := v.Interface()
	if list, ok := raw.([]any); ok && len(list) > 0 {
		raw = list[0]
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return "", lerrors.ValidationFailed("ghub", "expected a mapping with organization, repository, branch and directory")
	}
	get := func(k string) string {
		if s, ok := m[k]; ok && s != nil {
			return fmt.Sprint(s)
		}
		return ""
	}
	return fmt.Sprintf(editURLTemplate, get("organization"), get("repository"), get("branch"), get("directory"), t.Base), nil
}

func (t *Talk) referenceDoc(field string) (string, error) {
	v, ok := t.values[field]
	if !ok || v.Text() == "" {
		return "", lerrors.ConfigRequired(field)
	}
	return "--reference-doc " + v.Text(), nil
}

// Reveal returns the reveal.js options.
func (t *Talk) Reveal() string {
	return strings.Join([]string{
		revealSlideLevel2,
		"--variable revealjs-url=" + t.text("revealjs_url", DefaultRevealURL),
		"--variable theme=" + t.text("talktheme", DefaultTalkTheme),
		"--css " + t.text("talkcss", DefaultTalkCSS),
	}, " ")
}

// Preprocessor returns the options passed to the markdown preprocessor.
func (t *Talk) Preprocessor() string {
	if t.flag("assignment") {
		return ppIncludePath + " --assignment"
	}
	return ppIncludePath
}

// Render returns the option string for out. The cv output has no options
// and yields "".
func (t *Talk) Render(out Output) (string, error) {
	switch out {
	case OutputPrefix:
		return t.Prefix(), nil
	case OutputPost:
		return t.Post()
	case OutputDocx:
		return t.referenceDoc("dotx")
	case OutputPptx:
		return t.referenceDoc("potx")
	case OutputReveal:
		return t.Reveal(), nil
	case OutputPP:
		return t.Preprocessor(), nil
	case OutputCV:
		return "", nil
	default:
		return "", lerrors.ValidationFailed("output", fmt.Sprintf("unknown output %q", out))
	}
}
