// Package fields looks up named values in a document's frontmatter, falling
// back to project configuration files.
package fields

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
	"git.home.luguber.info/inful/lamd/internal/frontmatter"
	"git.home.luguber.info/inful/lamd/internal/logfields"
)

// DefaultConfigFiles are consulted, in order, when no config files are named.
var DefaultConfigFiles = []string{"_lamd.yml", "_config.yml"}

// Value is a resolved field. Found is false for the empty sentinel.
type Value struct {
	Found bool
	Raw   any
}

// Loader reads field maps. Implementations may cache.
type Loader interface {
	// Document returns the frontmatter fields of a markdown file.
	Document(path string) (map[string]any, error)
	// Config returns the top-level keys of a YAML file. ok is false when the
	// file does not exist.
	Config(path string) (fields map[string]any, ok bool, err error)
}

// FileLoader reads straight from disk.
type FileLoader struct{}

func (FileLoader) Document(path string) (map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, lerrors.DocumentNotFound(path)
		}
		return nil, lerrors.DocumentUnreadable(path, err)
	}
	return ParseDocument(path, content), nil
}

func (FileLoader) Config(path string) (map[string]any, bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, lerrors.ConfigInvalid(path, err)
	}
	m, err := ParseConfig(path, content)
	return m, err == nil, err
}

// ParseDocument decodes a document header. A malformed header yields no
// fields so lookups continue into the config files.
func ParseDocument(path string, content []byte) map[string]any {
	doc, err := frontmatter.Parse(content)
	if err != nil {
		slog.Warn("Ignoring malformed frontmatter", logfields.File(path), logfields.Error(err))
		return map[string]any{}
	}
	return doc.Fields
}

// ParseConfig decodes a YAML configuration file.
func ParseConfig(path string, content []byte) (map[string]any, error) {
	m := map[string]any{}
	if err := yaml.Unmarshal(content, &m); err != nil {
		return nil, lerrors.ConfigInvalid(path, err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// Resolver answers field lookups.
type Resolver struct {
	loader Loader
}

// NewResolver returns a resolver reading through l, or from disk when l is nil.
func NewResolver(l Loader) *Resolver {
	if l == nil {
		l = FileLoader{}
	}
	return &Resolver{loader: l}
}

// Resolve looks up one field: the document first, then each config file in
// order. A field found nowhere is not an error.
func (r *Resolver) Resolve(field, doc string, configPaths []string) (Value, error) {
	vals, err := r.ResolveMany([]string{field}, doc, configPaths)
	if err != nil {
		return Value{}, err
	}
	return vals[field], nil
}

// ResolveMany looks up several fields, reading each file at most once.
func (r *Resolver) ResolveMany(names []string, doc string, configPaths []string) (map[string]Value, error) {
	docFields, err := r.loader.Document(doc)
	if err != nil {
		return nil, err
	}
	return r.ResolveHeader(names, docFields, configPaths)
}

// ResolveHeader is ResolveMany over frontmatter fields the caller has already
// parsed.
func (r *Resolver) ResolveHeader(names []string, docFields map[string]any, configPaths []string) (map[string]Value, error) {
	if configPaths == nil {
		configPaths = DefaultConfigFiles
	}

	out := make(map[string]Value, len(names))
	var pending []string
	for _, n := range names {
		if v, ok := docFields[n]; ok {
			out[n] = Value{Found: true, Raw: v}
		} else {
			pending = append(pending, n)
		}
	}

	for _, p := range configPaths {
		if len(pending) == 0 {
			break
		}
		cfg, ok, err := r.loader.Config(p)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rest := pending[:0]
		for _, n := range pending {
			if v, ok := cfg[n]; ok {
				out[n] = Value{Found: true, Raw: v}
			} else {
				rest = append(rest, n)
			}
		}
		pending = rest
	}

	for _, n := range pending {
		out[n] = Value{}
		slog.Debug("Field unresolved", logfields.Field(n), logfields.Error(lerrors.FieldNotFound(n)))
	}
	return out, nil
}
