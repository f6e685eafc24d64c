// Package bib locates the bibliography files that define citation keys.
package bib

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ext is the bibliography file extension.
const Ext = ".bib"

// Keys returns the entry keys defined in BibTeX content, in file order.
// @string, @preamble and @comment blocks define no keys.
func Keys(content []byte) []string {
	var keys []string
	for i := 0; i < len(content); i++ {
		if content[i] != '@' {
			continue
		}
		j := i + 1
		for j < len(content) && isIdent(content[j]) {
			j++
		}
		typ := strings.ToLower(string(content[i+1 : j]))
		if typ == "" || typ == "string" || typ == "preamble" || typ == "comment" {
			continue
		}
		for j < len(content) && isSpace(content[j]) {
			j++
		}
		if j >= len(content) || (content[j] != '{' && content[j] != '(') {
			continue
		}
		end := bytes.IndexAny(content[j+1:], ",}\n")
		if end < 0 || content[j+1+end] != ',' {
			continue
		}
		if key := strings.TrimSpace(string(content[j+1 : j+1+end])); key != "" {
			keys = append(keys, key)
		}
		i = j + end
	}
	return keys
}

// Index answers which file defines a key. Files are read on first lookup.
type Index struct {
	dirs   []string
	files  []string
	keys   map[string]string
	loaded bool
}

// NewIndex builds an index over paths, each a .bib file or a directory of
// them. Paths that do not exist are ignored.
func NewIndex(paths []string) (*Index, error) {
	ix := &Index{}
	var dirFiles []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if !info.IsDir() {
			ix.files = append(ix.files, filepath.Clean(p))
			continue
		}
		ix.dirs = append(ix.dirs, filepath.Clean(p))
		matches, err := filepath.Glob(filepath.Join(p, "*"+Ext))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		dirFiles = append(dirFiles, matches...)
	}
	ix.files = append(ix.files, dirFiles...)
	return ix, nil
}

// Resolve returns the file for key: a per-key file in a bibliography
// directory, else the first file defining the key, else the per-key path
// under the first directory. The bool reports whether the file exists.
func (ix *Index) Resolve(key string) (string, bool) {
	for _, d := range ix.dirs {
		p := filepath.Join(d, key+Ext)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	ix.load()
	if p, ok := ix.keys[key]; ok {
		return p, true
	}
	return filepath.Join(ix.fallbackDir(), key+Ext), false
}

func (ix *Index) fallbackDir() string {
	if len(ix.dirs) > 0 {
		return ix.dirs[0]
	}
	if len(ix.files) > 0 {
		return filepath.Dir(ix.files[0])
	}
	return "."
}

func (ix *Index) load() {
	if ix.loaded {
		return
	}
	ix.loaded = true
	ix.keys = map[string]string{}
	for _, f := range ix.files {
		content, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		for _, k := range Keys(content) {
			if _, seen := ix.keys[k]; !seen {
				ix.keys[k] = f
			}
		}
	}
}

func isIdent(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
