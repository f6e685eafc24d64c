// Package frontmatter splits markdown documents into their YAML header and
// body and decodes the header into a field map.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document opened a YAML header
// but never closed it.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Document is a parsed markdown source.
type Document struct {
	Path   string
	Raw    []byte // header text without delimiters
	Body   []byte
	Had    bool
	Fields map[string]any
}

// Split separates the `---` delimited YAML header from the body. The header
// may be closed by `---` or `...`. Without an opening delimiter the whole
// input is returned as body.
func Split(content []byte) (header []byte, body []byte, had bool, err error) {
	first, rest, ok := nextLine(content)
	if !ok || !isDelimiter(first, false) {
		return nil, content, false, nil
	}

	start := len(content) - len(rest)
	pos := start
	for len(rest) > 0 {
		var line []byte
		line, rest, _ = nextLine(rest)
		if isDelimiter(line, true) {
			return content[start:pos], rest, true, nil
		}
		pos = len(content) - len(rest)
	}
	return nil, nil, false, ErrMissingClosingDelimiter
}

// nextLine returns the line without its terminator and the remainder after it.
func nextLine(b []byte) (line, rest []byte, ok bool) {
	if len(b) == 0 {
		return nil, nil, false
	}
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return b, nil, true
	}
	return b[:i], b[i+1:], true
}

func isDelimiter(line []byte, closing bool) bool {
	line = bytes.TrimRight(line, " \t\r")
	if string(line) == "---" {
		return true
	}
	return closing && string(line) == "..."
}

// ParseYAML decodes a raw header into a map. An empty header yields an empty map.
func ParseYAML(header []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(header)) == 0 {
		return fields, nil
	}
	if err := yaml.Unmarshal(header, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Parse splits and decodes content.
func Parse(content []byte) (*Document, error) {
	header, body, had, err := Split(content)
	if err != nil {
		return nil, err
	}
	fields, err := ParseYAML(header)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	return &Document{Raw: header, Body: body, Had: had, Fields: fields}, nil
}

// ReadFile reads and parses a markdown file. The returned error wraps the
// os error so callers can test os.ErrNotExist.
func ReadFile(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}
