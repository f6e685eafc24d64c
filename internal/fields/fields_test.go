package fields

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
)

const testDoc = `---
title: Test Document
author: Test Author
date: 2023-05-15
categories: [AI, Robotics]
published: true
weight: 3
ratio: 2.0
authors:
  - given: James L.
    family: Curtis
output: $LAMD_TEST_OUT/slides
---

# Test Content
`

func fixture(t *testing.T) (doc string, configs []string) {
	t.Helper()
	dir := t.TempDir()
	doc = filepath.Join(dir, "talk.md")
	require.NoError(t, os.WriteFile(doc, []byte(testDoc), 0o600))
	lamd := filepath.Join(dir, "_lamd.yml")
	require.NoError(t, os.WriteFile(lamd, []byte("title: Config Title\nbibdir: ../_bibliography\npostsdir: ../_posts\n"), 0o600))
	legacy := filepath.Join(dir, "_config.yml")
	require.NoError(t, os.WriteFile(legacy, []byte("bibdir: legacy\nlayout: talk\n"), 0o600))
	return doc, []string{lamd, legacy, filepath.Join(dir, "absent.yml")}
}

func TestResolvePrecedence(t *testing.T) {
	doc, configs := fixture(t)
	r := NewResolver(nil)

	tests := []struct {
		field string
		want  string
	}{
		{"title", "Test Document"},
		{"bibdir", "../_bibliography"},
		{"layout", "talk"},
		{"date", "2023-05-15"},
		{"categories", "['AI', 'Robotics']"},
		{"published", "True"},
		{"weight", "3"},
		{"ratio", "2.0"},
		{"authors", `[{"family":"Curtis","given":"James L."}]`},
		{"nonexistent", ""},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			v, err := r.Resolve(tt.field, doc, configs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Format(tt.field, v))
		})
	}
}

func TestResolveManyMatchesResolve(t *testing.T) {
	doc, configs := fixture(t)
	r := NewResolver(nil)
	names := []string{"title", "bibdir", "layout", "categories", "missing"}

	many, err := r.ResolveMany(names, doc, configs)
	require.NoError(t, err)
	require.Len(t, many, len(names))
	for _, n := range names {
		one, err := r.Resolve(n, doc, configs)
		require.NoError(t, err)
		assert.Equal(t, one, many[n], n)
	}
	assert.False(t, many["missing"].Found)
}

func TestMissingDocument(t *testing.T) {
	_, err := NewResolver(nil).Resolve("title", filepath.Join(t.TempDir(), "nope.md"), nil)
	require.ErrorIs(t, err, lerrors.ErrDocumentNotFound)
}

func TestDocumentWithoutFrontmatterUsesConfig(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "plain.md")
	require.NoError(t, os.WriteFile(doc, []byte("# Just a body\n"), 0o600))
	cfg := filepath.Join(dir, "_lamd.yml")
	require.NoError(t, os.WriteFile(cfg, []byte("diagramsdir: ./diagrams\n"), 0o600))

	v, err := NewResolver(nil).Resolve("diagramsdir", doc, []string{cfg})
	require.NoError(t, err)
	assert.Equal(t, "./diagrams", Format("diagramsdir", v))
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "d.md")
	require.NoError(t, os.WriteFile(doc, []byte("---\ntitle: x\n---\n"), 0o600))
	cfg := filepath.Join(dir, "_lamd.yml")
	require.NoError(t, os.WriteFile(cfg, []byte("key: [unclosed\n"), 0o600))

	_, err := NewResolver(nil).Resolve("other", doc, []string{cfg})
	require.Error(t, err)
	assert.True(t, lerrors.IsCategory(err, lerrors.CategoryConfig))

	// found in the document, so the config is never read
	v, err := NewResolver(nil).Resolve("title", doc, []string{cfg})
	require.NoError(t, err)
	assert.Equal(t, "x", Format("title", v))
}

func TestFormat(t *testing.T) {
	t.Setenv("LAMD_TEST_OUT", "/srv/out")

	assert.Equal(t, "['']", Format("categories", Value{}))
	assert.Equal(t, "['solo']", Format("categories", Value{Found: true, Raw: "solo"}))
	assert.Equal(t, "['a', '1']", Format("categories", Value{Found: true, Raw: []any{"a", 1}}))
	assert.Equal(t, "", Format("title", Value{Found: true}))
	assert.Equal(t, "False", Format("x", Value{Found: true, Raw: false}))
	assert.Equal(t, "2.5", Format("x", Value{Found: true, Raw: 2.5}))
	assert.Equal(t, `["a","b"]`, Format("x", Value{Found: true, Raw: []any{"a", "b"}}))
	assert.Equal(t, "/srv/out/slides", Format("x", Value{Found: true, Raw: "$LAMD_TEST_OUT/slides"}))
	assert.Equal(t, "/srv/out/x", Format("x", Value{Found: true, Raw: "${LAMD_TEST_OUT}/x"}))
	assert.Equal(t, "$LAMD_TEST_UNSET_VAR/x", Format("x", Value{Found: true, Raw: "$LAMD_TEST_UNSET_VAR/x"}))
}

func TestFormatEnvIgnoresProcessEnvironment(t *testing.T) {
	t.Setenv("LAMD_TEST_OUT", "/process")
	env := EnvFrom(map[string]string{"LAMD_TEST_OUT": "/caller"})

	assert.Equal(t, "/caller/slides", FormatEnv("x", Value{Found: true, Raw: "$LAMD_TEST_OUT/slides"}, env))
	assert.Equal(t, "['/caller']", FormatEnv("categories", Value{Found: true, Raw: []any{"$LAMD_TEST_OUT"}}, env))
	assert.Equal(t, "$LAMD_TEST_OUT", FormatEnv("x", Value{Found: true, Raw: "$LAMD_TEST_OUT"}, EnvFrom(nil)))
	assert.Equal(t, "/process", Environ()["LAMD_TEST_OUT"])
}

func TestFormatAll(t *testing.T) {
	got := FormatAll(map[string]Value{
		"categories": {},
		"title":      {Found: true, Raw: "T"},
	})
	assert.Equal(t, map[string]string{"categories": "['']", "title": "T"}, got)
}
