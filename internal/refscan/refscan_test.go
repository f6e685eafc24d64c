package refscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
)

func TestScanFindsEveryKind(t *testing.T) {
	body := []byte(`Intro text.

\include{section.md}

\figure{\diagramsDir/example-diagram}{A caption}{fig1}
\includesvg{\diagramsDir/svg-diagram}
\includepdf{\diagramsDir/pdf-diagram}
\includepng{photo}

As shown in \cite{smith2020, jones2021} and \citet{lee2019}.
`)
	s := New(DefaultRules, map[string]string{"diagramsDir": "diagrams"})
	refs, skipped := s.Scan("doc.md", body)
	require.Empty(t, skipped)
	require.Len(t, refs, 7)

	assert.Equal(t, KindInclude, refs[0].Rule.Kind)
	assert.Equal(t, "section.md", refs[0].Path)
	assert.Equal(t, 3, refs[0].Line)

	assert.Equal(t, "diagrams/example-diagram", refs[1].Path)
	assert.Equal(t, FamilyGeneric, refs[1].Rule.Family)
	assert.Equal(t, FamilySVG, refs[2].Rule.Family)
	assert.Equal(t, "diagrams/pdf-diagram", refs[3].Path)
	assert.Equal(t, "png", refs[4].Rule.Ext)

	assert.Equal(t, []string{"smith2020", "jones2021"}, refs[5].Keys)
	assert.Equal(t, []string{"lee2019"}, refs[6].Keys)
	assert.Equal(t, 10, refs[6].Line)
}

func TestScanIgnoresUnknownMacrosAndBareWords(t *testing.T) {
	body := []byte(`\section{Title} \includes{x} \include without braces \\ \`)
	refs, skipped := New(DefaultRules, nil).Scan("doc.md", body)
	assert.Empty(t, refs)
	assert.Empty(t, skipped)
}

func TestScanReportsMalformedReferences(t *testing.T) {
	body := []byte("\\include{broken\n\nstill open\n\\include{ok.md}\n\\cite{ , }\n")
	refs, skipped := New(DefaultRules, nil).Scan("doc.md", body)

	require.Len(t, refs, 1)
	assert.Equal(t, "ok.md", refs[0].Path)
	require.Len(t, skipped, 2)
	for _, err := range skipped {
		assert.ErrorIs(t, err, lerrors.ErrMalformedReference)
	}
	assert.Contains(t, skipped[0].Error(), "doc.md")
}

func TestScanNestedBraces(t *testing.T) {
	refs, skipped := New(DefaultRules, nil).Scan("doc.md", []byte(`\include{a{b}c.md}`))
	assert.Empty(t, refs)
	assert.Len(t, skipped, 1)
}

func TestExpandKeepsUnknownMacros(t *testing.T) {
	s := New(DefaultRules, map[string]string{"diagramsDir": "d"})
	assert.Equal(t, "d/x", s.expand(`\diagramsDir/x`))
	assert.Equal(t, `\writeDiagramsDir/x`, s.expand(`\writeDiagramsDir/x`))
	assert.Equal(t, `a\/b`, s.expand(`a\/b`))
	assert.Equal(t, "plain", s.expand("plain"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "include", KindInclude.String())
	assert.Equal(t, "diagram", KindDiagram.String())
	assert.Equal(t, "citation", KindCitation.String())
}
