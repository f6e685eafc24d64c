package bib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	content := []byte(`@string{jmlr = "Journal of Machine Learning Research"}
@comment{ignored, really}
@Article{smith2020,
  title = {A {Title}, with commas},
}
@inproceedings ( jones2021 ,
  year = 2021)
@misc{broken
@book{lee2019,}
`)
	assert.Equal(t, []string{"smith2020", "jones2021", "lee2019"}, Keys(content))
	assert.Empty(t, Keys([]byte("email me at someone@example.com")))
}

func TestIndexResolve(t *testing.T) {
	dir := t.TempDir()
	refs := filepath.Join(dir, "refs")
	require.NoError(t, os.MkdirAll(refs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(refs, "b.bib"), []byte("@article{shared,\n}\n@article{inb,\n}\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(refs, "a.bib"), []byte("@article{shared,\n}\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(refs, "own.bib"), []byte("@article{other,\n}\n"), 0o600))
	extra := filepath.Join(dir, "extra.bib")
	require.NoError(t, os.WriteFile(extra, []byte("@article{inextra,\n}\n"), 0o600))

	ix, err := NewIndex([]string{refs, extra, filepath.Join(dir, "missing")})
	require.NoError(t, err)

	p, ok := ix.Resolve("own")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(refs, "own.bib"), p)

	p, ok = ix.Resolve("inextra")
	assert.True(t, ok)
	assert.Equal(t, extra, p)

	p, ok = ix.Resolve("shared")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(refs, "a.bib"), p)

	p, ok = ix.Resolve("inb")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(refs, "b.bib"), p)

	p, ok = ix.Resolve("nowhere")
	assert.False(t, ok)
	assert.Equal(t, filepath.Join(refs, "nowhere.bib"), p)
}

func TestIndexWithoutPaths(t *testing.T) {
	ix, err := NewIndex(nil)
	require.NoError(t, err)
	p, ok := ix.Resolve("key")
	assert.False(t, ok)
	assert.Equal(t, "key.bib", p)
}
