package git

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
)

func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	hash, err := wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestPull(t *testing.T) {
	origin := filepath.Join(t.TempDir(), "origin")
	repo, err := git.PlainInit(origin, false)
	require.NoError(t, err)
	commitFile(t, repo, origin, "refs.bib", "@article{one,\n}\n")

	clone := filepath.Join(t.TempDir(), "_bibliography")
	_, err = git.PlainClone(clone, false, &git.CloneOptions{URL: origin})
	require.NoError(t, err)

	head := commitFile(t, repo, origin, "more.bib", "@book{two,\n}\n")

	res, err := Pull(context.Background(), clone)
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, head, res.Head)
	assert.FileExists(t, filepath.Join(clone, "more.bib"))

	res, err = Pull(context.Background(), clone)
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Equal(t, head, res.Head)
}

func TestPullOutsideRepository(t *testing.T) {
	_, err := Pull(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.True(t, lerrors.IsCategory(err, lerrors.CategoryGit))
	assert.ErrorIs(t, err, git.ErrRepositoryNotExists)
}

func TestPullAllSkipsNonRepositories(t *testing.T) {
	plain := t.TempDir()
	results, err := PullAll(context.Background(), []string{"", plain, plain, filepath.Join(plain, "missing")})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAuthFor(t *testing.T) {
	t.Setenv(EnvToken, "")
	assert.Nil(t, authFor("https://example.com/r.git"))

	t.Setenv(EnvToken, "s3cret")
	assert.Nil(t, authFor("git@example.com:r.git"))
	assert.NotNil(t, authFor("https://example.com/r.git"))
}

func TestTransient(t *testing.T) {
	assert.False(t, transient(git.NoErrAlreadyUpToDate))
	assert.False(t, transient(git.ErrNonFastForwardUpdate))
	assert.True(t, transient(&net.OpError{Op: "dial", Err: errors.New("connection refused")}))
	assert.True(t, transient(errors.New("read tcp: i/o timeout")))
}
