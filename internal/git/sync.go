package git

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
	"git.home.luguber.info/inful/lamd/internal/logfields"
	"git.home.luguber.info/inful/lamd/internal/retry"
)

// EnvToken names the variable holding a token for https remotes.
const EnvToken = "LAMD_GIT_TOKEN"

// RetryPolicy governs retries of pulls that fail on the network.
var RetryPolicy = retry.NewPolicy(retry.Linear, time.Second, 10*time.Second, 2)

// Result describes one pull.
type Result struct {
	Path    string
	Updated bool
	Head    string
}

// Pull fast-forwards the checkout containing path from origin. A checkout
// that is already current is not an error.
func Pull(ctx context.Context, path string) (Result, error) {
	res := Result{Path: path}
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return res, lerrors.GitSyncFailed(path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return res, lerrors.GitSyncFailed(path, err)
	}

	opts := &git.PullOptions{RemoteName: "origin"}
	if remote, rerr := repo.Remote("origin"); rerr == nil && len(remote.Config().URLs) > 0 {
		opts.Auth = authFor(remote.Config().URLs[0])
	}

	attempt := 0
	err = RetryPolicy.Do(ctx, func() error {
		attempt++
		if attempt > 1 {
			slog.Debug("Retrying pull", logfields.Repository(path), slog.Int("attempt", attempt))
		}
		return wt.PullContext(ctx, opts)
	}, transient)
	switch {
	case err == nil:
		res.Updated = true
	case errors.Is(err, git.NoErrAlreadyUpToDate):
	default:
		return res, lerrors.GitSyncFailed(path, err)
	}

	if head, herr := repo.Head(); herr == nil {
		res.Head = head.Hash().String()
	}
	slog.Info("Checkout synced",
		logfields.Repository(path),
		slog.Bool("updated", res.Updated),
		slog.String("head", res.Head))
	return res, nil
}

// transient reports network failures worth another attempt.
func transient(err error) bool {
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	l := strings.ToLower(err.Error())
	for _, s := range []string{"connection reset", "connection refused", "timeout", "temporary failure", "unexpected eof"} {
		if strings.Contains(l, s) {
			return true
		}
	}
	return false
}

// authFor returns token auth for https remotes when a token is set.
func authFor(url string) transport.AuthMethod {
	token := os.Getenv(EnvToken)
	if token == "" || !strings.HasPrefix(url, "https://") {
		return nil
	}
	return &http.BasicAuth{Username: "token", Password: token}
}

// PullAll pulls each distinct checkout in paths. Paths that do not exist or
// are not inside a git repository are skipped with a warning. Failures do not
// stop the remaining pulls; they are joined into the returned error.
func PullAll(ctx context.Context, paths []string) ([]Result, error) {
	var (
		results []Result
		errs    []error
		seen    = map[string]bool{}
	)
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		if _, err := os.Stat(p); err != nil {
			slog.Warn("Skipping missing checkout", logfields.Repository(p), logfields.Error(err))
			continue
		}
		res, err := Pull(ctx, p)
		if errors.Is(err, git.ErrRepositoryNotExists) {
			slog.Warn("Skipping directory outside a git repository", logfields.Repository(p))
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
