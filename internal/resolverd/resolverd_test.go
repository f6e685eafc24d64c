package resolverd

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
	"git.home.luguber.info/inful/lamd/internal/fields"
)

const talk = `---
title: Test Document
date: 2023-05-15
categories: [test, example]
invited: true
author:
  - given: James L.
    family: Curtis
---

# Body
`

type fixture struct {
	doc     string
	configs []string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	doc := filepath.Join(dir, "talk.md")
	require.NoError(t, os.WriteFile(doc, []byte(talk), 0o600))
	cfg := filepath.Join(dir, "_lamd.yml")
	require.NoError(t, os.WriteFile(cfg, []byte("bibdir: ../_bibliography\ntitle: ignored\n"), 0o600))
	return fixture{doc: doc, configs: []string{cfg, filepath.Join(dir, "_config.yml")}}
}

// startServer serves on a fresh unix socket and returns its path.
func startServer(t *testing.T, opts Options) (*Server, string, <-chan error) {
	t.Helper()
	dir, err := os.MkdirTemp("", "lamd")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	sock := filepath.Join(dir, "r.sock")

	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)

	s := NewServer(opts)
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	finished := make(chan struct{})
	go func() {
		result <- s.Serve(ctx, ln)
		close(finished)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-finished:
		case <-time.After(5 * time.Second):
		}
	})
	return s, sock, result
}

var allFields = []string{"title", "date", "categories", "invited", "author", "bibdir", "missing"}

func TestServiceMatchesDirect(t *testing.T) {
	fx := newFixture(t)
	s, sock, _ := startServer(t, Options{MaxConns: 4})

	direct, err := fields.NewResolver(nil).ResolveMany(allFields, fx.doc, fx.configs)
	require.NoError(t, err)
	want := fields.FormatAll(direct)

	spawned := false
	c := NewClient(sock, WithAutoStart(true), WithSpawner(func(string) error { spawned = true; return nil }))
	require.Eventually(t, func() bool { return c.Healthy(context.Background()) }, 2*time.Second, 20*time.Millisecond)

	got, err := c.remote(context.Background(), allFields, fx.doc, fx.configs)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "['test', 'example']", got["categories"])
	assert.Equal(t, "True", got["invited"])
	assert.Equal(t, "Test Document", got["title"])
	assert.Equal(t, "../_bibliography", got["bibdir"])
	assert.Equal(t, "", got["missing"])

	again, err := c.Fields(context.Background(), allFields, fx.doc, fx.configs)
	require.NoError(t, err)
	assert.Equal(t, want, again)
	assert.False(t, spawned)

	fp, ok := s.Cache().Fingerprint(fx.doc)
	assert.True(t, ok)
	assert.NotEmpty(t, fp)
}

func TestClientFallsBackWhenServiceIsAbsent(t *testing.T) {
	fx := newFixture(t)
	var spawnedFor string
	sock := filepath.Join(t.TempDir(), "none.sock")
	c := NewClient(sock,
		WithAutoStart(true),
		WithSpawner(func(s string) error { spawnedFor = s; return nil }))

	got, err := c.Fields(context.Background(), allFields, fx.doc, fx.configs)
	require.NoError(t, err)
	direct, err := fields.NewResolver(nil).ResolveMany(allFields, fx.doc, fx.configs)
	require.NoError(t, err)
	assert.Equal(t, fields.FormatAll(direct), got)
	assert.Equal(t, sock, spawnedFor)

	_, err = c.Fields(context.Background(), []string{"title"}, filepath.Join(t.TempDir(), "gone.md"), nil)
	require.ErrorIs(t, err, lerrors.ErrDocumentNotFound)
}

func TestClientFallsBackOnServerError(t *testing.T) {
	fx := newFixture(t)
	dir, err := os.MkdirTemp("", "lamd")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	sock := filepath.Join(dir, "bad.sock")
	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })

	got, err := NewClient(sock).Fields(context.Background(), []string{"title"}, fx.doc, fx.configs)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"title": "Test Document"}, got)
}

func TestFieldsEndpoint(t *testing.T) {
	fx := newFixture(t)
	s := NewServer(Options{})
	h := s.Handler()

	body, err := json.Marshal(FieldsRequest{
		Document:    filepath.Base(fx.doc),
		Fields:      []string{"title", "bibdir"},
		ConfigFiles: []string{"_lamd.yml"},
		Workdir:     filepath.Dir(fx.doc),
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, FieldsPath, bytes.NewReader(body))
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))
	var resp FieldsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, map[string]string{"title": "Test Document", "bibdir": "../_bibliography"}, resp.Values)

	missing, err := json.Marshal(FieldsRequest{Document: filepath.Join(t.TempDir(), "x.md"), Fields: []string{"title"}})
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, FieldsPath, bytes.NewReader(missing)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, FieldsPath, strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `lamd_resolver_requests_total{result="not_found",route="/v1/fields"} 1`)
}

func TestFieldsExpandAgainstCallerEnvironment(t *testing.T) {
	t.Setenv("LAMD_TEST_SLIDES", "/server/path")
	dir := t.TempDir()
	doc := filepath.Join(dir, "talk.md")
	require.NoError(t, os.WriteFile(doc, []byte("---\nslidesdir: $LAMD_TEST_SLIDES/talks\ncategories: [\"${LAMD_TEST_SLIDES}\"]\n---\n"), 0o600))
	h := NewServer(Options{}).Handler()

	post := func(env map[string]string) FieldsResponse {
		body, err := json.Marshal(FieldsRequest{Document: doc, Fields: []string{"slidesdir", "categories"}, ConfigFiles: []string{}, Env: env})
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, FieldsPath, bytes.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp FieldsResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		return resp
	}

	resp := post(map[string]string{"LAMD_TEST_SLIDES": "/client/path"})
	assert.Equal(t, "/client/path/talks", resp.Values["slidesdir"])
	assert.Equal(t, "['/client/path']", resp.Values["categories"])

	resp = post(nil)
	assert.Equal(t, "$LAMD_TEST_SLIDES/talks", resp.Values["slidesdir"])
}

func TestClientSendsItsEnvironment(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "talk.md")
	require.NoError(t, os.WriteFile(doc, []byte("---\nslidesdir: $LAMD_TEST_SLIDES/talks\n---\n"), 0o600))

	t.Setenv("LAMD_TEST_SLIDES", "/server/path")
	_, sock, _ := startServer(t, Options{})
	c := NewClient(sock)
	require.Eventually(t, func() bool { return c.Healthy(context.Background()) }, 2*time.Second, 20*time.Millisecond)

	t.Setenv("LAMD_TEST_SLIDES", "/client/path")
	got, err := c.remote(context.Background(), []string{"slidesdir"}, doc, []string{})
	require.NoError(t, err)
	assert.Equal(t, "/client/path/talks", got["slidesdir"])
}

func TestCacheRevalidatesChangedFiles(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "d.md")
	require.NoError(t, os.WriteFile(doc, []byte("---\ntitle: One\n---\n"), 0o600))

	c := NewCache(nil)
	t.Cleanup(func() { _ = c.Close() })

	m, err := c.Document(doc)
	require.NoError(t, err)
	assert.Equal(t, "One", m["title"])
	fp1, _ := c.Fingerprint(doc)

	require.NoError(t, os.WriteFile(doc, []byte("---\ntitle: Second\n---\n"), 0o600))
	m, err = c.Document(doc)
	require.NoError(t, err)
	assert.Equal(t, "Second", m["title"])
	fp2, _ := c.Fingerprint(doc)
	assert.NotEqual(t, fp1, fp2)

	_, ok, err := c.Config(filepath.Join(dir, "absent.yml"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheEvictsOnFileEvent(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "_lamd.yml")
	require.NoError(t, os.WriteFile(cfg, []byte("a: 1\n"), 0o600))

	c := NewCache(nil)
	if c.watcher == nil {
		t.Skip("file watching unavailable")
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() { cancel(); _ = c.Close() })
	go c.Run(ctx)

	_, ok, err := c.Config(cfg)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, c.Len())

	require.NoError(t, os.Remove(cfg))
	assert.Eventually(t, func() bool { return c.Len() == 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestIdleTimeoutStopsServer(t *testing.T) {
	_, _, done := startServer(t, Options{IdleTimeout: time.Second})
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after idle timeout")
	}
}

func TestListenAndServeRefusesLiveSocket(t *testing.T) {
	_, sock, _ := startServer(t, Options{})
	err := NewServer(Options{}).ListenAndServe(context.Background(), sock)
	require.Error(t, err)
	assert.True(t, lerrors.IsCategory(err, lerrors.CategoryService))
}

func TestIdleCheckInterval(t *testing.T) {
	assert.Equal(t, time.Second, idleCheckInterval(2*time.Second))
	assert.Equal(t, 150*time.Second, idleCheckInterval(10*time.Minute))
}
