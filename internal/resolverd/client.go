package resolverd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
	"git.home.luguber.info/inful/lamd/internal/fields"
	"git.home.luguber.info/inful/lamd/internal/logfields"
	"git.home.luguber.info/inful/lamd/internal/metrics"
)

// DefaultClientTimeout bounds one service round trip.
const DefaultClientTimeout = 2 * time.Second

// Client asks the resolver service for fields and falls back to resolving
// in-process whenever the service cannot answer.
type Client struct {
	socket    string
	timeout   time.Duration
	autoStart bool
	spawn     func(socket string) error
	fallback  *fields.Resolver
	recorder  metrics.Recorder
	http      *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption { return func(c *Client) { c.timeout = d } }

// WithAutoStart spawns a server when none is listening.
func WithAutoStart(on bool) ClientOption { return func(c *Client) { c.autoStart = on } }

// WithSpawner replaces the function used to start a server.
func WithSpawner(f func(socket string) error) ClientOption { return func(c *Client) { c.spawn = f } }

// WithFallback replaces the in-process resolver.
func WithFallback(r *fields.Resolver) ClientOption { return func(c *Client) { c.fallback = r } }

// WithRecorder records fallbacks.
func WithRecorder(r metrics.Recorder) ClientOption { return func(c *Client) { c.recorder = r } }

// NewClient returns a client for the service listening on socket.
func NewClient(socket string, opts ...ClientOption) *Client {
	c := &Client{
		socket:   socket,
		timeout:  DefaultClientTimeout,
		spawn:    SpawnServer,
		fallback: fields.NewResolver(nil),
		recorder: metrics.NoopRecorder{},
	}
	for _, o := range opts {
		o(c)
	}
	c.http = &http.Client{
		Timeout: c.timeout,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", c.socket)
			},
			DisableKeepAlives: true,
		},
	}
	return c
}

// Fields returns formatted values for names. The result is identical whether
// the service or the in-process fallback answered.
func (c *Client) Fields(ctx context.Context, names []string, doc string, configPaths []string) (map[string]string, error) {
	vals, err := c.remote(ctx, names, doc, configPaths)
	if err == nil {
		return vals, nil
	}

	reason := "error"
	var (
		netErr net.Error
		opErr  *net.OpError
	)
	switch {
	case errors.As(err, &opErr) && opErr.Op == "dial":
		reason = "unavailable"
		c.maybeStart()
	case errors.As(err, &netErr) && netErr.Timeout():
		reason = "timeout"
	}
	c.recorder.IncFallback(reason)
	slog.Debug("Resolver service unavailable, resolving in-process",
		logfields.Socket(c.socket),
		logfields.Error(lerrors.ServiceUnavailable(err)))

	local, err := c.fallback.ResolveMany(names, doc, configPaths)
	if err != nil {
		return nil, err
	}
	return fields.FormatAll(local), nil
}

func (c *Client) remote(ctx context.Context, names []string, doc string, configPaths []string) (map[string]string, error) {
	absDoc, err := filepath.Abs(doc)
	if err != nil {
		return nil, err
	}
	wd, _ := os.Getwd()
	body, err := json.Marshal(FieldsRequest{
		Document:    absDoc,
		Fields:      names,
		ConfigFiles: configPaths,
		Workdir:     wd,
		Env:         fields.Environ(),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://lamd"+FieldsPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var out FieldsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode resolver response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resolver returned %d: %s", resp.StatusCode, out.Error)
	}
	if out.Values == nil {
		out.Values = map[string]string{}
	}
	for _, n := range names {
		if _, ok := out.Values[n]; !ok {
			return nil, fmt.Errorf("resolver response missing field %q", n)
		}
	}
	return out.Values, nil
}

// Healthy reports whether a server answers on the socket.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://lamd"+HealthPath, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) maybeStart() {
	if !c.autoStart || c.spawn == nil {
		return
	}
	if err := c.spawn(c.socket); err != nil {
		slog.Debug("Could not start resolver service", logfields.Socket(c.socket), logfields.Error(err))
	}
}

// SpawnServer starts `lamd serve` detached from the current process and its
// process group.
func SpawnServer(socket string) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	cmd := exec.Command(exe, "serve", "--socket", socket)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
