package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/lamd/internal/config"
	"git.home.luguber.info/inful/lamd/internal/logfields"
	"git.home.luguber.info/inful/lamd/internal/resolverd"
)

// ServeCmd implements 'lamd serve'.
type ServeCmd struct {
	Socket      string        `help:"Unix socket path (default: $LAMD_SOCKET, else a per-user runtime path)"`
	IdleTimeout time.Duration `name:"idle-timeout" help:"Stop after this long without requests (default: $LAMD_IDLE_TIMEOUT, else 10m)"`
	MaxConns    int           `name:"max-conns" help:"Maximum concurrent connections" default:"64"`
}

// Run serves until interrupted or idle.
func (s *ServeCmd) Run(_ *Global, _ *CLI) error {
	svc, err := config.ServiceFromEnv()
	if err != nil {
		return err
	}
	if s.Socket != "" {
		svc.Socket = s.Socket
	}
	if s.IdleTimeout > 0 {
		svc.IdleTimeout = s.IdleTimeout
	}
	if s.MaxConns > 0 {
		svc.MaxConns = s.MaxConns
	}

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Debug("Starting resolver service",
		logfields.Socket(svc.Socket),
		slog.Int("max_conns", svc.MaxConns))
	return resolverd.NewServer(resolverd.Options{
		IdleTimeout: svc.IdleTimeout,
		MaxConns:    svc.MaxConns,
		Registry:    reg,
	}).ListenAndServe(ctx, svc.Socket)
}
