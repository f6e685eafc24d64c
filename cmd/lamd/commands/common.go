package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/lamd/internal/config"
	"git.home.luguber.info/inful/lamd/internal/fields"
	"git.home.luguber.info/inful/lamd/internal/logfields"
	"git.home.luguber.info/inful/lamd/internal/resolverd"
)

// Global carries state shared by every command.
type Global struct {
	Logger *slog.Logger
	Stdout io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// CLI is the root command and its global flags.
type CLI struct {
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	EnvDir  string           `name:"env-dir" help:"Directory holding .env files" default:"." type:"path"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Field  FieldCmd  `cmd:"" help:"Print one field of a document, falling back to the project config"`
	Fields FieldsCmd `cmd:"" help:"Print several fields of a document as field:value lines"`
	Deps   DepsCmd   `cmd:"" help:"List the files a document depends on"`
	List   ListCmd   `cmd:"" help:"Render a list of records through a list type"`
	Flags  FlagsCmd  `cmd:"" help:"Print pandoc options derived from a document's fields"`
	Sync   SyncCmd   `cmd:"" help:"Pull the snippet and bibliography checkouts a document uses"`
	Serve  ServeCmd  `cmd:"" help:"Run the field resolver service on a unix socket"`
}

// AfterApply runs after flag parsing; load .env files and set up logging once.
func (c *CLI) AfterApply() error {
	level := config.LogLevel(c.Verbose)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	loaded, err := config.LoadEnv(c.EnvDir)
	if err != nil {
		return err
	}
	for _, f := range loaded {
		slog.Debug("Loaded environment file", logfields.File(f))
	}
	// The level may come from a .env file.
	if len(loaded) > 0 {
		if l := config.LogLevel(c.Verbose); l != level {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
		}
	}
	return nil
}

// ServerFlags choose between the resolver service and in-process resolution.
type ServerFlags struct {
	UseServer bool `name:"use-server" help:"Resolve through the resolver service, starting it if needed" xor:"server"`
	NoServer  bool `name:"no-server" help:"Resolve in-process even if LAMD_USE_SERVER is set" xor:"server"`
}

// lookup resolves names for doc either through the service or directly.
func (s ServerFlags) lookup(ctx context.Context, names []string, doc string, configFiles []string) (map[string]string, error) {
	svc, err := config.ServiceFromEnv()
	if err != nil {
		return nil, err
	}
	useServer := svc.UseServer
	switch {
	case s.UseServer:
		useServer = true
	case s.NoServer:
		useServer = false
	}
	configs := configPaths(configFiles)

	if !useServer {
		vals, err := fields.NewResolver(nil).ResolveMany(names, doc, configs)
		if err != nil {
			return nil, err
		}
		return fields.FormatAll(vals), nil
	}
	client := resolverd.NewClient(svc.Socket,
		resolverd.WithTimeout(svc.ClientTimeout),
		resolverd.WithAutoStart(true))
	return client.Fields(ctx, names, doc, configs)
}

// configPaths returns nil when none were given so the defaults apply.
func configPaths(files []string) []string {
	if len(files) == 0 {
		return nil
	}
	return files
}

// documentFields resolves raw values in-process, for commands that derive
// settings from a document.
func documentFields(doc string, names ...string) (map[string]string, error) {
	vals, err := fields.NewResolver(nil).ResolveMany(names, doc, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(vals))
	for n, v := range vals {
		if v.Found && v.Raw != nil {
			out[n] = fields.Format(n, v)
		}
	}
	return out, nil
}
