package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/lamd/internal/git"
)

// SyncCmd implements 'lamd sync'.
type SyncCmd struct {
	File  string   `arg:"" help:"Markdown document whose snippetsdir and bibdir are pulled" type:"path"`
	Paths []string `name:"path" short:"p" help:"Additional checkout to pull (repeatable)" type:"path"`
}

// Run pulls every checkout and prints one status line each.
func (s *SyncCmd) Run(g *Global, _ *CLI) error {
	vals, err := documentFields(s.File, fieldSnippetsDir, fieldBibDir)
	if err != nil {
		return err
	}
	paths := []string{vals[fieldSnippetsDir], vals[fieldBibDir]}
	paths = append(paths, s.Paths...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := git.PullAll(ctx, paths)
	for _, r := range results {
		state := "up to date"
		if r.Updated {
			state = "updated"
		}
		if _, werr := fmt.Fprintf(g.out(), "%s: %s %s\n", r.Path, state, shortHash(r.Head)); werr != nil {
			return werr
		}
	}
	return err
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
