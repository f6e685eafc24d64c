package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
	"git.home.luguber.info/inful/lamd/internal/listgen"
	"git.home.luguber.info/inful/lamd/internal/logfields"
	"git.home.luguber.info/inful/lamd/internal/records"
	"git.home.luguber.info/inful/lamd/internal/stages"
	"git.home.luguber.info/inful/lamd/internal/templates"
)

// ListCmd implements 'lamd list'.
type ListCmd struct {
	ListType  string   `arg:"" name:"listtype" help:"List type from the catalogue (talks, grants, publications, ...)"`
	Files     []string `arg:"" name:"file" help:"Record sources (.yml, .yaml, .json, .csv, .md, .db, .sqlite)" type:"path"`
	Output    string   `short:"o" help:"Write the list to this file instead of stdout" type:"path"`
	SinceYear int      `name:"since-year" short:"s" help:"Earliest year the recent filter keeps (default: five years ago)"`
	Lists     string   `help:"List type catalogue merged over the built-in types" default:"cvlists.yml"`
	Templates []string `help:"Template directory searched before the built-in templates (repeatable)" type:"path"`
	Table     string   `help:"SQLite table holding records" default:"records"`
}

// Run renders the selected records and writes the list.
func (l *ListCmd) Run(g *Global, _ *CLI) error {
	// The default catalogue file is optional; a named one must exist.
	cat, err := listgen.LoadCatalogue(l.Lists, l.Lists == listgen.DefaultListsFile)
	if err != nil {
		return err
	}
	cfg, err := cat.Resolve(l.ListType)
	if err != nil {
		return err
	}

	rs, err := records.Load(l.Files, records.LoadOptions{Table: l.Table})
	if err != nil {
		return err
	}

	gen := listgen.NewGenerator(templates.NewRenderer(l.Templates...))
	text, err := gen.Run(cfg, rs, stages.NewRunContext(time.Now(), l.SinceYear))
	if err != nil {
		return err
	}

	if l.Output == "" {
		_, err = io.WriteString(g.out(), text)
		return err
	}
	if err := os.WriteFile(l.Output, []byte(text), 0o644); err != nil {
		return lerrors.FileSystemError(fmt.Sprintf("write %s", l.Output), err)
	}
	slog.Info("Wrote list", logfields.ListType(cfg.Name), logfields.File(l.Output))
	return nil
}
