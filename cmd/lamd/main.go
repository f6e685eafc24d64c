package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/lamd/cmd/lamd/commands"
	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
	"git.home.luguber.info/inful/lamd/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("lamd"),
		kong.Description("Dependency, field and list tooling for markdown talks, papers and CVs."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{Logger: slog.Default(), Stdout: os.Stdout}
	if err := parser.Run(global, cli); err != nil {
		adapter := lerrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		os.Exit(adapter.Report(os.Stderr, err))
	}
}
