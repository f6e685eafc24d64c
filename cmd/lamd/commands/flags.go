package commands

import (
	"fmt"

	"git.home.luguber.info/inful/lamd/internal/fields"
	"git.home.luguber.info/inful/lamd/internal/talkflags"
)

// FlagsCmd implements 'lamd flags'.
type FlagsCmd struct {
	Output string `arg:"" enum:"pp,post,docx,pptx,prefix,reveal,cv" help:"Option set to print (pp, post, docx, pptx, prefix, reveal, cv)"`
	Base   string `arg:"" help:"Document name without the .md extension"`
}

// Run prints the option string. The cv output prints nothing.
func (f *FlagsCmd) Run(g *Global, _ *CLI) error {
	talk, err := talkflags.Load(fields.NewResolver(nil), f.Base, nil)
	if err != nil {
		return err
	}
	out := talkflags.Output(f.Output)
	line, err := talk.Render(out)
	if err != nil {
		return err
	}
	if out == talkflags.OutputCV {
		return nil
	}
	_, err = fmt.Fprintln(g.out(), line)
	return err
}
