package commands

import (
	"context"
	"fmt"
)

// FieldCmd implements 'lamd field'.
type FieldCmd struct {
	Field       string   `arg:"" help:"Field name"`
	File        string   `arg:"" help:"Markdown document" type:"path"`
	ConfigFiles []string `name:"config-file" short:"c" help:"Config file consulted after the document (repeatable; default _lamd.yml then _config.yml)"`
	ServerFlags `embed:""`
}

// Run prints the formatted value, or an empty line when the field is unset.
func (f *FieldCmd) Run(g *Global, _ *CLI) error {
	vals, err := f.lookup(context.Background(), []string{f.Field}, f.File, f.ConfigFiles)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(g.out(), vals[f.Field])
	return err
}

// FieldsCmd implements 'lamd fields'.
type FieldsCmd struct {
	File        string   `arg:"" help:"Markdown document" type:"path"`
	Names       []string `arg:"" name:"field" help:"Field names"`
	ConfigFiles []string `name:"config-file" short:"c" help:"Config file consulted after the document (repeatable)"`
	ServerFlags `embed:""`
}

// Run prints one field:value line per requested field, in request order.
func (f *FieldsCmd) Run(g *Global, _ *CLI) error {
	vals, err := f.lookup(context.Background(), f.Names, f.File, f.ConfigFiles)
	if err != nil {
		return err
	}
	for _, n := range f.Names {
		if _, err := fmt.Fprintf(g.out(), "%s:%s\n", n, vals[n]); err != nil {
			return err
		}
	}
	return nil
}
