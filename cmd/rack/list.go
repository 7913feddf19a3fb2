package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"pipelined.dev/rack"
	"pipelined.dev/rack/mixer"
	"pipelined.dev/rack/osc"
	"pipelined.dev/rack/portaudio"
	"pipelined.dev/rack/wav"
)

// newCatalog returns catalog of all modules available in patches.
func newCatalog() *rack.Catalog {
	c := rack.NewCatalog(
		rack.Model{Slug: osc.Model, Name: "Sine VCO", New: func() rack.Module { return osc.New() }},
		rack.Model{Slug: mixer.Model, Name: "Mixer", New: func() rack.Module { return mixer.New(mixer.DefaultInputs) }},
	)
	if err := c.Add(wav.Models()...); err != nil {
		panic(err)
	}
	if err := c.Add(portaudio.Models()...); err != nil {
		panic(err)
	}
	return c
}

type listCommand struct {
	out io.Writer
}

//Implement command interface
func (cmd *listCommand) Name() string {
	return "list"
}

func (cmd *listCommand) Help() string {
	return "Show the list of available modules"
}

func (cmd *listCommand) Register(*flag.FlagSet) {}

func (cmd *listCommand) Run() error {
	out := cmd.out
	if out == nil {
		out = os.Stdout
	}
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tNAME\tPARAMS\tINPUTS\tOUTPUTS")
	for _, model := range newCatalog().Models() {
		b := model.New().Core()
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", model.Slug, model.Name, len(b.Params), len(b.Inputs), len(b.Outputs))
	}
	return w.Flush()
}
