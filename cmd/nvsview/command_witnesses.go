package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"nvsview/internal/config"
	"nvsview/internal/render"
	"nvsview/internal/types"
)

type WitnessesCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newClient  clientFactory
}

func NewWitnessesCommand(stdout, stderr io.Writer, loadConfig func() (config.Config, error), newClient clientFactory) *WitnessesCommand {
	return &WitnessesCommand{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: loadConfig,
		newClient:  newClient,
	}
}

func (c *WitnessesCommand) Run(args []string) error {
	fs := flag.NewFlagSet("witnesses", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	meter := fs.String("meter", "", "only list witnesses diverging in this witness meter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()
	info, err := c.newClient(cfg).Witnesses(ctx)
	if err != nil {
		return err
	}

	var sigla []string
	if *meter != "" {
		sigla = info.SiglaForMeter(*meter)
	} else {
		for siglum := range info.Witnesses {
			sigla = append(sigla, siglum)
		}
		sort.Strings(sigla)
	}
	printWitnesses(c.stdout, info, sigla)
	return nil
}

func printWitnesses(output io.Writer, info *types.WitnessInfo, sigla []string) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "SIGLUM\tSLOTS\tEDITION")
	for _, siglum := range sigla {
		witness := info.Witnesses[siglum]
		slots := make([]string, 0, len(witness.Slots))
		for _, slot := range witness.Slots {
			slots = append(slots, fmt.Sprintf("%d", slot))
		}
		entry := strings.Join(strings.Fields(render.PlainText(witness.BibliographicEntry)), " ")
		fmt.Fprintf(writer, "%s\t%s\t%s\n", siglum, strings.Join(slots, ","), entry)
	}
	_ = writer.Flush()
	if centuries := info.OrderedCenturies(); len(centuries) > 0 {
		parts := make([]string, 0, len(centuries))
		for _, century := range centuries {
			parts = append(parts, fmt.Sprintf("%s:%d", century.Century, century.Count))
		}
		fmt.Fprintf(output, "centuries: %s\n", strings.Join(parts, " "))
	}
}
