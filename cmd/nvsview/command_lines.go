package main

import (
	"context"
	"errors"
	"flag"
	"io"

	"nvsview/internal/config"
)

type LinesCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newClient  clientFactory
}

func NewLinesCommand(stdout, stderr io.Writer, loadConfig func() (config.Config, error), newClient clientFactory) *LinesCommand {
	return &LinesCommand{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: loadConfig,
		newClient:  newClient,
	}
}

func (c *LinesCommand) Run(args []string) error {
	fs := flag.NewFlagSet("lines", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	from := fs.Int("from", 1, "first through line number")
	to := fs.Int("to", 0, "last through line number (defaults to from+39)")
	play := fs.String("play", "", "play abbreviation (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *from < 1 {
		return errors.New("from must be at least 1")
	}
	end := *to
	if end == 0 {
		end = *from + 39
	}
	if end < *from {
		return errors.New("to must not be before from")
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if *play != "" {
		cfg.Server.Play = *play
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout()*3)
	defer cancel()
	lines, err := c.newClient(cfg).Lines(ctx, *from, end)
	if err != nil {
		return err
	}
	printLines(c.stdout, lines)
	return nil
}
