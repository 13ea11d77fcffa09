package main

import (
	"io"
	"os"

	"nvsview/internal/app"
	"nvsview/internal/config"
)

type commandRunner interface {
	Run(args []string) error
}

type commandWiring struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newClient  clientFactory
	runUI      func(opts app.Options) error
	version    string
}

func defaultCommandWiring(stdout, stderr io.Writer) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return commandWiring{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: config.Load,
		newClient:  newEditionClient,
		runUI:      app.Run,
		version:    buildVersion(),
	}
}

func buildCommands(wiring commandWiring) map[string]commandRunner {
	return map[string]commandRunner{
		"ui":        NewUICommand(wiring.stderr, wiring.loadConfig, wiring.runUI),
		"config":    NewConfigCommand(wiring.stdout, wiring.stderr, wiring.loadConfig),
		"lines":     NewLinesCommand(wiring.stdout, wiring.stderr, wiring.loadConfig, wiring.newClient),
		"search":    NewSearchCommand(wiring.stdout, wiring.stderr, wiring.loadConfig, wiring.newClient),
		"witnesses": NewWitnessesCommand(wiring.stdout, wiring.stderr, wiring.loadConfig, wiring.newClient),
		"version":   NewVersionCommand(wiring.stdout, wiring.version),
	}
}
