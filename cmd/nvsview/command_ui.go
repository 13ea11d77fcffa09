package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"nvsview/internal/app"
	"nvsview/internal/client"
	"nvsview/internal/config"
	"nvsview/internal/logging"
)

type UICommand struct {
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	runUI      func(opts app.Options) error
	logPath    func() (string, error)
}

func NewUICommand(stderr io.Writer, loadConfig func() (config.Config, error), runUI func(opts app.Options) error) *UICommand {
	return &UICommand{
		stderr:     stderr,
		loadConfig: loadConfig,
		runUI:      runUI,
		logPath:    config.UILogPath,
	}
}

func (c *UICommand) Run(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	play := fs.String("play", "", "play abbreviation to open (overrides config)")
	baseURL := fs.String("base-url", "", "edition server base URL (overrides config)")
	noIdle := fs.Bool("no-idle", false, "disable background loading of the whole play")
	keybindingsPath := fs.String("keybindings", "", "path to a keybindings JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if value := strings.TrimSpace(*play); value != "" {
		cfg.Server.Play = value
	}
	if value := strings.TrimSpace(*baseURL); value != "" {
		cfg.Server.BaseURL = value
	}
	if *noIdle {
		idle := false
		cfg.Viewer.IdleLoading = &idle
	}
	if value := strings.TrimSpace(*keybindingsPath); value != "" {
		cfg.UI.KeybindingsPath = value
	}

	logger := logging.Nop()
	if c.logPath != nil {
		if path, err := c.logPath(); err == nil {
			fileLogger, closer, err := logging.OpenFile(path, logging.ParseLevel(cfg.LogLevel()))
			if err != nil {
				fmt.Fprintf(c.stderr, "ui log disabled: %v\n", err)
			} else {
				defer closer.Close()
				logger = fileLogger
			}
		}
	}

	bindingsPath, err := cfg.ResolveKeybindingsPath()
	if err != nil {
		return err
	}
	bindings, err := app.LoadKeybindings(bindingsPath)
	if err != nil {
		return fmt.Errorf("keybindings: %w", err)
	}
	for _, conflict := range app.DetectKeybindingConflicts(bindings) {
		fmt.Fprintln(c.stderr, conflict.Message())
		logger.Warn("keybinding conflict", logging.F("detail", conflict.Message()))
	}

	logger.Info("ui starting",
		logging.F("play", cfg.Play()),
		logging.F("base_url", cfg.BaseURL()),
		logging.F("idle_loading", cfg.IdleLoading()),
	)
	return c.runUI(app.Options{
		Config:      cfg,
		Client:      client.New(cfg),
		Logger:      logger,
		Keybindings: bindings,
	})
}
