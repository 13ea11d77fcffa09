package main

import (
	"encoding/json"
	"errors"
	"flag"
	"io"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"nvsview/internal/app"
	"nvsview/internal/config"
)

type ConfigCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
}

const (
	configFormatJSON = "json"
	configFormatTOML = "toml"

	configScopeServer      = "server"
	configScopeViewer      = "viewer"
	configScopeKeybindings = "keybindings"
)

type configOutput struct {
	ConfigPath      string                   `json:"config_path,omitempty" toml:"config_path,omitempty"`
	KeybindingsPath string                   `json:"keybindings_path,omitempty" toml:"keybindings_path,omitempty"`
	Server          *effectiveServerConfig   `json:"server,omitempty" toml:"server,omitempty"`
	Viewer          *effectiveViewerConfig   `json:"viewer,omitempty" toml:"viewer,omitempty"`
	Commentary      *effectiveCommentaryConf `json:"commentary,omitempty" toml:"commentary,omitempty"`
	Logging         *effectiveLoggingConfig  `json:"logging,omitempty" toml:"logging,omitempty"`
	Keybindings     map[string]string        `json:"keybindings,omitempty" toml:"keybindings,omitempty"`
}

type effectiveServerConfig struct {
	BaseURL        string            `json:"base_url" toml:"base_url"`
	CorpusID       string            `json:"corpus_id" toml:"corpus_id"`
	Play           string            `json:"play" toml:"play"`
	TimeoutSeconds int               `json:"timeout_seconds" toml:"timeout_seconds"`
	Endpoints      map[string]string `json:"endpoints" toml:"endpoints"`
}

type effectiveViewerConfig struct {
	MinLineHeight       int  `json:"min_line_height" toml:"min_line_height"`
	BufferFactor        int  `json:"buffer_factor" toml:"buffer_factor"`
	IdleLoading         bool `json:"idle_loading" toml:"idle_loading"`
	IdleBatchSize       int  `json:"idle_batch_size" toml:"idle_batch_size"`
	HighlightCommLemmas bool `json:"highlight_comm_lemmas" toml:"highlight_comm_lemmas"`
}

type effectiveCommentaryConf struct {
	SwathSize int `json:"swath_size" toml:"swath_size"`
}

type effectiveLoggingConfig struct {
	Level string `json:"level" toml:"level"`
}

func NewConfigCommand(stdout, stderr io.Writer, loadConfig func() (config.Config, error)) *ConfigCommand {
	return &ConfigCommand{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: loadConfig,
	}
}

func (c *ConfigCommand) Run(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	defaults := fs.Bool("default", false, "print default config values")
	format := fs.String("format", configFormatJSON, "output format: json|toml")
	var scopes stringList
	fs.Var(&scopes, "scope", "scope to print: server|viewer|keybindings|all (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolvedFormat, err := resolveConfigFormat(*format)
	if err != nil {
		return err
	}
	resolvedScopes, err := resolveConfigScopes(scopes)
	if err != nil {
		return err
	}
	payload, err := c.buildOutput(*defaults, resolvedScopes)
	if err != nil {
		return err
	}
	return writeConfigOutput(c.stdout, resolvedFormat, projectedConfigPayload(payload, resolvedScopes))
}

func (c *ConfigCommand) buildOutput(defaults bool, scopes map[string]struct{}) (configOutput, error) {
	out := configOutput{}

	cfg := config.DefaultConfig()
	if !defaults {
		loaded, err := c.loadConfig()
		if err != nil {
			return configOutput{}, err
		}
		cfg = loaded
	}

	if scopeSelected(scopes, configScopeServer) {
		if path, err := config.ConfigPath(); err == nil {
			out.ConfigPath = path
		}
		out.Server = &effectiveServerConfig{
			BaseURL:        cfg.BaseURL(),
			CorpusID:       cfg.CorpusID(),
			Play:           cfg.Play(),
			TimeoutSeconds: int(cfg.Timeout().Seconds()),
			Endpoints:      cfg.Endpoints(),
		}
		out.Logging = &effectiveLoggingConfig{Level: cfg.LogLevel()}
	}

	if scopeSelected(scopes, configScopeViewer) {
		out.Viewer = &effectiveViewerConfig{
			MinLineHeight:       cfg.MinLineHeight(),
			BufferFactor:        cfg.BufferFactor(),
			IdleLoading:         cfg.IdleLoading(),
			IdleBatchSize:       cfg.IdleBatchSize(),
			HighlightCommLemmas: cfg.HighlightCommLemmas(),
		}
		out.Commentary = &effectiveCommentaryConf{SwathSize: cfg.SwathSize()}
	}

	if scopeSelected(scopes, configScopeKeybindings) {
		keybindingsPath, err := cfg.ResolveKeybindingsPath()
		if err != nil {
			return configOutput{}, err
		}
		out.KeybindingsPath = keybindingsPath
		bindings := app.DefaultKeybindings()
		if !defaults {
			bindings, err = app.LoadKeybindings(keybindingsPath)
			if err != nil {
				return configOutput{}, err
			}
		}
		out.Keybindings = bindings.Bindings()
	}

	return out, nil
}

func writeConfigOutput(out io.Writer, format string, payload any) error {
	switch format {
	case configFormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	case configFormatTOML:
		data, err := toml.Marshal(payload)
		if err != nil {
			return err
		}
		if len(data) == 0 || data[len(data)-1] != '\n' {
			data = append(data, '\n')
		}
		_, err = out.Write(data)
		return err
	default:
		return errors.New("unsupported format")
	}
}

// projectedConfigPayload narrows a single-scope payload to that scope's
// section so it can be pasted back into config.toml.
func projectedConfigPayload(payload configOutput, scopes map[string]struct{}) any {
	if len(scopes) != 1 {
		return payload
	}
	switch {
	case scopeSelected(scopes, configScopeKeybindings):
		if payload.Keybindings == nil {
			return map[string]string{}
		}
		return payload.Keybindings
	case scopeSelected(scopes, configScopeViewer):
		return struct {
			Viewer     *effectiveViewerConfig   `json:"viewer" toml:"viewer"`
			Commentary *effectiveCommentaryConf `json:"commentary" toml:"commentary"`
		}{payload.Viewer, payload.Commentary}
	case scopeSelected(scopes, configScopeServer):
		return struct {
			Server  *effectiveServerConfig  `json:"server" toml:"server"`
			Logging *effectiveLoggingConfig `json:"logging" toml:"logging"`
		}{payload.Server, payload.Logging}
	}
	return payload
}

func resolveConfigFormat(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", configFormatJSON:
		return configFormatJSON, nil
	case configFormatTOML:
		return configFormatTOML, nil
	default:
		return "", errors.New("invalid format: must be json or toml")
	}
}

func allConfigScopes() map[string]struct{} {
	return map[string]struct{}{
		configScopeServer:      {},
		configScopeViewer:      {},
		configScopeKeybindings: {},
	}
}

func resolveConfigScopes(values []string) (map[string]struct{}, error) {
	if len(values) == 0 {
		return allConfigScopes(), nil
	}
	out := map[string]struct{}{}
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			scope, err := normalizeConfigScope(part)
			if err != nil {
				return nil, err
			}
			if scope == "all" {
				return allConfigScopes(), nil
			}
			out[scope] = struct{}{}
		}
	}
	return out, nil
}

func normalizeConfigScope(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "all":
		return "all", nil
	case configScopeServer, "core":
		return configScopeServer, nil
	case configScopeViewer, "ui":
		return configScopeViewer, nil
	case configScopeKeybindings, "keys":
		return configScopeKeybindings, nil
	default:
		return "", errors.New("invalid scope: must be server, viewer, keybindings, or all")
	}
}

func scopeSelected(scopes map[string]struct{}, scope string) bool {
	_, ok := scopes[scope]
	return ok
}
