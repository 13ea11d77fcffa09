package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultBaseURL        = "https://corpora.dh.tamu.edu"
	defaultCorpusID       = "5f3d7c81cfcceb0074aa7f55"
	defaultPlay           = "wt"
	defaultTimeoutSeconds = 10
	defaultMinLineHeight  = 1
	defaultBufferFactor   = 5
	defaultIdleBatchSize  = 500
	defaultSwathSize      = 10
)

const (
	EndpointLine         = "line"
	EndpointNote         = "note"
	EndpointCommentary   = "commentary"
	EndpointSearch       = "search"
	EndpointWitness      = "witness"
	EndpointWitnessMeter = "witness_meter"
	EndpointSpeech       = "speech"
)

var defaultEndpoints = map[string]string{
	EndpointLine:         "/api/corpus/{corpus}/PlayLine/",
	EndpointNote:         "/api/corpus/{corpus}/TextualNote/",
	EndpointCommentary:   "/api/corpus/{corpus}/Commentary/",
	EndpointSearch:       "/api/corpus/{corpus}/{play}/search/",
	EndpointWitness:      "/api/corpus/{corpus}/{play}/witnesses/",
	EndpointWitnessMeter: "/api/corpus/{corpus}/{play}/witness-meter/",
	EndpointSpeech:       "/api/corpus/{corpus}/Speech/",
}

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Viewer     ViewerConfig     `toml:"viewer"`
	Commentary CommentaryConfig `toml:"commentary"`
	Logging    LoggingConfig    `toml:"logging"`
	UI         UIConfig         `toml:"ui"`
}

type ServerConfig struct {
	BaseURL        string            `toml:"base_url"`
	CorpusID       string            `toml:"corpus_id"`
	Play           string            `toml:"play"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	Endpoints      map[string]string `toml:"endpoints"`
}

type ViewerConfig struct {
	MinLineHeight       int   `toml:"min_line_height"`
	BufferFactor        int   `toml:"buffer_factor"`
	IdleLoading         *bool `toml:"idle_loading"`
	IdleBatchSize       int   `toml:"idle_batch_size"`
	HighlightCommLemmas *bool `toml:"highlight_comm_lemmas"`
}

type CommentaryConfig struct {
	SwathSize int `toml:"swath_size"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type UIConfig struct {
	KeybindingsPath string `toml:"keybindings_path"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			BaseURL:        defaultBaseURL,
			CorpusID:       defaultCorpusID,
			Play:           defaultPlay,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Viewer: ViewerConfig{
			MinLineHeight: defaultMinLineHeight,
			BufferFactor:  defaultBufferFactor,
			IdleBatchSize: defaultIdleBatchSize,
		},
		Commentary: CommentaryConfig{
			SwathSize: defaultSwathSize,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return loadFromPath(path)
}

func (c Config) BaseURL() string {
	base := strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")
	if base == "" {
		return defaultBaseURL
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return base
}

func (c Config) CorpusID() string {
	if id := strings.TrimSpace(c.Server.CorpusID); id != "" {
		return id
	}
	return defaultCorpusID
}

func (c Config) Play() string {
	if play := strings.TrimSpace(c.Server.Play); play != "" {
		return play
	}
	return defaultPlay
}

func (c Config) Timeout() time.Duration {
	if c.Server.TimeoutSeconds <= 0 {
		return defaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// EndpointURL resolves a named endpoint against the base URL, expanding
// the {corpus} and {play} placeholders.
func (c Config) EndpointURL(name string) string {
	path := strings.TrimSpace(c.Server.Endpoints[name])
	if path == "" {
		path = defaultEndpoints[name]
	}
	path = strings.ReplaceAll(path, "{corpus}", c.CorpusID())
	path = strings.ReplaceAll(path, "{play}", c.Play())
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL() + path
}

func (c Config) Endpoints() map[string]string {
	out := make(map[string]string, len(defaultEndpoints))
	for name := range defaultEndpoints {
		out[name] = c.EndpointURL(name)
	}
	return out
}

func (c Config) MinLineHeight() int {
	if c.Viewer.MinLineHeight <= 0 {
		return defaultMinLineHeight
	}
	return c.Viewer.MinLineHeight
}

func (c Config) BufferFactor() int {
	if c.Viewer.BufferFactor <= 0 {
		return defaultBufferFactor
	}
	return c.Viewer.BufferFactor
}

func (c Config) IdleLoading() bool {
	if c.Viewer.IdleLoading == nil {
		return true
	}
	return *c.Viewer.IdleLoading
}

func (c Config) IdleBatchSize() int {
	if c.Viewer.IdleBatchSize <= 0 {
		return defaultIdleBatchSize
	}
	return c.Viewer.IdleBatchSize
}

func (c Config) HighlightCommLemmas() bool {
	if c.Viewer.HighlightCommLemmas == nil {
		return true
	}
	return *c.Viewer.HighlightCommLemmas
}

func (c Config) SwathSize() int {
	if c.Commentary.SwathSize <= 0 {
		return defaultSwathSize
	}
	return c.Commentary.SwathSize
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c Config) ResolveKeybindingsPath() (string, error) {
	defaultPath, err := KeybindingsPath()
	if err != nil {
		return "", err
	}
	path := strings.TrimSpace(c.UI.KeybindingsPath)
	if path == "" {
		return defaultPath, nil
	}
	return resolveConfigPath(path)
}

func loadFromPath(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func resolveConfigPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path is required")
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, path), nil
}
