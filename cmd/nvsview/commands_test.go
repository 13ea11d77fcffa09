package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	toml "github.com/pelletier/go-toml/v2"

	"nvsview/internal/app"
	"nvsview/internal/client"
	"nvsview/internal/config"
	"nvsview/internal/testutil"
	"nvsview/internal/types"
)

func fixedConfig(cfg config.Config) func() (config.Config, error) {
	return func() (config.Config, error) { return cfg, nil }
}

func editionFactory(t *testing.T, edition *testutil.Edition) clientFactory {
	t.Helper()
	srv := httptest.NewServer(edition.Handler())
	t.Cleanup(srv.Close)
	return func(config.Config) commandClient {
		return client.NewWithEndpoints(edition.Endpoints(srv.URL), edition.Play)
	}
}

func TestLinesCommandPrintsPlainText(t *testing.T) {
	stdout := &bytes.Buffer{}
	edition := testutil.NewEdition(400)
	cmd := NewLinesCommand(stdout, &bytes.Buffer{}, fixedConfig(config.DefaultConfig()), editionFactory(t, edition))

	if err := cmd.Run([]string{"--from", "101", "--to", "103"}); err != nil {
		t.Fatalf("expected lines to succeed, got err=%v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "TLN") || !strings.Contains(out, "SCENE") {
		t.Fatalf("expected header in output, got %q", out)
	}
	if !strings.Contains(out, "line 101 of the play") || !strings.Contains(out, "1.2") {
		t.Fatalf("expected line row in output, got %q", out)
	}
	if strings.Contains(out, "<b>") {
		t.Fatalf("expected markup stripped, got %q", out)
	}
	if strings.Contains(out, "line 104 of the play") {
		t.Fatalf("expected range to stop at 103, got %q", out)
	}
}

func TestLinesCommandRejectsBackwardsRange(t *testing.T) {
	cmd := NewLinesCommand(&bytes.Buffer{}, &bytes.Buffer{}, fixedConfig(config.DefaultConfig()), nil)
	if err := cmd.Run([]string{"--from", "10", "--to", "5"}); err == nil {
		t.Fatalf("expected error for backwards range")
	}
}

func TestSearchCommandPrintsMatches(t *testing.T) {
	stdout := &bytes.Buffer{}
	edition := testutil.NewEdition(100)
	edition.SetSearchResults("crown", types.SearchResults{
		Lines:        []types.LineMatch{{ID: testutil.LineID(42), Matches: []string{"crown"}}},
		Commentaries: []types.CommentaryMatch{{CommID: testutil.CommentaryID(3), Matches: []string{"crowne"}}},
		Characters:   []string{"Leontes"},
	})
	cmd := NewSearchCommand(stdout, &bytes.Buffer{}, fixedConfig(config.DefaultConfig()), editionFactory(t, edition))

	if err := cmd.Run([]string{"--type", "fuzzy", "crown"}); err != nil {
		t.Fatalf("expected search to succeed, got err=%v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, testutil.LineID(42)) || !strings.Contains(out, testutil.CommentaryID(3)) {
		t.Fatalf("expected matches in output, got %q", out)
	}
	if !strings.Contains(out, "speakers: Leontes") {
		t.Fatalf("expected speakers in output, got %q", out)
	}
}

func TestSearchCommandReportsNoResults(t *testing.T) {
	stdout := &bytes.Buffer{}
	edition := testutil.NewEdition(100)
	cmd := NewSearchCommand(stdout, &bytes.Buffer{}, fixedConfig(config.DefaultConfig()), editionFactory(t, edition))

	if err := cmd.Run([]string{"nothing"}); err != nil {
		t.Fatalf("expected search to succeed, got err=%v", err)
	}
	if got := stdout.String(); got != "No results for your search term were found.\n" {
		t.Fatalf("unexpected stdout: %q", got)
	}
}

func TestSearchCommandValidatesFlags(t *testing.T) {
	cmd := NewSearchCommand(&bytes.Buffer{}, &bytes.Buffer{}, fixedConfig(config.DefaultConfig()), nil)
	if err := cmd.Run(nil); err == nil {
		t.Fatalf("expected error for missing query")
	}
	if err := cmd.Run([]string{"--type", "regex", "crown"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if err := cmd.Run([]string{"--in", "footnotes", "crown"}); err == nil {
		t.Fatalf("expected error for unknown scope")
	}
}

func TestResolveSearchScopes(t *testing.T) {
	scopes, err := resolveSearchScopes([]string{"lines,commentary", "lines"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(scopes) != 2 || scopes[0] != types.SearchScopePlaytext || scopes[1] != types.SearchScopeCommentary {
		t.Fatalf("unexpected scopes: %#v", scopes)
	}
	all, err := resolveSearchScopes(nil)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected every scope by default, got %#v err=%v", all, err)
	}
}

func TestWitnessesCommandListsEditions(t *testing.T) {
	stdout := &bytes.Buffer{}
	edition := testutil.NewEdition(10)
	cmd := NewWitnessesCommand(stdout, &bytes.Buffer{}, fixedConfig(config.DefaultConfig()), editionFactory(t, edition))

	if err := cmd.Run(nil); err != nil {
		t.Fatalf("expected witnesses to succeed, got err=%v", err)
	}
	out := stdout.String()
	for _, want := range []string{"s_f1", "s_pope", "First Folio, 1623.", "centuries: 17:3 18:5"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
}

func TestWitnessesCommandFiltersByMeter(t *testing.T) {
	stdout := &bytes.Buffer{}
	edition := testutil.NewEdition(10)
	cmd := NewWitnessesCommand(stdout, &bytes.Buffer{}, fixedConfig(config.DefaultConfig()), editionFactory(t, edition))

	if err := cmd.Run([]string{"--meter", "001000000"}); err != nil {
		t.Fatalf("expected witnesses to succeed, got err=%v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "s_f2") {
		t.Fatalf("expected s_f2 listed, got %q", out)
	}
	if strings.Contains(out, "s_f1") || strings.Contains(out, "s_rowe") {
		t.Fatalf("expected only diverging witnesses, got %q", out)
	}
}

func TestConfigCommandDefaultJSON(t *testing.T) {
	stdout := &bytes.Buffer{}
	cmd := NewConfigCommand(stdout, &bytes.Buffer{}, func() (config.Config, error) {
		return config.Config{}, errors.New("should not load")
	})

	if err := cmd.Run([]string{"--default", "--scope", "viewer"}); err != nil {
		t.Fatalf("expected config to succeed, got err=%v", err)
	}
	var payload struct {
		Viewer struct {
			BufferFactor  int  `json:"buffer_factor"`
			IdleLoading   bool `json:"idle_loading"`
			IdleBatchSize int  `json:"idle_batch_size"`
		} `json:"viewer"`
		Commentary struct {
			SwathSize int `json:"swath_size"`
		} `json:"commentary"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout.String())
	}
	if payload.Viewer.BufferFactor != 5 || !payload.Viewer.IdleLoading || payload.Viewer.IdleBatchSize != 500 {
		t.Fatalf("unexpected viewer defaults: %#v", payload.Viewer)
	}
	if payload.Commentary.SwathSize != 10 {
		t.Fatalf("unexpected swath size: %d", payload.Commentary.SwathSize)
	}
}

func TestConfigCommandTOMLUsesLoadedConfig(t *testing.T) {
	stdout := &bytes.Buffer{}
	cfg := config.DefaultConfig()
	cfg.Server.Play = "ham"
	cmd := NewConfigCommand(stdout, &bytes.Buffer{}, fixedConfig(cfg))

	if err := cmd.Run([]string{"--format", "toml", "--scope", "server"}); err != nil {
		t.Fatalf("expected config to succeed, got err=%v", err)
	}
	var payload struct {
		Server struct {
			Play      string            `toml:"play"`
			Endpoints map[string]string `toml:"endpoints"`
		} `toml:"server"`
	}
	if err := toml.Unmarshal(stdout.Bytes(), &payload); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout.String())
	}
	if payload.Server.Play != "ham" {
		t.Fatalf("unexpected play: %q", payload.Server.Play)
	}
	if !strings.Contains(payload.Server.Endpoints[config.EndpointSearch], "/ham/search/") {
		t.Fatalf("expected expanded search endpoint, got %q", payload.Server.Endpoints[config.EndpointSearch])
	}
}

func TestConfigCommandRejectsUnknownScope(t *testing.T) {
	cmd := NewConfigCommand(&bytes.Buffer{}, &bytes.Buffer{}, fixedConfig(config.DefaultConfig()))
	if err := cmd.Run([]string{"--scope", "daemon"}); err == nil {
		t.Fatalf("expected error for unknown scope")
	}
	if err := cmd.Run([]string{"--format", "yaml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestUICommandAppliesFlagsAndKeybindings(t *testing.T) {
	dir := t.TempDir()
	bindingsPath := filepath.Join(dir, "keys.json")
	if err := os.WriteFile(bindingsPath, []byte(`{"ui.filter":"F","ui.toggleVariants":"h"}`), 0o600); err != nil {
		t.Fatalf("write keybindings: %v", err)
	}
	stderr := &bytes.Buffer{}
	var got app.Options
	cmd := NewUICommand(stderr, fixedConfig(config.DefaultConfig()), func(opts app.Options) error {
		got = opts
		return nil
	})
	logPath := filepath.Join(dir, "ui.log")
	cmd.logPath = func() (string, error) { return logPath, nil }

	err := cmd.Run([]string{"--play", "ham", "--no-idle", "--keybindings", bindingsPath})
	if err != nil {
		t.Fatalf("expected ui to succeed, got err=%v", err)
	}
	if got.Config.Play() != "ham" || got.Config.IdleLoading() {
		t.Fatalf("expected flags applied, got play=%q idle=%v", got.Config.Play(), got.Config.IdleLoading())
	}
	if got.Client == nil || got.Client.Play() != "ham" {
		t.Fatalf("expected client for ham")
	}
	if got.Keybindings.KeyFor(app.KeyCommandFilter, "f") != "F" {
		t.Fatalf("expected keybinding override applied")
	}
	if !strings.Contains(stderr.String(), "keybinding conflict") {
		t.Fatalf("expected conflict reported, got %q", stderr.String())
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read ui log: %v", err)
	}
	if !strings.Contains(string(data), "ui starting") || !strings.Contains(string(data), "play=ham") {
		t.Fatalf("unexpected ui log: %q", string(data))
	}
}

func TestBuildCommandsRegistersEveryCommand(t *testing.T) {
	commands := buildCommands(defaultCommandWiring(&bytes.Buffer{}, &bytes.Buffer{}))
	for _, name := range []string{"ui", "config", "lines", "search", "witnesses", "version"} {
		if _, ok := commands[name]; !ok {
			t.Fatalf("expected %s command", name)
		}
	}
}

func TestVersionCommandPrintsVersion(t *testing.T) {
	stdout := &bytes.Buffer{}
	if err := NewVersionCommand(stdout, "abc123").Run(nil); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if stdout.String() != "abc123\n" {
		t.Fatalf("unexpected stdout: %q", stdout.String())
	}
}
