package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
)

// clipboardBackend names where a copy landed.
type clipboardBackend string

const (
	clipboardSystem   clipboardBackend = "system clipboard"
	clipboardTerminal clipboardBackend = "terminal clipboard"
)

// Most terminals drop OSC52 payloads past roughly 100KB; a whole scene
// with its citation stays well under that.
const osc52MaxBytes = 100_000

var (
	clipboardWriteAll   = clipboard.WriteAll
	clipboardWriteOSC52 = writeOSC52Clipboard
)

// clipboardError keeps both failures so the status line can say why
// neither backend took the text.
type clipboardError struct {
	system   error
	terminal error
}

func (e *clipboardError) Error() string {
	terminal := describeClipboardFailure(e.terminal)
	if missingDisplay() {
		return "no GUI clipboard available (DISPLAY/WAYLAND_DISPLAY unset); OSC52 fallback failed: " + terminal
	}
	return fmt.Sprintf("system clipboard failed: %s; OSC52 fallback failed: %s", describeClipboardFailure(e.system), terminal)
}

func (e *clipboardError) Unwrap() []error {
	return []error{e.system, e.terminal}
}

// copyText tries the system clipboard first and falls back to an OSC52
// escape written to the controlling terminal.
func copyText(text string) (clipboardBackend, error) {
	systemErr := clipboardWriteAll(text)
	if systemErr == nil {
		return clipboardSystem, nil
	}
	terminalErr := clipboardWriteOSC52(text)
	if terminalErr == nil {
		return clipboardTerminal, nil
	}
	return "", &clipboardError{system: systemErr, terminal: terminalErr}
}

func (m *Model) copyWithStatus(text, what string) bool {
	backend, err := copyText(text)
	if err != nil {
		m.setError("copy failed: " + err.Error())
		return false
	}
	m.setStatus(fmt.Sprintf("copied %s to the %s", what, backend))
	return true
}

func writeOSC52Clipboard(text string) error {
	if osc52Disabled() {
		return errors.New("OSC52 unavailable for this terminal")
	}
	tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open /dev/tty: %w", err)
	}
	defer tty.Close()
	return writeOSC52Sequence(tty, text)
}

// osc52Sequences picks the escapes for the current multiplexer. Under tmux
// both the plain and the passthrough form go out, since which one arrives
// depends on the user's set-clipboard setting.
func osc52Sequences(text string) []osc52.Sequence {
	seq := osc52.New(text).Limit(osc52MaxBytes)
	switch {
	case os.Getenv("TMUX") != "":
		return []osc52.Sequence{seq, seq.Tmux()}
	case strings.HasPrefix(strings.ToLower(os.Getenv("TERM")), "screen"):
		return []osc52.Sequence{seq.Screen()}
	}
	return []osc52.Sequence{seq}
}

func writeOSC52Sequence(w io.Writer, text string) error {
	if len(text) > osc52MaxBytes {
		return fmt.Errorf("%d bytes is too long for the terminal clipboard", len(text))
	}
	for _, seq := range osc52Sequences(text) {
		if _, err := seq.WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}

func osc52Disabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("NVSVIEW_DISABLE_OSC52"))) {
	case "1", "true", "yes", "on":
		return true
	}
	term := strings.TrimSpace(os.Getenv("TERM"))
	return term == "" || strings.EqualFold(term, "dumb")
}

func describeClipboardFailure(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	if msg != "exit status 1" {
		return msg
	}
	if missingDisplay() {
		return "no GUI clipboard available (DISPLAY/WAYLAND_DISPLAY unset)"
	}
	return "clipboard helper exited with status 1"
}

func missingDisplay() bool {
	return strings.TrimSpace(os.Getenv("DISPLAY")) == "" && strings.TrimSpace(os.Getenv("WAYLAND_DISPLAY")) == ""
}
