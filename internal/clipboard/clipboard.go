// Package clipboard writes text to the system clipboard, either through the
// terminal with an OSC 52 escape or through a helper command.
package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/aymanbagabas/go-osc52/v2"
)

// ErrDisabled is returned by the Off clipboard.
var ErrDisabled = errors.New("clipboard disabled")

// Clipboard is the single write capability the surface depends on.
type Clipboard interface {
	Write(ctx context.Context, text string) error
}

// Mode selects a Clipboard implementation.
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeOSC52   Mode = "osc52"
	ModeCommand Mode = "command"
	ModeOff     Mode = "off"
)

// ParseMode accepts auto|osc52|command|off; empty means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeOSC52, ModeCommand, ModeOff:
		return m, nil
	default:
		return ModeAuto, fmt.Errorf("invalid clipboard mode: %q (expected: auto|osc52|command|off)", s)
	}
}

// New builds the clipboard for mode. command overrides the detected helper
// for ModeCommand; out receives OSC 52 sequences.
func New(mode Mode, command string, out io.Writer) (Clipboard, error) {
	switch mode {
	case ModeOff:
		return Off{}, nil
	case ModeOSC52:
		return NewOSC52(out), nil
	case ModeCommand:
		argv := strings.Fields(command)
		if len(argv) == 0 {
			argv = DetectCommand()
		}
		if len(argv) == 0 {
			return nil, errors.New("no clipboard command found (set [clipboard] command)")
		}
		return &Command{Name: argv[0], Args: argv[1:]}, nil
	case ModeAuto, "":
		if argv := strings.Fields(command); len(argv) > 0 {
			return &Command{Name: argv[0], Args: argv[1:]}, nil
		}
		return NewOSC52(out), nil
	default:
		return nil, fmt.Errorf("unknown clipboard mode %q", mode)
	}
}

// OSC52 writes an OSC 52 sequence to the terminal, wrapped for tmux or
// screen when running inside them.
type OSC52 struct {
	mu     sync.Mutex
	out    io.Writer
	getenv func(string) string
}

// NewOSC52 writes to out, or to stderr when out is nil.
func NewOSC52(out io.Writer) *OSC52 {
	if out == nil {
		out = os.Stderr
	}
	return &OSC52{out: out, getenv: os.Getenv}
}

func (c *OSC52) Write(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	seq := osc52.New(text)
	switch {
	case c.getenv("TMUX") != "":
		seq = seq.Tmux()
	case strings.HasPrefix(c.getenv("TERM"), "screen"):
		seq = seq.Screen()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := seq.WriteTo(c.out); err != nil {
		return fmt.Errorf("osc52: %w", err)
	}
	return nil
}

// Command pipes the text into a helper such as pbcopy or wl-copy.
type Command struct {
	Name string
	Args []string
}

func (c *Command) Write(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", c.Name, err, msg)
		}
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	return nil
}

// Off rejects every write.
type Off struct{}

func (Off) Write(context.Context, string) error { return ErrDisabled }

var candidates = [][]string{
	{"pbcopy"},
	{"wl-copy"},
	{"xclip", "-selection", "clipboard"},
	{"xsel", "--clipboard", "--input"},
	{"clip.exe"},
}

// DetectCommand returns the first clipboard helper found on PATH.
func DetectCommand() []string {
	for _, argv := range candidates {
		if _, err := exec.LookPath(argv[0]); err == nil {
			return argv
		}
	}
	return nil
}
