// Package mmdc drives the Mermaid CLI as the external diagram engine.
package mmdc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mermaidlive/internal/engine"
)

// DefaultCommand is looked up on PATH when Options.Command is empty.
const DefaultCommand = "mmdc"

// Options configures the subprocess engine.
type Options struct {
	Command         string
	Args            []string
	Timeout         time.Duration
	PuppeteerConfig string
	// Dir is the parent of the scratch directory; empty means os.TempDir.
	Dir string
}

// Engine renders by running mmdc once per call.
type Engine struct {
	opts Options
	dir  string

	mu         sync.Mutex
	configPath string
}

var _ engine.Engine = (*Engine)(nil)

// New creates the scratch directory used for sources, configs and output.
func New(opts Options) (*Engine, error) {
	if opts.Command == "" {
		opts.Command = DefaultCommand
	}
	dir, err := os.MkdirTemp(opts.Dir, "mermaidlive-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Engine{opts: opts, dir: dir}, nil
}

// Configure writes the Mermaid config file passed to subsequent renders.
func (e *Engine) Configure(_ context.Context, cfg engine.Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	path := filepath.Join(e.dir, "config.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	e.mu.Lock()
	e.configPath = path
	e.mu.Unlock()
	return nil
}

// Render runs mmdc on source and returns the produced SVG.
func (e *Engine) Render(ctx context.Context, sessionID, source string) (string, error) {
	e.mu.Lock()
	configPath := e.configPath
	e.mu.Unlock()
	if configPath == "" {
		return "", errors.New("mmdc: render before configure")
	}

	in := filepath.Join(e.dir, sessionID+".mmd")
	out := filepath.Join(e.dir, sessionID+".svg")
	defer func() {
		_ = os.Remove(in)
		_ = os.Remove(out)
	}()
	if err := os.WriteFile(in, []byte(source), 0o600); err != nil {
		return "", fmt.Errorf("write source: %w", err)
	}

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.opts.Command, e.args(in, out, configPath, sessionID)...)
	cmd.WaitDelay = time.Second
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("mmdc: %w", ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("mmdc: %w", err)
		}
		return "", fmt.Errorf("mmdc: %w: %s", err, msg)
	}

	svg, err := os.ReadFile(out)
	if err != nil {
		return "", fmt.Errorf("read output: %w", err)
	}
	return string(svg), nil
}

func (e *Engine) args(in, out, configPath, sessionID string) []string {
	args := []string{
		"-i", in,
		"-o", out,
		"-c", configPath,
		"-I", sessionID,
		"-b", "transparent",
		"-q",
	}
	if e.opts.PuppeteerConfig != "" {
		args = append(args, "-p", e.opts.PuppeteerConfig)
	}
	return append(args, e.opts.Args...)
}

// Dir returns the scratch directory.
func (e *Engine) Dir() string { return e.dir }

// Close removes the scratch directory.
func (e *Engine) Close() error {
	return os.RemoveAll(e.dir)
}
