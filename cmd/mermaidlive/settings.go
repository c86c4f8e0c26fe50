package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"mermaidlive/internal/batch"
	"mermaidlive/internal/config"
	"mermaidlive/internal/diagram"
	"mermaidlive/internal/engine"
	"mermaidlive/internal/engine/mmdc"
	"mermaidlive/internal/pipeline"
	"mermaidlive/internal/rcache"
	"mermaidlive/internal/trace"
	"mermaidlive/internal/ui"
)

const appName = "mermaidlive"

// diagramExts are the extensions collected when a directory is given.
var diagramExts = map[string]bool{".mmd": true, ".mermaid": true}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	explicit, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	return config.Discover(explicit, ".")
}

// resolveTheme maps a theme setting to a theme; auto follows the terminal.
func resolveTheme(value string) (diagram.Theme, error) {
	if strings.EqualFold(strings.TrimSpace(value), config.ThemeAuto) || strings.TrimSpace(value) == "" {
		if !isTerminal(os.Stdout) {
			return diagram.ThemeLight, nil
		}
		return ui.DetectTheme(), nil
	}
	return diagram.ParseTheme(value)
}

// progressUI decides whether render shows the progress view. --quiet
// always wins; auto wants a terminal on stdout and more than one diagram,
// since a single render finishes before the view would paint.
func progressUI(value string, quiet bool, files int) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return !quiet && files > 1 && isTerminal(os.Stdout), nil
	case "on":
		return !quiet, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

func engineOptions(cfg config.Config) mmdc.Options {
	return mmdc.Options{
		Command:         cfg.Engine.Command,
		Args:            cfg.Engine.Args,
		Timeout:         cfg.Engine.Timeout,
		PuppeteerConfig: cfg.Engine.PuppeteerConfig,
	}
}

// newExecutor starts an mmdc engine behind an executor. The returned func
// removes the engine's scratch directory.
func newExecutor(cfg config.Config, tracer trace.Tracer) (*engine.Executor, func() error, error) {
	eng, err := mmdc.New(engineOptions(cfg))
	if err != nil {
		return nil, nil, err
	}
	x := engine.NewExecutor(eng, engine.ExecutorOptions{Tracer: tracer, MaxWidth: cfg.MaxWidth})
	return x, eng.Close, nil
}

func engineFactory(cfg config.Config, tracer trace.Tracer) batch.Factory {
	return func() (pipeline.Attempter, func() error, error) {
		x, release, err := newExecutor(cfg, tracer)
		if err != nil {
			return nil, nil, err
		}
		return x, release, nil
	}
}

// openCache returns nil when caching is disabled.
func openCache(cfg config.Config, tracer trace.Tracer) (pipeline.Cache, error) {
	if cfg.Cache.Entries == 0 && !cfg.Cache.Disk {
		return nil, nil
	}
	dir := ""
	if cfg.Cache.Disk {
		dir = cfg.Cache.Dir
		if dir == "" {
			var err error
			if dir, err = rcache.DefaultDir(appName); err != nil {
				return nil, fmt.Errorf("cache dir: %w", err)
			}
		}
	}
	c, err := rcache.New(rcache.Options{
		Entries:  cfg.Cache.Entries,
		Dir:      dir,
		MaxWidth: cfg.MaxWidth,
		Tracer:   tracer,
	})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return c, nil
}

// collectFiles expands directories into the diagram files they contain.
// Explicit file arguments are kept whatever their extension.
func collectFiles(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && diagramExts[strings.ToLower(filepath.Ext(path))] {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		for _, path := range found {
			add(path)
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no diagram files found")
	}
	return files, nil
}

func readSource(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	return os.ReadFile(path)
}
