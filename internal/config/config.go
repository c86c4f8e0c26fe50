// Package config loads mermaidlive.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"

	"mermaidlive/internal/clipboard"
	"mermaidlive/internal/diagram"
	"mermaidlive/internal/trace"
)

// FileName is the name searched for by Find.
const FileName = "mermaidlive.toml"

// ErrNotFound is returned by Find when no config file exists up to the
// filesystem root.
var ErrNotFound = errors.New("no " + FileName + " found")

// ThemeAuto follows the terminal background.
const ThemeAuto = "auto"

// Config is the resolved configuration.
type Config struct {
	// Path is the file the config was loaded from; empty for defaults.
	Path string

	Debounce time.Duration
	Theme    string
	MaxWidth int
	Jobs     int

	Engine    Engine
	Cache     Cache
	Clipboard Clipboard
	Trace     Trace
}

// Engine configures the mmdc subprocess.
type Engine struct {
	Command         string
	Args            []string
	Timeout         time.Duration
	PuppeteerConfig string
}

// Cache configures the render cache.
type Cache struct {
	Disk    bool
	Dir     string
	Entries int
}

// Clipboard configures the copy actions.
type Clipboard struct {
	Mode    clipboard.Mode
	Command string
}

// Trace configures tracing.
type Trace struct {
	Level    string
	Mode     string
	Output   string
	RingSize int
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Debounce: 300 * time.Millisecond,
		Theme:    ThemeAuto,
		Jobs:     4,
		Engine: Engine{
			Command: "mmdc",
			Timeout: 30 * time.Second,
		},
		Cache:     Cache{Entries: 128},
		Clipboard: Clipboard{Mode: clipboard.ModeAuto},
		Trace: Trace{
			Level:    "off",
			Mode:     "stream",
			Output:   "stderr",
			RingSize: 4096,
		},
	}
}

type fileConfig struct {
	Render    renderSection    `toml:"render"`
	Engine    engineSection    `toml:"engine"`
	Cache     cacheSection     `toml:"cache"`
	Clipboard clipboardSection `toml:"clipboard"`
	Trace     traceSection     `toml:"trace"`
}

type renderSection struct {
	Debounce string `toml:"debounce"`
	Theme    string `toml:"theme"`
	MaxWidth *int64 `toml:"max_width"`
	Jobs     *int64 `toml:"jobs"`
}

type engineSection struct {
	Command         string   `toml:"command"`
	Args            []string `toml:"args"`
	Timeout         string   `toml:"timeout"`
	PuppeteerConfig string   `toml:"puppeteer_config"`
}

type cacheSection struct {
	Disk    *bool  `toml:"disk"`
	Dir     string `toml:"dir"`
	Entries *int64 `toml:"entries"`
}

type clipboardSection struct {
	Mode    string `toml:"mode"`
	Command string `toml:"command"`
}

type traceSection struct {
	Level    string `toml:"level"`
	Mode     string `toml:"mode"`
	Output   string `toml:"output"`
	RingSize *int64 `toml:"ring_size"`
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// Discover loads explicit when set, otherwise the nearest FileName above
// startDir, otherwise the defaults.
func Discover(explicit, startDir string) (Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path, err := Find(startDir)
	if errors.Is(err, ErrNotFound) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, err
	}
	return Load(path)
}

// Load reads path and applies it over the defaults.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg, err := raw.resolve(Default())
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

func (f fileConfig) resolve(cfg Config) (Config, error) {
	var err error
	if f.Render.Debounce != "" {
		if cfg.Debounce, err = duration("render.debounce", f.Render.Debounce); err != nil {
			return Config{}, err
		}
	}
	if f.Render.Theme != "" {
		if f.Render.Theme != ThemeAuto {
			if _, err := diagram.ParseTheme(f.Render.Theme); err != nil {
				return Config{}, fmt.Errorf("render.theme: %w", err)
			}
		}
		cfg.Theme = f.Render.Theme
	}
	if f.Render.MaxWidth != nil {
		if cfg.MaxWidth, err = count("render.max_width", *f.Render.MaxWidth); err != nil {
			return Config{}, err
		}
	}
	if f.Render.Jobs != nil {
		if cfg.Jobs, err = count("render.jobs", *f.Render.Jobs); err != nil {
			return Config{}, err
		}
	}

	if f.Engine.Command != "" {
		cfg.Engine.Command = f.Engine.Command
	}
	if len(f.Engine.Args) > 0 {
		cfg.Engine.Args = f.Engine.Args
	}
	if f.Engine.Timeout != "" {
		if cfg.Engine.Timeout, err = duration("engine.timeout", f.Engine.Timeout); err != nil {
			return Config{}, err
		}
	}
	cfg.Engine.PuppeteerConfig = f.Engine.PuppeteerConfig

	if f.Cache.Disk != nil {
		cfg.Cache.Disk = *f.Cache.Disk
	}
	if f.Cache.Dir != "" {
		cfg.Cache.Dir = f.Cache.Dir
		if f.Cache.Disk == nil {
			cfg.Cache.Disk = true
		}
	}
	if f.Cache.Entries != nil {
		if cfg.Cache.Entries, err = count("cache.entries", *f.Cache.Entries); err != nil {
			return Config{}, err
		}
	}

	if f.Clipboard.Mode != "" {
		if cfg.Clipboard.Mode, err = clipboard.ParseMode(f.Clipboard.Mode); err != nil {
			return Config{}, fmt.Errorf("clipboard.mode: %w", err)
		}
	}
	cfg.Clipboard.Command = f.Clipboard.Command

	if f.Trace.Level != "" {
		if _, err := trace.ParseLevel(f.Trace.Level); err != nil {
			return Config{}, fmt.Errorf("trace.level: %w", err)
		}
		cfg.Trace.Level = f.Trace.Level
	}
	if f.Trace.Mode != "" {
		if _, err := trace.ParseMode(f.Trace.Mode); err != nil {
			return Config{}, fmt.Errorf("trace.mode: %w", err)
		}
		cfg.Trace.Mode = f.Trace.Mode
	}
	if f.Trace.Output != "" {
		cfg.Trace.Output = f.Trace.Output
	}
	if f.Trace.RingSize != nil {
		if cfg.Trace.RingSize, err = count("trace.ring_size", *f.Trace.RingSize); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func duration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %s", key, value)
	}
	return d, nil
}

// count converts a TOML integer into a non-negative int.
func count(key string, v int64) (int, error) {
	if _, err := safecast.Conv[uint](v); err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	n, err := safecast.Conv[int](v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
