// Package engine runs render attempts against an external diagram engine.
//
// An Engine is consumed through two operations: Configure sets the global
// engine options and Render turns source text into SVG markup under a
// caller-chosen session id. The Executor wraps an Engine with a unique
// session per attempt, serialised configure-then-render, panic recovery and
// SVG fitting.
package engine

import (
	"context"

	"mermaidlive/internal/diagram"
)

// Engine is the swappable boundary to the third-party renderer.
type Engine interface {
	Configure(ctx context.Context, cfg Config) error
	Render(ctx context.Context, sessionID, source string) (string, error)
}

// FlowchartConfig holds the flowchart layout options.
type FlowchartConfig struct {
	UseMaxWidth bool `json:"useMaxWidth"`
	HTMLLabels  bool `json:"htmlLabels"`
}

// Config is the global engine configuration written before every render.
// The JSON form is the Mermaid config schema.
type Config struct {
	Theme                  string          `json:"theme"`
	SecurityLevel          string          `json:"securityLevel"`
	LogLevel               string          `json:"logLevel"`
	StartOnLoad            bool            `json:"startOnLoad"`
	SuppressErrorRendering bool            `json:"suppressErrorRendering"`
	Flowchart              FlowchartConfig `json:"flowchart"`
}

// ConfigFor returns the non-interactive configuration used for every
// attempt: no autoload, strict security, quiet logging, no error diagrams.
func ConfigFor(theme diagram.Theme) Config {
	return Config{
		Theme:                  ThemeName(theme),
		SecurityLevel:          "strict",
		LogLevel:               "fatal",
		StartOnLoad:            false,
		SuppressErrorRendering: true,
		Flowchart: FlowchartConfig{
			UseMaxWidth: true,
			HTMLLabels:  false,
		},
	}
}

// ThemeName maps a theme to the engine's theme name.
func ThemeName(theme diagram.Theme) string {
	if theme == diagram.ThemeDark {
		return "dark"
	}
	return "default"
}
