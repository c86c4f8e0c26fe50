package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mermaidlive/internal/config"
	"mermaidlive/internal/trace"
)

// setupTracing builds the tracer from the trace flags, falling back to the
// [trace] config section for flags left unset. An interactive session holds
// terminal-bound events in the ring, which cleanup dumps to the trace
// output, narrowed to --trace-gen when given.
func setupTracing(cmd *cobra.Command, cfg config.Config, interactive bool) (trace.Tracer, func(), error) {
	flags := cmd.Root().PersistentFlags()

	traceOutput, err := flags.GetString("trace")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}
	onlyGen, err := flags.GetUint64("trace-gen")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-gen flag: %w", err)
	}

	if !flags.Changed("trace-level") {
		levelStr = cfg.Trace.Level
	}
	if !flags.Changed("trace-mode") {
		modeStr = cfg.Trace.Mode
	}
	if !flags.Changed("trace-ring-size") {
		ringSize = cfg.Trace.RingSize
	}
	if traceOutput == "" && cfg.Trace.Output != "stderr" {
		traceOutput = cfg.Trace.Output
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid trace level: %w", err)
	}
	if level == trace.LevelOff && traceOutput == "" {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return trace.Nop, func() {}, nil
	}
	if level == trace.LevelOff {
		level = trace.LevelPhase
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	tcfg := trace.Config{
		Level:       level,
		Mode:        mode,
		OutputPath:  traceOutput,
		RingSize:    ringSize,
		Heartbeat:   heartbeatInterval,
		Interactive: interactive,
	}
	tracer, err := trace.New(tcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	heartbeat := trace.StartHeartbeat(tracer, heartbeatInterval)

	cleanup := func() {
		heartbeat.Stop()
		if tcfg.EffectiveMode() == trace.ModeRing {
			if err := dumpRing(trace.RingOf(tracer), traceOutput, onlyGen); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}

// dumpRing writes the ring to path, or stderr for "" and "-". A non-zero
// gen keeps only that generation's events.
func dumpRing(ring *trace.RingTracer, path string, gen uint64) error {
	if ring == nil {
		return nil
	}
	var keep func(*trace.Event) bool
	if gen != 0 {
		keep = trace.ForGeneration(gen)
	}
	if path == "" || path == "-" {
		return ring.Dump(os.Stderr, trace.FormatText, keep)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ring.Dump(f, trace.FormatForPath(path), keep); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
