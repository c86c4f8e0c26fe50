package main

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mermaidlive/internal/batch"
	"mermaidlive/internal/diagram"
)

var renderCmd = &cobra.Command{
	Use:   "render [files or directories...]",
	Short: "Render diagrams to SVG, repairing common syntax mistakes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().String("out-dir", "", "directory for SVG output (default: next to each input)")
	renderCmd.Flags().String("theme", "", "diagram theme (auto|light|dark; default from config)")
	renderCmd.Flags().Int("jobs", 0, "parallel render workers (default from config)")
	renderCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	renderCmd.Flags().String("cache-dir", "", "enable the disk render cache in this directory")
	renderCmd.Flags().Bool("no-cache", false, "disable the render cache")
	renderCmd.Flags().Bool("dry-run", false, "render without writing SVG files")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	tracer, cleanup, err := setupTracing(cmd, cfg, false)
	if err != nil {
		return err
	}
	defer cleanup()

	flags := cmd.Flags()
	outDir, _ := flags.GetString("out-dir")
	themeValue, _ := flags.GetString("theme")
	jobs, _ := flags.GetInt("jobs")
	uiValue, _ := flags.GetString("ui")
	cacheDir, _ := flags.GetString("cache-dir")
	noCache, _ := flags.GetBool("no-cache")
	dryRun, _ := flags.GetBool("dry-run")
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	timings, _ := cmd.Root().PersistentFlags().GetBool("timings")

	if themeValue == "" {
		themeValue = cfg.Theme
	}
	theme, err := resolveTheme(themeValue)
	if err != nil {
		return err
	}
	if jobs <= 0 {
		jobs = cfg.Jobs
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	if cacheDir != "" {
		cfg.Cache.Disk = true
		cfg.Cache.Dir = cacheDir
	}
	if noCache {
		cfg.Cache.Disk = false
		cfg.Cache.Entries = 0
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	useUI, err := progressUI(uiValue, quiet, len(files))
	if err != nil {
		return err
	}
	cache, err := openCache(cfg, tracer)
	if err != nil {
		return err
	}

	opts := batch.Options{
		Jobs:    jobs,
		Theme:   theme,
		OutDir:  outDir,
		DryRun:  dryRun,
		Factory: engineFactory(cfg, tracer),
		Cache:   cache,
	}

	var results []batch.Result
	if useUI {
		results, err = runRenderWithUI(cmd.Context(), "rendering diagrams", files, opts)
	} else {
		results, err = batch.Render(cmd.Context(), files, opts)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printResults(out, results, quiet, timings)
	sum := batch.Summarize(results)
	if !quiet {
		printSummary(out, sum)
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d diagrams failed", sum.Failed, len(results))
	}
	return nil
}

func printResults(out io.Writer, results []batch.Result, quiet, timings bool) {
	okStyle := color.New(color.FgGreen)
	fixStyle := color.New(color.FgYellow)
	errStyle := color.New(color.FgRed, color.Bold)

	for _, r := range results {
		name := filepath.ToSlash(r.File)
		switch {
		case r.Err != nil:
			fmt.Fprintf(out, "%s %s: %v\n", errStyle.Sprint("error"), name, r.Err)
		case r.Outcome.Status != diagram.StatusSuccess:
			fmt.Fprintf(out, "%s %s: %s\n", errStyle.Sprint("error"), name, r.Outcome.Reason.Message())
			if r.Outcome.EngineMessage != "" {
				fmt.Fprintf(out, "  %s\n", r.Outcome.EngineMessage)
			}
			if r.Outcome.HasRepair {
				fmt.Fprintf(out, "  suggested fix available: mermaidlive repair %s\n", name)
			}
		case r.Outcome.AutoCorrected:
			fmt.Fprintf(out, "%s %s (%v)\n", fixStyle.Sprint("fixed"), name, r.Outcome.RepairRules)
		case !quiet:
			fmt.Fprintf(out, "%s %s\n", okStyle.Sprint("ok"), name)
		}
		if timings {
			fmt.Fprint(out, r.Outcome.Timing.Summary())
		}
	}
}

func printSummary(out io.Writer, sum batch.Summary) {
	line := fmt.Sprintf("%d rendered, %d auto-corrected, %d failed", sum.Rendered, sum.Corrected, sum.Failed)
	if sum.Failed > 0 {
		fmt.Fprintln(out, color.New(color.FgRed).Sprint(line))
		return
	}
	fmt.Fprintln(out, color.New(color.FgGreen).Sprint(line))
}
