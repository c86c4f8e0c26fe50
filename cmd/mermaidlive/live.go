package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"mermaidlive/internal/clipboard"
	"mermaidlive/internal/pipeline"
	"mermaidlive/internal/store"
	"mermaidlive/internal/ui"
	"mermaidlive/internal/view"
)

var liveCmd = &cobra.Command{
	Use:   "live [file]",
	Short: "Edit a diagram with a live render status",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLive,
}

func init() {
	liveCmd.Flags().String("out", "", "write the SVG of every successful render to this path")
	liveCmd.Flags().String("theme", "", "initial theme (auto|light|dark; default from config)")
	liveCmd.Flags().Bool("save", false, "write the edited text back to the file on exit")
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	tracer, cleanup, err := setupTracing(cmd, cfg, true)
	if err != nil {
		return err
	}
	defer cleanup()

	outPath, _ := cmd.Flags().GetString("out")
	themeValue, _ := cmd.Flags().GetString("theme")
	save, _ := cmd.Flags().GetBool("save")

	var path, initial string
	if len(args) == 1 {
		path = args[0]
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		initial = string(data)
	}
	if save && path == "" {
		return fmt.Errorf("--save needs a file argument")
	}

	if themeValue == "" {
		themeValue = cfg.Theme
	}
	theme, err := resolveTheme(themeValue)
	if err != nil {
		return err
	}

	executor, release, err := newExecutor(cfg, tracer)
	if err != nil {
		return err
	}
	defer release()
	cache, err := openCache(cfg, tracer)
	if err != nil {
		return err
	}
	clip, err := clipboard.New(cfg.Clipboard.Mode, cfg.Clipboard.Command, os.Stdout)
	if err != nil {
		return err
	}

	onChange, changes := ui.Notifier()
	ctrl := pipeline.New(pipeline.Options{
		Debounce: cfg.Debounce,
		Executor: executor,
		Cache:    cache,
		Tracer:   tracer,
		OnChange: onChange,
	})
	defer func() {
		ctrl.Close()
		ctrl.Wait()
	}()

	out := store.WithLogging[string](store.NewMemory[string](), tracer, "view")
	surface := view.New(ctrl, clip, out, tracer)

	title := "untitled"
	if path != "" {
		title = filepath.Base(path)
	}
	model := ui.NewLiveModel(ctrl, surface, ui.LiveOptions{
		Title:   title,
		Initial: initial,
		Theme:   theme,
		OutPath: outPath,
		Changes: changes,
	})
	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}

	if save {
		if text, ok := ui.LiveText(final); ok && text != initial {
			if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
				return err
			}
		}
	}
	if quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet"); !quiet {
		st := surface.View()
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", st.Status, st.Headline)
	}
	return nil
}
