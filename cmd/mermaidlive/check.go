package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mermaidlive/internal/diagtype"
)

var checkCmd = &cobra.Command{
	Use:   "check [files or directories...]",
	Short: "Check that diagrams declare a supported diagram type",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range files {
		data, err := readSource(cmd, path)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s %s: %v\n", color.New(color.FgRed).Sprint("error"), path, err)
			continue
		}
		kw, ok := checkText(string(data))
		switch {
		case !ok:
			failed++
			fmt.Fprintf(out, "%s %s: unknown diagram type\n", color.New(color.FgRed).Sprint("error"), filepath.ToSlash(path))
		case !quiet:
			fmt.Fprintf(out, "%s %s: %s\n", color.New(color.FgGreen).Sprint("ok"), filepath.ToSlash(path), kw)
		}
	}
	if failed > 0 {
		if !quiet {
			fmt.Fprintf(out, "supported types: %s\n", diagtype.List())
		}
		return fmt.Errorf("%d of %d files have no supported diagram type", failed, len(files))
	}
	return nil
}

func checkText(text string) (diagtype.Keyword, bool) {
	return diagtype.Detect(strings.TrimSpace(text))
}
