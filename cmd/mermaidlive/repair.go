package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mermaidlive/internal/repair"
)

var repairCmd = &cobra.Command{
	Use:   "repair <file|->",
	Short: "Print the repaired diagram text without rendering it",
	Long: `repair applies the deterministic syntax fixes to a diagram and prints the
result. The rules that fired are listed on stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: runRepair,
}

func init() {
	repairCmd.Flags().BoolP("write", "w", false, "rewrite the file in place instead of printing")
}

func runRepair(cmd *cobra.Command, args []string) error {
	path := args[0]
	write, _ := cmd.Flags().GetBool("write")
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	if write && path == "-" {
		return fmt.Errorf("--write cannot be used with stdin")
	}

	data, err := readSource(cmd, path)
	if err != nil {
		return err
	}
	res := repair.Apply(string(data))

	if !quiet {
		errOut := cmd.ErrOrStderr()
		if !res.Changed() {
			fmt.Fprintln(errOut, "no fixes applied")
		}
		for _, a := range res.Applied {
			fmt.Fprintf(errOut, "%s %s ×%d\n", color.New(color.FgYellow).Sprint(a.ID), a.Title, a.Count)
		}
	}

	if write {
		if !res.Changed() {
			return nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		return os.WriteFile(path, []byte(res.Output), info.Mode().Perm())
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), res.Output)
	return err
}
