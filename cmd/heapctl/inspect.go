package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/cmd/heapctl/logger"
	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/report"
	"github.com/joshuapare/heapkit/heap/snapshot"
	"github.com/joshuapare/heapkit/heap/verify"
)

var (
	inspectBlocks   bool
	inspectNoVerify bool
)

func init() {
	cmd := newInspectCmd()
	cmd.Flags().BoolVar(&inspectBlocks, "blocks", false, "List every free and live block")
	cmd.Flags().BoolVar(&inspectNoVerify, "no-verify", false, "Skip the invariant checks")
	rootCmd.AddCommand(cmd)
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <snapshot>",
		Short: "Show usage and layout of a heap snapshot",
		Long: `The inspect command loads a snapshot written by "heapctl run --save"
or snapshot.WriteFile, verifies it and prints its usage summary.

Example:
  heapctl inspect heap.snap
  heapctl inspect heap.snap --blocks
  heapctl inspect heap.snap --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args)
		},
	}
	return cmd
}

func runInspect(args []string) error {
	printVerbose("Opening snapshot: %s\n", args[0])

	h, err := snapshot.ReadFile(args[0], &alloc.Config{Logger: logger.L})
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	defer h.Close()

	if !inspectNoVerify {
		if err := verify.All(h); err != nil {
			return fmt.Errorf("verify: %w", err)
		}
	}

	opts := report.Options{FreeList: inspectBlocks, Live: inspectBlocks}
	if jsonOut {
		return report.JSON(os.Stdout, h, opts)
	}
	if quiet {
		return nil
	}
	if err := report.Text(os.Stdout, h, opts); err != nil {
		return err
	}
	if !inspectNoVerify {
		printInfo("\nVerify: OK\n")
	}
	return nil
}
