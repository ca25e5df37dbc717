package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fprime/bpfwcet/pkg/cache"
	"github.com/fprime/bpfwcet/pkg/cfg"
	"github.com/fprime/bpfwcet/pkg/explorer"
	"github.com/fprime/bpfwcet/pkg/inst"
	"github.com/fprime/bpfwcet/pkg/result"
	"github.com/fprime/bpfwcet/pkg/smt/z3"
	"github.com/fprime/bpfwcet/pkg/symexec"
)

func main() {
	var window int
	var nearBytes int
	var dramCycles int
	var loopBound int
	var output string
	var verbose bool

	log := logrus.New()

	rootCmd := &cobra.Command{
		Use:   "bpfwcet",
		Short: "Static worst-case execution time analyzer for eBPF+ byte-code",
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Compute the maximum cycle bound across every feasible path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			report, err := analyzeFile(args[0], analysisConfig{window, nearBytes, dramCycles, loopBound}, log)
			if err != nil {
				return err
			}
			printReport(*report)
			if output != "" {
				return writeReports(output, []result.Report{*report})
			}
			return nil
		},
	}
	analyzeCmd.Flags().IntVar(&window, "window", 5, "cache-locality lookback window (W)")
	analyzeCmd.Flags().IntVar(&nearBytes, "near-bytes", 4, "cache-locality distance threshold in bytes (K)")
	analyzeCmd.Flags().IntVar(&dramCycles, "dram-cycles", inst.DefaultDRAMLatency, "DRAM penalty charged per cold memory access")
	analyzeCmd.Flags().IntVar(&loopBound, "loop-bound", 0, "back-edge iterations to allow before cutting (0 = single iteration)")
	analyzeCmd.Flags().StringVar(&output, "output", "", "write the report as JSON to this path")
	analyzeCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log diagnostics as they are raised")

	decodeCmd := &cobra.Command{
		Use:   "decode <file>",
		Short: "Disassemble a byte-code file one instruction per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			prog, err := inst.DecodeAll(b)
			if err != nil {
				return err
			}
			for i, line := range inst.Disassemble(prog) {
				fmt.Printf("%4d  %s\n", i, line)
			}
			return nil
		},
	}

	var batchOutput string
	var checkpointPath string
	batchCmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Analyze every byte-code file in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			return runBatch(args[0], analysisConfig{window, nearBytes, dramCycles, loopBound}, batchOutput, checkpointPath, log)
		},
	}
	batchCmd.Flags().IntVar(&window, "window", 5, "cache-locality lookback window (W)")
	batchCmd.Flags().IntVar(&nearBytes, "near-bytes", 4, "cache-locality distance threshold in bytes (K)")
	batchCmd.Flags().IntVar(&dramCycles, "dram-cycles", inst.DefaultDRAMLatency, "DRAM penalty charged per cold memory access")
	batchCmd.Flags().IntVar(&loopBound, "loop-bound", 0, "back-edge iterations to allow before cutting (0 = single iteration)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "reports.json", "write the combined reports as JSON to this path")
	batchCmd.Flags().StringVar(&checkpointPath, "checkpoint", "", "resume (or start) a checkpoint file for this batch")
	batchCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log diagnostics as they are raised")

	rootCmd.AddCommand(analyzeCmd, decodeCmd, batchCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type analysisConfig struct {
	window     int
	nearBytes  int
	dramCycles int
	loopBound  int
}

func analyzeFile(path string, cfgOpts analysisConfig, log *logrus.Logger) (*result.Report, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	prog, err := inst.DecodeAll(b)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	graph, err := cfg.Build(prog)
	if err != nil {
		return nil, fmt.Errorf("building CFG for %s: %w", path, err)
	}

	sol := z3.New()
	defer sol.Close()

	exec := symexec.New(sol, cfgOpts.dramCycles)
	cacheCfg := cache.Config{Window: cfgOpts.window, NearBytes: uint64(cfgOpts.nearBytes), DRAMCycles: cfgOpts.dramCycles}

	var policy explorer.LoopPolicy = explorer.SingleIterationPolicy{}
	if cfgOpts.loopBound > 0 {
		policy = explorer.BoundedIterationPolicy{N: cfgOpts.loopBound}
	}

	exp := explorer.New(graph, exec, sol, cacheCfg, policy, log)
	er, err := exp.Explore()
	if err != nil {
		return nil, fmt.Errorf("exploring %s: %w", path, err)
	}

	blocks := make([]result.BlockSummary, 0, len(graph.Blocks))
	for _, blk := range graph.Blocks {
		succs := make([]int, len(blk.Succs))
		for i, s := range blk.Succs {
			succs[i] = int(s)
		}
		blocks = append(blocks, result.BlockSummary{ID: int(blk.ID), Start: blk.Start, End: blk.End, Successors: succs})
	}

	report := result.FromExploreResult(path, blocks, er)
	return &report, nil
}

func printReport(r result.Report) {
	ms := float64(r.Bound) / 6.67e8 * 1e3
	fmt.Printf("%s: bound = %d cycles (%.6f ms) across %d path(s)\n", r.Source, r.Bound, ms, len(r.Paths))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Block", "Start", "End", "Successors"})
	for _, b := range r.Blocks {
		succs := fmt.Sprintf("%v", b.Successors)
		table.Append([]string{fmt.Sprintf("%d", b.ID), fmt.Sprintf("%d", b.Start), fmt.Sprintf("%d", b.End), succs})
	}
	table.Render()

	for _, d := range r.Diagnostics {
		fmt.Printf("  [%s] block=%d instr=%d: %s\n", d.Kind, d.BlockID, d.InstrIndex, d.Message)
	}
}

func writeReports(path string, reports []result.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return result.WriteJSON(f, reports)
}

func runBatch(dir string, cfgOpts analysisConfig, outputPath, checkpointPath string, log *logrus.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var sources []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		sources = append(sources, filepath.Join(dir, e.Name()))
	}

	var ckpt *result.Checkpoint
	if checkpointPath != "" {
		if loaded, err := result.LoadCheckpoint(checkpointPath); err == nil {
			ckpt = loaded
			log.WithField("batch_id", ckpt.BatchID).Info("resuming checkpoint")
		}
	}
	if ckpt == nil {
		ckpt = result.NewCheckpoint(sources)
	}

	for len(ckpt.Remaining) > 0 {
		src := ckpt.Remaining[0]
		r, err := analyzeFile(src, cfgOpts, log)
		if err != nil {
			return err
		}
		r.BatchID = ckpt.BatchID.String()
		ckpt.Completed = append(ckpt.Completed, *r)
		ckpt.Remaining = ckpt.Remaining[1:]
		if checkpointPath != "" {
			if err := result.SaveCheckpoint(checkpointPath, ckpt); err != nil {
				return err
			}
		}
	}

	for _, r := range ckpt.Completed {
		printReport(r)
	}
	return writeReports(outputPath, ckpt.Completed)
}
