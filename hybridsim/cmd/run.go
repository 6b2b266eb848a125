package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/hybridpolicy/datarecording"
	"github.com/sarchlab/hybridpolicy/mem/accesstrace"
	"github.com/sarchlab/hybridpolicy/mem/cache/replacement"
	"github.com/sarchlab/hybridpolicy/mem/cache/tagging"
	"github.com/sarchlab/hybridpolicy/mem/trace"
)

var runCmd = &cobra.Command{
	Use:   "run [trace file]",
	Short: "Replay a trace and print the replacement report.",
	Long: "`run trace.txt` replays the trace through the cache. Flags " +
		"override the values in the --config file.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveRunConfig(cmd)
		if err != nil {
			return err
		}

		return run(cfg, args[0], cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "TOML file with the run configuration")
	cmd.Flags().Int("sets", 0, "number of sets")
	cmd.Flags().Int("ways", 0, "number of ways per set")
	cmd.Flags().Int("log2-block-size", 0, "log2 of the cache line size in bytes")
	cmd.Flags().String("record", "", "record decisions into <record>.sqlite3")
	cmd.Flags().String("trace-log", "", "write one line per decision to this file")
}

func resolveRunConfig(cmd *cobra.Command) (runConfig, error) {
	cfg := defaultRunConfig()

	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		var err error

		cfg, err = loadRunConfig(path)
		if err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("sets") {
		cfg.NumSets, _ = flags.GetInt("sets")
	}

	if flags.Changed("ways") {
		cfg.NumWays, _ = flags.GetInt("ways")
	}

	if flags.Changed("log2-block-size") {
		cfg.Log2BlockSize, _ = flags.GetInt("log2-block-size")
	}

	if flags.Changed("record") {
		cfg.Record, _ = flags.GetString("record")
	}

	if flags.Changed("trace-log") {
		cfg.TraceLog, _ = flags.GetString("trace-log")
	}

	return cfg, cfg.validate()
}

func run(cfg runConfig, tracePath string, cmd *cobra.Command) error {
	traceFile, err := os.Open(tracePath)
	if err != nil {
		return fmt.Errorf("opening trace: %w", err)
	}
	defer traceFile.Close()

	builder := replacement.MakeBuilder().
		WithNumSets(cfg.NumSets).
		WithNumWays(cfg.NumWays)

	if cfg.TraceLog != "" {
		logFile, err := os.Create(cfg.TraceLog)
		if err != nil {
			return fmt.Errorf("creating trace log: %w", err)
		}
		defer logFile.Close()

		builder = builder.WithHook(trace.NewTracer(log.New(logFile, "", 0)))
	}

	if cfg.Record != "" {
		recorder, err := datarecording.Open(cfg.Record)
		if err != nil {
			return fmt.Errorf("creating recording: %w", err)
		}
		defer recorder.Close()

		builder = builder.WithHook(trace.NewDBTracer(recorder))
	}

	policy := builder.Build()
	tags := tagging.NewTagArray(cfg.NumSets, cfg.NumWays, cfg.blockSize(), policy)

	log.Printf("replaying %s: %d sets, %d ways, %d B lines",
		tracePath, cfg.NumSets, cfg.NumWays, cfg.blockSize())

	s, err := replay(accesstrace.NewReader(traceFile), tags)
	if err != nil {
		return fmt.Errorf("replaying %s: %w", tracePath, err)
	}

	s.Report = policy.Finalize()
	s.print(cmd.OutOrStdout())

	return nil
}
