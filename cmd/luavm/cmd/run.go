package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lua53go/engine/internal/fixture"
	"github.com/lua53go/engine/internal/runtime"
	"github.com/lua53go/engine/pkg/engine"
	"github.com/spf13/cobra"
)

// tickLimits is a repeatable --tick-limit flag: each occurrence appends one
// int64 budget, consumed in order across successive Resume calls so a host
// can script a step-by-step execution from the command line (spec.md 4.9's
// per-resume tick budget). Grounded on cobra's documented pattern for a
// custom pflag.Value backing a repeated flag.
type tickLimits []int64

func (t *tickLimits) String() string {
	parts := make([]string, len(*t))
	for i, v := range *t {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ",")
}

func (t *tickLimits) Set(s string) error {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid tick-limit %q: %w", s, err)
	}
	*t = append(*t, n)
	return nil
}

func (t *tickLimits) Type() string { return "int64" }

var (
	runSegmentLimit int
	runTickLimits   tickLimits
	runConfigFile   string
	runVerbose      bool
)

var runCmd = &cobra.Command{
	Use:   "run [fixture]",
	Short: "Compile and run a resolved-AST fixture",
	Long: `Run reads a resolved-AST fixture, compiles it, and drives it to
completion. Under --tick-limit each resume call gets a CPU budget; when the
program pauses, it is resumed with the next budget until it finishes.

Examples:
  # Run a fixture to completion
  luavm run program.json

  # Run under a tick budget, resuming step by step until done
  luavm run program.json --tick-limit 1000 --tick-limit 1000

  # Load pipeline options from a YAML file
  luavm run program.json --config tuning.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runFixture,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&runSegmentLimit, "segment-limit", 0, "bound IR node count per function segment (0: unbounded)")
	runCmd.Flags().Var(&runTickLimits, "tick-limit", "per-resume tick budget (repeatable; last value reused once exhausted)")
	runCmd.Flags().StringVar(&runConfigFile, "config", "", "YAML file of pipeline options (overridden by explicit flags)")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "verbose output")
}

func runFixture(_ *cobra.Command, args []string) error {
	filename := args[0]

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	chunk, err := fixture.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to decode fixture %s: %w", filename, err)
	}

	var opts []engine.Option
	if runConfigFile != "" {
		fc, err := engine.LoadConfigFile(runConfigFile)
		if err != nil {
			return fmt.Errorf("failed to load config %s: %w", runConfigFile, err)
		}
		opts = append(opts, fc.Options()...)
	}
	if runSegmentLimit > 0 {
		opts = append(opts, engine.WithSegmentLimit(runSegmentLimit))
	}
	if len(runTickLimits) > 0 {
		opts = append(opts, engine.WithTickAccounting(runTickLimits[0]))
	}

	if runVerbose {
		fmt.Fprintf(os.Stderr, "Compiling %s...\n", filename)
	}

	prog, err := engine.Compile(chunk, opts...)
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}

	env := runtime.Table(runtime.NewTable())
	call := prog.NewCall(env)
	cont := call.Continuation()

	step := 0
	for {
		if step > 0 && step < len(runTickLimits) {
			prog.Sched().TickLimit = runTickLimits[step]
		}

		outcome, err := call.Resume(cont)
		if err != nil {
			return fmt.Errorf("execution failed: %w", err)
		}

		if outcome.Done {
			if runVerbose {
				fmt.Fprintf(os.Stderr, "Finished after %d resume(s)\n", step+1)
			}
			for i, v := range outcome.Results {
				fmt.Printf("[%d] %s\n", i, v.String())
			}
			return nil
		}

		if runVerbose {
			fmt.Fprintf(os.Stderr, "Paused (resume %d)\n", step+1)
		}
		if outcome.Task != nil {
			return fmt.Errorf("program suspended on an async task the CLI cannot host")
		}
		if len(runTickLimits) == 0 {
			return fmt.Errorf("program paused with no --tick-limit budget to continue it")
		}

		cont = outcome.Continuation
		step++
	}
}
