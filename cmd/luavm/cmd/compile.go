package cmd

import (
	"fmt"
	"os"

	"github.com/lua53go/engine/internal/fixture"
	"github.com/lua53go/engine/internal/loader"
	"github.com/lua53go/engine/internal/translate"
	"github.com/spf13/cobra"
)

var (
	compileSegmentLimit int
	compileVerbose      bool
)

var compileCmd = &cobra.Command{
	Use:   "compile [fixture]",
	Short: "Translate a resolved-AST fixture to IR and load it",
	Long: `Compile reads a resolved-AST fixture (JSON, internal/fixture's wire
format — there is no lexer/parser in this engine), runs it through the IR
translator and the module loader's analysis/transform/slot pipeline, and
reports success or the first translation/loading error.

Examples:
  # Compile a fixture, reporting only success or failure
  luavm compile program.json

  # Compile with a per-function IR node-count segment limit
  luavm compile program.json --segment-limit 4096`,
	Args: cobra.ExactArgs(1),
	RunE: compileFixture,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().IntVar(&compileSegmentLimit, "segment-limit", 0, "bound IR node count per function segment (0: unbounded)")
	compileCmd.Flags().BoolVarP(&compileVerbose, "verbose", "v", false, "verbose output")
}

func compileFixture(_ *cobra.Command, args []string) error {
	filename := args[0]

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	chunk, err := fixture.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to decode fixture %s: %w", filename, err)
	}

	if compileVerbose {
		fmt.Fprintf(os.Stderr, "Translating %s...\n", filename)
	}

	mod, err := translate.Translate(chunk)
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}

	if compileVerbose {
		fmt.Fprintf(os.Stderr, "  Functions: %d\n", mod.Len())
	}

	ld := loader.New(mod, loader.Options{SegmentLimit: compileSegmentLimit})
	if _, err := ld.Load(); err != nil {
		return fmt.Errorf("loading failed: %w", err)
	}

	fmt.Printf("Compiled %s (%d function(s))\n", filename, mod.Len())
	return nil
}
