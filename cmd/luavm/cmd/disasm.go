package cmd

import (
	"fmt"
	"os"

	"github.com/lua53go/engine/internal/fixture"
	"github.com/lua53go/engine/internal/ir"
	"github.com/lua53go/engine/internal/runtime"
	"github.com/lua53go/engine/internal/translate"
	"github.com/spf13/cobra"
)

var (
	disasmOutputFile string
	disasmSavedState string
)

var disasmCmd = &cobra.Command{
	Use:   "disasm [fixture]",
	Short: "Translate a resolved-AST fixture and print its IR",
	Long: `Disasm reads a resolved-AST fixture, translates it to IR, and prints
every function's basic blocks using internal/ir's Printer — the IR as the
translator produced it, before the loader's analysis and transform passes
touch it.

With --saved-state, it instead reads a saved-state document (the JSON
runtime.EncodeRegisters produces for a paused call) and pretty-prints its
resumption point and registers; [fixture] is ignored in that mode.

Examples:
  # Print IR to stdout
  luavm disasm program.json

  # Write IR to a file instead
  luavm disasm program.json -o program.ir

  # Pretty-print a saved continuation's registers
  luavm disasm --saved-state paused.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: disasmFixture,
}

func init() {
	rootCmd.AddCommand(disasmCmd)

	disasmCmd.Flags().StringVarP(&disasmOutputFile, "output", "o", "", "output file (default: stdout)")
	disasmCmd.Flags().StringVar(&disasmSavedState, "saved-state", "", "pretty-print a saved-state document instead of disassembling a fixture")
}

func disasmFixture(_ *cobra.Command, args []string) error {
	if disasmSavedState != "" {
		return disasmSavedStateDoc(disasmSavedState)
	}
	if len(args) != 1 {
		return fmt.Errorf("disasm requires a fixture argument unless --saved-state is given")
	}

	filename := args[0]

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	chunk, err := fixture.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to decode fixture %s: %w", filename, err)
	}

	mod, err := translate.Translate(chunk)
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}

	out := os.Stdout
	if disasmOutputFile != "" {
		f, err := os.Create(disasmOutputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file %s: %w", disasmOutputFile, err)
		}
		defer f.Close()
		out = f
	}

	ir.NewPrinter(out).PrintModule(mod)
	return nil
}

func disasmSavedStateDoc(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	dump, err := runtime.DumpSavedState(string(data))
	if err != nil {
		return fmt.Errorf("failed to decode saved-state document %s: %w", filename, err)
	}

	fmt.Print(dump)
	return nil
}
