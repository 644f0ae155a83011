package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "luavm",
	Short: "Lua 5.3 compile pipeline and suspendable runtime",
	Long: `luavm drives the Lua 5.3 compile pipeline (IR translation, analysis,
transforms, slot allocation, and code emission) and the suspendable call
executor built on top of it.

It takes a resolved-AST fixture as input (the lexer/parser is out of scope
for this engine) and can compile it to IR, disassemble the IR, or run it to
completion against the runtime's invoke/resume state machine.`,
	Version: Version,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
}

func exitWithError(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}
