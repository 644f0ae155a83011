// Command luavm drives the compile pipeline and suspendable runtime from the
// command line: compile a resolved-AST fixture to IR, disassemble it, or run
// it against the call executor.
package main

import (
	"os"

	"github.com/lua53go/engine/cmd/luavm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
