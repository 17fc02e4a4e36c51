package nightjar

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nightjar-lang/nightjar/internal/compiler"
)

func newBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build FILE",
		Short: "Compile FILE and print its bytecode disassembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := buildMain(args[0])
			os.Exit(code)
			return nil
		},
	}
	return cmd
}

func buildMain(filename string) int {
	src, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitUsageError
	}

	compiled, err := compiler.Compile(filename, src)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitCompileError
	}

	for _, p := range compiled.Table.All() {
		marker := " "
		if p == compiled.Entry {
			marker = "*"
		}
		fmt.Printf("%s parselet %d: %s (consumes=%v leftRecursive=%v locals=%d)\n",
			marker, p.Index, p.Name, p.Consumes, p.LeftRecursive, p.Locals)
	}
	fmt.Println()
	fmt.Print(compiled.Program.String())
	return ExitOK
}
