// Package nightjar assembles the cobra command tree for the nightjar
// CLI: one constructor per subcommand, wired together by the Command()
// constructor the main package calls.
package nightjar

import (
	"github.com/spf13/cobra"
)

// Exit codes: 0 success, 1 parse error (reject/error outcome), 2
// compile error, 3 usage error.
const (
	ExitOK           = 0
	ExitParseError   = 1
	ExitCompileError = 2
	ExitUsageError   = 3
)

// Command returns the root "nightjar" cobra command with every
// subcommand registered.
func Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "nightjar",
		Short: "Compile and run nightjar parselet grammars",
		Long:  "nightjar compiles parselet-VM grammars and runs them against input text.",
	}
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "text", "log format: text, json")

	root.AddCommand(newRunCommand())
	root.AddCommand(newBuildCommand())
	root.AddCommand(newReplCommand())
	root.AddCommand(newDumpCommand())
	root.AddCommand(newVersionCommand())
	return root
}
