package nightjar

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nightjar-lang/nightjar/internal/repl"
)

func newReplCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl FILE",
		Short: "Start an interactive shell against FILE's compiled grammar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := loggerFor(cmd)
			src, err := os.ReadFile(args[0])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(ExitUsageError)
			}
			session, err := repl.New(args[0], src, os.Stdout, log)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(ExitCompileError)
			}
			session.Loop()
			return nil
		},
	}
	return cmd
}
