package nightjar

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nightjar-lang/nightjar/internal/builtin"
	"github.com/nightjar-lang/nightjar/internal/compiler"
	"github.com/nightjar-lang/nightjar/internal/logging"
	"github.com/nightjar-lang/nightjar/internal/vm"
)

func newRunCommand() *cobra.Command {
	var (
		debug     int
		stepLimit uint64
		memo      bool
	)

	cmd := &cobra.Command{
		Use:   "run FILE [INPUT...]",
		Short: "Compile FILE and run its entry parselet against INPUT(s)",
		Long: `Compile FILE and run its entry parselet against each INPUT file
(or stdin if none is given), printing the accepted value or the
diagnostics of a reject/error outcome.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := loggerFor(cmd)
			code, err := runMain(os.Stdout, os.Stderr, os.Stdin, args[0], args[1:], vm.Options{
				Debug:     debug,
				StepLimit: stepLimit,
				Memo:      memo,
			}, log)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			os.Exit(code)
			return nil
		},
	}
	addRunOptionFlags(cmd.Flags(), &debug, &stepLimit, &memo)
	return cmd
}

// runMain implements the `run` subcommand's body against explicit
// stdout/stderr/stdin streams, so a test can drive the full compile-run
// pipeline and assert on captured output without forking a subprocess.
func runMain(stdout, stderr io.Writer, stdin io.Reader, filename string, inputArgs []string, opts vm.Options, log logging.Logger) (int, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return ExitUsageError, err
	}

	compiled, err := compiler.Compile(filename, src)
	if err != nil {
		return ExitCompileError, err
	}
	log.Debug(logging.Fields{"file": filename, "parselets": compiled.Table.Len()}, "compiled grammar")

	inputs, err := expandInputs(inputArgs)
	if err != nil {
		return ExitUsageError, err
	}

	registry := builtin.NewRegistry()
	exit := ExitOK

	run := func(name string, data []byte) {
		t := vm.New(compiled.Table, compiled.Program, data, opts, registry)
		outcome := t.Run(compiled.Entry)
		if outcome.Accepted {
			fmt.Fprintf(stdout, "%s: accept %s\n", name, outcome.Value.String())
		} else {
			fmt.Fprintf(stdout, "%s: reject\n", name)
			exit = ExitParseError
		}
		for _, d := range outcome.Diagnostics {
			fmt.Fprintln(stderr, d.Error())
		}
	}

	if len(inputs) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return ExitUsageError, err
		}
		run("<stdin>", data)
		return exit, nil
	}

	for _, in := range inputs {
		data, err := os.ReadFile(in)
		if err != nil {
			return ExitUsageError, err
		}
		run(in, data)
	}
	return exit, nil
}
