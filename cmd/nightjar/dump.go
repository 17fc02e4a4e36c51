package nightjar

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nightjar-lang/nightjar/internal/builtin"
	"github.com/nightjar-lang/nightjar/internal/compiler"
	"github.com/nightjar-lang/nightjar/internal/value"
	"github.com/nightjar-lang/nightjar/internal/vm"
)

func newDumpCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "dump FILE INPUT",
		Short: "Run FILE's entry parselet against INPUT and dump the accepted value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := dumpMain(args[0], args[1], format)
			os.Exit(code)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	return cmd
}

func dumpMain(filename, inputPath, format string) int {
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
	data, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitUsageError
	}

	registry := builtin.NewRegistry()
	t := vm.New(compiled.Table, compiled.Program, data, vm.Options{}, registry)
	outcome := t.Run(compiled.Entry)
	if !outcome.Accepted {
		for _, d := range outcome.Diagnostics {
			fmt.Fprintln(os.Stderr, d.Error())
		}
		return ExitParseError
	}

	native := value.ToNative(outcome.Value)
	switch format {
	case "yaml":
		out, err := yaml.Marshal(native)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return ExitUsageError
		}
		os.Stdout.Write(out)
	default:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(native); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return ExitUsageError
		}
	}
	return ExitOK
}
