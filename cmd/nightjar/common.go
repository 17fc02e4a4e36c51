package nightjar

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nightjar-lang/nightjar/internal/logging"
)

// addRunOptionFlags binds the vm.Options fields (debug, step-limit,
// memo) onto fs. Only the run subcommand binds them; dump and repl
// run with the default options.
func addRunOptionFlags(fs *pflag.FlagSet, debug *int, stepLimit *uint64, memo *bool) {
	fs.IntVar(debug, "debug", 0, "debug trace level (0-3)")
	fs.Uint64Var(stepLimit, "step-limit", 0, "abort after this many VM steps (0 = unlimited)")
	fs.BoolVar(memo, "memo", true, "enable memoization")
}

// loggerFor builds a logging.Logger from the root command's persistent
// --log-level/--log-format flags.
func loggerFor(cmd *cobra.Command) logging.Logger {
	levelFlag, _ := cmd.Flags().GetString("log-level")
	formatFlag, _ := cmd.Flags().GetString("log-format")

	level, err := logging.GetLevel(levelFlag)
	if err != nil {
		level = logging.Info
	}

	var log *logging.StandardLogger
	if formatFlag == "json" {
		log = logging.New()
	} else {
		log = logging.NewText(os.Stderr)
	}
	log.SetLevel(level)
	return log
}

// expandInputs resolves a list of INPUT arguments into file paths,
// treating any argument containing glob metacharacters as a
// gobwas/glob pattern matched against its parent directory's entries,
// and any plain path as itself — so multi-file input works without the
// shell having expanded the pattern.
func expandInputs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			out = append(out, arg)
			continue
		}
		dir := filepath.Dir(arg)
		pattern := filepath.Base(arg)
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if g.Match(e.Name()) {
				out = append(out, filepath.Join(dir, e.Name()))
			}
		}
	}
	return out, nil
}
