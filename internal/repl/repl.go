// Package repl implements the interactive shell `nightjar repl` drives:
// a liner-backed read-eval-print loop that compiles one grammar file
// once, then runs its entry parselet against each line of typed input.
// Leading-":" lines are shell commands (":dump", ":help", ":quit")
// rather than parse input.
package repl

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/peterh/liner"

	"github.com/nightjar-lang/nightjar/internal/builtin"
	"github.com/nightjar-lang/nightjar/internal/compiler"
	"github.com/nightjar-lang/nightjar/internal/logging"
	"github.com/nightjar-lang/nightjar/internal/parselet"
	"github.com/nightjar-lang/nightjar/internal/program"
	"github.com/nightjar-lang/nightjar/internal/vm"
)

const (
	initPrompt   = "nightjar> "
	bufferPrompt = "       .. "
	exitPrompt   = "Do you want to exit ([y]/n)? "
)

// REPL is one interactive session bound to a compiled grammar file.
type REPL struct {
	output io.Writer
	log    logging.Logger

	filename string
	table    *parselet.Table
	prog     *program.Program
	entry    *parselet.Parselet
	builtins *builtin.Registry

	sessionID   string
	historyPath string
	buffer      []string
	debug       int
}

// stop is returned by a command handler to unwind Loop cleanly.
type stop struct{}

func (stop) Error() string { return "exit" }

// New compiles filename and returns a REPL ready to run against it.
// The session id (used only in the history filename and the session
// banner) is a fresh uuid per session.
func New(filename string, src []byte, output io.Writer, log logging.Logger) (*REPL, error) {
	compiled, err := compiler.Compile(filename, src)
	if err != nil {
		return nil, err
	}
	sessionID := uuid.NewString()
	return &REPL{
		output:      output,
		log:         log,
		filename:    filename,
		table:       compiled.Table,
		prog:        compiled.Program,
		entry:       compiled.Entry,
		builtins:    builtin.NewRegistry(),
		sessionID:   sessionID,
		historyPath: historyPathFor(sessionID),
	}, nil
}

func historyPathFor(sessionID string) string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return dir + "/nightjar-repl-" + sessionID + ".history"
}

// Loop runs until the user types :quit, or presses Ctrl+D and confirms
// the exit prompt. Ctrl+C discards the pending input and keeps going.
func (r *REPL) Loop() {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(true)
	r.loadHistory(line)

	fmt.Fprintf(r.output, "nightjar repl — %s (session %s)\n", r.filename, r.sessionID)
	fmt.Fprintln(r.output, "type an expression or parselet call; :help for commands")

loop:
	for {
		input, err := line.Prompt(r.prompt())
		if err == io.EOF {
			goto exitPrompt
		}
		if err == liner.ErrPromptAborted {
			r.buffer = nil
			continue
		}
		if err != nil {
			fmt.Fprintln(r.output, "error (fatal):", err)
			os.Exit(1)
		}

		if oerr := r.OneShot(input); oerr != nil {
			if _, ok := oerr.(stop); ok {
				goto exit
			}
			fmt.Fprintln(r.output, oerr)
		}
		line.AppendHistory(input)
	}

exitPrompt:
	fmt.Fprintln(r.output)
	for {
		input, err := line.Prompt(exitPrompt)
		if err == io.EOF {
			break
		}
		if err == liner.ErrPromptAborted {
			goto loop
		}
		if err != nil {
			fmt.Fprintln(r.output, "error (fatal):", err)
			os.Exit(1)
		}
		switch strings.ToLower(input) {
		case "", "y", "yes":
			goto exit
		case "n", "no":
			goto loop
		}
	}

exit:
	r.saveHistory(line)
}

func (r *REPL) prompt() string {
	if len(r.buffer) > 0 {
		return bufferPrompt
	}
	return initPrompt
}

// OneShot evaluates one line (a leading-":" command, or input to feed
// the entry parselet) and writes its result to r.output.
func (r *REPL) OneShot(line string) error {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, ":") {
		return r.runCommand(trimmed[1:])
	}

	r.buffer = append(r.buffer, line)
	if trimmed != "" && !r.looksComplete() {
		return nil
	}
	input := strings.Join(r.buffer, "\n")
	r.buffer = nil
	return r.evalInput(input)
}

// looksComplete is a conservative multi-line heuristic: unbalanced
// brackets keep buffering so the user can finish a multi-line
// expression before it is evaluated.
func (r *REPL) looksComplete() bool {
	depth := 0
	for _, r := range strings.Join(r.buffer, "\n") {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		}
	}
	return depth <= 0
}

func (r *REPL) evalInput(input string) error {
	r.log.Debug(logging.Fields{"bytes": len(input)}, "evaluating input")

	t := vm.New(r.table, r.prog, []byte(input), vm.Options{Debug: r.debug, Memo: true}, r.builtins)
	outcome := t.Run(r.entry)

	if outcome.Accepted {
		fmt.Fprintln(r.output, outcome.Value.String())
	} else {
		fmt.Fprintln(r.output, "reject")
	}
	for _, d := range outcome.Diagnostics {
		fmt.Fprintln(r.output, d.Error())
	}
	return nil
}

func (r *REPL) runCommand(cmd string) error {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "quit", "exit":
		return stop{}
	case "help":
		fmt.Fprintln(r.output, "commands: :help, :dump, :debug <0-3>, :quit")
		return nil
	case "dump":
		fmt.Fprint(r.output, r.prog.String())
		return nil
	case "debug":
		if len(fields) != 2 {
			return fmt.Errorf(":debug requires a level 0-3")
		}
		var lvl int
		if _, err := fmt.Sscanf(fields[1], "%d", &lvl); err != nil {
			return err
		}
		r.debug = lvl
		return nil
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

func (r *REPL) loadHistory(line *liner.State) {
	if f, err := os.Open(r.historyPath); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
}

func (r *REPL) saveHistory(line *liner.State) {
	if f, err := os.Create(r.historyPath); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}
