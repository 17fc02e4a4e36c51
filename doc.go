/*
Command nightjar compiles and runs parselet grammars: PEG-flavored
grammars whose rules (parselets) carry typed parameters, generics,
captures and an imperative value language, compiled to bytecode and
executed by a stack-based VM with memoization and left-recursion
support.

Command-line usage

	nightjar run FILE [INPUT...]
	nightjar build FILE
	nightjar repl FILE
	nightjar dump FILE INPUT [--format=json|yaml]
	nightjar version

run compiles FILE and executes its entry parselet against each INPUT
(or stdin if none is given), printing the accepted value or the
diagnostics of a reject/error outcome.

build compiles FILE and prints a disassembly of the generated
bytecode, one line per parselet followed by the full instruction
listing.

repl starts an interactive liner-backed shell against FILE's compiled
grammar, evaluating each line (or buffered multi-line block) as input
to the entry parselet.

dump runs FILE's entry parselet against INPUT and prints the accepted
value as indented JSON or as YAML.

Exit codes follow a fixed convention: 0 on success, 1 when the entry
parselet rejects its input, 2 on a grammar compile error, and 3 on a
usage error (bad flags, unreadable files).
*/
package main
