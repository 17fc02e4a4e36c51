package main

import (
	"os"

	nightjar "github.com/nightjar-lang/nightjar/cmd/nightjar"
)

func main() {
	if err := nightjar.Command().Execute(); err != nil {
		os.Exit(nightjar.ExitUsageError)
	}
}
