package main

import (
	"fmt"
	"os"
)

const usageText = `nvsview browses a collated variorum edition in the terminal.

Usage:
  nvsview <command> [flags]

Commands:
  ui          run the terminal viewer
  config      print configuration (effective or defaults)
  lines       print a range of lines as plain text
  search      search the play, variants and commentary
  witnesses   list the collated editions
  version     print the build version
  help        show help

Flags:
  -h, --help   show help

Examples:
  nvsview ui --play wt
  nvsview config --scope viewer --format toml
  nvsview lines --from 1 --to 40
  nvsview search --type phrase "a crown"
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	wiring := defaultCommandWiring(os.Stdout, os.Stderr)
	commands := buildCommands(wiring)

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	}

	runner, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	exitOnErr(args[0], runner.Run(args[1:]), wiring.stderr)
}
