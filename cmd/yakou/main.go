package main

import (
	"fmt"
	"os"

	"github.com/ChAoSUnItY/Yakou/internal/ast"
	"github.com/ChAoSUnItY/Yakou/internal/compiler"
)

const usage = `yakou - The Yakou language front-end

Usage:
  yakou check <file.yk>    Parse and type-check a source file
  yakou ast <file.yk>      Parse a source file and dump the AST as JSON

The exit code is zero iff no error report is produced.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "check":
		handleCheck(os.Args[2:])
	case "ast":
		handleAST(os.Args[2:])
	case "help", "--help", "-h":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func readSource(args []string) (string, string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no input file specified")
		os.Exit(1)
	}
	filePath := args[0]
	source, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %s\n", err)
		os.Exit(1)
	}
	return filePath, string(source)
}

func handleCheck(args []string) {
	filePath, source := readSource(args)

	res := compiler.Run(filePath, source)
	if out := res.Diagnostics.Format(filePath); out != "" {
		fmt.Fprintln(os.Stderr, out)
	}
	if res.Diagnostics.HasErrors() {
		os.Exit(1)
	}
	fmt.Printf("%d warning(s), no errors.\n", res.Diagnostics.WarningCount())
}

func handleAST(args []string) {
	filePath, source := readSource(args)

	file, diags := compiler.Parse(filePath, source)
	if out := diags.Format(filePath); out != "" {
		fmt.Fprintln(os.Stderr, out)
	}
	if err := ast.FprintJSON(os.Stdout, file); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing AST: %s\n", err)
		os.Exit(1)
	}
	if diags.HasErrors() {
		os.Exit(1)
	}
}
