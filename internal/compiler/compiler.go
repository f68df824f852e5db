// Package compiler wires the front-end pipeline: tokens through the
// parser into a checked AST plus reports.
package compiler

import (
	"github.com/ChAoSUnItY/Yakou/internal/ast"
	"github.com/ChAoSUnItY/Yakou/internal/checker"
	"github.com/ChAoSUnItY/Yakou/internal/diagnostic"
	"github.com/ChAoSUnItY/Yakou/internal/parser"
	"github.com/ChAoSUnItY/Yakou/internal/types"
)

// Result holds the output of a front-end run: the (possibly partially)
// annotated AST and every report produced along the way: parser reports
// first, then checker reports, each in the order it was produced.
type Result struct {
	File        *ast.File
	Diagnostics *diagnostic.Diagnostics
}

// Run parses and checks one compilation unit. Parse and check reports
// are merged in order; checking runs only when the parse produced no
// structural errors. Known external classes may be provided to seed
// the checker's global type registry.
func Run(path, source string, known ...*types.Class) *Result {
	p := parser.New(path, source)
	file := p.Parse()
	diags := p.Diagnostics()

	if diags.HasErrors() {
		return &Result{File: file, Diagnostics: diags}
	}

	c := checker.New(file)
	for _, class := range known {
		c.AddClass(class)
	}
	diags.Merge(c.Check())

	return &Result{File: file, Diagnostics: diags}
}

// Check runs parse + check and returns the reports only.
func Check(path, source string) *diagnostic.Diagnostics {
	return Run(path, source).Diagnostics
}

// Parse runs the parser alone.
func Parse(path, source string) (*ast.File, *diagnostic.Diagnostics) {
	p := parser.New(path, source)
	file := p.Parse()
	return file, p.Diagnostics()
}
