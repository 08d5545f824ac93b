// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Command phpc is a compile/inspect tool: it tokenizes, parses, and
// disassembles source, but never executes it (the excluded "thin CLI
// driver that maps files to execution" is explicitly out of scope; phpc
// stops at the bytecode stage). Grounded on probe-lang/cmd/probec's
// -emit-stage shape, rebuilt on gopkg.in/urfave/cli.v1.
package main

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/peterh/liner"
	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/gophp/compiler"
	"github.com/probechain/gophp/lang/lexer"
	"github.com/probechain/gophp/lang/parser"
	"github.com/probechain/gophp/lang/token"
	"github.com/probechain/gophp/vm"
)

const version = "0.1.0"

var stdout = colorable.NewColorableStdout()

func main() {
	app := cli.NewApp()
	app.Name = "phpc"
	app.Usage = "compile and inspect gophp source without executing it"
	app.Version = version
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "emit", Value: "bytecode", Usage: "tokens, ast, bytecode, or state"},
		cli.StringFlag{Name: "o", Usage: "output file (default: stdout)"},
	}
	app.Action = compileAction
	app.Commands = []cli.Command{
		{
			Name:   "repl",
			Usage:  "interactively parse one line at a time and print its AST (no execution)",
			Action: replAction,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func compileAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return cli.NewExitError("usage: phpc [--emit stage] <source.php>", 1)
	}
	filename := ctx.Args().Get(0)
	source, err := os.ReadFile(filename)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	out := os.Stdout
	if o := ctx.String("o"); o != "" {
		f, err := os.Create(o)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		defer f.Close()
		out = f
	}

	switch ctx.String("emit") {
	case "tokens":
		emitTokens(out, filename, string(source))
	case "ast":
		emitAST(out, filename, string(source))
	case "bytecode":
		return emitBytecode(out, filename, source)
	case "state":
		fmt.Fprintln(out, spew.Sdump(string(source)))
	default:
		return cli.NewExitError(fmt.Sprintf("unknown emit stage: %s", ctx.String("emit")), 1)
	}
	return nil
}

func emitTokens(out *os.File, filename, source string) {
	l := lexer.New(filename, source)
	for {
		tok := l.NextToken()
		fmt.Fprintf(out, "%s\t%s\t%q\n", tok.Pos, tok.Type, tok.Literal)
		if tok.Type == token.EOF {
			break
		}
	}
}

func emitAST(out *os.File, filename, source string) {
	prog, errs := parser.Parse(filename, source)
	for _, e := range errs {
		fmt.Fprintln(os.Stderr, e.Error())
	}
	fmt.Fprintln(out, prog.String())
}

func emitBytecode(out *os.File, filename string, source []byte) error {
	prog, perrs := parser.Parse(filename, string(source))
	for _, e := range perrs {
		fmt.Fprintln(os.Stderr, e.Error())
	}
	if len(perrs) > 0 {
		return cli.NewExitError("parse failed", 1)
	}
	unit, cerrs := compiler.Compile(prog)
	for _, e := range cerrs {
		fmt.Fprintln(os.Stderr, e.Error())
	}
	if len(cerrs) > 0 {
		return cli.NewExitError("compile failed", 1)
	}

	dumpChunk(out, "{main}", unit.Main)
	for name, fn := range unit.Functions {
		dumpChunk(out, name, fn)
	}
	for cname, info := range unit.Classes {
		for mname, chunk := range info.Methods {
			dumpChunk(out, cname+"::"+mname, chunk)
		}
	}
	return nil
}

func dumpChunk(out *os.File, name string, chunk *vm.CodeChunk) {
	fmt.Fprintf(out, "; %s\n", name)
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"PC", "Line", "Op", "Operands"})
	for _, ins := range vm.Disassemble(chunk) {
		operands := fmt.Sprint(ins.Operands)
		table.Append([]string{fmt.Sprint(ins.PC), fmt.Sprint(ins.Line), ins.Op.String(), operands})
	}
	table.Render()
	fmt.Fprintln(out)
}

func replAction(ctx *cli.Context) error {
	colorize := isatty.IsTerminal(os.Stdout.Fd())
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt("phpc> ")
		if err != nil {
			break
		}
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		emitAST(os.Stdout, "repl", input)
		if colorize {
			fmt.Fprintln(stdout, "")
		}
	}
	return nil
}
