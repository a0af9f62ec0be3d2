// Command subcc is the driver of spec.md §6: it opens the input file,
// selects a backend, runs the pipeline lexer -> parser -> code generator,
// and writes target assembly to the output file.
//
// Grounded on the teacher's three cmd/* mains (cmd/hack_assembler,
// cmd/vm_translator, cmd/jack_compiler): a cli.New(...).WithArg(...).
// WithOption(...).WithAction(Handler) declaration, a Handler(args []string,
// options map[string]string) int doing the actual work, and a one-line
// main() that hands os.Args to cli.Run and os.Exit's its result. Unlike the
// teacher's Handler (which returns -1 on error, truncated by the OS to exit
// status 255), this driver returns 1 on error to match spec.md §6's
// explicit "exit status 0 on success, 1 on any ... error" contract.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/teris-io/cli"

	"subcc.dev/subcc/pkg/codegen"
	"subcc.dev/subcc/pkg/codegen/aarch64"
	"subcc.dev/subcc/pkg/codegen/nasm"
	"subcc.dev/subcc/pkg/lexer"
	"subcc.dev/subcc/pkg/parser"
	"subcc.dev/subcc/pkg/symtab"
)

// defaultOutput is the "fixed name" spec.md §6 requires when --output is
// not given.
const defaultOutput = "a.out.s"

var description = strings.ReplaceAll(`
subcc compiles a small C-like subset language directly to target assembly
(NASM x86-64 or AArch64 GNU-as), ready to be assembled and linked against a
runtime providing printint, printchar, printstring and _start.
`, "\n", " ")

var SubCC = cli.New(description).
	WithArg(cli.NewArg("input", "The source file to be compiled")).
	WithOption(cli.NewOption("output", "The compiled assembly output file").WithChar('o').WithType(cli.TypeString)).
	WithOption(cli.NewOption("target", "Target backend: nasm or aarch64").WithChar('t').WithType(cli.TypeString)).
	WithOption(cli.NewOption("dump-ast", "Print each function's AST to stderr before code generation").WithChar('a').WithType(cli.TypeBool)).
	WithOption(cli.NewOption("dump-ast-compacted", "Print each function's AST in compact form to stderr").WithChar('A').WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Println("ERROR: an input file is required, use --help")
		return 1
	}

	outputPath := options["output"]
	if outputPath == "" {
		outputPath = defaultOutput
	}

	target := options["target"]
	if target == "" {
		target = "nasm"
	}

	backend, err := selectBackend(target)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		return 1
	}

	input, oerr := os.Open(args[0])
	if oerr != nil {
		fmt.Printf("ERROR: unable to open input file: %s\n", oerr)
		return 1
	}
	defer input.Close()

	symbols := symtab.New()
	labels := codegen.NewLabels()

	lex := lexer.New(input)
	p, perr := parser.New(lex, symbols, labels)
	if perr != nil {
		fmt.Printf("ERROR: %s\n", perr)
		return 1
	}

	program, perr := p.Parse()
	if perr != nil {
		fmt.Printf("ERROR: %s\n", perr)
		return 1
	}

	output, oerr := os.Create(outputPath)
	if oerr != nil {
		fmt.Printf("ERROR: unable to open output file: %s\n", oerr)
		return 1
	}
	defer output.Close()

	gen := codegen.New(backend, symbols)
	gen.Labels = labels

	backend.Preamble(output)

	for _, idx := range program.Globals {
		entry := symbols.Get(idx)
		count := 1
		if entry.StructuralType == symtab.Array {
			count = entry.Size
		}
		backend.GlobalSymbol(output, entry.Name, entry.PrimitiveType, count)
	}
	for _, s := range program.Strings {
		backend.GlobalString(output, s.Label, s.Value)
	}

	_, dumpAST := options["dump-ast"]
	_, dumpCompact := options["dump-ast-compacted"]

	for _, fn := range program.Functions {
		if dumpAST {
			var sb strings.Builder
			fn.Body.Dump(&sb)
			fmt.Fprint(os.Stderr, sb.String())
		}
		if dumpCompact {
			fmt.Fprintln(os.Stderr, fn.Body.DumpCompact())
		}
		if gerr := gen.GenerateFunction(output, fn.Index, fn.Body, fn.LocalsBytes); gerr != nil {
			fmt.Printf("ERROR: %s\n", gerr)
			return 1
		}
	}

	backend.Postamble(output)
	return 0
}

func selectBackend(target string) (codegen.Backend, error) {
	switch target {
	case "nasm":
		return nasm.New(), nil
	case "aarch64":
		return aarch64.New(), nil
	default:
		return nil, fmt.Errorf("unknown target %q: expected nasm or aarch64", target)
	}
}

func main() { os.Exit(SubCC.Run(os.Args, os.Stdout)) }
