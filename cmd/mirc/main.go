// Command mirc is a thin demo driver over the pipeline: it lowers a
// fixed set of fixture functions (fixture.go) to MIR, runs the
// optimization/destruction pipeline, generates CASM, and prints the
// result. It exists only to give the ambient stack — configuration,
// logging, the CASM dump format — a caller; a real front end (lexer,
// parser, name resolution, type inference) is out of scope.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cairo-m/mirc/internal/builder"
	"github.com/cairo-m/mirc/internal/casm"
	"github.com/cairo-m/mirc/internal/codegen"
	"github.com/cairo-m/mirc/internal/config"
	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mir"
	"github.com/cairo-m/mirc/internal/passes"
)

func main() {
	logger := diag.NewLogger(os.Stderr, "mirc: ")

	cfg, err := config.Load()
	if err != nil {
		logger.Printf("loading config: %v", err)
		os.Exit(1)
	}
	cfg, err = config.LoadFromEnv(cfg)
	if err != nil {
		logger.Printf("applying env overrides: %v", err)
		os.Exit(1)
	}

	astMod, index := BuildDemoModule()

	result := builder.Lower(astMod, index)
	if result.HasErrors() {
		for fn, ds := range result.Diagnostics {
			for _, d := range ds {
				logger.Printf("%s: %v", fn, d)
			}
		}
		os.Exit(1)
	}

	failed := false
	for _, name := range result.Module.FunctionOrder() {
		f := result.Module.Functions[name]
		for _, d := range passes.Run(f, cfg) {
			logger.Printf("%s: %v", name, d)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}

	if cfg.Pipeline.DebugMIR {
		fmt.Print(mir.PrintModule(result.Module))
	}

	prog, abi, ds := codegen.Generate(result.Module, cfg)
	for _, d := range ds {
		logger.Printf("codegen: %v", d)
		failed = true
	}
	if failed {
		os.Exit(1)
	}

	dumpProgram(os.Stdout, prog)

	abiJSON, err := abi.MarshalDeterministic()
	if err != nil {
		logger.Printf("marshaling abi: %v", err)
		os.Exit(1)
	}
	fmt.Println(string(abiJSON))
}

// dumpProgram prints one line per CASM entry: an instruction in assembly
// form, or a rodata word, each prefixed with its address.
func dumpProgram(w io.Writer, prog *casm.ProgramData) {
	for addr, e := range prog.Entries {
		switch e.Kind {
		case casm.EntryInstruction:
			if e.Instr.Label != "" {
				fmt.Fprintf(w, "%4d %s:\n", addr, e.Instr.Label)
			}
			fmt.Fprintf(w, "%4d:   %s\n", addr, e.Instr.String())
		case casm.EntryValue:
			fmt.Fprintf(w, "%4d:   .word %d\n", addr, e.Value)
		}
	}
}
