package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairo-m/mirc/internal/builder"
	"github.com/cairo-m/mirc/internal/codegen"
	"github.com/cairo-m/mirc/internal/config"
	"github.com/cairo-m/mirc/internal/passes"
)

// TestPipelineRunsCleanEndToEnd lowers every fixture function, runs it
// through the optimization/destruction pipeline, and generates CASM,
// asserting no diagnostic is raised at any stage. It is deliberately
// structural rather than execution-based: nothing here interprets the
// emitted CASM, since this module ships no VM to run it against.
func TestPipelineRunsCleanEndToEnd(t *testing.T) {
	astMod, index := BuildDemoModule()

	result := builder.Lower(astMod, index)
	require.False(t, result.HasErrors(), "unexpected lowering diagnostics: %v", result.Diagnostics)
	require.Len(t, result.Module.FunctionOrder(), 3)

	cfg := config.DefaultConfig()

	for _, name := range result.Module.FunctionOrder() {
		f := result.Module.Functions[name]
		diags := passes.Run(f, cfg)
		assert.Empty(t, diags, "function %s: unexpected pass diagnostics", name)
	}

	prog, abi, diags := codegen.Generate(result.Module, cfg)
	assert.Empty(t, diags, "unexpected codegen diagnostics")
	require.NotNil(t, prog)
	assert.NotEmpty(t, prog.Entries)

	require.Len(t, abi.Functions, 3)
	byName := make(map[string]int)
	for i, fn := range abi.Functions {
		byName[fn.Name] = i
	}

	fib := abi.Functions[byName["fib"]]
	require.Len(t, fib.Args, 1)
	assert.Equal(t, "n", fib.Args[0].Name)
	assert.EqualValues(t, 1, fib.Args[0].SizeSlots)
	require.Len(t, fib.Returns, 1)
	assert.EqualValues(t, 1, fib.Returns[0].SizeSlots)

	swap := abi.Functions[byName["swap"]]
	assert.Empty(t, swap.Args)
	require.Len(t, swap.Returns, 1)
	assert.EqualValues(t, 2, swap.Returns[0].SizeSlots)

	wrap := abi.Functions[byName["wrap"]]
	require.Len(t, wrap.Args, 2)
	for _, a := range wrap.Args {
		assert.EqualValues(t, 2, a.SizeSlots)
	}
}

// TestPipelineIsDeterministic runs the whole pipeline twice from scratch
// and checks the two ABI encodings match byte for byte, the property the
// frame/codegen packages rely on for reproducible builds (spec.md §4.6:
// "deterministic" serialization).
func TestPipelineIsDeterministic(t *testing.T) {
	run := func() []byte {
		astMod, index := BuildDemoModule()
		result := builder.Lower(astMod, index)
		require.False(t, result.HasErrors())

		cfg := config.DefaultConfig()
		for _, name := range result.Module.FunctionOrder() {
			passes.Run(result.Module.Functions[name], cfg)
		}
		_, abi, diags := codegen.Generate(result.Module, cfg)
		require.Empty(t, diags)

		data, err := abi.MarshalDeterministic()
		require.NoError(t, err)
		return data
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
}
