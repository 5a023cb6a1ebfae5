package diag

import (
	"errors"
	"strings"
	"testing"
)

func TestDiagnosticErrorFormatting(t *testing.T) {
	d := NewAt(LoweringError, "fib", Span{File: "fib.cm", Line: 3, Column: 7}, "unresolved identifier `n`")
	got := d.Error()
	if !strings.HasPrefix(got, "fib.cm:3:7: lowering error: ") {
		t.Errorf("unexpected format: %s", got)
	}
}

func TestDiagnosticWithoutSpanUsesFunction(t *testing.T) {
	d := New(PassError, "fib", "phi mismatch")
	got := d.Error()
	if !strings.HasPrefix(got, "fib: internal compiler error (pass): ") {
		t.Errorf("unexpected format: %s", got)
	}
}

func TestWrapNilIsNil(t *testing.T) {
	if Wrap(CodegenError, "f", nil) != nil {
		t.Error("expected nil")
	}
}

func TestWrapDoesNotDoubleWrap(t *testing.T) {
	inner := New(AbiError, "f", "bad")
	wrapped := Wrap(CodegenError, "g", inner)
	if wrapped != error(inner) {
		t.Error("expected the same diagnostic to pass through unchanged")
	}
}

func TestWrapUnwrap(t *testing.T) {
	base := errors.New("boom")
	wrapped := Wrap(CodegenError, "f", base)
	var d *Diagnostic
	if !errors.As(wrapped, &d) {
		t.Fatal("expected errors.As to find the Diagnostic")
	}
	if !errors.Is(wrapped, base) {
		t.Error("expected errors.Is to find the wrapped base error")
	}
}

func TestSinkCollectsWithoutAborting(t *testing.T) {
	var s Sink
	if s.HasErrors() {
		t.Fatal("fresh sink should have no errors")
	}
	s.Fatal(New(LoweringError, "f", "bad thing one"))
	s.Fatal(New(LoweringError, "f", "bad thing two"))
	if !s.HasErrors() {
		t.Fatal("expected HasErrors after Fatal")
	}
	if len(s.Diagnostics()) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(s.Diagnostics()))
	}
	if !strings.Contains(s.Error(), "bad thing one") || !strings.Contains(s.Error(), "bad thing two") {
		t.Errorf("expected joined error text, got %q", s.Error())
	}
}
