// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mkint_test

import (
	"testing"

	"github.com/ganler/mkint-go/analysis/mkint"
	"github.com/ganler/mkint-go/ir"
)

func hasKind(ds []mkint.Diagnostic, k mkint.ErrKind) bool {
	for _, d := range ds {
		if d.Kind == k {
			return true
		}
	}
	return false
}

// TestOverflow builds add8(x, y uint8) called once with constants 200 and
// 100: since add8 has a caller in this module, its params start at Empty and
// are narrowed by call-argument propagation (stepCall) to the constants'
// exact ranges, rather than to Full — this is the shape the Overflow check
// actually requires (it only fires when both operand ranges are concrete,
// not Full), so the test exercises real interprocedural narrowing instead of
// the entry-point Full default.
func TestOverflow(t *testing.T) {
	b := ir.NewModule("m")
	add8, fb := b.NewFunc("add8", []uint32{8, 8}, 8)
	bb := fb.NewBlock("entry")
	sum := bb.Binary(ir.Add, 8, add8.Params[0], add8.Params[1])
	bb.Ret(sum)
	fb.Finish()

	_, callerFB := b.NewFunc("caller", nil, 8)
	cbb := callerFB.NewBlock("entry")
	cbb.Ret(cbb.Call(add8, &ir.ConstInt{Bits: 8, Val: 200}, &ir.ConstInt{Bits: 8, Val: 100}))
	callerFB.Finish()

	r := mkint.Run(b.Mod, nil)
	if !hasKind(r.Diagnostics, mkint.Overflow) {
		t.Errorf("expected an OVERFLOW diagnostic for add8(200, 100), got %+v", r.Diagnostics)
	}
}

// TestNoOverflowWhenNarrowed builds a function whose two operands are each
// constant-folded to a small value, so their sum provably fits in the result
// width and must not be flagged.
func TestNoOverflowWhenNarrowed(t *testing.T) {
	b := ir.NewModule("m")
	_, fb := b.NewFunc("add8small", nil, 8)
	bb := fb.NewBlock("entry")
	sum := bb.Binary(ir.Add, 8, &ir.ConstInt{Bits: 8, Val: 1}, &ir.ConstInt{Bits: 8, Val: 2})
	bb.Ret(sum)
	fb.Finish()

	r := mkint.Run(b.Mod, nil)
	if hasKind(r.Diagnostics, mkint.Overflow) {
		t.Errorf("constant 1+2 must never be flagged as overflow, got %+v", r.Diagnostics)
	}
}

// TestDivByZero builds divide(x, y uint32) = x / y, with y left unconstrained
// (Full), so 0 is a possible divisor.
func TestDivByZero(t *testing.T) {
	b := ir.NewModule("m")
	f, fb := b.NewFunc("divide", []uint32{32, 32}, 32)
	bb := fb.NewBlock("entry")
	q := bb.Binary(ir.UDiv, 32, f.Params[0], f.Params[1])
	bb.Ret(q)
	fb.Finish()

	r := mkint.Run(b.Mod, nil)
	if !hasKind(r.Diagnostics, mkint.DivByZero) {
		t.Errorf("expected a DIV_BY_ZERO diagnostic, got %+v", r.Diagnostics)
	}
}

// TestBadShift builds shift(x uint32, n uint32) = x << n, with n unconstrained,
// so it may reach or exceed the 32-bit operand width.
func TestBadShift(t *testing.T) {
	b := ir.NewModule("m")
	f, fb := b.NewFunc("shift", []uint32{32, 32}, 32)
	bb := fb.NewBlock("entry")
	s := bb.Binary(ir.Shl, 32, f.Params[0], f.Params[1])
	bb.Ret(s)
	fb.Finish()

	r := mkint.Run(b.Mod, nil)
	if !hasKind(r.Diagnostics, mkint.BadShift) {
		t.Errorf("expected a BAD_SHIFT diagnostic, got %+v", r.Diagnostics)
	}
}

// TestArrayOOB indexes a 4-element global array with an unconstrained u32
// parameter, which may run past the end of the array.
func TestArrayOOB(t *testing.T) {
	b := ir.NewModule("m")
	g := b.NewGlobalArray("buf", 32, 4, false, nil)
	f, fb := b.NewFunc("at", []uint32{32}, 32)
	bb := fb.NewBlock("entry")
	addr := bb.Gep(g, f.Params[0])
	v := bb.Load(32, addr)
	bb.Ret(v)
	fb.Finish()

	r := mkint.Run(b.Mod, nil)
	if !hasKind(r.Diagnostics, mkint.ArrayOOB) {
		t.Errorf("expected an ARRAY_OOB diagnostic, got %+v", r.Diagnostics)
	}
}

// TestDeadBranch builds a branch on a constant-true comparison, which the
// range analyzer must narrow to a singleton and the diagnostics pass must
// report as a dead false-branch.
func TestDeadBranch(t *testing.T) {
	b := ir.NewModule("m")
	_, fb := b.NewFunc("alwaysTrue", nil, 32)
	entry := fb.NewBlock("entry")
	thenBB := fb.NewBlock("then")
	elseBB := fb.NewBlock("else")

	cmp := entry.ICmp(ir.ICmpEQ, &ir.ConstInt{Bits: 32, Val: 1}, &ir.ConstInt{Bits: 32, Val: 1})
	entry.Br(cmp, thenBB.Block(), elseBB.Block())
	thenBB.Ret(&ir.ConstInt{Bits: 32, Val: 1})
	elseBB.Ret(&ir.ConstInt{Bits: 32, Val: 0})
	fb.Finish()

	r := mkint.Run(b.Mod, nil)
	if !hasKind(r.Diagnostics, mkint.DeadFalseBranch) {
		t.Errorf("expected a DEAD_FALSE_BR diagnostic for the always-true condition, got %+v", r.Diagnostics)
	}
}

// TestNestedBranchRefinement builds `if x<0 { if x>=0 { ret 1 } ret 2 } ret 3`
// with x used directly in the inner compare, not through a Phi. Entering the
// outer then-block narrows x to the signed-negative half of its range; the
// inner compare x>=0 can never be true there, so it must be flagged dead
// even though nothing merges x through a Phi anywhere in the function.
func TestNestedBranchRefinement(t *testing.T) {
	b := ir.NewModule("m")
	f, fb := b.NewFunc("nested", []uint32{32}, 32)
	entry := fb.NewBlock("entry")
	outerThen := fb.NewBlock("outer_then")
	outerDone := fb.NewBlock("outer_done")
	innerThen := fb.NewBlock("inner_then")
	innerDone := fb.NewBlock("inner_done")

	outerCmp := entry.ICmp(ir.ICmpSLT, f.Params[0], &ir.ConstInt{Bits: 32, Val: 0})
	entry.Br(outerCmp, outerThen.Block(), outerDone.Block())

	innerCmp := outerThen.ICmp(ir.ICmpSGE, f.Params[0], &ir.ConstInt{Bits: 32, Val: 0})
	outerThen.Br(innerCmp, innerThen.Block(), innerDone.Block())

	innerThen.Ret(&ir.ConstInt{Bits: 32, Val: 1})
	innerDone.Ret(&ir.ConstInt{Bits: 32, Val: 2})
	outerDone.Ret(&ir.ConstInt{Bits: 32, Val: 3})
	fb.Finish()

	r := mkint.Run(b.Mod, nil)
	if !hasKind(r.Diagnostics, mkint.DeadTrueBranch) {
		t.Errorf("expected the inner x>=0 compare (always false once x<0 is entered) to be flagged dead, got %+v", r.Diagnostics)
	}
}

// TestSourceWithNoSinkNotTainted builds a bodied source function (sys_foo)
// in a module with no sink function anywhere, and checks that nothing is
// marked tainted: spec.md §8 requires every tainted instruction to have a
// forward path to a SINK-annotated call, and no such call exists here.
func TestSourceWithNoSinkNotTainted(t *testing.T) {
	b := ir.NewModule("m")
	f, fb := b.NewFunc("sys_foo", []uint32{64}, 64)
	bb := fb.NewBlock("entry")
	one := bb.Binary(ir.Add, 64, f.Params[0], &ir.ConstInt{Bits: 64, Val: 1})
	bb.Ret(one)
	fb.Finish()

	r := mkint.Run(b.Mod, nil)
	if len(r.State.Tainted) != 0 {
		t.Errorf("expected no tainted values with no reachable sink, got %+v", r.State.Tainted)
	}
	if len(r.SinkFindings) != 0 {
		t.Errorf("expected no sink findings with no reachable sink, got %+v", r.SinkFindings)
	}
}

// TestUnusedSourceParamNotRewritten builds sys_bar(x, y uint64) where y is
// never used, and checks that no synthetic `.mkint.arg1` stub function is
// created for it: spec.md §4.3 rewrites only an argument that has at least
// one use.
func TestUnusedSourceParamNotRewritten(t *testing.T) {
	b := ir.NewModule("m")
	sink := b.Declare("xmalloc", []uint32{64}, 64)
	f, fb := b.NewFunc("sys_bar", []uint32{64, 64}, 64)
	bb := fb.NewBlock("entry")
	n := bb.Call(sink, f.Params[0])
	bb.Ret(n)
	fb.Finish()

	r := mkint.Run(b.Mod, nil)
	if r.State == nil {
		t.Fatal("expected a non-nil State")
	}
	if found := b.Mod.FuncByName("sys_bar.mkint.arg1"); found != nil {
		t.Errorf("expected no synthetic stub for the unused parameter y, found %+v", found)
	}
	if b.Mod.FuncByName("sys_bar.mkint.arg0") == nil {
		t.Errorf("expected a synthetic stub for the used parameter x")
	}
}

// TestTaintToSink wires a declaration-only source (sys_get_size) and sink
// (xmalloc) through a bodied caller, mirroring frontend's equivalent
// integration test but exercised directly through the ir.Builder API.
func TestTaintToSink(t *testing.T) {
	b := ir.NewModule("m")
	src := b.Declare("sys_get_size", nil, 64)
	sink := b.Declare("xmalloc", []uint32{64}, 64)

	_, fb := b.NewFunc("handle", nil, 64)
	bb := fb.NewBlock("entry")
	n := bb.Call(src)
	_ = bb.Call(sink, n)
	bb.Ret(n)
	fb.Finish()

	r := mkint.Run(b.Mod, nil)
	if len(r.SinkFindings) == 0 {
		t.Fatalf("expected a tainted-value-reaches-sink finding, got none; diagnostics=%+v", r.Diagnostics)
	}
	if r.SinkFindings[0].Label != "sys_get_size" {
		t.Errorf("expected the sink finding's label to name the source, got %q", r.SinkFindings[0].Label)
	}
}

// TestSinkByName exercises State.SinkByName's Optional-returning lookup
// against both a recognized and an unrecognized name.
func TestSinkByName(t *testing.T) {
	b := ir.NewModule("m")
	b.Declare("xmalloc", []uint32{64}, 64)
	b.Declare("notasink", []uint32{64}, 64)

	r := mkint.Run(b.Mod, nil)
	if found := r.State.SinkByName(b.Mod, "xmalloc"); !found.IsSome() {
		t.Errorf("expected xmalloc to be recognized as a sink")
	}
	if found := r.State.SinkByName(b.Mod, "notasink"); found.IsSome() {
		t.Errorf("notasink must not be recognized as a sink")
	}
}

// TestReportRendersFindings checks that Report produces at least one line
// per diagnostic and sink finding, without asserting exact formatting.
func TestReportRendersFindings(t *testing.T) {
	b := ir.NewModule("m")
	f, fb := b.NewFunc("divide", []uint32{32, 32}, 32)
	bb := fb.NewBlock("entry")
	bb.Ret(bb.Binary(ir.UDiv, 32, f.Params[0], f.Params[1]))
	fb.Finish()

	r := mkint.Run(b.Mod, nil)
	out := r.Report(false)
	if out == "" {
		t.Errorf("expected non-empty report for a module with diagnostics")
	}
}
