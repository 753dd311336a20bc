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

package ir_test

import (
	"testing"

	"github.com/ganler/mkint-go/ir"
)

// straightLine builds add(x, y) = x + y and returns the module and the
// BinaryInst so a test can inspect it directly.
func straightLine() (*ir.Module, *ir.BinaryInst) {
	b := ir.NewModule("m")
	f, fb := b.NewFunc("add", []uint32{32, 32}, 32)
	bb := fb.NewBlock("entry")
	sum := bb.Binary(ir.Add, 32, f.Params[0], f.Params[1])
	bb.Ret(sum)
	fb.Finish()
	return b.Mod, sum
}

func TestBuilder_StraightLineFunction(t *testing.T) {
	mod, sum := straightLine()
	fn := mod.FuncByName("add")
	if fn == nil {
		t.Fatalf("expected add to be present in the module")
	}
	if fn.IsDeclaration() {
		t.Fatalf("add has a body, must not be a declaration")
	}
	if len(fn.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(fn.Params))
	}
	if !fn.ReturnsInt() {
		t.Fatalf("expected add to return an integer")
	}
	if sum.Op != ir.Add || sum.Width() != 32 {
		t.Errorf("unexpected sum instruction: op=%s width=%d", sum.Op, sum.Width())
	}
	if got := fn.Entry(); got == nil || got.Name != "entry" {
		t.Errorf("expected entry block named %q, got %+v", "entry", got)
	}
}

func TestBuilder_Declare(t *testing.T) {
	b := ir.NewModule("m")
	f := b.Declare("xmalloc", []uint32{64}, 64)
	if !f.IsDeclaration() {
		t.Errorf("expected a Declare'd function to report IsDeclaration() == true")
	}
	if len(f.Params) != 1 || f.Params[0].Bits != 64 {
		t.Errorf("unexpected declared params: %+v", f.Params)
	}
}

func TestBuilder_BranchComputesPreds(t *testing.T) {
	b := ir.NewModule("m")
	f, fb := b.NewFunc("cond", []uint32{1}, 32)
	entry := fb.NewBlock("entry")
	t1 := fb.NewBlock("then")
	t2 := fb.NewBlock("else")

	entry.Br(f.Params[0], t1.Block(), t2.Block())
	t1.Ret(&ir.ConstInt{Bits: 32, Val: 1})
	t2.Ret(&ir.ConstInt{Bits: 32, Val: 0})
	fb.Finish()

	if len(f.Blocks[1].Preds) != 1 || f.Blocks[1].Preds[0] != f.Blocks[0] {
		t.Errorf("expected then-block's sole predecessor to be entry, got %+v", f.Blocks[1].Preds)
	}
	if len(f.Blocks[2].Preds) != 1 || f.Blocks[2].Preds[0] != f.Blocks[0] {
		t.Errorf("expected else-block's sole predecessor to be entry, got %+v", f.Blocks[2].Preds)
	}
}

func TestBuilder_PhiAddIncoming(t *testing.T) {
	b := ir.NewModule("m")
	_, fb := b.NewFunc("phi", []uint32{1}, 32)
	entry := fb.NewBlock("entry")
	left := fb.NewBlock("left")
	right := fb.NewBlock("right")
	join := fb.NewBlock("join")

	entry.Br(&ir.ConstInt{Bits: 1, Val: 1}, left.Block(), right.Block())
	left.Jump(join.Block())
	right.Jump(join.Block())

	p := join.Phi(32)
	join.Ret(p)
	fb.Finish()

	ir.AddIncoming(p, &ir.ConstInt{Bits: 32, Val: 1}, left.Block())
	ir.AddIncoming(p, &ir.ConstInt{Bits: 32, Val: 2}, right.Block())

	if len(p.Incoming) != 2 {
		t.Fatalf("expected 2 incoming edges, got %d", len(p.Incoming))
	}
	if p.Incoming[0].Pred != left.Block() || p.Incoming[1].Pred != right.Block() {
		t.Errorf("unexpected incoming predecessors: %+v", p.Incoming)
	}
}

func TestBuilder_GlobalArrayAndGep(t *testing.T) {
	b := ir.NewModule("m")
	g := b.NewGlobalArray("buf", 8, 4, true, []int64{1, 2, 3, 4})
	_, fb := b.NewFunc("read", []uint32{32}, 8)
	bb := fb.NewBlock("entry")
	addr := bb.Gep(g, bb.Phi(32)) // placeholder index value
	v := bb.Load(8, addr)
	bb.Ret(v)
	fb.Finish()

	if g.Len != 4 || !g.IsArray {
		t.Errorf("unexpected global shape: %+v", g)
	}
	if addr.IsInt() {
		t.Errorf("GepInst should not itself be integer-typed")
	}
}

func TestReplaceUses(t *testing.T) {
	b := ir.NewModule("m")
	f, fb := b.NewFunc("id", []uint32{32}, 32)
	bb := fb.NewBlock("entry")
	dbl := bb.Binary(ir.Add, 32, f.Params[0], f.Params[0])
	bb.Ret(dbl)
	fb.Finish()

	repl := &ir.ConstInt{Bits: 32, Val: 7}
	ir.ReplaceUses(f, ir.Value(f.Params[0]), ir.Value(repl))

	if dbl.LHS != ir.Value(repl) || dbl.RHS != ir.Value(repl) {
		t.Errorf("expected both operands of dbl to be replaced, got LHS=%v RHS=%v", dbl.LHS, dbl.RHS)
	}
}
