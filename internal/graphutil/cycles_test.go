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

package graphutil_test

import (
	"testing"

	"github.com/ganler/mkint-go/internal/graphutil"
	"github.com/ganler/mkint-go/ir"
)

// buildLoopFunc builds a function whose CFG is entry -> loop -> {loop, exit},
// i.e. a single self-looping block, the simplest nontrivial cycle.
func buildLoopFunc(t *testing.T) *ir.Function {
	t.Helper()
	b := ir.NewModule("m")
	f, fb := b.NewFunc("countdown", []uint32{32}, 32)

	entry := fb.NewBlock("entry")
	loop := fb.NewBlock("loop")
	exit := fb.NewBlock("exit")

	entry.Jump(loop.Block())

	one := &ir.ConstInt{Bits: 32, Val: 1}
	zero := &ir.ConstInt{Bits: 32, Val: 0}
	n := loop.Phi(32)
	dec := loop.Binary(ir.Sub, 32, n, one)
	cmp := loop.ICmp(ir.ICmpNE, dec, zero)
	loop.Br(cmp, loop.Block(), exit.Block())

	exit.Ret(dec)

	fb.Finish()
	ir.AddIncoming(n, f.Params[0], entry.Block())
	ir.AddIncoming(n, dec, loop.Block())
	return f
}

func TestFindAllElementaryCycles(t *testing.T) {
	fn := buildLoopFunc(t)
	g := graphutil.NewCFGGraph(fn)

	cycles := graphutil.FindAllElementaryCycles(g)
	if len(cycles) != 1 {
		t.Fatalf("expected exactly one elementary cycle (the self-loop on `loop`), got %d: %v", len(cycles), cycles)
	}

	loopIdx := int64(-1)
	for _, bb := range fn.Blocks {
		if bb.Name == "loop" {
			loopIdx = int64(bb.Index)
		}
	}
	cyc := cycles[0]
	if len(cyc) != 2 || cyc[0] != loopIdx || cyc[1] != loopIdx {
		t.Errorf("expected the cycle to be [loop, loop], got %v (loop id = %d)", cyc, loopIdx)
	}
}

func TestFindAllElementaryCycles_Acyclic(t *testing.T) {
	b := ir.NewModule("m")
	_, fb := b.NewFunc("straight", nil, 32)
	entry := fb.NewBlock("entry")
	exit := fb.NewBlock("exit")
	entry.Jump(exit.Block())
	exit.Ret(&ir.ConstInt{Bits: 32, Val: 0})
	f := fb.Finish()

	g := graphutil.NewCFGGraph(f)
	if cycles := graphutil.FindAllElementaryCycles(g); len(cycles) != 0 {
		t.Errorf("expected no cycles in a straight-line CFG, got %v", cycles)
	}
}
