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

func TestLoopNests_SelfLoop(t *testing.T) {
	b := ir.NewModule("m")
	f, fb := b.NewFunc("countdown", []uint32{32}, 32)
	entry := fb.NewBlock("entry")
	loop := fb.NewBlock("loop")
	exit := fb.NewBlock("exit")

	entry.Jump(loop.Block())
	n := loop.Phi(32)
	dec := loop.Binary(ir.Sub, 32, n, &ir.ConstInt{Bits: 32, Val: 1})
	cmp := loop.ICmp(ir.ICmpNE, dec, &ir.ConstInt{Bits: 32, Val: 0})
	loop.Br(cmp, loop.Block(), exit.Block())
	exit.Ret(dec)
	fb.Finish()
	ir.AddIncoming(n, f.Params[0], entry.Block())
	ir.AddIncoming(n, dec, loop.Block())

	r := mkint.Run(b.Mod, nil)
	nests := r.LoopNests(f)
	if len(nests) != 1 {
		t.Fatalf("expected exactly one loop nest, got %d: %+v", len(nests), nests)
	}
	if len(nests[0].Blocks) != 1 || nests[0].Blocks[0].Name != "loop" {
		t.Errorf("expected the single loop nest to contain just `loop`, got %+v", nests[0].Blocks)
	}
}

func TestLoopNests_AcyclicFunctionHasNone(t *testing.T) {
	b := ir.NewModule("m")
	f, fb := b.NewFunc("straight", nil, 32)
	entry := fb.NewBlock("entry")
	exit := fb.NewBlock("exit")
	entry.Jump(exit.Block())
	exit.Ret(&ir.ConstInt{Bits: 32, Val: 0})
	fb.Finish()

	r := mkint.Run(b.Mod, nil)
	if nests := r.LoopNests(f); len(nests) != 0 {
		t.Errorf("expected no loop nests in a straight-line function, got %+v", nests)
	}
}

func TestLoopNests_DeclarationIsAlwaysEmpty(t *testing.T) {
	b := ir.NewModule("m")
	f := b.Declare("extfn", []uint32{32}, 32)
	r := mkint.Run(b.Mod, nil)
	if nests := r.LoopNests(f); nests != nil {
		t.Errorf("expected a declaration-only function to report no loop nests, got %+v", nests)
	}
}
