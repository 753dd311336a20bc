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

package mkint

import (
	"github.com/ganler/mkint-go/internal/graphutil"
	"github.com/ganler/mkint-go/ir"
)

// LoopNest is one natural loop in a function's CFG: the set of blocks that
// can reach each other (a nontrivial strongly connected component), reported
// for the CLI's -debug-cfg flag so a reader can see which blocks the range
// analyzer's back-edge skipping (backedges.go) treats as a loop body.
type LoopNest struct {
	Blocks []*ir.BasicBlock
}

// functionLoops finds every natural loop in fn's CFG by computing its
// strongly connected components and keeping only the nontrivial ones: a
// single block is only a loop if it branches to itself directly, any larger
// component is a loop by construction since every member can reach every
// other member. Blocks are returned in each component's internal
// (arbitrary) order, components in graphutil.StronglyConnectedComponents's
// toposort (a component reachable from another comes first). A loop nested
// in another shares the outer loop's component and is not listed apart.
func functionLoops(fn *ir.Function) []LoopNest {
	g := graphutil.NewCFGGraph(fn)
	successors := func(id int64) []int64 {
		var out []int64
		for w := range g.Edges[id] {
			out = append(out, w)
		}
		return out
	}
	sccs := graphutil.StronglyConnectedComponents(g.Keys, successors)

	var nests []LoopNest
	for _, scc := range sccs {
		isLoop := len(scc) > 1
		if len(scc) == 1 && g.Edges[scc[0]][scc[0]] {
			isLoop = true
		}
		if !isLoop {
			continue
		}
		blocks := make([]*ir.BasicBlock, len(scc))
		for i, id := range scc {
			blocks[i] = g.IDMap[id].Block
		}
		nests = append(nests, LoopNest{Blocks: blocks})
	}
	return nests
}

// LoopNests reports every natural loop mkint found in fn's CFG, computed on
// demand (not cached in State, since -debug-cfg is the only caller and it
// runs once per function after Run has already finished).
func (r *Result) LoopNests(fn *ir.Function) []LoopNest {
	if fn.IsDeclaration() {
		return nil
	}
	return functionLoops(fn)
}
