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
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/ganler/mkint-go/internal/graphutil"
	"github.com/ganler/mkint-go/ir"
)

// findBackEdges classifies every CFG edge of fn as a back-edge or not, by
// computing each block's forward-reachability closure with a gonum
// traverse.DepthFirst walk and checking whether an edge's destination can
// reach back to its source. This lets the range analyzer (C6) walk blocks
// purely in program order without a worklist: it simply skips merging in
// values along edges this function marks as back edges, so no widening
// operator is needed.
func findBackEdges(fn *ir.Function) map[edge]bool {
	result := make(map[edge]bool)
	if len(fn.Blocks) == 0 {
		return result
	}
	g := graphutil.NewCFGGraph(fn)

	reachable := make(map[int64]map[int64]bool, len(fn.Blocks))
	for _, bb := range fn.Blocks {
		start := int64(bb.Index)
		set := make(map[int64]bool)
		dfs := traverse.DepthFirst{
			Visit: func(n graph.Node) { set[n.ID()] = true },
		}
		dfs.Walk(g, g.Node(start), func(graph.Node) bool { return false })
		reachable[start] = set
	}

	for _, bb := range fn.Blocks {
		term := bb.Term()
		if term == nil {
			continue
		}
		for _, succ := range term.Succs() {
			if reachable[int64(succ.Index)][int64(bb.Index)] {
				result[edge{From: bb, To: succ}] = true
			}
		}
	}
	return result
}

// findBackEdgesCrossCheck re-derives back edges from the set of elementary
// cycles in fn's CFG (via graphutil.FindAllElementaryCycles, Johnson's
// algorithm over yourbasic/graph's strongly-connected-components routine):
// an edge u -> v is a back edge if some elementary cycle contains it with v
// appearing before u is revisited. Nothing in the pipeline calls it: neither
// the range analyzer nor diagnostics.go nor the CLI uses its result.
func findBackEdgesCrossCheck(fn *ir.Function) map[edge]bool {
	result := make(map[edge]bool)
	if len(fn.Blocks) == 0 {
		return result
	}
	g := graphutil.NewCFGGraph(fn)
	cycles := graphutil.FindAllElementaryCycles(g)
	byIdx := make(map[int64]*ir.BasicBlock, len(fn.Blocks))
	for _, bb := range fn.Blocks {
		byIdx[int64(bb.Index)] = bb
	}
	for _, cyc := range cycles {
		for i := 0; i+1 < len(cyc); i++ {
			u, v := byIdx[cyc[i]], byIdx[cyc[i+1]]
			if u != nil && v != nil {
				result[edge{From: u, To: v}] = true
			}
		}
	}
	return result
}
