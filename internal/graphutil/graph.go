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

package graphutil

import (
	"sort"

	"github.com/ganler/mkint-go/ir"
	"gonum.org/v1/gonum/graph"
)

// CGraph is an integer-keyed adjacency view of a control-flow graph, built to
// satisfy both gonum's graph.Graph interface (used by C2's reachability
// closure, see analysis/mkint/backedges.go) and yourbasic/graph's Iterator
// interface (used by FindAllElementaryCycles below). Originally this wrapped
// a golang.org/x/tools/go/callgraph.Graph; it's adapted here to wrap an
// ir.Function's basic blocks instead, since mkint's C2 operates over a CFG,
// not a call graph.
type CGraph struct {
	order int

	// Func is the function this graph was built from.
	Func *ir.Function

	// IDMap maps from node IDs (the block's Index) to CNodes.
	IDMap map[int64]CNode

	// Keys holds every node ID, sorted ascending.
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge x -> y.
	Edges map[int64]map[int64]bool
}

// NewCFGGraph builds a CGraph from fn's basic blocks, with one node per
// block (ID == block.Index) and one edge per Succs() entry of each block's
// terminator.
func NewCFGGraph(fn *ir.Function) CGraph {
	n := len(fn.Blocks)
	idmap := make(map[int64]CNode, n)
	edges := make(map[int64]map[int64]bool, n)
	keys := make([]int64, n)

	for i, bb := range fn.Blocks {
		id := int64(bb.Index)
		keys[i] = id
		idmap[id] = CNode{Block: bb}
		edges[id] = map[int64]bool{}
		if term := bb.Term(); term != nil {
			for _, s := range term.Succs() {
				edges[id][int64(s.Index)] = true
			}
		}
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return CGraph{order: n, Func: fn, IDMap: idmap, Edges: edges, Keys: keys}
}

// Subgraph returns a new graph that is the original graph with only the
// nodes in include. Only edges with both endpoints in include are kept.
func Subgraph(original CGraph, include []int64) CGraph {
	idmap := make(map[int64]CNode, len(include))
	edges := make(map[int64]map[int64]bool, len(include))
	keys := make([]int64, len(include))

	for j, i := range include {
		keys[j] = i
		idmap[i] = original.IDMap[i]
	}

	for _, i := range include {
		edges[i] = map[int64]bool{}
		for e := range original.Edges[i] {
			if _, ok := idmap[e]; ok {
				edges[i][e] = true
			}
		}
	}

	return CGraph{order: original.Order(), Func: original.Func, IDMap: idmap, Edges: edges, Keys: keys}
}

// Order implements yourbasic/graph.Iterator.
func (c CGraph) Order() int { return c.order }

// Visit implements yourbasic/graph.Iterator.
func (c CGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	if _, ok := c.IDMap[int64(v)]; !ok {
		return false
	}
	for w := range c.Edges[int64(v)] {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// *************** gonum graph.Graph implementation **********************

// Node implements graph.Graph.
func (c CGraph) Node(v int64) graph.Node {
	n, ok := c.IDMap[v]
	if !ok {
		return nil
	}
	return n
}

// Nodes implements graph.Graph.
func (c CGraph) Nodes() graph.Nodes {
	keys := make([]int64, len(c.IDMap))
	i := 0
	for k := range c.IDMap {
		keys[i] = k
		i++
	}
	return &NodeSet{nodes: c.IDMap, ids: keys, cur: -1}
}

// From implements graph.Graph: the nodes reachable via one edge from id.
func (c CGraph) From(id int64) graph.Nodes {
	var keys []int64
	for out := range c.Edges[id] {
		keys = append(keys, out)
	}
	return &NodeSet{nodes: c.IDMap, ids: keys, cur: -1}
}

// HasEdgeBetween implements graph.Graph.
func (c CGraph) HasEdgeBetween(xid, yid int64) bool {
	return c.Edges[xid][yid] || c.Edges[yid][xid]
}

// Edge implements graph.Graph.
func (c CGraph) Edge(uid, vid int64) graph.Edge {
	if c.Edges[uid][vid] {
		return CEdge{from: c.IDMap[uid], to: c.IDMap[vid]}
	}
	return nil
}

// HasEdgeFromTo reports whether a directed edge uid -> vid exists.
func (c CGraph) HasEdgeFromTo(uid, vid int64) bool { return c.Edges[uid][vid] }

// *************** Nodes implementation **********************

// CNode wraps one basic block as a gonum graph.Node.
type CNode struct {
	Block *ir.BasicBlock
}

// ID implements graph.Node.
func (n CNode) ID() int64 { return int64(n.Block.Index) }

func (n CNode) String() string {
	if n.Block == nil {
		return ""
	}
	return n.Block.Name
}

// NodeSet implements gonum's graph.Nodes, an iterator over a set of nodes.
type NodeSet struct {
	nodes map[int64]CNode
	ids   []int64
	cur   int
}

// Next implements graph.Nodes.
func (ns *NodeSet) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	return false
}

// Len implements graph.Nodes.
func (ns *NodeSet) Len() int { return len(ns.ids) - ns.cur }

// Reset implements graph.Nodes.
func (ns *NodeSet) Reset() { ns.cur = -1 }

// Node implements graph.Nodes.
func (ns *NodeSet) Node() graph.Node { return ns.nodes[ns.ids[ns.cur]] }

// *************** Edge implementation **********************

// CEdge implements graph.Edge.
type CEdge struct {
	from CNode
	to   CNode
}

// From implements graph.Edge.
func (e CEdge) From() graph.Node { return e.from }

// To implements graph.Edge.
func (e CEdge) To() graph.Node { return e.to }

// ReversedEdge implements graph.Edge.
func (e CEdge) ReversedEdge() graph.Edge { return CEdge{from: e.to, to: e.from} }
