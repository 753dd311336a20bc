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

// Package mkint implements the combined taint-propagation and interprocedural
// integer-range analysis: it marks tainted values flowing from annotated
// sources to allocation-size sinks, computes a wrapped-interval range for
// every integer value, and reports dead branches, out-of-bounds array
// indices, and integer overflow/div-by-zero/bad-shift bugs.
package mkint

import (
	"github.com/ganler/mkint-go/analysis/config"
	"github.com/ganler/mkint-go/analysis/interval"
	"github.com/ganler/mkint-go/ir"
)

// ErrKind names the category of a reported bug, mirroring the ERR(kind)
// annotation vocabulary.
type ErrKind int

const (
	Overflow ErrKind = iota
	DivByZero
	BadShift
	ArrayOOB
	DeadTrueBranch
	DeadFalseBranch
)

func (k ErrKind) String() string {
	switch k {
	case Overflow:
		return "OVERFLOW"
	case DivByZero:
		return "DIV_BY_ZERO"
	case BadShift:
		return "BAD_SHIFT"
	case ArrayOOB:
		return "ARRAY_OOB"
	case DeadTrueBranch:
		return "DEAD_TRUE_BR"
	case DeadFalseBranch:
		return "DEAD_FALSE_BR"
	default:
		return "UNKNOWN"
	}
}

// Diagnostic is a single reported finding.
type Diagnostic struct {
	Kind  ErrKind
	Func  *ir.Function
	Block *ir.BasicBlock
	Instr ir.Instruction
	Msg   string
}

// TaintMark records why a value is tainted: the name of the source it
// flowed from (e.g. a sys_ syscall argument or an explicit annotation).
type TaintMark struct {
	Label string
}

// pendingSource is a not-yet-seeded taint source call awaiting a
// SinkReachable verdict (see State.pendingSources).
type pendingSource struct {
	Call  *ir.CallInst
	Label string
}

// edge is a CFG edge (pred -> succ) used by the back-edge detector.
type edge struct {
	From, To *ir.BasicBlock
}

// State holds every piece of mutable analysis state for one Run. The ir.Module
// itself is never mutated in place except for the taint marker's synthetic
// `.mkint.argN` call rewriting, which happens once up front before ranges are
// computed (see taint_marker.go).
type State struct {
	Cfg *config.Config

	// Ranges holds the current abstract, flow-insensitive range of every
	// integer-typed Value reached so far (its range over the whole
	// function, ignoring which block is asking). Absent entries are
	// implicitly Empty.
	Ranges map[ir.Value]interval.Range

	// BlockVals is the per-program-point range store (spec.md §3's
	// funcBlockVals): for each function and each of its blocks, the
	// narrowed range that every value used in that block carries at the
	// block's *start*, after merging and refining every live (non-back-edge)
	// predecessor edge (range_analyze.go's refreshBlockEntry). This is what
	// lets `if (x < N) { use(x) }` narrow x inside the true branch even when
	// x is used directly, not through a Phi — RangeAt consults this before
	// falling back to the flow-insensitive Ranges map.
	BlockVals map[*ir.Function]map[*ir.BasicBlock]map[ir.Value]interval.Range

	// AnalysisFuncs is the set of functions the range-analysis fixed point
	// actually walks (range_init.go's classifyAnalysisFuncs): those with an
	// integer return type, those in TaintFuncs, or entry points (see
	// DESIGN.md for why entry points are included beyond spec.md §4.5's
	// literal two criteria).
	AnalysisFuncs map[*ir.Function]bool

	// SinkReachable holds every value that can reach a recognized sink's
	// call argument by following its forward data dependencies (including
	// across call-argument/callee-parameter and return/call-result edges),
	// computed once by taint_propagate.go's computeSinkReachability. Taint
	// is only ever marked on a value in this set (spec.md §4.4, §8: "for
	// every tainted instruction, at least one forward use-def path reaches a
	// SINK-annotated instruction").
	SinkReachable map[ir.Value]bool

	// pendingSources are the synthetic source calls markTaintSources created
	// (taint_marker.go), not yet marked tainted: seedSourceTaint marks each
	// one only if SinkReachable confirms it can actually reach a sink.
	pendingSources []pendingSource

	// GlobalRanges summarizes the range of every value ever stored into a
	// global (scalar) or into any element of a global array, used by Load
	// to recover a value from a store it can't see directly (spec.md §9:
	// local/stack pointer tracking is dropped, globals are kept).
	GlobalRanges map[*ir.Global]interval.Range

	// Tainted marks values reachable from a taint source.
	Tainted map[ir.Value]TaintMark

	// TaintFuncs is the set of functions that (transitively) propagate a
	// tainted value to one of their return values; grown to a fixed point.
	TaintFuncs map[*ir.Function]bool

	// Sinks is the set of functions (declared or defined) recognized by name
	// as allocation-size sinks (malloc, kmalloc, the synthetic test sinks, ...).
	Sinks map[*ir.Function]bool

	// backEdges holds every CFG edge classified as a back-edge by the
	// per-function reachability closure in backedges.go.
	backEdges map[*ir.Function]map[edge]bool

	// retSummary is the join of every ReturnInst's operand range observed so
	// far for a function, used to seed CallInst results (C6 call summary). A
	// function with no entry yet has observed no return: its summary is Empty.
	retSummary map[*ir.Function]interval.Range

	// Diagnostics accumulates every bug/dead-branch finding, in discovery order.
	Diagnostics []Diagnostic

	// reportedDead avoids reporting the same dead branch twice across
	// fixed-point iterations.
	reportedDead map[ir.Instruction]bool
}

// NewState allocates an empty State for cfg (nil uses config.Default()).
func NewState(cfg *config.Config) *State {
	if cfg == nil {
		cfg = config.Default()
	}
	return &State{
		Cfg:           cfg,
		Ranges:        make(map[ir.Value]interval.Range),
		BlockVals:     make(map[*ir.Function]map[*ir.BasicBlock]map[ir.Value]interval.Range),
		AnalysisFuncs: make(map[*ir.Function]bool),
		SinkReachable: make(map[ir.Value]bool),
		GlobalRanges:  make(map[*ir.Global]interval.Range),
		Tainted:       make(map[ir.Value]TaintMark),
		TaintFuncs:    make(map[*ir.Function]bool),
		Sinks:         make(map[*ir.Function]bool),
		backEdges:     make(map[*ir.Function]map[edge]bool),
		retSummary:    make(map[*ir.Function]interval.Range),
		reportedDead:  make(map[ir.Instruction]bool),
	}
}

// RangeOf returns the currently-known range of v: the singleton for a
// constant, and Empty for any integer value with no recorded range yet.
// Params get their starting range from initRanges (range_init.go), which
// seeds source and entry-point params at Full and every other param at Empty.
func (s *State) RangeOf(v ir.Value) interval.Range {
	if c, ok := v.(*ir.ConstInt); ok {
		return interval.Const(c.Bits, uint64(c.Val)&maskOf(c.Bits))
	}
	if !v.IsInt() {
		return interval.Empty(0)
	}
	if r, ok := s.Ranges[v]; ok {
		return r
	}
	return interval.Empty(v.Width())
}

// RangeAt returns v's range as refined at the start of bb: instructions
// that compute a range from their operands (stepBinary, stepICmp, checkGep,
// ...) call this instead of RangeOf so that a branch condition narrows a
// value used directly in a successor block, not only values merged through
// a Phi. A value defined inside bb itself has no block-entry view (nothing
// merges it; it's computed fresh every time bb runs), so this falls back to
// the ordinary flow-insensitive range for it; likewise for any value with no
// recorded block-entry refinement (e.g. the function's own entry block,
// which has no predecessors to merge).
func (s *State) RangeAt(bb *ir.BasicBlock, v ir.Value) interval.Range {
	if c, ok := v.(*ir.ConstInt); ok {
		return interval.Const(c.Bits, uint64(c.Val)&maskOf(c.Bits))
	}
	if !v.IsInt() {
		return interval.Empty(0)
	}
	if instr, ok := v.(ir.Instruction); ok && instr.Block() == bb {
		return s.RangeOf(v)
	}
	if blocks, ok := s.BlockVals[bb.Parent]; ok {
		if vals, ok := blocks[bb]; ok {
			if r, ok := vals[v]; ok {
				return r
			}
		}
	}
	return s.RangeOf(v)
}

func maskOf(bits uint32) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bits) - 1
}

// SetRange widens v's range by joining r into the current one; callers
// that want to overwrite (entry seeding) should use ForceRange instead.
func (s *State) SetRange(v ir.Value, r interval.Range) (changed bool) {
	old := s.RangeOf(v)
	joined := old.Union(r)
	if rangeEqual(old, joined) {
		return false
	}
	s.Ranges[v] = joined
	return true
}

// ForceRange overwrites v's range unconditionally, used for entry seeding.
func (s *State) ForceRange(v ir.Value, r interval.Range) {
	s.Ranges[v] = r
}

func rangeEqual(a, b interval.Range) bool {
	if a.Empty != b.Empty || a.Full != b.Full {
		return false
	}
	if a.Empty || a.Full {
		return true
	}
	return a.Lo == b.Lo && a.Hi == b.Hi
}

// IsTainted reports whether v is currently known to be tainted.
func (s *State) IsTainted(v ir.Value) bool {
	_, ok := s.Tainted[v]
	return ok
}

// MarkTainted taints v with the given source label if not already tainted;
// reports whether this call changed anything.
func (s *State) MarkTainted(v ir.Value, label string) bool {
	if _, ok := s.Tainted[v]; ok {
		return false
	}
	s.Tainted[v] = TaintMark{Label: label}
	return true
}

func (s *State) report(kind ErrKind, instr ir.Instruction, fn *ir.Function, msg string) {
	if s.reportedDead[instr] && (kind == DeadTrueBranch || kind == DeadFalseBranch) {
		return
	}
	if kind == DeadTrueBranch || kind == DeadFalseBranch {
		s.reportedDead[instr] = true
	}
	s.Diagnostics = append(s.Diagnostics, Diagnostic{Kind: kind, Func: fn, Instr: instr, Msg: msg})
}

func (s *State) isBackEdge(fn *ir.Function, from, to *ir.BasicBlock) bool {
	m := s.backEdges[fn]
	if m == nil {
		return false
	}
	return m[edge{from, to}]
}
