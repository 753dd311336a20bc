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
	"github.com/ganler/mkint-go/analysis/interval"
	"github.com/ganler/mkint-go/ir"
)

// analyzeRanges runs the interprocedural range analysis to a fixed point:
// every function in s.AnalysisFuncs is walked block-by-block, in program order, and every
// instruction's range is recomputed from its (already current) operand
// ranges. Because ranges only ever grow (Union, never shrink, except the
// branch/switch refinement narrowing applied at merge points), repeating
// this whole-module pass monotonically approaches a fixed point; the loop
// stops either when a full pass changes nothing or after Cfg.IterationCap
// passes, whichever comes first — the same bound the original pass places
// on its fixed-point loop.
func analyzeRanges(m *ir.Module, s *State) {
	for _, f := range m.Funcs {
		if !f.IsDeclaration() && s.AnalysisFuncs[f] {
			s.backEdges[f] = findBackEdges(f)
		}
	}
	cap := s.Cfg.IterationCap
	if cap <= 0 {
		cap = 128
	}
	for iter := 0; iter < cap; iter++ {
		changed := false
		for _, f := range m.Funcs {
			if f.IsDeclaration() || !s.AnalysisFuncs[f] {
				continue
			}
			if analyzeFunction(m, f, s) {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

func analyzeFunction(m *ir.Module, f *ir.Function, s *State) bool {
	changed := false
	for _, bb := range f.Blocks {
		refreshBlockEntry(f, bb, s)
		for _, instr := range bb.Instrs {
			if stepInstr(m, bb, instr, s) {
				changed = true
			}
		}
	}
	return changed
}

// refreshBlockEntry recomputes s.BlockVals[fn][bb]: the predecessor-merged,
// branch-refined range of every value bb's instructions actually reference,
// implementing C6 step 1 (predecessor merge) over every live value, not just
// Phi incomings. Phis keep their own merge logic in stepPhi, which already
// knows the exact (value, predecessor) pairing a PhiInst carries; this
// covers the remaining case, a value used directly in a block reached
// through exactly one (or several) refining predecessor edges.
func refreshBlockEntry(fn *ir.Function, bb *ir.BasicBlock, s *State) {
	vals := make(map[ir.Value]interval.Range)
	var rands []*ir.Value
	for _, instr := range bb.Instrs {
		rands = instr.Operands(rands[:0])
		for _, r := range rands {
			v := *r
			if v == nil || !v.IsInt() {
				continue
			}
			if _, ok := v.(*ir.ConstInt); ok {
				continue
			}
			if _, done := vals[v]; done {
				continue
			}
			vals[v] = mergePredRefinement(fn, bb, v, s)
		}
	}
	blocks := s.BlockVals[fn]
	if blocks == nil {
		blocks = make(map[*ir.BasicBlock]map[ir.Value]interval.Range)
		s.BlockVals[fn] = blocks
	}
	blocks[bb] = vals
}

// mergePredRefinement computes v's range as seen entering bb: the union of
// its refined range as seen from each live (non-back-edge) predecessor edge,
// or v's ordinary flow-insensitive range if bb has no live predecessor (the
// function entry, or a block every predecessor of which is a back edge).
func mergePredRefinement(fn *ir.Function, bb *ir.BasicBlock, v ir.Value, s *State) interval.Range {
	result := interval.Empty(v.Width())
	any := false
	for _, p := range bb.Preds {
		if s.isBackEdge(fn, p, bb) {
			continue
		}
		any = true
		result = result.Union(refineIncoming(p, bb, v, s))
	}
	if !any {
		return s.RangeOf(v)
	}
	return result
}

func stepInstr(m *ir.Module, bb *ir.BasicBlock, instr ir.Instruction, s *State) bool {
	switch in := instr.(type) {
	case *ir.BinaryInst:
		return stepBinary(bb, in, s)
	case *ir.CastInst:
		return stepCast(bb, in, s)
	case *ir.SelectInst:
		r := s.RangeAt(bb, in.T).Union(s.RangeAt(bb, in.F))
		return s.SetRange(in, r)
	case *ir.PhiInst:
		return stepPhi(in, s)
	case *ir.ICmpInst:
		return stepICmp(bb, in, s)
	case *ir.LoadInst:
		return stepLoad(in, s)
	case *ir.StoreInst:
		return stepStore(bb, in, s)
	case *ir.CallInst:
		return stepCall(bb, in, s)
	case *ir.ReturnInst:
		return stepReturn(bb, in, s)
	default:
		// GepInst, BranchInst, SwitchInst carry no arithmetic range of their
		// own; GEP bounds and branch liveness are checked in diagnostics.go.
		return false
	}
}

func stepBinary(bb *ir.BasicBlock, in *ir.BinaryInst, s *State) bool {
	l, r := s.RangeAt(bb, in.LHS), s.RangeAt(bb, in.RHS)
	// Promote the narrower operand: sext for sdiv/srem/ashr, zext otherwise.
	promote := func(x interval.Range, w uint32) interval.Range {
		if x.Bits >= w {
			return x
		}
		if in.Op.IsSigned() {
			return x.SignExtend(w)
		}
		return x.ZeroExtend(w)
	}
	l, r = promote(l, r.Bits), promote(r, l.Bits)
	var result interval.Range
	switch in.Op {
	case ir.Add:
		result = l.Add(r)
	case ir.Sub:
		result = l.Sub(r)
	case ir.Mul:
		result = l.Mul(r)
	case ir.UDiv:
		result = l.UDiv(r)
	case ir.SDiv:
		result = l.SDiv(r)
	case ir.URem:
		result = l.URem(r)
	case ir.SRem:
		result = l.SRem(r)
	case ir.Shl:
		result = l.Shl(r)
	case ir.LShr:
		result = l.LShr(r)
	case ir.AShr:
		result = l.AShr(r)
	case ir.And:
		result = l.And(r)
	case ir.Or:
		result = l.Or(r)
	case ir.Xor:
		result = l.Xor(r)
	default:
		result = interval.Full(in.Width())
	}
	if result.Bits > in.Width() {
		result = result.Truncate(in.Width())
	}
	return s.SetRange(in, result)
}

func stepCast(bb *ir.BasicBlock, in *ir.CastInst, s *State) bool {
	x := s.RangeAt(bb, in.X)
	var result interval.Range
	switch in.Op {
	case ir.Trunc:
		result = x.Truncate(in.Width())
	case ir.ZExt:
		result = x.ZeroExtend(in.Width())
	case ir.SExt:
		result = x.SignExtend(in.Width())
	default:
		result = interval.Full(in.Width())
	}
	return s.SetRange(in, result)
}

// stepPhi merges every non-back-edge incoming value, narrowed by any
// branch/switch refinement implied by how control reached this block from
// that particular predecessor (see refineIncoming).
func stepPhi(in *ir.PhiInst, s *State) bool {
	result := interval.Empty(in.Width())
	for _, e := range in.Incoming {
		if s.isBackEdge(e.Pred.Parent, e.Pred, in.Block()) {
			continue
		}
		contributed := refineIncoming(e.Pred, in.Block(), e.Val, s)
		result = result.Union(contributed)
	}
	return s.SetRange(in, result)
}

// refineIncoming returns val's range as seen entering block dst from
// predecessor pred, narrowed by pred's terminator when it is a conditional
// branch or switch whose condition constrains val directly. This is the
// "branch/switch refinement at predecessor merge" step: it lets `if (x < N)
// { ... }` narrow x inside the true branch without needing a per-block
// copy of every SSA value.
func refineIncoming(pred, dst *ir.BasicBlock, val ir.Value, s *State) interval.Range {
	base := s.RangeOf(val)
	term := pred.Term()
	switch t := term.(type) {
	case *ir.BranchInst:
		if !t.IsConditional() {
			return base
		}
		cmp, ok := t.Cond.(*ir.ICmpInst)
		if !ok {
			return base
		}
		branchTrue := dst == t.True
		return refineFromCompare(cmp, val, branchTrue, s).Intersect(base)
	case *ir.SwitchInst:
		if t.Val != val {
			return base
		}
		matched := interval.Empty(val.Width())
		found := false
		for _, c := range t.Cases {
			if c.Dest == dst {
				found = true
				matched = matched.Union(interval.Const(val.Width(), uint64(c.Const)))
			}
		}
		if found {
			return base.Intersect(matched)
		}
		if t.Default == dst {
			// Default edge excludes every case constant; approximate by not
			// narrowing further (an exact complement-of-finite-set isn't
			// expressible as a single interval in general).
			return base
		}
		return base
	default:
		return base
	}
}

// refineFromCompare returns the allowed region for val given that cmp
// evaluated (if branchTrue) to true, or (if !branchTrue) to false, when val
// is one side of cmp; otherwise it returns val's unconstrained current range.
func refineFromCompare(cmp *ir.ICmpInst, val ir.Value, branchTrue bool, s *State) interval.Range {
	pred := toIntervalPred(cmp.Pred)
	if !branchTrue {
		pred = toIntervalPred(cmp.Pred.Inverse())
	}
	if cmp.LHS == val {
		return interval.FromCompare(pred, val.Width(), s.RangeOf(cmp.RHS))
	}
	if cmp.RHS == val {
		return interval.FromCompare(swapPred(pred), val.Width(), s.RangeOf(cmp.LHS))
	}
	return s.RangeOf(val)
}

// swapPred returns the predicate for (rhs p lhs) given (lhs p rhs).
func swapPred(p interval.Pred) interval.Pred {
	switch p {
	case interval.UGT:
		return interval.ULT
	case interval.UGE:
		return interval.ULE
	case interval.ULT:
		return interval.UGT
	case interval.ULE:
		return interval.UGE
	case interval.SGT:
		return interval.SLT
	case interval.SGE:
		return interval.SLE
	case interval.SLT:
		return interval.SGT
	case interval.SLE:
		return interval.SGE
	default:
		return p // EQ, NE are symmetric
	}
}

func toIntervalPred(p ir.ICmpPred) interval.Pred {
	switch p {
	case ir.ICmpEQ:
		return interval.EQ
	case ir.ICmpNE:
		return interval.NE
	case ir.ICmpUGT:
		return interval.UGT
	case ir.ICmpUGE:
		return interval.UGE
	case ir.ICmpULT:
		return interval.ULT
	case ir.ICmpULE:
		return interval.ULE
	case ir.ICmpSGT:
		return interval.SGT
	case ir.ICmpSGE:
		return interval.SGE
	case ir.ICmpSLT:
		return interval.SLT
	case ir.ICmpSLE:
		return interval.SLE
	default:
		return interval.NE
	}
}

func stepICmp(bb *ir.BasicBlock, in *ir.ICmpInst, s *State) bool {
	l, r := s.RangeAt(bb, in.LHS), s.RangeAt(bb, in.RHS)
	allowed := interval.FromCompare(toIntervalPred(in.Pred), l.Bits, r)
	canTrue := !l.Intersect(allowed).IsEmpty()
	canFalse := !l.Intersect(allowed.Inverse()).IsEmpty()
	var result interval.Range
	switch {
	case canTrue && !canFalse:
		result = interval.Const(1, 1)
	case canFalse && !canTrue:
		result = interval.Const(1, 0)
	default:
		result = interval.Full(1)
	}
	return s.SetRange(in, result)
}

func stepLoad(in *ir.LoadInst, s *State) bool {
	switch addr := in.Addr.(type) {
	case *ir.Global:
		return s.SetRange(in, s.GlobalRanges[addr])
	case *ir.GepInst:
		return s.SetRange(in, s.GlobalRanges[addr.Base])
	default:
		return s.SetRange(in, interval.Full(in.Width()))
	}
}

func stepStore(bb *ir.BasicBlock, in *ir.StoreInst, s *State) bool {
	val := s.RangeAt(bb, in.Val)
	switch addr := in.Addr.(type) {
	case *ir.Global:
		old := s.GlobalRanges[addr]
		joined := old.Union(val)
		if rangeEqual(old, joined) {
			return false
		}
		s.GlobalRanges[addr] = joined
		return true
	case *ir.GepInst:
		old := s.GlobalRanges[addr.Base]
		joined := old.Union(val)
		if rangeEqual(old, joined) {
			return false
		}
		s.GlobalRanges[addr.Base] = joined
		return true
	default:
		return false
	}
}

// stepCall implements the two interprocedural hooks: call-argument
// narrowing (the callee's parameters get widened to also cover the ranges
// arguments actually carry at this call site) and return-value summary
// propagation (the call's own result, if integer, joins every ReturnInst
// the callee has contributed so far).
func stepCall(bb *ir.BasicBlock, in *ir.CallInst, s *State) bool {
	changed := false
	if !in.Callee.IsDeclaration() {
		for i, a := range in.Args {
			if i >= len(in.Callee.Params) {
				break
			}
			p := in.Callee.Params[i]
			if !p.IsInt() {
				continue
			}
			if s.SetRange(p, s.RangeAt(bb, a)) {
				changed = true
			}
		}
	}
	if in.IsInt() {
		summary, ok := s.retSummary[in.Callee]
		if !ok {
			summary = interval.Empty(in.Width())
		}
		if in.Callee.IsDeclaration() {
			summary = interval.Full(in.Width())
		}
		if s.SetRange(in, summary) {
			changed = true
		}
	}
	return changed
}

func stepReturn(bb *ir.BasicBlock, in *ir.ReturnInst, s *State) bool {
	if in.Val == nil {
		return false
	}
	fn := bb.Parent
	r := s.RangeAt(bb, in.Val)
	old, ok := s.retSummary[fn]
	if !ok {
		old = interval.Empty(r.Bits)
	}
	joined := old.Union(r)
	if rangeEqual(old, joined) {
		return false
	}
	s.retSummary[fn] = joined
	return true
}
