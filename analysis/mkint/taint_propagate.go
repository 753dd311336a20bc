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

import "github.com/ganler/mkint-go/ir"

// propagateTaint grows s.Tainted and s.TaintFuncs to a fixed point: starting
// from the sources seedSourceTaint already planted, every instruction that
// consumes a tainted value produces a tainted value in turn (taint_bcast),
// and every call to a function whose return taints (directly, or
// transitively through s.TaintFuncs) taints the call's result. A function is
// added to TaintFuncs as soon as any of its ReturnInst operands is tainted.
//
// This is a depth-first forward walk repeated until nothing changes, rather
// than a worklist, since mkint modules are small enough that a handful of
// whole-module passes is cheaper than maintaining a use-list-driven queue;
// the range analyzer (C6) follows the same iterate-to-fixed-point shape.
func propagateTaint(m *ir.Module, s *State) {
	for {
		changed := false
		for _, f := range m.Funcs {
			if f.IsDeclaration() {
				continue
			}
			f.AllInstructions(func(bb *ir.BasicBlock, instr ir.Instruction) {
				if bcastInstr(instr, s) {
					changed = true
				}
				if call, ok := instr.(*ir.CallInst); ok {
					if s.taintFromCall(call) {
						changed = true
					}
				}
				if ret, ok := instr.(*ir.ReturnInst); ok && ret.Val != nil && s.IsTainted(ret.Val) {
					if !s.TaintFuncs[f] {
						s.TaintFuncs[f] = true
						changed = true
					}
				}
			})
		}
		if !changed {
			return
		}
	}
}

// bcastInstr taints instr's own result (if it defines a value) when any of
// its operands is already tainted. This is the `taint_bcast` step: taint
// spreads forward through arithmetic, casts, phis, loads, selects and GEPs
// exactly like a normal dataflow value would. It only ever marks a value
// that computeSinkReachability has already proven can reach a recognized
// sink's call argument (spec.md §4.4, §8): a value with no path to any sink
// is never worth tainting, and marking it anyway would falsely report taint
// flows that diagnostics.go's checkBinary/checkGep never act on.
func bcastInstr(instr ir.Instruction, s *State) bool {
	v, ok := instr.(ir.Value)
	if !ok || !s.SinkReachable[v] {
		return false
	}
	if s.IsTainted(v) {
		return false
	}
	var rands []*ir.Value
	rands = instr.Operands(rands)
	for _, r := range rands {
		if *r != nil && s.IsTainted(*r) {
			return s.MarkTainted(v, s.Tainted[*r].Label)
		}
	}
	return false
}

// taintFromCall taints a CallInst's result when the callee is a known
// taint-propagating function: either a user function already in
// s.TaintFuncs, or the call is itself direct to a recognized source. Gated
// on SinkReachable for the same reason as bcastInstr.
func (s *State) taintFromCall(call *ir.CallInst) bool {
	if !call.IsInt() || !s.SinkReachable[call] {
		return false
	}
	if s.IsTainted(call) {
		return false
	}
	if s.TaintFuncs[call.Callee] {
		return s.MarkTainted(call, call.Callee.Name)
	}
	if call.Callee.IsDeclaration() && s.isSourceFunc(call.Callee.Name) {
		return s.MarkTainted(call, call.Callee.Name)
	}
	return false
}

// buildDependsOn returns, for every value touched in m, the set of values it
// immediately depends on: each instruction's own operands (the ordinary
// per-instruction data dependency), each call argument's corresponding
// callee parameter (interprocedural argument dependency), and each call's
// own result depending on every value the callee ever returns
// (interprocedural return-value dependency). computeSinkReachability walks
// this graph backward from every sink call argument to find every value
// that can reach a sink.
func buildDependsOn(m *ir.Module) map[ir.Value][]ir.Value {
	deps := make(map[ir.Value][]ir.Value)
	callSitesOf := make(map[*ir.Function][]*ir.CallInst)
	for _, f := range m.Funcs {
		if f.IsDeclaration() {
			continue
		}
		f.AllInstructions(func(_ *ir.BasicBlock, instr ir.Instruction) {
			if call, ok := instr.(*ir.CallInst); ok {
				callSitesOf[call.Callee] = append(callSitesOf[call.Callee], call)
			}
		})
	}
	var rands []*ir.Value
	for _, f := range m.Funcs {
		if f.IsDeclaration() {
			continue
		}
		f.AllInstructions(func(_ *ir.BasicBlock, instr ir.Instruction) {
			if v, ok := instr.(ir.Value); ok {
				rands = instr.Operands(rands[:0])
				for _, r := range rands {
					if *r != nil {
						deps[v] = append(deps[v], *r)
					}
				}
			}
			if call, ok := instr.(*ir.CallInst); ok {
				for i, a := range call.Args {
					if i < len(call.Callee.Params) {
						p := ir.Value(call.Callee.Params[i])
						deps[p] = append(deps[p], a)
					}
				}
			}
			if ret, ok := instr.(*ir.ReturnInst); ok && ret.Val != nil {
				for _, call := range callSitesOf[f] {
					deps[ir.Value(call)] = append(deps[ir.Value(call)], ret.Val)
				}
			}
		})
	}
	return deps
}

// computeSinkReachability populates s.SinkReachable with every value that
// can reach a recognized sink's call argument, by walking buildDependsOn's
// graph backward from the seed set of actual sink-call arguments. This must
// run once, after markSinks (the seed depends on s.Sinks) and before
// propagateTaint (which gates on the result).
func computeSinkReachability(m *ir.Module, s *State) {
	deps := buildDependsOn(m)
	var stack []ir.Value
	for _, f := range m.Funcs {
		if f.IsDeclaration() {
			continue
		}
		f.AllInstructions(func(_ *ir.BasicBlock, instr ir.Instruction) {
			call, ok := instr.(*ir.CallInst)
			if !ok || !s.Sinks[call.Callee] {
				return
			}
			for _, a := range call.Args {
				if a != nil && !s.SinkReachable[a] {
					s.SinkReachable[a] = true
					stack = append(stack, a)
				}
			}
		})
	}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range deps[v] {
			if !s.SinkReachable[d] {
				s.SinkReachable[d] = true
				stack = append(stack, d)
			}
		}
	}
}

// seedSourceTaint marks each source call markTaintSources queued tainted,
// but only the ones computeSinkReachability confirmed can actually reach a
// sink — a source with no reachable sink anywhere in the module is left
// untainted, per spec.md §4.4/§8's reachability invariant.
func seedSourceTaint(s *State) {
	for _, p := range s.pendingSources {
		if s.SinkReachable[ir.Value(p.Call)] {
			s.MarkTainted(p.Call, p.Label)
		}
	}
}

// isSinkReachable returns one sinkFlow for every tainted argument passed to a
// call of a recognized sink in fn's instruction stream. taint_bcast_sink in the
// original pass folds this check into the main propagation loop; this
// package keeps it as a direct query used by the diagnostics pass (C7),
// since by the time diagnostics run, propagateTaint has already reached its
// fixed point and every true/false answer is final.
func (s *State) isSinkReachable(fn *ir.Function) []sinkFlow {
	var flows []sinkFlow
	fn.AllInstructions(func(bb *ir.BasicBlock, instr ir.Instruction) {
		call, ok := instr.(*ir.CallInst)
		if !ok || !s.Sinks[call.Callee] {
			return
		}
		for _, a := range call.Args {
			if s.IsTainted(a) {
				flows = append(flows, sinkFlow{Call: call, Arg: a, Label: s.Tainted[a].Label})
			}
		}
	})
	return flows
}

// sinkFlow records one tainted-argument-reaches-sink finding.
type sinkFlow struct {
	Call  *ir.CallInst
	Arg   ir.Value
	Label string
}
