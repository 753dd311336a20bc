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
	"fmt"

	"github.com/ganler/mkint-go/ir"
)

// SinkFinding is a TAINT(label) + SINK(name) pair: a value reachable from a
// taint source was passed as an argument to a recognized allocation-size
// sink. Reported separately from Diagnostics, since it's a taint-analysis
// finding rather than a range-analysis bug.
type SinkFinding struct {
	Func  *ir.Function
	Call  *ir.CallInst
	Label string
}

// runDiagnostics walks every function once, after both taint propagation and
// range analysis have reached their fixed points, and emits every bug class
// C7 is responsible for: dead branches, out-of-bounds array indices,
// overflow, division by zero, and bad shift amounts.
func runDiagnostics(m *ir.Module, s *State) []SinkFinding {
	var sinkFindings []SinkFinding
	for _, fn := range m.Funcs {
		if fn.IsDeclaration() {
			continue
		}
		fn.AllInstructions(func(bb *ir.BasicBlock, instr ir.Instruction) {
			checkBinary(fn, bb, instr, s)
			checkGep(fn, bb, instr, s)
		})
		for _, bb := range fn.Blocks {
			checkBranch(fn, bb, s)
		}
		for _, flow := range s.isSinkReachable(fn) {
			sinkFindings = append(sinkFindings, SinkFinding{Func: fn, Call: flow.Call, Label: flow.Label})
		}
	}
	return sinkFindings
}

func checkBinary(fn *ir.Function, bb *ir.BasicBlock, instr ir.Instruction, s *State) {
	in, ok := instr.(*ir.BinaryInst)
	if !ok {
		return
	}
	l, r := s.RangeAt(bb, in.LHS), s.RangeAt(bb, in.RHS)
	bits := in.Width()
	switch in.Op {
	case ir.Add:
		if !l.Empty && !r.Empty && !l.Full && !r.Full && l.UnsignedMax() > maskOf(bits)-r.UnsignedMax() {
			s.report(Overflow, in, fn, "addition may overflow")
		}
	case ir.Sub:
		if !l.Empty && !r.Empty && !l.Full && !r.Full && l.UnsignedMin() < r.UnsignedMax() {
			s.report(Overflow, in, fn, "subtraction may underflow")
		}
	case ir.Mul:
		if !l.Empty && !r.Empty && !l.Full && !r.Full {
			lm, rm := l.UnsignedMax(), r.UnsignedMax()
			if lm != 0 && rm > maskOf(bits)/lm {
				s.report(Overflow, in, fn, "multiplication may overflow")
			}
		}
	case ir.UDiv, ir.URem:
		if r.Contains(0) {
			s.report(DivByZero, in, fn, fmt.Sprintf("%s divisor may be zero", in.Op))
		}
	case ir.SDiv, ir.SRem:
		if r.ContainsSigned(0) {
			s.report(DivByZero, in, fn, fmt.Sprintf("%s divisor may be zero", in.Op))
		}
	case ir.Shl, ir.LShr, ir.AShr:
		if r.Full || r.UnsignedMax() >= uint64(bits) {
			s.report(BadShift, in, fn, fmt.Sprintf("%s shift amount may reach or exceed the operand width", in.Op))
		}
	}
}

func checkGep(fn *ir.Function, bb *ir.BasicBlock, instr ir.Instruction, s *State) {
	in, ok := instr.(*ir.GepInst)
	if !ok || in.Base.Len == 0 {
		return
	}
	idx := s.RangeAt(bb, in.Index)
	if idx.Empty {
		return
	}
	if idx.Full || idx.UnsignedMax() >= uint64(in.Base.Len) || idx.SignedMin() < 0 {
		s.report(ArrayOOB, in, fn, fmt.Sprintf("index into %s may be out of bounds [0, %d)", in.Base.Name, in.Base.Len))
	}
}

func checkBranch(fn *ir.Function, bb *ir.BasicBlock, s *State) {
	br, ok := bb.Term().(*ir.BranchInst)
	if !ok || !br.IsConditional() {
		return
	}
	cond := s.RangeAt(bb, br.Cond)
	if v, ok := cond.IsSingleton(); ok {
		if v == 1 {
			s.report(DeadFalseBranch, br, fn, "condition is always true: the false branch is dead")
		} else {
			s.report(DeadTrueBranch, br, fn, "condition is always false: the true branch is dead")
		}
	}
}
