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

// countCallers returns, for every function defined in m, how many CallInst
// sites in the whole module target it.
func countCallers(m *ir.Module) map[*ir.Function]int {
	counts := make(map[*ir.Function]int)
	for _, f := range m.Funcs {
		f.AllInstructions(func(_ *ir.BasicBlock, instr ir.Instruction) {
			if call, ok := instr.(*ir.CallInst); ok {
				counts[call.Callee]++
			}
		})
	}
	return counts
}

// initRanges seeds every function parameter and every global's initial
// value. A parameter starts at Full when nothing in the module constrains
// it: either the function is a recognized taint source (its arguments are
// external input by definition) or it has no callers in this module at all
// (an entry point like main). Every other parameter starts at Empty and is
// narrowed upward as range_analyze.go discovers call sites passing it
// concrete argument ranges — the interprocedural call-argument-narrowing
// step.
func initRanges(m *ir.Module, s *State) {
	callers := countCallers(m)
	for _, f := range m.Funcs {
		if f.IsDeclaration() {
			continue
		}
		entryPoint := callers[f] == 0
		for _, p := range f.Params {
			if s.isSourceFunc(f.Name) || entryPoint {
				s.ForceRange(p, interval.Full(p.Bits))
			} else {
				s.ForceRange(p, interval.Empty(p.Bits))
			}
		}
	}
	initGlobals(m, s)
	classifyAnalysisFuncs(m, s, callers)
}

// classifyAnalysisFuncs builds s.AnalysisFuncs (C5): a function participates
// in the range-analysis fixed point iff it has an integer return type, it is
// in s.TaintFuncs (spec.md §4.5), or it is an entry point (no callers in this
// module). The entry-point case is this port's own extension beyond the
// spec's literal two criteria: an entry point's body is the only place its
// own call sites' literal/constant arguments get pushed into a callee's
// parameter range (stepCall's interprocedural narrowing), so a void,
// non-tainted driver function (e.g. a test's bare `main` calling into the
// functions under analysis) would otherwise never be walked at all, and none
// of its callees would ever see a narrowed argument. See DESIGN.md.
//
// This must run after propagateTaint has reached its fixed point, since the
// TaintFuncs criterion depends on it (pass.go's Run enforces that order).
func classifyAnalysisFuncs(m *ir.Module, s *State, callers map[*ir.Function]int) {
	for _, f := range m.Funcs {
		if f.IsDeclaration() {
			continue
		}
		s.AnalysisFuncs[f] = f.ReturnsInt() || s.TaintFuncs[f] || callers[f] == 0
	}
}

// initGlobals seeds s.GlobalRanges from each global's declared initializer,
// defaulting to the singleton {0} for an uninitialized scalar/array element,
// matching ordinary static zero-initialization semantics.
func initGlobals(m *ir.Module, s *State) {
	for _, g := range m.Globals {
		if g.IsArray {
			if !g.HasInit || len(g.ArrInit) == 0 {
				s.GlobalRanges[g] = interval.Const(g.Bits, 0)
				continue
			}
			r := interval.Const(g.Bits, uint64(g.ArrInit[0]))
			for _, v := range g.ArrInit[1:] {
				r = r.Union(interval.Const(g.Bits, uint64(v)))
			}
			s.GlobalRanges[g] = r
			continue
		}
		if g.HasInit {
			s.GlobalRanges[g] = interval.Const(g.Bits, uint64(g.Init))
		} else {
			s.GlobalRanges[g] = interval.Const(g.Bits, 0)
		}
	}
}
