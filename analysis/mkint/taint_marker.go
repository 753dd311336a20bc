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
	"strings"

	"github.com/ganler/mkint-go/analysis/config"
	"github.com/ganler/mkint-go/internal/funcutil"
	"github.com/ganler/mkint-go/ir"
)

// sourcePrefixes are the built-in taint-source naming conventions: a "sys_"
// function is a syscall entry point whose arguments come straight from
// userspace, and a "__mkint_ann_" function is an explicit test/annotation
// marker whose arguments should be treated as tainted regardless of where
// they actually come from.
var sourcePrefixes = []string{"sys_", "__mkint_ann_"}

// sinkNames is the fixed allocation-size sink table, plus the two synthetic
// sinks used by test fixtures.
var sinkNames = map[string]bool{
	"malloc":        true,
	"xmalloc":       true,
	"kmalloc":       true,
	"kzalloc":       true,
	"vmalloc":       true,
	"__mkint_sink0": true,
	"__mkint_sink1": true,
}

func isBuiltinSource(name string) bool {
	return funcutil.Exists(sourcePrefixes, func(p string) bool { return strings.HasPrefix(name, p) })
}

// SinkByName looks up a function in m by name and reports it only if mkint
// actually recognizes it as an allocation-size sink, for the CLI's -explain
// flag (cmd/mkint) to answer "is X a sink?" without exposing the raw Sinks
// map.
func (s *State) SinkByName(m *ir.Module, name string) funcutil.Optional[*ir.Function] {
	return funcutil.FindMap(m.Funcs,
		func(f *ir.Function) *ir.Function { return f },
		func(f *ir.Function) bool { return f.Name == name && s.Sinks[f] },
	)
}

func (s *State) isSourceFunc(name string) bool {
	return isBuiltinSource(name) || config.MatchesAny(s.Cfg.ExtraSources, name)
}

func (s *State) isSinkFunc(name string) bool {
	return sinkNames[name] || config.MatchesAny(s.Cfg.ExtraSinks, name)
}

// markSinks populates s.Sinks with every function in m, declared or defined,
// recognized as an allocation-size sink by name.
func markSinks(m *ir.Module, s *State) {
	for _, f := range m.Funcs {
		if s.isSinkFunc(f.Name) {
			s.Sinks[f] = true
		}
	}
}

// markTaintSources rewrites every used parameter of a recognized source
// function into the result of a synthetic `<funcName>.mkint.arg<i>` call.
// Metadata in the original pass attaches to instructions, not to function
// arguments directly, so replacing each tainted Param with a zero-argument
// call to a declared stand-in function gives taint (and later, range) state
// something to attach to; every existing use of the parameter is rewritten
// in place via ir.ReplaceUses, mirroring the original's
// `arg->replaceAllUsesWith(call_inst)`. A parameter with no uses is left
// alone (spec.md §4.3 rewrites only an argument "that has at least one
// use") — rewriting it would only fabricate a dead synthetic call.
//
// This only rewrites the IR and queues each rewritten call in
// s.pendingSources; it does not itself mark anything tainted. Run (see
// pass.go) calls this once up front so the rewritten calls exist for the
// rest of the pipeline to see, then runs computeSinkReachability and
// seedSourceTaint afterward to decide which pending sources actually reach a
// sink (spec.md §4.4, §8).
func markTaintSources(m *ir.Module, s *State) {
	for _, f := range m.Funcs {
		if f.IsDeclaration() || !s.isSourceFunc(f.Name) {
			continue
		}
		entry := f.Entry()
		if entry == nil {
			continue
		}
		insertAt := 0
		for _, p := range f.Params {
			if !hasUses(f, ir.Value(p)) {
				continue
			}
			stub := m.FuncByName(stubName(f.Name, p.ArgNo))
			if stub == nil {
				stub = &ir.Function{Name: stubName(f.Name, p.ArgNo), RetBits: p.Bits}
				m.Funcs = append(m.Funcs, stub)
			}
			callInst := ir.NewCall(entry, stubName(f.Name, p.ArgNo), stub, nil)
			ir.InsertAt(entry, insertAt, callInst)
			insertAt++
			ir.ReplaceUses(f, ir.Value(p), ir.Value(callInst))
			s.pendingSources = append(s.pendingSources, pendingSource{Call: callInst, Label: f.Name})
		}
	}
}

func stubName(fn string, argNo int) string {
	return fmt.Sprintf("%s.mkint.arg%d", fn, argNo)
}

// hasUses reports whether any instruction in f references v as an operand.
func hasUses(f *ir.Function, v ir.Value) bool {
	found := false
	var rands []*ir.Value
	f.AllInstructions(func(_ *ir.BasicBlock, instr ir.Instruction) {
		if found {
			return
		}
		rands = instr.Operands(rands[:0])
		for _, r := range rands {
			if *r == v {
				found = true
				return
			}
		}
	})
	return found
}

// SinkNames returns every recognized sink function's name, sorted, for the
// CLI's -list-sinks flag.
func (s *State) SinkNames() []string {
	names := make(map[string]bool, len(s.Sinks))
	for f, ok := range s.Sinks {
		if ok {
			names[f.Name] = true
		}
	}
	return funcutil.SetToOrderedSlice(names)
}
