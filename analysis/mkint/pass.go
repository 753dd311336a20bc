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
	"github.com/ganler/mkint-go/internal/formatutil"
	"github.com/ganler/mkint-go/ir"
)

// Result is the outcome of one Run: every bug/dead-branch diagnostic, every
// tainted-value-reaches-sink finding, and the State they were computed from
// (exposed so callers can inspect individual value ranges, e.g. in tests).
type Result struct {
	Diagnostics  []Diagnostic
	SinkFindings []SinkFinding
	State        *State
}

// Run executes the full mkint pipeline over m: mark sinks, rewrite taint
// sources (without seeding taint yet), compute which values can actually
// reach a sink, seed taint only on the sources that clear that bar, propagate
// taint to a fixed point, seed and classify ranges (range classification
// depends on the now-final TaintFuncs), analyze ranges to a fixed point,
// then classify bugs. cfg may be nil, in which case config.Default()
// is used.
func Run(m *ir.Module, cfg *config.Config) *Result {
	s := NewState(cfg)
	log := config.NewLogGroup(s.Cfg)

	log.Infof("mkint: analyzing module %q (%d functions, %d globals)", m.Name, len(m.Funcs), len(m.Globals))

	markSinks(m, s)
	log.Debugf("mkint: recognized %d sink functions", len(s.Sinks))

	markTaintSources(m, s)
	log.Debugf("mkint: rewrote taint sources")

	computeSinkReachability(m, s)
	log.Debugf("mkint: %d values can reach a recognized sink", len(s.SinkReachable))

	seedSourceTaint(s)

	propagateTaint(m, s)
	log.Debugf("mkint: taint propagation reached a fixed point, %d tainted values, %d taint-propagating functions",
		len(s.Tainted), len(s.TaintFuncs))

	initRanges(m, s)
	analyzed := 0
	for _, ok := range s.AnalysisFuncs {
		if ok {
			analyzed++
		}
	}
	log.Debugf("mkint: %d functions classified for range analysis", analyzed)

	analyzeRanges(m, s)
	log.Debugf("mkint: range analysis reached a fixed point (or hit the %d-iteration cap)", s.Cfg.IterationCap)

	sinkFindings := runDiagnostics(m, s)
	log.Infof("mkint: found %d diagnostics, %d tainted-sink flows", len(s.Diagnostics), len(sinkFindings))

	return &Result{Diagnostics: s.Diagnostics, SinkFindings: sinkFindings, State: s}
}

// Report renders r as human-readable lines, one finding per line, using the
// TAINT(label)/SINK(name)/ERR(kind) annotation vocabulary the pass reports
// findings under.
func (r *Result) Report(colorize bool) string {
	var sb strings.Builder
	for _, d := range r.Diagnostics {
		tag := formatutil.Bold(fmt.Sprintf("ERR(%s)", d.Kind))
		if !colorize {
			tag = fmt.Sprintf("ERR(%s)", d.Kind)
		}
		fmt.Fprintf(&sb, "%s %s: %s: %s\n", tag, d.Func.Name, d.Instr, d.Msg)
	}
	for _, f := range r.SinkFindings {
		tag := fmt.Sprintf("TAINT(%s) SINK(%s)", f.Label, f.Call.Callee.Name)
		if colorize {
			tag = formatutil.Red(tag)
		}
		fmt.Fprintf(&sb, "%s %s: %s\n", tag, f.Func.Name, f.Call)
	}
	return sb.String()
}
