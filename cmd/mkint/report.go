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

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ganler/mkint-go/analysis/mkint"
	"github.com/ganler/mkint-go/internal/formatutil"
	"github.com/ganler/mkint-go/ir"
)

// jsonDiagnostic and jsonSinkFinding mirror mkint.Diagnostic/SinkFinding in a
// form that marshals cleanly (ir.Instruction has no exported fields worth
// serializing; its String() rendering stands in for it).
type jsonDiagnostic struct {
	Kind     string `json:"kind"`
	Function string `json:"function"`
	Instr    string `json:"instr"`
	Message  string `json:"message"`
}

type jsonSinkFinding struct {
	Function string `json:"function"`
	Sink     string `json:"sink"`
	Label    string `json:"source_label"`
	Call     string `json:"call"`
}

type jsonReport struct {
	Diagnostics  []jsonDiagnostic  `json:"diagnostics"`
	SinkFindings []jsonSinkFinding `json:"sink_findings"`
}

func printJSON(r *mkint.Result) error {
	rep := jsonReport{
		Diagnostics:  make([]jsonDiagnostic, 0, len(r.Diagnostics)),
		SinkFindings: make([]jsonSinkFinding, 0, len(r.SinkFindings)),
	}
	for _, d := range r.Diagnostics {
		rep.Diagnostics = append(rep.Diagnostics, jsonDiagnostic{
			Kind:     d.Kind.String(),
			Function: d.Func.Name,
			Instr:    d.Instr.String(),
			Message:  d.Msg,
		})
	}
	for _, f := range r.SinkFindings {
		rep.SinkFindings = append(rep.SinkFindings, jsonSinkFinding{
			Function: f.Func.Name,
			Sink:     f.Call.Callee.Name,
			Label:    f.Label,
			Call:     f.Call.String(),
		})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// printLoopNests renders every function's natural loop nests for the
// -debug-cfg flag, letting a reader see exactly which blocks the range
// analyzer's back-edge skipping treats as a loop body.
func printLoopNests(r *mkint.Result, mod *ir.Module) {
	for _, fn := range mod.Funcs {
		nests := r.LoopNests(fn)
		if len(nests) == 0 {
			continue
		}
		fmt.Println(formatutil.Faint(fmt.Sprintf("-- %s: %d loop nest(s)", fn.Name, len(nests))))
		for i, n := range nests {
			names := make([]string, len(n.Blocks))
			for j, b := range n.Blocks {
				names[j] = b.Name
			}
			fmt.Printf("  loop %d: %v\n", i, names)
		}
	}
}
