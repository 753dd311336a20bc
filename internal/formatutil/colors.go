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

// Package formatutil renders mkint's report tags (ERR(kind), TAINT(label),
// SINK(name)) and -debug-cfg section headers with terminal color/weight,
// falling back to plain text when stdout isn't a terminal.
package formatutil

import (
	"fmt"

	"golang.org/x/term"
)

var (
	// Bold renders a diagnostic's ERR(kind) tag in pass.go's Report.
	Bold = Color("\033[1m%s\033[0m")

	// Faint renders a -debug-cfg section header (cmd/mkint's loop-nest and
	// reducibility listing) so it reads as secondary to the findings above it.
	Faint = Color("\033[2m%s\033[0m")

	// Red renders a tainted-value-reaches-sink TAINT()/SINK() tag.
	Red = Color("\033[1;31m%s\033[0m")
)

// Color builds a formatter that wraps its arguments in colorString when
// stdout is a terminal, and prints them plain otherwise (e.g. when a report
// is piped or redirected to a file).
func Color(colorString string) func(...interface{}) string {
	result := func(args ...interface{}) string {
		if term.IsTerminal(1) {
			return fmt.Sprintf(colorString,
				fmt.Sprint(args...))
		} else {
			return fmt.Sprint(args...)
		}
	}
	return result
}
