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
	"flag"
	"fmt"
	"os"

	"github.com/ganler/mkint-go/analysis/config"
	"github.com/ganler/mkint-go/analysis/mkint"
	"github.com/ganler/mkint-go/frontend"
	"github.com/ganler/mkint-go/internal/formatutil"
)

var (
	configFlag    = ""
	jsonFlag      = false
	noColorFlag   = false
	debugCFGFlag  = false
	explainFlag   = ""
	listSinksFlag = false
)

func init() {
	flag.StringVar(&configFlag, "config", "", "path to a mkint YAML config file (extra sources/sinks, iteration cap, log level)")
	flag.BoolVar(&jsonFlag, "json", false, "print diagnostics and sink findings as JSON instead of text")
	flag.BoolVar(&noColorFlag, "no-color", false, "disable ANSI colors in the text report")
	flag.BoolVar(&debugCFGFlag, "debug-cfg", false, "also print every function's natural loop nests (strongly connected CFG components)")
	flag.StringVar(&explainFlag, "explain", "", "print whether the named function is recognized as an allocation-size sink, then exit")
	flag.BoolVar(&listSinksFlag, "list-sinks", false, "print every function recognized as a sink in this module, then exit")
}

const usage = `mkint: taint-and-range static analysis for integer bugs.

Usage:
  mkint [flags] directory

Loads every Go package under directory (same root as "go build ./..."),
lowers their integer/array-of-integer subset to mkint's IR, and runs the
combined taint propagation and interprocedural range analysis over it,
reporting dead branches, out-of-bounds array indices, and integer
overflow/div-by-zero/bad-shift bugs.

Use the -help flag to display the options.

Examples:
  mkint .
  mkint -debug-cfg -config mkint.yaml ./cmd/mytool
`

func main() {
	if err := doMain(); err != nil {
		fmt.Fprintf(os.Stderr, "mkint: %s\n", err)
		os.Exit(1)
	}
}

func doMain() error {
	flag.Parse()

	if len(flag.Args()) != 1 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	dir := flag.Args()[0]

	if configFlag != "" {
		config.SetGlobalConfig(configFlag)
	}
	cfg, err := config.LoadGlobal()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Fprintln(os.Stderr, formatutil.Faint("Reading sources"))

	mod, err := frontend.LoadDir(dir, cfg)
	if err != nil {
		return fmt.Errorf("loading %s: %w", dir, err)
	}

	fmt.Fprintln(os.Stderr, formatutil.Faint("Analyzing"))

	result := mkint.Run(mod, cfg)

	if explainFlag != "" {
		found := result.State.SinkByName(mod, explainFlag)
		if found.IsSome() {
			fmt.Printf("%s is a recognized sink\n", explainFlag)
		} else {
			fmt.Printf("%s is not a recognized sink\n", explainFlag)
		}
		return nil
	}

	if listSinksFlag {
		for _, name := range result.State.SinkNames() {
			fmt.Println(name)
		}
		return nil
	}

	if jsonFlag {
		return printJSON(result)
	}

	fmt.Print(result.Report(!noColorFlag))

	if debugCFGFlag {
		printLoopNests(result, mod)
	}

	return nil
}
