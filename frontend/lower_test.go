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

package frontend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ganler/mkint-go/analysis/mkint"
)

// writeTempPackage persists a tiny, self-contained Go package to a fresh
// temp directory and returns its path, the same write-then-load shape the
// pack's own test helpers use for exercising a real packages.Load.
func writeTempPackage(t *testing.T, goMod, source string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(goMod), 0o644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte(source), 0o644); err != nil {
		t.Fatalf("write main.go: %v", err)
	}
	return dir
}

const tinyGoMod = "module tinypkg\n\ngo 1.21\n"

func TestLoadDir_DeadBranch(t *testing.T) {
	src := `package main

func clamp(x uint8) uint8 {
	if x > 200 {
		return 200
	}
	return x
}

func addOne(x uint8) uint8 {
	return x + 1
}

func alwaysTrue(x uint8) uint8 {
	y := clamp(x)
	if y <= 200 {
		return addOne(y)
	}
	return 0
}

func main() {
	_ = alwaysTrue(5)
}
`
	dir := writeTempPackage(t, tinyGoMod, src)
	mod, err := LoadDir(dir, nil)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if mod.FuncByName("clamp") == nil {
		t.Fatalf("expected clamp to be lowered into the module")
	}
	if mod.FuncByName("addOne") == nil {
		t.Fatalf("expected addOne to be lowered into the module")
	}

	result := mkint.Run(mod, nil)
	var sawDeadBranch bool
	for _, d := range result.Diagnostics {
		if d.Kind == mkint.DeadFalseBranch || d.Kind == mkint.DeadTrueBranch {
			sawDeadBranch = true
		}
	}
	if !sawDeadBranch {
		t.Errorf("expected alwaysTrue's always-true comparison to be flagged as a dead branch, got %+v", result.Diagnostics)
	}
}

func TestLoadDir_TaintToSink(t *testing.T) {
	src := `package main

func xmalloc(size uint64) uint64

func sys_read_size() uint64

func handle() uint64 {
	n := sys_read_size()
	return xmalloc(n)
}

func main() {
	_ = handle()
}
`
	dir := writeTempPackage(t, tinyGoMod, src)
	mod, err := LoadDir(dir, nil)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	result := mkint.Run(mod, nil)
	if len(result.SinkFindings) == 0 {
		t.Errorf("expected a tainted-value-reaches-sink finding for handle(), got none; diagnostics=%+v", result.Diagnostics)
	}
}

func TestLoadDir_UnsupportedSignatureIsSkipped(t *testing.T) {
	src := `package main

func usesSlice(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

func main() {
	_ = usesSlice([]int{1, 2, 3})
}
`
	dir := writeTempPackage(t, tinyGoMod, src)
	mod, err := LoadDir(dir, nil)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	// usesSlice takes a slice parameter, out of the lowered integer/array
	// subset, so it must not be declared at all (declareSignature rejects it
	// before a body is ever attempted).
	if mod.FuncByName("usesSlice") != nil {
		t.Errorf("expected usesSlice to be skipped entirely, found it in the module")
	}
}
