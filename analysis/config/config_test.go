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

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ganler/mkint-go/analysis/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if cfg.IterationCap != config.DefaultIterationCap {
		t.Errorf("expected default IterationCap %d, got %d", config.DefaultIterationCap, cfg.IterationCap)
	}
	if cfg.Verbose() {
		t.Errorf("default config must not be verbose")
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mkint.yaml")
	yaml := "log-level: 4\niteration-cap: 16\nextra-sources:\n  - prefix: my_source_\nextra-sinks:\n  - regex: \"^my_alloc_.*\"\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IterationCap != 16 {
		t.Errorf("expected IterationCap 16, got %d", cfg.IterationCap)
	}
	if !cfg.Verbose() {
		t.Errorf("log-level 4 (Debug) must be verbose")
	}
	if !config.MatchesAny(cfg.ExtraSources, "my_source_size") {
		t.Errorf("expected my_source_size to match the configured prefix pattern")
	}
	if !config.MatchesAny(cfg.ExtraSinks, "my_alloc_buf") {
		t.Errorf("expected my_alloc_buf to match the configured regex pattern")
	}
	if cfg.SourceFile() != path {
		t.Errorf("expected SourceFile() == %q, got %q", path, cfg.SourceFile())
	}
}

func TestNamePatternPrefix(t *testing.T) {
	p := config.NamePattern{Prefix: "sys_"}
	if !p.Matches("sys_read") {
		t.Errorf("expected sys_read to match prefix sys_")
	}
	if p.Matches("xsys_read") {
		t.Errorf("did not expect xsys_read to match prefix sys_")
	}
}
