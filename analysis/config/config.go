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

package config

import (
	"fmt"
	"os"

	"github.com/ganler/mkint-go/internal/funcutil"
	"gopkg.in/yaml.v3"
)

// DefaultIterationCap bounds the number of whole-module forward passes the
// range analyzer makes before giving up on reaching a fixed point.
const DefaultIterationCap = 128

var configFile string

// SetGlobalConfig sets the global config filename used by a later LoadGlobal call.
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file set by SetGlobalConfig.
func LoadGlobal() (*Config, error) {
	if configFile == "" {
		return Default(), nil
	}
	return Load(configFile)
}

// Config controls the mkint pass: logging verbosity, the fixed-point
// iteration bound, and the extra source/sink name patterns layered on top of
// the built-in sys_/__mkint_ann_ sources and malloc-family sinks.
type Config struct {
	// LogLevel controls the verbosity of the tool (see LogLevel constants).
	LogLevel int `yaml:"log-level"`

	// IterationCap bounds the range analyzer's whole-module fixed-point loop.
	IterationCap int `yaml:"iteration-cap"`

	// ExtraSources are additional taint-source name patterns, layered on top
	// of the built-in sys_ and __mkint_ann_ prefixes.
	ExtraSources []NamePattern `yaml:"extra-sources"`

	// ExtraSinks are additional sink name patterns, layered on top of the
	// built-in allocation-size sink table.
	ExtraSinks []NamePattern `yaml:"extra-sinks"`

	// ReportTaintPaths is parsed from the config file but nothing reads it:
	// Result.Report always prints the source label next to the sink name.
	ReportTaintPaths bool `yaml:"report-taint-paths"`

	sourceFile string
}

// Default returns a Config at Info log level with the default iteration cap
// and no extra sources or sinks.
func Default() *Config {
	return &Config{
		LogLevel:     int(InfoLevel),
		IterationCap: DefaultIterationCap,
	}
}

// Load reads a YAML configuration from filename.
func Load(filename string) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file: %w", err)
	}
	cfg.sourceFile = filename

	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}
	if cfg.IterationCap <= 0 {
		cfg.IterationCap = DefaultIterationCap
	}

	cfg.ExtraSources = funcutil.Map(cfg.ExtraSources, compileRegexes)
	cfg.ExtraSinks = funcutil.Map(cfg.ExtraSinks, compileRegexes)

	return cfg, nil
}

// Verbose reports whether the configuration verbosity is Debug or above.
func (c Config) Verbose() bool { return c.LogLevel >= int(DebugLevel) }

// SourceFile returns the path this Config was loaded from, or "" if it's the
// zero-value default.
func (c Config) SourceFile() string { return c.sourceFile }
