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

import "regexp"

// A NamePattern identifies a function by name, either as a literal prefix
// match (the default, matching the original pass's sys_/__mkint_ann_/sink
// naming convention) or, if Regex is set, as a compiled regular expression.
// This plays the role the original tool's CodeIdentifier plays for
// go/types-based analyses, simplified down to what a flat, name-only IR
// needs: there is no package/receiver/field to match against here.
type NamePattern struct {
	Prefix string `yaml:"prefix"`
	Regex  string `yaml:"regex"`

	compiled *regexp.Regexp
}

// compileRegexes builds the regex, if any, returning a new value (NamePattern
// is stored by value in config slices and yaml.Unmarshal reuses storage).
// Load calls it on every pattern right after unmarshalling.
func compileRegexes(p NamePattern) NamePattern {
	if p.Regex == "" {
		return p
	}
	r, err := regexp.Compile(p.Regex)
	if err != nil {
		return p
	}
	p.compiled = r
	return p
}

// Matches reports whether name satisfies this pattern.
func (p NamePattern) Matches(name string) bool {
	if p.compiled != nil {
		return p.compiled.MatchString(name)
	}
	if p.Regex != "" {
		// Regex requested but failed to compile at load time: never match,
		// rather than silently falling back to a prefix match on garbage.
		return false
	}
	return p.Prefix != "" && len(name) >= len(p.Prefix) && name[:len(p.Prefix)] == p.Prefix
}

// MatchesAny reports whether name satisfies any pattern in ps.
func MatchesAny(ps []NamePattern, name string) bool {
	for _, p := range ps {
		if p.Matches(name) {
			return true
		}
	}
	return false
}
