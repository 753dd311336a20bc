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

// Package funcutil holds the handful of small functional-style helpers
// mkint actually calls: compiling every configured source/sink NamePattern's
// regex after YAML unmarshal (Map), matching a function name against a list
// of source-prefix predicates (Exists), looking up a named, recognized sink
// (FindMap + Optional), and rendering a set of sink/source names as a
// deterministic, sorted report (SetToOrderedSlice).
package funcutil

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// Map returns a new slice b such that for every i < len(a), b[i] = f(a[i]).
// config.go uses this to compile every ExtraSources/ExtraSinks NamePattern's
// regex once, right after YAML unmarshal.
func Map[T any, S any](a []T, f func(T) S) []S {
	var b []S
	for _, x := range a {
		b = append(b, f(x))
	}
	return b
}

// Exists returns true when there exists some x in slice a such that f(x),
// otherwise false. taint_marker.go uses this to test a function's name
// against every recognized source prefix ("sys_", "__mkint_ann_").
func Exists[T any](a []T, f func(T) bool) bool {
	for _, x := range a {
		if f(x) {
			return true
		}
	}
	return false
}

// FindMap returns Some(f(x)) when there exists some x in slice a such that
// p(f(x)), otherwise None. State.SinkByName uses this to answer "is this
// named function a recognized sink?" without exposing the raw Sinks map.
func FindMap[T any, R any](a []T, f func(T) R, p func(R) bool) Optional[R] {
	for _, x := range a {
		b := f(x)
		if p(b) {
			return Some(b)
		}
	}
	return None[R]()
}

// SetToOrderedSlice converts a set represented as a map from elements to
// booleans into a sorted slice. State.SinkNames uses this to give the CLI's
// -list-sinks flag a deterministic report instead of map-iteration order.
func SetToOrderedSlice[T constraints.Ordered](set map[T]bool) []T {
	var s []T
	for r, b := range set {
		if b {
			s = append(s, r)
		}
	}
	sort.Slice(s, func(i int, j int) bool { return s[i] < s[j] })
	return s
}
