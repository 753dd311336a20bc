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

package interval_test

import (
	"testing"

	"github.com/ganler/mkint-go/analysis/interval"
)

func TestConstIsSingleton(t *testing.T) {
	r := interval.Const(8, 42)
	v, ok := r.IsSingleton()
	if !ok || v != 42 {
		t.Fatalf("expected singleton {42}, got (%d, %v)", v, ok)
	}
	if !r.Contains(42) || r.Contains(41) || r.Contains(43) {
		t.Errorf("Const(8, 42) has wrong membership")
	}
}

func TestEmptyAndFull(t *testing.T) {
	e := interval.Empty(8)
	if !e.IsEmpty() || e.Contains(0) {
		t.Errorf("Empty range must contain nothing")
	}
	f := interval.Full(8)
	if !f.IsFull() || !f.Contains(0) || !f.Contains(255) {
		t.Errorf("Full(8) must contain every 8-bit value")
	}
}

func TestUnionOfAdjacentRanges(t *testing.T) {
	a := interval.Const(8, 10)
	b := interval.Const(8, 11)
	u := a.Union(b)
	if !u.Contains(10) || !u.Contains(11) {
		t.Errorf("union of {10} and {11} must contain both, got %+v", u)
	}
}

func TestUnionWithEmptyIsIdentity(t *testing.T) {
	a := interval.Const(8, 5)
	u := a.Union(interval.Empty(8))
	if v, ok := u.IsSingleton(); !ok || v != 5 {
		t.Errorf("union with Empty must be identity, got %+v", u)
	}
}

func TestUnsignedBoundsOfFull(t *testing.T) {
	f := interval.Full(8)
	if f.UnsignedMin() != 0 || f.UnsignedMax() != 255 {
		t.Errorf("Full(8) unsigned bounds = [%d, %d], want [0, 255]", f.UnsignedMin(), f.UnsignedMax())
	}
}

func TestSignedBoundsOfConstNegative(t *testing.T) {
	r := interval.ConstSigned(8, -1) // 0xFF
	if r.SignedMin() != -1 || r.SignedMax() != -1 {
		t.Errorf("ConstSigned(8, -1) signed bounds = [%d, %d], want [-1, -1]", r.SignedMin(), r.SignedMax())
	}
	if r.UnsignedMax() != 255 {
		t.Errorf("ConstSigned(8, -1) unsigned max = %d, want 255", r.UnsignedMax())
	}
}

func TestContainsSignedZeroDivisor(t *testing.T) {
	r := interval.Full(32)
	if !r.ContainsSigned(0) {
		t.Errorf("Full range must contain signed 0")
	}
	z := interval.ConstSigned(32, 5)
	if z.ContainsSigned(0) {
		t.Errorf("ConstSigned(32, 5) must not contain 0")
	}
}
