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

// Package ir models the lowered, typed, SSA-form module that the mkint
// analysis consumes. The producer of this structure (a compiler frontend)
// is out of scope: this package only defines the arena of functions, basic
// blocks, instructions and values that the analysis walks and annotates.
package ir

import "fmt"

// Value is anything an instruction can take as an operand: a constant, a
// function parameter, or the result of another instruction.
//
// Not every Value is integer-typed: GetElementPtr produces an address value
// that participates in Load/Store operands but is never itself the operand
// of an arithmetic instruction. IsInt distinguishes the two.
type Value interface {
	fmt.Stringer
	// IsInt reports whether this value has an integer type.
	IsInt() bool
	// Width returns the bit width of the value. Only meaningful when IsInt() is true.
	Width() uint32
	value()
}

// ConstInt is an integer constant. Constants are never refined by range
// analysis: their interval is always the singleton {Val}.
type ConstInt struct {
	Bits uint32
	Val  int64 // stored as a signed 64-bit value; interpreted per Bits and per operation
}

func (c *ConstInt) value()        {}
func (c *ConstInt) IsInt() bool   { return true }
func (c *ConstInt) Width() uint32 { return c.Bits }
func (c *ConstInt) String() string {
	return fmt.Sprintf("i%d %d", c.Bits, c.Val)
}

// Param is an integer argument of a Function.
type Param struct {
	Name_   string
	Bits    uint32
	ArgNo   int
	Parent_ *Function
}

func (p *Param) value()         {}
func (p *Param) IsInt() bool    { return true }
func (p *Param) Width() uint32  { return p.Bits }
func (p *Param) Parent() *Function { return p.Parent_ }
func (p *Param) String() string {
	return fmt.Sprintf("%%%s", p.Name_)
}
