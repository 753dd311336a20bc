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

package ir

import "fmt"

// BasicBlock is an ordered list of instructions ending in a Terminator.
// Preds and Succs are maintained by the builder (see builder.go) the same
// way golang.org/x/tools/go/ssa.BasicBlock keeps explicit Preds/Succs
// slices rather than recomputing them from terminators each time.
type BasicBlock struct {
	Name   string
	Index  int
	Instrs []Instruction
	Preds  []*BasicBlock
	Succs  []*BasicBlock
	Parent *Function
}

// Term returns the block's terminator, or nil if the block is not yet closed.
func (b *BasicBlock) Term() Terminator {
	if len(b.Instrs) == 0 {
		return nil
	}
	t, _ := b.Instrs[len(b.Instrs)-1].(Terminator)
	return t
}

func (b *BasicBlock) String() string { return b.Name }

// Function is a named, typed, sequence of basic blocks. A declaration-only
// function (no body known to the module) has Blocks == nil.
type Function struct {
	Name    string
	Params  []*Param
	RetBits uint32 // 0 if the function does not return an integer
	Blocks  []*BasicBlock
}

// IsDeclaration reports whether F's body is unknown to this module.
func (f *Function) IsDeclaration() bool { return f.Blocks == nil }

// ReturnsInt reports whether F has an integer return type.
func (f *Function) ReturnsInt() bool { return f.RetBits > 0 }

// Entry returns the function's entry block.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// AllInstructions visits every instruction in F, in block order.
func (f *Function) AllInstructions(do func(*BasicBlock, Instruction)) {
	for _, b := range f.Blocks {
		for _, instr := range b.Instrs {
			do(b, instr)
		}
	}
}

func (f *Function) String() string { return f.Name }

// Global is a module-scope integer scalar or one-dimensional integer array.
type Global struct {
	Name     string
	Bits     uint32
	IsArray  bool
	Len      int // only meaningful if IsArray
	HasInit  bool
	Init     int64   // scalar initializer, if HasInit && !IsArray
	ArrInit  []int64 // array initializer, if HasInit && IsArray (len == Len)
}

func (g *Global) value()        {}
func (g *Global) IsInt() bool   { return !g.IsArray }
func (g *Global) Width() uint32 { return g.Bits }
func (g *Global) String() string {
	return fmt.Sprintf("@%s", g.Name)
}

// Module is the top-level container: an ordered set of functions and
// globals. It is read-only once built; the mkint pass never mutates the
// structure, only the side-table of annotations it keeps in its own state.
type Module struct {
	Name    string
	Funcs   []*Function
	Globals []*Global
}

// FuncByName returns the function named n, or nil.
func (m *Module) FuncByName(n string) *Function {
	for _, f := range m.Funcs {
		if f.Name == n {
			return f
		}
	}
	return nil
}
