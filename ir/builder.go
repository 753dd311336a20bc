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

// Builder assembles a Module. It is used directly by tests (in place of
// the out-of-scope IR producer) and by the frontend package, which lowers
// real Go source into a Module through the same calls.
type Builder struct {
	Mod    *Module
	nextID int
}

// NewModule starts a new Builder for a module named name.
func NewModule(name string) *Builder {
	return &Builder{Mod: &Module{Name: name}}
}

func (b *Builder) freshName() string {
	b.nextID++
	return fmt.Sprintf("t%d", b.nextID)
}

// Declare adds a declaration-only function (no body) to the module, e.g. an
// external/library function such as a sink.
func (b *Builder) Declare(name string, paramBits []uint32, retBits uint32) *Function {
	f := &Function{Name: name, RetBits: retBits}
	for i, bits := range paramBits {
		f.Params = append(f.Params, &Param{Name_: fmt.Sprintf("arg%d", i), Bits: bits, ArgNo: i, Parent_: f})
	}
	b.Mod.Funcs = append(b.Mod.Funcs, f)
	return f
}

// NewFunc adds a function with a body to the module and returns it together
// with a FuncBuilder to populate its blocks.
func (b *Builder) NewFunc(name string, paramBits []uint32, retBits uint32) (*Function, *FuncBuilder) {
	f := &Function{Name: name, RetBits: retBits}
	for i, bits := range paramBits {
		f.Params = append(f.Params, &Param{Name_: fmt.Sprintf("arg%d", i), Bits: bits, ArgNo: i, Parent_: f})
	}
	b.Mod.Funcs = append(b.Mod.Funcs, f)
	return f, &FuncBuilder{b: b, f: f}
}

// NewGlobalScalar adds an integer scalar global.
func (b *Builder) NewGlobalScalar(name string, bits uint32, hasInit bool, init int64) *Global {
	g := &Global{Name: name, Bits: bits, HasInit: hasInit, Init: init}
	b.Mod.Globals = append(b.Mod.Globals, g)
	return g
}

// NewGlobalArray adds a one-dimensional integer array global of the given length.
func (b *Builder) NewGlobalArray(name string, bits uint32, length int, hasInit bool, init []int64) *Global {
	g := &Global{Name: name, Bits: bits, IsArray: true, Len: length, HasInit: hasInit, ArrInit: init}
	b.Mod.Globals = append(b.Mod.Globals, g)
	return g
}

// FuncBuilder builds the blocks of a single Function.
type FuncBuilder struct {
	b *Builder
	f *Function
}

// NewBlock appends a new, empty basic block to the function.
func (fb *FuncBuilder) NewBlock(name string) *BlockBuilder {
	bb := &BasicBlock{Name: name, Index: len(fb.f.Blocks), Parent: fb.f}
	fb.f.Blocks = append(fb.f.Blocks, bb)
	return &BlockBuilder{fb: fb, bb: bb}
}

// Finish computes every block's Succs from its terminator, and Preds from
// those edges. Call this once all blocks and terminators have been emitted.
func (fb *FuncBuilder) Finish() *Function {
	for _, bb := range fb.f.Blocks {
		bb.Preds = nil
		bb.Succs = nil
	}
	for _, bb := range fb.f.Blocks {
		term := bb.Term()
		if term == nil {
			continue
		}
		bb.Succs = term.Succs()
		for _, s := range term.Succs() {
			s.Preds = append(s.Preds, bb)
		}
	}
	return fb.f
}

// BlockBuilder appends instructions to one BasicBlock.
type BlockBuilder struct {
	fb *FuncBuilder
	bb *BasicBlock
}

// Block returns the BasicBlock this builder appends to, for callers (like
// the frontend package) that need to record it as a branch target before
// every instruction in it has been lowered.
func (bb *BlockBuilder) Block() *BasicBlock { return bb.bb }

func (bb *BlockBuilder) emit(i Instruction) {
	bb.bb.Instrs = append(bb.bb.Instrs, i)
}

// Binary appends a Binary instruction and returns its result value.
func (bb *BlockBuilder) Binary(op BinOp, bits uint32, lhs, rhs Value) *BinaryInst {
	i := &BinaryInst{instrBase: instrBase{bb.bb}, valueBase: valueBase{bb.fb.b.freshName(), bits}, Op: op, LHS: lhs, RHS: rhs}
	bb.emit(i)
	return i
}

// Cast appends a Cast instruction.
func (bb *BlockBuilder) Cast(op CastOp, toBits uint32, x Value) *CastInst {
	i := &CastInst{instrBase: instrBase{bb.bb}, valueBase: valueBase{bb.fb.b.freshName(), toBits}, Op: op, X: x}
	bb.emit(i)
	return i
}

// Select appends a Select instruction.
func (bb *BlockBuilder) Select(bits uint32, cond, t, f Value) *SelectInst {
	i := &SelectInst{instrBase: instrBase{bb.bb}, valueBase: valueBase{bb.fb.b.freshName(), bits}, Cond: cond, T: t, F: f}
	bb.emit(i)
	return i
}

// Phi appends a Phi instruction. Incoming edges can be added after creation
// via AddIncoming, as is natural when building blocks with back-edges.
func (bb *BlockBuilder) Phi(bits uint32) *PhiInst {
	i := &PhiInst{instrBase: instrBase{bb.bb}, valueBase: valueBase{bb.fb.b.freshName(), bits}}
	bb.emit(i)
	return i
}

// AddIncoming adds one incoming edge to a Phi.
func AddIncoming(p *PhiInst, v Value, pred *BasicBlock) {
	p.Incoming = append(p.Incoming, PhiEdge{Val: v, Pred: pred})
}

// Load appends a Load instruction.
func (bb *BlockBuilder) Load(bits uint32, addr Value) *LoadInst {
	i := &LoadInst{instrBase: instrBase{bb.bb}, valueBase: valueBase{bb.fb.b.freshName(), bits}, Addr: addr}
	bb.emit(i)
	return i
}

// Store appends a Store instruction.
func (bb *BlockBuilder) Store(val, addr Value) *StoreInst {
	i := &StoreInst{instrBase: instrBase{bb.bb}, Val: val, Addr: addr}
	bb.emit(i)
	return i
}

// Call appends a Call instruction.
func (bb *BlockBuilder) Call(callee *Function, args ...Value) *CallInst {
	i := &CallInst{instrBase: instrBase{bb.bb}, name: bb.fb.b.freshName(), Callee: callee, Args: args}
	bb.emit(i)
	return i
}

// ICmp appends an ICmp instruction.
func (bb *BlockBuilder) ICmp(pred ICmpPred, lhs, rhs Value) *ICmpInst {
	i := &ICmpInst{instrBase: instrBase{bb.bb}, valueBase: valueBase{bb.fb.b.freshName(), 1}, Pred: pred, LHS: lhs, RHS: rhs}
	bb.emit(i)
	return i
}

// Gep appends a GetElementPtr instruction addressing base[index].
func (bb *BlockBuilder) Gep(base *Global, index Value) *GepInst {
	i := &GepInst{instrBase: instrBase{bb.bb}, name: bb.fb.b.freshName(), Base: base, Index: index}
	bb.emit(i)
	return i
}

// Br appends a conditional branch terminator.
func (bb *BlockBuilder) Br(cond Value, trueBB, falseBB *BasicBlock) *BranchInst {
	i := &BranchInst{instrBase: instrBase{bb.bb}, Cond: cond, True: trueBB, False: falseBB}
	bb.emit(i)
	return i
}

// Jump appends an unconditional branch terminator.
func (bb *BlockBuilder) Jump(dest *BasicBlock) *BranchInst {
	i := &BranchInst{instrBase: instrBase{bb.bb}, Cond: nil, True: dest}
	bb.emit(i)
	return i
}

// Switch appends a Switch terminator.
func (bb *BlockBuilder) Switch(val Value, def *BasicBlock, cases []SwitchCase) *SwitchInst {
	i := &SwitchInst{instrBase: instrBase{bb.bb}, Val: val, Default: def, Cases: cases}
	bb.emit(i)
	return i
}

// Ret appends a Return terminator. Pass nil for a void return.
func (bb *BlockBuilder) Ret(val Value) *ReturnInst {
	i := &ReturnInst{instrBase: instrBase{bb.bb}, Val: val}
	bb.emit(i)
	return i
}

// NewCall constructs a CallInst attached to block under the given name,
// without appending it anywhere. Used by the taint marker (outside the
// ir package) to synthesize `<funcName>.mkint.arg<i>` calls after a
// function has already been built; ordinary call sites should use
// BlockBuilder.Call instead.
func NewCall(block *BasicBlock, name string, callee *Function, args []Value) *CallInst {
	return &CallInst{instrBase: instrBase{block}, name: name, Callee: callee, Args: args}
}

// InsertAt inserts instr at position idx of the block's instruction list,
// used by the taint marker to prepend the synthetic `.mkint.argN` calls at
// the entry block's first insertion point (spec.md §4.3).
func InsertAt(bb *BasicBlock, idx int, instr Instruction) {
	bb.Instrs = append(bb.Instrs, nil)
	copy(bb.Instrs[idx+1:], bb.Instrs[idx:])
	bb.Instrs[idx] = instr
}

// ReplaceUses rewrites every operand in f that points to old into new. Used
// to implement `arg.replaceAllUsesWith(call_inst)` from the original pass.
func ReplaceUses(f *Function, old, new Value) {
	var rands []*Value
	f.AllInstructions(func(_ *BasicBlock, instr Instruction) {
		rands = rands[:0]
		rands = instr.Operands(rands)
		for _, r := range rands {
			if *r == old {
				*r = new
			}
		}
	})
}
