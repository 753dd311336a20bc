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

import (
	"fmt"
	"strings"
)

// BinOp is the opcode of a Binary instruction.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	UDiv
	SDiv
	URem
	SRem
	Shl
	LShr
	AShr
	And
	Or
	Xor
)

func (op BinOp) String() string {
	return [...]string{"add", "sub", "mul", "udiv", "sdiv", "urem", "srem", "shl", "lshr", "ashr", "and", "or", "xor"}[op]
}

// IsSigned reports whether op's two's-complement result depends on interpreting
// its operands as signed. See SPEC_FULL.md §4 (auto_promote resolution).
func (op BinOp) IsSigned() bool {
	switch op {
	case SDiv, SRem, AShr:
		return true
	default:
		return false
	}
}

// CastOp is the opcode of a Cast instruction.
type CastOp int

const (
	Trunc CastOp = iota
	ZExt
	SExt
)

func (op CastOp) String() string {
	return [...]string{"trunc", "zext", "sext"}[op]
}

// ICmpPred is an integer-comparison predicate, named after LLVM's icmp predicates
// since the spec's IR is modeled after LLVM IR.
type ICmpPred int

const (
	ICmpEQ ICmpPred = iota
	ICmpNE
	ICmpUGT
	ICmpUGE
	ICmpULT
	ICmpULE
	ICmpSGT
	ICmpSGE
	ICmpSLT
	ICmpSLE
)

func (p ICmpPred) String() string {
	return [...]string{"eq", "ne", "ugt", "uge", "ult", "ule", "sgt", "sge", "slt", "sle"}[p]
}

// Swapped returns the predicate for (rhs, lhs) given (lhs, rhs) op.
func (p ICmpPred) Swapped() ICmpPred {
	switch p {
	case ICmpUGT:
		return ICmpULT
	case ICmpUGE:
		return ICmpULE
	case ICmpULT:
		return ICmpUGT
	case ICmpULE:
		return ICmpUGE
	case ICmpSGT:
		return ICmpSLT
	case ICmpSGE:
		return ICmpSLE
	case ICmpSLT:
		return ICmpSGT
	case ICmpSLE:
		return ICmpSGE
	default:
		return p // eq, ne are symmetric
	}
}

// Inverse returns the predicate for the negation of the comparison.
func (p ICmpPred) Inverse() ICmpPred {
	switch p {
	case ICmpEQ:
		return ICmpNE
	case ICmpNE:
		return ICmpEQ
	case ICmpUGT:
		return ICmpULE
	case ICmpUGE:
		return ICmpULT
	case ICmpULT:
		return ICmpUGE
	case ICmpULE:
		return ICmpUGT
	case ICmpSGT:
		return ICmpSLE
	case ICmpSGE:
		return ICmpSLT
	case ICmpSLT:
		return ICmpSGE
	case ICmpSLE:
		return ICmpSGT
	default:
		panic("unreachable")
	}
}

// Instruction is a single operation inside a BasicBlock. Instructions form a
// closed, fixed sum type: the analyzer dispatches on the concrete type with a
// type switch rather than through virtual methods (see spec.md §9).
type Instruction interface {
	fmt.Stringer
	// Block returns the basic block this instruction belongs to.
	Block() *BasicBlock
	// Operands appends pointers to this instruction's operand slots to rands
	// and returns the result, mirroring golang.org/x/tools/go/ssa's
	// Instruction.Operands contract. The pointers allow in-place rewriting
	// (used by the taint marker to replace source-argument uses).
	Operands(rands []*Value) []*Value
	instr()
}

// Terminator is an Instruction that ends a BasicBlock.
type Terminator interface {
	Instruction
	Succs() []*BasicBlock
}

type instrBase struct {
	block *BasicBlock
}

func (b *instrBase) Block() *BasicBlock { return b.block }
func (b *instrBase) instr()             {}

// valueBase is embedded by instructions that also define a Value.
type valueBase struct {
	name string
	bits uint32
}

func (v *valueBase) IsInt() bool   { return true }
func (v *valueBase) Width() uint32 { return v.bits }
func (v *valueBase) value()        {}

// BinaryInst computes LHS op RHS.
type BinaryInst struct {
	instrBase
	valueBase
	Op       BinOp
	LHS, RHS Value
}

func (i *BinaryInst) Operands(rands []*Value) []*Value {
	return append(rands, &i.LHS, &i.RHS)
}
func (i *BinaryInst) String() string {
	return fmt.Sprintf("%%%s = %s %s, %s", i.name, i.Op, i.LHS, i.RHS)
}

// CastInst converts X to a (possibly different) bit width.
type CastInst struct {
	instrBase
	valueBase
	Op CastOp
	X  Value
}

func (i *CastInst) Operands(rands []*Value) []*Value { return append(rands, &i.X) }
func (i *CastInst) String() string {
	return fmt.Sprintf("%%%s = %s %s to i%d", i.name, i.Op, i.X, i.bits)
}

// SelectInst chooses T or F depending on Cond (not statically known).
type SelectInst struct {
	instrBase
	valueBase
	Cond Value
	T, F Value
}

func (i *SelectInst) Operands(rands []*Value) []*Value {
	return append(rands, &i.Cond, &i.T, &i.F)
}
func (i *SelectInst) String() string {
	return fmt.Sprintf("%%%s = select %s, %s, %s", i.name, i.Cond, i.T, i.F)
}

// PhiEdge is one incoming (value, predecessor) pair of a Phi.
type PhiEdge struct {
	Val  Value
	Pred *BasicBlock
}

// PhiInst merges values flowing in from predecessor blocks.
type PhiInst struct {
	instrBase
	valueBase
	Incoming []PhiEdge
}

func (i *PhiInst) Operands(rands []*Value) []*Value {
	for k := range i.Incoming {
		rands = append(rands, &i.Incoming[k].Val)
	}
	return rands
}
func (i *PhiInst) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%%%s = phi ", i.name)
	for k, e := range i.Incoming {
		if k > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "[%s, %s]", e.Val, e.Pred.Name)
	}
	return sb.String()
}

// LoadInst reads the value at Addr. Addr is either a *Global (scalar) or a
// *GepInst (one-dimensional array element); any other address form is
// unknown to the analysis.
type LoadInst struct {
	instrBase
	valueBase
	Addr Value
}

func (i *LoadInst) Operands(rands []*Value) []*Value { return append(rands, &i.Addr) }
func (i *LoadInst) String() string {
	return fmt.Sprintf("%%%s = load %s", i.name, i.Addr)
}

// StoreInst writes Val to Addr. Void: it does not define a value.
type StoreInst struct {
	instrBase
	Val, Addr Value
}

func (i *StoreInst) Operands(rands []*Value) []*Value { return append(rands, &i.Val, &i.Addr) }
func (i *StoreInst) String() string {
	return fmt.Sprintf("store %s, %s", i.Val, i.Addr)
}

// CallInst calls Callee with Args. If Callee's return type is integer, the
// call also defines a value (IsInt()/Width() delegate to Callee's return type).
type CallInst struct {
	instrBase
	name    string
	Callee  *Function
	Args    []Value
}

func (i *CallInst) IsInt() bool   { return i.Callee.RetBits > 0 }
func (i *CallInst) Width() uint32 { return i.Callee.RetBits }
func (i *CallInst) value()        {}
func (i *CallInst) Operands(rands []*Value) []*Value {
	for k := range i.Args {
		rands = append(rands, &i.Args[k])
	}
	return rands
}
func (i *CallInst) String() string {
	var args []string
	for _, a := range i.Args {
		args = append(args, a.String())
	}
	if i.IsInt() {
		return fmt.Sprintf("%%%s = call %s(%s)", i.name, i.Callee.Name, strings.Join(args, ", "))
	}
	return fmt.Sprintf("call %s(%s)", i.Callee.Name, strings.Join(args, ", "))
}

// ICmpInst compares LHS and RHS under Pred, producing an i1 result.
type ICmpInst struct {
	instrBase
	valueBase // bits is always 1
	Pred      ICmpPred
	LHS, RHS  Value
}

func (i *ICmpInst) Operands(rands []*Value) []*Value { return append(rands, &i.LHS, &i.RHS) }
func (i *ICmpInst) String() string {
	return fmt.Sprintf("%%%s = icmp %s %s, %s", i.name, i.Pred, i.LHS, i.RHS)
}

// GepInst computes the address of Base[Index] for a one-dimensional integer
// array global. It defines an address value (IsInt() is false).
type GepInst struct {
	instrBase
	name  string
	Base  *Global
	Index Value
}

func (i *GepInst) IsInt() bool   { return false }
func (i *GepInst) Width() uint32 { return 0 }
func (i *GepInst) value()        {}
func (i *GepInst) Operands(rands []*Value) []*Value { return append(rands, &i.Index) }
func (i *GepInst) String() string {
	return fmt.Sprintf("%%%s = getelementptr %s, %s", i.name, i.Base.Name, i.Index)
}

// BranchInst is a conditional or unconditional branch terminator. Cond is
// nil for an unconditional jump to True.
type BranchInst struct {
	instrBase
	Cond        Value
	True, False *BasicBlock
}

func (i *BranchInst) Operands(rands []*Value) []*Value {
	if i.Cond != nil {
		return append(rands, &i.Cond)
	}
	return rands
}
func (i *BranchInst) Succs() []*BasicBlock {
	if i.Cond == nil {
		return []*BasicBlock{i.True}
	}
	return []*BasicBlock{i.True, i.False}
}
func (i *BranchInst) IsConditional() bool { return i.Cond != nil }
func (i *BranchInst) String() string {
	if i.Cond == nil {
		return fmt.Sprintf("br %s", i.True.Name)
	}
	return fmt.Sprintf("br %s, %s, %s", i.Cond, i.True.Name, i.False.Name)
}

// SwitchCase is one (constant, destination) arm of a Switch.
type SwitchCase struct {
	Const int64
	Dest  *BasicBlock
}

// SwitchInst dispatches on Val to one of Cases, or Default.
type SwitchInst struct {
	instrBase
	Val     Value
	Default *BasicBlock
	Cases   []SwitchCase
}

func (i *SwitchInst) Operands(rands []*Value) []*Value { return append(rands, &i.Val) }
func (i *SwitchInst) Succs() []*BasicBlock {
	succs := make([]*BasicBlock, 0, len(i.Cases)+1)
	succs = append(succs, i.Default)
	for _, c := range i.Cases {
		succs = append(succs, c.Dest)
	}
	return succs
}
func (i *SwitchInst) String() string {
	var cs []string
	for _, c := range i.Cases {
		cs = append(cs, fmt.Sprintf("%d -> %s", c.Const, c.Dest.Name))
	}
	return fmt.Sprintf("switch %s, default %s [%s]", i.Val, i.Default.Name, strings.Join(cs, "; "))
}

// ReturnInst returns Val (nil for a void function) from the enclosing Function.
type ReturnInst struct {
	instrBase
	Val Value
}

func (i *ReturnInst) Operands(rands []*Value) []*Value {
	if i.Val != nil {
		return append(rands, &i.Val)
	}
	return rands
}
func (i *ReturnInst) Succs() []*BasicBlock { return nil }
func (i *ReturnInst) String() string {
	if i.Val == nil {
		return "ret"
	}
	return fmt.Sprintf("ret %s", i.Val)
}

// Name returns the SSA name of an instruction that defines a value, or ""
// for void instructions (Store/Return/Branch/Switch).
func Name(v Value) string {
	switch i := v.(type) {
	case *BinaryInst:
		return i.name
	case *CastInst:
		return i.name
	case *SelectInst:
		return i.name
	case *PhiInst:
		return i.name
	case *LoadInst:
		return i.name
	case *CallInst:
		return i.name
	case *ICmpInst:
		return i.name
	case *GepInst:
		return i.name
	case *Param:
		return i.Name_
	case *ConstInt:
		return i.String()
	default:
		return ""
	}
}
