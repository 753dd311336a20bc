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

// Package frontend lowers a restricted subset of real Go source into an
// ir.Module: integer arithmetic, comparisons, conditional/unconditional
// branches, phis, calls between functions in the loaded package set, and
// loads/stores of package-scope integer scalars and one-dimensional integer
// arrays. Anything outside that subset (pointers to locals, slices, maps,
// interfaces, goroutines, generics, methods) is out of scope. A function
// whose signature is outside the subset (a non-integer parameter or result,
// several results, a method, a variadic or generic function) is left out of
// the module entirely; a function whose body uses anything outside it is
// lowered as a declaration (its body is dropped, a warning is logged)
// rather than failing the whole module, mirroring how the teacher's own
// loader tolerates partially-unsupported packages.
//
// This package is genuinely outside the analysis core: analysis/mkint never
// imports go/ssa, and nothing here is required to run the pass against an
// ir.Module built directly (e.g. with ir/builder.go, as the analysis and ir
// tests do). It exists for the CLI's directory argument and for integration
// tests that want to drive the pass from small Go source snippets instead
// of hand-built IR.
package frontend

import (
	"fmt"
	"go/constant"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/ganler/mkint-go/analysis/config"
	"github.com/ganler/mkint-go/ir"
)

const packagesLoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedTypes |
	packages.NeedTypesSizes |
	packages.NeedSyntax |
	packages.NeedTypesInfo

// LoadDir loads every package under dir (Go package pattern "./..."),
// builds their SSA form, and lowers every lowerable function into a single
// ir.Module named after dir. cfg may be nil, in which case config.Default()
// is used for logging the per-function lowering warnings.
func LoadDir(dir string, cfg *config.Config) (*ir.Module, error) {
	pcfg := &packages.Config{
		Dir:  dir,
		Mode: packagesLoadMode,
		Fset: token.NewFileSet(),
	}
	pkgs, err := packages.Load(pcfg, "./...")
	if err != nil {
		return nil, fmt.Errorf("frontend: loading packages in %s: %w", dir, err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		return nil, fmt.Errorf("frontend: %s has type/parse errors, see above", dir)
	}
	prog, ssaPkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()

	var nonNil []*ssa.Package
	for _, p := range ssaPkgs {
		if p != nil {
			nonNil = append(nonNil, p)
		}
	}
	return Lower(dir, nonNil, cfg)
}

// Lower lowers every supported function across pkgs into a single named
// ir.Module. LoadDir calls it after loading packages from disk; it can also
// be called directly on the packages of an in-memory ssa.Program.
func Lower(name string, pkgs []*ssa.Package, cfg *config.Config) (*ir.Module, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	log := config.NewLogGroup(cfg)
	b := ir.NewModule(name)
	lw := &lowerer{
		b:        b,
		log:      log,
		funcs:    make(map[*ssa.Function]*ir.Function),
		builders: make(map[*ssa.Function]*ir.FuncBuilder),
		globals:  make(map[*ssa.Global]*ir.Global),
	}

	// Pass 1: declare every lowerable function's signature and every global,
	// so call/load/store sites lowered in any order can already resolve
	// their target.
	var ssaFuncs []*ssa.Function
	for _, p := range pkgs {
		for _, member := range p.Members {
			switch m := member.(type) {
			case *ssa.Function:
				if lw.declareSignature(m) {
					ssaFuncs = append(ssaFuncs, m)
				}
			case *ssa.Global:
				lw.declareGlobal(m)
			}
		}
	}

	// Pass 2: lower bodies. A function whose body uses something out of
	// scope is demoted to a declaration rather than aborting the module.
	for _, fn := range ssaFuncs {
		if fn.Blocks == nil {
			continue // already an external declaration (no body in this package set)
		}
		target := lw.funcs[fn]
		if err := lw.lowerBody(fn, target); err != nil {
			log.Warnf("frontend: dropping body of %s, falling back to a declaration: %v", fn.Name(), err)
			target.Blocks = nil
		}
	}

	return b.Mod, nil
}

type lowerer struct {
	b        *ir.Builder
	log      *config.LogGroup
	funcs    map[*ssa.Function]*ir.Function
	builders map[*ssa.Function]*ir.FuncBuilder
	globals  map[*ssa.Global]*ir.Global
}

// intType reports the bit width and signedness of t if t's underlying type
// is a scoped integer or bool; ok is false for anything else (strings,
// slices, structs, pointers to non-global things, etc).
func intType(t types.Type) (bits uint32, unsigned bool, ok bool) {
	basic, isBasic := t.Underlying().(*types.Basic)
	if !isBasic {
		return 0, false, false
	}
	switch basic.Kind() {
	case types.Bool:
		return 1, true, true
	case types.Int8:
		return 8, false, true
	case types.Uint8:
		return 8, true, true
	case types.Int16:
		return 16, false, true
	case types.Uint16:
		return 16, true, true
	case types.Int32:
		return 32, false, true
	case types.Uint32:
		return 32, true, true
	case types.Int64:
		return 64, false, true
	case types.Uint64:
		return 64, true, true
	case types.Int:
		return 64, false, true
	case types.Uint, types.Uintptr:
		return 64, true, true
	default:
		return 0, false, false
	}
}

// arrayElem reports the element bit width and array length of t if t is a
// pointer to a one-dimensional array of a scoped integer type (the shape
// ssa.Global gives package-scope `var a [N]intK`).
func arrayElem(t types.Type) (elemBits uint32, length int, ok bool) {
	ptr, isPtr := t.(*types.Pointer)
	if !isPtr {
		return 0, 0, false
	}
	arr, isArr := ptr.Elem().Underlying().(*types.Array)
	if !isArr {
		return 0, 0, false
	}
	bits, _, ok := intType(arr.Elem())
	if !ok {
		return 0, 0, false
	}
	return bits, int(arr.Len()), true
}

// declareSignature registers fn's ir.Function signature, if every parameter
// and the (at most one) result is a scoped integer type and fn is not a
// method, closure, or generic instantiation. Returns false to skip fn
// entirely: it will simply not exist as a callable in the lowered module,
// and any call site targeting it fails lowering (see resolveCallee).
func (lw *lowerer) declareSignature(fn *ssa.Function) bool {
	sig := fn.Signature
	if sig.Recv() != nil {
		return false // methods: out of scope, no receiver-object model
	}
	if sig.Variadic() {
		return false
	}
	if fn.TypeParams().Len() > 0 {
		return false
	}
	var paramBits []uint32
	for _, p := range fn.Params {
		bits, _, ok := intType(p.Type())
		if !ok {
			return false
		}
		paramBits = append(paramBits, bits)
	}
	var retBits uint32
	switch fn.Signature.Results().Len() {
	case 0:
		retBits = 0
	case 1:
		bits, _, ok := intType(fn.Signature.Results().At(0).Type())
		if !ok {
			return false
		}
		retBits = bits
	default:
		return false // multi-return: out of scope
	}
	if fn.Blocks == nil {
		lw.funcs[fn] = lw.b.Declare(fn.Name(), paramBits, retBits)
		return true
	}
	f, fb := lw.b.NewFunc(fn.Name(), paramBits, retBits)
	lw.funcs[fn] = f
	lw.builders[fn] = fb
	return true
}

func (lw *lowerer) declareGlobal(gv *ssa.Global) {
	ptr, ok := gv.Type().(*types.Pointer)
	if !ok {
		return
	}
	if bits, _, ok := intType(ptr.Elem()); ok {
		lw.globals[gv] = lw.b.NewGlobalScalar(gv.Name(), bits, false, 0)
		return
	}
	if elemBits, length, ok := arrayElem(gv.Type()); ok {
		lw.globals[gv] = lw.b.NewGlobalArray(gv.Name(), elemBits, length, false, nil)
	}
	// Anything else (string, slice, struct, map globals): left out of
	// lw.globals; a reference to it in a function body makes that function
	// fail to lower (see resolveAddr), demoting it to a declaration.
}

// funcState holds the per-function lowering context built while lowerBody
// walks fn's instructions in block order.
type funcState struct {
	blocks    map[*ssa.BasicBlock]*ir.BasicBlock
	builders  map[*ssa.BasicBlock]*ir.BlockBuilder
	values    map[ssa.Value]ir.Value
	deferPhis []deferredPhi
}

type deferredPhi struct {
	ssaPhi *ssa.Phi
	irPhi  *ir.PhiInst
}

func (lw *lowerer) lowerBody(fn *ssa.Function, target *ir.Function) error {
	fb := lw.builders[fn]
	fst := &funcState{
		blocks:   make(map[*ssa.BasicBlock]*ir.BasicBlock),
		builders: make(map[*ssa.BasicBlock]*ir.BlockBuilder),
		values:   make(map[ssa.Value]ir.Value),
	}

	for i, p := range fn.Params {
		fst.values[p] = target.Params[i]
	}

	for _, bb := range fn.Blocks {
		bldr := fb.NewBlock(blockName(bb))
		fst.blocks[bb] = bldr.Block()
		fst.builders[bb] = bldr
	}

	for _, bb := range fn.Blocks {
		bldr := fst.builders[bb]
		for _, instr := range bb.Instrs {
			if err := lw.lowerInstr(fst, bldr, instr); err != nil {
				return fmt.Errorf("block %s: %w", blockName(bb), err)
			}
		}
	}

	for _, dp := range fst.deferPhis {
		for i, edge := range dp.ssaPhi.Edges {
			predBB := fst.blocks[dp.ssaPhi.Block().Preds[i]]
			v, err := lw.resolveValue(fst, edge)
			if err != nil {
				return fmt.Errorf("phi %s: %w", dp.ssaPhi.Name(), err)
			}
			ir.AddIncoming(dp.irPhi, v, predBB)
		}
	}

	fb.Finish()
	return nil
}

func blockName(bb *ssa.BasicBlock) string {
	if bb.Comment != "" {
		return fmt.Sprintf("bb%d.%s", bb.Index, bb.Comment)
	}
	return fmt.Sprintf("bb%d", bb.Index)
}

// resolveValue maps an ssa.Value already computed earlier in the same
// function (a Param, a Const, or the result of an already-lowered
// instruction) to its ir.Value. Constants are lowered lazily here since
// ssa.Const carries no instruction of its own.
func (lw *lowerer) resolveValue(fst *funcState, v ssa.Value) (ir.Value, error) {
	if c, ok := v.(*ssa.Const); ok {
		bits, _, ok := intType(c.Type())
		if !ok {
			return nil, fmt.Errorf("unsupported constant type %s", c.Type())
		}
		if c.Value == nil { // nil/zero-value constant
			return &ir.ConstInt{Bits: bits, Val: 0}, nil
		}
		if bits == 1 { // bool
			if constant.BoolVal(c.Value) {
				return &ir.ConstInt{Bits: 1, Val: 1}, nil
			}
			return &ir.ConstInt{Bits: 1, Val: 0}, nil
		}
		return &ir.ConstInt{Bits: bits, Val: c.Int64()}, nil
	}
	if iv, ok := fst.values[v]; ok {
		return iv, nil
	}
	return nil, fmt.Errorf("unresolved value %s (%T)", v.Name(), v)
}

// resolveAddr maps an ssa.Value used as a Load/Store/IndexAddr address to
// either a *ir.Global (scalar) or a *ir.GepInst already lowered for an
// IndexAddr on a global array.
func (lw *lowerer) resolveAddr(fst *funcState, v ssa.Value) (ir.Value, error) {
	if gv, ok := v.(*ssa.Global); ok {
		g, ok := lw.globals[gv]
		if !ok {
			return nil, fmt.Errorf("global %s has an unsupported type", gv.Name())
		}
		return g, nil
	}
	if iv, ok := fst.values[v]; ok {
		if _, isGep := iv.(*ir.GepInst); isGep {
			return iv, nil
		}
		if _, isGlobal := iv.(*ir.Global); isGlobal {
			return iv, nil
		}
	}
	return nil, fmt.Errorf("unsupported address operand %s (%T)", v.Name(), v)
}

func (lw *lowerer) resolveCallee(callee *ssa.Function) (*ir.Function, error) {
	f, ok := lw.funcs[callee]
	if !ok {
		return nil, fmt.Errorf("call to unsupported or unknown function %s", callee.Name())
	}
	return f, nil
}

func (lw *lowerer) lowerInstr(fst *funcState, bldr *ir.BlockBuilder, instr ssa.Instruction) error {
	switch in := instr.(type) {
	case *ssa.DebugRef:
		return nil
	case *ssa.BinOp:
		return lw.lowerBinOp(fst, bldr, in)
	case *ssa.UnOp:
		return lw.lowerUnOp(fst, bldr, in)
	case *ssa.Convert:
		return lw.lowerConvert(fst, bldr, in)
	case *ssa.ChangeType:
		v, err := lw.resolveValue(fst, in.X)
		if err != nil {
			return err
		}
		fst.values[in] = v
		return nil
	case *ssa.Phi:
		bits, _, ok := intType(in.Type())
		if !ok {
			return fmt.Errorf("phi %s has unsupported type %s", in.Name(), in.Type())
		}
		p := bldr.Phi(bits)
		fst.values[in] = p
		fst.deferPhis = append(fst.deferPhis, deferredPhi{ssaPhi: in, irPhi: p})
		return nil
	case *ssa.Call:
		return lw.lowerCall(fst, bldr, in)
	case *ssa.Return:
		return lw.lowerReturn(fst, bldr, in)
	case *ssa.If:
		cond, err := lw.resolveValue(fst, in.Cond)
		if err != nil {
			return err
		}
		succs := in.Block().Succs
		bldr.Br(cond, fst.blocks[succs[0]], fst.blocks[succs[1]])
		return nil
	case *ssa.Jump:
		bldr.Jump(fst.blocks[in.Block().Succs[0]])
		return nil
	case *ssa.IndexAddr:
		base, err := lw.resolveAddr(fst, in.X)
		if err != nil {
			return fmt.Errorf("indexaddr: %w", err)
		}
		g, ok := base.(*ir.Global)
		if !ok || !g.IsArray {
			return fmt.Errorf("indexaddr: base %s is not a one-dimensional array global", in.X.Name())
		}
		idx, err := lw.resolveValue(fst, in.Index)
		if err != nil {
			return fmt.Errorf("indexaddr: %w", err)
		}
		fst.values[in] = bldr.Gep(g, idx)
		return nil
	case *ssa.Store:
		val, err := lw.resolveValue(fst, in.Val)
		if err != nil {
			return fmt.Errorf("store: %w", err)
		}
		addr, err := lw.resolveAddr(fst, in.Addr)
		if err != nil {
			return fmt.Errorf("store: %w", err)
		}
		bldr.Store(val, addr)
		return nil
	default:
		return fmt.Errorf("unsupported instruction %T", instr)
	}
}

var binOpMap = map[token.Token]ir.BinOp{
	token.ADD: ir.Add,
	token.SUB: ir.Sub,
	token.MUL: ir.Mul,
	token.AND: ir.And,
	token.OR:  ir.Or,
	token.XOR: ir.Xor,
}

// cmpOpMap maps a comparison token to the unsigned predicate; signed
// predicates are the Swapped-free signed counterpart, picked in lowerBinOp
// by the operands' own signedness (comparisons are always a bool-valued
// ssa.BinOp in go/ssa — there is no separate icmp instruction).
var cmpOpMap = map[token.Token]ir.ICmpPred{
	token.EQL: ir.ICmpEQ,
	token.NEQ: ir.ICmpNE,
	token.LSS: ir.ICmpULT,
	token.LEQ: ir.ICmpULE,
	token.GTR: ir.ICmpUGT,
	token.GEQ: ir.ICmpUGE,
}

var signedCmpOpMap = map[token.Token]ir.ICmpPred{
	token.LSS: ir.ICmpSLT,
	token.LEQ: ir.ICmpSLE,
	token.GTR: ir.ICmpSGT,
	token.GEQ: ir.ICmpSGE,
}

// lowerBinOp handles both arithmetic ssa.BinOps and comparison ssa.BinOps:
// go/ssa represents `x < y` etc. as a BinOp producing a bool, rather than a
// distinct comparison instruction, so the result type decides which of
// ir.BinaryInst / ir.ICmpInst this lowers to.
func (lw *lowerer) lowerBinOp(fst *funcState, bldr *ir.BlockBuilder, in *ssa.BinOp) error {
	x, err := lw.resolveValue(fst, in.X)
	if err != nil {
		return err
	}
	y, err := lw.resolveValue(fst, in.Y)
	if err != nil {
		return err
	}
	if basic, isBasic := in.Type().Underlying().(*types.Basic); isBasic && basic.Kind() == types.Bool {
		_, unsigned, ok := intType(in.X.Type())
		if !ok {
			return fmt.Errorf("compare %s: unsupported operand type %s", in.Name(), in.X.Type())
		}
		pred, ok := cmpOpMap[in.Op]
		if !ok {
			return fmt.Errorf("compare %s: unsupported operator %s", in.Name(), in.Op)
		}
		if !unsigned {
			if sp, ok := signedCmpOpMap[in.Op]; ok {
				pred = sp
			}
		}
		fst.values[in] = bldr.ICmp(pred, x, y)
		return nil
	}

	bits, unsigned, ok := intType(in.Type())
	if !ok {
		return fmt.Errorf("binop %s has unsupported type %s", in.Name(), in.Type())
	}
	var op ir.BinOp
	switch in.Op {
	case token.QUO:
		if unsigned {
			op = ir.UDiv
		} else {
			op = ir.SDiv
		}
	case token.REM:
		if unsigned {
			op = ir.URem
		} else {
			op = ir.SRem
		}
	case token.SHL:
		op = ir.Shl
	case token.SHR:
		if unsigned {
			op = ir.LShr
		} else {
			op = ir.AShr
		}
	default:
		var ok bool
		op, ok = binOpMap[in.Op]
		if !ok {
			return fmt.Errorf("binop %s: unsupported operator %s", in.Name(), in.Op)
		}
	}
	fst.values[in] = bldr.Binary(op, bits, x, y)
	return nil
}

func (lw *lowerer) lowerUnOp(fst *funcState, bldr *ir.BlockBuilder, in *ssa.UnOp) error {
	switch in.Op {
	case token.MUL: // dereference: *globalOrElemAddr
		addr, err := lw.resolveAddr(fst, in.X)
		if err != nil {
			return fmt.Errorf("load: %w", err)
		}
		bits, _, ok := intType(in.Type())
		if !ok {
			return fmt.Errorf("load %s: unsupported result type %s", in.Name(), in.Type())
		}
		fst.values[in] = bldr.Load(bits, addr)
		return nil
	case token.SUB: // unary negation: 0 - x
		bits, _, ok := intType(in.Type())
		if !ok {
			return fmt.Errorf("neg %s: unsupported type %s", in.Name(), in.Type())
		}
		x, err := lw.resolveValue(fst, in.X)
		if err != nil {
			return err
		}
		fst.values[in] = bldr.Binary(ir.Sub, bits, &ir.ConstInt{Bits: bits, Val: 0}, x)
		return nil
	case token.XOR: // bitwise complement: x ^ -1
		bits, _, ok := intType(in.Type())
		if !ok {
			return fmt.Errorf("not %s: unsupported type %s", in.Name(), in.Type())
		}
		x, err := lw.resolveValue(fst, in.X)
		if err != nil {
			return err
		}
		fst.values[in] = bldr.Binary(ir.Xor, bits, x, &ir.ConstInt{Bits: bits, Val: -1})
		return nil
	default:
		return fmt.Errorf("unop %s: unsupported operator %s", in.Name(), in.Op)
	}
}

func (lw *lowerer) lowerConvert(fst *funcState, bldr *ir.BlockBuilder, in *ssa.Convert) error {
	toBits, toUnsigned, ok := intType(in.Type())
	if !ok {
		return fmt.Errorf("convert %s: unsupported result type %s", in.Name(), in.Type())
	}
	fromBits, fromUnsigned, ok := intType(in.X.Type())
	if !ok {
		return fmt.Errorf("convert %s: unsupported source type %s", in.Name(), in.X.Type())
	}
	x, err := lw.resolveValue(fst, in.X)
	if err != nil {
		return err
	}
	switch {
	case toBits == fromBits:
		fst.values[in] = x
		return nil
	case toBits < fromBits:
		fst.values[in] = bldr.Cast(ir.Trunc, toBits, x)
		return nil
	default: // toBits > fromBits: widen per the narrower operand's own signedness
		if fromUnsigned {
			fst.values[in] = bldr.Cast(ir.ZExt, toBits, x)
		} else {
			fst.values[in] = bldr.Cast(ir.SExt, toBits, x)
		}
		_ = toUnsigned
		return nil
	}
}

func (lw *lowerer) lowerCall(fst *funcState, bldr *ir.BlockBuilder, in *ssa.Call) error {
	cc := in.Call
	if cc.IsInvoke() {
		return fmt.Errorf("call %s: interface method invocation is out of scope", in.Name())
	}
	calleeFn, ok := cc.Value.(*ssa.Function)
	if !ok {
		return fmt.Errorf("call %s: only direct calls to known functions are supported", in.Name())
	}
	callee, err := lw.resolveCallee(calleeFn)
	if err != nil {
		return err
	}
	var args []ir.Value
	for _, a := range cc.Args {
		v, err := lw.resolveValue(fst, a)
		if err != nil {
			return fmt.Errorf("call %s: %w", in.Name(), err)
		}
		args = append(args, v)
	}
	call := bldr.Call(callee, args...)
	if call.IsInt() {
		fst.values[in] = call
	}
	return nil
}

func (lw *lowerer) lowerReturn(fst *funcState, bldr *ir.BlockBuilder, in *ssa.Return) error {
	switch len(in.Results) {
	case 0:
		bldr.Ret(nil)
		return nil
	case 1:
		v, err := lw.resolveValue(fst, in.Results[0])
		if err != nil {
			return fmt.Errorf("return: %w", err)
		}
		bldr.Ret(v)
		return nil
	default:
		return fmt.Errorf("return: multiple return values are out of scope")
	}
}
