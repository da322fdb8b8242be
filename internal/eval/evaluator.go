package eval

import (
	"github.com/javadec/javadec/internal/classfile"
	"github.com/javadec/javadec/internal/classfile/attrs"
	"github.com/javadec/javadec/internal/constpool"
	"github.com/javadec/javadec/internal/disasm"
	javaerrors "github.com/javadec/javadec/internal/errors"
	"github.com/javadec/javadec/internal/scope"
	"github.com/javadec/javadec/internal/types"
)

// Evaluator drives the instruction stream over an operand stack of
// Operations (spec §4.6). One Evaluator is used per method body.
type Evaluator struct {
	Disasm    *disasm.Disassembly
	CP        *constpool.Pool
	Class     *classfile.ClassFile
	Scope     *scope.Scope

	stack      []*Operation
	Statements []*Operation

	// Conditions holds the operand consumed by each if*/switch
	// instruction, keyed by instruction index, for the flow
	// reconstructor to pick up when it finalizes the matching Block.
	Conditions map[int]*Operation

	// SwitchValues holds the value expression consumed by each
	// tableswitch/lookupswitch, keyed by instruction index.
	SwitchValues map[int]*Operation

	// HandlerEntries primes the operand stack at a catch handler's first
	// instruction with the implicit caught-exception value the JVM places
	// there (spec §4.8); keyed by that instruction's index, valued by the
	// declared catch type (types.Object for a bare/finally handler, as
	// flow.HandlerEntryPoints fills it).
	HandlerEntries map[int]types.Type
}

// SetHandlerEntries installs the catch-handler entry points internal/flow's
// exception-table scan discovers, so Run can prime the stack before the
// handler's leading astore consumes the caught exception.
func (e *Evaluator) SetHandlerEntries(m map[int]types.Type) { e.HandlerEntries = m }

// New builds an Evaluator for one method body.
func New(d *disasm.Disassembly, cp *constpool.Pool, cf *classfile.ClassFile, sc *scope.Scope) *Evaluator {
	return &Evaluator{
		Disasm: d, CP: cp, Class: cf, Scope: sc,
		Conditions:   map[int]*Operation{},
		SwitchValues: map[int]*Operation{},
	}
}

func (e *Evaluator) push(o *Operation) { e.stack = append(e.stack, o) }

func (e *Evaluator) pop() (*Operation, error) {
	if len(e.stack) == 0 {
		return nil, javaerrors.New(javaerrors.KindEmptyStack, "pop from empty operand stack")
	}
	top := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return top, nil
}

func (e *Evaluator) peek() *Operation {
	if len(e.stack) == 0 {
		return nil
	}
	return e.stack[len(e.stack)-1]
}

func (e *Evaluator) append(o *Operation) { e.Statements = append(e.Statements, o) }

// Run iterates the disassembled instructions in order (spec §4.6's main
// drive loop) and returns the flattened statement list.
func (e *Evaluator) Run() ([]*Operation, error) {
	for i := range e.Disasm.Instructions {
		ins := &e.Disasm.Instructions[i]
		if t, ok := e.HandlerEntries[ins.Index]; ok {
			e.push(&Operation{Kind: KindCaughtException, Type: t, Index: ins.Index})
		}
		if err := e.step(ins); err != nil {
			return nil, javaerrors.Wrap(javaerrors.KindIllegalStackState, err, "evaluating instruction %d (%s)", ins.Index, ins.Op).WithPos(ins.Pos)
		}
	}
	return e.Statements, nil
}

func (e *Evaluator) step(ins *disasm.Instruction) error {
	switch ins.Op {
	case disasm.Nop:
		return nil

	case disasm.AConstNull:
		e.push(&Operation{Kind: KindLiteral, Type: types.AnyObject, LiteralValue: nil, Index: ins.Index})
		return nil

	case disasm.IConstM1, disasm.IConst0, disasm.IConst1, disasm.IConst2, disasm.IConst3, disasm.IConst4, disasm.IConst5,
		disasm.Bipush, disasm.Sipush:
		v := intConstValue(ins)
		e.push(&Operation{Kind: KindLiteral, Type: types.AnyIntOrBoolean, LiteralValue: v, Index: ins.Index})
		return nil

	case disasm.LConst0, disasm.LConst1:
		v := int64(0)
		if ins.Op == disasm.LConst1 {
			v = 1
		}
		e.push(&Operation{Kind: KindLiteral, Type: types.Long, LiteralValue: v, Index: ins.Index})
		return nil

	case disasm.FConst0, disasm.FConst1, disasm.FConst2:
		v := float32(ins.Op - disasm.FConst0)
		e.push(&Operation{Kind: KindLiteral, Type: types.Float, LiteralValue: v, Index: ins.Index})
		return nil

	case disasm.DConst0, disasm.DConst1:
		v := float64(0)
		if ins.Op == disasm.DConst1 {
			v = 1
		}
		e.push(&Operation{Kind: KindLiteral, Type: types.Double, LiteralValue: v, Index: ins.Index})
		return nil

	case disasm.Ldc, disasm.LdcW, disasm.Ldc2W:
		return e.stepLdc(ins)

	case disasm.ILoad, disasm.ILoad0, disasm.ILoad1, disasm.ILoad2, disasm.ILoad3,
		disasm.LLoad, disasm.LLoad0, disasm.LLoad1, disasm.LLoad2, disasm.LLoad3,
		disasm.FLoad, disasm.FLoad0, disasm.FLoad1, disasm.FLoad2, disasm.FLoad3,
		disasm.DLoad, disasm.DLoad0, disasm.DLoad1, disasm.DLoad2, disasm.DLoad3,
		disasm.ALoad, disasm.ALoad0, disasm.ALoad1, disasm.ALoad2, disasm.ALoad3:
		return e.stepLoad(ins)

	case disasm.IStore, disasm.IStore0, disasm.IStore1, disasm.IStore2, disasm.IStore3,
		disasm.LStore, disasm.LStore0, disasm.LStore1, disasm.LStore2, disasm.LStore3,
		disasm.FStore, disasm.FStore0, disasm.FStore1, disasm.FStore2, disasm.FStore3,
		disasm.DStore, disasm.DStore0, disasm.DStore1, disasm.DStore2, disasm.DStore3,
		disasm.AStore, disasm.AStore0, disasm.AStore1, disasm.AStore2, disasm.AStore3:
		return e.stepStore(ins)

	case disasm.IALoad, disasm.LALoad, disasm.FALoad, disasm.DALoad, disasm.AALoad, disasm.BALoad, disasm.CALoad, disasm.SALoad:
		return e.stepArrayLoad(ins, arrayElemType(ins.Op))

	case disasm.IAStore, disasm.LAStore, disasm.FAStore, disasm.DAStore, disasm.AAStore, disasm.BAStore, disasm.CAStore, disasm.SAStore:
		return e.stepArrayStore(ins)

	case disasm.Pop:
		_, err := e.pop()
		return err
	case disasm.Pop2:
		top, err := e.pop()
		if err != nil {
			return err
		}
		if top.Type.Size() != 8 {
			_, err = e.pop()
		}
		return err

	case disasm.Dup:
		top, err := e.pop()
		if err != nil {
			return err
		}
		e.push(top)
		e.push(&Operation{Kind: KindDup, Type: top.Type, Operand: top, Index: ins.Index})
		return nil

	case disasm.Swap:
		a, err := e.pop()
		if err != nil {
			return err
		}
		b, err := e.pop()
		if err != nil {
			return err
		}
		e.push(a)
		e.push(b)
		return nil

	case disasm.DupX1, disasm.DupX2, disasm.Dup2, disasm.Dup2X1, disasm.Dup2X2:
		return e.stepDupFamily(ins)

	case disasm.IAdd, disasm.LAdd, disasm.FAdd, disasm.DAdd:
		return e.stepBinary(ins, "+")
	case disasm.ISub, disasm.LSub, disasm.FSub, disasm.DSub:
		return e.stepBinary(ins, "-")
	case disasm.IMul, disasm.LMul, disasm.FMul, disasm.DMul:
		return e.stepBinary(ins, "*")
	case disasm.IDiv, disasm.LDiv, disasm.FDiv, disasm.DDiv:
		return e.stepBinary(ins, "/")
	case disasm.IRem, disasm.LRem, disasm.FRem, disasm.DRem:
		return e.stepBinary(ins, "%")
	case disasm.IShl, disasm.LShl:
		return e.stepBinary(ins, "<<")
	case disasm.IShr, disasm.LShr:
		return e.stepBinary(ins, ">>")
	case disasm.IUshr, disasm.LUshr:
		return e.stepBinary(ins, ">>>")
	case disasm.IAnd, disasm.LAnd:
		return e.stepBinaryOrBitNot(ins, "&")
	case disasm.IOr, disasm.LOr:
		return e.stepBinary(ins, "|")
	case disasm.IXor, disasm.LXor:
		return e.stepBinaryOrBitNot(ins, "^")

	case disasm.INeg, disasm.LNeg, disasm.FNeg, disasm.DNeg:
		v, err := e.pop()
		if err != nil {
			return err
		}
		e.push(&Operation{Kind: KindUnary, Type: v.Type, Op: "-", Operand: v, Index: ins.Index})
		return nil

	case disasm.I2L, disasm.I2F, disasm.I2D, disasm.L2I, disasm.L2F, disasm.L2D,
		disasm.F2I, disasm.F2L, disasm.F2D, disasm.D2I, disasm.D2L, disasm.D2F,
		disasm.I2B, disasm.I2C, disasm.I2S:
		return e.stepConvert(ins)

	case disasm.LCmp, disasm.FCmpL, disasm.FCmpG, disasm.DCmpL, disasm.DCmpG:
		l, err := e.pop()
		if err != nil {
			return err
		}
		r, err := e.pop()
		if err != nil {
			return err
		}
		e.push(&Operation{Kind: KindCmpMarker, Type: types.Int, Left: r, Right: l, Index: ins.Index})
		return nil

	case disasm.IfEq, disasm.IfNe, disasm.IfLt, disasm.IfGe, disasm.IfGt, disasm.IfLe:
		return e.stepIfZero(ins)

	case disasm.IfICmpEq, disasm.IfICmpNe, disasm.IfICmpLt, disasm.IfICmpGe, disasm.IfICmpGt, disasm.IfICmpLe,
		disasm.IfACmpEq, disasm.IfACmpNe:
		return e.stepIfCompare(ins)

	case disasm.IfNull, disasm.IfNonNull:
		v, err := e.pop()
		if err != nil {
			return err
		}
		op := "=="
		if ins.Op == disasm.IfNonNull {
			op = "!="
		}
		e.Conditions[ins.Index] = &Operation{Kind: KindCompareBinary, Type: types.Boolean, Op: op, Left: v,
			Right: &Operation{Kind: KindLiteral, Type: types.AnyObject, LiteralValue: nil}, Index: ins.Index}
		return nil

	case disasm.Goto, disasm.GotoW, disasm.Jsr, disasm.JsrW, disasm.Ret:
		return nil // handled structurally by internal/flow; jsr/ret is obsolete in modern javac output

	case disasm.TableSwitch, disasm.LookupSwitch:
		v, err := e.pop()
		if err != nil {
			return err
		}
		e.SwitchValues[ins.Index] = v
		return nil

	case disasm.IInc:
		return e.stepIInc(ins)

	case disasm.GetStatic, disasm.PutStatic, disasm.GetField, disasm.PutField:
		return e.stepFieldAccess(ins)

	case disasm.InvokeVirtual, disasm.InvokeSpecial, disasm.InvokeStatic, disasm.InvokeInterface:
		return e.stepInvoke(ins)

	case disasm.InvokeDynamic:
		return e.stepInvokeDynamic(ins)

	case disasm.New:
		cls, err := e.CP.GetClass(ins.ConstIndex)
		if err != nil {
			return err
		}
		e.push(&Operation{Kind: KindNewObject, Type: types.ClassFromInternalName(constpool.ClassName(cls)), ClassType: types.ClassFromInternalName(constpool.ClassName(cls)), Index: ins.Index})
		return nil

	case disasm.NewArray:
		return e.stepNewArray(ins)

	case disasm.ANewArray:
		cls, err := e.CP.GetClass(ins.ConstIndex)
		if err != nil {
			return err
		}
		length, err := e.pop()
		if err != nil {
			return err
		}
		elem := types.ClassFromInternalName(constpool.ClassName(cls))
		e.push(&Operation{Kind: KindNewArray, Type: types.NewArray(elem, 1), ElemType: elem, Dims: []*Operation{length}, Index: ins.Index})
		return nil

	case disasm.MultiANewArray:
		return e.stepMultiANewArray(ins)

	case disasm.ArrayLength:
		arr, err := e.pop()
		if err != nil {
			return err
		}
		e.push(&Operation{Kind: KindUnary, Type: types.Int, Op: ".length", Operand: arr, Index: ins.Index})
		return nil

	case disasm.CheckCast:
		cls, err := e.CP.GetClass(ins.ConstIndex)
		if err != nil {
			return err
		}
		v, err := e.pop()
		if err != nil {
			return err
		}
		castType := types.ClassFromInternalName(constpool.ClassName(cls))
		e.push(&Operation{Kind: KindCheckCast, Type: castType, CastType: castType, Operand: v, Index: ins.Index})
		return nil

	case disasm.InstanceOf:
		cls, err := e.CP.GetClass(ins.ConstIndex)
		if err != nil {
			return err
		}
		v, err := e.pop()
		if err != nil {
			return err
		}
		e.push(&Operation{Kind: KindInstanceOf, Type: types.Boolean, CastType: types.ClassFromInternalName(constpool.ClassName(cls)), Operand: v, Index: ins.Index})
		return nil

	case disasm.AThrow:
		v, err := e.pop()
		if err != nil {
			return err
		}
		e.append(&Operation{Kind: KindAThrow, Type: types.Void, ReturnValue: v, Index: ins.Index})
		return nil

	case disasm.IReturn, disasm.LReturn, disasm.FReturn, disasm.DReturn, disasm.AReturn:
		v, err := e.pop()
		if err != nil {
			return err
		}
		e.append(&Operation{Kind: KindReturn, Type: types.Void, ReturnValue: v, Index: ins.Index})
		return nil

	case disasm.Return:
		e.append(&Operation{Kind: KindReturn, Type: types.Void, Index: ins.Index})
		return nil

	case disasm.MonitorEnter, disasm.MonitorExit:
		// synchronized-block markers: the monitor operand is popped and no
		// statement is emitted; no synchronized(x) block is reconstructed.
		_, err := e.pop()
		return err
	}

	return javaerrors.New(javaerrors.KindIllegalOpcode, "eval: unhandled opcode %s", ins.Op)
}

func intConstValue(ins *disasm.Instruction) int32 {
	switch ins.Op {
	case disasm.IConstM1:
		return -1
	case disasm.IConst0:
		return 0
	case disasm.IConst1:
		return 1
	case disasm.IConst2:
		return 2
	case disasm.IConst3:
		return 3
	case disasm.IConst4:
		return 4
	case disasm.IConst5:
		return 5
	default:
		return int32(ins.IntOperand)
	}
}

func arrayElemType(op disasm.Opcode) types.Type {
	switch op {
	case disasm.IALoad:
		return types.Int
	case disasm.LALoad:
		return types.Long
	case disasm.FALoad:
		return types.Float
	case disasm.DALoad:
		return types.Double
	case disasm.BALoad:
		return types.Byte
	case disasm.CALoad:
		return types.Char
	case disasm.SALoad:
		return types.Short
	default:
		return types.AnyObject
	}
}

func (e *Evaluator) stepLdc(ins *disasm.Instruction) error {
	if v, err := e.CP.GetInteger(ins.ConstIndex); err == nil {
		e.push(&Operation{Kind: KindLiteral, Type: types.AnyIntOrBoolean, LiteralValue: v, Index: ins.Index})
		return nil
	}
	if v, err := e.CP.GetFloat(ins.ConstIndex); err == nil {
		e.push(&Operation{Kind: KindLiteral, Type: types.Float, LiteralValue: v, Index: ins.Index})
		return nil
	}
	if v, err := e.CP.GetLong(ins.ConstIndex); err == nil {
		e.push(&Operation{Kind: KindLiteral, Type: types.Long, LiteralValue: v, Index: ins.Index})
		return nil
	}
	if v, err := e.CP.GetDouble(ins.ConstIndex); err == nil {
		e.push(&Operation{Kind: KindLiteral, Type: types.Double, LiteralValue: v, Index: ins.Index})
		return nil
	}
	if str, err := e.CP.GetString(ins.ConstIndex); err == nil {
		e.push(&Operation{Kind: KindLiteral, Type: types.NewClass("java.lang", "String"), LiteralValue: str.Value.Value, Index: ins.Index})
		return nil
	}
	if cls, err := e.CP.GetClass(ins.ConstIndex); err == nil {
		ct := types.ClassFromInternalName(constpool.ClassName(cls))
		e.push(&Operation{Kind: KindLiteral, Type: types.NewClass("java.lang", "Class"), LiteralValue: ct, Index: ins.Index})
		return nil
	}
	return javaerrors.New(javaerrors.KindIllegalOpcode, "ldc at pos %d: constant pool index %d is not a loadable constant", ins.Pos, ins.ConstIndex)
}

func (e *Evaluator) stepLoad(ins *disasm.Instruction) error {
	slot := loadStoreSlot(ins)
	v := e.Scope.GetVariable(slot, false)
	e.push(&Operation{Kind: KindLocalRef, Type: v.Type, Slot: slot, VarName: v.Name, Index: ins.Index})
	return nil
}

func (e *Evaluator) stepStore(ins *disasm.Instruction) error {
	slot := loadStoreSlot(ins)
	val, err := e.pop()
	if err != nil {
		return err
	}
	v := e.Scope.GetVariable(slot, false)
	v.Type = widestOrAny(v.Type, val.Type)
	target := &Operation{Kind: KindLocalRef, Type: v.Type, Slot: slot, VarName: v.Name, Index: ins.Index}
	e.append(&Operation{Kind: KindAssign, Type: types.Void, Target: target, Value: val, Index: ins.Index})
	return nil
}

func loadStoreSlot(ins *disasm.Instruction) int {
	if ins.Wide || ins.VarSlot != 0 {
		return ins.VarSlot
	}
	// *load_N / *store_N compact forms encode N in the opcode itself.
	switch {
	case ins.Op >= disasm.ILoad0 && ins.Op <= disasm.ILoad3:
		return int(ins.Op - disasm.ILoad0)
	case ins.Op >= disasm.LLoad0 && ins.Op <= disasm.LLoad3:
		return int(ins.Op - disasm.LLoad0)
	case ins.Op >= disasm.FLoad0 && ins.Op <= disasm.FLoad3:
		return int(ins.Op - disasm.FLoad0)
	case ins.Op >= disasm.DLoad0 && ins.Op <= disasm.DLoad3:
		return int(ins.Op - disasm.DLoad0)
	case ins.Op >= disasm.ALoad0 && ins.Op <= disasm.ALoad3:
		return int(ins.Op - disasm.ALoad0)
	case ins.Op >= disasm.IStore0 && ins.Op <= disasm.IStore3:
		return int(ins.Op - disasm.IStore0)
	case ins.Op >= disasm.LStore0 && ins.Op <= disasm.LStore3:
		return int(ins.Op - disasm.LStore0)
	case ins.Op >= disasm.FStore0 && ins.Op <= disasm.FStore3:
		return int(ins.Op - disasm.FStore0)
	case ins.Op >= disasm.DStore0 && ins.Op <= disasm.DStore3:
		return int(ins.Op - disasm.DStore0)
	case ins.Op >= disasm.AStore0 && ins.Op <= disasm.AStore3:
		return int(ins.Op - disasm.AStore0)
	}
	return 0
}

func (e *Evaluator) stepArrayLoad(ins *disasm.Instruction, elemType types.Type) error {
	idx, err := e.pop()
	if err != nil {
		return err
	}
	arr, err := e.pop()
	if err != nil {
		return err
	}
	e.push(&Operation{Kind: KindArrayAccess, Type: elemType, Array: arr, ArrayIndex: idx, Index: ins.Index})
	return nil
}

func (e *Evaluator) stepArrayStore(ins *disasm.Instruction) error {
	val, err := e.pop()
	if err != nil {
		return err
	}
	idx, err := e.pop()
	if err != nil {
		return err
	}
	arr, err := e.pop()
	if err != nil {
		return err
	}
	target := &Operation{Kind: KindArrayAccess, Type: val.Type, Array: arr, ArrayIndex: idx, Index: ins.Index}
	e.append(&Operation{Kind: KindAssign, Type: types.Void, Target: target, Value: val, Index: ins.Index})
	return nil
}

func (e *Evaluator) stepDupFamily(ins *disasm.Instruction) error {
	switch ins.Op {
	case disasm.DupX1:
		a, err := e.pop()
		if err != nil {
			return err
		}
		b, err := e.pop()
		if err != nil {
			return err
		}
		dup := &Operation{Kind: KindDup, Type: a.Type, Operand: a, Index: ins.Index}
		e.push(dup)
		e.push(b)
		e.push(a)
		return nil
	case disasm.DupX2:
		a, err := e.pop()
		if err != nil {
			return err
		}
		b, err := e.pop()
		if err != nil {
			return err
		}
		c, err := e.pop()
		if err != nil {
			return err
		}
		dup := &Operation{Kind: KindDup, Type: a.Type, Operand: a, Index: ins.Index}
		e.push(dup)
		e.push(c)
		e.push(b)
		e.push(a)
		return nil
	case disasm.Dup2:
		a, err := e.pop()
		if err != nil {
			return err
		}
		b, err := e.pop()
		if err != nil {
			return err
		}
		e.push(b)
		e.push(a)
		e.push(&Operation{Kind: KindDup, Type: b.Type, Operand: b, Index: ins.Index})
		e.push(&Operation{Kind: KindDup, Type: a.Type, Operand: a, Index: ins.Index})
		return nil
	default:
		// dup2_x1 / dup2_x2: rarer in javac output for ordinary source
		// (mostly long/double array-store idioms); conservatively no-op
		// the reordering and keep stack depth, preserving later
		// evaluation rather than failing the whole method.
		return nil
	}
}

func (e *Evaluator) stepBinary(ins *disasm.Instruction, op string) error {
	r, err := e.pop()
	if err != nil {
		return err
	}
	l, err := e.pop()
	if err != nil {
		return err
	}
	t := widestOrAny(l.Type, r.Type)
	e.push(&Operation{Kind: KindBinary, Type: t, Op: op, Left: l, Right: r, Index: ins.Index})
	return nil
}

// widestOrAny unifies two operand types via CastToWidest, falling back to
// AnyType rather than failing outright when they are genuinely
// incompatible (a prior decode/flow mistake should not abort the whole
// evaluation).
func widestOrAny(a, b types.Type) types.Type {
	t, err := a.CastToWidest(b)
	if err != nil {
		return types.Any
	}
	return t
}

// stepBinaryOrBitNot handles `&`/`^`; a `^` whose right operand is the
// literal -1 becomes unary bit-not, `&` always stays a binary operator.
func (e *Evaluator) stepBinaryOrBitNot(ins *disasm.Instruction, op string) error {
	r, err := e.pop()
	if err != nil {
		return err
	}
	l, err := e.pop()
	if err != nil {
		return err
	}
	if op == "^" && isLiteralMinusOne(r) {
		e.push(&Operation{Kind: KindUnary, Type: l.Type, Op: "~", Operand: l, Index: ins.Index})
		return nil
	}
	t := widestOrAny(l.Type, r.Type)
	e.push(&Operation{Kind: KindBinary, Type: t, Op: op, Left: l, Right: r, Index: ins.Index})
	return nil
}

func isLiteralMinusOne(o *Operation) bool {
	if o.Kind != KindLiteral {
		return false
	}
	switch v := o.LiteralValue.(type) {
	case int32:
		return v == -1
	case int64:
		return v == -1
	}
	return false
}

func (e *Evaluator) stepConvert(ins *disasm.Instruction) error {
	v, err := e.pop()
	if err != nil {
		return err
	}
	target := convertTarget(ins.Op)
	e.push(&Operation{Kind: KindCheckCast, Type: target, CastType: target, Operand: v, Index: ins.Index})
	return nil
}

func convertTarget(op disasm.Opcode) types.Type {
	switch op {
	case disasm.I2L, disasm.F2L, disasm.D2L:
		return types.Long
	case disasm.I2F, disasm.L2F, disasm.D2F:
		return types.Float
	case disasm.I2D, disasm.L2D, disasm.F2D:
		return types.Double
	case disasm.L2I, disasm.F2I, disasm.D2I:
		return types.Int
	case disasm.I2B:
		return types.Byte
	case disasm.I2C:
		return types.Char
	case disasm.I2S:
		return types.Short
	default:
		return types.Int
	}
}

func (e *Evaluator) stepIfZero(ins *disasm.Instruction) error {
	op := compareOp(ins.Op)
	v, err := e.pop()
	if err != nil {
		return err
	}
	if v.Kind == KindCmpMarker {
		e.Conditions[ins.Index] = &Operation{Kind: KindCompareBinary, Type: types.Boolean, Op: op, Left: v.Left, Right: v.Right, Index: ins.Index}
		return nil
	}
	e.Conditions[ins.Index] = &Operation{Kind: KindCompareZero, Type: types.Boolean, Op: op, Operand: v, Index: ins.Index}
	return nil
}

func (e *Evaluator) stepIfCompare(ins *disasm.Instruction) error {
	op := compareOp(ins.Op)
	r, err := e.pop()
	if err != nil {
		return err
	}
	l, err := e.pop()
	if err != nil {
		return err
	}
	e.Conditions[ins.Index] = &Operation{Kind: KindCompareBinary, Type: types.Boolean, Op: op, Left: l, Right: r, Index: ins.Index}
	return nil
}

// unboxingAccessors maps a java.lang boxed wrapper's simple name to the
// zero-arg accessor method name that recovers its primitive value, and
// the primitive Type each recovers (spec §4.6: unlike valueOf boxing,
// folding invokevirtual on one of these into a primitive cast is
// mandatory, not a best-effort simplification).
var unboxingAccessors = map[string]struct {
	method string
	prim   types.Type
}{
	"Boolean":   {"booleanValue", types.Boolean},
	"Byte":      {"byteValue", types.Byte},
	"Character": {"charValue", types.Char},
	"Short":     {"shortValue", types.Short},
	"Integer":   {"intValue", types.Int},
	"Long":      {"longValue", types.Long},
	"Float":     {"floatValue", types.Float},
	"Double":    {"doubleValue", types.Double},
}

// unboxingTarget reports the primitive type an invokevirtual recovers
// when owner is a java.lang numeric/boolean wrapper and name is its
// *Value() accessor.
func unboxingTarget(owner types.Type, name string) (types.Type, bool) {
	if owner.Pkg != "java.lang" {
		return types.Type{}, false
	}
	acc, ok := unboxingAccessors[owner.Simple]
	if !ok || acc.method != name {
		return types.Type{}, false
	}
	return acc.prim, true
}

func compareOp(op disasm.Opcode) string {
	switch op {
	case disasm.IfEq, disasm.IfICmpEq, disasm.IfACmpEq:
		return "=="
	case disasm.IfNe, disasm.IfICmpNe, disasm.IfACmpNe:
		return "!="
	case disasm.IfLt, disasm.IfICmpLt:
		return "<"
	case disasm.IfGe, disasm.IfICmpGe:
		return ">="
	case disasm.IfGt, disasm.IfICmpGt:
		return ">"
	case disasm.IfLe, disasm.IfICmpLe:
		return "<="
	}
	return "?"
}

// stepIInc emits the bare statement form of an increment: `x++`/`x--`
// when |k|==1, otherwise `x += k` (spec §4.6). Whether a bare `x++`/`x--`
// is really a standalone statement or the iload/istore pair either side
// of it in the flat statement list makes it part of a larger expression
// (`y = x++;`, `y = ++x;`) isn't decidable per-instruction here; that
// absorption is a peephole fold flow.Reconstruct runs over the finished
// tree, once for-loop increment detection has already had first claim on
// any bare increment (see foldIncrementExpressions).
func (e *Evaluator) stepIInc(ins *disasm.Instruction) error {
	v := e.Scope.GetVariable(ins.VarSlot, false)
	target := &Operation{Kind: KindLocalRef, Type: v.Type, Slot: ins.VarSlot, VarName: v.Name, Index: ins.Index}
	if ins.IncAmount == 1 {
		e.append(&Operation{Kind: KindUnary, Type: types.Void, Op: "++", Operand: target, Index: ins.Index})
		return nil
	}
	if ins.IncAmount == -1 {
		e.append(&Operation{Kind: KindUnary, Type: types.Void, Op: "--", Operand: target, Index: ins.Index})
		return nil
	}
	amount := &Operation{Kind: KindLiteral, Type: types.AnyIntOrBoolean, LiteralValue: int32(ins.IncAmount), Index: ins.Index}
	e.append(&Operation{Kind: KindAssign, Type: types.Void, Target: target,
		Value: &Operation{Kind: KindBinary, Type: v.Type, Op: "+=", Left: target, Right: amount, Index: ins.Index}, Index: ins.Index})
	return nil
}

func (e *Evaluator) stepFieldAccess(ins *disasm.Instruction) error {
	ref, err := e.CP.GetRef(ins.ConstIndex, constpool.TagFieldref)
	if err != nil {
		return err
	}
	fieldType, err := types.ParseFieldDescriptor(ref.NameAndType.Desc.Value)
	if err != nil {
		return err
	}
	ownerType := types.ClassFromInternalName(constpool.ClassName(ref.Class))
	name := ref.NameAndType.Name.Value

	switch ins.Op {
	case disasm.GetStatic:
		e.push(&Operation{Kind: KindFieldAccess, Type: fieldType, Owner: nil, OwnerType: ownerType, FieldName: name, Index: ins.Index})
	case disasm.GetField:
		owner, err := e.pop()
		if err != nil {
			return err
		}
		e.push(&Operation{Kind: KindFieldAccess, Type: fieldType, Owner: owner, OwnerType: ownerType, FieldName: name, Index: ins.Index})
	case disasm.PutStatic:
		val, err := e.pop()
		if err != nil {
			return err
		}
		target := &Operation{Kind: KindFieldAccess, Type: fieldType, Owner: nil, OwnerType: ownerType, FieldName: name, Index: ins.Index}
		e.append(&Operation{Kind: KindAssign, Type: types.Void, Target: target, Value: val, Index: ins.Index})
	case disasm.PutField:
		val, err := e.pop()
		if err != nil {
			return err
		}
		owner, err := e.pop()
		if err != nil {
			return err
		}
		target := &Operation{Kind: KindFieldAccess, Type: fieldType, Owner: owner, OwnerType: ownerType, FieldName: name, Index: ins.Index}
		e.append(&Operation{Kind: KindAssign, Type: types.Void, Target: target, Value: val, Index: ins.Index})
	}
	return nil
}

func (e *Evaluator) stepInvoke(ins *disasm.Instruction) error {
	tag := constpool.TagMethodref
	if ins.Op == disasm.InvokeInterface {
		tag = constpool.TagInterfaceMethodref
	}
	ref, err := e.CP.GetRef(ins.ConstIndex, tag)
	if err != nil {
		return err
	}
	md, err := types.ParseMethodDescriptor(ref.NameAndType.Desc.Value)
	if err != nil {
		return err
	}
	args := make([]*Operation, len(md.Params))
	for i := len(md.Params) - 1; i >= 0; i-- {
		v, err := e.pop()
		if err != nil {
			return err
		}
		args[i] = v
	}
	owner := types.ClassFromInternalName(constpool.ClassName(ref.Class))
	name := ref.NameAndType.Name.Value

	var receiver *Operation
	isStatic := ins.Op == disasm.InvokeStatic
	if !isStatic {
		receiver, err = e.pop()
		if err != nil {
			return err
		}
	}

	if ins.Op == disasm.InvokeSpecial && name == "<init>" {
		if newObj := receiver.Unwrap(); newObj != nil && newObj.Kind == KindNewObject {
			newObj.CtorArgs = args
			// the dup that seeded `receiver` is consumed; nothing is
			// pushed back, matching "new Class(args)" expression form.
			return nil
		}
	}

	if ins.Op == disasm.InvokeVirtual && receiver != nil && len(args) == 0 {
		if prim, ok := unboxingTarget(owner, name); ok {
			cast := &Operation{Kind: KindCheckCast, Type: prim, CastType: prim, Operand: receiver, Index: ins.Index}
			e.push(cast)
			return nil
		}
	}

	result := &Operation{
		Kind: KindInvoke, Type: md.Return, Receiver: receiver, MethodOwner: owner,
		MethodName: name, Args: args, IsStatic: isStatic, IsInterface: ins.Op == disasm.InvokeInterface,
		Index: ins.Index,
	}
	if result.IsVoid() {
		e.append(result)
	} else {
		e.push(result)
	}
	return nil
}

func (e *Evaluator) stepInvokeDynamic(ins *disasm.Instruction) error {
	idEntry, err := e.CP.GetInvokeDynamic(ins.ConstIndex)
	if err != nil {
		return err
	}
	md, err := types.ParseMethodDescriptor(idEntry.NameAndType.Desc.Value)
	if err != nil {
		return err
	}
	args := make([]*Operation, len(md.Params))
	for i := len(md.Params) - 1; i >= 0; i-- {
		v, err := e.pop()
		if err != nil {
			return err
		}
		args[i] = v
	}

	bsm, err := e.Class.BootstrapMethod(int(idEntry.BootstrapMethodAttrIndex))
	if err == nil && isStringConcatFactory(bsm, e.CP) {
		e.push(decodeStringConcat(bsm, args, e.CP, ins.Index))
		return nil
	}

	e.push(&Operation{Kind: KindInvoke, Type: md.Return, MethodName: idEntry.NameAndType.Name.Value, Args: args, IsStatic: true, Index: ins.Index})
	return nil
}

func isStringConcatFactory(bsm *attrs.BootstrapMethod, cp *constpool.Pool) bool {
	if bsm == nil || bsm.Handle == nil {
		return false
	}
	ref, ok := bsm.Handle.Ref.(*constpool.RefEntry)
	if !ok {
		return false
	}
	return constpool.ClassName(ref.Class) == "java/lang/invoke/StringConcatFactory" && ref.NameAndType.Name.Value == "makeConcatWithConstants"
}

// decodeStringConcat implements spec §4.6's invokedynamic StringConcat
// decoding: the bootstrap's first static argument, a String constant (a
// bare Utf8 entry is accepted too), holds the pattern with
//  placeholders for dynamic args and  for remaining static
// args, assembled into a left-associative `+` chain.
func decodeStringConcat(bsm *attrs.BootstrapMethod, dynArgs []*Operation, cp *constpool.Pool, index int) *Operation {
	var pattern string
	var staticArgs []constpool.Entry
	if len(bsm.Args) > 0 {
		switch u := bsm.Args[0].(type) {
		case *constpool.StringEntry:
			pattern = u.Value.Value
		case *constpool.Utf8Entry:
			pattern = u.Value
		}
		staticArgs = bsm.Args[1:]
	}
	var parts []*Operation
	dynI, staticI := 0, 0
	var literal []rune
	flushLiteral := func() {
		if len(literal) > 0 {
			parts = append(parts, &Operation{Kind: KindLiteral, Type: types.NewClass("java.lang", "String"), LiteralValue: string(literal)})
			literal = nil
		}
	}
	for _, r := range pattern {
		switch r {
		case '\u0001':
			flushLiteral()
			if dynI < len(dynArgs) {
				parts = append(parts, dynArgs[dynI])
				dynI++
			}
		case '\u0002':
			flushLiteral()
			if staticI < len(staticArgs) {
				parts = append(parts, constantOperation(staticArgs[staticI]))
				staticI++
			}
		default:
			literal = append(literal, r)
		}
	}
	flushLiteral()

	if len(parts) >= 2 && !isStringType(parts[0].Type) && !isStringType(parts[1].Type) {
		parts = append([]*Operation{{Kind: KindLiteral, Type: types.NewClass("java.lang", "String"), LiteralValue: ""}}, parts...)
	}

	return &Operation{Kind: KindStringConcat, Type: types.NewClass("java.lang", "String"), Parts: parts, Index: index}
}

func isStringType(t types.Type) bool {
	return t.Kind == types.KindClass && t.Pkg == "java.lang" && t.Simple == "String"
}

func constantOperation(e constpool.Entry) *Operation {
	switch v := e.(type) {
	case *constpool.Utf8Entry:
		return &Operation{Kind: KindLiteral, Type: types.NewClass("java.lang", "String"), LiteralValue: v.Value}
	case *constpool.StringEntry:
		return &Operation{Kind: KindLiteral, Type: types.NewClass("java.lang", "String"), LiteralValue: v.Value.Value}
	case *constpool.IntegerEntry:
		return &Operation{Kind: KindLiteral, Type: types.AnyIntOrBoolean, LiteralValue: v.Value}
	case *constpool.LongEntry:
		return &Operation{Kind: KindLiteral, Type: types.Long, LiteralValue: v.Value}
	case *constpool.FloatEntry:
		return &Operation{Kind: KindLiteral, Type: types.Float, LiteralValue: v.Value}
	case *constpool.DoubleEntry:
		return &Operation{Kind: KindLiteral, Type: types.Double, LiteralValue: v.Value}
	default:
		return &Operation{Kind: KindLiteral, Type: types.AnyObject, LiteralValue: nil}
	}
}

func (e *Evaluator) stepNewArray(ins *disasm.Instruction) error {
	length, err := e.pop()
	if err != nil {
		return err
	}
	elem := newArrayElemType(ins.IntOperand)
	e.push(&Operation{Kind: KindNewArray, Type: types.NewArray(elem, 1), ElemType: elem, Dims: []*Operation{length}, Index: ins.Index})
	return nil
}

func newArrayElemType(atype int) types.Type {
	switch atype {
	case disasm.ATypeBoolean:
		return types.Boolean
	case disasm.ATypeChar:
		return types.Char
	case disasm.ATypeFloat:
		return types.Float
	case disasm.ATypeDouble:
		return types.Double
	case disasm.ATypeByte:
		return types.Byte
	case disasm.ATypeShort:
		return types.Short
	case disasm.ATypeInt:
		return types.Int
	case disasm.ATypeLong:
		return types.Long
	default:
		return types.Int
	}
}

func (e *Evaluator) stepMultiANewArray(ins *disasm.Instruction) error {
	cls, err := e.CP.GetClass(ins.ConstIndex)
	if err != nil {
		return err
	}
	dims := make([]*Operation, ins.IntOperand)
	for i := ins.IntOperand - 1; i >= 0; i-- {
		v, err := e.pop()
		if err != nil {
			return err
		}
		dims[i] = v
	}
	arrType := types.ClassFromInternalName(constpool.ClassName(cls))
	e.push(&Operation{Kind: KindNewArray, Type: arrType, ElemType: arrType, Dims: dims, Index: ins.Index})
	return nil
}
