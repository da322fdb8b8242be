package disasm

import (
	"github.com/javadec/javadec/internal/constpool"
	javaerrors "github.com/javadec/javadec/internal/errors"
	"github.com/javadec/javadec/internal/reader"
	"github.com/javadec/javadec/internal/types"
)

// Disassembly is the Disassembler's output: the decoded instruction
// vector plus the bijective pos↔index maps pass 2 and the evaluator rely
// on (spec §4.5).
type Disassembly struct {
	Instructions []Instruction
	posToIdx     map[int]int
	idxToPos     []int // idxToPos[index] == pos
}

// PosToIndex resolves a byte offset to its instruction index. ok is false
// if pos does not land exactly on an instruction boundary.
func (d *Disassembly) PosToIndex(pos int) (int, bool) {
	idx, ok := d.posToIdx[pos]
	return idx, ok
}

// IndexToPos returns the byte offset of the instruction at idx.
func (d *Disassembly) IndexToPos(idx int) int { return d.idxToPos[idx] }

// Len returns the number of decoded instructions.
func (d *Disassembly) Len() int { return len(d.Instructions) }

// Decode runs pass 1 (spec §4.5): linear decode of code into Instructions,
// resolving branch targets to instruction indices once the full pos→index
// map is known. Decoding does not consult cp; an instruction's constant-pool
// operand stays a raw index, resolved later through FieldType /
// MethodDescriptor.
func Decode(code []byte, cp *constpool.Pool) (*Disassembly, error) {
	r := reader.New(code)
	d := &Disassembly{posToIdx: make(map[int]int)}

	for r.Pos() < r.Len() {
		pos := r.Pos()
		index := len(d.Instructions)
		d.posToIdx[pos] = index
		d.idxToPos = append(d.idxToPos, pos)

		ins, err := decodeOne(r, pos, index)
		if err != nil {
			return nil, err
		}
		d.Instructions = append(d.Instructions, ins)
	}

	for i := range d.Instructions {
		ins := &d.Instructions[i]
		if ins.IsBranch() {
			targetPos := ins.Pos + ins.BranchOffset
			idx, ok := d.posToIdx[targetPos]
			if !ok {
				return nil, javaerrors.New(javaerrors.KindMalformedControlFlow,
					"branch at pos %d targets pos %d, which is not an instruction boundary", ins.Pos, targetPos)
			}
			ins.BranchTarget = idx
		}
		if ins.Switch != nil {
			resolveSwitchTargets(ins, d)
		}
	}

	return d, nil
}

func resolveSwitchTargets(ins *Instruction, d *Disassembly) {
	resolve := func(pos int) int {
		idx, ok := d.posToIdx[ins.Pos+pos]
		if !ok {
			return -1
		}
		return idx
	}
	sw := ins.Switch
	defIdx := resolve(sw.DefaultTarget)
	sw.DefaultTarget = defIdx
	for i, t := range sw.Targets {
		sw.Targets[i] = resolve(t)
	}
}

func decodeOne(r *reader.Reader, pos, index int) (Instruction, error) {
	opByte, err := r.U8()
	if err != nil {
		return Instruction{}, err
	}
	op := Opcode(opByte)
	ins := Instruction{Pos: pos, Index: index, Op: op}

	switch op {
	case Nop, AConstNull,
		IConstM1, IConst0, IConst1, IConst2, IConst3, IConst4, IConst5,
		LConst0, LConst1, FConst0, FConst1, FConst2, DConst0, DConst1,
		ILoad0, ILoad1, ILoad2, ILoad3, LLoad0, LLoad1, LLoad2, LLoad3,
		FLoad0, FLoad1, FLoad2, FLoad3, DLoad0, DLoad1, DLoad2, DLoad3,
		ALoad0, ALoad1, ALoad2, ALoad3,
		IALoad, LALoad, FALoad, DALoad, AALoad, BALoad, CALoad, SALoad,
		IStore0, IStore1, IStore2, IStore3, LStore0, LStore1, LStore2, LStore3,
		FStore0, FStore1, FStore2, FStore3, DStore0, DStore1, DStore2, DStore3,
		AStore0, AStore1, AStore2, AStore3,
		IAStore, LAStore, FAStore, DAStore, AAStore, BAStore, CAStore, SAStore,
		Pop, Pop2, Dup, DupX1, DupX2, Dup2, Dup2X1, Dup2X2, Swap,
		IAdd, LAdd, FAdd, DAdd, ISub, LSub, FSub, DSub,
		IMul, LMul, FMul, DMul, IDiv, LDiv, FDiv, DDiv,
		IRem, LRem, FRem, DRem, INeg, LNeg, FNeg, DNeg,
		IShl, LShl, IShr, LShr, IUshr, LUshr, IAnd, LAnd, IOr, LOr, IXor, LXor,
		I2L, I2F, I2D, L2I, L2F, L2D, F2I, F2L, F2D, D2I, D2L, D2F, I2B, I2C, I2S,
		LCmp, FCmpL, FCmpG, DCmpL, DCmpG,
		IReturn, LReturn, FReturn, DReturn, AReturn, Return,
		ArrayLength, AThrow,
		MonitorEnter, MonitorExit:
		// no operands
	}

	switch op {
	case ILoad, LLoad, FLoad, DLoad, ALoad, IStore, LStore, FStore, DStore, AStore, Ret:
		slot, err := r.U8()
		if err != nil {
			return ins, err
		}
		ins.VarSlot = int(slot)

	case Bipush:
		v, err := r.I8()
		if err != nil {
			return ins, err
		}
		ins.IntOperand = int(v)

	case Sipush:
		v, err := r.I16()
		if err != nil {
			return ins, err
		}
		ins.IntOperand = int(v)

	case Ldc:
		idx, err := r.U8()
		if err != nil {
			return ins, err
		}
		ins.ConstIndex = int(idx)

	case LdcW, Ldc2W:
		idx, err := r.U16()
		if err != nil {
			return ins, err
		}
		ins.ConstIndex = int(idx)

	case IInc:
		slot, err := r.U8()
		if err != nil {
			return ins, err
		}
		amount, err := r.I8()
		if err != nil {
			return ins, err
		}
		ins.VarSlot = int(slot)
		ins.IncAmount = int(amount)

	case IfEq, IfNe, IfLt, IfGe, IfGt, IfLe,
		IfICmpEq, IfICmpNe, IfICmpLt, IfICmpGe, IfICmpGt, IfICmpLe,
		IfACmpEq, IfACmpNe, Goto, Jsr, IfNull, IfNonNull:
		off, err := r.I16()
		if err != nil {
			return ins, err
		}
		ins.BranchOffset = int(off)

	case GotoW, JsrW:
		off, err := r.I32()
		if err != nil {
			return ins, err
		}
		ins.BranchOffset = int(off)

	case TableSwitch:
		sw, err := decodeTableSwitch(r, pos)
		if err != nil {
			return ins, err
		}
		ins.Switch = sw

	case LookupSwitch:
		sw, err := decodeLookupSwitch(r, pos)
		if err != nil {
			return ins, err
		}
		ins.Switch = sw

	case GetStatic, PutStatic, GetField, PutField,
		InvokeVirtual, InvokeSpecial, InvokeStatic,
		New, ANewArray, CheckCast, InstanceOf:
		idx, err := r.U16()
		if err != nil {
			return ins, err
		}
		ins.ConstIndex = int(idx)

	case InvokeInterface:
		idx, err := r.U16()
		if err != nil {
			return ins, err
		}
		count, err := r.U8()
		if err != nil {
			return ins, err
		}
		if _, err := r.U8(); err != nil { // reserved zero byte
			return ins, err
		}
		ins.ConstIndex = int(idx)
		ins.InterfaceCount = int(count)

	case InvokeDynamic:
		idx, err := r.U16()
		if err != nil {
			return ins, err
		}
		if _, err := r.U16(); err != nil { // reserved zero bytes
			return ins, err
		}
		ins.ConstIndex = int(idx)

	case NewArray:
		atype, err := r.U8()
		if err != nil {
			return ins, err
		}
		ins.IntOperand = int(atype)

	case MultiANewArray:
		idx, err := r.U16()
		if err != nil {
			return ins, err
		}
		dims, err := r.U8()
		if err != nil {
			return ins, err
		}
		ins.ConstIndex = int(idx)
		ins.IntOperand = int(dims)

	case Wide:
		return decodeWide(r, pos, index)
	}

	return ins, nil
}

func decodeWide(r *reader.Reader, pos, index int) (Instruction, error) {
	innerByte, err := r.U8()
	if err != nil {
		return Instruction{}, err
	}
	inner := Opcode(innerByte)
	ins := Instruction{Pos: pos, Index: index, Op: inner, Wide: true}

	if inner == IInc {
		slot, err := r.U16()
		if err != nil {
			return ins, err
		}
		amount, err := r.I16()
		if err != nil {
			return ins, err
		}
		ins.VarSlot = int(slot)
		ins.IncAmount = int(amount)
		return ins, nil
	}

	switch inner {
	case ILoad, LLoad, FLoad, DLoad, ALoad, IStore, LStore, FStore, DStore, AStore, Ret:
		slot, err := r.U16()
		if err != nil {
			return ins, err
		}
		ins.VarSlot = int(slot)
	default:
		return ins, javaerrors.New(javaerrors.KindInstructionFormat,
			"illegal opcode %s after wide prefix at pos %d", inner, pos)
	}
	return ins, nil
}

func decodeTableSwitch(r *reader.Reader, pos int) (*SwitchData, error) {
	alignPos4(r, pos)
	def, err := r.I32()
	if err != nil {
		return nil, err
	}
	low, err := r.I32()
	if err != nil {
		return nil, err
	}
	high, err := r.I32()
	if err != nil {
		return nil, err
	}
	n := int(high) - int(low) + 1
	if n < 0 {
		return nil, javaerrors.New(javaerrors.KindInstructionFormat, "tableswitch at pos %d: high %d < low %d", pos, high, low)
	}
	targets := make([]int, n)
	for i := range targets {
		off, err := r.I32()
		if err != nil {
			return nil, err
		}
		targets[i] = int(off)
	}
	return &SwitchData{DefaultTarget: int(def), Low: low, High: high, Targets: targets}, nil
}

func decodeLookupSwitch(r *reader.Reader, pos int) (*SwitchData, error) {
	alignPos4(r, pos)
	def, err := r.I32()
	if err != nil {
		return nil, err
	}
	npairs, err := r.I32()
	if err != nil {
		return nil, err
	}
	if npairs < 0 {
		return nil, javaerrors.New(javaerrors.KindInstructionFormat, "lookupswitch at pos %d: negative npairs %d", pos, npairs)
	}
	keys := make([]int32, npairs)
	targets := make([]int, npairs)
	for i := range keys {
		k, err := r.I32()
		if err != nil {
			return nil, err
		}
		off, err := r.I32()
		if err != nil {
			return nil, err
		}
		keys[i] = k
		targets[i] = int(off)
	}
	return &SwitchData{DefaultTarget: int(def), Keys: keys, Targets: targets}, nil
}

// alignPos4 skips padding bytes so the reader's position (relative to the
// start of the bytecode stream, which is what `pos` tracks) is a multiple
// of 4, as JVMS §6.5 requires for tableswitch/lookupswitch.
func alignPos4(r *reader.Reader, insPos int) {
	afterOpcode := insPos + 1
	pad := (4 - (afterOpcode % 4)) % 4
	if pad > 0 {
		r.Seek(r.Pos() + pad)
	}
}

// FieldType resolves a GetField/PutField/GetStatic/PutStatic instruction's
// value type from its constant pool NameAndType descriptor.
func FieldType(ins *Instruction, cp *constpool.Pool) (types.Type, error) {
	ref, err := cp.GetRef(ins.ConstIndex, constpool.TagFieldref)
	if err != nil {
		return types.Type{}, err
	}
	return types.ParseFieldDescriptor(ref.NameAndType.Desc.Value)
}

// MethodDescriptor resolves an invoke* instruction's method descriptor.
func MethodDescriptor(ins *Instruction, cp *constpool.Pool) (types.MethodDescriptor, error) {
	var ref *constpool.RefEntry
	var err error
	switch ins.Op {
	case InvokeInterface:
		ref, err = cp.GetRef(ins.ConstIndex, constpool.TagInterfaceMethodref)
	case InvokeVirtual, InvokeSpecial, InvokeStatic:
		ref, err = cp.GetRef(ins.ConstIndex, constpool.TagMethodref)
	default:
		return types.MethodDescriptor{}, javaerrors.New(javaerrors.KindIllegalOpcode, "%s is not an invoke* instruction", ins.Op)
	}
	if err != nil {
		return types.MethodDescriptor{}, err
	}
	return types.ParseMethodDescriptor(ref.NameAndType.Desc.Value)
}
