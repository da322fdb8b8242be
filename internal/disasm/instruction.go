package disasm

// Instruction is the immutable record produced by pass 1 (spec §4.5):
// opcode plus whichever operand fields are meaningful for that opcode.
// Rather than one Go type per opcode, Instruction is a single tagged
// struct (per the §9 design note preferring sum types over a downcast
// hierarchy); the evaluator and flow reconstructor switch on Op.
type Instruction struct {
	Pos   int
	Index int
	Op    Opcode

	// ILoad/IStore/ALoad/.../Ret/IInc: local variable slot.
	VarSlot int
	// IInc: the increment amount (signed).
	IncAmount int

	// Bipush/Sipush/NewArray(atype)/MultiANewArray(dims): small signed/
	// unsigned immediate.
	IntOperand int

	// Ldc/LdcW/Ldc2W/GetStatic/PutStatic/GetField/PutField/InvokeVirtual/
	// InvokeSpecial/InvokeStatic/InvokeInterface/InvokeDynamic/New/
	// ANewArray/CheckCast/InstanceOf/MultiANewArray(class index):
	// constant pool index.
	ConstIndex int

	// InvokeInterface: the count byte (number of argument words + 1).
	InterfaceCount int

	// If*/Goto/Jsr: branch target, both as a raw byte offset and as the
	// resolved instruction index (filled in once all instructions are
	// decoded and the pos→index map exists).
	BranchOffset int
	BranchTarget int

	// TableSwitch/LookupSwitch.
	Switch *SwitchData

	Wide bool // decoded via the `wide` prefix
}

// SwitchData covers both tableswitch and lookupswitch; Keys is nil for
// tableswitch (use Low/High instead), and Low/High are 0 for
// lookupswitch.
type SwitchData struct {
	DefaultTarget int
	Low, High     int32     // tableswitch only
	Targets       []int     // tableswitch: index i holds the target for value Low+i
	Keys          []int32   // lookupswitch: match values, parallel to Targets
}

// IsBranch reports whether the instruction transfers control via a
// 2-byte or 4-byte signed offset (the `if*`, `goto[_w]`, `jsr[_w]`
// family).
func (ins *Instruction) IsBranch() bool {
	switch ins.Op {
	case IfEq, IfNe, IfLt, IfGe, IfGt, IfLe,
		IfICmpEq, IfICmpNe, IfICmpLt, IfICmpGe, IfICmpGt, IfICmpLe,
		IfACmpEq, IfACmpNe, Goto, GotoW, Jsr, JsrW, IfNull, IfNonNull:
		return true
	}
	return false
}

// IsConditional reports whether the instruction is an `if*` (as opposed
// to the unconditional goto/jsr).
func (ins *Instruction) IsConditional() bool {
	return ins.IsBranch() && ins.Op != Goto && ins.Op != GotoW && ins.Op != Jsr && ins.Op != JsrW
}

// IsReturn reports whether the instruction is one of the six `*return`
// opcodes.
func (ins *Instruction) IsReturn() bool {
	switch ins.Op {
	case IReturn, LReturn, FReturn, DReturn, AReturn, Return:
		return true
	}
	return false
}
