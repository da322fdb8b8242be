// Package disasm implements the Disassembler component (spec §4.5):
// opcode decoding into Instructions, pos↔index maps, and block discovery
// including the four-case goto resolution rule.
package disasm

import "fmt"

// Opcode is a JVMS bytecode opcode byte.
type Opcode byte

const (
	Nop         Opcode = 0
	AConstNull  Opcode = 1
	IConstM1    Opcode = 2
	IConst0     Opcode = 3
	IConst1     Opcode = 4
	IConst2     Opcode = 5
	IConst3     Opcode = 6
	IConst4     Opcode = 7
	IConst5     Opcode = 8
	LConst0     Opcode = 9
	LConst1     Opcode = 10
	FConst0     Opcode = 11
	FConst1     Opcode = 12
	FConst2     Opcode = 13
	DConst0     Opcode = 14
	DConst1     Opcode = 15
	Bipush      Opcode = 16
	Sipush      Opcode = 17
	Ldc         Opcode = 18
	LdcW        Opcode = 19
	Ldc2W       Opcode = 20
	ILoad       Opcode = 21
	LLoad       Opcode = 22
	FLoad       Opcode = 23
	DLoad       Opcode = 24
	ALoad       Opcode = 25
	ILoad0      Opcode = 26
	ILoad1      Opcode = 27
	ILoad2      Opcode = 28
	ILoad3      Opcode = 29
	LLoad0      Opcode = 30
	LLoad1      Opcode = 31
	LLoad2      Opcode = 32
	LLoad3      Opcode = 33
	FLoad0      Opcode = 34
	FLoad1      Opcode = 35
	FLoad2      Opcode = 36
	FLoad3      Opcode = 37
	DLoad0      Opcode = 38
	DLoad1      Opcode = 39
	DLoad2      Opcode = 40
	DLoad3      Opcode = 41
	ALoad0      Opcode = 42
	ALoad1      Opcode = 43
	ALoad2      Opcode = 44
	ALoad3      Opcode = 45
	IALoad      Opcode = 46
	LALoad      Opcode = 47
	FALoad      Opcode = 48
	DALoad      Opcode = 49
	AALoad      Opcode = 50
	BALoad      Opcode = 51
	CALoad      Opcode = 52
	SALoad      Opcode = 53
	IStore      Opcode = 54
	LStore      Opcode = 55
	FStore      Opcode = 56
	DStore      Opcode = 57
	AStore      Opcode = 58
	IStore0     Opcode = 59
	IStore1     Opcode = 60
	IStore2     Opcode = 61
	IStore3     Opcode = 62
	LStore0     Opcode = 63
	LStore1     Opcode = 64
	LStore2     Opcode = 65
	LStore3     Opcode = 66
	FStore0     Opcode = 67
	FStore1     Opcode = 68
	FStore2     Opcode = 69
	FStore3     Opcode = 70
	DStore0     Opcode = 71
	DStore1     Opcode = 72
	DStore2     Opcode = 73
	DStore3     Opcode = 74
	AStore0     Opcode = 75
	AStore1     Opcode = 76
	AStore2     Opcode = 77
	AStore3     Opcode = 78
	IAStore     Opcode = 79
	LAStore     Opcode = 80
	FAStore     Opcode = 81
	DAStore     Opcode = 82
	AAStore     Opcode = 83
	BAStore     Opcode = 84
	CAStore     Opcode = 85
	SAStore     Opcode = 86
	Pop         Opcode = 87
	Pop2        Opcode = 88
	Dup         Opcode = 89
	DupX1       Opcode = 90
	DupX2       Opcode = 91
	Dup2        Opcode = 92
	Dup2X1      Opcode = 93
	Dup2X2      Opcode = 94
	Swap        Opcode = 95
	IAdd        Opcode = 96
	LAdd        Opcode = 97
	FAdd        Opcode = 98
	DAdd        Opcode = 99
	ISub        Opcode = 100
	LSub        Opcode = 101
	FSub        Opcode = 102
	DSub        Opcode = 103
	IMul        Opcode = 104
	LMul        Opcode = 105
	FMul        Opcode = 106
	DMul        Opcode = 107
	IDiv        Opcode = 108
	LDiv        Opcode = 109
	FDiv        Opcode = 110
	DDiv        Opcode = 111
	IRem        Opcode = 112
	LRem        Opcode = 113
	FRem        Opcode = 114
	DRem        Opcode = 115
	INeg        Opcode = 116
	LNeg        Opcode = 117
	FNeg        Opcode = 118
	DNeg        Opcode = 119
	IShl        Opcode = 120
	LShl        Opcode = 121
	IShr        Opcode = 122
	LShr        Opcode = 123
	IUshr       Opcode = 124
	LUshr       Opcode = 125
	IAnd        Opcode = 126
	LAnd        Opcode = 127
	IOr         Opcode = 128
	LOr         Opcode = 129
	IXor        Opcode = 130
	LXor        Opcode = 131
	IInc        Opcode = 132
	I2L         Opcode = 133
	I2F         Opcode = 134
	I2D         Opcode = 135
	L2I         Opcode = 136
	L2F         Opcode = 137
	L2D         Opcode = 138
	F2I         Opcode = 139
	F2L         Opcode = 140
	F2D         Opcode = 141
	D2I         Opcode = 142
	D2L         Opcode = 143
	D2F         Opcode = 144
	I2B         Opcode = 145
	I2C         Opcode = 146
	I2S         Opcode = 147
	LCmp        Opcode = 148
	FCmpL       Opcode = 149
	FCmpG       Opcode = 150
	DCmpL       Opcode = 151
	DCmpG       Opcode = 152
	IfEq        Opcode = 153
	IfNe        Opcode = 154
	IfLt        Opcode = 155
	IfGe        Opcode = 156
	IfGt        Opcode = 157
	IfLe        Opcode = 158
	IfICmpEq    Opcode = 159
	IfICmpNe    Opcode = 160
	IfICmpLt    Opcode = 161
	IfICmpGe    Opcode = 162
	IfICmpGt    Opcode = 163
	IfICmpLe    Opcode = 164
	IfACmpEq    Opcode = 165
	IfACmpNe    Opcode = 166
	Goto        Opcode = 167
	Jsr         Opcode = 168
	Ret         Opcode = 169
	TableSwitch Opcode = 170
	LookupSwitch Opcode = 171
	IReturn     Opcode = 172
	LReturn     Opcode = 173
	FReturn     Opcode = 174
	DReturn     Opcode = 175
	AReturn     Opcode = 176
	Return      Opcode = 177
	GetStatic   Opcode = 178
	PutStatic   Opcode = 179
	GetField    Opcode = 180
	PutField    Opcode = 181
	InvokeVirtual   Opcode = 182
	InvokeSpecial   Opcode = 183
	InvokeStatic    Opcode = 184
	InvokeInterface Opcode = 185
	InvokeDynamic   Opcode = 186
	New             Opcode = 187
	NewArray        Opcode = 188
	ANewArray       Opcode = 189
	ArrayLength     Opcode = 190
	AThrow          Opcode = 191
	CheckCast       Opcode = 192
	InstanceOf      Opcode = 193
	MonitorEnter    Opcode = 194
	MonitorExit     Opcode = 195
	Wide            Opcode = 196
	MultiANewArray  Opcode = 197
	IfNull          Opcode = 198
	IfNonNull       Opcode = 199
	GotoW           Opcode = 200
	JsrW            Opcode = 201
)

var opcodeNames = map[Opcode]string{
	Nop: "nop", AConstNull: "aconst_null", IConstM1: "iconst_m1",
	IConst0: "iconst_0", IConst1: "iconst_1", IConst2: "iconst_2", IConst3: "iconst_3", IConst4: "iconst_4", IConst5: "iconst_5",
	LConst0: "lconst_0", LConst1: "lconst_1", FConst0: "fconst_0", FConst1: "fconst_1", FConst2: "fconst_2",
	DConst0: "dconst_0", DConst1: "dconst_1", Bipush: "bipush", Sipush: "sipush",
	Ldc: "ldc", LdcW: "ldc_w", Ldc2W: "ldc2_w",
	ILoad: "iload", LLoad: "lload", FLoad: "fload", DLoad: "dload", ALoad: "aload",
	ILoad0: "iload_0", ILoad1: "iload_1", ILoad2: "iload_2", ILoad3: "iload_3",
	LLoad0: "lload_0", LLoad1: "lload_1", LLoad2: "lload_2", LLoad3: "lload_3",
	FLoad0: "fload_0", FLoad1: "fload_1", FLoad2: "fload_2", FLoad3: "fload_3",
	DLoad0: "dload_0", DLoad1: "dload_1", DLoad2: "dload_2", DLoad3: "dload_3",
	ALoad0: "aload_0", ALoad1: "aload_1", ALoad2: "aload_2", ALoad3: "aload_3",
	IALoad: "iaload", LALoad: "laload", FALoad: "faload", DALoad: "daload", AALoad: "aaload",
	BALoad: "baload", CALoad: "caload", SALoad: "saload",
	IStore: "istore", LStore: "lstore", FStore: "fstore", DStore: "dstore", AStore: "astore",
	IStore0: "istore_0", IStore1: "istore_1", IStore2: "istore_2", IStore3: "istore_3",
	LStore0: "lstore_0", LStore1: "lstore_1", LStore2: "lstore_2", LStore3: "lstore_3",
	FStore0: "fstore_0", FStore1: "fstore_1", FStore2: "fstore_2", FStore3: "fstore_3",
	DStore0: "dstore_0", DStore1: "dstore_1", DStore2: "dstore_2", DStore3: "dstore_3",
	AStore0: "astore_0", AStore1: "astore_1", AStore2: "astore_2", AStore3: "astore_3",
	IAStore: "iastore", LAStore: "lastore", FAStore: "fastore", DAStore: "dastore", AAStore: "aastore",
	BAStore: "bastore", CAStore: "castore", SAStore: "sastore",
	Pop: "pop", Pop2: "pop2", Dup: "dup", DupX1: "dup_x1", DupX2: "dup_x2",
	Dup2: "dup2", Dup2X1: "dup2_x1", Dup2X2: "dup2_x2", Swap: "swap",
	IAdd: "iadd", LAdd: "ladd", FAdd: "fadd", DAdd: "dadd",
	ISub: "isub", LSub: "lsub", FSub: "fsub", DSub: "dsub",
	IMul: "imul", LMul: "lmul", FMul: "fmul", DMul: "dmul",
	IDiv: "idiv", LDiv: "ldiv", FDiv: "fdiv", DDiv: "ddiv",
	IRem: "irem", LRem: "lrem", FRem: "frem", DRem: "drem",
	INeg: "ineg", LNeg: "lneg", FNeg: "fneg", DNeg: "dneg",
	IShl: "ishl", LShl: "lshl", IShr: "ishr", LShr: "lshr", IUshr: "iushr", LUshr: "lushr",
	IAnd: "iand", LAnd: "land", IOr: "ior", LOr: "lor", IXor: "ixor", LXor: "lxor",
	IInc: "iinc",
	I2L: "i2l", I2F: "i2f", I2D: "i2d", L2I: "l2i", L2F: "l2f", L2D: "l2d",
	F2I: "f2i", F2L: "f2l", F2D: "f2d", D2I: "d2i", D2L: "d2l", D2F: "d2f",
	I2B: "i2b", I2C: "i2c", I2S: "i2s",
	LCmp: "lcmp", FCmpL: "fcmpl", FCmpG: "fcmpg", DCmpL: "dcmpl", DCmpG: "dcmpg",
	IfEq: "ifeq", IfNe: "ifne", IfLt: "iflt", IfGe: "ifge", IfGt: "ifgt", IfLe: "ifle",
	IfICmpEq: "if_icmpeq", IfICmpNe: "if_icmpne", IfICmpLt: "if_icmplt",
	IfICmpGe: "if_icmpge", IfICmpGt: "if_icmpgt", IfICmpLe: "if_icmple",
	IfACmpEq: "if_acmpeq", IfACmpNe: "if_acmpne",
	Goto: "goto", Jsr: "jsr", Ret: "ret", TableSwitch: "tableswitch", LookupSwitch: "lookupswitch",
	IReturn: "ireturn", LReturn: "lreturn", FReturn: "freturn", DReturn: "dreturn", AReturn: "areturn", Return: "return",
	GetStatic: "getstatic", PutStatic: "putstatic", GetField: "getfield", PutField: "putfield",
	InvokeVirtual: "invokevirtual", InvokeSpecial: "invokespecial", InvokeStatic: "invokestatic",
	InvokeInterface: "invokeinterface", InvokeDynamic: "invokedynamic",
	New: "new", NewArray: "newarray", ANewArray: "anewarray", ArrayLength: "arraylength",
	AThrow: "athrow", CheckCast: "checkcast", InstanceOf: "instanceof",
	MonitorEnter: "monitorenter", MonitorExit: "monitorexit",
	Wide: "wide", MultiANewArray: "multianewarray", IfNull: "ifnull", IfNonNull: "ifnonnull",
	GotoW: "goto_w", JsrW: "jsr_w",
}

func (op Opcode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", byte(op))
}

// NewArray type codes (operand of the `newarray` opcode), JVMS §6.5.
const (
	ATypeBoolean = 4
	ATypeChar    = 5
	ATypeFloat   = 6
	ATypeDouble  = 7
	ATypeByte    = 8
	ATypeShort   = 9
	ATypeInt     = 10
	ATypeLong    = 11
)
