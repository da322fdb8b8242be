package eval

import (
	"testing"

	"github.com/javadec/javadec/internal/disasm"
	"github.com/javadec/javadec/internal/scope"
	"github.com/javadec/javadec/internal/types"
)

func newTestDisasm(instructions ...disasm.Instruction) *disasm.Disassembly {
	return &disasm.Disassembly{Instructions: instructions}
}

func TestEval_SimpleArithmetic(t *testing.T) {
	// iconst_2; iconst_3; iadd; ireturn  =>  return 2 + 3;
	d := newTestDisasm(
		disasm.Instruction{Op: disasm.IConst2, Index: 0},
		disasm.Instruction{Op: disasm.IConst3, Index: 1},
		disasm.Instruction{Op: disasm.IAdd, Index: 2},
		disasm.Instruction{Op: disasm.IReturn, Index: 3},
	)
	sc := scope.New(scope.KindMethod, 0, d.Len(), nil)
	e := New(d, nil, nil, sc)
	stmts, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stmts) != 1 || stmts[0].Kind != KindReturn {
		t.Fatalf("expected single return statement, got %+v", stmts)
	}
	ret := stmts[0].ReturnValue
	if ret.Kind != KindBinary || ret.Op != "+" {
		t.Fatalf("expected binary + expression, got %+v", ret)
	}
	if ret.Left.LiteralValue.(int32) != 2 || ret.Right.LiteralValue.(int32) != 3 {
		t.Fatalf("unexpected operands: %+v", ret)
	}
}

func TestEval_LoadStoreRoundTrip(t *testing.T) {
	// iload_0; istore_1  =>  slot1 = slot0;
	d := newTestDisasm(
		disasm.Instruction{Op: disasm.ILoad0, Index: 0},
		disasm.Instruction{Op: disasm.IStore1, Index: 1},
	)
	sc := scope.New(scope.KindMethod, 0, d.Len(), nil)
	sc.AddVariable(&scope.Variable{Slot: 0, Type: types.Int, Name: "x"})
	e := New(d, nil, nil, sc)
	stmts, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stmts) != 1 || stmts[0].Kind != KindAssign {
		t.Fatalf("expected single assign statement, got %+v", stmts)
	}
	if stmts[0].Target.Slot != 1 {
		t.Fatalf("expected assign target slot 1, got %d", stmts[0].Target.Slot)
	}
	if stmts[0].Value.Kind != KindLocalRef || stmts[0].Value.Slot != 0 {
		t.Fatalf("expected assign value to reference slot 0, got %+v", stmts[0].Value)
	}
}

func TestEval_IfIcmpGeProducesCondition(t *testing.T) {
	// iload_0; iload_1; if_icmpge 0  =>  condition slot0 >= slot1
	d := newTestDisasm(
		disasm.Instruction{Op: disasm.ILoad0, Index: 0},
		disasm.Instruction{Op: disasm.ILoad1, Index: 1},
		disasm.Instruction{Op: disasm.IfICmpGe, Index: 2, BranchTarget: 3},
		disasm.Instruction{Op: disasm.Return, Index: 3},
	)
	sc := scope.New(scope.KindMethod, 0, d.Len(), nil)
	e := New(d, nil, nil, sc)
	if _, err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	cond, ok := e.Conditions[2]
	if !ok {
		t.Fatalf("expected a recorded condition for instruction 2")
	}
	if cond.Kind != KindCompareBinary || cond.Op != ">=" {
		t.Fatalf("expected >= comparison, got %+v", cond)
	}
}

func TestEval_IInc_PlusPlus(t *testing.T) {
	d := newTestDisasm(disasm.Instruction{Op: disasm.IInc, Index: 0, VarSlot: 2, IncAmount: 1})
	sc := scope.New(scope.KindMethod, 0, d.Len(), nil)
	e := New(d, nil, nil, sc)
	stmts, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stmts) != 1 || stmts[0].Kind != KindUnary || stmts[0].Op != "++" {
		t.Fatalf("expected ++ statement, got %+v", stmts)
	}
}

func TestEval_IInc_CompoundAssign(t *testing.T) {
	d := newTestDisasm(disasm.Instruction{Op: disasm.IInc, Index: 0, VarSlot: 2, IncAmount: 5})
	sc := scope.New(scope.KindMethod, 0, d.Len(), nil)
	e := New(d, nil, nil, sc)
	stmts, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stmts) != 1 || stmts[0].Kind != KindAssign {
		t.Fatalf("expected assign statement for non-unit iinc, got %+v", stmts)
	}
	if stmts[0].Value.Op != "+=" {
		t.Fatalf("expected += binary form, got %+v", stmts[0].Value)
	}
}

func TestEval_PopEmptyStackErrors(t *testing.T) {
	d := newTestDisasm(disasm.Instruction{Op: disasm.Pop, Index: 0})
	sc := scope.New(scope.KindMethod, 0, d.Len(), nil)
	e := New(d, nil, nil, sc)
	if _, err := e.Run(); err == nil {
		t.Fatalf("expected an error popping an empty stack")
	}
}
