package flow

import (
	"testing"

	"github.com/javadec/javadec/internal/disasm"
	"github.com/javadec/javadec/internal/eval"
	"github.com/javadec/javadec/internal/scope"
	"github.com/javadec/javadec/internal/types"
)

func nopInstructions(n int) []disasm.Instruction {
	out := make([]disasm.Instruction, n)
	for i := range out {
		out[i] = disasm.Instruction{Index: i, Op: disasm.Nop}
	}
	return out
}

func localRef(slot int, t types.Type) *eval.Operation {
	return &eval.Operation{Kind: eval.KindLocalRef, Type: t, Slot: slot}
}

func lit(v int32) *eval.Operation {
	return &eval.Operation{Kind: eval.KindLiteral, Type: types.Int, LiteralValue: v}
}

func TestReconstruct_IfElse(t *testing.T) {
	// if (slot0 < slot1) { slot1 = 1; } else { slot2 = 2; }
	root := &disasm.Block{Kind: disasm.BlockRoot, Start: 0, End: 5}
	ifBlk := &disasm.Block{Kind: disasm.BlockIf, Start: 1, End: 3, ElseStart: 3, ElseEnd: 5, Parent: root}
	root.Children = []*disasm.Block{ifBlk}

	stmts := []*eval.Operation{
		{Index: 1, Kind: eval.KindAssign, Target: localRef(1, types.Int), Value: lit(1)},
		{Index: 3, Kind: eval.KindAssign, Target: localRef(2, types.Int), Value: lit(2)},
	}
	conditions := map[int]*eval.Operation{
		0: {Index: 0, Kind: eval.KindCompareBinary, Op: ">=", Left: localRef(0, types.Int), Right: localRef(1, types.Int)},
	}

	in := Input{
		Disasm:     &disasm.Disassembly{Instructions: nopInstructions(5)},
		Root:       root,
		Statements: stmts,
		Conditions: conditions,
		Scope:      scope.New(scope.KindMethod, 0, 5, nil),
	}
	node, err := Reconstruct(in)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(node.Body) != 1 || node.Body[0].Node == nil || node.Body[0].Node.Kind != KindIf {
		t.Fatalf("expected a single If node, got %+v", node.Body)
	}
	ifNode := node.Body[0].Node
	if ifNode.Cond.Op != "<" {
		t.Fatalf("expected negated condition '<', got %q", ifNode.Cond.Op)
	}
	if len(ifNode.Body) != 1 || ifNode.Body[0].Stmt == nil || ifNode.Body[0].Stmt.Target.Slot != 1 {
		t.Fatalf("unexpected then-body: %+v", ifNode.Body)
	}
	if ifNode.Else == nil || len(ifNode.Else.Body) != 1 || ifNode.Else.Body[0].Stmt.Target.Slot != 2 {
		t.Fatalf("unexpected else-body: %+v", ifNode.Else)
	}
}

func TestReconstruct_TernaryCollapse(t *testing.T) {
	// slot1 = cond ? 1 : 2;
	root := &disasm.Block{Kind: disasm.BlockRoot, Start: 0, End: 5}
	ifBlk := &disasm.Block{Kind: disasm.BlockIf, Start: 1, End: 3, ElseStart: 3, ElseEnd: 5, Parent: root}
	root.Children = []*disasm.Block{ifBlk}

	stmts := []*eval.Operation{
		{Index: 1, Kind: eval.KindAssign, Target: localRef(1, types.Int), Value: lit(1)},
		{Index: 3, Kind: eval.KindAssign, Target: localRef(1, types.Int), Value: lit(2)},
	}
	conditions := map[int]*eval.Operation{
		0: {Index: 0, Kind: eval.KindCompareBinary, Op: ">=", Left: localRef(0, types.Int), Right: localRef(1, types.Int)},
	}

	in := Input{
		Disasm:     &disasm.Disassembly{Instructions: nopInstructions(5)},
		Root:       root,
		Statements: stmts,
		Conditions: conditions,
		Scope:      scope.New(scope.KindMethod, 0, 5, nil),
	}
	node, err := Reconstruct(in)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(node.Body) != 1 || node.Body[0].Stmt == nil {
		t.Fatalf("expected a single collapsed statement, got %+v", node.Body)
	}
	stmt := node.Body[0].Stmt
	if stmt.Kind != eval.KindAssign || stmt.Value.Kind != eval.KindTernary {
		t.Fatalf("expected ternary-valued assignment, got %+v", stmt)
	}
	if stmt.Value.WhenTrue.LiteralValue.(int32) != 1 || stmt.Value.WhenFalse.LiteralValue.(int32) != 2 {
		t.Fatalf("unexpected ternary branches: %+v", stmt.Value)
	}
}

func TestReconstruct_WhileLoopSingleIf(t *testing.T) {
	// L: if (slot0 >= slot1) goto END; slot0 = 1; goto L; END:
	root := &disasm.Block{Kind: disasm.BlockRoot, Start: 0, End: 4}
	loopBlk := &disasm.Block{Kind: disasm.BlockLoop, Start: 0, End: 4, Parent: root}
	ifBlk := &disasm.Block{Kind: disasm.BlockIf, Start: 1, End: 4, ElseStart: -1, Parent: loopBlk}
	loopBlk.Children = []*disasm.Block{ifBlk}
	root.Children = []*disasm.Block{loopBlk}

	stmts := []*eval.Operation{
		{Index: 1, Kind: eval.KindAssign, Target: localRef(0, types.Int), Value: lit(1)},
	}
	conditions := map[int]*eval.Operation{
		0: {Index: 0, Kind: eval.KindCompareBinary, Op: ">=", Left: localRef(0, types.Int), Right: localRef(1, types.Int)},
	}

	in := Input{
		Disasm:     &disasm.Disassembly{Instructions: nopInstructions(4)},
		Root:       root,
		Statements: stmts,
		Conditions: conditions,
		Scope:      scope.New(scope.KindMethod, 0, 4, nil),
	}
	node, err := Reconstruct(in)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(node.Body) != 1 || node.Body[0].Node == nil || node.Body[0].Node.Kind != KindWhile {
		t.Fatalf("expected a single While node, got %+v", node.Body)
	}
	while := node.Body[0].Node
	if while.Cond.Op != "<" {
		t.Fatalf("expected negated condition '<', got %q", while.Cond.Op)
	}
	if len(while.Body) != 1 || while.Body[0].Stmt == nil {
		t.Fatalf("unexpected while body: %+v", while.Body)
	}
}

func TestReconstruct_ForLoopPromotion(t *testing.T) {
	// slot1 = 0; L: if (slot1 >= slot2) goto END; slot0 = 1; slot1++; goto L; END:
	root := &disasm.Block{Kind: disasm.BlockRoot, Start: 0, End: 5}
	loopBlk := &disasm.Block{Kind: disasm.BlockLoop, Start: 1, End: 5, Parent: root}
	ifBlk := &disasm.Block{Kind: disasm.BlockIf, Start: 2, End: 5, ElseStart: -1, Parent: loopBlk}
	loopBlk.Children = []*disasm.Block{ifBlk}
	root.Children = []*disasm.Block{loopBlk}

	stmts := []*eval.Operation{
		{Index: 0, Kind: eval.KindAssign, Target: localRef(1, types.Int), Value: lit(0)},
		{Index: 2, Kind: eval.KindAssign, Target: localRef(0, types.Int), Value: lit(1)},
		{Index: 3, Kind: eval.KindUnary, Op: "++", Operand: localRef(1, types.Int)},
	}
	conditions := map[int]*eval.Operation{
		1: {Index: 1, Kind: eval.KindCompareBinary, Op: ">=", Left: localRef(1, types.Int), Right: localRef(2, types.Int)},
	}

	in := Input{
		Disasm:     &disasm.Disassembly{Instructions: nopInstructions(5)},
		Root:       root,
		Statements: stmts,
		Conditions: conditions,
		Scope:      scope.New(scope.KindMethod, 0, 5, nil),
	}
	node, err := Reconstruct(in)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(node.Body) != 1 || node.Body[0].Node == nil || node.Body[0].Node.Kind != KindFor {
		t.Fatalf("expected loop to be promoted to For, got %+v", node.Body)
	}
	forNode := node.Body[0].Node
	if forNode.Init == nil || forNode.Init.Target.Slot != 1 {
		t.Fatalf("unexpected for-init: %+v", forNode.Init)
	}
	if forNode.Update == nil || forNode.Update.Operand.Slot != 1 {
		t.Fatalf("unexpected for-update: %+v", forNode.Update)
	}
	if len(forNode.Body) != 1 || forNode.Body[0].Stmt == nil || forNode.Body[0].Stmt.Target.Slot != 0 {
		t.Fatalf("unexpected for-body: %+v", forNode.Body)
	}
}

func TestReconstruct_BreakOutOfLoop(t *testing.T) {
	// infinite loop whose body is: slot0 = 1; if (cond) break; slot0 = 2;
	// modelled directly: loop[0,5) containing a plain assign at 0, a loose
	// forward goto to 5 at index 1, and another assign at 2.
	root := &disasm.Block{Kind: disasm.BlockRoot, Start: 0, End: 5}
	loopBlk := &disasm.Block{Kind: disasm.BlockLoop, Start: 0, End: 5, Parent: root}
	root.Children = []*disasm.Block{loopBlk}

	instructions := nopInstructions(5)
	instructions[1] = disasm.Instruction{Index: 1, Op: disasm.Goto, BranchTarget: 5}
	instructions[4] = disasm.Instruction{Index: 4, Op: disasm.Goto, BranchTarget: 0}

	stmts := []*eval.Operation{
		{Index: 0, Kind: eval.KindAssign, Target: localRef(0, types.Int), Value: lit(1)},
		{Index: 2, Kind: eval.KindAssign, Target: localRef(0, types.Int), Value: lit(2)},
	}

	in := Input{
		Disasm:     &disasm.Disassembly{Instructions: instructions},
		Root:       root,
		Statements: stmts,
		Conditions: map[int]*eval.Operation{},
		Scope:      scope.New(scope.KindMethod, 0, 5, nil),
	}
	node, err := Reconstruct(in)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(node.Body) != 1 || node.Body[0].Node == nil || node.Body[0].Node.Kind != KindWhile {
		t.Fatalf("expected a single While node, got %+v", node.Body)
	}
	body := node.Body[0].Node.Body
	if len(body) != 3 {
		t.Fatalf("expected assign, break, assign; got %d items: %+v", len(body), body)
	}
	if body[1].Jump == nil || body[1].Jump.Kind != JumpBreak || body[1].Jump.Label != "" {
		t.Fatalf("expected an unlabeled break at position 1, got %+v", body[1])
	}
}

func TestNegate_InvertsComparisonOperators(t *testing.T) {
	cases := []struct{ in, want string }{
		{"==", "!="}, {"!=", "=="}, {"<", ">="}, {">=", "<"}, {">", "<="}, {"<=", ">"},
	}
	for _, c := range cases {
		cond := &eval.Operation{Kind: eval.KindCompareBinary, Op: c.in, Left: lit(1), Right: lit(2)}
		got := negate(cond)
		if got.Op != c.want {
			t.Errorf("negate(%q) = %q, want %q", c.in, got.Op, c.want)
		}
	}
}

func TestDetectEnumConstants(t *testing.T) {
	self := types.NewClass("com.example", "Color")
	newObj := func(name string, ordinal int32) *eval.Operation {
		return &eval.Operation{
			Kind: eval.KindNewObject, ClassType: self,
			CtorArgs: []*eval.Operation{
				{Kind: eval.KindLiteral, Type: types.NewClass("java.lang", "String"), LiteralValue: name},
				{Kind: eval.KindLiteral, Type: types.Int, LiteralValue: ordinal},
			},
		}
	}
	clinit := []*eval.Operation{
		{Index: 0, Kind: eval.KindAssign, Target: &eval.Operation{Kind: eval.KindFieldAccess, OwnerType: self, FieldName: "RED"}, Value: newObj("RED", 0)},
		{Index: 1, Kind: eval.KindAssign, Target: &eval.Operation{Kind: eval.KindFieldAccess, OwnerType: self, FieldName: "GREEN"}, Value: newObj("GREEN", 1)},
		{Index: 2, Kind: eval.KindAssign, Target: &eval.Operation{Kind: eval.KindFieldAccess, OwnerType: self, FieldName: "$VALUES"}, Value: &eval.Operation{Kind: eval.KindNewArray}},
	}
	consts, consumed := DetectEnumConstants(clinit, self)
	if len(consts) != 2 || consts[0].Name != "RED" || consts[1].Name != "GREEN" {
		t.Fatalf("unexpected enum constants: %+v", consts)
	}
	if !consumed[0] || !consumed[1] || consumed[2] {
		t.Fatalf("unexpected consumed set: %+v", consumed)
	}
}
