package render

import (
	"strings"
	"testing"

	"github.com/javadec/javadec/internal/classfile"
	"github.com/javadec/javadec/internal/eval"
	"github.com/javadec/javadec/internal/flow"
	"github.com/javadec/javadec/internal/types"
)

func newRenderer() *Renderer {
	return New(NewClassInfo("com.example"))
}

func TestExpr_BinaryAndLocalRef(t *testing.T) {
	r := newRenderer()
	op := &eval.Operation{
		Kind: eval.KindBinary, Op: "+", Type: types.Int,
		Left:  &eval.Operation{Kind: eval.KindLocalRef, Type: types.Int, Slot: 1, VarName: "x"},
		Right: &eval.Operation{Kind: eval.KindLiteral, Type: types.Int, LiteralValue: int32(2)},
	}
	got := r.Expr(op)
	if got != "(x + 2)" {
		t.Fatalf("Expr = %q, want (x + 2)", got)
	}
}

func TestExpr_StringConcatAndEscape(t *testing.T) {
	r := newRenderer()
	op := &eval.Operation{
		Kind: eval.KindStringConcat,
		Parts: []*eval.Operation{
			{Kind: eval.KindLiteral, Type: types.NewClass("java.lang", "String"), LiteralValue: "a\"b"},
			{Kind: eval.KindLocalRef, Type: types.Int, Slot: 2, VarName: "n"},
		},
	}
	got := r.Expr(op)
	want := `("a\"b" + n)`
	if got != want {
		t.Fatalf("Expr = %q, want %q", got, want)
	}
}

func TestExpr_FieldAccessImportsShortName(t *testing.T) {
	r := newRenderer()
	owner := types.NewClass("java.util", "Collections")
	op := &eval.Operation{Kind: eval.KindFieldAccess, OwnerType: owner, FieldName: "EMPTY_LIST"}
	got := r.Expr(op)
	if got != "Collections.EMPTY_LIST" {
		t.Fatalf("Expr = %q, want Collections.EMPTY_LIST", got)
	}
	if got2 := r.class.AddImport(owner); got2 != "Collections" {
		t.Fatalf("AddImport = %q, want Collections", got2)
	}
	imports := r.class.SortedImports()
	if len(imports) != 1 || imports[0] != "java.util.Collections" {
		t.Fatalf("SortedImports = %v", imports)
	}
}

func TestExpr_NewObjectInlinesAnonymousBody(t *testing.T) {
	r := newRenderer()
	r.InternalName = func(t types.Type) string { return "com/example/Foo$1" }
	r.AnonBody = func(name string) (string, string, bool) {
		if name != "com/example/Foo$1" {
			return "", "", false
		}
		return "Runnable", "    public void run() {\n    }\n", true
	}
	anon := types.Type{Kind: types.KindClass, Simple: "1", Anonymous: true}
	op := &eval.Operation{Kind: eval.KindNewObject, ClassType: anon}
	got := r.Expr(op)
	want := "new Runnable() {\n    public void run() {\n    }\n}"
	if got != want {
		t.Fatalf("Expr = %q, want %q", got, want)
	}
}

func TestExpr_ImportCollisionFallsBackToQualified(t *testing.T) {
	ci := NewClassInfo("com.example")
	a := types.NewClass("java.awt", "List")
	b := types.NewClass("java.util", "List")
	if got := ci.AddImport(a); got != "List" {
		t.Fatalf("first AddImport = %q, want List", got)
	}
	if got := ci.AddImport(b); got != "java.util.List" {
		t.Fatalf("colliding AddImport = %q, want qualified name", got)
	}
}

func TestExpr_TernaryCollapsesBooleanIdiom(t *testing.T) {
	r := newRenderer()
	cond := &eval.Operation{Kind: eval.KindCompareBinary, Op: "<", Type: types.Boolean,
		Left: &eval.Operation{Kind: eval.KindLocalRef, Type: types.Int, Slot: 1, VarName: "a"},
		Right: &eval.Operation{Kind: eval.KindLocalRef, Type: types.Int, Slot: 2, VarName: "b"},
	}
	ternary := &eval.Operation{
		Kind: eval.KindTernary, Type: types.Boolean, Cond: cond,
		WhenTrue:  &eval.Operation{Kind: eval.KindLiteral, Type: types.Int, LiteralValue: int32(1)},
		WhenFalse: &eval.Operation{Kind: eval.KindLiteral, Type: types.Int, LiteralValue: int32(0)},
	}
	got := r.Expr(ternary)
	want := "(a < b)"
	if got != want {
		t.Fatalf("Expr = %q, want %q", got, want)
	}
}

func TestExpr_TernaryGeneralForm(t *testing.T) {
	r := newRenderer()
	ternary := &eval.Operation{
		Kind: eval.KindTernary, Type: types.Int,
		Cond:      &eval.Operation{Kind: eval.KindLocalRef, Type: types.Boolean, Slot: 1, VarName: "ok"},
		WhenTrue:  &eval.Operation{Kind: eval.KindLiteral, Type: types.Int, LiteralValue: int32(10)},
		WhenFalse: &eval.Operation{Kind: eval.KindLiteral, Type: types.Int, LiteralValue: int32(20)},
	}
	got := r.Expr(ternary)
	if got != "(ok ? 10 : 20)" {
		t.Fatalf("Expr = %q, want (ok ? 10 : 20)", got)
	}
}

func TestLiteral_FloatIntegralGetsTrailingZero(t *testing.T) {
	r := newRenderer()
	op := &eval.Operation{Kind: eval.KindLiteral, Type: types.Double, LiteralValue: float64(3)}
	if got := r.Expr(op); got != "3.0" {
		t.Fatalf("literal = %q, want 3.0", got)
	}
}

func TestLiteral_NaNAndInfinity(t *testing.T) {
	r := newRenderer()
	nan := &eval.Operation{Kind: eval.KindLiteral, Type: types.Double, LiteralValue: nan()}
	if got := r.Expr(nan); got != "(0.0/0.0)" {
		t.Fatalf("NaN = %q, want (0.0/0.0)", got)
	}
	pos := &eval.Operation{Kind: eval.KindLiteral, Type: types.Double, LiteralValue: inf(1)}
	if got := r.Expr(pos); got != "(1.0/0.0)" {
		t.Fatalf("+Inf = %q, want (1.0/0.0)", got)
	}
}

func nan() float64 { var z float64; return z / z }
func inf(sign int) float64 {
	var z float64
	if sign >= 0 {
		return 1 / z
	}
	return -1 / z
}

func TestEscapeString_SurrogatePair(t *testing.T) {
	got := escapeString("\U0001F600")
	want := `\ud83d\ude00`
	if got != want {
		t.Fatalf("escapeString = %q, want %q", got, want)
	}
}

func TestEscapeString_BMPPreservedLiteral(t *testing.T) {
	got := escapeString("café")
	if got != "café" {
		t.Fatalf("escapeString = %q", got)
	}
}

func TestEscapeChar_ControlCode(t *testing.T) {
	if got := escapeChar('\n'); got != `\n` {
		t.Fatalf("escapeChar(newline) = %q", got)
	}
	if got := escapeChar(rune(1)); got != `\u0001` {
		t.Fatalf("escapeChar(0x01) = %q", got)
	}
}

func TestNode_IfElseChainRendersElseIf(t *testing.T) {
	r := newRenderer()
	innerCond := &eval.Operation{Kind: eval.KindLocalRef, Type: types.Boolean, Slot: 2, VarName: "b"}
	inner := &flow.Node{Kind: flow.KindIf, Cond: innerCond, Body: []flow.Item{
		{Stmt: &eval.Operation{Kind: eval.KindReturn, ReturnValue: &eval.Operation{Kind: eval.KindLiteral, Type: types.Int, LiteralValue: int32(2)}}},
	}}
	outer := &flow.Node{
		Kind: flow.KindIf,
		Cond: &eval.Operation{Kind: eval.KindLocalRef, Type: types.Boolean, Slot: 1, VarName: "a"},
		Body: []flow.Item{
			{Stmt: &eval.Operation{Kind: eval.KindReturn, ReturnValue: &eval.Operation{Kind: eval.KindLiteral, Type: types.Int, LiteralValue: int32(1)}}},
		},
		Else: &flow.Node{Kind: flow.KindPlain, Body: []flow.Item{{Node: inner}}},
	}
	r.Node(outer, 0)
	out := r.String()
	if !strings.Contains(out, "} else if (b) {") {
		t.Fatalf("expected else-if chaining, got:\n%s", out)
	}
}

func TestNode_TryCatchMultiCatch(t *testing.T) {
	r := newRenderer()
	n := &flow.Node{
		Kind: flow.KindTry,
		Body: []flow.Item{
			{Stmt: &eval.Operation{Kind: eval.KindReturn}},
		},
		Catches: []flow.CatchScope{
			{CatchTypes: []types.Type{types.NewClass("java.io", "IOException"), types.NewClass("java.lang", "RuntimeException")}},
		},
	}
	r.Node(n, 0)
	out := r.String()
	if !strings.Contains(out, "catch (IOException | RuntimeException ex) {") {
		t.Fatalf("expected multi-catch clause, got:\n%s", out)
	}
}

func TestNode_SwitchInsertsCaseLabels(t *testing.T) {
	r := newRenderer()
	n := &flow.Node{
		Kind:  flow.KindSwitch,
		Value: &eval.Operation{Kind: eval.KindLocalRef, Type: types.Int, Slot: 1, VarName: "x"},
		Cases: []flow.CaseLabel{{Key: 1, AtIndex: 5}, {IsDefault: true, AtIndex: 9}},
		Body: []flow.Item{
			{Index: 5, Stmt: &eval.Operation{Kind: eval.KindReturn, ReturnValue: &eval.Operation{Kind: eval.KindLiteral, Type: types.Int, LiteralValue: int32(1)}}},
			{Index: 9, Jump: &flow.Jump{Kind: flow.JumpBreak}},
		},
	}
	r.Node(n, 0)
	out := r.String()
	if !strings.Contains(out, "case 1:") || !strings.Contains(out, "default:") {
		t.Fatalf("expected case/default labels, got:\n%s", out)
	}
}

func TestFieldOrder_StaticFirst(t *testing.T) {
	fields := []classfile.Field{
		{Name: "instanceCount", AccessFlags: classfile.AccPrivate},
		{Name: "VERSION", AccessFlags: classfile.AccPrivate | classfile.AccStatic | classfile.AccFinal},
	}
	ordered := FieldOrder(fields)
	if ordered[0].Name != "VERSION" {
		t.Fatalf("FieldOrder = %v, want VERSION first", ordered)
	}
}

func TestMethodOrder_ClinitAndInitFirst(t *testing.T) {
	methods := []classfile.Method{
		{Name: "doWork"},
		{Name: "<init>"},
		{Name: "<clinit>"},
	}
	ordered := MethodOrder(methods)
	if ordered[0].Name != "<clinit>" || ordered[1].Name != "<init>" {
		t.Fatalf("MethodOrder = %v", ordered)
	}
}

func TestMethodModifiers_PublicStaticFinal(t *testing.T) {
	got := MethodModifiers(classfile.AccPublic | classfile.AccStatic | classfile.AccFinal)
	if got != "public static final" {
		t.Fatalf("MethodModifiers = %q", got)
	}
}
