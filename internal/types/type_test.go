package types

import "testing"

func TestParseDescriptor_Array(t *testing.T) {
	ty, n, err := ParseDescriptor("[[I")
	if err != nil {
		t.Fatalf("ParseDescriptor: %v", err)
	}
	if n != 3 {
		t.Fatalf("consumed %d, want 3", n)
	}
	if ty.Kind != KindArray || ty.Dims != 2 || ty.Elem.Kind != KindInt {
		t.Fatalf("got %+v", ty)
	}
	if ty.String() != "int[][]" {
		t.Fatalf("String() = %q", ty.String())
	}
}

func TestParseMethodDescriptor(t *testing.T) {
	md, err := ParseMethodDescriptor("(Ljava/lang/String;I)V")
	if err != nil {
		t.Fatalf("ParseMethodDescriptor: %v", err)
	}
	if len(md.Params) != 2 || md.Return.Kind != KindVoid {
		t.Fatalf("got %+v", md)
	}
	if md.Params[0].String() != "java.lang.String" {
		t.Fatalf("param0 = %q", md.Params[0].String())
	}
}

func TestClassFromInternalName_InnerAndAnonymous(t *testing.T) {
	ty := ClassFromInternalName("com/example/Outer$1")
	if !ty.Anonymous {
		t.Fatalf("expected anonymous class")
	}
	if ty.Enclosing == nil || ty.Enclosing.Simple != "Outer" {
		t.Fatalf("expected enclosing Outer, got %+v", ty.Enclosing)
	}
}

func TestLattice_AmbiguousNarrowsOnConcreteCast(t *testing.T) {
	result, err := AnyIntOrBoolean.CastTo(Int)
	if err != nil {
		t.Fatalf("CastTo: %v", err)
	}
	if result.Kind != KindInt {
		t.Fatalf("got %+v", result)
	}
}

func TestLattice_IsSubtypeOfPrimitiveChain(t *testing.T) {
	if !Byte.IsSubtypeOf(Short) || !Short.IsSubtypeOf(Int) {
		t.Fatalf("expected byte <: short <: int")
	}
	if !Char.IsSubtypeOf(Int) {
		t.Fatalf("expected char <: int")
	}
	if Int.IsSubtypeOf(Long) {
		t.Fatalf("spec only names byte<:short<:int and char<:int, not int<:long")
	}
}

func TestLattice_CastToWidestPrefersWider(t *testing.T) {
	result, err := Int.CastToWidest(Long)
	if err != nil || result.Kind != KindLong {
		t.Fatalf("got %+v, %v", result, err)
	}
}

func TestLattice_TwoWayCastCommutative(t *testing.T) {
	a, err1 := Int.TwoWayCastTo(Long)
	b, err2 := Long.TwoWayCastTo(Int)
	if err1 != nil || err2 != nil || a.Kind != b.Kind {
		t.Fatalf("twoWayCast not commutative: %+v/%v vs %+v/%v", a, err1, b, err2)
	}
}

func TestParseClassSignature_Generic(t *testing.T) {
	sig, err := ParseClassSignature("<T:Ljava/lang/Object;>Ljava/lang/Object;Ljava/util/List<TT;>;")
	if err != nil {
		t.Fatalf("ParseClassSignature: %v", err)
	}
	if len(sig.TypeParams) != 1 || sig.TypeParams[0].Name != "T" {
		t.Fatalf("got %+v", sig.TypeParams)
	}
	if len(sig.Interfaces) != 1 || sig.Interfaces[0].Simple != "List" {
		t.Fatalf("got %+v", sig.Interfaces)
	}
}
