package registry

import (
	"testing"

	"github.com/javadec/javadec/internal/classfile"
	"github.com/javadec/javadec/internal/constpool"
	"github.com/javadec/javadec/internal/types"
)

func TestIsAnonymous(t *testing.T) {
	cases := map[string]bool{
		"com/example/Foo$1":       true,
		"com/example/Foo$12":      true,
		"com/example/Foo$Bar":     false,
		"com/example/Foo":         false,
		"com/example/Foo$1$2":     true,
	}
	for name, want := range cases {
		if got := isAnonymous(name); got != want {
			t.Errorf("isAnonymous(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestClassKeyword(t *testing.T) {
	if got := classKeyword(classfile.AccEnum); got != "enum" {
		t.Fatalf("classKeyword(enum) = %q", got)
	}
	if got := classKeyword(classfile.AccInterface); got != "interface" {
		t.Fatalf("classKeyword(interface) = %q", got)
	}
	if got := classKeyword(classfile.AccInterface | classfile.AccAnnotation); got != "@interface" {
		t.Fatalf("classKeyword(annotation) = %q", got)
	}
	if got := classKeyword(0); got != "class" {
		t.Fatalf("classKeyword(plain) = %q", got)
	}
}

func TestClassModifiers_FinalSkippedForEnum(t *testing.T) {
	got := classModifiers(classfile.AccPublic | classfile.AccFinal | classfile.AccEnum)
	if got != "public" {
		t.Fatalf("classModifiers = %q, want public (no final on an enum)", got)
	}
}

func TestClassModifiers_PublicAbstract(t *testing.T) {
	got := classModifiers(classfile.AccPublic | classfile.AccAbstract)
	if got != "public abstract" {
		t.Fatalf("classModifiers = %q", got)
	}
}

func TestParamSlot_WidensForLongAndDouble(t *testing.T) {
	thisT := types.ClassFromInternalName("com/example/Foo")
	params := []types.Type{types.Int, types.Long, types.Int}

	if got := paramSlot(&thisT, params, 0); got != 1 {
		t.Fatalf("paramSlot(this, arg0) = %d, want 1", got)
	}
	if got := paramSlot(&thisT, params, 1); got != 2 {
		t.Fatalf("paramSlot(this, arg1) = %d, want 2", got)
	}
	if got := paramSlot(&thisT, params, 2); got != 4 {
		t.Fatalf("paramSlot(this, arg2) = %d, want 4 (long widens slot by 2)", got)
	}
	if got := paramSlot(nil, params, 0); got != 0 {
		t.Fatalf("paramSlot(static, arg0) = %d, want 0", got)
	}
}

func TestRegistry_PutGetNames(t *testing.T) {
	r := New()
	cf1 := &classfile.ClassFile{ThisClass: classEntry("com/example/A")}
	cf2 := &classfile.ClassFile{ThisClass: classEntry("com/example/B")}
	r.put(cf1)
	r.put(cf2)

	if got, ok := r.Get("com/example/A"); !ok || got != cf1 {
		t.Fatalf("Get(A) = %v, %v", got, ok)
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "com/example/A" || names[1] != "com/example/B" {
		t.Fatalf("Names = %v", names)
	}
}

func classEntry(internalName string) *constpool.ClassEntry {
	return &constpool.ClassEntry{Name: &constpool.Utf8Entry{Value: internalName}}
}
