package classfile

import (
	"testing"

	"github.com/javadec/javadec/internal/classfile/attrs"
	"github.com/javadec/javadec/internal/constpool"
)

func u16(v int) []byte { return []byte{byte(v >> 8), byte(v)} }
func u32(v int) []byte { return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)} }

func utf8Entry(s string) []byte {
	b := constpool.EncodeModifiedUTF8(s)
	out := append([]byte{byte(constpool.TagUtf8)}, u16(len(b))...)
	return append(out, b...)
}

func classEntry(nameIdx int) []byte {
	return append([]byte{byte(constpool.TagClass)}, u16(nameIdx)...)
}

// buildMinimalClassFile assembles "public class Test { public Test() {
// return; } }" at the byte level: a seven-entry constant pool, zero
// fields/interfaces, one trivial <init> method with a Code attribute.
func buildMinimalClassFile() []byte {
	var cp []byte
	cp = append(cp, utf8Entry("Test")...)             // 1
	cp = append(cp, classEntry(1)...)                 // 2
	cp = append(cp, utf8Entry("java/lang/Object")...) // 3
	cp = append(cp, classEntry(3)...)                 // 4
	cp = append(cp, utf8Entry("<init>")...)           // 5
	cp = append(cp, utf8Entry("()V")...)              // 6
	cp = append(cp, utf8Entry("Code")...)             // 7

	var codeAttr []byte
	codeAttr = append(codeAttr, u16(1)...)  // max_stack
	codeAttr = append(codeAttr, u16(1)...)  // max_locals
	codeBytes := []byte{0xB1}               // return
	codeAttr = append(codeAttr, u32(len(codeBytes))...)
	codeAttr = append(codeAttr, codeBytes...)
	codeAttr = append(codeAttr, u16(0)...) // exception_table_count
	codeAttr = append(codeAttr, u16(0)...) // attributes_count

	var codeAttrRecord []byte
	codeAttrRecord = append(codeAttrRecord, u16(7)...) // name_index -> "Code"
	codeAttrRecord = append(codeAttrRecord, u32(len(codeAttr))...)
	codeAttrRecord = append(codeAttrRecord, codeAttr...)

	var method []byte
	method = append(method, u16(int(AccPublic))...)
	method = append(method, u16(5)...) // name: <init>
	method = append(method, u16(6)...) // descriptor: ()V
	method = append(method, u16(1)...) // attributes_count
	method = append(method, codeAttrRecord...)

	var buf []byte
	buf = append(buf, u32(0xCAFEBABE)...)
	buf = append(buf, u16(0)...)  // minor
	buf = append(buf, u16(52)...) // major
	buf = append(buf, u16(8)...)  // constant_pool_count (7 entries + unused slot 0)
	buf = append(buf, cp...)
	buf = append(buf, u16(int(AccPublic))...) // access_flags
	buf = append(buf, u16(2)...)               // this_class
	buf = append(buf, u16(4)...)               // super_class
	buf = append(buf, u16(0)...)               // interfaces_count
	buf = append(buf, u16(0)...)               // fields_count
	buf = append(buf, u16(1)...)               // methods_count
	buf = append(buf, method...)
	buf = append(buf, u16(0)...) // attributes_count (class)
	return buf
}

func TestRead_MinimalClass(t *testing.T) {
	cf, err := Read(buildMinimalClassFile())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if cf.Name() != "Test" {
		t.Fatalf("Name() = %q", cf.Name())
	}
	if cf.SuperName() != "java/lang/Object" {
		t.Fatalf("SuperName() = %q", cf.SuperName())
	}
	if !cf.AccessFlags.Has(AccPublic) {
		t.Fatalf("expected AccPublic")
	}
	if len(cf.Methods) != 1 {
		t.Fatalf("expected 1 method, got %d", len(cf.Methods))
	}
	m := cf.Methods[0]
	if m.Name != "<init>" || m.Descriptor != "()V" {
		t.Fatalf("got %+v", m)
	}
	code, ok := attrs.FindCode(m.Attributes)
	if !ok {
		t.Fatalf("expected a Code attribute")
	}
	if code.MaxStack != 1 || code.MaxLocals != 1 || len(code.Bytes) != 1 || code.Bytes[0] != 0xB1 {
		t.Fatalf("got %+v", code)
	}
}

func TestRead_WrongMagic(t *testing.T) {
	buf := buildMinimalClassFile()
	buf[0] = 0x00
	if _, err := Read(buf); err == nil {
		t.Fatalf("expected wrong-magic error")
	}
}
