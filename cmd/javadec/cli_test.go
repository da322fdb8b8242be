package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/javadec/javadec/internal/config"
	"github.com/javadec/javadec/internal/registry"
)

// buildCalcClassBytes hand-encodes a minimal but real .class file for:
//
//	public class Calc {
//	    public Calc() {}
//	    public static int one() { return 1; }
//	}
//
// byte-for-byte against classfile.Read/constpool.Read/attrs.ReadAll's
// actual decode order, so this test exercises the real binary front door
// (disk file -> Registry.ReadAll -> Registry.RenderAll) instead of only
// the struct-level pipeline registry_test.go already covers. This is the
// integration test promised in place of a testscript-driven CLI harness:
// no example repo in the reference pack demonstrates testscript's
// self-exec RunMain pattern, so rather than invent an ungrounded subprocess
// harness this drives the same ReadAll/RenderAll entry point cmd/javadec's
// own run() calls, in-process.
func buildCalcClassBytes() []byte {
	var buf []byte
	u8 := func(v byte) { buf = append(buf, v) }
	u16 := func(v uint16) { buf = append(buf, byte(v>>8), byte(v)) }
	u32 := func(v uint32) { buf = append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v)) }
	utf8Entry := func(s string) {
		u8(1) // TagUtf8
		u16(uint16(len(s)))
		buf = append(buf, []byte(s)...)
	}

	u32(0xCAFEBABE)
	u16(0)  // minor
	u16(52) // major

	u16(12) // constant_pool_count (entries 1..11)

	utf8Entry("Calc")            // #1
	u8(7); u16(1)                // #2 Class -> #1
	utf8Entry("java/lang/Object") // #3
	u8(7); u16(3)                 // #4 Class -> #3
	utf8Entry("<init>")           // #5
	utf8Entry("()V")              // #6
	u8(12); u16(5); u16(6)        // #7 NameAndType(#5,#6)
	u8(10); u16(4); u16(7)        // #8 Methodref(#4,#7) -> Object.<init>()V
	utf8Entry("Code")             // #9
	utf8Entry("one")              // #10
	utf8Entry("()I")              // #11

	u16(0x0021) // access_flags: ACC_PUBLIC|ACC_SUPER
	u16(2)      // this_class -> #2 (Calc)
	u16(4)      // super_class -> #4 (Object)
	u16(0)      // interfaces_count

	u16(0) // fields_count

	u16(2) // methods_count

	codeAttr := func(maxStack, maxLocals uint16, code []byte) {
		u16(9) // attribute name_index -> "Code"
		body := []byte{
			byte(maxStack >> 8), byte(maxStack),
			byte(maxLocals >> 8), byte(maxLocals),
		}
		cl := uint32(len(code))
		body = append(body, byte(cl>>24), byte(cl>>16), byte(cl>>8), byte(cl))
		body = append(body, code...)
		body = append(body, 0, 0) // exception_table_count
		body = append(body, 0, 0) // nested attributes_count
		u32(uint32(len(body)))
		buf = append(buf, body...)
	}

	// <init>
	u16(0x0001) // ACC_PUBLIC
	u16(5)      // name_index -> "<init>"
	u16(6)      // descriptor_index -> "()V"
	u16(1)      // attributes_count
	codeAttr(1, 1, []byte{0x2A, 0xB7, 0x00, 0x08, 0xB1}) // aload_0; invokespecial #8; return

	// one
	u16(0x0009) // ACC_PUBLIC|ACC_STATIC
	u16(10)     // name_index -> "one"
	u16(11)     // descriptor_index -> "()I"
	u16(1)      // attributes_count
	codeAttr(1, 0, []byte{0x04, 0xAC}) // iconst_1; ireturn

	u16(0) // class attributes_count

	return buf
}

func TestCLI_ReadAllRenderAll_RealClassBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Calc.class")
	if err := os.WriteFile(path, buildCalcClassBytes(), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg := config.Default()
	cfg.Inputs = []string{path}

	reg := registry.New()
	ctx := context.Background()
	if err := reg.ReadAll(ctx, cfg.Inputs); err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	sources, err := reg.RenderAll(ctx, cfg)
	if err != nil {
		t.Fatalf("RenderAll: %v", err)
	}

	src, ok := sources["Calc"]
	if !ok {
		t.Fatalf("no rendered source for Calc, got names %v", reg.Names())
	}

	for _, want := range []string{
		"public class Calc",
		"public Calc()",
		"public static int one()",
		"return 1;",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("rendered source missing %q, got:\n%s", want, src)
		}
	}
}
