package disasm

import "testing"

func TestDecode_SimpleReturn(t *testing.T) {
	d, err := Decode([]byte{0xB1}, nil) // return
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.Len() != 1 || d.Instructions[0].Op != Return {
		t.Fatalf("got %+v", d.Instructions)
	}
}

func TestDecode_BranchResolvesTarget(t *testing.T) {
	// iconst_0@0 (index 0); ifeq +4 @1 (index 1, target = pos1+4 = 5); nop@4; nop@5 (index 3); nop@6; nop@7
	code := []byte{
		byte(IConst0),
		byte(IfEq), 0x00, 0x04,
		byte(Nop), byte(Nop), byte(Nop),
		byte(Nop),
	}
	d, err := Decode(code, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ifIns := d.Instructions[1]
	if ifIns.Op != IfEq {
		t.Fatalf("expected ifeq, got %s", ifIns.Op)
	}
	if ifIns.BranchTarget != 3 {
		t.Fatalf("expected target index 3, got %d", ifIns.BranchTarget)
	}
}

func TestDecode_Wide(t *testing.T) {
	// wide iload 300
	code := []byte{byte(Wide), byte(ILoad), 0x01, 0x2C}
	d, err := Decode(code, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ins := d.Instructions[0]
	if !ins.Wide || ins.Op != ILoad || ins.VarSlot != 300 {
		t.Fatalf("got %+v", ins)
	}
}

func TestDiscoverBlocks_IfElse(t *testing.T) {
	// 0: iconst_0
	// 1: ifeq +6 -> pos7 (else branch)  (index 1, 3 bytes)
	// 4: goto +4 -> pos8                (index 2, 3 bytes) -- ends the empty if body, attaches else
	// 7: nop (index 3, start of else)
	// 8: nop (index 4, goto target)
	// Layout (positions): 0:iconst_0(1) 1:ifeq(3)->pos7 4:goto(3)->pos8 7:nop(1) 8:nop(1)
	code := []byte{
		byte(IConst0),       // pos0
		byte(IfEq), 0, 6,    // pos1, target = 1+6 = 7
		byte(Goto), 0, 4,    // pos4, target = 4+4 = 8
		byte(Nop),           // pos7 (else body)
		byte(Nop),           // pos8
	}
	d, err := Decode(code, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	root, err := DiscoverBlocks(d, nil)
	if err != nil {
		t.Fatalf("DiscoverBlocks: %v", err)
	}
	if len(root.Children) != 1 || root.Children[0].Kind != BlockIf {
		t.Fatalf("expected one if block under root, got %+v", root.Children)
	}
	ifBlk := root.Children[0]
	if ifBlk.ElseStart == -1 {
		t.Fatalf("expected else range to be attached")
	}
}
