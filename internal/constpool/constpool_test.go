package constpool

import (
	"testing"

	"github.com/javadec/javadec/internal/reader"
)

// buildPool assembles a minimal constant-pool byte stream from a list of
// raw entry encoders, for use as a test fixture. Long and Double entries
// count for two slots in constant_pool_count, as in a real class file.
func buildPool(entries ...[]byte) []byte {
	count := 1
	var body []byte
	for _, e := range entries {
		body = append(body, e...)
		count++
		if Tag(e[0]) == TagLong || Tag(e[0]) == TagDouble {
			count++
		}
	}
	out := []byte{byte(count >> 8), byte(count)}
	return append(out, body...)
}

func utf8Entry(s string) []byte {
	b := EncodeModifiedUTF8(s)
	out := []byte{byte(TagUtf8), byte(len(b) >> 8), byte(len(b))}
	return append(out, b...)
}

func classEntry(nameIdx uint16) []byte {
	return []byte{byte(TagClass), byte(nameIdx >> 8), byte(nameIdx)}
}

func TestPool_Utf8AndClassResolve(t *testing.T) {
	buf := buildPool(utf8Entry("java/lang/Object"), classEntry(1))
	p, err := Read(reader.New(buf))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	cls, err := p.GetClass(2)
	if err != nil {
		t.Fatalf("GetClass: %v", err)
	}
	if ClassName(cls) != "java/lang/Object" {
		t.Fatalf("got %q", ClassName(cls))
	}
}

func TestPool_WrongKind(t *testing.T) {
	buf := buildPool(utf8Entry("x"))
	p, err := Read(reader.New(buf))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if _, err := p.GetClass(1); err == nil {
		t.Fatalf("expected wrong-kind error")
	}
}

func TestPool_LongOccupiesTwoSlots(t *testing.T) {
	longEntry := []byte{byte(TagLong), 0, 0, 0, 0, 0, 0, 0, 42}
	buf := buildPool(longEntry, utf8Entry("after"))
	p, err := Read(reader.New(buf))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	v, err := p.GetLong(1)
	if err != nil || v != 42 {
		t.Fatalf("GetLong(1) = %d, %v", v, err)
	}
	// Index 2 is reserved (nil); the Utf8 entry lands at index 3.
	u, err := p.GetUtf8(3)
	if err != nil || u.Value != "after" {
		t.Fatalf("GetUtf8(3) = %+v, %v", u, err)
	}
	if _, err := p.getRaw(2); err == nil {
		t.Fatalf("expected index 2 (reserved slot) to be unresolvable")
	}
}

func TestDecodeModifiedUTF8_Supplementary(t *testing.T) {
	// U+1F600 GRINNING FACE, encoded as a CESU-8 surrogate pair.
	encoded := EncodeModifiedUTF8("\U0001F600")
	if len(encoded) != 6 {
		t.Fatalf("expected 6-byte surrogate-pair encoding, got %d bytes", len(encoded))
	}
	decoded, err := DecodeModifiedUTF8(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != "\U0001F600" {
		t.Fatalf("round-trip mismatch: %q", decoded)
	}
}
