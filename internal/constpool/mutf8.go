package constpool

import (
	"strings"

	javaerrors "github.com/javadec/javadec/internal/errors"
)

// DecodeModifiedUTF8 decodes a Modified UTF-8 byte sequence per JVMS
// §4.4.7, including the supplementary-character six-byte surrogate-pair
// encoding (ED A0..AF 80..BF  ED B0..BF 80..BF) and the two-byte encoding
// of NUL (C0 80).
func DecodeModifiedUTF8(b []byte) (string, error) {
	var sb strings.Builder
	sb.Grow(len(b))

	i := 0
	for i < len(b) {
		b0 := b[i]
		switch {
		case b0&0x80 == 0: // 1-byte: 0xxxxxxx
			sb.WriteByte(b0)
			i++

		case b0&0xE0 == 0xC0: // 2-byte: 110xxxxx 10xxxxxx
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", javaerrors.New(javaerrors.KindInvalidTypeName, "malformed modified UTF-8 at byte %d", i)
			}
			r := rune(b0&0x1F)<<6 | rune(b[i+1]&0x3F)
			sb.WriteRune(r)
			i += 2

		case b0 == 0xED && i+5 < len(b) && b[i+1]&0xF0 == 0xA0 && b[i+3] == 0xED && b[i+4]&0xF0 == 0xB0:
			// Supplementary character: surrogate pair encoded as two
			// 3-byte sequences.
			hi := rune(0xD800 | (rune(b[i+1]&0x0F)<<6 | rune(b[i+2]&0x3F)))
			lo := rune(0xDC00 | (rune(b[i+4]&0x0F)<<6 | rune(b[i+5]&0x3F)))
			r := 0x10000 + (hi-0xD800)<<10 + (lo - 0xDC00)
			sb.WriteRune(r)
			i += 6

		case b0&0xF0 == 0xE0: // 3-byte: 1110xxxx 10xxxxxx 10xxxxxx
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", javaerrors.New(javaerrors.KindInvalidTypeName, "malformed modified UTF-8 at byte %d", i)
			}
			r := rune(b0&0x0F)<<12 | rune(b[i+1]&0x3F)<<6 | rune(b[i+2]&0x3F)
			sb.WriteRune(r)
			i += 3

		default:
			return "", javaerrors.New(javaerrors.KindInvalidTypeName, "illegal modified UTF-8 lead byte 0x%02x at %d", b0, i)
		}
	}
	return sb.String(), nil
}

// EncodeModifiedUTF8 is the inverse, used by tests constructing synthetic
// class-file fixtures.
func EncodeModifiedUTF8(s string) []byte {
	var out []byte
	for _, r := range s {
		switch {
		case r == 0:
			out = append(out, 0xC0, 0x80)
		case r < 0x80:
			out = append(out, byte(r))
		case r < 0x800:
			out = append(out, byte(0xC0|r>>6), byte(0x80|r&0x3F))
		case r < 0x10000:
			out = append(out, byte(0xE0|r>>12), byte(0x80|(r>>6)&0x3F), byte(0x80|r&0x3F))
		default:
			r -= 0x10000
			hi := 0xD800 + (r >> 10)
			lo := 0xDC00 + (r & 0x3FF)
			out = append(out,
				0xED, byte(0xA0|(hi>>6)&0x0F), byte(0x80|hi&0x3F),
				0xED, byte(0xB0|(lo>>6)&0x0F), byte(0x80|lo&0x3F))
		}
	}
	return out
}
