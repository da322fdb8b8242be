package types

import (
	"strconv"
	"strings"

	javaerrors "github.com/javadec/javadec/internal/errors"
)

// ParseDescriptor parses a single field descriptor
// (B C S I J F D Z V | L<name>; | [<desc>) starting at s[0], returning the
// Type and the number of bytes consumed.
func ParseDescriptor(s string) (Type, int, error) {
	if len(s) == 0 {
		return Type{}, 0, javaerrors.New(javaerrors.KindInvalidTypeName, "empty type descriptor")
	}
	switch s[0] {
	case 'B':
		return Byte, 1, nil
	case 'C':
		return Char, 1, nil
	case 'S':
		return Short, 1, nil
	case 'I':
		return Int, 1, nil
	case 'J':
		return Long, 1, nil
	case 'F':
		return Float, 1, nil
	case 'D':
		return Double, 1, nil
	case 'Z':
		return Boolean, 1, nil
	case 'V':
		return Void, 1, nil
	case 'L':
		end := strings.IndexByte(s, ';')
		if end < 0 {
			return Type{}, 0, javaerrors.New(javaerrors.KindInvalidTypeName, "unterminated class descriptor %q", s)
		}
		name := s[1:end]
		return classFromInternalName(name), end + 1, nil
	case '[':
		elem, n, err := ParseDescriptor(s[1:])
		if err != nil {
			return Type{}, 0, err
		}
		if elem.Kind == KindArray {
			elem.Dims++
			return elem, n + 1, nil
		}
		return NewArray(elem, 1), n + 1, nil
	default:
		return Type{}, 0, javaerrors.New(javaerrors.KindInvalidTypeName, "invalid type descriptor %q", s)
	}
}

// ParseFieldDescriptor parses a complete field descriptor, erroring if any
// trailing bytes remain.
func ParseFieldDescriptor(s string) (Type, error) {
	t, n, err := ParseDescriptor(s)
	if err != nil {
		return Type{}, err
	}
	if n != len(s) {
		return Type{}, javaerrors.New(javaerrors.KindInvalidTypeName, "trailing data in field descriptor %q", s)
	}
	return t, nil
}

// MethodDescriptor is the parsed form of a method descriptor:
// "(" param-descriptors ")" return-descriptor.
type MethodDescriptor struct {
	Params []Type
	Return Type
}

// ParseMethodDescriptor parses "(Ljava/lang/String;I)V" forms.
func ParseMethodDescriptor(s string) (MethodDescriptor, error) {
	if len(s) == 0 || s[0] != '(' {
		return MethodDescriptor{}, javaerrors.New(javaerrors.KindIllegalMethodDescriptor, "method descriptor %q does not start with '('", s)
	}
	i := 1
	var params []Type
	for i < len(s) && s[i] != ')' {
		t, n, err := ParseDescriptor(s[i:])
		if err != nil {
			return MethodDescriptor{}, javaerrors.Wrap(javaerrors.KindIllegalMethodDescriptor, err, "parsing param in %q", s)
		}
		params = append(params, t)
		i += n
	}
	if i >= len(s) {
		return MethodDescriptor{}, javaerrors.New(javaerrors.KindIllegalMethodDescriptor, "unterminated parameter list in %q", s)
	}
	i++ // skip ')'
	ret, n, err := ParseDescriptor(s[i:])
	if err != nil {
		return MethodDescriptor{}, javaerrors.Wrap(javaerrors.KindIllegalMethodDescriptor, err, "parsing return type in %q", s)
	}
	if i+n != len(s) {
		return MethodDescriptor{}, javaerrors.New(javaerrors.KindIllegalMethodDescriptor, "trailing data in method descriptor %q", s)
	}
	return MethodDescriptor{Params: params, Return: ret}, nil
}

// classFromInternalName splits an internal class name (slash-separated
// package, $-separated inner classes) into a Type per spec §4.3: "Class
// name splits at last / (package vs simple), at inner $ (enclosing vs
// simple); a purely-numeric simple name marks the class anonymous."
func classFromInternalName(internal string) Type {
	pkg := ""
	rest := internal
	if idx := strings.LastIndexByte(internal, '/'); idx >= 0 {
		pkg = strings.ReplaceAll(internal[:idx], "/", ".")
		rest = internal[idx+1:]
	}

	parts := strings.Split(rest, "$")
	t := Type{Kind: KindClass, Pkg: pkg, Simple: parts[0]}
	for _, p := range parts[1:] {
		enclosing := t
		t = Type{Kind: KindClass, Simple: p, Enclosing: &enclosing}
	}
	t.Anonymous = isNumeric(t.Simple)
	return t
}

// ClassFromInternalName is the exported form, used by classfile/eval/flow
// when resolving a Class constant-pool entry into a types.Type.
func ClassFromInternalName(internal string) Type { return classFromInternalName(internal) }

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}
