package types

import (
	"strings"

	javaerrors "github.com/javadec/javadec/internal/errors"
)

// TypeParamDecl is a single declared generic type parameter, e.g. the "T"
// in "class Box<T extends Number>".
type TypeParamDecl struct {
	Name            string
	ClassBound      *Type
	InterfaceBounds []Type
}

// ClassSignature is the parsed form of a class-level Signature attribute
// (spec §4.3, §4.4).
type ClassSignature struct {
	TypeParams []TypeParamDecl
	Super      Type
	Interfaces []Type
}

// FieldSignature is the parsed form of a field-level Signature attribute.
type FieldSignature struct {
	Type Type
}

// MethodSignature is the parsed form of a method-level Signature
// attribute.
type MethodSignature struct {
	TypeParams []TypeParamDecl
	Params     []Type
	Return     Type
	Throws     []Type
}

type sigParser struct {
	s   string
	pos int
}

func (p *sigParser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *sigParser) errf(format string, args ...interface{}) error {
	return javaerrors.New(javaerrors.KindInvalidSignature, format+" (at %d in %q)", append(args, p.pos, p.s)...)
}

// ParseClassSignature parses a ClassSignature per JVMS §4.7.9.1.
func ParseClassSignature(s string) (ClassSignature, error) {
	p := &sigParser{s: s}
	var sig ClassSignature
	var err error
	sig.TypeParams, err = p.parseTypeParamsOpt()
	if err != nil {
		return sig, err
	}
	sig.Super, err = p.parseClassTypeSignature()
	if err != nil {
		return sig, err
	}
	for p.pos < len(p.s) {
		iface, err := p.parseClassTypeSignature()
		if err != nil {
			return sig, err
		}
		sig.Interfaces = append(sig.Interfaces, iface)
	}
	return sig, nil
}

// ParseFieldSignature parses a FieldSignature (always a bare reference
// type signature).
func ParseFieldSignature(s string) (FieldSignature, error) {
	p := &sigParser{s: s}
	t, err := p.parseReferenceTypeSignature()
	return FieldSignature{Type: t}, err
}

// ParseMethodSignature parses a MethodSignature per JVMS §4.7.9.1.
func ParseMethodSignature(s string) (MethodSignature, error) {
	p := &sigParser{s: s}
	var sig MethodSignature
	var err error
	sig.TypeParams, err = p.parseTypeParamsOpt()
	if err != nil {
		return sig, err
	}
	if p.peek() != '(' {
		return sig, p.errf("expected '(' to start method signature")
	}
	p.pos++
	for p.peek() != ')' {
		t, err := p.parseJavaTypeSignature()
		if err != nil {
			return sig, err
		}
		sig.Params = append(sig.Params, t)
	}
	p.pos++ // ')'
	sig.Return, err = p.parseResult()
	if err != nil {
		return sig, err
	}
	for p.peek() == '^' {
		p.pos++
		var t Type
		if p.peek() == 'T' {
			t, err = p.parseTypeVariableSignature()
		} else {
			t, err = p.parseClassTypeSignature()
		}
		if err != nil {
			return sig, err
		}
		sig.Throws = append(sig.Throws, t)
	}
	return sig, nil
}

func (p *sigParser) parseResult() (Type, error) {
	if p.peek() == 'V' {
		p.pos++
		return Void, nil
	}
	return p.parseJavaTypeSignature()
}

func (p *sigParser) parseJavaTypeSignature() (Type, error) {
	switch p.peek() {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		t, n, err := ParseDescriptor(p.s[p.pos:])
		p.pos += n
		return t, err
	default:
		return p.parseReferenceTypeSignature()
	}
}

func (p *sigParser) parseReferenceTypeSignature() (Type, error) {
	switch p.peek() {
	case 'L':
		return p.parseClassTypeSignature()
	case 'T':
		return p.parseTypeVariableSignature()
	case '[':
		p.pos++
		elem, err := p.parseJavaTypeSignature()
		if err != nil {
			return Type{}, err
		}
		if elem.Kind == KindArray {
			elem.Dims++
			return elem, nil
		}
		return NewArray(elem, 1), nil
	default:
		return Type{}, p.errf("expected reference type signature")
	}
}

func (p *sigParser) parseTypeVariableSignature() (Type, error) {
	if p.peek() != 'T' {
		return Type{}, p.errf("expected 'T' type-variable signature")
	}
	p.pos++
	start := p.pos
	for p.peek() != ';' {
		if p.pos >= len(p.s) {
			return Type{}, p.errf("unterminated type variable signature")
		}
		p.pos++
	}
	name := p.s[start:p.pos]
	p.pos++ // ';'
	return NewTypeParameter(name), nil
}

// parseClassTypeSignature parses "L pkg/Simple<Args>(.Suffix<Args>)*;".
func (p *sigParser) parseClassTypeSignature() (Type, error) {
	if p.peek() != 'L' {
		return Type{}, p.errf("expected 'L' class type signature")
	}
	p.pos++
	start := p.pos
	for p.pos < len(p.s) && p.s[p.pos] != ';' && p.s[p.pos] != '<' && p.s[p.pos] != '.' {
		p.pos++
	}
	internal := p.s[start:p.pos]
	pkg := ""
	simple := internal
	if idx := strings.LastIndexByte(internal, '/'); idx >= 0 {
		pkg = strings.ReplaceAll(internal[:idx], "/", ".")
		simple = internal[idx+1:]
	}
	t := Type{Kind: KindClass, Pkg: pkg, Simple: simple}

	generic, err := p.parseTypeArgumentsOpt()
	if err != nil {
		return Type{}, err
	}
	t.Generic = generic

	for p.peek() == '.' {
		p.pos++
		start := p.pos
		for p.pos < len(p.s) && p.s[p.pos] != ';' && p.s[p.pos] != '<' && p.s[p.pos] != '.' {
			p.pos++
		}
		name := p.s[start:p.pos]
		args, err := p.parseTypeArgumentsOpt()
		if err != nil {
			return Type{}, err
		}
		enclosing := t
		t = Type{Kind: KindClass, Simple: name, Enclosing: &enclosing, Generic: args}
	}

	if p.peek() != ';' {
		return Type{}, p.errf("expected ';' to terminate class type signature")
	}
	p.pos++
	t.Anonymous = isNumeric(t.Simple)
	return t, nil
}

func (p *sigParser) parseTypeArgumentsOpt() ([]Type, error) {
	if p.peek() != '<' {
		return nil, nil
	}
	p.pos++
	var args []Type
	for p.peek() != '>' {
		switch p.peek() {
		case '*':
			p.pos++
			args = append(args, Any)
		case '+', '-':
			p.pos++
			t, err := p.parseReferenceTypeSignature()
			if err != nil {
				return nil, err
			}
			args = append(args, t)
		default:
			t, err := p.parseReferenceTypeSignature()
			if err != nil {
				return nil, err
			}
			args = append(args, t)
		}
	}
	p.pos++ // '>'
	return args, nil
}

func (p *sigParser) parseTypeParamsOpt() ([]TypeParamDecl, error) {
	if p.peek() != '<' {
		return nil, nil
	}
	p.pos++
	var decls []TypeParamDecl
	for p.peek() != '>' {
		start := p.pos
		for p.pos < len(p.s) && p.s[p.pos] != ':' {
			p.pos++
		}
		name := p.s[start:p.pos]
		decl := TypeParamDecl{Name: name}
		if p.peek() != ':' {
			return nil, p.errf("expected ':' in type parameter %q", name)
		}
		p.pos++ // ':'
		if p.peek() != ':' && p.peek() != '>' {
			t, err := p.parseReferenceTypeSignature()
			if err != nil {
				return nil, err
			}
			decl.ClassBound = &t
		}
		for p.peek() == ':' {
			p.pos++
			t, err := p.parseReferenceTypeSignature()
			if err != nil {
				return nil, err
			}
			decl.InterfaceBounds = append(decl.InterfaceBounds, t)
		}
		decls = append(decls, decl)
	}
	p.pos++ // '>'
	return decls, nil
}
