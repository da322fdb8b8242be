// Package attrs implements the Attributes component (spec §4.4): parsing
// of the recognized attribute set for class/field/method/code contexts.
// Every attribute is length-prefixed; after decoding one, the cursor must
// land exactly at pos+length or an AttributeLengthMismatch is reported.
package attrs

import (
	"github.com/javadec/javadec/internal/constpool"
	javaerrors "github.com/javadec/javadec/internal/errors"
	"github.com/javadec/javadec/internal/reader"
)

// Context identifies which attribute set is legal at a given parse site.
type Context int

const (
	CtxClass Context = iota
	CtxField
	CtxMethod
	CtxCode
)

// Attribute is the common interface for every decoded or opaque
// attribute.
type Attribute interface {
	Name() string
}

type base struct{ name string }

func (b base) Name() string { return b.name }

// Unknown preserves any attribute this decoder does not recognize,
// verbatim, per spec §4.4.
type Unknown struct {
	base
	Data []byte
}

// ConstantValue is a field's ConstantValue attribute, referencing its
// typed value in the constant pool.
type ConstantValue struct {
	base
	Index uint16
}

// Signature carries the raw generic-signature string; classfile callers
// parse it with types.ParseClassSignature/FieldSignature/MethodSignature
// as appropriate to their context.
type Signature struct {
	base
	Raw string
}

// Deprecated marks a deprecated class/field/method.
type Deprecated struct{ base }

// SourceFile names the compilation unit a class was produced from.
type SourceFile struct {
	base
	File string
}

// Exceptions lists the checked exception class names a method declares.
type Exceptions struct {
	base
	Classes []*constpool.ClassEntry
}

// InnerClassEntry is one row of an InnerClasses attribute.
type InnerClassEntry struct {
	Inner       *constpool.ClassEntry
	Outer       *constpool.ClassEntry // nil if not a member class
	InnerName   string                // empty if anonymous
	AccessFlags int
}

// InnerClasses records member/anonymous/local class relationships.
type InnerClasses struct {
	base
	Classes []InnerClassEntry
}

// NestMembers lists the classes in the current class's nest (spec: "nests
// beyond member listing" are a non-goal, so only the list is kept).
type NestMembers struct {
	base
	Members []*constpool.ClassEntry
}

// BootstrapMethod is one entry of a class's BootstrapMethods attribute,
// referenced by InvokeDynamic constant pool entries via index.
type BootstrapMethod struct {
	Handle *constpool.MethodHandleEntry
	Args   []constpool.Entry
}

// BootstrapMethods is the class-level attribute invokedynamic call sites
// reference by index (spec §3: "bootstrap attribute index").
type BootstrapMethods struct {
	base
	Methods []BootstrapMethod
}

// AnnotationDefault is a method-level attribute giving the default value
// of an annotation interface element.
type AnnotationDefault struct {
	base
	Value ElementValue
}

// Annotation is one decoded runtime-(in)visible annotation.
type Annotation struct {
	TypeDescriptor string
	Pairs          []ElementValuePair
}

// ElementValuePair is one name=value pair inside an Annotation.
type ElementValuePair struct {
	Name  string
	Value ElementValue
}

// ElementValue is a decoded annotation element value, tagged per JVMS
// §4.7.16.1 (spec §4.4: "decode element-value tags B S I C F J D Z s e c @ [").
type ElementValue struct {
	Tag byte

	ConstValue constpool.Entry // for numeric/boolean tags and 's' (string)

	EnumTypeDescriptor string // for 'e'
	EnumConstName      string

	ClassDescriptor string // for 'c'

	Annotation *Annotation // for '@'

	Array []ElementValue // for '['
}

// RuntimeAnnotations covers both Visible and Invisible annotation
// attributes; the distinction is recorded in the attribute's Name.
type RuntimeAnnotations struct {
	base
	Annotations []Annotation
}

// RuntimeParameterAnnotations covers both Visible and Invisible parameter
// annotation attributes.
type RuntimeParameterAnnotations struct {
	base
	Parameters [][]Annotation
}

// ExceptionTableEntry is one row of a Code attribute's exception table.
type ExceptionTableEntry struct {
	StartPC, EndPC, HandlerPC int
	CatchType                 *constpool.ClassEntry // nil means "finally" / any
}

// LocalVariableEntry is one row of a Code attribute's LocalVariableTable.
type LocalVariableEntry struct {
	StartPC, Length  int
	Name, Descriptor string
	Index            int
}

// LocalVariableTable is the method-level attribute the scope builder uses
// to recover original parameter/local names (spec §4.6).
type LocalVariableTable struct {
	base
	Entries []LocalVariableEntry
}

// Code is the method-level Code attribute (spec §4.4): max_stack,
// max_locals, the raw instruction bytes, the exception table, and nested
// attributes (only LocalVariableTable is modeled further; StackMapTable
// and the line-number table are non-goals per spec §1).
type Code struct {
	base
	MaxStack, MaxLocals int
	Bytes               []byte
	ExceptionTable      []ExceptionTableEntry
	LocalVariableTable  []LocalVariableEntry
	Attributes          []Attribute
}

// ReadAll reads a u2 attribute_count followed by that many length-prefixed
// attribute records, recognizing the set legal for ctx and preserving
// everything else as Unknown.
func ReadAll(r *reader.Reader, cp *constpool.Pool, ctx Context) ([]Attribute, error) {
	count, err := r.U16()
	if err != nil {
		return nil, javaerrors.Wrap(javaerrors.KindUnexpectedEOF, err, "reading attribute count")
	}
	out := make([]Attribute, 0, count)
	for i := 0; i < int(count); i++ {
		a, err := readOne(r, cp, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func readOne(r *reader.Reader, cp *constpool.Pool, ctx Context) (Attribute, error) {
	nameIdx, err := r.U16()
	if err != nil {
		return nil, javaerrors.Wrap(javaerrors.KindUnexpectedEOF, err, "reading attribute name index")
	}
	nameEntry, err := cp.GetUtf8(int(nameIdx))
	if err != nil {
		return nil, javaerrors.Wrap(javaerrors.KindIllegalAttribute, err, "resolving attribute name")
	}
	name := nameEntry.Value

	length, err := r.U32()
	if err != nil {
		return nil, javaerrors.Wrap(javaerrors.KindUnexpectedEOF, err, "reading length of attribute %q", name)
	}
	start := r.Pos()
	end := start + int(length)

	attr, err := decode(r, cp, ctx, name, int(length))
	if err != nil {
		return nil, err
	}

	if r.Pos() != end {
		return nil, javaerrors.New(javaerrors.KindAttributeLengthMismatch,
			"attribute %q: expected cursor at %d after decode, got %d", name, end, r.Pos())
	}
	return attr, nil
}

func decode(r *reader.Reader, cp *constpool.Pool, ctx Context, name string, length int) (Attribute, error) {
	switch name {
	case "ConstantValue":
		if ctx != CtxField {
			return skip(r, name, length)
		}
		idx, err := r.U16()
		return &ConstantValue{base{name}, idx}, err

	case "Signature":
		idx, err := r.U16()
		if err != nil {
			return nil, err
		}
		u, err := cp.GetUtf8(int(idx))
		if err != nil {
			return nil, err
		}
		return &Signature{base{name}, u.Value}, nil

	case "Deprecated":
		return &Deprecated{base{name}}, nil

	case "SourceFile":
		if ctx != CtxClass {
			return skip(r, name, length)
		}
		idx, err := r.U16()
		if err != nil {
			return nil, err
		}
		u, err := cp.GetUtf8(int(idx))
		if err != nil {
			return nil, err
		}
		return &SourceFile{base{name}, u.Value}, nil

	case "Exceptions":
		n, err := r.U16()
		if err != nil {
			return nil, err
		}
		classes := make([]*constpool.ClassEntry, n)
		for i := range classes {
			idx, err := r.U16()
			if err != nil {
				return nil, err
			}
			classes[i], err = cp.GetClass(int(idx))
			if err != nil {
				return nil, err
			}
		}
		return &Exceptions{base{name}, classes}, nil

	case "InnerClasses":
		n, err := r.U16()
		if err != nil {
			return nil, err
		}
		entries := make([]InnerClassEntry, n)
		for i := range entries {
			innerIdx, err := r.U16()
			if err != nil {
				return nil, err
			}
			outerIdx, err := r.U16()
			if err != nil {
				return nil, err
			}
			nameIdx, err := r.U16()
			if err != nil {
				return nil, err
			}
			flags, err := r.U16()
			if err != nil {
				return nil, err
			}
			inner, err := cp.GetClass(int(innerIdx))
			if err != nil {
				return nil, err
			}
			outer, err := cp.GetNullableClass(int(outerIdx))
			if err != nil {
				return nil, err
			}
			innerName := ""
			if nameIdx != 0 {
				u, err := cp.GetUtf8(int(nameIdx))
				if err != nil {
					return nil, err
				}
				innerName = u.Value
			}
			entries[i] = InnerClassEntry{Inner: inner, Outer: outer, InnerName: innerName, AccessFlags: int(flags)}
		}
		return &InnerClasses{base{name}, entries}, nil

	case "NestMembers":
		n, err := r.U16()
		if err != nil {
			return nil, err
		}
		members := make([]*constpool.ClassEntry, n)
		for i := range members {
			idx, err := r.U16()
			if err != nil {
				return nil, err
			}
			members[i], err = cp.GetClass(int(idx))
			if err != nil {
				return nil, err
			}
		}
		return &NestMembers{base{name}, members}, nil

	case "BootstrapMethods":
		if ctx != CtxClass {
			return skip(r, name, length)
		}
		n, err := r.U16()
		if err != nil {
			return nil, err
		}
		methods := make([]BootstrapMethod, n)
		for i := range methods {
			handleIdx, err := r.U16()
			if err != nil {
				return nil, err
			}
			handle, err := cp.GetMethodHandle(int(handleIdx))
			if err != nil {
				return nil, err
			}
			argCount, err := r.U16()
			if err != nil {
				return nil, err
			}
			args := make([]constpool.Entry, argCount)
			for j := range args {
				argIdx, err := r.U16()
				if err != nil {
					return nil, err
				}
				args[j], err = rawEntry(cp, int(argIdx))
				if err != nil {
					return nil, err
				}
			}
			methods[i] = BootstrapMethod{Handle: handle, Args: args}
		}
		return &BootstrapMethods{base{name}, methods}, nil

	case "AnnotationDefault":
		v, err := readElementValue(r, cp)
		return &AnnotationDefault{base{name}, v}, err

	case "RuntimeVisibleAnnotations", "RuntimeInvisibleAnnotations":
		anns, err := readAnnotations(r, cp)
		return &RuntimeAnnotations{base{name}, anns}, err

	case "RuntimeVisibleParameterAnnotations", "RuntimeInvisibleParameterAnnotations":
		n, err := r.U8()
		if err != nil {
			return nil, err
		}
		params := make([][]Annotation, n)
		for i := range params {
			anns, err := readAnnotations(r, cp)
			if err != nil {
				return nil, err
			}
			params[i] = anns
		}
		return &RuntimeParameterAnnotations{base{name}, params}, nil

	case "Code":
		if ctx != CtxMethod {
			return skip(r, name, length)
		}
		return readCode(r, cp)

	case "LocalVariableTable":
		n, err := r.U16()
		if err != nil {
			return nil, err
		}
		entries := make([]LocalVariableEntry, n)
		for i := range entries {
			startPC, err := r.U16()
			if err != nil {
				return nil, err
			}
			length, err := r.U16()
			if err != nil {
				return nil, err
			}
			nameIdx, err := r.U16()
			if err != nil {
				return nil, err
			}
			descIdx, err := r.U16()
			if err != nil {
				return nil, err
			}
			index, err := r.U16()
			if err != nil {
				return nil, err
			}
			nameEntry, err := cp.GetUtf8(int(nameIdx))
			if err != nil {
				return nil, err
			}
			descEntry, err := cp.GetUtf8(int(descIdx))
			if err != nil {
				return nil, err
			}
			entries[i] = LocalVariableEntry{
				StartPC: int(startPC), Length: int(length),
				Name: nameEntry.Value, Descriptor: descEntry.Value, Index: int(index),
			}
		}
		return &LocalVariableTable{base{name}, entries}, nil

	default:
		return skip(r, name, length)
	}
}

func skip(r *reader.Reader, name string, length int) (Attribute, error) {
	data, err := r.Bytes(length)
	if err != nil {
		return nil, err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return &Unknown{base{name}, cp}, nil
}

func rawEntry(cp *constpool.Pool, i int) (constpool.Entry, error) {
	// Bootstrap arguments are loadable constants: Integer/Float/Long/
	// Double/String/Class/MethodHandle/MethodType/Dynamic. Try each typed
	// accessor in turn since constpool.Pool exposes no untyped getter.
	if e, err := cp.GetClass(i); err == nil {
		return e, nil
	}
	if e, err := cp.GetString(i); err == nil {
		return e, nil
	}
	if e, err := cp.GetMethodHandle(i); err == nil {
		return e, nil
	}
	if e, err := cp.GetMethodType(i); err == nil {
		return e, nil
	}
	if e, err := cp.GetInvokeDynamic(i); err == nil {
		return e, nil
	}
	if v, err := cp.GetInteger(i); err == nil {
		return &constpool.IntegerEntry{Value: v}, nil
	}
	if v, err := cp.GetFloat(i); err == nil {
		return &constpool.FloatEntry{Value: v}, nil
	}
	if v, err := cp.GetLong(i); err == nil {
		return &constpool.LongEntry{Value: v}, nil
	}
	if v, err := cp.GetDouble(i); err == nil {
		return &constpool.DoubleEntry{Value: v}, nil
	}
	return nil, javaerrors.New(javaerrors.KindIndexOutOfBounds, "bootstrap argument %d is not a loadable constant", i)
}

func readAnnotations(r *reader.Reader, cp *constpool.Pool) ([]Annotation, error) {
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	out := make([]Annotation, n)
	for i := range out {
		a, err := readAnnotation(r, cp)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

func readAnnotation(r *reader.Reader, cp *constpool.Pool) (Annotation, error) {
	typeIdx, err := r.U16()
	if err != nil {
		return Annotation{}, err
	}
	typeUtf8, err := cp.GetUtf8(int(typeIdx))
	if err != nil {
		return Annotation{}, err
	}
	pairCount, err := r.U16()
	if err != nil {
		return Annotation{}, err
	}
	pairs := make([]ElementValuePair, pairCount)
	for i := range pairs {
		nameIdx, err := r.U16()
		if err != nil {
			return Annotation{}, err
		}
		nameUtf8, err := cp.GetUtf8(int(nameIdx))
		if err != nil {
			return Annotation{}, err
		}
		value, err := readElementValue(r, cp)
		if err != nil {
			return Annotation{}, err
		}
		pairs[i] = ElementValuePair{Name: nameUtf8.Value, Value: value}
	}
	return Annotation{TypeDescriptor: typeUtf8.Value, Pairs: pairs}, nil
}

func readElementValue(r *reader.Reader, cp *constpool.Pool) (ElementValue, error) {
	tag, err := r.U8()
	if err != nil {
		return ElementValue{}, err
	}
	switch tag {
	case 'B', 'S', 'I', 'C', 'F', 'J', 'D', 'Z', 's':
		idx, err := r.U16()
		if err != nil {
			return ElementValue{}, err
		}
		var entry constpool.Entry
		if tag == 's' {
			entry, err = cp.GetUtf8(int(idx))
		} else {
			entry, err = rawEntry(cp, int(idx))
		}
		if err != nil {
			return ElementValue{}, err
		}
		return ElementValue{Tag: tag, ConstValue: entry}, nil

	case 'e':
		typeIdx, err := r.U16()
		if err != nil {
			return ElementValue{}, err
		}
		nameIdx, err := r.U16()
		if err != nil {
			return ElementValue{}, err
		}
		typeUtf8, err := cp.GetUtf8(int(typeIdx))
		if err != nil {
			return ElementValue{}, err
		}
		nameUtf8, err := cp.GetUtf8(int(nameIdx))
		if err != nil {
			return ElementValue{}, err
		}
		return ElementValue{Tag: tag, EnumTypeDescriptor: typeUtf8.Value, EnumConstName: nameUtf8.Value}, nil

	case 'c':
		idx, err := r.U16()
		if err != nil {
			return ElementValue{}, err
		}
		u, err := cp.GetUtf8(int(idx))
		if err != nil {
			return ElementValue{}, err
		}
		return ElementValue{Tag: tag, ClassDescriptor: u.Value}, nil

	case '@':
		ann, err := readAnnotation(r, cp)
		if err != nil {
			return ElementValue{}, err
		}
		return ElementValue{Tag: tag, Annotation: &ann}, nil

	case '[':
		n, err := r.U16()
		if err != nil {
			return ElementValue{}, err
		}
		arr := make([]ElementValue, n)
		for i := range arr {
			arr[i], err = readElementValue(r, cp)
			if err != nil {
				return ElementValue{}, err
			}
		}
		return ElementValue{Tag: tag, Array: arr}, nil

	default:
		return ElementValue{}, javaerrors.New(javaerrors.KindIllegalAttribute, "illegal element-value tag %q", rune(tag))
	}
}

func readCode(r *reader.Reader, cp *constpool.Pool) (*Code, error) {
	maxStack, err := r.U16()
	if err != nil {
		return nil, err
	}
	maxLocals, err := r.U16()
	if err != nil {
		return nil, err
	}
	codeLen, err := r.U32()
	if err != nil {
		return nil, err
	}
	codeBytes, err := r.Bytes(int(codeLen))
	if err != nil {
		return nil, err
	}
	codeCopy := make([]byte, len(codeBytes))
	copy(codeCopy, codeBytes)

	excCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	excTable := make([]ExceptionTableEntry, excCount)
	for i := range excTable {
		startPC, err := r.U16()
		if err != nil {
			return nil, err
		}
		endPC, err := r.U16()
		if err != nil {
			return nil, err
		}
		handlerPC, err := r.U16()
		if err != nil {
			return nil, err
		}
		catchIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		catchType, err := cp.GetNullableClass(int(catchIdx))
		if err != nil {
			return nil, err
		}
		excTable[i] = ExceptionTableEntry{StartPC: int(startPC), EndPC: int(endPC), HandlerPC: int(handlerPC), CatchType: catchType}
	}

	nested, err := ReadAll(r, cp, CtxCode)
	if err != nil {
		return nil, err
	}

	code := &Code{
		base:           base{"Code"},
		MaxStack:       int(maxStack),
		MaxLocals:      int(maxLocals),
		Bytes:          codeCopy,
		ExceptionTable: excTable,
		Attributes:     nested,
	}
	for _, a := range nested {
		if lvt, ok := a.(*LocalVariableTable); ok {
			code.LocalVariableTable = lvt.Entries
		}
	}
	return code, nil
}

// FindSignature returns the raw Signature attribute text, if present.
func FindSignature(attrs []Attribute) (string, bool) {
	for _, a := range attrs {
		if s, ok := a.(*Signature); ok {
			return s.Raw, true
		}
	}
	return "", false
}

// FindCode returns the Code attribute, if present.
func FindCode(attrs []Attribute) (*Code, bool) {
	for _, a := range attrs {
		if c, ok := a.(*Code); ok {
			return c, true
		}
	}
	return nil, false
}

// IsDeprecated reports whether attrs contains a Deprecated marker.
func IsDeprecated(attrs []Attribute) bool {
	for _, a := range attrs {
		if _, ok := a.(*Deprecated); ok {
			return true
		}
	}
	return false
}

// FindBootstrapMethods returns the class-level BootstrapMethods, if any.
func FindBootstrapMethods(attrs []Attribute) (*BootstrapMethods, bool) {
	for _, a := range attrs {
		if b, ok := a.(*BootstrapMethods); ok {
			return b, true
		}
	}
	return nil, false
}

// FindSourceFile returns the class's SourceFile attribute text, if any.
func FindSourceFile(attrs []Attribute) (string, bool) {
	for _, a := range attrs {
		if s, ok := a.(*SourceFile); ok {
			return s.File, true
		}
	}
	return "", false
}

// FindAnnotations merges the Visible and Invisible annotation attributes
// present in attrs (rendering does not distinguish retention policy).
func FindAnnotations(attrs []Attribute) []Annotation {
	var out []Annotation
	for _, a := range attrs {
		if ra, ok := a.(*RuntimeAnnotations); ok {
			out = append(out, ra.Annotations...)
		}
	}
	return out
}
