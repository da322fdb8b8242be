// Package classfile implements the top-level class file parser tying
// together the constant pool, field/method tables, and attributes (spec
// §4.4, §6): the wire format sits directly on top of constpool and
// reader, producing the ClassFile shape the disassembler and renderer
// consume.
package classfile

import (
	"github.com/javadec/javadec/internal/classfile/attrs"
	"github.com/javadec/javadec/internal/constpool"
	javaerrors "github.com/javadec/javadec/internal/errors"
	"github.com/javadec/javadec/internal/reader"
)

const magic uint32 = 0xCAFEBABE

// AccessFlags is the raw access_flags bitmask shared by classes, fields
// and methods (the legal bit subset differs per context; spec leaves
// flag validation to the caller that needs it).
type AccessFlags uint16

const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSuper        AccessFlags = 0x0020 // classes only; also AccSynchronized on methods
	AccSynchronized AccessFlags = 0x0020
	AccVolatile     AccessFlags = 0x0040
	AccBridge       AccessFlags = 0x0040
	AccTransient    AccessFlags = 0x0080
	AccVarargs      AccessFlags = 0x0080
	AccNative       AccessFlags = 0x0100
	AccInterface    AccessFlags = 0x0200
	AccAbstract     AccessFlags = 0x0400
	AccStrict       AccessFlags = 0x0800
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
	AccModule       AccessFlags = 0x8000
)

func (f AccessFlags) Has(bit AccessFlags) bool { return f&bit != 0 }

// Field is one field_info entry.
type Field struct {
	AccessFlags AccessFlags
	Name        string
	Descriptor  string
	Attributes  []attrs.Attribute
}

// Method is one method_info entry.
type Method struct {
	AccessFlags AccessFlags
	Name        string
	Descriptor  string
	Attributes  []attrs.Attribute
}

// ClassFile is the fully parsed class file (spec §6): magic/version
// already validated, constant pool resolved, and every field/method's
// attributes decoded per attrs.ReadAll.
type ClassFile struct {
	MinorVersion, MajorVersion uint16
	ConstantPool               *constpool.Pool
	AccessFlags                AccessFlags
	ThisClass                  *constpool.ClassEntry
	SuperClass                 *constpool.ClassEntry // nil only for java/lang/Object
	Interfaces                 []*constpool.ClassEntry
	Fields                     []Field
	Methods                    []Method
	Attributes                 []attrs.Attribute
}

// Read parses a complete class file from buf.
func Read(buf []byte) (*ClassFile, error) {
	r := reader.New(buf)

	m, err := r.U32()
	if err != nil {
		return nil, javaerrors.Wrap(javaerrors.KindUnexpectedEOF, err, "reading magic")
	}
	if m != magic {
		return nil, javaerrors.New(javaerrors.KindWrongMagic, "expected magic 0xCAFEBABE, got 0x%08X", m)
	}

	minor, err := r.U16()
	if err != nil {
		return nil, err
	}
	major, err := r.U16()
	if err != nil {
		return nil, err
	}

	cp, err := constpool.Read(r)
	if err != nil {
		return nil, err
	}

	accessFlags, err := r.U16()
	if err != nil {
		return nil, err
	}

	thisIdx, err := r.U16()
	if err != nil {
		return nil, err
	}
	this, err := cp.GetClass(int(thisIdx))
	if err != nil {
		return nil, err
	}

	superIdx, err := r.U16()
	if err != nil {
		return nil, err
	}
	super, err := cp.GetNullableClass(int(superIdx))
	if err != nil {
		return nil, err
	}

	ifaceCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	ifaces := make([]*constpool.ClassEntry, ifaceCount)
	for i := range ifaces {
		idx, err := r.U16()
		if err != nil {
			return nil, err
		}
		ifaces[i], err = cp.GetClass(int(idx))
		if err != nil {
			return nil, err
		}
	}

	fields, err := readMembers(r, cp, attrs.CtxField)
	if err != nil {
		return nil, err
	}
	methods, err := readMembers(r, cp, attrs.CtxMethod)
	if err != nil {
		return nil, err
	}

	classAttrs, err := attrs.ReadAll(r, cp, attrs.CtxClass)
	if err != nil {
		return nil, err
	}

	return &ClassFile{
		MinorVersion: minor,
		MajorVersion: major,
		ConstantPool: cp,
		AccessFlags:  AccessFlags(accessFlags),
		ThisClass:    this,
		SuperClass:   super,
		Interfaces:   ifaces,
		Fields:       fields.fields,
		Methods:      methods.methods,
		Attributes:   classAttrs,
	}, nil
}

// memberBatch is a small helper result type so readMembers can serve both
// fields and methods without duplicating its loop.
type memberBatch struct {
	fields  []Field
	methods []Method
}

func readMembers(r *reader.Reader, cp *constpool.Pool, ctx attrs.Context) (memberBatch, error) {
	count, err := r.U16()
	if err != nil {
		return memberBatch{}, err
	}
	var batch memberBatch
	for i := 0; i < int(count); i++ {
		flags, err := r.U16()
		if err != nil {
			return memberBatch{}, err
		}
		nameIdx, err := r.U16()
		if err != nil {
			return memberBatch{}, err
		}
		descIdx, err := r.U16()
		if err != nil {
			return memberBatch{}, err
		}
		name, err := cp.GetUtf8(int(nameIdx))
		if err != nil {
			return memberBatch{}, err
		}
		desc, err := cp.GetUtf8(int(descIdx))
		if err != nil {
			return memberBatch{}, err
		}
		memberAttrs, err := attrs.ReadAll(r, cp, ctx)
		if err != nil {
			return memberBatch{}, err
		}
		if ctx == attrs.CtxField {
			batch.fields = append(batch.fields, Field{
				AccessFlags: AccessFlags(flags), Name: name.Value, Descriptor: desc.Value, Attributes: memberAttrs,
			})
		} else {
			batch.methods = append(batch.methods, Method{
				AccessFlags: AccessFlags(flags), Name: name.Value, Descriptor: desc.Value, Attributes: memberAttrs,
			})
		}
	}
	return batch, nil
}

// Name returns the class's internal (slash-separated) name.
func (c *ClassFile) Name() string { return constpool.ClassName(c.ThisClass) }

// SuperName returns the superclass's internal name, or "" for
// java/lang/Object.
func (c *ClassFile) SuperName() string {
	if c.SuperClass == nil {
		return ""
	}
	return constpool.ClassName(c.SuperClass)
}

// IsDeprecated reports whether the class carries a Deprecated attribute.
func (c *ClassFile) IsDeprecated() bool { return attrs.IsDeprecated(c.Attributes) }

// SourceFileName returns the class's SourceFile attribute text, if any.
func (c *ClassFile) SourceFileName() (string, bool) { return attrs.FindSourceFile(c.Attributes) }

// BootstrapMethod resolves the invokedynamic bootstrap method at the
// given index (spec §3: "bootstrap attribute index"), looking it up in
// the class-level BootstrapMethods attribute.
func (c *ClassFile) BootstrapMethod(index int) (*attrs.BootstrapMethod, error) {
	bsm, ok := attrs.FindBootstrapMethods(c.Attributes)
	if !ok {
		return nil, javaerrors.New(javaerrors.KindIllegalAttribute, "class has no BootstrapMethods attribute")
	}
	if index < 0 || index >= len(bsm.Methods) {
		return nil, javaerrors.New(javaerrors.KindIndexOutOfBounds, "bootstrap method index %d out of bounds [0,%d)", index, len(bsm.Methods))
	}
	return &bsm.Methods[index], nil
}
