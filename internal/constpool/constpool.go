// Package constpool implements the Constant Pool component (spec §4.2): a
// two-pass parser and typed resolver for the 14 constant kinds defined by
// the class file format (spec §3). Pass 1 records raw index fields; pass 2
// resolves every inter-entry reference into a direct Go pointer into the
// same arena. The pool is immutable once built and owns all of its Utf8
// storage, matching the ownership rules in spec §3.
package constpool

import (
	"fmt"

	javaerrors "github.com/javadec/javadec/internal/errors"
	"github.com/javadec/javadec/internal/reader"
)

// Tag identifies the kind of a constant pool entry, using the exact byte
// values defined by the JVM class file format.
type Tag byte

const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagInvokeDynamic      Tag = 18
)

func (t Tag) String() string {
	switch t {
	case TagUtf8:
		return "Utf8"
	case TagInteger:
		return "Integer"
	case TagFloat:
		return "Float"
	case TagLong:
		return "Long"
	case TagDouble:
		return "Double"
	case TagClass:
		return "Class"
	case TagString:
		return "String"
	case TagFieldref:
		return "Fieldref"
	case TagMethodref:
		return "Methodref"
	case TagInterfaceMethodref:
		return "InterfaceMethodref"
	case TagNameAndType:
		return "NameAndType"
	case TagMethodHandle:
		return "MethodHandle"
	case TagMethodType:
		return "MethodType"
	case TagInvokeDynamic:
		return "InvokeDynamic"
	default:
		return fmt.Sprintf("Tag(%d)", byte(t))
	}
}

// Entry is the common interface every constant pool entry implements.
type Entry interface {
	Tag() Tag
}

// Utf8Entry holds a decoded Modified UTF-8 string (spec §6).
type Utf8Entry struct{ Value string }

func (*Utf8Entry) Tag() Tag { return TagUtf8 }

// IntegerEntry holds a 32-bit integer constant.
type IntegerEntry struct{ Value int32 }

func (*IntegerEntry) Tag() Tag { return TagInteger }

// FloatEntry holds a 32-bit float constant.
type FloatEntry struct{ Value float32 }

func (*FloatEntry) Tag() Tag { return TagFloat }

// LongEntry holds a 64-bit integer constant; it occupies two pool slots.
type LongEntry struct{ Value int64 }

func (*LongEntry) Tag() Tag { return TagLong }

// DoubleEntry holds a 64-bit float constant; it occupies two pool slots.
type DoubleEntry struct{ Value float64 }

func (*DoubleEntry) Tag() Tag { return TagDouble }

// ClassEntry references the Utf8 entry holding the class's internal name.
type ClassEntry struct {
	NameIndex uint16
	Name      *Utf8Entry // resolved in pass 2
}

func (*ClassEntry) Tag() Tag { return TagClass }

// StringEntry references the Utf8 entry holding the string's content.
type StringEntry struct {
	StringIndex uint16
	Value       *Utf8Entry
}

func (*StringEntry) Tag() Tag { return TagString }

// NameAndTypeEntry references a member name and descriptor, both Utf8.
type NameAndTypeEntry struct {
	NameIndex uint16
	DescIndex uint16
	Name      *Utf8Entry
	Desc      *Utf8Entry
}

func (*NameAndTypeEntry) Tag() Tag { return TagNameAndType }

// RefEntry is the shared shape of Fieldref/Methodref/InterfaceMethodref.
type RefEntry struct {
	tag             Tag
	ClassIndex      uint16
	NameTypeIndex   uint16
	Class           *ClassEntry
	NameAndType     *NameAndTypeEntry
}

func (r *RefEntry) Tag() Tag { return r.tag }

// MethodHandleEntry references a field or method via one of the nine
// reference kinds defined by the JVMS (getField, invokeStatic, ...).
type MethodHandleEntry struct {
	Kind     byte // 1..9
	RefIndex uint16
	Ref      Entry // resolved: *RefEntry (Fieldref, Methodref or InterfaceMethodref)
}

func (*MethodHandleEntry) Tag() Tag { return TagMethodHandle }

// MethodTypeEntry references the Utf8 entry holding a method descriptor.
type MethodTypeEntry struct {
	DescIndex uint16
	Desc      *Utf8Entry
}

func (*MethodTypeEntry) Tag() Tag { return TagMethodType }

// InvokeDynamicEntry references a bootstrap method (by index into the
// class's BootstrapMethods attribute, resolved later by the classfile
// reader which owns that attribute) and a NameAndType for the call site.
type InvokeDynamicEntry struct {
	BootstrapMethodAttrIndex uint16
	NameTypeIndex            uint16
	NameAndType              *NameAndTypeEntry
}

func (*InvokeDynamicEntry) Tag() Tag { return TagInvokeDynamic }

// Pool is the parsed, resolved constant pool. Index 0 is unused (JVMS
// constant pool indices are 1-based); index N-1 is the last valid slot.
// Long/Double entries occupy two indices, the second reserved as nil.
type Pool struct {
	entries []Entry // entries[0] is always nil
}

// Count returns the number of logical slots, equal to the class file's
// cp_count (one more than the highest valid index).
func (p *Pool) Count() int { return len(p.entries) }

// Read parses a constant pool from r: the u2 count followed by count-1
// logical entries (spec §4.2).
func Read(r *reader.Reader) (*Pool, error) {
	count, err := r.U16()
	if err != nil {
		return nil, javaerrors.Wrap(javaerrors.KindUnexpectedEOF, err, "reading constant_pool_count")
	}

	p := &Pool{entries: make([]Entry, count)}

	// Pass 1: raw decode. Long/Double consume the following index as a
	// reserved, nil slot per JVMS 4.4.5.
	for i := 1; i < int(count); i++ {
		tag, err := r.U8()
		if err != nil {
			return nil, javaerrors.Wrap(javaerrors.KindUnexpectedEOF, err, "reading constant tag at index %d", i)
		}
		entry, wide, err := readRaw(r, Tag(tag), i)
		if err != nil {
			return nil, err
		}
		p.entries[i] = entry
		if wide {
			i++ // reserve the next slot
		}
	}

	if err := p.resolve(); err != nil {
		return nil, err
	}
	return p, nil
}

func readRaw(r *reader.Reader, tag Tag, pos int) (Entry, bool, error) {
	switch tag {
	case TagUtf8:
		length, err := r.U16()
		if err != nil {
			return nil, false, err
		}
		raw, err := r.Bytes(int(length))
		if err != nil {
			return nil, false, err
		}
		s, err := DecodeModifiedUTF8(raw)
		if err != nil {
			return nil, false, err
		}
		return &Utf8Entry{Value: s}, false, nil

	case TagInteger:
		v, err := r.I32()
		return &IntegerEntry{Value: v}, false, err

	case TagFloat:
		v, err := r.F32()
		return &FloatEntry{Value: v}, false, err

	case TagLong:
		v, err := r.I64()
		return &LongEntry{Value: v}, true, err

	case TagDouble:
		v, err := r.F64()
		return &DoubleEntry{Value: v}, true, err

	case TagClass:
		idx, err := r.U16()
		return &ClassEntry{NameIndex: idx}, false, err

	case TagString:
		idx, err := r.U16()
		return &StringEntry{StringIndex: idx}, false, err

	case TagFieldref:
		cls, nt, err := readRefPair(r)
		return &RefEntry{tag: TagFieldref, ClassIndex: cls, NameTypeIndex: nt}, false, err

	case TagMethodref:
		cls, nt, err := readRefPair(r)
		return &RefEntry{tag: TagMethodref, ClassIndex: cls, NameTypeIndex: nt}, false, err

	case TagInterfaceMethodref:
		cls, nt, err := readRefPair(r)
		return &RefEntry{tag: TagInterfaceMethodref, ClassIndex: cls, NameTypeIndex: nt}, false, err

	case TagNameAndType:
		name, desc, err := readRefPair(r)
		return &NameAndTypeEntry{NameIndex: name, DescIndex: desc}, false, err

	case TagMethodHandle:
		kind, err := r.U8()
		if err != nil {
			return nil, false, err
		}
		idx, err := r.U16()
		return &MethodHandleEntry{Kind: kind, RefIndex: idx}, false, err

	case TagMethodType:
		idx, err := r.U16()
		return &MethodTypeEntry{DescIndex: idx}, false, err

	case TagInvokeDynamic:
		bsm, err := r.U16()
		if err != nil {
			return nil, false, err
		}
		nt, err := r.U16()
		return &InvokeDynamicEntry{BootstrapMethodAttrIndex: bsm, NameTypeIndex: nt}, false, err
	}

	return nil, false, javaerrors.New(javaerrors.KindIllegalConstantKind,
		"illegal constant pool tag %d at index %d, pos %d", tag, pos, r.Pos())
}

func readRefPair(r *reader.Reader) (uint16, uint16, error) {
	a, err := r.U16()
	if err != nil {
		return 0, 0, err
	}
	b, err := r.U16()
	return a, b, err
}

// resolve is pass 2: every raw index field is turned into a direct
// pointer/reference to the referent entry. Utf8 entries need no resolution
// so they are always resolvable first; this pool format has no legal
// cycles (spec §4.2), so a single linear pass suffices.
func (p *Pool) resolve() error {
	for i := 1; i < len(p.entries); i++ {
		switch e := p.entries[i].(type) {
		case *ClassEntry:
			u, err := p.GetUtf8(int(e.NameIndex))
			if err != nil {
				return err
			}
			e.Name = u
		case *StringEntry:
			u, err := p.GetUtf8(int(e.StringIndex))
			if err != nil {
				return err
			}
			e.Value = u
		case *NameAndTypeEntry:
			name, err := p.GetUtf8(int(e.NameIndex))
			if err != nil {
				return err
			}
			desc, err := p.GetUtf8(int(e.DescIndex))
			if err != nil {
				return err
			}
			e.Name, e.Desc = name, desc
		case *RefEntry:
			cls, err := p.GetClass(int(e.ClassIndex))
			if err != nil {
				return err
			}
			nt, err := p.GetNameAndType(int(e.NameTypeIndex))
			if err != nil {
				return err
			}
			e.Class, e.NameAndType = cls, nt
		case *MethodTypeEntry:
			u, err := p.GetUtf8(int(e.DescIndex))
			if err != nil {
				return err
			}
			e.Desc = u
		case *InvokeDynamicEntry:
			nt, err := p.GetNameAndType(int(e.NameTypeIndex))
			if err != nil {
				return err
			}
			e.NameAndType = nt
		case *MethodHandleEntry:
			ref, err := p.getRaw(int(e.RefIndex))
			if err != nil {
				return err
			}
			if _, ok := ref.(*RefEntry); !ok {
				return javaerrors.New(javaerrors.KindWrongConstantKind,
					"MethodHandle at does not reference a Fieldref/Methodref/InterfaceMethodref")
			}
			e.Ref = ref
		}
	}
	return nil
}

func (p *Pool) getRaw(i int) (Entry, error) {
	if i < 1 || i >= len(p.entries) || p.entries[i] == nil {
		return nil, javaerrors.New(javaerrors.KindIndexOutOfBounds, "constant pool index %d out of bounds [1,%d)", i, len(p.entries))
	}
	return p.entries[i], nil
}

func wrongKind(i int, want Tag, got Entry) error {
	return javaerrors.New(javaerrors.KindWrongConstantKind, "constant pool entry %d: expected %s, got %T", i, want, got)
}

// GetUtf8 returns the Utf8 entry at index i.
func (p *Pool) GetUtf8(i int) (*Utf8Entry, error) {
	e, err := p.getRaw(i)
	if err != nil {
		return nil, err
	}
	v, ok := e.(*Utf8Entry)
	if !ok {
		return nil, wrongKind(i, TagUtf8, e)
	}
	return v, nil
}

// GetClass returns the Class entry at index i.
func (p *Pool) GetClass(i int) (*ClassEntry, error) {
	e, err := p.getRaw(i)
	if err != nil {
		return nil, err
	}
	v, ok := e.(*ClassEntry)
	if !ok {
		return nil, wrongKind(i, TagClass, e)
	}
	return v, nil
}

// GetString returns the String entry at index i.
func (p *Pool) GetString(i int) (*StringEntry, error) {
	e, err := p.getRaw(i)
	if err != nil {
		return nil, err
	}
	v, ok := e.(*StringEntry)
	if !ok {
		return nil, wrongKind(i, TagString, e)
	}
	return v, nil
}

// GetNameAndType returns the NameAndType entry at index i.
func (p *Pool) GetNameAndType(i int) (*NameAndTypeEntry, error) {
	e, err := p.getRaw(i)
	if err != nil {
		return nil, err
	}
	v, ok := e.(*NameAndTypeEntry)
	if !ok {
		return nil, wrongKind(i, TagNameAndType, e)
	}
	return v, nil
}

// GetRef returns a Fieldref/Methodref/InterfaceMethodref entry at index i,
// verifying it has exactly the expected tag.
func (p *Pool) GetRef(i int, want Tag) (*RefEntry, error) {
	e, err := p.getRaw(i)
	if err != nil {
		return nil, err
	}
	v, ok := e.(*RefEntry)
	if !ok || v.tag != want {
		return nil, wrongKind(i, want, e)
	}
	return v, nil
}

// GetMethodHandle returns the MethodHandle entry at index i.
func (p *Pool) GetMethodHandle(i int) (*MethodHandleEntry, error) {
	e, err := p.getRaw(i)
	if err != nil {
		return nil, err
	}
	v, ok := e.(*MethodHandleEntry)
	if !ok {
		return nil, wrongKind(i, TagMethodHandle, e)
	}
	return v, nil
}

// GetMethodType returns the MethodType entry at index i.
func (p *Pool) GetMethodType(i int) (*MethodTypeEntry, error) {
	e, err := p.getRaw(i)
	if err != nil {
		return nil, err
	}
	v, ok := e.(*MethodTypeEntry)
	if !ok {
		return nil, wrongKind(i, TagMethodType, e)
	}
	return v, nil
}

// GetInvokeDynamic returns the InvokeDynamic entry at index i.
func (p *Pool) GetInvokeDynamic(i int) (*InvokeDynamicEntry, error) {
	e, err := p.getRaw(i)
	if err != nil {
		return nil, err
	}
	v, ok := e.(*InvokeDynamicEntry)
	if !ok {
		return nil, wrongKind(i, TagInvokeDynamic, e)
	}
	return v, nil
}

// GetInteger returns the Integer entry's value at index i.
func (p *Pool) GetInteger(i int) (int32, error) {
	e, err := p.getRaw(i)
	if err != nil {
		return 0, err
	}
	v, ok := e.(*IntegerEntry)
	if !ok {
		return 0, wrongKind(i, TagInteger, e)
	}
	return v.Value, nil
}

// GetFloat returns the Float entry's value at index i.
func (p *Pool) GetFloat(i int) (float32, error) {
	e, err := p.getRaw(i)
	if err != nil {
		return 0, err
	}
	v, ok := e.(*FloatEntry)
	if !ok {
		return 0, wrongKind(i, TagFloat, e)
	}
	return v.Value, nil
}

// GetLong returns the Long entry's value at index i.
func (p *Pool) GetLong(i int) (int64, error) {
	e, err := p.getRaw(i)
	if err != nil {
		return 0, err
	}
	v, ok := e.(*LongEntry)
	if !ok {
		return 0, wrongKind(i, TagLong, e)
	}
	return v.Value, nil
}

// GetDouble returns the Double entry's value at index i.
func (p *Pool) GetDouble(i int) (float64, error) {
	e, err := p.getRaw(i)
	if err != nil {
		return 0, err
	}
	v, ok := e.(*DoubleEntry)
	if !ok {
		return 0, wrongKind(i, TagDouble, e)
	}
	return v.Value, nil
}

// GetNullableClass returns nil, nil when i == 0 (the JVMS uses index 0 to
// mean "no superclass", i.e. only legal for java/lang/Object).
func (p *Pool) GetNullableClass(i int) (*ClassEntry, error) {
	if i == 0 {
		return nil, nil
	}
	return p.GetClass(i)
}

// ClassName is a convenience returning the dotted-or-internal name string
// of a Class entry, for diagnostics.
func ClassName(c *ClassEntry) string {
	if c == nil || c.Name == nil {
		return ""
	}
	return c.Name.Value
}
