package types

import javaerrors "github.com/javadec/javadec/internal/errors"

// ImplicitCast classifies how an argument type can be implicitly converted
// to a formal parameter type; used only by overload resolution (spec §9).
type ImplicitCast int

const (
	CastNone ImplicitCast = iota
	CastSame
	CastExtend
	CastAutobox
	CastObjectAutobox
	CastVarargs
)

// primitiveSubtype gives the strict widening order spec §4.3 states explicitly:
// byte ⊑ short ⊑ int, and separately char ⊑ int. Anything not listed here
// is only reflexively a subtype of itself among primitives.
var primitiveSubtype = map[Kind][]Kind{
	KindByte:  {KindShort, KindInt},
	KindShort: {KindInt},
	KindChar:  {KindInt},
}

// widenRank extends that chain with the full Java widening-primitive-
// conversion order, used by CastToWidest (which spec §4.3 says "prefers
// the wider type", a strictly broader notion than isSubtypeOf) and by
// ImplicitCastStatus's widening check.
var widenRank = map[Kind]int{
	KindByte: 0, KindShort: 1, KindChar: 1, KindInt: 2,
	KindLong: 3, KindFloat: 4, KindDouble: 5,
}

// IsSubtypeOf implements spec §4.3's reflexive isSubtypeOf relation.
func (a Type) IsSubtypeOf(b Type) bool {
	if b.Kind == KindAny || a.Kind == KindAny {
		return true
	}
	if sameKindAndName(a, b) {
		return true
	}
	if a.Kind == KindAmbiguous {
		for _, k := range ambiguousKinds(a.Set) {
			if isSubtypeOfKind(k, b) {
				return true
			}
		}
		return false
	}
	if b.Kind == KindAmbiguous {
		return a.IsIntegral() && b.Set.has(kindToSet(a.Kind))
	}
	if a.IsPrimitive() && b.IsPrimitive() {
		for _, k := range primitiveSubtype[a.Kind] {
			if k == b.Kind {
				return true
			}
		}
		return false
	}
	if a.IsReference() && b.Kind == KindAnyObject {
		return true
	}
	if a.IsReference() && b.Kind == KindClass && b.Pkg == "java.lang" && b.Simple == "Object" && b.Enclosing == nil {
		return true
	}
	if a.Kind == KindArray && b.Kind == KindArray {
		return a.Dims == b.Dims && a.Elem.IsSubtypeOf(*b.Elem)
	}
	if a.Kind == KindExcluding {
		for _, ex := range excludingTypesPlaceholder(a) {
			if sameKindAndName(ex, b) {
				return false
			}
		}
		return b.Kind == KindAnyObject
	}
	return false
}

func isSubtypeOfKind(k Kind, b Type) bool {
	t := Type{Kind: k}
	return t.IsSubtypeOf(b)
}

func sameKindAndName(a, b Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindClass:
		return a.qualifiedName() == b.qualifiedName()
	case KindTypeParameter:
		return a.Simple == b.Simple
	case KindArray:
		return a.Dims == b.Dims && a.Elem != nil && b.Elem != nil && sameKindAndName(*a.Elem, *b.Elem)
	default:
		return true
	}
}

func kindToSet(k Kind) IntSet {
	switch k {
	case KindBoolean:
		return SetBoolean
	case KindByte:
		return SetByte
	case KindChar:
		return SetChar
	case KindShort:
		return SetShort
	case KindInt:
		return SetInt
	}
	return 0
}

func ambiguousKinds(s IntSet) []Kind {
	var ks []Kind
	if s.has(SetBoolean) {
		ks = append(ks, KindBoolean)
	}
	if s.has(SetByte) {
		ks = append(ks, KindByte)
	}
	if s.has(SetChar) {
		ks = append(ks, KindChar)
	}
	if s.has(SetShort) {
		ks = append(ks, KindShort)
	}
	if s.has(SetInt) {
		ks = append(ks, KindInt)
	}
	return ks
}

// excludingTypesPlaceholder returns the class types an Excluding type
// excludes. Excluding reuses the Generic slice to hold them (it only ever
// excludes class types, and Type otherwise has no spare reference-list
// field); see NewExcluding.
func excludingTypesPlaceholder(t Type) []Type { return t.Generic }

// CastTo narrows a and b to the type that satisfies both, per spec §4.3.
func (a Type) CastTo(b Type) (Type, error) {
	if a.Kind == KindAny {
		return b, nil
	}
	if b.Kind == KindAny {
		return a, nil
	}
	if a.Kind == KindAmbiguous && b.Kind == KindAmbiguous {
		merged := a.Set & b.Set
		return commitAmbiguous(merged, a, b)
	}
	if a.Kind == KindAmbiguous {
		return narrowAmbiguous(a, b)
	}
	if b.Kind == KindAmbiguous {
		return narrowAmbiguous(b, a)
	}
	if sameKindAndName(a, b) {
		return unifyGeneric(a, b), nil
	}
	if a.IsPrimitive() && b.IsPrimitive() {
		if a.IsSubtypeOf(b) {
			return a, nil
		}
		if b.IsSubtypeOf(a) {
			return b, nil
		}
		return Type{}, incompatible(a, b)
	}
	if a.IsReference() && b.IsReference() {
		if a.IsSubtypeOf(b) {
			return a, nil
		}
		if b.IsSubtypeOf(a) {
			return b, nil
		}
		if a.Kind == KindAnyObject {
			return b, nil
		}
		if b.Kind == KindAnyObject {
			return a, nil
		}
		return Type{}, incompatible(a, b)
	}
	return Type{}, incompatible(a, b)
}

func unifyGeneric(a, b Type) Type {
	// Prefer whichever side already carries generic argument information.
	if len(a.Generic) == 0 && len(b.Generic) > 0 {
		return b
	}
	return a
}

func narrowAmbiguous(ambig, concrete Type) (Type, error) {
	if concrete.IsIntegral() {
		if !ambig.Set.has(kindToSet(concrete.Kind)) {
			return Type{}, incompatible(ambig, concrete)
		}
		return concrete, nil
	}
	return Type{}, incompatible(ambig, concrete)
}

func commitAmbiguous(merged IntSet, a, b Type) (Type, error) {
	if merged == 0 {
		return Type{}, incompatible(a, b)
	}
	return Type{Kind: KindAmbiguous, Set: merged}, nil
}

func incompatible(a, b Type) error {
	return javaerrors.New(javaerrors.KindIncompatibleTypes, "incompatible types %s and %s", a.String(), b.String())
}

// CastToWidest is like CastTo but, among two concrete numeric types,
// prefers the wider one rather than failing or intersecting — used when a
// variable's type must unify over multiple stores/loads (spec §4.3).
func (a Type) CastToWidest(b Type) (Type, error) {
	if a.Kind == KindAmbiguous || b.Kind == KindAmbiguous {
		return a.CastTo(b)
	}
	if a.IsPrimitive() && b.IsPrimitive() {
		ra, oka := widenRank[a.Kind]
		rb, okb := widenRank[b.Kind]
		if oka && okb {
			if ra >= rb {
				return a, nil
			}
			return b, nil
		}
		return a.CastTo(b)
	}
	if a.IsReference() && b.IsReference() {
		if a.IsSubtypeOf(b) {
			return b, nil
		}
		if b.IsSubtypeOf(a) {
			return a, nil
		}
		return AnyObject, nil
	}
	return a.CastTo(b)
}

// TwoWayCastTo tries CastToWidest(b) then, on failure, the reversed call,
// giving commutative literal/variable refinement (spec §4.3).
func (a Type) TwoWayCastTo(b Type) (Type, error) {
	if t, err := a.CastToWidest(b); err == nil {
		return t, nil
	}
	return b.CastToWidest(a)
}

// CastNoexcept is CastTo without the possibility of failure: on
// incompatibility it falls back to AnyObject for references or to a for
// primitives, rather than erroring (used in rendering fallbacks where a
// best-effort type is preferable to aborting decompilation of the whole
// method, spec §9 "Exceptions vs results").
func (a Type) CastNoexcept(b Type) Type {
	if t, err := a.CastTo(b); err == nil {
		return t
	}
	if a.IsReference() || b.IsReference() {
		return AnyObject
	}
	return a
}

var boxedWrapper = map[string]Kind{
	"java.lang.Boolean":   KindBoolean,
	"java.lang.Byte":      KindByte,
	"java.lang.Character": KindChar,
	"java.lang.Short":     KindShort,
	"java.lang.Integer":   KindInt,
	"java.lang.Long":      KindLong,
	"java.lang.Float":     KindFloat,
	"java.lang.Double":    KindDouble,
}

// ImplicitCastStatus classifies the conversion from argument type a to
// formal parameter type b, for overload-resolution use only (spec §4.3,
// §9): never consulted by castTo/isSubtypeOf themselves.
func (a Type) ImplicitCastStatus(b Type) ImplicitCast {
	if sameKindAndName(a, b) {
		return CastSame
	}
	if a.IsPrimitive() && b.IsPrimitive() && a.IsSubtypeOf(b) {
		return CastExtend
	}
	if ra, oka := widenRank[a.Kind]; oka {
		if rb, okb := widenRank[b.Kind]; okb && ra < rb {
			return CastExtend
		}
	}
	if a.IsPrimitive() && b.Kind == KindClass {
		if k, ok := boxedWrapper[b.qualifiedName()]; ok && k == a.Kind {
			return CastAutobox
		}
		if b.qualifiedName() == "java.lang.Object" {
			return CastObjectAutobox
		}
	}
	if a.Kind == KindClass {
		if k, ok := boxedWrapper[a.qualifiedName()]; ok && b.IsPrimitive() && k == b.Kind {
			return CastAutobox
		}
	}
	if b.Kind == KindArray {
		return CastVarargs
	}
	if a.IsReference() && b.IsReference() && a.IsSubtypeOf(b) {
		return CastExtend
	}
	return CastNone
}
