// Package scope implements the Scope & Variable Model component (spec
// §4.7): nested lexical scopes over the JVM's flat local-variable slot
// array, parameter binding, and name resolution.
package scope

import (
	"fmt"

	"github.com/javadec/javadec/internal/types"
)

// Variable is one JVM local slot, possibly shared across several nested
// scopes if the bytecode reuses the slot (javac does this for sibling
// blocks; spec §4.7 handles this via getVariable's scope-chain walk).
type Variable struct {
	Slot     int
	Type     types.Type
	Declared bool // true once a real source declaration has been attributed to it
	Name     string
	IsLoopCounter bool
}

// Kind discriminates why a Scope exists, for the render/flow layers.
type Kind int

const (
	KindMethod Kind = iota
	KindBlock
	KindLoop
	KindIf
	KindElse
	KindTry
	KindCatch
	KindSwitch
)

// Scope is one lexical nesting level, matching spec §4.7: a running
// variable table plus child scopes.
type Scope struct {
	Kind     Kind
	Start    int // instruction index
	End      int
	Parent   *Scope
	Children []*Scope

	vars    map[int]*Variable
	nextSlot int

	Label string // assigned lazily by flow when a break/continue needs one
}

// New creates a root (method) scope. nextSlot should start after the
// implicit `this` and formal parameters (see BindParameters).
func New(kind Kind, start, end int, parent *Scope) *Scope {
	s := &Scope{Kind: kind, Start: start, End: end, Parent: parent, vars: map[int]*Variable{}}
	if parent != nil {
		parent.Children = append(parent.Children, s)
		s.nextSlot = parent.nextSlot
	}
	return s
}

// GetVariable implements spec §4.7's getVariable(i, declared): when
// declared is false and the slot is empty, an AnyType placeholder is
// created and installed in the current scope; when declared is true, the
// scope chain (including already-created children, for the loop-owns-
// condition-variable case) is searched first.
func (s *Scope) GetVariable(slot int, declared bool) *Variable {
	if v, ok := s.vars[slot]; ok {
		return v
	}
	for p := s.Parent; p != nil; p = p.Parent {
		if v, ok := p.vars[slot]; ok {
			return v
		}
	}
	if declared {
		if v := s.searchChildren(slot); v != nil {
			return v
		}
	}
	v := &Variable{Slot: slot, Type: types.Any, Declared: declared}
	s.vars[slot] = v
	return v
}

func (s *Scope) searchChildren(slot int) *Variable {
	for _, c := range s.Children {
		if v, ok := c.vars[slot]; ok {
			return v
		}
		if v := c.searchChildren(slot); v != nil {
			return v
		}
	}
	return nil
}

// AddVariable installs v at a slot the caller has already chosen and
// advances the scope's running slot cursor by the variable's slot size
// (spec §4.7: "appends at a running index advanced by the variable's
// slot size").
func (s *Scope) AddVariable(v *Variable) {
	s.vars[v.Slot] = v
	if next := v.Slot + v.Type.SlotSize(); next > s.nextSlot {
		s.nextSlot = next
	}
}

// BindParameters installs `this` (if non-static) at slot 0 and each
// parameter at consecutive slots, widening the cursor by 2 for 64-bit
// params (spec §4.7). A `main(String[] args)` heuristic names that sole
// parameter "args".
func (s *Scope) BindParameters(thisType *types.Type, params []types.Type, methodName string) {
	slot := 0
	if thisType != nil {
		s.AddVariable(&Variable{Slot: slot, Type: *thisType, Declared: true, Name: "this"})
		slot++
	}
	isMain := methodName == "main" && len(params) == 1 && params[0].Kind == types.KindArray &&
		params[0].Dims == 1 && params[0].Elem != nil && params[0].Elem.Kind == types.KindClass &&
		params[0].Elem.Simple == "String"
	for _, p := range params {
		name := ""
		if isMain {
			name = "args"
		}
		s.AddVariable(&Variable{Slot: slot, Type: p, Declared: true, Name: name})
		slot += p.SlotSize()
	}
}

// javaKeywords blocks a chosen variable name from colliding with a
// reserved word (spec §4.7's "Java-keyword substitution table").
var javaKeywords = map[string]bool{
	"abstract": true, "assert": true, "boolean": true, "break": true, "byte": true,
	"case": true, "catch": true, "char": true, "class": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extends": true, "final": true, "finally": true, "float": true,
	"for": true, "goto": true, "if": true, "implements": true, "import": true,
	"instanceof": true, "int": true, "interface": true, "long": true, "native": true,
	"new": true, "package": true, "private": true, "protected": true, "public": true,
	"return": true, "short": true, "static": true, "strictfp": true, "super": true,
	"switch": true, "synchronized": true, "this": true, "throw": true, "throws": true,
	"transient": true, "try": true, "void": true, "volatile": true, "while": true,
	"var": true, "yield": true, "record": true,
}

var loopCounterNames = []string{"i", "j", "k", "l", "m"}

// ChooseNames assigns each not-yet-named variable a preferred name (spec
// §4.7): loop counters try i,j,k,l,m first; everything else derives from
// its type's simple name, lowercased; collisions disambiguate with a
// trailing 2,3,4….
func (s *Scope) ChooseNames() {
	used := map[string]bool{}
	s.collectUsedNames(used)
	s.assignNames(used)
}

func (s *Scope) collectUsedNames(used map[string]bool) {
	for _, v := range s.vars {
		if v.Name != "" {
			used[v.Name] = true
		}
	}
	for _, c := range s.Children {
		c.collectUsedNames(used)
	}
}

func (s *Scope) assignNames(used map[string]bool) {
	counterIdx := 0
	for _, v := range s.vars {
		if v.Name != "" {
			continue
		}
		base := ""
		if v.IsLoopCounter && counterIdx < len(loopCounterNames) {
			base = loopCounterNames[counterIdx]
			counterIdx++
		} else {
			base = defaultNameFor(v.Type)
		}
		v.Name = disambiguate(base, used)
		used[v.Name] = true
	}
	for _, c := range s.Children {
		c.assignNames(used)
	}
}

func defaultNameFor(t types.Type) string {
	name := t.Simple
	if name == "" {
		switch t.Kind {
		case types.KindInt, types.KindAmbiguous:
			name = "i"
		case types.KindLong:
			name = "l"
		case types.KindFloat:
			name = "f"
		case types.KindDouble:
			name = "d"
		case types.KindBoolean:
			name = "b"
		default:
			name = "v"
		}
	}
	if name == "" {
		return "v"
	}
	r := []rune(name)
	first := string(r[0])
	lowered := lower(first) + string(r[1:])
	if javaKeywords[lowered] {
		lowered += "_"
	}
	return lowered
}

func lower(s string) string {
	if s >= "A" && s <= "Z" {
		return string(rune(s[0]) + ('a' - 'A'))
	}
	return s
}

func disambiguate(base string, used map[string]bool) string {
	if !used[base] {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s%d", base, n)
		if !used[candidate] {
			return candidate
		}
	}
}
