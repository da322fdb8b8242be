package registry

import (
	"fmt"
	"os"
	"strings"

	"github.com/javadec/javadec/internal/classfile"
	"github.com/javadec/javadec/internal/classfile/attrs"
	"github.com/javadec/javadec/internal/config"
	"github.com/javadec/javadec/internal/constpool"
	"github.com/javadec/javadec/internal/debugdump"
	"github.com/javadec/javadec/internal/disasm"
	"github.com/javadec/javadec/internal/eval"
	"github.com/javadec/javadec/internal/flow"
	"github.com/javadec/javadec/internal/render"
	"github.com/javadec/javadec/internal/scope"
	"github.com/javadec/javadec/internal/types"
)

// renderClass assembles one top-level class's full Java source: package
// line, import block, class declaration, and member body. The import
// block must be written last (after every TypeName lookup the
// declaration and members perform has had a chance to register itself),
// so the body is built into a scratch Renderer first and the package
// preamble is assembled around its accumulated text afterward.
func (r *Registry) renderClass(cf *classfile.ClassFile, cfg *config.Config) (string, error) {
	if cfg.Debug {
		debugdump.ClassFile(os.Stderr, cf)
	}
	ci := render.NewClassInfo(packageOf(cf.Name()))
	rn := render.New(ci)
	rn.UseMathConstants = cfg.UseConstants != config.ConstantsNever
	rn.AnonBody = r.anonLookup(cfg)
	rn.InternalName = types.InternalName

	decl, err := classDecl(rn, cf)
	if err != nil {
		return "", err
	}
	if err := r.renderMembers(rn, cf, cfg); err != nil {
		return "", err
	}

	var out strings.Builder
	pkg := packageOf(cf.Name())
	if pkg != "" {
		out.WriteString("package " + pkg + ";\n\n")
	}
	for _, imp := range ci.SortedImports() {
		out.WriteString("import " + imp + ";\n")
	}
	if len(ci.SortedImports()) > 0 {
		out.WriteString("\n")
	}
	for _, line := range rn.AnnotationLines(attrs.FindAnnotations(cf.Attributes)) {
		out.WriteString(line + "\n")
	}
	out.WriteString(decl + " {\n")
	out.WriteString(rn.String())
	out.WriteString("}\n")
	return out.String(), nil
}

func classKeyword(f classfile.AccessFlags) string {
	switch {
	case f.Has(classfile.AccAnnotation):
		return "@interface"
	case f.Has(classfile.AccInterface):
		return "interface"
	case f.Has(classfile.AccEnum):
		return "enum"
	default:
		return "class"
	}
}

func classModifiers(f classfile.AccessFlags) string {
	var out []string
	add := func(bit classfile.AccessFlags, kw string) {
		if f.Has(bit) {
			out = append(out, kw)
		}
	}
	add(classfile.AccPublic, "public")
	add(classfile.AccAbstract, "abstract")
	if !f.Has(classfile.AccEnum) && !f.Has(classfile.AccInterface) {
		add(classfile.AccFinal, "final")
	}
	return strings.Join(out, " ")
}

func classDecl(rn *render.Renderer, cf *classfile.ClassFile) (string, error) {
	kw := classKeyword(cf.AccessFlags)
	name := simpleNameOf(cf.Name())
	decl := classModifiers(cf.AccessFlags)
	if decl != "" {
		decl += " "
	}
	decl += kw + " " + name

	if kw == "class" && cf.SuperName() != "" && cf.SuperName() != "java/lang/Object" {
		decl += " extends " + rn.TypeName(types.ClassFromInternalName(cf.SuperName()))
	}
	if len(cf.Interfaces) > 0 {
		names := make([]string, len(cf.Interfaces))
		for i, ce := range cf.Interfaces {
			names[i] = rn.TypeName(types.ClassFromInternalName(constpool.ClassName(ce)))
		}
		verb := " implements "
		if kw == "interface" {
			verb = " extends "
		}
		decl += verb + strings.Join(names, ", ")
	}
	return decl, nil
}

// assertFieldName returns the class's $assertionsDisabled field name, if
// the compiler emitted one (spec §4.8's assertion rewriting needs this
// to recognize the guard).
func assertFieldName(cf *classfile.ClassFile) string {
	for _, f := range cf.Fields {
		if f.Name == "$assertionsDisabled" {
			return f.Name
		}
	}
	return ""
}

// renderMembers writes every field and method declaration into rn, in
// the stable order render.FieldOrder/MethodOrder establish (spec §8's
// determinism property).
func (r *Registry) renderMembers(rn *render.Renderer, cf *classfile.ClassFile, cfg *config.Config) error {
	isEnum := cf.AccessFlags.Has(classfile.AccEnum)
	selfType := types.ClassFromInternalName(cf.Name())

	var enumConstants []flow.EnumConstant
	consumedClinit := map[int]bool{}
	var clinitMethod *classfile.Method
	for i := range cf.Methods {
		if cf.Methods[i].Name == "<clinit>" {
			clinitMethod = &cf.Methods[i]
			break
		}
	}
	if isEnum && clinitMethod != nil {
		code, ok := attrs.FindCode(clinitMethod.Attributes)
		if ok {
			stmts, err := evaluateClinitForEnum(cf, code)
			if err == nil {
				enumConstants, consumedClinit = flow.DetectEnumConstants(stmts, selfType)
			}
		}
	}

	if isEnum && len(enumConstants) > 0 {
		parts := make([]string, len(enumConstants))
		for i, ec := range enumConstants {
			if len(ec.Args) == 0 {
				parts[i] = ec.Name
				continue
			}
			args := make([]string, len(ec.Args))
			for j, a := range ec.Args {
				args[j] = rn.Expr(a)
			}
			parts[i] = fmt.Sprintf("%s(%s)", ec.Name, strings.Join(args, ", "))
		}
		rn.WriteLine(1, strings.Join(parts, ", ")+";")
		rn.WriteLine(0, "")
	}

	for _, f := range render.FieldOrder(cf.Fields) {
		if f.AccessFlags.Has(classfile.AccEnum) {
			continue // already listed as an enum constant above
		}
		if f.AccessFlags.Has(classfile.AccSynthetic) && !cfg.ShowSynthetic {
			continue
		}
		if f.Name == "$assertionsDisabled" && !cfg.ShowSynthetic {
			continue
		}
		ft, err := types.ParseFieldDescriptor(f.Descriptor)
		if err != nil {
			return err
		}
		for _, line := range rn.AnnotationLines(attrs.FindAnnotations(f.Attributes)) {
			rn.WriteLine(1, line)
		}
		mods := render.FieldModifiers(f.AccessFlags)
		decl := rn.TypeName(ft) + " " + f.Name + ";"
		if mods != "" {
			decl = mods + " " + decl
		}
		rn.WriteLine(1, decl)
	}
	rn.WriteLine(0, "")

	for _, m := range render.MethodOrder(cf.Methods) {
		if m.Name == "<clinit>" {
			if err := r.renderStaticInitializer(rn, cf, &m, consumedClinit, cfg); err != nil {
				return err
			}
			continue
		}
		if m.AccessFlags.Has(classfile.AccSynthetic) || m.AccessFlags.Has(classfile.AccBridge) {
			if !cfg.ShowSynthetic {
				continue
			}
		}
		if err := r.renderMethod(rn, cf, &m, cfg); err != nil {
			return err
		}
	}
	return nil
}

// evaluateClinitForEnum runs the evaluator over <clinit> alone (no flow
// reconstruction needed; DetectEnumConstants scans the flat statement
// list directly) so the enum constant list can be pulled out before the
// remaining static-initializer statements, if any, render normally.
func evaluateClinitForEnum(cf *classfile.ClassFile, code *attrs.Code) ([]*eval.Operation, error) {
	d, err := disasm.Decode(code.Bytes, cf.ConstantPool)
	if err != nil {
		return nil, err
	}
	sc := scope.New(scope.KindMethod, 0, d.Len(), nil)
	ev := eval.New(d, cf.ConstantPool, cf, sc)
	return ev.Run()
}

// renderStaticInitializer re-decompiles <clinit> in full (flow
// reconstruction included) and emits whatever survives after the enum
// constant assignments DetectEnumConstants already consumed; an empty
// remainder means the class has no `static { ... }` block to print.
func (r *Registry) renderStaticInitializer(rn *render.Renderer, cf *classfile.ClassFile, m *classfile.Method, consumed map[int]bool, cfg *config.Config) error {
	code, ok := attrs.FindCode(m.Attributes)
	if !ok {
		return nil
	}
	node, sc, err := decompileBody(cf, m, code, nil, cfg)
	if err != nil {
		return err
	}
	var kept []flow.Item
	for _, it := range node.Body {
		if it.Stmt != nil && consumed[it.Index] {
			continue
		}
		kept = append(kept, it)
	}
	if len(kept) == 0 {
		return nil
	}
	sc.ChooseNames()
	rn.WriteLine(1, "static {")
	rn.Body(kept, 2)
	rn.WriteLine(1, "}")
	rn.WriteLine(0, "")
	return nil
}

// renderMethod decompiles and prints one ordinary method or constructor:
// signature line, `{`, the reconstructed body, `}`.
func (r *Registry) renderMethod(rn *render.Renderer, cf *classfile.ClassFile, m *classfile.Method, cfg *config.Config) error {
	code, hasCode := attrs.FindCode(m.Attributes)
	desc, err := types.ParseMethodDescriptor(m.Descriptor)
	if err != nil {
		return err
	}

	isStatic := m.AccessFlags.Has(classfile.AccStatic)
	var thisType *types.Type
	if !isStatic {
		t := types.ClassFromInternalName(cf.Name())
		thisType = &t
	}
	sc := scope.New(scope.KindMethod, 0, 0, nil)
	sc.BindParameters(thisType, desc.Params, m.Name)

	for _, line := range rn.AnnotationLines(attrs.FindAnnotations(m.Attributes)) {
		rn.WriteLine(1, line)
	}

	if !hasCode {
		sc.ChooseNames()
		sig := methodSignature(rn, cf, m, desc, sc, thisType)
		rn.WriteLine(1, sig+";")
		rn.WriteLine(0, "")
		return nil
	}

	node, sc2, err := decompileBody(cf, m, code, sc, cfg)
	if err != nil {
		return withMethod(err, m.Name)
	}
	sc2.ChooseNames()
	sig := methodSignature(rn, cf, m, desc, sc2, thisType)
	rn.WriteLine(1, sig+" {")
	rn.Body(node.Body, 2)
	rn.WriteLine(1, "}")
	rn.WriteLine(0, "")
	return nil
}

// methodSignature builds the declaration line: modifiers, return type
// (absent for constructors), name, and parameter list. It's called after
// sc.ChooseNames() so parameter variables already carry their chosen
// source names.
func methodSignature(rn *render.Renderer, cf *classfile.ClassFile, m *classfile.Method, desc types.MethodDescriptor, sc *scope.Scope, thisType *types.Type) string {
	mods := render.MethodModifiers(m.AccessFlags)
	var name string
	switch m.Name {
	case "<init>":
		name = simpleNameOf(cf.Name())
	default:
		name = m.Name
	}

	params := make([]string, len(desc.Params))
	for i, pt := range desc.Params {
		v := sc.GetVariable(paramSlot(thisType, desc.Params, i), true)
		pname := fmt.Sprintf("arg%d", i)
		if v != nil && v.Name != "" {
			pname = v.Name
		}
		params[i] = rn.TypeName(pt) + " " + pname
	}

	sig := mods
	if sig != "" {
		sig += " "
	}
	if m.Name != "<init>" {
		sig += rn.TypeName(desc.Return) + " "
	}
	sig += name + "(" + strings.Join(params, ", ") + ")"
	return sig
}

func paramSlot(thisType *types.Type, params []types.Type, i int) int {
	slot := 0
	if thisType != nil {
		slot = 1
	}
	for j := 0; j < i; j++ {
		slot += params[j].SlotSize()
	}
	return slot
}

// decompileBody runs the full spec §4.5-§4.8 pipeline for one method's
// Code attribute: disassemble, discover blocks, evaluate, reconstruct.
// If sc is nil a fresh method scope is created (used by the
// static-initializer path, which has no parameters to bind).
func decompileBody(cf *classfile.ClassFile, m *classfile.Method, code *attrs.Code, sc *scope.Scope, cfg *config.Config) (*flow.Node, *scope.Scope, error) {
	d, err := disasm.Decode(code.Bytes, cf.ConstantPool)
	if err != nil {
		return nil, nil, err
	}

	tries := make([]disasm.TryRange, len(code.ExceptionTable))
	for i, et := range code.ExceptionTable {
		startIdx, _ := d.PosToIndex(et.StartPC)
		endIdx, _ := d.PosToIndex(et.EndPC)
		handlerIdx, _ := d.PosToIndex(et.HandlerPC)
		catchType := ""
		if et.CatchType != nil {
			catchType = constpool.ClassName(et.CatchType)
		}
		tries[i] = disasm.TryRange{StartIdx: startIdx, EndIdx: endIdx, HandlerIdx: handlerIdx, CatchType: catchType}
	}

	root, err := disasm.DiscoverBlocks(d, tries)
	if err != nil {
		return nil, nil, err
	}

	if sc == nil {
		sc = scope.New(scope.KindMethod, root.Start, root.End, nil)
	} else {
		sc.Start, sc.End = root.Start, root.End
	}

	ev := eval.New(d, cf.ConstantPool, cf, sc)
	ev.SetHandlerEntries(flow.HandlerEntryPoints(tries))
	stmts, err := ev.Run()
	if err != nil {
		return nil, nil, err
	}
	if cfg != nil && cfg.Debug {
		debugdump.Statements(os.Stderr, m.Name, stmts)
		debugdump.Scope(os.Stderr, m.Name, sc)
	}

	node, err := flow.Reconstruct(flow.Input{
		Disasm:       d,
		Root:         root,
		Statements:   stmts,
		Conditions:   ev.Conditions,
		SwitchValues: ev.SwitchValues,
		Tries:        tries,
		Scope:        sc,
		AssertField:  assertFieldName(cf),
	})
	if err != nil {
		return nil, nil, err
	}
	return node, sc, nil
}
