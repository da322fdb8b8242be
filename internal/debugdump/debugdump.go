// Package debugdump implements --debug's structured dump of
// intermediate pipeline state (spec §2/§6): constant pool summaries,
// evaluator Operation trees, and scope variable tables, written with
// kr/pretty the same way the teacher's test suite diffs structs.
package debugdump

import (
	"fmt"
	"io"

	"github.com/kr/pretty"

	"github.com/javadec/javadec/internal/classfile"
	"github.com/javadec/javadec/internal/eval"
	"github.com/javadec/javadec/internal/scope"
)

// classSummary is a compact stand-in for a full ClassFile dump — the
// real struct's constant-pool pointers make a direct pretty.Formatter
// pass unreadably large.
type classSummary struct {
	Major, Minor    int
	AccessFlags     classfile.AccessFlags
	ConstantPoolLen int
	Fields, Methods int
}

// ClassFile writes a header line and a short pretty-printed summary of cf
// to w.
func ClassFile(w io.Writer, cf *classfile.ClassFile) {
	fmt.Fprintf(w, "=== %s ===\n", cf.Name())
	fmt.Fprintf(w, "%# v\n", pretty.Formatter(classSummary{
		Major: int(cf.MajorVersion), Minor: int(cf.MinorVersion),
		AccessFlags: cf.AccessFlags, ConstantPoolLen: cf.ConstantPool.Count(),
		Fields: len(cf.Fields), Methods: len(cf.Methods),
	}))
}

// Statements dumps one method's flat evaluator output, the state of the
// pipeline before flow reconstruction folds it into a tree.
func Statements(w io.Writer, method string, stmts []*eval.Operation) {
	fmt.Fprintf(w, "--- %s: %d statement(s) ---\n", method, len(stmts))
	for _, s := range stmts {
		fmt.Fprintf(w, "%# v\n", pretty.Formatter(s))
	}
}

// Scope dumps one method's chosen variable names and slot assignments.
func Scope(w io.Writer, method string, sc *scope.Scope) {
	fmt.Fprintf(w, "--- %s: scope ---\n", method)
	fmt.Fprintf(w, "%# v\n", pretty.Formatter(sc))
}
