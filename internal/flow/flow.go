// Package flow implements the Control-Flow Reconstructor (spec §4.8): it
// walks the disassembler's Block tree alongside the Symbolic Evaluator's
// flat statement list and turns goto-based bytecode control flow back
// into if/else, while/for, switch, and try/catch structure.
package flow

import (
	"fmt"
	"sort"

	"github.com/javadec/javadec/internal/disasm"
	"github.com/javadec/javadec/internal/eval"
	"github.com/javadec/javadec/internal/scope"
	"github.com/javadec/javadec/internal/types"
)

// Kind discriminates a reconstructed Node.
type Kind int

const (
	KindPlain Kind = iota
	KindIf
	KindWhile
	KindFor
	KindSwitch
	KindTry
)

// JumpKind discriminates a break/continue marker.
type JumpKind int

const (
	JumpBreak JumpKind = iota
	JumpContinue
)

// Jump is a break/continue site; Label is "" unless it crosses more than
// the innermost enclosing breakable/continuable scope (spec §4.8's
// break/continue rule), in which case it names the target scope using
// the L, L2, … convention.
type Jump struct {
	Kind  JumpKind
	Label string
}

// AssertStmt is the rewritten form of a `$assertionsDisabled && !P`
// guarded throw (spec §4.8's assertion rewriting).
type AssertStmt struct {
	Cond *eval.Operation
	Msg  *eval.Operation // nil when the source `assert` had no message
}

// CaseLabel is one switch case (or the default) and the body-item index
// its code begins at (spec §4.8: "at render time, cases/default are
// inserted before statements whose expression-index matches the map").
type CaseLabel struct {
	Key       int32
	IsDefault bool
	AtIndex   int
}

// CatchScope is one grouped exception handler; CatchTypes has more than
// one entry only for a multi-catch (`catch (A | B e)`).
type CatchScope struct {
	CatchTypes []types.Type
	Var        *scope.Variable
	Body       []Item
}

// Item is one element of a Node's body: exactly one of Stmt, Node, Jump,
// or Assert is set, in original source order.
type Item struct {
	Index  int
	Stmt   *eval.Operation
	Node   *Node
	Jump   *Jump
	Assert *AssertStmt
}

// Node is one reconstructed control-flow structure.
type Node struct {
	Kind  Kind
	Block *disasm.Block
	Body  []Item
	Label string // set lazily when some break/continue targets this scope

	// KindIf
	Cond *eval.Operation
	Else *Node

	// KindWhile / KindFor
	Init, Update *eval.Operation

	// KindSwitch
	Value *eval.Operation
	Cases []CaseLabel

	// KindTry
	Catches []CatchScope
}

// Input gathers the evaluator/disassembler output one method's
// reconstruction needs.
type Input struct {
	Disasm       *disasm.Disassembly
	Root         *disasm.Block
	Statements   []*eval.Operation
	Conditions   map[int]*eval.Operation
	SwitchValues map[int]*eval.Operation
	Tries        []disasm.TryRange
	Scope        *scope.Scope

	// AssertField is the class's $assertionsDisabled field name, or ""
	// if the class carries none (assertions were never compiled in, or
	// -source was given without -ea support).
	AssertField string
}

// Reconstruct builds the control-flow tree for one method body.
func Reconstruct(in Input) (*Node, error) {
	ctx := newBuildCtx(in)
	body, err := buildRangeBody(in.Root.Start, in.Root.End, in.Root.Children, ctx)
	if err != nil {
		return nil, err
	}
	root := &Node{Kind: KindPlain, Block: in.Root, Body: body}
	foldIncrementExpressions(root)
	return root, nil
}

// foldIncrementExpressions absorbs a bare iinc statement into an
// immediately adjacent assignment of the same local (spec §4.6: `int y =
// x++;` / `int y = ++x;`), walking the whole tree post-construction so
// every promoteToFor call has already had first claim on a loop's
// trailing increment — only increments promoteToFor left as ordinary
// body statements are eligible for this fold.
func foldIncrementExpressions(n *Node) {
	if n == nil {
		return
	}
	n.Body = foldIncrementItems(n.Body)
	for i := range n.Body {
		if n.Body[i].Node != nil {
			foldIncrementExpressions(n.Body[i].Node)
		}
	}
	foldIncrementExpressions(n.Else)
	for i := range n.Catches {
		n.Catches[i].Body = foldIncrementItems(n.Catches[i].Body)
		for j := range n.Catches[i].Body {
			if n.Catches[i].Body[j].Node != nil {
				foldIncrementExpressions(n.Catches[i].Body[j].Node)
			}
		}
	}
}

func foldIncrementItems(items []Item) []Item {
	if len(items) < 2 {
		return items
	}
	out := make([]Item, 0, len(items))
	for i := 0; i < len(items); i++ {
		if i+1 < len(items) {
			if merged, ok := mergeIncrementPair(items[i], items[i+1]); ok {
				out = append(out, merged)
				i++
				continue
			}
		}
		out = append(out, items[i])
	}
	return out
}

// mergeIncrementPair folds `y = x; x++;` into `y = x++;` (postfix, the
// old value already captured by the load) and `x++; y = x;` into
// `y = ++x;` (prefix, the new value loaded after the increment) —
// javac's two orderings for using an increment's value (spec §4.6).
func mergeIncrementPair(a, b Item) (Item, bool) {
	if a.Stmt == nil || b.Stmt == nil {
		return Item{}, false
	}
	if a.Stmt.Kind == eval.KindAssign && a.Stmt.Value != nil && a.Stmt.Value.Kind == eval.KindLocalRef {
		if slot, op, ok := bareIncrement(b.Stmt); ok && slot == a.Stmt.Value.Slot {
			return Item{Index: a.Index, Stmt: &eval.Operation{
				Kind: eval.KindAssign, Type: a.Stmt.Type, Target: a.Stmt.Target, Index: a.Stmt.Index,
				Value: &eval.Operation{Kind: eval.KindUnary, Type: a.Stmt.Value.Type, Op: op, Operand: a.Stmt.Value, Prefix: false, Index: b.Stmt.Index},
			}}, true
		}
	}
	if slot, op, ok := bareIncrement(a.Stmt); ok {
		if b.Stmt.Kind == eval.KindAssign && b.Stmt.Value != nil && b.Stmt.Value.Kind == eval.KindLocalRef && b.Stmt.Value.Slot == slot {
			return Item{Index: b.Index, Stmt: &eval.Operation{
				Kind: eval.KindAssign, Type: b.Stmt.Type, Target: b.Stmt.Target, Index: b.Stmt.Index,
				Value: &eval.Operation{Kind: eval.KindUnary, Type: b.Stmt.Value.Type, Op: op, Operand: b.Stmt.Value, Prefix: true, Index: a.Stmt.Index},
			}}, true
		}
	}
	return Item{}, false
}

func bareIncrement(stmt *eval.Operation) (slot int, op string, ok bool) {
	if stmt.Kind == eval.KindUnary && (stmt.Op == "++" || stmt.Op == "--") && stmt.Operand != nil && stmt.Operand.Kind == eval.KindLocalRef {
		return stmt.Operand.Slot, stmt.Op, true
	}
	return 0, "", false
}

// HandlerEntryPoints derives, from a method's exception table, the set of
// instruction indices that begin a catch handler and the type of the
// value implicitly sitting on the stack there. The caller wires this into
// eval.Evaluator.SetHandlerEntries before running the evaluator, so the
// handler's leading astore has something to pop (spec §4.8).
func HandlerEntryPoints(tries []disasm.TryRange) map[int]types.Type {
	m := map[int]types.Type{}
	for _, tr := range tries {
		if tr.CatchType == "" {
			m[tr.HandlerIdx] = types.Object
		} else {
			m[tr.HandlerIdx] = types.ClassFromInternalName(tr.CatchType)
		}
	}
	return m
}

// EnumConstant is one reconstructed enum constant declaration.
type EnumConstant struct {
	Name string
	Args []*eval.Operation // constructor args beyond the synthetic name/ordinal pair
}

// DetectEnumConstants scans a class's <clinit> statement list for the
// `static final Self X = new Self("X", n, ...)` pattern (spec §4.8) and
// returns the constants in declaration order plus the set of clinit
// statement indices it consumed, so the caller can drop them from the
// synthesized static initializer.
func DetectEnumConstants(clinitBody []*eval.Operation, selfType types.Type) ([]EnumConstant, map[int]bool) {
	var out []EnumConstant
	consumed := map[int]bool{}
	for _, stmt := range clinitBody {
		if stmt.Kind != eval.KindAssign || stmt.Target == nil || stmt.Target.Kind != eval.KindFieldAccess {
			continue
		}
		if stmt.Target.OwnerType.Pkg != selfType.Pkg || stmt.Target.OwnerType.Simple != selfType.Simple {
			continue
		}
		val := stmt.Value
		if val == nil || val.Kind != eval.KindNewObject || val.ClassType.Simple != selfType.Simple {
			continue
		}
		if len(val.CtorArgs) < 2 {
			continue
		}
		name, ok := val.CtorArgs[0].LiteralValue.(string)
		if !ok {
			continue
		}
		out = append(out, EnumConstant{Name: name, Args: val.CtorArgs[2:]})
		consumed[stmt.Index] = true
	}
	return out, consumed
}

// rng is a half-open instruction-index range used to exclude already-
// attributed sub-ranges when collecting a scope's direct statements.
type rng struct{ Start, End int }

func inRanges(idx int, ranges []rng) bool {
	for _, r := range ranges {
		if idx >= r.Start && idx < r.End {
			return true
		}
	}
	return false
}

// catchKey identifies one multi-catch group: a protected range plus the
// handler entry those rows share.
type catchKey struct{ TryStart, TryEnd, HandlerIdx int }

// buildCtx threads the read-only inputs and the few pieces of mutable
// bookkeeping (label assignment, try-group de-duplication, the enclosing
// breakable-scope stack for break/continue) through the recursive build.
type buildCtx struct {
	stmts        []*eval.Operation
	conditions   map[int]*eval.Operation
	switchValues map[int]*eval.Operation
	tries        []disasm.TryRange
	scope        *scope.Scope
	assertField  string
	instructions []disasm.Instruction
	switchData   map[int]*disasm.SwitchData

	consumed        map[*disasm.Block]bool
	elseKids        map[*disasm.Block][]*disasm.Block
	catchKids       map[catchKey][]*disasm.Block
	handlerEnds     map[int]int
	structuralGotos map[int]bool
	tryGroupDone    map[rng]bool

	loopStack    []*Node
	labelCounter int
}

func newBuildCtx(in Input) *buildCtx {
	consumed, elseKids, catchKids, handlerEnds := computeGroups(in.Root, in.Tries)
	return &buildCtx{
		stmts:           in.Statements,
		conditions:      in.Conditions,
		switchValues:    in.SwitchValues,
		tries:           in.Tries,
		scope:           in.Scope,
		assertField:     in.AssertField,
		instructions:    in.Disasm.Instructions,
		switchData:      switchDataMap(in.Disasm.Instructions),
		consumed:        consumed,
		elseKids:        elseKids,
		catchKids:       catchKids,
		handlerEnds:     handlerEnds,
		structuralGotos: structuralGotoSet(in.Root),
		tryGroupDone:    map[rng]bool{},
	}
}

func switchDataMap(instructions []disasm.Instruction) map[int]*disasm.SwitchData {
	m := map[int]*disasm.SwitchData{}
	for i := range instructions {
		if instructions[i].Switch != nil {
			m[instructions[i].Index] = instructions[i].Switch
		}
	}
	return m
}

// structuralGotoSet marks the gotos that blocks.go already turned into
// structure (a loop's back edge, an if's else-skip) so scanLooseGotos
// doesn't mistake them for break/continue.
func structuralGotoSet(root *disasm.Block) map[int]bool {
	out := map[int]bool{}
	var walk func(b *disasm.Block)
	walk = func(b *disasm.Block) {
		if b.Kind == disasm.BlockLoop {
			out[b.End-1] = true
		}
		if b.Kind == disasm.BlockIf && b.ElseStart != -1 {
			out[b.ElseStart-1] = true
		}
		for _, c := range b.Children {
			walk(c)
		}
	}
	walk(root)
	return out
}

// computeGroups reparents blocks that nestBlocks attached as ordinary
// siblings but that actually belong to an if's else range or a try's
// catch handler (neither range is a child of the owning block in the
// tree nestBlocks builds, since an If's own Start/End cover only its
// then-range and a catch handler's code sits wherever the class file
// happens to place it).
func computeGroups(root *disasm.Block, tries []disasm.TryRange) (consumed map[*disasm.Block]bool, elseKids map[*disasm.Block][]*disasm.Block, catchKids map[catchKey][]*disasm.Block, handlerEnds map[int]int) {
	consumed = map[*disasm.Block]bool{}
	elseKids = map[*disasm.Block][]*disasm.Block{}
	catchKids = map[catchKey][]*disasm.Block{}

	var all []*disasm.Block
	var walk func(b *disasm.Block)
	walk = func(b *disasm.Block) {
		all = append(all, b)
		for _, c := range b.Children {
			walk(c)
		}
	}
	walk(root)

	for _, b := range all {
		if b.Kind != disasm.BlockIf || b.ElseStart == -1 || b.Parent == nil {
			continue
		}
		for _, sib := range b.Parent.Children {
			if sib == b {
				continue
			}
			if sib.Start >= b.ElseStart && sib.End <= b.ElseEnd {
				elseKids[b] = append(elseKids[b], sib)
				consumed[sib] = true
			}
		}
	}

	handlerEnds = computeHandlerEnds(tries, root.End)

	tryNodeByRange := map[rng]*disasm.Block{}
	for _, b := range all {
		if b.Kind == disasm.BlockTry {
			tryNodeByRange[rng{b.Start, b.End}] = b
		}
	}
	seen := map[catchKey]bool{}
	for _, tr := range tries {
		key := catchKey{tr.StartIdx, tr.EndIdx, tr.HandlerIdx}
		if seen[key] {
			continue
		}
		seen[key] = true
		tryBlk, ok := tryNodeByRange[rng{tr.StartIdx, tr.EndIdx}]
		if !ok || tryBlk.Parent == nil {
			continue
		}
		end := handlerEnds[tr.HandlerIdx]
		for _, sib := range tryBlk.Parent.Children {
			if sib == tryBlk || sib.Kind == disasm.BlockTry {
				continue
			}
			if sib.Start >= tr.HandlerIdx && sib.Start < end && sib.End <= end {
				catchKids[key] = append(catchKids[key], sib)
				consumed[sib] = true
			}
		}
	}
	return
}

// computeHandlerEnds approximates each handler's body end as the next
// known boundary (another try-start, another handler start, or the
// method's end) after its HandlerIdx — the exception table itself never
// records where a handler's code stops.
func computeHandlerEnds(tries []disasm.TryRange, methodEnd int) map[int]int {
	boundarySet := map[int]bool{methodEnd: true}
	for _, tr := range tries {
		boundarySet[tr.StartIdx] = true
		boundarySet[tr.HandlerIdx] = true
	}
	var boundaries []int
	for b := range boundarySet {
		boundaries = append(boundaries, b)
	}
	sort.Ints(boundaries)

	ends := map[int]int{}
	for _, tr := range tries {
		if _, ok := ends[tr.HandlerIdx]; ok {
			continue
		}
		end := methodEnd
		for _, b := range boundaries {
			if b > tr.HandlerIdx {
				end = b
				break
			}
		}
		ends[tr.HandlerIdx] = end
	}
	return ends
}

// buildRangeBody is the workhorse: it merges a scope's nested blocks,
// direct statements, and loose break/continue gotos into one
// source-ordered Item list.
func buildRangeBody(start, end int, children []*disasm.Block, ctx *buildCtx) ([]Item, error) {
	var pendingBlocks []*disasm.Block
	excluded := []rng{}
	for _, c := range children {
		if ctx.consumed[c] {
			continue
		}
		if c.Kind == disasm.BlockTry {
			key := rng{c.Start, c.End}
			if ctx.tryGroupDone[key] {
				continue
			}
			ctx.tryGroupDone[key] = true
		}
		pendingBlocks = append(pendingBlocks, c)
		excluded = append(excluded, rng{c.Start, c.End})
		if c.Kind == disasm.BlockIf && c.ElseStart != -1 {
			excluded = append(excluded, rng{c.ElseStart, c.ElseEnd})
		}
	}

	directStmts := stmtsInRange(ctx.stmts, start, end, excluded)
	jumpItems := ctx.scanLooseGotos(start, end, excluded)

	type slot struct {
		pos   int
		block *disasm.Block
		item  *Item
	}
	var merged []slot
	for _, b := range pendingBlocks {
		merged = append(merged, slot{pos: b.Start, block: b})
	}
	for _, s := range directStmts {
		it := Item{Index: s.Index, Stmt: s}
		merged = append(merged, slot{pos: s.Index, item: &it})
	}
	for i := range jumpItems {
		merged = append(merged, slot{pos: jumpItems[i].Index, item: &jumpItems[i]})
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].pos < merged[j].pos })

	var items []Item
	for _, m := range merged {
		if m.block == nil {
			items = append(items, *m.item)
			continue
		}
		it, err := buildBlock(m.block, ctx)
		if err != nil {
			return nil, err
		}
		if it.Node != nil && it.Node.Kind == KindWhile && len(items) > 0 {
			if promoteToFor(it.Node, &items[len(items)-1]) {
				items = items[:len(items)-1]
			}
		}
		items = append(items, it)
	}
	return collapseOrChain(items), nil
}

// collapseOrChain folds javac's || short-circuit compilation (spec
// §4.8: "inner if whose target is the outer if's end but outside it ⇒
// ||"): `if (A || B) THEN` compiles to an empty-bodied if testing !A
// whose range ends exactly where a second if testing !B begins, and
// blocks.go's nestBlocks places that pair as siblings (not nested,
// since the first block's End equals the second's Start) — so the merge
// runs here over a range's sibling items rather than in buildIf.
func collapseOrChain(items []Item) []Item {
	for {
		if len(items) < 2 {
			return items
		}
		out := make([]Item, 0, len(items))
		changed := false
		for i := 0; i < len(items); i++ {
			if i+1 < len(items) {
				if merged, ok := mergeOrPair(items[i], items[i+1]); ok {
					out = append(out, merged)
					i++
					changed = true
					continue
				}
			}
			out = append(out, items[i])
		}
		items = out
		if !changed {
			return items
		}
	}
}

func mergeOrPair(a, b Item) (Item, bool) {
	if a.Node == nil || b.Node == nil {
		return Item{}, false
	}
	first, second := a.Node, b.Node
	if first.Kind != KindIf || second.Kind != KindIf {
		return Item{}, false
	}
	if len(first.Body) != 0 || first.Else != nil {
		return Item{}, false
	}
	if first.Block == nil || second.Block == nil || first.Block.End != second.Block.Start {
		return Item{}, false
	}
	merged := &Node{
		Kind:  KindIf,
		Block: second.Block,
		Cond:  &eval.Operation{Kind: eval.KindBinary, Type: types.Boolean, Op: "||", Left: unnegateDisplayed(first.Cond), Right: second.Cond},
		Body:  second.Body,
		Else:  second.Else,
	}
	return Item{Index: a.Index, Node: merged}, true
}

// unnegateDisplayed undoes displayCond's negation of a raw branch-taken
// condition, recovering its plain sense for use as an || arm. Peeling a
// wrapped "!" directly avoids turning a clean negation into an ugly
// "!!x"; anything else (a comparison, which negate inverts cleanly) is
// just negated again, since negate is self-inverse for those kinds.
func unnegateDisplayed(disp *eval.Operation) *eval.Operation {
	if disp.Kind == eval.KindUnary && disp.Op == "!" {
		return disp.Operand
	}
	return negate(disp)
}

func stmtsInRange(stmts []*eval.Operation, start, end int, excluded []rng) []*eval.Operation {
	var out []*eval.Operation
	for _, s := range stmts {
		if s.Index < start || s.Index >= end {
			continue
		}
		if inRanges(s.Index, excluded) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func buildBlock(b *disasm.Block, ctx *buildCtx) (Item, error) {
	switch b.Kind {
	case disasm.BlockIf:
		return buildIf(b, ctx)
	case disasm.BlockLoop:
		return buildLoop(b, ctx)
	case disasm.BlockTry:
		return buildTry(b, ctx)
	case disasm.BlockSwitch:
		return buildSwitch(b, ctx)
	}
	body, err := buildRangeBody(b.Start, b.End, b.Children, ctx)
	if err != nil {
		return Item{}, err
	}
	return Item{Index: b.Start, Node: &Node{Kind: KindPlain, Block: b, Body: body}}, nil
}

// buildIf builds an If node; blocks.go's If block spans only the then-
// range, so its displayed condition (spec §4.8) must be the negation of
// the recorded branch-taken condition — the then-body runs exactly when
// that branch is NOT taken.
func buildIf(b *disasm.Block, ctx *buildCtx) (Item, error) {
	cond := displayCond(ctx.conditions[b.Start-1])

	thenBody, err := buildRangeBody(b.Start, b.End, b.Children, ctx)
	if err != nil {
		return Item{}, err
	}
	node := &Node{Kind: KindIf, Block: b, Cond: cond, Body: thenBody}
	collapseAndChain(node)

	if b.ElseStart != -1 {
		elseBody, err := buildRangeBody(b.ElseStart, b.ElseEnd, ctx.elseKids[b], ctx)
		if err != nil {
			return Item{}, err
		}
		node.Else = &Node{Kind: KindPlain, Body: elseBody}
	}

	if item, ok := tryRewriteAssert(node, ctx.assertField); ok {
		return item, nil
	}
	if item, ok := tryCollapseTernary(node); ok {
		return item, nil
	}
	return Item{Index: b.Start, Node: node}, nil
}

func displayCond(raw *eval.Operation) *eval.Operation {
	if raw == nil {
		return &eval.Operation{Kind: eval.KindLiteral, Type: types.Boolean, LiteralValue: true}
	}
	return negate(raw)
}

// collapseAndChain folds a run of nested ifs that all share the outer
// if's end and carry no else of their own into one `&&` condition (spec
// §4.8: "inner if whose target equals the outer if's end ⇒ &&").
func collapseAndChain(node *Node) {
	for len(node.Body) == 1 && node.Body[0].Node != nil {
		inner := node.Body[0].Node
		if inner.Kind != KindIf || inner.Else != nil || inner.Block == nil || node.Block == nil {
			break
		}
		if inner.Block.End != node.Block.End {
			break
		}
		node.Cond = &eval.Operation{Kind: eval.KindBinary, Type: types.Boolean, Op: "&&", Left: node.Cond, Right: inner.Cond}
		node.Body = inner.Body
	}
}

// tryRewriteAssert recognizes `if (!$assertionsDisabled && !P) throw new
// AssertionError(msg);` and rewrites it to `assert P [: msg];` (spec
// §4.8), gated on the class actually carrying $assertionsDisabled.
func tryRewriteAssert(node *Node, assertField string) (Item, bool) {
	if assertField == "" || node.Else != nil {
		return Item{}, false
	}
	if len(node.Body) != 1 || node.Body[0].Stmt == nil {
		return Item{}, false
	}
	stmt := node.Body[0].Stmt
	if stmt.Kind != eval.KindAThrow || stmt.ReturnValue == nil {
		return Item{}, false
	}
	newObj := stmt.ReturnValue
	if newObj.Kind != eval.KindNewObject || newObj.ClassType.Simple != "AssertionError" {
		return Item{}, false
	}
	cond, ok := splitAssertCond(node.Cond, assertField)
	if !ok {
		return Item{}, false
	}
	var msg *eval.Operation
	if len(newObj.CtorArgs) > 0 {
		msg = newObj.CtorArgs[0]
	}
	return Item{Index: node.Block.Start, Assert: &AssertStmt{Cond: cond, Msg: msg}}, true
}

func splitAssertCond(cond *eval.Operation, assertField string) (*eval.Operation, bool) {
	if cond.Kind != eval.KindBinary || cond.Op != "&&" || cond.Left == nil || cond.Right == nil {
		return nil, false
	}
	left := cond.Left
	if left.Kind != eval.KindCompareZero || left.Operand == nil {
		return nil, false
	}
	if left.Operand.Kind != eval.KindFieldAccess || left.Operand.FieldName != assertField {
		return nil, false
	}
	return negate(cond.Right), true
}

// tryCollapseTernary recognizes an if/else whose branches are each a
// single return of (or assignment to the same target as) a value, and
// collapses it to one statement with a KindTernary expression (spec
// §4.8's ternary collapse).
func tryCollapseTernary(node *Node) (Item, bool) {
	if node.Else == nil {
		return Item{}, false
	}
	if len(node.Body) != 1 || node.Body[0].Stmt == nil {
		return Item{}, false
	}
	if len(node.Else.Body) != 1 || node.Else.Body[0].Stmt == nil {
		return Item{}, false
	}
	a, b := node.Body[0].Stmt, node.Else.Body[0].Stmt

	if a.Kind == eval.KindReturn && b.Kind == eval.KindReturn && a.ReturnValue != nil && b.ReturnValue != nil {
		stmt := &eval.Operation{
			Kind: eval.KindReturn, Type: types.Void, Index: node.Block.Start,
			ReturnValue: &eval.Operation{
				Kind: eval.KindTernary, Type: widestOrAny(a.ReturnValue.Type, b.ReturnValue.Type),
				Cond: node.Cond, WhenTrue: a.ReturnValue, WhenFalse: b.ReturnValue,
			},
		}
		return Item{Index: node.Block.Start, Stmt: stmt}, true
	}

	if a.Kind == eval.KindAssign && b.Kind == eval.KindAssign && a.Value != nil && b.Value != nil && sameTarget(a.Target, b.Target) {
		stmt := &eval.Operation{
			Kind: eval.KindAssign, Type: types.Void, Index: node.Block.Start, Target: a.Target,
			Value: &eval.Operation{
				Kind: eval.KindTernary, Type: widestOrAny(a.Value.Type, b.Value.Type),
				Cond: node.Cond, WhenTrue: a.Value, WhenFalse: b.Value,
			},
		}
		return Item{Index: node.Block.Start, Stmt: stmt}, true
	}
	return Item{}, false
}

func sameTarget(a, b *eval.Operation) bool {
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case eval.KindLocalRef:
		return a.Slot == b.Slot
	case eval.KindFieldAccess:
		return a.FieldName == b.FieldName && a.OwnerType.Pkg == b.OwnerType.Pkg && a.OwnerType.Simple == b.OwnerType.Simple && (a.Owner == nil) == (b.Owner == nil)
	}
	return false
}

func widestOrAny(a, b types.Type) types.Type {
	t, err := a.CastToWidest(b)
	if err != nil {
		return types.Any
	}
	return t
}

// buildLoop recognizes the "infinite loop whose entire body is one if"
// shape (spec §4.8) as a while loop, with §4.8's for-loop promotion
// applied afterward by the caller via promoteToFor; anything else stays
// an unconditional `while (true)`.
func buildLoop(b *disasm.Block, ctx *buildCtx) (Item, error) {
	if len(b.Children) == 1 {
		ifBlk := b.Children[0]
		if ifBlk.Kind == disasm.BlockIf && ifBlk.End == b.End && ifBlk.ElseStart == -1 {
			if len(stmtsInRange(ctx.stmts, b.Start, ifBlk.Start, nil)) == 0 {
				node := &Node{Kind: KindWhile, Block: b, Cond: displayCond(ctx.conditions[ifBlk.Start-1])}
				ctx.loopStack = append(ctx.loopStack, node)
				body, err := buildRangeBody(ifBlk.Start, ifBlk.End, ifBlk.Children, ctx)
				ctx.loopStack = ctx.loopStack[:len(ctx.loopStack)-1]
				if err != nil {
					return Item{}, err
				}
				node.Body = body
				return Item{Index: b.Start, Node: node}, nil
			}
		}
	}

	node := &Node{Kind: KindWhile, Block: b, Cond: &eval.Operation{Kind: eval.KindLiteral, Type: types.Boolean, LiteralValue: true}}
	ctx.loopStack = append(ctx.loopStack, node)
	body, err := buildRangeBody(b.Start, b.End, b.Children, ctx)
	ctx.loopStack = ctx.loopStack[:len(ctx.loopStack)-1]
	if err != nil {
		return Item{}, err
	}
	node.Body = body
	return Item{Index: b.Start, Node: node}, nil
}

// promoteToFor implements spec §4.8's for-loop recovery: a while loop
// whose body ends in an increment of some local, immediately preceded in
// the enclosing scope by a store into that same local, becomes
// for(init; cond; update) with the counter variable marked.
func promoteToFor(node *Node, prior *Item) bool {
	if prior == nil || prior.Node != nil || prior.Stmt == nil {
		return false
	}
	if len(node.Body) == 0 {
		return false
	}
	last := node.Body[len(node.Body)-1]
	if last.Node != nil || last.Stmt == nil {
		return false
	}
	incSlot, ok := incrementSlot(last.Stmt)
	if !ok {
		return false
	}
	initSlot, ok := assignSlot(prior.Stmt)
	if !ok || initSlot != incSlot {
		return false
	}
	node.Kind = KindFor
	node.Init = prior.Stmt
	node.Update = last.Stmt
	node.Body = node.Body[:len(node.Body)-1]
	return true
}

func incrementSlot(stmt *eval.Operation) (int, bool) {
	if stmt.Kind == eval.KindUnary && (stmt.Op == "++" || stmt.Op == "--") && stmt.Operand != nil && stmt.Operand.Kind == eval.KindLocalRef {
		return stmt.Operand.Slot, true
	}
	if stmt.Kind == eval.KindAssign && stmt.Target != nil && stmt.Target.Kind == eval.KindLocalRef &&
		stmt.Value != nil && stmt.Value.Kind == eval.KindBinary && stmt.Value.Op == "+=" {
		return stmt.Target.Slot, true
	}
	return 0, false
}

func assignSlot(stmt *eval.Operation) (int, bool) {
	if stmt.Kind == eval.KindAssign && stmt.Target != nil && stmt.Target.Kind == eval.KindLocalRef {
		return stmt.Target.Slot, true
	}
	return 0, false
}

// buildSwitch builds a SwitchScope: the value expression, the
// default-index, and the case-label→index map (spec §4.8); the body
// itself is built like any other scope, with case boundaries inserted by
// the renderer matching Cases against each Item's Index.
func buildSwitch(b *disasm.Block, ctx *buildCtx) (Item, error) {
	switchIdx := b.Start - 1
	node := &Node{Kind: KindSwitch, Block: b, Value: ctx.switchValues[switchIdx]}

	if sd := ctx.switchData[switchIdx]; sd != nil {
		if sd.Keys == nil {
			for i, t := range sd.Targets {
				node.Cases = append(node.Cases, CaseLabel{Key: sd.Low + int32(i), AtIndex: t})
			}
		} else {
			for i, k := range sd.Keys {
				node.Cases = append(node.Cases, CaseLabel{Key: k, AtIndex: sd.Targets[i]})
			}
		}
		node.Cases = append(node.Cases, CaseLabel{IsDefault: true, AtIndex: sd.DefaultTarget})
	}

	ctx.loopStack = append(ctx.loopStack, node)
	body, err := buildRangeBody(b.Start, b.End, b.Children, ctx)
	ctx.loopStack = ctx.loopStack[:len(ctx.loopStack)-1]
	if err != nil {
		return Item{}, err
	}
	node.Body = body
	return Item{Index: b.Start, Node: node}, nil
}

// buildTry groups every exception-table row sharing this protected range
// by handler entry (spec §4.8's multi-catch grouping) and rebinds each
// handler's leading astore to its catch variable.
func buildTry(b *disasm.Block, ctx *buildCtx) (Item, error) {
	body, err := buildRangeBody(b.Start, b.End, b.Children, ctx)
	if err != nil {
		return Item{}, err
	}
	node := &Node{Kind: KindTry, Block: b, Body: body}

	var rows []disasm.TryRange
	for _, tr := range ctx.tries {
		if tr.StartIdx == b.Start && tr.EndIdx == b.End {
			rows = append(rows, tr)
		}
	}
	groups := map[int][]disasm.TryRange{}
	var order []int
	for _, tr := range rows {
		if _, ok := groups[tr.HandlerIdx]; !ok {
			order = append(order, tr.HandlerIdx)
		}
		groups[tr.HandlerIdx] = append(groups[tr.HandlerIdx], tr)
	}
	sort.Ints(order)

	for _, h := range order {
		rowsForHandler := groups[h]
		end := ctx.handlerEnds[h]
		key := catchKey{b.Start, b.End, h}
		catchBody, err := buildRangeBody(h, end, ctx.catchKids[key], ctx)
		if err != nil {
			return Item{}, err
		}

		var catchTypes []types.Type
		for _, tr := range rowsForHandler {
			if tr.CatchType != "" {
				catchTypes = append(catchTypes, types.ClassFromInternalName(tr.CatchType))
			}
		}

		var catchVar *scope.Variable
		if len(catchBody) > 0 && catchBody[0].Stmt != nil {
			first := catchBody[0].Stmt
			if first.Kind == eval.KindAssign && first.Target != nil && first.Target.Kind == eval.KindLocalRef &&
				first.Value != nil && first.Value.Kind == eval.KindCaughtException {
				catchVar = ctx.scope.GetVariable(first.Target.Slot, false)
				if catchVar.Name == "" {
					catchVar.Name = "ex"
				}
				catchBody = catchBody[1:]
			}
		}
		node.Catches = append(node.Catches, CatchScope{CatchTypes: catchTypes, Var: catchVar, Body: catchBody})
	}
	return Item{Index: b.Start, Node: node}, nil
}

// scanLooseGotos finds gotos blocks.go left unconsumed — the break/
// continue sites (spec §4.8) — within [start,end), excluding whatever a
// nested block already claimed.
func (ctx *buildCtx) scanLooseGotos(start, end int, excluded []rng) []Item {
	var items []Item
	for idx := start; idx < end && idx < len(ctx.instructions); idx++ {
		ins := &ctx.instructions[idx]
		if ins.Op != disasm.Goto && ins.Op != disasm.GotoW {
			continue
		}
		if ctx.structuralGotos[idx] || inRanges(idx, excluded) {
			continue
		}
		if jump := ctx.resolveJump(idx, ins.BranchTarget); jump != nil {
			items = append(items, Item{Index: idx, Jump: jump})
		}
	}
	return items
}

func (ctx *buildCtx) resolveJump(idx, target int) *Jump {
	if target > idx {
		for i := len(ctx.loopStack) - 1; i >= 0; i-- {
			n := ctx.loopStack[i]
			if n.Block != nil && n.Block.End == target {
				label := ""
				if i != len(ctx.loopStack)-1 {
					label = ctx.labelOf(n)
				}
				return &Jump{Kind: JumpBreak, Label: label}
			}
		}
		return nil
	}
	for i := len(ctx.loopStack) - 1; i >= 0; i-- {
		n := ctx.loopStack[i]
		if n.Kind == KindSwitch {
			continue // switch scopes are breakable but not continuable
		}
		if n.Block != nil && n.Block.Start == target {
			label := ""
			if i != len(ctx.loopStack)-1 {
				label = ctx.labelOf(n)
			}
			return &Jump{Kind: JumpContinue, Label: label}
		}
	}
	return nil
}

// labelOf lazily names a scope the first time some break/continue needs
// to cross an enclosing one to reach it (spec §4.8's open question on
// nested labeled breaks: L, L2, … in discovery order).
func (ctx *buildCtx) labelOf(n *Node) string {
	if n.Label == "" {
		ctx.labelCounter++
		if ctx.labelCounter == 1 {
			n.Label = "L"
		} else {
			n.Label = fmt.Sprintf("L%d", ctx.labelCounter)
		}
	}
	return n.Label
}

// negate returns the logical negation of cond. displayCond uses it to turn
// the branch-taken condition blocks.go recorded into the condition under
// which an If's then-block executes; applied twice it restores cond.
func negate(cond *eval.Operation) *eval.Operation {
	switch cond.Kind {
	case eval.KindCompareBinary:
		return &eval.Operation{Kind: eval.KindCompareBinary, Type: cond.Type, Op: invertOp(cond.Op), Left: cond.Left, Right: cond.Right, Index: cond.Index}
	case eval.KindCompareZero:
		return &eval.Operation{Kind: eval.KindCompareZero, Type: cond.Type, Op: invertOp(cond.Op), Operand: cond.Operand, Index: cond.Index}
	}
	return &eval.Operation{Kind: eval.KindUnary, Type: cond.Type, Op: "!", Operand: cond, Index: cond.Index}
}

func invertOp(op string) string {
	switch op {
	case "==":
		return "!="
	case "!=":
		return "=="
	case "<":
		return ">="
	case ">=":
		return "<"
	case ">":
		return "<="
	case "<=":
		return ">"
	}
	return op
}
