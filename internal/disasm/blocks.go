package disasm

import (
	"sort"

	javaerrors "github.com/javadec/javadec/internal/errors"
)

// BlockKind discriminates the Block tree nodes pass 2 produces.
type BlockKind int

const (
	BlockRoot BlockKind = iota
	BlockIf
	BlockLoop
	BlockTry
	BlockSwitch
)

// Block is a node of the block tree pass 2 discovers (spec §4.5): a
// half-open instruction-index range, nested under whichever enclosing
// block contains it.
type Block struct {
	Kind   BlockKind
	Start  int // inclusive
	End    int // exclusive
	Parent *Block
	Children []*Block

	// BlockIf only: the forward goto at the body's tail marks an else
	// range; ElseStart == -1 when there is no else.
	ElseStart, ElseEnd int
}

// TryRange is one row of a method's exception table, in instruction-index
// space (the caller resolves pos→index before building these).
type TryRange struct {
	StartIdx, EndIdx, HandlerIdx int
	CatchType                   string // "" means finally/any
}

// DiscoverBlocks runs pass 2 (spec §4.5): walks d's instructions,
// creating If/Loop/Try/Switch blocks and nesting them under a Root block
// spanning [0, d.Len()).
func DiscoverBlocks(d *Disassembly, tries []TryRange) (*Block, error) {
	root := &Block{Kind: BlockRoot, Start: 0, End: d.Len(), ElseStart: -1, ElseEnd: -1}

	var blocks []*Block
	ifByEnd := map[int]*Block{} // keyed by the if block's End index, for the goto-else rule

	for i := range d.Instructions {
		ins := &d.Instructions[i]
		if ins.IsConditional() && ins.BranchTarget > i {
			b := &Block{Kind: BlockIf, Start: i + 1, End: ins.BranchTarget, ElseStart: -1, ElseEnd: -1}
			blocks = append(blocks, b)
			// Keyed by End-1: when the if's true-branch ends in a goto
			// (the usual javac pattern skipping the else), that goto is
			// the last instruction inside [Start, End).
			if b.End-1 >= b.Start {
				ifByEnd[b.End-1] = b
			}
		}
	}

	for _, tr := range tries {
		blocks = append(blocks, &Block{Kind: BlockTry, Start: tr.StartIdx, End: tr.EndIdx, ElseStart: -1, ElseEnd: -1})
	}

	for i := range d.Instructions {
		ins := &d.Instructions[i]
		if ins.Switch == nil {
			continue
		}
		end := ins.Switch.DefaultTarget
		for _, t := range ins.Switch.Targets {
			if t > end {
				end = t
			}
		}
		if end > i+1 {
			blocks = append(blocks, &Block{Kind: BlockSwitch, Start: i + 1, End: end, ElseStart: -1, ElseEnd: -1})
		}
	}

	tryEndSet := map[int]bool{}
	for _, tr := range tries {
		tryEndSet[tr.EndIdx] = true
	}

	for i := range d.Instructions {
		ins := &d.Instructions[i]
		if ins.Op != Goto && ins.Op != GotoW {
			continue
		}
		target := ins.BranchTarget
		ifBlk, hasIf := ifByEnd[i]

		switch {
		case target == i:
			// Case 1: offset == 0, an empty infinite loop at this index.
			blocks = append(blocks, &Block{Kind: BlockLoop, Start: i, End: i + 1, ElseStart: -1, ElseEnd: -1})

		case hasIf && target > i:
			// Case 2: this goto is the last instruction of an if body
			// and the target lands forward of it: attach an else range.
			ifBlk.ElseStart = i + 1
			ifBlk.ElseEnd = target

		case tryEndSet[i]:
			// Case 3: the goto escapes a try block at its end; the
			// handler is already known from the exception table, so no
			// block is created here.

		case target < i:
			// Case 4: backward goto, an infinite-loop block spanning the
			// back-edge.
			blocks = append(blocks, &Block{Kind: BlockLoop, Start: target, End: i + 1, ElseStart: -1, ElseEnd: -1})
		}
	}

	if err := nestBlocks(root, blocks); err != nil {
		return nil, err
	}
	return root, nil
}

func nestBlocks(root *Block, blocks []*Block) error {
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Start != blocks[j].Start {
			return blocks[i].Start < blocks[j].Start
		}
		return blocks[i].End > blocks[j].End
	})

	stack := []*Block{root}
	for _, b := range blocks {
		for len(stack) > 1 && stack[len(stack)-1].End <= b.Start {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		if b.End > parent.End {
			return javaerrors.New(javaerrors.KindBlockOutOfBounds,
				"block [%d,%d) exceeds parent [%d,%d)", b.Start, b.End, parent.Start, parent.End)
		}
		b.Parent = parent
		parent.Children = append(parent.Children, b)
		stack = append(stack, b)
	}
	return nil
}
