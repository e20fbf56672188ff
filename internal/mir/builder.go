package mir

import (
	"github.com/faxlang/faxc/internal/diag"
	"github.com/faxlang/faxc/internal/symbol"
	"github.com/faxlang/faxc/internal/types"
)

// Builder constructs one MIR Function at a time (§4.C1). It owns the
// function under construction and the cursor identifying where new
// statements/terminators are inserted.
type Builder struct {
	function      Function
	currentBlock  BlockId
	blockCounter  uint32
}

// NewBuilder starts building a function named name returning returnTy.
// Local 0 is reserved for the return place, per §3.1.
func NewBuilder(name symbol.Symbol, returnTy types.Type) *Builder {
	b := &Builder{
		function: Function{
			Name:     name,
			ReturnTy: returnTy,
		},
	}
	b.function.Locals = append(b.function.Locals, Local{
		Ty:   returnTy,
		Name: symbol.Intern("return"),
	})
	return b
}

// AddLocal reserves a new local slot of type ty, optionally named, and
// returns its LocalId.
func (b *Builder) AddLocal(ty types.Type, name symbol.Symbol, span diag.Span) LocalId {
	id := LocalId(len(b.function.Locals))
	b.function.Locals = append(b.function.Locals, Local{Ty: ty, Name: name, Span: span})
	return id
}

// AddArg reserves a local for the k-th function argument and records it in
// ArgLocals/ArgCount (§3.1's "arg_locals").
func (b *Builder) AddArg(ty types.Type, name symbol.Symbol, span diag.Span) LocalId {
	id := b.AddLocal(ty, name, span)
	b.function.ArgLocals = append(b.function.ArgLocals, id)
	b.function.ArgCount++
	return id
}

// NewBlock allocates a fresh, initially-Unreachable-terminated block and
// returns its id. Blocks are appended to the dense Blocks slice, so ids are
// assigned in allocation order (§9: "arena + index").
func (b *Builder) NewBlock() BlockId {
	id := BlockId(b.blockCounter)
	b.blockCounter++
	b.function.Blocks = append(b.function.Blocks, BasicBlock{
		ID:         id,
		Terminator: Terminator{Kind: TermUnreachable},
	})
	return id
}

// SetCurrentBlock moves the insertion cursor to block.
func (b *Builder) SetCurrentBlock(block BlockId) {
	b.currentBlock = block
}

// CurrentBlock returns the block statements/terminators are currently
// inserted into.
func (b *Builder) CurrentBlock() BlockId {
	return b.currentBlock
}

// Statement appends stmt to the current block.
func (b *Builder) Statement(stmt Statement) {
	blk := &b.function.Blocks[b.currentBlock]
	blk.Statements = append(blk.Statements, stmt)
}

// Assign appends an Assign(place, rvalue) statement to the current block.
func (b *Builder) Assign(place Place, rvalue Rvalue) {
	b.Statement(Statement{Kind: StmtAssign, Place: place, Rval: rvalue})
}

// StorageLive appends a StorageLive(local) statement.
func (b *Builder) StorageLive(local LocalId) {
	b.Statement(Statement{Kind: StmtStorageLive, Local: local})
}

// StorageDead appends a StorageDead(local) statement.
func (b *Builder) StorageDead(local LocalId) {
	b.Statement(Statement{Kind: StmtStorageDead, Local: local})
}

// Terminator sets the current block's terminator.
func (b *Builder) Terminator(term Terminator) {
	b.function.Blocks[b.currentBlock].Terminator = term
}

// Build finishes construction, ensuring an entry block exists, and returns
// the completed Function. The Builder must not be reused afterward.
func (b *Builder) Build() *Function {
	if len(b.function.Blocks) == 0 {
		entry := b.NewBlock()
		b.function.EntryBlock = entry
	}
	return &b.function
}
