package mir

import "fmt"

// Verify checks the universal MIR invariants of §8: every terminator target
// is a valid BlockId, and every Place::Local(i) referenced from an Operand
// has i < len(Locals). It is intended for use in tests and as a
// debug-build assertion after each optimizer pass.
func Verify(f *Function) error {
	numBlocks := BlockId(len(f.Blocks))
	numLocals := LocalId(len(f.Locals))

	checkBlock := func(id BlockId) error {
		if id >= numBlocks {
			return fmt.Errorf("mir: terminator references out-of-range block %d (have %d blocks)", id, numBlocks)
		}
		return nil
	}
	checkLocal := func(id LocalId) error {
		if id >= numLocals {
			return fmt.Errorf("mir: operand references out-of-range local %d (have %d locals)", id, numLocals)
		}
		return nil
	}
	checkOperand := func(op Operand) error {
		if place, ok := op.AsPlace(); ok {
			if err := checkLocal(place.Local); err != nil {
				return err
			}
		}
		return nil
	}

	for _, blk := range f.Blocks {
		for _, stmt := range blk.Statements {
			switch stmt.Kind {
			case StmtAssign:
				if err := checkLocal(stmt.Place.Local); err != nil {
					return err
				}
				if err := verifyRvalueOperands(stmt.Rval, checkLocal, checkOperand); err != nil {
					return err
				}
			case StmtStorageLive, StmtStorageDead:
				if err := checkLocal(stmt.Local); err != nil {
					return err
				}
			}
		}
		for _, succ := range blk.Terminator.Successors() {
			if err := checkBlock(succ); err != nil {
				return err
			}
		}
	}
	return nil
}

func verifyRvalueOperands(r Rvalue, checkLocal func(LocalId) error, checkOperand func(Operand) error) error {
	switch r.Kind {
	case RvalUse:
		return checkOperand(r.Operand)
	case RvalRef, RvalAddressOf, RvalDiscriminant:
		return checkLocal(r.Place.Local)
	case RvalUnaryOp:
		return checkOperand(r.Operand)
	case RvalBinaryOp, RvalCheckedBinaryOp:
		if err := checkOperand(r.LHS); err != nil {
			return err
		}
		return checkOperand(r.RHS)
	case RvalCast:
		return checkOperand(r.Operand)
	case RvalAggregate:
		for _, elt := range r.AggregateElts {
			if err := checkOperand(elt); err != nil {
				return err
			}
		}
	}
	return nil
}
