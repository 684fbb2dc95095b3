package jack

import "fmt"

// TypeChecker validates that a 'jack.Program' resolves cleanly: every symbol
// referenced by a statement or expression can be found by the symbol table,
// and every subroutine call can be dispatched to a known subroutine.
//
// Deep type checking (e.g. verifying that an 'int' is never assigned to a
// 'boolean' field) is out of scope: the grammar already rejects anything the
// parser cannot build a well-formed AST node for, and the Lowerer performs
// the same symbol resolution the type checker would duplicate. So rather
// than re-walk the program with a second traversal, Check() drives a full
// dry-run of the Lowerer and surfaces whatever SymbolError/SyntaxError it
// would have hit during actual codegen.
type TypeChecker struct {
	program Program
}

// Initializes and returns to the caller a brand new 'TypeChecker' struct.
func NewTypeChecker(program Program) TypeChecker {
	return TypeChecker{program: program}
}

// Check walks the whole program through the Lowerer, discarding its VM output
// and reporting only whether every symbol and call site resolved. Returns
// true and a nil error when the program is well-formed.
func (tc *TypeChecker) Check() (bool, error) {
	if len(tc.program) == 0 {
		return false, fmt.Errorf("the given 'program' is empty or nil")
	}

	lowerer := NewLowerer(tc.program)
	if _, err := lowerer.Lower(); err != nil {
		return false, fmt.Errorf("error type checking program: %w", err)
	}

	return true, nil
}
