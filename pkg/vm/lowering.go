package vm

import (
	"fmt"
	"sort"

	"n2tc.dev/toolchain/pkg/asm"
)

// ----------------------------------------------------------------------------
// Vm Lowerer
//
// The Lowerer takes a 'vm.Program' (one Module per translation unit) and produces
// a single 'asm.Program' with every module's operations lowered and concatenated,
// in alphabetical order of module name so the output is reproducible regardless
// of the random iteration order Go gives to the underlying map.
//
// Two counters are threaded through the whole lowering pass (not reset per module)
// so that generated labels are unique across the entire program: 'compareCounter'
// numbers the branch targets used by eq/gt/lt, 'callCounter' numbers the return
// address labels used by function calls. User-authored labels (the 'label'/'goto'
// /'if-goto' VM commands) are instead scoped to their enclosing function by name,
// so the same label text can be reused in two different functions without colliding.
type Lowerer struct {
	program        Program
	compareCounter uint
	callCounter    uint
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Lower traverses every module in the program (sorted by name for determinism)
// and concatenates their lowered instructions into a single 'asm.Program'.
func (l *Lowerer) Lower() (asm.Program, error) {
	if l.program == nil || len(l.program) == 0 {
		return nil, SyntaxError{Detail: "the given 'program' is empty"}
	}

	names := make([]string, 0, len(l.program))
	for name := range l.program {
		names = append(names, name)
	}
	sort.Strings(names)

	program := asm.Program{}
	for _, name := range names {
		instructions, err := l.lowerModule(name, l.program[name])
		if err != nil {
			return nil, err
		}
		program = append(program, instructions...)
	}

	return program, nil
}

// Bootstrap produces the standard entrypoint sequence expected to run before any
// user code: it initializes the Stack Pointer to 256 (the stack base, past the
// registers at 0-15 and the static variables at 16-255) and calls 'Sys.init'
// using the very same calling convention as any other VM function call.
func (l *Lowerer) Bootstrap() []asm.Instruction {
	preamble := []asm.Instruction{
		asm.AInstruction{Location: "256"},
		asm.CInstruction{Comp: "A", Dest: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "D", Dest: "M"},
	}
	return append(preamble, l.emitCall("Sys.init", 0)...)
}

// lowerModule lowers every operation in 'module'; 'moduleName' identifies the
// translation unit (the '.vm' file's stem) and is used both as the initial
// label scope (for VM code appearing before any function declaration) and as
// the static segment's naming prefix.
func (l *Lowerer) lowerModule(moduleName string, module Module) ([]asm.Instruction, error) {
	out := []asm.Instruction{}
	scope := moduleName

	for _, operation := range module {
		switch op := operation.(type) {
		case MemoryOp:
			instructions, err := l.lowerMemoryOp(moduleName, op)
			if err != nil {
				return nil, err
			}
			out = append(out, instructions...)

		case ArithmeticOp:
			instructions, err := l.lowerArithmeticOp(op)
			if err != nil {
				return nil, err
			}
			out = append(out, instructions...)

		case LabelDecl:
			out = append(out, asm.LabelDecl{Name: scopedLabel(scope, op.Name)})

		case GotoOp:
			out = append(out, l.lowerGotoOp(scope, op)...)

		case FuncDecl:
			scope = op.Name
			out = append(out, l.lowerFuncDecl(op)...)

		case FuncCallOp:
			out = append(out, l.emitCall(op.Name, op.NArgs)...)

		case ReturnOp:
			out = append(out, l.lowerReturnOp()...)

		default:
			return nil, SyntaxError{Detail: fmt.Sprintf("unrecognized operation '%T'", operation)}
		}
	}

	return out, nil
}

// scopedLabel prefixes a user-authored label with the name of the function it
// was declared in, so 'label LOOP' in two different functions never collides.
func scopedLabel(scope, name string) string {
	return fmt.Sprintf("%s$%s", scope, name)
}

// ----------------------------------------------------------------------------
// Memory segment access

// lowerMemoryOp lowers a single push/pop VM command for any of the 8 memory
// segments. 'moduleName' is only consulted for the 'static' segment, whose
// backing variable is named after the CURRENT VM FILE's stem (not the
// directory or overall program name).
func (l *Lowerer) lowerMemoryOp(moduleName string, op MemoryOp) ([]asm.Instruction, error) {
	switch op.Segment {
	case Constant:
		if op.Operation == Pop {
			return nil, SyntaxError{Detail: "cannot pop into the 'constant' segment"}
		}
		return pushConstant(op.Offset), nil

	case Local, Argument, This, That:
		base := segmentBase[op.Segment]
		if op.Operation == Push {
			return pushIndirect(base, op.Offset), nil
		}
		return popIndirect(base, op.Offset), nil

	case Temp:
		if op.Offset > 7 {
			return nil, SymbolError{Detail: fmt.Sprintf("temp segment offset %d out of range (0-7)", op.Offset)}
		}
		address := fmt.Sprint(5 + op.Offset)
		if op.Operation == Push {
			return pushDirect(address), nil
		}
		return popDirect(address), nil

	case Pointer:
		if op.Offset > 1 {
			return nil, SymbolError{Detail: fmt.Sprintf("pointer segment offset %d out of range (0-1)", op.Offset)}
		}
		register := "THIS"
		if op.Offset == 1 {
			register = "THAT"
		}
		if op.Operation == Push {
			return pushDirect(register), nil
		}
		return popDirect(register), nil

	case Static:
		address := fmt.Sprintf("%s.%d", moduleName, op.Offset)
		if op.Operation == Push {
			return pushDirect(address), nil
		}
		return popDirect(address), nil

	default:
		return nil, SyntaxError{Detail: fmt.Sprintf("unrecognized segment '%s'", op.Segment)}
	}
}

// segmentBase maps the 4 pointer-backed segments to the register holding their
// base address; access to 'local 3' means '*(LCL + 3)' and so on.
var segmentBase = map[SegmentType]string{
	Local:    "LCL",
	Argument: "ARG",
	This:     "THIS",
	That:     "THAT",
}

// pushConstant pushes a numeric literal onto the stack.
func pushConstant(offset uint16) []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: fmt.Sprint(offset)},
		asm.CInstruction{Comp: "A", Dest: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M+1", Dest: "M"},
	}
}

// pushIndirect pushes '*(base + offset)' where 'base' names a segment register.
func pushIndirect(base string, offset uint16) []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: base},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: fmt.Sprint(offset)},
		asm.CInstruction{Comp: "D+A", Dest: "D"},
		asm.CInstruction{Comp: "D", Dest: "A"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M+1", Dest: "M"},
	}
}

// popIndirect pops the stack's top into '*(base + offset)'. R13 is used as
// scratch space to hold the resolved address while the value is popped.
func popIndirect(base string, offset uint16) []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: base},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: fmt.Sprint(offset)},
		asm.CInstruction{Comp: "D+A", Dest: "D"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "D", Dest: "M"},
	}
}

// pushDirect pushes the value stored at a fixed, already-resolved address
// (a raw offset, a register name or a static variable's symbol).
func pushDirect(address string) []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: address},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M+1", Dest: "M"},
	}
}

// popDirect pops the stack's top directly into a fixed, already-resolved address.
func popDirect(address string) []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: address},
		asm.CInstruction{Comp: "D", Dest: "M"},
	}
}

// ----------------------------------------------------------------------------
// Arithmetic & comparison ops

// lowerArithmeticOp lowers one of the 9 arithmetic/logical VM commands.
func (l *Lowerer) lowerArithmeticOp(op ArithmeticOp) ([]asm.Instruction, error) {
	switch op.Operation {
	case Add:
		return binaryOp("D+M"), nil
	case Sub:
		return binaryOp("M-D"), nil
	case And:
		return binaryOp("D&M"), nil
	case Or:
		return binaryOp("D|M"), nil
	case Neg:
		return unaryOp("-M"), nil
	case Not:
		return unaryOp("!M"), nil
	case Eq:
		return l.comparisonOp("JEQ"), nil
	case Gt:
		return l.comparisonOp("JGT"), nil
	case Lt:
		return l.comparisonOp("JLT"), nil
	default:
		return nil, SyntaxError{Detail: fmt.Sprintf("unrecognized arithmetic operation '%s'", op.Operation)}
	}
}

// binaryOp pops the two topmost values (y then x), computes 'comp' (which must
// reference 'M' as x and 'D' as y) and pushes the single result back.
func binaryOp(comp string) []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.CInstruction{Comp: "A-1", Dest: "A"},
		asm.CInstruction{Comp: comp, Dest: "M"},
	}
}

// unaryOp mutates the stack's top in place without touching the Stack Pointer.
func unaryOp(comp string) []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-1", Dest: "A"},
		asm.CInstruction{Comp: comp, Dest: "M"},
	}
}

// comparisonOp pops x and y, subtracts them and jumps on 'jump' to decide
// between pushing -1 (true) or 0 (false). The branch targets are plain,
// well-formed identifiers made unique by a monotonically increasing counter,
// never the malformed '(@EQ-n)' form the label text might otherwise suggest.
func (l *Lowerer) comparisonOp(jump string) []asm.Instruction {
	n := l.compareCounter
	l.compareCounter++

	trueLabel := fmt.Sprintf("COMPARE_TRUE_%d", n)
	endLabel := fmt.Sprintf("COMPARE_END_%d", n)

	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.CInstruction{Comp: "A-1", Dest: "A"},
		asm.CInstruction{Comp: "M-D", Dest: "D"},
		asm.AInstruction{Location: trueLabel},
		asm.CInstruction{Comp: "D", Jump: jump},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-1", Dest: "A"},
		asm.CInstruction{Comp: "0", Dest: "M"},
		asm.AInstruction{Location: endLabel},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: trueLabel},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-1", Dest: "A"},
		asm.CInstruction{Comp: "-1", Dest: "M"},
		asm.LabelDecl{Name: endLabel},
	}
}

// ----------------------------------------------------------------------------
// Program flow

// lowerGotoOp lowers both the unconditional 'goto' and the stack-driven
// 'if-goto', resolving the target against the current function's label scope.
func (l *Lowerer) lowerGotoOp(scope string, op GotoOp) []asm.Instruction {
	target := scopedLabel(scope, op.Label)

	if op.Jump == Unconditional {
		return []asm.Instruction{
			asm.AInstruction{Location: target},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
		}
	}

	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: target},
		asm.CInstruction{Comp: "D", Jump: "JNE"},
	}
}

// ----------------------------------------------------------------------------
// Function ABI

// lowerFuncDecl emits the function's entry label followed by as many
// 'push constant 0' as the function declares local variables.
func (l *Lowerer) lowerFuncDecl(op FuncDecl) []asm.Instruction {
	out := []asm.Instruction{asm.LabelDecl{Name: op.Name}}
	for i := uint8(0); i < op.NLocal; i++ {
		out = append(out, pushConstant(0)...)
	}
	return out
}

// emitCall implements the calling convention shared by both 'call' VM commands
// and the program's bootstrap sequence: push a fresh return address then the
// caller's 4 segment pointers, reposition ARG/LCL for the callee and jump.
func (l *Lowerer) emitCall(name string, nArgs uint8) []asm.Instruction {
	n := l.callCounter
	l.callCounter++
	returnLabel := fmt.Sprintf("%s$ret.%d", name, n)

	out := []asm.Instruction{
		asm.AInstruction{Location: returnLabel},
		asm.CInstruction{Comp: "A", Dest: "D"},
	}
	out = append(out, pushD()...)
	for _, reg := range []string{"LCL", "ARG", "THIS", "THAT"} {
		out = append(out, asm.AInstruction{Location: reg}, asm.CInstruction{Comp: "M", Dest: "D"})
		out = append(out, pushD()...)
	}

	out = append(out,
		// ARG = SP - 5 - nArgs
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: fmt.Sprint(5 + int(nArgs))},
		asm.CInstruction{Comp: "D-A", Dest: "D"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		// LCL = SP
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		// goto callee
		asm.AInstruction{Location: name},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: returnLabel},
	)
	return out
}

// pushD pushes whatever value is currently held in the D register.
func pushD() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M+1", Dest: "M"},
	}
}

// lowerReturnOp tears down the current stack frame and transfers control back
// to the caller. The return address is saved into R14 BEFORE the return value
// overwrites ARG[0]: otherwise a function with 0 arguments would clobber its
// own saved return address while moving the result into place.
func (l *Lowerer) lowerReturnOp() []asm.Instruction {
	return []asm.Instruction{
		// R13 (endFrame) = LCL
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		// R14 (retAddr) = *(endFrame - 5), computed before ARG is touched
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Comp: "D-A", Dest: "A"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		// *ARG = pop()
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		// SP = ARG + 1
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Comp: "M+1", Dest: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		// THAT = *(endFrame - 1)
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "THAT"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		// THIS = *(endFrame - 2)
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "THIS"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		// ARG = *(endFrame - 3)
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		// LCL = *(endFrame - 4)
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		// goto retAddr
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	}
}
