package vm

import "fmt"

// ----------------------------------------------------------------------------
// Errors

// SyntaxError reports source text that the grammar could not recognize as a
// valid VM command.
type SyntaxError struct{ Detail string }

func (e SyntaxError) Error() string { return fmt.Sprintf("SyntaxError: %s", e.Detail) }

// SymbolError reports a problem resolving a VM-level symbol: an out-of-range
// segment offset, an unresolvable function name, and the like.
type SymbolError struct{ Detail string }

func (e SymbolError) Error() string { return fmt.Sprintf("SymbolError: %s", e.Detail) }

// IoError wraps a failure to read a VM source module from its underlying reader.
type IoError struct{ Detail string }

func (e IoError) Error() string { return fmt.Sprintf("IoError: %s", e.Detail) }

// FormatError reports an input that is well-formed text but the wrong shape for
// the operation requested of it, e.g. a missing '.vm' extension or an input
// directory with no '.vm' files in it.
type FormatError struct{ Detail string }

func (e FormatError) Error() string { return fmt.Sprintf("FormatError: %s", e.Detail) }

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the VM intermediate language.
//
// We declare a shared 'Operation' interface for every macro operation available for the
// language and we define some other useful top-level struct such as Program and Module.
// Is important to note that a VM program can be composed of multiple translation units
// that can be also referenced as file or modules or also classes.

// A VM Program is a set of multiple modules/files keyed by their translation unit name
// (the '.vm' file's stem). In the VM spec each Jack class is translated to its own '.vm'
// file (just like a Java '.class' file) that is handled as its own translation unit
// during the lowering phase; the module name also drives per-file static-segment naming
// and function-scoped label prefixing, so the mapping needs to survive into the Lowerer.
type Program map[string]Module

// A VM Module is just a linear list of VM operations/instructions
type Module []Operation

// Used to put together all operation in the VM language (Memory, Arithmetic, ... ops).
type Operation interface{}

// ----------------------------------------------------------------------------
// Memory Op

// In memory representation of a Memory operation for the VM language.
//
// In the VM intermediate language there are only two possible memory operation on the stack.
// We could either push a new value taken from the specified segment location on the stack's
// top or take the stack's top and saves its value at the specified segment location.
type MemoryOp struct {
	Operation OperationType // The type of operation, either 'push' or 'pop'
	Segment   SegmentType   // The named memory segment to use (this, that, temp, ...)
	Offset    uint16        // The specific location/offset inside of the memory segment
}

type OperationType string // Enum to manage the operation allowed for a MemoryOp

const (
	Push OperationType = "push"
	Pop  OperationType = "pop"
)

type SegmentType string // Enum to manage the segment accessible for a MemoryOp

const (
	Temp     SegmentType = "temp"     // Real segment used to store intermediate computations
	Constant SegmentType = "constant" // Virtual segment used to access numeric constant

	Local    SegmentType = "local"    // Real segment used to store local function variables
	Static   SegmentType = "static"   // Real segment used to store shared/static variables
	Argument SegmentType = "argument" // Real segment used to store function's argument

	This    SegmentType = "this"    // Virtual segment used to point to a specific memory location
	That    SegmentType = "that"    // Virtual segment used to point to a specific memory location
	Pointer SegmentType = "pointer" // Real segment w/ 2 location used to set the 'this' and 'that' pointers
)

// ----------------------------------------------------------------------------
// Arithmetic Op

// In memory representation of a Arithmetic operation for the VM language.
//
// In the VM intermediate language there are just a handful of operation available.
// In particular each operation acts directly on the top of the stack, of course we have both unary
// and binary operation, the specific management of each op will be handled in the codegen phase.
type ArithmeticOp struct{ Operation ArithOpType }

type ArithOpType string // Enum to manage the operation allowed for an ArithmeticOp

const (
	Eq ArithOpType = "eq" // Comparison operations
	Gt ArithOpType = "gt"
	Lt ArithOpType = "lt"

	Add ArithOpType = "add" // Arithmetic operations
	Sub ArithOpType = "sub"
	Neg ArithOpType = "neg"

	Not ArithOpType = "not" // Bitwise operations
	And ArithOpType = "and"
	Or  ArithOpType = "or"
)

// ----------------------------------------------------------------------------
// Program Flow Ops

// In memory representation of a label declaration in the VM language.
//
// Labels are scoped to the function they're declared in: the same label text
// may be reused across different functions without colliding, since the VM
// translator always prefixes the emitted label with the enclosing function's name.
type LabelDecl struct{ Name string }

// In memory representation of a 'goto'/'if-goto' statement in the VM language.
type GotoOp struct {
	Jump  JumpType // Whether the jump is unconditional or depends on the stack's top
	Label string   // The (function-scoped) label to transfer control to
}

type JumpType string // Enum to manage the kind of jump allowed for a GotoOp

const (
	Unconditional JumpType = "goto"    // Always transfers control to 'Label'
	Conditional   JumpType = "if-goto" // Pops the stack's top and jumps only if it's non-zero
)

// ----------------------------------------------------------------------------
// Function Ops

// In memory representation of a function declaration in the VM language.
//
// Declares the entrypoint of a function along with the number of local variables
// it needs; the VM translator is responsible for zero-initializing them on entry.
type FuncDecl struct {
	Name   string // Fully qualified function name (e.g. 'Math.multiply')
	NLocal uint8  // Number of local variables the function declares
}

// In memory representation of a function call in the VM language.
//
// Calling a function pushes a return address and the caller's segment pointers
// onto the stack, then repositions ARG/LCL for the callee per the VM call convention.
type FuncCallOp struct {
	Name  string // Fully qualified function name being called
	NArgs uint8  // Number of arguments already pushed onto the stack by the caller
}

// In memory representation of a function return statement in the VM language.
//
// Tears down the current frame, restores the caller's segment pointers and
// leaves the function's result where the first argument used to be.
type ReturnOp struct{}
