package jack

// ----------------------------------------------------------------------------
// Symbol Table

// SymbolTable tracks every identifier visible while compiling a single class: class
// scope (Static/Field) persists for the whole class, subroutine scope (Arg/Var) is
// cleared by Reset at the start of each subroutine. Each Kind keeps its own running
// index, assigned in declaration order, so kind->VM-segment and index->offset fall
// directly out of Define's bookkeeping.
//
// Two flat maps, not one: collapsing class and subroutine scope into a single map
// would make Reset ambiguous about which entries to drop.
type SymbolTable struct {
	class      map[string]symbolEntry
	subroutine map[string]symbolEntry
	counters   map[Kind]uint16
}

type symbolEntry struct {
	dataType DataType
	kind     Kind
	index    uint16
}

// NewSymbolTable returns an empty table, ready for a class's Static/Field declarations.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		class:      map[string]symbolEntry{},
		subroutine: map[string]symbolEntry{},
		counters:   map[Kind]uint16{},
	}
}

// Reset clears the subroutine scope (Arg/Var) and their counters, keeping Static/Field
// from the enclosing class untouched. Must be called once per subroutine, before its
// parameters are defined.
func (st *SymbolTable) Reset() {
	st.subroutine = map[string]symbolEntry{}
	st.counters[Arg] = 0
	st.counters[Var] = 0
}

// Define registers a new identifier of the given DataType and Kind, assigning it the
// next free index for that Kind. Static/Field land in class scope, Arg/Var in
// subroutine scope.
func (st *SymbolTable) Define(name string, dataType DataType, kind Kind) {
	index := st.counters[kind]
	st.counters[kind] = index + 1

	entry := symbolEntry{dataType: dataType, kind: kind, index: index}
	switch kind {
	case Static, Field:
		st.class[name] = entry
	case Arg, Var:
		st.subroutine[name] = entry
	}
}

// VarCount returns how many identifiers of the given Kind have been defined so far.
func (st *SymbolTable) VarCount(kind Kind) uint16 { return st.counters[kind] }

func (st *SymbolTable) lookup(name string) (symbolEntry, bool) {
	if entry, found := st.subroutine[name]; found {
		return entry, true
	}
	entry, found := st.class[name]
	return entry, found
}

// KindOf reports the Kind of 'name', or "" if it is not defined in either scope.
func (st *SymbolTable) KindOf(name string) Kind {
	entry, found := st.lookup(name)
	if !found {
		return ""
	}
	return entry.kind
}

// TypeOf reports the DataType of 'name'. The zero DataType is returned if undefined.
func (st *SymbolTable) TypeOf(name string) DataType {
	entry, _ := st.lookup(name)
	return entry.dataType
}

// IndexOf reports the running index 'name' was assigned at Define time.
func (st *SymbolTable) IndexOf(name string) uint16 {
	entry, _ := st.lookup(name)
	return entry.index
}

// Resolved reports whether 'name' has been defined in either scope.
func (st *SymbolTable) Resolved(name string) bool {
	_, found := st.lookup(name)
	return found
}
