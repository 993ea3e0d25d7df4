// Package inspect implements call-stack snapshotting and variable
// serialization. Symbol and type resolution is delegated to the Symbol
// Provider capability set implemented by the host interpreter.
package inspect

// StorageClass classifies where a symbol lives.
type StorageClass int

const (
	// Global symbols have absolute addresses.
	Global StorageClass = iota
	// Local symbols are frame-relative.
	Local
	// Static symbols are function-scoped but absolutely addressed.
	Static
	// Argument symbols are frame-relative function parameters.
	Argument
)

// FrameRelative reports whether addresses of this class offset from the
// current frame pointer.
func (c StorageClass) FrameRelative() bool {
	return c == Local || c == Argument
}

// Ident classifies a symbol's addressing shape.
type Ident int

const (
	// IdentVariable is a directly addressed scalar.
	IdentVariable Ident = iota
	// IdentReference is one level of pointer-style indirection to a scalar.
	IdentReference
	// IdentArray is a directly addressed fixed array.
	IdentArray
	// IdentRefArray is an indirectly addressed array.
	IdentRefArray
	// IdentFunction marks function symbols, which never render as variables.
	IdentFunction
)

// Indirect reports whether the symbol's base address holds a pointer to the
// actual data.
func (i Ident) Indirect() bool {
	return i == IdentReference || i == IdentRefArray
}

// IsArray reports whether the symbol addresses array storage.
func (i Ident) IsArray() bool {
	return i == IdentArray || i == IdentRefArray
}

// Symbol describes one script symbol.
type Symbol interface {
	Name() string
	Ident() Ident
	Storage() StorageClass
	// TagName is the declared tag ("bool", "float", ...) or empty.
	TagName() string
	Address() uint32
	// CodeStart and CodeEnd bound the instruction range where the symbol is
	// visible.
	CodeStart() uint32
	CodeEnd() uint32
	DimCount() int
	// TypeID keys into the provider's type descriptors; zero means the
	// symbol carries no rich type information.
	TypeID() uint32
}

// SymbolIterator walks image symbols.
type SymbolIterator interface {
	Done() bool
	Next() Symbol
}

// FrameIterator walks the active call stack frame by frame. LineNumber
// returns the 1-based source line of a scripted frame.
type FrameIterator interface {
	Done() bool
	Next()
	IsNative() bool
	IsScripted() bool
	FunctionName() string
	FilePath() string
	LineNumber() int
}

// ErrorReport exposes an uncaught script error.
type ErrorReport interface {
	Message() string
}

// Provider is the Symbol Provider capability set.
type Provider interface {
	// LookupLine maps an instruction address to a source line.
	LookupLine(addr uint32) (int, bool)
	// FindSymbol resolves name among symbols visible at addr.
	FindSymbol(name string, addr uint32) (Symbol, bool)
	// Symbols iterates global or non-global symbols.
	Symbols(global bool) SymbolIterator
	// ArrayDimensions returns per-dimension sizes for an array symbol.
	ArrayDimensions(sym Symbol) []int
	// TypeDescriptor resolves a rich type descriptor by id.
	TypeDescriptor(typeID uint32) (*TypeDesc, bool)
	// Frames creates a fresh iterator from the current execution point.
	Frames() FrameIterator
}

// Memory reads and writes interpreter data cells.
type Memory interface {
	ReadCell(addr uint32) (int32, error)
	WriteCell(addr uint32, value int32) error
	// ReadString reads a NUL-terminated packed string at addr.
	ReadString(addr uint32) (string, error)
	// WriteString stores s at addr, truncating to max cells.
	WriteString(addr uint32, max int, s string) error
}

// Context is the execution point an inspection query runs against.
type Context struct {
	Provider Provider
	Memory   Memory
	// CIP is the current instruction address.
	CIP uint32
	// Frame is the current frame pointer; frame-relative symbol addresses
	// offset from it.
	Frame uint32
}

const cellSize = 4
