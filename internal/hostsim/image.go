// Package hostsim is an in-memory script interpreter stand-in. It implements
// the Symbol Provider and Memory capability sets over a synthetic script
// image and drives the debug break hook line by line, which lets the server
// be exercised end to end without a real interpreter process.
package hostsim

import (
	"strings"

	"github.com/sourcepawn-tools/remote-debug/internal/debug/inspect"
)

// Sym is one symbol of a simulated image.
type Sym struct {
	SymName   string
	SymIdent  inspect.Ident
	SymClass  inspect.StorageClass
	Tag       string
	Addr      uint32
	Start     uint32
	End       uint32
	Dims      []int
	SymTypeID uint32
}

func (s *Sym) Name() string                  { return s.SymName }
func (s *Sym) Ident() inspect.Ident          { return s.SymIdent }
func (s *Sym) Storage() inspect.StorageClass { return s.SymClass }
func (s *Sym) TagName() string               { return s.Tag }
func (s *Sym) Address() uint32               { return s.Addr }
func (s *Sym) CodeStart() uint32             { return s.Start }
func (s *Sym) CodeEnd() uint32               { return s.End }
func (s *Sym) DimCount() int                 { return len(s.Dims) }
func (s *Sym) TypeID() uint32                { return s.SymTypeID }

// Image is a simulated script image: symbols, line table, type descriptors.
type Image struct {
	File    string
	Syms    []*Sym
	Types   map[uint32]*inspect.TypeDesc
	framesF func() inspect.FrameIterator
}

// NewImage creates an empty image for file.
func NewImage(file string) *Image {
	return &Image{File: file, Types: map[uint32]*inspect.TypeDesc{}}
}

// AddSym registers a symbol.
func (im *Image) AddSym(sym *Sym) *Image {
	im.Syms = append(im.Syms, sym)
	return im
}

// AddType registers a type descriptor under id.
func (im *Image) AddType(id uint32, desc *inspect.TypeDesc) *Image {
	im.Types[id] = desc
	return im
}

// SetFrames installs the call-stack snapshot source.
func (im *Image) SetFrames(f func() inspect.FrameIterator) {
	im.framesF = f
}

// LookupLine maps instruction addresses to lines; the simulation encodes
// line n at address n*4.
func (im *Image) LookupLine(addr uint32) (int, bool) {
	return int(addr / 4), true
}

// FindSymbol resolves name among symbols visible at addr, preferring the
// innermost (latest-starting) match.
func (im *Image) FindSymbol(name string, addr uint32) (inspect.Symbol, bool) {
	var best *Sym
	for _, sym := range im.Syms {
		if sym.SymName != name {
			continue
		}
		if sym.Start <= addr && addr <= sym.End {
			if best == nil || sym.Start >= best.Start {
				best = sym
			}
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// Symbols iterates global or non-global symbols.
func (im *Image) Symbols(global bool) inspect.SymbolIterator {
	var syms []*Sym
	for _, sym := range im.Syms {
		if sym.SymClass.FrameRelative() != global {
			syms = append(syms, sym)
		}
	}
	return &symIter{syms: syms}
}

// ArrayDimensions returns declared dimension sizes.
func (im *Image) ArrayDimensions(sym inspect.Symbol) []int {
	if s, ok := sym.(*Sym); ok {
		return s.Dims
	}
	return nil
}

// TypeDescriptor resolves a registered descriptor.
func (im *Image) TypeDescriptor(typeID uint32) (*inspect.TypeDesc, bool) {
	desc, ok := im.Types[typeID]
	return desc, ok
}

// Frames returns a fresh call-stack iterator.
func (im *Image) Frames() inspect.FrameIterator {
	if im.framesF == nil {
		return &FrameIter{}
	}
	return im.framesF()
}

type symIter struct {
	syms []*Sym
	pos  int
}

func (it *symIter) Done() bool {
	return it.pos >= len(it.syms)
}

func (it *symIter) Next() inspect.Symbol {
	sym := it.syms[it.pos]
	it.pos++
	return sym
}

// Frame is one simulated call-stack entry.
type Frame struct {
	Native   bool
	Function string
	File     string
	Line     int
}

// FrameIter iterates a frame snapshot, innermost first.
type FrameIter struct {
	Stack []Frame
	pos   int
}

func (it *FrameIter) Done() bool           { return it.pos >= len(it.Stack) }
func (it *FrameIter) Next()                { it.pos++ }
func (it *FrameIter) IsNative() bool       { return it.Stack[it.pos].Native }
func (it *FrameIter) IsScripted() bool     { return !it.Stack[it.pos].Native }
func (it *FrameIter) FunctionName() string { return it.Stack[it.pos].Function }
func (it *FrameIter) FilePath() string     { return it.Stack[it.pos].File }
func (it *FrameIter) LineNumber() int      { return it.Stack[it.pos].Line }

// Report is a simulated uncaught-error report.
type Report struct {
	Text string
}

func (r Report) Message() string { return r.Text }

// LineAddr encodes a source line as an instruction address.
func LineAddr(line int) uint32 {
	return uint32(line * 4)
}

// BaseName lowercases the last path element, mirroring how the server
// normalizes attachment names.
func BaseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	return strings.ToLower(path)
}
