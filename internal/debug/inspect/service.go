package inspect

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/sourcepawn-tools/remote-debug/internal/debug/protocol"
	"github.com/sourcepawn-tools/remote-debug/internal/support/literal"
)

// Scope selectors understood by RequestVariables. Anything else is a
// variable path.
const (
	LocalScope  = ":%local%"
	GlobalScope = ":%global%"
)

// Placeholder values reported instead of failing a whole request.
const (
	valueNotInScope      = "not in scope"
	valueIndexOutOfRange = "(index out of range)"
	valueNotAnArray      = "(invalid index, not an array)"
	valueMultiDim        = "(multi-dimensional array)"
	valueBadDimensions   = "(invalid number of dimensions)"
	valueUnreadable      = "(?)"
	valueNullString      = "NULL_STRING"
)

type hintKey struct {
	name      string
	codeStart uint32
}

// Service serializes variables and call stacks for stopped sessions.
// Display hints are inferred once per symbol and cached.
type Service struct {
	mu    sync.Mutex
	hints map[hintKey]Hint
}

// NewService creates an inspection service with an empty hint cache.
func NewService() *Service {
	return &Service{hints: map[hintKey]Hint{}}
}

// Variables serializes the requested scope: local symbols, global symbols,
// or the children of one variable path.
func (s *Service) Variables(ctx Context, scope string) []protocol.Variable {
	switch {
	case strings.Contains(scope, LocalScope):
		return s.scopeVariables(ctx, false)
	case strings.Contains(scope, GlobalScope):
		return s.scopeVariables(ctx, true)
	default:
		return s.pathVariables(ctx, scope)
	}
}

// Evaluate resolves one variable path to a single value.
func (s *Service) Evaluate(ctx Context, path string) (protocol.Variable, bool) {
	segs, err := parsePath(path)
	if err != nil || len(segs) == 0 {
		return protocol.Variable{}, false
	}
	sym, ok := ctx.Provider.FindSymbol(segs[0].name, ctx.CIP)
	if !ok {
		return protocol.Variable{}, false
	}

	if node, ok := s.resolveTyped(ctx, sym, segs); ok {
		value, err := s.renderJSON(ctx, node.addr, node.desc)
		if err != nil {
			value = valueUnreadable
		}
		return protocol.Variable{Name: path, Value: value, Type: node.desc.TypeName()}, true
	}

	if len(segs) > 1 {
		// Nested member access needs a type descriptor.
		return protocol.Variable{Name: path, Value: valueUnreadable, Type: "N/A"}, true
	}
	v := s.displayVariable(ctx, sym, segs[0].indices, false)
	v.Name = path
	return v, true
}

// SetVariable parses value and stores it into the named symbol at index.
// Array targets only accept writes through string semantics.
func (s *Service) SetVariable(ctx Context, name, value string, index int) bool {
	sym, ok := ctx.Provider.FindSymbol(name, ctx.CIP)
	if !ok {
		return false
	}
	value = literal.Unquote(value)

	if sym.Ident().IsArray() {
		if s.hintFor(ctx, sym) != HintString {
			return false
		}
		base, err := s.symbolBase(ctx, sym)
		if err != nil {
			return false
		}
		max := 0
		if dims := ctx.Provider.ArrayDimensions(sym); len(dims) > 0 {
			max = dims[0]
		}
		return ctx.Memory.WriteString(base, max, value) == nil
	}

	cell, ok := literal.Cell(value)
	if !ok {
		return false
	}
	base, err := s.symbolBase(ctx, sym)
	if err != nil {
		return false
	}
	return ctx.Memory.WriteCell(base+uint32(index*cellSize), cell) == nil
}

func (s *Service) scopeVariables(ctx Context, global bool) []protocol.Variable {
	vars := []protocol.Variable{}
	iter := ctx.Provider.Symbols(global)
	for !iter.Done() {
		sym := iter.Next()
		if sym == nil || sym.Ident() == IdentFunction {
			continue
		}
		visible := sym.CodeStart() <= ctx.CIP && ctx.CIP <= sym.CodeEnd()
		if !visible && !global {
			continue
		}
		if sym.Storage().FrameRelative() == global {
			continue
		}
		vars = append(vars, s.displayVariable(ctx, sym, nil, false))
	}
	return vars
}

func (s *Service) pathVariables(ctx Context, path string) []protocol.Variable {
	segs, err := parsePath(path)
	if err != nil || len(segs) == 0 {
		return nil
	}
	sym, ok := ctx.Provider.FindSymbol(segs[0].name, ctx.CIP)
	if !ok {
		return nil
	}

	if node, ok := s.resolveTyped(ctx, sym, segs); ok {
		return s.typedChildren(ctx, path, node)
	}

	if len(segs) > 1 {
		return nil
	}
	return s.legacyChildren(ctx, path, sym, segs[0].indices)
}

// legacyChildren expands an untyped symbol: one numbered entry per array
// element, or a single entry for scalars.
func (s *Service) legacyChildren(ctx Context, path string, sym Symbol, indices []int) []protocol.Variable {
	if sym.Ident().IsArray() && len(indices) == 0 && s.hintFor(ctx, sym) != HintString {
		dims := ctx.Provider.ArrayDimensions(sym)
		if sym.DimCount() == 1 && len(dims) > 0 {
			hint := s.hintFor(ctx, sym)
			vars := make([]protocol.Variable, 0, dims[0])
			for i := 0; i < dims[0]; i++ {
				value := valueUnreadable
				if cell, ok := s.symbolValue(ctx, sym, i); ok {
					value = FormatCell(cell, hint)
				}
				vars = append(vars, protocol.Variable{
					Name:  strconv.Itoa(i),
					Value: value,
					Type:  hint.TypeName(),
				})
			}
			return vars
		}
	}
	v := s.displayVariable(ctx, sym, indices, true)
	v.Name = path
	return []protocol.Variable{v}
}

// displayVariable renders one symbol with the hint-based legacy pipeline.
func (s *Service) displayVariable(ctx Context, sym Symbol, indices []int, noArray bool) protocol.Variable {
	v := protocol.Variable{Name: sym.Name(), Type: "N/A"}
	if v.Name == "" {
		v.Name = "N/A"
	}

	if id := sym.TypeID(); id != 0 {
		if desc, ok := ctx.Provider.TypeDescriptor(id); ok {
			if out, done := s.renderDescribed(ctx, sym, desc); done {
				out.Name = v.Name
				return out
			}
		}
	}

	if ctx.CIP < sym.CodeStart() || ctx.CIP > sym.CodeEnd() {
		v.Value = valueNotInScope
		return v
	}

	hint := s.hintFor(ctx, sym)

	if sym.Ident().IsArray() {
		dims := ctx.Provider.ArrayDimensions(sym)
		for d, idx := range indices {
			if d < len(dims) && dims[d] > 0 && idx >= dims[d] {
				v.Value = valueIndexOutOfRange
				return v
			}
		}
	}

	switch {
	case sym.Ident().IsArray() && len(indices) == 0:
		if hint == HintString {
			v.Type = "String"
			str, err := s.symbolString(ctx, sym)
			if err != nil {
				v.Value = valueNullString
			} else {
				v.Value = str
			}
			return v
		}
		if sym.DimCount() != 1 {
			v.Value = valueMultiDim
			return v
		}
		if !noArray {
			v.Type = "Array"
		}
		dims := ctx.Provider.ArrayDimensions(sym)
		length := 0
		if len(dims) > 0 {
			length = dims[0]
		}
		elems := make([]any, 0, length)
		for i := 0; i < length; i++ {
			if cell, ok := s.symbolValue(ctx, sym, i); ok {
				elems = append(elems, cellAny(cell, hint))
			}
		}
		raw, err := json.Marshal(elems)
		if err != nil {
			v.Value = valueUnreadable
			return v
		}
		v.Value = string(raw)
		return v

	case !sym.Ident().IsArray() && len(indices) > 0:
		v.Value = valueNotAnArray
		return v

	default:
		if len(indices) > 0 && sym.DimCount() != len(indices) {
			v.Value = valueBadDimensions
			return v
		}
		offset := 0
		if len(indices) > 0 {
			offset = indices[len(indices)-1]
		}
		cell, ok := s.symbolValue(ctx, sym, offset)
		if !ok {
			v.Value = valueUnreadable
			return v
		}
		v.Value = FormatCell(cell, hint)
		v.Type = hint.TypeName()
		return v
	}
}

// hintFor returns the cached display hint for sym, inferring it on first use
// from tag metadata, then from a printable-content check on untagged
// single-dimension arrays.
func (s *Service) hintFor(ctx Context, sym Symbol) Hint {
	key := hintKey{name: sym.Name(), codeStart: sym.CodeStart()}

	s.mu.Lock()
	if hint, ok := s.hints[key]; ok {
		s.mu.Unlock()
		return hint
	}
	s.mu.Unlock()

	hint, tagged := hintForTag(sym.TagName())
	if !tagged && sym.Ident().IsArray() && sym.DimCount() == 1 {
		if str, err := s.symbolString(ctx, sym); err == nil && looksLikeString(str) {
			hint = HintString
		}
	}

	s.mu.Lock()
	s.hints[key] = hint
	s.mu.Unlock()
	return hint
}

// symbolBase computes the effective data address of sym: frame-relative
// offset plus one level of indirection for references.
func (s *Service) symbolBase(ctx Context, sym Symbol) (uint32, error) {
	base := sym.Address()
	if sym.Storage().FrameRelative() {
		base += ctx.Frame
	}
	if sym.Ident().Indirect() {
		cell, err := ctx.Memory.ReadCell(base)
		if err != nil {
			return 0, err
		}
		base = uint32(cell)
	}
	return base, nil
}

func (s *Service) symbolValue(ctx Context, sym Symbol, index int) (int32, bool) {
	base, err := s.symbolBase(ctx, sym)
	if err != nil {
		return 0, false
	}
	cell, err := ctx.Memory.ReadCell(base + uint32(index*cellSize))
	if err != nil {
		return 0, false
	}
	return cell, true
}

func (s *Service) symbolString(ctx Context, sym Symbol) (string, error) {
	base, err := s.symbolBase(ctx, sym)
	if err != nil {
		return "", err
	}
	return ctx.Memory.ReadString(base)
}
