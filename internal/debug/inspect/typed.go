package inspect

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sourcepawn-tools/remote-debug/internal/debug/protocol"
)

// typedNode is a resolved position inside a described value.
type typedNode struct {
	addr uint32
	desc *TypeDesc
}

// resolveTyped walks path segments over sym's type descriptor. Returns false
// when the symbol carries no descriptor, falling back to the legacy pipeline.
func (s *Service) resolveTyped(ctx Context, sym Symbol, segs []pathSegment) (typedNode, bool) {
	id := sym.TypeID()
	if id == 0 {
		return typedNode{}, false
	}
	desc, ok := ctx.Provider.TypeDescriptor(id)
	if !ok || desc == nil {
		return typedNode{}, false
	}

	base := sym.Address()
	if sym.Storage().FrameRelative() {
		base += ctx.Frame
	}
	node := typedNode{addr: base, desc: desc}
	if sym.Ident().Indirect() {
		var err error
		if node, err = s.deref(ctx, node); err != nil {
			return typedNode{}, false
		}
	}

	for i, seg := range segs {
		if i > 0 {
			next, err := s.descendField(ctx, node, seg.name)
			if err != nil {
				return typedNode{}, false
			}
			node = next
		}
		for _, idx := range seg.indices {
			next, err := s.descendIndex(ctx, node, idx)
			if err != nil {
				return typedNode{}, false
			}
			node = next
		}
	}
	return node, true
}

// typedChildren expands the resolved node into Variables entries: record
// fields by name, array elements by index, or the single value itself.
func (s *Service) typedChildren(ctx Context, path string, node typedNode) []protocol.Variable {
	node, err := s.chaseReferences(ctx, node)
	if err != nil {
		return []protocol.Variable{{Name: path, Value: valueUnreadable, Type: "N/A"}}
	}

	switch node.desc.Kind {
	case KindRecord:
		vars := make([]protocol.Variable, 0, len(node.desc.Fields))
		for i, field := range node.desc.Fields {
			child := typedNode{addr: node.addr + uint32(i*cellSize), desc: field.Type}
			vars = append(vars, s.typedEntry(ctx, field.Name, child))
		}
		return vars
	case KindFixedArray:
		vars := make([]protocol.Variable, 0, node.desc.Length)
		stride := uint32(descSize(node.desc.Elem))
		for i := 0; i < node.desc.Length; i++ {
			child := typedNode{addr: node.addr + uint32(i)*stride, desc: node.desc.Elem}
			vars = append(vars, s.typedEntry(ctx, strconv.Itoa(i), child))
		}
		return vars
	default:
		return []protocol.Variable{s.typedEntry(ctx, path, node)}
	}
}

func (s *Service) typedEntry(ctx Context, name string, node typedNode) protocol.Variable {
	value, err := s.renderJSON(ctx, node.addr, node.desc)
	if err != nil {
		value = valueUnreadable
	}
	return protocol.Variable{Name: name, Value: value, Type: node.desc.TypeName()}
}

// renderDescribed renders a whole symbol through its type descriptor.
// Scalar roots keep the hint formatter so plain integers stay plain.
func (s *Service) renderDescribed(ctx Context, sym Symbol, desc *TypeDesc) (protocol.Variable, bool) {
	base := sym.Address()
	if sym.Storage().FrameRelative() {
		base += ctx.Frame
	}
	node := typedNode{addr: base, desc: desc}
	if sym.Ident().Indirect() {
		var err error
		if node, err = s.deref(ctx, node); err != nil {
			return protocol.Variable{}, false
		}
	}
	node, err := s.chaseReferences(ctx, node)
	if err != nil {
		return protocol.Variable{}, false
	}

	if node.desc.Kind == KindScalar {
		cell, err := ctx.Memory.ReadCell(node.addr)
		if err != nil {
			return protocol.Variable{}, false
		}
		return protocol.Variable{
			Value: FormatCell(cell, node.desc.Hint),
			Type:  node.desc.Hint.TypeName(),
		}, true
	}
	if node.desc.Kind == KindString {
		str, err := ctx.Memory.ReadString(node.addr)
		if err != nil {
			return protocol.Variable{}, false
		}
		return protocol.Variable{Value: str, Type: "String"}, true
	}

	value, err := s.renderJSON(ctx, node.addr, node.desc)
	if err != nil {
		return protocol.Variable{}, false
	}
	return protocol.Variable{Value: value, Type: node.desc.TypeName()}, true
}

// renderJSON serializes the value at addr as JSON text: scalars as their
// display form, arrays as lists, records as ordered objects.
func (s *Service) renderJSON(ctx Context, addr uint32, desc *TypeDesc) (string, error) {
	switch desc.Kind {
	case KindScalar:
		cell, err := ctx.Memory.ReadCell(addr)
		if err != nil {
			return "", err
		}
		return marshalLeaf(cellAny(cell, desc.Hint))
	case KindString:
		str, err := ctx.Memory.ReadString(addr)
		if err != nil {
			return "", err
		}
		return marshalLeaf(str)
	case KindReference:
		cell, err := ctx.Memory.ReadCell(addr)
		if err != nil {
			return "", err
		}
		return s.renderJSON(ctx, uint32(cell), desc.Elem)
	case KindFixedArray:
		var sb strings.Builder
		sb.WriteByte('[')
		stride := uint32(descSize(desc.Elem))
		for i := 0; i < desc.Length; i++ {
			if i > 0 {
				sb.WriteByte(',')
			}
			elem, err := s.renderJSON(ctx, addr+uint32(i)*stride, desc.Elem)
			if err != nil {
				return "", err
			}
			sb.WriteString(elem)
		}
		sb.WriteByte(']')
		return sb.String(), nil
	case KindRecord:
		var sb strings.Builder
		sb.WriteByte('{')
		for i, field := range desc.Fields {
			if i > 0 {
				sb.WriteByte(',')
			}
			name, err := marshalLeaf(field.Name)
			if err != nil {
				return "", err
			}
			value, err := s.renderJSON(ctx, addr+uint32(i*cellSize), field.Type)
			if err != nil {
				return "", err
			}
			sb.WriteString(name)
			sb.WriteByte(':')
			sb.WriteString(value)
		}
		sb.WriteByte('}')
		return sb.String(), nil
	default:
		return "", fmt.Errorf("unknown type kind %d", desc.Kind)
	}
}

func (s *Service) descendField(ctx Context, node typedNode, name string) (typedNode, error) {
	node, err := s.chaseReferences(ctx, node)
	if err != nil {
		return typedNode{}, err
	}
	if node.desc.Kind != KindRecord {
		return typedNode{}, fmt.Errorf("member %q on non-record value", name)
	}
	for i, field := range node.desc.Fields {
		if field.Name == name {
			return typedNode{addr: node.addr + uint32(i*cellSize), desc: field.Type}, nil
		}
	}
	return typedNode{}, fmt.Errorf("no field %q", name)
}

func (s *Service) descendIndex(ctx Context, node typedNode, idx int) (typedNode, error) {
	node, err := s.chaseReferences(ctx, node)
	if err != nil {
		return typedNode{}, err
	}
	if node.desc.Kind != KindFixedArray {
		return typedNode{}, fmt.Errorf("index on non-array value")
	}
	if idx < 0 || (node.desc.Length > 0 && idx >= node.desc.Length) {
		return typedNode{}, fmt.Errorf("index %d out of range", idx)
	}
	stride := uint32(descSize(node.desc.Elem))
	return typedNode{addr: node.addr + uint32(idx)*stride, desc: node.desc.Elem}, nil
}

func (s *Service) chaseReferences(ctx Context, node typedNode) (typedNode, error) {
	for node.desc.Kind == KindReference {
		var err error
		node, err = s.deref(ctx, node)
		if err != nil {
			return typedNode{}, err
		}
	}
	return node, nil
}

func (s *Service) deref(ctx Context, node typedNode) (typedNode, error) {
	cell, err := ctx.Memory.ReadCell(node.addr)
	if err != nil {
		return typedNode{}, err
	}
	desc := node.desc
	if desc.Kind == KindReference {
		desc = desc.Elem
	}
	return typedNode{addr: uint32(cell), desc: desc}, nil
}

// descSize is the storage footprint of one element, in bytes. Strings embed
// their cell count in Length; zero-length strings occupy one cell.
func descSize(desc *TypeDesc) int {
	switch desc.Kind {
	case KindFixedArray:
		return desc.Length * descSize(desc.Elem)
	case KindRecord:
		return len(desc.Fields) * cellSize
	case KindString:
		if desc.Length > 0 {
			return desc.Length * cellSize
		}
		return cellSize
	default:
		return cellSize
	}
}

func marshalLeaf(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
