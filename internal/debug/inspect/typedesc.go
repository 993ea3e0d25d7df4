package inspect

// Kind discriminates the type descriptor variant.
type Kind int

const (
	// KindScalar is a single cell with a display hint.
	KindScalar Kind = iota
	// KindString is a packed NUL-terminated character array.
	KindString
	// KindFixedArray is a fixed-size array of Elem, Length elements.
	KindFixedArray
	// KindReference is one level of indirection before Elem applies.
	KindReference
	// KindRecord is an ordered field list, each a cell-sized slot.
	KindRecord
)

// Hint is the cached display classification for a scalar cell.
type Hint int

const (
	// HintPlain renders as a signed decimal "cell".
	HintPlain Hint = iota
	// HintBool renders 0/1 as false/true.
	HintBool
	// HintHex renders as lowercase hexadecimal.
	HintHex
	// HintFixed renders as a fixed-point value scaled by 1000.
	HintFixed
	// HintFloat reinterprets the cell as an IEEE-754 single.
	HintFloat
	// HintString marks character-array symbols rendered as text.
	HintString
)

// Field is one named member of a record type.
type Field struct {
	Name string
	Type *TypeDesc
}

// TypeDesc is the tagged-variant type descriptor resolved by the Symbol
// Provider. Exactly the fields relevant to Kind are set.
type TypeDesc struct {
	Kind   Kind
	Hint   Hint
	Elem   *TypeDesc
	Length int
	Fields []Field
}

// Scalar builds a scalar descriptor.
func Scalar(hint Hint) *TypeDesc {
	return &TypeDesc{Kind: KindScalar, Hint: hint}
}

// String builds a string descriptor.
func String() *TypeDesc {
	return &TypeDesc{Kind: KindString}
}

// FixedArray builds a fixed-size array descriptor.
func FixedArray(elem *TypeDesc, length int) *TypeDesc {
	return &TypeDesc{Kind: KindFixedArray, Elem: elem, Length: length}
}

// Reference builds an indirection descriptor.
func Reference(inner *TypeDesc) *TypeDesc {
	return &TypeDesc{Kind: KindReference, Elem: inner}
}

// Record builds a record descriptor from ordered fields.
func Record(fields ...Field) *TypeDesc {
	return &TypeDesc{Kind: KindRecord, Fields: fields}
}

// TypeName is the wire type tag reported for values of this descriptor.
func (d *TypeDesc) TypeName() string {
	switch d.Kind {
	case KindScalar:
		return d.Hint.TypeName()
	case KindString:
		return "String"
	case KindFixedArray:
		return "Array"
	case KindReference:
		return d.Elem.TypeName()
	case KindRecord:
		return "Record"
	default:
		return "N/A"
	}
}

// TypeName is the wire type tag for scalar values with this hint.
func (h Hint) TypeName() string {
	switch h {
	case HintBool:
		return "bool"
	case HintHex:
		return "hex"
	case HintFixed:
		return "fixed"
	case HintFloat:
		return "float"
	case HintString:
		return "String"
	default:
		return "cell"
	}
}
