package message

import (
	"fmt"
	"strings"
)

// Equal reports whether a and b describe the same element layout. String
// padding is ignored; byte order is always little-endian here.
func Equal(a, b *Datatype) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Class != b.Class || a.Size != b.Size {
		return false
	}
	switch a.Class {
	case ClassFixedPoint:
		return a.Signed() == b.Signed()
	case ClassFloatPoint:
		return a.Precision == b.Precision && a.ExpSize == b.ExpSize && a.MantSize == b.MantSize
	case ClassString:
		return a.Charset() == b.Charset()
	case ClassVarLen:
		if a.IsVarString() || b.IsVarString() {
			return a.IsVarString() == b.IsVarString()
		}
		return Equal(a.Base, b.Base)
	case ClassArray:
		if len(a.Dims) != len(b.Dims) {
			return false
		}
		for i := range a.Dims {
			if a.Dims[i] != b.Dims[i] {
				return false
			}
		}
		return Equal(a.Base, b.Base)
	case ClassCompound:
		if len(a.Members) != len(b.Members) {
			return false
		}
		for i, m := range a.Members {
			n := b.Members[i]
			if m.Name != n.Name || m.Offset != n.Offset || !Equal(m.Type, n.Type) {
				return false
			}
		}
		return true
	case ClassEnum:
		return Equal(a.Base, b.Base) && strings.Join(a.EnumNames, "\x00") == strings.Join(b.EnumNames, "\x00")
	}
	return true
}

// String renders the datatype in a compact, h5dump-like notation.
func (dt *Datatype) String() string {
	var sb strings.Builder
	dt.format(&sb)
	return sb.String()
}

func (dt *Datatype) format(sb *strings.Builder) {
	switch dt.Class {
	case ClassFixedPoint:
		if dt.Signed() {
			fmt.Fprintf(sb, "int%d", dt.Size*8)
		} else {
			fmt.Fprintf(sb, "uint%d", dt.Size*8)
		}
	case ClassFloatPoint:
		fmt.Fprintf(sb, "float%d", dt.Precision)
	case ClassString:
		fmt.Fprintf(sb, "string[%d]", dt.Size)
	case ClassOpaque:
		fmt.Fprintf(sb, "opaque[%d]", dt.Size)
	case ClassVarLen:
		if dt.IsVarString() {
			sb.WriteString("vlen string")
			return
		}
		sb.WriteString("vlen<")
		dt.Base.format(sb)
		sb.WriteString(">")
	case ClassArray:
		sb.WriteString("array[")
		for i, d := range dt.Dims {
			if i > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(sb, "%d", d)
		}
		sb.WriteString("]<")
		dt.Base.format(sb)
		sb.WriteString(">")
	case ClassCompound:
		sb.WriteString("{")
		for i, m := range dt.Members {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "%s@%d: ", m.Name, m.Offset)
			m.Type.format(sb)
		}
		sb.WriteString("}")
	case ClassEnum:
		sb.WriteString("enum(")
		sb.WriteString(strings.Join(dt.EnumNames, "|"))
		sb.WriteString(")")
	default:
		fmt.Fprintf(sb, "class%d[%d]", dt.Class, dt.Size)
	}
}
