package hdf5

import "github.com/robert-malhotra/h5records/internal/message"

// Datatype describes the element type of a dataset or attribute.
type Datatype = message.Datatype

// Member is one field of a compound datatype.
type Member = message.Member

// Datatype constructors.
var (
	NewFixedPoint  = message.NewFixedPoint
	NewFloat       = message.NewFloat
	NewString      = message.NewString
	NewVarString   = message.NewVarString
	NewVarSequence = message.NewVarSequence
	NewOpaque      = message.NewOpaque
	NewCompound    = message.NewCompound
	NewArray       = message.NewArray
)

// EqualDatatypes reports whether a and b describe the same element layout.
func EqualDatatypes(a, b *Datatype) bool {
	return message.Equal(a, b)
}
