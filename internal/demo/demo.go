// Package demo holds two example record types and writes a small sample
// file with them: a flat compound stored as an attribute and a vector, a
// referencing compound with strings and sequences, a string vector
// attribute and an integer matrix.
package demo

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/h5records/h5io"
)

// Names of the objects Write creates.
const (
	SimpleName  = "simple_data_attrib"
	ComplexName = "complex_data"
	LinesName   = "vector_of_string"
	MatrixName  = "IntMatrix"
)

// CDataStruct is a plain record copied to and from files as is.
type CDataStruct struct {
	Integer     int32
	Scalar      float64
	ScalarArray [3]float32
}

// ComplexData mixes fixed members with text and a variable-length vector.
type ComplexData struct {
	Scalar     float64
	IntArray   [2]int32
	StdArray   [3]float64
	DS         CDataStruct
	CStr       string
	StdStr     string
	VlenVector []int32
}

func init() {
	h5io.MustRegister(h5io.Compound[CDataStruct]().
		Field("integer", unsafe.Offsetof(CDataStruct{}.Integer), h5io.Int32).
		Field("scalar", unsafe.Offsetof(CDataStruct{}.Scalar), h5io.Float64).
		Field("scalar_array", unsafe.Offsetof(CDataStruct{}.ScalarArray), h5io.ArrayOf(h5io.Float32, 3)).
		MustBuild())

	ds, err := h5io.SchemaOf[CDataStruct]()
	if err != nil {
		panic(err)
	}
	h5io.MustRegister(h5io.Compound[ComplexData]().
		Field("scalar", unsafe.Offsetof(ComplexData{}.Scalar), h5io.Float64).
		Field("int_array", unsafe.Offsetof(ComplexData{}.IntArray), h5io.ArrayOf(h5io.Int32, 2)).
		Field("std_array", unsafe.Offsetof(ComplexData{}.StdArray), h5io.ArrayOf(h5io.Float64, 3)).
		Field("ds", unsafe.Offsetof(ComplexData{}.DS), ds).
		String("c_str", func(v *ComplexData) *string { return &v.CStr }).
		String("std_str", func(v *ComplexData) *string { return &v.StdStr }).
		Slice("vlen_vector", h5io.SliceOf(func(v *ComplexData) *[]int32 { return &v.VlenVector })).
		MustBuild())
}

// Sample is the content Write stores.
type Sample struct {
	Simple  []CDataStruct
	Complex []ComplexData
	Lines   []string
	Matrix  [][]int32
}

// NewSample returns the fixed demo content.
func NewSample() Sample {
	v1 := CDataStruct{Integer: 1, Scalar: 2.3, ScalarArray: [3]float32{1, 2, 3}}
	v2 := CDataStruct{Integer: 10, Scalar: 23, ScalarArray: [3]float32{4, 5, 6}}
	return Sample{
		Simple: []CDataStruct{v1, v2},
		Complex: []ComplexData{
			{Scalar: 1, DS: v1, CStr: "std_string1", StdArray: [3]float64{1.1, 2.2, 3.2}, VlenVector: []int32{1, 2}},
			{Scalar: 2, DS: v2, CStr: "std_string_value2", StdArray: [3]float64{4.4, 5.5, 6.6}, VlenVector: []int32{1, 2, 3, 4}},
		},
		Lines:  []string{"line1", "line2"},
		Matrix: [][]int32{{1, 2, 3}, {4, 5, 6}},
	}
}

// Write stores s under loc. The first simple record also becomes a scalar
// attribute of loc with the same name as the simple vector.
func Write(loc h5io.Location, s Sample, opts ...h5io.Option) error {
	if len(s.Simple) == 0 {
		return errors.New("demo: sample has no simple records")
	}
	if err := h5io.WriteAttribute(loc, SimpleName, s.Simple[0], opts...); err != nil {
		return errors.Wrap(err, "write simple attribute")
	}
	if err := h5io.WriteVector(loc, SimpleName, s.Simple, opts...); err != nil {
		return errors.Wrap(err, "write simple records")
	}
	if err := h5io.WriteVector(loc, ComplexName, s.Complex, opts...); err != nil {
		return errors.Wrap(err, "write complex records")
	}
	if err := h5io.WriteStringVectorAttribute(loc, LinesName, s.Lines, opts...); err != nil {
		return errors.Wrap(err, "write lines")
	}
	if err := h5io.WriteMatrix(loc, MatrixName, s.Matrix, opts...); err != nil {
		return errors.Wrap(err, "write matrix")
	}
	logrus.WithFields(logrus.Fields{
		"simple":  len(s.Simple),
		"complex": len(s.Complex),
		"lines":   len(s.Lines),
		"rows":    len(s.Matrix),
	}).Debug("demo records written")
	return nil
}

// Read loads everything Write stored under loc.
func Read(loc h5io.Location, opts ...h5io.Option) (Sample, error) {
	var (
		s   Sample
		err error
	)
	if s.Simple, err = h5io.ReadVector[CDataStruct](loc, SimpleName, opts...); err != nil {
		return s, errors.Wrap(err, "read simple records")
	}
	if s.Complex, err = h5io.ReadVector[ComplexData](loc, ComplexName, opts...); err != nil {
		return s, errors.Wrap(err, "read complex records")
	}
	if s.Lines, err = h5io.ReadStringVectorAttribute(loc, LinesName, opts...); err != nil {
		return s, errors.Wrap(err, "read lines")
	}
	if s.Matrix, err = h5io.ReadMatrix[int32](loc, MatrixName, opts...); err != nil {
		return s, errors.Wrap(err, "read matrix")
	}
	return s, nil
}

// ReadSimpleAttribute returns the scalar attribute Write attached to loc.
func ReadSimpleAttribute(loc h5io.AttributeHolder, opts ...h5io.Option) (CDataStruct, error) {
	return h5io.ReadAttribute[CDataStruct](loc, SimpleName, opts...)
}
