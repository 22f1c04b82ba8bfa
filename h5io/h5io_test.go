package h5io

import (
	"math"
	"path/filepath"
	"strconv"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5records/hdf5"
	"github.com/robert-malhotra/h5records/internal/legacytest"
)

type point struct {
	X, Y float64
	ID   int32
	Tags [2]uint16
}

type labelled struct {
	Weight float32
	Label  string
	Values []int32
	At     point
}

func init() {
	MustRegister(Compound[point]().
		Field("x", unsafe.Offsetof(point{}.X), Float64).
		Field("y", unsafe.Offsetof(point{}.Y), Float64).
		Field("id", unsafe.Offsetof(point{}.ID), Int32).
		Field("tags", unsafe.Offsetof(point{}.Tags), ArrayOf(Uint16, 2)).
		MustBuild())

	pointSchema, err := SchemaOf[point]()
	if err != nil {
		panic(err)
	}
	MustRegister(Compound[labelled]().
		Field("weight", unsafe.Offsetof(labelled{}.Weight), Float32).
		String("label", func(v *labelled) *string { return &v.Label }).
		Slice("values", SliceOf(func(v *labelled) *[]int32 { return &v.Values })).
		Field("at", unsafe.Offsetof(labelled{}.At), pointSchema).
		MustBuild())
}

func newFile(t *testing.T) (*hdf5.File, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.h5")
	f, err := hdf5.Create(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f, path
}

func reopen(t *testing.T, f *hdf5.File, path string) *hdf5.File {
	t.Helper()
	require.NoError(t, f.Close())
	r, err := hdf5.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestFlatVectorRoundTrip(t *testing.T) {
	f, path := newFile(t)
	points := []point{
		{X: 1, Y: 2.5, ID: 7, Tags: [2]uint16{1, 2}},
		{X: -3, Y: 0, ID: -1, Tags: [2]uint16{65535, 0}},
	}
	require.NoError(t, WriteVector(f.Root(), "points", points))
	require.NoError(t, WriteVector(f.Root(), "ints", []int64{1, -2, 3}))
	require.NoError(t, WriteVector(f.Root(), "none", []float64{}))

	r := reopen(t, f, path)
	got, err := ReadVector[point](r.Root(), "points")
	require.NoError(t, err)
	assert.Equal(t, points, got)

	ints, err := ReadVector[int64](r.Root(), "ints")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, -2, 3}, ints)

	none, err := ReadVector[float64](r.Root(), "none")
	require.NoError(t, err)
	assert.Empty(t, none)

	ds, err := r.OpenDataset("points")
	require.NoError(t, err)
	assert.Equal(t, "{x@0: float64, y@8: float64, id@16: int32, tags@20: array[2]<uint16>}", ds.Datatype().String())
	assert.Equal(t, uint64(unsafe.Sizeof(point{})), uint64(ds.Datatype().Size))
}

func TestReferencingVectorRoundTrip(t *testing.T) {
	f, path := newFile(t)
	values := []labelled{
		{Weight: 0.5, Label: "first", Values: []int32{1, 2}, At: point{X: 1, ID: 3}},
		{Weight: 1.5, Label: "", Values: nil, At: point{Y: 2}},
		{Weight: 2.5, Label: "grüße", Values: []int32{4, 5, 6, 7}},
	}
	require.NoError(t, WriteVector(f.Root(), "labelled", values))

	// Readable through the same handle before closing.
	got, err := ReadVector[labelled](f.Root(), "labelled")
	require.NoError(t, err)
	assert.Equal(t, values, got)

	r := reopen(t, f, path)
	got, err = ReadVector[labelled](r.Root(), "labelled")
	require.NoError(t, err)
	assert.Equal(t, values, got)

	s, err := SchemaOf[labelled]()
	require.NoError(t, err)
	assert.False(t, s.Flat())
	assert.Equal(t, uintptr(4+16+16+unsafe.Sizeof(point{})), s.Size())
	ds, err := r.OpenDataset("labelled")
	require.NoError(t, err)
	assert.True(t, s.Matches(ds.Datatype()))
}

func TestStringVector(t *testing.T) {
	f, path := newFile(t)
	lines := []string{"alpha", "", "gamma"}
	require.NoError(t, WriteVector(f.Root(), "lines", lines))

	r := reopen(t, f, path)
	got, err := ReadVector[string](r.Root(), "lines")
	require.NoError(t, err)
	assert.Equal(t, lines, got)
}

func TestReadVectorMismatch(t *testing.T) {
	f, _ := newFile(t)
	require.NoError(t, WriteVector(f.Root(), "ints", []int32{1, 2}))
	require.NoError(t, WriteMatrix(f.Root(), "m", [][]int32{{1}}))

	_, err := ReadVector[float32](f.Root(), "ints")
	require.ErrorIs(t, err, ErrSchemaMismatch)
	_, err = ReadVector[int32](f.Root(), "m")
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = ReadVector[int32](f.Root(), "missing")
	require.ErrorIs(t, err, hdf5.ErrNotFound)

	err = WriteVector(f.Root(), "ints", []int32{3})
	require.ErrorIs(t, err, hdf5.ErrExists)
}

type unregistered struct{ A int }

func TestUnsupportedType(t *testing.T) {
	f, _ := newFile(t)
	err := WriteVector(f.Root(), "u", []unregistered{{1}})
	require.ErrorIs(t, err, ErrUnsupportedType)
	assert.False(t, f.Root().Has("u"), "nothing is created")

	err = WriteAttribute(f.Root(), "s", "text")
	require.ErrorIs(t, err, ErrUnsupportedType)
	err = WriteMatrix(f.Root(), "lm", [][]labelled{{{}}})
	require.ErrorIs(t, err, ErrUnsupportedType)
	assert.False(t, f.Root().HasAttr("s"))
}

func TestMatrixRoundTrip(t *testing.T) {
	f, path := newFile(t)
	require.NoError(t, WriteMatrix(f.Root(), "IntMatrix", [][]int32{{1, 2, 3}, {4, 5, 6}}))
	require.NoError(t, WriteMatrix(f.Root(), "Empty", [][]float64{}))
	require.NoError(t, WriteMatrix(f.Root(), "NoCols", [][]float64{{}, {}}))

	r := reopen(t, f, path)
	m, err := ReadMatrix[int32](r.Root(), "IntMatrix")
	require.NoError(t, err)
	assert.Equal(t, [][]int32{{1, 2, 3}, {4, 5, 6}}, m)

	ds, err := r.OpenDataset("IntMatrix")
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, ds.Shape())

	empty, err := ReadMatrix[float64](r.Root(), "Empty")
	require.NoError(t, err)
	assert.Empty(t, empty)
	ds, err = r.OpenDataset("Empty")
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 0}, ds.Shape())

	noCols, err := ReadMatrix[float64](r.Root(), "NoCols")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{}, {}}, noCols)
}

func TestRaggedMatrix(t *testing.T) {
	f, _ := newFile(t)
	err := WriteMatrix(f.Root(), "ragged", [][]int32{{1, 2, 3}, {4, 5}})
	require.ErrorIs(t, err, ErrRaggedShape)
	assert.False(t, f.Root().Has("ragged"))
}

func TestCompoundAttribute(t *testing.T) {
	f, path := newFile(t)
	p := point{X: 1, Y: 2.3, ID: 10, Tags: [2]uint16{4, 5}}
	g, err := f.Root().CreateGroup("g")
	require.NoError(t, err)
	require.NoError(t, WriteAttribute(g, "origin", p))
	require.NoError(t, WriteAttribute(g, "z", complex(1.5, -2)))
	require.NoError(t, WriteStringAttribute(g, "title", "hello"))
	require.NoError(t, WriteStringAttribute(g, "blank", ""))

	r := reopen(t, f, path)
	g, err = r.OpenGroup("g")
	require.NoError(t, err)
	got, err := ReadAttribute[point](g, "origin")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	z, err := ReadAttribute[complex128](g, "z")
	require.NoError(t, err)
	assert.Equal(t, complex(1.5, -2), z)

	title, err := ReadStringAttribute(g, "title")
	require.NoError(t, err)
	assert.Equal(t, "hello", title)
	blank, err := ReadStringAttribute(g, "blank")
	require.NoError(t, err)
	assert.Empty(t, blank)

	_, err = ReadAttribute[int32](g, "origin")
	require.ErrorIs(t, err, ErrSchemaMismatch)
	_, err = ReadAttribute[point](g, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = ReadStringAttribute(g, "origin")
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestStringVectorAttribute(t *testing.T) {
	f, path := newFile(t)
	require.NoError(t, WriteStringVectorAttribute(f.Root(), "vector_of_string", []string{"line1", "line2"}))
	ds, err := f.Root().CreateDataset("d", Int8.Datatype(), []uint64{1})
	require.NoError(t, err)
	require.NoError(t, WriteStringVectorAttribute(ds, "empty", nil))

	r := reopen(t, f, path)
	lines, err := ReadStringVectorAttribute(r.Root(), "vector_of_string")
	require.NoError(t, err)
	assert.Equal(t, []string{"line1", "line2"}, lines)

	ds, err = r.OpenDataset("d")
	require.NoError(t, err)
	empty, err := ReadStringVectorAttribute(ds, "empty")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ReadStringVectorAttribute(r.Root(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStringVectorAttributeKeepsHeapOnRejection(t *testing.T) {
	f, _ := newFile(t)
	require.NoError(t, WriteStringVectorAttribute(f.Root(), "lines", []string{"a", "b"}))
	before := f.HeapStats()

	err := WriteStringVectorAttribute(f.Root(), "lines", []string{"c", "d"})
	require.ErrorIs(t, err, hdf5.ErrExists)
	err = WriteStringVectorAttribute(f.Root(), "bad", []string{"ok", "\xff"})
	require.Error(t, err)
	assert.False(t, f.Root().HasAttr("bad"))

	assert.Equal(t, before, f.HeapStats())
}

func TestPutSequenceRejectsOversizedCount(t *testing.T) {
	if strconv.IntSize == 32 {
		t.Skip("count cannot exceed 32 bits")
	}
	f, _ := newFile(t)
	row := Row{file: f, buf: make([]byte, varLenSize)}
	huge := uint64(math.MaxUint32) + 1
	err := row.PutSequence(0, nil, int(huge))
	require.ErrorIs(t, err, ErrUnsupportedType)
	err = row.PutSequence(0, nil, -1)
	require.ErrorIs(t, err, ErrUnsupportedType)
	assert.Equal(t, 0, f.HeapStats().Objects)
	assert.Equal(t, make([]byte, varLenSize), row.Bytes())
}

// failing fails to serialize its second row.
type failing struct{ S string }

var failingCalls int

func init() {
	err := RegisterCustom[failing](VarString,
		func(v *failing, row *Row) error {
			failingCalls++
			if row.Index() == 1 {
				return assert.AnError
			}
			return row.PutString(0, v.S)
		},
		func(row *Row) (failing, error) {
			s, err := row.String(0)
			return failing{s}, err
		},
	)
	if err != nil {
		panic(err)
	}
}

func TestWriteStopsAtFailingRow(t *testing.T) {
	failingCalls = 0
	f, _ := newFile(t)
	err := WriteVector(f.Root(), "bad", []failing{{"a"}, {"b"}, {"c"}})
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "row 1")
	assert.Equal(t, 2, failingCalls)

	ds, err := f.OpenDataset("bad")
	require.NoError(t, err)
	raw, err := ds.ReadSlab(hdf5.Hyperslab{Start: []uint64{0}, Count: []uint64{1}})
	require.NoError(t, err)
	s, _, err := f.ResolveVarLen(raw)
	require.NoError(t, err)
	assert.Equal(t, "a", string(s))
}

func TestReadLegacyChunked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.h5")
	require.NoError(t, legacytest.Write(path, legacytest.Options{}))
	f, err := hdf5.Open(path)
	require.NoError(t, err)
	defer f.Close()

	v, err := ReadVector[int32](f.Root(), "vector")
	require.NoError(t, err)
	assert.Equal(t, legacytest.Vector, v)

	m, err := ReadMatrix[int32](f.Root(), "chunked")
	require.NoError(t, err)
	assert.Equal(t, legacytest.Chunked, m)

	m, err = ReadMatrix[int32](f.Root(), "matrix")
	require.NoError(t, err)
	assert.Equal(t, legacytest.Matrix, m)

	err = WriteVector(f.Root(), "more", []int32{1})
	assert.ErrorIs(t, err, hdf5.ErrReadOnly)
}
