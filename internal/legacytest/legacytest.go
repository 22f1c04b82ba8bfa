// Package legacytest builds small files in the legacy layout for tests: a
// version 0 superblock, version 1 object headers, symbol table groups and
// chunked datasets behind a v1 B-tree and a filter pipeline.
//
// The root group holds
//
//	alias    soft link to /matrix
//	chunked  3x4 int32, 2x3 chunks, shuffle and deflate, one chunk unallocated
//	matrix   2x2 int32, contiguous, version 1 layout
//	sub      empty group
//	vector   10 int32, chunks of 4, deflate and fletcher32
package legacytest

import (
	"bytes"
	"encoding/binary"
	"os"
	"sort"

	"github.com/klauspost/compress/zlib"

	binpkg "github.com/robert-malhotra/h5records/internal/binary"
	"github.com/robert-malhotra/h5records/internal/message"
)

// Contents of the datasets in the file.
var (
	Chunked = [][]int32{{0, 1, 2, 3}, {10, 11, 12, 13}, {20, 21, 22, 0}}
	Matrix  = [][]int32{{1, 2}, {3, 4}}
	Vector  = []int32{100, 101, 102, 103, 104, 105, 106, 107, 108, 109}
)

// Members lists the root group in name order.
var Members = []string{"alias", "chunked", "matrix", "sub", "vector"}

// Options vary the layout.
type Options struct {
	// RootInSuperblock leaves the symbol table message out of the root
	// header, so the root group is only described by the superblock's
	// cached entry.
	RootInSuperblock bool
}

// Addresses of the fixed metadata blocks.
const (
	rootHeader    = 128
	rootTree      = 256
	rootSymbols   = 384
	rootHeap      = 640
	chunkedHeader = 1024
	matrixHeader  = 1536
	subHeader     = 2048
	vectorHeader  = 2304
	subTree       = 2560
	subHeap       = 2688
	chunkedTree   = 3072
	vectorTree    = 3328
	matrixData    = 3584
	chunkData     = 4096

	undefined = ^uint64(0)
)

type builder struct {
	buf  *binpkg.Buffer
	cfg  binpkg.Config
	next uint64 // next free chunk address
	err  error
}

func (b *builder) at(addr uint64) *binpkg.Writer {
	return binpkg.NewWriter(b.buf, b.cfg).At(int64(addr))
}

func (b *builder) put(addr uint64, data []byte) {
	if b.err == nil {
		_, b.err = b.buf.WriteAt(data, int64(addr))
	}
}

// enc collects little-endian fields.
type enc struct{ bytes.Buffer }

func (e *enc) u8(v ...uint8) { e.Write(v) }
func (e *enc) u16(v uint16)  { e.Write(binary.LittleEndian.AppendUint16(nil, v)) }
func (e *enc) u32(v uint32)  { e.Write(binary.LittleEndian.AppendUint32(nil, v)) }
func (e *enc) u64(v uint64)  { e.Write(binary.LittleEndian.AppendUint64(nil, v)) }
func (e *enc) zeros(n int)   { e.Write(make([]byte, n)) }
func (e *enc) raw(p []byte)  { e.Write(p) }
func (e *enc) padTo(n int)   { e.zeros((n - e.Len()%n) % n) }
func (e *enc) str(s string)  { e.WriteString(s) }
func (e *enc) i32s(v []int32) {
	for _, x := range v {
		e.u32(uint32(x))
	}
}

// Bytes returns the encoded file.
func Bytes(opts Options) ([]byte, error) {
	b := &builder{buf: binpkg.NewBuffer(0), cfg: binpkg.DefaultConfig(), next: chunkData}

	names, offsets := nameHeap(Members, "/matrix")
	b.put(rootHeap, localHeap(rootHeap+32, len(names)))
	b.put(rootHeap+32, names)

	var rootMsgs []v1Message
	if !opts.RootInSuperblock {
		rootMsgs = append(rootMsgs, symbolTable(rootTree, rootHeap))
	}
	b.put(rootHeader, v1Header(rootMsgs...))
	b.put(rootTree, groupLeaf(rootSymbols))

	var sn enc
	sn.str("SNOD")
	sn.u8(1, 0)
	sn.u16(uint16(len(Members)))
	entry := func(name string, header uint64, cache uint32, scratch uint64) {
		sn.u64(offsets[name])
		sn.u64(header)
		sn.u32(cache)
		sn.u32(0)
		sn.u64(scratch)
		sn.u64(0)
	}
	entry("alias", undefined, 2, offsets["/matrix"])
	entry("chunked", chunkedHeader, 0, 0)
	entry("matrix", matrixHeader, 0, 0)
	entry("sub", subHeader, 0, 0)
	entry("vector", vectorHeader, 0, 0)
	b.put(rootSymbols, sn.Bytes())

	// sub: an empty symbol table group.
	b.put(subHeader, v1Header(symbolTable(subTree, subHeap)))
	b.put(subTree, groupLeaf())
	b.put(subHeap, localHeap(subHeap+32, 8))
	b.put(subHeap+32, make([]byte, 8))

	// matrix: contiguous with a version 1 layout.
	var layout enc
	layout.u8(1, 3, byte(message.LayoutContiguous), 0, 0, 0, 0, 0)
	layout.u64(matrixData)
	layout.u32(2)
	layout.u32(2)
	layout.u32(4)
	b.put(matrixHeader, v1Header(append(int32Dataset(2, 2), v1Message{message.TypeDataLayout, layout.Bytes()})...))
	var m enc
	for _, row := range Matrix {
		m.i32s(row)
	}
	b.put(matrixData, m.Bytes())

	b.writeChunked()
	b.writeVector()

	var sb enc
	sb.raw([]byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'})
	sb.u8(0, 0, 0, 0, 0, 8, 8, 0)
	sb.u16(4)
	sb.u16(16)
	sb.u32(0)
	sb.u64(0)
	sb.u64(undefined)
	sb.u64(b.next)
	sb.u64(undefined)
	sb.u64(0)
	sb.u64(rootHeader)
	sb.u32(1)
	sb.u32(0)
	sb.u64(rootTree)
	sb.u64(rootHeap)
	b.put(0, sb.Bytes())

	if b.err != nil {
		return nil, b.err
	}
	out := b.buf.Bytes()
	if uint64(len(out)) < b.next {
		out = append(out, make([]byte, b.next-uint64(len(out)))...)
	}
	return out, nil
}

// Write stores the file at path.
func Write(path string, opts Options) error {
	data, err := Bytes(opts)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// writeChunked stores the 3x4 dataset as 2x3 chunks, leaving out the
// chunk at (2, 3).
func (b *builder) writeChunked() {
	var fp enc
	fp.u8(1, 2, 0, 0, 0, 0, 0, 0)
	filterV1(&fp, message.FilterShuffle, 4)
	filterV1(&fp, message.FilterDeflate, 6)
	msgs := append(int32Dataset(3, 4),
		chunkedLayout(chunkedTree, 2, 3),
		v1Message{message.TypeFilterPipeline, fp.Bytes()},
	)
	b.put(chunkedHeader, v1Header(msgs...))

	offsets := [][2]uint64{{0, 0}, {0, 3}, {2, 0}}
	var tree enc
	treeHeader(&tree, 1, len(offsets))
	for _, off := range offsets {
		var chunk []int32
		for i := uint64(0); i < 2; i++ {
			for j := uint64(0); j < 3; j++ {
				r, c := off[0]+i, off[1]+j
				v := int32(99) // outside the dataset
				if r < 3 && c < 4 {
					v = Chunked[r][c]
				}
				chunk = append(chunk, v)
			}
		}
		var e enc
		e.i32s(chunk)
		stored := deflate(shuffle(e.Bytes(), 4))
		addr := b.chunk(stored)
		tree.u32(uint32(len(stored)))
		tree.u32(0)
		tree.u64(off[0])
		tree.u64(off[1])
		tree.u64(0)
		tree.u64(addr)
	}
	tree.u32(0)
	tree.u32(0)
	tree.u64(4)
	tree.u64(6)
	tree.u64(0)
	b.put(chunkedTree, tree.Bytes())
}

// writeVector stores the 10 elements as chunks of 4, the last one
// partly outside the dataset.
func (b *builder) writeVector() {
	var fp enc
	fp.u8(1, 2, 0, 0, 0, 0, 0, 0)
	filterV1(&fp, message.FilterDeflate, 6)
	filterV1(&fp, message.FilterFletcher32)
	var space enc
	writeEncoder(&space, message.NewDataspace([]uint64{uint64(len(Vector))}))
	var dtype enc
	writeEncoder(&dtype, message.NewFixedPoint(4, true))
	msgs := []v1Message{
		{message.TypeDataspace, space.Bytes()},
		{message.TypeDatatype, dtype.Bytes()},
		chunkedLayout(vectorTree, 4),
		{message.TypeFilterPipeline, fp.Bytes()},
	}
	b.put(vectorHeader, v1Header(msgs...))

	var tree enc
	treeHeader(&tree, 1, 3)
	for start := 0; start < len(Vector); start += 4 {
		chunk := make([]int32, 4)
		for i := range chunk {
			chunk[i] = 999
			if start+i < len(Vector) {
				chunk[i] = Vector[start+i]
			}
		}
		var e enc
		e.i32s(chunk)
		packed := deflate(e.Bytes())
		stored := binary.LittleEndian.AppendUint32(packed, binpkg.Fletcher32(packed))
		addr := b.chunk(stored)
		tree.u32(uint32(len(stored)))
		tree.u32(0)
		tree.u64(uint64(start))
		tree.u64(0)
		tree.u64(addr)
	}
	tree.u32(0)
	tree.u32(0)
	tree.u64(12)
	tree.u64(0)
	b.put(vectorTree, tree.Bytes())
}

// chunk stores data at the next free address.
func (b *builder) chunk(data []byte) uint64 {
	addr := b.next
	b.put(addr, data)
	b.next += uint64(len(data)+7) &^ 7
	return addr
}

type v1Message struct {
	typ  message.Type
	body []byte
}

// v1Header encodes a version 1 object header. An empty header gets one
// NIL message.
func v1Header(msgs ...v1Message) []byte {
	if len(msgs) == 0 {
		msgs = []v1Message{{message.TypeNIL, make([]byte, 8)}}
	}
	var body enc
	for _, m := range msgs {
		padded := (len(m.body) + 7) &^ 7
		body.u16(uint16(m.typ))
		body.u16(uint16(padded))
		body.zeros(4)
		body.raw(m.body)
		body.zeros(padded - len(m.body))
	}
	var h enc
	h.u8(1, 0)
	h.u16(uint16(len(msgs)))
	h.u32(1)
	h.u32(uint32(body.Len()))
	h.zeros(4)
	h.raw(body.Bytes())
	return h.Bytes()
}

func symbolTable(tree, heap uint64) v1Message {
	var e enc
	e.u64(tree)
	e.u64(heap)
	return v1Message{message.TypeSymbolTable, e.Bytes()}
}

func int32Dataset(dims ...uint64) []v1Message {
	var space, dtype enc
	writeEncoder(&space, message.NewDataspace(dims))
	writeEncoder(&dtype, message.NewFixedPoint(4, true))
	return []v1Message{
		{message.TypeDataspace, space.Bytes()},
		{message.TypeDatatype, dtype.Bytes()},
	}
}

// chunkedLayout encodes a version 3 chunked layout of int32 elements.
func chunkedLayout(tree uint64, chunkDims ...uint32) v1Message {
	var e enc
	e.u8(3, byte(message.LayoutChunked), byte(len(chunkDims)+1))
	e.u64(tree)
	for _, d := range chunkDims {
		e.u32(d)
	}
	e.u32(4)
	return v1Message{message.TypeDataLayout, e.Bytes()}
}

func filterV1(e *enc, id uint16, values ...uint32) {
	e.u16(id)
	e.u16(0)
	e.u16(0)
	e.u16(uint16(len(values)))
	for _, v := range values {
		e.u32(v)
	}
	if len(values)%2 == 1 {
		e.u32(0)
	}
}

func treeHeader(e *enc, kind uint8, entries int) {
	e.str("TREE")
	e.u8(kind, 0)
	e.u16(uint16(entries))
	e.u64(undefined)
	e.u64(undefined)
}

// groupLeaf encodes a group B-tree leaf over the given symbol nodes.
func groupLeaf(symbolNodes ...uint64) []byte {
	var e enc
	treeHeader(&e, 0, len(symbolNodes))
	for _, addr := range symbolNodes {
		e.u64(0)
		e.u64(addr)
	}
	e.u64(0)
	return e.Bytes()
}

func localHeap(data uint64, size int) []byte {
	var e enc
	e.str("HEAP")
	e.u8(0, 0, 0, 0)
	e.u64(uint64(size))
	e.u64(undefined)
	e.u64(data)
	return e.Bytes()
}

// nameHeap lays out a local heap data segment holding names and extra,
// starting with the empty string, and returns each string's offset.
func nameHeap(names []string, extra ...string) ([]byte, map[string]uint64) {
	all := append(append([]string(nil), names...), extra...)
	sort.Strings(all)
	var e enc
	e.u8(0)
	offsets := make(map[string]uint64, len(all))
	for _, n := range all {
		offsets[n] = uint64(e.Len())
		e.str(n)
		e.u8(0)
	}
	e.padTo(8)
	return e.Bytes(), offsets
}

func writeEncoder(e *enc, m message.Encoder) {
	buf := binpkg.NewBuffer(0)
	if err := m.Encode(binpkg.NewWriter(buf, binpkg.DefaultConfig())); err != nil {
		panic(err)
	}
	e.raw(buf.Bytes())
}

func shuffle(data []byte, elemSize int) []byte {
	n := len(data) / elemSize
	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		for j := 0; j < elemSize; j++ {
			out[j*n+i] = data[i*elemSize+j]
		}
	}
	return out
}

func deflate(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}
