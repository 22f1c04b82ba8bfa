// Package heap reads and writes global heap collections and reads the
// local heaps of legacy groups.
//
// A collection ("GCOL") is a block of at least 4096 bytes holding numbered
// objects, each padded to eight bytes. Variable-length dataset and
// attribute elements do not hold their payload inline; they store an [ID]
// (collection address and object index) preceded by an element count, see
// [EncodeVarLen].
//
// [Writer] appends objects to the current collection and starts a new one
// when it is full. Unused space at the end of a collection is described by
// a free-space object (index zero), which is also where [ReadCollection]
// stops.
//
// A [LocalHeap] is the name store of a group indexed by a symbol table;
// member names are NUL-terminated strings at offsets into its data segment.
package heap
