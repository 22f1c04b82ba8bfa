// Package alloc manages file space while a container is being written.
//
// Object headers, contiguous dataset storage and global heap collections are
// placed by an append-only [Allocator]: every request is served at the
// current end of file, which then advances. Rewriting an object header never
// happens in place once it outgrows its block, so the old block is reported
// through [Allocator.Abandon] and shows up in [Stats].
//
//	a := alloc.New(superblockSize)
//	hdr := a.Alloc(128, alloc.KindHeader)
//	raw := a.Alloc(4096, alloc.KindData)
package alloc
