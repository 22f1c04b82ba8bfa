// Package btree reads version 1 B-trees ("TREE"), the index structure of
// files with a legacy superblock.
//
// A group B-tree (node type 0) leads to symbol table nodes ("SNOD") whose
// entries name the group's members; the names themselves live in the
// group's local heap. A chunk B-tree (node type 1) maps the offset of each
// chunk of a chunked dataset to its address, stored size and filter mask.
//
//	entries, err := btree.ReadGroup(r, st.BTreeAddress, localHeap)
//	chunks, err := btree.ReadChunks(r, layout.Address, rank)
package btree
