// Package superblock reads and writes the container's entry structure.
//
// Files are recognised by the 8-byte signature 0x89 'H' 'D' 'F' '\r' '\n'
// 0x1a '\n', searched at offsets 0, 512, 1024 and 2048. The compact
// version 2/3 layout is read and written:
//
//	Offset  Size  Field
//	0       8     signature
//	8       1     version (2 or 3)
//	9       1     size of offsets (O)
//	10      1     size of lengths
//	11      1     file consistency flags
//	12      O     base address
//	12+O    O     superblock extension address
//	12+2O   O     end-of-file address
//	12+3O   O     root group object header address
//	12+4O   4     lookup3 checksum
//
// Version 0/1 superblocks are read only. They carry free-space and driver
// addresses and the B-tree parameters, have no checksum, and end with the
// root group's symbol table entry, whose scratch pad may cache the root
// B-tree and local heap addresses.
package superblock
