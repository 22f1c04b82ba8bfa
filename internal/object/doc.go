// Package object reads and writes version 2 object headers and reads
// version 1 ones.
//
// An object header starts with the "OHDR" signature, a version byte, flags
// and the size of the first chunk, followed by the header messages and a
// lookup3 checksum. Further messages may live in "OCHK" continuation blocks;
// [Read] follows them and returns one flat message list.
//
// [Encode] always produces a single chunk. Space left between the messages
// and the requested chunk size is filled with NIL messages, so a header can
// be rewritten in place as long as its messages still fit the original
// allocation.
//
// Version 1 headers, found in files with a legacy superblock, are read
// into the same [Header]; they have no signature or checksum and their
// messages are aligned to eight bytes. They are never written.
package object
