package message

import binpkg "github.com/robert-malhotra/h5records/internal/binary"

// SymbolTable is the symbol table message (0x0011) of a legacy group: the
// v1 B-tree indexing its members and the local heap holding their names.
type SymbolTable struct {
	BTreeAddress uint64
	HeapAddress  uint64
}

func (m *SymbolTable) Type() Type { return TypeSymbolTable }

func parseSymbolTable(data []byte, cfg binpkg.Config) (*SymbolTable, error) {
	c := &cursor{data: data}
	m := &SymbolTable{}
	var err error
	if m.BTreeAddress, err = c.uint(cfg.OffsetSize); err != nil {
		return nil, err
	}
	if m.HeapAddress, err = c.uint(cfg.OffsetSize); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SymbolTable) Encode(w *binpkg.Writer) error {
	if err := w.WriteOffset(m.BTreeAddress); err != nil {
		return err
	}
	return w.WriteOffset(m.HeapAddress)
}

func (m *SymbolTable) EncodedSize(cfg binpkg.Config) int { return 2 * cfg.OffsetSize }
