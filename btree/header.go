package btree

import (
	"encoding/binary"
	"errors"
	"fmt"

	"pagekit/bufferpool"
	"pagekit/diskmanager"
)

// The header page at HeaderPageID stores index_name -> root_page_id
// records: uint32 count, then per record uint16 nameLen, name bytes,
// int64 rootID. The teacher's header page conflates "insert" and "update"
// behind a 0/non-0 flag; this module keeps them as two distinct
// operations (insertRootRecord / updateRootRecord) per that design note,
// even though both currently perform the same underlying rewrite.

func decodeHeader(buf []byte) (map[string]diskmanager.PageID, error) {
	records := map[string]diskmanager.PageID{}
	if len(buf) < 4 {
		return records, nil
	}
	count := binary.LittleEndian.Uint32(buf)
	off := 4
	for i := uint32(0); i < count; i++ {
		if off+2 > len(buf) {
			return nil, fmt.Errorf("%w: header page truncated", ErrPageOverflow)
		}
		nameLen := int(binary.LittleEndian.Uint16(buf[off:]))
		off += 2
		if off+nameLen+8 > len(buf) {
			return nil, fmt.Errorf("%w: header page truncated", ErrPageOverflow)
		}
		name := string(buf[off : off+nameLen])
		off += nameLen
		root := diskmanager.PageID(binary.LittleEndian.Uint64(buf[off:]))
		off += 8
		records[name] = root
	}
	return records, nil
}

func encodeHeader(records map[string]diskmanager.PageID, buf []byte) error {
	binary.LittleEndian.PutUint32(buf, uint32(len(records)))
	off := 4
	for name, root := range records {
		nb := []byte(name)
		if off+2+len(nb)+8 > len(buf) {
			return fmt.Errorf("%w: header page full", ErrPageOverflow)
		}
		binary.LittleEndian.PutUint16(buf[off:], uint16(len(nb)))
		off += 2
		copy(buf[off:], nb)
		off += len(nb)
		binary.LittleEndian.PutUint64(buf[off:], uint64(root))
		off += 8
	}
	return nil
}

// readRootRecord loads the current root page id recorded for name, or
// diskmanager.InvalidPageID if the index has no record yet.
func readRootRecord(bp *bufferpool.BufferPool, name string) (diskmanager.PageID, error) {
	f, err := bp.FetchPage(diskmanager.HeaderPageID)
	if err != nil {
		if errors.Is(err, bufferpool.ErrPoolExhausted) {
			return diskmanager.InvalidPageID, ErrPoolExhausted
		}
		return diskmanager.InvalidPageID, fmt.Errorf("btree: fetch header page: %w", err)
	}
	defer bp.UnpinPage(diskmanager.HeaderPageID, false)

	records, err := decodeHeader(f.Data)
	if err != nil {
		return diskmanager.InvalidPageID, err
	}
	if root, ok := records[name]; ok {
		return root, nil
	}
	return diskmanager.InvalidPageID, nil
}

// insertRootRecord adds the record the first time an index gets a root.
func insertRootRecord(bp *bufferpool.BufferPool, name string, root diskmanager.PageID) error {
	return writeRootRecord(bp, name, root)
}

// updateRootRecord rewrites an existing index's root record (split, merge,
// or collapse changed it).
func updateRootRecord(bp *bufferpool.BufferPool, name string, root diskmanager.PageID) error {
	return writeRootRecord(bp, name, root)
}

func writeRootRecord(bp *bufferpool.BufferPool, name string, root diskmanager.PageID) error {
	f, err := bp.FetchPage(diskmanager.HeaderPageID)
	if err != nil {
		if errors.Is(err, bufferpool.ErrPoolExhausted) {
			return ErrPoolExhausted
		}
		return fmt.Errorf("btree: fetch header page: %w", err)
	}
	records, err := decodeHeader(f.Data)
	if err != nil {
		bp.UnpinPage(diskmanager.HeaderPageID, false)
		return err
	}
	if root == diskmanager.InvalidPageID {
		delete(records, name)
	} else {
		records[name] = root
	}
	if err := encodeHeader(records, f.Data); err != nil {
		bp.UnpinPage(diskmanager.HeaderPageID, false)
		return err
	}
	return bp.UnpinPage(diskmanager.HeaderPageID, true)
}
