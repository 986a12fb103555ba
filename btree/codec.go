package btree

import (
	"encoding/binary"
	"fmt"

	"pagekit/diskmanager"
	"pagekit/keys"
)

// Fixed-width common header layout. Mirrors the teacher's encodeNode
// header (id/type/numKeys/parent/next) with an added Prev field for the
// leaf back-pointer and room reserved for alignment.
const (
	offPageType = 0
	offSize     = 4
	offMaxSize  = 8
	offPageID   = 12
	offParent   = 20
	offNext     = 28
	offPrev     = 36
	headerSize  = 48
)

// encodeNode serializes n into buf, which must be exactly diskmanager.PageSize
// bytes. Bounds-checked against the page size the way the teacher's
// encodeNode/decodeNode do.
func encodeNode(n *Node, buf []byte) error {
	if len(buf) != diskmanager.PageSize {
		return fmt.Errorf("btree: encode buffer must be PageSize, got %d", len(buf))
	}

	buf[offPageType] = byte(n.Type)
	binary.LittleEndian.PutUint32(buf[offSize:], uint32(n.Size()))
	binary.LittleEndian.PutUint32(buf[offMaxSize:], uint32(n.MaxSize))
	binary.LittleEndian.PutUint64(buf[offPageID:], uint64(n.PageID))
	binary.LittleEndian.PutUint64(buf[offParent:], uint64(n.Parent))
	binary.LittleEndian.PutUint64(buf[offNext:], uint64(n.Next))
	binary.LittleEndian.PutUint64(buf[offPrev:], uint64(n.Prev))

	off := headerSize
	put16 := func(v int) error {
		if off+2 > len(buf) {
			return fmt.Errorf("%w: page %d overflowed", ErrPageOverflow, n.PageID)
		}
		binary.LittleEndian.PutUint16(buf[off:], uint16(v))
		off += 2
		return nil
	}
	putBytes := func(b []byte) error {
		if off+len(b) > len(buf) {
			return fmt.Errorf("%w: page %d overflowed", ErrPageOverflow, n.PageID)
		}
		copy(buf[off:], b)
		off += len(b)
		return nil
	}

	if n.IsLeaf() {
		for _, e := range n.Leaves {
			kb := e.Key.Bytes()
			if err := put16(len(kb)); err != nil {
				return err
			}
			if err := putBytes(kb); err != nil {
				return err
			}
			if err := put16(len(e.Value)); err != nil {
				return err
			}
			if err := putBytes(e.Value); err != nil {
				return err
			}
		}
		return nil
	}

	for i, e := range n.Internal {
		var kb []byte
		if i > 0 && e.Key != nil { // slot 0 is a dummy; never serialize it
			kb = e.Key.Bytes()
		}
		if err := put16(len(kb)); err != nil {
			return err
		}
		if err := putBytes(kb); err != nil {
			return err
		}
		if off+8 > len(buf) {
			return fmt.Errorf("%w: page %d overflowed", ErrPageOverflow, n.PageID)
		}
		binary.LittleEndian.PutUint64(buf[off:], uint64(e.Child))
		off += 8
	}
	return nil
}

// decodeNode parses buf (exactly PageSize bytes) into a Node, using decode
// to turn each entry's raw key bytes back into a keys.Key.
func decodeNode(buf []byte, decode keys.Decoder) (*Node, error) {
	if len(buf) != diskmanager.PageSize {
		return nil, fmt.Errorf("btree: decode buffer must be PageSize, got %d", len(buf))
	}

	n := &Node{
		Type:    NodeType(buf[offPageType]),
		MaxSize: int(binary.LittleEndian.Uint32(buf[offMaxSize:])),
		PageID:  diskmanager.PageID(binary.LittleEndian.Uint64(buf[offPageID:])),
		Parent:  diskmanager.PageID(binary.LittleEndian.Uint64(buf[offParent:])),
		Next:    diskmanager.PageID(binary.LittleEndian.Uint64(buf[offNext:])),
		Prev:    diskmanager.PageID(binary.LittleEndian.Uint64(buf[offPrev:])),
	}
	size := int(binary.LittleEndian.Uint32(buf[offSize:]))
	if n.Type != NodeLeaf && n.Type != NodeInternal {
		return nil, fmt.Errorf("%w: page %d has tag %d", ErrUnknownNodeType, n.PageID, buf[offPageType])
	}

	off := headerSize
	get16 := func() (int, error) {
		if off+2 > len(buf) {
			return 0, fmt.Errorf("%w: page %d truncated", ErrPageOverflow, n.PageID)
		}
		v := int(binary.LittleEndian.Uint16(buf[off:]))
		off += 2
		return v, nil
	}

	if n.Type == NodeLeaf {
		n.Leaves = make([]LeafEntry, 0, size)
		for i := 0; i < size; i++ {
			kl, err := get16()
			if err != nil {
				return nil, err
			}
			if off+kl > len(buf) {
				return nil, fmt.Errorf("%w: page %d truncated", ErrPageOverflow, n.PageID)
			}
			key := decode(buf[off : off+kl])
			off += kl
			vl, err := get16()
			if err != nil {
				return nil, err
			}
			if off+vl > len(buf) {
				return nil, fmt.Errorf("%w: page %d truncated", ErrPageOverflow, n.PageID)
			}
			val := make([]byte, vl)
			copy(val, buf[off:off+vl])
			off += vl
			n.Leaves = append(n.Leaves, LeafEntry{Key: key, Value: val})
		}
		return n, nil
	}

	n.Internal = make([]InternalEntry, 0, size)
	for i := 0; i < size; i++ {
		kl, err := get16()
		if err != nil {
			return nil, err
		}
		if off+kl > len(buf) {
			return nil, fmt.Errorf("%w: page %d truncated", ErrPageOverflow, n.PageID)
		}
		var key keys.Key
		if kl > 0 {
			key = decode(buf[off : off+kl])
		}
		off += kl
		if off+8 > len(buf) {
			return nil, fmt.Errorf("%w: page %d truncated", ErrPageOverflow, n.PageID)
		}
		child := diskmanager.PageID(binary.LittleEndian.Uint64(buf[off:]))
		off += 8
		n.Internal = append(n.Internal, InternalEntry{Key: key, Child: child})
	}
	return n, nil
}
