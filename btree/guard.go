package btree

import (
	"errors"
	"fmt"

	"pagekit/bufferpool"
	"pagekit/diskmanager"
	"pagekit/keys"
)

// guard is a scoped pin: acquiring it pins a frame and decodes its node
// view; releasing it unpins with whatever dirty flag the caller sets. This
// is the systems-language rendering of the "pin/unpin as scoped
// acquisition" design note — every tree operation fetches through guard
// and releases on every exit path, including error paths.
type guard struct {
	bp    *bufferpool.BufferPool
	frame *bufferpool.Frame
	node  *Node
}

// fetchGuard pins id and decodes it as a node.
func fetchGuard(bp *bufferpool.BufferPool, id diskmanager.PageID, decode keys.Decoder) (*guard, error) {
	f, err := bp.FetchPage(id)
	if err != nil {
		if errors.Is(err, bufferpool.ErrPoolExhausted) {
			return nil, ErrPoolExhausted
		}
		return nil, fmt.Errorf("btree: fetch page %d: %w", id, err)
	}
	n, err := decodeNode(f.Data, decode)
	if err != nil {
		bp.UnpinPage(id, false)
		return nil, err
	}
	return &guard{bp: bp, frame: f, node: n}, nil
}

// newGuard allocates a fresh page and returns it as an empty node of kind
// leaf/internal, already pinned.
func newGuard(bp *bufferpool.BufferPool, leaf bool, parent diskmanager.PageID, maxSize int) (*guard, error) {
	f, err := bp.NewPage()
	if err != nil {
		if errors.Is(err, bufferpool.ErrPoolExhausted) {
			return nil, ErrPoolExhausted
		}
		return nil, fmt.Errorf("btree: allocate page: %w", err)
	}
	var n *Node
	if leaf {
		n = newLeaf(f.PageID, parent, maxSize)
	} else {
		n = newInternal(f.PageID, parent, maxSize)
	}
	return &guard{bp: bp, frame: f, node: n}, nil
}

// release unpins the guarded page. If dirty, the node is re-encoded into
// the frame's bytes before unpinning so the mutation is visible to the
// next fetch and to eventual flush.
func (g *guard) release(dirty bool) error {
	if dirty {
		if err := encodeNode(g.node, g.frame.Data); err != nil {
			// Still unpin — an encode failure must not leak a pin.
			g.bp.UnpinPage(g.node.PageID, false)
			return err
		}
	}
	return g.bp.UnpinPage(g.node.PageID, dirty)
}

// free releases the page back to disk instead of keeping it resident:
// used when a node is deallocated (coalesced away, or root collapse).
func (g *guard) free() error {
	if err := g.bp.UnpinPage(g.node.PageID, false); err != nil {
		return err
	}
	return g.bp.DeletePage(g.node.PageID)
}
