package btree

import (
	"sort"

	"pagekit/bufferpool"
	"pagekit/diskmanager"
	"pagekit/headercache"
	"pagekit/keys"
	"pagekit/txn"
)

// Tree is a persistent B+ tree index. All node access goes through the
// buffer pool; Tree itself holds only the header-page bookkeeping and an
// in-memory mirror of the root id for fast access, per spec §2.
type Tree struct {
	bp      *bufferpool.BufferPool
	name    string
	decode  keys.Decoder
	maxSize int
	root    diskmanager.PageID
	cache   *headercache.Cache // optional; nil disables the accelerator
}

// Open attaches to (or lazily creates) the named index backed by bp.
// maxSize bounds both leaf and internal node occupancy. cache may be nil.
func Open(bp *bufferpool.BufferPool, name string, decode keys.Decoder, maxSize int, cache *headercache.Cache) (*Tree, error) {
	root := diskmanager.InvalidPageID
	if cache != nil {
		if r, ok := cache.Lookup(name); ok {
			root = r
		}
	}
	if root == diskmanager.InvalidPageID {
		r, err := readRootRecord(bp, name)
		if err != nil {
			return nil, err
		}
		root = r
	}
	t := &Tree{bp: bp, name: name, decode: decode, maxSize: maxSize, root: root, cache: cache}
	return t, nil
}

// IsEmpty reports whether the index currently has no root.
func (t *Tree) IsEmpty() bool {
	return t.root == diskmanager.InvalidPageID
}

func (t *Tree) setRoot(id diskmanager.PageID, wasEmpty bool) error {
	t.root = id
	if t.cache != nil {
		if id == diskmanager.InvalidPageID {
			t.cache.Invalidate(t.name)
		} else {
			t.cache.Set(t.name, id)
		}
	}
	if wasEmpty {
		return insertRootRecord(t.bp, t.name, id)
	}
	return updateRootRecord(t.bp, t.name, id)
}

// lookupChild returns the index of the child to descend into for key,
// per spec's internal lookup: entries (_, c0), (k1, c1), ..., (k_{n-1},
// c_{n-1}); return c_i where k_i <= key < k_{i+1}, treating k_0 = -inf.
func lookupChild(n *Node, key keys.Key) int {
	// Binary search over keys k_1..k_{n-1} (slot 0 is the dummy) for the
	// largest i such that k_i <= key.
	lo, hi := 1, len(n.Internal)-1
	idx := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		if n.Internal[mid].Key.Compare(key) <= 0 {
			idx = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return idx
}

// findLeaf descends from the root to the leaf that would hold key,
// unpinning every internal page it passes through (clean — descent never
// mutates) and returning the target leaf still pinned via its guard, per
// the teacher's find_leaf.go pin-then-unpin-while-descending pattern.
func (t *Tree) findLeaf(key keys.Key) (*guard, error) {
	id := t.root
	for {
		g, err := fetchGuard(t.bp, id, t.decode)
		if err != nil {
			return nil, err
		}
		if g.node.IsLeaf() {
			return g, nil
		}
		idx := lookupChild(g.node, key)
		next := g.node.Internal[idx].Child
		if err := g.release(false); err != nil {
			return nil, err
		}
		id = next
	}
}

// leftmostLeaf descends along child 0 from id to the leftmost leaf under
// it, for Begin().
func (t *Tree) leftmostLeaf(id diskmanager.PageID) (*guard, error) {
	for {
		g, err := fetchGuard(t.bp, id, t.decode)
		if err != nil {
			return nil, err
		}
		if g.node.IsLeaf() {
			return g, nil
		}
		next := g.node.Internal[0].Child
		if err := g.release(false); err != nil {
			return nil, err
		}
		id = next
	}
}

// leafSearch returns the index of key within a leaf's sorted entries, and
// whether it was found (binary search on LeafEntry.Key).
func leafSearch(n *Node, key keys.Key) (int, bool) {
	i := sort.Search(len(n.Leaves), func(i int) bool {
		return n.Leaves[i].Key.Compare(key) >= 0
	})
	if i < len(n.Leaves) && n.Leaves[i].Key.Compare(key) == 0 {
		return i, true
	}
	return i, false
}

// Get performs a point lookup. txn is a passive token, currently unused.
func (t *Tree) Get(_ txn.ID, key keys.Key) ([]byte, bool, error) {
	if t.IsEmpty() {
		return nil, false, nil
	}
	g, err := t.findLeaf(key)
	if err != nil {
		return nil, false, err
	}
	defer g.release(false)

	if i, ok := leafSearch(g.node, key); ok {
		val := make([]byte, len(g.node.Leaves[i].Value))
		copy(val, g.node.Leaves[i].Value)
		return val, true, nil
	}
	return nil, false, nil
}
