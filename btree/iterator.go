package btree

import (
	"sort"

	"pagekit/diskmanager"
	"pagekit/keys"
)

// Iterator is a forward range cursor holding exactly one leaf pinned
// between calls. Grounded on the teacher's iterator.go (SeekGE/Next over
// a pinned leaf), reshaped to this index's leaf layout. Close (or
// advancing past the last leaf) releases the pin; a caller that abandons
// an iterator early must call Close itself.
type Iterator struct {
	tree  *Tree
	leaf  *guard
	index int
	valid bool
}

// Begin returns an iterator positioned at the first entry of the
// leftmost leaf. On an empty tree it returns a not-Valid iterator
// holding no pin, equivalent to End().
func (t *Tree) Begin() (*Iterator, error) {
	if t.IsEmpty() {
		return &Iterator{tree: t}, nil
	}
	leaf, err := t.leftmostLeaf(t.root)
	if err != nil {
		return nil, err
	}
	it := &Iterator{tree: t, leaf: leaf, index: 0, valid: leaf.node.Size() > 0}
	return it, nil
}

// BeginAt descends to the leaf whose range contains key and positions at
// the exact equality slot, or the smallest key >= key.
func (t *Tree) BeginAt(key keys.Key) (*Iterator, error) {
	if t.IsEmpty() {
		return &Iterator{tree: t}, nil
	}
	leaf, err := t.findLeaf(key)
	if err != nil {
		return nil, err
	}
	idx := sort.Search(len(leaf.node.Leaves), func(i int) bool {
		return leaf.node.Leaves[i].Key.Compare(key) >= 0
	})
	it := &Iterator{tree: t, leaf: leaf, index: idx}
	if err := it.normalize(); err != nil {
		leaf.release(false)
		return nil, err
	}
	return it, nil
}

// End returns a not-Valid iterator holding no pin, positioned past the
// last entry of the rightmost leaf.
func (t *Tree) End() *Iterator {
	return &Iterator{tree: t}
}

// normalize rolls the cursor forward onto the next leaf whenever index
// has walked off the end of the current one, so Valid/Key/Value never
// have to special-case "index == size".
func (it *Iterator) normalize() error {
	for it.leaf != nil && it.index >= it.leaf.node.Size() {
		next := it.leaf.node.Next
		if err := it.leaf.release(false); err != nil {
			return err
		}
		if next == diskmanager.InvalidPageID {
			it.leaf = nil
			it.valid = false
			return nil
		}
		g, err := fetchGuard(it.tree.bp, next, it.tree.decode)
		if err != nil {
			it.leaf = nil
			return err
		}
		it.leaf = g
		it.index = 0
	}
	it.valid = it.leaf != nil
	return nil
}

// Valid reports whether the iterator currently references an entry.
func (it *Iterator) Valid() bool { return it.valid }

// Key returns the current entry's key.
func (it *Iterator) Key() (keys.Key, error) {
	if !it.valid {
		return nil, ErrIteratorExhausted
	}
	return it.leaf.node.Leaves[it.index].Key, nil
}

// Value returns the current entry's value.
func (it *Iterator) Value() ([]byte, error) {
	if !it.valid {
		return nil, ErrIteratorExhausted
	}
	return it.leaf.node.Leaves[it.index].Value, nil
}

// Next advances to the next entry, crossing into the sibling leaf when
// the current one is exhausted. Becomes not-Valid once it walks off the
// last entry of the rightmost leaf.
func (it *Iterator) Next() error {
	if !it.valid {
		return ErrIteratorExhausted
	}
	it.index++
	return it.normalize()
}

// Close releases the iterator's pinned leaf, if any. Safe to call on an
// already-exhausted or never-positioned iterator.
func (it *Iterator) Close() error {
	if it.leaf == nil {
		return nil
	}
	err := it.leaf.release(false)
	it.leaf = nil
	it.valid = false
	return err
}
