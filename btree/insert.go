package btree

import (
	"pagekit/diskmanager"
	"pagekit/keys"
	"pagekit/txn"
)

// Insert adds (key, value) if key is not already present. Returns false,
// with no change, on a duplicate. txn is a passive token, currently
// unused (single-threaded-per-operation access is assumed, per scope).
func (t *Tree) Insert(_ txn.ID, key keys.Key, value []byte) (bool, error) {
	if t.IsEmpty() {
		g, err := newGuard(t.bp, true, diskmanager.InvalidPageID, t.maxSize)
		if err != nil {
			return false, err
		}
		g.node.Leaves = append(g.node.Leaves, LeafEntry{Key: key, Value: value})
		if err := g.release(true); err != nil {
			return false, err
		}
		if err := t.setRoot(g.node.PageID, true); err != nil {
			return false, err
		}
		return true, nil
	}

	leaf, err := t.findLeaf(key)
	if err != nil {
		return false, err
	}

	i, found := leafSearch(leaf.node, key)
	if found {
		leaf.release(false)
		return false, nil
	}

	leaf.node.Leaves = append(leaf.node.Leaves, LeafEntry{})
	copy(leaf.node.Leaves[i+1:], leaf.node.Leaves[i:])
	leaf.node.Leaves[i] = LeafEntry{Key: key, Value: value}

	if leaf.node.Size() <= leaf.node.MaxSize {
		return true, leaf.release(true)
	}

	return true, t.splitLeafAndInsert(leaf)
}

// splitLeafAndInsert splits an overfull leaf L, moving the upper half of
// its entries to a fresh leaf R spliced into the sibling chain, then
// inserts the promoted separator into L's parent (possibly cascading).
// leaf is released (with its mutation persisted) before returning.
func (t *Tree) splitLeafAndInsert(leaf *guard) error {
	l := leaf.node
	mid := (l.Size() + 1) / 2 // |L| = ceil(n/2), |R| = floor(n/2)

	right, err := newGuard(t.bp, true, l.Parent, t.maxSize)
	if err != nil {
		leaf.release(true)
		return err
	}
	r := right.node
	r.Leaves = append(r.Leaves, l.Leaves[mid:]...)
	l.Leaves = l.Leaves[:mid]

	r.Next = l.Next
	r.Prev = l.PageID
	l.Next = r.PageID

	sepKey := r.Leaves[0].Key

	if err := leaf.release(true); err != nil {
		right.release(true)
		return err
	}
	if r.Next != diskmanager.InvalidPageID {
		if err := t.fixPrevPointer(r.Next, r.PageID); err != nil {
			right.release(true)
			return err
		}
	}
	if err := right.release(true); err != nil {
		return err
	}

	return t.insertIntoParent(l.PageID, l.Parent, sepKey, r.PageID)
}

// fixPrevPointer updates the Prev back-pointer of the leaf at id to point
// at newPrev, following the split/merge the caller just performed.
func (t *Tree) fixPrevPointer(id, newPrev diskmanager.PageID) error {
	g, err := fetchGuard(t.bp, id, t.decode)
	if err != nil {
		return err
	}
	g.node.Prev = newPrev
	return g.release(true)
}

// insertIntoParent splices (sepKey, rightID) into leftID's parent right
// after leftID's own entry. If leftID had no parent (it was the root), a
// new internal root is created instead. If the parent then overflows, it
// is split and the process recurses upward.
func (t *Tree) insertIntoParent(leftID, parentID diskmanager.PageID, sepKey keys.Key, rightID diskmanager.PageID) error {
	if parentID == diskmanager.InvalidPageID {
		root, err := newGuard(t.bp, false, diskmanager.InvalidPageID, t.maxSize)
		if err != nil {
			return err
		}
		root.node.Internal = append(root.node.Internal,
			InternalEntry{Key: nil, Child: leftID},
			InternalEntry{Key: sepKey, Child: rightID},
		)
		if err := root.release(true); err != nil {
			return err
		}
		if err := t.reparent(leftID, root.node.PageID); err != nil {
			return err
		}
		if err := t.reparent(rightID, root.node.PageID); err != nil {
			return err
		}
		return t.setRoot(root.node.PageID, false)
	}

	parent, err := fetchGuard(t.bp, parentID, t.decode)
	if err != nil {
		return err
	}

	pos := -1
	for i, e := range parent.node.Internal {
		if e.Child == leftID {
			pos = i
			break
		}
	}
	if pos < 0 {
		parent.release(false)
		return ErrUnknownNodeType
	}

	parent.node.Internal = append(parent.node.Internal, InternalEntry{})
	copy(parent.node.Internal[pos+2:], parent.node.Internal[pos+1:])
	parent.node.Internal[pos+1] = InternalEntry{Key: sepKey, Child: rightID}

	if err := t.reparent(rightID, parentID); err != nil {
		parent.release(true)
		return err
	}

	if parent.node.Size() <= parent.node.MaxSize {
		return parent.release(true)
	}

	return t.splitInternal(parent)
}

// splitInternal splits an overfull internal node P, moving the upper half
// of its (key, child) entries to a fresh internal P', re-parenting the
// moved children, and promoting P''s slot-0 key to P's parent.
func (t *Tree) splitInternal(p *guard) error {
	node := p.node
	mid := node.Size() / 2

	right, err := newGuard(t.bp, false, node.Parent, t.maxSize)
	if err != nil {
		p.release(true)
		return err
	}
	r := right.node
	r.Internal = append(r.Internal, node.Internal[mid:]...)
	node.Internal = node.Internal[:mid]

	sepKey := r.Internal[0].Key
	parentID := node.Parent
	leftID := node.PageID
	rightID := r.PageID

	if err := p.release(true); err != nil {
		right.release(true)
		return err
	}
	if err := right.release(true); err != nil {
		return err
	}

	for _, e := range r.Internal {
		if err := t.reparent(e.Child, rightID); err != nil {
			return err
		}
	}

	return t.insertIntoParent(leftID, parentID, sepKey, rightID)
}

// reparent rewrites childID's stored Parent pointer to newParent.
func (t *Tree) reparent(childID, newParent diskmanager.PageID) error {
	g, err := fetchGuard(t.bp, childID, t.decode)
	if err != nil {
		return err
	}
	if g.node.Parent == newParent {
		return g.release(false)
	}
	g.node.Parent = newParent
	return g.release(true)
}
