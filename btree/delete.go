package btree

import (
	"pagekit/diskmanager"
	"pagekit/keys"
	"pagekit/txn"
)

// Remove deletes key if present; a missing key is a silent no-op, per
// spec. txn is a passive token, currently unused.
func (t *Tree) Remove(_ txn.ID, key keys.Key) error {
	if t.IsEmpty() {
		return nil
	}

	leaf, err := t.findLeaf(key)
	if err != nil {
		return err
	}

	i, found := leafSearch(leaf.node, key)
	if !found {
		return leaf.release(false)
	}
	leaf.node.Leaves = append(leaf.node.Leaves[:i], leaf.node.Leaves[i+1:]...)

	return t.afterShrink(leaf)
}

// afterShrink is called after removing an entry from node (a leaf entry,
// or a parent's entry for a coalesced-away child). It implements the
// root-exemption and CoalesceOrRedistribute dispatch common to both
// paths.
func (t *Tree) afterShrink(g *guard) error {
	if g.node.PageID == t.root {
		return t.adjustRoot(g)
	}
	if g.node.Size() < MinSize(g.node.Type, t.maxSize) {
		return t.coalesceOrRedistribute(g)
	}
	return g.release(true)
}

// adjustRoot implements the two root-collapse cases: an internal root
// left with a single child is replaced by that child; a leaf root left
// empty becomes an empty tree. Any other root shape is left unchanged
// (the root is exempt from min_size).
func (t *Tree) adjustRoot(g *guard) error {
	if !g.node.IsLeaf() && g.node.Size() == 1 {
		childID := g.node.Internal[0].Child
		if err := g.free(); err != nil {
			return err
		}
		if err := t.reparent(childID, diskmanager.InvalidPageID); err != nil {
			return err
		}
		return t.setRoot(childID, false)
	}
	if g.node.IsLeaf() && g.node.Size() == 0 {
		if err := g.free(); err != nil {
			return err
		}
		return t.setRoot(diskmanager.InvalidPageID, false)
	}
	return g.release(true)
}

// indexOfChild returns the index of the entry in parent whose Child is id.
func indexOfChild(parent *Node, id diskmanager.PageID) (int, bool) {
	for i, e := range parent.Internal {
		if e.Child == id {
			return i, true
		}
	}
	return 0, false
}

// coalesceOrRedistribute rebalances an underflowed non-root node g against
// a sibling under the same parent. Sibling choice: a node (leaf or
// internal) at the last slot of its parent uses its left sibling,
// otherwise its right, so the right sibling is preferred whenever both
// exist (see DESIGN.md open question 3).
func (t *Tree) coalesceOrRedistribute(g *guard) error {
	node := g.node

	parent, err := fetchGuard(t.bp, node.Parent, t.decode)
	if err != nil {
		g.release(false)
		return err
	}

	idx, ok := indexOfChild(parent.node, node.PageID)
	if !ok {
		g.release(false)
		parent.release(false)
		return ErrUnknownNodeType
	}

	useLeft := idx == len(parent.node.Internal)-1

	siblingIdx := idx + 1
	if useLeft {
		siblingIdx = idx - 1
	}
	siblingID := parent.node.Internal[siblingIdx].Child
	sibling, err := fetchGuard(t.bp, siblingID, t.decode)
	if err != nil {
		g.release(false)
		parent.release(false)
		return err
	}

	var left, right *guard
	var rightIdx int
	if useLeft {
		left, right, rightIdx = sibling, g, idx
	} else {
		left, right, rightIdx = g, sibling, siblingIdx
	}

	combined := left.node.Size() + right.node.Size()
	var fits bool
	if node.IsLeaf() {
		fits = combined <= t.maxSize
	} else {
		fits = combined < t.maxSize
	}

	if fits {
		return t.coalesce(left, right, parent, rightIdx)
	}
	return t.redistribute(left, right, parent, rightIdx, useLeft)
}

// coalesce merges right into left, removes parent's entry for right, and
// frees right's page. Recurses upward via afterShrink if parent now
// underflows.
func (t *Tree) coalesce(left, right, parent *guard, rightIdx int) error {
	var fixNext diskmanager.PageID
	hasFixNext := false

	if left.node.IsLeaf() {
		left.node.Leaves = append(left.node.Leaves, right.node.Leaves...)
		left.node.Next = right.node.Next
		if left.node.Next != diskmanager.InvalidPageID {
			fixNext, hasFixNext = left.node.Next, true
		}
	} else {
		pulledKey := parent.node.Internal[rightIdx].Key
		before := len(left.node.Internal)
		if len(right.node.Internal) > 0 {
			right.node.Internal[0].Key = pulledKey
		}
		left.node.Internal = append(left.node.Internal, right.node.Internal...)
		for _, e := range left.node.Internal[before:] {
			if err := t.reparent(e.Child, left.node.PageID); err != nil {
				left.release(true)
				right.release(false)
				parent.release(false)
				return err
			}
		}
	}

	parent.node.Internal = append(parent.node.Internal[:rightIdx], parent.node.Internal[rightIdx+1:]...)

	if err := left.release(true); err != nil {
		right.release(false)
		parent.release(false)
		return err
	}
	if err := right.free(); err != nil {
		parent.release(false)
		return err
	}
	if hasFixNext {
		if err := t.fixPrevPointer(fixNext, left.node.PageID); err != nil {
			parent.release(false)
			return err
		}
	}

	return t.afterShrink(parent)
}

// redistribute moves one entry across the left/right boundary. useLeft
// reports which side is the sibling donating the entry (true: the left
// node donates to the right; false: the right node donates to the left) —
// the same flag coalesceOrRedistribute used to pick the sibling in the
// first place, since the underflowed node never changes sides mid-call.
func (t *Tree) redistribute(left, right, parent *guard, rightIdx int, useLeft bool) error {
	if left.node.IsLeaf() {
		return t.redistributeLeaf(left, right, parent, rightIdx, useLeft)
	}
	return t.redistributeInternal(left, right, parent, rightIdx, useLeft)
}

// redistributeLeaf implements spec's leaf redistribute: borrowing from
// the left sibling moves its last entry to node's front; borrowing from
// the right moves its first entry to node's end. Either way the parent's
// separator at rightIdx (the slot always occupied by whichever of the
// pair is "right") is set to right's new first key.
func (t *Tree) redistributeLeaf(left, right, parent *guard, rightIdx int, useLeft bool) error {
	if useLeft {
		n := len(left.node.Leaves)
		borrowed := left.node.Leaves[n-1]
		left.node.Leaves = left.node.Leaves[:n-1]
		right.node.Leaves = append([]LeafEntry{borrowed}, right.node.Leaves...)
	} else {
		borrowed := right.node.Leaves[0]
		right.node.Leaves = right.node.Leaves[1:]
		left.node.Leaves = append(left.node.Leaves, borrowed)
	}
	parent.node.Internal[rightIdx].Key = right.node.Leaves[0].Key

	if err := left.release(true); err != nil {
		right.release(false)
		parent.release(false)
		return err
	}
	if err := right.release(true); err != nil {
		parent.release(false)
		return err
	}
	return parent.release(true)
}

// redistributeInternal implements the canonical internal-node rotation:
// the parent's middle key is pushed down to become the real key of the
// entry that crosses the boundary, and the key that used to be the
// dummy/real key on the donor side is promoted back up as the new
// separator. Preserves the invariant that slot 0 of every internal node
// stays a dummy.
func (t *Tree) redistributeInternal(left, right, parent *guard, rightIdx int, useLeft bool) error {
	midKey := parent.node.Internal[rightIdx].Key

	if useLeft {
		n := len(left.node.Internal)
		borrowed := left.node.Internal[n-1]
		left.node.Internal = left.node.Internal[:n-1]

		oldFirst := right.node.Internal[0]
		merged := make([]InternalEntry, 0, len(right.node.Internal)+1)
		merged = append(merged, InternalEntry{Key: nil, Child: borrowed.Child})
		merged = append(merged, InternalEntry{Key: midKey, Child: oldFirst.Child})
		merged = append(merged, right.node.Internal[1:]...)
		right.node.Internal = merged

		if err := t.reparent(borrowed.Child, right.node.PageID); err != nil {
			left.release(true)
			right.release(true)
			parent.release(false)
			return err
		}
		parent.node.Internal[rightIdx].Key = borrowed.Key
	} else {
		borrowed := right.node.Internal[0]
		right.node.Internal = right.node.Internal[1:]
		left.node.Internal = append(left.node.Internal, InternalEntry{Key: midKey, Child: borrowed.Child})

		if err := t.reparent(borrowed.Child, left.node.PageID); err != nil {
			left.release(true)
			right.release(true)
			parent.release(false)
			return err
		}
		newSep := right.node.Internal[0].Key
		right.node.Internal[0] = InternalEntry{Key: nil, Child: right.node.Internal[0].Child}
		parent.node.Internal[rightIdx].Key = newSep
	}

	if err := left.release(true); err != nil {
		right.release(false)
		parent.release(false)
		return err
	}
	if err := right.release(true); err != nil {
		parent.release(false)
		return err
	}
	return parent.release(true)
}
