// Package txn supplies the passive transaction token threaded through the
// tree's public API. It allocates ids; it does not track state, undo logs,
// or isolation, all of which belong to a transaction manager outside this
// module's scope.
package txn

import "sync/atomic"

// ID identifies a transaction. The zero value means "no transaction" and is
// accepted by every tree operation as a single-statement, auto-commit call.
type ID uint64

// None is the zero transaction, used by callers that don't hold a token.
const None ID = 0

// Allocator hands out monotonically increasing transaction ids, grounded on
// the teacher's TxnManager.Begin counter.
type Allocator struct {
	next atomic.Uint64
}

// NewAllocator returns an Allocator whose first Begin() returns 1.
func NewAllocator() *Allocator {
	a := &Allocator{}
	a.next.Store(1)
	return a
}

// Begin allocates and returns the next transaction id.
func (a *Allocator) Begin() ID {
	return ID(a.next.Add(1) - 1)
}
