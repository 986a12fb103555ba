package btree

import "errors"

var (
	// ErrPoolExhausted surfaces a buffer pool out-of-frames condition to
	// the caller as a fatal error for the current operation.
	ErrPoolExhausted = errors.New("btree: buffer pool exhausted")
	// ErrUnknownNodeType means a page's type tag didn't decode to leaf or
	// internal: corruption, or a page used for something else entirely.
	ErrUnknownNodeType = errors.New("btree: unknown or corrupt node type")
	// ErrPageOverflow means an encode or decode ran past the page bounds.
	ErrPageOverflow = errors.New("btree: node entry overflowed page bounds")
	// ErrIteratorExhausted is returned by Iterator.Key/Value once Valid is
	// false.
	ErrIteratorExhausted = errors.New("btree: iterator has no current entry")
)
