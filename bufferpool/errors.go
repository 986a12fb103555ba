package bufferpool

import "errors"

var (
	// ErrPoolExhausted is returned by FetchPage/NewPage when every frame
	// is pinned and none can be evicted to make room.
	ErrPoolExhausted = errors.New("bufferpool: no free frame available, all pages pinned")
	// ErrPageNotResident is returned by UnpinPage/FlushPage for a page id
	// the pool doesn't currently hold. DeletePage treats a non-resident
	// page as a no-op instead.
	ErrPageNotResident = errors.New("bufferpool: page not resident in pool")
	// ErrPagePinned is returned by DeletePage when the page still has
	// outstanding pinners.
	ErrPagePinned = errors.New("bufferpool: cannot delete a pinned page")
	// ErrNotPinned is returned by UnpinPage when the page's pin count is
	// already zero.
	ErrNotPinned = errors.New("bufferpool: page is not pinned")
)
