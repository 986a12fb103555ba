// Package bufferpool implements the fixed-capacity buffer pool manager: a
// frame table backed by a free list and an LRU replacer, pin-counted
// fetch/new/unpin/flush/delete over a disk manager. One mutex guards the
// whole pool; no operation suspends while holding it (eviction never
// blocks on I/O from another goroutine, it performs its own synchronous
// write). Grounded on storage_engine/bufferpool/bufferpool.go's
// Fetch/New/Unpin/Flush/Delete shape, with the WAL/LSN flush gate removed
// since the log manager is an external, opaque collaborator here.
package bufferpool

import (
	"sync"

	"pagekit/diskmanager"
	"pagekit/pagelog"

	"github.com/sirupsen/logrus"
)

// BufferPool is the buffer pool manager.
type BufferPool struct {
	mu        sync.Mutex
	frames    []Frame
	pageTable map[diskmanager.PageID]FrameID
	free      []FrameID
	replacer  Replacer
	disk      diskmanager.Manager
	log       *logrus.Entry

	hits, misses, evictions uint64
}

// New returns a buffer pool with room for capacity resident pages, backed
// by disk.
func New(capacity int, disk diskmanager.Manager) *BufferPool {
	free := make([]FrameID, capacity)
	for i := 0; i < capacity; i++ {
		free[i] = FrameID(capacity - 1 - i)
	}
	return &BufferPool{
		frames:    make([]Frame, capacity),
		pageTable: make(map[diskmanager.PageID]FrameID, capacity),
		free:      free,
		replacer:  NewLRUReplacer(capacity),
		disk:      disk,
		log:       pagelog.For("bufferpool"),
	}
}

// Capacity returns the fixed frame count.
func (bp *BufferPool) Capacity() int { return len(bp.frames) }

// Stats returns cumulative hit/miss/eviction counters for diagnostics.
func (bp *BufferPool) Stats() (hits, misses, evictions uint64) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.hits, bp.misses, bp.evictions
}

// FetchPage returns the frame holding id, loading it from disk on a miss.
// The returned frame is pinned; the caller must call UnpinPage when done.
func (bp *BufferPool) FetchPage(id diskmanager.PageID) (*Frame, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if fid, ok := bp.pageTable[id]; ok {
		f := &bp.frames[fid]
		f.PinCount++
		bp.replacer.Pin(fid)
		bp.hits++
		pagelog.PageEvent(bp.log, "hit", int64(id), logrus.Fields{"pin_count": f.PinCount})
		return f, nil
	}

	bp.misses++
	pagelog.PageEvent(bp.log, "miss", int64(id), nil)

	fid, err := bp.allocFrame()
	if err != nil {
		return nil, err
	}

	data := make([]byte, diskmanager.PageSize)
	if err := bp.disk.ReadPage(id, data); err != nil {
		bp.free = append(bp.free, fid)
		return nil, err
	}

	f := &bp.frames[fid]
	*f = Frame{PageID: id, Data: data, PinCount: 1, IsDirty: false}
	bp.pageTable[id] = fid
	return f, nil
}

// NewPage allocates a brand new page on disk, pins it, and returns its
// frame with a zeroed payload ready for the caller to initialize.
func (bp *BufferPool) NewPage() (*Frame, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	fid, err := bp.allocFrame()
	if err != nil {
		return nil, err
	}

	id, err := bp.disk.AllocatePage()
	if err != nil {
		bp.free = append(bp.free, fid)
		return nil, err
	}

	f := &bp.frames[fid]
	*f = Frame{PageID: id, Data: make([]byte, diskmanager.PageSize), PinCount: 1, IsDirty: false}
	bp.pageTable[id] = fid
	pagelog.PageEvent(bp.log, "new", int64(id), nil)
	return f, nil
}

// UnpinPage decrements id's pin count. If isDirty, the frame's sticky
// dirty flag is set regardless of its previous value. Once the pin count
// reaches zero the frame becomes eligible for eviction again. Fails if id
// is not resident or its pin count is already zero.
func (bp *BufferPool) UnpinPage(id diskmanager.PageID, isDirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	fid, ok := bp.pageTable[id]
	if !ok {
		return ErrPageNotResident
	}
	f := &bp.frames[fid]
	if f.PinCount == 0 {
		return ErrNotPinned
	}
	if isDirty {
		f.MarkDirty()
	}
	f.PinCount--
	if f.PinCount == 0 {
		bp.replacer.Unpin(fid)
	}
	return nil
}

// FlushPage writes id to disk unconditionally, whether or not its dirty
// flag is set, then clears the flag. Fails if id is not resident.
func (bp *BufferPool) FlushPage(id diskmanager.PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	fid, ok := bp.pageTable[id]
	if !ok {
		return ErrPageNotResident
	}
	f := &bp.frames[fid]
	if err := bp.disk.WritePage(id, f.Data); err != nil {
		return err
	}
	f.IsDirty = false
	pagelog.PageEvent(bp.log, "flush", int64(id), nil)
	return nil
}

// FlushAllPages writes every dirty resident page to disk, unlike FlushPage
// this skips pages whose dirty flag is already clear.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for id, fid := range bp.pageTable {
		f := &bp.frames[fid]
		if !f.IsDirty {
			continue
		}
		if err := bp.disk.WritePage(id, f.Data); err != nil {
			return err
		}
		f.IsDirty = false
		pagelog.PageEvent(bp.log, "flush", int64(id), nil)
	}
	return nil
}

// DeletePage removes id from the pool and deallocates it on disk. Refuses
// if the page is still pinned. Deleting a non-resident page is a no-op.
func (bp *BufferPool) DeletePage(id diskmanager.PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	fid, ok := bp.pageTable[id]
	if !ok {
		return nil
	}
	f := &bp.frames[fid]
	if f.PinCount > 0 {
		return ErrPagePinned
	}

	bp.replacer.Pin(fid) // drop replacer membership before recycling the frame
	delete(bp.pageTable, id)
	bp.free = append(bp.free, fid)
	return bp.disk.DeallocatePage(id)
}

// allocFrame returns a frame id ready to hold a new page, taking from the
// free list first and evicting via the replacer only once the pool is at
// capacity. Caller must hold bp.mu.
func (bp *BufferPool) allocFrame() (FrameID, error) {
	if n := len(bp.free); n > 0 {
		fid := bp.free[n-1]
		bp.free = bp.free[:n-1]
		return fid, nil
	}

	fid, ok := bp.replacer.Victim()
	if !ok {
		return 0, ErrPoolExhausted
	}

	victim := &bp.frames[fid]
	if victim.IsDirty {
		if err := bp.disk.WritePage(victim.PageID, victim.Data); err != nil {
			bp.replacer.Unpin(fid) // give the frame back, eviction failed
			return 0, err
		}
	}
	bp.evictions++
	pagelog.PageEvent(bp.log, "evict", int64(victim.PageID), logrus.Fields{"was_dirty": victim.IsDirty})
	delete(bp.pageTable, victim.PageID)
	return fid, nil
}
