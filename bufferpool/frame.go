package bufferpool

import "pagekit/diskmanager"

// Frame is one resident page: fixed PageSize bytes plus the bookkeeping the
// pool needs to know whether it can be evicted or must be flushed first.
// Grounded on storage_engine/page.Page, stripped of the LSN/WAL fields
// that belong to the opaque log manager.
type Frame struct {
	PageID   diskmanager.PageID
	Data     []byte
	PinCount int32
	IsDirty  bool
}

// MarkDirty sets the frame's sticky dirty flag. Once dirty, a frame stays
// dirty until the next successful flush — unpinning a clean page never
// clears it.
func (f *Frame) MarkDirty() {
	f.IsDirty = true
}
