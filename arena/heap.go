package arena

import "unsafe"

// HeapHost serves slabs from the Go heap. Slabs are backed by []uint64 so
// they are always 8-byte aligned.
type HeapHost struct {
	allocated uintptr
	freed     uintptr
	slabs     int
}

func NewHeapHost() *HeapHost {
	return &HeapHost{}
}

func (h *HeapHost) AllocateSlab(size uintptr) ([]byte, error) {
	words := make([]uint64, (size+7)/8)
	slab := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), len(words)*8)
	h.allocated += uintptr(len(slab))
	h.slabs++
	return slab, nil
}

func (h *HeapHost) FreeSlab(slab []byte) {
	h.freed += uintptr(len(slab))
	h.slabs--
}

// Outstanding returns the number of bytes handed out and not yet freed.
func (h *HeapHost) Outstanding() uintptr {
	return h.allocated - h.freed
}

// Slabs returns the number of live slabs.
func (h *HeapHost) Slabs() int {
	return h.slabs
}
