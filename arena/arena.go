package arena

import (
	"unsafe"

	"go.uber.org/zap"

	jitlayout "github.com/wippyai/jit-layout"
	"github.com/wippyai/jit-layout/errors"
)

// pageHeader mirrors the descriptor reserved at the start of every slab.
type pageHeader struct {
	next  uintptr
	bytes uintptr
	used  uintptr
}

const pageHeaderSize = unsafe.Sizeof(pageHeader{})

type page struct {
	next     *page
	slab     []byte
	contents []byte
	bytes    uintptr
	used     uintptr
}

// Arena is a single-threaded bump-pointer allocator.
type Arena struct {
	host  jitlayout.SlabHost
	heap  *HeapHost
	first *page
	last  *page
	opts  Options

	// cursors into last.contents
	nextFree uintptr
	lastFree uintptr
}

// New creates an arena drawing pages from host. A nil host uses the Go heap.
func New(host jitlayout.SlabHost, opts Options) *Arena {
	if host == nil {
		host = NewHeapHost()
	}
	a := &Arena{
		host: host,
		opts: opts.normalized(),
	}
	if a.opts.Bypass {
		a.heap = NewHeapHost()
	}
	return a
}

// Alloc returns size bytes, rounded up to the pointer size. The memory lives
// until Destroy.
func (a *Arena) Alloc(size uintptr) []byte {
	errors.Assert(size != 0, func() *errors.Error {
		return errors.InvalidInput(errors.PhaseAlloc, "zero-size allocation")
	})

	rounded := roundUp(size, a.opts.PointerSize)
	if rounded < size {
		errors.Fatal(errors.Overflow(errors.PhaseAlloc, "allocation size", size))
	}

	var block []byte
	start := a.nextFree
	a.nextFree += rounded
	if a.last == nil || a.nextFree > a.lastFree || a.nextFree < start {
		block = a.allocateNewPage(rounded)
	} else {
		block = a.last.contents[start:a.nextFree:a.nextFree]
	}

	a.fill(block)
	return block[:size:size]
}

func (a *Arena) allocateNewPage(size uintptr) []byte {
	pageSize := pageHeaderSize + size
	if pageSize < size {
		errors.Fatal(errors.Overflow(errors.PhaseAlloc, "page size", size))
	}

	// Undo the bump that did not fit before closing out the previous page.
	if a.last != nil {
		a.nextFree -= size
		a.last.used = a.nextFree
	}

	var host jitlayout.SlabHost = a.host
	if a.opts.Bypass {
		host = a.heap
	} else {
		pageSize = roundUp(pageSize, a.opts.PageSize)
		if pageSize < size {
			errors.Fatal(errors.Overflow(errors.PhaseAlloc, "page size", size))
		}
	}

	slab, err := host.AllocateSlab(pageSize)
	if err != nil || uintptr(len(slab)) < pageSize {
		errors.Fatal(errors.AllocationFailed(errors.PhaseAlloc, pageSize, err))
	}

	p := &page{
		slab:     slab,
		contents: slab[pageHeaderSize:],
		bytes:    uintptr(len(slab)),
	}
	if a.last != nil {
		a.last.next = p
	} else {
		a.first = p
	}
	a.last = p

	a.nextFree = size
	a.lastFree = uintptr(len(p.contents))

	Logger().Debug("arena page allocated",
		zap.Uintptr("request", size),
		zap.Uintptr("page_bytes", p.bytes),
		zap.Bool("bypass", a.opts.Bypass))

	return p.contents[:size:size]
}

func (a *Arena) fill(block []byte) {
	switch a.opts.Fill {
	case FillZero:
		clear(block)
	case FillPattern:
		for i := range block {
			block[i] = a.opts.Pattern
		}
	}
}

// Destroy returns every page to the host. The arena may not be used
// afterwards; a second Destroy is a no-op.
func (a *Arena) Destroy() {
	for p := a.first; p != nil; {
		next := p.next
		if a.opts.Bypass {
			a.heap.FreeSlab(p.slab)
		} else {
			a.host.FreeSlab(p.slab)
		}
		p.next = nil
		p = next
	}
	a.first = nil
	a.last = nil
	a.nextFree = 0
	a.lastFree = 0
}

// TotalBytesAllocated returns the bytes obtained from the host, headers included.
func (a *Arena) TotalBytesAllocated() uintptr {
	var total uintptr
	for p := a.first; p != nil; p = p.next {
		total += p.bytes
	}
	return total
}

// TotalBytesUsed returns the bytes handed out to callers, after rounding.
func (a *Arena) TotalBytesUsed() uintptr {
	if a.last != nil {
		a.last.used = a.nextFree
	}
	var total uintptr
	for p := a.first; p != nil; p = p.next {
		total += p.used
	}
	return total
}

// PageCount returns the number of live pages.
func (a *Arena) PageCount() int {
	n := 0
	for p := a.first; p != nil; p = p.next {
		n++
	}
	return n
}

// PointerSize returns the allocation granularity.
func (a *Arena) PointerSize() uintptr {
	return a.opts.PointerSize
}

// Make carves a slice of n elements of T out of a. T must not contain Go
// pointers: arena pages are not scanned by the garbage collector.
func Make[T any](a *Arena, n int) []T {
	if n == 0 {
		return nil
	}
	var zero T
	elem := unsafe.Sizeof(zero)
	errors.Assert(unsafe.Alignof(zero) <= 8, func() *errors.Error {
		return errors.Unsupported(errors.PhaseAlloc, "element alignment above 8")
	})
	size := elem * uintptr(n)
	if n < 0 || (elem != 0 && size/elem != uintptr(n)) {
		errors.Fatal(errors.Overflow(errors.PhaseAlloc, "slice size", n))
	}
	if size == 0 {
		return make([]T, n)
	}
	buf := a.Alloc(size)
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(buf))), n)
}

func roundUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}
