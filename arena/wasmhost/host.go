// Package wasmhost backs arena pages with the linear memory of a wazero
// module, so everything a compilation unit allocates sits in guest-visible
// memory.
//
// The module exports a single memory whose capacity is reserved up front
// from its maximum, which keeps slab views stable across Grow. Linear memory
// never shrinks: freed slabs go to a free list keyed by size and are reused
// by later requests.
package wasmhost

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/jit-layout/errors"
)

// WasmPageSize is the wasm linear memory page size.
const WasmPageSize = 65536

// Config holds configuration for host creation
type Config struct {
	// MaxPages caps the linear memory in wasm pages (64KB each).
	// 0 means 1024 pages (64MB).
	MaxPages uint32
}

// Host is a jitlayout.SlabHost over a wazero memory. Safe for concurrent
// use so several arenas can share one guest.
type Host struct {
	rt     wazero.Runtime
	mod    api.Module
	mem    api.Memory
	logger *zap.Logger
	free   map[uint32][]uint32
	live   map[*byte]uint32
	mu     sync.Mutex
}

// New instantiates a memory-only module and returns a host serving slabs
// from it.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Host, error) {
	maxPages := cfg.MaxPages
	if maxPages == 0 {
		maxPages = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rtCfg := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(maxPages).
		WithMemoryCapacityFromMax(true)
	rt := wazero.NewRuntimeWithConfig(ctx, rtCfg)

	mod, err := rt.Instantiate(ctx, memoryModule(maxPages))
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseHostSlab, errors.KindNotInitialized, err, "instantiate memory module")
	}

	mem := mod.ExportedMemory("memory")
	if mem == nil {
		rt.Close(ctx)
		return nil, errors.NotFound(errors.PhaseHostSlab, "export", "memory")
	}

	return &Host{
		rt:     rt,
		mod:    mod,
		mem:    mem,
		logger: logger,
		free:   make(map[uint32][]uint32),
		live:   make(map[*byte]uint32),
	}, nil
}

// AllocateSlab grows the guest memory by whole wasm pages, or reuses a freed
// slab of the same rounded size.
func (h *Host) AllocateSlab(size uintptr) ([]byte, error) {
	if size == 0 || size > uintptr(^uint32(0))-WasmPageSize {
		return nil, errors.Overflow(errors.PhaseHostSlab, "slab size", size)
	}
	pages := uint32((size + WasmPageSize - 1) / WasmPageSize)
	length := pages * WasmPageSize

	h.mu.Lock()
	defer h.mu.Unlock()

	var offset uint32
	if offs := h.free[length]; len(offs) > 0 {
		offset = offs[len(offs)-1]
		h.free[length] = offs[:len(offs)-1]
	} else {
		prev, ok := h.mem.Grow(pages)
		if !ok {
			return nil, errors.AllocationFailed(errors.PhaseHostSlab, size,
				fmt.Errorf("grow by %d pages from %d failed", pages, h.mem.Size()/WasmPageSize))
		}
		offset = prev * WasmPageSize
	}

	view, ok := h.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseHostSlab, nil, int(offset), int(h.mem.Size()))
	}
	clear(view)
	h.live[unsafe.SliceData(view)] = offset

	h.logger.Debug("guest slab allocated",
		zap.Uint32("offset", offset),
		zap.Uint32("bytes", length))
	return view, nil
}

// FreeSlab puts the slab on the free list. Guest memory is not returned.
func (h *Host) FreeSlab(slab []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := unsafe.SliceData(slab)
	offset, ok := h.live[key]
	if !ok {
		return
	}
	delete(h.live, key)
	length := uint32(len(slab))
	h.free[length] = append(h.free[length], offset)
}

// Offset returns the guest address of a slab handed out by this host.
func (h *Host) Offset(slab []byte) (uint32, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	off, ok := h.live[unsafe.SliceData(slab)]
	return off, ok
}

// Memory exposes the guest memory.
func (h *Host) Memory() api.Memory {
	return h.mem
}

// Close releases the wazero runtime and all guest memory.
func (h *Host) Close(ctx context.Context) error {
	return h.rt.Close(ctx)
}

// memoryModule encodes a module with one exported memory (min 0, max maxPages).
func memoryModule(maxPages uint32) []byte {
	bin := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	var limits []byte
	limits = append(limits, 0x01) // count
	limits = append(limits, 0x01) // flags: has max
	limits = binary.AppendUvarint(limits, 0)
	limits = binary.AppendUvarint(limits, uint64(maxPages))
	bin = append(bin, 0x05)
	bin = binary.AppendUvarint(bin, uint64(len(limits)))
	bin = append(bin, limits...)

	name := "memory"
	var exports []byte
	exports = append(exports, 0x01)
	exports = binary.AppendUvarint(exports, uint64(len(name)))
	exports = append(exports, name...)
	exports = append(exports, 0x02, 0x00) // memory 0
	bin = append(bin, 0x07)
	bin = binary.AppendUvarint(bin, uint64(len(exports)))
	bin = append(bin, exports...)

	return bin
}
