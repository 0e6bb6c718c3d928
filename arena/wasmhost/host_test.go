package wasmhost

import (
	"context"
	"testing"

	"github.com/wippyai/jit-layout/arena"
)

func newHost(t *testing.T, maxPages uint32) *Host {
	t.Helper()
	ctx := context.Background()
	h, err := New(ctx, Config{MaxPages: maxPages}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { h.Close(ctx) })
	return h
}

func TestMemoryModule(t *testing.T) {
	bin := memoryModule(16)
	if string(bin[:4]) != "\x00asm" {
		t.Fatalf("bad magic %x", bin[:4])
	}
	// memory section: id, size, count, flags, min, max
	want := []byte{0x05, 0x04, 0x01, 0x01, 0x00, 0x10}
	for i, b := range want {
		if bin[8+i] != b {
			t.Fatalf("memory section byte %d = %#x, want %#x", i, bin[8+i], b)
		}
	}
}

func TestAllocateSlab(t *testing.T) {
	h := newHost(t, 8)

	slab, err := h.AllocateSlab(100)
	if err != nil {
		t.Fatalf("AllocateSlab: %v", err)
	}
	if len(slab) != WasmPageSize {
		t.Errorf("len = %d, want %d", len(slab), WasmPageSize)
	}

	slab[0] = 0xAB
	off, ok := h.Offset(slab)
	if !ok {
		t.Fatal("slab not tracked")
	}
	view, ok := h.Memory().Read(off, 1)
	if !ok || view[0] != 0xAB {
		t.Errorf("write did not reach guest memory")
	}

	second, err := h.AllocateSlab(WasmPageSize + 1)
	if err != nil {
		t.Fatalf("AllocateSlab: %v", err)
	}
	if len(second) != 2*WasmPageSize {
		t.Errorf("len = %d, want %d", len(second), 2*WasmPageSize)
	}
	if slab[0] != 0xAB {
		t.Error("first slab view moved after grow")
	}
}

func TestFreeSlabReuse(t *testing.T) {
	h := newHost(t, 4)

	a, _ := h.AllocateSlab(10)
	offA, _ := h.Offset(a)
	h.FreeSlab(a)

	b, err := h.AllocateSlab(20)
	if err != nil {
		t.Fatalf("AllocateSlab: %v", err)
	}
	offB, _ := h.Offset(b)
	if offA != offB {
		t.Errorf("freed slab not reused: %d vs %d", offA, offB)
	}
	if h.Memory().Size() != WasmPageSize {
		t.Errorf("memory grew to %d, want one page", h.Memory().Size())
	}
}

func TestExhaustion(t *testing.T) {
	h := newHost(t, 2)

	if _, err := h.AllocateSlab(2 * WasmPageSize); err != nil {
		t.Fatalf("AllocateSlab: %v", err)
	}
	if _, err := h.AllocateSlab(1); err == nil {
		t.Fatal("expected exhaustion error")
	}
}

func TestArenaOnGuestMemory(t *testing.T) {
	h := newHost(t, 16)
	a := arena.New(h, arena.DefaultOptions())

	segs := arena.Make[uint32](a, 4)
	for i := range segs {
		segs[i] = uint32(i + 1)
	}
	a.Alloc(100_000)
	if a.PageCount() != 2 {
		t.Errorf("PageCount = %d, want 2", a.PageCount())
	}
	if segs[3] != 4 {
		t.Error("arena data lost across page growth")
	}

	a.Destroy()
	if len(h.live) != 0 {
		t.Errorf("%d slabs still live after Destroy", len(h.live))
	}
}
