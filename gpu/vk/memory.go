// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"errors"
	"sync"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/cobalt-gfx/cobalt/internal/bitvec"
)

// Suballocation granularity and default heap size.
// blockSize covers the alignment of every resource we create; a
// requirement with larger alignment gets a dedicated heap.
const (
	blockSize  = 1024
	heapBlocks = 16384
)

// allocator suballocates device memory from large heaps, one bit
// per block. Dedicated heaps serve allocations that are too big or
// too aligned for block suballocation.
type allocator struct {
	dev vk.Device
	mu  sync.Mutex
	// Heaps grouped by memory type.
	heaps map[uint32][]*memHeap
}

type memHeap struct {
	mem       vk.DeviceMemory
	typ       uint32
	dedicated bool
	ptr       unsafe.Pointer
	bv        bitvec.V[uint32]
}

// memSpan is a suballocated range of a heap.
type memSpan struct {
	heap   *memHeap
	index  int
	blocks int
}

func (s *memSpan) offset() vk.DeviceSize {
	return vk.DeviceSize(s.index) * blockSize
}

func newAllocator(dev vk.Device) *allocator {
	return &allocator{
		dev:   dev,
		heaps: make(map[uint32][]*memHeap),
	}
}

// typeIndex finds a memory type matching typeBits and props.
func typeIndex(memProps *vk.PhysicalDeviceMemoryProperties, typeBits uint32, props vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		memProps.MemoryTypes[i].Deref()
		if memProps.MemoryTypes[i].PropertyFlags&props == props {
			return i, nil
		}
	}
	return 0, errors.New("vk: no suitable memory type")
}

// alloc suballocates reqs.Size bytes from a heap of the given
// memory type. When host is set, the heap is persistently mapped.
func (a *allocator) alloc(reqs *vk.MemoryRequirements, typ uint32, host bool) (memSpan, error) {
	if reqs.Alignment > blockSize || reqs.Size > blockSize*heapBlocks/2 {
		return a.allocDedicated(reqs, typ, host)
	}
	blocks := int((reqs.Size + blockSize - 1) / blockSize)

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, h := range a.heaps[typ] {
		if h.dedicated {
			continue
		}
		if idx, ok := h.bv.SearchRange(blocks); ok {
			for i := 0; i < blocks; i++ {
				h.bv.Set(idx + i)
			}
			return memSpan{heap: h, index: idx, blocks: blocks}, nil
		}
	}
	h, err := a.newHeap(typ, blockSize*heapBlocks, false, host)
	if err != nil {
		return memSpan{}, err
	}
	idx, _ := h.bv.SearchRange(blocks)
	for i := 0; i < blocks; i++ {
		h.bv.Set(idx + i)
	}
	return memSpan{heap: h, index: idx, blocks: blocks}, nil
}

func (a *allocator) allocDedicated(reqs *vk.MemoryRequirements, typ uint32, host bool) (memSpan, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	h, err := a.newHeap(typ, reqs.Size, true, host)
	if err != nil {
		return memSpan{}, err
	}
	return memSpan{heap: h}, nil
}

// newHeap allocates device memory and registers it. a.mu must be
// held.
func (a *allocator) newHeap(typ uint32, size vk.DeviceSize, dedicated, host bool) (*memHeap, error) {
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  size,
		MemoryTypeIndex: typ,
	}
	var mem vk.DeviceMemory
	if err := resErr(vk.AllocateMemory(a.dev, &info, nil, &mem)); err != nil {
		return nil, err
	}
	h := &memHeap{mem: mem, typ: typ, dedicated: dedicated}
	if host {
		if err := resErr(vk.MapMemory(a.dev, mem, 0, size, 0, &h.ptr)); err != nil {
			vk.FreeMemory(a.dev, mem, nil)
			return nil, err
		}
	}
	if !dedicated {
		h.bv.Grow(heapBlocks / 32)
	}
	a.heaps[typ] = append(a.heaps[typ], h)
	return h, nil
}

// free returns a span to its heap. Dedicated heaps are released
// back to the driver.
func (a *allocator) free(s memSpan) {
	if s.heap == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if s.heap.dedicated {
		a.removeHeap(s.heap)
		return
	}
	for i := 0; i < s.blocks; i++ {
		s.heap.bv.Unset(s.index + i)
	}
}

// removeHeap frees a heap's device memory. a.mu must be held.
func (a *allocator) removeHeap(h *memHeap) {
	if h.ptr != nil {
		vk.UnmapMemory(a.dev, h.mem)
	}
	vk.FreeMemory(a.dev, h.mem, nil)
	hs := a.heaps[h.typ]
	for i := range hs {
		if hs[i] == h {
			a.heaps[h.typ] = append(hs[:i], hs[i+1:]...)
			break
		}
	}
}

// destroy releases every heap.
func (a *allocator) destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, hs := range a.heaps {
		for _, h := range hs {
			if h.ptr != nil {
				vk.UnmapMemory(a.dev, h.mem)
			}
			vk.FreeMemory(a.dev, h.mem, nil)
		}
	}
	a.heaps = make(map[uint32][]*memHeap)
}
