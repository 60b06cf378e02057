// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"errors"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/cobalt-gfx/cobalt/gpu"
)

// Buffer implements gpu.Buffer.
type Buffer struct {
	d     *Device
	buf   vk.Buffer
	span  memSpan
	cap   int64
	usage gpu.BufferUsage
	host  bool
}

// NewBuffer creates a buffer of the given capacity.
// Host-visible buffers are persistently mapped and support Store
// and Load; device-local buffers are written through commands.
func (d *Device) NewBuffer(cap int64, usage gpu.BufferUsage, hostVisible bool) (*Buffer, error) {
	if cap <= 0 {
		return nil, errors.New("vk: buffer capacity must be positive")
	}
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(cap),
		Usage:       convBufferUsage(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var buf vk.Buffer
	if err := resErr(vk.CreateBuffer(d.dev, &info, nil, &buf)); err != nil {
		return nil, err
	}
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.dev, buf, &reqs)
	reqs.Deref()

	props := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if hostVisible {
		props = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	}
	typ, err := typeIndex(&d.memProps, reqs.MemoryTypeBits, props)
	if err != nil {
		vk.DestroyBuffer(d.dev, buf, nil)
		return nil, err
	}
	span, err := d.alloc.alloc(&reqs, typ, hostVisible)
	if err != nil {
		vk.DestroyBuffer(d.dev, buf, nil)
		return nil, err
	}
	if err := resErr(vk.BindBufferMemory(d.dev, buf, span.heap.mem, span.offset())); err != nil {
		d.alloc.free(span)
		vk.DestroyBuffer(d.dev, buf, nil)
		return nil, err
	}
	return &Buffer{
		d:     d,
		buf:   buf,
		span:  span,
		cap:   cap,
		usage: usage,
		host:  hostVisible,
	}, nil
}

// Destroy destroys the buffer and frees its memory.
func (b *Buffer) Destroy() {
	if b.buf == nil {
		return
	}
	vk.DestroyBuffer(b.d.dev, b.buf, nil)
	b.d.alloc.free(b.span)
	b.buf = nil
}

// Cap returns the capacity of the buffer in bytes.
func (b *Buffer) Cap() int64 { return b.cap }

// Usage returns the valid uses of the buffer.
func (b *Buffer) Usage() gpu.BufferUsage { return b.usage }

// Store copies data into a host-visible buffer at off.
func (b *Buffer) Store(off int64, data []byte) error {
	if !b.host {
		return errors.New("vk: Store on device-local buffer")
	}
	if off < 0 || off+int64(len(data)) > b.cap {
		return errors.New("vk: Store out of bounds")
	}
	p := unsafe.Add(b.span.heap.ptr, uintptr(b.span.offset())+uintptr(off))
	vk.Memcopy(p, data)
	return nil
}

// Load copies len(data) bytes from a host-visible buffer at off
// into data.
func (b *Buffer) Load(off int64, data []byte) error {
	if !b.host {
		return errors.New("vk: Load on device-local buffer")
	}
	if off < 0 || off+int64(len(data)) > b.cap {
		return errors.New("vk: Load out of bounds")
	}
	p := unsafe.Add(b.span.heap.ptr, uintptr(b.span.offset())+uintptr(off))
	copy(data, unsafe.Slice((*byte)(p), len(data)))
	return nil
}

func convBufferUsage(u gpu.BufferUsage) vk.BufferUsageFlags {
	var f vk.BufferUsageFlagBits
	if u&gpu.BufCopySrc != 0 {
		f |= vk.BufferUsageTransferSrcBit
	}
	if u&gpu.BufCopyDst != 0 {
		f |= vk.BufferUsageTransferDstBit
	}
	if u&gpu.BufUniform != 0 {
		f |= vk.BufferUsageUniformBufferBit
	}
	if u&gpu.BufStorage != 0 {
		f |= vk.BufferUsageStorageBufferBit
	}
	if u&gpu.BufIndex != 0 {
		f |= vk.BufferUsageIndexBufferBit
	}
	if u&gpu.BufVertex != 0 {
		f |= vk.BufferUsageVertexBufferBit
	}
	return vk.BufferUsageFlags(f)
}
