// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"errors"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/cobalt-gfx/cobalt/gpu"
)

// DescKind is the type of a descriptor binding.
type DescKind int

// Descriptor kinds.
const (
	DescUniform DescKind = iota
	DescStorageBuffer
	DescSampledTexture
	DescStorageTexture
)

func (k DescKind) vkType() vk.DescriptorType {
	switch k {
	case DescUniform:
		return vk.DescriptorTypeUniformBuffer
	case DescStorageBuffer:
		return vk.DescriptorTypeStorageBuffer
	case DescSampledTexture:
		return vk.DescriptorTypeCombinedImageSampler
	case DescStorageTexture:
		return vk.DescriptorTypeStorageImage
	}
	return vk.DescriptorTypeUniformBuffer
}

// DescEntry describes one binding of a descriptor set layout.
type DescEntry struct {
	Binding int
	Kind    DescKind
	Stages  gpu.ShaderStages
}

// DescLayout wraps a descriptor set layout.
type DescLayout struct {
	d       *Device
	layout  vk.DescriptorSetLayout
	entries []DescEntry
}

// NewDescLayout creates a descriptor set layout.
func (d *Device) NewDescLayout(entries []DescEntry) (*DescLayout, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, len(entries))
	for i, e := range entries {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(e.Binding),
			DescriptorType:  e.Kind.vkType(),
			DescriptorCount: 1,
			StageFlags:      convShaderStages(e.Stages),
		}
	}
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if err := resErr(vk.CreateDescriptorSetLayout(d.dev, &info, nil, &layout)); err != nil {
		return nil, err
	}
	return &DescLayout{d: d, layout: layout, entries: entries}, nil
}

// Destroy destroys the layout. Sets allocated from it must be
// destroyed first.
func (l *DescLayout) Destroy() {
	if l.layout != nil {
		vk.DestroyDescriptorSetLayout(l.d.dev, l.layout, nil)
		l.layout = nil
	}
}

// Sampler wraps a texture sampler.
type Sampler struct {
	d *Device
	s vk.Sampler
}

// NewSampler creates a sampler with the given filter for both
// magnification and minification.
func (d *Device) NewSampler(filter gpu.Filter) (*Sampler, error) {
	info := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    convFilter(filter),
		MinFilter:    convFilter(filter),
		MipmapMode:   vk.SamplerMipmapModeNearest,
		AddressModeU: vk.SamplerAddressModeClampToEdge,
		AddressModeV: vk.SamplerAddressModeClampToEdge,
		AddressModeW: vk.SamplerAddressModeClampToEdge,
		MaxLod:       vk.LodClampNone,
	}
	var s vk.Sampler
	if err := resErr(vk.CreateSampler(d.dev, &info, nil, &s)); err != nil {
		return nil, err
	}
	return &Sampler{d: d, s: s}, nil
}

// Destroy destroys the sampler.
func (s *Sampler) Destroy() {
	if s.s != nil {
		vk.DestroySampler(s.d.dev, s.s, nil)
		s.s = nil
	}
}

// DescriptorSet implements gpu.DescriptorSet. It records the
// resources written into it so that command scheduling can account
// for everything shaders may reach through the set.
type DescriptorSet struct {
	d      *Device
	layout *DescLayout
	pool   vk.DescriptorPool
	set    vk.DescriptorSet

	bufs map[int]gpu.BufferSlice
	texs map[int]gpu.TextureBinding
}

// NewDescriptorSet allocates a descriptor set of the given layout
// from a dedicated pool.
func (d *Device) NewDescriptorSet(layout *DescLayout) (*DescriptorSet, error) {
	counts := make(map[vk.DescriptorType]uint32)
	for _, e := range layout.entries {
		counts[e.Kind.vkType()]++
	}
	var sizes []vk.DescriptorPoolSize
	for t, n := range counts {
		sizes = append(sizes, vk.DescriptorPoolSize{Type: t, DescriptorCount: n})
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var pool vk.DescriptorPool
	if err := resErr(vk.CreateDescriptorPool(d.dev, &poolInfo, nil, &pool)); err != nil {
		return nil, err
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout.layout},
	}
	sets := make([]vk.DescriptorSet, 1)
	if err := resErr(vk.AllocateDescriptorSets(d.dev, &allocInfo, &sets[0])); err != nil {
		vk.DestroyDescriptorPool(d.dev, pool, nil)
		return nil, err
	}
	return &DescriptorSet{
		d:      d,
		layout: layout,
		pool:   pool,
		set:    sets[0],
		bufs:   make(map[int]gpu.BufferSlice),
		texs:   make(map[int]gpu.TextureBinding),
	}, nil
}

// Destroy destroys the set's pool, freeing the set with it.
func (s *DescriptorSet) Destroy() {
	if s.pool != nil {
		vk.DestroyDescriptorPool(s.d.dev, s.pool, nil)
		s.pool = nil
	}
}

// SetBuffer writes a buffer range into the given binding.
func (s *DescriptorSet) SetBuffer(binding int, slice gpu.BufferSlice) error {
	e, err := s.entry(binding)
	if err != nil {
		return err
	}
	if e.Kind != DescUniform && e.Kind != DescStorageBuffer {
		return errors.New("vk: binding does not hold a buffer")
	}
	buf, ok := slice.Buffer.(*Buffer)
	if !ok {
		return errors.New("vk: foreign buffer")
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          s.set,
		DstBinding:      uint32(binding),
		DescriptorCount: 1,
		DescriptorType:  e.Kind.vkType(),
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buf.buf,
			Offset: vk.DeviceSize(slice.Offset),
			Range:  vk.DeviceSize(slice.Size),
		}},
	}
	vk.UpdateDescriptorSets(s.d.dev, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	s.bufs[binding] = slice
	return nil
}

// SetTexture writes a texture view into the given binding.
// Sampled bindings need a sampler; storage bindings ignore it.
// The layout records what the shaders expect and drives barrier
// synthesis for passes that bind the set.
func (s *DescriptorSet) SetTexture(binding int, tb gpu.TextureBinding, smp *Sampler) error {
	e, err := s.entry(binding)
	if err != nil {
		return err
	}
	if e.Kind != DescSampledTexture && e.Kind != DescStorageTexture {
		return errors.New("vk: binding does not hold a texture")
	}
	tex, ok := tb.Slice.Texture.(*Texture)
	if !ok {
		return errors.New("vk: foreign texture")
	}
	view, err := tex.view(tb.Slice)
	if err != nil {
		return err
	}
	img := vk.DescriptorImageInfo{
		ImageView:   view,
		ImageLayout: convLayout(tb.Layout),
	}
	if e.Kind == DescSampledTexture {
		if smp == nil {
			return errors.New("vk: sampled binding needs a sampler")
		}
		img.Sampler = smp.s
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          s.set,
		DstBinding:      uint32(binding),
		DescriptorCount: 1,
		DescriptorType:  e.Kind.vkType(),
		PImageInfo:      []vk.DescriptorImageInfo{img},
	}
	vk.UpdateDescriptorSets(s.d.dev, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	s.texs[binding] = tb
	return nil
}

func (s *DescriptorSet) entry(binding int) (DescEntry, error) {
	for _, e := range s.layout.entries {
		if e.Binding == binding {
			return e, nil
		}
	}
	return DescEntry{}, errors.New("vk: no such binding")
}

// Buffers returns the buffer ranges written into the set.
func (s *DescriptorSet) Buffers() []gpu.BufferSlice {
	out := make([]gpu.BufferSlice, 0, len(s.bufs))
	for _, e := range s.layout.entries {
		if b, ok := s.bufs[e.Binding]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Textures returns the texture bindings written into the set.
func (s *DescriptorSet) Textures() []gpu.TextureBinding {
	out := make([]gpu.TextureBinding, 0, len(s.texs))
	for _, e := range s.layout.entries {
		if t, ok := s.texs[e.Binding]; ok {
			out = append(out, t)
		}
	}
	return out
}

// QueryPool implements gpu.QueryPool for timestamp queries.
type QueryPool struct {
	d     *Device
	qp    vk.QueryPool
	count int
}

// NewQueryPool creates a pool of timestamp queries.
func (d *Device) NewQueryPool(count int) (*QueryPool, error) {
	info := vk.QueryPoolCreateInfo{
		SType:      vk.StructureTypeQueryPoolCreateInfo,
		QueryType:  vk.QueryTypeTimestamp,
		QueryCount: uint32(count),
	}
	var qp vk.QueryPool
	if err := resErr(vk.CreateQueryPool(d.dev, &info, nil, &qp)); err != nil {
		return nil, err
	}
	return &QueryPool{d: d, qp: qp, count: count}, nil
}

// Destroy destroys the pool.
func (p *QueryPool) Destroy() {
	if p.qp != nil {
		vk.DestroyQueryPool(p.d.dev, p.qp, nil)
		p.qp = nil
	}
}

// Count returns the number of queries in the pool.
func (p *QueryPool) Count() int { return p.count }

// Results reads back the 64-bit timestamp values of a query range,
// waiting for them to become available.
func (p *QueryPool) Results(first, count int) ([]uint64, error) {
	out := make([]uint64, count)
	flags := vk.QueryResultFlags(vk.QueryResult64Bit | vk.QueryResultWaitBit)
	err := resErr(vk.GetQueryPoolResults(
		p.d.dev, p.qp, uint32(first), uint32(count),
		uint(count*8), unsafe.Pointer(&out[0]), 8, flags,
	))
	if err != nil {
		return nil, err
	}
	return out, nil
}
