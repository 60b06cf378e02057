// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package gfx

import "github.com/cobalt-gfx/cobalt/gpu"

// CommandEncoder builds a command list and synthesizes the pipeline
// barriers it needs.
//
// Every append inserts a provisional barrier before the command,
// transitioning each touched texture subresource to the layout the
// command requires. Format resolves the provisional fields and
// appends a final barrier restoring every texture to its initial
// layout. Record and Submit call Format when needed.
//
// A CommandEncoder must not be used concurrently from multiple
// goroutines.
type CommandEncoder struct {
	formatted bool
	features  gpu.DeviceFeatures
	commands  []Command
}

// New creates a new command encoder for dev.
func New(dev gpu.Device) *CommandEncoder {
	return &CommandEncoder{
		features: dev.Features(),
	}
}

// Len returns the number of commands in the list, provisional
// barriers included.
func (e *CommandEncoder) Len() int { return len(e.commands) }

// Push appends cmd to the list, preceded by a provisional barrier
// when cmd touches any resource.
// The barrier's source fields are placeholders until Format runs:
// source stage TopOfPipe, empty accesses, and each texture's initial
// layout as the transition source.
func (e *CommandEncoder) Push(cmd Command) {
	var textures []gpu.TextureAccessInfo
	for _, use := range cmd.textures() {
		textures = append(textures, gpu.TextureAccessInfo{
			Texture:   use.sub.Texture,
			BaseLevel: use.sub.Level,
			NumLevels: 1,
			BaseLayer: use.sub.Layer,
			NumLayers: 1,
			SrcAccess: gpu.ANone,
			DstAccess: gpu.ANone,
			SrcLayout: use.sub.Texture.InitialLayout(),
			DstLayout: use.layout,
		})
	}
	var buffers []gpu.BufferAccessInfo
	for _, s := range cmd.buffers() {
		buffers = append(buffers, gpu.BufferAccessInfo{
			Buffer:    s.Buffer,
			SrcAccess: gpu.ANone,
			DstAccess: gpu.ANone,
		})
	}
	if len(textures) > 0 || len(buffers) > 0 {
		e.commands = append(e.commands, &Barrier{
			SrcStage: gpu.STopOfPipe,
			DstStage: gpu.SBottomOfPipe,
			Buffers:  buffers,
			Textures: textures,
		})
	}
	e.commands = append(e.commands, cmd)
	e.formatted = false
}

// UpdateBuffer appends a command that writes data to buf at off.
func (e *CommandEncoder) UpdateBuffer(buf gpu.Buffer, off int64, data []byte) {
	if e.features&gpu.FeatTransfer == 0 {
		panic("gfx: device missing FeatTransfer")
	}
	if buf.Usage()&gpu.BufCopyDst == 0 {
		panic("gfx: buffer missing BufCopyDst usage")
	}
	if len(data) == 0 {
		panic("gfx: empty buffer update")
	}
	if off+int64(len(data)) > buf.Cap() {
		panic("gfx: buffer update out of bounds")
	}
	e.Push(&UpdateBuffer{Buffer: buf, Offset: off, Data: data})
}

// ClearTexture appends a command that clears t to value.
// The clear runs with the texture in the general layout.
func (e *CommandEncoder) ClearTexture(t gpu.TextureSlice, value gpu.ClearValue) {
	if e.features&gpu.FeatTransfer == 0 {
		panic("gfx: device missing FeatTransfer")
	}
	if t.Texture.Usage()&gpu.TexCopyDst == 0 {
		panic("gfx: texture missing TexCopyDst usage")
	}
	e.Push(&ClearTexture{Texture: t, Layout: gpu.LGeneral, Value: value})
}

// BlitTextures appends a command that copies the base level of src
// to the base level of dst with scaling and format conversion.
func (e *CommandEncoder) BlitTextures(src, dst gpu.TextureSlice, filter gpu.Filter) {
	if e.features&gpu.FeatTransfer == 0 {
		panic("gfx: device missing FeatTransfer")
	}
	if src.Texture.Usage()&gpu.TexCopySrc == 0 {
		panic("gfx: texture missing TexCopySrc usage")
	}
	if dst.Texture.Usage()&gpu.TexCopyDst == 0 {
		panic("gfx: texture missing TexCopyDst usage")
	}
	e.Push(&BlitTextures{
		Src:       src,
		SrcLayout: gpu.LCopySrc,
		Dst:       dst,
		DstLayout: gpu.LCopyDst,
		Filter:    filter,
	})
}

// ResolveTextures appends a command that resolves the samples of
// src into dst.
func (e *CommandEncoder) ResolveTextures(src, dst gpu.TextureSlice) {
	if src.Texture.Samples() <= dst.Texture.Samples() {
		panic("gfx: resolve source must have more samples than destination")
	}
	e.Push(&ResolveTextures{
		Src:       src,
		SrcLayout: gpu.LCopySrc,
		Dst:       dst,
		DstLayout: gpu.LCopyDst,
	})
}

// CopyBufferToBuffer appends a command that copies src into dst.
func (e *CommandEncoder) CopyBufferToBuffer(src, dst gpu.BufferSlice) {
	if e.features&gpu.FeatTransfer == 0 {
		panic("gfx: device missing FeatTransfer")
	}
	if src.Buffer.Usage()&gpu.BufCopySrc == 0 {
		panic("gfx: buffer missing BufCopySrc usage")
	}
	if dst.Buffer.Usage()&gpu.BufCopyDst == 0 {
		panic("gfx: buffer missing BufCopyDst usage")
	}
	if dst.Size < src.Size {
		panic("gfx: copy destination smaller than source")
	}
	e.Push(&CopyBufferToBuffer{Src: src, Dst: dst})
}

// CopyBufferToTexture appends a command that copies buffer data
// into the base level of dst.
func (e *CommandEncoder) CopyBufferToTexture(src gpu.BufferSlice, dst gpu.TextureSlice) {
	if e.features&gpu.FeatTransfer == 0 {
		panic("gfx: device missing FeatTransfer")
	}
	if src.Buffer.Usage()&gpu.BufCopySrc == 0 {
		panic("gfx: buffer missing BufCopySrc usage")
	}
	if dst.Texture.Usage()&gpu.TexCopyDst == 0 {
		panic("gfx: texture missing TexCopyDst usage")
	}
	if src.Size < dst.ByteSize() {
		panic("gfx: buffer smaller than texture data")
	}
	e.Push(&CopyBufferToTexture{Src: src, Dst: dst, DstLayout: gpu.LCopyDst})
}

// CopyTextureToBuffer appends a command that copies the base level
// of src into dst.
func (e *CommandEncoder) CopyTextureToBuffer(src gpu.TextureSlice, dst gpu.BufferSlice) {
	if e.features&gpu.FeatTransfer == 0 {
		panic("gfx: device missing FeatTransfer")
	}
	if src.Texture.Usage()&gpu.TexCopySrc == 0 {
		panic("gfx: texture missing TexCopySrc usage")
	}
	if dst.Buffer.Usage()&gpu.BufCopyDst == 0 {
		panic("gfx: buffer missing BufCopyDst usage")
	}
	if dst.Size < src.ByteSize() {
		panic("gfx: buffer smaller than texture data")
	}
	e.Push(&CopyTextureToBuffer{Src: src, SrcLayout: gpu.LCopySrc, Dst: dst})
}

// CopyTextureToTexture appends a command that copies the base level
// of src into the base level of dst.
func (e *CommandEncoder) CopyTextureToTexture(src, dst gpu.TextureSlice) {
	if e.features&gpu.FeatTransfer == 0 {
		panic("gfx: device missing FeatTransfer")
	}
	if src.Texture.Usage()&gpu.TexCopySrc == 0 {
		panic("gfx: texture missing TexCopySrc usage")
	}
	if dst.Texture.Usage()&gpu.TexCopyDst == 0 {
		panic("gfx: texture missing TexCopyDst usage")
	}
	if src.Texture.Extent() != dst.Texture.Extent() {
		panic("gfx: copy extents differ")
	}
	e.Push(&CopyTextureToTexture{
		Src:       src,
		SrcLayout: gpu.LCopySrc,
		Dst:       dst,
		DstLayout: gpu.LCopyDst,
	})
}

// WriteTimestamp appends a command that writes a timestamp query
// after the given stage completes.
func (e *CommandEncoder) WriteTimestamp(pool gpu.QueryPool, query int, stage gpu.Stage) {
	if query >= pool.Count() {
		panic("gfx: query index out of range")
	}
	e.Push(&WriteTimestamp{Pool: pool, Query: query, Stage: stage})
}

// ResetQueryPool appends a command that resets a range of queries.
func (e *CommandEncoder) ResetQueryPool(pool gpu.QueryPool, first, count int) {
	if first+count > pool.Count() {
		panic("gfx: query range out of range")
	}
	e.Push(&ResetQueryPool{Pool: pool, First: first, Count: count})
}

// BeginGraphicsPass begins a graphics pass targeting the given
// attachments with pl bound.
// The attachment lists must match pl's pass layout.
func (e *CommandEncoder) BeginGraphicsPass(colors, resolves []gpu.Attachment, depth *gpu.Attachment, pl gpu.GraphicsPipeline) *GraphicsPassEncoder {
	if e.features&gpu.FeatGraphics == 0 {
		panic("gfx: device missing FeatGraphics")
	}
	pass := pl.PassLayout()
	if len(colors) != len(pass.Colors) || len(resolves) != len(pass.Resolves) {
		panic("gfx: attachment count does not match pass layout")
	}
	if depth != nil && pass.Depth == nil {
		panic("gfx: depth attachment without depth description in pass layout")
	}
	return &GraphicsPassEncoder{
		enc:      e,
		colors:   colors,
		resolves: resolves,
		depth:    depth,
		pipeline: pl,
	}
}

// BeginComputePass begins a compute pass with pl bound.
func (e *CommandEncoder) BeginComputePass(pl gpu.ComputePipeline) *ComputePassEncoder {
	if e.features&gpu.FeatCompute == 0 {
		panic("gfx: device missing FeatCompute")
	}
	return &ComputePassEncoder{
		enc:      e,
		pipeline: pl,
	}
}

// Record finalizes the command list if needed and replays it into
// cb, between Begin and End calls.
func (e *CommandEncoder) Record(cb gpu.CommandBuffer, oneTime bool) error {
	if !e.formatted {
		if err := e.Format(); err != nil {
			return err
		}
	}
	if err := cb.Begin(oneTime); err != nil {
		return err
	}
	for _, cmd := range e.commands {
		if err := cmd.record(cb); err != nil {
			return err
		}
	}
	return cb.End()
}

// Submit records the command list into cb and submits it.
func (e *CommandEncoder) Submit(cb gpu.CommandBuffer, oneTime bool) error {
	if err := e.Record(cb, oneTime); err != nil {
		return err
	}
	return cb.Submit()
}
