// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package gfx implements command encoding with automatic pipeline
// barrier synthesis.
// Commands appended to a CommandEncoder carry enough information to
// derive the barriers they need: the resources they touch, the stage
// they execute in, their access scopes and the texture layouts they
// require. Finalization resolves the barriers and restores every
// touched texture to its initial layout, so consecutive command lists
// compose without manual synchronization.
package gfx

import (
	"fmt"

	"github.com/cobalt-gfx/cobalt/gpu"
)

// Command is a single operation of a command list.
// The set of implementations is closed; use the CommandEncoder's
// methods to construct commands with their validation applied.
type Command interface {
	// record replays the command into cb.
	record(cb gpu.CommandBuffer) error

	// textures returns the texture subresources the command
	// touches, each with the layout it must be in, ordered and
	// de-duplicated.
	textures() []subresUse

	// layoutChanges returns the subresources whose layout
	// differs after the command executes from the layout it
	// required on entry.
	layoutChanges() []subresUse

	// buffers returns the buffer ranges the command touches.
	buffers() []gpu.BufferSlice

	// stage returns the pipeline stage the command executes in.
	stage() gpu.Stage

	// textureAccess returns the access scope of the command's
	// texture usage.
	textureAccess() gpu.Access

	// bufferAccess returns the access scope of the command's
	// buffer usage.
	bufferAccess() gpu.Access
}

// subresUse pairs a subresource with the layout a command requires
// it to be in (or leaves it in, for layout changes).
type subresUse struct {
	sub    gpu.Subres
	layout gpu.Layout
}

// useSet accumulates subresource uses preserving insertion order.
type useSet struct {
	m      map[gpu.Subres]int
	uses   []subresUse
	strict bool
}

func newUseSet(strict bool) *useSet {
	return &useSet{m: make(map[gpu.Subres]int), strict: strict}
}

// add records that sub must be in layout. Re-adding a subresource
// overwrites its layout, unless the set is strict, in which case a
// differing layout panics since the command cannot have the
// subresource in two layouts at once.
func (u *useSet) add(sub gpu.Subres, layout gpu.Layout) {
	if i, ok := u.m[sub]; ok {
		if u.strict && u.uses[i].layout != layout {
			panic(fmt.Sprintf("gfx: subresource required in two layouts (%d and %d)", u.uses[i].layout, layout))
		}
		u.uses[i].layout = layout
		return
	}
	u.m[sub] = len(u.uses)
	u.uses = append(u.uses, subresUse{sub, layout})
}

func (u *useSet) addSlice(s gpu.TextureSlice, layout gpu.Layout) {
	for _, sub := range s.Subresources() {
		u.add(sub, layout)
	}
}

func (u *useSet) addBase(s gpu.TextureSlice, layout gpu.Layout) {
	for _, sub := range s.BaseSubresources() {
		u.add(sub, layout)
	}
}

// bufSet accumulates buffer ranges preserving insertion order.
// Identity is the whole buffer; distinct ranges of one buffer
// collapse into a single entry.
type bufSet struct {
	m      map[gpu.Buffer]bool
	slices []gpu.BufferSlice
}

func newBufSet() *bufSet {
	return &bufSet{m: make(map[gpu.Buffer]bool)}
}

func (b *bufSet) add(s gpu.BufferSlice) {
	if b.m[s.Buffer] {
		return
	}
	b.m[s.Buffer] = true
	b.slices = append(b.slices, s)
}

// Barrier is an explicit execution/memory dependency.
// The encoder inserts provisional barriers before every command
// that touches resources; finalization fills in the source fields.
type Barrier struct {
	SrcStage gpu.Stage
	DstStage gpu.Stage
	Buffers  []gpu.BufferAccessInfo
	Textures []gpu.TextureAccessInfo
}

func (c *Barrier) record(cb gpu.CommandBuffer) error {
	return cb.PipelineBarrier(c.SrcStage, c.DstStage, c.Buffers, c.Textures)
}

func (c *Barrier) textures() []subresUse      { return nil }
func (c *Barrier) layoutChanges() []subresUse { return nil }
func (c *Barrier) buffers() []gpu.BufferSlice { return nil }
func (c *Barrier) stage() gpu.Stage           { return gpu.SNone }
func (c *Barrier) textureAccess() gpu.Access  { return gpu.ANone }
func (c *Barrier) bufferAccess() gpu.Access   { return gpu.ANone }

// UpdateBuffer writes Data to Buffer at Offset.
type UpdateBuffer struct {
	Buffer gpu.Buffer
	Offset int64
	Data   []byte
}

func (c *UpdateBuffer) record(cb gpu.CommandBuffer) error {
	return cb.UpdateBuffer(c.Buffer, c.Offset, c.Data)
}

func (c *UpdateBuffer) textures() []subresUse      { return nil }
func (c *UpdateBuffer) layoutChanges() []subresUse { return nil }

func (c *UpdateBuffer) buffers() []gpu.BufferSlice {
	return []gpu.BufferSlice{{Buffer: c.Buffer, Offset: c.Offset, Size: int64(len(c.Data))}}
}

func (c *UpdateBuffer) stage() gpu.Stage          { return gpu.SCopy }
func (c *UpdateBuffer) textureAccess() gpu.Access { return gpu.ACopyWrite }
func (c *UpdateBuffer) bufferAccess() gpu.Access  { return gpu.ACopyWrite }

// ClearTexture clears every subresource of Texture to Value.
type ClearTexture struct {
	Texture gpu.TextureSlice
	Layout  gpu.Layout
	Value   gpu.ClearValue
}

func (c *ClearTexture) record(cb gpu.CommandBuffer) error {
	return cb.ClearTexture(c.Texture, c.Layout, c.Value)
}

func (c *ClearTexture) textures() []subresUse {
	u := newUseSet(false)
	u.addSlice(c.Texture, c.Layout)
	return u.uses
}

func (c *ClearTexture) layoutChanges() []subresUse { return nil }
func (c *ClearTexture) buffers() []gpu.BufferSlice { return nil }
func (c *ClearTexture) stage() gpu.Stage           { return gpu.SCopy }
func (c *ClearTexture) textureAccess() gpu.Access  { return gpu.ACopyWrite }
func (c *ClearTexture) bufferAccess() gpu.Access   { return gpu.ANone }

// BlitTextures copies the base level of Src to the base level of
// Dst with scaling and format conversion.
type BlitTextures struct {
	Src       gpu.TextureSlice
	SrcLayout gpu.Layout
	Dst       gpu.TextureSlice
	DstLayout gpu.Layout
	Filter    gpu.Filter
}

func (c *BlitTextures) record(cb gpu.CommandBuffer) error {
	return cb.BlitTextures(c.Src, c.SrcLayout, c.Dst, c.DstLayout, c.Filter)
}

// Only the base mip of each slice is read/written.
func (c *BlitTextures) textures() []subresUse {
	u := newUseSet(false)
	u.addBase(c.Src, c.SrcLayout)
	u.addBase(c.Dst, c.DstLayout)
	return u.uses
}

func (c *BlitTextures) layoutChanges() []subresUse { return nil }
func (c *BlitTextures) buffers() []gpu.BufferSlice { return nil }
func (c *BlitTextures) stage() gpu.Stage           { return gpu.SCopy }
func (c *BlitTextures) textureAccess() gpu.Access  { return gpu.ACopyRead | gpu.ACopyWrite }
func (c *BlitTextures) bufferAccess() gpu.Access   { return gpu.ANone }

// ResolveTextures resolves the samples of Src into Dst.
type ResolveTextures struct {
	Src       gpu.TextureSlice
	SrcLayout gpu.Layout
	Dst       gpu.TextureSlice
	DstLayout gpu.Layout
}

func (c *ResolveTextures) record(cb gpu.CommandBuffer) error {
	return cb.ResolveTextures(c.Src, c.SrcLayout, c.Dst, c.DstLayout)
}

func (c *ResolveTextures) textures() []subresUse {
	u := newUseSet(false)
	u.addSlice(c.Src, c.SrcLayout)
	u.addSlice(c.Dst, c.DstLayout)
	return u.uses
}

func (c *ResolveTextures) layoutChanges() []subresUse { return nil }
func (c *ResolveTextures) buffers() []gpu.BufferSlice { return nil }
func (c *ResolveTextures) stage() gpu.Stage           { return gpu.SCopy }
func (c *ResolveTextures) textureAccess() gpu.Access  { return gpu.ACopyRead | gpu.ACopyWrite }
func (c *ResolveTextures) bufferAccess() gpu.Access   { return gpu.ANone }

// CopyBufferToBuffer copies Src into Dst.
type CopyBufferToBuffer struct {
	Src gpu.BufferSlice
	Dst gpu.BufferSlice
}

func (c *CopyBufferToBuffer) record(cb gpu.CommandBuffer) error {
	return cb.CopyBufferToBuffer(c.Src, c.Dst)
}

func (c *CopyBufferToBuffer) textures() []subresUse      { return nil }
func (c *CopyBufferToBuffer) layoutChanges() []subresUse { return nil }

func (c *CopyBufferToBuffer) buffers() []gpu.BufferSlice {
	b := newBufSet()
	b.add(c.Src)
	b.add(c.Dst)
	return b.slices
}

func (c *CopyBufferToBuffer) stage() gpu.Stage          { return gpu.SCopy }
func (c *CopyBufferToBuffer) textureAccess() gpu.Access { return gpu.ACopyRead | gpu.ACopyWrite }
func (c *CopyBufferToBuffer) bufferAccess() gpu.Access  { return gpu.ACopyRead | gpu.ACopyWrite }

// CopyBufferToTexture copies buffer data into the base level of a
// texture slice.
type CopyBufferToTexture struct {
	Src       gpu.BufferSlice
	Dst       gpu.TextureSlice
	DstLayout gpu.Layout
}

func (c *CopyBufferToTexture) record(cb gpu.CommandBuffer) error {
	return cb.CopyBufferToTexture(c.Src, c.Dst, c.DstLayout)
}

func (c *CopyBufferToTexture) textures() []subresUse {
	u := newUseSet(false)
	u.addBase(c.Dst, c.DstLayout)
	return u.uses
}

func (c *CopyBufferToTexture) layoutChanges() []subresUse { return nil }

func (c *CopyBufferToTexture) buffers() []gpu.BufferSlice {
	return []gpu.BufferSlice{c.Src}
}

func (c *CopyBufferToTexture) stage() gpu.Stage          { return gpu.SCopy }
func (c *CopyBufferToTexture) textureAccess() gpu.Access { return gpu.ACopyRead | gpu.ACopyWrite }
func (c *CopyBufferToTexture) bufferAccess() gpu.Access  { return gpu.ACopyRead | gpu.ACopyWrite }

// CopyTextureToBuffer copies the base level of a texture slice into
// a buffer.
type CopyTextureToBuffer struct {
	Src       gpu.TextureSlice
	SrcLayout gpu.Layout
	Dst       gpu.BufferSlice
}

func (c *CopyTextureToBuffer) record(cb gpu.CommandBuffer) error {
	return cb.CopyTextureToBuffer(c.Src, c.SrcLayout, c.Dst)
}

func (c *CopyTextureToBuffer) textures() []subresUse {
	u := newUseSet(false)
	u.addBase(c.Src, c.SrcLayout)
	return u.uses
}

func (c *CopyTextureToBuffer) layoutChanges() []subresUse { return nil }

func (c *CopyTextureToBuffer) buffers() []gpu.BufferSlice {
	return []gpu.BufferSlice{c.Dst}
}

func (c *CopyTextureToBuffer) stage() gpu.Stage          { return gpu.SCopy }
func (c *CopyTextureToBuffer) textureAccess() gpu.Access { return gpu.ACopyRead | gpu.ACopyWrite }
func (c *CopyTextureToBuffer) bufferAccess() gpu.Access  { return gpu.ACopyRead | gpu.ACopyWrite }

// CopyTextureToTexture copies the base level of Src into the base
// level of Dst.
type CopyTextureToTexture struct {
	Src       gpu.TextureSlice
	SrcLayout gpu.Layout
	Dst       gpu.TextureSlice
	DstLayout gpu.Layout
}

func (c *CopyTextureToTexture) record(cb gpu.CommandBuffer) error {
	return cb.CopyTextureToTexture(c.Src, c.SrcLayout, c.Dst, c.DstLayout)
}

func (c *CopyTextureToTexture) textures() []subresUse {
	u := newUseSet(false)
	u.addBase(c.Src, c.SrcLayout)
	u.addBase(c.Dst, c.DstLayout)
	return u.uses
}

func (c *CopyTextureToTexture) layoutChanges() []subresUse { return nil }
func (c *CopyTextureToTexture) buffers() []gpu.BufferSlice { return nil }
func (c *CopyTextureToTexture) stage() gpu.Stage           { return gpu.SCopy }
func (c *CopyTextureToTexture) textureAccess() gpu.Access  { return gpu.ACopyRead | gpu.ACopyWrite }
func (c *CopyTextureToTexture) bufferAccess() gpu.Access   { return gpu.ACopyRead | gpu.ACopyWrite }

// GraphicsPass is a render pass: attachments, a bound pipeline and
// the draw-scoped commands recorded between begin and end.
type GraphicsPass struct {
	Colors   []gpu.Attachment
	Resolves []gpu.Attachment
	Depth    *gpu.Attachment
	Pipeline gpu.GraphicsPipeline
	Commands []GraphicsPassCommand
}

func (c *GraphicsPass) record(cb gpu.CommandBuffer) error {
	if err := cb.BeginGraphicsPass(c.Colors, c.Resolves, c.Depth, c.Pipeline); err != nil {
		return err
	}
	for _, cmd := range c.Commands {
		if err := cmd.recordGraphics(cb); err != nil {
			return err
		}
	}
	cb.EndGraphicsPass()
	return nil
}

// textures returns the attachments in their initial pass layouts
// plus everything reachable through bound descriptor sets.
// A subresource used as more than one attachment, or required in
// two different layouts, is a static usage bug and panics.
func (c *GraphicsPass) textures() []subresUse {
	u := newUseSet(false)
	pass := c.Pipeline.PassLayout()
	for i := range c.Colors {
		c.addAttachment(u, &c.Colors[i], pass.Colors[i].Initial)
	}
	for i := range c.Resolves {
		c.addAttachment(u, &c.Resolves[i], pass.Resolves[i].Initial)
	}
	if c.Depth != nil {
		if pass.Depth == nil {
			panic("gfx: depth attachment without depth description in pass layout")
		}
		c.addAttachment(u, c.Depth, pass.Depth.Initial)
	}
	sub := newUseSet(true)
	for _, cmd := range c.Commands {
		cmd.addTextures(sub)
	}
	for _, use := range sub.uses {
		if _, ok := u.m[use.sub]; ok {
			panic("gfx: graphics pass binds one of its attachments as a shader resource")
		}
		u.add(use.sub, use.layout)
	}
	return u.uses
}

func (c *GraphicsPass) addAttachment(u *useSet, a *gpu.Attachment, layout gpu.Layout) {
	for _, sub := range a.View.Subresources() {
		if _, ok := u.m[sub]; ok {
			panic("gfx: graphics pass uses a subresource as multiple attachments")
		}
		u.add(sub, layout)
	}
}

// layoutChanges reports the layouts the pass leaves its attachments
// in, per the pipeline's pass description.
func (c *GraphicsPass) layoutChanges() []subresUse {
	u := newUseSet(false)
	pass := c.Pipeline.PassLayout()
	for i := range c.Colors {
		u.addSlice(c.Colors[i].View, pass.Colors[i].Final)
	}
	for i := range c.Resolves {
		u.addSlice(c.Resolves[i].View, pass.Resolves[i].Final)
	}
	if c.Depth != nil {
		u.addSlice(c.Depth.View, pass.Depth.Final)
	}
	return u.uses
}

func (c *GraphicsPass) buffers() []gpu.BufferSlice {
	b := newBufSet()
	for _, cmd := range c.Commands {
		cmd.addBuffers(b)
	}
	return b.slices
}

func (c *GraphicsPass) stage() gpu.Stage {
	return gpu.SFragmentShader | gpu.SDSEarly | gpu.SDSLate
}

func (c *GraphicsPass) textureAccess() gpu.Access { return gpu.AMemoryRead }
func (c *GraphicsPass) bufferAccess() gpu.Access  { return gpu.AMemoryRead }

// ComputePass is a bound compute pipeline and the dispatch-scoped
// commands recorded against it.
type ComputePass struct {
	Pipeline gpu.ComputePipeline
	Commands []ComputePassCommand
}

func (c *ComputePass) record(cb gpu.CommandBuffer) error {
	if err := cb.BeginComputePass(c.Pipeline); err != nil {
		return err
	}
	for _, cmd := range c.Commands {
		if err := cmd.recordCompute(cb); err != nil {
			return err
		}
	}
	return nil
}

func (c *ComputePass) textures() []subresUse {
	u := newUseSet(true)
	for _, cmd := range c.Commands {
		cmd.addTextures(u)
	}
	return u.uses
}

func (c *ComputePass) layoutChanges() []subresUse { return nil }

func (c *ComputePass) buffers() []gpu.BufferSlice {
	b := newBufSet()
	for _, cmd := range c.Commands {
		cmd.addBuffers(b)
	}
	return b.slices
}

func (c *ComputePass) stage() gpu.Stage          { return gpu.SComputeShader }
func (c *ComputePass) textureAccess() gpu.Access { return gpu.ANone }
func (c *ComputePass) bufferAccess() gpu.Access  { return gpu.ANone }

// WriteTimestamp writes a timestamp query after Stage completes.
// It touches no resources and needs no barrier.
type WriteTimestamp struct {
	Pool  gpu.QueryPool
	Query int
	Stage gpu.Stage
}

func (c *WriteTimestamp) record(cb gpu.CommandBuffer) error {
	return cb.WriteTimestamp(c.Pool, c.Query, c.Stage)
}

func (c *WriteTimestamp) textures() []subresUse      { return nil }
func (c *WriteTimestamp) layoutChanges() []subresUse { return nil }
func (c *WriteTimestamp) buffers() []gpu.BufferSlice { return nil }
func (c *WriteTimestamp) stage() gpu.Stage           { return gpu.SNone }
func (c *WriteTimestamp) textureAccess() gpu.Access  { return gpu.ANone }
func (c *WriteTimestamp) bufferAccess() gpu.Access   { return gpu.ANone }

// ResetQueryPool resets a range of queries.
type ResetQueryPool struct {
	Pool  gpu.QueryPool
	First int
	Count int
}

func (c *ResetQueryPool) record(cb gpu.CommandBuffer) error {
	return cb.ResetQueryPool(c.Pool, c.First, c.Count)
}

func (c *ResetQueryPool) textures() []subresUse      { return nil }
func (c *ResetQueryPool) layoutChanges() []subresUse { return nil }
func (c *ResetQueryPool) buffers() []gpu.BufferSlice { return nil }
func (c *ResetQueryPool) stage() gpu.Stage           { return gpu.SNone }
func (c *ResetQueryPool) textureAccess() gpu.Access  { return gpu.ANone }
func (c *ResetQueryPool) bufferAccess() gpu.Access   { return gpu.ANone }
