// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package gfx

import "github.com/cobalt-gfx/cobalt/gpu"

// GraphicsPassCommand is a command valid inside a graphics pass.
type GraphicsPassCommand interface {
	recordGraphics(cb gpu.CommandBuffer) error

	// addTextures accumulates the subresources reachable through
	// the command into u, with the layouts shaders expect.
	addTextures(u *useSet)

	// addBuffers accumulates the buffer ranges reachable through
	// the command into b.
	addBuffers(b *bufSet)
}

// ComputePassCommand is a command valid inside a compute pass.
type ComputePassCommand interface {
	recordCompute(cb gpu.CommandBuffer) error
	addTextures(u *useSet)
	addBuffers(b *bufSet)
}

// BindDescriptorSets binds descriptor sets starting at set number
// First. It is valid in both graphics and compute passes; the
// resources reachable through the sets count as touched by the
// enclosing pass.
type BindDescriptorSets struct {
	First int
	Sets  []gpu.DescriptorSet
}

func (c *BindDescriptorSets) recordGraphics(cb gpu.CommandBuffer) error {
	return cb.BindGraphicsDescriptorSets(c.First, c.Sets)
}

func (c *BindDescriptorSets) recordCompute(cb gpu.CommandBuffer) error {
	return cb.BindComputeDescriptorSets(c.First, c.Sets)
}

func (c *BindDescriptorSets) addTextures(u *useSet) {
	for _, set := range c.Sets {
		for _, tb := range set.Textures() {
			u.addSlice(tb.Slice, tb.Layout)
		}
	}
}

func (c *BindDescriptorSets) addBuffers(b *bufSet) {
	for _, set := range c.Sets {
		for _, s := range set.Buffers() {
			b.add(s)
		}
	}
}

// BindVertexBuffers binds vertex buffer ranges starting at binding
// number First.
type BindVertexBuffers struct {
	First   int
	Buffers []gpu.BufferSlice
}

func (c *BindVertexBuffers) recordGraphics(cb gpu.CommandBuffer) error {
	return cb.BindVertexBuffers(c.First, c.Buffers)
}

func (c *BindVertexBuffers) addTextures(u *useSet) {}

func (c *BindVertexBuffers) addBuffers(b *bufSet) {
	for _, s := range c.Buffers {
		b.add(s)
	}
}

// BindIndexBuffer binds the index buffer.
type BindIndexBuffer struct {
	Buffer gpu.BufferSlice
	Type   gpu.IndexType
}

func (c *BindIndexBuffer) recordGraphics(cb gpu.CommandBuffer) error {
	return cb.BindIndexBuffer(c.Buffer, c.Type)
}

func (c *BindIndexBuffer) addTextures(u *useSet) {}
func (c *BindIndexBuffer) addBuffers(b *bufSet)  { b.add(c.Buffer) }

// PushConstants updates push constant data. It is valid in both
// graphics and compute passes.
type PushConstants struct {
	Stages gpu.ShaderStages
	Offset int
	Data   []byte
}

func (c *PushConstants) recordGraphics(cb gpu.CommandBuffer) error {
	return cb.PushConstants(c.Stages, c.Offset, c.Data)
}

func (c *PushConstants) recordCompute(cb gpu.CommandBuffer) error {
	return cb.PushConstants(c.Stages, c.Offset, c.Data)
}

func (c *PushConstants) addTextures(u *useSet) {}
func (c *PushConstants) addBuffers(b *bufSet)  {}

// Draw draws primitives.
type Draw struct {
	VertCount int
	InstCount int
	FirstVert int
	FirstInst int
}

func (c *Draw) recordGraphics(cb gpu.CommandBuffer) error {
	return cb.Draw(c.VertCount, c.InstCount, c.FirstVert, c.FirstInst)
}

func (c *Draw) addTextures(u *useSet) {}
func (c *Draw) addBuffers(b *bufSet)  {}

// DrawIndexed draws indexed primitives.
type DrawIndexed struct {
	IdxCount  int
	InstCount int
	FirstIdx  int
	VertOff   int
	FirstInst int
}

func (c *DrawIndexed) recordGraphics(cb gpu.CommandBuffer) error {
	return cb.DrawIndexed(c.IdxCount, c.InstCount, c.FirstIdx, c.VertOff, c.FirstInst)
}

func (c *DrawIndexed) addTextures(u *useSet) {}
func (c *DrawIndexed) addBuffers(b *bufSet)  {}

// Dispatch dispatches compute work groups.
type Dispatch struct {
	X, Y, Z int
}

func (c *Dispatch) recordCompute(cb gpu.CommandBuffer) error {
	return cb.Dispatch(c.X, c.Y, c.Z)
}

func (c *Dispatch) addTextures(u *useSet) {}
func (c *Dispatch) addBuffers(b *bufSet)  {}

// GraphicsPassEncoder records draw-scoped commands.
// Calling End appends the whole pass to the parent encoder as a
// single command; the encoder must not be used afterwards.
type GraphicsPassEncoder struct {
	enc      *CommandEncoder
	colors   []gpu.Attachment
	resolves []gpu.Attachment
	depth    *gpu.Attachment
	pipeline gpu.GraphicsPipeline
	commands []GraphicsPassCommand
}

// BindDescriptorSets binds descriptor sets for subsequent draws.
func (p *GraphicsPassEncoder) BindDescriptorSets(first int, sets []gpu.DescriptorSet) {
	p.commands = append(p.commands, &BindDescriptorSets{first, sets})
}

// BindVertexBuffers binds vertex buffers for subsequent draws.
func (p *GraphicsPassEncoder) BindVertexBuffers(first int, bufs []gpu.BufferSlice) {
	for i := range bufs {
		if bufs[i].Buffer.Usage()&gpu.BufVertex == 0 {
			panic("gfx: buffer missing BufVertex usage")
		}
	}
	p.commands = append(p.commands, &BindVertexBuffers{first, bufs})
}

// BindIndexBuffer binds the index buffer for subsequent indexed
// draws.
func (p *GraphicsPassEncoder) BindIndexBuffer(buf gpu.BufferSlice, typ gpu.IndexType) {
	if buf.Buffer.Usage()&gpu.BufIndex == 0 {
		panic("gfx: buffer missing BufIndex usage")
	}
	p.commands = append(p.commands, &BindIndexBuffer{buf, typ})
}

// PushConstants updates push constant data.
func (p *GraphicsPassEncoder) PushConstants(stages gpu.ShaderStages, off int, data []byte) {
	p.commands = append(p.commands, &PushConstants{stages, off, data})
}

// Draw draws primitives.
func (p *GraphicsPassEncoder) Draw(vertCount, instCount, firstVert, firstInst int) {
	p.commands = append(p.commands, &Draw{vertCount, instCount, firstVert, firstInst})
}

// DrawIndexed draws indexed primitives.
func (p *GraphicsPassEncoder) DrawIndexed(idxCount, instCount, firstIdx, vertOff, firstInst int) {
	p.commands = append(p.commands, &DrawIndexed{idxCount, instCount, firstIdx, vertOff, firstInst})
}

// End appends the pass to the parent encoder.
func (p *GraphicsPassEncoder) End() {
	p.enc.Push(&GraphicsPass{
		Colors:   p.colors,
		Resolves: p.resolves,
		Depth:    p.depth,
		Pipeline: p.pipeline,
		Commands: p.commands,
	})
	p.enc = nil
}

// ComputePassEncoder records dispatch-scoped commands.
// Calling End appends the whole pass to the parent encoder as a
// single command; the encoder must not be used afterwards.
type ComputePassEncoder struct {
	enc      *CommandEncoder
	pipeline gpu.ComputePipeline
	commands []ComputePassCommand
}

// BindDescriptorSets binds descriptor sets for subsequent
// dispatches.
func (p *ComputePassEncoder) BindDescriptorSets(first int, sets []gpu.DescriptorSet) {
	p.commands = append(p.commands, &BindDescriptorSets{first, sets})
}

// PushConstants updates push constant data.
func (p *ComputePassEncoder) PushConstants(stages gpu.ShaderStages, off int, data []byte) {
	p.commands = append(p.commands, &PushConstants{stages, off, data})
}

// Dispatch dispatches compute work groups.
func (p *ComputePassEncoder) Dispatch(x, y, z int) {
	p.commands = append(p.commands, &Dispatch{x, y, z})
}

// End appends the pass to the parent encoder.
func (p *ComputePassEncoder) End() {
	p.enc.Push(&ComputePass{
		Pipeline: p.pipeline,
		Commands: p.commands,
	})
	p.enc = nil
}
