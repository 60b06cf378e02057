// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package gfx

import (
	"fmt"

	"github.com/cobalt-gfx/cobalt/gpu"
)

// testDevice implements gpu.Device.
type testDevice struct {
	features gpu.DeviceFeatures
}

func newTestDevice() *testDevice {
	return &testDevice{features: gpu.FeatGraphics | gpu.FeatCompute | gpu.FeatTransfer}
}

func (d *testDevice) Features() gpu.DeviceFeatures { return d.features }

func (d *testDevice) NewCommandBuffer() (gpu.CommandBuffer, error) {
	return &testCmdBuffer{}, nil
}

// testTexture implements gpu.Texture.
type testTexture struct {
	levels    int
	layers    int
	samples   int
	extent    gpu.Dim3D
	format    gpu.PixelFmt
	usage     gpu.TextureUsage
	initial   gpu.Layout
	destroyed bool
}

func newTestTexture(levels, layers int, initial gpu.Layout) *testTexture {
	return &testTexture{
		levels:  levels,
		layers:  layers,
		samples: 1,
		extent:  gpu.Dim3D{Width: 64, Height: 64, Depth: 1},
		format:  gpu.RGBA8un,
		usage:   gpu.TexCopySrc | gpu.TexCopyDst | gpu.TexSampled | gpu.TexStorage | gpu.TexColorAttachment,
		initial: initial,
	}
}

func (t *testTexture) Destroy()                  { t.destroyed = true }
func (t *testTexture) InitialLayout() gpu.Layout { return t.initial }
func (t *testTexture) Levels() int               { return t.levels }
func (t *testTexture) Layers() int               { return t.layers }
func (t *testTexture) Samples() int              { return t.samples }
func (t *testTexture) Extent() gpu.Dim3D         { return t.extent }
func (t *testTexture) Format() gpu.PixelFmt      { return t.format }
func (t *testTexture) Usage() gpu.TextureUsage   { return t.usage }

// testBuffer implements gpu.Buffer.
type testBuffer struct {
	cap       int64
	usage     gpu.BufferUsage
	destroyed bool
}

func newTestBuffer(cap int64) *testBuffer {
	return &testBuffer{
		cap:   cap,
		usage: gpu.BufCopySrc | gpu.BufCopyDst | gpu.BufUniform | gpu.BufStorage | gpu.BufIndex | gpu.BufVertex,
	}
}

func (b *testBuffer) Destroy()               { b.destroyed = true }
func (b *testBuffer) Cap() int64             { return b.cap }
func (b *testBuffer) Usage() gpu.BufferUsage { return b.usage }

// testGraphicsPipeline implements gpu.GraphicsPipeline.
type testGraphicsPipeline struct {
	pass gpu.PassLayout
}

func (p *testGraphicsPipeline) Destroy()                    {}
func (p *testGraphicsPipeline) PassLayout() *gpu.PassLayout { return &p.pass }
func (p *testGraphicsPipeline) BlendCount() int             { return len(p.pass.Colors) }

// testComputePipeline implements gpu.ComputePipeline.
type testComputePipeline struct{}

func (p *testComputePipeline) Destroy() {}

// testDescriptorSet implements gpu.DescriptorSet.
type testDescriptorSet struct {
	bufs []gpu.BufferSlice
	texs []gpu.TextureBinding
}

func (s *testDescriptorSet) Destroy()                       {}
func (s *testDescriptorSet) Buffers() []gpu.BufferSlice     { return s.bufs }
func (s *testDescriptorSet) Textures() []gpu.TextureBinding { return s.texs }

// testCmdBuffer implements gpu.CommandBuffer, logging the name of
// every method called.
type testCmdBuffer struct {
	calls     []string
	begun     bool
	ended     bool
	submitted bool
}

func (c *testCmdBuffer) log(s string) { c.calls = append(c.calls, s) }

func (c *testCmdBuffer) Destroy() {}

func (c *testCmdBuffer) Begin(oneTime bool) error {
	if c.begun {
		return fmt.Errorf("Begin called twice")
	}
	c.begun = true
	c.log("begin")
	return nil
}

func (c *testCmdBuffer) End() error {
	c.ended = true
	c.log("end")
	return nil
}

func (c *testCmdBuffer) Reset() error {
	c.calls = nil
	c.begun = false
	c.ended = false
	c.submitted = false
	return nil
}

func (c *testCmdBuffer) Submit() error {
	if !c.ended {
		return fmt.Errorf("Submit before End")
	}
	c.submitted = true
	c.log("submit")
	return nil
}

func (c *testCmdBuffer) PipelineBarrier(srcStage, dstStage gpu.Stage, buffers []gpu.BufferAccessInfo, textures []gpu.TextureAccessInfo) error {
	c.log("barrier")
	return nil
}

func (c *testCmdBuffer) UpdateBuffer(buf gpu.Buffer, off int64, data []byte) error {
	c.log("updateBuffer")
	return nil
}

func (c *testCmdBuffer) ClearTexture(t gpu.TextureSlice, layout gpu.Layout, value gpu.ClearValue) error {
	c.log("clearTexture")
	return nil
}

func (c *testCmdBuffer) BlitTextures(src gpu.TextureSlice, srcLayout gpu.Layout, dst gpu.TextureSlice, dstLayout gpu.Layout, filter gpu.Filter) error {
	c.log("blitTextures")
	return nil
}

func (c *testCmdBuffer) ResolveTextures(src gpu.TextureSlice, srcLayout gpu.Layout, dst gpu.TextureSlice, dstLayout gpu.Layout) error {
	c.log("resolveTextures")
	return nil
}

func (c *testCmdBuffer) CopyBufferToBuffer(src, dst gpu.BufferSlice) error {
	c.log("copyBufferToBuffer")
	return nil
}

func (c *testCmdBuffer) CopyBufferToTexture(src gpu.BufferSlice, dst gpu.TextureSlice, dstLayout gpu.Layout) error {
	c.log("copyBufferToTexture")
	return nil
}

func (c *testCmdBuffer) CopyTextureToBuffer(src gpu.TextureSlice, srcLayout gpu.Layout, dst gpu.BufferSlice) error {
	c.log("copyTextureToBuffer")
	return nil
}

func (c *testCmdBuffer) CopyTextureToTexture(src gpu.TextureSlice, srcLayout gpu.Layout, dst gpu.TextureSlice, dstLayout gpu.Layout) error {
	c.log("copyTextureToTexture")
	return nil
}

func (c *testCmdBuffer) BeginGraphicsPass(colors, resolves []gpu.Attachment, depth *gpu.Attachment, pl gpu.GraphicsPipeline) error {
	c.log("beginGraphicsPass")
	return nil
}

func (c *testCmdBuffer) EndGraphicsPass() { c.log("endGraphicsPass") }

func (c *testCmdBuffer) BeginComputePass(pl gpu.ComputePipeline) error {
	c.log("beginComputePass")
	return nil
}

func (c *testCmdBuffer) BindGraphicsDescriptorSets(first int, sets []gpu.DescriptorSet) error {
	c.log("bindGraphicsDescriptorSets")
	return nil
}

func (c *testCmdBuffer) BindComputeDescriptorSets(first int, sets []gpu.DescriptorSet) error {
	c.log("bindComputeDescriptorSets")
	return nil
}

func (c *testCmdBuffer) BindVertexBuffers(first int, bufs []gpu.BufferSlice) error {
	c.log("bindVertexBuffers")
	return nil
}

func (c *testCmdBuffer) BindIndexBuffer(buf gpu.BufferSlice, typ gpu.IndexType) error {
	c.log("bindIndexBuffer")
	return nil
}

func (c *testCmdBuffer) PushConstants(stages gpu.ShaderStages, off int, data []byte) error {
	c.log("pushConstants")
	return nil
}

func (c *testCmdBuffer) Draw(vertCount, instCount, firstVert, firstInst int) error {
	c.log("draw")
	return nil
}

func (c *testCmdBuffer) DrawIndexed(idxCount, instCount, firstIdx, vertOff, firstInst int) error {
	c.log("drawIndexed")
	return nil
}

func (c *testCmdBuffer) Dispatch(x, y, z int) error {
	c.log("dispatch")
	return nil
}

func (c *testCmdBuffer) WriteTimestamp(pool gpu.QueryPool, query int, stage gpu.Stage) error {
	c.log("writeTimestamp")
	return nil
}

func (c *testCmdBuffer) ResetQueryPool(pool gpu.QueryPool, first, count int) error {
	c.log("resetQueryPool")
	return nil
}
