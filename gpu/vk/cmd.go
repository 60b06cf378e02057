// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"errors"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/cobalt-gfx/cobalt/gpu"
)

// cmdBuffer implements gpu.CommandBuffer on a vk.CommandBuffer
// allocated from the device's pool.
type cmdBuffer struct {
	d  *Device
	cb vk.CommandBuffer

	// Layout of the most recently bound pipeline, for
	// descriptor set binds and push constants.
	gfxLayout  vk.PipelineLayout
	compLayout vk.PipelineLayout
	inPass     bool
}

// NewCommandBuffer allocates a command buffer from the device.
func (d *Device) NewCommandBuffer() (gpu.CommandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cbs := make([]vk.CommandBuffer, 1)
	if err := resErr(vk.AllocateCommandBuffers(d.dev, &info, cbs)); err != nil {
		return nil, err
	}
	return &cmdBuffer{d: d, cb: cbs[0]}, nil
}

// Destroy frees the command buffer back to the pool.
func (c *cmdBuffer) Destroy() {
	if c.cb != nil {
		vk.FreeCommandBuffers(c.d.dev, c.d.pool, 1, []vk.CommandBuffer{c.cb})
		c.cb = nil
	}
}

func (c *cmdBuffer) Begin(oneTime bool) error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if oneTime {
		info.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	return resErr(vk.BeginCommandBuffer(c.cb, &info))
}

func (c *cmdBuffer) End() error {
	return resErr(vk.EndCommandBuffer(c.cb))
}

func (c *cmdBuffer) Reset() error {
	return resErr(vk.ResetCommandBuffer(c.cb, 0))
}

func (c *cmdBuffer) Submit() error {
	return c.d.submit(c.cb)
}

// PipelineBarrier records the dependency. Fully consumed source
// stages arrive empty and fall back to top of pipe; destination
// stages of a trailing restore barrier fall back to bottom.
func (c *cmdBuffer) PipelineBarrier(srcStage, dstStage gpu.Stage, buffers []gpu.BufferAccessInfo, textures []gpu.TextureAccessInfo) error {
	var bufBarriers []vk.BufferMemoryBarrier
	for i := range buffers {
		buf, ok := buffers[i].Buffer.(*Buffer)
		if !ok {
			return errors.New("vk: foreign buffer")
		}
		bufBarriers = append(bufBarriers, vk.BufferMemoryBarrier{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       convAccess(buffers[i].SrcAccess),
			DstAccessMask:       convAccess(buffers[i].DstAccess),
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Buffer:              buf.buf,
			Offset:              0,
			Size:                vk.DeviceSize(vk.WholeSize),
		})
	}
	var imgBarriers []vk.ImageMemoryBarrier
	for i := range textures {
		tex, ok := textures[i].Texture.(*Texture)
		if !ok {
			return errors.New("vk: foreign texture")
		}
		imgBarriers = append(imgBarriers, vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       convAccess(textures[i].SrcAccess),
			DstAccessMask:       convAccess(textures[i].DstAccess),
			OldLayout:           convLayout(textures[i].SrcLayout),
			NewLayout:           convLayout(textures[i].DstLayout),
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               tex.img,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     aspectOf(tex.format),
				BaseMipLevel:   uint32(textures[i].BaseLevel),
				LevelCount:     uint32(textures[i].NumLevels),
				BaseArrayLayer: uint32(textures[i].BaseLayer),
				LayerCount:     uint32(textures[i].NumLayers),
			},
		})
	}
	vk.CmdPipelineBarrier(c.cb,
		convStage(srcStage, vk.PipelineStageTopOfPipeBit),
		convStage(dstStage, vk.PipelineStageBottomOfPipeBit),
		0, 0, nil,
		uint32(len(bufBarriers)), bufBarriers,
		uint32(len(imgBarriers)), imgBarriers)
	return nil
}

func (c *cmdBuffer) UpdateBuffer(buf gpu.Buffer, off int64, data []byte) error {
	b, ok := buf.(*Buffer)
	if !ok {
		return errors.New("vk: foreign buffer")
	}
	vk.CmdUpdateBuffer(c.cb, b.buf, vk.DeviceSize(off), vk.DeviceSize(len(data)), (*uint32)(unsafe.Pointer(&data[0])))
	return nil
}

func (c *cmdBuffer) ClearTexture(t gpu.TextureSlice, layout gpu.Layout, value gpu.ClearValue) error {
	tex, ok := t.Texture.(*Texture)
	if !ok {
		return errors.New("vk: foreign texture")
	}
	rng := []vk.ImageSubresourceRange{{
		AspectMask:     aspectOf(tex.format),
		BaseMipLevel:   uint32(t.BaseLevel),
		LevelCount:     uint32(t.NumLevels),
		BaseArrayLayer: uint32(t.BaseLayer),
		LayerCount:     uint32(t.NumLayers),
	}}
	if tex.format.IsDS() {
		ds := vk.ClearDepthStencilValue{
			Depth:   value.Depth,
			Stencil: value.Stencil,
		}
		vk.CmdClearDepthStencilImage(c.cb, tex.img, convLayout(layout), &ds, 1, rng)
	} else {
		var color vk.ClearColorValue
		*(*[4]float32)(unsafe.Pointer(&color)) = value.Color
		vk.CmdClearColorImage(c.cb, tex.img, convLayout(layout), &color, 1, rng)
	}
	return nil
}

func (c *cmdBuffer) BlitTextures(src gpu.TextureSlice, srcLayout gpu.Layout, dst gpu.TextureSlice, dstLayout gpu.Layout, filter gpu.Filter) error {
	s, ok := src.Texture.(*Texture)
	if !ok {
		return errors.New("vk: foreign texture")
	}
	d, ok := dst.Texture.(*Texture)
	if !ok {
		return errors.New("vk: foreign texture")
	}
	se := mipExtent(s, src.BaseLevel)
	de := mipExtent(d, dst.BaseLevel)
	blit := []vk.ImageBlit{{
		SrcSubresource: subLayers(s, &src),
		SrcOffsets: [2]vk.Offset3D{
			{},
			{X: int32(se.Width), Y: int32(se.Height), Z: int32(se.Depth)},
		},
		DstSubresource: subLayers(d, &dst),
		DstOffsets: [2]vk.Offset3D{
			{},
			{X: int32(de.Width), Y: int32(de.Height), Z: int32(de.Depth)},
		},
	}}
	vk.CmdBlitImage(c.cb, s.img, convLayout(srcLayout), d.img, convLayout(dstLayout), 1, blit, convFilter(filter))
	return nil
}

func (c *cmdBuffer) ResolveTextures(src gpu.TextureSlice, srcLayout gpu.Layout, dst gpu.TextureSlice, dstLayout gpu.Layout) error {
	s, ok := src.Texture.(*Texture)
	if !ok {
		return errors.New("vk: foreign texture")
	}
	d, ok := dst.Texture.(*Texture)
	if !ok {
		return errors.New("vk: foreign texture")
	}
	ext := mipExtent(d, dst.BaseLevel)
	region := []vk.ImageResolve{{
		SrcSubresource: subLayers(s, &src),
		DstSubresource: subLayers(d, &dst),
		Extent:         vk.Extent3D{Width: uint32(ext.Width), Height: uint32(ext.Height), Depth: uint32(ext.Depth)},
	}}
	vk.CmdResolveImage(c.cb, s.img, convLayout(srcLayout), d.img, convLayout(dstLayout), 1, region)
	return nil
}

func (c *cmdBuffer) CopyBufferToBuffer(src, dst gpu.BufferSlice) error {
	s, ok := src.Buffer.(*Buffer)
	if !ok {
		return errors.New("vk: foreign buffer")
	}
	d, ok := dst.Buffer.(*Buffer)
	if !ok {
		return errors.New("vk: foreign buffer")
	}
	region := []vk.BufferCopy{{
		SrcOffset: vk.DeviceSize(src.Offset),
		DstOffset: vk.DeviceSize(dst.Offset),
		Size:      vk.DeviceSize(src.Size),
	}}
	vk.CmdCopyBuffer(c.cb, s.buf, d.buf, 1, region)
	return nil
}

func (c *cmdBuffer) CopyBufferToTexture(src gpu.BufferSlice, dst gpu.TextureSlice, dstLayout gpu.Layout) error {
	s, ok := src.Buffer.(*Buffer)
	if !ok {
		return errors.New("vk: foreign buffer")
	}
	d, ok := dst.Texture.(*Texture)
	if !ok {
		return errors.New("vk: foreign texture")
	}
	ext := mipExtent(d, dst.BaseLevel)
	region := []vk.BufferImageCopy{{
		BufferOffset:     vk.DeviceSize(src.Offset),
		ImageSubresource: subLayers(d, &dst),
		ImageExtent:      vk.Extent3D{Width: uint32(ext.Width), Height: uint32(ext.Height), Depth: uint32(ext.Depth)},
	}}
	vk.CmdCopyBufferToImage(c.cb, s.buf, d.img, convLayout(dstLayout), 1, region)
	return nil
}

func (c *cmdBuffer) CopyTextureToBuffer(src gpu.TextureSlice, srcLayout gpu.Layout, dst gpu.BufferSlice) error {
	s, ok := src.Texture.(*Texture)
	if !ok {
		return errors.New("vk: foreign texture")
	}
	d, ok := dst.Buffer.(*Buffer)
	if !ok {
		return errors.New("vk: foreign buffer")
	}
	ext := mipExtent(s, src.BaseLevel)
	region := []vk.BufferImageCopy{{
		BufferOffset:     vk.DeviceSize(dst.Offset),
		ImageSubresource: subLayers(s, &src),
		ImageExtent:      vk.Extent3D{Width: uint32(ext.Width), Height: uint32(ext.Height), Depth: uint32(ext.Depth)},
	}}
	vk.CmdCopyImageToBuffer(c.cb, s.img, convLayout(srcLayout), d.buf, 1, region)
	return nil
}

func (c *cmdBuffer) CopyTextureToTexture(src gpu.TextureSlice, srcLayout gpu.Layout, dst gpu.TextureSlice, dstLayout gpu.Layout) error {
	s, ok := src.Texture.(*Texture)
	if !ok {
		return errors.New("vk: foreign texture")
	}
	d, ok := dst.Texture.(*Texture)
	if !ok {
		return errors.New("vk: foreign texture")
	}
	ext := mipExtent(s, src.BaseLevel)
	region := []vk.ImageCopy{{
		SrcSubresource: subLayers(s, &src),
		DstSubresource: subLayers(d, &dst),
		Extent:         vk.Extent3D{Width: uint32(ext.Width), Height: uint32(ext.Height), Depth: uint32(ext.Depth)},
	}}
	vk.CmdCopyImage(c.cb, s.img, convLayout(srcLayout), d.img, convLayout(dstLayout), 1, region)
	return nil
}

func (c *cmdBuffer) BeginGraphicsPass(colors, resolves []gpu.Attachment, depth *gpu.Attachment, pl gpu.GraphicsPipeline) error {
	pipe, ok := pl.(*GraphicsPipeline)
	if !ok {
		return errors.New("vk: foreign graphics pipeline")
	}
	rp, err := c.d.passes.renderPass(&pipe.pass)
	if err != nil {
		return err
	}

	var views []vk.ImageView
	var clears []vk.ClearValue
	var width, height int
	addView := func(a *gpu.Attachment, ds bool) error {
		tex, ok := a.View.Texture.(*Texture)
		if !ok {
			return errors.New("vk: foreign texture")
		}
		v, err := tex.view(a.View)
		if err != nil {
			return err
		}
		views = append(views, v)
		if ds {
			clears = append(clears, vk.NewClearDepthStencil(a.Clear.Depth, a.Clear.Stencil))
		} else {
			clears = append(clears, vk.NewClearValue(a.Clear.Color[:]))
		}
		if width == 0 {
			ext := mipExtent(tex, a.View.BaseLevel)
			width, height = ext.Width, ext.Height
		}
		return nil
	}
	for i := range colors {
		if err := addView(&colors[i], false); err != nil {
			return err
		}
	}
	for i := range resolves {
		if err := addView(&resolves[i], false); err != nil {
			return err
		}
	}
	if depth != nil {
		if err := addView(depth, true); err != nil {
			return err
		}
	}

	fb, err := c.d.passes.framebuffer(rp, views, width, height)
	if err != nil {
		return err
	}
	begin := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp,
		Framebuffer: fb,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: uint32(width), Height: uint32(height)},
		},
		ClearValueCount: uint32(len(clears)),
		PClearValues:    clears,
	}
	vk.CmdBeginRenderPass(c.cb, &begin, vk.SubpassContentsInline)
	vk.CmdBindPipeline(c.cb, vk.PipelineBindPointGraphics, pipe.pl)
	vk.CmdSetViewport(c.cb, 0, 1, []vk.Viewport{{
		Width:    float32(width),
		Height:   float32(height),
		MaxDepth: 1,
	}})
	vk.CmdSetScissor(c.cb, 0, 1, []vk.Rect2D{{
		Extent: vk.Extent2D{Width: uint32(width), Height: uint32(height)},
	}})
	c.gfxLayout = pipe.layout
	c.inPass = true
	return nil
}

func (c *cmdBuffer) EndGraphicsPass() {
	vk.CmdEndRenderPass(c.cb)
	c.inPass = false
}

func (c *cmdBuffer) BeginComputePass(pl gpu.ComputePipeline) error {
	pipe, ok := pl.(*ComputePipeline)
	if !ok {
		return errors.New("vk: foreign compute pipeline")
	}
	vk.CmdBindPipeline(c.cb, vk.PipelineBindPointCompute, pipe.pl)
	c.compLayout = pipe.layout
	return nil
}

func (c *cmdBuffer) BindGraphicsDescriptorSets(first int, sets []gpu.DescriptorSet) error {
	return c.bindSets(vk.PipelineBindPointGraphics, c.gfxLayout, first, sets)
}

func (c *cmdBuffer) BindComputeDescriptorSets(first int, sets []gpu.DescriptorSet) error {
	return c.bindSets(vk.PipelineBindPointCompute, c.compLayout, first, sets)
}

func (c *cmdBuffer) bindSets(bp vk.PipelineBindPoint, layout vk.PipelineLayout, first int, sets []gpu.DescriptorSet) error {
	if layout == nil {
		return errors.New("vk: no pipeline bound")
	}
	vkSets := make([]vk.DescriptorSet, len(sets))
	for i, s := range sets {
		ds, ok := s.(*DescriptorSet)
		if !ok {
			return errors.New("vk: foreign descriptor set")
		}
		vkSets[i] = ds.set
	}
	vk.CmdBindDescriptorSets(c.cb, bp, layout, uint32(first), uint32(len(vkSets)), vkSets, 0, nil)
	return nil
}

func (c *cmdBuffer) BindVertexBuffers(first int, bufs []gpu.BufferSlice) error {
	vkBufs := make([]vk.Buffer, len(bufs))
	offs := make([]vk.DeviceSize, len(bufs))
	for i := range bufs {
		b, ok := bufs[i].Buffer.(*Buffer)
		if !ok {
			return errors.New("vk: foreign buffer")
		}
		vkBufs[i] = b.buf
		offs[i] = vk.DeviceSize(bufs[i].Offset)
	}
	vk.CmdBindVertexBuffers(c.cb, uint32(first), uint32(len(vkBufs)), vkBufs, offs)
	return nil
}

func (c *cmdBuffer) BindIndexBuffer(buf gpu.BufferSlice, typ gpu.IndexType) error {
	b, ok := buf.Buffer.(*Buffer)
	if !ok {
		return errors.New("vk: foreign buffer")
	}
	vk.CmdBindIndexBuffer(c.cb, b.buf, vk.DeviceSize(buf.Offset), convIndexType(typ))
	return nil
}

func (c *cmdBuffer) PushConstants(stages gpu.ShaderStages, off int, data []byte) error {
	layout := c.compLayout
	if c.inPass {
		layout = c.gfxLayout
	}
	if layout == nil {
		return errors.New("vk: no pipeline bound")
	}
	vk.CmdPushConstants(c.cb, layout, convShaderStages(stages), uint32(off), uint32(len(data)), unsafe.Pointer(&data[0]))
	return nil
}

func (c *cmdBuffer) Draw(vertCount, instCount, firstVert, firstInst int) error {
	vk.CmdDraw(c.cb, uint32(vertCount), uint32(instCount), uint32(firstVert), uint32(firstInst))
	return nil
}

func (c *cmdBuffer) DrawIndexed(idxCount, instCount, firstIdx, vertOff, firstInst int) error {
	vk.CmdDrawIndexed(c.cb, uint32(idxCount), uint32(instCount), uint32(firstIdx), int32(vertOff), uint32(firstInst))
	return nil
}

func (c *cmdBuffer) Dispatch(x, y, z int) error {
	vk.CmdDispatch(c.cb, uint32(x), uint32(y), uint32(z))
	return nil
}

func (c *cmdBuffer) WriteTimestamp(pool gpu.QueryPool, query int, stage gpu.Stage) error {
	p, ok := pool.(*QueryPool)
	if !ok {
		return errors.New("vk: foreign query pool")
	}
	s := vk.PipelineStageBottomOfPipeBit
	if stage != gpu.SNone {
		s = vk.PipelineStageFlagBits(convStage(stage, vk.PipelineStageBottomOfPipeBit))
	}
	vk.CmdWriteTimestamp(c.cb, s, p.qp, uint32(query))
	return nil
}

func (c *cmdBuffer) ResetQueryPool(pool gpu.QueryPool, first, count int) error {
	p, ok := pool.(*QueryPool)
	if !ok {
		return errors.New("vk: foreign query pool")
	}
	vk.CmdResetQueryPool(c.cb, p.qp, uint32(first), uint32(count))
	return nil
}

// mipExtent returns the extent of the given mip level.
func mipExtent(t gpu.Texture, level int) gpu.Dim3D {
	e := t.Extent()
	shrink := func(n int) int {
		if n >>= level; n < 1 {
			return 1
		}
		return n
	}
	return gpu.Dim3D{
		Width:  shrink(e.Width),
		Height: shrink(e.Height),
		Depth:  shrink(e.Depth),
	}
}

// subLayers returns the layer range of a slice at its base level.
func subLayers(t *Texture, s *gpu.TextureSlice) vk.ImageSubresourceLayers {
	return vk.ImageSubresourceLayers{
		AspectMask:     aspectOf(t.format),
		MipLevel:       uint32(s.BaseLevel),
		BaseArrayLayer: uint32(s.BaseLayer),
		LayerCount:     uint32(s.NumLayers),
	}
}
