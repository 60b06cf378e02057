// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"fmt"
	"strings"
	"sync"

	vk "github.com/vulkan-go/vulkan"

	"github.com/cobalt-gfx/cobalt/gpu"
)

// passCache caches render passes and framebuffers.
// Pipelines and passes referencing the same attachment
// configuration share one render pass; framebuffers are shared by
// render pass and attachment views.
type passCache struct {
	dev vk.Device
	mu  sync.RWMutex
	rp  map[string]vk.RenderPass
	fb  map[string]vk.Framebuffer
}

func newPassCache(dev vk.Device) *passCache {
	return &passCache{
		dev: dev,
		rp:  make(map[string]vk.RenderPass),
		fb:  make(map[string]vk.Framebuffer),
	}
}

func (c *passCache) destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, fb := range c.fb {
		vk.DestroyFramebuffer(c.dev, fb, nil)
	}
	for _, rp := range c.rp {
		vk.DestroyRenderPass(c.dev, rp, nil)
	}
	c.rp = make(map[string]vk.RenderPass)
	c.fb = make(map[string]vk.Framebuffer)
}

func passKey(p *gpu.PassLayout) string {
	var b strings.Builder
	for i := range p.Colors {
		fmt.Fprintf(&b, "c%v;", p.Colors[i])
	}
	for i := range p.Resolves {
		fmt.Fprintf(&b, "r%v;", p.Resolves[i])
	}
	if p.Depth != nil {
		fmt.Fprintf(&b, "d%v;", *p.Depth)
	}
	return b.String()
}

// renderPass returns the render pass for p, creating it on first
// use.
func (c *passCache) renderPass(p *gpu.PassLayout) (vk.RenderPass, error) {
	key := passKey(p)
	c.mu.RLock()
	rp, ok := c.rp[key]
	c.mu.RUnlock()
	if ok {
		return rp, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if rp, ok := c.rp[key]; ok {
		return rp, nil
	}
	rp, err := newRenderPass(c.dev, p)
	if err != nil {
		return nil, err
	}
	c.rp[key] = rp
	return rp, nil
}

func newRenderPass(dev vk.Device, p *gpu.PassLayout) (vk.RenderPass, error) {
	var atts []vk.AttachmentDescription
	describe := func(a *gpu.AttachmentLayout) uint32 {
		atts = append(atts, vk.AttachmentDescription{
			Format:         convFormat(a.Format),
			Samples:        convSamples(a.Samples),
			LoadOp:         convLoadOp(a.Load),
			StoreOp:        convStoreOp(a.Store),
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  convLayout(a.Initial),
			FinalLayout:    convLayout(a.Final),
		})
		return uint32(len(atts) - 1)
	}

	var colorRefs, resolveRefs []vk.AttachmentReference
	for i := range p.Colors {
		colorRefs = append(colorRefs, vk.AttachmentReference{
			Attachment: describe(&p.Colors[i]),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
	}
	for i := range p.Resolves {
		resolveRefs = append(resolveRefs, vk.AttachmentReference{
			Attachment: describe(&p.Resolves[i]),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
	}
	var depthRef []vk.AttachmentReference
	if p.Depth != nil {
		depthRef = []vk.AttachmentReference{{
			Attachment: describe(p.Depth),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}}
	}

	sub := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
		PResolveAttachments:  resolveRefs,
	}
	if len(depthRef) > 0 {
		sub.PDepthStencilAttachment = &depthRef[0]
	}

	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(atts)),
		PAttachments:    atts,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{sub},
	}
	var rp vk.RenderPass
	if err := resErr(vk.CreateRenderPass(dev, &info, nil, &rp)); err != nil {
		return nil, err
	}
	return rp, nil
}

// framebuffer returns a framebuffer binding views to rp, creating
// it on first use. The extent is that of the first view.
func (c *passCache) framebuffer(rp vk.RenderPass, views []vk.ImageView, width, height int) (vk.Framebuffer, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%v:%dx%d", rp, width, height)
	for _, v := range views {
		fmt.Fprintf(&b, ";%v", v)
	}
	key := b.String()

	c.mu.RLock()
	fb, ok := c.fb[key]
	c.mu.RUnlock()
	if ok {
		return fb, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if fb, ok := c.fb[key]; ok {
		return fb, nil
	}
	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           uint32(width),
		Height:          uint32(height),
		Layers:          1,
	}
	var fb2 vk.Framebuffer
	if err := resErr(vk.CreateFramebuffer(c.dev, &info, nil, &fb2)); err != nil {
		return nil, err
	}
	c.fb[key] = fb2
	return fb2, nil
}
