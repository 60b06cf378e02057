// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"errors"
	"sync"

	vk "github.com/vulkan-go/vulkan"

	"github.com/cobalt-gfx/cobalt/gpu"
)

// Texture implements gpu.Texture.
// Swapchain textures wrap driver-owned images and have no memory
// span of their own.
type Texture struct {
	d       *Device
	img     vk.Image
	span    memSpan
	owned   bool
	levels  int
	layers  int
	samples int
	extent  gpu.Dim3D
	format  gpu.PixelFmt
	usage   gpu.TextureUsage
	initial gpu.Layout

	vmu   sync.Mutex
	views map[viewKey]vk.ImageView
}

type viewKey struct {
	baseLevel, numLevels int
	baseLayer, numLayers int
}

// TextureDesc describes a texture to create.
type TextureDesc struct {
	Format  gpu.PixelFmt
	Extent  gpu.Dim3D
	Levels  int
	Layers  int
	Samples int
	Usage   gpu.TextureUsage
	// Layout the texture rests in between command lists.
	// New textures are transitioned to it lazily: the first
	// barrier that consumes the texture treats its contents as
	// undefined.
	Initial gpu.Layout
}

// NewTexture creates a texture.
func (d *Device) NewTexture(desc *TextureDesc) (*Texture, error) {
	if desc.Levels < 1 || desc.Layers < 1 {
		return nil, errors.New("vk: texture must have at least one level and layer")
	}
	samples := desc.Samples
	if samples == 0 {
		samples = 1
	}
	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    convFormat(desc.Format),
		Extent: vk.Extent3D{
			Width:  uint32(desc.Extent.Width),
			Height: uint32(desc.Extent.Height),
			Depth:  1,
		},
		MipLevels:     uint32(desc.Levels),
		ArrayLayers:   uint32(desc.Layers),
		Samples:       convSamples(samples),
		Tiling:        vk.ImageTilingOptimal,
		Usage:         convTextureUsage(desc.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var img vk.Image
	if err := resErr(vk.CreateImage(d.dev, &info, nil, &img)); err != nil {
		return nil, err
	}
	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.dev, img, &reqs)
	reqs.Deref()

	typ, err := typeIndex(&d.memProps, reqs.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(d.dev, img, nil)
		return nil, err
	}
	span, err := d.alloc.alloc(&reqs, typ, false)
	if err != nil {
		vk.DestroyImage(d.dev, img, nil)
		return nil, err
	}
	if err := resErr(vk.BindImageMemory(d.dev, img, span.heap.mem, span.offset())); err != nil {
		d.alloc.free(span)
		vk.DestroyImage(d.dev, img, nil)
		return nil, err
	}
	return &Texture{
		d:       d,
		img:     img,
		span:    span,
		owned:   true,
		levels:  desc.Levels,
		layers:  desc.Layers,
		samples: samples,
		extent:  desc.Extent,
		format:  desc.Format,
		usage:   desc.Usage,
		initial: desc.Initial,
		views:   make(map[viewKey]vk.ImageView),
	}, nil
}

// Destroy destroys the texture, its cached views and its memory.
func (t *Texture) Destroy() {
	if t.img == nil {
		return
	}
	t.vmu.Lock()
	for _, v := range t.views {
		vk.DestroyImageView(t.d.dev, v, nil)
	}
	t.views = nil
	t.vmu.Unlock()
	if t.owned {
		vk.DestroyImage(t.d.dev, t.img, nil)
		t.d.alloc.free(t.span)
	}
	t.img = nil
}

func (t *Texture) InitialLayout() gpu.Layout { return t.initial }
func (t *Texture) Levels() int               { return t.levels }
func (t *Texture) Layers() int               { return t.layers }
func (t *Texture) Samples() int              { return t.samples }
func (t *Texture) Extent() gpu.Dim3D         { return t.extent }
func (t *Texture) Format() gpu.PixelFmt      { return t.format }
func (t *Texture) Usage() gpu.TextureUsage   { return t.usage }

// view returns an image view covering the given slice, creating
// and caching it on first use.
func (t *Texture) view(s gpu.TextureSlice) (vk.ImageView, error) {
	key := viewKey{s.BaseLevel, s.NumLevels, s.BaseLayer, s.NumLayers}
	t.vmu.Lock()
	defer t.vmu.Unlock()
	if v, ok := t.views[key]; ok {
		return v, nil
	}
	typ := vk.ImageViewType2d
	if s.NumLayers > 1 {
		typ = vk.ImageViewType2dArray
	}
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    t.img,
		ViewType: typ,
		Format:   convFormat(t.format),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectOf(t.format),
			BaseMipLevel:   uint32(s.BaseLevel),
			LevelCount:     uint32(s.NumLevels),
			BaseArrayLayer: uint32(s.BaseLayer),
			LayerCount:     uint32(s.NumLayers),
		},
	}
	var v vk.ImageView
	if err := resErr(vk.CreateImageView(t.d.dev, &info, nil, &v)); err != nil {
		return nil, err
	}
	t.views[key] = v
	return v, nil
}

func convTextureUsage(u gpu.TextureUsage) vk.ImageUsageFlags {
	var f vk.ImageUsageFlagBits
	if u&gpu.TexCopySrc != 0 {
		f |= vk.ImageUsageTransferSrcBit
	}
	if u&gpu.TexCopyDst != 0 {
		f |= vk.ImageUsageTransferDstBit
	}
	if u&gpu.TexSampled != 0 {
		f |= vk.ImageUsageSampledBit
	}
	if u&gpu.TexStorage != 0 {
		f |= vk.ImageUsageStorageBit
	}
	if u&gpu.TexColorAttachment != 0 {
		f |= vk.ImageUsageColorAttachmentBit
	}
	if u&gpu.TexDSAttachment != 0 {
		f |= vk.ImageUsageDepthStencilAttachmentBit
	}
	return vk.ImageUsageFlags(f)
}
