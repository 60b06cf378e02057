// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"errors"

	vk "github.com/vulkan-go/vulkan"

	"github.com/cobalt-gfx/cobalt/gpu"
)

// Swapchain implements gpu.Swapchain on a window surface.
// Its textures are driver-owned images wrapped as non-owned
// Textures whose resting layout is LPresent.
type Swapchain struct {
	d     *Device
	sf    vk.Surface
	sc    vk.Swapchain
	fence vk.Fence

	texs   []*Texture
	views  []gpu.Texture
	format gpu.PixelFmt
	extent gpu.Dim3D
}

// NewSwapchain creates a swapchain over the given surface.
// The surface must have been created from the driver's instance.
func (d *Device) NewSwapchain(surface vk.Surface) (*Swapchain, error) {
	var supported vk.Bool32
	if err := resErr(vk.GetPhysicalDeviceSurfaceSupport(d.phys, d.qfam, surface, &supported)); err != nil {
		return nil, err
	}
	if supported == vk.False {
		return nil, errors.New("vk: queue family cannot present to surface")
	}
	var fence vk.Fence
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if err := resErr(vk.CreateFence(d.dev, &info, nil, &fence)); err != nil {
		return nil, err
	}
	s := &Swapchain{d: d, sf: surface, fence: fence}
	if err := s.initSwapchain(vk.NullSwapchain); err != nil {
		vk.DestroyFence(d.dev, fence, nil)
		return nil, err
	}
	return s, nil
}

func (s *Swapchain) initSwapchain(old vk.Swapchain) error {
	var caps vk.SurfaceCapabilities
	if err := resErr(vk.GetPhysicalDeviceSurfaceCapabilities(s.d.phys, s.sf, &caps)); err != nil {
		return err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	extent := caps.CurrentExtent
	if extent.Width == vk.MaxUint32 {
		caps.MinImageExtent.Deref()
		extent = caps.MinImageExtent
	}

	var count uint32
	if err := resErr(vk.GetPhysicalDeviceSurfaceFormats(s.d.phys, s.sf, &count, nil)); err != nil {
		return err
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := resErr(vk.GetPhysicalDeviceSurfaceFormats(s.d.phys, s.sf, &count, formats)); err != nil {
		return err
	}
	// Pick the first surface format with a gpu.PixelFmt equivalent,
	// preferring BGRA8un.
	var chosen vk.SurfaceFormat
	var pixFmt gpu.PixelFmt
	found := false
	for i := range formats {
		formats[i].Deref()
		f, ok := convPixelFmt(formats[i].Format)
		if !ok {
			continue
		}
		if !found {
			chosen, pixFmt, found = formats[i], f, true
		}
		if formats[i].Format == vk.FormatB8g8r8a8Unorm {
			chosen, pixFmt = formats[i], f
			break
		}
	}
	if !found {
		return errors.New("vk: no supported surface format")
	}

	nimg := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && nimg > caps.MaxImageCount {
		nimg = caps.MaxImageCount
	}
	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.sf,
		MinImageCount:    nimg,
		ImageFormat:      chosen.Format,
		ImageColorSpace:  chosen.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage: vk.ImageUsageFlags(
			vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}
	var sc vk.Swapchain
	if err := resErr(vk.CreateSwapchain(s.d.dev, &info, nil, &sc)); err != nil {
		return err
	}

	count = 0
	if err := resErr(vk.GetSwapchainImages(s.d.dev, sc, &count, nil)); err != nil {
		vk.DestroySwapchain(s.d.dev, sc, nil)
		return err
	}
	imgs := make([]vk.Image, count)
	if err := resErr(vk.GetSwapchainImages(s.d.dev, sc, &count, imgs)); err != nil {
		vk.DestroySwapchain(s.d.dev, sc, nil)
		return err
	}

	s.sc = sc
	s.format = pixFmt
	s.extent = gpu.Dim3D{Width: int(extent.Width), Height: int(extent.Height), Depth: 1}
	s.texs = make([]*Texture, len(imgs))
	s.views = make([]gpu.Texture, len(imgs))
	usage := gpu.TexColorAttachment | gpu.TexCopySrc | gpu.TexCopyDst
	for i, img := range imgs {
		s.texs[i] = &Texture{
			d:       s.d,
			img:     img,
			levels:  1,
			layers:  1,
			samples: 1,
			extent:  s.extent,
			format:  s.format,
			usage:   usage,
			initial: gpu.LPresent,
			views:   make(map[viewKey]vk.ImageView),
		}
		s.views[i] = s.texs[i]
	}
	return s.presentAll()
}

// presentAll transitions every swapchain image to LPresent so that
// the resting layout holds from the start.
func (s *Swapchain) presentAll() error {
	cb, err := s.d.NewCommandBuffer()
	if err != nil {
		return err
	}
	defer cb.Destroy()
	if err := cb.Begin(true); err != nil {
		return err
	}
	var recs []gpu.TextureAccessInfo
	for _, t := range s.texs {
		recs = append(recs, gpu.TextureAccessInfo{
			Texture:   t,
			NumLevels: 1,
			NumLayers: 1,
			SrcLayout: gpu.LUndefined,
			DstLayout: gpu.LPresent,
		})
	}
	if err := cb.PipelineBarrier(gpu.STopOfPipe, gpu.SBottomOfPipe, nil, recs); err != nil {
		return err
	}
	if err := cb.End(); err != nil {
		return err
	}
	return cb.Submit()
}

// Destroy destroys the swapchain and its texture wrappers.
// The surface is owned by the windowing layer and survives.
func (s *Swapchain) Destroy() {
	if s.sc == vk.NullSwapchain {
		return
	}
	for _, t := range s.texs {
		t.Destroy()
	}
	vk.DestroySwapchain(s.d.dev, s.sc, nil)
	vk.DestroyFence(s.d.dev, s.fence, nil)
	s.sc = vk.NullSwapchain
}

// Views returns the swapchain's textures.
func (s *Swapchain) Views() []gpu.Texture { return s.views }

// Acquire acquires the next presentable texture. It blocks until
// the image is actually ready for recording, so no semaphore
// threading is required of the caller.
func (s *Swapchain) Acquire(timeout uint64) (int, error) {
	var idx uint32
	res := vk.AcquireNextImage(s.d.dev, s.sc, timeout, vk.NullSemaphore, s.fence, &idx)
	if err := resErr(res); err != nil && !errors.Is(err, gpu.ErrSuboptimal) {
		return 0, err
	}
	if err := resErr(vk.WaitForFences(s.d.dev, 1, []vk.Fence{s.fence}, vk.True, gpu.NoTimeout)); err != nil {
		return 0, err
	}
	if err := resErr(vk.ResetFences(s.d.dev, 1, []vk.Fence{s.fence})); err != nil {
		return 0, err
	}
	return int(idx), resErr(res)
}

// Present presents the texture at the given index. The commands
// that wrote it must have completed already; submissions block on
// a fence, so that holds by construction.
func (s *Swapchain) Present(index int) error {
	idx := []uint32{uint32(index)}
	info := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{s.sc},
		PImageIndices:  idx,
	}
	s.d.qmu.Lock()
	res := vk.QueuePresent(s.d.queue, &info)
	s.d.qmu.Unlock()
	return resErr(res)
}

// Recreate recreates the swapchain to match the current surface
// state, typically after ErrOutOfDate or a window resize.
func (s *Swapchain) Recreate() error {
	if err := s.d.Wait(); err != nil {
		return err
	}
	for _, t := range s.texs {
		t.Destroy()
	}
	old := s.sc
	err := s.initSwapchain(old)
	vk.DestroySwapchain(s.d.dev, old, nil)
	return err
}

// Format returns the pixel format of the swapchain's textures.
func (s *Swapchain) Format() gpu.PixelFmt { return s.format }

// Extent returns the dimensions of the swapchain's textures.
func (s *Swapchain) Extent() gpu.Dim3D { return s.extent }
