// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package gpu

// TextureUsage is a mask indicating valid uses for a texture.
type TextureUsage int

// Texture usage flags.
const (
	TexCopySrc TextureUsage = 1 << iota
	TexCopyDst
	TexSampled
	TexStorage
	TexColorAttachment
	TexDSAttachment
)

// Texture is the interface that defines a GPU texture.
// Implementations must be pointer-shaped: the scheduler compares
// textures by interface equality, so every view or slice of the
// same underlying storage must yield the same Texture value.
type Texture interface {
	Destroyer

	// InitialLayout returns the layout the texture's owner
	// considers its resting state. A finalized command list
	// leaves every texture it touched back in this layout.
	InitialLayout() Layout

	// Levels returns the number of mip levels.
	Levels() int

	// Layers returns the number of array layers.
	Layers() int

	// Samples returns the sample count.
	Samples() int

	// Extent returns the dimensions of the base mip level.
	Extent() Dim3D

	// Format returns the pixel format.
	Format() PixelFmt

	// Usage returns the valid uses of the texture.
	Usage() TextureUsage
}

// Subres identifies a single (mip level, array layer) slice of a
// texture. It is the finest granularity at which layout and access
// are tracked; it is comparable and usable as a map key.
//
// Note that layer ranges viewed through a reinterpreting format are
// not part of the key: two overlapping views in different formats
// alias to the same Subres values and are tracked as one.
type Subres struct {
	Texture Texture
	Level   int
	Layer   int
}

// TextureSlice selects a contiguous range of mip levels and array
// layers of a texture.
type TextureSlice struct {
	Texture   Texture
	BaseLevel int
	NumLevels int
	BaseLayer int
	NumLayers int
}

// WholeTexture returns a slice covering every subresource of t.
func WholeTexture(t Texture) TextureSlice {
	return TextureSlice{
		Texture:   t,
		NumLevels: t.Levels(),
		NumLayers: t.Layers(),
	}
}

// Subresources returns every (level, layer) pair the slice covers.
func (s *TextureSlice) Subresources() []Subres {
	sub := make([]Subres, 0, s.NumLevels*s.NumLayers)
	for i := s.BaseLevel; i < s.BaseLevel+s.NumLevels; i++ {
		for j := s.BaseLayer; j < s.BaseLayer+s.NumLayers; j++ {
			sub = append(sub, Subres{s.Texture, i, j})
		}
	}
	return sub
}

// BaseSubresources returns the (base level, layer) pairs of the
// slice, one per covered layer. Commands that only ever operate on
// the base mip of a slice (blits, copies) track this set instead of
// the full range.
func (s *TextureSlice) BaseSubresources() []Subres {
	sub := make([]Subres, 0, s.NumLayers)
	for j := s.BaseLayer; j < s.BaseLayer+s.NumLayers; j++ {
		sub = append(sub, Subres{s.Texture, s.BaseLevel, j})
	}
	return sub
}

// ByteSize returns the size of the slice's base level data, in bytes.
func (s *TextureSlice) ByteSize() int64 {
	ext := s.Texture.Extent()
	return int64(s.Texture.Format().Size()) * int64(ext.Width) * int64(ext.Height) * int64(ext.Depth)
}

// TextureBinding is a texture slice bound to a descriptor, together
// with the layout the shaders expect it to be in.
type TextureBinding struct {
	Slice  TextureSlice
	Layout Layout
}

// TextureAccessInfo is a barrier record describing an access and/or
// layout transition on a texture subresource range.
// SrcAccess, SrcLayout and the owning barrier's source stage start
// out as placeholders and are resolved during scheduling.
type TextureAccessInfo struct {
	Texture   Texture
	BaseLevel int
	NumLevels int
	BaseLayer int
	NumLayers int
	SrcAccess Access
	DstAccess Access
	SrcLayout Layout
	DstLayout Layout
}

// Subresources returns every (level, layer) pair the record covers.
func (a *TextureAccessInfo) Subresources() []Subres {
	s := TextureSlice{
		Texture:   a.Texture,
		BaseLevel: a.BaseLevel,
		NumLevels: a.NumLevels,
		BaseLayer: a.BaseLayer,
		NumLayers: a.NumLayers,
	}
	return s.Subresources()
}
