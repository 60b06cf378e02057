// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package gpu

// LoadOp is the type of an attachment's load operation.
type LoadOp int

// Load operations.
const (
	LoadDontCare LoadOp = iota
	LoadClear
	LoadLoad
)

// StoreOp is the type of an attachment's store operation.
type StoreOp int

// Store operations.
const (
	StoreDontCare StoreOp = iota
	StoreStore
)

// AttachmentLayout describes one render target of a pass: its
// format, sample count, load/store behavior and the layouts the
// pass expects on entry and leaves behind on exit.
// Initial/Final drive barrier scheduling: a pass requires each
// attachment in its Initial layout and transitions it to Final.
type AttachmentLayout struct {
	Format  PixelFmt
	Samples int
	Load    LoadOp
	Store   StoreOp
	Initial Layout
	Final   Layout
}

// PassLayout describes the attachment configuration a graphics
// pipeline renders into.
type PassLayout struct {
	Colors   []AttachmentLayout
	Resolves []AttachmentLayout
	Depth    *AttachmentLayout
}

// Attachment binds a texture slice as a render target.
type Attachment struct {
	View  TextureSlice
	Clear ClearValue
}

// GraphicsPipeline is the interface that defines a pipeline for
// draw commands.
type GraphicsPipeline interface {
	Destroyer

	// PassLayout returns the attachment configuration the
	// pipeline was created against.
	PassLayout() *PassLayout

	// BlendCount returns the number of color attachments the
	// pipeline declares blend state for.
	BlendCount() int
}

// ComputePipeline is the interface that defines a pipeline for
// dispatch commands.
type ComputePipeline interface {
	Destroyer
}

// DescriptorSet is the interface that defines a set of shader
// resource bindings. The footprint methods drive scheduling: every
// resource a bound set can reach counts as touched by the pass that
// binds it.
type DescriptorSet interface {
	Destroyer

	// Buffers returns the buffer ranges reachable through
	// the set.
	Buffers() []BufferSlice

	// Textures returns the texture bindings reachable through
	// the set, each with the layout the shaders expect.
	Textures() []TextureBinding
}

// QueryPool is the interface that defines a pool of timestamp or
// statistics queries.
type QueryPool interface {
	Destroyer

	// Count returns the number of queries in the pool.
	Count() int
}
