// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package gpu

// Stage is a mask of pipeline stages.
// A barrier's source/destination stages scope its execution
// dependency; Stage(0) in a barrier record means the stage has
// not been resolved yet.
type Stage int

// Pipeline stages.
const (
	// Before any commands are processed.
	STopOfPipe Stage = 1 << iota
	// Indirect draw/dispatch parameter fetch.
	SDrawIndirect
	// Vertex and index buffer fetch.
	SVertexInput
	// Vertex shader execution.
	SVertexShader
	// Tessellation control shader execution.
	STessControl
	// Tessellation evaluation shader execution.
	STessEval
	// Geometry shader execution.
	SGeometryShader
	// Fragment shader execution.
	SFragmentShader
	// Early depth/stencil tests.
	SDSEarly
	// Late depth/stencil tests.
	SDSLate
	// Color attachment output.
	SColorOutput
	// Compute shader execution.
	SComputeShader
	// Copy, blit, resolve, clear and fill operations.
	SCopy
	// After all commands have completed.
	SBottomOfPipe
	// Host reads/writes.
	SHost
	// All graphics pipeline stages.
	SAllGraphics
	// Every stage.
	SAllCommands

	SNone Stage = 0
)

// Access is a mask of memory access scopes.
// Access(0) in a barrier record is the unresolved placeholder.
type Access int

// Memory access scopes.
const (
	AIndexRead Access = 1 << iota
	AVertexAttrRead
	AUniformRead
	AInputAttachmentRead
	AShaderRead
	AShaderWrite
	AColorRead
	AColorWrite
	ADSRead
	ADSWrite
	ACopyRead
	ACopyWrite
	AHostRead
	AHostWrite
	AMemoryRead
	AMemoryWrite

	ANone Access = 0
)

// Layout is the type of a texture's memory layout.
// A texture subresource is in exactly one layout at any point of a
// command stream, and it must match the usage of the command that
// accesses it.
type Layout int

// Texture layouts.
const (
	LUndefined Layout = iota
	LGeneral
	LColorAttachment
	LDSAttachment
	LDSReadOnly
	LShaderReadOnly
	LCopySrc
	LCopyDst
	LDepthAttachment
	LDepthReadOnly
	LStencilReadOnly
	LPresent
)

// ShaderStages is a mask of programmable shader stages.
type ShaderStages int

// Shader stages.
const (
	ShaderVertex ShaderStages = 1 << iota
	ShaderFragment
	ShaderGeometry
	ShaderCompute
)

// PixelFmt describes the format of a pixel.
type PixelFmt int

// Pixel formats.
const (
	RGBA8un PixelFmt = iota
	RGBA8sRGB
	BGRA8un
	BGRA8sRGB
	RG8un
	R8un
	RGBA16f
	RG16f
	R16f
	RGBA32f
	RG32f
	R32f
	D16un
	D32f
	D24unS8ui
)

// Size returns the size of a single pixel, in bytes.
func (f PixelFmt) Size() int {
	switch f {
	case R8un:
		return 1
	case RG8un, R16f, D16un:
		return 2
	case RGBA8un, RGBA8sRGB, BGRA8un, BGRA8sRGB, RG16f, R32f, D32f, D24unS8ui:
		return 4
	case RGBA16f, RG32f:
		return 8
	case RGBA32f:
		return 16
	}
	return 0
}

// IsDS returns whether f has depth or stencil aspects.
func (f PixelFmt) IsDS() bool {
	switch f {
	case D16un, D32f, D24unS8ui:
		return true
	}
	return false
}

// Filter is the type of texture sampling filters used by blits.
type Filter int

// Filters.
const (
	FNearest Filter = iota
	FLinear
)

// IndexType describes the format of index buffer data.
// The value is the index size in bytes.
type IndexType int

// Index types.
const (
	Index16 IndexType = 2
	Index32 IndexType = 4
)

// Dim3D is a three-dimensional size.
type Dim3D struct {
	Width, Height, Depth int
}

// Off3D is a three-dimensional offset.
type Off3D struct {
	X, Y, Z int
}

// ClearValue defines clear values for the color or depth/stencil
// aspects of a texture.
type ClearValue struct {
	Color   [4]float32
	Depth   float32
	Stencil uint32
}
