// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/cobalt-gfx/cobalt/gpu"
)

// convLayout converts a gpu.Layout to a vk.ImageLayout.
func convLayout(l gpu.Layout) vk.ImageLayout {
	switch l {
	case gpu.LUndefined:
		return vk.ImageLayoutUndefined
	case gpu.LGeneral:
		return vk.ImageLayoutGeneral
	case gpu.LColorAttachment:
		return vk.ImageLayoutColorAttachmentOptimal
	case gpu.LDSAttachment, gpu.LDepthAttachment:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case gpu.LDSReadOnly, gpu.LDepthReadOnly, gpu.LStencilReadOnly:
		return vk.ImageLayoutDepthStencilReadOnlyOptimal
	case gpu.LShaderReadOnly:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case gpu.LCopySrc:
		return vk.ImageLayoutTransferSrcOptimal
	case gpu.LCopyDst:
		return vk.ImageLayoutTransferDstOptimal
	case gpu.LPresent:
		return vk.ImageLayoutPresentSrc
	}
	return vk.ImageLayoutUndefined
}

// convStage converts a gpu.Stage mask to a vk.PipelineStageFlags.
// An empty mask becomes ifNone, since Vulkan forbids empty stage
// masks in barriers and submissions.
func convStage(s gpu.Stage, ifNone vk.PipelineStageFlagBits) vk.PipelineStageFlags {
	if s == gpu.SNone {
		return vk.PipelineStageFlags(ifNone)
	}
	var f vk.PipelineStageFlagBits
	if s&gpu.STopOfPipe != 0 {
		f |= vk.PipelineStageTopOfPipeBit
	}
	if s&gpu.SDrawIndirect != 0 {
		f |= vk.PipelineStageDrawIndirectBit
	}
	if s&gpu.SVertexInput != 0 {
		f |= vk.PipelineStageVertexInputBit
	}
	if s&gpu.SVertexShader != 0 {
		f |= vk.PipelineStageVertexShaderBit
	}
	if s&gpu.STessControl != 0 {
		f |= vk.PipelineStageTessellationControlShaderBit
	}
	if s&gpu.STessEval != 0 {
		f |= vk.PipelineStageTessellationEvaluationShaderBit
	}
	if s&gpu.SGeometryShader != 0 {
		f |= vk.PipelineStageGeometryShaderBit
	}
	if s&gpu.SFragmentShader != 0 {
		f |= vk.PipelineStageFragmentShaderBit
	}
	if s&gpu.SDSEarly != 0 {
		f |= vk.PipelineStageEarlyFragmentTestsBit
	}
	if s&gpu.SDSLate != 0 {
		f |= vk.PipelineStageLateFragmentTestsBit
	}
	if s&gpu.SColorOutput != 0 {
		f |= vk.PipelineStageColorAttachmentOutputBit
	}
	if s&gpu.SComputeShader != 0 {
		f |= vk.PipelineStageComputeShaderBit
	}
	if s&gpu.SCopy != 0 {
		f |= vk.PipelineStageTransferBit
	}
	if s&gpu.SBottomOfPipe != 0 {
		f |= vk.PipelineStageBottomOfPipeBit
	}
	if s&gpu.SHost != 0 {
		f |= vk.PipelineStageHostBit
	}
	if s&gpu.SAllGraphics != 0 {
		f |= vk.PipelineStageAllGraphicsBit
	}
	if s&gpu.SAllCommands != 0 {
		f |= vk.PipelineStageAllCommandsBit
	}
	return vk.PipelineStageFlags(f)
}

// convAccess converts a gpu.Access mask to a vk.AccessFlags.
func convAccess(a gpu.Access) vk.AccessFlags {
	var f vk.AccessFlagBits
	if a&gpu.AIndexRead != 0 {
		f |= vk.AccessIndexReadBit
	}
	if a&gpu.AVertexAttrRead != 0 {
		f |= vk.AccessVertexAttributeReadBit
	}
	if a&gpu.AUniformRead != 0 {
		f |= vk.AccessUniformReadBit
	}
	if a&gpu.AInputAttachmentRead != 0 {
		f |= vk.AccessInputAttachmentReadBit
	}
	if a&gpu.AShaderRead != 0 {
		f |= vk.AccessShaderReadBit
	}
	if a&gpu.AShaderWrite != 0 {
		f |= vk.AccessShaderWriteBit
	}
	if a&gpu.AColorRead != 0 {
		f |= vk.AccessColorAttachmentReadBit
	}
	if a&gpu.AColorWrite != 0 {
		f |= vk.AccessColorAttachmentWriteBit
	}
	if a&gpu.ADSRead != 0 {
		f |= vk.AccessDepthStencilAttachmentReadBit
	}
	if a&gpu.ADSWrite != 0 {
		f |= vk.AccessDepthStencilAttachmentWriteBit
	}
	if a&gpu.ACopyRead != 0 {
		f |= vk.AccessTransferReadBit
	}
	if a&gpu.ACopyWrite != 0 {
		f |= vk.AccessTransferWriteBit
	}
	if a&gpu.AHostRead != 0 {
		f |= vk.AccessHostReadBit
	}
	if a&gpu.AHostWrite != 0 {
		f |= vk.AccessHostWriteBit
	}
	if a&gpu.AMemoryRead != 0 {
		f |= vk.AccessMemoryReadBit
	}
	if a&gpu.AMemoryWrite != 0 {
		f |= vk.AccessMemoryWriteBit
	}
	return vk.AccessFlags(f)
}

// convFormat converts a gpu.PixelFmt to a vk.Format.
func convFormat(f gpu.PixelFmt) vk.Format {
	switch f {
	case gpu.RGBA8un:
		return vk.FormatR8g8b8a8Unorm
	case gpu.RGBA8sRGB:
		return vk.FormatR8g8b8a8Srgb
	case gpu.BGRA8un:
		return vk.FormatB8g8r8a8Unorm
	case gpu.BGRA8sRGB:
		return vk.FormatB8g8r8a8Srgb
	case gpu.RG8un:
		return vk.FormatR8g8Unorm
	case gpu.R8un:
		return vk.FormatR8Unorm
	case gpu.RGBA16f:
		return vk.FormatR16g16b16a16Sfloat
	case gpu.RG16f:
		return vk.FormatR16g16Sfloat
	case gpu.R16f:
		return vk.FormatR16Sfloat
	case gpu.RGBA32f:
		return vk.FormatR32g32b32a32Sfloat
	case gpu.RG32f:
		return vk.FormatR32g32Sfloat
	case gpu.R32f:
		return vk.FormatR32Sfloat
	case gpu.D16un:
		return vk.FormatD16Unorm
	case gpu.D32f:
		return vk.FormatD32Sfloat
	case gpu.D24unS8ui:
		return vk.FormatD24UnormS8Uint
	}
	return vk.FormatUndefined
}

// convPixelFmt is the inverse of convFormat, for surface formats
// reported by the driver. ok is false when the format has no
// gpu.PixelFmt equivalent.
func convPixelFmt(f vk.Format) (p gpu.PixelFmt, ok bool) {
	switch f {
	case vk.FormatR8g8b8a8Unorm:
		return gpu.RGBA8un, true
	case vk.FormatR8g8b8a8Srgb:
		return gpu.RGBA8sRGB, true
	case vk.FormatB8g8r8a8Unorm:
		return gpu.BGRA8un, true
	case vk.FormatB8g8r8a8Srgb:
		return gpu.BGRA8sRGB, true
	case vk.FormatR16g16b16a16Sfloat:
		return gpu.RGBA16f, true
	}
	return 0, false
}

// aspectOf returns the image aspect of a format.
func aspectOf(f gpu.PixelFmt) vk.ImageAspectFlags {
	switch f {
	case gpu.D16un, gpu.D32f:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	case gpu.D24unS8ui:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

// convFilter converts a gpu.Filter to a vk.Filter.
func convFilter(f gpu.Filter) vk.Filter {
	if f == gpu.FLinear {
		return vk.FilterLinear
	}
	return vk.FilterNearest
}

// convIndexType converts a gpu.IndexType to a vk.IndexType.
func convIndexType(t gpu.IndexType) vk.IndexType {
	if t == gpu.Index32 {
		return vk.IndexTypeUint32
	}
	return vk.IndexTypeUint16
}

// convShaderStages converts a gpu.ShaderStages mask to a
// vk.ShaderStageFlags.
func convShaderStages(s gpu.ShaderStages) vk.ShaderStageFlags {
	var f vk.ShaderStageFlagBits
	if s&gpu.ShaderVertex != 0 {
		f |= vk.ShaderStageVertexBit
	}
	if s&gpu.ShaderFragment != 0 {
		f |= vk.ShaderStageFragmentBit
	}
	if s&gpu.ShaderGeometry != 0 {
		f |= vk.ShaderStageGeometryBit
	}
	if s&gpu.ShaderCompute != 0 {
		f |= vk.ShaderStageComputeBit
	}
	return vk.ShaderStageFlags(f)
}

// convLoadOp converts a gpu.LoadOp to a vk.AttachmentLoadOp.
func convLoadOp(op gpu.LoadOp) vk.AttachmentLoadOp {
	switch op {
	case gpu.LoadClear:
		return vk.AttachmentLoadOpClear
	case gpu.LoadLoad:
		return vk.AttachmentLoadOpLoad
	}
	return vk.AttachmentLoadOpDontCare
}

// convStoreOp converts a gpu.StoreOp to a vk.AttachmentStoreOp.
func convStoreOp(op gpu.StoreOp) vk.AttachmentStoreOp {
	if op == gpu.StoreStore {
		return vk.AttachmentStoreOpStore
	}
	return vk.AttachmentStoreOpDontCare
}

// convSamples converts a sample count to a vk.SampleCountFlagBits.
func convSamples(n int) vk.SampleCountFlagBits {
	switch n {
	case 1:
		return vk.SampleCount1Bit
	case 2:
		return vk.SampleCount2Bit
	case 4:
		return vk.SampleCount4Bit
	case 8:
		return vk.SampleCount8Bit
	case 16:
		return vk.SampleCount16Bit
	}
	return vk.SampleCount1Bit
}
