// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"errors"

	vk "github.com/vulkan-go/vulkan"

	"github.com/cobalt-gfx/cobalt/gpu"
)

// Shader wraps a shader module created from SPIR-V code.
type Shader struct {
	d   *Device
	mod vk.ShaderModule
}

// NewShader creates a shader module. code holds SPIR-V data and
// its length must be a multiple of four.
func (d *Device) NewShader(code []byte) (*Shader, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, errors.New("vk: invalid SPIR-V code size")
	}
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}
	var mod vk.ShaderModule
	if err := resErr(vk.CreateShaderModule(d.dev, &info, nil, &mod)); err != nil {
		return nil, err
	}
	return &Shader{d: d, mod: mod}, nil
}

// Destroy destroys the shader module. Pipelines created from it
// are unaffected.
func (s *Shader) Destroy() {
	if s.mod != nil {
		vk.DestroyShaderModule(s.d.dev, s.mod, nil)
		s.mod = nil
	}
}

// PipelineLayout aggregates descriptor set layouts and a push
// constant range.
type PipelineLayout struct {
	d      *Device
	layout vk.PipelineLayout
}

// NewPipelineLayout creates a pipeline layout over the given set
// layouts. pushSize of zero means no push constants.
func (d *Device) NewPipelineLayout(sets []*DescLayout, pushStages gpu.ShaderStages, pushSize int) (*PipelineLayout, error) {
	var setLayouts []vk.DescriptorSetLayout
	for _, s := range sets {
		setLayouts = append(setLayouts, s.layout)
	}
	info := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}
	if pushSize > 0 {
		info.PushConstantRangeCount = 1
		info.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: convShaderStages(pushStages),
			Offset:     0,
			Size:       uint32(pushSize),
		}}
	}
	var layout vk.PipelineLayout
	if err := resErr(vk.CreatePipelineLayout(d.dev, &info, nil, &layout)); err != nil {
		return nil, err
	}
	return &PipelineLayout{d: d, layout: layout}, nil
}

// Destroy destroys the pipeline layout. Pipelines created from it
// are unaffected.
func (p *PipelineLayout) Destroy() {
	if p.layout != nil {
		vk.DestroyPipelineLayout(p.d.dev, p.layout, nil)
		p.layout = nil
	}
}

// VertexAttr describes one vertex input attribute.
type VertexAttr struct {
	Location int
	Format   gpu.PixelFmt
	Offset   int
}

// GraphicsPipelineDesc describes a graphics pipeline to create.
type GraphicsPipelineDesc struct {
	Vert *Shader
	Frag *Shader
	// Entry point names; "main" when empty.
	VertEntry string
	FragEntry string

	Layout *PipelineLayout
	Pass   gpu.PassLayout

	// Vertex input. A stride of zero means no vertex buffers.
	VertexStride int
	VertexAttrs  []VertexAttr

	DepthTest  bool
	DepthWrite bool
}

// GraphicsPipeline implements gpu.GraphicsPipeline.
type GraphicsPipeline struct {
	d      *Device
	pl     vk.Pipeline
	layout vk.PipelineLayout
	pass   gpu.PassLayout
}

// NewGraphicsPipeline creates a graphics pipeline rendering into
// the attachment configuration of desc.Pass.
// The viewport and scissor are dynamic state, set at pass begin.
func (d *Device) NewGraphicsPipeline(desc *GraphicsPipelineDesc) (*GraphicsPipeline, error) {
	rp, err := d.passes.renderPass(&desc.Pass)
	if err != nil {
		return nil, err
	}

	stages := []vk.PipelineShaderStageCreateInfo{{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageVertexBit,
		Module: desc.Vert.mod,
		PName:  entryName(desc.VertEntry),
	}}
	if desc.Frag != nil {
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: desc.Frag.mod,
			PName:  entryName(desc.FragEntry),
		})
	}

	var bindings []vk.VertexInputBindingDescription
	var attrs []vk.VertexInputAttributeDescription
	if desc.VertexStride > 0 {
		bindings = []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    uint32(desc.VertexStride),
			InputRate: vk.VertexInputRateVertex,
		}}
		for _, a := range desc.VertexAttrs {
			attrs = append(attrs, vk.VertexInputAttributeDescription{
				Location: uint32(a.Location),
				Binding:  0,
				Format:   convFormat(a.Format),
				Offset:   uint32(a.Offset),
			})
		}
	}
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}

	assembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}
	viewport := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	raster := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1,
	}
	samples := 1
	if len(desc.Pass.Colors) > 0 {
		samples = desc.Pass.Colors[0].Samples
	}
	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: convSamples(samples),
	}
	depth := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  boolToVk(desc.DepthTest),
		DepthWriteEnable: boolToVk(desc.DepthWrite),
		DepthCompareOp:   vk.CompareOpLessOrEqual,
	}
	blendAtts := make([]vk.PipelineColorBlendAttachmentState, len(desc.Pass.Colors))
	for i := range blendAtts {
		blendAtts[i] = vk.PipelineColorBlendAttachmentState{
			ColorWriteMask: vk.ColorComponentFlags(
				vk.ColorComponentRBit | vk.ColorComponentGBit |
					vk.ColorComponentBBit | vk.ColorComponentABit),
		}
	}
	blend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(blendAtts)),
		PAttachments:    blendAtts,
	}
	dynamic := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: 2,
		PDynamicStates:    []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor},
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &assembly,
		PViewportState:      &viewport,
		PRasterizationState: &raster,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depth,
		PColorBlendState:    &blend,
		PDynamicState:       &dynamic,
		Layout:              desc.Layout.layout,
		RenderPass:          rp,
	}
	pls := make([]vk.Pipeline, 1)
	if err := resErr(vk.CreateGraphicsPipelines(d.dev, nil, 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pls)); err != nil {
		return nil, err
	}
	return &GraphicsPipeline{
		d:      d,
		pl:     pls[0],
		layout: desc.Layout.layout,
		pass:   desc.Pass,
	}, nil
}

// Destroy destroys the pipeline.
func (p *GraphicsPipeline) Destroy() {
	if p.pl != nil {
		vk.DestroyPipeline(p.d.dev, p.pl, nil)
		p.pl = nil
	}
}

// PassLayout returns the attachment configuration the pipeline was
// created against.
func (p *GraphicsPipeline) PassLayout() *gpu.PassLayout { return &p.pass }

// BlendCount returns the number of color attachments the pipeline
// declares blend state for.
func (p *GraphicsPipeline) BlendCount() int { return len(p.pass.Colors) }

// ComputePipeline implements gpu.ComputePipeline.
type ComputePipeline struct {
	d      *Device
	pl     vk.Pipeline
	layout vk.PipelineLayout
}

// NewComputePipeline creates a compute pipeline.
func (d *Device) NewComputePipeline(comp *Shader, entry string, layout *PipelineLayout) (*ComputePipeline, error) {
	info := vk.ComputePipelineCreateInfo{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: comp.mod,
			PName:  entryName(entry),
		},
		Layout: layout.layout,
	}
	pls := make([]vk.Pipeline, 1)
	if err := resErr(vk.CreateComputePipelines(d.dev, nil, 1, []vk.ComputePipelineCreateInfo{info}, nil, pls)); err != nil {
		return nil, err
	}
	return &ComputePipeline{d: d, pl: pls[0], layout: layout.layout}, nil
}

// Destroy destroys the pipeline.
func (p *ComputePipeline) Destroy() {
	if p.pl != nil {
		vk.DestroyPipeline(p.d.dev, p.pl, nil)
		p.pl = nil
	}
}

func entryName(s string) string {
	if s == "" {
		s = "main"
	}
	return safeString(s)
}

func boolToVk(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

// sliceUint32 reinterprets SPIR-V bytes as the word slice the API
// expects. Assumes little-endian data, which is what SPIR-V tools
// emit on every supported platform.
func sliceUint32(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = uint32(b[4*i]) | uint32(b[4*i+1])<<8 | uint32(b[4*i+2])<<16 | uint32(b[4*i+3])<<24
	}
	return out
}
