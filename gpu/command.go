// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package gpu

// CommandBuffer is the interface that defines a native command
// buffer. A finalized gfx command list is replayed into it in
// order, one method call per command, and then submitted.
//
// Failure semantics: the first native error aborts the replay and
// surfaces immediately; there are no partial retries. A command
// buffer records once per Begin/End cycle.
type CommandBuffer interface {
	Destroyer

	// Begin prepares the command buffer for recording.
	// When oneTime is set, the recording is only valid for a
	// single submission.
	Begin(oneTime bool) error

	// End ends recording and prepares the command buffer
	// for submission.
	End() error

	// Reset discards all recorded commands.
	Reset() error

	// Submit sends the recorded commands to the device queue
	// and blocks until execution completes.
	Submit() error

	// PipelineBarrier records an execution/memory dependency
	// between the given stages, with per-resource access and
	// layout transition records.
	PipelineBarrier(srcStage, dstStage Stage, buffers []BufferAccessInfo, textures []TextureAccessInfo) error

	// UpdateBuffer writes data to a buffer inline.
	UpdateBuffer(buf Buffer, off int64, data []byte) error

	// ClearTexture clears a texture slice to a constant value.
	ClearTexture(t TextureSlice, layout Layout, value ClearValue) error

	// BlitTextures copies the base level of src to the base
	// level of dst with scaling and format conversion.
	BlitTextures(src TextureSlice, srcLayout Layout, dst TextureSlice, dstLayout Layout, filter Filter) error

	// ResolveTextures resolves the samples of src into dst.
	ResolveTextures(src TextureSlice, srcLayout Layout, dst TextureSlice, dstLayout Layout) error

	// CopyBufferToBuffer copies src into dst.
	CopyBufferToBuffer(src, dst BufferSlice) error

	// CopyBufferToTexture copies buffer data into the base
	// level of a texture slice.
	CopyBufferToTexture(src BufferSlice, dst TextureSlice, dstLayout Layout) error

	// CopyTextureToBuffer copies the base level of a texture
	// slice into a buffer.
	CopyTextureToBuffer(src TextureSlice, srcLayout Layout, dst BufferSlice) error

	// CopyTextureToTexture copies the base level of src into
	// the base level of dst.
	CopyTextureToTexture(src TextureSlice, srcLayout Layout, dst TextureSlice, dstLayout Layout) error

	// BeginGraphicsPass begins a render pass targeting the
	// given attachments with the given pipeline bound.
	BeginGraphicsPass(colors, resolves []Attachment, depth *Attachment, pl GraphicsPipeline) error

	// EndGraphicsPass ends the current render pass.
	EndGraphicsPass()

	// BeginComputePass binds a compute pipeline.
	BeginComputePass(pl ComputePipeline) error

	// BindGraphicsDescriptorSets binds descriptor sets for
	// draw commands.
	BindGraphicsDescriptorSets(first int, sets []DescriptorSet) error

	// BindComputeDescriptorSets binds descriptor sets for
	// dispatch commands.
	BindComputeDescriptorSets(first int, sets []DescriptorSet) error

	// BindVertexBuffers binds vertex buffer ranges starting at
	// the given binding number.
	BindVertexBuffers(first int, bufs []BufferSlice) error

	// BindIndexBuffer binds the index buffer.
	BindIndexBuffer(buf BufferSlice, typ IndexType) error

	// PushConstants updates push constant data.
	PushConstants(stages ShaderStages, off int, data []byte) error

	// Draw draws primitives.
	Draw(vertCount, instCount, firstVert, firstInst int) error

	// DrawIndexed draws indexed primitives.
	DrawIndexed(idxCount, instCount, firstIdx, vertOff, firstInst int) error

	// Dispatch dispatches compute work groups.
	Dispatch(x, y, z int) error

	// WriteTimestamp writes a timestamp query after the given
	// stage completes.
	WriteTimestamp(pool QueryPool, query int, stage Stage) error

	// ResetQueryPool resets a range of queries.
	ResetQueryPool(pool QueryPool, first, count int) error
}
