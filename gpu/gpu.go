// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package gpu defines resource identity, access classification and
// the boundary interfaces of an underlying graphics device.
// It is consumed by package gfx, which records commands against these
// types and synthesizes the pipeline barriers they require.
package gpu

// Destroyer is the interface that wraps the Destroy method.
// Types that implement this interface may allocate external
// memory that is not managed by GC, so Destroy must be
// called explicitly to ensure such memory is deallocated.
type Destroyer interface {
	Destroy()
}

// DeviceFeatures is a mask of capabilities a device exposes.
// Encoder append methods guard their commands on the relevant
// feature and panic when it is missing, since issuing such a
// command is a static usage bug in the calling code.
type DeviceFeatures int

// Device features.
const (
	FeatGraphics DeviceFeatures = 1 << iota
	FeatCompute
	FeatTransfer
)

// Device is the subset of a graphics device that command encoding
// needs: feature queries and command buffer creation.
// Resource creation and frame acquisition live on the concrete
// backend (see package gpu/vk).
type Device interface {
	// Features returns the capabilities of the device.
	// They are immutable for the lifetime of the device.
	Features() DeviceFeatures

	// NewCommandBuffer creates a new command buffer ready
	// for recording.
	NewCommandBuffer() (CommandBuffer, error)
}
