// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package gpu

// Swapchain is the interface that defines a presentable set of
// textures backed by a window surface.
//
// Views returns one texture per swapchain image; each is a valid
// Texture whose resting layout is LPresent.
// Acquire and Present may fail with ErrOutOfDate or ErrSuboptimal,
// in which case the caller recreates the swapchain via Recreate and
// retries. Any other error is fatal.
type Swapchain interface {
	Destroyer

	// Views returns the swapchain's textures.
	// The returned slice must not be modified.
	Views() []Texture

	// Acquire acquires the next presentable texture, blocking
	// for at most the given duration in nanoseconds.
	// NoTimeout means block indefinitely.
	// It returns the index of the acquired texture in Views.
	Acquire(timeout uint64) (int, error)

	// Present presents the texture at the given index.
	// The texture must be in the LPresent layout.
	Present(index int) error

	// Recreate recreates the swapchain to match the current
	// surface state. Views changes; previously acquired indices
	// become invalid.
	Recreate() error

	// Format returns the pixel format of the swapchain's
	// textures.
	Format() PixelFmt

	// Extent returns the dimensions of the swapchain's
	// textures.
	Extent() Dim3D
}

// NoTimeout is the Acquire timeout meaning block indefinitely.
const NoTimeout = ^uint64(0)
