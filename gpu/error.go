// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package gpu

import "errors"

// Errors that driver operations may produce.
// ErrOutOfDate and ErrSuboptimal only apply to swapchain operations
// and are recoverable; the remaining errors indicate that the device
// (and any resource created from it) is no longer usable.
var (
	ErrOutOfDate      = errors.New("gpu: swapchain out of date")
	ErrSuboptimal     = errors.New("gpu: swapchain suboptimal")
	ErrDeviceLost     = errors.New("gpu: device lost")
	ErrNoDeviceMemory = errors.New("gpu: out of device memory")
	ErrNoHostMemory   = errors.New("gpu: out of host memory")
)

// CanContinue returns whether err allows the device to keep being
// used. Recoverable errors demand action from the caller (usually a
// swapchain recreation) but do not invalidate existing resources.
func CanContinue(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrOutOfDate), errors.Is(err, ErrSuboptimal):
		return true
	}
	return false
}
