// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package vk implements the gpu interfaces on top of Vulkan.
package vk

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/cobalt-gfx/cobalt/gpu"
)

// resErr converts a vk.Result to an error.
// Results with a gpu sentinel map to it, so that callers can
// distinguish recoverable conditions with gpu.CanContinue.
func resErr(res vk.Result) error {
	switch res {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		return gpu.ErrSuboptimal
	case vk.ErrorOutOfDate:
		return gpu.ErrOutOfDate
	case vk.ErrorDeviceLost:
		return gpu.ErrDeviceLost
	case vk.ErrorOutOfDeviceMemory:
		return gpu.ErrNoDeviceMemory
	case vk.ErrorOutOfHostMemory:
		return gpu.ErrNoHostMemory
	}
	return vk.Error(res)
}
