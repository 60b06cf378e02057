// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"errors"
	"log"
	"sync"

	vk "github.com/vulkan-go/vulkan"

	"github.com/cobalt-gfx/cobalt/gpu"
)

// Driver owns a Vulkan instance.
type Driver struct {
	inst vk.Instance
}

// Open creates the instance.
// The Vulkan loader must have been initialized already, either by
// vk.SetDefaultGetInstanceProcAddr or by the windowing layer,
// followed by vk.Init.
func Open(appName string, instanceExts []string) (*Driver, error) {
	info := vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   safeString(appName),
			ApplicationVersion: vk.MakeVersion(0, 1, 0),
			PEngineName:        safeString("cobalt"),
			EngineVersion:      vk.MakeVersion(0, 1, 0),
			ApiVersion:         vk.ApiVersion11,
		},
		EnabledExtensionCount:   uint32(len(instanceExts)),
		PpEnabledExtensionNames: safeStrings(instanceExts),
	}
	var inst vk.Instance
	if err := resErr(vk.CreateInstance(&info, nil, &inst)); err != nil {
		return nil, err
	}
	vk.InitInstance(inst)
	return &Driver{inst: inst}, nil
}

// Instance returns the driver's vk.Instance handle.
// The windowing layer needs it for surface creation.
func (d *Driver) Instance() vk.Instance { return d.inst }

// Destroy destroys the instance. Devices opened from the driver
// must be destroyed first.
func (d *Driver) Destroy() {
	if d.inst != nil {
		vk.DestroyInstance(d.inst, nil)
		d.inst = nil
	}
}

// Device implements gpu.Device on a Vulkan logical device with a
// single queue. All submissions serialize through that queue.
type Device struct {
	drv   *Driver
	phys  vk.PhysicalDevice
	dev   vk.Device
	queue vk.Queue
	qfam  uint32
	qmu   sync.Mutex

	feat     gpu.DeviceFeatures
	memProps vk.PhysicalDeviceMemoryProperties

	alloc  *allocator
	passes *passCache

	pool vk.CommandPool
}

// OpenDevice selects a physical device with graphics, compute and
// transfer support and creates a logical device on it.
// deviceExts usually names the swapchain extension.
func (d *Driver) OpenDevice(deviceExts []string) (*Device, error) {
	var count uint32
	if err := resErr(vk.EnumeratePhysicalDevices(d.inst, &count, nil)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, errors.New("vk: no physical devices")
	}
	phys := make([]vk.PhysicalDevice, count)
	if err := resErr(vk.EnumeratePhysicalDevices(d.inst, &count, phys)); err != nil {
		return nil, err
	}

	for _, p := range phys {
		fam, feat, ok := queueFamilyOf(p)
		if !ok {
			continue
		}
		dev, err := newLogicalDevice(p, fam, deviceExts)
		if err != nil {
			log.Printf("vk: device creation failed: %v", err)
			continue
		}
		var queue vk.Queue
		vk.GetDeviceQueue(dev, fam, 0, &queue)

		var memProps vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(p, &memProps)
		memProps.Deref()

		var pool vk.CommandPool
		poolInfo := vk.CommandPoolCreateInfo{
			SType:            vk.StructureTypeCommandPoolCreateInfo,
			Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
			QueueFamilyIndex: fam,
		}
		if err := resErr(vk.CreateCommandPool(dev, &poolInfo, nil, &pool)); err != nil {
			vk.DestroyDevice(dev, nil)
			return nil, err
		}

		return &Device{
			drv:      d,
			phys:     p,
			dev:      dev,
			queue:    queue,
			qfam:     fam,
			feat:     feat,
			memProps: memProps,
			alloc:    newAllocator(dev),
			passes:   newPassCache(dev),
			pool:     pool,
		}, nil
	}
	return nil, errors.New("vk: no suitable physical device")
}

// queueFamilyOf finds a queue family supporting every feature the
// device will advertise.
func queueFamilyOf(p vk.PhysicalDevice) (uint32, gpu.DeviceFeatures, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(p, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(p, &count, props)

	for i := range props {
		props[i].Deref()
		flags := props[i].QueueFlags
		if flags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}
		if flags&vk.QueueFlags(vk.QueueComputeBit) == 0 {
			continue
		}
		// Graphics implies transfer support.
		return uint32(i), gpu.FeatGraphics | gpu.FeatCompute | gpu.FeatTransfer, true
	}
	return 0, 0, false
}

func newLogicalDevice(p vk.PhysicalDevice, fam uint32, exts []string) (vk.Device, error) {
	prio := []float32{1}
	info := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: fam,
			QueueCount:       1,
			PQueuePriorities: prio,
		}},
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: safeStrings(exts),
	}
	var dev vk.Device
	if err := resErr(vk.CreateDevice(p, &info, nil, &dev)); err != nil {
		return nil, err
	}
	return dev, nil
}

// Features returns the capabilities of the device.
func (d *Device) Features() gpu.DeviceFeatures { return d.feat }

// Wait blocks until the device completes all outstanding work.
func (d *Device) Wait() error {
	return resErr(vk.DeviceWaitIdle(d.dev))
}

// Destroy destroys the device and every cache it owns. Resources
// created from the device must be destroyed first.
func (d *Device) Destroy() {
	if d.dev == nil {
		return
	}
	vk.DeviceWaitIdle(d.dev)
	d.passes.destroy()
	d.alloc.destroy()
	vk.DestroyCommandPool(d.dev, d.pool, nil)
	vk.DestroyDevice(d.dev, nil)
	d.dev = nil
}

// submit sends cb to the device queue and blocks until a fence
// signals completion. The queue is externally synchronized, so
// submissions from multiple command buffers serialize here.
func (d *Device) submit(cb vk.CommandBuffer) error {
	var fence vk.Fence
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if err := resErr(vk.CreateFence(d.dev, &info, nil, &fence)); err != nil {
		return err
	}
	defer vk.DestroyFence(d.dev, fence, nil)

	sub := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb},
	}
	d.qmu.Lock()
	err := resErr(vk.QueueSubmit(d.queue, 1, []vk.SubmitInfo{sub}, fence))
	d.qmu.Unlock()
	if err != nil {
		return err
	}
	return resErr(vk.WaitForFences(d.dev, 1, []vk.Fence{fence}, vk.True, gpu.NoTimeout))
}

// safeString returns s with the NUL terminator the C side expects.
func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\x00' {
		return s + "\x00"
	}
	return s
}

func safeStrings(s []string) []string {
	out := make([]string, len(s))
	for i := range s {
		out[i] = safeString(s[i])
	}
	return out
}
