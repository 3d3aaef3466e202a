package gpudevice

import "github.com/cogentcore/webgpu/wgpu"

// fence is a monotonic counter standing in for the D3D12-style fence object
// spec.md's device context assumes. WebGPU has neither a fence object nor a
// second hardware queue — there is exactly one wgpu.Queue per device, and
// wgpu-native's device.Poll(forceWait, nil) blocks the host until every
// submission made so far on that device has retired (see Device.Poll usage
// in the Gekko3D Hi-Z manager, the one other_examples file that exercises
// this exact call). fence adapts the timeline-semaphore counter idiom
// (lastSignaled/lastCompleted) on top of that single blocking primitive so
// the ordering invariants in spec.md §5 stay checkable: every Signal
// records which submission a caller is waiting for, and Wait drives Poll
// until the device reports idle, at which point every signaled value has
// necessarily retired.
type fence struct {
	device *wgpu.Device

	lastSignaled  uint64
	lastCompleted uint64
}

func newFence(device *wgpu.Device) *fence {
	return &fence{device: device}
}

// Signal records that a submission has been made and returns the value a
// caller should later Wait on to observe its completion.
func (f *fence) Signal() uint64 {
	f.lastSignaled++
	return f.lastSignaled
}

// Wait blocks until the submission tagged with value has retired. Because
// WebGPU has a single device-wide completion timeline, a single blocking
// Poll is sufficient regardless of which logical queue signaled value.
func (f *fence) Wait(value uint64) {
	if value <= f.lastCompleted {
		return
	}
	f.device.Poll(true, nil)
	f.lastCompleted = f.lastSignaled
}

// Completed returns the most recently retired signal value.
func (f *fence) Completed() uint64 {
	return f.lastCompleted
}
