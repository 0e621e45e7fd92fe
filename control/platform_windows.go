//go:build windows
// +build windows

// control/platform_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows-specific debug probe registrations.

package control

import "runtime"

// RegisterPlatformProbes adds Windows host facts to dp.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.os", func() any { return "windows" })
	dp.RegisterProbe("platform.cpus", func() any { return runtime.NumCPU() })
}
