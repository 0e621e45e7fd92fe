//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific debug probe registrations.

package control

import "runtime"

// RegisterPlatformProbes adds Linux host facts to dp, surfaced via
// /_debug.json alongside the connection, metrics and pool probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.os", func() any { return "linux" })
	dp.RegisterProbe("platform.cpus", func() any { return runtime.NumCPU() })
}
