package server

import (
	"time"

	"github.com/lattice-systems/seaengine/control"
)

// Config holds the construction-time parameters for a Server, mirroring
// the teacher's server.Config/hioload.Config shape narrowed to what this
// engine actually needs (no DPDK/NUMA/executor fields: those concerns
// belong to the teacher's original domain, not this one — see
// DESIGN.md).
type Config struct {
	ListenAddr          string
	StaticPath          string
	CrossOriginAllowed  []string
	MaxHeaderBytes      int
	MaxOutputBufferBytes int64
	MaxWSMessageBytes   int
	LingerSeconds       int
	ShutdownTimeout     time.Duration
	PollTimeout         time.Duration
}

// DefaultConfig returns sensible defaults, matching control.DefaultSettings
// for every field the two types share.
func DefaultConfig(staticPath string) *Config {
	settings := control.DefaultSettings(staticPath)
	return &Config{
		ListenAddr:           ":9090",
		StaticPath:           settings.StaticPath,
		MaxHeaderBytes:       settings.MaxHeaderBytes,
		MaxOutputBufferBytes: settings.MaxOutputBufBytes,
		MaxWSMessageBytes:    settings.MaxWSMessageBytes,
		LingerSeconds:        settings.LingerSeconds,
		ShutdownTimeout:      10 * time.Second,
		PollTimeout:          250 * time.Millisecond,
	}
}

func (c *Config) settings() control.Settings {
	return control.Settings{
		StaticPath:         c.StaticPath,
		CrossOriginAllowed: c.CrossOriginAllowed,
		MaxHeaderBytes:     c.MaxHeaderBytes,
		MaxOutputBufBytes:  c.MaxOutputBufferBytes,
		MaxWSMessageBytes:  c.MaxWSMessageBytes,
		LingerSeconds:      c.LingerSeconds,
	}
}
