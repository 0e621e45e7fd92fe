// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime configuration, metrics, hot-reload, and debug introspection for
// the protocol engine: static root and cross-origin policy, connection and
// buffer accounting, and named debug probes. Grounded on the teacher's
// control package (control/config.go, control/metrics.go, control/debug.go,
// control/hotreload.go), generalized from an untyped map-of-any store to
// the typed server settings this engine actually needs. See DESIGN.md
// "control" entry.
package control
