// Package server
// Author: momentics <momentics@gmail.com>
//
// The listener/accept/event-loop glue and page/WebSocket-handler registry
// that turn the protocol package's ConnectionFSM into a runnable process,
// grounded on the teacher's server package (server.go/types.go/options.go's
// Config/DefaultConfig/functional-option shape, run.go's accept-then-poll
// loop structure) and reactor-driven where the platform supports it
// (lowlevel/server/listener.go's listener split informs the
// Unix-raw-socket/portable-fallback split kept here — see DESIGN.md
// "server" entry).
package server
