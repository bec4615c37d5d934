// Package prof profiles the bridge executables on demand.
//
// The package is conditionally compiled using the "profile" build tag:
//
//	go build -tags profile ./examples/fifo-hal/midi-bridge/device
//
// Without the tag, [Start] and [Snapshot] are no-ops and [Enabled] reports
// false, so flag handling can stay in place at no cost.
//
// A session is configured with [Options] and ended with the function [Start]
// returns:
//
//	stop, err := prof.Start(prof.Options{CPU: "cpu.prof", Heap: "heap.prof"})
//	if err != nil {
//		return err
//	}
//	defer stop()
//
// Setting Options.Addr serves the usual /debug/pprof/ endpoints for the life
// of the session. The interrupt and main loop goroutines are hot, so a CPU
// profile mostly shows where Poll spends its idle time.
package prof
