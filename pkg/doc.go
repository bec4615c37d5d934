// Package pkg provides shared utilities for the usbmidi bridge.
//
// This package contains common functionality used by the codec, the bridge
// core and every transport adapter, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error values for transport and lifecycle conditions
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with a component attribute:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentBridge, "link up", "state", "configured")
//
// # Errors
//
// Transport conditions are reported as sentinel values:
//
//	if errors.Is(err, pkg.ErrBufferFull) {
//	    // retry or drop
//	}
package pkg
