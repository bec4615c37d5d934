// Package sim provides in-memory implementations of the hal interfaces.
//
// The doubles let the bridge run without hardware. Tests drive them from the
// outside: [USB.SendOut] plays the host writing to the OUT endpoint,
// [UART.Inject] plays a MIDI instrument on the serial input, and
// [Timer.Fire] raises a tick. Calling Service on the adapters plays the
// interrupt that moves data between those inputs and the bridge.
//
// All types are safe for use by one main-loop goroutine and one interrupt
// goroutine at a time, which is how the bridge drives them.
package sim
