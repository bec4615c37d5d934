// Package hal defines the hardware interfaces consumed by the MIDI bridge.
//
// The bridge never talks to hardware directly. It sees a USB device stack
// through [USB], a UART through [Serial], a periodic tick through [Timer],
// and the activity indicators through [Pins]. Platform code implements these
// interfaces; the subpackages provide implementations for hosts:
//
//   - [github.com/ardnew/usbmidi/hal/sim]: in-memory doubles for tests
//   - [github.com/ardnew/usbmidi/hal/fifo]: USB over named pipes
//   - [github.com/ardnew/usbmidi/hal/serialport]: UART over a serial device
//
// # Transfer Ownership
//
// Bulk data moves in [Transfer] buffers of [MaxPacketSize] bytes. Each carries
// an owner flag that is the only synchronization between the main loop and
// the interrupt context:
//
//	        Handoff (ArmOut / SubmitIn)
//	OwnerApp ──────────────────────────▶ OwnerStack
//	   ▲                                     │
//	   └─────────────────────────────────────┘
//	        Complete (adapter, in Service)
//
// The main loop reads or fills Data only while it owns the transfer. An
// adapter touches Data only between Handoff and Complete.
//
// # Interrupt Context
//
// Service methods run in the interrupt context. On hosts that context is a
// goroutine; implementations must keep Service non-blocking and limit shared
// state to atomics and single-producer single-consumer rings.
package hal
