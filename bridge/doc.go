// Package bridge implements a USB-MIDI to serial MIDI bridge.
//
// A [Bridge] joins a USB bulk endpoint pair ([hal.USB]) to a UART
// ([hal.Serial]). Event packets from the host are decoded and their MIDI bytes
// written to the UART; bytes from the UART are framed into event packets and
// sent to the host.
//
// # Execution Model
//
// Two contexts drive a bridge:
//
//   - The interrupt context calls [Bridge.Interrupt], which services the USB
//     stack and the UART and advances an activity tick from [hal.Timer].
//   - The main loop calls [Bridge.Poll] repeatedly, or [Bridge.Run] which
//     loops Poll until cancelled.
//
// On hosts both contexts are goroutines; [Bridge.RunInterrupts] stands in for
// the interrupt controller.
//
// # Host to Device
//
// Two receive transfers are armed at all times. When the stack completes one,
// Poll decodes each 4-byte packet in it and writes the bytes to the UART. A
// congested UART is retried [Config.WriteRetries] times per byte before the
// byte is dropped. The transfer is re-armed only after every packet has been
// handled.
//
// # Device to Host
//
// Bytes read from the UART pass through a [midi.Encoder] into a staging
// transfer of up to [PacketsPerTransfer] packets. The staging transfer is
// submitted once full, or once the UART has no more bytes, but never while the
// other IN transfer is still in flight. Bytes left in the UART wait there.
//
// # Indicators
//
// [hal.PinUSB] follows the link. [hal.PinMIDIIn] and [hal.PinMIDIOut] light on
// traffic and go dark [Config.ActivityHold] ticks after the last packet.
//
// # Example
//
//	b := bridge.New(usb, uart, timer, pins, bridge.DefaultConfig())
//	if err := b.Init(); err != nil {
//		return err
//	}
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(func() error { return b.RunInterrupts(ctx, time.Millisecond) })
//	g.Go(func() error { return b.Run(ctx) })
//	return g.Wait()
package bridge
