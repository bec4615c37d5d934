// Package serialport implements hal.Serial over a serial device using
// go.bug.st/serial.
//
// A MIDI DIN interface is typically a USB serial adapter or a UART exposed by
// the operating system. [Open] configures it for 8N1 at [DefaultBaudRate]
// unless another rate is given; adapters that cannot do 31250 baud are often
// driven at a standard rate by a converter instead.
//
//	port, err := serialport.Open("/dev/ttyUSB0", serialport.DefaultBaudRate)
//	if err != nil {
//		return err
//	}
//	defer port.Close()
package serialport
