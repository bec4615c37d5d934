package pkg

import "errors"

// Transport errors.
var (
	// ErrBufferEmpty indicates a non-blocking read found no data.
	ErrBufferEmpty = errors.New("buffer empty")

	// ErrBufferFull indicates a non-blocking write found no space.
	ErrBufferFull = errors.New("buffer full")

	// ErrBusy indicates the transfer buffer is still owned by the USB stack.
	ErrBusy = errors.New("transfer in flight")

	// ErrCancelled indicates a cancelled operation.
	ErrCancelled = errors.New("operation cancelled")

	// ErrProtocol indicates a malformed frame on a simulated wire.
	ErrProtocol = errors.New("protocol error")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrNoDevice indicates no device was found on the bus.
	ErrNoDevice = errors.New("device not present")

	// ErrNotConfigured indicates the transport has not been initialized.
	ErrNotConfigured = errors.New("not configured")

	// ErrReset indicates a bus reset was received.
	ErrReset = errors.New("bus reset")
)

// Lifecycle errors.
var (
	// ErrAlreadyRunning indicates the component is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates the component is not running.
	ErrNotRunning = errors.New("not running")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")
)
