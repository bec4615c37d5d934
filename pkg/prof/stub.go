//go:build !profile

package prof

import "io"

// Profiling errors (defined for API compatibility but never returned by stubs).
var (
	// ErrActive indicates a profiling session is already running.
	ErrActive error

	// ErrInvalidProfile indicates an invalid or unsupported profile type.
	ErrInvalidProfile error
)

// Enabled reports whether the binary was built with the "profile" tag.
func Enabled() bool {
	return false
}

// Start is a no-op when built without the "profile" tag.
func Start(_ Options) (func() error, error) {
	return func() error { return nil }, nil
}

// Snapshot is a no-op when built without the "profile" tag.
func Snapshot(_ Profile, _ io.Writer, _ int) error {
	return nil
}
