package prof

// Profile represents a pprof profile type.
type Profile string

// Profile type constants.
const (
	ProfileCPU       Profile = "cpu"
	ProfileHeap      Profile = "heap"
	ProfileAllocs    Profile = "allocs"
	ProfileGoroutine Profile = "goroutine"
	ProfileBlock     Profile = "block"
	ProfileMutex     Profile = "mutex"
)

// String returns the string representation of the profile type.
func (p Profile) String() string {
	return string(p)
}

// Options selects what a profiling session records. Empty fields are off.
type Options struct {
	CPU           string // CPU profile output path
	Heap          string // Heap profile written when the session stops
	Addr          string // Listen address for the /debug/pprof/ endpoints
	BlockRate     int    // runtime.SetBlockProfileRate argument
	MutexFraction int    // runtime.SetMutexProfileFraction argument
}

// Any reports whether any profiling output was requested.
func (o Options) Any() bool {
	return o.CPU != "" || o.Heap != "" || o.Addr != ""
}
