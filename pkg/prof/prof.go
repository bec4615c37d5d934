//go:build profile

package prof

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"runtime"
	rpprof "runtime/pprof"
	"sync"
)

// Profiling errors.
var (
	// ErrActive indicates a profiling session is already running.
	ErrActive = errors.New("profiling session already active")

	// ErrInvalidProfile indicates an invalid or unsupported profile type.
	ErrInvalidProfile = errors.New("invalid profile")
)

var (
	// sessionMutex protects active.
	sessionMutex sync.Mutex
	active       bool
)

// Enabled reports whether the binary was built with the "profile" tag.
func Enabled() bool {
	return true
}

// Start begins a profiling session and returns the function that ends it.
// The stop function finishes the CPU profile, writes the heap profile, and
// shuts down the HTTP listener, returning the first error it meets.
func Start(opts Options) (stop func() error, err error) {
	sessionMutex.Lock()
	defer sessionMutex.Unlock()

	if active {
		return nil, ErrActive
	}

	runtime.SetBlockProfileRate(opts.BlockRate)
	runtime.SetMutexProfileFraction(opts.MutexFraction)

	var cpuFile *os.File
	if opts.CPU != "" {
		if cpuFile, err = os.Create(opts.CPU); err != nil {
			return nil, fmt.Errorf("create cpu profile: %w", err)
		}
		if err = rpprof.StartCPUProfile(cpuFile); err != nil {
			cpuFile.Close()
			return nil, fmt.Errorf("start cpu profile: %w", err)
		}
	}

	var server *http.Server
	if opts.Addr != "" {
		ln, err := net.Listen("tcp", opts.Addr)
		if err != nil {
			if cpuFile != nil {
				rpprof.StopCPUProfile()
				cpuFile.Close()
			}
			return nil, fmt.Errorf("listen %s: %w", opts.Addr, err)
		}
		server = &http.Server{Handler: handler()}
		go server.Serve(ln)
	}

	active = true
	return func() error {
		sessionMutex.Lock()
		defer sessionMutex.Unlock()

		var errs []error
		if cpuFile != nil {
			rpprof.StopCPUProfile()
			errs = append(errs, cpuFile.Close())
		}
		if opts.Heap != "" {
			errs = append(errs, writeFile(ProfileHeap, opts.Heap))
		}
		if server != nil {
			errs = append(errs, server.Close())
		}
		active = false
		return errors.Join(errs...)
	}, nil
}

// Snapshot writes a point-in-time profile to w. Debug level 0 produces the
// binary format read by go tool pprof; 1 produces text.
func Snapshot(profile Profile, w io.Writer, debug int) error {
	if profile == ProfileCPU {
		return ErrInvalidProfile
	}
	p := rpprof.Lookup(string(profile))
	if p == nil {
		return ErrInvalidProfile
	}
	return p.WriteTo(w, debug)
}

func writeFile(profile Profile, path string) error {
	if profile == ProfileHeap {
		runtime.GC()
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s profile: %w", profile, err)
	}
	defer f.Close()
	return Snapshot(profile, f, 0)
}

// handler serves the pprof endpoints under /debug/pprof/.
func handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}
