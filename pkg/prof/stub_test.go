//go:build !profile

package prof

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestStubIsNoop(t *testing.T) {
	if Enabled() {
		t.Fatal("Enabled() = true without the profile tag")
	}

	path := filepath.Join(t.TempDir(), "cpu.prof")
	stop, err := Start(Options{CPU: path})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := stop(); err != nil {
		t.Fatalf("stop() error = %v", err)
	}

	var buf bytes.Buffer
	if err := Snapshot(ProfileHeap, &buf, 0); err != nil || buf.Len() != 0 {
		t.Errorf("Snapshot() = %v, wrote %d bytes", err, buf.Len())
	}
}

func TestOptionsAny(t *testing.T) {
	tests := []struct {
		opts Options
		want bool
	}{
		{Options{}, false},
		{Options{BlockRate: 1}, false},
		{Options{CPU: "cpu.prof"}, true},
		{Options{Addr: "localhost:6060"}, true},
	}
	for _, tt := range tests {
		if got := tt.opts.Any(); got != tt.want {
			t.Errorf("%+v.Any() = %v, want %v", tt.opts, got, tt.want)
		}
	}
}
