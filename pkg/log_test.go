package pkg

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestSetLogLevel(t *testing.T) {
	original := GetLogLevel()
	defer SetLogLevel(original)

	tests := []struct {
		name  string
		level slog.Level
		debug bool
	}{
		{"debug", slog.LevelDebug, true},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLogLevel(tt.level)
			if got := GetLogLevel(); got != tt.level {
				t.Errorf("GetLogLevel() = %v, want %v", got, tt.level)
			}
			if got := DebugEnabled(); got != tt.debug {
				t.Errorf("DebugEnabled() = %v, want %v", got, tt.debug)
			}
		})
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, nil)
	if logger == nil {
		t.Fatal("NewJSONLogger returned nil")
	}

	logger.Warn("test message")
	output := buf.String()
	if !strings.Contains(output, `"msg":"test message"`) {
		t.Errorf("JSON log output missing message: %s", output)
	}
}

func TestLogComponents(t *testing.T) {
	original := Logger()
	originalLevel := GetLogLevel()
	defer func() {
		SetLogger(original)
		SetLogLevel(originalLevel)
	}()

	SetLogLevel(slog.LevelDebug)

	tests := []struct {
		name      string
		log       func(Component, string, ...any)
		component Component
		msg       string
	}{
		{"debug", LogDebug, ComponentCodec, "debug message"},
		{"info", LogInfo, ComponentBridge, "info message"},
		{"warn", LogWarn, ComponentSerial, "warn message"},
		{"error", LogError, ComponentUSB, "error message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetLogger(NewLogger(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			tt.log(tt.component, tt.msg, "key", "value")
			output := buf.String()
			if !strings.Contains(output, tt.msg) {
				t.Errorf("log missing message: %s", output)
			}
			if !strings.Contains(output, "component="+tt.component.String()) {
				t.Errorf("log missing component: %s", output)
			}
			if !strings.Contains(output, "key=value") {
				t.Errorf("log missing attribute: %s", output)
			}
		})
	}
}

func TestLogLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	original := Logger()
	originalLevel := GetLogLevel()
	defer func() {
		SetLogger(original)
		SetLogLevel(originalLevel)
	}()

	SetLogLevel(slog.LevelWarn)
	SetLogger(NewLogger(&buf, nil))

	LogDebug(ComponentBridge, "hidden")
	if buf.Len() != 0 {
		t.Errorf("debug record emitted at warn level: %s", buf.String())
	}
}

func TestComponentString(t *testing.T) {
	tests := []struct {
		c    Component
		want string
	}{
		{ComponentBridge, "bridge"},
		{ComponentCodec, "codec"},
		{ComponentUSB, "usb"},
		{ComponentSerial, "serial"},
		{ComponentHAL, "hal"},
		{ComponentHost, "host"},
		{Component(99), "component(99)"},
	}

	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("Component(%d).String() = %v, want %v", uint8(tt.c), got, tt.want)
		}
	}
}

func TestUnknownComponentLogs(t *testing.T) {
	var buf bytes.Buffer
	original := Logger()
	defer SetLogger(original)

	SetLogger(NewLogger(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	LogWarn(Component(42), "odd")
	if !strings.Contains(buf.String(), "component=component(42)") {
		t.Errorf("log missing component: %s", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidParameter) {
					t.Errorf("ParseLogLevel(%q) error = %v, want ErrInvalidParameter", tt.in, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
