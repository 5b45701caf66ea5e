package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{" warn ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestStartupLoggerBuilder(t *testing.T) {
	s := NewStartupLogger("camera-web").
		Version("dev").
		Device("pattern", "").
		Model("enhance", "gemini-3-pro-image-preview").
		Feature("enhancement", false).
		Config("port", "8080")

	if s.name != "camera-web" || s.version != "dev" {
		t.Errorf("identity = (%q, %q), want (camera-web, dev)", s.name, s.version)
	}
	if s.models["enhance"] != "gemini-3-pro-image-preview" {
		t.Errorf("models[enhance] = %q", s.models["enhance"])
	}
	if enabled, ok := s.features["enhancement"]; !ok || enabled {
		t.Errorf("features[enhancement] = (%v, %v), want (false, true)", enabled, ok)
	}

	// Log must not panic with an arbitrary global logger.
	s.Log()
}
