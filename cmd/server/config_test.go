package main

import (
	"log/slog"
	"testing"
	"time"

	"github.com/MegaGrindStone/docchat-web-ui/internal/services"
	"github.com/MegaGrindStone/docchat-web-ui/internal/stream"
	"gopkg.in/yaml.v3"
)

func TestConfigUnmarshal(t *testing.T) {
	tests := []struct {
		name       string
		yaml       string
		wantErr    bool
		wantPort   string
		wantFramer stream.Framer
		wantTTL    time.Duration
	}{
		{
			name:       "Defaults",
			yaml:       "backendURL: http://localhost:8000",
			wantPort:   defaultPort,
			wantFramer: stream.MarkerFramer{},
		},
		{
			name: "Custom marker",
			yaml: `
port: "9090"
backendURL: http://localhost:8000
streamTimeout: 2m
framing:
  type: marker
  marker: "<<META>>"
`,
			wantPort:   "9090",
			wantFramer: stream.MarkerFramer{Marker: "<<META>>"},
			wantTTL:    2 * time.Minute,
		},
		{
			name: "SSE framing",
			yaml: `
backendURL: http://localhost:8000
framing:
  type: sse
  metadataType: done
`,
			wantPort:   defaultPort,
			wantFramer: stream.SSEFramer{MetadataType: "done"},
		},
		{
			name:    "Missing backend",
			yaml:    "port: \"8080\"",
			wantErr: true,
		},
		{
			name: "Unknown framing",
			yaml: `
backendURL: http://localhost:8000
framing:
  type: websocket
`,
			wantErr: true,
		},
		{
			name: "Framing without type",
			yaml: `
backendURL: http://localhost:8000
framing:
  marker: x
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg config
			err := yaml.Unmarshal([]byte(tt.yaml), &cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			if cfg.Port != tt.wantPort {
				t.Errorf("Port = %q, want %q", cfg.Port, tt.wantPort)
			}
			if got := cfg.Framing.framer(); got != tt.wantFramer {
				t.Errorf("framer() = %#v, want %#v", got, tt.wantFramer)
			}
			if cfg.StreamTimeout != tt.wantTTL {
				t.Errorf("StreamTimeout = %v, want %v", cfg.StreamTimeout, tt.wantTTL)
			}
		})
	}
}

func TestConfigLogLevel(t *testing.T) {
	tests := []struct {
		level   string
		want    slog.Level
		wantErr bool
	}{
		{level: "", want: slog.LevelInfo},
		{level: "debug", want: slog.LevelDebug},
		{level: "WARN", want: slog.LevelWarn},
		{level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, err := config{LogLevel: tt.level}.logLevel()
			if (err != nil) != tt.wantErr {
				t.Fatalf("logLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("logLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIdentityConfig(t *testing.T) {
	id, _ := identityConfig{Header: "X-User"}.identity()
	if got, ok := id.(services.HeaderIdentity); !ok || got.Header != "X-User" {
		t.Errorf("identity() = %#v, want header identity", id)
	}

	id, _ = identityConfig{}.identity()
	if got, ok := id.(services.CookieIdentity); !ok || got.Name != defaultCookieName {
		t.Errorf("identity() = %#v, want cookie identity named %q", id, defaultCookieName)
	}
}
