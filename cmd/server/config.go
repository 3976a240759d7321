package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MegaGrindStone/docchat-web-ui/internal/handlers"
	"github.com/MegaGrindStone/docchat-web-ui/internal/services"
	"github.com/MegaGrindStone/docchat-web-ui/internal/stream"
	"gopkg.in/yaml.v3"
)

type framingConfig interface {
	framer() stream.Framer
}

type config struct {
	Port              string         `yaml:"port"`
	BackendURL        string         `yaml:"backendURL"`
	Framing           framingConfig  `yaml:"framing"`
	Identity          identityConfig `yaml:"identity"`
	RequestsPerSecond float64        `yaml:"requestsPerSecond"`
	StreamTimeout     time.Duration  `yaml:"streamTimeout"`
	LogLevel          string         `yaml:"logLevel"`
	StorePath         string         `yaml:"storePath"`
}

type markerFramingConfig struct {
	Marker string `yaml:"marker"`
}

type sseFramingConfig struct {
	ContentType  string `yaml:"contentType"`
	MetadataType string `yaml:"metadataType"`
}

// identityConfig selects how users are identified. When Header is set, the user id is read from that
// header; otherwise every browser gets an anonymous id cookie.
type identityConfig struct {
	Header     string `yaml:"header"`
	CookieName string `yaml:"cookieName"`
	Secure     bool   `yaml:"secure"`
}

const (
	defaultPort       = "8080"
	defaultCookieName = "docchat_user"
)

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port              string         `yaml:"port"`
		BackendURL        string         `yaml:"backendURL"`
		Framing           map[string]any `yaml:"framing"`
		Identity          identityConfig `yaml:"identity"`
		RequestsPerSecond float64        `yaml:"requestsPerSecond"`
		StreamTimeout     time.Duration  `yaml:"streamTimeout"`
		LogLevel          string         `yaml:"logLevel"`
		StorePath         string         `yaml:"storePath"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	if rawConfig.BackendURL == "" {
		return fmt.Errorf("backendURL is required")
	}
	if rawConfig.StreamTimeout < 0 {
		return fmt.Errorf("streamTimeout must not be negative")
	}

	c.Port = rawConfig.Port
	if c.Port == "" {
		c.Port = defaultPort
	}
	c.BackendURL = rawConfig.BackendURL
	c.Identity = rawConfig.Identity
	c.RequestsPerSecond = rawConfig.RequestsPerSecond
	c.StreamTimeout = rawConfig.StreamTimeout
	c.LogLevel = rawConfig.LogLevel
	c.StorePath = rawConfig.StorePath

	framingType := "marker"
	if rawConfig.Framing != nil {
		t, ok := rawConfig.Framing["type"].(string)
		if !ok {
			return fmt.Errorf("framing type is required")
		}
		framingType = t
	}

	framingRawYAML, err := yaml.Marshal(rawConfig.Framing)
	if err != nil {
		return err
	}

	var framing framingConfig
	switch framingType {
	case "marker":
		framing = &markerFramingConfig{}
	case "sse":
		framing = &sseFramingConfig{}
	default:
		return fmt.Errorf("unknown framing type: %s", framingType)
	}

	if rawConfig.Framing != nil {
		if err := yaml.Unmarshal(framingRawYAML, framing); err != nil {
			return err
		}
	}

	c.Framing = framing

	return nil
}

func (c config) logLevel() (slog.Level, error) {
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func (m markerFramingConfig) framer() stream.Framer {
	return stream.MarkerFramer{Marker: m.Marker}
}

func (s sseFramingConfig) framer() stream.Framer {
	return stream.SSEFramer{
		ContentType:  s.ContentType,
		MetadataType: s.MetadataType,
	}
}

// identity returns the configured Identity, and the middleware to wrap the handlers with. The header
// identity needs no middleware.
func (i identityConfig) identity() (handlers.Identity, func(http.Handler) http.Handler) {
	if i.Header != "" {
		return services.HeaderIdentity{Header: i.Header}, func(next http.Handler) http.Handler { return next }
	}

	name := i.CookieName
	if name == "" {
		name = defaultCookieName
	}
	cookie := services.CookieIdentity{Name: name, Secure: i.Secure}
	return cookie, cookie.Middleware
}
