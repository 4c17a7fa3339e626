package vitalband

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Storage is the persistence substrate backing the SessionStore. The second
// Get return reports presence, so an empty value and a missing key are
// distinguishable.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Navigator is the navigation surface of the embedding application. The
// control plane produces typed decisions and locations; it never touches a
// browser (or terminal) directly.
type Navigator interface {
	CurrentLocation() string
	Navigate(to string)
}

// Config holds client options
type Config interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetLoginPath() string
	GetLandingPath() string
}

// ClientConfig is a plain Config implementation with sensible defaults.
type ClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	LoginPath      string
	LandingPath    string
}

func (c ClientConfig) GetBaseURL() string { return c.BaseURL }

func (c ClientConfig) GetRequestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return c.RequestTimeout
}

func (c ClientConfig) GetLoginPath() string {
	if c.LoginPath == "" {
		return DefaultLoginPath
	}
	return c.LoginPath
}

func (c ClientConfig) GetLandingPath() string {
	if c.LandingPath == "" {
		return DefaultLandingPath
	}
	return c.LandingPath
}

const (
	// DefaultRequestTimeout bounds every remote call; a slow server surfaces
	// as a timeout error, never a silent hang.
	DefaultRequestTimeout = 15 * time.Second

	// DefaultLoginPath is where unauthenticated navigation lands.
	DefaultLoginPath = "/login"

	// DefaultLandingPath is where authenticated but unauthorized navigation
	// lands.
	DefaultLandingPath = "/dashboard"
)

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] VITALBAND "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] VITALBAND "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] VITALBAND "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] VITALBAND "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
