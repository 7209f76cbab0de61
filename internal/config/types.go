// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	// FormatText renders trees for the terminal.
	FormatText OutputFormat = "text"
	// FormatJSON encodes the graph as JSON.
	FormatJSON OutputFormat = "json"
	// FormatYAML encodes the graph as YAML.
	FormatYAML OutputFormat = "yaml"
	// FormatTOML encodes the graph as TOML.
	FormatTOML OutputFormat = "toml"

	// ColorAuto styles output only when writing to a terminal.
	ColorAuto ColorMode = "auto"
	// ColorAlways forces styled output.
	ColorAlways ColorMode = "always"
	// ColorNever disables styling.
	ColorNever ColorMode = "never"
)

var (
	// ErrInvalidOutputFormat is returned when an OutputFormat value is not recognized.
	ErrInvalidOutputFormat = errors.New("invalid output format")
	// ErrInvalidColorMode is returned when a ColorMode value is not recognized.
	ErrInvalidColorMode = errors.New("invalid color mode")
	// ErrInvalidExtension is the sentinel error wrapped by InvalidExtensionError.
	ErrInvalidExtension = errors.New("invalid module extension")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// OutputFormat selects how a graph is written.
	OutputFormat string

	// InvalidOutputFormatError is returned when an OutputFormat value is not recognized.
	InvalidOutputFormatError struct {
		Value OutputFormat
	}

	// ColorMode selects when output is styled.
	ColorMode string

	// InvalidColorModeError is returned when a ColorMode value is not recognized.
	InvalidColorModeError struct {
		Value ColorMode
	}

	// InvalidExtensionError is returned when a module extension does not
	// start with a dot or contains path separators.
	InvalidExtensionError struct {
		Value string
	}

	// InvalidConfigError aggregates field validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// SharedCache configures the shared module cache tier.
		SharedCache SharedCacheConfig `json:"shared_cache" mapstructure:"shared_cache"`
		// Extensions are probed in order when resolving modules next to the root.
		Extensions []string `json:"extensions" mapstructure:"extensions"`
		// Output configures rendering defaults.
		Output OutputConfig `json:"output" mapstructure:"output"`
		// UI configures console behavior.
		UI UIConfig `json:"ui" mapstructure:"ui"`
		// Metadata configures the manifest reader.
		Metadata MetadataConfig `json:"metadata" mapstructure:"metadata"`
		// Watch configures watch mode.
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
		// Serve configures the SSH view server.
		Serve ServeConfig `json:"serve" mapstructure:"serve"`
	}

	// SharedCacheConfig configures the shared module cache.
	SharedCacheConfig struct {
		// Path overrides the cache directory. Empty uses SHOWREFS_SHARED_CACHE
		// or ~/.showrefs/shared.
		Path string `json:"path" mapstructure:"path"`
		// Enabled turns the shared cache lookup on or off.
		Enabled bool `json:"enabled" mapstructure:"enabled"`
	}

	// OutputConfig configures output defaults.
	OutputConfig struct {
		Format OutputFormat `json:"format" mapstructure:"format"`
		// ExpandAll unfolds every occurrence of a module in tree output.
		ExpandAll bool `json:"expand_all" mapstructure:"expand_all"`
	}

	// UIConfig configures console behavior.
	UIConfig struct {
		Verbose bool      `json:"verbose" mapstructure:"verbose"`
		Color   ColorMode `json:"color" mapstructure:"color"`
	}

	// MetadataConfig configures manifest decoding.
	MetadataConfig struct {
		// CacheSize is the number of decoded manifests kept between loads.
		CacheSize int `json:"cache_size" mapstructure:"cache_size"`
	}

	// WatchConfig configures watch mode.
	WatchConfig struct {
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
	}

	// ServeConfig configures the SSH view server.
	ServeConfig struct {
		Host string `json:"host" mapstructure:"host"`
		Port int    `json:"port" mapstructure:"port"`
		// MetricsAddr enables a Prometheus /metrics listener when set.
		MetricsAddr string `json:"metrics_addr" mapstructure:"metrics_addr"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SharedCache: SharedCacheConfig{Enabled: true},
		Extensions:  []string{".dll", ".exe"},
		Output:      OutputConfig{Format: FormatText},
		UI:          UIConfig{Color: ColorAuto},
		Metadata:    MetadataConfig{CacheSize: 1024},
		Watch:       WatchConfig{Debounce: 300 * time.Millisecond},
		Serve:       ServeConfig{Host: "127.0.0.1", Port: 2222},
	}
}

// OutputFormats returns every supported output format.
func OutputFormats() []OutputFormat {
	return []OutputFormat{FormatText, FormatJSON, FormatYAML, FormatTOML}
}

// String returns the string representation of the OutputFormat.
func (f OutputFormat) String() string { return string(f) }

// IsValid returns whether the OutputFormat is one of the defined formats.
func (f OutputFormat) IsValid() (bool, []error) {
	if slices.Contains(OutputFormats(), f) {
		return true, nil
	}
	return false, []error{&InvalidOutputFormatError{Value: f}}
}

// Error implements the error interface.
func (e *InvalidOutputFormatError) Error() string {
	return fmt.Sprintf("invalid output format %q (valid: text, json, yaml, toml)", e.Value)
}

// Unwrap returns ErrInvalidOutputFormat for errors.Is() compatibility.
func (e *InvalidOutputFormatError) Unwrap() error { return ErrInvalidOutputFormat }

// String returns the string representation of the ColorMode.
func (c ColorMode) String() string { return string(c) }

// IsValid returns whether the ColorMode is one of the defined modes.
func (c ColorMode) IsValid() (bool, []error) {
	switch c {
	case ColorAuto, ColorAlways, ColorNever:
		return true, nil
	default:
		return false, []error{&InvalidColorModeError{Value: c}}
	}
}

// Error implements the error interface.
func (e *InvalidColorModeError) Error() string {
	return fmt.Sprintf("invalid color mode %q (valid: auto, always, never)", e.Value)
}

// Unwrap returns ErrInvalidColorMode for errors.Is() compatibility.
func (e *InvalidColorModeError) Unwrap() error { return ErrInvalidColorMode }

// Error implements the error interface.
func (e *InvalidExtensionError) Error() string {
	return fmt.Sprintf("invalid module extension %q: must start with '.' and contain no path separators", e.Value)
}

// Unwrap returns ErrInvalidExtension for errors.Is() compatibility.
func (e *InvalidExtensionError) Unwrap() error { return ErrInvalidExtension }

// IsValid returns whether the Config has valid fields.
// CUE checks the file; this also covers values that came from
// environment variables or flags.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Output.Format.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.Color.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(c.Extensions) == 0 {
		errs = append(errs, &InvalidExtensionError{Value: ""})
	}
	for _, ext := range c.Extensions {
		if len(ext) < 2 || !strings.HasPrefix(ext, ".") || strings.ContainsAny(ext[1:], `./\`) {
			errs = append(errs, &InvalidExtensionError{Value: ext})
		}
	}
	if c.Metadata.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("metadata.cache_size must not be negative, got %d", c.Metadata.CacheSize))
	}
	if c.Watch.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must be positive, got %s", c.Watch.Debounce))
	}
	if c.Serve.Port <= 0 || c.Serve.Port > 65535 {
		errs = append(errs, fmt.Errorf("serve.port must be between 1 and 65535, got %d", c.Serve.Port))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
