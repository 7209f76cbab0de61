// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/showrefs/showrefs/internal/issue"
	"github.com/showrefs/showrefs/internal/testutil"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.cue")
	testutil.MustWriteFile(t, path, content)
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if !cfg.SharedCache.Enabled || cfg.SharedCache.Path != "" {
		t.Errorf("SharedCache = %+v, want enabled with default path", cfg.SharedCache)
	}
	if !slices.Equal(cfg.Extensions, []string{".dll", ".exe"}) {
		t.Errorf("Extensions = %v", cfg.Extensions)
	}
	if cfg.Output.Format != FormatText || cfg.UI.Color != ColorAuto {
		t.Errorf("Output/UI = %+v %+v", cfg.Output, cfg.UI)
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("DefaultConfig().IsValid() = false: %v", errs)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	p := NewProvider()
	cfg, err := p.Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Path() != "" {
		t.Errorf("Path() = %q, want empty", p.Path())
	}
	if cfg.Serve.Port != 2222 || cfg.Watch.Debounce != 300*time.Millisecond {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "config.cue"), `
shared_cache: {path: "/opt/modules", enabled: false}
extensions: [".dll"]
output: format: "yaml"
ui: {verbose: true, color: "never"}
watch: debounce: "1s"
serve: {port: 2300, metrics_addr: ":9090"}
`)

	p := NewProvider()
	cfg, err := p.Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if p.Path() != filepath.Join(dir, "config.cue") {
		t.Errorf("Path() = %q", p.Path())
	}
	if cfg.SharedCache.Path != "/opt/modules" || cfg.SharedCache.Enabled {
		t.Errorf("SharedCache = %+v", cfg.SharedCache)
	}
	if !slices.Equal(cfg.Extensions, []string{".dll"}) {
		t.Errorf("Extensions = %v", cfg.Extensions)
	}
	if cfg.Output.Format != FormatYAML || !cfg.UI.Verbose || cfg.UI.Color != ColorNever {
		t.Errorf("Output/UI = %+v %+v", cfg.Output, cfg.UI)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("Debounce = %s, want 1s", cfg.Watch.Debounce)
	}
	if cfg.Serve.Port != 2300 || cfg.Serve.MetricsAddr != ":9090" || cfg.Serve.Host != "127.0.0.1" {
		t.Errorf("Serve = %+v", cfg.Serve)
	}
	// Untouched sections keep their defaults.
	if cfg.Metadata.CacheSize != 1024 {
		t.Errorf("CacheSize = %d, want 1024", cfg.Metadata.CacheSize)
	}
}

func TestLoad_SchemaErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown format", `output: format: "xml"`, "output.format"},
		{"extension without dot", `extensions: ["dll"]`, "extensions[0]"},
		{"empty extensions", `extensions: []`, "extensions"},
		{"port out of range", `serve: port: 70000`, "serve.port"},
		{"unknown field", `colour: "red"`, "colour"},
		{"bad duration", `watch: debounce: "soon"`, "watch.debounce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeConfig(t, tt.content)
			_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
			if err == nil {
				t.Fatal("Load() should fail")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error should be *issue.ActionableError, got %T", err)
			}
			if ae.Resource != path {
				t.Errorf("Resource = %q, want %q", ae.Resource, path)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || !ae.HasSuggestions() {
		t.Fatalf("Load() error = %v, want actionable error with suggestions", err)
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

// Environment tests mutate process state and cannot run in parallel.

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SHOWREFS_OUTPUT_FORMAT", "json")
	t.Setenv("SHOWREFS_SERVE_PORT", "2400")

	path := writeConfig(t, `output: format: "yaml"`)
	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output.Format != FormatJSON {
		t.Errorf("Format = %s, want json", cfg.Output.Format)
	}
	if cfg.Serve.Port != 2400 {
		t.Errorf("Port = %d, want 2400", cfg.Serve.Port)
	}
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	t.Setenv("SHOWREFS_UI_COLOR", "rainbow")

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidColorMode) {
		t.Errorf("Load() error = %v, want ErrInvalidColorMode", err)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	const key = "SHOWREFS_METADATA_CACHE_SIZE"
	t.Cleanup(func() { _ = os.Unsetenv(key) }) // godotenv sets it outside t.Setenv

	envFile := filepath.Join(t.TempDir(), "test.env")
	testutil.MustWriteFile(t, envFile, key+"=64\n")

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir(), EnvFilePath: envFile})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Metadata.CacheSize != 64 {
		t.Errorf("CacheSize = %d, want 64", cfg.Metadata.CacheSize)
	}

	_, err = NewProvider().Load(context.Background(), LoadOptions{EnvFilePath: filepath.Join(t.TempDir(), "missing.env")})
	if err == nil {
		t.Error("missing explicit env file should fail")
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	path, err := CreateDefaultConfig()
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("path = %q", path)
	}

	// The generated file must load back to the defaults.
	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load(generated) error = %v", err)
	}
	want := DefaultConfig()
	if cfg.Serve != want.Serve || cfg.Watch != want.Watch || !slices.Equal(cfg.Extensions, want.Extensions) {
		t.Errorf("round trip = %+v, want %+v", cfg, want)
	}

	// An existing file is left alone.
	testutil.MustWriteFile(t, path, `ui: verbose: true`)
	if _, err := CreateDefaultConfig(); err != nil {
		t.Fatalf("CreateDefaultConfig() second call error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `ui: verbose: true` {
		t.Errorf("existing config was overwritten: %q", data)
	}
}

func TestOutputFormat_IsValid(t *testing.T) {
	t.Parallel()

	for _, f := range OutputFormats() {
		if valid, _ := f.IsValid(); !valid {
			t.Errorf("%s should be valid", f)
		}
	}
	valid, errs := OutputFormat("xml").IsValid()
	if valid || len(errs) != 1 || !errors.Is(errs[0], ErrInvalidOutputFormat) {
		t.Errorf("IsValid(xml) = %v, %v", valid, errs)
	}
}

func TestConfig_IsValidExtensions(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Extensions = []string{".dll", "exe", "./x", "."}
	valid, errs := cfg.IsValid()
	if valid {
		t.Fatal("IsValid() should fail")
	}
	var cfgErr *InvalidConfigError
	if !errors.As(errs[0], &cfgErr) || len(cfgErr.FieldErrors) != 3 {
		t.Fatalf("errors = %v, want 3 extension errors", errs)
	}
	if !errors.Is(errs[0], ErrInvalidExtension) || !errors.Is(errs[0], ErrInvalidConfig) {
		t.Error("InvalidConfigError should unwrap to its sentinel and field errors")
	}
}
