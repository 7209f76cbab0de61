// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/showrefs/showrefs/internal/issue"
	"github.com/showrefs/showrefs/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "showrefs"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. SHOWREFS_OUTPUT_FORMAT.
	EnvPrefix = "SHOWREFS"
	// DotEnvFile is loaded from the working directory before env overrides apply.
	DotEnvFile = ".env"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the showrefs directory under the user's configuration
// root (os.UserConfigDir): %AppData% on Windows, ~/Library/Application
// Support on macOS and $XDG_CONFIG_HOME or ~/.config elsewhere.
//
//nolint:revive // config.Dir would read ambiguously at call sites
func ConfigDir() (string, error) {
	if dir, ok := overriddenConfigDir(); ok {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// loadWithOptions loads configuration with precedence
// defaults < config file < environment (including the .env file).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	if err := loadDotEnv(opts.EnvFilePath); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("load environment file").
			WithResource(opts.EnvFilePath).
			WithSuggestion("Check that the file uses KEY=value lines").
			Wrap(err).
			BuildError()
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := resolveConfigPath(opts)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Use 'showrefs config show' to see the effective configuration").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Check the values set through " + EnvPrefix + "_* environment variables").
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("shared_cache.path", defaults.SharedCache.Path)
	v.SetDefault("shared_cache.enabled", defaults.SharedCache.Enabled)
	v.SetDefault("extensions", defaults.Extensions)
	v.SetDefault("output.format", string(defaults.Output.Format))
	v.SetDefault("output.expand_all", defaults.Output.ExpandAll)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("ui.color", string(defaults.UI.Color))
	v.SetDefault("metadata.cache_size", defaults.Metadata.CacheSize)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("serve.host", defaults.Serve.Host)
	v.SetDefault("serve.port", defaults.Serve.Port)
	v.SetDefault("serve.metrics_addr", defaults.Serve.MetricsAddr)
}

// resolveConfigPath returns the config file to load, or "" when none exists.
// An explicit path must exist.
func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'showrefs config init' to create a default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		cfgDir = dir
	}

	for _, candidate := range []string{
		filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
		ConfigFileName + "." + ConfigFileExt,
	} {
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

// loadDotEnv loads path, or DotEnvFile when path is empty, into the process
// environment. Variables that are already set win. A missing default file
// is not an error.
func loadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = DotEnvFile
	}
	if !explicit && !fileExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into v.
//
// This does not use cueutil.ParseAndDecode: the result is merged into
// Viper as a map so that defaults and env overrides keep their precedence.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ConfigFilePath returns the default config file path.
func ConfigFilePath() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// CreateDefaultConfig writes a default config file unless one exists and
// returns its path.
func CreateDefaultConfig() (string, error) {
	cfgPath, err := ConfigFilePath()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, nil
}

// GenerateCUE generates a CUE representation of the configuration.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// showrefs configuration file\n\n")

	sb.WriteString("shared_cache: {\n")
	if cfg.SharedCache.Path != "" {
		fmt.Fprintf(&sb, "\tpath: %q\n", cfg.SharedCache.Path)
	}
	fmt.Fprintf(&sb, "\tenabled: %v\n", cfg.SharedCache.Enabled)
	sb.WriteString("}\n")

	quoted := make([]string, len(cfg.Extensions))
	for i, ext := range cfg.Extensions {
		quoted[i] = fmt.Sprintf("%q", ext)
	}
	fmt.Fprintf(&sb, "\nextensions: [%s]\n", strings.Join(quoted, ", "))

	sb.WriteString("\noutput: {\n")
	fmt.Fprintf(&sb, "\tformat: %q\n", cfg.Output.Format)
	fmt.Fprintf(&sb, "\texpand_all: %v\n", cfg.Output.ExpandAll)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tcolor: %q\n", cfg.UI.Color)
	sb.WriteString("}\n")

	sb.WriteString("\nmetadata: {\n")
	fmt.Fprintf(&sb, "\tcache_size: %d\n", cfg.Metadata.CacheSize)
	sb.WriteString("}\n")

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce.String())
	sb.WriteString("}\n")

	sb.WriteString("\nserve: {\n")
	fmt.Fprintf(&sb, "\thost: %q\n", cfg.Serve.Host)
	fmt.Fprintf(&sb, "\tport: %d\n", cfg.Serve.Port)
	if cfg.Serve.MetricsAddr != "" {
		fmt.Fprintf(&sb, "\tmetrics_addr: %q\n", cfg.Serve.MetricsAddr)
	}
	sb.WriteString("}\n")

	return sb.String()
}
