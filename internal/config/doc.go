// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/showrefs/config.cue (XDG on Linux,
// ~/Library/Application Support/showrefs/config.cue on macOS,
// %APPDATA%\showrefs\config.cue on Windows) or ./config.cue, validated
// against the embedded config_schema.cue. SHOWREFS_* environment variables,
// including those from a .env file in the working directory, override file values.
package config
