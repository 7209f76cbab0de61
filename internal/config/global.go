// SPDX-License-Identifier: MPL-2.0

package config

import "sync/atomic"

// configDirOverride replaces the platform config directory when set.
// os.UserConfigDir ignores HOME on macOS, so tests cannot redirect it.
var configDirOverride atomic.Pointer[string]

// SetConfigDirOverride makes ConfigDir return dir until Reset is called.
func SetConfigDirOverride(dir string) {
	configDirOverride.Store(&dir)
}

// Reset drops the config directory override.
func Reset() {
	configDirOverride.Store(nil)
}

func overriddenConfigDir() (string, bool) {
	dir := configDirOverride.Load()
	if dir == nil || *dir == "" {
		return "", false
	}
	return *dir, true
}
