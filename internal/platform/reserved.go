// SPDX-License-Identifier: MPL-2.0

// Package platform holds operating-system rules that apply to module files
// regardless of the host the graph is inspected on.
package platform

import "strings"

// Windows is the runtime.GOOS value for Windows.
const Windows = "windows"

// reservedDeviceNames cannot name a file on Windows, with or without an
// extension.
var reservedDeviceNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// IsReservedDeviceName reports whether a module file named name would
// collide with a Windows device. Only the part before the first dot counts,
// so "nul.Interop" is reserved and "Console" is not.
func IsReservedDeviceName(name string) bool {
	base, _, _ := strings.Cut(name, ".")
	return reservedDeviceNames[strings.ToUpper(strings.TrimSpace(base))]
}
