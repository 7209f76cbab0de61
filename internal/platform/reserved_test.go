// SPDX-License-Identifier: MPL-2.0

package platform

import "testing"

func TestIsReservedDeviceName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{"CON", true},
		{"con", true},
		{"nul.Interop", true},
		{"COM9", true},
		{"LPT1.dll", true},
		{"Console", false},
		{"COM10", false},
		{"System.Core", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsReservedDeviceName(tt.name); got != tt.want {
			t.Errorf("IsReservedDeviceName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
