// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/showrefs/showrefs/pkg/modref"
	"github.com/showrefs/showrefs/pkg/refgraph"
)

func TestSetHomeDir(t *testing.T) {
	envVar := "HOME"
	if runtime.GOOS == "windows" {
		envVar = "USERPROFILE"
	}
	original, hadOriginal := os.LookupEnv(envVar)

	dir := t.TempDir()
	restore := SetHomeDir(t, dir)
	if got := os.Getenv(envVar); got != dir {
		t.Errorf("%s = %q, want %q", envVar, got, dir)
	}
	if home, err := os.UserHomeDir(); err != nil || home != dir {
		t.Errorf("UserHomeDir() = %q, %v", home, err)
	}

	restore()
	got, has := os.LookupEnv(envVar)
	if got != original || has != hadOriginal {
		t.Errorf("after restore %s = %q (set %v), want %q (set %v)", envVar, got, has, original, hadOriginal)
	}
}

func TestModuleTree_Layout(t *testing.T) {
	t.Parallel()

	tree := NewModuleTree(t)
	tests := []struct {
		got  string
		want string
	}{
		{tree.Module("App", "Core@2.0.0.0", "Log"), filepath.Join(tree.AppDir, "App.dll")},
		{tree.Shared("Core", "2.0.0.0"), filepath.Join(tree.CacheDir, "Core", "2.0.0.0", "Core.dll")},
		{tree.Sidecar("Tool", ".exe") + ".cue", filepath.Join(tree.AppDir, "Tool.exe.cue")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("path = %q, want %q", tt.got, tt.want)
		}
		if _, err := os.Stat(tt.want); err != nil {
			t.Errorf("%s not written: %v", tt.want, err)
		}
	}
}

func TestManifest(t *testing.T) {
	t.Parallel()

	got := Manifest("App", "1.0.0.0", "Core@2.0.0.0", "Log")
	want := "name: \"App\"\nversion: \"1.0.0.0\"\nreferences: [\n" +
		"\t{name: \"Core\", version: \"2.0.0.0\"},\n" +
		"\t{name: \"Log\"},\n]\n"
	if got != want {
		t.Errorf("Manifest() =\n%s\nwant\n%s", got, want)
	}
}

func TestUniverse_Outcomes(t *testing.T) {
	t.Parallel()

	const spec = "App:Core,Log,Gone Core: Log!:"
	snap := Snapshot(t, spec, "App")
	if snap.Graph.Len() != 4 {
		t.Errorf("Len() = %d, want 4", snap.Graph.Len())
	}

	for name, want := range map[modref.Name]refgraph.Outcome{
		"App":  refgraph.OutcomeLocal,
		"Core": refgraph.OutcomeLocal,
		"Log":  refgraph.OutcomeShared,
		"Gone": refgraph.OutcomeUnavailable,
	} {
		n, ok := snap.Graph.Node(name)
		if !ok {
			t.Errorf("%s missing from graph", name)
			continue
		}
		if got := n.Module.Outcome(); got != want {
			t.Errorf("%s outcome = %s, want %s", name, got, want)
		}
	}

	if _, _, err := NewUniverse(spec).Open(context.Background(), "Gone"); err == nil {
		t.Error("Open() of an unavailable root should fail")
	}
}
