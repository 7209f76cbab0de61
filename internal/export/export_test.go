// SPDX-License-Identifier: MPL-2.0

package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/showrefs/showrefs/internal/config"
	"github.com/showrefs/showrefs/internal/testutil"
)

const graphSpec = "App:Core,Log,Missing Core:Log,App Log!:"

func TestFromSnapshot(t *testing.T) {
	t.Parallel()

	snap := testutil.Snapshot(t, graphSpec, "App")
	doc := FromSnapshot(snap)

	if doc.ID != snap.ID.String() || doc.Root != "App" {
		t.Errorf("ID/Root = %s/%s", doc.ID, doc.Root)
	}

	names := make([]string, len(doc.Modules))
	for i, m := range doc.Modules {
		names[i] = m.Name
	}
	if want := []string{"App", "Core", "Log", "Missing"}; !slices.Equal(names, want) {
		t.Errorf("module order = %v, want %v", names, want)
	}

	core := doc.Modules[1]
	if !slices.Equal(core.Dependencies, []string{"App", "Log"}) || !slices.Equal(core.Cycles, []string{"App"}) {
		t.Errorf("Core = %+v", core)
	}
	if core.Attributes == nil || core.Attributes.Company != "Example Corp" {
		t.Errorf("Core.Attributes = %+v", core.Attributes)
	}

	log := doc.Modules[2]
	if !log.Shared || !log.Available || log.Label != "Log (shared)" || len(log.Dependencies) != 0 {
		t.Errorf("Log = %+v", log)
	}
	missing := doc.Modules[3]
	if missing.Available || missing.Version != "" || missing.Attributes != nil {
		t.Errorf("Missing = %+v", missing)
	}

	if got := doc.Reverse["Log"]; !slices.Equal(got, []string{"App", "Core"}) {
		t.Errorf("Reverse[Log] = %v", got)
	}
	if got := doc.Reverse["App"]; !slices.Equal(got, []string{"Core"}) {
		t.Errorf("Reverse[App] = %v", got)
	}
}

func TestWrite_Decodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format config.OutputFormat
		decode func([]byte, any) error
	}{
		{config.FormatJSON, json.Unmarshal},
		{config.FormatYAML, yaml.Unmarshal},
		{config.FormatTOML, toml.Unmarshal},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			t.Parallel()

			snap := testutil.Snapshot(t, graphSpec, "App")
			snap.LoadedAt = time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

			var buf bytes.Buffer
			if err := Write(&buf, tt.format, snap); err != nil {
				t.Fatalf("Write() error = %v", err)
			}

			var got Document
			if err := tt.decode(buf.Bytes(), &got); err != nil {
				t.Fatalf("decode error = %v\n%s", err, buf.String())
			}

			want := FromSnapshot(snap)
			if got.ID != want.ID || got.RootPath != want.RootPath || !got.LoadedAt.Equal(want.LoadedAt) {
				t.Errorf("header = %s %s %s, want %s %s %s", got.ID, got.RootPath, got.LoadedAt, want.ID, want.RootPath, want.LoadedAt)
			}
			if !reflect.DeepEqual(got.Modules, want.Modules) {
				t.Errorf("Modules = %+v\nwant %+v", got.Modules, want.Modules)
			}
			if !reflect.DeepEqual(got.Reverse, want.Reverse) {
				t.Errorf("Reverse = %v, want %v", got.Reverse, want.Reverse)
			}
		})
	}
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	snap := testutil.Snapshot(t, graphSpec, "App")
	for _, f := range []config.OutputFormat{config.FormatText, "xml"} {
		err := Write(&bytes.Buffer{}, f, snap)
		if !errors.Is(err, ErrUnsupportedFormat) || !strings.Contains(err.Error(), string(f)) {
			t.Errorf("Write(%s) error = %v", f, err)
		}
	}
}
