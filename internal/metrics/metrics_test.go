// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	fixtures "github.com/showrefs/showrefs/internal/testutil"
	"github.com/showrefs/showrefs/pkg/refgraph"
)

func load(t *testing.T, r *Recorder, spec, root string) {
	t.Helper()
	session := refgraph.NewSession(fixtures.NewUniverse(spec), refgraph.WithObserver(r))
	if _, err := session.Load(context.Background(), root); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestRecorder_ObservesBuild(t *testing.T) {
	t.Parallel()

	r := New()
	// App -> Core, Log!, Missing; Core -> App closes a cycle.
	load(t, r, "App:Core,Log,Missing Core:App Log!:", "App")

	tests := []struct {
		outcome refgraph.Outcome
		want    float64
	}{
		{refgraph.OutcomeLocal, 2},
		{refgraph.OutcomeShared, 1},
		{refgraph.OutcomeUnavailable, 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(r.resolutions.WithLabelValues(tt.outcome.String()))
		if got != tt.want {
			t.Errorf("resolutions{outcome=%s} = %v, want %v", tt.outcome, got, tt.want)
		}
	}

	if got := testutil.ToFloat64(r.modules); got != 4 {
		t.Errorf("graph_modules = %v, want 4", got)
	}
	if got := testutil.ToFloat64(r.edges); got != 4 {
		t.Errorf("graph_edges = %v, want 4", got)
	}
	if got := testutil.ToFloat64(r.cycleEdges); got != 1 {
		t.Errorf("graph_cycle_edges = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(r.buildDuration); got != 1 {
		t.Errorf("build_duration_seconds series = %d, want 1", got)
	}
	if got := testutil.ToFloat64(r.loads.WithLabelValues("success")); got != 1 {
		t.Errorf("loads{result=success} = %v, want 1", got)
	}
}

func TestRecorder_ObserveLoadFailure(t *testing.T) {
	t.Parallel()

	r := New()
	r.ObserveLoad(errors.New("malformed root"))
	r.ObserveLoad(nil)

	if got := testutil.ToFloat64(r.loads.WithLabelValues("failure")); got != 1 {
		t.Errorf("loads{result=failure} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.loads.WithLabelValues("success")); got != 1 {
		t.Errorf("loads{result=success} = %v, want 1", got)
	}
}

func TestRecorder_Handler(t *testing.T) {
	t.Parallel()

	r := New()
	r.ObserveResolution(refgraph.OutcomeShared)

	srv := httptest.NewServer(r.Mux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`showrefs_resolutions_total{outcome="shared"} 1`,
		`showrefs_resolutions_total{outcome="unavailable"} 0`,
		"showrefs_graph_modules",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
	if strings.Contains(string(body), "go_goroutines") {
		t.Error("private registry should not expose runtime collectors")
	}
}
