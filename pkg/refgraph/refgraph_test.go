// SPDX-License-Identifier: MPL-2.0

package refgraph

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/showrefs/showrefs/pkg/metadata"
	"github.com/showrefs/showrefs/pkg/modref"
)

type (
	// fixture is an in-memory module universe. Names missing from modules
	// are unresolvable.
	fixture struct {
		modules map[modref.Name]fixtureModule
		calls   map[modref.Name]int
	}

	fixtureModule struct {
		deps   []string
		shared bool
	}

	fixtureOpener struct {
		f *fixture
	}

	countingObserver struct {
		mu       sync.Mutex
		outcomes map[Outcome]int
		builds   int
		loads    []error
	}
)

// newFixture parses "A:B,C B:D C:D D:" into a fixture. A trailing "!"
// on a module name marks it as shared.
func newFixture(spec string) *fixture {
	f := &fixture{modules: make(map[modref.Name]fixtureModule), calls: make(map[modref.Name]int)}
	for _, entry := range strings.Fields(spec) {
		name, deps, _ := strings.Cut(entry, ":")
		m := fixtureModule{}
		if strings.HasSuffix(name, "!") {
			name = strings.TrimSuffix(name, "!")
			m.shared = true
		}
		if deps != "" {
			m.deps = strings.Split(deps, ",")
		}
		f.modules[modref.Name(name)] = m
	}
	return f
}

func (f *fixture) Resolve(_ context.Context, ref modref.Reference) *ResolvedModule {
	f.calls[ref.Name]++
	m, ok := f.modules[ref.Name]
	if !ok {
		return Unresolved(ref)
	}

	refs := make([]modref.Reference, 0, len(m.deps))
	for _, d := range m.deps {
		refs = append(refs, modref.New(d, "1.0.0.0"))
	}
	mod := &ResolvedModule{
		Reference: ref,
		Location:  "/app/" + string(ref.Name) + ".dll",
		Metadata:  &metadata.Metadata{Name: ref.Name, Version: "1.0.0.0", References: refs},
	}
	if m.shared {
		mod.IsShared = true
		mod.Location = "/cache/" + string(ref.Name) + "/1.0.0.0/" + string(ref.Name) + ".dll"
		return mod
	}
	mod.DeclaredDependencies = refs
	return mod
}

func (f *fixture) root(name string) *ResolvedModule {
	return f.Resolve(context.Background(), modref.New(name, ""))
}

func (o fixtureOpener) Open(ctx context.Context, rootPath string) (Resolver, *ResolvedModule, error) {
	root := o.f.Resolve(ctx, modref.New(rootPath, ""))
	if !root.Available() {
		return nil, nil, errors.New("malformed root " + rootPath)
	}
	return o.f, root, nil
}

func (o *countingObserver) ObserveResolution(outcome Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = make(map[Outcome]int)
	}
	o.outcomes[outcome]++
}

func (o *countingObserver) ObserveBuild(_ *Graph, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.builds++
}

func (o *countingObserver) ObserveLoad(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loads = append(o.loads, err)
}

// dump renders a tree as indented labels. Aliases end in " *", cycles in
// " @" and nodes with hidden dependencies in " +".
func dump(t *testing.T, n *GraphNode) string {
	t.Helper()
	var sb strings.Builder
	n.Walk(func(node *GraphNode, depth int) bool {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(node.Label)
		if node.Alias {
			sb.WriteString(" *")
		}
		if node.Cycle {
			sb.WriteString(" @")
		}
		if node.Pending {
			sb.WriteString(" +")
		}
		sb.WriteByte('\n')
		return true
	})
	return sb.String()
}

func build(t *testing.T, f *fixture, root string) *Graph {
	t.Helper()
	g, err := NewBuilder(f).Build(context.Background(), f.root(root))
	if err != nil {
		t.Fatalf("Build(%s) error = %v", root, err)
	}
	return g
}

func tree(t *testing.T, g *Graph, opts TreeOptions) *GraphNode {
	t.Helper()
	root, err := g.Tree(opts)
	if err != nil {
		t.Fatalf("Tree() error = %v", err)
	}
	return root
}

func TestBuild_DiamondIsDeduplicated(t *testing.T) {
	t.Parallel()

	f := newFixture("A:B,C B:D C:D D:")
	g := build(t, f, "A")

	if g.Len() != 4 {
		t.Errorf("Len() = %d, want 4", g.Len())
	}
	if f.calls["D"] != 1 {
		t.Errorf("D resolved %d times, want 1", f.calls["D"])
	}
	if want := []modref.Name{"A", "B", "D", "C"}; !slices.Equal(g.Order, want) {
		t.Errorf("Order = %v, want %v", g.Order, want)
	}

	root := tree(t, g, TreeOptions{})
	want := "A\n  B\n    D\n  C\n    D *\n"
	if got := dump(t, root); got != want {
		t.Errorf("tree =\n%s\nwant\n%s", got, want)
	}

	underB := root.Children[0].Children[0]
	underC := root.Children[1].Children[0]
	if underB.Module != underC.Module {
		t.Error("both occurrences of D should share the same ResolvedModule")
	}
	if underB.Alias || !underC.Alias {
		t.Errorf("Alias flags = %v, %v, want false, true", underB.Alias, underC.Alias)
	}
}

func TestBuild_CyclesTerminate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		spec      string
		cycleFrom modref.Name
		cycleTo   modref.Name
		want      string
	}{
		{
			name:      "direct self reference",
			spec:      "A:A,B B:",
			cycleFrom: "A",
			cycleTo:   "A",
			want:      "A\n  A * @\n  B\n",
		},
		{
			name:      "mutual reference",
			spec:      "A:B B:A",
			cycleFrom: "B",
			cycleTo:   "A",
			want:      "A\n  B\n    A * @\n",
		},
		{
			name:      "indirect cycle",
			spec:      "A:B B:C C:A",
			cycleFrom: "C",
			cycleTo:   "A",
			want:      "A\n  B\n    C\n      A * @\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(tt.spec)
			g := build(t, f, "A")

			if !g.IsCycleEdge(tt.cycleFrom, tt.cycleTo) {
				t.Errorf("IsCycleEdge(%s, %s) = false, want true", tt.cycleFrom, tt.cycleTo)
			}
			for name, n := range f.calls {
				if n != 1 {
					t.Errorf("%s resolved %d times, want 1", name, n)
				}
			}
			if got := dump(t, tree(t, g, TreeOptions{})); got != tt.want {
				t.Errorf("tree =\n%s\nwant\n%s", got, tt.want)
			}
			// Expanding every occurrence must still stop at the cycle.
			if got := dump(t, tree(t, g, TreeOptions{ExpandAll: true})); got != tt.want {
				t.Errorf("expanded tree =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestBuild_ChildrenSortedOrdinal(t *testing.T) {
	t.Parallel()

	f := newFixture("Root:Zeta,Alpha,Mu,alpha,Alpha Zeta: Alpha: Mu: alpha:")
	g := build(t, f, "Root")

	want := []modref.Name{"Alpha", "Mu", "Zeta", "alpha"}
	if got := g.Nodes["Root"].Children; !slices.Equal(got, want) {
		t.Errorf("Children = %v, want %v", got, want)
	}
	if got := g.Adjacency["Root"]; !slices.Equal(got, want) {
		t.Errorf("Adjacency = %v, want %v", got, want)
	}
}

func TestBuild_UnresolvedLeaf(t *testing.T) {
	t.Parallel()

	f := newFixture("A:Missing")
	g := build(t, f, "A")

	n := g.Nodes["Missing"]
	if n == nil {
		t.Fatal("Missing has no node")
	}
	if n.Label != "Missing (not available)" {
		t.Errorf("Label = %q", n.Label)
	}
	if n.Module.Available() || n.Module.Outcome() != OutcomeUnavailable {
		t.Errorf("module should be unavailable, got outcome %s", n.Module.Outcome())
	}
	targets, ok := g.Adjacency["Missing"]
	if !ok || len(targets) != 0 {
		t.Errorf("Adjacency[Missing] = %v, %v, want empty entry", targets, ok)
	}
	if len(n.Children) != 0 {
		t.Errorf("Children = %v, want none", n.Children)
	}
}

func TestBuild_SharedIsTerminal(t *testing.T) {
	t.Parallel()

	f := newFixture("A:Sys Sys!:Hidden Hidden:")
	g := build(t, f, "A")

	n := g.Nodes["Sys"]
	if n.Label != "Sys (shared)" {
		t.Errorf("Label = %q, want %q", n.Label, "Sys (shared)")
	}
	if len(n.Children) != 0 || len(g.Adjacency["Sys"]) != 0 {
		t.Errorf("shared module should have no children, got %v", n.Children)
	}
	if len(n.Module.DeclaredDependencies) != 0 {
		t.Errorf("DeclaredDependencies = %v, want empty", n.Module.DeclaredDependencies)
	}
	if f.calls["Hidden"] != 0 {
		t.Error("dependencies of a shared module must not be resolved")
	}
}

func TestBuild_UnavailableRoot(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder(newFixture("")).Build(context.Background(), Unresolved(modref.New("Nope", "")))
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("Build() error = %v, want ErrInvariant", err)
	}
}

func TestBuild_CanceledContext(t *testing.T) {
	t.Parallel()

	f := newFixture("A:B B:")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(f).Build(ctx, f.root("A"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Build() error = %v, want context.Canceled", err)
	}
}

func TestBuild_Observer(t *testing.T) {
	t.Parallel()

	f := newFixture("A:B,Missing,Sys B: Sys!:")
	obs := &countingObserver{}
	if _, err := NewBuilder(f, WithObserver(obs)).Build(context.Background(), f.root("A")); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if obs.outcomes[OutcomeLocal] != 2 || obs.outcomes[OutcomeShared] != 1 || obs.outcomes[OutcomeUnavailable] != 1 {
		t.Errorf("outcomes = %v", obs.outcomes)
	}
	if obs.builds != 1 {
		t.Errorf("builds = %d, want 1", obs.builds)
	}
}

func TestTree_ExpandAllAndDepth(t *testing.T) {
	t.Parallel()

	g := build(t, newFixture("A:B,C B:D C:D D:E E:"), "A")

	expanded := dump(t, tree(t, g, TreeOptions{ExpandAll: true}))
	want := "A\n  B\n    D\n      E\n  C\n    D *\n      E *\n"
	if expanded != want {
		t.Errorf("expanded tree =\n%s\nwant\n%s", expanded, want)
	}

	shallow := dump(t, tree(t, g, TreeOptions{MaxDepth: 1}))
	want = "A\n  B +\n  C +\n"
	if shallow != want {
		t.Errorf("depth-limited tree =\n%s\nwant\n%s", shallow, want)
	}

	// C is first reached at the depth limit under B; the shallower
	// occurrence under A must still unfold it.
	g = build(t, newFixture("A:B,C B:C C:D D:"), "A")
	root := tree(t, g, TreeOptions{MaxDepth: 2})
	want = "A\n  B\n    C +\n  C\n    D\n"
	if got := dump(t, root); got != want {
		t.Errorf("depth-limited tree =\n%s\nwant\n%s", got, want)
	}
	if root.Find("D") == nil {
		t.Error("D should appear under the unfolded occurrence of C")
	}
}

func TestTree_MissingNodeIsInvariantViolation(t *testing.T) {
	t.Parallel()

	g := build(t, newFixture("A:B B:"), "A")
	delete(g.Nodes, "B")

	if _, err := g.Tree(TreeOptions{}); !errors.Is(err, ErrInvariant) {
		t.Errorf("Tree() error = %v, want ErrInvariant", err)
	}
	if err := g.Validate(); !errors.Is(err, ErrInvariant) {
		t.Errorf("Validate() error = %v, want ErrInvariant", err)
	}
}

func TestBuildReverseIndex(t *testing.T) {
	t.Parallel()

	idx := BuildReverseIndex(AdjacencyMap{
		"A": {"B", "C"},
		"D": {"B"},
	})

	names := func(n *ReverseNode) []modref.Name {
		out := make([]modref.Name, 0, len(n.Children))
		for _, c := range n.Children {
			out = append(out, c.Name)
		}
		return out
	}

	if got := names(idx["B"]); !slices.Equal(got, []modref.Name{"A", "D"}) {
		t.Errorf("B children = %v, want [A D]", got)
	}
	if got := names(idx["C"]); !slices.Equal(got, []modref.Name{"A"}) {
		t.Errorf("C children = %v, want [A]", got)
	}
	if len(idx["A"].Children) != 0 || len(idx["D"].Children) != 0 {
		t.Errorf("A and D should have no dependents")
	}
	// Children reuse the node objects of the index.
	if idx["B"].Children[0] != idx["A"] || idx["C"].Children[0] != idx["A"] {
		t.Error("reverse children should share node objects")
	}
	if got := idx.Names(); !slices.Equal(got, []modref.Name{"A", "B", "C", "D"}) {
		t.Errorf("Names() = %v", got)
	}
}

func TestBuildReverseIndex_SelfAndDuplicateEdges(t *testing.T) {
	t.Parallel()

	idx := BuildReverseIndex(AdjacencyMap{"A": {"A", "B", "B"}})

	if len(idx["A"].Children) != 1 || idx["A"].Children[0] != idx["A"] {
		t.Errorf("A should list itself once, got %d children", len(idx["A"].Children))
	}
	if len(idx["B"].Children) != 1 {
		t.Errorf("duplicate edge should be ignored, got %d children", len(idx["B"].Children))
	}
}

func TestReverseIndex_Dependents(t *testing.T) {
	t.Parallel()

	g := build(t, newFixture("App:Core,UI UI:Core,Widgets Widgets:Core Core:Log Log:Core"), "App")
	idx := BuildReverseIndex(g.Adjacency)

	if got, want := idx.Dependents("Widgets"), []modref.Name{"App", "UI"}; !slices.Equal(got, want) {
		t.Errorf("Dependents(Widgets) = %v, want %v", got, want)
	}
	// Core and Log reference each other, so each is its own dependent.
	if got, want := idx.Dependents("Log"), []modref.Name{"App", "Core", "Log", "UI", "Widgets"}; !slices.Equal(got, want) {
		t.Errorf("Dependents(Log) = %v, want %v", got, want)
	}
	if got := idx.Dependents("Unknown"); got != nil {
		t.Errorf("Dependents(Unknown) = %v, want nil", got)
	}
}

func TestReverseIndex_ApplyLabels(t *testing.T) {
	t.Parallel()

	g := build(t, newFixture("App:Core,Missing Core:Log Log!:"), "App")
	idx := BuildReverseIndex(g.Adjacency)
	idx.ApplyLabels(g)

	for name, want := range map[modref.Name]string{
		"App":     "App",
		"Log":     "Log (shared)",
		"Missing": "Missing (not available)",
	} {
		if got := idx[name].Label; got != want {
			t.Errorf("idx[%s].Label = %q, want %q", name, got, want)
		}
	}
}

func TestExpander_MatchesEagerBuild(t *testing.T) {
	t.Parallel()

	spec := "App:Core,UI,Missing,Sys UI:Core,Widgets Widgets:Core,App Core:Log Log: Sys!:Log"
	eager := build(t, newFixture(spec), "App")

	f := newFixture(spec)
	exp, err := NewBuilder(f).Lazy(context.Background(), f.root("App"))
	if err != nil {
		t.Fatalf("Lazy() error = %v", err)
	}
	if err := exp.ExpandAll(context.Background()); err != nil {
		t.Fatalf("ExpandAll() error = %v", err)
	}
	lazy := exp.Graph()

	if err := lazy.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	for _, opts := range []TreeOptions{{}, {ExpandAll: true}} {
		if got, want := dump(t, tree(t, lazy, opts)), dump(t, tree(t, eager, opts)); got != want {
			t.Errorf("lazy tree (%+v) =\n%s\nwant\n%s", opts, got, want)
		}
	}
	for name, n := range f.calls {
		if n != 1 {
			t.Errorf("%s resolved %d times, want 1", name, n)
		}
	}
	for name, n := range eager.Nodes {
		if got := lazy.Nodes[name].Cycle; !slices.Equal(got, n.Cycle) {
			t.Errorf("%s cycle edges = %v, want %v", name, got, n.Cycle)
		}
	}
	if !lazy.IsCycleEdge("Widgets", "App") {
		t.Error("IsCycleEdge(Widgets, App) = false, want true")
	}
}

func TestExpander_CycleEdges(t *testing.T) {
	t.Parallel()

	f := newFixture("A:B B:A")
	exp, err := NewBuilder(f).Lazy(context.Background(), f.root("A"))
	if err != nil {
		t.Fatalf("Lazy() error = %v", err)
	}

	if _, err := exp.Children(context.Background(), "A"); err != nil {
		t.Fatalf("Children(A) error = %v", err)
	}
	if exp.Graph().IsCycleEdge("B", "A") {
		t.Error("B is not expanded yet, so B -> A cannot be a cycle edge")
	}

	if _, err := exp.Children(context.Background(), "B"); err != nil {
		t.Fatalf("Children(B) error = %v", err)
	}
	g := exp.Graph()
	if !g.IsCycleEdge("B", "A") || g.IsCycleEdge("A", "B") {
		t.Errorf("IsCycleEdge(B,A)=%v IsCycleEdge(A,B)=%v, want true false", g.IsCycleEdge("B", "A"), g.IsCycleEdge("A", "B"))
	}
	eager := build(t, newFixture("A:B B:A"), "A")
	if !eager.IsCycleEdge("B", "A") {
		t.Error("eager IsCycleEdge(B, A) = false")
	}
}

func TestExpander_OneLevelAtATime(t *testing.T) {
	t.Parallel()

	f := newFixture("A:B,C B:D C: D:")
	exp, err := NewBuilder(f).Lazy(context.Background(), f.root("A"))
	if err != nil {
		t.Fatalf("Lazy() error = %v", err)
	}

	children, err := exp.Children(context.Background(), "A")
	if err != nil {
		t.Fatalf("Children(A) error = %v", err)
	}
	if len(children) != 2 || children[0].Name != "B" || children[1].Name != "C" {
		t.Fatalf("Children(A) = %v", children)
	}
	if f.calls["D"] != 0 {
		t.Error("D should not be resolved before B is expanded")
	}
	if got := dump(t, tree(t, exp.Graph(), TreeOptions{})); got != "A\n  B +\n  C +\n" {
		t.Errorf("partial tree =\n%s", got)
	}

	if _, err := exp.Children(context.Background(), "D"); !errors.Is(err, ErrInvariant) {
		t.Errorf("Children(D) error = %v, want ErrInvariant", err)
	}
	if _, err := exp.Children(context.Background(), "B"); err != nil {
		t.Fatalf("Children(B) error = %v", err)
	}
	if !exp.Expanded("B") || exp.Expanded("D") {
		t.Errorf("Expanded(B)=%v Expanded(D)=%v, want true false", exp.Expanded("B"), exp.Expanded("D"))
	}
}

func TestSession_LoadIsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewSession(fixtureOpener{f: newFixture("A:B,C,Missing B:D C:D D:A")})

	first, err := s.Load(context.Background(), "A")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	second, err := s.Load(context.Background(), "A")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if first.ID == second.ID {
		t.Error("each load should get a new ID")
	}
	if got, want := dump(t, tree(t, second.Graph, TreeOptions{})), dump(t, tree(t, first.Graph, TreeOptions{})); got != want {
		t.Errorf("second tree =\n%s\nwant\n%s", got, want)
	}
	if !slices.Equal(first.Graph.Order, second.Graph.Order) {
		t.Errorf("Order differs: %v vs %v", first.Graph.Order, second.Graph.Order)
	}
	if first.Graph == second.Graph {
		t.Error("each load should build a fresh graph")
	}
	for _, name := range first.Reverse.Names() {
		if !slices.Equal(first.Reverse.Dependents(name), second.Reverse.Dependents(name)) {
			t.Errorf("reverse index differs for %s", name)
		}
	}
	if len(second.Reverse) != len(first.Reverse) {
		t.Errorf("reverse index size %d, want %d", len(second.Reverse), len(first.Reverse))
	}
}

func TestSession_FailedLoadKeepsSnapshot(t *testing.T) {
	t.Parallel()

	obs := &countingObserver{}
	s := NewSession(fixtureOpener{f: newFixture("A:B B:")}, WithObserver(obs))

	if _, err := s.Reload(context.Background()); !errors.Is(err, ErrNoRoot) {
		t.Errorf("Reload() before Load error = %v, want ErrNoRoot", err)
	}

	good, err := s.Load(context.Background(), "A")
	if err != nil {
		t.Fatalf("Load(A) error = %v", err)
	}
	if _, err := s.Load(context.Background(), "Nope"); err == nil {
		t.Fatal("Load(Nope) should fail")
	}
	if s.Current() != good {
		t.Error("failed load should keep the previous snapshot")
	}

	reloaded, err := s.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if reloaded.RootPath != "A" || s.Current() != reloaded {
		t.Errorf("Reload() should replace the snapshot for the same root")
	}

	if len(obs.loads) != 3 || obs.loads[0] != nil || obs.loads[1] == nil || obs.loads[2] != nil {
		t.Errorf("loads = %v, want [nil err nil]", obs.loads)
	}
}

func TestSession_OptionsReachEveryBuild(t *testing.T) {
	t.Parallel()

	obs := &countingObserver{}
	s := NewSession(fixtureOpener{f: newFixture("A:B,Gone B:")}, WithLogger(nil), WithObserver(obs))

	for range 2 {
		if _, err := s.Load(context.Background(), "A"); err != nil {
			t.Fatalf("Load(A) error = %v", err)
		}
	}

	if obs.builds != 2 || len(obs.loads) != 2 {
		t.Errorf("builds = %d, loads = %d, want 2 and 2", obs.builds, len(obs.loads))
	}
	if obs.outcomes[OutcomeUnavailable] != 2 {
		t.Errorf("unavailable resolutions = %d, want 2", obs.outcomes[OutcomeUnavailable])
	}
}
