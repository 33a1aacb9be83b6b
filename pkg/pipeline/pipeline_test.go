package pipeline

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dmlopt/pkg/cache"
	"github.com/matzehuels/dmlopt/pkg/errors"
	"github.com/matzehuels/dmlopt/pkg/hop/rewrite"
	dmlio "github.com/matzehuels/dmlopt/pkg/io"
	"github.com/matzehuels/dmlopt/pkg/observability"
)

const colSums = `
roots = ["out"]

[[nodes]]
id = "X"
op = "read"
name = "X"
rows = 5
cols = 5
nnz = 0

[[nodes]]
id = "s"
op = "agg"
agg = "sum"
dir = "col"
inputs = ["X"]

[[nodes]]
id = "out"
op = "write"
name = "R"
inputs = ["s"]
`

// dense has nothing to simplify.
const dense = `{
  "roots": ["out"],
  "nodes": [
    {"id": "X", "op": "read", "name": "X", "rows": 3, "cols": 3},
    {"id": "a", "op": "unary", "unary": "abs", "inputs": ["X"]},
    {"id": "out", "op": "write", "name": "R", "inputs": ["a"]}
  ]
}`

func tomlInput(unit string) Input {
	return Input{Unit: unit, Data: []byte(colSums), Format: dmlio.FormatTOML}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{Inputs: []Input{tomlInput("a.toml")}}

	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("Valid options should pass: %v", err)
	}
	if opts.Parallelism != DefaultParallelism {
		t.Errorf("Parallelism should be %d, got %d", DefaultParallelism, opts.Parallelism)
	}
	if opts.TTL != DefaultTTL {
		t.Errorf("TTL should be %v, got %v", DefaultTTL, opts.TTL)
	}
	if opts.Logger == nil {
		t.Error("Logger should default to a discard logger")
	}
	if got := opts.OutputFormat(opts.Inputs[0]); got != dmlio.FormatTOML {
		t.Errorf("Output format should follow the input, got %s", got)
	}
}

func TestOptionsNamesUnits(t *testing.T) {
	inputs := []Input{{Data: []byte(dense), Format: dmlio.FormatJSON}}
	opts := Options{Inputs: inputs, Format: "YAML", Parallelism: 1000}

	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.Inputs[0].Unit != "unit-1" {
		t.Errorf("Unnamed unit should be numbered, got %q", opts.Inputs[0].Unit)
	}
	if inputs[0].Unit != "" {
		t.Error("Caller's inputs should not be modified")
	}
	if opts.Format != "yaml" {
		t.Errorf("Format should be normalized, got %q", opts.Format)
	}
	if opts.Parallelism != MaxParallelism {
		t.Errorf("Parallelism should be capped at %d, got %d", MaxParallelism, opts.Parallelism)
	}
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"no inputs", Options{}, errors.ErrCodeInvalidInput},
		{"bad input format", Options{Inputs: []Input{{Unit: "a", Format: "xml"}}}, errors.ErrCodeInvalidFormat},
		{"bad output format", Options{Inputs: []Input{tomlInput("a")}, Format: "csv"}, errors.ErrCodeInvalidFormat},
		{"unknown disabled rule", Options{Inputs: []Input{tomlInput("a")}, Disabled: []string{"nope"}}, errors.ErrCodeInvalidInput},
		{"duplicate units", Options{Inputs: []Input{tomlInput("a"), tomlInput("a")}}, errors.ErrCodeInvalidInput},
		{"traversal in unit", Options{Inputs: []Input{tomlInput("../a")}}, errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		err := tt.opts.ValidateAndSetDefaults()
		if !errors.Is(err, tt.code) {
			t.Errorf("%s: expected %s, got %v", tt.name, tt.code, err)
		}
	}
}

func TestOptionsValidateAndSetDefaultsIdempotent(t *testing.T) {
	opts := Options{Inputs: []Input{tomlInput("a")}, Parallelism: 2}

	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("First validation failed: %v", err)
	}
	logger := opts.Logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("Second validation failed: %v", err)
	}
	if opts.Parallelism != 2 || opts.Logger != logger {
		t.Error("Options changed on second call")
	}
}

func TestOptionsRules(t *testing.T) {
	opts := Options{Disabled: []string{rewrite.SimplifyEmptyAggregate}}
	rules, err := opts.Rules()
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != len(rewrite.DefaultRules())-1 {
		t.Errorf("Expected one rule removed, got %d rules", len(rules))
	}
	for _, name := range rewrite.RuleNames(rules) {
		if name == rewrite.SimplifyEmptyAggregate {
			t.Error("Disabled rule should be removed")
		}
	}
}

func TestExecute(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	results, err := runner.Execute(context.Background(), Options{
		Inputs: []Input{tomlInput("cols.toml")},
		Format: "json",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}

	res := results[0]
	if res.Unit != "cols.toml" || res.RunID == "" {
		t.Errorf("Unexpected identity: unit %q run %q", res.Unit, res.RunID)
	}
	if res.Stats.Applied[rewrite.SimplifyEmptyAggregate] != 1 {
		t.Errorf("Expected simplifyEmptyAggregate to fire, got %v", res.Stats.Applied)
	}
	if res.Before != 3 {
		t.Errorf("Before should count read, aggregate and write: %d", res.Before)
	}
	if !strings.Contains(string(res.Program), `"op": "datagen"`) {
		t.Errorf("Optimized program should contain a generator:\n%s", res.Program)
	}
	if strings.Contains(string(res.Program), `"op": "agg"`) {
		t.Errorf("Aggregate should be gone:\n%s", res.Program)
	}
	if res.Optimized == nil || len(res.Optimized.Roots) != 1 {
		t.Error("Optimized program should be returned")
	}
	if res.CacheHit {
		t.Error("First run cannot hit the cache")
	}
}

// sharedRoot lists the product both as a root and as the input of the write.
const sharedRoot = `{
  "roots": ["out", "mm"],
  "nodes": [
    {"id": "A", "op": "read", "name": "A", "rows": 4, "cols": 3},
    {"id": "B", "op": "read", "name": "B", "rows": 3, "cols": 2},
    {"id": "zero", "op": "literal", "value": 0},
    {"id": "negA", "op": "binary", "binary": "-", "inputs": ["zero", "A"]},
    {"id": "mm", "op": "matmult", "inputs": ["negA", "B"]},
    {"id": "out", "op": "write", "name": "R", "inputs": ["mm"]}
  ]
}`

func TestExecute_RootConsumedByRoot(t *testing.T) {
	results, err := NewRunner(nil, nil, nil).Execute(context.Background(), Options{
		Inputs: []Input{{Unit: "shared.json", Data: []byte(sharedRoot), Format: dmlio.FormatJSON}},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	res := results[0]
	if res.Stats.Applied[rewrite.ReorderMinusMatrixMult] != 1 {
		t.Errorf("Expected reorderMinusMatrixMult to fire, got %v", res.Stats.Applied)
	}
	roots := res.Optimized.Roots
	if len(roots) != 2 {
		t.Fatalf("Expected 2 roots, got %d", len(roots))
	}
	if mm := roots[1]; mm.Released() || mm.NumInputs() != 2 {
		t.Errorf("Product root should stay live with its inputs: released=%v inputs=%d", mm.Released(), mm.NumInputs())
	}
}

func TestExecute_Cache(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, nil)

	first, err := runner.Execute(ctx, Options{Inputs: []Input{tomlInput("a.toml")}})
	if err != nil {
		t.Fatal(err)
	}

	// Same program under another name and with different formatting.
	reformatted := Input{Unit: "b.toml", Data: []byte(strings.ReplaceAll(colSums, "\n\n", "\n")), Format: dmlio.FormatTOML}
	second, err := runner.Execute(ctx, Options{Inputs: []Input{reformatted}})
	if err != nil {
		t.Fatal(err)
	}

	if !second[0].CacheHit {
		t.Fatal("Second run should hit the cache")
	}
	if !bytes.Equal(first[0].Program, second[0].Program) {
		t.Error("Cached program should match the computed one")
	}
	if second[0].Stats.Total() != first[0].Stats.Total() {
		t.Error("Cached stats should match the computed ones")
	}
	if second[0].Unit != "b.toml" || second[0].Optimized == nil {
		t.Error("Cache hit should carry the unit and decoded program")
	}
	if second[0].RunID == first[0].RunID {
		t.Error("Each Execute call should get its own run ID")
	}

	third, err := runner.Execute(ctx, Options{Inputs: []Input{tomlInput("a.toml")}, Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if third[0].CacheHit {
		t.Error("Refresh should skip the cache")
	}

	// Rule set and output format are part of the key.
	for _, opts := range []Options{
		{Inputs: []Input{tomlInput("a.toml")}, Disabled: []string{rewrite.ReorderMinusMatrixMult}},
		{Inputs: []Input{tomlInput("a.toml")}, Format: "yaml"},
	} {
		res, err := runner.Execute(ctx, opts)
		if err != nil {
			t.Fatal(err)
		}
		if res[0].CacheHit {
			t.Errorf("Options %+v should miss the cache", opts)
		}
	}
}

func TestExecute_DisabledRule(t *testing.T) {
	results, err := NewRunner(nil, nil, nil).Execute(context.Background(), Options{
		Inputs:   []Input{tomlInput("a.toml")},
		Disabled: []string{rewrite.SimplifyEmptyAggregate},
	})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Stats.Total() != 0 || results[0].Removed() != 0 {
		t.Errorf("Nothing should change with the rule disabled: %v", results[0].Stats.Applied)
	}
}

func TestExecute_ManyUnits(t *testing.T) {
	var inputs []Input
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		inputs = append(inputs, tomlInput(name))
		inputs = append(inputs, Input{Unit: name + ".json", Data: []byte(dense), Format: dmlio.FormatJSON})
	}

	results, err := NewRunner(nil, nil, nil).Execute(context.Background(), Options{Inputs: inputs, Parallelism: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(inputs) {
		t.Fatalf("Expected %d results, got %d", len(inputs), len(results))
	}
	for i, res := range results {
		if res.Unit != inputs[i].Unit {
			t.Errorf("Result %d is %q, want %q", i, res.Unit, inputs[i].Unit)
		}
		if res.RunID != results[0].RunID {
			t.Error("Units of one run should share the run ID")
		}
	}
}

func TestExecute_ErrorNamesUnit(t *testing.T) {
	bad := Input{Unit: "broken.json", Data: []byte(`{"roots": ["x"], "nodes": []}`), Format: dmlio.FormatJSON}
	_, err := NewRunner(nil, nil, nil).Execute(context.Background(), Options{Inputs: []Input{tomlInput("ok"), bad}})
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !strings.Contains(err.Error(), "broken.json") {
		t.Errorf("Error should name the unit: %v", err)
	}
	if !errors.Is(err, errors.ErrCodeGraphInvalid) {
		t.Errorf("Error should keep its code: %v", err)
	}
}

func TestExecute_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(nil, nil, nil).Execute(ctx, Options{Inputs: []Input{tomlInput("a")}})
	if err == nil {
		t.Error("Canceled context should fail the run")
	}
}

func TestExecute_UsesRunnerLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})

	if _, err := NewRunner(nil, nil, logger).Execute(context.Background(), Options{Inputs: []Input{tomlInput("a")}}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "optimized program") || !strings.Contains(out, "applied rewrite") {
		t.Errorf("Expected pipeline and rule log lines, got:\n%s", out)
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) record(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHooks) OnLoadComplete(_ context.Context, unit string, _ int, _ time.Duration, _ error) {
	h.record("load " + unit)
}

func (h *recordingHooks) OnRewriteComplete(_ context.Context, unit string, _ int, _ time.Duration, _ error) {
	h.record("rewrite " + unit)
}

func (h *recordingHooks) OnExportComplete(_ context.Context, unit, format string, _ int, _ time.Duration, _ error) {
	h.record("export " + unit + " " + format)
}

func TestExecute_Hooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	defer observability.Reset()

	if _, err := NewRunner(nil, nil, nil).Execute(context.Background(), Options{
		Inputs: []Input{tomlInput("a")},
		Format: "yaml",
	}); err != nil {
		t.Fatal(err)
	}

	want := []string{"load a", "rewrite a", "export a yaml"}
	if strings.Join(hooks.events, ",") != strings.Join(want, ",") {
		t.Errorf("Hook events = %v, want %v", hooks.events, want)
	}
}
