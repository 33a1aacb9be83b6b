package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/dmlopt/pkg/errors"
	"github.com/matzehuels/dmlopt/pkg/hop/rewrite"
	dmlio "github.com/matzehuels/dmlopt/pkg/io"
)

func TestOptimizeCommand(t *testing.T) {
	isolate(t)
	src := writeProgram(t, t.TempDir(), "prog.toml", emptyColSumProgram)

	_, err := execute(t, "optimize", src)
	require.NoError(t, err)

	out := filepath.Join(filepath.Dir(src), "prog.opt.toml")
	prog, err := dmlio.Import(out)
	require.NoError(t, err)
	require.Len(t, prog.Roots, 1)

	s := prog.Roots[0].Input(0)
	assert.Equal(t, "datagen", s.Op.Kind(), "colsum of an empty matrix becomes a zero generator")
	assert.Equal(t, int64(1), s.Rows)
	assert.Equal(t, int64(5), s.Cols)
}

func TestOptimizeCommand_OutputDirAndFormat(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	a := writeProgram(t, dir, "a.toml", emptyColSumProgram)
	b := writeProgram(t, dir, "b.toml", emptyColSumProgram)
	outDir := filepath.Join(t.TempDir(), "out")

	_, err := execute(t, "optimize", "--no-cache", "-o", outDir, "-f", "json", a, b)
	require.NoError(t, err)

	for _, name := range []string{"a.opt.json", "b.opt.json"} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.True(t, strings.HasPrefix(strings.TrimSpace(string(data)), "{"), "%s should be JSON", name)
	}
}

func TestOptimizeCommand_DisabledRule(t *testing.T) {
	isolate(t)
	src := writeProgram(t, t.TempDir(), "prog.toml", emptyColSumProgram)

	_, err := execute(t, "optimize", "--no-cache", "--disable", rewrite.SimplifyEmptyAggregate, src)
	require.NoError(t, err)

	prog, err := dmlio.Import(filepath.Join(filepath.Dir(src), "prog.opt.toml"))
	require.NoError(t, err)
	assert.Equal(t, "agg", prog.Roots[0].Input(0).Op.Kind())
}

func TestOptimizeCommand_Errors(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"missing file", []string{filepath.Join(dir, "missing.toml")}, errors.ErrCodeFileNotFound},
		{"unknown extension", []string{writeProgram(t, dir, "prog.txt", emptyColSumProgram)}, errors.ErrCodeInvalidFormat},
		{"unknown rule", []string{"--disable", "noSuchRule", writeProgram(t, dir, "ok.toml", emptyColSumProgram)}, errors.ErrCodeInvalidInput},
		{"broken program", []string{writeProgram(t, dir, "bad.toml", "roots = [\"x\"]\n")}, errors.ErrCodeGraphInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"optimize", "--no-cache"}, tt.args...)...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input, dir string
		format     dmlio.Format
		want       string
	}{
		{"progs/a.toml", "", dmlio.FormatTOML, filepath.Join("progs", "a.opt.toml")},
		{"progs/a.toml", "out", dmlio.FormatJSON, filepath.Join("out", "a.opt.json")},
		{"b.yml", "", dmlio.FormatYAML, "b.opt.yaml"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.input, tt.dir, tt.format); got != tt.want {
			t.Errorf("outputPath(%q, %q, %q) = %q, want %q", tt.input, tt.dir, tt.format, got, tt.want)
		}
	}
}

func TestRuleCounts(t *testing.T) {
	s := &rewrite.Stats{Applied: map[string]int{"b": 2, "a": 2, "c": 5, "d": 0}}
	assert.Equal(t, []ruleCount{{"c", 5}, {"a", 2}, {"b", 2}}, ruleCounts(s))
}

func TestRenderRuleTable(t *testing.T) {
	out := renderRuleTable([]ruleCount{{"simplifyEmptyAggregate", 3}})
	assert.Contains(t, out, "simplifyEmptyAggregate")
	assert.Contains(t, out, "total")
	assert.Contains(t, out, "3")
}

func TestRenderCommand(t *testing.T) {
	isolate(t)
	src := writeProgram(t, t.TempDir(), "prog.toml", emptyColSumProgram)

	_, err := execute(t, "render", "-f", "dot", src)
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(filepath.Dir(src), "prog.dot"))
	require.NoError(t, err)
	assert.Contains(t, string(before), "colsum")

	dst := filepath.Join(t.TempDir(), "opt.dot")
	_, err = execute(t, "render", "-f", "dot", "--optimize", "--no-cache", "-o", dst, src)
	require.NoError(t, err)
	after, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.NotContains(t, string(after), "colsum")
	assert.Contains(t, string(after), "matrix(0)")
}

func TestRenderCommand_BadFormat(t *testing.T) {
	isolate(t)
	src := writeProgram(t, t.TempDir(), "prog.toml", emptyColSumProgram)

	_, err := execute(t, "render", "-f", "pdf", src)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat), "got %v", err)
}

func TestRulesCommand(t *testing.T) {
	dirs := isolate(t)

	out, err := execute(t, "rules", "--names")
	require.NoError(t, err)
	assert.Equal(t, rewrite.RuleNames(rewrite.DefaultRules()), strings.Fields(out))

	writeConfig(t, dirs, "[rules]\ndisabled = [\"reorderMinusMatrixMult\"]\n")
	out, err = execute(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "reorderMinusMatrixMult")
	assert.Contains(t, out, "off")

	writeConfig(t, dirs, "[rules]\ndisabled = [\"noSuchRule\"]\n")
	_, err = execute(t, "rules")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "got %v", err)
}

func TestCompletionCommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "dmlopt")

	_, err = execute(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestBackendName(t *testing.T) {
	assert.Equal(t, "none", backendName(&Config{}, true))
	assert.Equal(t, "redis", backendName(&Config{Cache: CacheConfig{RedisURL: "redis://x"}}, false))
	assert.Equal(t, "file", backendName(&Config{}, false))
	assert.Equal(t, ":8080", portOf(":8080"))
	assert.Equal(t, ":9000", portOf("127.0.0.1:9000"))
	assert.Equal(t, "", portOf("nonsense"))
}

func TestOptimizeCommand_ExamplePrograms(t *testing.T) {
	isolate(t)
	paths, err := filepath.Glob(filepath.Join("..", "..", "examples", "programs", "*"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	outDir := t.TempDir()
	_, err = execute(t, append([]string{"optimize", "--no-cache", "-o", outDir}, paths...)...)
	require.NoError(t, err)

	for _, p := range paths {
		format, err := dmlio.FormatFromPath(p)
		require.NoError(t, err)
		_, err = dmlio.Import(outputPath(p, outDir, format))
		assert.NoError(t, err, p)
	}
}
