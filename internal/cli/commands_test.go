package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns what it wrote to
// stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// decode parses a JSON CLI response, re-decoding Data into data when it
// is not nil.
func decode(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if data != nil {
		raw, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, data))
	}
	return resp
}

func copyFile(t *testing.T, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	require.NoError(t, os.WriteFile(dst, data, 0o644))
}

func TestCompile(t *testing.T) {
	out, _, err := execute(t, "compile", "testdata/shop.cue")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 2 entities, 0 enums")
	assert.Contains(t, out, "fingerprint:")
}

func TestCompile_JSON(t *testing.T) {
	out, _, err := execute(t, "compile", "--format", "json", "testdata/shop.cue")
	require.NoError(t, err)

	var result struct {
		Fingerprint string `json:"fingerprint"`
		Schema      struct {
			Entities map[string]any `json:"entities"`
		} `json:"schema"`
	}
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, result.Fingerprint)
	assert.Contains(t, result.Schema.Entities, "Customer")
	assert.Contains(t, result.Schema.Entities, "Supplier")
}

func TestCompile_OutputFile(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "schema.json")
	_, _, err := execute(t, "compile", "testdata/shop.cue", "-o", outFile)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"fingerprint"`)
	assert.Contains(t, string(data), `"Customer"`)
}

func TestCompile_Invalid(t *testing.T) {
	out, _, err := execute(t, "compile", "testdata/invalid.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E101")
}

func TestCompile_MissingPath(t *testing.T) {
	_, _, err := execute(t, "compile", "testdata/nope.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/shop.cue")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Schema valid (2 entities, 0 enums)")
}

func TestValidate_Invalid(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/invalid.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E101")
}

func TestValidate_InvalidJSON(t *testing.T) {
	out, _, err := execute(t, "validate", "--format", "json", "testdata/invalid.cue")
	require.Error(t, err)

	var result ValidationResult
	resp := decode(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E101", resp.Error.Code)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "invalid.cue", filepath.Base(result.Errors[0].File))
}

func TestTranslate(t *testing.T) {
	out, _, err := execute(t, "translate", "testdata/uk.yaml", "--schema", "testdata/shop.cue")
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT A FROM Customer A WHERE A.country = :param0\n")
	assert.Contains(t, out, ":param0 = 'UK'")
	assert.NotContains(t, out, "residual")
}

func TestTranslate_JSON(t *testing.T) {
	out, _, err := execute(t, "translate", "--format", "json", "testdata/uk.yaml", "--schema", "testdata/shop.cue")
	require.NoError(t, err)

	var result struct {
		Text   string `json:"text"`
		Debug  string `json:"debug"`
		Entity string `json:"entity"`
		Params []struct {
			Ordinal int `json:"ordinal"`
			Value   any `json:"value"`
		} `json:"params"`
	}
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, "Customer", result.Entity)
	assert.Equal(t, "SELECT A FROM Customer A WHERE A.country = :param0", result.Text)
	assert.Equal(t, "SELECT A FROM Customer A WHERE A.country = 'UK'", result.Debug)
	require.Len(t, result.Params, 1)
	assert.Equal(t, "UK", result.Params[0].Value)
}

func TestTranslate_FailsByDefault(t *testing.T) {
	out, _, err := execute(t, "translate", "testdata/regex.yaml", "--schema", "testdata/shop.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E201")
	assert.Contains(t, out, "UNSUPPORTED_OPERATION")
}

func TestTranslate_ResidualWithHint(t *testing.T) {
	out, _, err := execute(t, "translate", "testdata/regex.yaml",
		"--schema", "testdata/shop.cue",
		"--hint", "exceptionOnTranslationFail=false")
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT A FROM Customer A\n")
	assert.Contains(t, out, "residual: clause 0 (where): UNSUPPORTED_OPERATION")
}

func TestTranslate_UnknownHint(t *testing.T) {
	out, _, err := execute(t, "translate", "testdata/uk.yaml",
		"--schema", "testdata/shop.cue",
		"--hint", "noSuchHint=1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E009")
}

func TestTranslate_MissingSchemaFlag(t *testing.T) {
	_, _, err := execute(t, "translate", "testdata/uk.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestTranslate_BadConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "lambdaq.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("page_size = \"big\"\n"), 0o644))

	out, _, err := execute(t, "translate", "testdata/uk.yaml", "--schema", "testdata/shop.cue", "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E008")
}

func TestTranslate_DurableCache(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cache.db")

	for i := 0; i < 2; i++ {
		_, _, err := execute(t, "translate", "testdata/uk.yaml", "--schema", "testdata/shop.cue", "--cache", db)
		require.NoError(t, err)
	}

	out, _, err := execute(t, "cache", "stats", "--format", "json", "--cache", db)
	require.NoError(t, err)
	var stats struct {
		Translations int `json:"translations"`
		Failures     int `json:"failures"`
		Queries      int `json:"queries"`
	}
	decode(t, out, &stats)
	assert.Equal(t, 1, stats.Translations)
	assert.Equal(t, 0, stats.Failures)
	assert.Equal(t, 2, stats.Queries)

	out, _, err = execute(t, "cache", "list", "--cache", db)
	require.NoError(t, err)
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "ok")

	out, _, err = execute(t, "cache", "queries", "--cache", db, "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "#2 ")
	assert.NotContains(t, out, "#1 ")
	assert.Contains(t, out, "A.country = :param0")

	out, _, err = execute(t, "cache", "prune", "--cache", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Pruned 0")

	_, _, err = execute(t, "cache", "clear", "--cache", db)
	require.NoError(t, err)
	out, _, err = execute(t, "cache", "stats", "--cache", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Translations: 0")
	assert.Contains(t, out, "Queries:      0")
}

func TestCache_NotConfigured(t *testing.T) {
	out, _, err := execute(t, "cache", "stats")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E401")
}

func TestAsmDisasm(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "where_country.asm")
	copyFile(t, "testdata/where_country.asm", src)

	out, _, err := execute(t, "asm", src)
	require.NoError(t, err)
	assert.Contains(t, out, "5 instructions")

	encoded := filepath.Join(dir, "where_country"+ClosureExt)
	_, err = os.Stat(encoded)
	require.NoError(t, err)

	out, _, err = execute(t, "disasm", encoded)
	require.NoError(t, err)
	assert.Contains(t, out, "invokevirtual String.equals:(Object)boolean")
	assert.Contains(t, out, "return")

	// The listing assembles back to the same bytes.
	listing := filepath.Join(dir, "listing.asm")
	require.NoError(t, os.WriteFile(listing, []byte(out), 0o644))
	again := filepath.Join(dir, "again"+ClosureExt)
	_, _, err = execute(t, "asm", listing, "-o", again)
	require.NoError(t, err)

	want, err := os.ReadFile(encoded)
	require.NoError(t, err)
	got, err := os.ReadFile(again)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAsm_Invalid(t *testing.T) {
	src := filepath.Join(t.TempDir(), "bad.asm")
	require.NoError(t, os.WriteFile(src, []byte("frobnicate 3\n"), 0o644))

	out, _, err := execute(t, "asm", src)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E301")
}

func TestDisasm_Invalid(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "bad"+ClosureExt)
	require.NoError(t, os.WriteFile(bin, []byte{0xde, 0xad}, 0o644))

	out, _, err := execute(t, "disasm", bin)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E302")
}

func TestTest_Scenarios(t *testing.T) {
	out, _, err := execute(t, "test", "testdata/scenarios")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ customers")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTest_JSON(t *testing.T) {
	out, _, err := execute(t, "test", "--format", "json", "testdata/scenarios")
	require.NoError(t, err)

	var result TestResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, result.Passed)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, 1, result.Scenarios[0].Translations)
}

func TestTest_Filter(t *testing.T) {
	out, _, err := execute(t, "test", "testdata/scenarios", "--filter", "suppliers*")
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTest_GoldenUpdateAndMismatch(t *testing.T) {
	dir := t.TempDir()
	copyFile(t, "testdata/shop.cue", filepath.Join(dir, "shop.cue"))
	copyFile(t, "testdata/scenarios/customers.yaml", filepath.Join(dir, "scenarios", "customers.yaml"))
	scenarios := filepath.Join(dir, "scenarios")

	_, _, err := execute(t, "test", scenarios, "--update")
	require.NoError(t, err)
	golden := filepath.Join(scenarios, "golden", "customers.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"customers"`)

	_, _, err = execute(t, "test", scenarios)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte(`{"scenario_name":"customers","trace":[]}`), 0o644))
	out, _, err := execute(t, "test", scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ customers")
	assert.Contains(t, out, "does not match golden file")
}

func TestTest_MissingDir(t *testing.T) {
	_, _, err := execute(t, "test", "testdata/missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
