package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func sweep(t *testing.T) string {
	root := t.TempDir()
	writeFiles(t, filepath.Join(root, "ost-8"), map[string]string{
		"server_log_rank_0.csv": "obtain_lock,100-102,103-104\n",
		"server_timings_0.csv":  "PDCcache_write, 2\nPDCbuf_obj_map_rpc, 1\n",
	})
	writeFiles(t, filepath.Join(root, "ost-16"), map[string]string{
		"server_log_rank_0.csv": "obtain_lock,200-201\n",
		"server_timings_0.csv":  "PDCcache_write, 4\n",
	})
	return root
}

func categories(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
statistic: mean
categories:
  - name: I/O
    patterns: ["PDCcache_*"]
  - name: Communication
    keys: [PDCbuf_obj_map_rpc]
`), 0o644))
	return path
}

func TestAnalyzeJSON(t *testing.T) {
	root := sweep(t)

	out, err := execute(t, "analyze", filepath.Join(root, "ost-8"), "--format", "json")
	require.NoError(t, err)

	var env struct {
		Kind string `json:"kind"`
		Data struct {
			Label  string  `json:"label"`
			Origin float64 `json:"origin"`
		} `json:"data"`
	}
	require.NoError(t, sonic.UnmarshalString(out, &env))
	assert.Equal(t, "run", env.Kind)
	assert.Equal(t, "ost-8", env.Data.Label)
	assert.Equal(t, 100.0, env.Data.Origin)
}

func TestAnalyzeLabelAndText(t *testing.T) {
	root := sweep(t)

	out, err := execute(t, "analyze", filepath.Join(root, "ost-8"), "--label", "baseline")
	require.NoError(t, err)
	assert.Contains(t, out, "Run baseline")
	assert.Contains(t, out, "obtain_lock")
}

func TestAnalyzeMissingDirectory(t *testing.T) {
	_, err := execute(t, "analyze", filepath.Join(t.TempDir(), "gone"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing run directory")
}

func TestCompareRoot(t *testing.T) {
	root := sweep(t)

	out, err := execute(t, "compare", "--categories", categories(t), "--root", root, "--format", "csv")
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"run", "I/O", "Communication", "processes", "flags"}, records[0])
	assert.Equal(t, []string{"ost-16", "4.000000", "0.000000", "1", ""}, records[1])
	assert.Equal(t, []string{"ost-8", "2.000000", "1.000000", "1", ""}, records[2])
}

func TestCompareArgsKeepOrder(t *testing.T) {
	root := sweep(t)

	out, err := execute(t, "compare", "--categories", categories(t),
		filepath.Join(root, "ost-8"), filepath.Join(root, "ost-16"), "--format", "csv")
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "ost-8", records[1][0])
	assert.Equal(t, "ost-16", records[2][0])
}

func TestCompareNeedsRuns(t *testing.T) {
	_, err := execute(t, "compare", "--categories", categories(t))
	assert.Error(t, err)
}

func TestGaps(t *testing.T) {
	root := sweep(t)

	out, err := execute(t, "gaps", filepath.Join(root, "ost-8", "server_log_rank_0.csv"), "--format", "csv")
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"gap", "102.000000", "103.000000", "1.000000"}, records[3])
}

func TestGlobalFlagValidation(t *testing.T) {
	root := sweep(t)

	_, err := execute(t, "analyze", filepath.Join(root, "ost-8"), "--policy", "sideways")
	assert.Error(t, err)

	_, err = execute(t, "analyze", filepath.Join(root, "ost-8"), "--format", "xml")
	assert.Error(t, err)
}

func TestMetricsFile(t *testing.T) {
	root := sweep(t)
	path := filepath.Join(t.TempDir(), "tracestat.prom")

	_, err := execute(t, "analyze", filepath.Join(root, "ost-8"), "--metrics-file", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tracestat_files_parsed_total")
}

func TestMaxLineSize(t *testing.T) {
	dir := writeFiles(t, t.TempDir(), map[string]string{
		"server_timings_0.csv": "a_rather_long_timing_key, 1\n",
	})

	_, err := execute(t, "analyze", dir, "--max-line-size", "16B")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line exceeds 16 B")

	_, err = execute(t, "analyze", dir, "--max-line-size", "lots")
	assert.Error(t, err)
}
