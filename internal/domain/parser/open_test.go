package parser

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/tracestat/internal/shared/types"
)

const sampleLog = "obtain_lock,1-2,3-4\nbuf_obj_map,5-6\n"

func gzipBytes(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data string) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll([]byte(data), nil)
}

func TestParseCompressedLogs(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		file string
		data []byte
	}{
		{name: "plain", file: "server_log_rank_0.csv", data: []byte(sampleLog)},
		{name: "gzip by suffix", file: "server_log_rank_1.csv.gz", data: gzipBytes(t, sampleLog)},
		{name: "zstd by suffix", file: "server_log_rank_2.csv.zst", data: zstdBytes(t, sampleLog)},
		{name: "gzip sniffed", file: "server_log_rank_3.csv", data: gzipBytes(t, sampleLog)},
		{name: "zstd sniffed", file: "server_log_rank_4.csv", data: zstdBytes(t, sampleLog)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, tt.data, 0o644))

			table, err := ParseIntervalLog(path)
			require.NoError(t, err)
			assert.Equal(t, []string{"obtain_lock", "buf_obj_map"}, table.Keys())
			assert.Equal(t, []types.Interval{{Start: 5, End: 6}}, table.Get("buf_obj_map"))
		})
	}
}

func TestDetectCompression(t *testing.T) {
	assert.Equal(t, CompressionGzip, DetectCompression("a.csv.gz", nil))
	assert.Equal(t, CompressionZstd, DetectCompression("a.csv.zst", nil))
	assert.Equal(t, CompressionNone, DetectCompression("a.csv", []byte(sampleLog)))
	assert.Equal(t, CompressionGzip, DetectCompression("a.csv", gzipBytes(t, sampleLog)))
}
