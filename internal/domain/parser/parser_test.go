package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/tracestat/internal/shared/types"
)

func TestReadIntervalLog(t *testing.T) {
	input := strings.Join([]string{
		"Thu Mar  7 10:15:42 2024",
		"obtain_lock,1.000000-2.500000,3.000000-3.250000",
		"",
		"buf_obj_map , 0.5 - 0.75 ",
		"obtain_lock_total, 1.750000",
		"transfer_start_write_rpc,4-6",
	}, "\n")

	table, err := Default().ReadIntervalLog(strings.NewReader(input), "server_log_rank_0.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"obtain_lock", "buf_obj_map", "transfer_start_write_rpc"}, table.Keys())
	assert.Equal(t, []types.Interval{{Start: 1, End: 2.5}, {Start: 3, End: 3.25}}, table.Get("obtain_lock"))
	assert.Equal(t, []types.Interval{{Start: 0.5, End: 0.75}}, table.Get("buf_obj_map"))
	assert.InDelta(t, 1.75, table.Totals["obtain_lock_total"], 1e-12)
	assert.False(t, table.Has("obtain_lock_total"))
}

func TestReadIntervalLogRepeatedKeyAppends(t *testing.T) {
	input := strings.Join([]string{
		"Thu Mar  7 10:15:42 2024",
		"region_transfer,1-2",
		"Thu Mar  7 10:16:01 2024",
		"region_transfer,5-6",
	}, "\n")

	table, err := Default().ReadIntervalLog(strings.NewReader(input), "client_log_rank_3.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, []types.Interval{{Start: 1, End: 2}, {Start: 5, End: 6}}, table.Get("region_transfer"))
}

func TestEmptyKeyPolicies(t *testing.T) {
	input := "busy,0-1\nidle_key,\nquiet\n"

	tests := []struct {
		name     string
		policy   EmptyKeyPolicy
		wantKeys []string
	}{
		{name: "retain keeps empty sequences", policy: RetainEmpty, wantKeys: []string{"busy", "idle_key", "quiet"}},
		{name: "drop omits empty keys", policy: DropEmpty, wantKeys: []string{"busy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(Options{EmptyKeys: tt.policy})
			table, err := p.ReadIntervalLog(strings.NewReader(input), "log.csv")
			require.NoError(t, err)

			assert.Equal(t, tt.wantKeys, table.Keys())
			assert.Equal(t, 1, table.Count())
			if tt.policy == RetainEmpty {
				assert.True(t, table.Has("idle_key"))
				assert.Empty(t, table.Get("idle_key"))
			} else {
				assert.False(t, table.Has("idle_key"))
			}
		})
	}
}

func TestParseIntervalSeparator(t *testing.T) {
	tests := []struct {
		field string
		want  types.Interval
	}{
		{field: "1-2", want: types.Interval{Start: 1, End: 2}},
		{field: "1.5e-3-2", want: types.Interval{Start: 0.0015, End: 2}},
		{field: "-1.5--0.5", want: types.Interval{Start: -1.5, End: -0.5}},
		{field: "2E-1-3E+1", want: types.Interval{Start: 0.2, End: 30}},
		{field: "1712345678.123456-1712345679.5", want: types.Interval{Start: 1712345678.123456, End: 1712345679.5}},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, reason := parseInterval(tt.field)
			require.Empty(t, reason)
			assert.InDelta(t, tt.want.Start, got.Start, 1e-9)
			assert.InDelta(t, tt.want.End, got.End, 1e-9)
		})
	}
}

func TestReadIntervalLogMalformed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
		wantRaw  string
	}{
		{
			name:     "non-numeric bound",
			input:    "good,1-2\nbad_key,not-a-number-5\n",
			wantLine: 2,
			wantRaw:  "bad_key,not-a-number-5",
		},
		{
			name:     "missing separator",
			input:    "k,1-2\n\nk,12\n",
			wantLine: 3,
			wantRaw:  "k,12",
		},
		{
			name:     "empty middle field",
			input:    "k,1-2,,3-4\n",
			wantLine: 1,
			wantRaw:  "k,1-2,,3-4",
		},
		{
			name:     "empty key",
			input:    ",1-2\n",
			wantLine: 1,
			wantRaw:  ",1-2",
		},
		{
			name:     "nan start",
			input:    "k,1-2\nk,nan-5\n",
			wantLine: 2,
			wantRaw:  "k,nan-5",
		},
		{
			name:     "infinite end",
			input:    "k,1-inf\n",
			wantLine: 1,
			wantRaw:  "k,1-inf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Default().ReadIntervalLog(strings.NewReader(tt.input), "server_log_rank_1.csv")
			require.Error(t, err)
			assert.Nil(t, table)

			var pe *types.ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "server_log_rank_1.csv", pe.File)
			assert.Equal(t, tt.wantLine, pe.Line)
			assert.Equal(t, tt.wantRaw, pe.Raw)
			assert.True(t, errors.Is(err, types.ErrParse))
		})
	}
}

func TestReadScalarLog(t *testing.T) {
	input := strings.Join([]string{
		"Thu Mar  7 10:15:42 2024",
		"PDCbuf_obj_map_rpc, 0.125000",
		"PDCcache_write, 2.5",
		"PDCbuf_obj_map_rpc, 0.250000",
		"",
	}, "\n")

	table, err := Default().ReadScalarLog(strings.NewReader(input), "server_timings_0.csv")
	require.NoError(t, err)
	assert.Equal(t, types.ScalarTable{"PDCbuf_obj_map_rpc": 0.25, "PDCcache_write": 2.5}, table)
}

func TestReadScalarLogMalformed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{name: "too many fields", input: "a,1\nb,2,3\n", wantLine: 2},
		{name: "missing value", input: "a\n", wantLine: 1},
		{name: "non-numeric", input: "a,1\n\nb,fast\n", wantLine: 3},
		{name: "nan", input: "a,NaN\n", wantLine: 1},
		{name: "infinity", input: "a,1\nb,-Infinity\n", wantLine: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Default().ReadScalarLog(strings.NewReader(tt.input), "timings.csv")
			require.Error(t, err)
			assert.Nil(t, table)

			var pe *types.ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.wantLine, pe.Line)
		})
	}
}

func TestNonFiniteReason(t *testing.T) {
	_, err := Default().ReadScalarLog(strings.NewReader("PDCcache_write,nan\n"), "server_timings_1.csv")

	var pe *types.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Reason, "non-finite value")
	assert.Equal(t, "server_timings_1.csv", pe.File)

	_, err = Default().ReadIntervalLog(strings.NewReader("k,0-Inf\n"), "server_log_rank_0.csv")
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Reason, "non-finite end")
}

func TestLineTooLong(t *testing.T) {
	p := New(Options{MaxLineBytes: 32})
	input := "k," + strings.Repeat("1-2,", 20) + "\n"

	_, err := p.ReadIntervalLog(strings.NewReader(input), "long.csv")
	require.Error(t, err)
	assert.True(t, types.IsParseError(err))
}

func TestParseIntervalLogMissingFile(t *testing.T) {
	_, err := ParseIntervalLog(filepath.Join(t.TempDir(), "server_log_rank_9.csv"))
	require.Error(t, err)

	var mfe *types.MissingFileError
	assert.True(t, errors.As(err, &mfe))
}

func TestParseScalarLogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server_timings_2.csv")
	require.NoError(t, os.WriteFile(path, []byte("PDCcache_read, 1.5\n"), 0o644))

	table, err := ParseScalarLog(path)
	require.NoError(t, err)
	assert.Equal(t, 1.5, table["PDCcache_read"])
}

func TestParseEmptyKeyPolicy(t *testing.T) {
	p, err := ParseEmptyKeyPolicy("DROP")
	require.NoError(t, err)
	assert.Equal(t, DropEmpty, p)

	p, err = ParseEmptyKeyPolicy("")
	require.NoError(t, err)
	assert.Equal(t, RetainEmpty, p)

	_, err = ParseEmptyKeyPolicy("keep-some")
	assert.Error(t, err)
}
