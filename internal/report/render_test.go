package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/tracestat/internal/shared/types"
)

func sampleReport() *types.RunReport {
	origin := 100.0
	table := types.NewIntervalTable()
	table.Append("obtain_lock", types.Interval{Start: 0, End: 2}, types.Interval{Start: 3, End: 4})

	occ := &types.Occupancy{
		Coalesced: []types.Interval{{Start: 0, End: 2}, {Start: 3, End: 4}},
		Gaps:      []types.Interval{{Start: 2, End: 3}},
		Busy:      3,
		Idle:      1,
		Span:      4,
		GapStats:  &types.DurationStats{Count: 1, Total: 1, Mean: 1, Min: 1, Max: 1},
	}

	return &types.RunReport{
		Label:  "ost-8",
		Dir:    "/runs/ost-8",
		Origin: &origin,
		Processes: []*types.ProcessReport{{
			Role:         types.RoleServer,
			Rank:         0,
			IntervalFile: "server_log_rank_0.csv",
			TimingFile:   "server_timings_0.csv",
			Intervals:    table,
			Timing:       types.ScalarTable{"PDCcache_write": 2},
			Derived:      types.ScalarTable{"obtain_lock": 3},
			Occupancy:    occ,
		}},
		Native:       types.SummaryTable{"PDCcache_write": {Mean: 2, Min: 2, Max: 2, Count: 1, Sum: 2, Median: 2}},
		Derived:      types.SummaryTable{"obtain_lock": {Mean: 3, Min: 3, Max: 3, Count: 1, Sum: 3, Median: 3}},
		Occupancy:    occ,
		IntervalLogs: 1,
		TimingLogs:   1,
	}
}

func sampleComparison() *types.Comparison {
	return &types.Comparison{
		Source:     "timing",
		Statistic:  "mean",
		Categories: []string{"I/O", "Communication"},
		Rows: []types.ComparisonRow{
			{Label: "ost-8", Values: map[string]float64{"I/O": 1.5, "Communication": 0.25}, Processes: 4},
			{
				Label:     "ost-16",
				Values:    map[string]float64{"I/O": 0, "Communication": 0},
				Missing:   map[string][]string{"I/O": {"PDCcache_write"}},
				Processes: 0,
				Flags:     []string{types.FlagNoLogs},
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "JSON", want: FormatJSON},
		{in: "md", want: FormatMarkdown},
		{in: "csv", want: FormatCSV},
		{in: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderRunText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderRun(&buf, sampleReport(), FormatText))

	out := buf.String()
	assert.Contains(t, out, "Run ost-8 (/runs/ost-8)")
	assert.Contains(t, out, "origin: 100.000000")
	assert.Contains(t, out, "PDCcache_write")
	assert.Contains(t, out, "obtain_lock")
	assert.Contains(t, out, "server_log_rank_0.csv")
	assert.Contains(t, out, "75.0%")
}

func TestRenderRunMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderRun(&buf, sampleReport(), FormatMarkdown))

	out := buf.String()
	assert.Contains(t, out, "## Run ost-8")
	assert.Contains(t, out, "### Timing summary")
	assert.Contains(t, out, "|")
	assert.Contains(t, out, "Key")
	assert.NotContains(t, out, "+--")
}

func TestRenderRunCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderRun(&buf, sampleReport(), FormatCSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "source", records[0][1])
	assert.Equal(t, []string{"ost-8", "timing", "PDCcache_write", "1"}, records[1][:4])
	assert.Equal(t, []string{"ost-8", "interval", "obtain_lock", "1"}, records[2][:4])
}

func TestRenderRunTotals(t *testing.T) {
	r := sampleReport()
	r.Processes[0].Totals = types.ScalarTable{"obtain_lock_total": 3}
	r.Totals = types.SummaryTable{"obtain_lock_total": {Mean: 3, Min: 3, Max: 3, Count: 1, Sum: 3, Median: 3}}

	var text bytes.Buffer
	require.NoError(t, RenderRun(&text, r, FormatText))
	assert.Contains(t, text.String(), "Logged totals")
	assert.Contains(t, text.String(), "obtain_lock_total")

	var buf bytes.Buffer
	require.NoError(t, RenderRun(&buf, r, FormatCSV))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"ost-8", "total", "obtain_lock_total", "1", "3.000000"}, records[3][:5])

	buf.Reset()
	require.NoError(t, RenderRun(&buf, r, FormatJSON))
	var env struct {
		Data struct {
			Totals    map[string]types.SummaryStat `json:"totals"`
			Processes []struct {
				Totals map[string]float64 `json:"totals"`
			} `json:"processes"`
		} `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(buf.Bytes(), &env))
	assert.Equal(t, 1, env.Data.Totals["obtain_lock_total"].Count)
	require.Len(t, env.Data.Processes, 1)
	assert.Equal(t, 3.0, env.Data.Processes[0].Totals["obtain_lock_total"])
}

func TestRenderRunWithoutTotals(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderRun(&buf, sampleReport(), FormatText))
	assert.NotContains(t, buf.String(), "Logged totals")
}

func TestRenderRunJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderRun(&buf, sampleReport(), FormatJSON))

	var env struct {
		ID   string `json:"id"`
		Kind string `json:"kind"`
		Data struct {
			Label     string  `json:"label"`
			Origin    float64 `json:"origin"`
			Processes []struct {
				Role    string             `json:"role"`
				Derived map[string]float64 `json:"derived"`
			} `json:"processes"`
		} `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(buf.Bytes(), &env))

	_, err := uuid.Parse(env.ID)
	assert.NoError(t, err)
	assert.Equal(t, "run", env.Kind)
	assert.Equal(t, "ost-8", env.Data.Label)
	assert.Equal(t, 100.0, env.Data.Origin)
	require.Len(t, env.Data.Processes, 1)
	assert.Equal(t, 3.0, env.Data.Processes[0].Derived["obtain_lock"])
	assert.False(t, strings.Contains(buf.String(), `"intervals"`))
}

func TestRenderEmptyRun(t *testing.T) {
	var buf bytes.Buffer
	r := &types.RunReport{Label: "none", Dir: "/runs/none", Empty: true, Flags: []string{types.FlagNoLogs}}
	require.NoError(t, RenderRun(&buf, r, FormatText))
	assert.Contains(t, buf.String(), "flags: no-logs")
}

func TestRenderComparison(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderComparison(&buf, sampleComparison(), FormatText))

	out := buf.String()
	assert.Contains(t, out, "Comparison (mean of timing)")
	assert.Contains(t, out, "1.500000")
	assert.Contains(t, out, "no-logs")
	assert.Contains(t, out, "ost-16: I/O missing PDCcache_write")
}

func TestRenderComparisonCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderComparison(&buf, sampleComparison(), FormatCSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"run", "I/O", "Communication", "processes", "flags"}, records[0])
	assert.Equal(t, []string{"ost-8", "1.500000", "0.250000", "4", ""}, records[1])
	assert.Equal(t, "no-logs", records[2][4])
}

func TestRenderOccupancy(t *testing.T) {
	occ := sampleReport().Occupancy

	var text bytes.Buffer
	require.NoError(t, RenderOccupancy(&text, "server_log_rank_0.csv", occ, FormatText))
	assert.Contains(t, text.String(), "Gaps")

	var out bytes.Buffer
	require.NoError(t, RenderOccupancy(&out, "server_log_rank_0.csv", occ, FormatCSV))
	records, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"gap", "2.000000", "3.000000", "1.000000"}, records[3])

	assert.Error(t, RenderOccupancy(&out, "x", occ, Format("yaml")))
}
