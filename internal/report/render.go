// Package report renders analysis results as text tables, markdown, CSV or
// JSON. Renderers only format; they never recompute statistics.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	"github.com/GriffinCanCode/tracestat/internal/shared/types"
)

// Format selects an output encoding
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// ParseFormat converts a flag value; empty means text
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatMarkdown, FormatCSV, FormatJSON:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", errors.Newf("unknown format %q (want text, markdown, csv or json)", s)
	}
}

// Envelope wraps JSON output with an identifier
type Envelope struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	GeneratedAt time.Time `json:"generated_at"`
	Data        any       `json:"data"`
}

// NewEnvelope stamps data with a fresh report id
func NewEnvelope(kind string, data any) Envelope {
	return Envelope{
		ID:          uuid.NewString(),
		Kind:        kind,
		GeneratedAt: time.Now().UTC(),
		Data:        data,
	}
}

func writeJSON(w io.Writer, kind string, data any) error {
	out, err := sonic.ConfigStd.MarshalIndent(NewEnvelope(kind, data), "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode json report")
	}
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}

func newTable(w io.Writer, format Format, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	if format == FormatMarkdown {
		table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		table.SetCenterSeparator("|")
	}
	return table
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func heading(w io.Writer, format Format, title string) {
	if format == FormatMarkdown {
		fmt.Fprintf(w, "\n### %s\n\n", title)
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
}

// RenderRun writes one run report
func RenderRun(w io.Writer, r *types.RunReport, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, "run", r)
	case FormatCSV:
		return runCSV(w, r)
	case FormatText, FormatMarkdown:
		return runTable(w, r, format)
	default:
		return errors.Newf("unsupported format %q", format)
	}
}

func runTable(w io.Writer, r *types.RunReport, format Format) error {
	if format == FormatMarkdown {
		fmt.Fprintf(w, "## Run %s\n\n", r.Label)
	} else {
		fmt.Fprintf(w, "Run %s (%s)\n", r.Label, r.Dir)
	}
	fmt.Fprintf(w, "interval logs: %d, timing logs: %d, processes: %d\n", r.IntervalLogs, r.TimingLogs, len(r.Processes))
	if r.Origin != nil {
		fmt.Fprintf(w, "origin: %s\n", num(*r.Origin))
	}
	if len(r.Flags) > 0 {
		fmt.Fprintf(w, "flags: %s\n", strings.Join(r.Flags, ", "))
	}
	if r.Empty {
		return nil
	}

	if r.Occupancy != nil {
		heading(w, format, "Whole-run occupancy")
		occupancyTable(w, format, []string{r.Label}, []*types.Occupancy{r.Occupancy})
	}

	if len(r.Native) > 0 {
		heading(w, format, "Timing summary")
		summaryTable(w, format, r.Native)
	}
	if len(r.Derived) > 0 {
		heading(w, format, "Interval summary (seconds per key)")
		summaryTable(w, format, r.Derived)
	}
	if len(r.Totals) > 0 {
		heading(w, format, "Logged totals")
		summaryTable(w, format, r.Totals)
	}

	if len(r.Processes) > 0 {
		heading(w, format, "Processes")
		table := newTable(w, format, []string{"Role", "Rank", "Interval log", "Timing log", "Keys", "Busy", "Idle", "Utilization"})
		for _, p := range r.Processes {
			keys, busy, idle, util := "-", "-", "-", "-"
			if p.Intervals != nil {
				keys = strconv.Itoa(p.Intervals.Len())
			}
			if p.Occupancy != nil {
				busy, idle = num(p.Occupancy.Busy), num(p.Occupancy.Idle)
				util = strconv.FormatFloat(100*p.Occupancy.Utilization(), 'f', 1, 64) + "%"
			}
			table.Append([]string{string(p.Role), strconv.Itoa(p.Rank), dash(p.IntervalFile), dash(p.TimingFile), keys, busy, idle, util})
		}
		table.Render()
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func summaryTable(w io.Writer, format Format, s types.SummaryTable) {
	table := newTable(w, format, []string{"Key", "Count", "Mean", "Min", "Max", "Median", "Std"})
	for _, k := range s.Keys() {
		st := s[k]
		table.Append([]string{k, strconv.Itoa(st.Count), num(st.Mean), num(st.Min), num(st.Max), num(st.Median), num(st.Std)})
	}
	table.Render()
}

func occupancyTable(w io.Writer, format Format, names []string, occs []*types.Occupancy) {
	table := newTable(w, format, []string{"Source", "Spans", "Gaps", "Busy", "Idle", "Span", "Gap mean", "Gap std", "Gap max"})
	for i, occ := range occs {
		mean, std, maxGap := "-", "-", "-"
		if occ.GapStats != nil {
			mean, std, maxGap = num(occ.GapStats.Mean), num(occ.GapStats.Std), num(occ.GapStats.Max)
		}
		table.Append([]string{
			names[i],
			strconv.Itoa(len(occ.Coalesced)),
			strconv.Itoa(len(occ.Gaps)),
			num(occ.Busy), num(occ.Idle), num(occ.Span),
			mean, std, maxGap,
		})
	}
	table.Render()
}

func runCSV(w io.Writer, r *types.RunReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"run", "source", "key", "count", "mean", "min", "max", "median", "std", "sum"}); err != nil {
		return err
	}
	for _, part := range []struct {
		name string
		s    types.SummaryTable
	}{{"timing", r.Native}, {"interval", r.Derived}, {"total", r.Totals}} {
		for _, k := range part.s.Keys() {
			st := part.s[k]
			if err := cw.Write([]string{
				r.Label, part.name, k, strconv.Itoa(st.Count),
				num(st.Mean), num(st.Min), num(st.Max), num(st.Median), num(st.Std), num(st.Sum),
			}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// RenderComparison writes the per-configuration table
func RenderComparison(w io.Writer, c *types.Comparison, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, "comparison", c)
	case FormatCSV:
		return comparisonCSV(w, c)
	case FormatText, FormatMarkdown:
		if format == FormatMarkdown {
			fmt.Fprintf(w, "## Comparison (%s of %s)\n\n", c.Statistic, c.Source)
		} else {
			fmt.Fprintf(w, "Comparison (%s of %s)\n", c.Statistic, c.Source)
		}
		header := append([]string{"Run"}, c.Categories...)
		header = append(header, "Processes", "Flags")
		table := newTable(w, format, header)
		for _, row := range c.Rows {
			table.Append(comparisonRecord(c, row))
		}
		table.Render()

		for _, row := range c.Rows {
			for _, cat := range c.Categories {
				if m := row.Missing[cat]; len(m) > 0 {
					fmt.Fprintf(w, "%s: %s missing %s\n", row.Label, cat, strings.Join(m, ", "))
				}
			}
		}
		return nil
	default:
		return errors.Newf("unsupported format %q", format)
	}
}

func comparisonRecord(c *types.Comparison, row types.ComparisonRow) []string {
	rec := []string{row.Label}
	for _, cat := range c.Categories {
		if v, ok := row.Values[cat]; ok {
			rec = append(rec, num(v))
		} else {
			rec = append(rec, "-")
		}
	}
	return append(rec, strconv.Itoa(row.Processes), strings.Join(row.Flags, "; "))
}

func comparisonCSV(w io.Writer, c *types.Comparison) error {
	cw := csv.NewWriter(w)
	header := append([]string{"run"}, c.Categories...)
	header = append(header, "processes", "flags")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range c.Rows {
		if err := cw.Write(comparisonRecord(c, row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// RenderOccupancy writes the busy/idle view of one interval log
func RenderOccupancy(w io.Writer, name string, occ *types.Occupancy, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, "occupancy", map[string]any{"source": name, "occupancy": occ})
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"kind", "start", "end", "duration"}); err != nil {
			return err
		}
		for _, part := range []struct {
			kind string
			xs   []types.Interval
		}{{"busy", occ.Coalesced}, {"gap", occ.Gaps}} {
			for _, x := range part.xs {
				if err := cw.Write([]string{part.kind, num(x.Start), num(x.End), num(x.Duration())}); err != nil {
					return err
				}
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatText, FormatMarkdown:
		occupancyTable(w, format, []string{name}, []*types.Occupancy{occ})
		if len(occ.Gaps) > 0 {
			heading(w, format, "Gaps")
			table := newTable(w, format, []string{"Start", "End", "Duration"})
			for _, g := range occ.Gaps {
				table.Append([]string{num(g.Start), num(g.End), num(g.Duration())})
			}
			table.Render()
		}
		return nil
	default:
		return errors.Newf("unsupported format %q", format)
	}
}
