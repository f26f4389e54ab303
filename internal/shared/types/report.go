package types

// Role identifies which side of the runtime produced a log
type Role string

const (
	RoleServer  Role = "server"
	RoleClient  Role = "client"
	RoleUnknown Role = "unknown"
)

// Run flags reported in place of failing a sweep
const (
	FlagNoLogs         = "no-logs"
	FlagNoIntervalLogs = "no-interval-logs"
	FlagNoTimingLogs   = "no-timing-logs"
	FlagNoIntervals    = "no-intervals"
)

// ProcessReport holds everything derived from one worker process
type ProcessReport struct {
	Role         Role           `json:"role"`
	Rank         int            `json:"rank"`
	IntervalFile string         `json:"interval_file,omitempty"`
	TimingFile   string         `json:"timing_file,omitempty"`
	Intervals    *IntervalTable `json:"-"`
	Timing       ScalarTable    `json:"timing,omitempty"`
	Derived      ScalarTable    `json:"derived,omitempty"`
	Totals       ScalarTable    `json:"totals,omitempty"`
	Occupancy    *Occupancy     `json:"occupancy,omitempty"`
}

// RunReport is the analysis result for one run directory
type RunReport struct {
	Label        string           `json:"label"`
	Dir          string           `json:"dir"`
	Origin       *float64         `json:"origin,omitempty"`
	Processes    []*ProcessReport `json:"processes"`
	Native       SummaryTable     `json:"native"`
	Derived      SummaryTable     `json:"derived"`
	Totals       SummaryTable     `json:"totals,omitempty"`
	Occupancy    *Occupancy       `json:"occupancy,omitempty"`
	IntervalLogs int              `json:"interval_logs"`
	TimingLogs   int              `json:"timing_logs"`
	Flags        []string         `json:"flags,omitempty"`
	Empty        bool             `json:"empty"`
}

// HasFlag reports whether the run carries flag
func (r *RunReport) HasFlag(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Comparison is the per-configuration table of categorized quantities
type Comparison struct {
	Source     string          `json:"source"`
	Statistic  string          `json:"statistic"`
	Categories []string        `json:"categories"`
	Rows       []ComparisonRow `json:"rows"`
}

// ComparisonRow is one run in a Comparison
type ComparisonRow struct {
	Label     string              `json:"label"`
	Values    map[string]float64  `json:"values"`
	Missing   map[string][]string `json:"missing,omitempty"`
	Processes int                 `json:"processes"`
	Flags     []string            `json:"flags,omitempty"`
}
