package run

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"

	"github.com/GriffinCanCode/tracestat/internal/shared/types"
)

// Patterns are doublestar patterns matched against file base names
type Patterns struct {
	Interval string `json:"interval"`
	Timing   string `json:"timing"`
}

// DefaultPatterns matches <role>_log_rank_<N>.csv and <role>_timings_<N>.csv,
// optionally compressed
func DefaultPatterns() Patterns {
	return Patterns{
		Interval: "*_log_rank_*{.csv,.csv.gz,.csv.zst}",
		Timing:   "*_timings_*{.csv,.csv.gz,.csv.zst}",
	}
}

// Validate checks both patterns
func (p Patterns) Validate() error {
	if p.Interval == "" || !doublestar.ValidatePattern(p.Interval) {
		return errors.Newf("invalid interval pattern %q", p.Interval)
	}
	if p.Timing == "" || !doublestar.ValidatePattern(p.Timing) {
		return errors.Newf("invalid timing pattern %q", p.Timing)
	}
	return nil
}

// classify returns the log kind of a base name, or "" when neither matches
func (p Patterns) classify(name string) string {
	if ok, _ := doublestar.Match(p.Interval, name); ok {
		return kindInterval
	}
	if ok, _ := doublestar.Match(p.Timing, name); ok {
		return kindTiming
	}
	return ""
}

const (
	kindInterval = "interval"
	kindTiming   = "timing"
)

// LogFile is one discovered per-process log
type LogFile struct {
	Path string     `json:"path"`
	Name string     `json:"name"`
	Role types.Role `json:"role"`
	Rank int        `json:"rank"`
}

// Inventory lists the logs of one run directory in (role, rank, name) order
type Inventory struct {
	Dir          string    `json:"dir"`
	IntervalLogs []LogFile `json:"interval_logs"`
	TimingLogs   []LogFile `json:"timing_logs"`
}

// Empty reports whether no log of either kind was found
func (inv *Inventory) Empty() bool {
	return len(inv.IntervalLogs) == 0 && len(inv.TimingLogs) == 0
}

var digits = regexp.MustCompile(`\d+`)

// ParseName extracts role and rank from a log file name. Rank is -1 when
// the name carries no number.
func ParseName(name string) (types.Role, int) {
	role := types.RoleUnknown
	for _, field := range strings.Split(strings.ToLower(name), "_") {
		if field == string(types.RoleServer) || field == string(types.RoleClient) {
			role = types.Role(field)
			break
		}
	}

	rank := -1
	if all := digits.FindAllString(name, -1); len(all) > 0 {
		if n, err := strconv.Atoi(all[len(all)-1]); err == nil {
			rank = n
		}
	}
	return role, rank
}

func roleOrder(r types.Role) int {
	switch r {
	case types.RoleServer:
		return 0
	case types.RoleClient:
		return 1
	default:
		return 2
	}
}

func sortLogs(files []LogFile) {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if a.Role != b.Role {
			return roleOrder(a.Role) < roleOrder(b.Role)
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.Name < b.Name
	})
}

// Discover lists the interval and timing logs directly inside dir
func Discover(dir string, patterns Patterns) (*Inventory, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &types.MissingFileError{Path: dir, Kind: "run directory"}
		}
		return nil, errors.Wrapf(err, "stat %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Newf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", dir)
	}

	inv := &Inventory{Dir: dir}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		kind := patterns.classify(name)
		if kind == "" {
			continue
		}

		role, rank := ParseName(name)
		f := LogFile{Path: filepath.Join(dir, name), Name: name, Role: role, Rank: rank}
		if kind == kindInterval {
			inv.IntervalLogs = append(inv.IntervalLogs, f)
		} else {
			inv.TimingLogs = append(inv.TimingLogs, f)
		}
	}

	sortLogs(inv.IntervalLogs)
	sortLogs(inv.TimingLogs)
	return inv, nil
}
