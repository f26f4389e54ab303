// Package category maps metric keys onto named comparison columns such as
// "I/O" or "Communication". Mappings are loaded from YAML, TOML or JSON
// files so one binary serves any trace schema.
package category

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/tracestat/internal/shared/types"
)

// Source selects which run summary a categorization reads
type Source string

const (
	SourceTiming   Source = "timing"
	SourceInterval Source = "interval"
)

// Statistic selects the SummaryStat field that is summed per category
type Statistic string

const (
	StatMean   Statistic = "mean"
	StatMin    Statistic = "min"
	StatMax    Statistic = "max"
	StatSum    Statistic = "sum"
	StatMedian Statistic = "median"
)

// Category is one comparison column
type Category struct {
	Name     string   `json:"name" yaml:"name" toml:"name"`
	Keys     []string `json:"keys,omitempty" yaml:"keys,omitempty" toml:"keys,omitempty"`
	Patterns []string `json:"patterns,omitempty" yaml:"patterns,omitempty" toml:"patterns,omitempty"`
}

// Categorization is the full mapping used to build a Comparison
type Categorization struct {
	Source     Source     `json:"source" yaml:"source" toml:"source"`
	Statistic  Statistic  `json:"statistic" yaml:"statistic" toml:"statistic"`
	Categories []Category `json:"categories" yaml:"categories" toml:"categories"`
}

// Load reads a categorization, choosing the decoder by file extension
func Load(path string) (*Categorization, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &types.MissingFileError{Path: path, Kind: "categorization"}
		}
		return nil, errors.Wrapf(err, "read categorization %s", path)
	}
	return Decode(data, filepath.Ext(path))
}

// Decode parses data in the format named by ext (".yaml", ".yml", ".toml", ".json")
func Decode(data []byte, ext string) (*Categorization, error) {
	var c Categorization

	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, errors.Wrap(err, "decode yaml categorization")
		}
	case "toml":
		if err := toml.Unmarshal(data, &c); err != nil {
			return nil, errors.Wrap(err, "decode toml categorization")
		}
	case "json":
		if err := sonic.Unmarshal(data, &c); err != nil {
			return nil, errors.Wrap(err, "decode json categorization")
		}
	default:
		return nil, errors.Newf("unsupported categorization format %q", ext)
	}

	if err := c.Prepare(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Prepare fills the default source and statistic, then validates
func (c *Categorization) Prepare() error {
	if c.Source == "" {
		c.Source = SourceTiming
	}
	if c.Statistic == "" {
		c.Statistic = StatMean
	}
	return c.Validate()
}

// Validate rejects mappings that cannot produce a meaningful table
func (c *Categorization) Validate() error {
	switch c.Source {
	case SourceTiming, SourceInterval:
	default:
		return errors.Newf("unknown source %q (want timing or interval)", c.Source)
	}

	switch c.Statistic {
	case StatMean, StatMin, StatMax, StatSum, StatMedian:
	default:
		return errors.Newf("unknown statistic %q", c.Statistic)
	}

	if len(c.Categories) == 0 {
		return errors.New("categorization has no categories")
	}

	seen := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return errors.Newf("category %d has no name", i)
		}
		if seen[cat.Name] {
			return errors.Newf("duplicate category %q", cat.Name)
		}
		seen[cat.Name] = true

		if len(cat.Keys) == 0 && len(cat.Patterns) == 0 {
			return errors.Newf("category %q has no keys or patterns", cat.Name)
		}
		for _, p := range cat.Patterns {
			if !doublestar.ValidatePattern(p) {
				return errors.Newf("category %q: invalid pattern %q", cat.Name, p)
			}
		}
	}
	return nil
}

// Names returns the category names in declaration order
func (c *Categorization) Names() []string {
	names := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		names[i] = cat.Name
	}
	return names
}

// Matches reports whether key belongs to the category
func (cat Category) Matches(key string) bool {
	for _, k := range cat.Keys {
		if k == key {
			return true
		}
	}
	for _, p := range cat.Patterns {
		if ok, _ := doublestar.Match(p, key); ok {
			return true
		}
	}
	return false
}

// Apply sums the chosen statistic of every matching key per category.
// Exact keys absent from summary are reported in missing.
func (c *Categorization) Apply(summary types.SummaryTable) (map[string]float64, map[string][]string) {
	values := make(map[string]float64, len(c.Categories))
	missing := make(map[string][]string)

	keys := summary.Keys()
	for _, cat := range c.Categories {
		total := 0.0
		for _, key := range keys {
			if cat.Matches(key) {
				total += c.pick(summary[key])
			}
		}
		values[cat.Name] = total

		for _, k := range cat.Keys {
			if _, ok := summary[k]; !ok {
				missing[cat.Name] = append(missing[cat.Name], k)
			}
		}
		if m := missing[cat.Name]; len(m) > 0 {
			sort.Strings(m)
		}
	}
	return values, missing
}

// Select returns the run summary named by Source
func (c *Categorization) Select(report *types.RunReport) types.SummaryTable {
	if c.Source == SourceInterval {
		return report.Derived
	}
	return report.Native
}

func (c *Categorization) pick(s types.SummaryStat) float64 {
	switch c.Statistic {
	case StatMin:
		return s.Min
	case StatMax:
		return s.Max
	case StatSum:
		return s.Sum
	case StatMedian:
		return s.Median
	default:
		return s.Mean
	}
}
