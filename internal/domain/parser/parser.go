package parser

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"

	"github.com/GriffinCanCode/tracestat/internal/shared/types"
)

// totalSuffix marks the per-key total lines written after interval lines
const totalSuffix = "_total"

// Parser reads interval and scalar logs
type Parser struct {
	opts Options
}

// New creates a parser
func New(opts Options) *Parser {
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = DefaultMaxLineBytes
	}
	return &Parser{opts: opts}
}

// Default creates a parser with DefaultOptions
func Default() *Parser {
	return New(DefaultOptions())
}

// Options returns the parser configuration
func (p *Parser) Options() Options {
	return p.opts
}

// ParseIntervalLog reads an interval log with the default parser
func ParseIntervalLog(path string) (*types.IntervalTable, error) {
	return Default().ParseIntervalLog(path)
}

// ParseScalarLog reads a timing log with the default parser
func ParseScalarLog(path string) (types.ScalarTable, error) {
	return Default().ParseScalarLog(path)
}

// ParseIntervalLog opens path and parses it as an interval log
func (p *Parser) ParseIntervalLog(path string) (*types.IntervalTable, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return p.ReadIntervalLog(rc, path)
}

// ParseScalarLog opens path and parses it as a timing log
func (p *Parser) ParseScalarLog(path string) (types.ScalarTable, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return p.ReadScalarLog(rc, path)
}

// ReadIntervalLog parses KEY,START-END[,START-END...] lines.
// A repeated key appends, since clients append one block per session.
func (p *Parser) ReadIntervalLog(r io.Reader, name string) (*types.IntervalTable, error) {
	table := types.NewIntervalTable()

	err := p.scan(r, name, func(lineNo int, raw, line string) error {
		fields := splitFields(line)
		key := fields[0]
		if key == "" {
			return parseErr(name, lineNo, raw, "empty key")
		}
		rest := fields[1:]

		if total, ok := totalLine(key, rest); ok {
			table.Totals[key] = total
			return nil
		}

		// one trailing comma is how the writer ends an idle key
		if n := len(rest); n > 0 && rest[n-1] == "" {
			rest = rest[:n-1]
		}

		xs := make([]types.Interval, 0, len(rest))
		for _, field := range rest {
			iv, reason := parseInterval(field)
			if reason != "" {
				return parseErr(name, lineNo, raw, reason)
			}
			xs = append(xs, iv)
		}

		if len(xs) == 0 && p.opts.EmptyKeys == DropEmpty {
			return nil
		}
		table.Append(key, xs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// ReadScalarLog parses KEY,VALUE lines; the last occurrence of a key wins
func (p *Parser) ReadScalarLog(r io.Reader, name string) (types.ScalarTable, error) {
	table := make(types.ScalarTable)

	err := p.scan(r, name, func(lineNo int, raw, line string) error {
		fields := splitFields(line)
		if len(fields) != 2 {
			return parseErr(name, lineNo, raw, "expected KEY,VALUE, got "+strconv.Itoa(len(fields))+" fields")
		}
		if fields[0] == "" {
			return parseErr(name, lineNo, raw, "empty key")
		}
		v, reason := parseNumber(fields[1], "value")
		if reason != "" {
			return parseErr(name, lineNo, raw, reason)
		}
		table[fields[0]] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// scan feeds fn every content line, skipping blanks and ctime session headers
func (p *Parser) scan(r io.Reader, name string, fn func(lineNo int, raw, line string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, p.opts.MaxLineBytes)), p.opts.MaxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimRight(scanner.Text(), "\r")
		line := strings.TrimSpace(raw)
		if line == "" || isSessionHeader(line) {
			continue
		}
		if err := fn(lineNo, raw, line); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return parseErr(name, lineNo+1, "", "line exceeds "+humanize.IBytes(uint64(p.opts.MaxLineBytes)))
		}
		return errors.Wrapf(err, "read %s", name)
	}
	return nil
}

func parseErr(file string, line int, raw, reason string) error {
	return &types.ParseError{File: file, Line: line, Raw: raw, Reason: reason}
}

func splitFields(line string) []string {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// isSessionHeader matches the ctime(3) line the runtime writes when a log is (re)opened
func isSessionHeader(line string) bool {
	if len(line) < len(time.ANSIC) || line[0] < 'A' || line[0] > 'Z' {
		return false
	}
	_, err := time.Parse(time.ANSIC, line)
	return err == nil
}

func totalLine(key string, rest []string) (float64, bool) {
	if !strings.HasSuffix(key, totalSuffix) || len(rest) != 1 {
		return 0, false
	}
	v, reason := parseNumber(rest[0], "total")
	if reason != "" {
		return 0, false
	}
	return v, true
}

// parseNumber accepts finite floats only; ParseFloat would also take NaN and Inf
func parseNumber(s, what string) (float64, string) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, "non-numeric " + what + " " + strconv.Quote(s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, "non-finite " + what + " " + strconv.Quote(s)
	}
	return v, ""
}

// parseInterval splits START-END on the first '-' that is neither a leading
// sign nor an exponent sign. A non-empty reason means the field is malformed.
func parseInterval(field string) (types.Interval, string) {
	if field == "" {
		return types.Interval{}, "empty interval field"
	}

	sep := -1
	for i := 1; i < len(field); i++ {
		if field[i] != '-' {
			continue
		}
		if prev := field[i-1]; prev == 'e' || prev == 'E' {
			continue
		}
		sep = i
		break
	}
	if sep < 0 {
		return types.Interval{}, "interval " + strconv.Quote(field) + " is not START-END"
	}

	lo, hi := strings.TrimSpace(field[:sep]), strings.TrimSpace(field[sep+1:])
	start, reason := parseNumber(lo, "start")
	if reason != "" {
		return types.Interval{}, reason
	}
	end, reason := parseNumber(hi, "end")
	if reason != "" {
		return types.Interval{}, reason
	}
	return types.Interval{Start: start, End: end}, ""
}
