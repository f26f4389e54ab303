package parser

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// EmptyKeyPolicy decides what happens to a key logged with zero intervals
type EmptyKeyPolicy int

const (
	// RetainEmpty keeps the key with an empty sequence
	RetainEmpty EmptyKeyPolicy = iota
	// DropEmpty omits the key from the table
	DropEmpty
)

func (p EmptyKeyPolicy) String() string {
	switch p {
	case RetainEmpty:
		return "retain"
	case DropEmpty:
		return "drop"
	default:
		return "unknown"
	}
}

// ParseEmptyKeyPolicy converts "retain" or "drop"
func ParseEmptyKeyPolicy(s string) (EmptyKeyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "retain":
		return RetainEmpty, nil
	case "drop":
		return DropEmpty, nil
	default:
		return RetainEmpty, errors.Newf("unknown empty-key policy %q (want retain or drop)", s)
	}
}

// DefaultMaxLineBytes bounds a single log line; busy server keys produce long lines
const DefaultMaxLineBytes = 16 * 1024 * 1024

// Options configures a Parser
type Options struct {
	EmptyKeys    EmptyKeyPolicy
	MaxLineBytes int
}

// DefaultOptions returns retain-empty parsing with the default line limit
func DefaultOptions() Options {
	return Options{
		EmptyKeys:    RetainEmpty,
		MaxLineBytes: DefaultMaxLineBytes,
	}
}
