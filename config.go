package sexpfmt

import (
	"errors"
	"fmt"
)

// MaxPrefixLen is the longest compact-list or shortform prefix a Config accepts.
// It is also the capacity of the per-list prefix buffer.
const MaxPrefixLen = 256

// House-style defaults (KiCad v8).
const (
	DefaultIndentChar         byte = '\t'
	DefaultIndentWidth             = 1
	DefaultWrapThreshold           = 72
	DefaultCompactColumnLimit      = 99
)

var (
	// DefaultCompactPrefixes are the list heads rendered in compact-list mode by the KiCad profiles.
	DefaultCompactPrefixes = []string{"pts"}
	// DefaultShortformPrefixes are the list heads rendered on a single line by the kicad-compact profile.
	DefaultShortformPrefixes = []string{"font", "stroke", "fill", "offset", "rotate", "scale"}
)

var (
	ErrInvalidIndentChar    = errors.New("invalid indent character")
	ErrInvalidIndentWidth   = errors.New("indent width must be positive")
	ErrInvalidWrapThreshold = errors.New("wrap threshold must not be negative")
	ErrInvalidColumnLimit   = errors.New("column limit must not be negative")
	ErrEmptyPrefixes        = errors.New("prefix list is empty")
	ErrPrefixTooLong        = errors.New("prefix exceeds maximum length")
)

// Config holds the formatting parameters shared by every Formatter built from it.
// A Config is immutable once NewConfig returns and may be used by any number of
// Formatters concurrently.
type Config struct {
	indentChar    byte // repeated indentWidth times per level
	indentWidth   int  // always positive
	wrapThreshold int  // 0 disables token wrapping

	compactPrefixes    map[string]struct{} // nil when compact lists are off
	compactColumnLimit int // 0 merges every compact child onto the current line

	shortformPrefixes map[string]struct{} // nil when shortform is off
}

// Option configures optional behaviour of a Config during NewConfig.
type Option func(*Config) error

// NewConfig validates the indentation and wrap settings, applies opts in order
// and returns the resulting Config. A wrapThreshold of 0 disables token wrapping.
func NewConfig(indentChar byte, indentWidth, wrapThreshold int, opts ...Option) (*Config, error) {
	if indentChar == 0 {
		return nil, fmt.Errorf("sexpfmt: invalid config: %w", ErrInvalidIndentChar)
	}
	if indentWidth <= 0 {
		return nil, fmt.Errorf("sexpfmt: invalid config: indent width %d: %w", indentWidth, ErrInvalidIndentWidth)
	}
	if wrapThreshold < 0 {
		return nil, fmt.Errorf("sexpfmt: invalid config: wrap threshold %d: %w", wrapThreshold, ErrInvalidWrapThreshold)
	}

	c := &Config{
		indentChar:    indentChar,
		indentWidth:   indentWidth,
		wrapThreshold: wrapThreshold,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// DefaultConfig returns the house-style indentation and wrapping without any
// compact-list or shortform prefixes.
func DefaultConfig() *Config {
	return &Config{
		indentChar:    DefaultIndentChar,
		indentWidth:   DefaultIndentWidth,
		wrapThreshold: DefaultWrapThreshold,
	}
}

// WithCompactList renders lists headed by one of prefixes in compact-list mode:
// consecutive child lists share a line until columnLimit is reached. A
// columnLimit of 0 merges every child list onto the current line.
func WithCompactList(prefixes []string, columnLimit int) Option {
	return func(c *Config) error {
		set, err := prefixSet(prefixes)
		if err != nil {
			return fmt.Errorf("sexpfmt: invalid compact list: %w", err)
		}
		if columnLimit < 0 {
			return fmt.Errorf("sexpfmt: invalid compact list: column limit %d: %w", columnLimit, ErrInvalidColumnLimit)
		}
		c.compactPrefixes = set
		c.compactColumnLimit = columnLimit
		return nil
	}
}

// WithShortform renders lists headed by one of prefixes, children included, on
// a single line.
func WithShortform(prefixes []string) Option {
	return func(c *Config) error {
		set, err := prefixSet(prefixes)
		if err != nil {
			return fmt.Errorf("sexpfmt: invalid shortform: %w", err)
		}
		c.shortformPrefixes = set
		return nil
	}
}

// prefixSet validates prefixes and returns them as a lookup set. Duplicates
// are allowed.
func prefixSet(prefixes []string) (map[string]struct{}, error) {
	if len(prefixes) == 0 {
		return nil, ErrEmptyPrefixes
	}
	set := make(map[string]struct{}, len(prefixes))
	for _, p := range prefixes {
		if len(p) > MaxPrefixLen {
			return nil, fmt.Errorf("%q...: %w", p[:16], ErrPrefixTooLong)
		}
		set[p] = struct{}{}
	}
	return set, nil
}

// IndentChar returns the byte repeated for each level of indentation.
func (c *Config) IndentChar() byte { return c.indentChar }

// IndentWidth returns how many IndentChar bytes make up one level.
func (c *Config) IndentWidth() int { return c.indentWidth }

// WrapThreshold returns the column at which bare tokens move to a new line, or 0.
func (c *Config) WrapThreshold() int { return c.wrapThreshold }

// CompactColumnLimit returns the compact-list column limit.
func (c *Config) CompactColumnLimit() int { return c.compactColumnLimit }

// isCompactPrefix reports whether a list headed by head is a compact list.
func (c *Config) isCompactPrefix(head []byte) bool {
	_, ok := c.compactPrefixes[string(head)]
	return ok
}

// isShortformPrefix reports whether a list headed by head is rendered in shortform.
func (c *Config) isShortformPrefix(head []byte) bool {
	_, ok := c.shortformPrefixes[string(head)]
	return ok
}
