package sexpfmt

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedInput is reported by Stats.Err when a document was not well formed.
// The formatter itself never fails on malformed input.
var ErrMalformedInput = errors.New("malformed input")

// frame is one open list. The mode fields are copied from the parent when the
// frame is pushed, so a compact-list or shortform region ends when the frame
// that activated it is popped.
type frame struct {
	singular     bool // no child list and no wrapped token seen yet
	compact      bool // child lists share lines up to the column limit
	compactDepth int  // depth whose indentation compact children wrap to
	shortform    bool // the whole list stays on one line
}

func (fr *frame) inCompact() bool {
	if fr == nil {
		return false
	}
	return fr.compact
}

func (fr *frame) inShortform() bool {
	if fr == nil {
		return false
	}
	return fr.shortform
}

// markMultiline records that the list can no longer close on the line it opened on.
func (fr *frame) markMultiline() {
	if fr == nil {
		return
	}
	fr.singular = false
}

// prefixScanner buffers the head token of a newly opened list.
type prefixScanner struct {
	active   bool // between an open paren and the first whitespace or close paren
	overflow bool // the head did not fit buf
	n        int  // bytes used in buf
	buf      [MaxPrefixLen]byte
}

func (p *prefixScanner) start() {
	p.active = true
	p.overflow = false
	p.n = 0
}

func (p *prefixScanner) add(c byte) {
	if p.n < len(p.buf) {
		p.buf[p.n] = c
		p.n++
		return
	}
	p.overflow = true
}

// finish ends the scan and returns the head token. ok is false when the token
// did not fit the buffer; a truncated head must never match a prefix.
func (p *prefixScanner) finish() (head []byte, ok bool) {
	p.active = false
	return p.buf[:p.n], !p.overflow
}

// Stats describes what a Formatter observed about its input so far.
type Stats struct {
	StrayClose int  // close parens seen while no list was open
	Open       int  // lists not yet closed
	InQuote    bool // a quoted string is not yet terminated
}

// Err returns nil for a well-formed document, or an error wrapping
// ErrMalformedInput that lists the problems.
func (s Stats) Err() error {
	var problems []string
	if s.StrayClose > 0 {
		problems = append(problems, fmt.Sprintf("%d unmatched close paren(s)", s.StrayClose))
	}
	if s.Open > 0 {
		problems = append(problems, fmt.Sprintf("%d list(s) left open", s.Open))
	}
	if s.InQuote {
		problems = append(problems, "unterminated quoted string")
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("sexpfmt: %w: %s", ErrMalformedInput, strings.Join(problems, ", "))
}

// Formatter is the per-document prettify state machine. It consumes one input
// byte per WriteByte call and emits the formatted bytes to its sink.
//
// A Formatter must not be used from more than one goroutine at a time. The
// Config it was built from may be shared freely.
type Formatter struct {
	cfg  *Config
	sink io.ByteWriter
	err  error // first sink error; sticky

	frames []frame // open lists, innermost last
	column int     // bytes emitted since the last newline
	prev   byte    // last significant byte emitted (never synthesized whitespace)

	inQuote       bool // inside a quoted string
	escapePending bool // the next quoted byte follows a backslash
	spacePending  bool // source whitespace seen since the last significant byte

	scan       prefixScanner // head token of the newest list
	strayClose int           // close parens seen at depth 0
}

// NewFormatter returns a Formatter in its initial state that writes to sink.
// A nil cfg means DefaultConfig().
func NewFormatter(cfg *Config, sink io.ByteWriter) *Formatter {
	f := &Formatter{}
	f.init(cfg, sink)
	return f
}

func (f *Formatter) init(cfg *Config, sink io.ByteWriter) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	f.cfg = cfg
	f.Reset(sink)
}

// Reset discards all document state and directs further output to sink,
// keeping the Config. It allows a Formatter to be reused for another document.
func (f *Formatter) Reset(sink io.ByteWriter) {
	*f = Formatter{
		cfg:    f.cfg,
		sink:   sink,
		frames: f.frames[:0],
	}
}

// Depth returns the number of currently open lists.
func (f *Formatter) Depth() int { return len(f.frames) }

// Column returns the number of bytes emitted on the current output line.
func (f *Formatter) Column() int { return f.column }

// InQuote reports whether the formatter is inside a quoted string.
func (f *Formatter) InQuote() bool { return f.inQuote }

// Stats returns the malformed-input observations made so far.
func (f *Formatter) Stats() Stats {
	return Stats{
		StrayClose: f.strayClose,
		Open:       len(f.frames),
		InQuote:    f.inQuote,
	}
}

// Write feeds every byte of p to WriteByte. It implements io.Writer so a
// Formatter can be the destination of io.Copy.
func (f *Formatter) Write(p []byte) (int, error) {
	for i, c := range p {
		if err := f.WriteByte(c); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// WriteString is like Write for a string.
func (f *Formatter) WriteString(s string) (int, error) {
	for i := 0; i < len(s); i++ {
		if err := f.WriteByte(s[i]); err != nil {
			return i, err
		}
	}
	return len(s), nil
}

// WriteByte processes one input byte. Malformed input never causes an error;
// the only error returned is the first one reported by the sink, after which
// the Formatter emits nothing more.
func (f *Formatter) WriteByte(c byte) error {
	if f.err != nil {
		return f.err
	}

	// One class per byte, tested in priority order.
	switch {
	case f.inQuote || c == '"':
		f.quoted(c)
	case isSpace(c):
		f.whitespace()
	case c == '(':
		f.open()
	case c == ')':
		f.close()
	case c != 0: // NUL is ignored
		f.literal(c)
	}
	return f.err
}

// frame returns the innermost open list, or nil at top level.
func (f *Formatter) frame() *frame {
	if len(f.frames) == 0 {
		return nil
	}
	return &f.frames[len(f.frames)-1]
}

// quoted handles a byte of a quoted string, including its delimiters.
// Quoted strings are atomic: nothing is ever inserted inside one.
func (f *Formatter) quoted(c byte) {
	// The separator before an opening quote; never at the start of a line.
	if f.spacePending && f.column > 0 {
		f.emit(' ')
	}
	f.spacePending = false

	switch {
	case f.escapePending:
		f.escapePending = false
	case c == '\\':
		f.escapePending = true
	case c == '"':
		f.inQuote = !f.inQuote
	}

	f.emitSignificant(c)
}

// whitespace is never emitted. It collapses into a pending separator and
// ends the head token scan of a freshly opened list.
func (f *Formatter) whitespace() {
	f.spacePending = true

	if !f.scan.active {
		return
	}
	head, ok := f.scan.finish()
	fr := f.frame()
	if !ok || fr == nil {
		return
	}

	// Both modes may apply to the same list.
	depth := len(f.frames)
	if f.cfg.isCompactPrefix(head) {
		fr.compact = true
		fr.compactDepth = depth
	}
	if f.cfg.isShortformPrefix(head) {
		fr.shortform = true
	}
}

// open places a new list: next to its sibling inside a compact or shortform
// region, otherwise on a new line indented to the parent's depth.
func (f *Formatter) open() {
	f.spacePending = false
	parent := f.frame()

	switch {
	case parent.inCompact():
		limit := f.cfg.compactColumnLimit
		if (f.column < limit && f.prev == ')') || limit == 0 {
			// Consecutive list still within the column limit.
			f.emit(' ')
		} else {
			f.newline(parent.compactDepth)
		}
	case parent.inShortform():
		f.emit(' ')
	default:
		// Only lists outside a mode region are classified by their head.
		f.scan.start()
		if parent != nil {
			f.newline(len(f.frames))
		}
	}

	// A list with a child list can no longer close inline. The child inherits
	// the parent's mode region.
	next := frame{singular: true}
	if parent != nil {
		parent.markMultiline()
		next.compact, next.compactDepth = parent.compact, parent.compactDepth
		next.shortform = parent.shortform
	}
	f.frames = append(f.frames, next)

	f.emitSignificant('(')
}

// close ends the innermost list.
func (f *Formatter) close() {
	f.spacePending = false
	f.scan.active = false

	n := len(f.frames)
	if n == 0 {
		// Unmatched: written on a line of its own at depth 0, like the
		// close of a multi-line top-level list.
		f.strayClose++
		f.newline(0)
		f.emitSignificant(')')
		f.emit('\n')
		return
	}
	closing := f.frames[n-1]
	f.frames = f.frames[:n-1]
	depth := n - 1

	// (a) closes inline; a multi-line list closes on its own line unless it
	// is rendered in shortform.
	if !closing.singular && !closing.shortform {
		f.newline(depth)
	}
	f.emitSignificant(')')

	// Every top-level list ends its line.
	if depth == 0 {
		f.emit('\n')
	}
}

// literal handles a byte of an atom.
func (f *Formatter) literal(c byte) {
	fr := f.frame()
	// Whitespace after an open paren or at the start of a line is dropped.
	separated := f.spacePending && f.column > 0 && f.prev != '('

	switch {
	case f.prev == ')' && !fr.inShortform():
		// A bare token after a closed list goes on its own line.
		f.newline(len(f.frames))
	case separated && f.wraps(fr):
		// Wrapping only happens between tokens, never inside an atom.
		f.newline(len(f.frames))
		fr.markMultiline()
	case separated:
		f.emit(' ')
	}
	f.spacePending = false

	if f.scan.active {
		f.scan.add(c)
	}
	f.emitSignificant(c)
}

// wraps reports whether the next bare token crosses the wrap threshold.
func (f *Formatter) wraps(fr *frame) bool {
	t := f.cfg.wrapThreshold
	return t > 0 && !fr.inCompact() && !fr.inShortform() && f.column >= t
}

// newline starts a new line indented to depth. No newline is emitted when the
// output is already at the start of a line.
func (f *Formatter) newline(depth int) {
	if f.column > 0 {
		f.emit('\n')
	}
	for i := depth * f.cfg.indentWidth; i > 0; i-- {
		f.emit(f.cfg.indentChar)
	}
}

// emitSignificant emits a byte taken from the input and remembers it for the
// spacing decisions of the next byte.
func (f *Formatter) emitSignificant(c byte) {
	f.emit(c)
	f.prev = c
}

// emit writes c to the sink and tracks the output column. Nothing is written
// once the sink has failed.
func (f *Formatter) emit(c byte) {
	if f.err != nil {
		return
	}
	if err := f.sink.WriteByte(c); err != nil {
		f.err = err
		return
	}
	if c == '\n' {
		f.column = 0
	} else {
		f.column++
	}
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
