// Package sexpfmt reformats S-expression documents (KiCad files and the like)
// into a canonical indented layout.
//
// It is a formatter, not a parser: input is processed one byte at a time by a
// Formatter, no tree is built and malformed input is formatted on a best-effort
// basis instead of being rejected. For example, with DefaultConfig
//
//	(a (b))
//
// becomes
//
//	(a
//		(b)
//	)
//
// Lists whose head token matches a compact-list prefix keep consecutive child
// lists on shared lines, and lists whose head matches a shortform prefix are
// rendered on a single line. See NewConfig, WithCompactList and WithShortform.
package sexpfmt

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync"
)

// formatterPool recycles Formatters between Format calls. The frame stack
// keeps its capacity across uses.
var formatterPool = sync.Pool{
	New: func() interface{} {
		return new(Formatter)
	},
}

func getFormatter(cfg *Config, sink io.ByteWriter) *Formatter {
	f := formatterPool.Get().(*Formatter)
	f.init(cfg, sink)
	return f
}

func putFormatter(f *Formatter) {
	// Drop references so pooled Formatters do not pin buffers or configs.
	f.sink = nil
	f.cfg = nil
	formatterPool.Put(f)
}

// Format returns the formatted form of src together with what was observed
// about its well-formedness.
func (c *Config) Format(src []byte) ([]byte, Stats) {
	var buf bytes.Buffer
	buf.Grow(len(src) + len(src)/4)

	f := getFormatter(c, &buf)
	defer putFormatter(f)

	// Writes to a bytes.Buffer cannot fail.
	_, _ = f.Write(src)
	return buf.Bytes(), f.Stats()
}

// FormatString is like Format for strings and discards the Stats.
func (c *Config) FormatString(src string) string {
	var buf bytes.Buffer
	f := getFormatter(c, &buf)
	defer putFormatter(f)

	_, _ = f.WriteString(src)
	return buf.String()
}

// Copy formats everything read from src to dst without holding the document
// in memory.
func (c *Config) Copy(dst io.Writer, src io.Reader) (Stats, error) {
	w := NewWriter(dst, c)
	if _, err := io.Copy(w, src); err != nil {
		return w.Stats(), fmt.Errorf("sexpfmt: copy: %w", err)
	}
	if err := w.Flush(); err != nil {
		return w.Stats(), fmt.Errorf("sexpfmt: copy: %w", err)
	}
	return w.Stats(), nil
}

// Writer is an io.Writer that formats the S-expression text written to it and
// writes the result to an underlying io.Writer. Output is buffered; call Flush
// once the document is complete.
type Writer struct {
	bw *bufio.Writer // sink of f, flushed to the destination
	f  *Formatter
}

// NewWriter returns a Writer that writes the formatted document to w using cfg.
// A nil cfg means DefaultConfig().
func NewWriter(w io.Writer, cfg *Config) *Writer {
	bw := bufio.NewWriter(w)
	return &Writer{
		bw: bw,
		f:  NewFormatter(cfg, bw),
	}
}

// Write formats p. It returns an error only if writing to the underlying
// writer failed.
func (w *Writer) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

// Flush writes any buffered output to the underlying writer.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// Stats returns the malformed-input observations made so far.
func (w *Writer) Stats() Stats {
	return w.f.Stats()
}

// Reset discards any unflushed output and document state and makes the Writer
// write to dst, keeping its Config.
func (w *Writer) Reset(dst io.Writer) {
	w.bw.Reset(dst)
	w.f.Reset(w.bw)
}
