package sexpfmt

import (
	"fmt"
	"io"

	"github.com/amterp/color"
)

// SprintfFuncer is implemented by *color.Color. It returns a function that
// formats like fmt.Sprintf and wraps the result in the color's escape codes.
type SprintfFuncer interface {
	SprintfFunc() func(format string, a ...interface{}) string
}

// Default colors used by a ColorWriter for Palette fields left nil.
var (
	// DefaultParenColor colors '(' and ')'. Default is bold.
	DefaultParenColor = color.New(color.Bold)
	// DefaultHeadColor colors the first atom of a list. Default is bold blue.
	DefaultHeadColor = color.New(color.FgBlue, color.Bold)
	// DefaultAtomColor colors other atoms. Default is no color.
	DefaultAtomColor = color.New()
	// DefaultNumberColor colors atoms that start like a number. Default is cyan.
	DefaultNumberColor = color.New(color.FgCyan)
	// DefaultStringColor colors quoted strings, quotes included. Default is green.
	DefaultStringColor = color.New(color.FgGreen)
)

// Palette selects the colors a ColorWriter uses. A zero Palette uses the
// Default*Color values.
type Palette struct {
	ParenColor  SprintfFuncer
	HeadColor   SprintfFuncer
	AtomColor   SprintfFuncer
	NumberColor SprintfFuncer
	StringColor SprintfFuncer
}

func (p *Palette) parenColor() SprintfFuncer {
	if p.ParenColor != nil {
		return p.ParenColor
	}
	return DefaultParenColor
}

func (p *Palette) headColor() SprintfFuncer {
	if p.HeadColor != nil {
		return p.HeadColor
	}
	return DefaultHeadColor
}

func (p *Palette) atomColor() SprintfFuncer {
	if p.AtomColor != nil {
		return p.AtomColor
	}
	return DefaultAtomColor
}

func (p *Palette) numberColor() SprintfFuncer {
	if p.NumberColor != nil {
		return p.NumberColor
	}
	return DefaultNumberColor
}

func (p *Palette) stringColor() SprintfFuncer {
	if p.StringColor != nil {
		return p.StringColor
	}
	return DefaultStringColor
}

type tokenClass int

const (
	classSpace tokenClass = iota // written without color
	classParen
	classHead
	classAtom
	classNumber
	classString
	numClasses
)

// ColorWriter is an io.ByteWriter sink that highlights formatted S-expression
// text for a terminal. It groups consecutive bytes of the same kind into runs
// and writes each run wrapped in its color. Call Flush when done.
type ColorWriter struct {
	w       io.Writer
	sprintf [numClasses]func(format string, a ...interface{}) string

	run   []byte
	class tokenClass

	inQuote  bool
	escape   bool
	inAtom   bool
	headNext bool // the next atom is the head of a list

	err error
}

// NewColorWriter returns a ColorWriter writing to w. A nil palette uses the
// Default*Color values.
func NewColorWriter(w io.Writer, p *Palette) *ColorWriter {
	if p == nil {
		p = &Palette{}
	}
	cw := &ColorWriter{
		w:   w,
		run: make([]byte, 0, 64),
	}
	cw.sprintf[classParen] = p.parenColor().SprintfFunc()
	cw.sprintf[classHead] = p.headColor().SprintfFunc()
	cw.sprintf[classAtom] = p.atomColor().SprintfFunc()
	cw.sprintf[classNumber] = p.numberColor().SprintfFunc()
	cw.sprintf[classString] = p.stringColor().SprintfFunc()
	return cw
}

// WriteByte classifies c and appends it to the current run, writing out the
// previous run when the kind of text changes.
func (cw *ColorWriter) WriteByte(c byte) error {
	if cw.err != nil {
		return cw.err
	}

	class := cw.classify(c)
	if class != cw.class && len(cw.run) > 0 {
		cw.flushRun()
	}
	cw.class = class
	cw.run = append(cw.run, c)
	return cw.err
}

// Write writes every byte of p through WriteByte.
func (cw *ColorWriter) Write(p []byte) (int, error) {
	for i, c := range p {
		if err := cw.WriteByte(c); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// Flush writes the pending run.
func (cw *ColorWriter) Flush() error {
	if len(cw.run) > 0 {
		cw.flushRun()
	}
	return cw.err
}

func (cw *ColorWriter) classify(c byte) tokenClass {
	if cw.inQuote {
		switch {
		case cw.escape:
			cw.escape = false
		case c == '\\':
			cw.escape = true
		case c == '"':
			cw.inQuote = false
		}
		return classString
	}

	switch {
	case c == '"':
		cw.inQuote = true
		cw.inAtom = false
		cw.headNext = false
		return classString
	case c == '(' || c == ')':
		cw.inAtom = false
		cw.headNext = c == '('
		return classParen
	case isSpace(c):
		cw.inAtom = false
		cw.headNext = false
		return classSpace
	}

	if cw.inAtom {
		return cw.class
	}
	cw.inAtom = true
	if cw.headNext {
		cw.headNext = false
		return classHead
	}
	if isNumberStart(c) {
		return classNumber
	}
	return classAtom
}

func (cw *ColorWriter) flushRun() {
	var err error
	if cw.class == classSpace {
		_, err = cw.w.Write(cw.run)
	} else {
		_, err = fmt.Fprint(cw.w, cw.sprintf[cw.class]("%s", cw.run))
	}
	if err != nil && cw.err == nil {
		cw.err = err
	}
	cw.run = cw.run[:0]
}

func isNumberStart(c byte) bool {
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.'
}
