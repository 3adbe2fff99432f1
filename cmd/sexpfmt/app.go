package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/amterp/sexpfmt"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// app carries what every mode needs: the shared style and where to report.
type app struct {
	cfg    *sexpfmt.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	jobs      int
	verbose   bool
	highlight bool

	mu sync.Mutex // serializes log lines from workers
}

func (a *app) logInfo(format string, args ...interface{}) {
	if !a.verbose {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintf(a.stderr, "[INFO] "+format+"\n", args...)
}

func (a *app) logWarn(format string, args ...interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintf(a.stderr, "[WARN] "+format+"\n", args...)
}

func (a *app) logError(format string, args ...interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintf(a.stderr, "[ERROR] "+format+"\n", args...)
}

func (a *app) warnStats(path string, stats sexpfmt.Stats) {
	if err := stats.Err(); err != nil {
		a.logWarn("%s: %v", path, err)
	}
}

// stream formats a single document from src to dst, either of which may be
// "-" for the standard streams.
func (a *app) stream(src, dst string) int {
	in, err := openInput(src, a.stdin)
	if err != nil {
		a.logError("%v", err)
		return exitFail
	}
	defer in.Close()

	out, err := openOutput(dst, a.stdout)
	if err != nil {
		a.logError("%v", err)
		return exitFail
	}

	stats, err := a.copy(out, in, dst == "-")
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		a.logError("%s: %v", src, err)
		return exitFail
	}

	a.warnStats(src, stats)
	a.logInfo("formatted %s", src)
	return exitOK
}

func (a *app) copy(dst io.Writer, src io.Reader, terminal bool) (sexpfmt.Stats, error) {
	if !terminal || !a.highlight {
		return a.cfg.Copy(dst, src)
	}

	bw := bufio.NewWriter(dst)
	cw := sexpfmt.NewColorWriter(bw, nil)
	stats, err := a.cfg.Copy(cw, src)
	if err != nil {
		return stats, err
	}
	if err := cw.Flush(); err != nil {
		return stats, err
	}
	return stats, bw.Flush()
}

// fileResult is the outcome of formatting one file in -write or -check mode.
type fileResult struct {
	Path       string `json:"path"`
	Changed    bool   `json:"changed"`
	StrayClose int    `json:"stray_close,omitzero"`
	OpenLists  int    `json:"open_lists,omitzero"`
	OpenQuote  bool   `json:"open_quote,omitzero"`
	Error      string `json:"error,omitzero"`

	stats sexpfmt.Stats
	err   error
}

// checkReport is the -check -json document.
type checkReport struct {
	Files   []fileResult `json:"files"`
	Changed int          `json:"changed"`
	Failed  int          `json:"failed"`
}

// formatFile formats path and, when write is set, replaces its content if the
// formatting differs.
func (a *app) formatFile(path string, write bool) fileResult {
	res := fileResult{Path: path}

	src, err := readDocument(path)
	if err != nil {
		res.fail(err)
		return res
	}

	out, stats := a.cfg.Format(src)
	res.stats = stats
	res.StrayClose = stats.StrayClose
	res.OpenLists = stats.Open
	res.OpenQuote = stats.InQuote
	res.Changed = !bytes.Equal(src, out)

	if write && res.Changed {
		if err := writeDocument(path, out); err != nil {
			res.fail(err)
		}
	}
	return res
}

func (r *fileResult) fail(err error) {
	r.err = err
	r.Error = err.Error()
}

// formatAll runs formatFile over paths on a.jobs workers. Results keep the
// order of paths.
func (a *app) formatAll(paths []string, write bool) []fileResult {
	results := make([]fileResult, len(paths))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for range min(a.jobs, len(paths)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = a.formatFile(paths[i], write)
			}
		}()
	}

	for i := range paths {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return results
}

func (a *app) writeFiles(paths []string) int {
	var errs []error
	for _, res := range a.formatAll(paths, true) {
		if a.reportWrite(res) != nil {
			errs = append(errs, res.err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return exitFail
	}
	return exitOK
}

func (a *app) reportWrite(res fileResult) error {
	if res.err != nil {
		a.logError("%s: %v", res.Path, res.err)
		return res.err
	}
	a.warnStats(res.Path, res.stats)
	if res.Changed {
		a.logInfo("formatted %s", res.Path)
	}
	return nil
}

func (a *app) checkFiles(paths []string, jsonOut bool) int {
	report := checkReport{Files: a.formatAll(paths, false)}
	for _, res := range report.Files {
		switch {
		case res.err != nil:
			report.Failed++
		case res.Changed:
			report.Changed++
		}
	}

	if jsonOut {
		err := json.MarshalWrite(a.stdout, report, jsontext.Multiline(true), jsontext.WithIndent("  "))
		if err != nil {
			a.logError("could not marshal json: %v", err)
			return exitFail
		}
		fmt.Fprintln(a.stdout)
	} else {
		for _, res := range report.Files {
			if res.err != nil {
				a.logError("%s: %v", res.Path, res.err)
				continue
			}
			a.warnStats(res.Path, res.stats)
			if res.Changed {
				fmt.Fprintln(a.stdout, res.Path)
			}
		}
	}

	if report.Changed > 0 || report.Failed > 0 {
		return exitFail
	}
	return exitOK
}
