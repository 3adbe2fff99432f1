package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

type compression int

const (
	compressNone compression = iota
	compressGzip
	compressZstd
)

// compressionFor picks the codec from the file extension.
func compressionFor(path string) compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return compressGzip
	case ".zst", ".zstd":
		return compressZstd
	}
	return compressNone
}

// stack closes its layers innermost first.
type stack []func() error

func (s stack) close() error {
	var errs []error
	for i := len(s) - 1; i >= 0; i-- {
		if err := s[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type readCloser struct {
	io.Reader
	layers stack
}

func (r *readCloser) Close() error { return r.layers.close() }

type writeCloser struct {
	io.Writer
	layers stack
}

func (w *writeCloser) Close() error { return w.layers.close() }

// openInput opens path for reading, "-" meaning stdin. Compressed files are
// decompressed transparently.
func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	rc := &readCloser{Reader: stdin}
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		rc.Reader = f
		rc.layers = append(rc.layers, f.Close)
	}

	switch compressionFor(path) {
	case compressGzip:
		zr, err := gzip.NewReader(rc.Reader)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		rc.Reader = zr
		rc.layers = append(rc.layers, zr.Close)
	case compressZstd:
		zr, err := zstd.NewReader(rc.Reader)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		rc.Reader = zr
		rc.layers = append(rc.layers, func() error {
			zr.Close()
			return nil
		})
	}
	return rc, nil
}

// openOutput creates path for writing, "-" meaning stdout. The stream is
// compressed when the extension asks for it; Close finishes the stream.
func openOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	wc := &writeCloser{Writer: stdout}
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		wc.Writer = f
		wc.layers = append(wc.layers, f.Close)
	}
	if err := wc.compress(path); err != nil {
		wc.Close()
		return nil, err
	}
	return wc, nil
}

func (w *writeCloser) compress(path string) error {
	switch compressionFor(path) {
	case compressGzip:
		zw := gzip.NewWriter(w.Writer)
		w.Writer = zw
		w.layers = append(w.layers, zw.Close)
	case compressZstd:
		zw, err := zstd.NewWriter(w.Writer)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		w.Writer = zw
		w.layers = append(w.layers, zw.Close)
	}
	return nil
}

// readDocument returns the decompressed content of path.
func readDocument(path string) ([]byte, error) {
	rc, err := openInput(path, nil)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	if cerr := rc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// writeDocument replaces the content of path with data, compressed to match
// the extension. The new content is written to a temporary file in the same
// directory and renamed over path, so readers never see a partial document.
func writeDocument(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	var buf bytes.Buffer
	enc := &writeCloser{Writer: &buf}
	if err := enc.compress(path); err != nil {
		return err
	}
	if _, err := enc.Write(data); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
