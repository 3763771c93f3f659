// Package container opens and re-serializes the DOCX zip container. It
// enforces the security limits before any body text is read, exposes the
// word/document.xml stream, and rebuilds the archive with every other
// entry copied raw so untouched parts stay byte-for-byte identical.
package container

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// DocumentPath is the fixed archive entry holding the body text stream.
const DocumentPath = "word/document.xml"

// Limits caps the decompressed sizes sampled from the archive.
type Limits struct {
	// MaxEntryBytes caps the decompressed size of any single entry.
	MaxEntryBytes int64
	// MaxTotalBytes caps the aggregate decompressed size of all entries.
	MaxTotalBytes int64
}

// DefaultLimits mirrors the documented defaults: 10 MB per entry, 50 MB total.
func DefaultLimits() Limits {
	return Limits{
		MaxEntryBytes: 10 * 1024 * 1024,
		MaxTotalBytes: 50 * 1024 * 1024,
	}
}

// FormatError reports a container that is not a valid archive or lacks the
// required body-text entry.
type FormatError struct {
	Msg string
	Err error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid docx container: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("invalid docx container: %s", e.Msg)
}

func (e *FormatError) Unwrap() error { return e.Err }

// SecurityError reports a path traversal attempt or a size-limit violation.
type SecurityError struct {
	Msg string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("docx container rejected: %s", e.Msg)
}

// Container is a validated, read-only view of a DOCX archive. It keeps the
// original bytes untouched; Rewrite produces a fresh output buffer.
type Container struct {
	data     []byte
	reader   *zip.Reader
	document []byte
	logger   *zap.Logger
}

// Open validates the archive and extracts the body-text stream. Validation
// order matters: traversal and size checks run before document.xml is read.
func Open(data []byte, limits Limits, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &FormatError{Msg: "not a zip archive", Err: err}
	}

	if err := checkEntryPaths(zr); err != nil {
		return nil, err
	}
	if err := sampleSizes(zr, limits); err != nil {
		return nil, err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == DocumentPath {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, &FormatError{Msg: DocumentPath + " not found in archive"}
	}

	doc, err := readEntry(docFile)
	if err != nil {
		return nil, &FormatError{Msg: "failed to read " + DocumentPath, Err: err}
	}

	logger.Debug("opened docx container",
		zap.Int("entries", len(zr.File)),
		zap.Int("document_bytes", len(doc)))

	return &Container{
		data:     data,
		reader:   zr,
		document: doc,
		logger:   logger,
	}, nil
}

// Document returns the raw bytes of word/document.xml.
func (c *Container) Document() []byte {
	return c.document
}

// Rewrite re-serializes the container with newDocument in place of
// word/document.xml. All other entries are copied raw, compressed bytes
// included, so they survive unchanged.
func (c *Container) Rewrite(newDocument []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, f := range c.reader.File {
		if f.Name == DocumentPath {
			header := &zip.FileHeader{
				Name:     f.Name,
				Method:   f.Method,
				Modified: f.Modified,
			}
			w, err := zw.CreateHeader(header)
			if err != nil {
				return nil, fmt.Errorf("failed to create %s: %w", f.Name, err)
			}
			if _, err := w.Write(newDocument); err != nil {
				return nil, fmt.Errorf("failed to write %s: %w", f.Name, err)
			}
			continue
		}

		if err := zw.Copy(f); err != nil {
			return nil, fmt.Errorf("failed to copy %s: %w", f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	c.logger.Debug("rewrote docx container", zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

// checkEntryPaths rejects names that could escape an extraction directory.
func checkEntryPaths(zr *zip.Reader) error {
	for _, f := range zr.File {
		name := f.Name
		if strings.Contains(name, "\\") {
			return &SecurityError{Msg: fmt.Sprintf("entry name contains backslash: %q", name)}
		}
		if strings.HasPrefix(name, "/") {
			return &SecurityError{Msg: fmt.Sprintf("entry name is absolute: %q", name)}
		}
		for _, part := range strings.Split(name, "/") {
			if part == ".." {
				return &SecurityError{Msg: fmt.Sprintf("entry name traverses directories: %q", name)}
			}
		}
	}
	return nil
}

// sampleSizes decompresses each entry up to the configured caps, counting
// actual bytes rather than trusting the declared sizes in the headers.
func sampleSizes(zr *zip.Reader, limits Limits) error {
	var total int64
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		n, err := sampleEntry(f, limits.MaxEntryBytes)
		if err != nil {
			return err
		}
		if n > limits.MaxEntryBytes {
			return &SecurityError{Msg: fmt.Sprintf(
				"entry %q exceeds per-entry limit of %d bytes", f.Name, limits.MaxEntryBytes)}
		}
		total += n
		if total > limits.MaxTotalBytes {
			return &SecurityError{Msg: fmt.Sprintf(
				"aggregate decompressed size exceeds limit of %d bytes", limits.MaxTotalBytes)}
		}
	}
	return nil
}

func sampleEntry(f *zip.File, limit int64) (int64, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, &FormatError{Msg: "failed to open entry " + f.Name, Err: err}
	}
	defer rc.Close()

	// Read one byte past the cap so an oversized entry is detectable
	// without decompressing the whole thing.
	n, err := io.Copy(io.Discard, io.LimitReader(rc, limit+1))
	if err != nil {
		return 0, &FormatError{Msg: "failed to read entry " + f.Name, Err: err}
	}
	return n, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
