package ingest

import (
	"archive/zip"
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/cityvec/internal/domain"
)

const maxLineBytes = 1 << 20

// rowFunc receives the tab-split fields of one data line and its 1-based line number.
type rowFunc func(fields []string, line int) error

// scanTSV streams the tab-separated lines of path. Plain, .gz and .zip files are accepted;
// for a .zip the entry named like the archive (cities15000.zip -> cities15000.txt) is read,
// falling back to the first entry.
func scanTSV(path string, skipComments bool, fn rowFunc) error {
	rc, err := open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIngestion, err)
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSuffix(scanner.Text(), "\r")
		if skipComments && strings.HasPrefix(text, "#") {
			continue
		}
		if err := fn(strings.Split(text, "\t"), line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: read %s: %w", domain.ErrIngestion, path, err)
	}
	return nil
}

func open(path string) (io.ReadCloser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return openZip(path)
	case ".gz":
		fi, err := os.Open(path) //nolint:gosec // path comes from configuration
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		fz, err := gzip.NewReader(fi)
		if err != nil {
			_ = fi.Close()
			return nil, fmt.Errorf("creating gzip reader for %s: %w", path, err)
		}
		return &stackedCloser{Reader: fz, closers: []io.Closer{fz, fi}}, nil
	default:
		fi, err := os.Open(path) //nolint:gosec // path comes from configuration
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return fi, nil
	}
}

func openZip(path string) (io.ReadCloser, error) {
	rz, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening zip file %s: %w", path, err)
	}
	if len(rz.File) == 0 {
		_ = rz.Close()
		return nil, fmt.Errorf("zip file %s is empty", path)
	}

	want := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".txt"
	entry := rz.File[0]
	for _, f := range rz.File {
		if f.Name == want {
			entry = f
			break
		}
	}

	fi, err := entry.Open()
	if err != nil {
		_ = rz.Close()
		return nil, fmt.Errorf("opening %s in zip: %w", entry.Name, err)
	}
	return &stackedCloser{Reader: fi, closers: []io.Closer{fi, rz}}, nil
}

// stackedCloser closes the decoder before the underlying file.
type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
