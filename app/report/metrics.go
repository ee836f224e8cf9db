package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pkgz/fileutils"

	"github.com/umputun/certcheck/app/check"
)

// metric header, fixed two lines of the prometheus text exposition format
const metricsHeader = "# HELP check_certificates_expiration days until the domain certificate expires, negative if already expired\n" +
	"# TYPE check_certificates_expiration gauge\n"

// MetricsFile writes results in prometheus text exposition format for a
// textfile collector. The target is prepared upfront so an unwritable path
// fails before any probing starts, and the final content replaces the file in
// a single rename, no partially written file is ever visible under the
// target name.
type MetricsFile struct {
	Path string

	tmp *os.File
}

// NewMetricsFile verifies the destination is writable by creating a temp file
// next to it. Returns an error if the directory is missing or not writable.
func NewMetricsFile(path string) (*MetricsFile, error) {
	dir := filepath.Dir(path)
	if !fileutils.IsDir(dir) {
		return nil, fmt.Errorf("metrics directory %s not found", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("can't create metrics file in %s: %w", dir, err)
	}
	return &MetricsFile{Path: path, tmp: tmp}, nil
}

// Write renders every result, one line per result in the original check
// order, and moves the temp file over the target
func (m *MetricsFile) Write(results []check.Result, now time.Time) error {
	if err := WriteMetrics(m.tmp, results, now); err != nil {
		m.Cleanup()
		return fmt.Errorf("can't write metrics to %s: %w", m.tmp.Name(), err)
	}
	if err := m.tmp.Close(); err != nil {
		m.Cleanup()
		return fmt.Errorf("can't close metrics file %s: %w", m.tmp.Name(), err)
	}
	if err := os.Rename(m.tmp.Name(), m.Path); err != nil {
		m.Cleanup()
		return fmt.Errorf("can't move metrics file to %s: %w", m.Path, err)
	}
	return nil
}

// Cleanup removes the temp file, safe to call at any point after New
func (m *MetricsFile) Cleanup() {
	_ = m.tmp.Close()
	_ = os.Remove(m.tmp.Name())
}

// WriteMetrics renders the full, unfiltered result set. Error results report
// zero days left, matching their check-time sentinel timestamps.
func WriteMetrics(w io.Writer, results []check.Result, now time.Time) error {
	var b strings.Builder
	b.WriteString(metricsHeader)
	for _, r := range results {
		days := 0
		if r.Status == check.StatusOK {
			days = daysLeft(r.NotAfter, now)
		}
		fmt.Fprintf(&b, "check_certificates_expiration{domain=%q,outcome=%q} %d\n", r.Hostname, string(r.Status), days)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("metrics write failed: %w", err)
	}
	return nil
}
