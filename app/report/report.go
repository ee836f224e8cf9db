// Package report converts check results into display rows and renders them as
// a console table, a names-only list or a prometheus metrics file.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/umputun/certcheck/app/check"
)

// Options control filtering and row reduction
type Options struct {
	AlertLimitDays int  // ok rows expiring after this many days are not alerting
	OnlyAlerting   bool // drop ok rows outside the alert window
	OnlyNames      bool // reduce output to hostnames only
}

// Row is a display-ready record derived from a single Result
type Row struct {
	Hostname  string
	NotBefore string // RFC3339, or "error" for failed checks
	NotAfter  string
	Days      string // days till expiration, or "error"
	Status    check.Status

	days int // numeric sort key, errors rank as most urgent
}

// Format converts results into rows sorted ascending by days till expiration.
// Error rows rank below any real value and are never dropped by the alerting
// filter. Sort is stable, ties keep the original input order. Pure function,
// safe to call repeatedly with identical output.
func Format(results []check.Result, now time.Time, opts Options) []Row {
	rows := make([]Row, 0, len(results))
	for _, r := range results {
		if r.Status == check.StatusError {
			rows = append(rows, Row{Hostname: r.Hostname, NotBefore: "error", NotAfter: "error",
				Days: "error", Status: r.Status, days: math.MinInt})
			continue
		}

		d := daysLeft(r.NotAfter, now)
		if opts.OnlyAlerting && d > opts.AlertLimitDays {
			continue
		}
		rows = append(rows, Row{
			Hostname:  r.Hostname,
			NotBefore: r.NotBefore.Format(time.RFC3339),
			NotAfter:  r.NotAfter.Format(time.RFC3339),
			Days:      strconv.Itoa(d),
			Status:    r.Status,
			days:      d,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].days < rows[j].days })
	return rows
}

// RenderTable writes rows as an aligned table
func RenderTable(w io.Writer, rows []Row) error {
	table := tablewriter.NewTable(w)
	table.Header("host", "not before", "not after", "days left", "status")

	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{r.Hostname, r.NotBefore, r.NotAfter, r.Days, string(r.Status)})
	}
	if err := table.Bulk(data); err != nil {
		return fmt.Errorf("can't fill table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("can't render table: %w", err)
	}
	return nil
}

// RenderNames writes hostnames only, one per line, in row order
func RenderNames(w io.Writer, rows []Row) error {
	for _, r := range rows {
		if _, err := fmt.Fprintln(w, r.Hostname); err != nil {
			return fmt.Errorf("can't write names: %w", err)
		}
	}
	return nil
}

// daysLeft is a true floor division, i.e. a window expired by one hour counts
// as -1 day, not 0
func daysLeft(notAfter, now time.Time) int {
	return int(math.Floor(notAfter.Sub(now).Hours() / 24))
}
