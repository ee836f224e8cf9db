package check

import (
	"context"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/syncs"
)

// CertProber probes a single host for its certificate validity window
type CertProber interface {
	Probe(ctx context.Context, host string) Outcome
}

// Runner executes probes over an ordered host list with bounded concurrency.
type Runner struct {
	Prober      CertProber
	Concurrency int
	Logger      lgr.L
}

// Run probes every non-blank host and returns exactly one Result per host, in
// the original input order regardless of completion order. Individual probe
// failures degrade to error-status results, the batch never aborts.
func (r *Runner) Run(ctx context.Context, hosts []string) []Result {
	targets := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if strings.TrimSpace(h) == "" {
			continue
		}
		targets = append(targets, strings.TrimSpace(h))
	}

	if len(targets) == 0 {
		r.logf("[WARN] empty host list, nothing to check")
		return []Result{}
	}

	concurrency := r.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	res := make([]Result, len(targets))
	wg := syncs.NewSizedGroup(concurrency, syncs.Context(ctx), syncs.Preemptive)
	for i, host := range targets {
		i, host := i, host
		wg.Go(func(ctx context.Context) {
			st := time.Now()
			out := r.Prober.Probe(ctx, host)
			res[i] = Classify(host, out, time.Now())
			if out.Err != nil {
				r.logf("[WARN] check failed for %s: %v", host, out.Err)
				return
			}
			r.logf("[DEBUG] checked %s in %v, expires %s", host, time.Since(st), out.NotAfter.Format(time.RFC3339))
		})
	}
	wg.Wait()

	// slots left unfilled by a canceled context are dropped
	filled := res[:0]
	for _, rr := range res {
		if rr.Hostname != "" {
			filled = append(filled, rr)
		}
	}

	r.logf("[INFO] checked %d hosts", len(filled))
	return filled
}

func (r *Runner) logf(format string, args ...interface{}) {
	logger := r.Logger
	if logger == nil {
		logger = lgr.NoOp
	}
	logger.Logf(format, args...)
}
