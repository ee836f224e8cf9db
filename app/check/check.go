// Package check probes TLS certificates of remote hosts and classifies the
// outcomes into per-host results.
package check

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// Status of a single host check
type Status string

// check statuses
const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Outcome is the raw result of probing a single host, either the leaf
// certificate validity window or a failure captured as data.
type Outcome struct {
	NotBefore time.Time
	NotAfter  time.Time
	Err       error
}

// Result is the canonical record carried through the pipeline. For failed
// checks both timestamps are set to the time the check ran, which keeps the
// record sortable without parsed dates.
type Result struct {
	Hostname  string
	NotBefore time.Time
	NotAfter  time.Time
	Status    Status
}

// Prober retrieves the leaf certificate validity window of remote hosts.
// Retries is the total number of attempts per host, 1 or less means a single
// attempt. Failed attempts are repeated with exponential backoff.
type Prober struct {
	TimeOut time.Duration
	Retries int
}

const defaultTimeout = 10 * time.Second

// Probe opens a TLS connection to the host, port 443 unless the host carries
// an explicit port, presenting the host name for SNI. Every failure mode
// (dns, connect, timeout, handshake) ends up in Outcome.Err, nothing is
// propagated as an error.
func (p *Prober) Probe(ctx context.Context, host string) Outcome {
	addr, sni := hostAddr(host)

	attempts := p.Retries
	if attempts < 1 {
		attempts = 1
	}

	var notBefore, notAfter time.Time
	op := func() error {
		var err error
		notBefore, notAfter, err = p.probeOnce(ctx, addr, sni)
		return err
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(attempts-1)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return Outcome{Err: err}
	}
	return Outcome{NotBefore: notBefore, NotAfter: notAfter}
}

func (p *Prober) probeOnce(ctx context.Context, addr, sni string) (notBefore, notAfter time.Time, err error) {
	timeout := p.TimeOut
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config: &tls.Config{
			ServerName:         sni,
			InsecureSkipVerify: true, //nolint:gosec // expired and self-signed certs still report their window
		},
	}

	conn, err := dialer.DialContext(dctx, "tcp", addr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrapf(err, "failed to connect to %s", addr)
	}
	defer conn.Close() // nolint

	certs := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return time.Time{}, time.Time{}, errors.Errorf("no peer certificates presented by %s", addr)
	}
	return certs[0].NotBefore, certs[0].NotAfter, nil
}

// Classify converts a probe outcome into a Result. Pure and total, a failed
// probe becomes an error-status result with both timestamps set to now.
func Classify(host string, out Outcome, now time.Time) Result {
	if out.Err != nil {
		return Result{Hostname: host, NotBefore: now, NotAfter: now, Status: StatusError}
	}
	return Result{Hostname: host, NotBefore: out.NotBefore, NotAfter: out.NotAfter, Status: StatusOK}
}

// hostAddr splits host into a dial address and an SNI name, adding the
// default https port when none is given
func hostAddr(host string) (addr, sni string) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return host, h
	}
	return net.JoinHostPort(host, "443"), host
}
