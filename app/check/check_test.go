package check

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProber_Probe(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	p := Prober{TimeOut: 5 * time.Second}
	out := p.Probe(context.Background(), ts.Listener.Addr().String())
	require.NoError(t, out.Err)
	assert.True(t, out.NotBefore.Before(out.NotAfter), "window start %s before end %s", out.NotBefore, out.NotAfter)
	assert.True(t, out.NotAfter.After(time.Now()), "test server cert is not expired")
}

func TestProber_ProbeFailed(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close()) // nothing listens on addr anymore

	p := Prober{TimeOut: time.Second}
	out := p.Probe(context.Background(), addr)
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "failed to connect to "+addr)
}

func TestProber_ProbeRetries(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	var attempts int32
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			atomic.AddInt32(&attempts, 1)
			_ = conn.Close() // drop the connection before the handshake completes
		}
	}()

	p := Prober{TimeOut: time.Second, Retries: 3}
	out := p.Probe(context.Background(), l.Addr().String())
	require.Error(t, out.Err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts), "every attempt hits the listener")
}

func TestProber_ProbeSingleAttemptByDefault(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	var attempts int32
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			atomic.AddInt32(&attempts, 1)
			_ = conn.Close()
		}
	}()

	p := Prober{TimeOut: time.Second}
	out := p.Probe(context.Background(), l.Addr().String())
	require.Error(t, out.Err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestClassify(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	nb := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	na := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	tbl := []struct {
		name string
		out  Outcome
		res  Result
	}{
		{"success", Outcome{NotBefore: nb, NotAfter: na},
			Result{Hostname: "example.com", NotBefore: nb, NotAfter: na, Status: StatusOK}},
		{"failure", Outcome{Err: errors.New("refused")},
			Result{Hostname: "example.com", NotBefore: now, NotAfter: now, Status: StatusError}},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.res, Classify("example.com", tt.out, now))
		})
	}
}

func Test_hostAddr(t *testing.T) {
	tbl := []struct {
		host string
		addr string
		sni  string
	}{
		{"example.com", "example.com:443", "example.com"},
		{"example.com:8443", "example.com:8443", "example.com"},
		{"127.0.0.1:443", "127.0.0.1:443", "127.0.0.1"},
	}

	for _, tt := range tbl {
		t.Run(tt.host, func(t *testing.T) {
			addr, sni := hostAddr(tt.host)
			assert.Equal(t, tt.addr, addr)
			assert.Equal(t, tt.sni, sni)
		})
	}
}
