package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/certcheck/app/config"
	"github.com/umputun/certcheck/app/source"
)

func resetOpts() {
	opts.InputFile, opts.Domain, opts.Backend = "", "", ""
	opts.GenerateMetrics = false
}

func Test_makeSource(t *testing.T) {
	cfg := &config.Parameters{}
	cfg.Backends.Paste = config.Paste{URL: "https://paste.example.com/api", UserKey: "uk", DevKey: "dk", PasteID: "pid"}

	t.Run("no source", func(t *testing.T) {
		resetOpts()
		_, err := makeSource(cfg)
		require.EqualError(t, err, "exactly one of --input-filename, --domain or --backend-name must be set")
	})

	t.Run("multiple sources", func(t *testing.T) {
		resetOpts()
		opts.InputFile, opts.Domain = "domains.txt", "example.com"
		_, err := makeSource(cfg)
		require.Error(t, err)
	})

	t.Run("input file", func(t *testing.T) {
		resetOpts()
		opts.InputFile = "domains.txt"
		src, err := makeSource(cfg)
		require.NoError(t, err)
		assert.Equal(t, &source.File{Path: "domains.txt"}, src)
	})

	t.Run("single domain", func(t *testing.T) {
		resetOpts()
		opts.Domain = "example.com"
		src, err := makeSource(cfg)
		require.NoError(t, err)
		assert.Equal(t, &source.Static{Domains: []string{"example.com"}}, src)
	})

	t.Run("paste backend", func(t *testing.T) {
		resetOpts()
		opts.Backend = "paste"
		src, err := makeSource(cfg)
		require.NoError(t, err)
		paste, ok := src.(*source.Paste)
		require.True(t, ok)
		assert.Equal(t, "https://paste.example.com/api", paste.URL)
		assert.Equal(t, "uk", paste.UserKey)
		assert.Equal(t, "dk", paste.DevKey)
		assert.Equal(t, "pid", paste.PasteID)
	})

	t.Run("unknown backend", func(t *testing.T) {
		resetOpts()
		opts.Backend = "gist"
		_, err := makeSource(cfg)
		require.EqualError(t, err, `unknown backend "gist", supported: paste`)
	})

	resetOpts()
}

func Test_main(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	dir := t.TempDir()
	metricsFile := filepath.Join(dir, "certs.prom")
	cfgFile := filepath.Join(dir, "certcheck.yml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("metrics:\n  file: "+metricsFile+"\n"), 0o600))

	resetOpts()
	os.Args = []string{"app", "-d", ts.Listener.Addr().String(), "-G", "-f", cfgFile, "--timeout=5s", "-v"}
	main()

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# TYPE check_certificates_expiration gauge")
	assert.Contains(t, string(data), `outcome="ok"`)
}
