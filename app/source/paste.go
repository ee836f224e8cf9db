package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-pkgz/lgr"
)

// Paste fetches the domain list from a paste-service backend. The service
// responds with a JSON object carrying the list under the "domains" key.
// All three credentials are required and verified before any network call.
type Paste struct {
	URL     string
	UserKey string
	DevKey  string
	PasteID string

	Client http.Client
	Logger lgr.L
}

// Fetch posts the credentials to the paste service and decodes the returned
// domain list
func (p *Paste) Fetch(ctx context.Context) ([]string, error) {
	if p.UserKey == "" || p.DevKey == "" || p.PasteID == "" {
		return nil, errors.New("paste backend requires user_key, dev_key and paste_id")
	}
	if p.URL == "" {
		return nil, errors.New("paste backend url not set")
	}

	form := url.Values{
		"api_user_key":  {p.UserKey},
		"api_dev_key":   {p.DevKey},
		"api_paste_key": {p.PasteID},
		"api_option":    {"show_paste"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("can't make paste request to %s: %w", p.URL, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paste request failed: %s: %w", p.URL, err)
	}
	defer func() {
		if e := resp.Body.Close(); e != nil {
			p.logf("[WARN] paste response close failed: %s: %s", p.URL, e)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paste request failed: %s: status %d", p.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("paste read failed: %s: %w", p.URL, err)
	}

	var paste struct {
		Domains []string `json:"domains"`
	}
	if err := json.Unmarshal(body, &paste); err != nil {
		return nil, fmt.Errorf("can't parse paste response: %s: %w", p.URL, err)
	}

	p.logf("[DEBUG] fetched %d domains from %s", len(paste.Domains), p.URL)
	return paste.Domains, nil
}

func (p *Paste) logf(format string, args ...interface{}) {
	logger := p.Logger
	if logger == nil {
		logger = lgr.NoOp
	}
	logger.Logf(format, args...)
}
