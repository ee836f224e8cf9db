// Package config provides the file-based configuration for the application.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parameters represents the whole configuration, i.e. everything not passed
// on the command line: the metrics file location and backend credentials.
type Parameters struct {
	Metrics struct {
		File string `yaml:"file"`
	} `yaml:"metrics"`

	Backends struct {
		Paste Paste `yaml:"paste"`
	} `yaml:"backends"`

	fileName string `yaml:"-"`
}

// Paste holds the paste-service backend location and credentials
type Paste struct {
	URL     string `yaml:"url"`
	UserKey string `yaml:"user_key"`
	DevKey  string `yaml:"dev_key"`
	PasteID string `yaml:"paste_id"`
}

// New creates a new Parameters from the given file. Backend credentials can
// be overridden from the environment, env values win over the file.
func New(fname string) (*Parameters, error) {
	p := &Parameters{fileName: fname}
	data, err := os.ReadFile(fname) // nolint gosec
	if err != nil {
		return nil, fmt.Errorf("can't read config %s: %w", fname, err)
	}
	if err = yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", fname, err)
	}

	if v := os.Getenv("PASTE_USER_KEY"); v != "" {
		p.Backends.Paste.UserKey = v
	}
	if v := os.Getenv("PASTE_DEV_KEY"); v != "" {
		p.Backends.Paste.DevKey = v
	}
	if v := os.Getenv("PASTE_ID"); v != "" {
		p.Backends.Paste.PasteID = v
	}
	return p, nil
}

func (p *Parameters) String() string {
	return fmt.Sprintf("config file: %q, metrics file: %q, paste backend: %q", p.fileName, p.Metrics.File, p.Backends.Paste.URL)
}
