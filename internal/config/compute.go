package config

import "time"

// Compute configures the remote callable-function endpoint used for
// ranking/evaluation computation, topic extraction and crowdsource
// question evaluation.
type Compute struct {
	BaseURL string        `yaml:"baseUrl"`
	APIKey  string        `yaml:"-"`
	Timeout time.Duration `yaml:"timeout"`
}

// IsEnabled reports whether a remote endpoint is configured.
func (c Compute) IsEnabled() bool {
	return c.BaseURL != ""
}

// Endpoint returns the URL for a callable function by name.
func (c Compute) Endpoint(name string) string {
	return c.BaseURL + "/" + name
}
