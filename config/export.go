package config

import "strings"

// ExportConfig contains CSV export configuration.
type ExportConfig struct {
	// Path is the directory exported CSV files are written to.
	Path string `env:"EXPORT_PATH" envDefault:"./exports"`

	// BaseURL prefixes served-file URLs. Derived from the HTTP base URL
	// when unset.
	BaseURL string `env:"EXPORT_BASE_URL" envDefault:""`
}

// Sanitize derives the served-file base URL from the application base URL
// when none is configured.
func (e *ExportConfig) Sanitize(appBaseURL string) {
	if e.BaseURL == "" && appBaseURL != "" {
		e.BaseURL = strings.TrimRight(appBaseURL, "/") + "/files"
	}
}
