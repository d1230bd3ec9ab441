package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":5000"`

	// BaseURL is the externally reachable base URL of the application.
	// Used for generating served-file URLs for exported CSVs.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:5000"`
}
