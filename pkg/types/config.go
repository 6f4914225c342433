package types

import "time"

// HTTPConfig holds shared HTTP settings used by collaborators that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "natal-engine/0.1"). Nominatim rejects requests without one.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries bounds retries on 429/503 responses (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// EphemerisConfig selects the ephemeris body table.
type EphemerisConfig struct {
	// DataFile is a YAML body table. Empty uses the embedded default.
	DataFile string `json:"data_file" yaml:"data_file"`
}

// EngineConfig holds settings for the position engine.
type EngineConfig struct {
	// Parallel evaluates catalog bodies concurrently. Output order is unaffected.
	Parallel bool `json:"parallel" yaml:"parallel"`

	// Timeout bounds a single computation (0 = none).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// GeocodeConfig holds settings for the place-name lookup.
type GeocodeConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the Nominatim search endpoint.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Email is sent as a contact address per the Nominatim usage policy.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// RequestsPerSecond caps the request rate (default 1).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// ReportFormat selects the report serialization.
type ReportFormat string

const (
	FormatText ReportFormat = "text"
	FormatYAML ReportFormat = "yaml"
	FormatJSON ReportFormat = "json"
)

// ReportConfig holds settings for report rendering.
type ReportConfig struct {
	// OutDir is the directory reports are written to (default "reports").
	OutDir string `json:"out_dir" yaml:"out_dir"`

	// Format selects text, yaml, or json.
	Format ReportFormat `json:"format" yaml:"format"`

	// Language selects body and sign names: "en" or "es".
	Language string `json:"language" yaml:"language"`
}

// MailConfig holds SMTP settings for report delivery.
type MailConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	From     string `json:"from" yaml:"from"`
	Username string `json:"username" yaml:"username"`

	// Password is normally loaded from .secrets/smtp-password.
	Password string `json:"-" yaml:"-"`
}

// Enabled reports whether enough settings are present to send mail.
func (c MailConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// StoreConfig holds settings for the chart archive.
type StoreConfig struct {
	// Dir contains charts.db.
	Dir string `json:"dir" yaml:"dir"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Addr           string        `json:"addr" yaml:"addr"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `json:"level" yaml:"level"`

	// Format is json or console.
	Format string `json:"format" yaml:"format"`
}

// AppConfig groups all component configurations.
type AppConfig struct {
	Ephemeris EphemerisConfig `json:"ephemeris" yaml:"ephemeris"`
	Engine    EngineConfig    `json:"engine" yaml:"engine"`
	Geocode   GeocodeConfig   `json:"geocode" yaml:"geocode"`
	Report    ReportConfig    `json:"report" yaml:"report"`
	Mail      MailConfig      `json:"mail" yaml:"mail"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Log       LogConfig       `json:"log" yaml:"log"`
}
