package config

import "time"

// Config represents the complete trigger-gw configuration.
type Config struct {
	Service         ServiceConfig  `yaml:"service"`
	Gateway         GatewayConfig  `yaml:"gateway"`
	Store           StoreConfig    `yaml:"store"`
	Notifier        NotifierConfig `yaml:"notifier"`
	UpstreamTimeout time.Duration  `yaml:"upstream_timeout"`
	Audit           AuditConfig    `yaml:"audit,omitempty"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// GatewayConfig defines the HTTP listener settings.
type GatewayConfig struct {
	Listen string `yaml:"listen"`

	// MaxBodySize is the maximum request body size, e.g. "1MB" or "2048576".
	MaxBodySize string `yaml:"max_body_size,omitempty"`
}

// StoreConfig names the repository whose Actions variables hold the
// credential pool and allow-list blobs.
type StoreConfig struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Token string `yaml:"token"`
}

// NotifierConfig names the commit the build tooling watches for comments.
// Token defaults to the store token when empty.
type NotifierConfig struct {
	Owner  string `yaml:"owner"`
	Repo   string `yaml:"repo"`
	Commit string `yaml:"commit"`
	Token  string `yaml:"token,omitempty"`
}

// AuditConfig defines the optional delivery audit log.
type AuditConfig struct {
	// Path is the SQLite database location; empty disables auditing.
	Path string `yaml:"path"`
}

// ChecksumManifest is the parsed .checksums file.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "trigger-gw",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Gateway: GatewayConfig{
			Listen: "127.0.0.1:8170",
		},
		UpstreamTimeout: 10 * time.Second,
	}
}
