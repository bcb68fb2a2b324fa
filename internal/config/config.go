package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the configuration file does not
// exist. The gateway runs with defaults in that case.
var ErrConfigNotFound = fmt.Errorf("config file not found")

const (
	// maxConfigSize is the maximum allowed configuration file size (1MB)
	maxConfigSize = 1 * 1024 * 1024

	// DefaultListenAddr is where the gateway serves its endpoints
	DefaultListenAddr = ":8080"

	// Default batch limits
	DefaultMaxBatchSize       = 50
	DefaultMaxRequestDuration = time.Hour

	// Default outbound client settings
	DefaultDialTimeout     = 30 * time.Second // Connection establishment timeout
	DefaultTCPKeepalive    = 30 * time.Second // OS-level TCP keepalive interval
	DefaultMaxIdleConns    = 100              // Pooled connections kept warm
	DefaultIdleConnTimeout = 90 * time.Second // Idle pooled connection lifetime

	// DefaultStatsInterval is how often the stats summary is logged
	DefaultStatsInterval = 1 * time.Minute

	// DefaultMDNSInstance is the service instance name advertised over mDNS
	DefaultMDNSInstance = "octoplex"
)

// Config represents the root configuration structure from .octoplex.yaml
type Config struct {
	Listen    string         `yaml:"listen,omitempty"`
	Limits    *LimitsSpec    `yaml:"limits,omitempty"`
	Client    *ClientSpec    `yaml:"client,omitempty"`
	AccessLog *AccessLogSpec `yaml:"accessLog,omitempty"`
	Stats     *StatsSpec     `yaml:"stats,omitempty"`
	MDNS      *MDNSSpec      `yaml:"mdns,omitempty"`
}

// LimitsSpec bounds what a single batch may ask for.
type LimitsSpec struct {
	MaxBatchSize int    `yaml:"maxBatchSize,omitempty"` // Largest accepted batch length
	MaxTimeout   string `yaml:"maxTimeout,omitempty"`   // e.g. "1h" - largest accepted batch budget
}

// ClientSpec tunes the outbound HTTP client.
type ClientSpec struct {
	DialTimeout        string `yaml:"dialTimeout,omitempty"`     // e.g. "30s"
	TCPKeepalive       string `yaml:"tcpKeepalive,omitempty"`    // e.g. "30s"
	IdleConnTimeout    string `yaml:"idleConnTimeout,omitempty"` // e.g. "90s"
	MaxIdleConns       int    `yaml:"maxIdleConns,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify,omitempty"` // Skip upstream TLS verification
	HTTP2              *bool  `yaml:"http2,omitempty"`              // Default: true
}

// AccessLogSpec configures per-batch access logging.
type AccessLogSpec struct {
	Enabled bool   `yaml:"enabled"`
	LogFile string `yaml:"logFile,omitempty"` // Output file (empty = stdout)
}

// StatsSpec configures periodic leg-latency summaries.
type StatsSpec struct {
	Enabled  bool   `yaml:"enabled"`
	Interval string `yaml:"interval,omitempty"` // e.g. "1m"
}

// MDNSSpec configures mDNS (multicast DNS) service advertisement.
// When enabled, the gateway endpoint is discoverable as _octoplex._tcp.
type MDNSSpec struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance,omitempty"` // Service instance name
}

// parseDurationOrDefault parses a duration string and returns the default
// if empty or invalid.
func parseDurationOrDefault(value string, defaultDur time.Duration) time.Duration {
	if value == "" {
		return defaultDur
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultDur
}

// GetListenAddr returns the listen address or default.
func (c *Config) GetListenAddr() string {
	if c.Listen != "" {
		return c.Listen
	}
	return DefaultListenAddr
}

// GetMaxBatchSize returns the maximum batch length or default.
func (c *Config) GetMaxBatchSize() int {
	if c.Limits != nil && c.Limits.MaxBatchSize > 0 {
		return c.Limits.MaxBatchSize
	}
	return DefaultMaxBatchSize
}

// GetMaxRequestDuration returns the largest accepted batch budget or default.
func (c *Config) GetMaxRequestDuration() time.Duration {
	if c.Limits == nil {
		return DefaultMaxRequestDuration
	}
	return parseDurationOrDefault(c.Limits.MaxTimeout, DefaultMaxRequestDuration)
}

// GetDialTimeout returns the outbound dial timeout or default.
func (c *Config) GetDialTimeout() time.Duration {
	if c.Client == nil {
		return DefaultDialTimeout
	}
	return parseDurationOrDefault(c.Client.DialTimeout, DefaultDialTimeout)
}

// GetTCPKeepalive returns the TCP keepalive interval or default.
func (c *Config) GetTCPKeepalive() time.Duration {
	if c.Client == nil {
		return DefaultTCPKeepalive
	}
	return parseDurationOrDefault(c.Client.TCPKeepalive, DefaultTCPKeepalive)
}

// GetIdleConnTimeout returns the idle connection lifetime or default.
func (c *Config) GetIdleConnTimeout() time.Duration {
	if c.Client == nil {
		return DefaultIdleConnTimeout
	}
	return parseDurationOrDefault(c.Client.IdleConnTimeout, DefaultIdleConnTimeout)
}

// GetMaxIdleConns returns the pooled connection count or default.
func (c *Config) GetMaxIdleConns() int {
	if c.Client != nil && c.Client.MaxIdleConns > 0 {
		return c.Client.MaxIdleConns
	}
	return DefaultMaxIdleConns
}

// IsInsecureSkipVerify returns whether upstream TLS verification is skipped.
func (c *Config) IsInsecureSkipVerify() bool {
	return c.Client != nil && c.Client.InsecureSkipVerify
}

// IsHTTP2Enabled returns whether the outbound client negotiates HTTP/2.
func (c *Config) IsHTTP2Enabled() bool {
	if c.Client == nil || c.Client.HTTP2 == nil {
		return true
	}
	return *c.Client.HTTP2
}

// IsAccessLogEnabled returns whether per-batch access logging is on.
func (c *Config) IsAccessLogEnabled() bool {
	return c.AccessLog != nil && c.AccessLog.Enabled
}

// GetAccessLogFile returns the access log file path; empty means stdout.
func (c *Config) GetAccessLogFile() string {
	if c.AccessLog == nil {
		return ""
	}
	return c.AccessLog.LogFile
}

// IsStatsEnabled returns whether periodic stats summaries are on.
func (c *Config) IsStatsEnabled() bool {
	return c.Stats != nil && c.Stats.Enabled
}

// GetStatsInterval returns the stats summary interval or default.
func (c *Config) GetStatsInterval() time.Duration {
	if c.Stats == nil {
		return DefaultStatsInterval
	}
	return parseDurationOrDefault(c.Stats.Interval, DefaultStatsInterval)
}

// IsMDNSEnabled returns whether mDNS service advertisement is enabled.
func (c *Config) IsMDNSEnabled() bool {
	return c.MDNS != nil && c.MDNS.Enabled
}

// GetMDNSInstance returns the advertised service instance name or default.
func (c *Config) GetMDNSInstance() string {
	if c.MDNS != nil && c.MDNS.Instance != "" {
		return c.MDNS.Instance
	}
	return DefaultMDNSInstance
}

// LoadConfig loads and parses the configuration file from the given path.
func LoadConfig(path string) (*Config, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if fileInfo.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML configuration data into a Config struct.
// It uses strict parsing that rejects unknown keys to catch typos.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration holding only defaults, used when
// no configuration file is present.
func DefaultConfig() *Config {
	return &Config{}
}
