package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	MinPort = 1
	MaxPort = 65535

	// mdnsInstanceMaxLength is the maximum length of an mDNS instance
	// name, matching the DNS label limit (RFC 1123).
	mdnsInstanceMaxLength = 63
)

// IsValidPort returns true if the port number is within the valid range (1-65535).
func IsValidPort(port int) bool {
	return port >= MinPort && port <= MaxPort
}

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
}

// Validator validates configuration files.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateConfig validates the entire configuration and returns all
// errors found. An all-defaults configuration is valid.
func (v *Validator) ValidateConfig(cfg *Config) []ValidationError {
	if cfg == nil {
		return []ValidationError{{
			Field:   "config",
			Message: "Configuration is nil",
		}}
	}

	var errs []ValidationError

	errs = append(errs, v.validateListen(cfg)...)
	errs = append(errs, v.validateLimits(cfg)...)
	errs = append(errs, v.validateClient(cfg)...)
	errs = append(errs, v.validateStats(cfg)...)
	errs = append(errs, v.validateMDNS(cfg)...)

	return errs
}

// validateListen checks the listen address is a usable host:port.
func (v *Validator) validateListen(cfg *Config) []ValidationError {
	if cfg.Listen == "" {
		return nil
	}

	host, portStr, err := net.SplitHostPort(cfg.Listen)
	if err != nil {
		return []ValidationError{{
			Field:   "listen",
			Message: fmt.Sprintf("Invalid listen address '%s': %v", cfg.Listen, err),
		}}
	}
	_ = host // empty host means all interfaces

	port, err := strconv.Atoi(portStr)
	if err != nil || !IsValidPort(port) {
		return []ValidationError{{
			Field:   "listen",
			Message: fmt.Sprintf("Invalid listen port '%s' (must be between %d and %d)", portStr, MinPort, MaxPort),
		}}
	}

	return nil
}

// validateLimits checks the batch limits.
func (v *Validator) validateLimits(cfg *Config) []ValidationError {
	if cfg.Limits == nil {
		return nil
	}

	var errs []ValidationError

	if cfg.Limits.MaxBatchSize < 0 {
		errs = append(errs, ValidationError{
			Field:   "limits.maxBatchSize",
			Message: fmt.Sprintf("Invalid maxBatchSize %d (must be non-negative; 0 means default)", cfg.Limits.MaxBatchSize),
		})
	}

	if cfg.Limits.MaxTimeout != "" {
		d, err := time.ParseDuration(cfg.Limits.MaxTimeout)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   "limits.maxTimeout",
				Message: fmt.Sprintf("Invalid maxTimeout '%s': %v", cfg.Limits.MaxTimeout, err),
			})
		} else if d <= 0 {
			errs = append(errs, ValidationError{
				Field:   "limits.maxTimeout",
				Message: fmt.Sprintf("Invalid maxTimeout '%s' (must be positive)", cfg.Limits.MaxTimeout),
			})
		}
	}

	return errs
}

// validateClient checks the outbound client settings.
func (v *Validator) validateClient(cfg *Config) []ValidationError {
	if cfg.Client == nil {
		return nil
	}

	var errs []ValidationError

	durations := []struct {
		field string
		value string
	}{
		{"client.dialTimeout", cfg.Client.DialTimeout},
		{"client.tcpKeepalive", cfg.Client.TCPKeepalive},
		{"client.idleConnTimeout", cfg.Client.IdleConnTimeout},
	}

	for _, d := range durations {
		if err := ValidateDuration(d.value, d.field); err != nil {
			errs = append(errs, ValidationError{Field: d.field, Message: err.Error()})
		}
	}

	if cfg.Client.MaxIdleConns < 0 {
		errs = append(errs, ValidationError{
			Field:   "client.maxIdleConns",
			Message: fmt.Sprintf("Invalid maxIdleConns %d (must be non-negative; 0 means default)", cfg.Client.MaxIdleConns),
		})
	}

	return errs
}

// validateStats checks the stats summary settings.
func (v *Validator) validateStats(cfg *Config) []ValidationError {
	if cfg.Stats == nil || cfg.Stats.Interval == "" {
		return nil
	}

	d, err := time.ParseDuration(cfg.Stats.Interval)
	if err != nil {
		return []ValidationError{{
			Field:   "stats.interval",
			Message: fmt.Sprintf("Invalid stats interval '%s': %v", cfg.Stats.Interval, err),
		}}
	}
	if d <= 0 {
		return []ValidationError{{
			Field:   "stats.interval",
			Message: fmt.Sprintf("Invalid stats interval '%s' (must be positive)", cfg.Stats.Interval),
		}}
	}

	return nil
}

// validateMDNS validates the mDNS advertisement settings when enabled.
// The instance name must be a valid hostname label as it becomes part of
// the advertised service name.
func (v *Validator) validateMDNS(cfg *Config) []ValidationError {
	if !cfg.IsMDNSEnabled() {
		return nil
	}

	instance := cfg.GetMDNSInstance()
	if !isValidHostname(instance) {
		return []ValidationError{{
			Field:   "mdns.instance",
			Message: fmt.Sprintf("Invalid mDNS instance name '%s' (must be a valid RFC 1123 hostname label)", instance),
		}}
	}

	return nil
}

// FormatValidationErrors formats validation errors into a human-readable string.
func FormatValidationErrors(errs []ValidationError) string {
	if len(errs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\nConfiguration Validation Errors:\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	for i, err := range errs {
		sb.WriteString(fmt.Sprintf("%d. %s\n\n", i+1, err.Message))
	}

	return sb.String()
}

// isValidHostname checks if a string is a valid RFC 1123 hostname label.
// It must start and end with an alphanumeric character and contain only
// alphanumerics and hyphens, 1-63 characters long.
func isValidHostname(name string) bool {
	if len(name) == 0 || len(name) > mdnsInstanceMaxLength {
		return false
	}

	if !isAlphanumeric(name[0]) || !isAlphanumeric(name[len(name)-1]) {
		return false
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		if !isAlphanumeric(c) && c != '-' {
			return false
		}
	}

	return true
}

// isAlphanumeric returns true if the character is a letter or digit.
func isAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// ValidateDuration validates that a string is a valid duration. Empty
// durations are allowed and fall back to defaults.
func ValidateDuration(duration, name string) error {
	if duration == "" {
		return nil
	}
	_, err := time.ParseDuration(duration)
	if err != nil {
		return fmt.Errorf("invalid %s '%s': %v", name, duration, err)
	}
	return nil
}
