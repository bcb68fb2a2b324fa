package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_ValidateConfig(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		config        *Config
		name          string
		errorContains []string
		expectErrors  bool
	}{
		{
			name:   "empty config is valid",
			config: DefaultConfig(),
		},
		{
			name: "full valid config",
			config: &Config{
				Listen: "127.0.0.1:8080",
				Limits: &LimitsSpec{MaxBatchSize: 10, MaxTimeout: "5m"},
				Client: &ClientSpec{DialTimeout: "10s", MaxIdleConns: 50},
				Stats:  &StatsSpec{Enabled: true, Interval: "1m"},
				MDNS:   &MDNSSpec{Enabled: true, Instance: "octoplex-dev"},
			},
		},
		{
			name:          "nil config",
			config:        nil,
			expectErrors:  true,
			errorContains: []string{"Configuration is nil"},
		},
		{
			name:          "listen without port",
			config:        &Config{Listen: "localhost"},
			expectErrors:  true,
			errorContains: []string{"Invalid listen address"},
		},
		{
			name:          "listen port out of range",
			config:        &Config{Listen: ":70000"},
			expectErrors:  true,
			errorContains: []string{"Invalid listen port"},
		},
		{
			name:          "negative batch size",
			config:        &Config{Limits: &LimitsSpec{MaxBatchSize: -1}},
			expectErrors:  true,
			errorContains: []string{"Invalid maxBatchSize"},
		},
		{
			name:          "unparseable max timeout",
			config:        &Config{Limits: &LimitsSpec{MaxTimeout: "soon"}},
			expectErrors:  true,
			errorContains: []string{"Invalid maxTimeout"},
		},
		{
			name:          "non-positive max timeout",
			config:        &Config{Limits: &LimitsSpec{MaxTimeout: "0s"}},
			expectErrors:  true,
			errorContains: []string{"must be positive"},
		},
		{
			name:          "bad client duration",
			config:        &Config{Client: &ClientSpec{DialTimeout: "fast"}},
			expectErrors:  true,
			errorContains: []string{"client.dialTimeout"},
		},
		{
			name:          "negative idle conns",
			config:        &Config{Client: &ClientSpec{MaxIdleConns: -5}},
			expectErrors:  true,
			errorContains: []string{"Invalid maxIdleConns"},
		},
		{
			name:          "bad stats interval",
			config:        &Config{Stats: &StatsSpec{Enabled: true, Interval: "often"}},
			expectErrors:  true,
			errorContains: []string{"Invalid stats interval"},
		},
		{
			name:          "invalid mdns instance",
			config:        &Config{MDNS: &MDNSSpec{Enabled: true, Instance: "-bad-"}},
			expectErrors:  true,
			errorContains: []string{"Invalid mDNS instance name"},
		},
		{
			name:   "mdns instance ignored when disabled",
			config: &Config{MDNS: &MDNSSpec{Enabled: false, Instance: "-bad-"}},
		},
		{
			name: "multiple errors reported together",
			config: &Config{
				Listen: "nope",
				Limits: &LimitsSpec{MaxBatchSize: -1},
			},
			expectErrors:  true,
			errorContains: []string{"Invalid listen address", "Invalid maxBatchSize"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validator.ValidateConfig(tt.config)

			if !tt.expectErrors {
				assert.Empty(t, errs)
				return
			}

			assert.NotEmpty(t, errs)
			formatted := FormatValidationErrors(errs)
			for _, want := range tt.errorContains {
				assert.Contains(t, formatted, want)
			}
		})
	}
}

func TestIsValidPort(t *testing.T) {
	assert.True(t, IsValidPort(1))
	assert.True(t, IsValidPort(8080))
	assert.True(t, IsValidPort(65535))
	assert.False(t, IsValidPort(0))
	assert.False(t, IsValidPort(-1))
	assert.False(t, IsValidPort(65536))
}

func TestIsValidHostname(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"octoplex", true},
		{"gateway-1", true},
		{"A1", true},
		{"", false},
		{"-leading", false},
		{"trailing-", false},
		{"has.dot", false},
		{"has_underscore", false},
		{strings.Repeat("a", 64), false},
		{strings.Repeat("a", 63), true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, isValidHostname(tt.name), "hostname %q", tt.name)
	}
}

func TestFormatValidationErrors_Empty(t *testing.T) {
	assert.Equal(t, "", FormatValidationErrors(nil))
}
