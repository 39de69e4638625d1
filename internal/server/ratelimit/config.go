package ratelimit

import (
	"strings"

	"golang.org/x/time/rate"

	"github.com/jonathan/talent-pipeline/internal/config"
)

// EndpointConfig overrides the default rate for requests matching Path and
// Method. A Path ending in "/" matches by prefix.
type EndpointConfig struct {
	Path   string
	Method string
	RPS    float64
	Burst  int
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	RPS             float64
	Burst           int
	Whitelist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// FromConfig builds limiter settings from the application config.
func FromConfig(c config.RateLimiterConfig) *Config {
	return &Config{
		Enabled:         c.Enabled,
		RPS:             c.RPS,
		Burst:           c.Burst,
		Whitelist:       parseIPList(c.Whitelist),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the stricter limits for expensive endpoints.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Bulk moves fan out into one transaction per id
		{Path: "/job-candidates/bulk-move", Method: "POST", RPS: 1, Burst: 3},

		// The dashboard runs every report
		{Path: "/analytics/dashboard", Method: "GET", RPS: 2, Burst: 5},
	}
}

// Limit converts requests per second into a rate.Limit. Zero or less means
// unlimited.
func (e EndpointConfig) Limit() rate.Limit {
	if e.RPS <= 0 {
		return rate.Inf
	}
	return rate.Limit(e.RPS)
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}
	return result
}
