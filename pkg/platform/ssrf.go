// Package platform provides security utilities for SSRF protection
package platform

import (
	"fmt"
	"net/url"
	"regexp"
)

// validURLPattern matches safe URL schemes (http/https only)
var validURLPattern = regexp.MustCompile(`^https?://`)

// privateIPPatterns matches private/internal network addresses.
// Note: localhost is explicitly allowed for local development/testing
var privateIPPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^10\.`),                          // 10.0.0.0/8
	regexp.MustCompile(`^172\.(1[6-9]|2[0-9]|3[0-1])\.`), // 172.16.0.0/12
	regexp.MustCompile(`^192\.168\.`),                    // 192.168.0.0/16
	regexp.MustCompile(`^169\.254\.169\.254$`),           // cloud metadata endpoint
	regexp.MustCompile(`^::1`),                           // IPv6 loopback, also ::1%zone
	regexp.MustCompile(`^fc00:`),                         // fc00::/7
	regexp.MustCompile(`^fe80:`),                         // fe80::/10
}

// validateBaseURL checks the scheme and host of the API base URL. Private
// ranges are rejected only when blockPrivate is set, since GitHub Enterprise
// commonly lives on an internal network.
func validateBaseURL(baseURL string, blockPrivate bool) error {
	if !validURLPattern.MatchString(baseURL) {
		return fmt.Errorf("invalid URL scheme: only http and https are allowed")
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	hostname := parsedURL.Hostname()
	if hostname == "" {
		return fmt.Errorf("URL has no hostname")
	}

	if !blockPrivate {
		return nil
	}

	for _, pattern := range privateIPPatterns {
		if pattern.MatchString(hostname) {
			return fmt.Errorf("SSRF protection: cannot connect to private/internal network: %s", hostname)
		}
	}

	return nil
}
