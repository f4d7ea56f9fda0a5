package esbackend

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// NormalizeEndpoint turns a loosely specified endpoint into a full URL the
// client accepts. A missing scheme defaults to https; a missing port
// defaults to 443 for https and 9200 for http unless defaultPort overrides
// it. A port already present in the URL always wins.
func NormalizeEndpoint(endpoint, defaultPort string) (string, error) {
	endpoint = strings.TrimSuffix(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return "", fmt.Errorf("esbackend: endpoint must not be empty")
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("esbackend: parse endpoint: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("esbackend: endpoint %q has no host", endpoint)
	}

	if u.Port() == "" {
		port := defaultPort
		if port == "" {
			if u.Scheme == "https" {
				port = "443"
			} else {
				port = "9200"
			}
		}
		u.Host = net.JoinHostPort(u.Hostname(), port)
	}

	return u.String(), nil
}
