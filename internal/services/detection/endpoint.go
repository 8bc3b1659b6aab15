package detection

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// parseEndpoint normalizes a detector address to a gRPC target and picks transport
// credentials. Bare host:port uses plaintext unless the port is a TLS port; resolver
// targets (passthrough, dns, unix) are used as given.
func parseEndpoint(endpoint string) (string, credentials.TransportCredentials, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", nil, fmt.Errorf("empty detector endpoint")
	}

	for _, scheme := range []string{"passthrough:", "dns:", "unix:"} {
		if strings.HasPrefix(endpoint, scheme) {
			return endpoint, insecure.NewCredentials(), nil
		}
	}

	if !strings.Contains(endpoint, "://") {
		scheme := "http"
		if _, port, ok := strings.Cut(endpoint, ":"); ok {
			if p, err := strconv.Atoi(port); err == nil && (p == 443 || p == 8443 || p == 9443) {
				scheme = "https"
			}
		} else {
			scheme = "https"
		}
		endpoint = scheme + "://" + endpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}

	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			host = u.Hostname() + ":443"
		case "http":
			host = u.Hostname() + ":80"
		}
	}

	switch u.Scheme {
	case "https":
		return host, credentials.NewTLS(&tls.Config{ServerName: u.Hostname()}), nil
	case "http":
		return host, insecure.NewCredentials(), nil
	default:
		return "", nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
}
