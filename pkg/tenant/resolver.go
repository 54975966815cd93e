package tenant

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

const (
	// DefaultHeader is the HTTP header read by NewHeaderResolver when none is given.
	DefaultHeader = "X-Tenant-ID"

	// MaxTokenLength bounds tokens taken from URLs and HTTP headers.
	MaxTokenLength = 63
)

// tokenPattern ensures URL and DNS safe tokens: alphanumeric start, allows hyphens.
var tokenPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)

// Resolver extracts a raw tenant token from an inbound carrier.
// An empty token means the carrier has none; that is not an error.
type Resolver[C any] func(carrier C) (string, error)

// HTTPResolver resolves tokens from HTTP requests.
type HTTPResolver = Resolver[*http.Request]

func isValidToken(token string) bool {
	return token != "" && len(token) <= MaxTokenLength && tokenPattern.MatchString(token)
}

// LookupHeader returns the value stored under key, or "" when absent.
// Values are returned byte-for-byte.
func LookupHeader(headers map[string]string, key string) string {
	if headers == nil {
		return ""
	}
	return headers[key]
}

// NewMapResolver resolves tokens from a plain header map.
func NewMapResolver(key string) Resolver[map[string]string] {
	return func(headers map[string]string) (string, error) {
		return LookupHeader(headers, key), nil
	}
}

// NewHeaderResolver extracts the tenant token from an HTTP header.
// Defaults to DefaultHeader if headerName is empty.
func NewHeaderResolver(headerName string) HTTPResolver {
	if headerName == "" {
		headerName = DefaultHeader
	}

	return func(req *http.Request) (string, error) {
		value := strings.TrimSpace(req.Header.Get(headerName))
		if value == "" {
			return "", nil
		}
		if !isValidToken(value) {
			return "", fmt.Errorf("%w: header value '%s'", ErrInvalidIdentifier, value)
		}
		return value, nil
	}
}

// NewSubdomainResolver extracts the token from the first subdomain, optionally
// stripping suffix. Returns empty string for the base domain.
func NewSubdomainResolver(suffix string) HTTPResolver {
	return func(req *http.Request) (string, error) {
		host := req.Host
		if idx := strings.LastIndex(host, ":"); idx != -1 {
			host = host[:idx]
		}

		// subdomain.domain.tld at minimum
		if strings.Count(host, ".") < 2 {
			return "", nil
		}

		if suffix != "" && strings.HasSuffix(host, suffix) && len(host) > len(suffix) {
			host = host[:len(host)-len(suffix)]
		}

		parts := strings.Split(host, ".")
		sub := parts[0]
		if sub == "www" {
			if len(parts) < 2 {
				return "", nil
			}
			sub = parts[1]
		}

		sub = strings.TrimSpace(sub)
		if sub == "" {
			return "", nil
		}
		if !isValidToken(sub) {
			return "", fmt.Errorf("%w: subdomain '%s'", ErrInvalidIdentifier, sub)
		}
		return sub, nil
	}
}

// NewPathResolver extracts the token from a URL path segment at a 1-based
// position. Position 2 extracts from /tenants/{id}/dashboard.
func NewPathResolver(position int) HTTPResolver {
	return func(req *http.Request) (string, error) {
		if position < 1 {
			return "", fmt.Errorf("invalid path position: %d", position)
		}

		path := strings.Trim(req.URL.Path, "/")
		if path == "" {
			return "", nil
		}

		parts := strings.Split(path, "/")
		if position > len(parts) {
			return "", nil
		}

		value := strings.TrimSpace(parts[position-1])
		if value == "" {
			return "", nil
		}
		if !isValidToken(value) {
			return "", fmt.Errorf("%w: path segment '%s'", ErrInvalidIdentifier, value)
		}
		return value, nil
	}
}

// NewQueryResolver extracts the token from a URL query parameter.
func NewQueryResolver(param string) HTTPResolver {
	return func(req *http.Request) (string, error) {
		value := strings.TrimSpace(req.URL.Query().Get(param))
		if value == "" {
			return "", nil
		}
		if !isValidToken(value) {
			return "", fmt.Errorf("%w: query parameter '%s'", ErrInvalidIdentifier, value)
		}
		return value, nil
	}
}

// NewCompositeResolver tries resolvers in order and returns the first
// non-empty token. Errors are reported only when no resolver produced a token.
func NewCompositeResolver[C any](resolvers ...Resolver[C]) Resolver[C] {
	return func(carrier C) (string, error) {
		var errs []error

		for _, resolve := range resolvers {
			if resolve == nil {
				continue
			}
			token, err := resolve(carrier)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if token != "" {
				return token, nil
			}
		}

		if len(errs) > 0 {
			return "", fmt.Errorf("composite resolver errors: %w", errors.Join(errs...))
		}
		return "", nil
	}
}
