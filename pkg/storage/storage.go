// Package storage resolves the URIs the editor accepts: file:// for
// uploaded sources and local delivery, http(s):// for remote source
// downloads, and s3:// for offsite delivery.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// AllowedSchemes is the whitelist of accepted URI schemes
var AllowedSchemes = []string{"https", "http", "s3", "file"}

// Source opens remote objects for reading. Every backend can act as a
// source.
type Source interface {
	// Open returns a reader over the object at the given URI
	Open(ctx context.Context, uri string) (io.ReadCloser, error)

	// Exists reports whether an object exists at the given URI
	Exists(ctx context.Context, uri string) (bool, error)
}

// Sink receives finished export artifacts. Only disk and S3 backends
// can act as sinks; plain HTTP cannot take uploads.
type Sink interface {
	// Store writes the artifact to the given URI
	Store(ctx context.Context, uri string, data io.Reader) error
}

// ParseURI splits a URI into scheme and path
func ParseURI(uri string) (scheme string, path string, err error) {
	if uri == "" {
		return "", "", fmt.Errorf("URI cannot be empty")
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid URI: %w", err)
	}

	if parsed.Scheme == "" {
		return "", "", fmt.Errorf("URI must have a scheme (e.g., https://, s3://)")
	}

	// file:// URIs carry the full path directly
	if parsed.Scheme == "file" {
		return parsed.Scheme, parsed.Path, nil
	}

	// Everything else combines host and path
	path = parsed.Host
	if parsed.Path != "" {
		path = path + parsed.Path
	}

	return parsed.Scheme, path, nil
}

// IsAllowedScheme checks a URI scheme against the whitelist
func IsAllowedScheme(scheme string) bool {
	for _, allowed := range AllowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// SourceFor returns the backend that reads a scheme. The S3 backend is
// optional; pass nil when the deployment has no AWS credentials.
func SourceFor(scheme string, s3 *S3Store) (Source, error) {
	switch scheme {
	case "file":
		return NewDiskStore(), nil
	case "http", "https":
		return NewHTTPSource(), nil
	case "s3":
		if s3 == nil {
			return nil, fmt.Errorf("s3 storage is not configured")
		}
		return s3, nil
	default:
		return nil, fmt.Errorf("unsupported storage scheme %q", scheme)
	}
}

// SinkFor returns the backend that delivers an artifact to a scheme
func SinkFor(scheme string, s3 *S3Store) (Sink, error) {
	switch scheme {
	case "file":
		return NewDiskStore(), nil
	case "s3":
		if s3 == nil {
			return nil, fmt.Errorf("s3 storage is not configured")
		}
		return s3, nil
	case "http", "https":
		return nil, fmt.Errorf("exports cannot be delivered over %s", scheme)
	default:
		return nil, fmt.Errorf("unsupported storage scheme %q", scheme)
	}
}
