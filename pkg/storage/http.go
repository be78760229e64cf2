package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSource downloads remote source videos over HTTP(S). It only
// implements the Source side; exports never leave the service over
// plain HTTP.
type HTTPSource struct {
	client *http.Client
}

// NewHTTPSource creates an HTTP download backend
func NewHTTPSource() *HTTPSource {
	return &HTTPSource{
		// Headers must arrive promptly; the body may stream for as
		// long as a large source takes.
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
	}
}

func (hs *HTTPSource) request(ctx context.Context, method, uri string) (*http.Response, error) {
	scheme, _, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("HTTP source only supports http:// and https:// URIs, got %s://", scheme)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return hs.client.Do(req)
}

// Open downloads a remote source and returns its body
func (hs *HTTPSource) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	resp, err := hs.request(ctx, http.MethodGet, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP request failed with status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// Exists sends a HEAD request for the source
func (hs *HTTPSource) Exists(ctx context.Context, uri string) (bool, error) {
	resp, err := hs.request(ctx, http.MethodHead, uri)
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}
