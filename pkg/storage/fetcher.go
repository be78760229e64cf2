package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Fetcher materializes remote sources as local files the encoder can
// read, and pushes finished exports to remote destinations.
type Fetcher struct {
	s3 *S3Store
	// maxBytes caps a single fetched source; zero means unlimited
	maxBytes int64
}

// FetcherOption is a functional option for Fetcher
type FetcherOption func(*Fetcher)

// WithS3 enables the s3:// scheme
func WithS3(backend *S3Store) FetcherOption {
	return func(f *Fetcher) {
		f.s3 = backend
	}
}

// WithMaxBytes caps the size of a fetched source
func WithMaxBytes(limit int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxBytes = limit
	}
}

// NewFetcher creates a fetcher; by default only file:// and http(s)://
// sources work.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the source behind uri into destDir and returns the
// local path. http(s) URLs are vetted against the blocked networks
// before any connection is made.
func (f *Fetcher) Fetch(ctx context.Context, uri, destDir string) (string, error) {
	scheme, path, err := ParseURI(uri)
	if err != nil {
		return "", err
	}
	if !IsAllowedScheme(scheme) {
		return "", fmt.Errorf("unsupported storage scheme %q", scheme)
	}

	if scheme == "http" || scheme == "https" {
		if err := ValidateSourceURL(uri); err != nil {
			return "", err
		}
	}

	source, err := SourceFor(scheme, f.s3)
	if err != nil {
		return "", err
	}

	reader, err := source.Open(ctx, uri)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	name := filepath.Base(path)
	if name == "" || name == "." || name == "/" {
		name = "source"
	}
	localPath := filepath.Join(destDir, name)

	out, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to create local file: %w", err)
	}

	var src io.Reader = reader
	if f.maxBytes > 0 {
		src = io.LimitReader(reader, f.maxBytes+1)
	}

	written, err := io.Copy(out, src)
	if err != nil {
		out.Close()
		os.Remove(localPath)
		return "", fmt.Errorf("failed to download source: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	if f.maxBytes > 0 && written > f.maxBytes {
		os.Remove(localPath)
		return "", fmt.Errorf("source exceeds the %d byte limit", f.maxBytes)
	}

	return localPath, nil
}

// Upload pushes a finished export to a remote destination
func (f *Fetcher) Upload(ctx context.Context, localPath, destURI string) error {
	scheme, _, err := ParseURI(destURI)
	if err != nil {
		return err
	}

	sink, err := SinkFor(scheme, f.s3)
	if err != nil {
		return err
	}

	in, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer in.Close()

	return sink.Store(ctx, destURI, in)
}
