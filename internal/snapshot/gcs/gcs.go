// Package gcs archives page snapshots in a Google Cloud Storage bucket.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/scrape"
	"github.com/readyrobots/leadengine/internal/snapshot"
)

// Store writes snapshots to a configured bucket.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
}

func New(client *storage.Client, bucket, prefix string) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// Save uploads the page body and returns a gs:// URI.
func (s *Store) Save(ctx context.Context, target leads.ScrapeTarget, page scrape.FetchResponse, at time.Time) (string, error) {
	path := snapshot.ObjectPath(target, at)
	if s.prefix != "" {
		path = s.prefix + "/" + path
	}
	writer := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	writer.ContentType = "text/html"

	if _, err := io.Copy(writer, bytes.NewReader(page.Body)); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, path), nil
}
