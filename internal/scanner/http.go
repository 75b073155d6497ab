package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/filedepot/filedepot/internal/domain/file"
)

// ObjectStreamer supplies the bytes of a stored object to the scanner.
type ObjectStreamer interface {
	StreamObject(ctx context.Context, key file.StorageKey) (io.ReadCloser, error)
}

// HTTPScanner streams objects to a clamav-rest style endpoint.
type HTTPScanner struct {
	endpoint string
	blobs    ObjectStreamer
	client   *http.Client
}

func NewHTTPScanner(endpoint string, blobs ObjectStreamer) *HTTPScanner {
	return &HTTPScanner{
		endpoint: endpoint,
		blobs:    blobs,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type scanResponse struct {
	Infected   bool   `json:"infected"`
	ThreatName string `json:"threat_name"`
}

func (s *HTTPScanner) ScanObject(ctx context.Context, key file.StorageKey) (Result, error) {
	body, err := s.blobs.StreamObject(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("failed to stream object for scan: %w", err)
	}
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build scan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Object-Key", key.String())

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("scan request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("scanner returned status %d", resp.StatusCode)
	}

	var parsed scanResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("failed to decode scan response: %w", err)
	}

	return Result{
		Clean:      !parsed.Infected,
		Infected:   parsed.Infected,
		ThreatName: parsed.ThreatName,
	}, nil
}
