package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client mints short-lived signed URLs against a Supabase storage project.
// Deliverable files live in private buckets; the public catalog only ever
// hands out token-gated redirects, never direct object URLs.
type Client struct {
	baseURL    string
	serviceKey string
	bucket     string
	ttl        time.Duration
	httpClient *http.Client
}

func NewClient(baseURL, serviceKey, defaultBucket string, ttl time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     defaultBucket,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// ParsePublicURL splits a Supabase public-object URL from this project
// into its bucket and object path. Returns ok=false for anything else.
func (c *Client) ParsePublicURL(fileURL string) (bucket, path string, ok bool) {
	prefix := c.baseURL + "/storage/v1/object/public/"
	if c.baseURL == "" || !strings.HasPrefix(fileURL, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(fileURL, prefix)
	bucket, path, found := strings.Cut(rest, "/")
	if !found || bucket == "" || path == "" {
		return "", "", false
	}
	return bucket, path, true
}

type signRequest struct {
	ExpiresIn int `json:"expiresIn"`
}

type signResponse struct {
	SignedURL string `json:"signedURL"`
}

// SignURL asks the storage API for a time-boxed URL to one object.
func (c *Client) SignURL(ctx context.Context, bucket, path string) (string, error) {
	body, err := json.Marshal(signRequest{ExpiresIn: int(c.ttl.Seconds())})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", c.baseURL, bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage sign request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("storage sign returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result signResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return c.baseURL + "/storage/v1" + result.SignedURL, nil
}

// ResolveDownloadURL turns a catalog file reference into the URL the
// download redirect should point at:
//
//   - Supabase public-object URLs from this project are re-signed with the
//     configured TTL so the link cannot be shared past its window.
//   - Bare storage paths are signed against the default bucket.
//   - Any other absolute URL is returned unchanged.
func (c *Client) ResolveDownloadURL(ctx context.Context, fileURL string) (string, error) {
	if bucket, path, ok := c.ParsePublicURL(fileURL); ok {
		return c.SignURL(ctx, bucket, path)
	}
	if !strings.HasPrefix(fileURL, "http://") && !strings.HasPrefix(fileURL, "https://") {
		return c.SignURL(ctx, c.bucket, strings.TrimPrefix(fileURL, "/"))
	}
	return fileURL, nil
}
