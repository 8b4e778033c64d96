package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	appLog "campuscal/internal/log"
)

// Feed is one ICS endpoint, already expanded for a particular year.
type Feed struct {
	// ID names the feed in logs, e.g. "ics-2024".
	ID  string
	URL string
}

// Result is the body of one fetched feed.
type Result struct {
	Feed      Feed
	Body      []byte
	FromCache bool // served from the disk cache (304 or upstream failure)
}

// cacheMeta is the HTTP validator state stored next to a cached body.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads ICS feeds, revalidating with ETag / Last-Modified and
// falling back to the last good body on disk when the upstream fails.
type Fetcher struct {
	client   *http.Client
	cacheDir string
	username string
	password string
}

// NewFetcher creates a Fetcher caching under cacheDir. An empty cacheDir
// disables the disk cache.
func NewFetcher(cacheDir string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		cacheDir: cacheDir,
	}
}

// WithBasicAuth sends credentials with every request.
func (f *Fetcher) WithBasicAuth(username, password string) *Fetcher {
	f.username, f.password = username, password
	return f
}

// Fetch downloads feed. Upstream errors are masked by a cached body when one
// exists; only a feed that has never been fetched successfully fails.
func (f *Fetcher) Fetch(ctx context.Context, feed Feed) (Result, error) {
	if feed.URL == "" {
		return Result{}, errors.New("ics: feed URL is empty")
	}

	var (
		meta   cacheMeta
		cached []byte
		dir    string
	)
	if f.cacheDir != "" {
		dir = f.cachePath(feed.URL)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return Result{}, fmt.Errorf("ics: cache dir: %w", err)
		}
		meta, _ = loadMeta(dir)
		cached, _ = os.ReadFile(filepath.Join(dir, "body.ics"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return Result{}, err
	}
	if len(cached) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}
	if f.username != "" {
		req.SetBasicAuth(f.username, f.password)
	}

	appLog.Debug("ics fetch start", "id", feed.ID, "url", redactURL(feed.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			appLog.Error("ics fetch network error, using cached body", err, "id", feed.ID, "url", redactURL(feed.URL))
			return Result{Feed: feed, Body: cached, FromCache: true}, nil
		}
		return Result{}, fmt.Errorf("ics: fetch %s: %w", feed.ID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return Result{}, fmt.Errorf("ics: read %s: %w", feed.ID, err)
		}
		if dir != "" {
			m := cacheMeta{
				URL:          feed.URL,
				ETag:         resp.Header.Get("ETag"),
				LastModified: resp.Header.Get("Last-Modified"),
			}
			if err := saveCache(dir, m, body); err != nil {
				appLog.Error("ics cache save failed", err, "id", feed.ID)
			}
		}
		appLog.Info("ics fetch success", "id", feed.ID, "url", redactURL(feed.URL), "bytes", len(body))
		return Result{Feed: feed, Body: body}, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return Result{}, fmt.Errorf("ics: %s: 304 without a cached body", feed.ID)
		}
		appLog.Debug("ics not modified", "id", feed.ID)
		return Result{Feed: feed, Body: cached, FromCache: true}, nil

	default:
		status := errors.New(resp.Status)
		if len(cached) > 0 {
			appLog.Error("ics fetch non-OK, using cached body", status, "id", feed.ID, "status", resp.StatusCode)
			return Result{Feed: feed, Body: cached, FromCache: true}, nil
		}
		return Result{}, fmt.Errorf("ics: fetch %s: %w", feed.ID, status)
	}
}

func (f *Fetcher) cachePath(u string) string {
	sum := sha256.Sum256([]byte(u))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadMeta(dir string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

// saveCache writes the body before the metadata so meta never points at a
// missing body.
func saveCache(dir string, meta cacheMeta, body []byte) error {
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// redactURL keeps scheme and host only; feed paths and queries often carry
// private tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
