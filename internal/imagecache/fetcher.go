package imagecache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/PatrickWalther/wordle-timer-go/internal/vision"
)

var ErrBadURL = errors.New("url has no file name")

// Fetcher downloads images into a flat directory, naming each file after the
// last path segment of its URL.
type Fetcher struct {
	dir    string
	client *http.Client
}

func NewFetcher(dir string, client *http.Client) (*Fetcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image cache directory: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{dir: dir, client: client}, nil
}

// PathFor returns the cache location for rawURL.
func (f *Fetcher) PathFor(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("%s: %w", rawURL, ErrBadURL)
	}
	return filepath.Join(f.dir, name), nil
}

// Download fetches rawURL, overwriting any cached copy.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (string, error) {
	p, _, err := f.download(ctx, rawURL)
	return p, err
}

// Cached returns the cached file for rawURL, downloading it only if absent.
func (f *Fetcher) Cached(ctx context.Context, rawURL string) (string, error) {
	p, err := f.PathFor(rawURL)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(p); err == nil && info.Size() > 0 {
		slog.Debug("Using cached image", "path", p)
		return p, nil
	}
	return f.Download(ctx, rawURL)
}

// Image downloads rawURL and decodes it. Decoding uses the downloaded bytes,
// so a concurrent download of a same-named file cannot interfere.
func (f *Fetcher) Image(ctx context.Context, rawURL string) (*vision.Image, error) {
	_, data, err := f.download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return vision.Decode(bytes.NewReader(data))
}

// CachedImage is Cached followed by a decode of the cached file. A file that
// does not decode is removed so a later call downloads it again.
func (f *Fetcher) CachedImage(ctx context.Context, rawURL string) (*vision.Image, error) {
	p, err := f.Cached(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	img, err := vision.Load(p)
	if errors.Is(err, vision.ErrDecode) {
		if rmErr := os.Remove(p); rmErr != nil {
			slog.Warn("Failed to remove undecodable image", "path", p, "error", rmErr)
		}
	}
	return img, err
}

func (f *Fetcher) download(ctx context.Context, rawURL string) (string, []byte, error) {
	dest, err := f.PathFor(rawURL)
	if err != nil {
		return "", nil, err
	}

	slog.Info("Downloading image", "url", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read response: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, ".download-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", nil, fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", nil, fmt.Errorf("failed to store image: %w", err)
	}

	slog.Info("Downloaded image", "path", dest, "bytes", len(data))
	return dest, data, nil
}
