// Package photo loads the item picture from disk or the web and writes
// enhanced versions back out.
package photo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultDownloadTimeout is the default timeout for image downloads
	DefaultDownloadTimeout = 30 * time.Second
	// DefaultMaxImageSize is the default maximum image size (10MB)
	DefaultMaxImageSize = 10 * 1024 * 1024
)

var ErrNotImage = errors.New("not an image")

// Loader reads images from local paths or http(s) URLs.
type Loader struct {
	client  *resty.Client
	maxSize int64
}

// NewLoader creates a Loader with default settings.
func NewLoader() *Loader {
	return &Loader{
		client:  resty.New().SetDebug(false).SetTimeout(DefaultDownloadTimeout),
		maxSize: DefaultMaxImageSize,
	}
}

// Load returns the image bytes at src, which is either a file path or a URL.
func (l *Loader) Load(ctx context.Context, src string) ([]byte, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, errors.New("empty image source")
	}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return l.download(ctx, src)
	}
	return l.readFile(src)
}

func (l *Loader) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}
	if info.Size() > l.maxSize {
		return nil, fmt.Errorf("image too large: %d bytes exceeds limit of %d bytes", info.Size(), l.maxSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if !IsImage(data) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotImage)
	}
	return data, nil
}

func (l *Loader) download(ctx context.Context, url string) ([]byte, error) {
	log.Info().Str("url", url).Msg("downloading image")

	res, err := l.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	body := res.RawBody()
	defer body.Close()

	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", res.StatusCode())
	}

	contentType := res.Header().Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("invalid content type: expected image/*, got %s", contentType)
	}

	if res.RawResponse.ContentLength > l.maxSize {
		return nil, fmt.Errorf("image too large: %d bytes exceeds limit of %d bytes", res.RawResponse.ContentLength, l.maxSize)
	}

	// LimitReader enforces the size even if Content-Length is missing or wrong
	data, err := io.ReadAll(io.LimitReader(body, l.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > l.maxSize {
		return nil, fmt.Errorf("image too large: exceeds limit of %d bytes", l.maxSize)
	}

	return data, nil
}

// IsImage sniffs data for a known image signature.
func IsImage(data []byte) bool {
	return strings.HasPrefix(http.DetectContentType(data), "image/")
}

// SaveEnhanced writes an enhanced image as <dir>/<id>-enhanced.png and
// returns the path.
func SaveEnhanced(dir, id string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("no image data")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	path := filepath.Join(dir, id+"-enhanced.png")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}
