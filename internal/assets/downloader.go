package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Downloader fetches avatar/cover images and stores them on local disk.
// Failures are logged and swallowed: asset resolution must never abort a
// surrounding sync.
type Downloader struct {
	http   *http.Client
	dir    string
	logger *zap.Logger
}

// NewDownloader creates an asset downloader writing into dir
func NewDownloader(dir string, logger *zap.Logger) *Downloader {
	return &Downloader{
		http:   &http.Client{Timeout: 30 * time.Second},
		dir:    dir,
		logger: logger,
	}
}

// DownloadAndAttach fetches the image at srcURL and writes it under the
// configured directory as filename (extension inferred from the URL when
// filename has none). When the download fails and placeholderURL is set, the
// placeholder is written instead. Returns the stored path and whether
// anything was written.
func (d *Downloader) DownloadAndAttach(ctx context.Context, srcURL, filename, placeholderURL string) (string, bool) {
	if srcURL == "" || filename == "" {
		return "", false
	}

	if filepath.Ext(filename) == "" {
		filename += extFromURL(srcURL)
	}
	target := filepath.Join(d.dir, filename)

	err := d.fetchTo(ctx, srcURL, target)
	if err == nil {
		return target, true
	}
	d.logger.Warn("Failed to download asset",
		zap.String("url", srcURL),
		zap.Error(err))

	if placeholderURL == "" {
		return "", false
	}
	if err := d.fetchTo(ctx, placeholderURL, target); err != nil {
		d.logger.Warn("Failed to download placeholder asset",
			zap.String("url", placeholderURL),
			zap.Error(err))
		return "", false
	}
	return target, true
}

func (d *Downloader) fetchTo(ctx context.Context, srcURL, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create asset dir: %w", err)
	}

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create asset file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("failed to write asset file: %w", err)
	}
	return nil
}

func extFromURL(srcURL string) string {
	parsed, err := url.Parse(srcURL)
	if err != nil {
		return ".jpg"
	}
	ext := path.Ext(parsed.Path)
	if ext == "" {
		return ".jpg"
	}
	return ext
}
