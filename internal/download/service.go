package download

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

type Service struct {
	source MediaSource
}

func NewService(source MediaSource) *Service {
	return &Service{
		source: source,
	}
}

// Save streams a processed result into dir and returns the written path and size
func (s *Service) Save(ctx context.Context, mediaURL, dir string) (string, int64, error) {
	stream, err := s.source.OpenMedia(ctx, mediaURL, "")
	if err != nil {
		return "", 0, fmt.Errorf("failed to open media: %w", err)
	}
	defer stream.Body.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	target := filepath.Join(dir, FileName(mediaURL))
	dst, err := os.Create(target)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create output file: %w", err)
	}

	n, err := io.Copy(dst, stream.Body)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(target)
		return "", 0, fmt.Errorf("failed to write %s: %w", target, err)
	}

	return target, n, nil
}

// StreamZipArchive writes every processed result into one ZIP archive.
// Results that cannot be fetched are skipped; the count of added entries is returned.
func (s *Service) StreamZipArchive(ctx context.Context, writer io.Writer, mediaURLs []string) (int, error) {
	zipWriter := zip.NewWriter(writer)

	added := 0
	seen := make(map[string]int)
	for _, mediaURL := range mediaURLs {
		name := uniqueName(FileName(mediaURL), seen)
		if err := s.addToZip(ctx, zipWriter, mediaURL, name); err != nil {
			log.WithError(err).WithField("url", mediaURL).Warn("[Download] skipping result")
			continue
		}
		added++
	}

	if err := zipWriter.Close(); err != nil {
		return added, fmt.Errorf("failed to finish ZIP archive: %w", err)
	}
	return added, nil
}

func (s *Service) addToZip(ctx context.Context, zipWriter *zip.Writer, mediaURL, name string) error {
	stream, err := s.source.OpenMedia(ctx, mediaURL, "")
	if err != nil {
		return fmt.Errorf("failed to open media: %w", err)
	}
	defer stream.Body.Close()

	entry, err := zipWriter.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create ZIP entry: %w", err)
	}

	if _, err := io.Copy(entry, stream.Body); err != nil {
		return fmt.Errorf("failed to write media to ZIP: %w", err)
	}
	return nil
}

// FileName picks a local name for a processed-media URL. The detection
// backend addresses results as /api/result_image?path=<temp file>, so the
// path parameter wins over the URL path.
func FileName(mediaURL string) string {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return "result"
	}

	candidate := u.Query().Get("path")
	if candidate == "" {
		candidate = u.Path
	}
	// Temp paths from a Windows backend use backslashes.
	candidate = strings.ReplaceAll(candidate, `\`, "/")
	name := path.Base(candidate)
	if name == "." || name == "/" || name == "" {
		return "result"
	}
	return name
}

func uniqueName(name string, seen map[string]int) string {
	seen[name]++
	if seen[name] == 1 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), seen[name], ext)
}
