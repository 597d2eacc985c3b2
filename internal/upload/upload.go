// Package upload publishes finished meshes to pre-signed object storage URLs.
package upload

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/vk/qr3d/internal/ctxlog"
)

// PresignedPUT uploads a file with a single PUT request, as S3 and
// compatible stores expect for pre-signed URLs.
type PresignedPUT struct {
	client *http.Client
}

// New returns an uploader using client, or http.DefaultClient when nil.
func New(client *http.Client) *PresignedPUT {
	if client == nil {
		client = http.DefaultClient
	}
	return &PresignedPUT{client: client}
}

// Upload sends the file at path to url.
func (u *PresignedPUT) Upload(ctx context.Context, path, url string) error {
	logger := ctxlog.FromContext(ctx).With("action", "upload")

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open source file '%s': %w", path, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file stats for '%s': %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, file)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	contentType := ContentType(path)
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = stat.Size()

	logger.Info("⬆️ Uploading mesh", "source", path, "size", stat.Size(), "contentType", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload failed with status: %s", resp.Status)
	}

	logger.Info("✅ Upload complete", "status", resp.Status)
	return nil
}

// meshTypes covers the export formats the system mime table lacks.
var meshTypes = map[string]string{
	".stl": "model/stl",
	".3mf": "model/3mf",
	".off": "application/octet-stream",
	".amf": "application/x-amf",
}

// ContentType picks the Content-Type header for path: known mesh formats
// first, then the system table, then content sniffing.
func ContentType(path string) string {
	ext := filepath.Ext(path)
	if t, ok := meshTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	if m, err := mimetype.DetectFile(path); err == nil {
		return m.String()
	}
	return "application/octet-stream"
}
