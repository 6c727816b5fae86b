package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/mmdatafocus/boletos_backend/config"
	"google.golang.org/api/option"
)

// Archiver keeps a copy of a submitted source document and returns a
// reference (path or gs:// URL) the caller can store.
type Archiver interface {
	Archive(ctx context.Context, sourcePath string) (string, error)
}

// NewArchiver picks the provider named by settings.ArchiveTarget.
func NewArchiver(settings config.PipelineSettings) (Archiver, error) {
	switch settings.ArchiveTarget {
	case "", config.ArchiveLocal:
		return &LocalArchiver{Dir: settings.OriginalsDir()}, nil
	case config.ArchiveGCS:
		if settings.GCSBucket == "" {
			return nil, Validationf("GCS_BUCKET is required for the gcs archive provider")
		}
		return &GCSArchiver{Bucket: settings.GCSBucket, Prefix: "originals"}, nil
	default:
		return nil, Validationf("unknown archive provider %q", settings.ArchiveTarget)
	}
}

func archiveObjectName(sourcePath string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(sourcePath))
	if ext == "" {
		ext = ".pdf"
	}
	return fmt.Sprintf("boletos_original_%d%s", now.UnixNano(), ext)
}

type LocalArchiver struct {
	Dir string
	Now func() time.Time
}

func (a *LocalArchiver) Archive(ctx context.Context, sourcePath string) (string, error) {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return "", IOError("create archive dir", err)
	}
	src, err := os.Open(sourcePath)
	if err != nil {
		return "", IOError("open source document", err)
	}
	defer src.Close()

	target := filepath.Join(a.Dir, archiveObjectName(sourcePath, now()))
	dst, err := os.Create(target)
	if err != nil {
		return "", IOError("create archive file", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", IOError("copy source document", err)
	}
	if err := dst.Close(); err != nil {
		return "", IOError("close archive file", err)
	}
	return target, nil
}

type GCSArchiver struct {
	Bucket string
	Prefix string
}

// getGoogleClient prefers ADC; GCS_CREDENTIALS_JSON overrides it (local runs).
func getGoogleClient(ctx context.Context) (*storage.Client, error) {
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		return storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
	}
	return storage.NewClient(ctx)
}

func (a *GCSArchiver) Archive(ctx context.Context, sourcePath string) (string, error) {
	src, err := os.Open(sourcePath)
	if err != nil {
		return "", IOError("open source document", err)
	}
	defer src.Close()

	client, err := getGoogleClient(ctx)
	if err != nil {
		return "", IOError("gcs client", err)
	}
	defer client.Close()

	if _, err := client.Bucket(a.Bucket).Attrs(ctx); err != nil {
		return "", IOError(fmt.Sprintf("gcs bucket %q not found or not accessible", a.Bucket), err)
	}

	objectName := archiveObjectName(sourcePath, time.Now())
	if a.Prefix != "" {
		objectName = a.Prefix + "/" + objectName
	}
	wc := client.Bucket(a.Bucket).Object(objectName).NewWriter(ctx)
	wc.ContentType = "application/pdf"
	if _, err := io.Copy(wc, src); err != nil {
		wc.Close()
		return "", IOError("upload source document", err)
	}
	if err := wc.Close(); err != nil {
		return "", IOError("finalize gcs upload", err)
	}
	return fmt.Sprintf("gs://%s/%s", a.Bucket, objectName), nil
}
