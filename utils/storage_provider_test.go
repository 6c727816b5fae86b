package utils

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmdatafocus/boletos_backend/config"
)

func TestLocalArchiverCopiesSource(t *testing.T) {
	src := filepath.Join(t.TempDir(), "lote.PDF")
	if err := os.WriteFile(src, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	dir := t.TempDir()
	archiver := &LocalArchiver{Dir: dir, Now: func() time.Time { return time.Unix(0, 42) }}

	ref, err := archiver.Archive(context.Background(), src)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if want := filepath.Join(dir, "boletos_original_42.pdf"); ref != want {
		t.Fatalf("ref = %s, want %s", ref, want)
	}
	data, err := os.ReadFile(ref)
	if err != nil || string(data) != "%PDF-1.4" {
		t.Fatalf("archived content = %q, %v", data, err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source removed: %v", err)
	}
}

func TestLocalArchiverMissingSource(t *testing.T) {
	archiver := &LocalArchiver{Dir: t.TempDir()}
	_, err := archiver.Archive(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	if !errors.Is(err, ErrIO) {
		t.Fatalf("err = %v, want io error", err)
	}
}

func TestNewArchiver(t *testing.T) {
	settings := config.DefaultPipelineSettings()
	a, err := NewArchiver(settings)
	if err != nil {
		t.Fatalf("local: %v", err)
	}
	if local, ok := a.(*LocalArchiver); !ok || local.Dir != settings.OriginalsDir() {
		t.Fatalf("archiver = %#v", a)
	}

	settings.ArchiveTarget = config.ArchiveGCS
	if _, err := NewArchiver(settings); !errors.Is(err, ErrValidation) {
		t.Fatalf("gcs without bucket err = %v, want validation", err)
	}
	settings.GCSBucket = "boletos-originais"
	if a, err := NewArchiver(settings); err != nil {
		t.Fatalf("gcs: %v", err)
	} else if g, ok := a.(*GCSArchiver); !ok || g.Bucket != "boletos-originais" {
		t.Fatalf("archiver = %#v", a)
	}

	settings.ArchiveTarget = "s3"
	if _, err := NewArchiver(settings); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown provider err = %v, want validation", err)
	}
}
