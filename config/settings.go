package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// PipelineSettings carries every knob the import/split/report pipeline reads.
// Algorithms receive it explicitly; only LoadPipelineSettings touches the env.
type PipelineSettings struct {
	CSVSeparator  rune
	CSVEncoding   string
	OutputDir     string
	UploadDir     string
	ReportTitle   string
	SplitLockTTL  time.Duration
	SplitLockKey  string
	ArchiveTarget string
	GCSBucket     string
}

const (
	CSVEncodingUTF8    = "utf-8"
	CSVEncodingLatin1  = "latin1"
	CSVEncodingWindows = "windows-1252"

	ArchiveLocal = "local"
	ArchiveGCS   = "gcs"
)

// DefaultPipelineSettings matches the historical deployment: ';' separated
// UTF-8 CSVs, ./output for generated documents and ./uploads for originals.
func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		CSVSeparator:  ';',
		CSVEncoding:   CSVEncodingUTF8,
		OutputDir:     "./output",
		UploadDir:     "./uploads",
		ReportTitle:   "Relatório de Boletos",
		SplitLockTTL:  120 * time.Second,
		SplitLockKey:  "default",
		ArchiveTarget: ArchiveLocal,
	}
}

func LoadPipelineSettings() PipelineSettings {
	s := DefaultPipelineSettings()
	if v := strings.TrimSpace(os.Getenv("CSV_SEPARATOR")); v != "" {
		if r, size := utf8.DecodeRuneInString(v); r != utf8.RuneError && size == len(v) {
			s.CSVSeparator = r
		}
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("CSV_ENCODING"))); v != "" {
		s.CSVEncoding = v
	}
	if v := strings.TrimSpace(os.Getenv("OUTPUT_DIR")); v != "" {
		s.OutputDir = v
	}
	if v := strings.TrimSpace(os.Getenv("UPLOAD_DIR")); v != "" {
		s.UploadDir = v
	}
	if v := strings.TrimSpace(os.Getenv("REPORT_TITLE")); v != "" {
		s.ReportTitle = v
	}
	if n := intFromEnv("SPLIT_LOCK_TTL_SECONDS", 0); n > 0 {
		s.SplitLockTTL = time.Duration(n) * time.Second
	}
	if v := strings.TrimSpace(os.Getenv("SPLIT_LOCK_KEY")); v != "" {
		s.SplitLockKey = v
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("ARCHIVE_PROVIDER"))); v != "" {
		s.ArchiveTarget = v
	}
	s.GCSBucket = strings.TrimSpace(os.Getenv("GCS_BUCKET"))
	return s
}

// BillingDocumentDir is where split pages are written.
func (s PipelineSettings) BillingDocumentDir() string {
	return filepath.Join(s.OutputDir, "boletos")
}

// OriginalsDir is where archived source documents land for the local provider.
func (s PipelineSettings) OriginalsDir() string {
	return filepath.Join(s.UploadDir, "originals")
}
