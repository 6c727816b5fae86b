package models

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/boletos_backend/config"
	"github.com/mmdatafocus/boletos_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// SplitRecordResult is the per-record entry of a split call.
type SplitRecordResult struct {
	RecordId   int    `json:"boletoId"`
	OutputPath string `json:"outputPath"`
	Succeeded  bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// SplitOutcome lists every record the split attempted, in page order.
type SplitOutcome struct {
	TotalPages int                 `json:"total"`
	Processed  int                 `json:"processados"`
	Records    []SplitRecordResult `json:"detalhes"`
	SourcePath string              `json:"arquivo_original"`
}

func (o *SplitOutcome) add(r SplitRecordResult) {
	o.Records = append(o.Records, r)
	if r.Succeeded {
		o.Processed++
	}
}

// BillingDocumentSplitter assigns page i of a source document to the i-th
// record of ActiveRecordsInStableOrder.
type BillingDocumentSplitter struct {
	Pager    DocumentPager
	Settings config.PipelineSettings
}

func NewBillingDocumentSplitter(settings config.PipelineSettings) *BillingDocumentSplitter {
	return &BillingDocumentSplitter{Pager: PdfcpuPager{}, Settings: settings}
}

// SplitBillingDocument splits sourcePath with the default PDF pager.
func SplitBillingDocument(ctx context.Context, db *gorm.DB, sourcePath string, settings config.PipelineSettings) (*SplitOutcome, error) {
	return NewBillingDocumentSplitter(settings).Split(ctx, db, sourcePath)
}

// BillingDocumentPath is the deterministic output location of a record's page.
func BillingDocumentPath(settings config.PipelineSettings, recordId int) string {
	return filepath.Join(settings.BillingDocumentDir(), fmt.Sprintf("%d.pdf", recordId))
}

// Split runs the positional split.
//
// The page count must equal the active record count; that check happens
// before anything is written, so a mismatch has no side effects. After it,
// each (write page, update record) step is independent: a failure at step k
// keeps steps 0..k-1, skips the rest and returns the partial outcome with the
// error. Output names are keyed by record id and overwritten, so a failed
// call can simply be re-run.
func (s *BillingDocumentSplitter) Split(ctx context.Context, db *gorm.DB, sourcePath string) (outcome *SplitOutcome, err error) {
	ctx, correlationId := utils.EnsureCorrelationId(ctx)
	ctx, span := tracer.Start(ctx, "SplitBillingDocument")
	defer span.End()

	logger := config.GetLogger()
	defer func() {
		if err != nil {
			recordSpanError(span, err)
			config.LogError(logger, "models", "SplitBillingDocument", sourcePath, correlationId, err)
		}
	}()

	release, err := s.acquireDatasetLock(ctx, logger)
	if err != nil {
		return nil, err
	}
	defer release()

	source, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, utils.IOError("read source document", err)
	}
	totalPages, err := s.Pager.PageCount(source)
	if err != nil {
		return nil, utils.IOError("count source document pages", err)
	}

	records, err := ActiveRecordsInStableOrder(ctx, db)
	if err != nil {
		return nil, err
	}
	if len(records) != totalPages {
		return nil, utils.Integrityf("active billing records (%d) do not match source document pages (%d)", len(records), totalPages)
	}
	span.SetAttributes(attribute.Int("pages", totalPages))

	expectedIds := make([]int, len(records))
	for i, r := range records {
		expectedIds[i] = r.ID
	}

	outcome = &SplitOutcome{TotalPages: totalPages, Records: []SplitRecordResult{}, SourcePath: sourcePath}
	outputDir := s.Settings.BillingDocumentDir()
	if totalPages > 0 {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return outcome, utils.IOError("create output dir", err)
		}
	}

	for i, record := range records {
		outputPath := BillingDocumentPath(s.Settings, record.ID)
		if stepErr := s.splitPage(ctx, db, source, i, record.ID, outputPath); stepErr != nil {
			outcome.add(SplitRecordResult{RecordId: record.ID, OutputPath: outputPath, Error: stepErr.Error()})
			return outcome, fmt.Errorf("split page %d for billing record %d: %w", i, record.ID, stepErr)
		}
		outcome.add(SplitRecordResult{RecordId: record.ID, OutputPath: outputPath, Succeeded: true})
	}

	// Nothing serializes record writers against a split. Re-reading the
	// ordering at least reports a correspondence that moved under us.
	currentIds, err := activeRecordIds(ctx, db)
	if err != nil {
		return outcome, err
	}
	if !slices.Equal(expectedIds, currentIds) {
		return outcome, utils.Integrityf("active billing records changed while splitting (%d before, %d after)", len(expectedIds), len(currentIds))
	}

	logger.WithFields(logrus.Fields{
		"module":         "models",
		"funcName":       "SplitBillingDocument",
		"correlation_id": correlationId,
		"user":           operator(ctx),
		"pages":          totalPages,
	}).Info("billing document split")

	if _, pubErr := config.PublishPipelineEvent(ctx, config.EventSplitCompleted, correlationId, outcome); pubErr != nil {
		config.LogError(logger, "models", "SplitBillingDocument", "PublishPipelineEvent", correlationId, pubErr)
	}
	return outcome, nil
}

func (s *BillingDocumentSplitter) splitPage(ctx context.Context, db *gorm.DB, source []byte, page int, recordId int, outputPath string) error {
	var buf bytes.Buffer
	if err := s.Pager.ExtractPage(source, page, &buf); err != nil {
		return utils.IOError("extract page", err)
	}
	if err := writeFileReplacing(outputPath, buf.Bytes()); err != nil {
		return err
	}
	return SetDocumentPath(ctx, db, recordId, outputPath)
}

// writeFileReplacing writes through a temp file and renames over path, so a
// reader never sees a half-written page.
func writeFileReplacing(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return utils.IOError("create temp page file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return utils.IOError("write page file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return utils.IOError("close page file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return utils.IOError("replace page file", err)
	}
	return nil
}

// acquireDatasetLock serializes splits of one dataset through redis.
// A lock held elsewhere is a Conflict; a missing or failing redis only logs,
// since single-instance deployments run without it.
func (s *BillingDocumentSplitter) acquireDatasetLock(ctx context.Context, logger *logrus.Logger) (func(), error) {
	noop := func() {}
	redisLock := config.GetRedisLock()
	datasetId, _ := utils.GetDatasetIdFromContext(ctx)
	if datasetId == "" {
		datasetId = s.Settings.SplitLockKey
	}
	key := fmt.Sprintf("lock:split:%s", datasetId)

	if redisLock == nil {
		logger.WithFields(logrus.Fields{
			"field":   "SplitBillingDocument",
			"dataset": datasetId,
		}).Warn("redis lock not ready; proceeding without split lock")
		return noop, nil
	}

	lock, err := redisLock.Obtain(ctx, key, s.Settings.SplitLockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, utils.Conflictf("a split of dataset %q is already running", datasetId)
	}
	if err != nil {
		logger.WithFields(logrus.Fields{
			"field":   "SplitBillingDocument",
			"dataset": datasetId,
		}).Warn("error obtaining redis lock; proceeding without split lock: " + err.Error())
		return noop, nil
	}
	return func() {
		if releaseErr := lock.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			logger.WithFields(logrus.Fields{
				"field":   "SplitBillingDocument",
				"dataset": datasetId,
			}).Warn("failed to release redis lock: " + releaseErr.Error())
		}
	}, nil
}
