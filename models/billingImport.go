package models

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mmdatafocus/boletos_backend/config"
	"github.com/mmdatafocus/boletos_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"gorm.io/gorm"
)

// Positional columns of the billing CSV: payer;external unit;amount;payment line.
const (
	csvColPayerName = iota
	csvColExternalUnit
	csvColAmount
	csvColPaymentLine
	csvColumnCount
)

// CSVRow is one raw CSV record with its 1-based line number.
type CSVRow struct {
	Line   int
	Fields []string
}

// ImportOutcome is the batch outcome of one import call. Errors is never nil.
type ImportOutcome struct {
	Total    int      `json:"total"`
	Imported int      `json:"importados"`
	Failed   int      `json:"falhas"`
	Errors   []string `json:"erros"`
}

func (o *ImportOutcome) fail(msg string) {
	o.Failed++
	o.Errors = append(o.Errors, msg)
}

func csvDecoder(encoding string) (transform.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", config.CSVEncodingUTF8, "utf8":
		return nil, nil
	case config.CSVEncodingLatin1, "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case config.CSVEncodingWindows, "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	default:
		return nil, utils.Validationf("unsupported csv encoding %q", encoding)
	}
}

// ParseBillingCSV reads every record of a header-less billing CSV.
// Field counts are not enforced here; a short or long row fails on its own
// during import instead of aborting the batch.
func ParseBillingCSV(r io.Reader, settings config.PipelineSettings) ([]CSVRow, error) {
	decoder, err := csvDecoder(settings.CSVEncoding)
	if err != nil {
		return nil, err
	}
	if decoder != nil {
		r = transform.NewReader(r, decoder)
	}

	reader := csv.NewReader(r)
	reader.Comma = settings.CSVSeparator
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	var rows []CSVRow
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, utils.NewError(utils.ErrValidation, "malformed billing csv", err)
			}
			return nil, utils.IOError("read billing csv", err)
		}
		line, _ := reader.FieldPos(0)
		if len(rows) == 0 && len(fields) > 0 {
			fields[0] = strings.TrimPrefix(fields[0], "\ufeff")
		}
		rows = append(rows, CSVRow{Line: line, Fields: fields})
	}
	return rows, nil
}

// toBillingInput converts the row's fields; LotId is resolved later.
func (row CSVRow) toBillingInput() (*NewBillingRecord, string, error) {
	if len(row.Fields) != csvColumnCount {
		return nil, "", utils.Validationf("expected %d fields, got %d", csvColumnCount, len(row.Fields))
	}
	amount, err := utils.ParseCommaDecimal(row.Fields[csvColAmount])
	if err != nil {
		return nil, "", err
	}
	input := &NewBillingRecord{
		PayerName:   row.Fields[csvColPayerName],
		Amount:      amount,
		PaymentLine: row.Fields[csvColPaymentLine],
	}
	return input, strings.TrimSpace(row.Fields[csvColExternalUnit]), nil
}

// ImportBillingCSV imports the CSV stored at path. A file that cannot be
// opened or parsed fails the call before the store is touched.
func ImportBillingCSV(ctx context.Context, db *gorm.DB, path string, settings config.PipelineSettings) (*ImportOutcome, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.IOError("open billing csv", err)
	}
	rows, err := ParseBillingCSV(bytes.NewReader(content), settings)
	if err != nil {
		return nil, err
	}
	return ImportBillingRows(ctx, db, rows)
}

// ImportBillingRows resolves every row to a lot through its external unit and
// inserts it, all inside one transaction.
//
// Failure handling is deliberately asymmetric:
//   - row-level problems (bad fields, unmapped unit, a rejected insert) are
//     counted in the outcome and the batch continues. Each insert runs under
//     its own savepoint so a rejected row leaves the transaction usable;
//   - anything outside that per-row handling (begin, a failing mapping lookup,
//     savepoint management, commit) rolls the whole batch back, including rows
//     whose insert already succeeded, and returns an ErrImport error.
func ImportBillingRows(ctx context.Context, db *gorm.DB, rows []CSVRow) (outcome *ImportOutcome, err error) {
	ctx, correlationId := utils.EnsureCorrelationId(ctx)
	ctx, span := tracer.Start(ctx, "ImportBillingRows")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(rows)))

	logger := config.GetLogger()
	defer func() {
		if err != nil {
			recordSpanError(span, err)
			config.LogError(logger, "models", "ImportBillingRows", "batch rolled back", correlationId, err)
		}
	}()

	result := &ImportOutcome{Total: len(rows), Errors: []string{}}

	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, utils.NewError(utils.ErrImport, "begin import transaction", tx.Error)
	}
	// always rollback on early-return or panic; a no-op once committed
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	for i, row := range rows {
		input, externalUnit, rowErr := row.toBillingInput()
		if rowErr != nil {
			result.fail(fmt.Sprintf("line %d: %v", row.Line, rowErr))
			continue
		}

		mapping, lookupErr := FindLotMapping(ctx, tx, externalUnit)
		if lookupErr != nil {
			return nil, utils.NewError(utils.ErrImport, fmt.Sprintf("line %d: resolve external unit %q", row.Line, externalUnit), lookupErr)
		}
		if mapping == nil {
			result.fail(fmt.Sprintf("line %d: no lot mapped for external unit %q", row.Line, externalUnit))
			continue
		}

		input.LotId = mapping.InternalLotId
		if rowErr := input.validate(); rowErr != nil {
			result.fail(fmt.Sprintf("line %d: %v", row.Line, rowErr))
			continue
		}

		savepoint := fmt.Sprintf("billing_row_%d", i)
		if spErr := tx.SavePoint(savepoint).Error; spErr != nil {
			return nil, utils.NewError(utils.ErrImport, "create row savepoint", spErr)
		}
		if _, insertErr := insertBillingRecord(ctx, tx, input); insertErr != nil {
			if rbErr := tx.RollbackTo(savepoint).Error; rbErr != nil {
				return nil, utils.NewError(utils.ErrImport, "rollback row savepoint", rbErr)
			}
			result.fail(fmt.Sprintf("line %d: could not store billing record for %s: %v", row.Line, input.PayerName, insertErr))
			continue
		}
		result.Imported++
	}

	if commitErr := tx.Commit().Error; commitErr != nil {
		return nil, utils.NewError(utils.ErrImport, "commit import transaction", commitErr)
	}

	if result.Imported > 0 {
		invalidateBillingStatistics()
	}
	span.SetAttributes(attribute.Int("imported", result.Imported), attribute.Int("failed", result.Failed))
	logger.WithFields(logrus.Fields{
		"module":         "models",
		"funcName":       "ImportBillingRows",
		"correlation_id": correlationId,
		"user":           operator(ctx),
		"total":          result.Total,
		"imported":       result.Imported,
		"failed":         result.Failed,
	}).Info("billing import committed")

	if _, pubErr := config.PublishPipelineEvent(ctx, config.EventImportCompleted, correlationId, result); pubErr != nil {
		config.LogError(logger, "models", "ImportBillingRows", "PublishPipelineEvent", correlationId, pubErr)
	}
	return result, nil
}
