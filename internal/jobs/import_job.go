package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/sanisidro/fiscal-api/internal/domain"
	"github.com/sanisidro/fiscal-api/internal/logger"
	"github.com/sanisidro/fiscal-api/internal/service"
	"github.com/sanisidro/fiscal-api/internal/storage"
	"go.uber.org/zap"
)

// ImportJobName is the name of the scheduled CSV import job
const ImportJobName = "fiscal_import"

// maxCSVSize bounds a single import file
const maxCSVSize = 32 << 20

// reportWriteTimeout bounds writing a partial report once the run context
// has ended
const reportWriteTimeout = 10 * time.Second

var errCSVTooLarge = errors.New("csv file too large")

// BlobSource is the blob access the import job needs
type BlobSource interface {
	List(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error)
	Open(ctx context.Context, pathname string) (io.ReadCloser, *storage.Blob, error)
	PutJSON(ctx context.Context, filename string, body []byte) (*storage.Blob, error)
	Delete(ctx context.Context, urlOrPathname string) error
}

// CSVImporter imports the text of one CSV file
type CSVImporter interface {
	ImportCSV(ctx context.Context, csvText string) (*domain.ImportResult, error)
}

// ImportJob imports CSV blobs dropped under a prefix. Each processed file
// gets a JSON report under the report prefix and is then deleted. Files that
// fail for transient reasons are left in place for the next run. A run cut
// short mid-file leaves a partial report and keeps the file.
type ImportJob struct {
	blobs        BlobSource
	importer     CSVImporter
	prefix       string
	reportPrefix string
	timeout      time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewImportJob creates a new scheduled import job
func NewImportJob(blobs BlobSource, importer CSVImporter, prefix, reportPrefix string, timeout time.Duration, logger *zap.Logger) *ImportJob {
	return &ImportJob{
		blobs:        blobs,
		importer:     importer,
		prefix:       prefix,
		reportPrefix: reportPrefix,
		timeout:      timeout,
		logger:       logger,
		now:          time.Now,
	}
}

// Run executes one import pass. It is called by the scheduler.
func (j *ImportJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	processed, failed, err := j.RunOnce(ctx)
	if err != nil {
		j.logger.Error("fiscal import job failed",
			zap.Error(err),
			zap.Int("processed", processed),
			zap.Int("failed", failed),
			zap.Duration("duration", time.Since(start)))
		return
	}

	if processed > 0 || failed > 0 {
		j.logger.Info("fiscal import job completed",
			zap.Int("processed", processed),
			zap.Int("failed", failed),
			zap.Duration("duration", time.Since(start)))
	}
}

// RunOnce imports every CSV blob currently under the prefix. processed counts
// files that got a report, failed counts files left for a later run.
func (j *ImportJob) RunOnce(ctx context.Context) (processed int, failed int, err error) {
	pending, err := j.pendingFiles(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, pathname := range pending {
		if err := ctx.Err(); err != nil {
			return processed, failed, err
		}

		if err := j.processFile(ctx, pathname); err != nil {
			failed++
			j.logger.Warn("failed to import csv blob, will retry",
				zap.String("pathname", pathname),
				zap.Error(err))
			continue
		}
		processed++
	}

	return processed, failed, nil
}

func (j *ImportJob) pendingFiles(ctx context.Context) ([]string, error) {
	var files []string
	cursor := ""
	for {
		page, err := j.blobs.List(ctx, storage.ListOptions{Prefix: j.prefix, Cursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("failed to list import blobs: %w", err)
		}
		for _, b := range page.Blobs {
			if j.isPending(b.Pathname) {
				files = append(files, b.Pathname)
			}
		}
		if !page.HasMore || page.Cursor == "" {
			return files, nil
		}
		cursor = page.Cursor
	}
}

func (j *ImportJob) isPending(pathname string) bool {
	if j.reportPrefix != "" && strings.HasPrefix(pathname, j.reportPrefix) {
		return false
	}
	return strings.EqualFold(path.Ext(pathname), ".csv")
}

// processFile imports one blob and writes its report. Rejected input is
// reported and removed like a successful import.
func (j *ImportJob) processFile(ctx context.Context, pathname string) error {
	report := domain.ImportReport{Source: pathname}

	text, err := j.readFile(ctx, pathname)
	if err != nil && !errors.Is(err, errCSVTooLarge) {
		return err
	}

	var result *domain.ImportResult
	if err == nil {
		result, err = j.importer.ImportCSV(ctx, text)
	}
	var argErr *service.ArgumentError
	switch {
	case err == nil:
		report.Result = result
	case errors.As(err, &argErr):
		report.Error = argErr.Message
	case errors.Is(err, errCSVTooLarge):
		report.Error = err.Error()
	case result != nil && ctx.Err() != nil:
		j.writePartialReport(ctx, pathname, result, err)
		return fmt.Errorf("failed to import %s: %w", pathname, err)
	default:
		return fmt.Errorf("failed to import %s: %w", pathname, err)
	}
	report.ProcessedAt = j.now().UTC()

	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode import report: %w", err)
	}

	reportName := j.reportName(pathname)
	if _, err := j.blobs.PutJSON(ctx, reportName, body); err != nil {
		return fmt.Errorf("failed to write import report: %w", err)
	}

	if err := j.blobs.Delete(ctx, pathname); err != nil {
		return fmt.Errorf("failed to delete imported blob: %w", err)
	}

	fields := []zap.Field{
		zap.String("report", reportName),
	}
	if result != nil {
		fields = append(fields,
			zap.Int("success_count", result.SuccessCount),
			zap.Int("error_count", result.ErrorCount))
	} else {
		fields = append(fields, zap.String("error", report.Error))
	}
	logger.WithImport(j.logger, ImportJobName, pathname).Info("csv blob imported", fields...)

	return nil
}

// writePartialReport records the rows imported before the run was cut short.
// The source stays in place and the next run replaces this report.
func (j *ImportJob) writePartialReport(ctx context.Context, pathname string, result *domain.ImportResult, cause error) {
	report := domain.ImportReport{
		Source:      pathname,
		ProcessedAt: j.now().UTC(),
		Partial:     true,
		Result:      result,
		Error:       cause.Error(),
	}
	body, err := json.Marshal(report)
	if err != nil {
		j.logger.Error("failed to encode partial import report", zap.Error(err))
		return
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportWriteTimeout)
	defer cancel()

	reportName := j.reportName(pathname)
	if _, err := j.blobs.PutJSON(wctx, reportName, body); err != nil {
		j.logger.Error("failed to write partial import report",
			zap.String("pathname", pathname),
			zap.Error(err))
		return
	}
	logger.WithImport(j.logger, ImportJobName, pathname).Warn("csv blob partially imported",
		zap.String("report", reportName),
		zap.Int("success_count", result.SuccessCount),
		zap.Int("error_count", result.ErrorCount))
}

func (j *ImportJob) readFile(ctx context.Context, pathname string) (string, error) {
	rc, _, err := j.blobs.Open(ctx, pathname)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", pathname, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxCSVSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", pathname, err)
	}
	if len(data) > maxCSVSize {
		return "", fmt.Errorf("%w: more than %d bytes", errCSVTooLarge, maxCSVSize)
	}
	return string(data), nil
}

// reportName maps imports/2025/mesas.csv to {reportPrefix}/2025/mesas.json
func (j *ImportJob) reportName(pathname string) string {
	rel := strings.TrimPrefix(pathname, j.prefix)
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	return path.Join(j.reportPrefix, rel+".json")
}

// RegisterImportJob registers the CSV import job with the scheduler
func RegisterImportJob(scheduler *Scheduler, job *ImportJob, cronExpr string) error {
	return scheduler.AddJob(ImportJobName, cronExpr, job.Run)
}
