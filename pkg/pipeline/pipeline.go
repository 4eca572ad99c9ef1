// Package pipeline drives one run: load, clean, validate, merge and publish
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/cancelled-subs/pkg/cleaner"
	"github.com/David-Botos/cancelled-subs/pkg/config"
	"github.com/David-Botos/cancelled-subs/pkg/connector"
	"github.com/David-Botos/cancelled-subs/pkg/loader"
	"github.com/David-Botos/cancelled-subs/pkg/logging"
	"github.com/David-Botos/cancelled-subs/pkg/merger"
	"github.com/David-Botos/cancelled-subs/pkg/model"
	"github.com/David-Botos/cancelled-subs/pkg/publisher"
	"github.com/David-Botos/cancelled-subs/pkg/validator"
)

// ErrValidationFailed is returned when strict validation blocks publishing
var ErrValidationFailed = errors.New("validation failed, publish step skipped")

// Pipeline runs the cancelled subscriber pipeline
type Pipeline struct {
	cfg     *config.Config
	logger  *zap.Logger
	streams *logging.RecordStreams
	factory *connector.ConnectorFactory
	now     func() time.Time
}

// New creates a pipeline. A nil logger or streams discards output.
func New(cfg *config.Config, logger *zap.Logger, streams *logging.RecordStreams) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if streams == nil {
		streams = logging.NopRecordStreams()
	}
	return &Pipeline{
		cfg:     cfg,
		logger:  logger,
		streams: streams,
		factory: connector.NewConnectorFactory(cfg, logger),
		now:     time.Now,
	}
}

// WithClock replaces the clock used for age derivation and run timing
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Run executes one pipeline run. The summary is returned even when the run
// fails after loading, so callers can report partial progress.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))
	summary := NewSummary(runID, p.now())
	defer func() { summary.Complete(p.now()) }()

	logger.Info("Starting pipeline run",
		zap.String("source", p.cfg.Source.Name()),
		zap.String("published", p.cfg.Published.Name()),
		zap.String("table", p.cfg.PublishedTable),
		zap.Bool("strict_validation", p.cfg.StrictValidation))

	source, published, err := p.factory.CreateAllConnectors(ctx)
	if err != nil {
		return summary, err
	}
	defer func() {
		if cerr := source.Close(); cerr != nil {
			logger.Warn("Failed to close source connection", zap.Error(cerr))
		}
		if cerr := published.Close(); cerr != nil {
			logger.Warn("Failed to close published connection", zap.Error(cerr))
		}
	}()

	for _, conn := range []connector.DatabaseConnector{source, published} {
		if err := conn.Validate(ctx); err != nil {
			return summary, fmt.Errorf("failed to validate connection to %s: %w", conn.Name(), err)
		}
	}

	report := validator.NewReport(logger, p.streams)
	defer summary.AddReport(report)

	// Load
	tables, err := loader.LoadTables(ctx, source, logger)
	if err != nil {
		return summary, err
	}
	summary.SourceTables = len(tables)
	report.Add(validator.CheckTableCount(len(tables)))

	snap, err := loader.NewSnapshot(tables)
	if err != nil {
		if report.Failed() {
			return summary, fmt.Errorf("%w: %w", err, report.Err())
		}
		return summary, err
	}
	logger.Info("Assigned source table roles",
		zap.String("students", snap.StudentTable().Name),
		zap.String("courses", snap.CourseTable().Name),
		zap.String("jobs", snap.JobTable().Name))

	rawStudents, err := snap.Students()
	if err != nil {
		return summary, err
	}
	rawCourses, err := snap.Courses()
	if err != nil {
		return summary, err
	}
	rawJobs, err := snap.Jobs()
	if err != nil {
		return summary, err
	}

	// Clean, checking each cleaned table
	students := cleaner.CleanStudents(rawStudents, p.now())
	studentTable := cleaner.StudentTable(students.Records)
	report.Add(validator.CheckNulls(studentTable), validator.CheckDuplicates(studentTable))

	jobs, jobOps := cleaner.CleanJobs(rawJobs)
	jobTable := cleaner.JobTable(jobs)
	report.Add(validator.CheckNulls(jobTable), validator.CheckDuplicates(jobTable))

	courses, courseOps := cleaner.CleanCourses(rawCourses)
	courseTable := cleaner.CourseTable(courses)
	report.Add(validator.CheckNulls(courseTable), validator.CheckDuplicates(courseTable))

	summary.Students = TableStats{Loaded: len(rawStudents), Cleaned: len(students.Records)}
	summary.Courses = TableStats{Loaded: len(rawCourses), Cleaned: len(courses)}
	summary.Jobs = TableStats{Loaded: len(rawJobs), Cleaned: len(jobs)}

	operations := make([]model.CleaningOperation, 0, len(students.Operations)+len(jobOps)+len(courseOps))
	operations = append(operations, students.Operations...)
	operations = append(operations, jobOps...)
	operations = append(operations, courseOps...)
	summary.TotalCleaningOps = len(operations)

	// Merge
	merged := merger.Merge(students.Records, courses, jobs)
	mergedTable := merger.MergedTable(merged.Records)
	summary.MergedRows = len(merged.Records)
	summary.DroppedInMerge = merged.Dropped
	report.Add(validator.CheckNulls(mergedTable), validator.CheckDuplicates(mergedTable))

	logger.Info("Cleaned and merged source tables",
		zap.Int("students", len(students.Records)),
		zap.Int("courses", len(courses)),
		zap.Int("jobs", len(jobs)),
		zap.Int("merged", len(merged.Records)),
		zap.Int("dropped_in_merge", merged.Dropped),
		zap.Int("cleaning_ops", len(operations)))

	// Compare with what is already published
	pub := publisher.New(published, p.cfg.PublishedTable, p.cfg.InsertBatchSize, logger, p.streams)
	state, err := pub.Inspect(ctx)
	if err != nil {
		return summary, err
	}
	if state.Exists {
		report.Add(validator.CheckSchema(p.cfg.PublishedTable, state.Columns, mergedTable.Columns)...)
	}

	if p.cfg.RecordCleaningOps && len(operations) > 0 {
		if err := p.recordOperations(ctx, published, runID, operations, logger); err != nil {
			return summary, err
		}
	}

	if report.Failed() {
		if p.cfg.StrictValidation {
			logger.Error("Validation failed, not publishing",
				zap.Int("failed_checks", len(report.Failures())))
			return summary, fmt.Errorf("%w: %w", ErrValidationFailed, report.Err())
		}
		logger.Warn("Validation failed, publishing anyway (advisory mode)",
			zap.Int("failed_checks", len(report.Failures())))
	}

	// Publish
	if !state.Exists {
		if err := pub.EnsureTable(ctx, mergedTable.Columns); err != nil {
			return summary, err
		}
		summary.TableCreated = true
	}

	newRows, err := publisher.NewRows(mergedTable, state.UUIDs)
	if err != nil {
		return summary, err
	}
	summary.NewRows = newRows.Len()

	appended, err := pub.Append(ctx, newRows)
	if err != nil {
		return summary, err
	}
	summary.RowsAppended = appended
	summary.Published = true

	return summary, nil
}

func (p *Pipeline) recordOperations(
	ctx context.Context,
	conn connector.DatabaseConnector,
	runID string,
	operations []model.CleaningOperation,
	logger *zap.Logger,
) error {
	recorder, err := cleaner.NewRecorder(ctx, conn, logger)
	if err != nil {
		return err
	}

	stamp := p.now()
	for i := range operations {
		operations[i].RunID = runID
		operations[i].CleanedAt = stamp
	}

	if err := recorder.RecordCleaningOperations(ctx, operations); err != nil {
		return fmt.Errorf("failed to record cleaning operations: %w", err)
	}
	return nil
}
