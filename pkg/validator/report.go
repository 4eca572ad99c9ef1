package validator

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/David-Botos/cancelled-subs/pkg/logging"
)

// Report collects check results for one pipeline run. Every failure is
// written to the error record stream as it is added.
type Report struct {
	logger      *zap.Logger
	streams     *logging.RecordStreams
	results     []Result
	errorCounts map[ErrorCategory]int
}

// NewReport creates an empty report
func NewReport(logger *zap.Logger, streams *logging.RecordStreams) *Report {
	if logger == nil {
		logger = zap.NewNop()
	}
	if streams == nil {
		streams = logging.NopRecordStreams()
	}
	return &Report{
		logger:      logger,
		streams:     streams,
		errorCounts: make(map[ErrorCategory]int),
	}
}

// Add records results
func (r *Report) Add(results ...Result) {
	for _, res := range results {
		r.results = append(r.results, res)

		if res.Passed {
			r.logger.Debug("Check passed",
				zap.String("check", res.Check),
				zap.String("table", res.Table))
			continue
		}

		r.errorCounts[res.Category]++
		r.streams.Error(res.Tag(), res.Message)
		r.logger.Warn("Check failed",
			zap.String("check", res.Check),
			zap.String("category", res.Category.String()),
			zap.String("table", res.Table),
			zap.Int("count", res.Count),
			zap.String("message", res.Message))
	}
}

// Results returns every result in the order added
func (r *Report) Results() []Result {
	return r.results
}

// Failures returns the failing results
func (r *Report) Failures() []Result {
	var failed []Result
	for _, res := range r.results {
		if !res.Passed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Failed reports whether any check failed
func (r *Report) Failed() bool {
	return len(r.Failures()) > 0
}

// Err joins the errors of every failing result, or returns nil
func (r *Report) Err() error {
	var err error
	for _, res := range r.results {
		err = multierr.Append(err, res.Err())
	}
	return err
}

// ErrorSummary returns failure counts by category
func (r *Report) ErrorSummary() map[ErrorCategory]int {
	summary := make(map[ErrorCategory]int, len(r.errorCounts))
	for category, count := range r.errorCounts {
		summary[category] = count
	}
	return summary
}
