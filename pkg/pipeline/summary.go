package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/cancelled-subs/pkg/validator"
)

// TableStats counts rows of one source table before and after cleaning
type TableStats struct {
	Loaded  int `json:"loaded"`
	Cleaned int `json:"cleaned"`
}

// Summary describes one pipeline run
type Summary struct {
	RunID        string
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	SourceTables int

	Students TableStats
	Courses  TableStats
	Jobs     TableStats

	MergedRows       int
	DroppedInMerge   int
	TotalCleaningOps int
	NewRows          int
	RowsAppended     int64

	ChecksRun       int
	ChecksFailed    int
	ErrorCategories map[validator.ErrorCategory]int

	// Published is false when validation blocked the publish step
	Published bool
	// TableCreated is true when the run bootstrapped the published table
	TableCreated bool
}

// NewSummary initializes a run summary
func NewSummary(runID string, start time.Time) *Summary {
	return &Summary{
		RunID:           runID,
		StartTime:       start,
		ErrorCategories: make(map[validator.ErrorCategory]int),
	}
}

// Complete marks the run as finished
func (s *Summary) Complete(end time.Time) {
	s.EndTime = end
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// AddReport copies check outcomes from a validation report
func (s *Summary) AddReport(report *validator.Report) {
	s.ChecksRun = len(report.Results())
	s.ChecksFailed = len(report.Failures())
	for category, count := range report.ErrorSummary() {
		s.ErrorCategories[category] = count
	}
}

// Log writes the summary as one structured entry
func (s *Summary) Log(logger *zap.Logger) {
	logger.Info("Pipeline run complete",
		zap.String("run_id", s.RunID),
		zap.String("duration", formatDuration(s.Duration)),
		zap.Int("source_tables", s.SourceTables),
		zap.Int("students_loaded", s.Students.Loaded),
		zap.Int("students_cleaned", s.Students.Cleaned),
		zap.Int("courses_cleaned", s.Courses.Cleaned),
		zap.Int("jobs_cleaned", s.Jobs.Cleaned),
		zap.Int("merged_rows", s.MergedRows),
		zap.Int("dropped_in_merge", s.DroppedInMerge),
		zap.Int("cleaning_ops", s.TotalCleaningOps),
		zap.Int64("rows_appended", s.RowsAppended),
		zap.Int("checks_failed", s.ChecksFailed),
		zap.Bool("published", s.Published))
}

// String renders a human readable report
func (s *Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `
Pipeline Run Report
===================
Run ID:                  %s
Duration:                %s
Start Time:              %s
End Time:                %s

Source
------
Tables Found:            %d
Students:                %d loaded, %d cleaned
Courses:                 %d loaded, %d cleaned
Jobs:                    %d loaded, %d cleaned
Total Cleaning Ops:      %d

Output
------
Merged Rows:             %d (%d dropped by join)
New Rows:                %d
Rows Appended:           %d
Published:               %t
`,
		s.RunID,
		formatDuration(s.Duration),
		s.StartTime.Format(time.RFC3339),
		s.EndTime.Format(time.RFC3339),

		s.SourceTables,
		s.Students.Loaded, s.Students.Cleaned,
		s.Courses.Loaded, s.Courses.Cleaned,
		s.Jobs.Loaded, s.Jobs.Cleaned,
		s.TotalCleaningOps,

		s.MergedRows, s.DroppedInMerge,
		s.NewRows,
		s.RowsAppended,
		s.Published,
	)

	fmt.Fprintf(&sb, "\nChecks\n------\n%d run, %d failed\n", s.ChecksRun, s.ChecksFailed)

	if len(s.ErrorCategories) > 0 {
		categories := make([]validator.ErrorCategory, 0, len(s.ErrorCategories))
		for category := range s.ErrorCategories {
			categories = append(categories, category)
		}
		sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

		for _, category := range categories {
			fmt.Fprintf(&sb, "- %s: %d\n", category, s.ErrorCategories[category])
		}
	}

	return sb.String()
}

// ToJSON serializes the summary
func (s *Summary) ToJSON() ([]byte, error) {
	errorCounts := make(map[string]int, len(s.ErrorCategories))
	for category, count := range s.ErrorCategories {
		errorCounts[category.String()] = count
	}

	return json.Marshal(struct {
		RunID            string         `json:"runId"`
		Duration         string         `json:"duration"`
		SourceTables     int            `json:"sourceTables"`
		Students         TableStats     `json:"students"`
		Courses          TableStats     `json:"courses"`
		Jobs             TableStats     `json:"jobs"`
		MergedRows       int            `json:"mergedRows"`
		DroppedInMerge   int            `json:"droppedInMerge"`
		TotalCleaningOps int            `json:"totalCleaningOps"`
		RowsAppended     int64          `json:"rowsAppended"`
		ChecksFailed     int            `json:"checksFailed"`
		ErrorCategories  map[string]int `json:"errorCategories"`
		Published        bool           `json:"published"`
	}{
		RunID:            s.RunID,
		Duration:         formatDuration(s.Duration),
		SourceTables:     s.SourceTables,
		Students:         s.Students,
		Courses:          s.Courses,
		Jobs:             s.Jobs,
		MergedRows:       s.MergedRows,
		DroppedInMerge:   s.DroppedInMerge,
		TotalCleaningOps: s.TotalCleaningOps,
		RowsAppended:     s.RowsAppended,
		ChecksFailed:     s.ChecksFailed,
		ErrorCategories:  errorCounts,
		Published:        s.Published,
	})
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
