package pipeline

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/David-Botos/cancelled-subs/pkg/cleaner"
	"github.com/David-Botos/cancelled-subs/pkg/config"
	"github.com/David-Botos/cancelled-subs/pkg/connector"
	"github.com/David-Botos/cancelled-subs/pkg/loader"
	"github.com/David-Botos/cancelled-subs/pkg/logging"
	"github.com/David-Botos/cancelled-subs/pkg/validator"
)

var fixedNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var sourceDDL = []string{
	`CREATE TABLE cademycode_students (uuid TEXT, dob TEXT, job_id TEXT, current_career_path_id TEXT,
		num_course_taken TEXT, time_spent_hrs TEXT, contact_info TEXT, mailing_address TEXT)`,
	`CREATE TABLE cademycode_courses (career_path_id INTEGER, career_path_name TEXT, hours_to_complete INTEGER)`,
	`CREATE TABLE cademycode_jobs (job_id INTEGER, job_category TEXT, avg_salary INTEGER)`,
	`INSERT INTO cademycode_students VALUES ('a1', '2000-01-01', '1', NULL, '2', '5',
		'{''email'':''x@y.com''}', '1 Main St,Springfield,IL,62701')`,
	`INSERT INTO cademycode_courses VALUES (1, 'Data', 10)`,
	`INSERT INTO cademycode_jobs VALUES (1, 'Eng', 90000)`,
}

func sqliteConfig(path string) *config.DatabaseConfig {
	return &config.DatabaseConfig{Driver: config.DriverSQLite, Path: path, BusyTimeout: time.Second}
}

func exec(t *testing.T, path string, statements ...string) {
	t.Helper()
	ctx := context.Background()
	conn, err := connector.NewSQLiteConnector(ctx, sqliteConfig(path), 10*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	for _, stmt := range statements {
		_, err := conn.DB().ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
}

func openDB(t *testing.T, path string) connector.DatabaseConnector {
	t.Helper()
	conn, err := connector.NewSQLiteConnector(context.Background(), sqliteConfig(path), 10*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type fixture struct {
	cfg     *config.Config
	errors  *bytes.Buffer
	changes *bytes.Buffer
	streams *logging.RecordStreams
}

func newFixture(t *testing.T, extraSource ...string) *fixture {
	t.Helper()
	dir := t.TempDir()

	sourcePath := filepath.Join(dir, "cademycode.db")
	exec(t, sourcePath, append(append([]string{}, sourceDDL...), extraSource...)...)

	f := &fixture{
		cfg: &config.Config{
			Source:            sqliteConfig(sourcePath),
			Published:         sqliteConfig(filepath.Join(dir, "cademycode_cleansed.db")),
			PublishedTable:    "cancelled_subs",
			StrictValidation:  true,
			RecordCleaningOps: true,
			InsertBatchSize:   100,
			QueryTimeout:      10 * time.Second,
		},
		errors:  &bytes.Buffer{},
		changes: &bytes.Buffer{},
	}
	f.streams = logging.NewRecordStreamsFromSyncers(zapcore.AddSync(f.errors), zapcore.AddSync(f.changes))
	return f
}

func (f *fixture) run(t *testing.T) (*Summary, error) {
	t.Helper()
	return New(f.cfg, nil, f.streams).WithClock(func() time.Time { return fixedNow }).Run(context.Background())
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t)

	summary, err := f.run(t)
	require.NoError(t, err)

	assert.True(t, summary.Published)
	assert.True(t, summary.TableCreated)
	assert.Equal(t, int64(1), summary.RowsAppended)
	assert.Equal(t, 3, summary.SourceTables)
	assert.Equal(t, 1, summary.MergedRows)
	assert.Equal(t, 0, summary.ChecksFailed)
	assert.Equal(t, 9, summary.ChecksRun)
	assert.Equal(t, 2, summary.TotalCleaningOps)
	assert.Equal(t, TableStats{Loaded: 1, Cleaned: 2}, summary.Courses)
	assert.NotEmpty(t, summary.RunID)

	published := openDB(t, f.cfg.Published.Path)
	table, err := published.LoadTable(context.Background(), "cancelled_subs")
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())

	assert.Equal(t, "a1", table.Value(0, "uuid"))
	assert.Equal(t, "2000-01-01", table.Value(0, "dob"))
	assert.Equal(t, int64(0), table.Value(0, "current_career_path_id"))
	assert.Equal(t, "no selection", table.Value(0, "career_path_name"))
	assert.Equal(t, int64(0), table.Value(0, "hours_to_complete"))
	assert.Equal(t, int64(24), table.Value(0, "age"))
	assert.Equal(t, int64(20), table.Value(0, "age_range"))
	assert.Equal(t, "x@y.com", table.Value(0, "email"))
	assert.Equal(t, "1 Main St", table.Value(0, "street"))
	assert.Equal(t, "Springfield", table.Value(0, "city"))
	assert.Equal(t, "IL", table.Value(0, "state"))
	assert.Equal(t, "62701", table.Value(0, "zipcode"))
	assert.Equal(t, "Eng", table.Value(0, "job_category"))
	assert.Equal(t, 90000.0, table.Value(0, "avg_salary"))

	ops, err := published.LoadTable(context.Background(), cleaner.OperationsTable)
	require.NoError(t, err)
	require.Equal(t, 2, ops.Len())
	assert.Equal(t, summary.RunID, ops.Value(0, "run_id"))
	assert.Equal(t, "missing_career_path", ops.Value(0, "cleaning_reason"))
	assert.Equal(t, "no_selection_course", ops.Value(1, "cleaning_reason"))

	// second run over the same snapshot appends nothing
	summary, err = f.run(t)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.RowsAppended)
	assert.False(t, summary.TableCreated)
	assert.Equal(t, 12, summary.ChecksRun)
	assert.Equal(t, 0, summary.ChecksFailed)

	table, err = published.LoadTable(context.Background(), "cancelled_subs")
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	require.NoError(t, f.streams.Close())
	assert.Empty(t, f.errors.String())
	changes := strings.Split(strings.TrimSpace(f.changes.String()), "\n")
	require.Len(t, changes, 2)
	assert.True(t, strings.HasSuffix(changes[0], "-- uploaded 1 new rows of data"), changes[0])
	assert.True(t, strings.HasSuffix(changes[1], "-- No new data to upload"), changes[1])
}

func TestRun_StrictValidationBlocksPublish(t *testing.T) {
	f := newFixture(t, `CREATE TABLE extra (id INTEGER)`)

	summary, err := f.run(t)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidationFailed))
	assert.True(t, errors.Is(err, validator.ErrTableCount))
	assert.False(t, summary.Published)
	assert.Equal(t, 1, summary.ChecksFailed)
	assert.Equal(t, 1, summary.ErrorCategories[validator.ErrorCategoryTableCount])

	exists, err := connector.TableExists(context.Background(), openDB(t, f.cfg.Published.Path), "cancelled_subs")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, f.streams.Close())
	assert.Equal(t,
		"TABLE ERROR: The wrong number of tables are present: found 4, expected 3\n",
		f.errors.String())
	assert.Empty(t, f.changes.String())
}

func TestRun_TooFewTablesIsReported(t *testing.T) {
	f := newFixture(t, `DROP TABLE cademycode_jobs`)
	f.cfg.StrictValidation = false

	summary, err := f.run(t)
	require.Error(t, err)
	assert.ErrorIs(t, err, loader.ErrMissingTable)
	assert.ErrorIs(t, err, validator.ErrTableCount)
	assert.False(t, summary.Published)
	assert.Equal(t, 2, summary.SourceTables)
	assert.Equal(t, 1, summary.ErrorCategories[validator.ErrorCategoryTableCount])

	require.NoError(t, f.streams.Close())
	assert.Equal(t,
		"TABLE ERROR: The wrong number of tables are present: found 2, expected 3\n",
		f.errors.String())
}

func TestRun_StudentJobsTableName(t *testing.T) {
	f := newFixture(t,
		`ALTER TABLE cademycode_jobs RENAME TO cademycode_student_jobs`,
		`ALTER TABLE cademycode_students RENAME TO zz_students`,
	)

	summary, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.RowsAppended)
	assert.Equal(t, 0, summary.ChecksFailed)
}

func TestRun_AdvisoryValidationPublishes(t *testing.T) {
	f := newFixture(t, `CREATE TABLE extra (id INTEGER)`)
	f.cfg.StrictValidation = false
	f.cfg.RecordCleaningOps = false

	summary, err := f.run(t)
	require.NoError(t, err)
	assert.True(t, summary.Published)
	assert.Equal(t, int64(1), summary.RowsAppended)
	assert.Equal(t, 1, summary.ChecksFailed)

	exists, err := connector.TableExists(context.Background(), openDB(t, f.cfg.Published.Path), cleaner.OperationsTable)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRun_SchemaMismatchIsReported(t *testing.T) {
	f := newFixture(t)
	exec(t, f.cfg.Published.Path, `CREATE TABLE cancelled_subs (uuid TEXT, dob TEXT)`)

	summary, err := f.run(t)
	require.ErrorIs(t, err, validator.ErrSchemaMismatch)
	assert.Equal(t, 3, summary.ErrorCategories[validator.ErrorCategorySchemaMismatch])

	require.NoError(t, f.streams.Close())
	assert.Contains(t, f.errors.String(), "COLUMN ERROR: Tables are not same width")
}

func TestSummary_Report(t *testing.T) {
	s := NewSummary("run-1", fixedNow)
	s.RowsAppended = 3
	s.ErrorCategories[validator.ErrorCategoryNullValue] = 1
	s.Complete(fixedNow.Add(1500 * time.Millisecond))

	assert.Equal(t, 1500*time.Millisecond, s.Duration)
	assert.Contains(t, s.String(), "Rows Appended:           3")
	assert.Contains(t, s.String(), "- NullValueError: 1")

	data, err := s.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"runId":"run-1"`)
	assert.Contains(t, string(data), `"duration":"1.50s"`)
	assert.Contains(t, string(data), `"errorCategories":{"NullValueError":1}`)
}
