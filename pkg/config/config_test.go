package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/snowflakedb/gosnowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SOURCE_DB_PATH", "dev/cademycode.db")
	t.Setenv("PUBLISHED_DB_PATH", "dev/final_table.db")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Source.Driver)
	assert.Equal(t, "dev/cademycode.db", cfg.Source.Path)
	assert.Equal(t, DriverSQLite, cfg.Published.Driver)
	assert.Equal(t, "dev/final_table.db", cfg.Published.Path)
	assert.Equal(t, "cancelled_subs", cfg.PublishedTable)
	assert.True(t, cfg.StrictValidation)
	assert.True(t, cfg.RecordCleaningOps)
	assert.Equal(t, 500, cfg.InsertBatchSize)
	assert.Equal(t, time.Minute, cfg.QueryTimeout)
	assert.Equal(t, "error.log", cfg.ErrorLogPath)
	assert.Equal(t, "change.log", cfg.ChangeLogPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadConfig_OverrideDefaults(t *testing.T) {
	t.Setenv("SOURCE_DB_PATH", "a.db")
	t.Setenv("PUBLISHED_DB_PATH", "b.db")
	t.Setenv("PUBLISHED_TABLE", "subscribers")
	t.Setenv("STRICT_VALIDATION", "false")
	t.Setenv("INSERT_BATCH_SIZE", "50")
	t.Setenv("QUERY_TIMEOUT_SECONDS", "5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "subscribers", cfg.PublishedTable)
	assert.False(t, cfg.StrictValidation)
	assert.Equal(t, 50, cfg.InsertBatchSize)
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_MissingPaths(t *testing.T) {
	t.Setenv("SOURCE_DB_PATH", "")
	t.Setenv("PUBLISHED_DB_PATH", "b.db")

	_, err := LoadConfig()
	assert.ErrorIs(t, err, ErrMissingSourcePath)

	t.Setenv("SOURCE_DB_PATH", "a.db")
	t.Setenv("PUBLISHED_DB_PATH", "")

	_, err = LoadConfig()
	assert.ErrorIs(t, err, ErrMissingPublishedPath)
}

func TestLoadConfig_UnsupportedDriver(t *testing.T) {
	t.Setenv("SOURCE_DRIVER", "oracle")
	t.Setenv("SOURCE_DB_PATH", "a.db")
	t.Setenv("PUBLISHED_DB_PATH", "b.db")

	_, err := LoadConfig()
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestLoadConfig_PostgresPublished(t *testing.T) {
	t.Setenv("SOURCE_DB_PATH", "a.db")
	t.Setenv("PUBLISHED_DRIVER", "postgres")
	t.Setenv("PUBLISHED_POSTGRES_USER", "etl")
	t.Setenv("PUBLISHED_POSTGRES_PASSWORD", "secret")
	t.Setenv("PUBLISHED_POSTGRES_DB", "analytics")
	t.Setenv("PUBLISHED_POSTGRES_PORT", "6543")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg.Published.Postgres)

	pg := cfg.Published.Postgres
	assert.Equal(t, 6543, pg.Port)
	assert.Equal(t, "public", pg.Schema)
	assert.Equal(t,
		"host=localhost port=6543 user=etl password=secret dbname=analytics sslmode=disable",
		pg.ConnectionString())
	assert.Equal(t, "analytics@localhost:6543", cfg.Published.Name())
}

func TestLoadConfig_PostgresMissingCredentials(t *testing.T) {
	t.Setenv("SOURCE_DB_PATH", "a.db")
	t.Setenv("PUBLISHED_DRIVER", "postgres")
	t.Setenv("PUBLISHED_POSTGRES_USER", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PUBLISHED_POSTGRES_USER")
}

func TestLoadConfig_SnowflakeSource(t *testing.T) {
	t.Setenv("SOURCE_DRIVER", "snowflake")
	t.Setenv("PUBLISHED_DB_PATH", "b.db")
	t.Setenv("SNOWFLAKE_USER", "u")
	t.Setenv("SNOWFLAKE_PASSWORD", "p")
	t.Setenv("SNOWFLAKE_ACCOUNT", "acct")
	t.Setenv("SNOWFLAKE_WAREHOUSE", "wh")
	t.Setenv("SNOWFLAKE_DATABASE", "CADEMY")
	t.Setenv("SNOWFLAKE_AUTHENTICATOR", "jwt")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg.Source.Snowflake)
	assert.Equal(t, "PUBLIC", cfg.Source.Snowflake.Schema)
	assert.Equal(t, gosnowflake.AuthTypeJwt, cfg.Source.Snowflake.Authenticator)
	assert.Equal(t, "CADEMY.PUBLIC", cfg.Source.Name())
}

func TestValidate_SnowflakeSinkRejected(t *testing.T) {
	cfg := &Config{
		Source:          &DatabaseConfig{Driver: DriverSQLite, Path: "a.db"},
		Published:       &DatabaseConfig{Driver: DriverSnowflake, Snowflake: &SnowflakeConfig{}},
		PublishedTable:  "cancelled_subs",
		InsertBatchSize: 10,
		QueryTimeout:    time.Second,
	}
	assert.ErrorIs(t, cfg.Validate(), ErrSnowflakeSink)
}

func TestValidate_Limits(t *testing.T) {
	base := func() *Config {
		return &Config{
			Source:          &DatabaseConfig{Driver: DriverSQLite, Path: "a.db"},
			Published:       &DatabaseConfig{Driver: DriverSQLite, Path: "b.db"},
			PublishedTable:  "cancelled_subs",
			InsertBatchSize: 10,
			QueryTimeout:    time.Second,
		}
	}

	cfg := base()
	cfg.InsertBatchSize = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidBatchSize)

	cfg = base()
	cfg.QueryTimeout = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidQueryTimeout)

	cfg = base()
	cfg.PublishedTable = " "
	assert.ErrorIs(t, cfg.Validate(), ErrMissingTableName)

	assert.NoError(t, base().Validate())
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.env")
	require.NoError(t, os.WriteFile(path, []byte("CANCELLED_SUBS_TEST_KEY=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CANCELLED_SUBS_TEST_KEY") })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("CANCELLED_SUBS_TEST_KEY"))

	err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSQLiteDSN(t *testing.T) {
	cfg := &DatabaseConfig{Driver: DriverSQLite, Path: "x.db", BusyTimeout: 2 * time.Second}
	assert.Equal(t, "x.db?_pragma=busy_timeout(2000)", cfg.SQLiteDSN())
}
