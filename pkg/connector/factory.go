// pkg/connector/factory.go
package connector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/cancelled-subs/pkg/config"
)

// ConnectorFactory creates database connectors
type ConnectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewConnectorFactory creates a new connector factory
func NewConnectorFactory(cfg *config.Config, logger *zap.Logger) *ConnectorFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// Open creates a connector for one database configuration
func Open(ctx context.Context, dbCfg *config.DatabaseConfig, queryTimeout time.Duration) (DatabaseConnector, error) {
	var (
		connector DatabaseConnector
		err       error
	)

	switch dbCfg.Driver {
	case config.DriverSQLite:
		var c *SQLiteConnector
		if c, err = NewSQLiteConnector(ctx, dbCfg, queryTimeout); err == nil {
			connector = c
		}
	case config.DriverPostgres:
		var c *PostgresConnector
		if c, err = NewPostgresConnector(ctx, dbCfg.Postgres, queryTimeout); err == nil {
			connector = c
		}
	case config.DriverSnowflake:
		var c *SnowflakeConnector
		if c, err = NewSnowflakeConnector(ctx, dbCfg.Snowflake, queryTimeout); err == nil {
			connector = c
		}
	default:
		err = fmt.Errorf("%w: %q", config.ErrUnsupportedDriver, dbCfg.Driver)
	}

	if err != nil {
		return nil, err
	}
	return connector, nil
}

// CreateSourceConnector opens the source database
func (f *ConnectorFactory) CreateSourceConnector(ctx context.Context) (DatabaseConnector, error) {
	f.logger.Info("Creating source connector",
		zap.String("driver", f.cfg.Source.Driver),
		zap.String("database", f.cfg.Source.Name()))

	connector, err := Open(ctx, f.cfg.Source, f.cfg.QueryTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create source connector: %w", err)
	}

	return connector, nil
}

// CreatePublishedConnector opens the published store
func (f *ConnectorFactory) CreatePublishedConnector(ctx context.Context) (DatabaseConnector, error) {
	f.logger.Info("Creating published connector",
		zap.String("driver", f.cfg.Published.Driver),
		zap.String("database", f.cfg.Published.Name()))

	connector, err := Open(ctx, f.cfg.Published, f.cfg.QueryTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create published connector: %w", err)
	}

	return connector, nil
}

// CreateAllConnectors creates both the source and the published connectors
func (f *ConnectorFactory) CreateAllConnectors(ctx context.Context) (DatabaseConnector, DatabaseConnector, error) {
	source, err := f.CreateSourceConnector(ctx)
	if err != nil {
		return nil, nil, err
	}

	published, err := f.CreatePublishedConnector(ctx)
	if err != nil {
		source.Close() // Clean up the source connection if the published store fails
		return nil, nil, err
	}

	return source, published, nil
}
