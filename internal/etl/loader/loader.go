package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coinetl/config"
	"coinetl/internal/etl/market"
	"coinetl/pkg/storage/postgres"

	"go.uber.org/zap"
)

// ErrLoad marks any connectivity or statement failure in the load stage.
var ErrLoad = errors.New("load failed")

// Session is a connection to the target database for the duration of one run.
type Session interface {
	EnsureTable(ctx context.Context, table string) error
	UpsertDaily(ctx context.Context, table string, rows []market.Row, date time.Time) error
	Close() error
}

// Loader prepares the target database and hands out per-run sessions.
type Loader struct {
	cfg    config.PostgresConfig
	logger *zap.Logger

	createDatabase func(ctx context.Context, cfg config.PostgresConfig) (bool, error)
	connect        func(dsn string) (*postgres.PostgresClient, error)
}

func New(cfg config.PostgresConfig, logger *zap.Logger) *Loader {
	return &Loader{
		cfg:            cfg,
		logger:         logger,
		createDatabase: postgres.CreateDatabase,
		connect:        postgres.NewClient,
	}
}

// EnsureDatabase creates the target database when it is missing. Calling it
// against an existing database does nothing.
func (l *Loader) EnsureDatabase(ctx context.Context) error {
	created, err := l.createDatabase(ctx, l.cfg)
	if err != nil {
		l.logger.Error("failed to check/create database", zap.String("db", l.cfg.DBName), zap.Error(err))
		return fmt.Errorf("%w: ensure database %s: %v", ErrLoad, l.cfg.DBName, err)
	}

	if created {
		l.logger.Info("database created", zap.String("db", l.cfg.DBName))
	} else {
		l.logger.Info("database already exists, skipping creation", zap.String("db", l.cfg.DBName))
	}
	return nil
}

// Open connects to the target database and checks the connection is alive.
func (l *Loader) Open(ctx context.Context) (Session, error) {
	client, err := l.connect(l.cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", ErrLoad, l.cfg.DBName, err)
	}

	if !client.IsHealthy(ctx) {
		_ = client.Close()
		return nil, fmt.Errorf("%w: database %s is not reachable", ErrLoad, l.cfg.DBName)
	}

	l.logger.Debug("connected to target database", zap.String("db", l.cfg.DBName))
	return &session{client: client, logger: l.logger}, nil
}

type session struct {
	client *postgres.PostgresClient
	logger *zap.Logger
}

func (s *session) EnsureTable(ctx context.Context, table string) error {
	if err := s.client.EnsureTable(ctx, table); err != nil {
		s.logger.Error("failed to ensure table", zap.String("table", table), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrLoad, err)
	}
	s.logger.Info("table ready", zap.String("table", table))
	return nil
}

func (s *session) UpsertDaily(ctx context.Context, table string, rows []market.Row, date time.Time) error {
	day := date.Format(market.DateLayout)

	res, err := s.client.UpsertDaily(ctx, table, rows, date)
	if err != nil {
		fields := []zap.Field{zap.String("table", table), zap.String("date", day), zap.Error(err)}
		if res.Deleted > 0 {
			// previous rows are gone and the new ones did not land
			fields = append(fields, zap.Int64("deleted", res.Deleted))
			s.logger.Error("daily replace left no rows for date", fields...)
		} else {
			s.logger.Error("daily replace failed", fields...)
		}
		return fmt.Errorf("%w: %v", ErrLoad, err)
	}

	if res.Existing > 0 {
		s.logger.Info("replaced rows for date",
			zap.String("date", day), zap.Int64("deleted", res.Deleted), zap.Int64("inserted", res.Inserted))
	} else {
		s.logger.Info("inserted rows for date", zap.String("date", day), zap.Int64("inserted", res.Inserted))
	}
	return nil
}

func (s *session) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrLoad, err)
	}
	return nil
}
