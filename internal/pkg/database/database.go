// Package database opens GORM connections for storage partition endpoints.
// The endpoint scheme selects the driver: postgres://... (or postgresql://)
// connects to PostgreSQL, sqlite://<path> opens a local SQLite database
// through the pure-Go driver.
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

// Driver names reported by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the given endpoint and returns the handle plus the driver
// it resolved to. Duplicate-key violations are translated to
// gorm.ErrDuplicatedKey regardless of driver.
func Open(endpoint string, log *zap.Logger) (*gorm.DB, string, error) {
	cfg := &gorm.Config{
		Logger:         newGormLogger(log),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var (
		db     *gorm.DB
		driver string
		err    error
	)

	switch {
	case strings.HasPrefix(endpoint, "postgres://"), strings.HasPrefix(endpoint, "postgresql://"):
		driver = DriverPostgres
		db, err = gorm.Open(postgres.Open(endpoint), cfg)
	case strings.HasPrefix(endpoint, "sqlite://"):
		driver = DriverSQLite
		dsn := strings.TrimPrefix(endpoint, "sqlite://")
		db, err = gorm.Open(gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}), cfg)
	default:
		return nil, "", fmt.Errorf("unsupported endpoint scheme: %q", endpoint)
	}

	if err != nil {
		return nil, driver, fmt.Errorf("failed to connect to %s endpoint: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, driver, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("partition endpoint connected", zap.String("driver", driver))

	return db, driver, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsDuplicateKeyError reports whether err is a unique-key violation. GORM's
// translated sentinel covers PostgreSQL; the raw driver message is matched as
// well since the pure-Go SQLite driver bypasses translation.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// IsRecordNotFoundError reports whether err is a missing-row lookup.
func IsRecordNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// newGormLogger bridges GORM query logging into zap.
func newGormLogger(log *zap.Logger) gormlogger.Interface {
	return &zapGormLogger{
		logger:        log,
		logLevel:      gormlogger.Warn,
		slowThreshold: 200 * time.Millisecond,
	}
}

type zapGormLogger struct {
	logger        *zap.Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
}

func (l *zapGormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

func (l *zapGormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Info {
		l.logger.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *zapGormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *zapGormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Error {
		l.logger.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *zapGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.logLevel >= gormlogger.Error:
		fields = append(fields, zap.Error(err))
		l.logger.Error("database query error", fields...)
	case elapsed > l.slowThreshold && l.logLevel >= gormlogger.Warn:
		fields = append(fields, zap.Duration("threshold", l.slowThreshold))
		l.logger.Warn("slow SQL query", fields...)
	case l.logLevel >= gormlogger.Info:
		l.logger.Info("database query", fields...)
	}
}
