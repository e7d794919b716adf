// Package repository is the bun backed storage for accounts, external
// identity links and sessions.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-identity"
	"github.com/goliatone/go-identity/repository/migrations"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to dsn and wraps the connection with the matching bun dialect.
func Open(driver, dsn string) (*bun.DB, error) {
	switch driver {
	case DriverSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open error: %w", err)
		}
		// sqlite serializes writers, one connection avoids SQLITE_BUSY
		// and keeps in-memory databases alive.
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case DriverPostgres:
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("db open error: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, identity.NewConfigurationError("database", "driver")
	}
}

// goose keeps its base FS and dialect in package state.
var migrateMu sync.Mutex

// Migrate applies the embedded migrations for the dialect of db.
func Migrate(ctx context.Context, db *bun.DB, logger identity.Logger) error {
	var gooseDialect, dir string
	switch db.Dialect().Name() {
	case dialect.SQLite:
		gooseDialect, dir = "sqlite3", "sqlite"
	case dialect.PG:
		gooseDialect, dir = "postgres", "postgres"
	default:
		return identity.NewConfigurationError("database", "dialect")
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{logger: logger})
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db.DB, dir); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

type gooseLogger struct {
	logger identity.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	if g.logger != nil {
		g.logger.Debug(format, v...)
	}
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	if g.logger != nil {
		g.logger.Error(format, v...)
	}
}
