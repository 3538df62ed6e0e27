package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies the embedded goose migrations to db.
func Migrate(ctx context.Context, db *sql.DB, logger *zap.SugaredLogger) error {
	goose.SetBaseFS(migrationFS)
	defer goose.SetBaseFS(nil)
	if logger != nil {
		goose.SetLogger(gooseLogger{logger})
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// gooseLogger routes goose output through zap. Fatalf is downgraded to an
// error log so a failed migration is returned instead of exiting the process.
type gooseLogger struct {
	log *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Infof(format, v...)
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Errorf(format, v...)
}
