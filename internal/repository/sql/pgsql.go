package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/iyhunko/mechanic-matching/internal/config"
	"github.com/iyhunko/mechanic-matching/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

const (
	pqUniqueViolationErrCode = "23505" // PostgreSQL unique violation error code. See https://www.postgresql.org/docs/14/errcodes-appendix.html

	// DefaultMigrationsSource is the migrations location relative to the working directory.
	DefaultMigrationsSource = "file://migrations"
)

// uniqueColumns maps unique constraint names from migrations/ to the guarded column.
var uniqueColumns = map[string]string{
	"users_email_key":               "email",
	"vehicles_license_plate_key":    "license_plate",
	"vehicles_vin_key":              "vin",
	"mechanic_profiles_user_id_key": "user_id",
}

func StartDB(ctx context.Context, dbConf config.DB) (*sql.DB, error) {
	dbCon, err := startDBConnection(ctx, dbConf)
	if err != nil {
		slog.Error("failed to initialize DB connection", slog.Any("err", err))
		return nil, fmt.Errorf("failed to initialize DB connection: %w", err)
	}
	slog.Info("DB connection done")
	if err = RunMigrations(dbCon, DefaultMigrationsSource); err != nil {
		slog.Error("failed to run migrations", slog.Any("err", err))
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("DB migration done")
	return dbCon, nil
}

func startDBConnection(ctx context.Context, conf config.DB) (*sql.DB, error) {
	dsnTmp := "host=%s user=%s password=%s dbname=%s port=%s sslmode=disable"
	dsn := fmt.Sprintf(dsnTmp, conf.Host, conf.User, conf.Password, conf.Name, conf.Port)
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// RunMigrations applies every pending migration from source, e.g. "file://migrations".
func RunMigrations(db *sql.DB, source string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// asUniqueConstraintError converts a unique violation reported by either pgx or lib/pq.
func asUniqueConstraintError(err error) (*repository.UniqueConstraintError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pqUniqueViolationErrCode {
		return &repository.UniqueConstraintError{Field: uniqueColumns[pgErr.ConstraintName], Detail: pgErr.Detail}, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolationErrCode {
		return &repository.UniqueConstraintError{Field: uniqueColumns[pqErr.Constraint], Detail: pqErr.Detail}, true
	}
	return nil, false
}

// notFound maps sql.ErrNoRows to repository.ErrNotFound.
func notFound(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s not found: %w", entity, repository.ErrNotFound)
	}
	return fmt.Errorf("failed to query %s: %w", entity, err)
}

// expectOneRow returns errOnZero when the statement affected no rows.
func expectOneRow(result sql.Result, errOnZero error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errOnZero
	}
	return nil
}
