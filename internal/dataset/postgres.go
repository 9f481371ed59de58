package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/chartmesh/chartmesh/internal/chart"
)

const defaultPostgresMaxRows = 10000

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)?$`)

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres source: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres source: %w", err)
	}

	return db, nil
}

// PostgresSource reads whole tables as datasets. It never writes.
type PostgresSource struct {
	db      *sql.DB
	maxRows int
}

func NewPostgresSource(db *sql.DB, maxRows int) *PostgresSource {
	if maxRows <= 0 {
		maxRows = defaultPostgresMaxRows
	}
	return &PostgresSource{db: db, maxRows: maxRows}
}

// Load selects up to maxRows rows of table, which may be schema-qualified.
// NULL cells are left absent from the row.
func (s *PostgresSource) Load(ctx context.Context, table string) (chart.Dataset, error) {
	if s == nil || s.db == nil {
		return chart.Dataset{}, fmt.Errorf("postgres source is not configured")
	}
	quoted, err := quoteTableName(table)
	if err != nil {
		return chart.Dataset{}, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %s LIMIT $1`, quoted), s.maxRows)
	if err != nil {
		return chart.Dataset{}, fmt.Errorf("query table %s: %w", quoted, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return chart.Dataset{}, fmt.Errorf("table columns: %w", err)
	}
	b, err := newBuilder(columns)
	if err != nil {
		return chart.Dataset{}, err
	}

	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return chart.Dataset{}, fmt.Errorf("scan row: %w", err)
		}
		row := make(chart.Row, len(columns))
		for i, value := range values {
			if value.Valid && columns[i] != "" {
				row[columns[i]] = value.String
			}
		}
		b.rows = append(b.rows, row)
	}
	if err := rows.Err(); err != nil {
		return chart.Dataset{}, fmt.Errorf("iterate rows: %w", err)
	}
	return b.dataset(), nil
}

func quoteTableName(table string) (string, error) {
	table = strings.TrimSpace(table)
	if !tableNamePattern.MatchString(table) {
		return "", fmt.Errorf("invalid table name: %q", table)
	}
	parts := strings.Split(table, ".")
	for i, part := range parts {
		parts[i] = `"` + part + `"`
	}
	return strings.Join(parts, "."), nil
}
