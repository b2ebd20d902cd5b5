package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"

	"github.com/digitalka/monthly-sales/consts"
	"github.com/digitalka/monthly-sales/report"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// ErrTotalPrecision is returned for order totals finer than a cent.
var ErrTotalPrecision = errors.New("order total has more than 2 decimal places")

//go:embed migrations
var migrationsFS embed.FS

//go:embed sql
var queriesFS embed.FS

// OrderStore is the order table as used by the report and the import tool.
type OrderStore interface {
	report.Store
	InsertOrder(ctx context.Context, o report.Order) (int64, error)
	Close() error
}

type queries struct {
	insertOrder string
	sumByMonth  string
}

// Orders is the SQL backed OrderStore.
type Orders struct {
	db      *sql.DB
	queries queries
}

// OpenStore opens the order store for the configured driver and brings its schema up to date.
func OpenStore(driver, dsn string) (OrderStore, error) {
	switch driver {
	case "memory":
		return NewMemoryOrders(), nil
	case "sqlite":
		return OpenSQLite(dsn)
	case "postgres":
		return OpenPostgres(dsn)
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

func OpenSQLite(fileName string) (*Orders, error) {
	params := url.Values{
		"_journal_mode": []string{"WAL"},
		"_synchronous":  []string{"NORMAL"},
		"cache":         []string{"shared"},
		"_busy_timeout": []string{"5000"},
		"_txlock":       []string{"immediate"},
	}
	dataSourceName := fmt.Sprintf("file:%s?%s", fileName, params.Encode())
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases alive across queries
	db.SetMaxOpenConns(1)

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite migration driver: %w", err)
	}
	if err := runMigrations(driver, "sqlite3", "migrations/sqlite"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return newOrders(db, "sql/sqlite")
}

func OpenPostgres(dsn string) (*Orders, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create postgres migration driver: %w", err)
	}
	if err := runMigrations(driver, "pgx", "migrations/postgres"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return newOrders(db, "sql/postgres")
}

// runMigrations applies the embedded migrations. The migrate instance is left
// open since closing it closes the shared *sql.DB.
func runMigrations(driver database.Driver, driverName, dir string) error {
	d, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", d, driverName, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func newOrders(db *sql.DB, dir string) (*Orders, error) {
	read := func(name string) (string, error) {
		b, err := fs.ReadFile(queriesFS, dir+"/"+name)
		if err != nil {
			return "", fmt.Errorf("reading query %s: %w", name, err)
		}
		return string(b), nil
	}
	var q queries
	var err error
	if q.insertOrder, err = read("insert_order.sql"); err != nil {
		return nil, err
	}
	if q.sumByMonth, err = read("sum_by_month.sql"); err != nil {
		return nil, err
	}
	return &Orders{db: db, queries: q}, nil
}

func (o *Orders) Close() error {
	return o.db.Close()
}

func (o *Orders) InsertOrder(ctx context.Context, order report.Order) (int64, error) {
	cents, err := toCents(order.Total)
	if err != nil {
		return 0, err
	}
	var id int64
	err = o.db.QueryRowContext(ctx, o.queries.insertOrder,
		order.Status,
		cents,
		order.CreatedAt.Format(consts.DateTimeFormat),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting order: %w", err)
	}
	return id, nil
}

func (o *Orders) SumByMonth(ctx context.Context, excludeStatus string) ([]report.MonthSum, error) {
	rows, err := o.db.QueryContext(ctx, o.queries.sumByMonth, excludeStatus)
	if err != nil {
		return nil, fmt.Errorf("querying monthly sums: %w", err)
	}
	defer rows.Close()

	var sums []report.MonthSum
	for rows.Next() {
		var year, month int
		var cents int64
		if err := rows.Scan(&year, &month, &cents); err != nil {
			return nil, fmt.Errorf("scanning monthly sum: %w", err)
		}
		sums = append(sums, report.MonthSum{Year: year, Month: month, Total: fromCents(cents)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating monthly sums: %w", err)
	}
	return sums, nil
}

// Amounts are kept as integer cents so SUM stays exact on every driver.
func toCents(d decimal.Decimal) (int64, error) {
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s", ErrTotalPrecision, d)
	}
	return cents.IntPart(), nil
}

// CheckTotal reports whether the store can keep d without rounding.
func CheckTotal(d decimal.Decimal) error {
	_, err := toCents(d)
	return err
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
