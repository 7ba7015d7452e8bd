/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.Backend (records, parties, discount configuration and
  reconciliation runs) using SQLite. The postgres package implements the
  same contracts with only dialect differences.

KEY TABLES:
  records:                  Every origin collection, one row per record, (kind, id) unique
  parties:                  Customers/vendors with their stored outstanding balance
  categories:               Category names and default discounts
  products:                 Catalog items, optional own discount
  party_category_discounts: Sparse per-party overrides keyed by category ID
  reconciliation_runs:      Ledger vs outstanding comparisons

DATES:
  A record's date is stored as (date_shape, date_raw) exactly as it
  arrived. Nothing is parsed on write; a bad date reaches the ledger as
  bad text and is handled by its normalization policy.

AMOUNTS:
  Decimals are stored as TEXT to keep exact values.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Override replacement runs inside
  a single database transaction.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/bizledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  builder := ledger.NewBuilder(store)

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/bizledger/generic"
)

// Store implements generic.Backend using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Origin collections (sales, payments, notes)
	CREATE TABLE IF NOT EXISTS records (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		party_id TEXT NOT NULL,
		date_shape TEXT NOT NULL DEFAULT '',
		date_raw TEXT NOT NULL DEFAULT '',
		debit TEXT NOT NULL,
		credit TEXT NOT NULL,
		description TEXT,
		details_json TEXT,
		created_at TEXT NOT NULL,
		PRIMARY KEY (kind, id)
	);

	-- Hot path: one origin collection for one party
	CREATE INDEX IF NOT EXISTS idx_records_party_kind
		ON records(party_id, kind);

	CREATE TABLE IF NOT EXISTS parties (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		party_type TEXT NOT NULL,
		phone TEXT,
		outstanding TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		default_discount TEXT NOT NULL DEFAULT '0'
	);

	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category_id TEXT REFERENCES categories(id),
		unit_price TEXT NOT NULL,
		default_discount TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_products_category
		ON products(category_id);

	-- Sparse: only categories with a party-specific discount
	CREATE TABLE IF NOT EXISTS party_category_discounts (
		party_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		discount TEXT NOT NULL,
		PRIMARY KEY (party_id, category_id)
	);

	CREATE TABLE IF NOT EXISTS reconciliation_runs (
		id TEXT PRIMARY KEY,
		party_id TEXT NOT NULL,
		status TEXT NOT NULL,
		ledger_balance TEXT NOT NULL,
		outstanding TEXT NOT NULL,
		difference TEXT NOT NULL,
		diverged BOOLEAN NOT NULL DEFAULT FALSE,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reconciliation_runs_party
		ON reconciliation_runs(party_id, started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RECORD STORE (generic.RecordStore interface)
// =============================================================================

// RecordTransaction stores a record in its origin collection.
func (s *Store) RecordTransaction(ctx context.Context, rec generic.TransactionRecord) error {
	if !rec.Kind.Valid() {
		return generic.ErrInvalidKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertRecord(ctx, s.db, rec)
}

func (s *Store) insertRecord(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, rec generic.TransactionRecord) error {
	detailsJSON, err := rec.DetailsJSON()
	if err != nil {
		return fmt.Errorf("failed to encode record details: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO records
		(kind, id, party_id, date_shape, date_raw, debit, credit, description, details_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.ExecContext(ctx, query,
		rec.Kind,
		rec.ID,
		rec.PartyID,
		string(rec.Date.Shape()),
		rec.Date.Raw(),
		rec.Debit.String(),
		rec.Credit.String(),
		nullString(rec.Description),
		nullString(string(detailsJSON)),
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateRecord
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// RecordAndAdjust stores recs and moves each party's outstanding balance
// by the record's net amount, all in one transaction.
func (s *Store) RecordAndAdjust(ctx context.Context, recs ...generic.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, rec := range recs {
		if !rec.Kind.Valid() {
			return generic.ErrInvalidKind
		}
		if err := adjustOutstanding(ctx, sqlTx, rec.PartyID, rec.Net()); err != nil {
			return err
		}
		if err := s.insertRecord(ctx, sqlTx, rec); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

// QueryByParty returns one origin collection for a party. No ordering is
// promised; rows come back in whatever order SQLite produces.
func (s *Store) QueryByParty(ctx context.Context, partyID generic.PartyID, kind generic.RecordKind) ([]generic.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT kind, id, party_id, date_shape, date_raw, debit, credit, description, details_json, created_at
		FROM records
		WHERE party_id = ? AND kind = ?
	`

	rows, err := s.db.QueryContext(ctx, query, partyID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []generic.TransactionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (generic.TransactionRecord, error) {
	var (
		rec         generic.TransactionRecord
		dateShape   string
		dateRaw     string
		debit       string
		credit      string
		description sql.NullString
		detailsJSON sql.NullString
		createdAt   string
	)

	err := rows.Scan(
		&rec.Kind, &rec.ID, &rec.PartyID, &dateShape, &dateRaw,
		&debit, &credit, &description, &detailsJSON, &createdAt,
	)
	if err != nil {
		return rec, fmt.Errorf("failed to scan record: %w", err)
	}

	rec.Date = generic.DecodeDate(generic.DateShape(dateShape), dateRaw)
	rec.Debit = generic.MustParseDecimal(debit)
	rec.Credit = generic.MustParseDecimal(credit)
	rec.Description = description.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if err := rec.SetDetailsJSON([]byte(detailsJSON.String)); err != nil {
		return rec, fmt.Errorf("failed to decode record details: %w", err)
	}

	return rec, nil
}

// =============================================================================
// PARTY STORE
// =============================================================================

func (s *Store) SaveParty(ctx context.Context, p generic.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO parties (id, name, party_type, phone, outstanding, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			party_type = excluded.party_type,
			phone = excluded.phone,
			outstanding = excluded.outstanding
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Type, nullString(p.Phone), p.Outstanding.String(),
		createdAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetParty(ctx context.Context, id generic.PartyID) (*generic.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, party_type, phone, outstanding, created_at
		FROM parties WHERE id = ?
	`, id)

	p, err := scanParty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrPartyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListParties(ctx context.Context) ([]generic.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, party_type, phone, outstanding, created_at
		FROM parties ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parties []generic.Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		parties = append(parties, p)
	}
	return parties, rows.Err()
}

// AdjustOutstanding adds delta to the stored balance inside one transaction.
func (s *Store) AdjustOutstanding(ctx context.Context, id generic.PartyID, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := adjustOutstanding(ctx, sqlTx, id, delta); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// adjustOutstanding reads and rewrites the balance as text so no float
// rounding creeps in.
func adjustOutstanding(ctx context.Context, sqlTx *sql.Tx, id generic.PartyID, delta decimal.Decimal) error {
	var current string
	err := sqlTx.QueryRowContext(ctx, "SELECT outstanding FROM parties WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.ErrPartyNotFound
	}
	if err != nil {
		return err
	}

	next := generic.MustParseDecimal(current).Add(delta)
	_, err = sqlTx.ExecContext(ctx, "UPDATE parties SET outstanding = ? WHERE id = ?", next.String(), id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanParty(row scanner) (generic.Party, error) {
	var (
		p           generic.Party
		phone       sql.NullString
		outstanding string
		createdAt   string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Type, &phone, &outstanding, &createdAt); err != nil {
		return p, err
	}
	p.Phone = phone.String
	p.Outstanding = generic.MustParseDecimal(outstanding)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return p, nil
}

// =============================================================================
// CATALOG STORE
// =============================================================================

func (s *Store) Categories(ctx context.Context) ([]generic.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, default_discount FROM categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []generic.Category
	for rows.Next() {
		var c generic.Category
		var def string
		if err := rows.Scan(&c.ID, &c.Name, &def); err != nil {
			return nil, err
		}
		c.DefaultDiscount = generic.MustParseDecimal(def)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) SaveCategory(ctx context.Context, c generic.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, default_discount) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			default_discount = excluded.default_discount
	`, c.ID, c.Name, c.DefaultDiscount.String())
	return err
}

func (s *Store) Products(ctx context.Context) ([]generic.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category_id, unit_price, default_discount
		FROM products ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []generic.Product
	for rows.Next() {
		var (
			p          generic.Product
			categoryID sql.NullString
			price      string
			discount   sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &categoryID, &price, &discount); err != nil {
			return nil, err
		}
		p.CategoryID = generic.CategoryID(categoryID.String)
		p.UnitPrice = generic.MustParseDecimal(price)
		if discount.Valid {
			d := generic.MustParseDecimal(discount.String)
			p.DefaultDiscount = &d
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// SaveProduct fails with ErrCategoryNotFound for an unknown category.
func (s *Store) SaveProduct(ctx context.Context, p generic.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var discount sql.NullString
	if p.DefaultDiscount != nil {
		discount = sql.NullString{String: p.DefaultDiscount.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category_id, unit_price, default_discount)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category_id = excluded.category_id,
			unit_price = excluded.unit_price,
			default_discount = excluded.default_discount
	`, p.ID, p.Name, nullString(string(p.CategoryID)), p.UnitPrice.String(), discount)
	if isForeignKeyError(err) {
		return generic.ErrCategoryNotFound
	}
	return err
}

func (s *Store) PartyOverrides(ctx context.Context, partyID generic.PartyID) (generic.Overrides, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT category_id, discount FROM party_category_discounts WHERE party_id = ?", partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides := make(generic.Overrides)
	for rows.Next() {
		var id, v string
		if err := rows.Scan(&id, &v); err != nil {
			return nil, err
		}
		overrides[generic.CategoryID(id)] = generic.MustParseDecimal(v)
	}
	return overrides, rows.Err()
}

// SetPartyOverrides replaces the party's whole override set in one
// transaction.
func (s *Store) SetPartyOverrides(ctx context.Context, partyID generic.PartyID, overrides generic.Overrides) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM party_category_discounts WHERE party_id = ?", partyID); err != nil {
		return err
	}
	for id, v := range overrides {
		if _, err := sqlTx.ExecContext(ctx,
			"INSERT INTO party_category_discounts (party_id, category_id, discount) VALUES (?, ?, ?)",
			partyID, id, v.String(),
		); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

// =============================================================================
// RECONCILIATION RUNS
// =============================================================================

func (s *Store) SaveReconciliationRun(ctx context.Context, r generic.ReconciliationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completedAt *string
	if !r.CompletedAt.IsZero() {
		c := r.CompletedAt.UTC().Format(time.RFC3339Nano)
		completedAt = &c
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_runs (id, party_id, status, ledger_balance, outstanding,
			difference, diverged, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			ledger_balance = excluded.ledger_balance,
			outstanding = excluded.outstanding,
			difference = excluded.difference,
			diverged = excluded.diverged,
			error = excluded.error,
			completed_at = excluded.completed_at
	`,
		r.ID, r.PartyID, r.Status,
		r.LedgerBalance.String(), r.Outstanding.String(), r.Difference.String(),
		r.Diverged, nullString(r.Error),
		r.StartedAt.UTC().Format(time.RFC3339Nano), completedAt,
	)
	return err
}

func (s *Store) ReconciliationRuns(ctx context.Context, partyID generic.PartyID, limit int) ([]generic.ReconciliationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, party_id, status, ledger_balance, outstanding, difference,
			diverged, error, started_at, completed_at
		FROM reconciliation_runs
	`
	var args []any
	if partyID != "" {
		query += " WHERE party_id = ?"
		args = append(args, partyID)
	}
	query += " ORDER BY started_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []generic.ReconciliationRun
	for rows.Next() {
		var (
			r                         generic.ReconciliationRun
			ledgerBal, outstand, diff string
			errText, completedAt      sql.NullString
			startedAt                 string
		)
		if err := rows.Scan(
			&r.ID, &r.PartyID, &r.Status, &ledgerBal, &outstand, &diff,
			&r.Diverged, &errText, &startedAt, &completedAt,
		); err != nil {
			return nil, err
		}
		r.LedgerBalance = generic.MustParseDecimal(ledgerBal)
		r.Outstanding = generic.MustParseDecimal(outstand)
		r.Difference = generic.MustParseDecimal(diff)
		r.Error = errText.String
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		if completedAt.Valid {
			r.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedAt.String)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"records", "party_category_discounts", "products", "categories", "parties", "reconciliation_runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY constraint failed"))
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

var _ generic.Backend = (*Store)(nil)
