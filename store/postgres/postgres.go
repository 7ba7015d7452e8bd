/*
Package postgres implements generic.Backend on PostgreSQL through the pgx
database/sql driver.

The tables mirror store/sqlite. Amounts are NUMERIC and scan straight into
decimal.Decimal; record dates keep their (shape, raw) pair so malformed
input reaches the ledger untouched. Concurrency is left to the database.
Override replacement runs in one READ COMMITTED transaction.

Selected when DATABASE_URL is set; see internal/config.
*/
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/warp/bizledger/generic"
)

type Store struct {
	db *sql.DB
}

// New connects, pings and migrates.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			kind TEXT NOT NULL,
			id TEXT NOT NULL,
			party_id TEXT NOT NULL,
			date_shape TEXT NOT NULL DEFAULT '',
			date_raw TEXT NOT NULL DEFAULT '',
			debit NUMERIC NOT NULL,
			credit NUMERIC NOT NULL,
			description TEXT,
			details JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (kind, id)
		);
		CREATE INDEX IF NOT EXISTS idx_records_party_kind ON records(party_id, kind);

		CREATE TABLE IF NOT EXISTS parties (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			party_type TEXT NOT NULL,
			phone TEXT,
			outstanding NUMERIC NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			default_discount NUMERIC NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category_id TEXT REFERENCES categories(id),
			unit_price NUMERIC NOT NULL,
			default_discount NUMERIC
		);

		CREATE TABLE IF NOT EXISTS party_category_discounts (
			party_id TEXT NOT NULL,
			category_id TEXT NOT NULL,
			discount NUMERIC NOT NULL,
			PRIMARY KEY (party_id, category_id)
		);

		CREATE TABLE IF NOT EXISTS reconciliation_runs (
			id TEXT PRIMARY KEY,
			party_id TEXT NOT NULL,
			status TEXT NOT NULL,
			ledger_balance NUMERIC NOT NULL,
			outstanding NUMERIC NOT NULL,
			difference NUMERIC NOT NULL,
			diverged BOOLEAN NOT NULL DEFAULT FALSE,
			error TEXT,
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_reconciliation_runs_party ON reconciliation_runs(party_id, started_at DESC);
	`)
	return err
}

// =============================================================================
// RECORDS
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) RecordTransaction(ctx context.Context, rec generic.TransactionRecord) error {
	if !rec.Kind.Valid() {
		return generic.ErrInvalidKind
	}
	return insertRecord(ctx, s.db, rec)
}

// RecordAndAdjust inserts recs and moves each party's outstanding balance in
// one transaction.
func (s *Store) RecordAndAdjust(ctx context.Context, recs ...generic.TransactionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range recs {
		if !rec.Kind.Valid() {
			return generic.ErrInvalidKind
		}
		if err := adjustOutstanding(ctx, tx, rec.PartyID, rec.Net()); err != nil {
			return err
		}
		if err := insertRecord(ctx, tx, rec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertRecord(ctx context.Context, db execer, rec generic.TransactionRecord) error {
	details, err := rec.DetailsJSON()
	if err != nil {
		return fmt.Errorf("failed to encode record details: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO records (kind, id, party_id, date_shape, date_raw, debit, credit, description, details, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, string(rec.Kind), string(rec.ID), string(rec.PartyID),
		string(rec.Date.Shape()), rec.Date.Raw(),
		rec.Debit, rec.Credit,
		nullIfEmpty(rec.Description), nullIfEmpty(string(details)),
		createdAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return generic.ErrDuplicateRecord
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (s *Store) QueryByParty(ctx context.Context, partyID generic.PartyID, kind generic.RecordKind) ([]generic.TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, id, party_id, date_shape, date_raw, debit, credit, description, details, created_at
		FROM records
		WHERE party_id = $1 AND kind = $2
	`, string(partyID), string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := make([]generic.TransactionRecord, 0, 64)
	for rows.Next() {
		var (
			rec         generic.TransactionRecord
			shape, raw  string
			description sql.NullString
			details     sql.NullString
		)
		if err := rows.Scan(&rec.Kind, &rec.ID, &rec.PartyID, &shape, &raw,
			&rec.Debit, &rec.Credit, &description, &details, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Date = generic.DecodeDate(generic.DateShape(shape), raw)
		rec.Description = description.String
		if err := rec.SetDetailsJSON([]byte(details.String)); err != nil {
			return nil, fmt.Errorf("failed to decode record details: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// =============================================================================
// PARTIES
// =============================================================================

func (s *Store) SaveParty(ctx context.Context, p generic.Party) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO parties (id, name, party_type, phone, outstanding, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			party_type = EXCLUDED.party_type,
			phone = EXCLUDED.phone,
			outstanding = EXCLUDED.outstanding
	`, string(p.ID), p.Name, string(p.Type), nullIfEmpty(p.Phone), p.Outstanding, createdAt.UTC())
	return err
}

func (s *Store) GetParty(ctx context.Context, id generic.PartyID) (*generic.Party, error) {
	var (
		p     generic.Party
		phone sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, party_type, phone, outstanding, created_at
		FROM parties WHERE id = $1
	`, string(id)).Scan(&p.ID, &p.Name, &p.Type, &phone, &p.Outstanding, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, generic.ErrPartyNotFound
		}
		return nil, err
	}
	p.Phone = phone.String
	return &p, nil
}

func (s *Store) ListParties(ctx context.Context) ([]generic.Party, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, party_type, phone, outstanding, created_at
		FROM parties ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parties := make([]generic.Party, 0, 32)
	for rows.Next() {
		var (
			p     generic.Party
			phone sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &phone, &p.Outstanding, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Phone = phone.String
		parties = append(parties, p)
	}
	return parties, rows.Err()
}

func (s *Store) AdjustOutstanding(ctx context.Context, id generic.PartyID, delta decimal.Decimal) error {
	return adjustOutstanding(ctx, s.db, id, delta)
}

func adjustOutstanding(ctx context.Context, db execer, id generic.PartyID, delta decimal.Decimal) error {
	res, err := db.ExecContext(ctx,
		`UPDATE parties SET outstanding = outstanding + $2 WHERE id = $1`, string(id), delta)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return generic.ErrPartyNotFound
	}
	return nil
}

// =============================================================================
// CATALOG
// =============================================================================

func (s *Store) Categories(ctx context.Context) ([]generic.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, default_discount FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]generic.Category, 0, 32)
	for rows.Next() {
		var c generic.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.DefaultDiscount); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) SaveCategory(ctx context.Context, c generic.Category) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, default_discount) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, default_discount = EXCLUDED.default_discount
	`, string(c.ID), c.Name, c.DefaultDiscount)
	return err
}

func (s *Store) Products(ctx context.Context) ([]generic.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category_id, unit_price, default_discount
		FROM products ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]generic.Product, 0, 128)
	for rows.Next() {
		var (
			p          generic.Product
			categoryID sql.NullString
			discount   decimal.NullDecimal
		)
		if err := rows.Scan(&p.ID, &p.Name, &categoryID, &p.UnitPrice, &discount); err != nil {
			return nil, err
		}
		p.CategoryID = generic.CategoryID(categoryID.String)
		if discount.Valid {
			d := discount.Decimal
			p.DefaultDiscount = &d
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) SaveProduct(ctx context.Context, p generic.Product) error {
	var discount any
	if p.DefaultDiscount != nil {
		discount = *p.DefaultDiscount
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category_id, unit_price, default_discount)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category_id = EXCLUDED.category_id,
			unit_price = EXCLUDED.unit_price,
			default_discount = EXCLUDED.default_discount
	`, string(p.ID), p.Name, nullIfEmpty(string(p.CategoryID)), p.UnitPrice, discount)
	if isForeignKeyViolation(err) {
		return generic.ErrCategoryNotFound
	}
	return err
}

func (s *Store) PartyOverrides(ctx context.Context, partyID generic.PartyID) (generic.Overrides, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category_id, discount FROM party_category_discounts WHERE party_id = $1`, string(partyID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides := make(generic.Overrides)
	for rows.Next() {
		var (
			id generic.CategoryID
			v  decimal.Decimal
		)
		if err := rows.Scan(&id, &v); err != nil {
			return nil, err
		}
		overrides[id] = v
	}
	return overrides, rows.Err()
}

func (s *Store) SetPartyOverrides(ctx context.Context, partyID generic.PartyID, overrides generic.Overrides) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM party_category_discounts WHERE party_id = $1`, string(partyID)); err != nil {
		return err
	}
	for id, v := range overrides {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO party_category_discounts (party_id, category_id, discount) VALUES ($1,$2,$3)`,
			string(partyID), string(id), v,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// =============================================================================
// RECONCILIATION RUNS
// =============================================================================

func (s *Store) SaveReconciliationRun(ctx context.Context, r generic.ReconciliationRun) error {
	var completedAt any
	if !r.CompletedAt.IsZero() {
		completedAt = r.CompletedAt.UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_runs (id, party_id, status, ledger_balance, outstanding,
			difference, diverged, error, started_at, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			ledger_balance = EXCLUDED.ledger_balance,
			outstanding = EXCLUDED.outstanding,
			difference = EXCLUDED.difference,
			diverged = EXCLUDED.diverged,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at
	`, r.ID, string(r.PartyID), string(r.Status), r.LedgerBalance, r.Outstanding, r.Difference,
		r.Diverged, nullIfEmpty(r.Error), r.StartedAt.UTC(), completedAt)
	return err
}

func (s *Store) ReconciliationRuns(ctx context.Context, partyID generic.PartyID, limit int) ([]generic.ReconciliationRun, error) {
	query := `
		SELECT id, party_id, status, ledger_balance, outstanding, difference,
			diverged, error, started_at, completed_at
		FROM reconciliation_runs
		WHERE ($1 = '' OR party_id = $1)
		ORDER BY started_at DESC
	`
	args := []any{string(partyID)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]generic.ReconciliationRun, 0, 32)
	for rows.Next() {
		var (
			r           generic.ReconciliationRun
			errText     sql.NullString
			completedAt sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.PartyID, &r.Status, &r.LedgerBalance, &r.Outstanding, &r.Difference,
			&r.Diverged, &errText, &r.StartedAt, &completedAt); err != nil {
			return nil, err
		}
		r.Error = errText.String
		if completedAt.Valid {
			r.CompletedAt = completedAt.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

func (s *Store) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		TRUNCATE records, party_category_discounts, products, categories, parties, reconciliation_runs
	`)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

var _ generic.Backend = (*Store)(nil)
