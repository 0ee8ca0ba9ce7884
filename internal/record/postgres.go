package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/ppiankov/sentcheck/internal/model"
)

const schema = `
create table if not exists sentcheck_queries (
  seq        bigserial primary key,
  id         text not null unique,
  query      text not null,
  expected   boolean,
  verdict    boolean not null,
  policy     text not null,
  classify   text not null default '',
  created_at timestamptz not null default now(),
  unique (query, policy, classify)
);
create table if not exists sentcheck_tokens (
  seq      bigserial primary key,
  query_id text not null references sentcheck_queries(id) on delete cascade,
  query    text not null,
  token    text not null,
  pos      text not null,
  dep      text not null
);`

// PostgresStore persists records in two tables so several sessions can share them
type PostgresStore struct {
	DB *sql.DB
}

// OpenPostgres connects with the pgx driver and creates the tables if needed
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres records backend requires dsn")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := NewPostgresStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{DB: db} }

// Migrate creates the record tables
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create record tables: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, q model.QueryRecord, tokens []model.TokenRecord) (bool, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	const insertQuery = `
insert into sentcheck_queries (id, query, expected, verdict, policy, classify, created_at)
values ($1,$2,$3,$4,$5,$6,$7)
on conflict (query, policy, classify) do nothing
returning id`

	var id string
	err = tx.QueryRowContext(ctx, insertQuery,
		q.ID, q.Query, nullBool(q.Expected), q.Verdict, q.Policy, q.Classify, q.CreatedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert query: %w", err)
	}

	const insertToken = `
insert into sentcheck_tokens (query_id, query, token, pos, dep)
values ($1,$2,$3,$4,$5)`

	for _, t := range tokens {
		if _, err := tx.ExecContext(ctx, insertToken, id, t.Query, t.Token, string(t.POS), t.Dep); err != nil {
			return false, fmt.Errorf("insert token: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) Queries(ctx context.Context) ([]model.QueryRecord, error) {
	const q = `
select id, query, expected, verdict, policy, classify, created_at
from sentcheck_queries
order by seq`

	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.QueryRecord
	for rows.Next() {
		var (
			rec      model.QueryRecord
			expected sql.NullBool
		)
		if err := rows.Scan(&rec.ID, &rec.Query, &expected, &rec.Verdict, &rec.Policy, &rec.Classify, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if expected.Valid {
			v := expected.Bool
			rec.Expected = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Tokens(ctx context.Context) ([]model.TokenRecord, error) {
	const q = `
select query_id, query, token, pos, dep
from sentcheck_tokens
order by seq`

	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.TokenRecord
	for rows.Next() {
		var (
			rec model.TokenRecord
			pos string
		)
		if err := rows.Scan(&rec.QueryID, &rec.Query, &rec.Token, &pos, &rec.Dep); err != nil {
			return nil, err
		}
		rec.POS = model.POS(pos)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.DB.Close()
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
