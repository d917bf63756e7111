package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const schemaSQL = `
create table if not exists tutor_kv (
	key        text primary key,
	value      bytea not null,
	updated_at timestamptz not null default now()
)`

// PostgresKV хранит значения в таблице tutor_kv.
type PostgresKV struct{ DB *sql.DB }

func NewPostgresKV(db *sql.DB) *PostgresKV { return &PostgresKV{DB: db} }

func (p *PostgresKV) Name() string { return "postgres" }

// EnsureSchema создаёт таблицу, если её ещё нет.
func (p *PostgresKV) EnsureSchema(ctx context.Context) error {
	if _, err := p.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create tutor_kv: %w", err)
	}
	return nil
}

func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `select value from tutor_kv where key=$1`
	var v []byte
	if err := p.DB.QueryRowContext(ctx, q, key).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres get: %w", err)
	}
	return v, nil
}

// Set: upsert по первичному ключу.
func (p *PostgresKV) Set(ctx context.Context, key string, value []byte) error {
	const q = `
insert into tutor_kv(key, value)
values ($1,$2)
on conflict (key)
do update set value=excluded.value, updated_at=now()`
	if _, err := p.DB.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("postgres set: %w", err)
	}
	return nil
}

func (p *PostgresKV) Delete(ctx context.Context, key string) error {
	if _, err := p.DB.ExecContext(ctx, `delete from tutor_kv where key=$1`, key); err != nil {
		return fmt.Errorf("postgres delete: %w", err)
	}
	return nil
}

func (p *PostgresKV) Ping(ctx context.Context) error { return p.DB.PingContext(ctx) }
