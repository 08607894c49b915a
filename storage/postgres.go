package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dunetube/dunetube/database"
	"github.com/jmoiron/sqlx"
)

type Postgres struct {
	db *sqlx.DB
}

// NewPostgres expects the device_values table created by database.Migrate.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	const q = `SELECT value FROM device_values WHERE key = $1`

	var value string
	err := p.db.GetContext(ctx, &value, q, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("selecting key[%s]: %w", key, err)
	}
	return value, true, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value string) error {
	const q = `
	INSERT INTO device_values (key, value, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	if _, err := p.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("upserting key[%s]: %w", key, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM device_values WHERE key = $1`

	if _, err := p.db.ExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("deleting key[%s]: %w", key, err)
	}
	return nil
}

func (p *Postgres) CompareAndSwap(ctx context.Context, key string, old string, next string) error {
	err := database.Transaction(ctx, p.db, func(tx sqlx.ExtContext) error {
		const sel = `SELECT value FROM device_values WHERE key = $1 FOR UPDATE`

		var cur string
		err := sqlx.GetContext(ctx, tx, &cur, sel, key)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if old != "" {
				return ErrConflict
			}

			const ins = `
			INSERT INTO device_values (key, value, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO NOTHING`

			res, err := tx.ExecContext(ctx, ins, key, next)
			if err != nil {
				return err
			}
			return expectOneRow(res)

		case err != nil:
			return err
		}

		if cur != old {
			return ErrConflict
		}

		const upd = `UPDATE device_values SET value = $2, updated_at = now() WHERE key = $1`
		_, err = tx.ExecContext(ctx, upd, key, next)
		return err
	})

	if err != nil && !errors.Is(err, ErrConflict) {
		return fmt.Errorf("swapping key[%s]: %w", key, err)
	}
	return err
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrConflict
	}
	return nil
}
