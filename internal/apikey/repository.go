package apikey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists API keys.
type Repository interface {
	Create(ctx context.Context, key APIKey) error
	FindByID(ctx context.Context, ownerID, id string) (APIKey, error)
	FindByPrefix(ctx context.Context, prefix string) ([]APIKey, error)
	ListByOwner(ctx context.Context, ownerID string) ([]APIKey, error)
	CountActive(ctx context.Context, ownerID string, now time.Time) (int, error)
}

const keyCols = `id, owner_id, name, prefix, secret_hash, permissions, expires_at, rolled_from, created_at`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed key repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, key APIKey) error {
	const query = `
        INSERT INTO api_keys (id, owner_id, name, prefix, secret_hash, permissions, expires_at, rolled_from, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, query, key.ID, key.OwnerID, key.Name, key.Prefix, key.SecretHash,
		key.Permissions, key.ExpiresAt.UTC(), key.RolledFrom, key.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, ownerID, id string) (APIKey, error) {
	const query = `SELECT ` + keyCols + ` FROM api_keys WHERE id = $1 AND owner_id = $2`
	key, err := scanKey(r.db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return APIKey{}, ErrKeyNotFound
		}
		return APIKey{}, fmt.Errorf("find api key: %w", err)
	}
	return key, nil
}

func (r *PostgresRepository) FindByPrefix(ctx context.Context, prefix string) ([]APIKey, error) {
	const query = `SELECT ` + keyCols + ` FROM api_keys WHERE prefix = $1`
	return r.queryKeys(ctx, query, prefix)
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]APIKey, error) {
	const query = `SELECT ` + keyCols + ` FROM api_keys WHERE owner_id = $1 ORDER BY created_at DESC`
	return r.queryKeys(ctx, query, ownerID)
}

func (r *PostgresRepository) CountActive(ctx context.Context, ownerID string, now time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM api_keys WHERE owner_id = $1 AND expires_at > $2`
	var count int
	if err := r.db.QueryRow(ctx, query, ownerID, now.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("count api keys: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) queryKeys(ctx context.Context, query string, arg any) ([]APIKey, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query api keys: %w", err)
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query api keys: %w", err)
	}
	return keys, nil
}

func scanKey(row pgx.Row) (APIKey, error) {
	var key APIKey
	err := row.Scan(&key.ID, &key.OwnerID, &key.Name, &key.Prefix, &key.SecretHash,
		&key.Permissions, &key.ExpiresAt, &key.RolledFrom, &key.CreatedAt)
	if err != nil {
		return APIKey{}, err
	}
	return key, nil
}
