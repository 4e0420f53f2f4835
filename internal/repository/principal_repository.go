package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/identity-service/internal/domain"
)

// PrincipalRepository defines persistence access for principals. The gate
// and authenticator only read; mutation happens through Create/Update.
type PrincipalRepository interface {
	Create(ctx context.Context, principal *domain.Principal) error
	Update(ctx context.Context, principal *domain.Principal) error
	GetByID(ctx context.Context, id string) (*domain.Principal, error)
	GetByIdentifier(ctx context.Context, identifier string) (*domain.Principal, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Principal, int, error)
}

const uniqueViolationCode = "23505"

type principalRepository struct {
	pool *pgxpool.Pool
}

// NewPrincipalRepository returns a Postgres-backed implementation.
func NewPrincipalRepository(pool *pgxpool.Pool) PrincipalRepository {
	return &principalRepository{pool: pool}
}

func (r *principalRepository) Create(ctx context.Context, principal *domain.Principal) error {
	const query = `
        INSERT INTO principals (identifier, name, secret_hash, scope, active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		principal.Identifier,
		principal.Name,
		principal.SecretHash,
		principal.Scope.Strings(),
		principal.Active,
	).Scan(&principal.ID, &principal.CreatedAt, &principal.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return domain.ErrIdentifierTaken
	}
	return err
}

func (r *principalRepository) Update(ctx context.Context, principal *domain.Principal) error {
	const query = `
        UPDATE principals SET name=$1, secret_hash=$2, scope=$3, active=$4, updated_at=NOW()
        WHERE id=$5`

	cmd, err := r.pool.Exec(ctx, query,
		principal.Name,
		principal.SecretHash,
		principal.Scope.Strings(),
		principal.Active,
		principal.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrPrincipalNotFound
	}
	return nil
}

func (r *principalRepository) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	const query = `
        SELECT id, identifier, name, secret_hash, scope, active, created_at, updated_at
        FROM principals WHERE id=$1`

	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *principalRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.Principal, error) {
	const query = `
        SELECT id, identifier, name, secret_hash, scope, active, created_at, updated_at
        FROM principals WHERE identifier=$1`

	return r.scanOne(r.pool.QueryRow(ctx, query, identifier))
}

func (r *principalRepository) List(ctx context.Context, limit, offset int) ([]*domain.Principal, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM principals`).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `
        SELECT id, identifier, name, secret_hash, scope, active, created_at, updated_at
        FROM principals ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	principals := make([]*domain.Principal, 0, limit)
	for rows.Next() {
		principal, err := scanPrincipal(rows)
		if err != nil {
			return nil, 0, err
		}
		principals = append(principals, principal)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return principals, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *principalRepository) scanOne(row pgx.Row) (*domain.Principal, error) {
	principal, err := scanPrincipal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPrincipalNotFound
	}
	if err != nil {
		return nil, err
	}
	return principal, nil
}

func scanPrincipal(row rowScanner) (*domain.Principal, error) {
	var principal domain.Principal
	var scope []string
	if err := row.Scan(
		&principal.ID,
		&principal.Identifier,
		&principal.Name,
		&principal.SecretHash,
		&scope,
		&principal.Active,
		&principal.CreatedAt,
		&principal.UpdatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := domain.ParseScope(scope)
	if err != nil {
		return nil, err
	}
	principal.Scope = parsed
	return &principal, nil
}
