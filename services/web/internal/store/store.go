package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"

	"volunteerverse/pkg/db"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a write violates a unique constraint.
	ErrConflict = errors.New("store: conflict")
	// ErrAlreadyVerified is returned when verifying hours that are already verified.
	ErrAlreadyVerified = errors.New("store: hours already verified")
)

// Patch maps column names to new values for partial updates.
type Patch map[string]any

// Store holds the database handles shared by every repository method.
type Store struct {
	DB  *pgxpool.Pool
	ORM *gorm.DB
}

// New validates the handles and returns a Store.
func New(pool *pgxpool.Pool, orm *gorm.DB) (*Store, error) {
	if pool == nil {
		return nil, errors.New("database pool is required")
	}
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	return &Store{DB: pool, ORM: orm}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return db.Ping(ctx, s.DB)
}

func (s *Store) orm(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := withTimeout(ctx)
	return s.ORM.WithContext(ctx), cancel
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.DefaultTimeout)
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

func now() time.Time {
	return time.Now().UTC()
}

func (p Patch) withUpdatedAt() Patch {
	out := make(Patch, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out["updated_at"] = now()
	return out
}
