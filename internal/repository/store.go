package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx, so every repo works both
// standalone and inside a transaction. Begin on a pgx.Tx opens a savepoint.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store groups the repos over one connection handle.
type Store struct {
	db DBTX
}

func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Votes() *VoteRepo     { return &VoteRepo{db: s.db} }
func (s *Store) Media() *MediaRepo    { return &MediaRepo{db: s.db} }
func (s *Store) Users() *UserRepo     { return &UserRepo{db: s.db} }
func (s *Store) Rewards() *RewardRepo { return &RewardRepo{db: s.db} }

// Atomic runs fn against a Store bound to a new transaction, committing if
// fn returns nil. Called on a transactional Store it nests as a savepoint.
func (s *Store) Atomic(ctx context.Context, fn func(*Store) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&Store{db: tx})
	})
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
