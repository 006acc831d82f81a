package db

import (
	"context"
	"errors"
	"fmt"

	store "pocketbook-server/src/db"
	"pocketbook-server/src/models"

	"entgo.io/ent/dialect"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements store.Store on a pgx pool.
type PostgresStore struct {
	pool  *pgxpool.Pool
	query store.TransactionQuery
}

func NewStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool:  pool,
		query: store.NewTransactionQuery(dialect.Postgres),
	}
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const transactionReturning = `RETURNING id, description, amount, type, date, owner_id`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID,
		&t.Description,
		&t.Amount.Decimal,
		&t.Type,
		&t.Date.Time,
		&t.OwnerID,
	)
	if err != nil {
		return nil, err
	}
	t.Date = models.DateOf(t.Date.Time)
	return &t, nil
}

func (s *PostgresStore) CreateTransaction(ctx context.Context, owner models.Owner, fields models.TransactionFields) (*models.Transaction, error) {
	query := `
		INSERT INTO transactions (description, amount, type, date, owner_id)
		VALUES ($1, $2, $3, $4, $5)
	` + transactionReturning

	t, err := scanTransaction(s.pool.QueryRow(ctx, query,
		fields.Description,
		fields.Amount.Decimal,
		string(fields.Type),
		fields.Date.Time,
		owner.Ref(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) GetTransaction(ctx context.Context, owner models.Owner, id int64) (*models.Transaction, error) {
	query := `
		SELECT id, description, amount, type, date, owner_id
		FROM transactions
		WHERE id = $1
	`
	args := []any{id}
	if owner.Scoped() {
		query += ` AND owner_id = $2`
		args = append(args, int64(owner))
	}

	t, err := scanTransaction(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return t, nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, owner models.Owner, filter models.TransactionFilter, page models.PageRequest) (models.TransactionPage, error) {
	var result models.TransactionPage

	countQuery, countArgs := s.query.Count(owner, filter)
	if err := s.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&result.Count); err != nil {
		return result, fmt.Errorf("failed to count transactions: %w", err)
	}

	query, args := s.query.List(owner, filter, page)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return result, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	result.Items = []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return result, fmt.Errorf("failed to scan transaction: %w", err)
		}
		result.Items = append(result.Items, *t)
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("failed to list transactions: %w", err)
	}
	return result, nil
}

// UpdateTransaction applies the patch in one statement. Absent fields keep
// their stored value through COALESCE.
func (s *PostgresStore) UpdateTransaction(ctx context.Context, owner models.Owner, id int64, patch models.TransactionPatch) (*models.Transaction, error) {
	query := `
		UPDATE transactions SET
			description = COALESCE($1::varchar, description),
			amount = COALESCE($2::numeric, amount),
			type = COALESCE($3::varchar, type),
			date = COALESCE($4::date, date)
		WHERE id = $5
	`
	args := []any{nil, nil, nil, nil, id}
	if patch.Description != nil {
		args[0] = *patch.Description
	}
	if patch.Amount != nil {
		args[1] = patch.Amount.Decimal
	}
	if patch.Type != nil {
		args[2] = string(*patch.Type)
	}
	if patch.Date != nil {
		args[3] = patch.Date.Time
	}
	if owner.Scoped() {
		query += ` AND owner_id = $6`
		args = append(args, int64(owner))
	}
	query += transactionReturning

	t, err := scanTransaction(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update transaction %d: %w", id, err)
	}
	return t, nil
}

func (s *PostgresStore) DeleteTransaction(ctx context.Context, owner models.Owner, id int64) error {
	query := `DELETE FROM transactions WHERE id = $1`
	args := []any{id}
	if owner.Scoped() {
		query += ` AND owner_id = $2`
		args = append(args, int64(owner))
	}

	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SummarizeTransactions(ctx context.Context, owner models.Owner, filter models.TransactionFilter) (models.Summary, error) {
	var income, expense models.Money

	query, args := s.query.Summary(owner, filter)
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&income.Decimal, &expense.Decimal); err != nil {
		return models.Summary{}, fmt.Errorf("failed to summarize transactions: %w", err)
	}
	return models.NewSummary(income, expense), nil
}
