package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pocketbook-server/src/db"
	"pocketbook-server/src/models"

	"entgo.io/ent/dialect"
	"github.com/mattn/go-sqlite3"
)

// Store implements db.Store on SQLite.
type Store struct {
	conn  *sql.DB
	query db.TransactionQuery
}

// Open connects to dsn and applies the schema. In-memory databases need a
// shared cache DSN such as file:name?mode=memory&cache=shared&_fk=1.
func Open(ctx context.Context, dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// SQLite serializes writers anyway; a single connection avoids
	// SQLITE_BUSY between pooled connections.
	conn.SetMaxOpenConns(1)

	stmts := append([]string{`PRAGMA foreign_keys = ON`}, schema...)
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return &Store{
		conn:  conn,
		query: db.NewTransactionQuery(dialect.SQLite),
	}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

const transactionColumns = `id, description, amount, type, date, owner_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*models.Transaction, error) {
	var (
		t     models.Transaction
		cents int64
		date  string
		owner sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.Description, &cents, &t.Type, &date, &owner); err != nil {
		return nil, err
	}

	d, err := models.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("invalid stored date %q: %w", date, err)
	}
	t.Date = d
	t.Amount = models.MoneyFromCents(cents)
	if owner.Valid {
		t.OwnerID = &owner.Int64
	}
	return &t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, owner models.Owner, fields models.TransactionFields) (*models.Transaction, error) {
	query := `
		INSERT INTO transactions (description, amount, type, date, owner_id)
		VALUES (?, ?, ?, ?, ?)
		RETURNING ` + transactionColumns

	t, err := scanTransaction(s.conn.QueryRowContext(ctx, query,
		fields.Description,
		fields.Amount.Cents(),
		string(fields.Type),
		fields.Date.String(),
		owner.Ref(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return t, nil
}

func (s *Store) GetTransaction(ctx context.Context, owner models.Owner, id int64) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`
	args := []any{id}
	if owner.Scoped() {
		query += ` AND owner_id = ?`
		args = append(args, int64(owner))
	}

	t, err := scanTransaction(s.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, owner models.Owner, filter models.TransactionFilter, page models.PageRequest) (models.TransactionPage, error) {
	var result models.TransactionPage

	countQuery, countArgs := s.query.Count(owner, filter)
	if err := s.conn.QueryRowContext(ctx, countQuery, countArgs...).Scan(&result.Count); err != nil {
		return result, fmt.Errorf("failed to count transactions: %w", err)
	}

	query, args := s.query.List(owner, filter, page)
	rows, err := s.conn.QueryContext(ctx, query, args...)
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

func (s *Store) UpdateTransaction(ctx context.Context, owner models.Owner, id int64, patch models.TransactionPatch) (*models.Transaction, error) {
	query := `
		UPDATE transactions SET
			description = COALESCE(?, description),
			amount = COALESCE(?, amount),
			type = COALESCE(?, type),
			date = COALESCE(?, date)
		WHERE id = ?`
	args := []any{nil, nil, nil, nil, id}
	if patch.Description != nil {
		args[0] = *patch.Description
	}
	if patch.Amount != nil {
		args[1] = patch.Amount.Cents()
	}
	if patch.Type != nil {
		args[2] = string(*patch.Type)
	}
	if patch.Date != nil {
		args[3] = patch.Date.String()
	}
	if owner.Scoped() {
		query += ` AND owner_id = ?`
		args = append(args, int64(owner))
	}
	query += ` RETURNING ` + transactionColumns

	t, err := scanTransaction(s.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update transaction %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, owner models.Owner, id int64) error {
	query := `DELETE FROM transactions WHERE id = ?`
	args := []any{id}
	if owner.Scoped() {
		query += ` AND owner_id = ?`
		args = append(args, int64(owner))
	}

	result, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}
	if affected == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (s *Store) SummarizeTransactions(ctx context.Context, owner models.Owner, filter models.TransactionFilter) (models.Summary, error) {
	var income, expense int64

	query, args := s.query.Summary(owner, filter)
	if err := s.conn.QueryRowContext(ctx, query, args...).Scan(&income, &expense); err != nil {
		return models.Summary{}, fmt.Errorf("failed to summarize transactions: %w", err)
	}
	return models.NewSummary(models.MoneyFromCents(income), models.MoneyFromCents(expense)), nil
}

const userColumns = `id, username, email, password_hash, locked, created_at, last_login`

func scanUser(row scanner) (*models.User, error) {
	var (
		user      models.User
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Locked,
		&user.CreatedAt,
		&lastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("query error: %w", err)
	}
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	return &user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(s.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = ? OR email = ?
		ORDER BY id
		LIMIT 1`
	login = strings.ToLower(login)
	return scanUser(s.conn.QueryRowContext(ctx, query, login, login))
}

func (s *Store) CreateUser(ctx context.Context, req models.RegisterRequest, passwordHash []byte) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING ` + userColumns

	user, err := scanUser(s.conn.QueryRowContext(ctx, query,
		strings.ToLower(req.Username),
		strings.ToLower(req.Email),
		passwordHash,
		time.Now().UTC(),
	))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, db.ErrConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *Store) UpdateUserLastLogin(ctx context.Context, id int64) error {
	result, err := s.conn.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update last_login: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update last_login: %w", err)
	}
	if affected == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, id int64, passwordHash []byte) error {
	result, err := s.conn.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return db.ErrNotFound
	}
	return nil
}

// DeleteUser removes the user's transactions through ON DELETE CASCADE.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return db.ErrNotFound
	}
	return nil
}

// SetUserLocked locks or unlocks a user account.
func (s *Store) SetUserLocked(ctx context.Context, id int64, locked bool) error {
	result, err := s.conn.ExecContext(ctx, `UPDATE users SET locked = ? WHERE id = ?`, locked, id)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", id, err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return db.ErrNotFound
	}
	return nil
}
