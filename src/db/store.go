package db

import (
	"context"
	"errors"

	"pocketbook-server/src/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// TransactionStore persists transactions. Every method scopes its work to the
// given owner first, so rows of another owner behave as missing. Passing
// models.AnyOwner disables the scoping.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, owner models.Owner, fields models.TransactionFields) (*models.Transaction, error)
	GetTransaction(ctx context.Context, owner models.Owner, id int64) (*models.Transaction, error)
	ListTransactions(ctx context.Context, owner models.Owner, filter models.TransactionFilter, page models.PageRequest) (models.TransactionPage, error)
	UpdateTransaction(ctx context.Context, owner models.Owner, id int64, patch models.TransactionPatch) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, owner models.Owner, id int64) error
	SummarizeTransactions(ctx context.Context, owner models.Owner, filter models.TransactionFilter) (models.Summary, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, req models.RegisterRequest, passwordHash []byte) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	// GetUserByLogin matches login against the username or the email,
	// case-insensitively.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	UpdateUserLastLogin(ctx context.Context, id int64) error
	UpdateUserPassword(ctx context.Context, id int64, passwordHash []byte) error
	// DeleteUser removes the user together with their transactions.
	DeleteUser(ctx context.Context, id int64) error
}

type Store interface {
	TransactionStore
	UserStore
	Close() error
}
