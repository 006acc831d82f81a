package models

import (
	"strings"
	"time"
)

type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// ParseTransactionType accepts only the exact enum values.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch TransactionType(s) {
	case Income, Expense:
		return TransactionType(s), true
	}
	return "", false
}

// Owner is the id of the user a transaction belongs to. AnyOwner disables
// ownership scoping and is only used when authentication is turned off.
type Owner int64

const AnyOwner Owner = 0

// Scoped reports whether store operations must filter on the owner.
func (o Owner) Scoped() bool {
	return o != AnyOwner
}

// Ref returns the value persisted in the owner column, nil for AnyOwner.
func (o Owner) Ref() *int64 {
	if !o.Scoped() {
		return nil
	}
	id := int64(o)
	return &id
}

type Transaction struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Amount      Money           `json:"amount"`
	Type        TransactionType `json:"type"`
	Date        Date            `json:"date"`
	OwnerID     *int64          `json:"-"`
}

// TransactionFields is a fully validated payload, used for creation.
type TransactionFields struct {
	Description string
	Amount      Money
	Type        TransactionType
	Date        Date
}

// TransactionPatch carries the fields present in an update payload.
// A nil field keeps the stored value.
type TransactionPatch struct {
	Description *string
	Amount      *Money
	Type        *TransactionType
	Date        *Date
}

// Complete returns the patch as creation fields when every field is set.
func (p TransactionPatch) Complete() (TransactionFields, bool) {
	if p.Description == nil || p.Amount == nil || p.Type == nil || p.Date == nil {
		return TransactionFields{}, false
	}
	return TransactionFields{
		Description: *p.Description,
		Amount:      *p.Amount,
		Type:        *p.Type,
		Date:        *p.Date,
	}, true
}

// Empty reports whether the patch changes nothing.
func (p TransactionPatch) Empty() bool {
	return p.Description == nil && p.Amount == nil && p.Type == nil && p.Date == nil
}

// Apply returns a copy of t with the patch applied.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	return t
}

type Ordering string

const (
	OrderDefault    Ordering = ""
	OrderDateAsc    Ordering = "date"
	OrderDateDesc   Ordering = "-date"
	OrderAmountAsc  Ordering = "amount"
	OrderAmountDesc Ordering = "-amount"
)

// ParseOrdering falls back to OrderDefault (ascending id) for unknown values.
func ParseOrdering(s string) Ordering {
	switch o := Ordering(strings.TrimSpace(s)); o {
	case OrderDateAsc, OrderDateDesc, OrderAmountAsc, OrderAmountDesc:
		return o
	}
	return OrderDefault
}

// Column returns the ordered column and whether the order is descending.
// The default ordering has no column.
func (o Ordering) Column() (string, bool) {
	if o == OrderDefault {
		return "", false
	}
	return strings.TrimPrefix(string(o), "-"), strings.HasPrefix(string(o), "-")
}

// TransactionFilter narrows a listing. A nil Type means no type filter; a
// present but empty Type matches nothing.
type TransactionFilter struct {
	Description string
	Type        *string
	OrderBy     Ordering
}

// PageRequest bounds a listing. Limit 0 means unbounded.
type PageRequest struct {
	Limit  int
	Offset int
}

type TransactionPage struct {
	Items []Transaction
	Count int64
}

type Summary struct {
	TotalIncome  Money `json:"total_income"`
	TotalExpense Money `json:"total_expense"`
	NetBalance   Money `json:"net_balance"`
}

// NewSummary derives the net balance from the two totals.
func NewSummary(income, expense Money) Summary {
	return Summary{
		TotalIncome:  income,
		TotalExpense: expense,
		NetBalance:   Money{income.Sub(expense.Decimal)},
	}
}

const DateLayout = "2006-01-02"

// Date is a calendar date without time of day, serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time of day and location of t.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts YYYY-MM-DD, with one or two digit month and day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-1-2", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	parsed, err := ParseDate(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
