package db

import (
	"strings"

	"pocketbook-server/src/models"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// TransactionColumns is the column order every transaction query selects and
// every store scans.
var TransactionColumns = []string{"id", "description", "amount", "type", "date", "owner_id"}

const transactionsTable = "transactions"

const (
	sumIncome  = "COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE 0 END), 0)"
	sumExpense = "COALESCE(SUM(CASE WHEN type = 'expense' THEN amount ELSE 0 END), 0)"
)

// TransactionQuery builds the read queries shared by the SQL stores for one
// dialect (dialect.Postgres or dialect.SQLite).
type TransactionQuery struct {
	dialect string
}

func NewTransactionQuery(d string) TransactionQuery {
	return TransactionQuery{dialect: d}
}

// List selects one page of the matching rows, ordered by the filter's
// ordering with id ascending as the tie-break.
func (q TransactionQuery) List(owner models.Owner, filter models.TransactionFilter, page models.PageRequest) (string, []any) {
	sel := entsql.Dialect(q.dialect).
		Select(TransactionColumns...).
		From(entsql.Table(transactionsTable))
	if p := q.predicate(owner, filter); p != nil {
		sel.Where(p)
	}

	if col, desc := filter.OrderBy.Column(); col != "" {
		if desc {
			sel.OrderBy(entsql.Desc(col))
		} else {
			sel.OrderBy(entsql.Asc(col))
		}
	}
	sel.OrderBy(entsql.Asc("id"))

	if page.Limit > 0 {
		sel.Limit(page.Limit)
		if page.Offset > 0 {
			sel.Offset(page.Offset)
		}
	}
	return sel.Query()
}

// Count counts the matching rows, ignoring pagination.
func (q TransactionQuery) Count(owner models.Owner, filter models.TransactionFilter) (string, []any) {
	sel := entsql.Dialect(q.dialect).
		Select(entsql.Count("*")).
		From(entsql.Table(transactionsTable))
	if p := q.predicate(owner, filter); p != nil {
		sel.Where(p)
	}
	return sel.Query()
}

// Summary sums the income and expense amounts of the matching rows. The type
// filter is not applied.
func (q TransactionQuery) Summary(owner models.Owner, filter models.TransactionFilter) (string, []any) {
	filter.Type = nil
	sel := entsql.Dialect(q.dialect).
		Select(sumIncome, sumExpense).
		From(entsql.Table(transactionsTable))
	if p := q.predicate(owner, filter); p != nil {
		sel.Where(p)
	}
	return sel.Query()
}

func (q TransactionQuery) predicate(owner models.Owner, filter models.TransactionFilter) *entsql.Predicate {
	var preds []*entsql.Predicate
	if owner.Scoped() {
		preds = append(preds, entsql.EQ("owner_id", int64(owner)))
	}
	if filter.Description != "" {
		preds = append(preds, q.contains("description", filter.Description))
	}
	if filter.Type != nil {
		preds = append(preds, entsql.EQ("type", strings.TrimSpace(*filter.Type)))
	}

	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	}
	return entsql.And(preds...)
}

// contains is a case-sensitive substring match. LIKE folds ASCII case in
// SQLite, so both dialects use their string position function instead.
func (q TransactionQuery) contains(col, sub string) *entsql.Predicate {
	fn := "strpos"
	if q.dialect == dialect.SQLite {
		fn = "instr"
	}
	return entsql.P(func(b *entsql.Builder) {
		b.WriteString(fn).WriteString("(").Ident(col).Comma().Arg(sub).WriteString(") > 0")
	})
}
