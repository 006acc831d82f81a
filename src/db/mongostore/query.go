package mongostore

import (
	"regexp"
	"strings"

	"pocketbook-server/src/models"

	"go.mongodb.org/mongo-driver/bson"
)

func ownerFilter(owner models.Owner) bson.D {
	if !owner.Scoped() {
		return bson.D{}
	}
	return bson.D{{Key: "owner_id", Value: int64(owner)}}
}

func itemFilter(owner models.Owner, id int64) bson.D {
	return append(bson.D{{Key: "_id", Value: id}}, ownerFilter(owner)...)
}

// transactionFilter mirrors the SQL predicate: owner scope, a literal
// case-sensitive description substring and an exact trimmed type.
func transactionFilter(owner models.Owner, filter models.TransactionFilter) bson.D {
	query := ownerFilter(owner)
	if filter.Description != "" {
		query = append(query, bson.E{Key: "description", Value: bson.D{
			{Key: "$regex", Value: regexp.QuoteMeta(filter.Description)},
		}})
	}
	if filter.Type != nil {
		query = append(query, bson.E{Key: "type", Value: strings.TrimSpace(*filter.Type)})
	}
	return query
}

func sortSpec(order models.Ordering) bson.D {
	var spec bson.D
	if col, desc := order.Column(); col != "" {
		dir := 1
		if desc {
			dir = -1
		}
		spec = append(spec, bson.E{Key: col, Value: dir})
	}
	return append(spec, bson.E{Key: "_id", Value: 1})
}

func patchSet(patch models.TransactionPatch) bson.D {
	var set bson.D
	if patch.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *patch.Description})
	}
	if patch.Amount != nil {
		set = append(set, bson.E{Key: "amount", Value: patch.Amount.Cents()})
	}
	if patch.Type != nil {
		set = append(set, bson.E{Key: "type", Value: string(*patch.Type)})
	}
	if patch.Date != nil {
		set = append(set, bson.E{Key: "date", Value: patch.Date.String()})
	}
	return set
}

func sumOf(typ models.TransactionType) bson.D {
	return bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{"$type", string(typ)}}},
		"$amount",
		int64(0),
	}}}}}
}

// summaryPipeline groups the matching documents into income and expense
// totals. The type filter does not apply to summaries.
func summaryPipeline(owner models.Owner, filter models.TransactionFilter) bson.A {
	filter.Type = nil
	return bson.A{
		bson.D{{Key: "$match", Value: transactionFilter(owner, filter)}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "income", Value: sumOf(models.Income)},
			{Key: "expense", Value: sumOf(models.Expense)},
		}}},
	}
}
