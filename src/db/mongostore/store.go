package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pocketbook-server/src/db"
	"pocketbook-server/src/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	TransactionsCollection = "transactions"
	UsersCollection        = "users"
	countersCollection     = "counters"
)

// Store implements db.Store on MongoDB. Amounts are kept as integer cents and
// dates as YYYY-MM-DD strings; ids come from a counters collection so they
// keep increasing across deletions.
type Store struct {
	client       *mongo.Client
	transactions *mongo.Collection
	users        *mongo.Collection
	counters     *mongo.Collection
}

type transactionDoc struct {
	ID          int64  `bson:"_id"`
	Description string `bson:"description"`
	Amount      int64  `bson:"amount"`
	Type        string `bson:"type"`
	Date        string `bson:"date"`
	OwnerID     *int64 `bson:"owner_id"`
}

func (d transactionDoc) model() (*models.Transaction, error) {
	date, err := models.ParseDate(d.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid stored date %q: %w", d.Date, err)
	}
	return &models.Transaction{
		ID:          d.ID,
		Description: d.Description,
		Amount:      models.MoneyFromCents(d.Amount),
		Type:        models.TransactionType(d.Type),
		Date:        date,
		OwnerID:     d.OwnerID,
	}, nil
}

type userDoc struct {
	ID           int64      `bson:"_id"`
	Username     string     `bson:"username"`
	Email        string     `bson:"email"`
	PasswordHash []byte     `bson:"password_hash"`
	Locked       bool       `bson:"locked"`
	CreatedAt    time.Time  `bson:"created_at"`
	LastLogin    *time.Time `bson:"last_login,omitempty"`
}

func (d userDoc) model() *models.User {
	return &models.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Locked:       d.Locked,
		CreatedAt:    d.CreatedAt,
		LastLogin:    d.LastLogin,
	}
}

// Open connects to uri, verifies the connection and ensures the indexes of
// the given database exist.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbase := client.Database(database)
	s := &Store{
		client:       client,
		transactions: dbase.Collection(TransactionsCollection),
		users:        dbase.Collection(UsersCollection),
		counters:     dbase.Collection(countersCollection),
	}

	_, err = s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create user indexes: %w", err)
	}
	_, err = s.transactions.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "owner_id", Value: 1}}})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create transaction indexes: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// nextID atomically increments and returns the named sequence.
func (s *Store) nextID(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: name}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", name, err)
	}
	return counter.Seq, nil
}

func (s *Store) CreateTransaction(ctx context.Context, owner models.Owner, fields models.TransactionFields) (*models.Transaction, error) {
	id, err := s.nextID(ctx, TransactionsCollection)
	if err != nil {
		return nil, err
	}

	doc := transactionDoc{
		ID:          id,
		Description: fields.Description,
		Amount:      fields.Amount.Cents(),
		Type:        string(fields.Type),
		Date:        fields.Date.String(),
		OwnerID:     owner.Ref(),
	}
	if _, err := s.transactions.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return doc.model()
}

func (s *Store) GetTransaction(ctx context.Context, owner models.Owner, id int64) (*models.Transaction, error) {
	var doc transactionDoc
	err := s.transactions.FindOne(ctx, itemFilter(owner, id)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return doc.model()
}

func (s *Store) ListTransactions(ctx context.Context, owner models.Owner, filter models.TransactionFilter, page models.PageRequest) (models.TransactionPage, error) {
	var result models.TransactionPage

	query := transactionFilter(owner, filter)
	count, err := s.transactions.CountDocuments(ctx, query)
	if err != nil {
		return result, fmt.Errorf("failed to count transactions: %w", err)
	}
	result.Count = count

	opts := options.Find().SetSort(sortSpec(filter.OrderBy))
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit)).SetSkip(int64(page.Offset))
	}
	cursor, err := s.transactions.Find(ctx, query, opts)
	if err != nil {
		return result, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer cursor.Close(ctx)

	result.Items = []models.Transaction{}
	for cursor.Next(ctx) {
		var doc transactionDoc
		if err := cursor.Decode(&doc); err != nil {
			return result, fmt.Errorf("failed to decode transaction: %w", err)
		}
		t, err := doc.model()
		if err != nil {
			return result, err
		}
		result.Items = append(result.Items, *t)
	}
	if err := cursor.Err(); err != nil {
		return result, fmt.Errorf("failed to list transactions: %w", err)
	}
	return result, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, owner models.Owner, id int64, patch models.TransactionPatch) (*models.Transaction, error) {
	var (
		doc transactionDoc
		res *mongo.SingleResult
	)
	if !patch.Empty() {
		res = s.transactions.FindOneAndUpdate(ctx,
			itemFilter(owner, id),
			bson.D{{Key: "$set", Value: patchSet(patch)}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		)
	} else {
		res = s.transactions.FindOne(ctx, itemFilter(owner, id))
	}

	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update transaction %d: %w", id, err)
	}
	return doc.model()
}

func (s *Store) DeleteTransaction(ctx context.Context, owner models.Owner, id int64) error {
	result, err := s.transactions.DeleteOne(ctx, itemFilter(owner, id))
	if err != nil {
		return fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (s *Store) SummarizeTransactions(ctx context.Context, owner models.Owner, filter models.TransactionFilter) (models.Summary, error) {
	cursor, err := s.transactions.Aggregate(ctx, summaryPipeline(owner, filter))
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to summarize transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var totals struct {
		Income  int64 `bson:"income"`
		Expense int64 `bson:"expense"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&totals); err != nil {
			return models.Summary{}, fmt.Errorf("failed to decode summary: %w", err)
		}
	}
	if err := cursor.Err(); err != nil {
		return models.Summary{}, fmt.Errorf("failed to summarize transactions: %w", err)
	}
	return models.NewSummary(models.MoneyFromCents(totals.Income), models.MoneyFromCents(totals.Expense)), nil
}
