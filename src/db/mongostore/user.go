package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pocketbook-server/src/db"
	"pocketbook-server/src/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s *Store) findUser(ctx context.Context, filter bson.D) (*models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("query error: %w", err)
	}
	return doc.model(), nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.findUser(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	login = strings.ToLower(login)
	return s.findUser(ctx, bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "username", Value: login}},
		bson.D{{Key: "email", Value: login}},
	}}})
}

func (s *Store) CreateUser(ctx context.Context, req models.RegisterRequest, passwordHash []byte) (*models.User, error) {
	id, err := s.nextID(ctx, UsersCollection)
	if err != nil {
		return nil, err
	}

	doc := userDoc{
		ID:           id,
		Username:     strings.ToLower(req.Username),
		Email:        strings.ToLower(req.Email),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, db.ErrConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return doc.model(), nil
}

func (s *Store) UpdateUserLastLogin(ctx context.Context, id int64) error {
	result, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "last_login", Value: time.Now().UTC()}}}},
	)
	if err != nil {
		return fmt.Errorf("failed to update last_login: %w", err)
	}
	if result.MatchedCount == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, id int64, passwordHash []byte) error {
	result, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "password_hash", Value: passwordHash}}}},
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if result.MatchedCount == 0 {
		return db.ErrNotFound
	}
	return nil
}

// DeleteUser removes the user's transactions, then the user.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.transactions.DeleteMany(ctx, bson.D{{Key: "owner_id", Value: id}}); err != nil {
		return fmt.Errorf("failed to delete transactions of user %d: %w", id, err)
	}
	result, err := s.users.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.DeletedCount == 0 {
		return db.ErrNotFound
	}
	return nil
}
