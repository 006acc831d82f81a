package main

import (
	"context"
	"fmt"
	"strings"

	"pocketbook-server/src/config"
	"pocketbook-server/src/db"
	"pocketbook-server/src/db/mongostore"
	sqldb "pocketbook-server/src/db/sql"
	"pocketbook-server/src/db/sqlite"
)

// openStore picks the backend from the DATABASE_URL scheme.
func openStore(ctx context.Context, cfg config.Config) (db.Store, error) {
	url := cfg.DatabaseURL
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		pool, err := db.Connect(ctx, url)
		if err != nil {
			return nil, err
		}
		if err := sqldb.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return sqldb.NewStore(pool), nil

	case strings.HasPrefix(url, "mongodb://"), strings.HasPrefix(url, "mongodb+srv://"):
		store, err := mongostore.Open(ctx, url, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return store, nil

	case strings.HasPrefix(url, "sqlite3://"), strings.HasPrefix(url, "file:"):
		store, err := sqlite.Open(ctx, strings.TrimPrefix(url, "sqlite3://"))
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unsupported DATABASE_URL scheme in %q", redact(url))
}

// redact hides everything after the scheme, which may carry credentials.
func redact(url string) string {
	if i := strings.Index(url, "://"); i >= 0 {
		return url[:i+3] + "..."
	}
	return "..."
}
