package sqlite

// Amounts are stored as integer cents and dates as YYYY-MM-DD text, which
// keeps sums exact and date ordering lexical.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash BLOB NOT NULL,
		locked        BOOLEAN NOT NULL DEFAULT 0,
		created_at    TIMESTAMP NOT NULL,
		last_login    TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		description TEXT NOT NULL,
		amount      INTEGER NOT NULL CHECK (amount >= 1),
		type        TEXT NOT NULL CHECK (type IN ('income', 'expense')),
		date        TEXT NOT NULL,
		owner_id    INTEGER REFERENCES users (id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_owner_id_idx ON transactions (owner_id)`,
}
