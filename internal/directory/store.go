package directory

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/herrera/callpanel/internal/api"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      TEXT NOT NULL UNIQUE,
	access_token TEXT NOT NULL,
	location     TEXT NOT NULL,
	switch_index INTEGER NOT NULL,
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS users_switch_index ON users(switch_index);
`

// Store is the SQLite-backed Directory. Location payloads are stored as
// JSON text, matching how the remote service shapes them.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the directory database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open directory database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create directory schema")
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts the user or, if the user id already exists, refreshes its
// token, location, and switch binding.
func (s *Store) Upsert(ctx context.Context, u User) error {
	loc, err := json.Marshal(u.Location)
	if err != nil {
		return errors.Wrap(err, "encode location")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, access_token, location, switch_index)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			location     = excluded.location,
			switch_index = excluded.switch_index,
			updated_at   = CURRENT_TIMESTAMP`,
		u.ID, u.AccessToken, string(loc), u.SwitchIndex)
	if err != nil {
		return errors.Wrapf(err, "upsert user %s", u.ID)
	}
	return nil
}

// Lookup resolves the user bound to a switch position.
func (s *Store) Lookup(ctx context.Context, switchIndex int) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, access_token, location, switch_index
		FROM users WHERE switch_index = ?`, switchIndex)

	var u User
	var loc string
	if err := row.Scan(&u.ID, &u.AccessToken, &loc, &u.SwitchIndex); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, errors.Wrapf(err, "lookup switch %d", switchIndex)
	}
	if err := json.Unmarshal([]byte(loc), &u.Location); err != nil {
		return User{}, errors.Wrapf(err, "decode location for switch %d", switchIndex)
	}
	return u, nil
}

// Count returns the number of stored users.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count users")
	}
	return n, nil
}

// Fetcher is the remote side of Sync; satisfied by api.Client.
type Fetcher interface {
	FetchUsers(ctx context.Context) ([]api.User, error)
}

// Upserter is the local side of Sync; satisfied by Store and Memory-like
// stores in tests.
type Upserter interface {
	Upsert(ctx context.Context, u User) error
}

// Sync fetches the device's users and binds them, in the order the service
// returns, to switch positions 1..n. Records beyond n are ignored.
func Sync(ctx context.Context, dst Upserter, src Fetcher, n int) error {
	users, err := src.FetchUsers(ctx)
	if err != nil {
		return errors.Wrap(err, "sync users")
	}

	for i, u := range users {
		if i >= n {
			break
		}
		entry := User{
			ID:          u.ID,
			AccessToken: u.AccessToken,
			Location:    u.Location,
			SwitchIndex: i + 1,
		}
		if err := dst.Upsert(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}
