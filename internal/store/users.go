package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/provenix-dev/provenix-store/internal/apperr"
	"github.com/provenix-dev/provenix-store/pkg/schema"
)

// UserStore owns the live users table. Rows are only mutated through the
// profile service, which wraps every mutation and its audit append in one
// transaction.
type UserStore struct {
	db *DB
}

// NewUserStore builds a store over the users table.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// ExistsByEmail reports whether a live profile already claims the email.
// Uniqueness applies to live rows only; historical snapshots may repeat an
// email freely.
func (s *UserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var id int64
	err := s.db.conn(ctx).QueryRowContext(ctx,
		s.db.rebind(`SELECT id FROM users WHERE email = ?`), email).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Storage("query user by email", err)
	}
	return true, nil
}

// Insert creates a profile with a system-assigned identity.
func (s *UserStore) Insert(ctx context.Context, name, email, passwordHash string) (schema.User, error) {
	now := time.Now().UTC()
	user := schema.User{Name: name, Email: email, CreatedAt: now, UpdatedAt: now}
	err := s.db.conn(ctx).QueryRowContext(ctx,
		s.db.rebind(`INSERT INTO users (name, email, password_hash, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?) RETURNING id`),
		name, email, passwordHash, now, now).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return schema.User{}, apperr.Conflict("Email already registered")
		}
		return schema.User{}, apperr.Storage("insert user", err)
	}
	return user, nil
}

// InsertWithID re-creates a deleted profile under its original identity.
// Only restore-after-delete calls this; the caller passes the sentinel
// credential hash because the original is unrecoverable.
func (s *UserStore) InsertWithID(ctx context.Context, id int64, name, email, passwordHash string) (schema.User, error) {
	now := time.Now().UTC()
	user := schema.User{ID: id, Name: name, Email: email, CreatedAt: now, UpdatedAt: now}
	_, err := s.db.conn(ctx).ExecContext(ctx,
		s.db.rebind(`INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`),
		id, name, email, passwordHash, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return schema.User{}, apperr.Conflict("Email already registered")
		}
		return schema.User{}, apperr.Storage("insert user with id", err)
	}
	return user, nil
}

// Get fetches a live profile by identity.
func (s *UserStore) Get(ctx context.Context, id int64) (schema.User, error) {
	var user schema.User
	err := s.db.conn(ctx).QueryRowContext(ctx,
		s.db.rebind(`SELECT id, name, email, created_at, updated_at FROM users WHERE id = ?`),
		id).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return schema.User{}, apperr.Storage("query user", err)
	}
	return user, nil
}

// Credentials returns the identity and stored hash for a login attempt.
func (s *UserStore) Credentials(ctx context.Context, email string) (int64, string, error) {
	var id int64
	var hash string
	err := s.db.conn(ctx).QueryRowContext(ctx,
		s.db.rebind(`SELECT id, password_hash FROM users WHERE email = ?`), email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", apperr.NotFound("User not found")
	}
	if err != nil {
		return 0, "", apperr.Storage("query credentials", err)
	}
	return id, hash, nil
}

// Update rewrites the mutable fields and refreshes the modification time.
func (s *UserStore) Update(ctx context.Context, id int64, name, email string) (schema.User, error) {
	now := time.Now().UTC()
	user := schema.User{ID: id, Name: name, Email: email, UpdatedAt: now}
	err := s.db.conn(ctx).QueryRowContext(ctx,
		s.db.rebind(`UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ? RETURNING created_at`),
		name, email, now, id).Scan(&user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		if isUniqueViolation(err) {
			return schema.User{}, apperr.Conflict("Email already registered")
		}
		return schema.User{}, apperr.Storage("update user", err)
	}
	return user, nil
}

// Delete removes the live row. Callers confirm existence first; deleting an
// absent row is not an error here.
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.conn(ctx).ExecContext(ctx,
		s.db.rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return apperr.Storage("delete user", err)
	}
	return nil
}
