package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/provenix-dev/provenix-store/internal/apperr"
	"github.com/provenix-dev/provenix-store/pkg/schema"
)

// AuditStore owns the append-only user_audit table. Entries are written once
// and never updated or deleted; versions per user are gapless starting at 1.
type AuditStore struct {
	db *DB
}

// NewAuditStore builds a store over the user_audit table.
func NewAuditStore(db *DB) *AuditStore {
	return &AuditStore{db: db}
}

// LatestVersion returns the highest version recorded for the user, or 0 when
// no history exists. Absence of history is a valid state here; orchestration
// decides whether it means NotFound.
func (s *AuditStore) LatestVersion(ctx context.Context, userID int64) (int, error) {
	var version int
	err := s.db.conn(ctx).QueryRowContext(ctx,
		s.db.rebind(`SELECT COALESCE(MAX(version), 0) FROM user_audit WHERE user_id = ?`),
		userID).Scan(&version)
	if err != nil {
		return 0, apperr.Storage("query latest audit version", err)
	}
	return version, nil
}

// NextVersion computes the version the next mutation will record. It must be
// evaluated inside the same transaction as the subsequent Append: under
// concurrency two transactions may compute the same value, and the unique
// index on (user_id, version) fails the second one as a Conflict.
func (s *AuditStore) NextVersion(ctx context.Context, userID int64) (int, error) {
	latest, err := s.LatestVersion(ctx, userID)
	if err != nil {
		return 0, err
	}
	return latest + 1, nil
}

// Append records one snapshot. A duplicate (user_id, version) pair is the
// detectable form of a version race and surfaces as a Conflict.
func (s *AuditStore) Append(ctx context.Context, entry schema.AuditEntry) error {
	_, err := s.db.conn(ctx).ExecContext(ctx,
		s.db.rebind(`INSERT INTO user_audit (user_id, version, name, email, action, changed_at, changed_by)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
		entry.UserID, entry.Version, entry.Name, entry.Email, string(entry.Action),
		entry.ChangedAt, entry.ChangedBy)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict(fmt.Sprintf("Version %d already recorded for user %d", entry.Version, entry.UserID))
		}
		return apperr.Storage("append audit entry", err)
	}
	return nil
}

// History returns every snapshot for the user, newest version first.
func (s *AuditStore) History(ctx context.Context, userID int64) ([]schema.AuditEntry, error) {
	rows, err := s.db.conn(ctx).QueryContext(ctx,
		s.db.rebind(`SELECT user_id, version, name, email, action, changed_at, changed_by
			FROM user_audit WHERE user_id = ? ORDER BY version DESC`),
		userID)
	if err != nil {
		return nil, apperr.Storage("query audit history", err)
	}
	defer rows.Close()

	var entries []schema.AuditEntry
	for rows.Next() {
		var entry schema.AuditEntry
		if err := rows.Scan(&entry.UserID, &entry.Version, &entry.Name, &entry.Email,
			&entry.Action, &entry.ChangedAt, &entry.ChangedBy); err != nil {
			return nil, apperr.Storage("scan audit entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate audit history", err)
	}
	if len(entries) == 0 {
		return nil, apperr.NotFound("No audit entries found for this user")
	}
	return entries, nil
}

// AtVersion returns the snapshot recorded as the given version.
func (s *AuditStore) AtVersion(ctx context.Context, userID int64, version int) (schema.AuditEntry, error) {
	var entry schema.AuditEntry
	err := s.db.conn(ctx).QueryRowContext(ctx,
		s.db.rebind(`SELECT user_id, version, name, email, action, changed_at, changed_by
			FROM user_audit WHERE user_id = ? AND version = ?`),
		userID, version).Scan(&entry.UserID, &entry.Version, &entry.Name, &entry.Email,
		&entry.Action, &entry.ChangedAt, &entry.ChangedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.AuditEntry{}, apperr.NotFound("Specified version not found")
	}
	if err != nil {
		return schema.AuditEntry{}, apperr.Storage("query audit version", err)
	}
	return entry, nil
}
