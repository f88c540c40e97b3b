// Package service implements the mutation orchestrator: every logical change
// to a profile (create, update, delete, restore) runs as one transaction
// spanning the live table and the audit log.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/provenix-dev/provenix-store/internal/apperr"
	"github.com/provenix-dev/provenix-store/internal/auth"
	"github.com/provenix-dev/provenix-store/internal/store"
	"github.com/provenix-dev/provenix-store/pkg/schema"
)

// Profiles coordinates the user store, the audit log, and token issuance.
// It satisfies the sdk.ProfileStore contract implicitly, so the daemon and
// the embedded mode share one surface with the remote client without this
// package depending on the SDK.
type Profiles struct {
	users  *store.UserStore
	audit  *store.AuditStore
	tx     *store.TxManager
	tokens *auth.TokenIssuer
	logger *slog.Logger
}

// New wires a profile service over the database.
func New(db *store.DB, tokens *auth.TokenIssuer, logger *slog.Logger) *Profiles {
	if logger == nil {
		logger = slog.Default()
	}
	return &Profiles{
		users:  store.NewUserStore(db),
		audit:  store.NewAuditStore(db),
		tx:     store.NewTxManager(db),
		tokens: tokens,
		logger: logger,
	}
}

// Create registers a profile and records audit version 1. Signup is
// anonymous, so the CREATE entry carries no actor.
func (p *Profiles) Create(ctx context.Context, name, email, password string) (schema.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return schema.User{}, apperr.Validation("Password not acceptable")
	}

	var user schema.User
	err = p.tx.RunInTx(ctx, func(ctx context.Context) error {
		exists, err := p.users.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if exists {
			return apperr.Conflict("Email already registered")
		}

		user, err = p.users.Insert(ctx, name, email, hash)
		if err != nil {
			return err
		}

		return p.audit.Append(ctx, schema.AuditEntry{
			UserID:    user.ID,
			Version:   1,
			Name:      name,
			Email:     email,
			Action:    schema.ActionCreate,
			ChangedAt: user.CreatedAt,
		})
	})
	if err != nil {
		return schema.User{}, err
	}

	p.logger.Info("user created", slog.Int64("user_id", user.ID))
	return user, nil
}

// Get fetches the live profile.
func (p *Profiles) Get(ctx context.Context, id int64) (schema.User, error) {
	return p.users.Get(ctx, id)
}

// Update rewrites the profile fields and appends the next audit version.
func (p *Profiles) Update(ctx context.Context, id int64, name, email string) (schema.User, error) {
	var user schema.User
	err := p.tx.RunInTx(ctx, func(ctx context.Context) error {
		next, err := p.audit.NextVersion(ctx, id)
		if err != nil {
			return err
		}
		if next == 1 {
			// No history means the profile never existed.
			return apperr.NotFound("User not found")
		}

		user, err = p.users.Update(ctx, id, name, email)
		if err != nil {
			return err
		}

		return p.audit.Append(ctx, schema.AuditEntry{
			UserID:    id,
			Version:   next,
			Name:      name,
			Email:     email,
			Action:    schema.ActionUpdate,
			ChangedAt: user.UpdatedAt,
			ChangedBy: actorFrom(ctx),
		})
	})
	if err != nil {
		return schema.User{}, err
	}

	p.logger.Info("user updated", slog.Int64("user_id", id))
	return user, nil
}

// Delete removes the live row after recording a DELETE entry carrying the
// pre-delete snapshot. History outlives the row.
func (p *Profiles) Delete(ctx context.Context, id int64) error {
	err := p.tx.RunInTx(ctx, func(ctx context.Context) error {
		next, err := p.audit.NextVersion(ctx, id)
		if err != nil {
			return err
		}
		if next == 1 {
			return apperr.NotFound("User not found")
		}

		// Snapshot must be read before the row disappears.
		user, err := p.users.Get(ctx, id)
		if err != nil {
			return err
		}

		if err := p.audit.Append(ctx, schema.AuditEntry{
			UserID:    id,
			Version:   next,
			Name:      user.Name,
			Email:     user.Email,
			Action:    schema.ActionDelete,
			ChangedAt: time.Now().UTC(),
			ChangedBy: actorFrom(ctx),
		}); err != nil {
			return err
		}

		return p.users.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	p.logger.Info("user deleted", slog.Int64("user_id", id))
	return nil
}

// History returns every audit entry for the profile, newest version first.
func (p *Profiles) History(ctx context.Context, id int64) ([]schema.AuditEntry, error) {
	return p.audit.History(ctx, id)
}

// Restore copies the snapshot recorded as the target version back into the
// live record and appends it as a new RESTORE version. A deleted profile is
// re-created under its original identity with the sentinel credential, since
// the audit log never stores password hashes.
func (p *Profiles) Restore(ctx context.Context, id int64, version int) error {
	err := p.tx.RunInTx(ctx, func(ctx context.Context) error {
		// Both reads happen before any write.
		target, err := p.audit.AtVersion(ctx, id, version)
		if err != nil {
			return err
		}
		next, err := p.audit.NextVersion(ctx, id)
		if err != nil {
			return err
		}

		_, err = p.users.Update(ctx, id, target.Name, target.Email)
		if errors.Is(err, apperr.ErrNotFound) {
			_, err = p.users.InsertWithID(ctx, id, target.Name, target.Email, schema.RestoredPassword)
		}
		if err != nil {
			return err
		}

		return p.audit.Append(ctx, schema.AuditEntry{
			UserID:    id,
			Version:   next,
			Name:      target.Name,
			Email:     target.Email,
			Action:    schema.ActionRestore,
			ChangedAt: time.Now().UTC(),
			ChangedBy: actorFrom(ctx),
		})
	})
	if err != nil {
		return err
	}

	p.logger.Info("user restored", slog.Int64("user_id", id), slog.Int("version", version))
	return nil
}

// Login verifies the password against the stored hash and issues a token
// whose subject is the profile identity.
func (p *Profiles) Login(ctx context.Context, email, password string) (string, error) {
	id, hash, err := p.users.Credentials(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", apperr.Authentication("Incorrect email or password")
	}
	if err != nil {
		return "", err
	}
	if !auth.CheckPassword(password, hash) {
		return "", apperr.Authentication("Incorrect email or password")
	}
	return p.tokens.Issue(strconv.FormatInt(id, 10))
}

// actorFrom lifts the authenticated subject out of the context. Nil means an
// anonymous mutation.
func actorFrom(ctx context.Context) *string {
	if subject, ok := auth.SubjectFromContext(ctx); ok && subject != "" {
		return &subject
	}
	return nil
}
