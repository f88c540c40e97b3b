// Package schema defines universal data structures shared between the
// Provenix daemon, the client SDK, and the HTTP API.
package schema

import "time"

// Action tags the kind of mutation that produced an audit entry.
type Action string

const (
	ActionCreate  Action = "CREATE"
	ActionUpdate  Action = "UPDATE"
	ActionDelete  Action = "DELETE"
	ActionRestore Action = "RESTORE"
)

// RestoredPassword is the sentinel credential hash assigned when a deleted
// profile is resurrected. The original hash is never written to the audit
// log, so it cannot be recovered.
const RestoredPassword = "RESTORED"

// User is the live, mutable profile record. The password hash is never
// serialized.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuditEntry is one immutable versioned snapshot of a profile plus metadata
// about the mutation that produced it. Entries are written once and never
// updated or deleted.
type AuditEntry struct {
	UserID    int64     `json:"user_id"`
	Version   int       `json:"version"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Action    Action    `json:"action"`
	ChangedAt time.Time `json:"changed_at"`
	ChangedBy *string   `json:"changed_by"`
}

// CreateUserRequest is the signup payload. Signup is anonymous, so the
// resulting CREATE audit entry carries no actor.
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateUserRequest carries the mutable profile fields.
type UpdateUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

// TokenResponse is returned by the login endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// MessageResponse confirms mutations that do not return a record.
type MessageResponse struct {
	Message string `json:"message"`
}
