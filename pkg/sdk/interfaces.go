package sdk

import (
	"context"

	"github.com/provenix-dev/provenix-store/pkg/schema"
)

// --- Functional Interfaces (Interface Segregation) ---

// ProfileReader defines read access to live profiles.
type ProfileReader interface {
	Get(ctx context.Context, id int64) (schema.User, error)
}

// ProfileWriter defines the mutating profile operations. The acting subject
// travels in the context on the server side and in the bearer token on the
// client side.
type ProfileWriter interface {
	Create(ctx context.Context, name, email, password string) (schema.User, error)
	Update(ctx context.Context, id int64, name, email string) (schema.User, error)
	Delete(ctx context.Context, id int64) error
}

// AuditBrowser exposes the immutable mutation history, newest version first.
type AuditBrowser interface {
	History(ctx context.Context, id int64) ([]schema.AuditEntry, error)
}

// Restorer copies a historical snapshot back into the live record, recorded
// as a new version.
type Restorer interface {
	Restore(ctx context.Context, id int64, version int) error
}

// Authenticator exchanges credentials for a bearer token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// --- Composite Interface ---

// ProfileStore is the primary interface for interacting with the profile
// store. Both the embedded service and the remote HTTP client implement this
// contract.
type ProfileStore interface {
	ProfileReader
	ProfileWriter
	AuditBrowser
	Restorer
	Authenticator
}
