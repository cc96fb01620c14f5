package ports

import "context"

// Durable keys of a persisted session.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// SessionStorage persists the raw token and the serialized identity.
// Save and Clear write both keys as one step: readers never observe one
// without the other.
type SessionStorage interface {
	// Load returns ok=false when nothing (or only one of the two keys) is stored.
	Load(ctx context.Context) (token string, identity []byte, ok bool, err error)
	Save(ctx context.Context, token string, identity []byte) error
	Clear(ctx context.Context) error
}
