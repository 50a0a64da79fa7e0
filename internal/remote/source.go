// Package remote defines the injected data-access collaborator contract and
// the error taxonomy applied to its rejections. The engine never performs
// network I/O itself; it orchestrates calls made through a Source.
package remote

import (
	"context"

	"cachecore/pkg/domain"
)

// Params carries pagination and equality filters for list calls.
type Params struct {
	Offset  int
	Limit   int
	Filters map[string]string
}

// Source is the per-entity-type data-access collaborator. Implementations
// must return an error (never an error-shaped value) on failure, carrying a
// status code when the transport provides one.
type Source[E domain.Entity, P domain.Patch[E]] interface {
	List(ctx context.Context, params Params) ([]E, error)
	Get(ctx context.Context, id string) (E, error)
	Create(ctx context.Context, payload E) (E, error)
	Update(ctx context.Context, id string, patch P) (E, error)
	Delete(ctx context.Context, id string) error
}

// Session supplies the current authenticated identity. The provider treats a
// false ok as "not yet initialized" and defers cache warming until a session
// is available.
type Session interface {
	CurrentUser(ctx context.Context) (id string, role domain.Role, ok bool)
}
